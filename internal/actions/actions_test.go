package actions

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"testing"

	"reqdesk/internal/apiclient"
	"reqdesk/internal/apitest"
	"reqdesk/internal/domain"
	"reqdesk/internal/state"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"),
	)
}

// recorder captures "op:phase" for every event the store applies.
type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) listen(_ string, ev state.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev.Op+":"+string(ev.Phase))
}

func (r *recorder) phases(op string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, e := range r.events {
		if len(e) > len(op) && e[:len(op)+1] == op+":" {
			out = append(out, e[len(op)+1:])
		}
	}
	return out
}

type fixture struct {
	set     *Set
	store   *state.Store
	backend *apitest.Backend
	rec     *recorder
}

func setup(t *testing.T) *fixture {
	t.Helper()
	backend := apitest.New(t)
	store := state.NewStore()
	client, err := apiclient.New(apiclient.Config{BaseURL: backend.URL(), Tokens: store})
	require.NoError(t, err)

	rec := &recorder{}
	store.Subscribe(rec.listen)
	return &fixture{set: New(client, store), store: store, backend: backend, rec: rec}
}

func (f *fixture) signIn(t *testing.T, acct domain.Account) domain.Account {
	t.Helper()
	acct = f.backend.AddAccount(acct, "secret")
	_, err := f.set.Auth.SignIn(context.Background(), domain.SignInInput{Email: acct.Email, Password: "secret"})
	require.NoError(t, err)
	return acct
}

func TestCreateCategory(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	got, err := f.set.Categories.Create(ctx, domain.CategoryInput{Name: "Sales", Description: "Sales data"})
	require.NoError(t, err)
	assert.NotEmpty(t, got.Key())

	assert.Equal(t, []string{"pending", "fulfilled"}, f.rec.phases(state.OpCreateCategory))
	snap := f.store.Snapshot()
	assert.Equal(t, state.StatusSucceeded, snap.Categories.Status(state.OpCreateCategory))

	var sales int
	for _, c := range snap.Categories.Items {
		if c.Name == "Sales" {
			sales++
		}
	}
	assert.Equal(t, 1, sales)
	assert.Contains(t, f.backend.Calls(), "POST /api/v1/category/create_category")
}

func TestDeleteNonexistentUser(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.backend.AddAccount(domain.Account{Email: "a@acme.test", Role: domain.RoleUser, FirstName: "Ada"}, "pw")

	_, err := f.set.Users.GetAll(ctx)
	require.NoError(t, err)
	before := f.store.Snapshot().Users.Items

	err = f.set.Users.Delete(ctx, "user-does-not-exist")
	require.Error(t, err)
	assert.Equal(t, "User not found", err.Error())
	assert.True(t, apiclient.IsKind(err, apiclient.KindServer))

	snap := f.store.Snapshot()
	assert.Equal(t, state.StatusFailed, snap.Users.Status(state.OpDeleteUser))
	assert.Equal(t, "User not found", snap.Users.Error)
	if diff := cmp.Diff(before, snap.Users.Items); diff != "" {
		t.Errorf("users changed (-before +after):\n%s", diff)
	}
	assert.Equal(t, []string{"pending", "rejected"}, f.rec.phases(state.OpDeleteUser))
}

func TestValidationFailsBeforeRequest(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.set.Categories.Create(ctx, domain.CategoryInput{Description: "no name"})
	require.Error(t, err)
	assert.Equal(t, "Category name is required.", err.Error())
	assert.True(t, apiclient.IsKind(err, apiclient.KindInvalid))

	var verr *domain.ValidationError
	assert.True(t, errors.As(err, &verr))
	assert.Equal(t, []string{"pending", "rejected"}, f.rec.phases(state.OpCreateCategory))

	tests := []struct {
		name string
		op   string
		call func() error
		want string
	}{
		{
			name: "update request without title",
			op:   state.OpUpdateAnalytics,
			call: func() error {
				_, err := f.set.Analytics.Update(ctx, "req-x", domain.AnalyticsInput{})
				return err
			},
			want: "Request Analytics title is required.",
		},
		{
			name: "update request without consent",
			op:   state.OpUpdateAnalytics,
			call: func() error {
				_, err := f.set.Analytics.Update(ctx, "req-x", domain.AnalyticsInput{
					UserID: "u1", BusinessUserID: "b1", Title: "Churn", Description: "d",
					DataFile: "data:application/pdf;base64,AA", CategoryID: "c1", RequestTypeID: "t1",
				})
				return err
			},
			want: "Request Analytics data consent is required.",
		},
		{
			name: "update user without last name",
			op:   state.OpUpdateUser,
			call: func() error {
				_, err := f.set.Users.Update(ctx, "user-x", domain.UserInput{FirstName: "Ada", Email: "ada@acme.test"})
				return err
			},
			want: "Last name is required.",
		},
		{
			name: "update user with bad email",
			op:   state.OpUpdateUser,
			call: func() error {
				_, err := f.set.Users.Update(ctx, "user-x", domain.UserInput{FirstName: "Ada", LastName: "King", Department: "R&D", Email: "ada"})
				return err
			},
			want: "Email is not a valid address.",
		},
		{
			name: "update category without name",
			op:   state.OpUpdateCategory,
			call: func() error {
				_, err := f.set.Categories.Update(ctx, "cat-x", domain.CategoryInput{})
				return err
			},
			want: "Category name is required.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			require.Error(t, err)
			assert.Equal(t, tt.want, err.Error())
			assert.True(t, apiclient.IsKind(err, apiclient.KindInvalid))
			assert.Equal(t, state.StatusFailed, opStatus(f.store.Snapshot(), tt.op))
		})
	}

	assert.Empty(t, f.backend.Calls())
}

func opStatus(snap state.State, op string) state.Status {
	switch op {
	case state.OpUpdateUser:
		return snap.Users.Status(op)
	case state.OpUpdateCategory:
		return snap.Categories.Status(op)
	default:
		return snap.Analytics.Status(op)
	}
}

func TestIDsAreEscapedInPaths(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	sales := f.backend.AddCategory(domain.Category{Name: "Sales", Description: "d"})

	_, err := f.set.Categories.GetAll(ctx)
	require.NoError(t, err)

	for _, suffix := range []string{"?x=1", "#frag", "/x"} {
		err = f.set.Categories.Delete(ctx, sales.Key()+suffix)
		require.Error(t, err, suffix)
		assert.Equal(t, "Category not found", err.Error(), suffix)
	}

	assert.Contains(t, f.backend.Calls(), "DELETE /api/v1/category/delete_category/"+sales.Key()+"?x=1")
	assert.Len(t, f.backend.Categories(), 1)
	items := f.store.Snapshot().Categories.Items
	require.Len(t, items, 1)
	assert.Equal(t, sales.Key(), items[0].Key())
}

func TestMissingIDFailsBeforeRequest(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.set.Categories.Get(ctx, "")
	assert.EqualError(t, err, "category id is required")
	assert.Error(t, f.set.Analytics.Delete(ctx, ""))
	_, err = f.set.Users.GetByBusiness(ctx, "")
	assert.Error(t, err)

	assert.Empty(t, f.backend.Calls())
	snap := f.store.Snapshot()
	assert.Equal(t, state.StatusFailed, snap.Categories.Status(state.OpGetCategory))
	assert.Equal(t, state.StatusFailed, snap.Analytics.Status(state.OpDeleteAnalytics))
}

func TestFallbackMessage(t *testing.T) {
	f := setup(t)
	f.backend.Fail("category/get_categoryies", http.StatusInternalServerError, "")

	_, err := f.set.Categories.GetAll(context.Background())
	assert.EqualError(t, err, "Failed to get categories, try again")
	assert.Equal(t, "Failed to get categories, try again", f.store.Snapshot().Categories.Error)
}

func TestReadAllIsStable(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.backend.AddRequestType(domain.RequestType{Name: "Forecast"})
	f.backend.AddRequestType(domain.RequestType{Name: "Audit"})

	first, err := f.set.RequestTypes.GetAll(ctx)
	require.NoError(t, err)
	second, err := f.set.RequestTypes.GetAll(ctx)
	require.NoError(t, err)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("reads differ:\n%s", diff)
	}
	if diff := cmp.Diff(second, f.store.Snapshot().RequestTypes.Items); diff != "" {
		t.Errorf("state differs from response:\n%s", diff)
	}
}

func TestUpdateAndDeleteCategory(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	sales := f.backend.AddCategory(domain.Category{Name: "Sales", Description: "d"})
	ops := f.backend.AddCategory(domain.Category{Name: "Ops", Description: "d"})

	_, err := f.set.Categories.GetAll(ctx)
	require.NoError(t, err)
	_, err = f.set.Categories.Get(ctx, sales.Key())
	require.NoError(t, err)

	_, err = f.set.Categories.Update(ctx, sales.Key(), domain.CategoryInput{Name: "Revenue", Description: "d"})
	require.NoError(t, err)
	assert.Equal(t, []string{"pending", "fulfilled"}, f.rec.phases(state.OpUpdateCategory))

	snap := f.store.Snapshot()
	assert.Equal(t, "Revenue", snap.Categories.Items[0].Name)
	assert.Equal(t, "Ops", snap.Categories.Items[1].Name)
	assert.Equal(t, "Revenue", snap.Categories.Current.Name)

	require.NoError(t, f.set.Categories.Delete(ctx, sales.Key()))
	snap = f.store.Snapshot()
	assert.Nil(t, snap.Categories.Current)
	require.Len(t, snap.Categories.Items, 1)
	assert.Equal(t, ops.Key(), snap.Categories.Items[0].Key())
}

func TestSignInStoresSessionAndToken(t *testing.T) {
	f := setup(t)
	f.backend.RequireAuth(true)
	ctx := context.Background()

	_, err := f.set.Categories.GetAll(ctx)
	assert.EqualError(t, err, "Unauthorized")

	acct := f.signIn(t, domain.Account{Email: "admin@acme.test", Role: domain.RoleAdmin})

	sess, ok := f.store.Account()
	require.True(t, ok)
	assert.Equal(t, acct.Key(), sess.Account.Key())
	assert.Equal(t, "token-"+acct.Key(), sess.Token)

	_, err = f.set.Categories.GetAll(ctx)
	require.NoError(t, err)

	me, err := f.set.Auth.SignedInUser(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, me.Role)

	require.NoError(t, f.set.Auth.SignOut(ctx))
	_, ok = f.store.Account()
	assert.False(t, ok)
	assert.Empty(t, f.store.Token())
}

func TestSignInWrongPassword(t *testing.T) {
	f := setup(t)
	f.backend.AddAccount(domain.Account{Email: "b@acme.test", Role: domain.RoleBusiness}, "right")

	_, err := f.set.Auth.SignIn(context.Background(), domain.SignInInput{Email: "b@acme.test", Password: "wrong"})
	assert.EqualError(t, err, "Invalid email or password")
	assert.Equal(t, state.StatusFailed, f.store.Snapshot().Auth.Status(state.OpSignIn))
}

func TestSignInUnknownRole(t *testing.T) {
	f := setup(t)
	f.backend.AddAccount(domain.Account{Email: "x@acme.test", Role: "auditor"}, "pw")

	_, err := f.set.Auth.SignIn(context.Background(), domain.SignInInput{Email: "x@acme.test", Password: "pw"})
	assert.EqualError(t, err, "Unable to determine user role")
	_, ok := f.store.Account()
	assert.False(t, ok)
}

func TestSignUpThenVerify(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	acct, err := f.set.Auth.SignUp(ctx, domain.SignUpInput{BusinessName: "Acme", Email: "ops@acme.test", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleBusiness, acct.Role)
	assert.Equal(t, "ops@acme.test", f.store.Snapshot().Auth.PendingEmail)

	err = f.set.Auth.VerifyOTP(ctx, domain.OTPInput{Email: "ops@acme.test", OTP: "000000"})
	assert.EqualError(t, err, "Invalid OTP")
	assert.Equal(t, "ops@acme.test", f.store.Snapshot().Auth.PendingEmail)

	require.NoError(t, f.set.Auth.ResendOTP(ctx, domain.ResendOTPInput{Email: "ops@acme.test"}))
	require.NoError(t, f.set.Auth.VerifyOTP(ctx, domain.OTPInput{Email: "ops@acme.test", OTP: apitest.OTP}))
	assert.Empty(t, f.store.Snapshot().Auth.PendingEmail)

	_, err = f.set.Auth.SignIn(ctx, domain.SignInInput{Email: "ops@acme.test", Password: "pw"})
	require.NoError(t, err)
}

func TestUsersUnderBusiness(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	biz := f.signIn(t, domain.Account{Email: "b@acme.test", Role: domain.RoleBusiness, BusinessName: "Acme"})

	created, err := f.set.Users.Create(ctx, domain.UserInput{
		FirstName: "Ada", LastName: "Lovelace", Department: "R&D",
		Email: "ada@acme.test", Password: "pw", UserImg: "data:image/png;base64,AA",
	})
	require.NoError(t, err)
	assert.Equal(t, biz.Key(), created.BusinessUserID)

	users, err := f.set.Users.GetByBusiness(ctx, biz.Key())
	require.NoError(t, err)
	require.Len(t, users, 1)

	n, err := f.set.Users.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = f.set.Users.Update(ctx, created.Key(), domain.UserInput{FirstName: "Ada", LastName: "King", Department: "R&D", Email: "ada@acme.test"})
	require.NoError(t, err)
	_, err = f.set.Users.Get(ctx, created.Key())
	require.NoError(t, err)

	snap := f.store.Snapshot()
	assert.Equal(t, 1, snap.Users.BusinessCount)
	assert.Equal(t, "King", snap.Users.Items[0].LastName)
	assert.Equal(t, "King", snap.Users.Current.LastName)

	require.NoError(t, f.set.Users.Delete(ctx, created.Key()))
	assert.Empty(t, f.store.Snapshot().Users.Items)
}

func TestAnalyticsLifecycle(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	biz := f.backend.AddAccount(domain.Account{Email: "b@acme.test", Role: domain.RoleBusiness}, "pw")
	user := f.signIn(t, domain.Account{Email: "u@acme.test", Role: domain.RoleUser, BusinessUserID: biz.Key()})
	c := f.backend.AddCategory(domain.Category{Name: "Sales"})
	rt := f.backend.AddRequestType(domain.RequestType{Name: "Forecast"})

	created, err := f.set.Analytics.Create(ctx, domain.AnalyticsInput{
		Title: "Churn", Description: "Monthly churn", DataFile: "data:application/pdf;base64,AA",
		CategoryID: c.Key(), RequestTypeID: rt.Key(), Consent: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, user.Key(), created.UserID)
	assert.Equal(t, biz.Key(), created.BusinessUserID)
	assert.Equal(t, domain.StatusPending, created.Status)

	_, err = f.set.Analytics.GetByBusiness(ctx, biz.Key())
	require.NoError(t, err)
	mine, err := f.set.Analytics.GetByBusinessUser(ctx, user.Key())
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	total, err := f.set.Analytics.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	byBiz, err := f.set.Analytics.CountByBusiness(ctx, biz.Key())
	require.NoError(t, err)
	assert.Equal(t, 1, byBiz)

	_, err = f.set.Analytics.UpdateStatus(ctx, created.Key(), domain.StatusUpdate{Status: domain.StatusCompleted})
	assert.EqualError(t, err, "File upload is required for 'Completed' status")

	_, err = f.set.Analytics.UpdateStatus(ctx, created.Key(), domain.StatusUpdate{Status: domain.StatusInProgress})
	require.NoError(t, err)
	_, err = f.set.Analytics.UpdateStatus(ctx, created.Key(), domain.StatusUpdate{Status: domain.StatusCompleted, File: "data:application/pdf;base64,BB"})
	require.NoError(t, err)

	snap := f.store.Snapshot()
	assert.Equal(t, domain.StatusCompleted, snap.Analytics.Items[0].Status)
	assert.Equal(t, 1, snap.Analytics.TotalCount)
	assert.Equal(t, 1, snap.Analytics.BusinessCount)
	assert.Len(t, snap.Analytics.BusinessUserItems, 1)
	assert.Equal(t, state.StatusSucceeded, snap.Analytics.Status(state.OpUpdateAnalyticsStatus))

	stored, ok := f.backend.Analytics(created.Key())
	require.True(t, ok)
	assert.Equal(t, "data:application/pdf;base64,BB", stored.CompletedDataFile)

	require.NoError(t, f.set.Analytics.Delete(ctx, created.Key()))
	snap = f.store.Snapshot()
	assert.Empty(t, snap.Analytics.Items)
	assert.Empty(t, snap.Analytics.BusinessUserItems)
}

func TestStatusUpdateWithoutDataOnlyRecordsStatus(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	a := f.backend.AddAnalytics(domain.RequestAnalytics{Title: "Churn"})
	_, err := f.set.Analytics.GetAll(ctx)
	require.NoError(t, err)

	f.backend.OmitData(true)
	_, err = f.set.Analytics.UpdateStatus(ctx, a.Key(), domain.StatusUpdate{Status: domain.StatusInProgress})
	require.NoError(t, err)

	snap := f.store.Snapshot()
	assert.Equal(t, domain.StatusPending, snap.Analytics.Items[0].Status)
	assert.Equal(t, state.StatusSucceeded, snap.Analytics.Status(state.OpUpdateAnalyticsStatus))

	// A create that returns no entity leaves the list alone.
	_, err = f.set.Categories.Create(ctx, domain.CategoryInput{Name: "Sales", Description: "d"})
	require.NoError(t, err)
	assert.Empty(t, f.store.Snapshot().Categories.Items)
}

func TestPreload(t *testing.T) {
	for _, role := range []domain.Role{domain.RoleAdmin, domain.RoleBusiness, domain.RoleUser} {
		t.Run(string(role), func(t *testing.T) {
			f := setup(t)
			f.backend.AddCategory(domain.Category{Name: "Sales"})
			f.backend.AddRequestType(domain.RequestType{Name: "Forecast"})
			acct := f.backend.AddAccount(domain.Account{Email: fmt.Sprintf("%s@acme.test", role), Role: role}, "pw")
			f.backend.AddAnalytics(domain.RequestAnalytics{UserID: acct.Key(), BusinessUserID: acct.Key(), Title: "Churn"})

			require.NoError(t, Preload(context.Background(), f.set, acct))

			snap := f.store.Snapshot()
			assert.Len(t, snap.Categories.Items, 1)
			assert.Len(t, snap.RequestTypes.Items, 1)
			if role == domain.RoleUser {
				assert.Len(t, snap.Analytics.BusinessUserItems, 1)
			} else {
				assert.Len(t, snap.Analytics.Items, 1)
			}
		})
	}
}

func TestPreloadReturnsFirstError(t *testing.T) {
	f := setup(t)
	f.backend.Fail("request_type/get_all_request_type", http.StatusBadGateway, "upstream down")
	acct := f.backend.AddAccount(domain.Account{Email: "a@acme.test", Role: domain.RoleAdmin}, "pw")

	err := Preload(context.Background(), f.set, acct)
	require.Error(t, err)

	snap := f.store.Snapshot()
	assert.Equal(t, state.StatusFailed, snap.RequestTypes.Status(state.OpGetRequestTypes))
	assert.Equal(t, "upstream down", snap.RequestTypes.Error)
	assert.NotEqual(t, state.StatusLoading, snap.Categories.Status(state.OpGetCategories))
}
