package apitest

import (
	"net/http"
	"strings"

	"reqdesk/internal/domain"
)

func (b *Backend) routes() http.Handler {
	mux := http.NewServeMux()
	p := func(s string) string {
		method, path, _ := strings.Cut(s, " ")
		return method + " /api/v1" + path
	}

	mux.HandleFunc(p("POST /auth/sign_in"), b.signIn)
	mux.HandleFunc(p("POST /auth/sign_up"), b.signUp)
	mux.HandleFunc(p("POST /auth/verify_otp"), b.verifyOTP)
	mux.HandleFunc(p("POST /auth/resend_otp"), b.resendOTP)
	mux.HandleFunc(p("GET /auth/signed_in_user"), b.signedInUser)

	mux.HandleFunc(p("POST /users/create_user"), b.createUser)
	mux.HandleFunc(p("PUT /users/update_user/{id}"), b.updateUser)
	mux.HandleFunc(p("GET /users/get_user/{id}"), b.getUser)
	mux.HandleFunc(p("GET /users/get_users"), b.getUsers)
	mux.HandleFunc(p("GET /users/get_user_by_business/{id}"), b.getUsersByBusiness)
	mux.HandleFunc(p("GET /users/total_count"), b.countUsers)
	mux.HandleFunc(p("DELETE /users/delete_user/{id}"), b.deleteUser)

	mux.HandleFunc(p("POST /category/create_category"), b.createCategory)
	mux.HandleFunc(p("PUT /category/update_category/{id}"), b.updateCategory)
	mux.HandleFunc(p("GET /category/get_category/{id}"), b.getCategory)
	mux.HandleFunc(p("GET /category/get_categoryies"), b.getCategories)
	mux.HandleFunc(p("DELETE /category/delete_category/{id}"), b.deleteCategory)

	mux.HandleFunc(p("POST /request_type/create_request_type"), b.createRequestType)
	mux.HandleFunc(p("PUT /request_type/update_request_type/{id}"), b.updateRequestType)
	mux.HandleFunc(p("GET /request_type/get_request_type/{id}"), b.getRequestType)
	mux.HandleFunc(p("GET /request_type/get_all_request_type"), b.getRequestTypes)
	mux.HandleFunc(p("DELETE /request_type/delete_request_type/{id}"), b.deleteRequestType)

	const ra = "/request_analytics"
	mux.HandleFunc(p("POST "+ra+"/create_request_analytics"), b.createAnalytics)
	mux.HandleFunc(p("PUT "+ra+"/update_request_analytics/{id}"), b.updateAnalytics)
	mux.HandleFunc(p("GET "+ra+"/get_request_analytics/{id}"), b.getAnalytics)
	mux.HandleFunc(p("GET "+ra+"/get_request_analytics"), b.getAllAnalytics)
	mux.HandleFunc(p("GET "+ra+"/get_request_analytics/by_business/{id}"), b.getAnalyticsByBusiness)
	mux.HandleFunc(p("GET "+ra+"/get_request_analytics/by_bussiness_user/{id}"), b.getAnalyticsByBusinessUser)
	mux.HandleFunc(p("GET "+ra+"/get_total_request_analytics_count"), b.countAnalytics)
	mux.HandleFunc(p("GET "+ra+"/get_total_request_analytics_count_by_user_id/{id}"), b.countAnalyticsByBusiness)
	mux.HandleFunc(p("DELETE "+ra+"/delete_request_analytics/{id}"), b.deleteAnalytics)
	mux.HandleFunc(p("PUT "+ra+"/update_request_analytics_status/{id}"), b.updateAnalyticsStatus)

	return b.middleware(mux)
}

// middleware records the call, applies injected failures and the auth check,
// then holds the backend lock for the handler.
func (b *Backend) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()

		b.calls = append(b.calls, r.Method+" "+r.URL.Path)
		if f, ok := b.failures[r.URL.Path]; ok {
			writeJSON(w, f.status, f.message, nil)
			return
		}
		isAuth := strings.HasPrefix(r.URL.Path, "/api/v1/auth/")
		if b.requireAuth && !isAuth {
			if _, ok := b.caller(r); !ok {
				writeJSON(w, http.StatusUnauthorized, "Unauthorized", nil)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// caller resolves the bearer token to an account. Caller holds b.mu.
func (b *Backend) caller(r *http.Request) (domain.Account, bool) {
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok {
		return domain.Account{}, false
	}
	id, ok := b.tokens[token]
	if !ok {
		return domain.Account{}, false
	}
	return b.accounts.get(id)
}

func (b *Backend) data(v any) any {
	if b.omitData {
		return nil
	}
	return v
}

func (b *Backend) accountByEmail(email string) (domain.Account, bool) {
	for _, a := range b.accounts.list(nil) {
		if strings.EqualFold(a.Email, email) {
			return a, true
		}
	}
	return domain.Account{}, false
}

// auth

func (b *Backend) signIn(w http.ResponseWriter, r *http.Request) {
	var in domain.SignInInput
	if err := decode(r, &in); err != nil {
		writeJSON(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}
	acct, ok := b.accountByEmail(in.Email)
	if !ok || b.passwords[in.Email] != in.Password {
		writeJSON(w, http.StatusUnauthorized, "Invalid email or password", nil)
		return
	}
	if !b.verified[in.Email] {
		writeJSON(w, http.StatusForbidden, "Please verify your email first", nil)
		return
	}
	token := "token-" + acct.Key()
	b.tokens[token] = acct.Key()
	writeJSON(w, http.StatusOK, "Signed in successfully", struct {
		domain.Account
		Token string `json:"token"`
	}{acct, token})
}

func (b *Backend) signUp(w http.ResponseWriter, r *http.Request) {
	var in domain.SignUpInput
	if err := decode(r, &in); err != nil {
		writeJSON(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}
	if _, exists := b.accountByEmail(in.Email); exists {
		writeJSON(w, http.StatusConflict, "Email already registered", nil)
		return
	}
	acct := domain.Account{
		Ref:              domain.Ref{MongoID: b.nextID("business")},
		Email:            in.Email,
		Role:             in.Role,
		BusinessName:     in.BusinessName,
		ContactName:      in.ContactName,
		ContactNumber:    in.ContactNumber,
		BusinessAddress:  in.BusinessAddress,
		BusinessCity:     in.BusinessCity,
		BusinessState:    in.BusinessState,
		BusinessCountry:  in.BusinessCountry,
		Sector:           in.Sector,
		OrganizationSize: in.OrganizationSize,
		UserImg:          in.UserImg,
	}
	b.accounts.put(acct.Key(), acct)
	b.passwords[in.Email] = in.Password
	writeJSON(w, http.StatusCreated, "OTP sent to your email", b.data(acct))
}

func (b *Backend) verifyOTP(w http.ResponseWriter, r *http.Request) {
	var in domain.OTPInput
	if err := decode(r, &in); err != nil {
		writeJSON(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}
	if _, ok := b.accountByEmail(in.Email); !ok {
		writeJSON(w, http.StatusNotFound, "User not found", nil)
		return
	}
	if in.OTP != OTP {
		writeJSON(w, http.StatusBadRequest, "Invalid OTP", nil)
		return
	}
	b.verified[in.Email] = true
	writeJSON(w, http.StatusOK, "Email verified", nil)
}

func (b *Backend) resendOTP(w http.ResponseWriter, r *http.Request) {
	var in domain.ResendOTPInput
	if err := decode(r, &in); err != nil {
		writeJSON(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}
	if _, ok := b.accountByEmail(in.Email); !ok {
		writeJSON(w, http.StatusNotFound, "User not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, "OTP resent", nil)
}

func (b *Backend) signedInUser(w http.ResponseWriter, r *http.Request) {
	acct, ok := b.caller(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, "Unauthorized", nil)
		return
	}
	writeJSON(w, http.StatusOK, "Signed in user", acct)
}

// users

func isUser(a domain.Account) bool { return a.Role == domain.RoleUser }

func (b *Backend) createUser(w http.ResponseWriter, r *http.Request) {
	var in domain.UserInput
	if err := decode(r, &in); err != nil {
		writeJSON(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}
	if _, exists := b.accountByEmail(in.Email); exists {
		writeJSON(w, http.StatusConflict, "Email already registered", nil)
		return
	}
	acct := domain.Account{
		Ref:            domain.Ref{MongoID: b.nextID("user")},
		Email:          in.Email,
		Role:           domain.RoleUser,
		FirstName:      in.FirstName,
		LastName:       in.LastName,
		Department:     in.Department,
		BusinessUserID: in.BusinessUserID,
		UserImg:        in.UserImg,
	}
	b.accounts.put(acct.Key(), acct)
	b.passwords[in.Email] = in.Password
	b.verified[in.Email] = true
	writeJSON(w, http.StatusCreated, "User created successfully", b.data(acct))
}

func (b *Backend) updateUser(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	acct, ok := b.accounts.get(id)
	if !ok || !isUser(acct) {
		writeJSON(w, http.StatusNotFound, "User not found", nil)
		return
	}
	var in domain.UserInput
	if err := decode(r, &in); err != nil {
		writeJSON(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}
	if in.Email != acct.Email {
		b.passwords[in.Email] = b.passwords[acct.Email]
		delete(b.passwords, acct.Email)
	}
	if in.Password != "" {
		b.passwords[in.Email] = in.Password
	}
	acct.FirstName, acct.LastName, acct.Department = in.FirstName, in.LastName, in.Department
	acct.Email = in.Email
	if in.UserImg != "" {
		acct.UserImg = in.UserImg
	}
	if in.BusinessUserID != "" {
		acct.BusinessUserID = in.BusinessUserID
	}
	b.accounts.put(id, acct)
	writeJSON(w, http.StatusOK, "User updated successfully", b.data(acct))
}

func (b *Backend) getUser(w http.ResponseWriter, r *http.Request) {
	acct, ok := b.accounts.get(r.PathValue("id"))
	if !ok {
		writeJSON(w, http.StatusNotFound, "User not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, "User fetched", acct)
}

func (b *Backend) getUsers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, "Users fetched", b.accounts.list(nil))
}

func (b *Backend) getUsersByBusiness(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	writeJSON(w, http.StatusOK, "Users fetched", b.accounts.list(func(a domain.Account) bool {
		return isUser(a) && a.BusinessUserID == id
	}))
}

func (b *Backend) countUsers(w http.ResponseWriter, r *http.Request) {
	caller, authed := b.caller(r)
	n := len(b.accounts.list(func(a domain.Account) bool {
		return isUser(a) && (!authed || a.BusinessUserID == caller.Key())
	}))
	writeJSON(w, http.StatusOK, "User count", map[string]int{"total": n})
}

func (b *Backend) deleteUser(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	acct, ok := b.accounts.get(id)
	if !ok || !isUser(acct) {
		writeJSON(w, http.StatusNotFound, "User not found", nil)
		return
	}
	b.accounts.del(id)
	delete(b.passwords, acct.Email)
	writeJSON(w, http.StatusOK, "User deleted successfully", nil)
}

// categories

func (b *Backend) createCategory(w http.ResponseWriter, r *http.Request) {
	var in domain.CategoryInput
	if err := decode(r, &in); err != nil || in.Name == "" {
		writeJSON(w, http.StatusBadRequest, "Category name is required", nil)
		return
	}
	c := domain.Category{Ref: domain.Ref{MongoID: b.nextID("cat")}, Name: in.Name, Description: in.Description}
	b.cats.put(c.Key(), c)
	writeJSON(w, http.StatusCreated, "Category created successfully", b.data(c))
}

func (b *Backend) updateCategory(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	c, ok := b.cats.get(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, "Category not found", nil)
		return
	}
	var in domain.CategoryInput
	if err := decode(r, &in); err != nil {
		writeJSON(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}
	c.Name, c.Description = in.Name, in.Description
	b.cats.put(id, c)
	writeJSON(w, http.StatusOK, "Category updated successfully", b.data(c))
}

func (b *Backend) getCategory(w http.ResponseWriter, r *http.Request) {
	c, ok := b.cats.get(r.PathValue("id"))
	if !ok {
		writeJSON(w, http.StatusNotFound, "Category not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, "Category fetched", c)
}

func (b *Backend) getCategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, "Categories fetched", b.cats.list(nil))
}

func (b *Backend) deleteCategory(w http.ResponseWriter, r *http.Request) {
	if !b.cats.del(r.PathValue("id")) {
		writeJSON(w, http.StatusNotFound, "Category not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, "Category deleted successfully", nil)
}

// request types

func (b *Backend) createRequestType(w http.ResponseWriter, r *http.Request) {
	var in domain.RequestTypeInput
	if err := decode(r, &in); err != nil || in.Name == "" {
		writeJSON(w, http.StatusBadRequest, "Request name is required", nil)
		return
	}
	rt := domain.RequestType{Ref: domain.Ref{MongoID: b.nextID("type")}, Name: in.Name, Description: in.Description}
	b.types.put(rt.Key(), rt)
	writeJSON(w, http.StatusCreated, "Request type created successfully", b.data(rt))
}

func (b *Backend) updateRequestType(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	rt, ok := b.types.get(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, "Request type not found", nil)
		return
	}
	var in domain.RequestTypeInput
	if err := decode(r, &in); err != nil {
		writeJSON(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}
	rt.Name, rt.Description = in.Name, in.Description
	b.types.put(id, rt)
	writeJSON(w, http.StatusOK, "Request type updated successfully", b.data(rt))
}

func (b *Backend) getRequestType(w http.ResponseWriter, r *http.Request) {
	rt, ok := b.types.get(r.PathValue("id"))
	if !ok {
		writeJSON(w, http.StatusNotFound, "Request type not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, "Request type fetched", rt)
}

func (b *Backend) getRequestTypes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, "Request types fetched", b.types.list(nil))
}

func (b *Backend) deleteRequestType(w http.ResponseWriter, r *http.Request) {
	if !b.types.del(r.PathValue("id")) {
		writeJSON(w, http.StatusNotFound, "Request type not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, "Request type deleted successfully", nil)
}

// request analytics

func (b *Backend) createAnalytics(w http.ResponseWriter, r *http.Request) {
	var in domain.AnalyticsInput
	if err := decode(r, &in); err != nil || in.Title == "" {
		writeJSON(w, http.StatusBadRequest, "Request Analytics title is required", nil)
		return
	}
	a := domain.RequestAnalytics{
		Ref:            domain.Ref{MongoID: b.nextID("req")},
		UserID:         in.UserID,
		BusinessUserID: in.BusinessUserID,
		CategoryID:     in.CategoryID,
		RequestTypeID:  in.RequestTypeID,
		Title:          in.Title,
		Description:    in.Description,
		DataFile:       in.DataFile,
		Consent:        in.Consent,
		Status:         domain.StatusPending,
	}
	b.analytics.put(a.Key(), a)
	writeJSON(w, http.StatusCreated, "Request Analytics created successfully", b.data(a))
}

func (b *Backend) updateAnalytics(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	a, ok := b.analytics.get(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, "Request Analytics not found", nil)
		return
	}
	var in domain.AnalyticsInput
	if err := decode(r, &in); err != nil {
		writeJSON(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}
	a.Title, a.Description = in.Title, in.Description
	a.CategoryID, a.RequestTypeID = in.CategoryID, in.RequestTypeID
	a.DataFile, a.Consent = in.DataFile, in.Consent
	b.analytics.put(id, a)
	writeJSON(w, http.StatusOK, "Request Analytics updated successfully", b.data(a))
}

func (b *Backend) getAnalytics(w http.ResponseWriter, r *http.Request) {
	a, ok := b.analytics.get(r.PathValue("id"))
	if !ok {
		writeJSON(w, http.StatusNotFound, "Request Analytics not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, "Request Analytics fetched", a)
}

func (b *Backend) getAllAnalytics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, "Request Analytics fetched", b.analytics.list(nil))
}

func (b *Backend) getAnalyticsByBusiness(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	writeJSON(w, http.StatusOK, "Request Analytics fetched", b.analytics.list(func(a domain.RequestAnalytics) bool {
		return a.BusinessUserID == id
	}))
}

func (b *Backend) getAnalyticsByBusinessUser(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	writeJSON(w, http.StatusOK, "Request Analytics fetched", b.analytics.list(func(a domain.RequestAnalytics) bool {
		return a.UserID == id
	}))
}

func (b *Backend) countAnalytics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, "Request Analytics count", len(b.analytics.ids))
}

func (b *Backend) countAnalyticsByBusiness(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	n := len(b.analytics.list(func(a domain.RequestAnalytics) bool {
		return a.BusinessUserID == id || a.UserID == id
	}))
	writeJSON(w, http.StatusOK, "Request Analytics count", map[string]int{"count": n})
}

func (b *Backend) deleteAnalytics(w http.ResponseWriter, r *http.Request) {
	if !b.analytics.del(r.PathValue("id")) {
		writeJSON(w, http.StatusNotFound, "Request Analytics not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, "Request Analytics deleted successfully", nil)
}

func (b *Backend) updateAnalyticsStatus(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	a, ok := b.analytics.get(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, "Request Analytics not found", nil)
		return
	}
	var in domain.StatusUpdate
	if err := decode(r, &in); err != nil || !in.Status.Valid() {
		writeJSON(w, http.StatusBadRequest, "Invalid status", nil)
		return
	}
	if in.Status == domain.StatusCompleted && in.File == "" {
		writeJSON(w, http.StatusBadRequest, "Completed data file is required", nil)
		return
	}
	a.Status = in.Status
	if in.File != "" {
		a.CompletedDataFile = in.File
	}
	b.analytics.put(id, a)
	writeJSON(w, http.StatusOK, "Status updated successfully", b.data(a))
}
