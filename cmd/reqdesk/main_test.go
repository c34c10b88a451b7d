package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"reqdesk/internal/apitest"
	"reqdesk/internal/domain"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var pdfBytes = []byte("%PDF-1.4\n1 0 obj\n<<>>\nendobj\ntrailer\n<<>>\n%%EOF\n")

type harness struct {
	t       *testing.T
	backend *apitest.Backend
	dir     string
	config  string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	for _, k := range []string{"REQDESK_API_URL", "REQDESK_TOKEN", "REQDESK_DB", "REQDESK_DB_DRIVER", "REQDESK_DEBUG"} {
		t.Setenv(k, "")
	}

	b := apitest.New(t)
	b.RequireAuth(true)
	dir := t.TempDir()

	cfg := fmt.Sprintf(`api:
  base_url: %s
  timeout: 5s
storage:
  driver: sqlite
  path: %s
persist:
  enabled: true
  key_prefix: root
  debounce: 10ms
  slices: [auth, users, category, request, requestAnalytics]
ui:
  theme: light
logging:
  level: info
  dir: %s
`, b.URL(), filepath.Join(dir, "state.db"), filepath.Join(dir, "logs"))
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0644))

	return &harness{t: t, backend: b, dir: dir, config: path}
}

// resetFlags puts every flag back to its default so runs don't leak into
// each other.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

// run executes one CLI invocation against the harness backend and storage.
func (h *harness) run(args ...string) (string, error) {
	h.t.Helper()
	resetFlags(rootCmd)
	logger = zap.NewNop()

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append([]string{"--config", h.config}, args...))
	err := rootCmd.Execute()
	return out.String(), err
}

func (h *harness) mustRun(args ...string) string {
	h.t.Helper()
	out, err := h.run(args...)
	require.NoError(h.t, err, out)
	return out
}

func (h *harness) signIn(role domain.Role) domain.Account {
	h.t.Helper()
	acct := h.backend.AddAccount(domain.Account{
		Email:        string(role) + "@acme.test",
		Role:         role,
		BusinessName: "Acme",
	}, "secret")
	out := h.mustRun("auth", "sign-in", "--email", acct.Email, "--password", "secret")
	require.Contains(h.t, out, "Signed in as Acme")
	return acct
}

func (h *harness) writeFile(name string, data []byte) string {
	h.t.Helper()
	path := filepath.Join(h.dir, name)
	require.NoError(h.t, os.WriteFile(path, data, 0644))
	return path
}

func TestSessionSurvivesBetweenRuns(t *testing.T) {
	h := newHarness(t)
	cat := h.backend.AddCategory(domain.Category{Name: "Sales"})
	typ := h.backend.AddRequestType(domain.RequestType{Name: "Forecast"})
	h.backend.AddAnalytics(domain.RequestAnalytics{Title: "Churn report", CategoryID: cat.Key(), RequestTypeID: typ.Key()})

	h.signIn(domain.RoleAdmin)

	out := h.mustRun("auth", "whoami")
	assert.Contains(t, out, "admin@acme.test")

	out = h.mustRun("requests", "list")
	assert.Contains(t, out, "Churn report")
	assert.Contains(t, out, "Sales")
	assert.Contains(t, out, "Forecast")
	assert.Contains(t, out, "Pending")

	out = h.mustRun("state", "show")
	assert.Contains(t, out, "Signed in as Acme (admin)")
	assert.Contains(t, out, "root:<slice>")
}

func TestSignInRejected(t *testing.T) {
	h := newHarness(t)
	h.backend.AddAccount(domain.Account{Email: "ops@acme.test", Role: domain.RoleBusiness}, "secret")

	_, err := h.run("auth", "sign-in", "--email", "ops@acme.test", "--password", "wrong")
	require.Error(t, err)
	assert.Equal(t, "Invalid email or password", err.Error())

	out := h.mustRun("state", "show")
	assert.Contains(t, out, "Not signed in")
	assert.Contains(t, out, "Invalid email or password", "the slice error is persisted")
}

func TestSignUpThenVerify(t *testing.T) {
	h := newHarness(t)

	out := h.mustRun("auth", "sign-up", "--business-name", "Acme", "--email", "new@acme.test", "--password", "pw")
	assert.Contains(t, out, "Verification code sent to new@acme.test")

	_, err := h.run("auth", "verify-otp", "--otp", "000000")
	require.Error(t, err)
	assert.Equal(t, "Invalid OTP", err.Error())

	// The address comes from the persisted sign-up.
	out = h.mustRun("auth", "verify-otp", "--otp", apitest.OTP)
	assert.Contains(t, out, "new@acme.test verified")

	out = h.mustRun("auth", "sign-in", "--email", "new@acme.test", "--password", "pw")
	assert.Contains(t, out, "Signed in as Acme (business)")
}

func TestCategoriesCRUD(t *testing.T) {
	h := newHarness(t)
	h.signIn(domain.RoleAdmin)

	_, err := h.run("categories", "create", "--description", "Sales data")
	require.Error(t, err)
	assert.Equal(t, "Category name is required.", err.Error())
	assert.Empty(t, h.backend.Categories(), "validation fails before any request")

	out := h.mustRun("categories", "create", "--name", "Sales", "--description", "Sales data")
	require.Len(t, h.backend.Categories(), 1)
	id := h.backend.Categories()[0].Key()
	assert.Contains(t, out, "Created category Sales ("+id+")")

	out = h.mustRun("categories", "list")
	assert.Contains(t, out, "Sales data")

	h.mustRun("categories", "update", id, "--description", "Quarterly sales")
	got := h.backend.Categories()[0]
	assert.Equal(t, "Sales", got.Name, "unchanged fields are kept")
	assert.Equal(t, "Quarterly sales", got.Description)

	h.mustRun("categories", "delete", id)
	out = h.mustRun("categories", "list")
	assert.Contains(t, out, "No categories yet.")
}

func TestRequestLifecycle(t *testing.T) {
	h := newHarness(t)
	cat := h.backend.AddCategory(domain.Category{Name: "Sales"})
	typ := h.backend.AddRequestType(domain.RequestType{Name: "Forecast"})
	biz := h.signIn(domain.RoleBusiness)

	src := h.writeFile("source.pdf", pdfBytes)
	_, err := h.run("requests", "create", "--title", "Churn", "--description", "Monthly churn",
		"--category", cat.Key(), "--type", typ.Key(), "--file", src)
	require.Error(t, err)
	assert.Equal(t, "Request Analytics data consent is required.", err.Error())

	out := h.mustRun("requests", "create", "--title", "Churn", "--description", "Monthly churn",
		"--category", cat.Key(), "--type", typ.Key(), "--file", src, "--consent")
	assert.Contains(t, out, "Filed request Churn")
	start, end := strings.LastIndex(out, "("), strings.LastIndex(out, ")")
	require.True(t, start >= 0 && end > start, out)
	id := out[start+1 : end]

	out = h.mustRun("requests", "list")
	assert.Contains(t, out, "Churn")
	assert.Contains(t, out, "Sales")

	req, ok := h.backend.Analytics(id)
	require.True(t, ok)
	assert.Equal(t, biz.Key(), req.BusinessUserID)

	h.mustRun("requests", "status", id, "--status", "in-progress")
	req, _ = h.backend.Analytics(id)
	assert.Equal(t, domain.StatusInProgress, req.Status)

	_, err = h.run("requests", "status", id, "--status", "completed")
	require.Error(t, err)
	assert.Equal(t, "File upload is required for 'Completed' status", err.Error())

	result := h.writeFile("result.pdf", pdfBytes)
	out = h.mustRun("requests", "status", id, "--status", "completed", "--file", result)
	assert.Contains(t, out, "is now Completed")

	dst := filepath.Join(h.dir, "download.pdf")
	out = h.mustRun("requests", "download", id, "--out", dst)
	assert.Contains(t, out, "application/pdf")
	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, pdfBytes, data)

	assert.Equal(t, "1\n", h.mustRun("requests", "count"))
}

func TestRequestsListNeedsSession(t *testing.T) {
	h := newHarness(t)

	_, err := h.run("requests", "list")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not signed in")
}

func TestStateClear(t *testing.T) {
	h := newHarness(t)
	h.signIn(domain.RoleUser)

	out := h.mustRun("state", "clear")
	assert.Contains(t, out, "Local state cleared")

	out = h.mustRun("state", "show")
	assert.Contains(t, out, "Not signed in")
}

func TestParseStatus(t *testing.T) {
	assert.Equal(t, domain.StatusInProgress, parseStatus("in-progress"))
	assert.Equal(t, domain.StatusInProgress, parseStatus("In Progress"))
	assert.Equal(t, domain.StatusCompleted, parseStatus(" completed "))
	assert.False(t, parseStatus("archived").Valid())
}
