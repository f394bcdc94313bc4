package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/accountd/accountd/internal/auth"
	"github.com/accountd/accountd/internal/middleware"
	"github.com/accountd/accountd/internal/model"
	"github.com/accountd/accountd/internal/repository"
	"github.com/accountd/accountd/internal/service"
	"github.com/accountd/accountd/internal/storage"
)

// stubDirectory is an in-memory account store keyed by email. It stands in
// for the repository in both the service and the auth middleware.
type stubDirectory struct {
	mu       sync.Mutex
	accounts map[string]*model.Account
}

func newStubDirectory() *stubDirectory {
	return &stubDirectory{accounts: make(map[string]*model.Account)}
}

func (d *stubDirectory) ListAccounts(ctx context.Context) ([]*model.Account, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]*model.Account, 0, len(d.accounts))
	for _, a := range d.accounts {
		cp := *a
		out = append(out, &cp)
	}
	return out, nil
}

func (d *stubDirectory) GetAccountByID(ctx context.Context, id string) (*model.Account, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, a := range d.accounts {
		if a.ID == id {
			cp := *a
			return &cp, nil
		}
	}
	return nil, repository.ErrAccountNotFound
}

func (d *stubDirectory) GetAccountByEmail(ctx context.Context, email string) (*model.Account, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	a, ok := d.accounts[email]
	if !ok {
		return nil, repository.ErrAccountNotFound
	}
	cp := *a
	return &cp, nil
}

func (d *stubDirectory) CreateAccount(ctx context.Context, account *model.Account) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.accounts[account.Email]; ok {
		return repository.ErrEmailExists
	}
	cp := *account
	d.accounts[account.Email] = &cp
	return nil
}

func (d *stubDirectory) UpdateAccount(ctx context.Context, email string, account *model.Account) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	existing, ok := d.accounts[email]
	if !ok {
		return repository.ErrAccountNotFound
	}
	existing.PasswordHash = account.PasswordHash
	existing.FirstName = account.FirstName
	existing.LastName = account.LastName
	existing.UpdatedAt = account.UpdatedAt
	return nil
}

func (d *stubDirectory) DeleteAccount(ctx context.Context, email string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.accounts[email]; !ok {
		return repository.ErrAccountNotFound
	}
	delete(d.accounts, email)
	return nil
}

func (d *stubDirectory) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.accounts)
}

// stubHasher makes hashes deterministic so tests can seed accounts directly.
type stubHasher struct{}

func (stubHasher) Hash(password string) (string, error) { return "hashed:" + password, nil }

func (stubHasher) Compare(password, encodedHash string) error {
	if encodedHash != "hashed:"+password {
		return auth.ErrHashMismatch
	}
	return nil
}

type routerEnv struct {
	router http.Handler
	dir    *stubDirectory
	store  *storage.MemoryStore
}

func newRouterEnv(t *testing.T, withImages bool) *routerEnv {
	t.Helper()

	logger := discardLogger()
	dir := newStubDirectory()
	hasher := stubHasher{}

	accountService := service.NewAccountService(dir, hasher, logger, nil)
	accountHandler := NewAccountHandler(accountService, logger)
	healthHandler := NewHealthHandler(&mockHealthChecker{}, logger)

	env := &routerEnv{dir: dir}

	var imageHandler *ImageHandler
	if withImages {
		env.store = storage.NewMemoryStore()
		imageService := service.NewImageService(env.store, "test-bucket", logger)
		imageHandler = NewImageHandler(accountService, imageService, logger)
	}

	env.router = NewRouter(RouterConfig{
		Logger:   logger,
		Health:   healthHandler,
		Accounts: accountHandler,
		Images:   imageHandler,
		Auth: middleware.BasicAuthConfig{
			Logger:   logger,
			Accounts: dir,
			Hasher:   hasher,
		},
	})

	return env
}

func (e *routerEnv) seedAccount(t *testing.T, email, password, firstName, lastName string) *model.Account {
	t.Helper()
	now := time.Now().UTC()
	account := &model.Account{
		ID:           "01TESTULID" + email,
		Email:        email,
		PasswordHash: "hashed:" + password,
		FirstName:    firstName,
		LastName:     lastName,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := e.dir.CreateAccount(context.Background(), account); err != nil {
		t.Fatalf("failed to seed account: %v", err)
	}
	return account
}

func (e *routerEnv) do(method, target, basicUser, basicPass string, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if basicUser != "" {
		req.SetBasicAuth(basicUser, basicPass)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return v
}

func TestCreateAccount(t *testing.T) {
	env := newRouterEnv(t, false)

	rec := env.do(http.MethodPost, "/v1/user", "", "",
		`{"emailAddress":"jane@example.com","password":"secret","firstName":"Jane","lastName":"Doe"}`)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rec.Code, rec.Body.String())
	}

	resp := decodeBody[map[string]any](t, rec)
	if resp["id"] == nil || resp["id"] == "" {
		t.Error("expected generated id in response")
	}
	if resp["email"] != "jane@example.com" {
		t.Errorf("unexpected email: %v", resp["email"])
	}
	if resp["first_name"] != "Jane" || resp["last_name"] != "Doe" {
		t.Errorf("unexpected names: %v %v", resp["first_name"], resp["last_name"])
	}
	if resp["account_created"] != resp["account_updated"] {
		t.Errorf("expected identical timestamps at creation, got %v and %v",
			resp["account_created"], resp["account_updated"])
	}
	if _, ok := resp["password"]; ok {
		t.Error("password must never appear in a response")
	}

	stored, err := env.dir.GetAccountByEmail(context.Background(), "jane@example.com")
	if err != nil {
		t.Fatalf("account not persisted: %v", err)
	}
	if stored.PasswordHash != "hashed:secret" {
		t.Errorf("expected hashed password in store, got %q", stored.PasswordHash)
	}
}

func TestCreateAccount_Rejections(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"unknown field", `{"emailAddress":"a@example.com","password":"pw","role":"admin"}`},
		{"id supplied", `{"emailAddress":"a@example.com","password":"pw","id":"custom"}`},
		{"invalid email", `{"emailAddress":"not-an-email","password":"pw"}`},
		{"missing password", `{"emailAddress":"a@example.com"}`},
		{"malformed JSON", `{"emailAddress":`},
		{"empty body", ``},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newRouterEnv(t, false)

			rec := env.do(http.MethodPost, "/v1/user", "", "", tt.body)

			if rec.Code != http.StatusBadRequest {
				t.Errorf("expected status 400, got %d", rec.Code)
			}
			if env.dir.count() != 0 {
				t.Error("rejected request must not create an account")
			}
		})
	}
}

func TestCreateAccount_DuplicateEmail(t *testing.T) {
	env := newRouterEnv(t, false)
	env.seedAccount(t, "taken@example.com", "orig", "First", "Last")

	rec := env.do(http.MethodPost, "/v1/user", "", "",
		`{"emailAddress":"taken@example.com","password":"other"}`)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rec.Code)
	}
	if env.dir.count() != 1 {
		t.Errorf("expected 1 account, got %d", env.dir.count())
	}
}

func TestCreateAccount_RejectsQueryParams(t *testing.T) {
	env := newRouterEnv(t, false)

	rec := env.do(http.MethodPost, "/v1/user?force=true", "", "",
		`{"emailAddress":"a@example.com","password":"pw"}`)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rec.Code)
	}
	if env.dir.count() != 0 {
		t.Error("rejected request must not create an account")
	}
}

func TestGetSelf(t *testing.T) {
	env := newRouterEnv(t, false)
	seeded := env.seedAccount(t, "user@example.com", "pw", "First", "Last")

	rec := env.do(http.MethodGet, "/v1/user/self", "user@example.com", "pw", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	resp := decodeBody[map[string]any](t, rec)
	if resp["id"] != seeded.ID {
		t.Errorf("unexpected id: %v", resp["id"])
	}
	if resp["email"] != "user@example.com" {
		t.Errorf("unexpected email: %v", resp["email"])
	}
	if _, ok := resp["password"]; ok {
		t.Error("password must never appear in a response")
	}
}

func TestGetSelf_Unauthorized(t *testing.T) {
	tests := []struct {
		name     string
		user     string
		password string
	}{
		{"no credentials", "", ""},
		{"wrong password", "user@example.com", "wrong"},
		{"unknown account", "ghost@example.com", "pw"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newRouterEnv(t, false)
			env.seedAccount(t, "user@example.com", "pw", "First", "Last")

			rec := env.do(http.MethodGet, "/v1/user/self", tt.user, tt.password, "")

			if rec.Code != http.StatusUnauthorized {
				t.Errorf("expected status 401, got %d", rec.Code)
			}
			if got := rec.Header().Get("WWW-Authenticate"); !strings.HasPrefix(got, "Basic") {
				t.Errorf("expected Basic challenge, got %q", got)
			}
		})
	}
}

func TestUpdateSelf_PartialMerge(t *testing.T) {
	env := newRouterEnv(t, false)
	env.seedAccount(t, "user@example.com", "pw", "First", "Last")

	rec := env.do(http.MethodPut, "/v1/user/self", "user@example.com", "pw",
		`{"firstName":"Renamed"}`)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d: %s", rec.Code, rec.Body.String())
	}
	if rec.Body.Len() != 0 {
		t.Errorf("expected empty body, got %q", rec.Body.String())
	}

	// Untouched fields survive, and the old password still authenticates.
	get := env.do(http.MethodGet, "/v1/user/self", "user@example.com", "pw", "")
	if get.Code != http.StatusOK {
		t.Fatalf("expected status 200 after update, got %d", get.Code)
	}
	resp := decodeBody[map[string]any](t, get)
	if resp["first_name"] != "Renamed" {
		t.Errorf("expected first_name Renamed, got %v", resp["first_name"])
	}
	if resp["last_name"] != "Last" {
		t.Errorf("expected last_name preserved, got %v", resp["last_name"])
	}
	if resp["email"] != "user@example.com" {
		t.Errorf("email must never change, got %v", resp["email"])
	}
}

func TestUpdateSelf_PasswordChange(t *testing.T) {
	env := newRouterEnv(t, false)
	env.seedAccount(t, "user@example.com", "old", "First", "Last")

	rec := env.do(http.MethodPut, "/v1/user/self", "user@example.com", "old",
		`{"password":"new"}`)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d", rec.Code)
	}

	if got := env.do(http.MethodGet, "/v1/user/self", "user@example.com", "old", ""); got.Code != http.StatusUnauthorized {
		t.Errorf("old password should stop authenticating, got %d", got.Code)
	}
	if got := env.do(http.MethodGet, "/v1/user/self", "user@example.com", "new", ""); got.Code != http.StatusOK {
		t.Errorf("new password should authenticate, got %d", got.Code)
	}
}

func TestUpdateSelf_Rejections(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty field set", `{}`},
		{"empty body", ``},
		{"email not updatable", `{"emailAddress":"new@example.com"}`},
		{"unknown field", `{"firstName":"A","role":"admin"}`},
		{"malformed JSON", `{"firstName":`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newRouterEnv(t, false)
			env.seedAccount(t, "user@example.com", "pw", "First", "Last")

			rec := env.do(http.MethodPut, "/v1/user/self", "user@example.com", "pw", tt.body)

			if rec.Code != http.StatusBadRequest {
				t.Errorf("expected status 400, got %d", rec.Code)
			}

			// Nothing changed.
			get := env.do(http.MethodGet, "/v1/user/self", "user@example.com", "pw", "")
			resp := decodeBody[map[string]any](t, get)
			if resp["first_name"] != "First" || resp["last_name"] != "Last" {
				t.Errorf("rejected update must not mutate the account: %v", resp)
			}
		})
	}
}

func TestRootPath_NotFound(t *testing.T) {
	for _, method := range []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete} {
		t.Run(method, func(t *testing.T) {
			env := newRouterEnv(t, false)

			rec := env.do(method, "/", "", "", "")

			if rec.Code != http.StatusNotFound {
				t.Errorf("expected status 404 for %s /, got %d", method, rec.Code)
			}
		})
	}
}

func TestMethodNotAllowed_Routing(t *testing.T) {
	env := newRouterEnv(t, false)
	env.seedAccount(t, "user@example.com", "pw", "First", "Last")

	t.Run("healthz rejects POST", func(t *testing.T) {
		rec := env.do(http.MethodPost, "/healthz", "", "", "")
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("expected status 405, got %d", rec.Code)
		}
		assertNoCacheHeaders(t, rec.Header())
	})

	t.Run("user collection rejects GET", func(t *testing.T) {
		rec := env.do(http.MethodGet, "/v1/user", "", "", "")
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("expected status 405, got %d", rec.Code)
		}
		assertNoCacheHeaders(t, rec.Header())
	})

	t.Run("authenticated DELETE self", func(t *testing.T) {
		rec := env.do(http.MethodDelete, "/v1/user/self", "user@example.com", "pw", "")
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("expected status 405, got %d", rec.Code)
		}
		assertNoCacheHeaders(t, rec.Header())
	})

	t.Run("unauthenticated DELETE self gets 401 first", func(t *testing.T) {
		rec := env.do(http.MethodDelete, "/v1/user/self", "", "", "")
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("expected status 401, got %d", rec.Code)
		}
	})
}

func multipartImage(t *testing.T, fileName string, data []byte) (string, *bytes.Buffer) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("profilePic", fileName)
	if err != nil {
		t.Fatalf("failed to build multipart form: %v", err)
	}
	if _, err := part.Write(data); err != nil {
		t.Fatalf("failed to write image data: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("failed to close multipart writer: %v", err)
	}
	return writer.FormDataContentType(), body
}

func TestProfileImageLifecycle(t *testing.T) {
	env := newRouterEnv(t, true)
	seeded := env.seedAccount(t, "user@example.com", "pw", "First", "Last")

	contentType, body := multipartImage(t, "avatar.png", []byte("png-bytes"))
	req := httptest.NewRequest(http.MethodPost, "/v1/user/self/pic", body)
	req.Header.Set("Content-Type", contentType)
	req.SetBasicAuth("user@example.com", "pw")
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rec.Code, rec.Body.String())
	}
	uploaded := decodeBody[map[string]any](t, rec)
	if uploaded["file_name"] != "avatar.png" {
		t.Errorf("unexpected file_name: %v", uploaded["file_name"])
	}
	if uploaded["user_id"] != seeded.ID {
		t.Errorf("unexpected user_id: %v", uploaded["user_id"])
	}

	get := env.do(http.MethodGet, "/v1/user/self/pic", "user@example.com", "pw", "")
	if get.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", get.Code)
	}
	fetched := decodeBody[map[string]any](t, get)
	if fetched["file_name"] != "avatar.png" {
		t.Errorf("unexpected file_name after fetch: %v", fetched["file_name"])
	}

	del := env.do(http.MethodDelete, "/v1/user/self/pic", "user@example.com", "pw", "")
	if del.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d", del.Code)
	}

	if after := env.do(http.MethodGet, "/v1/user/self/pic", "user@example.com", "pw", ""); after.Code != http.StatusNotFound {
		t.Errorf("expected status 404 after delete, got %d", after.Code)
	}
}

func TestProfileImage_RoutesAbsentWhenDisabled(t *testing.T) {
	env := newRouterEnv(t, false)
	env.seedAccount(t, "user@example.com", "pw", "First", "Last")

	rec := env.do(http.MethodGet, "/v1/user/self/pic", "user@example.com", "pw", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status 404 when images are disabled, got %d", rec.Code)
	}
}
