package router

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/blog-backend/internal/auth"
	"github.com/iliyamo/blog-backend/internal/config"
	"github.com/iliyamo/blog-backend/internal/database"
	"github.com/iliyamo/blog-backend/internal/handler"
	"github.com/iliyamo/blog-backend/internal/middleware"
	"github.com/iliyamo/blog-backend/internal/queue"
	"github.com/iliyamo/blog-backend/internal/repository"
)

type testApp struct {
	e   *echo.Echo
	iss *auth.Issuer
	bl  *auth.MemoryBlacklist
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	db, err := database.Open(config.Config{
		DBDriver: config.DriverSQLite,
		DBPath:   filepath.Join(t.TempDir(), "blog.db"),
	}, zap.NewNop())
	if err != nil {
		t.Fatalf("db open: %v", err)
	}
	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	cfg := config.Config{JWTSecret: "test-secret", TokenTTL: time.Hour, BcryptCost: bcrypt.MinCost}
	log := zap.NewNop()
	iss := auth.NewIssuer(cfg.JWTSecret)
	bl := auth.NewMemoryBlacklist()

	e := echo.New()
	e.Validator = handler.NewRequestValidator()
	e.HTTPErrorHandler = handler.ErrorHandler(log)
	RegisterRoutes(e)
	RegisterUsers(e, handler.NewUserHandler(cfg, repository.NewUserRepo(db), iss, bl, queue.NopPublisher{}, log), nil)
	RegisterPosts(e, handler.NewPostHandler(repository.NewPostRepo(db), queue.NopPublisher{}, log), PostMiddleware{
		Auth:     middleware.JWTAuth(iss, bl, log),
		SameUser: middleware.RequireSameUser("userId"),
	})
	return &testApp{e: e, iss: iss, bl: bl}
}

// do sends body as JSON; a string body is sent verbatim.
func (a *testApp) do(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = strings.NewReader(b)
	default:
		bs, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		r = bytes.NewReader(bs)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

type errBody struct {
	Error   string            `json:"error"`
	Details map[string]string `json:"details"`
}

type postBody struct {
	ID        uint64  `json:"id"`
	Title     string  `json:"title"`
	Content   *string `json:"content"`
	Published bool    `json:"published"`
	AuthorID  uint64  `json:"authorId"`
	Author    *struct {
		ID    uint64 `json:"id"`
		Email string `json:"email"`
	} `json:"author"`
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("status = %d, want %d (body %s)", rec.Code, want, rec.Body.String())
	}
}

func expectError(t *testing.T, rec *httptest.ResponseRecorder, code int, msg string) {
	t.Helper()
	expectStatus(t, rec, code)
	if got := decode[errBody](t, rec).Error; got != msg {
		t.Fatalf("error = %q, want %q", got, msg)
	}
}

func (a *testApp) register(t *testing.T, email string) uint64 {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/users/register", map[string]string{
		"email": email, "name": "Test User", "password": "s3cret-pass",
	}, "")
	expectStatus(t, rec, http.StatusCreated)
	return decode[struct {
		ID uint64 `json:"id"`
	}](t, rec).ID
}

func (a *testApp) login(t *testing.T, email string) string {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/users/login", map[string]string{"email": email, "password": "s3cret-pass"}, "")
	expectStatus(t, rec, http.StatusOK)
	return decode[struct {
		Token string `json:"token"`
	}](t, rec).Token
}

// createPost creates a draft and, when published is set, publishes it
// through the update endpoint.
func (a *testApp) createPost(t *testing.T, token string, uid uint64, title string, published bool) postBody {
	t.Helper()
	content := "body of " + title
	rec := a.do(t, http.MethodPost, "/posts", map[string]any{"title": title, "content": content}, token)
	expectStatus(t, rec, http.StatusCreated)
	p := decode[postBody](t, rec)
	if published {
		rec = a.do(t, http.MethodPut, fmt.Sprintf("/posts/user/%d/post/%d", uid, p.ID), map[string]any{
			"title": title, "content": content, "published": true,
		}, token)
		expectStatus(t, rec, http.StatusNoContent)
		p.Published = true
	}
	return p
}

func TestRegisterThenConflict(t *testing.T) {
	a := newTestApp(t)

	rec := a.do(t, http.MethodPost, "/users/register", map[string]string{
		"email": "alice@example.com", "name": "Alice", "password": "s3cret-pass",
	}, "")
	expectStatus(t, rec, http.StatusCreated)
	user := decode[map[string]any](t, rec)
	if user["email"] != "alice@example.com" || user["name"] != "Alice" {
		t.Fatalf("unexpected user body %v", user)
	}
	if _, leaked := user["password"]; leaked {
		t.Fatal("password hash serialised")
	}

	rec = a.do(t, http.MethodPost, "/users/register", map[string]string{
		"email": " ALICE@example.com ", "name": "Other", "password": "another-pass",
	}, "")
	expectError(t, rec, http.StatusConflict, "email already exists")
	if got := decode[errBody](t, rec).Details["email"]; got != "this email address is already registered" {
		t.Fatalf("details.email = %q", got)
	}
}

func TestRegisterValidation(t *testing.T) {
	a := newTestApp(t)

	rec := a.do(t, http.MethodPost, "/users/register", map[string]string{"email": "not-an-address", "password": "x"}, "")
	expectError(t, rec, http.StatusUnprocessableEntity, "Validation Failed")
	details := decode[errBody](t, rec).Details
	if details["email"] == "" || details["name"] != "required" {
		t.Fatalf("details = %v", details)
	}

	rec = a.do(t, http.MethodPost, "/users/register", `{"email":`, "")
	expectStatus(t, rec, http.StatusBadRequest)
}

func TestLoginOutcomes(t *testing.T) {
	a := newTestApp(t)
	uid := a.register(t, "bob@example.com")

	rec := a.do(t, http.MethodPost, "/users/login", map[string]string{"email": "nobody@example.com", "password": "x"}, "")
	expectError(t, rec, http.StatusNotFound, "user not found")

	rec = a.do(t, http.MethodPost, "/users/login", map[string]string{"email": "bob", "password": "x"}, "")
	expectError(t, rec, http.StatusNotFound, "user not found")

	rec = a.do(t, http.MethodPost, "/users/login", map[string]string{"email": "bob@example.com", "password": "wrong"}, "")
	expectError(t, rec, http.StatusUnauthorized, "invalid password")

	rec = a.do(t, http.MethodPost, "/users/login", map[string]string{"email": "bob@example.com", "password": "s3cret-pass"}, "")
	expectStatus(t, rec, http.StatusOK)
	out := decode[struct {
		Token  string `json:"token"`
		UserID uint64 `json:"userId"`
	}](t, rec)
	if out.UserID != uid {
		t.Fatalf("userId = %d, want %d", out.UserID, uid)
	}
	claims, err := a.iss.Verify(out.Token)
	if err != nil {
		t.Fatalf("verify issued token: %v", err)
	}
	if claims.UserID != uid {
		t.Fatalf("claims.UserID = %d, want %d", claims.UserID, uid)
	}
}

func TestCreatePostTakesAuthorFromToken(t *testing.T) {
	a := newTestApp(t)
	alice := a.register(t, "alice@example.com")
	bob := a.register(t, "bob@example.com")
	token := a.login(t, "alice@example.com")

	rec := a.do(t, http.MethodPost, "/posts", map[string]any{
		"title": "hello", "content": "world", "authorId": bob,
	}, token)
	expectStatus(t, rec, http.StatusCreated)
	p := decode[postBody](t, rec)
	if p.AuthorID != alice {
		t.Fatalf("authorId = %d, want %d", p.AuthorID, alice)
	}
	if p.Published {
		t.Fatal("published should default to false")
	}
}

func TestCreatePostIgnoresClientPublished(t *testing.T) {
	a := newTestApp(t)
	a.register(t, "gina@example.com")
	token := a.login(t, "gina@example.com")

	rec := a.do(t, http.MethodPost, "/posts", map[string]any{
		"title": "t", "content": "c", "published": true,
	}, token)
	expectStatus(t, rec, http.StatusCreated)
	p := decode[postBody](t, rec)
	if p.Published {
		t.Fatal("create honoured a client-supplied published flag")
	}

	rec = a.do(t, http.MethodGet, fmt.Sprintf("/posts/post/%d", p.ID), nil, "")
	expectStatus(t, rec, http.StatusOK)
	if decode[postBody](t, rec).Published {
		t.Fatal("stored post is published")
	}

	rec = a.do(t, http.MethodGet, "/posts", nil, "")
	expectStatus(t, rec, http.StatusOK)
	if listed := decode[[]postBody](t, rec); len(listed) != 0 {
		t.Fatalf("draft listed as published: %+v", listed)
	}
}

func TestBearerTokenFailures(t *testing.T) {
	a := newTestApp(t)
	uid := a.register(t, "carol@example.com")
	body := map[string]any{"title": "t", "content": "c"}

	expectError(t, a.do(t, http.MethodPost, "/posts", body, ""), http.StatusUnauthorized, "access token required")
	expectError(t, a.do(t, http.MethodPost, "/posts", body, "not.a.jwt"), http.StatusForbidden, "invalid token")

	expired, _, err := a.iss.Issue(uid, -time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	expectError(t, a.do(t, http.MethodPost, "/posts", body, expired), http.StatusUnauthorized, "token expired")

	foreign, _, err := auth.NewIssuer("other-secret").Issue(uid, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	expectError(t, a.do(t, http.MethodPost, "/posts", body, foreign), http.StatusForbidden, "invalid token")
}

func TestLogoutRevokesToken(t *testing.T) {
	a := newTestApp(t)
	a.register(t, "dave@example.com")
	token := a.login(t, "dave@example.com")
	other := a.login(t, "dave@example.com")
	if token == other {
		t.Fatal("two logins produced the same token")
	}

	body := map[string]any{"title": "t", "content": "c"}
	expectStatus(t, a.do(t, http.MethodPost, "/posts", body, token), http.StatusCreated)

	expectStatus(t, a.do(t, http.MethodPost, "/users/logout", map[string]string{"token": token}, ""), http.StatusOK)
	expectStatus(t, a.do(t, http.MethodPost, "/users/logout", map[string]string{"token": token}, ""), http.StatusOK)
	if a.bl.Len() != 1 {
		t.Fatalf("blacklist size = %d, want 1", a.bl.Len())
	}

	expectError(t, a.do(t, http.MethodPost, "/posts", body, token), http.StatusForbidden, "token is no longer valid")
	expectStatus(t, a.do(t, http.MethodPost, "/posts", body, other), http.StatusCreated)

	// revocation is checked before expiry
	expired, _, _ := a.iss.Issue(1, -time.Minute)
	_ = a.bl.Add(testContext(t), expired)
	expectError(t, a.do(t, http.MethodPost, "/posts", body, expired), http.StatusForbidden, "token is no longer valid")
}

func TestLogoutWithoutToken(t *testing.T) {
	a := newTestApp(t)
	expectError(t, a.do(t, http.MethodPost, "/users/logout", map[string]string{}, ""), http.StatusBadRequest, "no token provided")
	expectError(t, a.do(t, http.MethodPost, "/users/logout", map[string]string{"token": ""}, ""), http.StatusBadRequest, "no token provided")
	expectError(t, a.do(t, http.MethodPost, "/users/logout", nil, ""), http.StatusBadRequest, "no token provided")
}

func TestLogoutStoresTokenAsSent(t *testing.T) {
	a := newTestApp(t)

	expectStatus(t, a.do(t, http.MethodPost, "/users/logout", map[string]string{"token": "  "}, ""), http.StatusOK)
	expectStatus(t, a.do(t, http.MethodPost, "/users/logout", map[string]string{"token": " padded "}, ""), http.StatusOK)

	for _, tok := range []string{"  ", " padded "} {
		ok, err := a.bl.Contains(testContext(t), tok)
		if err != nil || !ok {
			t.Fatalf("token %q not revoked verbatim (ok=%v err=%v)", tok, ok, err)
		}
	}
	if ok, _ := a.bl.Contains(testContext(t), "padded"); ok {
		t.Fatal("token was trimmed before revocation")
	}
}

func TestCreatePostContentRules(t *testing.T) {
	a := newTestApp(t)
	a.register(t, "erin@example.com")
	token := a.login(t, "erin@example.com")

	rec := a.do(t, http.MethodPost, "/posts", `{"title":"t","content":null}`, token)
	expectError(t, rec, http.StatusBadRequest, "content must not be null")

	rec = a.do(t, http.MethodPost, "/posts", `{"title":"t"}`, token)
	expectError(t, rec, http.StatusUnprocessableEntity, "Validation Failed")
	if got := decode[errBody](t, rec).Details["content"]; got != "required" {
		t.Fatalf("details.content = %q", got)
	}

	rec = a.do(t, http.MethodPost, "/posts", `{"content":"c"}`, token)
	expectError(t, rec, http.StatusUnprocessableEntity, "Validation Failed")
	if got := decode[errBody](t, rec).Details["title"]; got != "required" {
		t.Fatalf("details.title = %q", got)
	}

	rec = a.do(t, http.MethodPost, "/posts", `{"title":"t","content":""}`, token)
	expectStatus(t, rec, http.StatusCreated)
}

func TestCrossUserDeleteLeavesPost(t *testing.T) {
	a := newTestApp(t)
	alice := a.register(t, "alice@example.com")
	bob := a.register(t, "bob@example.com")
	aliceToken := a.login(t, "alice@example.com")
	bobToken := a.login(t, "bob@example.com")
	p := a.createPost(t, aliceToken, alice, "mine", true)

	rec := a.do(t, http.MethodDelete, fmt.Sprintf("/posts/user/%d/post/%d", alice, p.ID), nil, bobToken)
	expectError(t, rec, http.StatusUnauthorized, "unauthorized: user id missing or mismatched")
	expectStatus(t, a.do(t, http.MethodGet, fmt.Sprintf("/posts/post/%d", p.ID), nil, ""), http.StatusOK)

	// bob naming himself only reaches his own posts
	rec = a.do(t, http.MethodDelete, fmt.Sprintf("/posts/user/%d/post/%d", bob, p.ID), nil, bobToken)
	expectStatus(t, rec, http.StatusNoContent)
	expectStatus(t, a.do(t, http.MethodGet, fmt.Sprintf("/posts/post/%d", p.ID), nil, ""), http.StatusOK)

	rec = a.do(t, http.MethodDelete, fmt.Sprintf("/posts/user/%d/post/%d", alice, p.ID), nil, aliceToken)
	expectStatus(t, rec, http.StatusNoContent)
	expectError(t, a.do(t, http.MethodGet, fmt.Sprintf("/posts/post/%d", p.ID), nil, ""), http.StatusNotFound, "post not found")
}

func TestUpdatePost(t *testing.T) {
	a := newTestApp(t)
	alice := a.register(t, "alice@example.com")
	token := a.login(t, "alice@example.com")
	p := a.createPost(t, token, alice, "draft", false)
	path := fmt.Sprintf("/posts/user/%d/post/%d", alice, p.ID)

	rec := a.do(t, http.MethodPut, path, map[string]any{"title": "final", "content": "done", "published": true}, token)
	expectStatus(t, rec, http.StatusNoContent)

	rec = a.do(t, http.MethodGet, fmt.Sprintf("/posts/post/%d", p.ID), nil, "")
	expectStatus(t, rec, http.StatusOK)
	got := decode[postBody](t, rec)
	if got.Title != "final" || got.Content == nil || *got.Content != "done" || !got.Published {
		t.Fatalf("post after update = %+v", got)
	}
	if got.Author == nil || got.Author.ID != alice || got.Author.Email != "alice@example.com" {
		t.Fatalf("author not embedded: %+v", got.Author)
	}

	rec = a.do(t, http.MethodPut, fmt.Sprintf("/posts/user/%d/post/9999", alice), map[string]any{
		"title": "x", "content": "y", "published": false,
	}, token)
	expectError(t, rec, http.StatusNotFound, "post not found")

	rec = a.do(t, http.MethodPut, path, `{"title":"x","content":null,"published":false}`, token)
	expectError(t, rec, http.StatusBadRequest, "content must not be null")

	rec = a.do(t, http.MethodPut, path, `{"title":"x"}`, token)
	expectError(t, rec, http.StatusUnprocessableEntity, "Validation Failed")
	details := decode[errBody](t, rec).Details
	if details["content"] != "required" || details["published"] != "required" {
		t.Fatalf("details = %v", details)
	}

	rec = a.do(t, http.MethodPut, fmt.Sprintf("/posts/user/%d/post/abc", alice), map[string]any{
		"title": "x", "content": "y", "published": false,
	}, token)
	expectError(t, rec, http.StatusUnprocessableEntity, "Validation Failed")
}

func TestListPosts(t *testing.T) {
	a := newTestApp(t)
	alice := a.register(t, "alice@example.com")
	token := a.login(t, "alice@example.com")
	a.createPost(t, token, alice, "public", true)
	a.createPost(t, token, alice, "draft", false)

	rec := a.do(t, http.MethodGet, "/posts", nil, "")
	expectStatus(t, rec, http.StatusOK)
	published := decode[[]postBody](t, rec)
	if len(published) != 1 || published[0].Title != "public" {
		t.Fatalf("published = %+v", published)
	}

	rec = a.do(t, http.MethodGet, fmt.Sprintf("/posts/user/%d/posts", alice), nil, "")
	expectStatus(t, rec, http.StatusOK)
	if mine := decode[[]postBody](t, rec); len(mine) != 2 {
		t.Fatalf("author posts = %d, want 2", len(mine))
	}

	rec = a.do(t, http.MethodGet, "/posts/user/999/posts", nil, "")
	expectStatus(t, rec, http.StatusOK)
	if strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Fatalf("empty list rendered as %q", rec.Body.String())
	}

	expectStatus(t, a.do(t, http.MethodGet, "/posts/user/zero/posts", nil, ""), http.StatusUnprocessableEntity)
}

func TestGetUser(t *testing.T) {
	a := newTestApp(t)
	uid := a.register(t, "frank@example.com")

	rec := a.do(t, http.MethodGet, fmt.Sprintf("/users/%d", uid), nil, "")
	expectStatus(t, rec, http.StatusOK)
	if strings.Contains(rec.Body.String(), "password") {
		t.Fatalf("password leaked: %s", rec.Body.String())
	}

	rec = a.do(t, http.MethodGet, "/users/4242", nil, "")
	expectStatus(t, rec, http.StatusOK)
	if strings.TrimSpace(rec.Body.String()) != "null" {
		t.Fatalf("missing user body = %q, want null", rec.Body.String())
	}

	rec = a.do(t, http.MethodGet, "/users/abc", nil, "")
	expectError(t, rec, http.StatusUnprocessableEntity, "Validation Failed")
	if got := decode[errBody](t, rec).Details["userId"]; got != "invalid integer number" {
		t.Fatalf("details.userId = %q", got)
	}
}

func TestOperationalRoutes(t *testing.T) {
	a := newTestApp(t)

	rec := a.do(t, http.MethodGet, "/healthz", nil, "")
	expectStatus(t, rec, http.StatusOK)
	if rec.Body.String() != "ok" {
		t.Fatalf("healthz body = %q", rec.Body.String())
	}

	rec = a.do(t, http.MethodGet, "/metrics", nil, "")
	expectStatus(t, rec, http.StatusOK)
	if !strings.Contains(rec.Body.String(), "auth_logins_total") && !strings.Contains(rec.Body.String(), "go_goroutines") {
		t.Fatal("metrics exposition missing")
	}

	expectError(t, a.do(t, http.MethodGet, "/nope", nil, ""), http.StatusNotFound, "Not Found")
}

// testContext returns a context cancelled when the test finishes
// (stand-in for testing.T.Context, which needs Go 1.24).
func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return ctx
}
