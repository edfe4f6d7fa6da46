package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/sopami/sopami/internal/shared"
)

type mockAuthRepo struct {
	users map[string]*User
}

func newMockAuthRepo() *mockAuthRepo {
	return &mockAuthRepo{users: make(map[string]*User)}
}

func (m *mockAuthRepo) addUser(t *testing.T, id int64, username, password string) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	m.users[username] = &User{ID: id, Username: username, PasswordHash: string(hash)}
}

func (m *mockAuthRepo) FindByUsername(_ context.Context, username string) (*User, error) {
	u, ok := m.users[username]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return u, nil
}

func newTestRouter(t *testing.T) (chi.Router, *mockAuthRepo, *TokenManager) {
	t.Helper()
	repo := newMockAuthRepo()
	tokens, err := NewTokenManager("handler-test-secret", time.Hour)
	require.NoError(t, err)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := NewHandler(logger, NewService(repo, tokens))

	r := chi.NewRouter()
	r.Route("/auth", handler.MountRoutes)
	return r, repo, tokens
}

func postLogin(t *testing.T, router http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestLoginSuccess(t *testing.T) {
	router, repo, tokens := newTestRouter(t)
	repo.addUser(t, 42, "alice", "s3cret")

	rec := postLogin(t, router, `{"username":"alice","password":"s3cret"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		AccessToken string `json:"access_token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.AccessToken)

	userID, err := tokens.Verify(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, int64(42), userID)
}

func TestLoginWrongPassword(t *testing.T) {
	router, repo, _ := newTestRouter(t)
	repo.addUser(t, 42, "alice", "s3cret")

	rec := postLogin(t, router, `{"username":"alice","password":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginUnknownUser(t *testing.T) {
	router, _, _ := newTestRouter(t)

	rec := postLogin(t, router, `{"username":"ghost","password":"pw"}`)
	// Unknown accounts and bad passwords look the same to the caller.
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginValidation(t *testing.T) {
	router, _, _ := newTestRouter(t)

	rec := postLogin(t, router, `{"username":"alice"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = postLogin(t, router, `not-json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRequireIdentityAttachesUser(t *testing.T) {
	tokens, err := NewTokenManager("handler-test-secret", time.Hour)
	require.NoError(t, err)
	mw := Middleware{Verifier: tokens, Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}

	var gotID int64
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := IdentityFromContext(r.Context())
		require.True(t, ok)
		gotID = id
		w.WriteHeader(http.StatusNoContent)
	})

	token, err := tokens.Issue(7)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	mw.RequireIdentity(next).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, int64(7), gotID)
}

func TestRequireIdentityRejectsBadTokens(t *testing.T) {
	tokens, err := NewTokenManager("handler-test-secret", time.Hour)
	require.NoError(t, err)
	mw := Middleware{Verifier: tokens, Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run for unverified callers")
	})

	cases := map[string]string{
		"missing header":  "",
		"not bearer":      "Basic abc123",
		"malformed token": "Bearer not.a.jwt",
	}
	for name, header := range cases {
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		mw.RequireIdentity(next).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code, name)
		body := strings.TrimSpace(rec.Body.String())
		assert.Contains(t, body, `"status":401`, name)
	}
}
