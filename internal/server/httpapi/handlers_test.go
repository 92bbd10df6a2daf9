package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"testing"
)

func TestRegister(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/v1/auth/register", "",
		`{"name":"alice","email":"alice@example.com","password":"password1","tier":0}`)
	requireStatus(t, w, http.StatusCreated)

	body := decodeBody(t, w)
	user, ok := body["user"].(map[string]any)
	if !ok {
		t.Fatalf("response has no user object: %v", body)
	}
	if user["userId"].(float64) != 1 || user["tier"].(float64) != 0 {
		t.Errorf("user = %v, want userId 1, tier 0", user)
	}

	tokens, ok := body["tokens"].(map[string]any)
	if !ok {
		t.Fatalf("response has no tokens object: %v", body)
	}
	access := tokens["access"].(map[string]any)
	if access["token"] == "" {
		t.Error("access token is empty")
	}

	if _, err := env.repo.GetByEmail(context.Background(), "alice@example.com"); err != nil {
		t.Errorf("user was not stored: %v", err)
	}
}

func TestRegister_ZeroTierAccepted(t *testing.T) {
	env := newTestEnv(t)

	// tier 0 is a valid value, not a missing field
	w := env.do(t, http.MethodPost, "/v1/auth/register", "",
		`{"name":"alice","email":"alice@example.com","password":"password1","tier":0}`)
	requireStatus(t, w, http.StatusCreated)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, 1, 0, "alice@example.com", "password1")

	w := env.do(t, http.MethodPost, "/v1/auth/register", "",
		`{"name":"alice","email":"alice@example.com","password":"password1","tier":0}`)
	requireStatus(t, w, http.StatusConflict)
}

func TestRegister_InvalidBody(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		body string
	}{
		{name: "empty", body: ""},
		{name: "missing tier", body: `{"name":"a","email":"a@example.com","password":"password1"}`},
		{name: "short password", body: `{"name":"a","email":"a@example.com","password":"short","tier":0}`},
		{name: "bad email", body: `{"name":"a","email":"nope","password":"password1","tier":0}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, http.MethodPost, "/v1/auth/register", "", tt.body)
			requireStatus(t, w, http.StatusBadRequest)
		})
	}
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, 1, 2, "alice@example.com", "password1")

	w := env.do(t, http.MethodPost, "/v1/auth/login", "",
		`{"email":"alice@example.com","password":"password1"}`)
	requireStatus(t, w, http.StatusOK)

	body := decodeBody(t, w)
	user := body["user"].(map[string]any)
	if user["tier"].(float64) != 2 {
		t.Errorf("tier = %v, want 2", user["tier"])
	}

	// the issued access token authenticates follow-up requests
	tokens := body["tokens"].(map[string]any)
	access := tokens["access"].(map[string]any)["token"].(string)
	w = env.do(t, http.MethodGet, "/v1/users/1", access, "")
	requireStatus(t, w, http.StatusOK)
}

func TestLogin_WrongPassword(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, 1, 1, "alice@example.com", "password1")

	w := env.do(t, http.MethodPost, "/v1/auth/login", "",
		`{"email":"alice@example.com","password":"wrong"}`)
	requireStatus(t, w, http.StatusUnauthorized)
}

func TestLogin_UnknownEmail(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/v1/auth/login", "",
		`{"email":"nobody@example.com","password":"password1"}`)
	requireStatus(t, w, http.StatusUnauthorized)
}

func TestLogout(t *testing.T) {
	env := newTestEnv(t)
	token := env.seedUser(t, 1, 1, "alice@example.com", "password1")

	w := env.do(t, http.MethodPost, "/v1/auth/logout", token, "")
	requireStatus(t, w, http.StatusOK)

	// every token issued before the logout is now rejected
	w = env.do(t, http.MethodGet, "/v1/users/1", token, "")
	requireStatus(t, w, http.StatusUnauthorized)
}

func TestLogout_NoToken(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/v1/auth/logout", "", "")
	requireStatus(t, w, http.StatusUnauthorized)
}

func TestRefresh(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, 1, 1, "alice@example.com", "password1")

	pair, err := env.issuer.IssueAuthTokens(1, 1, 0)
	if err != nil {
		t.Fatalf("IssueAuthTokens error: %v", err)
	}

	w := env.do(t, http.MethodPost, "/v1/auth/refresh", "",
		fmt.Sprintf(`{"refreshToken":%q}`, pair.Refresh.Token))
	requireStatus(t, w, http.StatusOK)

	body := decodeBody(t, w)
	tokens := body["tokens"].(map[string]any)
	access := tokens["access"].(map[string]any)["token"].(string)

	w = env.do(t, http.MethodGet, "/v1/users/1", access, "")
	requireStatus(t, w, http.StatusOK)
}

func TestRefresh_GarbageToken(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/v1/auth/refresh", "", `{"refreshToken":"garbage"}`)
	requireStatus(t, w, http.StatusUnauthorized)
}

func TestRefresh_AfterLogout(t *testing.T) {
	env := newTestEnv(t)
	token := env.seedUser(t, 1, 1, "alice@example.com", "password1")

	pair, err := env.issuer.IssueAuthTokens(1, 1, 0)
	if err != nil {
		t.Fatalf("IssueAuthTokens error: %v", err)
	}

	w := env.do(t, http.MethodPost, "/v1/auth/logout", token, "")
	requireStatus(t, w, http.StatusOK)

	w = env.do(t, http.MethodPost, "/v1/auth/refresh", "",
		fmt.Sprintf(`{"refreshToken":%q}`, pair.Refresh.Token))
	requireStatus(t, w, http.StatusUnauthorized)
}

func TestForgotPassword(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, 1, 1, "alice@example.com", "password1")

	w := env.do(t, http.MethodPost, "/v1/auth/forgot-password", "",
		`{"email":"alice@example.com"}`)
	requireStatus(t, w, http.StatusOK)

	if env.mailer.email != "alice@example.com" || env.mailer.token == "" {
		t.Errorf("mailer got (%q, %q), want reset token for alice", env.mailer.email, env.mailer.token)
	}
}

func TestForgotPassword_UnknownEmail(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/v1/auth/forgot-password", "",
		`{"email":"nobody@example.com"}`)
	requireStatus(t, w, http.StatusNotFound)
}

func TestResetPassword(t *testing.T) {
	env := newTestEnv(t)
	oldToken := env.seedUser(t, 1, 1, "alice@example.com", "oldpassword")

	reset, err := env.issuer.IssueResetToken(1)
	if err != nil {
		t.Fatalf("IssueResetToken error: %v", err)
	}

	env.mock.ExpectBegin()
	env.mock.ExpectCommit()

	w := env.do(t, http.MethodPost, "/v1/auth/reset-password?token="+url.QueryEscape(reset), "",
		`{"password":"newpassword"}`)
	requireStatus(t, w, http.StatusOK)

	if err := env.mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet db expectations: %v", err)
	}

	// the new password works, the old one and old tokens do not
	w = env.do(t, http.MethodPost, "/v1/auth/login", "",
		`{"email":"alice@example.com","password":"newpassword"}`)
	requireStatus(t, w, http.StatusOK)

	w = env.do(t, http.MethodPost, "/v1/auth/login", "",
		`{"email":"alice@example.com","password":"oldpassword"}`)
	requireStatus(t, w, http.StatusUnauthorized)

	w = env.do(t, http.MethodGet, "/v1/users/1", oldToken, "")
	requireStatus(t, w, http.StatusUnauthorized)
}

func TestResetPassword_MissingToken(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/v1/auth/reset-password", "", `{"password":"newpassword"}`)
	requireStatus(t, w, http.StatusBadRequest)
}

func TestResetPassword_BadToken(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/v1/auth/reset-password?token=garbage", "",
		`{"password":"newpassword"}`)
	requireStatus(t, w, http.StatusUnauthorized)
}

func TestResetPassword_AuthTokenRejected(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, 1, 1, "alice@example.com", "password1")

	// an access token is not a reset token even though both are signed
	// with the same secret
	pair, err := env.issuer.IssueAuthTokens(1, 1, 0)
	if err != nil {
		t.Fatalf("IssueAuthTokens error: %v", err)
	}

	w := env.do(t, http.MethodPost, "/v1/auth/reset-password?token="+url.QueryEscape(pair.Access.Token), "",
		`{"password":"newpassword"}`)
	requireStatus(t, w, http.StatusUnauthorized)
}

func TestGetUsers(t *testing.T) {
	env := newTestEnv(t)
	token := env.seedUser(t, 1, 1, "alice@example.com", "password1")
	env.seedUser(t, 2, 0, "bob@example.com", "password1")

	w := env.do(t, http.MethodGet, "/v1/users", token, "")
	requireStatus(t, w, http.StatusOK)

	body := decodeBody(t, w)
	if body["count"].(float64) != 2 {
		t.Errorf("count = %v, want 2", body["count"])
	}
	rows := body["rows"].([]any)
	if len(rows) != 2 {
		t.Errorf("len(rows) = %d, want 2", len(rows))
	}
	row := rows[0].(map[string]any)
	if _, leaked := row["password"]; leaked {
		t.Error("password hash leaked in list response")
	}
}

func TestGetUser(t *testing.T) {
	env := newTestEnv(t)
	token := env.seedUser(t, 1, 1, "alice@example.com", "password1")

	w := env.do(t, http.MethodGet, "/v1/users/1", token, "")
	requireStatus(t, w, http.StatusOK)

	body := decodeBody(t, w)
	if body["userId"].(float64) != 1 || body["email"] != "alice@example.com" {
		t.Errorf("unexpected user payload: %v", body)
	}
	if _, leaked := body["password"]; leaked {
		t.Error("password hash leaked in response")
	}
}

func TestUpdateUser(t *testing.T) {
	env := newTestEnv(t)
	token := env.seedUser(t, 1, 2, "alice@example.com", "password1")

	w := env.do(t, http.MethodPatch, "/v1/users/1", token, `{"name":"renamed","tier":2}`)
	requireStatus(t, w, http.StatusOK)

	body := decodeBody(t, w)
	if body["name"] != "renamed" {
		t.Errorf("name = %v, want renamed", body["name"])
	}
}

func TestUpdateUser_PasswordChangeRevokesTokens(t *testing.T) {
	env := newTestEnv(t)
	token := env.seedUser(t, 1, 2, "alice@example.com", "password1")

	env.mock.ExpectBegin()
	env.mock.ExpectCommit()

	w := env.do(t, http.MethodPatch, "/v1/users/1", token, `{"password":"newpassword"}`)
	requireStatus(t, w, http.StatusOK)

	if err := env.mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet db expectations: %v", err)
	}

	// the token that authorized the change is itself revoked
	w = env.do(t, http.MethodGet, "/v1/users/1", token, "")
	requireStatus(t, w, http.StatusUnauthorized)
}

func TestUpdateUser_InvalidBody(t *testing.T) {
	env := newTestEnv(t)
	token := env.seedUser(t, 1, 2, "alice@example.com", "password1")

	w := env.do(t, http.MethodPatch, "/v1/users/1", token, `{"email":"nope"}`)
	requireStatus(t, w, http.StatusBadRequest)
}

func TestDeleteUser(t *testing.T) {
	env := newTestEnv(t)
	token := env.seedUser(t, 1, 3, "alice@example.com", "password1")

	w := env.do(t, http.MethodDelete, "/v1/users/1", token, "")
	requireStatus(t, w, http.StatusOK)

	if _, err := env.repo.GetByID(context.Background(), 1); err == nil {
		t.Error("user still present after delete")
	}
}

// issuing and checking are one loop: anything the issuer mints for the
// current stored state must authenticate until the state moves.
func TestIssueAuthenticateRoundTripThroughAPI(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/v1/auth/register", "",
		`{"name":"alice","email":"alice@example.com","password":"password1","tier":1}`)
	requireStatus(t, w, http.StatusCreated)

	body := decodeBody(t, w)
	tokens := body["tokens"].(map[string]any)
	access := tokens["access"].(map[string]any)["token"].(string)
	refresh := tokens["refresh"].(map[string]any)["token"].(string)

	w = env.do(t, http.MethodGet, "/v1/users/1", access, "")
	requireStatus(t, w, http.StatusOK)

	// the refresh token is not an access token
	w = env.do(t, http.MethodGet, "/v1/users/1", refresh, "")
	requireStatus(t, w, http.StatusUnauthorized)
}
