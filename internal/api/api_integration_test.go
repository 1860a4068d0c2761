package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"menedzer-sesji/internal/auth"
	"menedzer-sesji/internal/database"
	"menedzer-sesji/internal/models"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func createTestUserWithPassword(t *testing.T, username, password string, capabilities ...string) *models.User {
	hashedPassword, err := auth.HashPassword(password)
	require.NoError(t, err)

	user, err := testServer.store.CreateUser(context.Background(), database.CreateUserParams{
		Username:     username,
		PasswordHash: hashedPassword,
		Capabilities: capabilities,
	})
	require.NoError(t, err)
	return user
}

type testLogin struct {
	LoginResponse
	Cookie *http.Cookie
}

// loginUserForTest runs the full login flow and returns the token trio plus
// the transport-session cookie the browser would carry afterwards.
func loginUserForTest(t *testing.T, username, password, userAgent string, rememberMe bool) testLogin {
	loginReq := LoginRequest{Username: username, Password: password, RememberMe: rememberMe}
	body, _ := json.Marshal(loginReq)
	req := httptest.NewRequest("POST", "/api/v1/auth/login", bytes.NewReader(body))
	req.Header.Set("User-Agent", userAgent)
	rr := httptest.NewRecorder()

	http.HandlerFunc(testServer.LoginHandler).ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	var res LoginResponse
	err := json.Unmarshal(rr.Body.Bytes(), &res)
	require.NoError(t, err)

	cookies := rr.Result().Cookies()
	require.Len(t, cookies, 1, "login should set the transport-session cookie")

	return testLogin{LoginResponse: res, Cookie: cookies[0]}
}

func newSessionRouter() *chi.Mux {
	router := chi.NewRouter()
	router.Use(testServer.AuthMiddleware)
	router.Get("/api/v1/sessions", testServer.ListSessionsHandler)
	router.Post("/api/v1/sessions/terminate_all", testServer.TerminateAllSessionsHandler)
	router.Post("/api/v1/auth/logout", testServer.LogoutHandler)
	router.Delete("/admin/loginsession/remove/{id}", testServer.RemoveSessionHandler)
	return router
}

func removeSessionRequest(login testLogin, sessionID string) *http.Request {
	req := httptest.NewRequest("DELETE", "/admin/loginsession/remove/"+sessionID, nil)
	req.Header.Set("Authorization", "Bearer "+login.AccessToken)
	req.Header.Set("X-SecurityID", login.SecurityID)
	req.AddCookie(login.Cookie)
	return req
}

func sessionExists(t *testing.T, id string) bool {
	session, err := testServer.registry.GetByID(context.Background(), uuid.MustParse(id))
	require.NoError(t, err)
	return session != nil
}

func TestLoginHandler_Integration(t *testing.T) {
	t.Run("successful login", func(t *testing.T) {
		login := loginUserForTest(t, "api_test_user", "password", "login-test-agent", false)

		require.NotEmpty(t, login.AccessToken)
		require.NotEmpty(t, login.SecurityID)
		require.NotEmpty(t, login.SessionID)
		require.True(t, sessionExists(t, login.SessionID), "a login session should be recorded in the database")

		session, err := testServer.registry.GetByID(context.Background(), uuid.MustParse(login.SessionID))
		require.NoError(t, err)
		require.Equal(t, testUserClaims.UserID, session.OwnerID)
		require.Equal(t, "login-test-agent", session.UserAgent)
		require.NotEmpty(t, session.IPAddress)
		require.False(t, session.Persistent)
	})

	t.Run("invalid password", func(t *testing.T) {
		loginReq := LoginRequest{Username: "api_test_user", Password: "wrong_password"}
		body, _ := json.Marshal(loginReq)
		req := httptest.NewRequest("POST", "/api/v1/auth/login", bytes.NewReader(body))
		rr := httptest.NewRecorder()

		http.HandlerFunc(testServer.LoginHandler).ServeHTTP(rr, req)

		require.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("unknown user", func(t *testing.T) {
		loginReq := LoginRequest{Username: "nobody_here", Password: "password"}
		body, _ := json.Marshal(loginReq)
		req := httptest.NewRequest("POST", "/api/v1/auth/login", bytes.NewReader(body))
		rr := httptest.NewRecorder()

		http.HandlerFunc(testServer.LoginHandler).ServeHTTP(rr, req)

		require.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}

func TestLoginHandler_RememberMeReattach(t *testing.T) {
	createTestUserWithPassword(t, "user_remember_me", "password123")

	first := loginUserForTest(t, "user_remember_me", "password123", "remember-agent", true)
	time.Sleep(10 * time.Millisecond)
	second := loginUserForTest(t, "user_remember_me", "password123", "remember-agent", true)

	require.Equal(t, first.SessionID, second.SessionID,
		"a returning remember-me browser should reattach to its persistent session")

	fromOtherDevice := loginUserForTest(t, "user_remember_me", "password123", "some-other-agent", true)
	require.NotEqual(t, first.SessionID, fromOtherDevice.SessionID)
}

func TestRemoveSessionHandler_OwnerCanRemoveOwnSession(t *testing.T) {
	createTestUserWithPassword(t, "user_remove_own", "password123")

	victim := loginUserForTest(t, "user_remove_own", "password123", "phone-agent", false)
	current := loginUserForTest(t, "user_remove_own", "password123", "desktop-agent", false)

	rr := httptest.NewRecorder()
	newSessionRouter().ServeHTTP(rr, removeSessionRequest(current, victim.SessionID))

	require.Equal(t, http.StatusOK, rr.Code)
	var res SuccessResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
	require.True(t, res.Success)

	require.False(t, sessionExists(t, victim.SessionID), "the removed session should be gone")
	require.True(t, sessionExists(t, current.SessionID), "the caller's own session should survive")
}

func TestRemoveSessionHandler_ForgeryTokenRequired(t *testing.T) {
	createTestUserWithPassword(t, "user_remove_forgery", "password123")

	victim := loginUserForTest(t, "user_remove_forgery", "password123", "phone-agent", false)
	current := loginUserForTest(t, "user_remove_forgery", "password123", "desktop-agent", false)
	router := newSessionRouter()

	assertForgeryRejected := func(t *testing.T, req *http.Request) {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		require.Equal(t, http.StatusBadRequest, rr.Code)
		var res ErrorResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
		require.Equal(t, "Request timed out, please try again", res.Errors)
		require.True(t, sessionExists(t, victim.SessionID), "a rejected request must not remove anything")
	}

	t.Run("wrong token", func(t *testing.T) {
		req := removeSessionRequest(current, victim.SessionID)
		req.Header.Set("X-SecurityID", "definitely-not-the-token")
		assertForgeryRejected(t, req)
	})

	t.Run("missing token", func(t *testing.T) {
		req := removeSessionRequest(current, victim.SessionID)
		req.Header.Del("X-SecurityID")
		assertForgeryRejected(t, req)
	})

	t.Run("no transport session cookie", func(t *testing.T) {
		// Even a correct token value cannot be checked against anything.
		req := httptest.NewRequest("DELETE", "/admin/loginsession/remove/"+victim.SessionID, nil)
		req.Header.Set("Authorization", "Bearer "+current.AccessToken)
		req.Header.Set("X-SecurityID", current.SecurityID)
		assertForgeryRejected(t, req)
	})

	t.Run("token accepted via query parameter fallback", func(t *testing.T) {
		url := fmt.Sprintf("/admin/loginsession/remove/%s?SecurityID=%s", victim.SessionID, current.SecurityID)
		req := httptest.NewRequest("DELETE", url, nil)
		req.Header.Set("Authorization", "Bearer "+current.AccessToken)
		req.AddCookie(current.Cookie)

		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)
		require.False(t, sessionExists(t, victim.SessionID))
	})
}

func TestRemoveSessionHandler_PermissionDenied(t *testing.T) {
	createTestUserWithPassword(t, "user_remove_target", "password123")
	createTestUserWithPassword(t, "user_remove_stranger", "password123")

	target := loginUserForTest(t, "user_remove_target", "password123", "target-agent", false)
	stranger := loginUserForTest(t, "user_remove_stranger", "password123", "stranger-agent", false)

	rr := httptest.NewRecorder()
	newSessionRouter().ServeHTTP(rr, removeSessionRequest(stranger, target.SessionID))

	require.Equal(t, http.StatusBadRequest, rr.Code)
	var res ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
	require.Equal(t, "You do not have permission to delete this record.", res.Errors)
	require.True(t, sessionExists(t, target.SessionID), "a denied request must not remove the session")
}

func TestRemoveSessionHandler_SecurityAdminCanRemoveAnySession(t *testing.T) {
	createTestUserWithPassword(t, "user_remove_admin_target", "password123")
	createTestUserWithPassword(t, "user_remove_admin", "password123", models.CapabilitySecurityAdmin)

	target := loginUserForTest(t, "user_remove_admin_target", "password123", "target-agent", false)
	admin := loginUserForTest(t, "user_remove_admin", "password123", "admin-agent", false)

	rr := httptest.NewRecorder()
	newSessionRouter().ServeHTTP(rr, removeSessionRequest(admin, target.SessionID))

	require.Equal(t, http.StatusOK, rr.Code)
	require.False(t, sessionExists(t, target.SessionID))
}

func TestRemoveSessionHandler_BadSessionID(t *testing.T) {
	createTestUserWithPassword(t, "user_remove_badid", "password123")
	current := loginUserForTest(t, "user_remove_badid", "password123", "badid-agent", false)
	router := newSessionRouter()

	for name, id := range map[string]string{
		"malformed id":   "not-a-uuid",
		"nonexistent id": uuid.NewString(),
	} {
		t.Run(name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, removeSessionRequest(current, id))

			require.Equal(t, http.StatusBadRequest, rr.Code)
			var res ErrorResponse
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
			require.Equal(t, "Something went wrong.", res.Errors)
		})
	}
}

func TestListSessionsHandler_Integration(t *testing.T) {
	createTestUserWithPassword(t, "user_list_sessions", "password123")

	loginUserForTest(t, "user_list_sessions", "password123",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36", false)
	time.Sleep(10 * time.Millisecond)
	current := loginUserForTest(t, "user_list_sessions", "password123", "current-agent", false)

	req := httptest.NewRequest("GET", "/api/v1/sessions", nil)
	req.Header.Set("Authorization", "Bearer "+current.AccessToken)
	req.AddCookie(current.Cookie)
	rr := httptest.NewRecorder()
	newSessionRouter().ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var sessions []SessionResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &sessions))
	require.Len(t, sessions, 2)

	require.Equal(t, current.SessionID, sessions[0].ID.String(), "most recently active session comes first")
	require.True(t, sessions[0].IsCurrent)
	require.False(t, sessions[1].IsCurrent)
	require.Equal(t, "Chrome on Windows", sessions[1].FriendlyUserAgent)
	require.False(t, sessions[0].LastAccessedAt.Before(sessions[1].LastAccessedAt))
}

func TestTerminateAllSessionsHandler_Integration(t *testing.T) {
	createTestUserWithPassword(t, "user_terminate_all", "password123")

	for i := 0; i < 2; i++ {
		loginUserForTest(t, "user_terminate_all", "password123", fmt.Sprintf("other-agent-%d", i), false)
	}
	current := loginUserForTest(t, "user_terminate_all", "password123", "current-agent", false)

	req := httptest.NewRequest("POST", "/api/v1/sessions/terminate_all", nil)
	req.Header.Set("Authorization", "Bearer "+current.AccessToken)
	req.AddCookie(current.Cookie)
	rr := httptest.NewRecorder()
	newSessionRouter().ServeHTTP(rr, req)

	require.Equal(t, http.StatusNoContent, rr.Code)

	sessions, err := testServer.registry.GetCurrentSessions(context.Background(), mustUserID(t, "user_terminate_all"))
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	require.Equal(t, current.SessionID, sessions[0].ID.String(), "only the session backing the request survives")
}

func TestLogoutHandler_Integration(t *testing.T) {
	createTestUserWithPassword(t, "user_logout", "password123")
	login := loginUserForTest(t, "user_logout", "password123", "logout-agent", false)

	req := httptest.NewRequest("POST", "/api/v1/auth/logout", nil)
	req.Header.Set("Authorization", "Bearer "+login.AccessToken)
	req.AddCookie(login.Cookie)
	rr := httptest.NewRecorder()
	newSessionRouter().ServeHTTP(rr, req)

	require.Equal(t, http.StatusNoContent, rr.Code)
	require.False(t, sessionExists(t, login.SessionID), "logout deletes the backing login session")
}

func mustUserID(t *testing.T, username string) int64 {
	user, err := testServer.store.GetUserByUsername(context.Background(), username)
	require.NoError(t, err)
	require.NotNil(t, user)
	return user.ID
}
