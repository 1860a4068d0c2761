package api

import (
	"encoding/json"
	"log"
	"net/http"

	"menedzer-sesji/internal/auth"
	"menedzer-sesji/internal/registry"
	"menedzer-sesji/internal/websession"
)

type LoginRequest struct {
	Username   string `json:"username" example:"admin"`
	Password   string `json:"password" example:"password123"`
	RememberMe bool   `json:"remember_me" example:"true"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token" example:"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9...."`
	SecurityID  string `json:"security_id" example:"V1StGXR8_Z5jdHi6B-myT78q_Z5jdHi6"`
	SessionID   string `json:"session_id" example:"a1b2c3d4-e5f6-7890-1234-567890abcdef"`
}

// @Summary      Logs a user in
// @Description  Authenticates a user, records a login session (reusing a matching persistent one) and returns an access token plus the anti-forgery token for mutating requests.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        loginRequest   body      LoginRequest  true  "Login Credentials"
// @Success      200            {object}  LoginResponse
// @Failure      400            {string}  string "Invalid request body"
// @Failure      401            {string}  string "Invalid username or password"
// @Failure      500            {string}  string "Internal Server Error"
// @Router       /auth/login [post]
func (s *Server) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	user, err := s.store.GetUserByUsername(r.Context(), req.Username)
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if user == nil || !auth.CheckPasswordHash(req.Password, user.PasswordHash) {
		http.Error(w, "Invalid username or password", http.StatusUnauthorized)
		return
	}

	accessToken, err := auth.GenerateJWT(user, s.config.JWT.Secret)
	if err != nil {
		http.Error(w, "Failed to generate access token", http.StatusInternalServerError)
		return
	}

	ws := s.sessions.Load(r)
	rc := websession.NewContext(r, ws)

	session, err := s.registry.Find(r.Context(), user.ID, rc)
	if err != nil {
		log.Printf("ERROR: Persistent session lookup failed for user %d: %v", user.ID, err)
		http.Error(w, "Failed to process login session", http.StatusInternalServerError)
		return
	}
	if session != nil {
		// Returning remember-me browser; reattach instead of creating a
		// duplicate record.
		if err := s.registry.Touch(r.Context(), session); err != nil {
			log.Printf("WARN: Failed to touch login session %s: %v", session.ID, err)
		}
	} else {
		session, err = s.registry.Generate(r.Context(), user.ID, req.RememberMe, rc)
		if err != nil {
			log.Printf("ERROR: Failed to create login session for user %d: %v", user.ID, err)
			http.Error(w, "Failed to process login session", http.StatusInternalServerError)
			return
		}
	}

	ws.Set(registry.TransportSessionKey, session.ID.String())
	securityID := ws.SecurityID()

	if err := s.sessions.Save(w, ws); err != nil {
		log.Printf("ERROR: Failed to write transport session cookie: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, LoginResponse{
		AccessToken: accessToken,
		SecurityID:  securityID,
		SessionID:   session.ID.String(),
	})
}

// @Summary      Logs the current user out
// @Description  Deletes the login session backing this request and clears the transport session.
// @Tags         auth
// @Security     BearerAuth
// @Success      204  {null}    nil "No Content"
// @Failure      401  {string}  string "Unauthorized"
// @Failure      500  {string}  string "Internal Server Error"
// @Router       /auth/logout [post]
func (s *Server) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())
	rc := GetRequestContext(r.Context())

	current, err := s.registry.GetCurrentLoginSession(r.Context(), claims.UserID, rc)
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if current != nil {
		if err := s.registry.Delete(r.Context(), current); err != nil {
			log.Printf("WARN: Failed to delete login session %s on logout: %v", current.ID, err)
		}
	}

	rc.Session.Clear()
	if err := s.sessions.Save(w, rc.Session); err != nil {
		log.Printf("ERROR: Failed to clear transport session cookie: %v", err)
	}

	w.WriteHeader(http.StatusNoContent)
}
