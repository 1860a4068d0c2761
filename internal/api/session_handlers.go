package api

import (
	"errors"
	"log"
	"net/http"
	"time"

	"menedzer-sesji/internal/registry"
	"menedzer-sesji/internal/websession"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const (
	msgForgeryTokenMismatch = "Request timed out, please try again"
	msgSomethingWentWrong   = "Something went wrong."
	msgPermissionDenied     = "You do not have permission to delete this record."
)

type SessionResponse struct {
	ID                uuid.UUID `json:"id" example:"a1b2c3d4-e5f6-7890-1234-567890abcdef"`
	IPAddress         string    `json:"ip_address" example:"198.51.100.10"`
	UserAgent         string    `json:"user_agent" example:"Mozilla/5.0 (Windows NT 10.0; Win64; x64) ..."`
	FriendlyUserAgent string    `json:"friendly_user_agent" example:"Chrome on Windows"`
	Persistent        bool      `json:"persistent" example:"false"`
	IsCurrent         bool      `json:"is_current" example:"true"`
	CreatedAt         time.Time `json:"created_at"`
	LastAccessedAt    time.Time `json:"last_accessed_at"`
}

// @Summary      List active login sessions
// @Description  Lists the caller's active login sessions (persistent ones plus any used within the session lifetime), most recently active first, so the panel can show "where you're signed in".
// @Tags         sessions
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   SessionResponse
// @Failure      401  {string}  string "Unauthorized"
// @Failure      500  {string}  string "Internal Server Error"
// @Router       /sessions [get]
func (s *Server) ListSessionsHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())
	rc := GetRequestContext(r.Context())

	sessions, err := s.registry.GetCurrentSessions(r.Context(), claims.UserID)
	if err != nil {
		http.Error(w, "Failed to retrieve sessions", http.StatusInternalServerError)
		return
	}

	var currentID uuid.UUID
	if current, err := s.registry.GetCurrentLoginSession(r.Context(), claims.UserID, rc); err == nil && current != nil {
		currentID = current.ID
	}

	response := make([]SessionResponse, 0, len(sessions))
	for i := range sessions {
		session := &sessions[i]
		response = append(response, SessionResponse{
			ID:                session.ID,
			IPAddress:         session.IPAddress,
			UserAgent:         session.UserAgent,
			FriendlyUserAgent: registry.FriendlyUserAgent(session),
			Persistent:        session.Persistent,
			IsCurrent:         session.ID == currentID,
			CreatedAt:         session.CreatedAt,
			LastAccessedAt:    session.LastAccessedAt,
		})
	}

	writeJSON(w, http.StatusOK, response)
}

// @Summary      Remove a login session
// @Description  Deletes a login session by id, forcing logout of that device. The caller must be the session owner or hold the security administration capability, and must present the anti-forgery token issued at login.
// @Tags         sessions
// @Produce      json
// @Security     BearerAuth
// @Param        id           path      string  true  "ID of the session to remove" format(uuid)
// @Param        X-SecurityID header    string  true  "Anti-forgery token"
// @Success      200  {object}  SuccessResponse
// @Failure      400  {object}  ErrorResponse
// @Failure      401  {string}  string "Unauthorized"
// @Router       /admin/loginsession/remove/{id} [delete]
func (s *Server) RemoveSessionHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())
	rc := GetRequestContext(r.Context())

	token := rc.HeaderValue("X-SecurityID")
	if token == "" {
		token = r.URL.Query().Get("SecurityID")
	}
	expected := rc.SessionGet(websession.SecurityIDKey)
	if expected == "" || token != expected {
		writeClientError(w, msgForgeryTokenMismatch)
		return
	}

	sessionID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeClientError(w, msgSomethingWentWrong)
		return
	}

	session, err := s.registry.GetByID(r.Context(), sessionID)
	if err != nil {
		log.Printf("ERROR: Failed to look up login session %s: %v", sessionID, err)
		writeClientError(w, msgSomethingWentWrong)
		return
	}
	if session == nil {
		writeClientError(w, msgSomethingWentWrong)
		return
	}

	if !s.authorizer.CanDelete(claims, session) {
		writeClientError(w, msgPermissionDenied)
		return
	}

	if err := s.registry.Delete(r.Context(), session); err != nil {
		if !errors.Is(err, registry.ErrSessionNotFound) {
			log.Printf("ERROR: Failed to delete login session %s: %v", sessionID, err)
		}
		writeClientError(w, msgSomethingWentWrong)
		return
	}

	writeJSON(w, http.StatusOK, SuccessResponse{Success: true})
}

// @Summary      Terminate all other sessions (Log out everywhere else)
// @Description  Deletes every login session of the caller except the one backing this request.
// @Tags         sessions
// @Security     BearerAuth
// @Success      204  {null}    nil "No Content"
// @Failure      401  {string}  string "Unauthorized"
// @Failure      500  {string}  string "Internal Server Error"
// @Router       /sessions/terminate_all [post]
func (s *Server) TerminateAllSessionsHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())
	rc := GetRequestContext(r.Context())

	current, err := s.registry.GetCurrentLoginSession(r.Context(), claims.UserID, rc)
	if err != nil {
		http.Error(w, "Failed to terminate sessions", http.StatusInternalServerError)
		return
	}

	if current != nil {
		_, err = s.registry.DeleteAllExcept(r.Context(), claims.UserID, current.ID)
	} else {
		err = s.store.DeleteAllLoginSessionsForOwner(r.Context(), claims.UserID)
	}
	if err != nil {
		http.Error(w, "Failed to terminate sessions", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
