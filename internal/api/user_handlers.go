package api

import (
	"net/http"

	_ "menedzer-sesji/internal/auth"
)

// @Summary      Get current user info
// @Description  Retrieves information about the currently authenticated user from their JWT token.
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  auth.AppClaims
// @Failure      401  {string}  string "Unauthorized"
// @Failure      500  {string}  string "Internal Server Error"
// @Router       /me [get]
func (s *Server) GetCurrentUserHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())
	if claims == nil {
		http.Error(w, "Could not retrieve user from token", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, claims)
}
