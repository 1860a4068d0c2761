package api

import (
	"encoding/json"
	"net/http"

	"menedzer-sesji/internal/config"
	"menedzer-sesji/internal/database"
	"menedzer-sesji/internal/registry"
	"menedzer-sesji/internal/websession"
	"menedzer-sesji/internal/websocket"
)

type Server struct {
	config     *config.Config
	store      *database.Store
	registry   *registry.Registry
	authorizer *registry.Authorizer
	sessions   *websession.Codec
	wsHub      *websocket.Hub
}

func NewServer(cfg *config.Config, store *database.Store, reg *registry.Registry, wsHub *websocket.Hub) *Server {
	return &Server{
		config:     cfg,
		store:      store,
		registry:   reg,
		authorizer: &registry.Authorizer{},
		sessions:   websession.NewCodec([]byte(cfg.Session.Secret)),
		wsHub:      wsHub,
	}
}

type ErrorResponse struct {
	Errors string `json:"errors" example:"Something went wrong."`
}

type SuccessResponse struct {
	Success bool `json:"success" example:"true"`
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeClientError(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest, ErrorResponse{Errors: message})
}

// @Summary      Health check
// @Description  Reports whether the service and its database are reachable.
// @Tags         health
// @Produce      json
// @Success      200  {object}  map[string]string
// @Failure      503  {string}  string "Service Unavailable"
// @Router       /health [get]
func (s *Server) HealthCheckHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.store.GetPool().Ping(r.Context()); err != nil {
		http.Error(w, "database unreachable", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
