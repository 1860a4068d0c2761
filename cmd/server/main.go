// @title           CMS Session Manager API
// @version         1.0
// @host            localhost
// @schemes         http https
// @BasePath        /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
package main

import (
	"context"
	"log"
	"net/http"

	"menedzer-sesji/internal/api"
	"menedzer-sesji/internal/config"
	"menedzer-sesji/internal/database"
	"menedzer-sesji/internal/registry"
	"menedzer-sesji/internal/websocket"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	_ "menedzer-sesji/docs"

	httpSwagger "github.com/swaggo/http-swagger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Nie można wczytać konfiguracji: %v", err)
	}

	dbpool, err := pgxpool.New(context.Background(), cfg.DB.Source)
	if err != nil {
		log.Fatalf("Nie można połączyć się z bazą danych: %v", err)
	}
	defer dbpool.Close()

	if err := dbpool.Ping(context.Background()); err != nil {
		log.Fatalf("Nie można pingować bazy danych: %v", err)
	}
	log.Println("Pomyślnie połączono z bazą danych")

	wsHub := websocket.NewHub()
	go wsHub.Run()

	store := database.NewStore(dbpool, wsHub)
	reg := registry.New(store, cfg.Session.Lifetime())
	server := api.NewServer(cfg, store, reg, wsHub)

	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(api.MetricsMiddleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-SecurityID"},
		AllowCredentials: true,
	}))

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("https://localhost/swagger/doc.json"),
	))

	r.Get("/ws", server.ServeWsHandler)

	r.Post("/api/v1/auth/login", server.LoginHandler)

	r.Get("/health", server.HealthCheckHandler)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(server.AuthMiddleware)
		r.Post("/auth/logout", server.LogoutHandler)
		r.Get("/me", server.GetCurrentUserHandler)
		r.Get("/sessions", server.ListSessionsHandler)
		r.Post("/sessions/terminate_all", server.TerminateAllSessionsHandler)
		r.Get("/events", server.GetEventsHandler)
	})

	r.Route("/admin", func(r chi.Router) {
		r.Use(server.AuthMiddleware)
		r.Delete("/loginsession/remove/{id}", server.RemoveSessionHandler)
	})

	log.Println("Uruchamianie serwera na porcie :8080")
	if err := http.ListenAndServe(":8080", r); err != nil {
		log.Fatalf("Nie można uruchomić serwera: %v", err)
	}
}
