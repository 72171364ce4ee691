package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	socketio "github.com/googollee/go-socket.io"
	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/pacheco20222/DogMatch-backend-sub000/internal/app"
	"github.com/pacheco20222/DogMatch-backend-sub000/internal/auth"
	"github.com/pacheco20222/DogMatch-backend-sub000/internal/config"
	"github.com/pacheco20222/DogMatch-backend-sub000/internal/service/chat"
	"github.com/pacheco20222/DogMatch-backend-sub000/internal/service/ledger"
)

// NewRouter builds the full HTTP surface: health check, the socket.io
// mount, and the authenticated REST API, wrapped in CORS.
func NewRouter(
	appCtx *app.AppContext,
	verifier auth.TokenVerifier,
	ledgerSvc *ledger.Service,
	chatSvc *chat.Service,
	socketSrv *socketio.Server,
) http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
	}).Methods("GET")

	// realtime ingress; authentication happens in the handshake
	r.Handle("/socket.io/", socketSrv)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(AuthMiddleware(verifier))

	NewMatchHandler(appCtx, ledgerSvc).Register(api)
	NewChatHandler(chatSvc).Register(api)

	return cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	}).Handler(r)
}

// StartHTTPServer boots the HTTP server and blocks.
func StartHTTPServer(cfg *config.Config, handler http.Handler) error {
	addr := fmt.Sprintf("%s:%s", cfg.HTTP.Host, cfg.HTTP.Port)
	return http.ListenAndServe(addr, handler)
}
