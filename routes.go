package main

import (
	"net/http"
	"strings"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/samber/lo"
)

const apiPrefix = "/api/v1"

func newHandler(h *hub, cfg Config) http.Handler {
	r := mux.NewRouter()
	r.Use(requestLogger(h.log))

	r.HandleFunc("/health", h.handleHealth).Methods("GET")
	r.Handle("/metrics", h.m).Methods("GET")

	// Route websocket requests. Admission is decided by the token, not by
	// Origin.
	r.Handle("/ws", wsHandler{h: h, upgrader: &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     func(*http.Request) bool { return true },
	}}).Methods("GET")

	api := r.PathPrefix(apiPrefix).Subrouter()
	api.HandleFunc("/auth/token", h.handleToken).Methods("POST")
	api.HandleFunc("/channels", h.read(h.handleListChannels)).Methods("GET")
	api.HandleFunc("/channels", h.write(h.handleCreateChannel)).Methods("POST")
	api.HandleFunc("/channels/{slug}", h.read(h.handleGetChannel)).Methods("GET")
	api.HandleFunc("/channels/{slug}", h.write(h.handleUpdateChannel)).Methods("PATCH")
	api.HandleFunc("/channels/{slug}", h.write(h.handleDeleteChannel)).Methods("DELETE")
	api.HandleFunc("/channels/{slug}/messages", h.read(h.handleHistory)).Methods("GET")
	api.HandleFunc("/channels/{slug}/messages", h.write(h.handlePublish)).Methods("POST")

	origins := splitList(cfg.AllowedOrigins)
	return plainOptions(origins, handlers.CORS(
		handlers.AllowedOrigins(origins),
		handlers.AllowedMethods(corsMethods),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
	)(r))
}

var corsMethods = []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"}

// plainOptions answers OPTIONS requests that are not preflights (no
// Access-Control-Request-Method) with 200. handlers.CORS rejects them
// with 400.
func plainOptions(origins []string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodOptions || r.Header.Get("Access-Control-Request-Method") != "" {
			next.ServeHTTP(w, r)
			return
		}
		w.Header().Set("Allow", strings.Join(corsMethods, ", "))
		if lo.Contains(origins, "*") {
			w.Header().Set("Access-Control-Allow-Origin", "*")
		} else if origin := r.Header.Get("Origin"); origin != "" && lo.Contains(origins, origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
		}
		w.WriteHeader(http.StatusOK)
	})
}
