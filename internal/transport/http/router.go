package http

import (
	"net/http"

	"escape-room-service/internal/app"
	"escape-room-service/internal/auth"
	"github.com/gorilla/mux"
)

// NewRouter wires the websocket view and the REST API.
func NewRouter(service *app.GameService, verifier auth.Verifier) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}).Methods(http.MethodGet)

	ws := NewWSHandler(service, verifier)
	r.HandleFunc("/ws", ws.ServeWS)

	rest := NewRESTHandler(service)
	api := r.PathPrefix("/api").Subrouter()
	api.Use(NewAuthMiddleware(verifier).RequireIdentity)
	api.HandleFunc("/games", rest.CreateGame).Methods(http.MethodPost)
	api.HandleFunc("/games/{id}", rest.GetGame).Methods(http.MethodGet)
	api.HandleFunc("/games/{id}", rest.EndGame).Methods(http.MethodDelete)
	api.HandleFunc("/games/{id}/question", rest.OpenQuestion).Methods(http.MethodPost)
	api.HandleFunc("/games/{id}/question", rest.CloseQuestion).Methods(http.MethodDelete)
	api.HandleFunc("/games/{id}/answers", rest.SubmitAnswer).Methods(http.MethodPost)
	api.HandleFunc("/games/{id}/finalize", rest.Finalize).Methods(http.MethodPost)
	return r
}
