package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"escape-room-service/internal/app"
	"escape-room-service/internal/domain"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
)

// RESTHandler exposes the game as request/response resources for clients without websockets.
type RESTHandler struct {
	service *app.GameService
}

func NewRESTHandler(service *app.GameService) *RESTHandler {
	return &RESTHandler{service: service}
}

type entryResponse struct {
	Status   string             `json:"status"`
	Navigate *domain.Navigation `json:"navigate,omitempty"`
	Game     *readyPayload      `json:"game,omitempty"`
}

// CreateGame runs the session guard for the caller and starts a game when allowed.
func (h *RESTHandler) CreateGame(w http.ResponseWriter, r *http.Request) {
	identity, ok := IdentityFrom(r.Context())
	if !ok {
		writeUnauthenticated(w, domain.ErrUnauthenticated.Error())
		return
	}

	state := domain.AuthState{Resolved: true, Identity: &identity}
	result, game, err := h.service.Enter(r.Context(), state, r.UserAgent())
	if err != nil {
		log.Error().Err(err).Str("uid", identity.UID).Msg("enter game")
		writeError(w, err)
		return
	}
	resp := entryResponse{Status: result.Status.String()}
	if nav, ok := result.Redirect(); ok {
		resp.Navigate = &nav
		writeJSON(w, http.StatusOK, resp)
		return
	}
	ready := toReady(game)
	resp.Game = &ready
	writeJSON(w, http.StatusCreated, resp)
}

func (h *RESTHandler) GetGame(w http.ResponseWriter, r *http.Request) {
	game, ok := h.ownedGame(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toReady(game))
}

func (h *RESTHandler) OpenQuestion(w http.ResponseWriter, r *http.Request) {
	game, ok := h.ownedGame(w, r)
	if !ok {
		return
	}
	q, ok := game.OpenQuestion()
	if !ok {
		writeError(w, domain.ErrSequenceComplete)
		return
	}
	writeJSON(w, http.StatusOK, questionPayload{
		Index:   game.Snapshot().CurrentQuestionIndex,
		Prompt:  q.Prompt,
		Options: q.Options,
	})
}

func (h *RESTHandler) CloseQuestion(w http.ResponseWriter, r *http.Request) {
	game, ok := h.ownedGame(w, r)
	if !ok {
		return
	}
	game.CloseQuestion()
	w.WriteHeader(http.StatusNoContent)
}

// SubmitAnswer sets the draft from the body and checks it against the current question.
func (h *RESTHandler) SubmitAnswer(w http.ResponseWriter, r *http.Request) {
	game, ok := h.ownedGame(w, r)
	if !ok {
		return
	}
	var payload answerPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.Response == nil {
		writeJSON(w, http.StatusBadRequest, errorPayload{Message: "invalid answer payload"})
		return
	}
	game.SetDraft(*payload.Response)

	out, err := game.Submit(r.Context())
	if errors.Is(err, domain.ErrSequenceComplete) {
		writeError(w, err)
		return
	}
	if err != nil {
		log.Error().Err(err).Str("uid", game.Identity().UID).Msg("finalize score")
		writeJSON(w, http.StatusServiceUnavailable, submitErrorPayload{
			errorPayload: errorPayload{Message: err.Error(), Retryable: app.IsRetryable(err)},
			Result:       toResult(out),
		})
		return
	}
	writeJSON(w, http.StatusOK, toResult(out))
}

func (h *RESTHandler) Finalize(w http.ResponseWriter, r *http.Request) {
	game, ok := h.ownedGame(w, r)
	if !ok {
		return
	}
	nav, err := game.RetryFinalize(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"navigate": nav})
}

func (h *RESTHandler) EndGame(w http.ResponseWriter, r *http.Request) {
	game, ok := h.ownedGame(w, r)
	if !ok {
		return
	}
	h.service.End(game.ID())
	w.WriteHeader(http.StatusNoContent)
}

func (h *RESTHandler) ownedGame(w http.ResponseWriter, r *http.Request) (*app.Game, bool) {
	identity, ok := IdentityFrom(r.Context())
	if !ok {
		writeUnauthenticated(w, domain.ErrUnauthenticated.Error())
		return nil, false
	}
	game, err := h.service.Game(mux.Vars(r)["id"])
	if err != nil || game.Identity().UID != identity.UID {
		writeError(w, domain.ErrSessionNotFound)
		return nil, false
	}
	return game, true
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrSessionNotFound), errors.Is(err, domain.ErrQuestionSetNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrSequenceComplete), errors.Is(err, domain.ErrNotComplete):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrUnauthenticated):
		status = http.StatusUnauthorized
	case app.IsRetryable(err):
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, errorPayload{Message: err.Error(), Retryable: app.IsRetryable(err)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("encode response")
	}
}
