package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"escape-room-service/internal/app"
	"escape-room-service/internal/auth"
	"escape-room-service/internal/domain"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type WSHandler struct {
	service  *app.GameService
	verifier auth.Verifier
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.GameService, verifier auth.Verifier) *WSHandler {
	return &WSHandler{
		service:  service,
		verifier: verifier,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// view is the server side of one browser game page. All of its state is
// touched only from the connection's event loop.
type view struct {
	service   *app.GameService
	session   *auth.Session
	userAgent string
	logger    zerolog.Logger
	send      chan outboundMessage[any]
	done      <-chan struct{}
	game      *app.Game
}

// ServeWS upgrades HTTP requests to websockets and runs one game view per connection.
// Auth state changes and client messages are handled by a single loop, so the
// guard runs once per auth transition and game updates are never concurrent.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("ws upgrade failed")
		return
	}
	defer conn.Close()

	ctx := r.Context()
	writerDone := make(chan struct{})
	v := &view{
		service:   h.service,
		session:   auth.NewSession(h.verifier),
		userAgent: r.UserAgent(),
		logger:    log.With().Str("view", uuid.NewString()).Logger(),
		send:      make(chan outboundMessage[any], 16),
		done:      writerDone,
	}

	states, unsubscribe := v.session.OnAuthStateChanged()
	defer unsubscribe()

	go func() {
		defer close(writerDone)
		for msg := range v.send {
			if err := conn.WriteJSON(msg); err != nil {
				v.logger.Warn().Err(err).Msg("ws write error")
				return
			}
		}
	}()

	inbound := make(chan inboundMessage)
	closeSignals := make(chan struct{})
	readerDone := make(chan struct{})
	go func() {
		defer close(readerDone)
		defer close(inbound)
		for {
			var msg inboundMessage
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			select {
			case inbound <- msg:
			case <-closeSignals:
				return
			}
		}
	}()

	if token := r.URL.Query().Get("token"); token != "" {
		v.signIn(ctx, token)
	}

loop:
	for {
		select {
		case state, ok := <-states:
			if !ok || v.onAuthState(ctx, state) {
				break loop
			}
		case msg, ok := <-inbound:
			if !ok || v.onMessage(ctx, msg) {
				break loop
			}
		}
	}

	close(closeSignals)
	if v.game != nil {
		h.service.End(v.game.ID())
	}
	close(v.send)
	<-writerDone
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	conn.Close()
	<-readerDone
}

// onAuthState applies the guard to a new auth state. It reports true when the view navigated away.
func (v *view) onAuthState(ctx context.Context, state domain.AuthState) bool {
	result, err := v.service.Guard(ctx, state)
	if err != nil {
		v.logger.Error().Err(err).Msg("session guard")
		v.emitError(err)
		return false
	}

	if nav, ok := result.Redirect(); ok {
		v.logger.Info().Str("status", result.Status.String()).Str("path", nav.Path).Msg("redirect")
		return v.navigate(nav)
	}
	if result.Status == app.GuardPending {
		v.emit("loading", struct{}{})
		return false
	}

	if v.game != nil && v.game.Identity().UID == result.Identity.UID {
		return false
	}
	if v.game != nil {
		v.service.End(v.game.ID())
		v.game = nil
	}
	game, err := v.service.Start(ctx, result, v.userAgent)
	if err != nil {
		v.logger.Error().Err(err).Str("uid", result.Identity.UID).Msg("start game")
		v.emitError(err)
		return false
	}
	v.game = game
	v.logger.Info().Str("uid", result.Identity.UID).Str("game", game.ID()).Msg("game started")
	v.emit("ready", toReady(game))
	return false
}

// onMessage handles one client message. It reports true when the view navigated away.
func (v *view) onMessage(ctx context.Context, msg inboundMessage) bool {
	switch msg.Type {
	case "signIn":
		var payload signInPayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil || payload.Token == "" {
			v.emit("error", errorPayload{Message: "invalid signIn payload"})
			return false
		}
		v.signIn(ctx, payload.Token)
		return false
	case "signOut":
		if err := v.session.SignOut(ctx); err != nil {
			v.logger.Warn().Err(err).Msg("sign out")
		}
		return false
	case "retryEntry":
		return v.onAuthState(ctx, v.session.State())
	}

	if v.game == nil {
		v.emit("error", errorPayload{Message: "game not ready"})
		return false
	}
	// lookup refreshes the game's liveness in the session repository
	if _, err := v.service.Game(v.game.ID()); err != nil {
		v.emitError(err)
		return false
	}

	switch msg.Type {
	case "openQuestion":
		q, ok := v.game.OpenQuestion()
		if !ok {
			v.emit("error", errorPayload{Message: domain.ErrSequenceComplete.Error()})
			return false
		}
		v.emit("question", questionPayload{Index: v.game.Snapshot().CurrentQuestionIndex, Prompt: q.Prompt, Options: q.Options})
	case "closeQuestion":
		v.game.CloseQuestion()
	case "draft":
		var payload answerPayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil || payload.Response == nil {
			v.emit("error", errorPayload{Message: "invalid draft payload"})
			return false
		}
		v.game.SetDraft(*payload.Response)
	case "submit":
		var payload answerPayload
		if len(msg.Payload) > 0 {
			if err := json.Unmarshal(msg.Payload, &payload); err != nil {
				v.emit("error", errorPayload{Message: "invalid submit payload"})
				return false
			}
		}
		if payload.Response != nil {
			v.game.SetDraft(*payload.Response)
		}
		return v.submit(ctx)
	case "retryFinalize":
		nav, err := v.game.RetryFinalize(ctx)
		if err != nil {
			v.logger.Error().Err(err).Msg("retry finalize")
			v.emitError(err)
			return false
		}
		return v.navigate(nav)
	default:
		v.emit("error", errorPayload{Message: "unsupported message type"})
	}
	return false
}

func (v *view) submit(ctx context.Context) bool {
	out, err := v.game.Submit(ctx)
	if errors.Is(err, domain.ErrSequenceComplete) {
		v.emitError(err)
		return false
	}
	v.emit("result", toResult(out))
	if out.Correct {
		v.emit("position", toPosition(out.Position, out.MarkerVisible))
	}
	if err != nil {
		v.logger.Error().Err(err).Str("uid", v.game.Identity().UID).Msg("finalize score")
		v.emitError(err)
		return false
	}
	if out.Navigate != nil {
		v.logger.Info().Str("uid", v.game.Identity().UID).Int("score", out.Score).Msg("game completed")
		return v.navigate(*out.Navigate)
	}
	return false
}

func (v *view) signIn(ctx context.Context, token string) {
	err := v.session.SignIn(ctx, token)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrInvalidToken):
		v.logger.Info().Err(err).Msg("sign in rejected")
	default:
		v.logger.Error().Err(err).Msg("sign in")
		v.emitError(err)
	}
}

func (v *view) navigate(nav domain.Navigation) bool {
	v.emit("navigate", nav)
	return true
}

func (v *view) emitError(err error) {
	v.emit("error", errorPayload{Message: err.Error(), Retryable: app.IsRetryable(err)})
}

func (v *view) emit(typ string, payload any) {
	select {
	case v.send <- outboundMessage[any]{Type: typ, Payload: payload}:
	case <-v.done:
	}
}
