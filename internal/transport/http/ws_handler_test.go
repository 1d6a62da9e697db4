package http

import (
	"context"
	"fmt"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"escape-room-service/internal/auth"
	"escape-room-service/internal/domain"
	"github.com/gorilla/websocket"
)

func TestWebSocketGameFlow(t *testing.T) {
	env := newTestEnv(t)
	server := httptest.NewServer(NewRouter(env.service, env.verifier))
	defer server.Close()

	conn := dial(t, server, env.token(t, "u1", "Alice"))
	defer conn.Close()

	readUntil(t, conn, "ready")

	send(t, conn, "openQuestion", nil)
	_, question := readUntil(t, conn, "question")
	if question["prompt"] != "2+2?" {
		t.Fatalf("unexpected question %+v", question)
	}

	send(t, conn, "submit", map[string]any{"response": "3"})
	_, result := readUntil(t, conn, "result")
	if result["correct"] != false || result["message"] != "Incorrect. Oops!" {
		t.Fatalf("expected incorrect result, got %+v", result)
	}

	send(t, conn, "draft", map[string]any{"response": "4"})
	send(t, conn, "submit", nil)
	_, result = readUntil(t, conn, "result")
	if result["correct"] != true || result["complete"] != true {
		t.Fatalf("expected correct completion, got %+v", result)
	}
	_, position := readUntil(t, conn, "position")
	if position["visible"] != false {
		t.Fatalf("marker should be hidden after completion, got %+v", position)
	}
	_, nav := readUntil(t, conn, "navigate")
	if nav["path"] != domain.PathCompleted || nav["replace"] != true {
		t.Fatalf("expected completion navigation, got %+v", nav)
	}

	board, found, _ := env.store.Get(context.Background(), domain.CollectionLeaderboard, "u1")
	if !found || board[domain.FieldName] != "Alice" || board[domain.FieldScore] != 1 {
		t.Fatalf("unexpected leaderboard %+v", board)
	}
}

func TestWebSocketRejectsInvalidToken(t *testing.T) {
	env := newTestEnv(t)
	server := httptest.NewServer(NewRouter(env.service, env.verifier))
	defer server.Close()

	conn := dial(t, server, "")
	defer conn.Close()

	readUntil(t, conn, "loading")
	send(t, conn, "signIn", map[string]any{"token": "bogus"})

	_, nav := readUntil(t, conn, "navigate")
	if nav["path"] != domain.PathEntry || nav["replace"] != true {
		t.Fatalf("expected redirect to entry, got %+v", nav)
	}
	if env.store.callCount() != 0 {
		t.Fatalf("unauthenticated view must not reach the store, got %d calls", env.store.callCount())
	}
}

func TestWebSocketLookupFailureIsRetryable(t *testing.T) {
	env := newTestEnv(t)
	verifier := &lookupFailingVerifier{JWTVerifier: env.verifier}
	verifier.failing.Store(true)
	server := httptest.NewServer(NewRouter(env.service, verifier))
	defer server.Close()

	token := env.token(t, "u1", "Alice")
	conn := dial(t, server, token)
	defer conn.Close()

	_, errPayload := readUntil(t, conn, "error")
	if errPayload["retryable"] != true {
		t.Fatalf("expected retryable error, got %+v", errPayload)
	}

	verifier.failing.Store(false)
	send(t, conn, "signIn", map[string]any{"token": token})
	_, ready := readUntil(t, conn, "ready")
	if ready["gameId"] == "" {
		t.Fatalf("expected a started game after retrying sign in, got %+v", ready)
	}
}

func TestWebSocketRedirectsCompletedPlayer(t *testing.T) {
	env := newTestEnv(t)
	_ = env.store.Set(context.Background(), domain.CollectionUsers, "u1", domain.Document{domain.FieldStartedAt: time.Now()}, true)

	server := httptest.NewServer(NewRouter(env.service, env.verifier))
	defer server.Close()

	conn := dial(t, server, env.token(t, "u1", "Alice"))
	defer conn.Close()

	_, nav := readUntil(t, conn, "navigate")
	if nav["path"] != domain.PathCompleted {
		t.Fatalf("expected redirect to completion view, got %+v", nav)
	}
}

func TestWebSocketSignOutRedirects(t *testing.T) {
	env := newTestEnv(t)
	server := httptest.NewServer(NewRouter(env.service, env.verifier))
	defer server.Close()

	conn := dial(t, server, env.token(t, "u1", "Alice"))
	defer conn.Close()

	readUntil(t, conn, "ready")
	send(t, conn, "signOut", nil)
	_, nav := readUntil(t, conn, "navigate")
	if nav["path"] != domain.PathEntry {
		t.Fatalf("expected redirect to entry after sign out, got %+v", nav)
	}
}

func TestWebSocketFinalizeFailureIsRetryable(t *testing.T) {
	env := newTestEnv(t)
	server := httptest.NewServer(NewRouter(env.service, env.verifier))
	defer server.Close()

	conn := dial(t, server, env.token(t, "u1", "Alice"))
	defer conn.Close()
	readUntil(t, conn, "ready")

	env.store.setFailWrites(true)
	send(t, conn, "submit", map[string]any{"response": "4"})
	_, errPayload := readUntil(t, conn, "error")
	if errPayload["retryable"] != true {
		t.Fatalf("expected retryable error, got %+v", errPayload)
	}

	env.store.setFailWrites(false)
	send(t, conn, "retryFinalize", nil)
	_, nav := readUntil(t, conn, "navigate")
	if nav["path"] != domain.PathCompleted {
		t.Fatalf("expected completion navigation after retry, got %+v", nav)
	}
}

func dial(t *testing.T, server *httptest.Server, token string) *websocket.Conn {
	t.Helper()
	u := "ws" + server.URL[len("http"):] + "/ws"
	if token != "" {
		u += "?token=" + token
	}
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return conn
}

func send(t *testing.T, conn *websocket.Conn, typ string, payload map[string]any) {
	t.Helper()
	msg := map[string]any{"type": typ}
	if payload != nil {
		msg["payload"] = payload
	}
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("write %s: %v", typ, err)
	}
}

// readUntil skips messages until one of type expect arrives.
func readUntil(t *testing.T, conn *websocket.Conn, expect string) (string, map[string]any) {
	t.Helper()
	for i := 0; i < 10; i++ {
		var msg struct {
			Type    string         `json:"type"`
			Payload map[string]any `json:"payload"`
		}
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read json waiting for %s: %v", expect, err)
		}
		if msg.Type == expect {
			return msg.Type, msg.Payload
		}
	}
	t.Fatalf("no %s message received", expect)
	return "", nil
}

// lookupFailingVerifier accepts valid tokens but fails the profile lookup while failing is set.
type lookupFailingVerifier struct {
	*auth.JWTVerifier
	failing atomic.Bool
}

func (v *lookupFailingVerifier) Verify(ctx context.Context, token string) (domain.Identity, error) {
	identity, err := v.JWTVerifier.Verify(ctx, token)
	if err != nil {
		return identity, err
	}
	if v.failing.Load() {
		return domain.Identity{}, fmt.Errorf("%w: lookup %s: unavailable", domain.ErrRemoteRead, identity.UID)
	}
	return identity, nil
}
