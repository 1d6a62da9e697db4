package http

import (
	"encoding/json"

	"escape-room-service/internal/app"
	"escape-room-service/internal/domain"
)

const (
	msgCorrect   = "Correct!"
	msgIncorrect = "Incorrect. Oops!"
)

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type signInPayload struct {
	Token string `json:"token"`
}

type answerPayload struct {
	Response *string `json:"response"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}

// submitErrorPayload reports a failed finalize together with the accepted answer.
type submitErrorPayload struct {
	errorPayload
	Result resultPayload `json:"result"`
}

type questionPayload struct {
	Index   int      `json:"index"`
	Prompt  string   `json:"prompt"`
	Options []string `json:"options"`
}

type positionPayload struct {
	Bottom  float64 `json:"bottom"`
	Left    float64 `json:"left"`
	Visible bool    `json:"visible"`
}

type readyPayload struct {
	GameID   string              `json:"gameId"`
	State    domain.SessionState `json:"state"`
	Position positionPayload     `json:"position"`
}

type resultPayload struct {
	Correct  bool               `json:"correct"`
	Message  string             `json:"message"`
	Complete bool               `json:"complete"`
	Index    int                `json:"index"`
	Score    int                `json:"score"`
	Position positionPayload    `json:"position"`
	Navigate *domain.Navigation `json:"navigate,omitempty"`
}

func toPosition(pos domain.Position, visible bool) positionPayload {
	if !visible {
		return positionPayload{}
	}
	return positionPayload{Bottom: pos.Bottom, Left: pos.Left, Visible: true}
}

func toResult(out app.Outcome) resultPayload {
	msg := msgIncorrect
	if out.Correct {
		msg = msgCorrect
	}
	return resultPayload{
		Correct:  out.Correct,
		Message:  msg,
		Complete: out.Complete,
		Index:    out.Index,
		Score:    out.Score,
		Position: toPosition(out.Position, out.MarkerVisible),
		Navigate: out.Navigate,
	}
}

func toReady(game *app.Game) readyPayload {
	pos, visible := game.Position()
	return readyPayload{
		GameID:   game.ID(),
		State:    game.Snapshot(),
		Position: toPosition(pos, visible),
	}
}
