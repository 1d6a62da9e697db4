package domain

import "errors"

var (
	// ErrQuestionSetNotFound indicates the question set could not be loaded.
	ErrQuestionSetNotFound = errors.New("question set not found")
	// ErrEmptyQuestionSet is returned when a question set has no questions to play.
	ErrEmptyQuestionSet = errors.New("question set is empty")
	// ErrSequenceComplete is returned when answering after the last question.
	ErrSequenceComplete = errors.New("question sequence already complete")
	// ErrNotComplete is returned when finalizing before the last question is answered.
	ErrNotComplete = errors.New("question sequence not complete")
	// ErrSessionNotFound is returned when a game view is unknown or already ended.
	ErrSessionNotFound = errors.New("game session not found")
	// ErrInvalidToken is returned by identity providers for bad or expired tokens.
	ErrInvalidToken = errors.New("invalid or expired token")
	// ErrUnauthenticated is returned when an action needs a signed-in user.
	ErrUnauthenticated = errors.New("not authenticated")
	// ErrRemoteRead wraps failed lookups against the document store.
	ErrRemoteRead = errors.New("remote read failed")
	// ErrRemoteWrite wraps failed writes against the document store.
	ErrRemoteWrite = errors.New("remote write failed")
)
