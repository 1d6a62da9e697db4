package domain

import "time"

// GameRecord is one player's run. startedAt and phoneNumber are fixed at
// construction, score only changes through UpdateScore, and completion
// details are recorded once.
type GameRecord struct {
	startedAt   time.Time
	phoneNumber string
	score       int
	completedAt time.Time
	userAgent   string
}

func NewGameRecord(startedAt time.Time, phoneNumber string) *GameRecord {
	return &GameRecord{startedAt: startedAt, phoneNumber: phoneNumber}
}

func (r *GameRecord) StartedAt() time.Time { return r.startedAt }

func (r *GameRecord) PhoneNumber() string { return r.phoneNumber }

func (r *GameRecord) Score() int { return r.score }

func (r *GameRecord) UpdateScore(score int) { r.score = score }

// Complete stamps the completion time and user agent. Only the first call has an effect.
func (r *GameRecord) Complete(at time.Time, userAgent string) {
	if r.Completed() {
		return
	}
	r.completedAt = at
	r.userAgent = userAgent
}

func (r *GameRecord) Completed() bool { return !r.completedAt.IsZero() }

func (r *GameRecord) CompletedAt() time.Time { return r.completedAt }

func (r *GameRecord) UserAgent() string { return r.userAgent }
