package app

import "escape-room-service/internal/domain"

// Sequencer walks an ordered question list. The index only moves forward.
type Sequencer struct {
	questions []domain.Question
	index     int
}

func NewSequencer(questions []domain.Question) *Sequencer {
	qs := make([]domain.Question, len(questions))
	copy(qs, questions)
	return &Sequencer{questions: qs}
}

// Current returns the active question, or false once the sequence is complete.
func (s *Sequencer) Current() (domain.Question, bool) {
	if s.index >= len(s.questions) {
		return domain.Question{}, false
	}
	return s.questions[s.index], true
}

// Advance moves to the next question and reports whether the sequence is now complete.
func (s *Sequencer) Advance() bool {
	if s.index < len(s.questions) {
		s.index++
	}
	return s.Complete()
}

func (s *Sequencer) Complete() bool {
	return s.index >= len(s.questions)
}

func (s *Sequencer) Index() int {
	return s.index
}

func (s *Sequencer) Len() int {
	return len(s.questions)
}
