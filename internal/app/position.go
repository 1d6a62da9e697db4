package app

import "escape-room-service/internal/domain"

// DefaultPositions places the marker on each of the nine characters of the game area.
var DefaultPositions = []domain.Position{
	{Bottom: 40, Left: 60},
	{Bottom: 40, Left: 260},
	{Bottom: 40, Left: 460},
	{Bottom: 190, Left: 560},
	{Bottom: 190, Left: 360},
	{Bottom: 190, Left: 160},
	{Bottom: 340, Left: 60},
	{Bottom: 340, Left: 260},
	{Bottom: 340, Left: 460},
}

// PositionMapper maps a question index to marker coordinates.
type PositionMapper struct {
	table []domain.Position
}

func NewPositionMapper(table []domain.Position) *PositionMapper {
	if len(table) == 0 {
		table = DefaultPositions
	}
	t := make([]domain.Position, len(table))
	copy(t, table)
	return &PositionMapper{table: t}
}

// PositionFor returns the marker position for index. It returns false for any
// index outside the table, including the completion sentinel; the marker is hidden then.
func (m *PositionMapper) PositionFor(index int) (domain.Position, bool) {
	if index < 0 || index >= len(m.table) {
		return domain.Position{}, false
	}
	return m.table[index], true
}

func (m *PositionMapper) Len() int {
	return len(m.table)
}
