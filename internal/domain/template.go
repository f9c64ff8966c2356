package domain

import (
	"time"

	"github.com/google/uuid"
)

// Template is a named, read-only prompt with a token cost multiplier.
// Templates are consumed at submission time and never mutated by the core.
type Template struct {
	ID             uuid.UUID
	Name           string
	Description    string
	Prompt         string
	CostMultiplier int
	IsActive       bool
	CreatedAt      time.Time
}
