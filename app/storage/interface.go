package storage

import (
	"context"

	"ShiftBot/app/roster"
)

// Interface is the single piece of state that outlives a run: who led the
// last published shift, and who was on it. Both records are overwritten
// wholesale by each run, last writer wins.
type Interface interface {
	WriteCurrentOwner(ctx context.Context, displayName string) error
	CurrentOwner(ctx context.Context) (string, error)
	SaveRoster(ctx context.Context, people []roster.Entity) error
	Roster(ctx context.Context) ([]roster.Entity, error)
}
