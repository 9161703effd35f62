// Package admin provides administrative operations for the history database.
package admin

import (
	"context"
	"time"
)

// ResetTimeout is the maximum duration for database reset operations.
const ResetTimeout = 30 * time.Second

// Resetter is the part of the history store a reset needs.
type Resetter interface {
	ResetFindings(ctx context.Context) error
	ResetRuns(ctx context.Context) error
}

// ResetHistory handles history reset operations.
type ResetHistory struct {
	Store Resetter
}

type dbResetFn func(ctx context.Context) error

// ResetAll deletes every stored audit run and finding.
// This is a destructive operation - use with caution.
func (r *ResetHistory) ResetAll(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, ResetTimeout)
	defer cancel()

	return r.runResets(ctx, []dbResetFn{
		r.Store.ResetFindings,
		r.Store.ResetRuns,
	})
}

func (r *ResetHistory) runResets(ctx context.Context, resets []dbResetFn) error {
	for _, reset := range resets {
		if err := reset(ctx); err != nil {
			return err
		}
	}
	return nil
}
