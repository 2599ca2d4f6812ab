// Package repository provides data access layer implementations and interfaces for state persistence
package repository

import (
	"context"

	"github.com/stroomalert/stroomalert/models"
)

// StateRepository is the durable snapshot/restore gateway for engine state.
// Implementations persist four independently restorable bundles (active
// incidents, resolved incidents, campaign ledger, event log); a missing
// bundle restores as its empty default, never as an error. Writes must be
// atomic from a reader's perspective: a crash mid-write never leaves a torn
// snapshot observable to a later restore.
type StateRepository interface {
	SaveState(ctx context.Context, snapshot *models.StateSnapshot) error
	LoadState(ctx context.Context) (*models.StateSnapshot, error)
}
