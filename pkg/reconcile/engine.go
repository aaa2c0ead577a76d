// Package reconcile computes the write-set needed to replace one
// resource's stored activities with a freshly parsed batch.
package reconcile

import (
	"context"
	"sort"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/fern/pkg/fingerprint"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// PriorActivity is the slice of stored state the engine needs about an
// activity from the previous import of the same resource.
type PriorActivity struct {
	IATIIdentifier     string
	LastChangeDatetime time.Time
	RawXML             string
}

// Result is the write-set for one resource import. Batch replaces the
// resource's stored activities wholesale; ToTombstone identifiers
// disappeared since the prior import; ToUntombstone identifiers are
// present again and must have any tombstone cleared.
type Result struct {
	Batch         []*models.Activity
	ToTombstone   []string
	ToUntombstone []string
	Warnings      []models.Warning
}

type Engine struct {
	Now    func() time.Time
	Logger ectologger.Logger
}

func NewEngine(logger ectologger.Logger) *Engine {
	return &Engine{
		Now:    time.Now,
		Logger: logger,
	}
}

// Reconcile dedupes the new batch, carries last_change_datetime forward
// for activities whose raw content is unchanged, and derives the
// tombstone transitions. It touches no storage.
func (e *Engine) Reconcile(ctx context.Context, resource models.ResourceContext, newBatch []*models.Activity, prior []PriorActivity) Result {
	_, span := tracing.StartSpan(ctx, "reconcile.Reconcile")
	defer span.End()

	type priorState struct {
		lastChange time.Time
		hash       string
	}
	priorByID := make(map[string]priorState, len(prior))
	for _, p := range prior {
		priorByID[p.IATIIdentifier] = priorState{
			lastChange: p.LastChangeDatetime,
			hash:       fingerprint.Text(p.RawXML),
		}
	}

	now := e.Now()
	result := Result{}
	seen := make(map[string]bool, len(newBatch))

	for _, act := range newBatch {
		if seen[act.IATIIdentifier] {
			warning := models.Warning{
				Field:          "iati_identifier",
				IATIIdentifier: act.IATIIdentifier,
				DatasetID:      resource.DatasetID,
				ResourceURL:    resource.URL,
				Err:            &DuplicateIdentifierError{IATIIdentifier: act.IATIIdentifier},
			}
			result.Warnings = append(result.Warnings, warning)
			if e.Logger != nil {
				e.Logger.WithContext(ctx).WithFields(map[string]any{
					"channel":         "activity_importer",
					"iati_identifier": act.IATIIdentifier,
					"dataset":         resource.DatasetID,
					"resource":        resource.URL,
				}).Warnf("duplicate identifier %s in same resource document", act.IATIIdentifier)
			}
			continue
		}
		seen[act.IATIIdentifier] = true

		if state, ok := priorByID[act.IATIIdentifier]; ok && !fingerprint.HasChanged(state.hash, fingerprint.Text(act.RawXML)) {
			act.LastChangeDatetime = state.lastChange
		} else {
			act.LastChangeDatetime = now
		}
		result.Batch = append(result.Batch, act)
	}

	for id := range priorByID {
		if !seen[id] {
			result.ToTombstone = append(result.ToTombstone, id)
		}
	}
	sort.Strings(result.ToTombstone)

	for id := range seen {
		result.ToUntombstone = append(result.ToUntombstone, id)
	}
	sort.Strings(result.ToUntombstone)

	return result
}

// DuplicateIdentifierError marks an identifier that appeared more than
// once in the same document. Only the first occurrence is kept.
type DuplicateIdentifierError struct {
	IATIIdentifier string
}

func (e *DuplicateIdentifierError) Error() string {
	return "duplicate identifier " + e.IATIIdentifier + " in same resource document"
}
