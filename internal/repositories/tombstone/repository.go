package tombstone

import (
	"context"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
	"github.com/huandu/go-sqlbuilder"
)

// Repository is the ledger of deleted activity identifiers. An
// identifier is marked when it disappears from its resource and cleared
// the moment it reappears anywhere.
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// MarkDeleted records every identifier as deleted at the given date.
// Re-marking an already deleted identifier refreshes its deletion date.
func (r *Repository) MarkDeleted(ctx context.Context, identifiers []string, deletionDate time.Time) error {
	ctx, span := tracing.StartSpan(ctx, "tombstone.Repository.MarkDeleted")
	defer span.End()

	if len(identifiers) == 0 {
		return nil
	}

	ctx, tx, err := r.db.GetTx(ctx, nil)
	if err != nil {
		return httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to begin transaction: %v", err)
	}

	ib := database.NewInsertBuilder()
	ib.InsertInto("deleted_activities")
	ib.Cols("iati_identifier", "deletion_date")
	for _, id := range identifiers {
		ib.Values(id, deletionDate)
	}
	ub := ib.OnConflict("iati_identifier")
	ub.Set(ub.Assign("deletion_date", database.Excluded("deletion_date")))

	query, args := ib.Build()
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("count", len(identifiers)).Error("Failed to mark activities deleted")
		return httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to mark activities deleted: %v", err)
	}
	return nil
}

// Clear removes any tombstones for the given identifiers.
func (r *Repository) Clear(ctx context.Context, identifiers []string) error {
	ctx, span := tracing.StartSpan(ctx, "tombstone.Repository.Clear")
	defer span.End()

	if len(identifiers) == 0 {
		return nil
	}

	ctx, tx, err := r.db.GetTx(ctx, nil)
	if err != nil {
		return httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to begin transaction: %v", err)
	}

	db := database.NewDeleteBuilder()
	db.DeleteFrom("deleted_activities")
	db.Where(db.In("iati_identifier", sqlbuilder.Flatten(identifiers)...))

	query, args := db.Build()
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("count", len(identifiers)).Error("Failed to clear tombstones")
		return httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to clear tombstones: %v", err)
	}
	return nil
}

// Contains reports whether the identifier is currently tombstoned.
func (r *Repository) Contains(ctx context.Context, identifier string) (bool, error) {
	ctx, span := tracing.StartSpan(ctx, "tombstone.Repository.Contains")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select("COUNT(*)")
	sb.From("deleted_activities")
	sb.Where(sb.Equal("iati_identifier", identifier))

	query, args := sb.Build()
	var count int
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("iati_identifier", identifier).Error("Failed to check tombstone")
		return false, httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to check tombstone: %v", err)
	}
	return count > 0, nil
}

// List returns tombstones ordered by deletion date, newest first.
func (r *Repository) List(ctx context.Context, limit, offset int) ([]models.DeletedActivity, error) {
	ctx, span := tracing.StartSpan(ctx, "tombstone.Repository.List")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select("iati_identifier", "deletion_date")
	sb.From("deleted_activities")
	sb.OrderBy("deletion_date DESC", "iati_identifier")
	sb.Limit(limit)
	sb.Offset(offset)

	query, args := sb.Build()
	var tombstones []models.DeletedActivity
	if err := r.db.SelectContext(ctx, &tombstones, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list tombstones")
		return nil, httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to list tombstones: %v", err)
	}
	return tombstones, nil
}
