package organisation

import (
	"context"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
	"github.com/google/uuid"
)

// Repository handles organisation persistence. Organisations are
// interned: one row per distinct (ref, name, type) triple, shared by
// every activity that references it.
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

// Intern stores the organisation if its (ref, name, type) triple is new
// and fills in the canonical row id either way. Runs inside the
// caller's transaction when one is open.
func (r *Repository) Intern(ctx context.Context, org *models.Organisation) error {
	ctx, span := tracing.StartSpan(ctx, "organisation.Repository.Intern")
	defer span.End()

	ctx, tx, err := r.db.GetTx(ctx, nil)
	if err != nil {
		return httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to begin transaction: %v", err)
	}

	// The no-op DO UPDATE makes RETURNING yield the existing row id on
	// conflict.
	query := `
		INSERT INTO organisations (id, ref, name, type)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (ref, name, type) DO UPDATE SET ref = EXCLUDED.ref
		RETURNING id
	`

	var id uuid.UUID
	if err := tx.GetContext(ctx, &id, query, uuid.New(), org.Ref, org.Name, typeCode(org)); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"ref": org.Ref, "name": org.Name}).Error("Failed to intern organisation")
		return httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to intern organisation: %v", err)
	}

	org.ID = id
	return nil
}

// Get returns the organisation with the given id.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (*models.Organisation, error) {
	ctx, span := tracing.StartSpan(ctx, "organisation.Repository.Get")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select("id", "ref", "name", "NULLIF(type, '') AS type")
	sb.From("organisations")
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()
	var org models.Organisation
	if err := r.db.GetContext(ctx, &org, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, httperror.NewHTTPErrorf(http.StatusNotFound, "organisation %s not found", id)
		}
		r.logger.WithContext(ctx).WithError(err).WithField("id", id).Error("Failed to get organisation")
		return nil, httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to get organisation: %v", err)
	}
	return &org, nil
}

// type is stored as an empty string when unset so the unique triple
// stays conflict-able. NULL would never collide with NULL in postgres.
func typeCode(org *models.Organisation) string {
	if org.Type == nil {
		return ""
	}
	return org.Type.Code
}
