package dataset

import (
	"context"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

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

var datasetColumns = []string{
	"name", "publisher", "license", "is_open", "last_modified", "last_seen",
}

func (r *Repository) Get(ctx context.Context, name string) (*models.Dataset, error) {
	ctx, span := tracing.StartSpan(ctx, "dataset.Repository.Get")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select(datasetColumns...)
	sb.From("datasets")
	sb.Where(sb.Equal("name", name))

	query, args := sb.Build()
	var ds models.Dataset
	if err := r.db.GetContext(ctx, &ds, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, httperror.NewHTTPErrorf(http.StatusNotFound, "dataset %s not found", name)
		}
		r.logger.WithContext(ctx).WithError(err).WithField("name", name).Error("Failed to get dataset")
		return nil, httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to get dataset: %v", err)
	}
	return &ds, nil
}

func (r *Repository) List(ctx context.Context) ([]models.Dataset, error) {
	ctx, span := tracing.StartSpan(ctx, "dataset.Repository.List")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select(datasetColumns...)
	sb.From("datasets")
	sb.OrderBy("name")

	query, args := sb.Build()
	var datasets []models.Dataset
	if err := r.db.SelectContext(ctx, &datasets, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list datasets")
		return nil, httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to list datasets: %v", err)
	}
	return datasets, nil
}

// Upsert stores the dataset's registry metadata.
func (r *Repository) Upsert(ctx context.Context, ds *models.Dataset) error {
	ctx, span := tracing.StartSpan(ctx, "dataset.Repository.Upsert")
	defer span.End()

	ib := database.NewInsertBuilder()
	ib.InsertInto("datasets")
	ib.Cols(datasetColumns...)
	ib.Values(ds.Name, ds.Publisher, ds.License, ds.IsOpen, ds.LastModified, ds.LastSeen)
	ub := ib.OnConflict("name")
	ub.Set(
		ub.Assign("publisher", database.Excluded("publisher")),
		ub.Assign("license", database.Excluded("license")),
		ub.Assign("is_open", database.Excluded("is_open")),
		ub.Assign("last_modified", database.Excluded("last_modified")),
		ub.Assign("last_seen", database.Excluded("last_seen")),
	)

	query, args := ib.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("name", ds.Name).Error("Failed to upsert dataset")
		return httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to upsert dataset: %v", err)
	}
	return nil
}

// Delete removes the dataset row. Its resources and their activities go
// with it through cascading deletes. Runs inside the caller's
// transaction.
func (r *Repository) Delete(ctx context.Context, name string) error {
	ctx, span := tracing.StartSpan(ctx, "dataset.Repository.Delete")
	defer span.End()

	ctx, tx, err := r.db.GetTx(ctx, nil)
	if err != nil {
		return httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to begin transaction: %v", err)
	}

	db := database.NewDeleteBuilder()
	db.DeleteFrom("datasets")
	db.Where(db.Equal("name", name))

	query, args := db.Build()
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("name", name).Error("Failed to delete dataset")
		return httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to delete dataset: %v", err)
	}
	return nil
}
