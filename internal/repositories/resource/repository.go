package resource

import (
	"context"
	"net/http"
	"time"

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

var resourceColumns = []string{
	"url", "dataset_id", "last_fetch", "last_status_code", "last_succ",
	"document", "document_hash", "last_parsed", "last_parse_error", "version",
}

// Get returns the resource with the given url, including its stored
// document bytes.
func (r *Repository) Get(ctx context.Context, url string) (*models.Resource, error) {
	ctx, span := tracing.StartSpan(ctx, "resource.Repository.Get")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select(resourceColumns...)
	sb.From("resources")
	sb.Where(sb.Equal("url", url))

	query, args := sb.Build()
	var res models.Resource
	if err := r.db.GetContext(ctx, &res, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, httperror.NewHTTPErrorf(http.StatusNotFound, "resource %s not found", url)
		}
		r.logger.WithContext(ctx).WithError(err).WithField("url", url).Error("Failed to get resource")
		return nil, httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to get resource: %v", err)
	}
	return &res, nil
}

// ListByDataset returns the dataset's resources without their document
// bytes.
func (r *Repository) ListByDataset(ctx context.Context, datasetID string) ([]models.Resource, error) {
	ctx, span := tracing.StartSpan(ctx, "resource.Repository.ListByDataset")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select("url", "dataset_id", "last_fetch", "last_status_code", "last_succ",
		"NULL AS document", "document_hash", "last_parsed", "last_parse_error", "version")
	sb.From("resources")
	sb.Where(sb.Equal("dataset_id", datasetID))
	sb.OrderBy("url")

	query, args := sb.Build()
	var resources []models.Resource
	if err := r.db.SelectContext(ctx, &resources, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("dataset_id", datasetID).Error("Failed to list resources")
		return nil, httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to list resources: %v", err)
	}
	return resources, nil
}

// Save upserts the resource's fetch state and document.
func (r *Repository) Save(ctx context.Context, res *models.Resource) error {
	ctx, span := tracing.StartSpan(ctx, "resource.Repository.Save")
	defer span.End()

	ib := database.NewInsertBuilder()
	ib.InsertInto("resources")
	ib.Cols(resourceColumns...)
	ib.Values(
		res.URL, res.DatasetID, res.LastFetch, res.LastStatusCode, res.LastSucc,
		res.Document, res.DocumentHash, res.LastParsed, res.LastParseError, res.Version,
	)
	ub := ib.OnConflict("url")
	ub.Set(
		ub.Assign("dataset_id", database.Excluded("dataset_id")),
		ub.Assign("last_fetch", database.Excluded("last_fetch")),
		ub.Assign("last_status_code", database.Excluded("last_status_code")),
		ub.Assign("last_succ", database.Excluded("last_succ")),
		ub.Assign("document", database.Excluded("document")),
		ub.Assign("document_hash", database.Excluded("document_hash")),
		ub.Assign("last_parsed", database.Excluded("last_parsed")),
		ub.Assign("last_parse_error", database.Excluded("last_parse_error")),
		ub.Assign("version", database.Excluded("version")),
	)

	query, args := ib.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("url", res.URL).Error("Failed to save resource")
		return httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to save resource: %v", err)
	}
	return nil
}

// MarkParsed records a successful parse. Runs inside the caller's
// transaction so the mark lands atomically with the activity writes.
func (r *Repository) MarkParsed(ctx context.Context, url string, version *string, documentHash string, parsedAt time.Time) error {
	ctx, span := tracing.StartSpan(ctx, "resource.Repository.MarkParsed")
	defer span.End()

	ctx, tx, err := r.db.GetTx(ctx, nil)
	if err != nil {
		return httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to begin transaction: %v", err)
	}

	ub := database.NewUpdateBuilder()
	ub.Update("resources")
	ub.Set(
		ub.Assign("last_parsed", parsedAt),
		ub.Assign("last_parse_error", nil),
		ub.Assign("version", version),
		ub.Assign("document_hash", documentHash),
	)
	ub.Where(ub.Equal("url", url))

	query, args := ub.Build()
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("url", url).Error("Failed to mark resource parsed")
		return httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to mark resource parsed: %v", err)
	}
	return nil
}

// SetParseError annotates the resource with the failure text. Runs
// outside any transaction so the annotation survives a rollback.
func (r *Repository) SetParseError(ctx context.Context, url string, message string) error {
	ctx, span := tracing.StartSpan(ctx, "resource.Repository.SetParseError")
	defer span.End()

	ub := database.NewUpdateBuilder()
	ub.Update("resources")
	ub.Set(ub.Assign("last_parse_error", message))
	ub.Where(ub.Equal("url", url))

	query, args := ub.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("url", url).Error("Failed to set resource parse error")
		return httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to set resource parse error: %v", err)
	}
	return nil
}
