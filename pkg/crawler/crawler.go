// Package crawler drives the import pipeline for one resource at a
// time: parse the stored document, reconcile against stored state, and
// replace the resource's activities in a single transaction.
package crawler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/internal/repositories/activity"
	"github.com/Ramsey-B/fern/internal/repositories/dataset"
	"github.com/Ramsey-B/fern/internal/repositories/organisation"
	"github.com/Ramsey-B/fern/internal/repositories/resource"
	"github.com/Ramsey-B/fern/internal/repositories/tombstone"
	"github.com/Ramsey-B/fern/pkg/appcontext"
	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/events"
	"github.com/Ramsey-B/fern/pkg/fingerprint"
	"github.com/Ramsey-B/fern/pkg/iatix"
	"github.com/Ramsey-B/fern/pkg/kafka"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/reconcile"
	"github.com/Ramsey-B/fern/pkg/tracing"
	"github.com/Ramsey-B/fern/pkg/utils"
)

type Crawler struct {
	db          database.DB
	logger      ectologger.Logger
	engine      *reconcile.Engine
	activities  *activity.Repository
	orgs        *organisation.Repository
	tombstones  *tombstone.Repository
	resources   *resource.Repository
	datasets    *dataset.Repository
	emitter     *events.Emitter
	conversions iatix.Conversions

	// Workers bounds how many resources UpdateDataset processes at
	// once. Zero means sequential.
	Workers int
}

func New(db database.DB, logger ectologger.Logger, emitter *events.Emitter, conversions iatix.Conversions) *Crawler {
	return &Crawler{
		db:          db,
		logger:      logger,
		engine:      reconcile.NewEngine(logger),
		activities:  activity.NewRepository(db, logger),
		orgs:        organisation.NewRepository(db, logger),
		tombstones:  tombstone.NewRepository(db, logger),
		resources:   resource.NewRepository(db, logger),
		datasets:    dataset.NewRepository(db, logger),
		emitter:     emitter,
		conversions: conversions,
	}
}

// HandleMessage dispatches one queue message to the matching pipeline
// operation.
func (c *Crawler) HandleMessage(ctx context.Context, msg *kafka.IncomingMessage) error {
	switch {
	case msg.UpdateRequest != nil:
		return c.UpdateResource(ctx, msg.UpdateRequest.ResourceURL, msg.UpdateRequest.Force)
	case msg.DeleteDatasetRequest != nil:
		return c.DeleteDataset(ctx, msg.DeleteDatasetRequest.Dataset)
	default:
		return nil
	}
}

// UpdateResource re-imports the stored document of one resource.
// Unless force is set, a document whose hash matches the last parsed
// one is skipped. On any failure the stored activity set is left
// untouched and the resource is annotated with the error.
func (c *Crawler) UpdateResource(ctx context.Context, resourceURL string, force bool) error {
	ctx, span := tracing.StartSpan(ctx, "crawler.Crawler.UpdateResource")
	defer span.End()

	ctx = appcontext.SetResourceURL(ctx, resourceURL)
	log := c.logger.WithContext(ctx).WithField("resource", resourceURL)

	res, err := c.resources.Get(ctx, resourceURL)
	if err != nil {
		return err
	}
	ctx = appcontext.SetDatasetID(ctx, res.DatasetID)

	docHash := fingerprint.Text(string(res.Document))
	if !force && res.LastParsed != nil && res.DocumentHash != nil && !fingerprint.HasChanged(*res.DocumentHash, docHash) {
		log.Debug("Document unchanged since last parse, skipping")
		return nil
	}

	resCtx := models.ResourceContext{URL: res.URL, DatasetID: res.DatasetID}

	reader := iatix.NewActivityReader(res.Document, resCtx, c.conversions, c.logger)
	batch, err := reader.ReadAll()
	if err != nil {
		var xmlErr *iatix.XMLError
		if errors.As(err, &xmlErr) {
			log.WithFields(map[string]any{
				"channel": "xml_parser",
				"dataset": res.DatasetID,
			}).WithError(err).Error("Failed to parse XML document")
		}
		if setErr := c.resources.SetParseError(ctx, res.URL, err.Error()); setErr != nil {
			log.WithError(setErr).Error("Failed to record parse error")
		}
		return err
	}

	batch = c.validateBatch(ctx, resCtx, batch)

	prior, err := c.activities.GetPrior(ctx, res.URL)
	if err != nil {
		return err
	}

	result := c.engine.Reconcile(ctx, resCtx, batch, prior)
	version := iatix.DocumentMetadata(res.Document)
	now := c.engine.Now().UTC()

	insertResult, err := c.persist(ctx, res.URL, version, docHash, now, result)
	if err != nil {
		if setErr := c.resources.SetParseError(ctx, res.URL, err.Error()); setErr != nil {
			log.WithError(setErr).Error("Failed to record parse error")
		}
		return err
	}

	for _, id := range insertResult.Conflicted {
		log.WithFields(map[string]any{
			"channel":         "activity_importer",
			"iati_identifier": id,
			"dataset":         res.DatasetID,
		}).Warnf("Identifier %s already claimed by another resource, keeping existing row", id)
	}

	log.Infof("Parsed %d activities from %s", len(insertResult.Inserted), res.URL)

	if c.emitter != nil {
		priorSet := make(map[string]bool, len(prior))
		for _, p := range prior {
			priorSet[p.IATIIdentifier] = true
		}
		var created, updated []string
		for _, id := range insertResult.Inserted {
			if priorSet[id] {
				updated = append(updated, id)
			} else {
				created = append(created, id)
			}
		}
		c.emitter.EmitCreated(ctx, resCtx, created)
		c.emitter.EmitUpdated(ctx, resCtx, updated)
		c.emitter.EmitDeleted(ctx, resCtx, result.ToTombstone)
	}
	return nil
}

// persist applies one reconciliation result atomically. The stored
// activity set for the resource is replaced wholesale, never patched.
func (c *Crawler) persist(ctx context.Context, resourceURL string, version *string, docHash string, now time.Time, result reconcile.Result) (*activity.InsertResult, error) {
	ctx, span := tracing.StartSpan(ctx, "crawler.Crawler.persist")
	defer span.End()

	txCtx, tx, err := c.db.GetTx(ctx, nil)
	if err != nil {
		return nil, err
	}

	insertResult, err := c.persistInTx(txCtx, resourceURL, version, docHash, now, result)
	if err != nil {
		if rbErr := tx.Rollback(txCtx); rbErr != nil {
			c.logger.WithContext(ctx).WithError(rbErr).Error("Failed to roll back import transaction")
		}
		return nil, err
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, err
	}
	return insertResult, nil
}

func (c *Crawler) persistInTx(ctx context.Context, resourceURL string, version *string, docHash string, now time.Time, result reconcile.Result) (*activity.InsertResult, error) {
	if err := c.internOrganisations(ctx, result.Batch); err != nil {
		return nil, err
	}

	if err := c.activities.DeleteByResource(ctx, resourceURL); err != nil {
		return nil, err
	}

	insertResult, err := c.activities.BulkInsert(ctx, result.Batch)
	if err != nil {
		return nil, err
	}

	if err := c.tombstones.MarkDeleted(ctx, result.ToTombstone, deletionDate(now)); err != nil {
		return nil, err
	}
	if err := c.tombstones.Clear(ctx, result.ToUntombstone); err != nil {
		return nil, err
	}

	if err := c.resources.MarkParsed(ctx, resourceURL, version, docHash, now); err != nil {
		return nil, err
	}
	return insertResult, nil
}

// internOrganisations resolves every organisation referenced by the
// batch to its canonical row, creating rows as needed. Duplicate
// triples within the batch hit storage once.
func (c *Crawler) internOrganisations(ctx context.Context, batch []*models.Activity) error {
	type orgKey struct {
		ref      string
		name     string
		typeCode string
	}
	interned := map[orgKey]*models.Organisation{}

	resolve := func(org *models.Organisation) error {
		if org == nil {
			return nil
		}
		key := orgKey{ref: org.Ref, name: org.Name}
		if org.Type != nil {
			key.typeCode = org.Type.Code
		}
		if canonical, ok := interned[key]; ok {
			org.ID = canonical.ID
			return nil
		}
		if err := c.orgs.Intern(ctx, org); err != nil {
			return err
		}
		interned[key] = org
		return nil
	}

	for _, act := range batch {
		if err := resolve(act.ReportingOrg); err != nil {
			return err
		}
		for i := range act.ParticipatingOrgs {
			if err := resolve(act.ParticipatingOrgs[i].Organisation); err != nil {
				return err
			}
		}
		for i := range act.Transactions {
			if err := resolve(act.Transactions[i].ProviderOrg); err != nil {
				return err
			}
			if err := resolve(act.Transactions[i].ReceiverOrg); err != nil {
				return err
			}
		}
	}
	return nil
}

// validateBatch drops records that fail struct validation. The parser
// guarantees the hard-required fields, so drops here are unexpected and
// logged loudly.
func (c *Crawler) validateBatch(ctx context.Context, resCtx models.ResourceContext, batch []*models.Activity) []*models.Activity {
	valid := batch[:0]
	for _, act := range batch {
		if _, err := utils.Validate(act); err != nil {
			c.logger.WithContext(ctx).WithFields(map[string]any{
				"channel":         "failed_activity",
				"iati_identifier": act.IATIIdentifier,
				"dataset":         resCtx.DatasetID,
				"resource":        resCtx.URL,
			}).WithError(err).Error("Dropping activity that failed validation")
			continue
		}
		valid = append(valid, act)
	}
	return valid
}

// UpdateDataset re-imports every resource belonging to the dataset.
func (c *Crawler) UpdateDataset(ctx context.Context, datasetName string, force bool) error {
	ctx, span := tracing.StartSpan(ctx, "crawler.Crawler.UpdateDataset")
	defer span.End()

	resources, err := c.resources.ListByDataset(ctx, datasetName)
	if err != nil {
		return err
	}

	workers := c.Workers
	if workers < 1 {
		workers = 1
	}

	urls := make(chan string)
	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for url := range urls {
				if err := c.UpdateResource(ctx, url, force); err != nil {
					mu.Lock()
					if firstErr == nil {
						firstErr = err
					}
					mu.Unlock()
				}
			}
		}()
	}

	for _, res := range resources {
		urls <- res.URL
	}
	close(urls)
	wg.Wait()

	return firstErr
}

// DeleteDataset removes the dataset and tombstones every activity its
// resources owned.
func (c *Crawler) DeleteDataset(ctx context.Context, datasetName string) error {
	ctx, span := tracing.StartSpan(ctx, "crawler.Crawler.DeleteDataset")
	defer span.End()

	ctx = appcontext.SetDatasetID(ctx, datasetName)

	identifiers, err := c.activities.ListIdentifiersByDataset(ctx, datasetName)
	if err != nil {
		return err
	}

	txCtx, tx, err := c.db.GetTx(ctx, nil)
	if err != nil {
		return err
	}

	now := c.engine.Now().UTC()
	if err := c.tombstones.MarkDeleted(txCtx, identifiers, deletionDate(now)); err != nil {
		if rbErr := tx.Rollback(txCtx); rbErr != nil {
			c.logger.WithContext(ctx).WithError(rbErr).Error("Failed to roll back dataset delete")
		}
		return err
	}
	if err := c.datasets.Delete(txCtx, datasetName); err != nil {
		if rbErr := tx.Rollback(txCtx); rbErr != nil {
			c.logger.WithContext(ctx).WithError(rbErr).Error("Failed to roll back dataset delete")
		}
		return err
	}
	if err := tx.Commit(txCtx); err != nil {
		return err
	}

	c.logger.WithContext(ctx).WithFields(map[string]any{
		"dataset": datasetName,
		"count":   len(identifiers),
	}).Info("Deleted dataset")

	if c.emitter != nil {
		c.emitter.EmitDeleted(ctx, models.ResourceContext{DatasetID: datasetName}, identifiers)
	}
	return nil
}

// deletionDate truncates a deletion timestamp to UTC midnight so the
// ledger records the day an identifier disappeared.
func deletionDate(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}
