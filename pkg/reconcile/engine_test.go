package reconcile

import (
	"context"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testResource = models.ResourceContext{
	URL:       "http://example.org/activities.xml",
	DatasetID: "example-dataset",
}

func testEngine(now time.Time) *Engine {
	return &Engine{
		Now:    func() time.Time { return now },
		Logger: ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {}),
	}
}

func activity(id, rawXML string) *models.Activity {
	return &models.Activity{
		IATIIdentifier: id,
		ResourceURL:    testResource.URL,
		RawXML:         rawXML,
	}
}

func TestReconcileCarriesLastChangeForUnchangedContent(t *testing.T) {
	imported := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	now := time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC)

	raw := "<iati-activity><iati-identifier>GB-1-1</iati-identifier></iati-activity>"
	prior := []PriorActivity{
		{IATIIdentifier: "GB-1-1", LastChangeDatetime: imported, RawXML: raw},
	}

	result := testEngine(now).Reconcile(context.Background(), testResource, []*models.Activity{activity("GB-1-1", raw)}, prior)

	require.Len(t, result.Batch, 1)
	assert.Equal(t, imported, result.Batch[0].LastChangeDatetime)
	assert.Empty(t, result.ToTombstone)
	assert.Equal(t, []string{"GB-1-1"}, result.ToUntombstone)
}

func TestReconcileStampsChangedContent(t *testing.T) {
	imported := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	now := time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC)

	prior := []PriorActivity{
		{IATIIdentifier: "GB-1-1", LastChangeDatetime: imported, RawXML: "<iati-activity>old</iati-activity>"},
	}

	result := testEngine(now).Reconcile(context.Background(), testResource,
		[]*models.Activity{activity("GB-1-1", "<iati-activity>new</iati-activity>")}, prior)

	require.Len(t, result.Batch, 1)
	assert.Equal(t, now, result.Batch[0].LastChangeDatetime)
}

func TestReconcileStampsNewActivities(t *testing.T) {
	now := time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC)

	result := testEngine(now).Reconcile(context.Background(), testResource,
		[]*models.Activity{activity("GB-1-9", "<iati-activity>fresh</iati-activity>")}, nil)

	require.Len(t, result.Batch, 1)
	assert.Equal(t, now, result.Batch[0].LastChangeDatetime)
	assert.Empty(t, result.ToTombstone)
}

func TestReconcileTombstonesDisappearedIdentifiers(t *testing.T) {
	now := time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC)
	prior := []PriorActivity{
		{IATIIdentifier: "GB-1-1", LastChangeDatetime: now, RawXML: "a"},
		{IATIIdentifier: "GB-1-2", LastChangeDatetime: now, RawXML: "b"},
		{IATIIdentifier: "GB-1-3", LastChangeDatetime: now, RawXML: "c"},
	}

	result := testEngine(now).Reconcile(context.Background(), testResource,
		[]*models.Activity{activity("GB-1-2", "b")}, prior)

	assert.Equal(t, []string{"GB-1-1", "GB-1-3"}, result.ToTombstone)
	assert.Equal(t, []string{"GB-1-2"}, result.ToUntombstone)
}

func TestReconcileTombstoneAndUntombstoneAreExclusive(t *testing.T) {
	now := time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC)
	prior := []PriorActivity{
		{IATIIdentifier: "GB-1-1", LastChangeDatetime: now, RawXML: "a"},
		{IATIIdentifier: "GB-1-2", LastChangeDatetime: now, RawXML: "b"},
	}

	result := testEngine(now).Reconcile(context.Background(), testResource,
		[]*models.Activity{activity("GB-1-1", "a"), activity("GB-1-5", "e")}, prior)

	tombstoned := map[string]bool{}
	for _, id := range result.ToTombstone {
		tombstoned[id] = true
	}
	for _, id := range result.ToUntombstone {
		assert.False(t, tombstoned[id], "identifier %s both tombstoned and untombstoned", id)
	}
	assert.Equal(t, []string{"GB-1-2"}, result.ToTombstone)
	assert.Equal(t, []string{"GB-1-1", "GB-1-5"}, result.ToUntombstone)
}

func TestReconcileDeduplicatesWithinBatch(t *testing.T) {
	now := time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC)

	first := activity("GB-1-1", "<iati-activity>first</iati-activity>")
	second := activity("GB-1-1", "<iati-activity>second</iati-activity>")

	result := testEngine(now).Reconcile(context.Background(), testResource,
		[]*models.Activity{first, second}, nil)

	require.Len(t, result.Batch, 1)
	assert.Same(t, first, result.Batch[0])

	require.Len(t, result.Warnings, 1)
	assert.Equal(t, "iati_identifier", result.Warnings[0].Field)
	assert.Equal(t, "GB-1-1", result.Warnings[0].IATIIdentifier)
	var dup *DuplicateIdentifierError
	require.ErrorAs(t, result.Warnings[0].Err, &dup)
}

func TestReconcileEmptyBatchTombstonesEverything(t *testing.T) {
	now := time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC)
	prior := []PriorActivity{
		{IATIIdentifier: "GB-1-1", LastChangeDatetime: now, RawXML: "a"},
	}

	result := testEngine(now).Reconcile(context.Background(), testResource, nil, prior)

	assert.Empty(t, result.Batch)
	assert.Equal(t, []string{"GB-1-1"}, result.ToTombstone)
	assert.Empty(t, result.ToUntombstone)
}
