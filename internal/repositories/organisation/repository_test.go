package organisation

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/fern/pkg/codelists"
	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type internCall struct {
	ref      string
	name     string
	typeCode string
}

// fakeTx answers the interning upsert with a stable id per
// (ref, name, type) triple, standing in for the unique constraint.
type fakeTx struct {
	ids   map[internCall]uuid.UUID
	calls []internCall
}

func newFakeTx() *fakeTx {
	return &fakeTx{ids: map[internCall]uuid.UUID{}}
}

func (t *fakeTx) IsOpen() bool                       { return true }
func (t *fakeTx) Commit(ctx context.Context) error   { return nil }
func (t *fakeTx) Rollback(ctx context.Context) error { return nil }
func (t *fakeTx) Rebind(query string) string         { return query }

func (t *fakeTx) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return nil, nil
}

func (t *fakeTx) GetContext(ctx context.Context, dest any, query string, args ...any) error {
	call := internCall{
		ref:      args[1].(string),
		name:     args[2].(string),
		typeCode: args[3].(string),
	}
	t.calls = append(t.calls, call)

	id, ok := t.ids[call]
	if !ok {
		id = uuid.New()
		t.ids[call] = id
	}
	*dest.(*uuid.UUID) = id
	return nil
}

func (t *fakeTx) SelectContext(ctx context.Context, dest any, query string, args ...any) error {
	return nil
}

func (t *fakeTx) QueryxContext(ctx context.Context, query string, args ...any) (*sqlx.Rows, error) {
	return nil, nil
}

type fakeDB struct {
	tx *fakeTx
}

func (d *fakeDB) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return nil, nil
}
func (d *fakeDB) Close() error { return nil }
func (d *fakeDB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return nil, nil
}
func (d *fakeDB) GetContext(ctx context.Context, dest any, query string, args ...any) error {
	return nil
}
func (d *fakeDB) SelectContext(ctx context.Context, dest any, query string, args ...any) error {
	return nil
}
func (d *fakeDB) Ping() error                            { return nil }
func (d *fakeDB) PingContext(ctx context.Context) error  { return nil }
func (d *fakeDB) SetConnMaxLifetime(dur time.Duration)   {}
func (d *fakeDB) SetMaxIdleConns(n int)                  {}
func (d *fakeDB) SetMaxOpenConns(n int)                  {}
func (d *fakeDB) Stats() sql.DBStats                     { return sql.DBStats{} }
func (d *fakeDB) Unsafe() *sqlx.DB                       { return nil }
func (d *fakeDB) GetTx(ctx context.Context, opts *sql.TxOptions) (context.Context, database.Tx, error) {
	return ctx, d.tx, nil
}

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func TestInternResolvesCanonicalID(t *testing.T) {
	tx := newFakeTx()
	repo := NewRepository(&fakeDB{tx: tx}, testLogger())

	first := &models.Organisation{Ref: "GB-GOV-1", Name: "DFID", Type: &codelists.Value{Code: "10"}}
	require.NoError(t, repo.Intern(context.Background(), first))
	assert.NotEqual(t, uuid.Nil, first.ID)

	second := &models.Organisation{Ref: "GB-GOV-1", Name: "DFID", Type: &codelists.Value{Code: "10"}}
	require.NoError(t, repo.Intern(context.Background(), second))
	assert.Equal(t, first.ID, second.ID)

	require.Len(t, tx.calls, 2)
	assert.Equal(t, "GB-GOV-1", tx.calls[0].ref)
	assert.Equal(t, "DFID", tx.calls[0].name)
	assert.Equal(t, "10", tx.calls[0].typeCode)
}

func TestInternStoresEmptyStringForMissingType(t *testing.T) {
	tx := newFakeTx()
	repo := NewRepository(&fakeDB{tx: tx}, testLogger())

	untyped := &models.Organisation{Ref: "XM-DAC-41114", Name: "UNDP"}
	require.NoError(t, repo.Intern(context.Background(), untyped))

	require.Len(t, tx.calls, 1)
	assert.Equal(t, "", tx.calls[0].typeCode)

	// a typed organisation with the same ref and name is a different row
	typed := &models.Organisation{Ref: "XM-DAC-41114", Name: "UNDP", Type: &codelists.Value{Code: "40"}}
	require.NoError(t, repo.Intern(context.Background(), typed))
	assert.NotEqual(t, untyped.ID, typed.ID)
}
