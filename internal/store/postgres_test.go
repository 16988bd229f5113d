package store

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/lead-master/internal/model"
)

func newMockStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewPostgresWithPool(mock), mock
}

func TestPostgresInsertSignal(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO signals").
		WithArgs(pgxmock.AnyArg(), "Acme", "20260815", "Headline", "https://n.example.com/1",
			model.HashURL("https://n.example.com/1"), "scan", false, "",
			pgxmock.AnyArg(), pgxmock.AnyArg(), "", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	inserted, err := s.InsertSignal(context.Background(), model.Signal{
		Company:     "Acme",
		Date:        "20260815",
		Headline:    "Headline",
		URL:         "https://n.example.com/1",
		SourceLabel: model.SignalSourceScan,
	})
	require.NoError(t, err)
	assert.True(t, inserted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresInsertSignalConflict(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO signals").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))

	inserted, err := s.InsertSignal(context.Background(), model.Signal{
		Company: "Acme", Date: "20260815", Headline: "h",
		URL: "https://n.example.com/dup", SourceLabel: model.SignalSourceScan,
	})
	require.NoError(t, err)
	assert.False(t, inserted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSetSignalSummaryNotFound(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec("UPDATE signals SET summary").
		WithArgs("text", "missing-id").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.SetSignalSummary(context.Background(), "missing-id", "text")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSummaryCache(t *testing.T) {
	s, mock := newMockStore(t)
	hash := model.HashURL("https://n.example.com/story")

	mock.ExpectQuery("SELECT summary FROM summary_cache").
		WithArgs(hash).
		WillReturnRows(pgxmock.NewRows([]string{"summary"}).AddRow("cached text"))

	got, ok, err := s.GetCachedSummary(context.Background(), hash)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "cached text", got)

	mock.ExpectQuery("SELECT summary FROM summary_cache").
		WithArgs("unknown").
		WillReturnRows(pgxmock.NewRows([]string{"summary"}))

	_, ok, err = s.GetCachedSummary(context.Background(), "unknown")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresPutKeywordCache(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO keyword_cache").
		WithArgs(`["plant expansion","warehouse"]`, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := s.PutKeywordCache(context.Background(), []string{"plant expansion", "warehouse"}, time.Now())
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresMigrate(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS leads").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
