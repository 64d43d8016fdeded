package persistence

import (
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func memDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	_, err = db.Exec(`CREATE TABLE kv (k TEXT PRIMARY KEY, v INTEGER)`)
	require.NoError(t, err)
	return db
}

func count(t *testing.T, db *sql.DB) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM kv`).Scan(&n))
	return n
}

func TestBatchWriterFlushesOnSize(t *testing.T) {
	db := memDB(t)
	bw := NewBatchWriter(db, 2, time.Hour, nil)
	defer bw.Close()

	bw.WriteQuery(`INSERT INTO kv VALUES (?, ?)`, "a", 1)
	assert.Equal(t, 1, bw.Pending())
	bw.WriteQuery(`INSERT INTO kv VALUES (?, ?)`, "b", 2)

	assert.Equal(t, 0, bw.Pending())
	assert.Equal(t, 2, count(t, db))
	m := bw.GetMetrics()
	assert.Equal(t, uint64(2), m.TotalWrites)
	assert.Equal(t, uint64(1), m.TotalBatches)
}

func TestBatchWriterRollsBackWholeBatch(t *testing.T) {
	db := memDB(t)
	bw := NewBatchWriter(db, 100, time.Hour, nil)
	defer bw.Close()

	var hooked error
	bw.OnFlush(func(ops int, _ time.Duration, err error) { hooked = err })

	bw.WriteGroup(
		WriteOp{Query: `INSERT INTO kv VALUES (?, ?)`, Args: []any{"a", 1}},
		WriteOp{Query: `INSERT INTO kv VALUES (?, ?)`, Args: []any{"a", 2}},
	)
	err := bw.Flush()
	require.Error(t, err)
	assert.Equal(t, err, hooked)
	assert.Equal(t, 0, count(t, db))
	assert.Equal(t, uint64(1), bw.GetMetrics().TotalErrors)
}

func TestBatchWriterCloseFlushes(t *testing.T) {
	db := memDB(t)
	bw := NewBatchWriter(db, 100, time.Hour, nil)
	bw.WriteQuery(`INSERT INTO kv VALUES (?, ?)`, "a", 1)

	require.NoError(t, bw.Close())
	require.NoError(t, bw.Close())
	assert.Equal(t, 1, count(t, db))
}
