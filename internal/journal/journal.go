// Package journal records every engine decision in the database.
package journal

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"signal-core/internal/engine"
	"signal-core/internal/persistence"
	"signal-core/pkg/db"
)

// Journal is an engine.Observer that queues one decision row plus one row per
// emitted order. Writes are batched; reads flush first.
type Journal struct {
	database *db.Database
	queries  *db.Queries
	writer   *persistence.BatchWriter
	nodeID   string
	logger   *zap.Logger
}

// Options tune the underlying batch writer.
type Options struct {
	BatchSize     int
	FlushInterval time.Duration
	OnFlush       persistence.FlushHook
}

// New creates a journal on an already migrated database.
func New(database *db.Database, nodeID string, logger *zap.Logger, opts Options) *Journal {
	if logger == nil {
		logger = zap.NewNop()
	}
	w := persistence.NewBatchWriter(database.DB, opts.BatchSize, opts.FlushInterval, logger)
	if opts.OnFlush != nil {
		w.OnFlush(opts.OnFlush)
	}
	return &Journal{
		database: database,
		queries:  database.Queries(),
		writer:   w,
		nodeID:   nodeID,
		logger:   logger.With(zap.String("component", "journal")),
	}
}

// ObserveDecision queues d for writing.
func (j *Journal) ObserveDecision(d engine.Decision) {
	rec := db.DecisionRecord{
		ID:             d.ID,
		NodeID:         j.nodeID,
		Strategy:       d.Strategy,
		Kind:           string(d.Kind),
		SimTimestamp:   d.Timestamp,
		OrderCount:     d.OrderCount(),
		FailedProducts: len(d.Failures()),
		Conversions:    d.Result.Conversions,
		TraderData:     d.Result.TraderData,
		LatencyMicros:  d.Latency.Microseconds(),
		CreatedAt:      time.Now(),
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}

	ops := make([]persistence.WriteOp, 0, 1+rec.OrderCount)
	q, args := j.queries.InsertDecisionStmt(rec)
	ops = append(ops, persistence.WriteOp{Query: q, Args: args})

	for _, p := range d.Products {
		for _, o := range p.Orders {
			q, args := j.queries.InsertOrderStmt(db.OrderRecord{
				ID:         uuid.NewString(),
				DecisionID: rec.ID,
				Product:    p.Product,
				Side:       o.Side(),
				Price:      o.Price,
				Quantity:   o.Quantity,
			})
			ops = append(ops, persistence.WriteOp{Query: q, Args: args})
		}
	}
	j.writer.WriteGroup(ops...)
}

// Recent returns the newest decisions.
func (j *Journal) Recent(ctx context.Context, limit int) ([]db.DecisionRecord, error) {
	if err := j.writer.Flush(); err != nil {
		j.logger.Warn("flush before read failed", zap.Error(err))
	}
	return j.queries.RecentDecisions(ctx, limit)
}

// Get returns one decision with its orders.
func (j *Journal) Get(ctx context.Context, id string) (*db.DecisionRecord, error) {
	if err := j.writer.Flush(); err != nil {
		j.logger.Warn("flush before read failed", zap.Error(err))
	}
	return j.queries.DecisionByID(ctx, id)
}

// Stats exposes the batch writer counters.
func (j *Journal) Stats() persistence.BatchWriterMetrics {
	return j.writer.GetMetrics()
}

// Close flushes pending rows. The database is left open.
func (j *Journal) Close() error {
	return j.writer.Close()
}
