package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("record not found")

const (
	insertDecision = `
		INSERT INTO decisions (id, node_id, strategy, kind, sim_timestamp, order_count,
			failed_products, conversions, trader_data, latency_us, created_at_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	insertOrder = `
		INSERT INTO decision_orders (id, decision_id, product, side, price, quantity)
		VALUES (?, ?, ?, ?, ?, ?)`

	selectDecision = `
		SELECT id, node_id, strategy, kind, sim_timestamp, order_count, failed_products,
			conversions, trader_data, latency_us, created_at_ms
		FROM decisions`
)

// Queries provides journal reads and the statements used to write it.
type Queries struct {
	d *Database
}

// Queries returns the query helper bound to d.
func (d *Database) Queries() *Queries {
	return &Queries{d: d}
}

// InsertDecisionStmt returns the insert statement and args for rec.
func (q *Queries) InsertDecisionStmt(rec DecisionRecord) (string, []any) {
	var conv sql.NullInt64
	if rec.Conversions != nil {
		conv = sql.NullInt64{Int64: int64(*rec.Conversions), Valid: true}
	}
	return q.d.Rebind(insertDecision), []any{
		rec.ID, rec.NodeID, rec.Strategy, rec.Kind, rec.SimTimestamp, rec.OrderCount,
		rec.FailedProducts, conv, rec.TraderData, rec.LatencyMicros, rec.CreatedAt.UnixMilli(),
	}
}

// InsertOrderStmt returns the insert statement and args for o.
func (q *Queries) InsertOrderStmt(o OrderRecord) (string, []any) {
	return q.d.Rebind(insertOrder), []any{o.ID, o.DecisionID, o.Product, o.Side, o.Price, o.Quantity}
}

// RecentDecisions returns the newest decisions first, without orders.
func (q *Queries) RecentDecisions(ctx context.Context, limit int) ([]DecisionRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := q.d.DB.QueryContext(ctx, q.d.Rebind(selectDecision+`
		ORDER BY created_at_ms DESC, sim_timestamp DESC
		LIMIT ?`), limit)
	if err != nil {
		return nil, fmt.Errorf("query decisions: %w", err)
	}
	defer rows.Close()

	var out []DecisionRecord
	for rows.Next() {
		rec, err := scanDecision(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// DecisionByID returns one decision with its orders.
func (q *Queries) DecisionByID(ctx context.Context, id string) (*DecisionRecord, error) {
	row := q.d.DB.QueryRowContext(ctx, q.d.Rebind(selectDecision+` WHERE id = ?`), id)
	rec, err := scanDecision(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	rec.Orders, err = q.OrdersByDecision(ctx, id)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// OrdersByDecision returns the orders of one decision ordered by product.
func (q *Queries) OrdersByDecision(ctx context.Context, decisionID string) ([]OrderRecord, error) {
	rows, err := q.d.DB.QueryContext(ctx, q.d.Rebind(`
		SELECT id, decision_id, product, side, price, quantity
		FROM decision_orders
		WHERE decision_id = ?
		ORDER BY product, id
	`), decisionID)
	if err != nil {
		return nil, fmt.Errorf("query decision orders: %w", err)
	}
	defer rows.Close()

	var out []OrderRecord
	for rows.Next() {
		var o OrderRecord
		if err := rows.Scan(&o.ID, &o.DecisionID, &o.Product, &o.Side, &o.Price, &o.Quantity); err != nil {
			return nil, fmt.Errorf("scan decision order: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDecision(s scanner) (DecisionRecord, error) {
	var (
		rec       DecisionRecord
		conv      sql.NullInt64
		createdMs int64
	)
	err := s.Scan(&rec.ID, &rec.NodeID, &rec.Strategy, &rec.Kind, &rec.SimTimestamp, &rec.OrderCount,
		&rec.FailedProducts, &conv, &rec.TraderData, &rec.LatencyMicros, &createdMs)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return rec, err
		}
		return rec, fmt.Errorf("scan decision: %w", err)
	}
	if conv.Valid {
		v := int(conv.Int64)
		rec.Conversions = &v
	}
	rec.CreatedAt = time.UnixMilli(createdMs).UTC()
	return rec, nil
}
