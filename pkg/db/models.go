package db

import "time"

// DecisionRecord is one journaled engine run.
type DecisionRecord struct {
	ID             string        `json:"id"`
	NodeID         string        `json:"node_id"`
	Strategy       string        `json:"strategy"`
	Kind           string        `json:"kind"`
	SimTimestamp   int64         `json:"sim_timestamp"`
	OrderCount     int           `json:"order_count"`
	FailedProducts int           `json:"failed_products"`
	Conversions    *int          `json:"conversions"`
	TraderData     string        `json:"trader_data"`
	LatencyMicros  int64         `json:"latency_us"`
	CreatedAt      time.Time     `json:"created_at"`
	Orders         []OrderRecord `json:"orders,omitempty"`
}

// OrderRecord is one order emitted by a journaled run.
type OrderRecord struct {
	ID         string  `json:"id"`
	DecisionID string  `json:"decision_id"`
	Product    string  `json:"product"`
	Side       string  `json:"side"`
	Price      float64 `json:"price"`
	Quantity   int     `json:"quantity"`
}
