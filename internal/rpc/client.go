package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"signal-core/internal/engine"
	"signal-core/internal/market"
)

// Client calls a remote Decider.
type Client struct {
	conn    *grpc.ClientConn
	timeout time.Duration
}

type tokenCreds string

func (t tokenCreds) GetRequestMetadata(context.Context, ...string) (map[string]string, error) {
	return map[string]string{authHeaderKey: "Bearer " + string(t)}, nil
}

func (tokenCreds) RequireTransportSecurity() bool { return false }

// WithToken attaches a bearer token to every call.
func WithToken(token string) grpc.DialOption {
	return grpc.WithPerRPCCredentials(tokenCreds(token))
}

// NewClient connects to addr without transport security; extra options are
// appended.
func NewClient(addr string, opts ...grpc.DialOption) (*Client, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, err
	}
	return &Client{conn: conn, timeout: 2 * time.Second}, nil
}

func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// Run sends one trading state and decodes the reply.
func (c *Client) Run(ctx context.Context, ts market.TradingState) (engine.Result, error) {
	body, err := json.Marshal(ts)
	if err != nil {
		return engine.Result{}, fmt.Errorf("encode trading state: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	out := new(wrapperspb.BytesValue)
	if err := c.conn.Invoke(ctx, runMethod, wrapperspb.Bytes(body), out); err != nil {
		return engine.Result{}, err
	}

	var res engine.Result
	if err := json.Unmarshal(out.GetValue(), &res); err != nil {
		return engine.Result{}, fmt.Errorf("decode result: %w", err)
	}
	return res, nil
}
