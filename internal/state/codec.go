package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

var (
	// ErrDecode wraps failures to parse an incoming blob.
	ErrDecode = errors.New("decode state blob")
	// ErrEncode wraps failures to serialize the outgoing state.
	ErrEncode = errors.New("encode state blob")
)

// EmptyBlob is the blob written when encoding fails.
const EmptyBlob = "{}"

// Map is the decoded blob, keyed by product.
type Map map[string]Product

// Clone deep-copies the map.
func (m Map) Clone() Map {
	out := make(Map, len(m))
	for k, v := range m {
		out[k] = v.Clone()
	}
	return out
}

// Codec converts between the opaque blob and a Map for one Kind.
type Codec struct {
	kind   Kind
	logger *zap.Logger
}

// NewCodec creates a codec for kind. A nil logger discards output.
func NewCodec(kind Kind, logger *zap.Logger) *Codec {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Codec{kind: kind, logger: logger.With(zap.String("component", "state_codec"))}
}

// Kind returns the schema this codec reads and writes.
func (c *Codec) Kind() Kind { return c.kind }

// New returns the fresh state for a product seen for the first time.
func (c *Codec) New() Product { return NewProduct(c.kind) }

// DecodeStrict parses blob. Entries that do not match the schema are dropped
// and reported in the returned error alongside the entries that did parse.
func (c *Codec) DecodeStrict(blob string) (Map, error) {
	out := Map{}
	if strings.TrimSpace(blob) == "" {
		return out, nil
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(blob), &raw); err != nil {
		return Map{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	var errs []error
	for product, entry := range raw {
		p, err := decodeProduct(c.kind, entry)
		if err != nil {
			errs = append(errs, fmt.Errorf("%w: product %s: %v", ErrDecode, product, err))
			continue
		}
		out[product] = p
	}
	return out, errors.Join(errs...)
}

// Decode never fails: a malformed blob yields an empty map, a malformed
// entry yields no state for that product.
func (c *Codec) Decode(blob string) Map {
	m, err := c.DecodeStrict(blob)
	if err != nil {
		c.logger.Warn("discarding unreadable trader data", zap.Error(err), zap.Int("kept", len(m)))
	}
	return m
}

// Encode serializes m. Callers fall back to EmptyBlob on error.
func (c *Codec) Encode(m Map) (string, error) {
	if m == nil {
		m = Map{}
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrEncode, err)
	}
	return string(b), nil
}
