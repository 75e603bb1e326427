package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/claude/repflow/internal/models"
)

// Gateway routes reads and writes to a primary store and falls back to
// a local store whenever the primary errors. A missing key on the
// primary is an answer, not an error, so it does not trigger fallback.
type Gateway struct {
	primary  Store
	fallback Store
	log      *slog.Logger

	chunkSize   int
	compression Compression
}

// GatewayOption configures a Gateway.
type GatewayOption func(*Gateway)

// WithChunkSize sets the maximum characters per stored chunk for large values.
func WithChunkSize(n int) GatewayOption {
	return func(g *Gateway) {
		if n > 0 {
			g.chunkSize = n
		}
	}
}

// WithCompression sets the codec applied to large values before chunking.
func WithCompression(c Compression) GatewayOption {
	return func(g *Gateway) { g.compression = c }
}

// NewGateway creates a Gateway. primary may be nil, in which case every
// call goes straight to fallback.
func NewGateway(primary, fallback Store, log *slog.Logger, opts ...GatewayOption) *Gateway {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	g := &Gateway{
		primary:     primary,
		fallback:    fallback,
		log:         log,
		chunkSize:   DefaultChunkSize,
		compression: CompressionNone,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Get returns the value for key. Failures on both stores are logged and
// reported as a missing key.
func (g *Gateway) Get(ctx context.Context, key string) (string, bool) {
	value, ok, err := g.get(ctx, key)
	if err != nil {
		g.log.Error("storage read failed", "key", key, "error", err)
		return "", false
	}
	return value, ok
}

// Set writes value under key; an empty value deletes. Reports whether a
// store accepted the write.
func (g *Gateway) Set(ctx context.Context, key, value string) bool {
	if err := g.set(ctx, key, value); err != nil {
		g.log.Error("storage write failed", "key", key, "error", err)
		return false
	}
	return true
}

func (g *Gateway) get(ctx context.Context, key string) (string, bool, error) {
	if g.primary != nil {
		value, ok, err := g.primary.Get(ctx, key)
		if err == nil {
			return value, ok, nil
		}
		g.log.Warn("primary store read failed, using local", "key", key, "error", err)
	}
	if g.fallback == nil {
		return "", false, models.ErrStorage
	}
	value, ok, err := g.fallback.Get(ctx, key)
	if err != nil {
		return "", false, fmt.Errorf("%w: %v", models.ErrStorage, err)
	}
	return value, ok, nil
}

func (g *Gateway) set(ctx context.Context, key, value string) error {
	if g.primary != nil {
		err := g.primary.Set(ctx, key, value)
		if err == nil {
			return nil
		}
		g.log.Warn("primary store write failed, using local", "key", key, "error", err)
	}
	if g.fallback == nil {
		return models.ErrStorage
	}
	if err := g.fallback.Set(ctx, key, value); err != nil {
		return fmt.Errorf("%w: %v", models.ErrStorage, err)
	}
	return nil
}

// LoadJSON decodes the value under key into v. It reports false when
// the key is missing (or unreadable, which is logged).
func (g *Gateway) LoadJSON(ctx context.Context, key string, v any) (bool, error) {
	raw, ok := g.Get(ctx, key)
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return false, fmt.Errorf("decoding %s: %w", key, err)
	}
	return true, nil
}

// SaveJSON encodes v and writes it under key. A nil v deletes the key.
// The returned error wraps models.ErrStorage when no store took the write.
func (g *Gateway) SaveJSON(ctx context.Context, key string, v any) error {
	if v == nil {
		return g.write(ctx, key, "")
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", key, err)
	}
	return g.write(ctx, key, string(data))
}

func (g *Gateway) write(ctx context.Context, key, value string) error {
	if err := g.set(ctx, key, value); err != nil {
		g.log.Error("storage write failed", "key", key, "error", err)
		return err
	}
	return nil
}
