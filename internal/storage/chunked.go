package storage

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// DefaultChunkSize keeps each stored value under the host store's
// per-value limit.
const DefaultChunkSize = 4096

var errIncompressible = errors.New("incompressible")

// chunkMeta is stored under <key>_meta and describes how to reassemble
// <key>_chunk_0 .. <key>_chunk_<n-1>.
type chunkMeta struct {
	Chunks      int         `json:"chunks"`
	Size        int         `json:"size"`
	Compression Compression `json:"compression"`
}

func metaKey(key string) string         { return key + "_meta" }
func chunkKey(key string, i int) string { return key + "_chunk_" + strconv.Itoa(i) }

// SetLarge stores value under key split across as many chunks as the
// configured chunk size requires. Chunks are written before the meta
// record; chunks left over from a longer previous value are deleted.
// An empty value removes the meta record and every chunk.
func (g *Gateway) SetLarge(ctx context.Context, key, value string) error {
	var prev chunkMeta
	hadPrev, _ := g.LoadJSON(ctx, metaKey(key), &prev)

	if value == "" {
		if err := g.write(ctx, metaKey(key), ""); err != nil {
			return err
		}
		if hadPrev {
			g.deleteChunks(ctx, key, 0, prev.Chunks)
		}
		return nil
	}

	encoded, meta, err := g.encodeLarge(value)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", key, err)
	}
	parts := splitChunks(encoded, g.chunkSize)
	meta.Chunks = len(parts)

	for i, part := range parts {
		if err := g.write(ctx, chunkKey(key, i), part); err != nil {
			return fmt.Errorf("writing %s chunk %d: %w", key, i, err)
		}
	}
	if err := g.SaveJSON(ctx, metaKey(key), meta); err != nil {
		return err
	}
	if hadPrev && prev.Chunks > meta.Chunks {
		g.deleteChunks(ctx, key, meta.Chunks, prev.Chunks)
	}
	return nil
}

// GetLarge reassembles a value written by SetLarge. It reports false
// when no meta record exists.
func (g *Gateway) GetLarge(ctx context.Context, key string) (string, bool, error) {
	var meta chunkMeta
	ok, err := g.LoadJSON(ctx, metaKey(key), &meta)
	if err != nil || !ok {
		return "", false, err
	}

	var b strings.Builder
	for i := range meta.Chunks {
		part, ok := g.Get(ctx, chunkKey(key, i))
		if !ok {
			return "", false, fmt.Errorf("reading %s: chunk %d of %d missing", key, i, meta.Chunks)
		}
		b.WriteString(part)
	}

	value, err := decodeLarge(b.String(), meta)
	if err != nil {
		return "", false, fmt.Errorf("decoding %s: %w", key, err)
	}
	return value, true, nil
}

func (g *Gateway) encodeLarge(value string) (string, chunkMeta, error) {
	meta := chunkMeta{Size: len(value), Compression: g.compression}
	if g.compression == CompressionNone {
		return value, meta, nil
	}
	packed, err := compress([]byte(value), g.compression)
	if errors.Is(err, errIncompressible) {
		meta.Compression = CompressionNone
		return value, meta, nil
	}
	if err != nil {
		return "", meta, err
	}
	return base64.StdEncoding.EncodeToString(packed), meta, nil
}

func decodeLarge(stored string, meta chunkMeta) (string, error) {
	if meta.Compression == "" || meta.Compression == CompressionNone {
		if len(stored) != meta.Size {
			return "", fmt.Errorf("size %d does not match expected %d", len(stored), meta.Size)
		}
		return stored, nil
	}
	packed, err := base64.StdEncoding.DecodeString(stored)
	if err != nil {
		return "", fmt.Errorf("base64: %w", err)
	}
	out, err := decompress(packed, meta.Compression, meta.Size)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func (g *Gateway) deleteChunks(ctx context.Context, key string, from, to int) {
	for i := from; i < to; i++ {
		g.Set(ctx, chunkKey(key, i), "")
	}
}

// splitChunks cuts s into pieces of at most size bytes without
// splitting a UTF-8 sequence.
func splitChunks(s string, size int) []string {
	var parts []string
	for len(s) > size {
		cut := size
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		if cut == 0 {
			cut = size
		}
		parts = append(parts, s[:cut])
		s = s[cut:]
	}
	return append(parts, s)
}

// LoadLargeJSON decodes a chunked value into v.
func (g *Gateway) LoadLargeJSON(ctx context.Context, key string, v any) (bool, error) {
	raw, ok, err := g.GetLarge(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return false, fmt.Errorf("decoding %s: %w", key, err)
	}
	return true, nil
}

// SaveLargeJSON encodes v and stores it chunked under key.
func (g *Gateway) SaveLargeJSON(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", key, err)
	}
	return g.SetLarge(ctx, key, string(data))
}
