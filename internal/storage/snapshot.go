package storage

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/klauspost/compress/zstd"

	"github.com/jwebster45206/farm-engine/pkg/state"
)

// zstdMagic starts every zstd frame. Plain snapshots are JSON objects and
// start with '{', so both forms can live under the same key.
var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

var (
	encoder, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
	decoder, _ = zstd.NewReader(nil)
)

// EncodeSnapshot serialises ws, compressing it when compress is set.
func EncodeSnapshot(ws *state.WorldState, compress bool) ([]byte, error) {
	data, err := json.Marshal(ws)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal world: %w", err)
	}
	if !compress {
		return data, nil
	}
	return encoder.EncodeAll(data, make([]byte, 0, len(data)/2)), nil
}

// DecodeSnapshot reads a snapshot written by EncodeSnapshot in either form.
func DecodeSnapshot(data []byte) (*state.WorldState, error) {
	if bytes.HasPrefix(data, zstdMagic) {
		raw, err := decoder.DecodeAll(data, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to decompress world: %w", err)
		}
		data = raw
	}

	var ws state.WorldState
	if err := json.Unmarshal(data, &ws); err != nil {
		return nil, fmt.Errorf("failed to unmarshal world: %w", err)
	}
	return &ws, nil
}
