package wire

import (
	"fmt"

	"github.com/klauspost/compress/zstd"

	"github.com/tablegrid-io/filter-go"
)

// Compressor encodes trees with ZStandard compression. Construction is
// the expensive part; a single instance serves many payloads.
type Compressor struct {
	encoder *zstd.Encoder
}

// NewCompressor creates a compressing encoder at the default zstd level,
// which trades little ratio for much better speed than the higher levels.
// Release it with Close when no longer needed.
func NewCompressor() (*Compressor, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("wire: failed to create zstd encoder: %w", err)
	}
	return &Compressor{encoder: encoder}, nil
}

// EncodeTree serializes a tree to MessagePack and compresses it.
// Safe for concurrent use from multiple goroutines.
func (c *Compressor) EncodeTree(t filter.Tree) ([]byte, error) {
	data, err := Encode(t)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return []byte{}, nil
	}

	return c.encoder.EncodeAll(data, make([]byte, 0, len(data)/2)), nil
}

// Close releases the underlying zstd encoder.
func (c *Compressor) Close() error {
	if c.encoder != nil {
		return c.encoder.Close()
	}
	return nil
}

// Decompressor decodes compressed tree payloads. Like Compressor, one
// instance is meant to be shared rather than built per payload.
type Decompressor struct {
	decoder *zstd.Decoder
}

// NewDecompressor creates a decompressing decoder. Release it with Close
// when no longer needed.
func NewDecompressor() (*Decompressor, error) {
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("wire: failed to create zstd decoder: %w", err)
	}
	return &Decompressor{decoder: decoder}, nil
}

// DecodeTree decompresses a payload and deserializes the tree.
// Safe for concurrent use from multiple goroutines.
func (d *Decompressor) DecodeTree(compressed []byte) (filter.Tree, error) {
	if len(compressed) == 0 {
		return nil, nil
	}

	data, err := d.decoder.DecodeAll(compressed, nil)
	if err != nil {
		return nil, fmt.Errorf("wire: failed to decompress: %w", err)
	}
	return Decode(data)
}

// Close releases the underlying zstd decoder.
func (d *Decompressor) Close() {
	if d.decoder != nil {
		d.decoder.Close()
	}
}
