package geocn

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/andybalholm/brotli"
)

// ErrCorruptPayload is returned (or panicked with) when a compressed payload
// cannot be turned back into the text it was built from.
var ErrCorruptPayload = errors.New("geocn: corrupt payload")

// DecompressFunc turns a whole compressed buffer into its uncompressed bytes.
type DecompressFunc func(payload []byte) ([]byte, error)

// Decompress decodes a complete brotli stream held in memory.
func Decompress(payload []byte) ([]byte, error) {
	if len(payload) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrCorruptPayload)
	}
	r := brotli.NewReader(bytes.NewReader(payload))
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: brotli: %w", ErrCorruptPayload, err)
	}
	return out, nil
}

// Compress encodes text as a single brotli stream at the given quality
// (brotli.BestSpeed through brotli.BestCompression).
func Compress(text []byte, quality int) ([]byte, error) {
	if quality < brotli.BestSpeed || quality > brotli.BestCompression {
		return nil, fmt.Errorf("brotli quality %d out of range [%d, %d]", quality, brotli.BestSpeed, brotli.BestCompression)
	}

	var b bytes.Buffer
	w := brotli.NewWriterOptions(&b, brotli.WriterOptions{
		Quality: quality,
		LGWin:   24,
	})
	if _, err := w.Write(text); err != nil {
		return nil, fmt.Errorf("brotli write: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("brotli close: %w", err)
	}
	return b.Bytes(), nil
}
