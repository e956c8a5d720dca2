package geocn_test

import (
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/andybalholm/brotli"

	"github.com/locutra/geocn"
)

// hello_geo.br is "hello geo" compressed by an independent brotli encoder.
//
//go:embed testdata/hello_geo.br
var helloGeoPayload []byte

func mustCompress(t *testing.T, text string) []byte {
	t.Helper()
	payload, err := geocn.Compress([]byte(text), brotli.BestCompression)
	if err != nil {
		t.Fatalf("Compress() error = %v", err)
	}
	return payload
}

func digestOf(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// countingDecompressor wraps Decompress and counts its invocations.
func countingDecompressor(calls *atomic.Int32) geocn.DecompressFunc {
	return func(payload []byte) ([]byte, error) {
		calls.Add(1)
		return geocn.Decompress(payload)
	}
}

// sampleText is long enough that its brotli stream spans many bytes.
func sampleText() string {
	var b strings.Builder
	for i := 0; i < 500; i++ {
		fmt.Fprintf(&b, "region-%04d:%d,", i, i*i%977)
	}
	return b.String()
}

func TestProvider_HelloGeoFixture(t *testing.T) {
	p := geocn.NewProvider(helloGeoPayload)
	got, err := p.Text()
	if err != nil {
		t.Fatalf("Text() error = %v", err)
	}
	if got != "hello geo" {
		t.Fatalf("Text() = %q, want %q", got, "hello geo")
	}
}

func TestProvider_RoundTrip(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"hello geo", "hello geo"},
		{"chinese", `{"name":"广东省","adcode":440000}`},
		{"long", sampleText()},
		{"single byte", "x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := geocn.NewProvider(mustCompress(t, tt.text), geocn.WithDigest(digestOf(tt.text)))
			got, err := p.Text()
			if err != nil {
				t.Fatalf("Text() error = %v", err)
			}
			if got != tt.text {
				t.Fatalf("Text() = %q, want %q", got, tt.text)
			}
			if got := p.MustText(); got != tt.text {
				t.Fatalf("MustText() = %q, want %q", got, tt.text)
			}
		})
	}
}

func TestProvider_Deterministic(t *testing.T) {
	p := geocn.NewProvider(mustCompress(t, sampleText()))
	first := p.MustText()
	for i := 0; i < 100; i++ {
		if got := p.MustText(); got != first {
			t.Fatalf("call %d returned different text", i)
		}
	}
}

func TestProvider_DecompressesOnce(t *testing.T) {
	var calls atomic.Int32
	p := geocn.NewProvider(mustCompress(t, "hello geo"), geocn.WithDecompressor(countingDecompressor(&calls)))

	if n := calls.Load(); n != 0 {
		t.Fatalf("decompressed %d times before first use, want 0", n)
	}
	for i := 0; i < 5; i++ {
		if got := p.MustText(); got != "hello geo" {
			t.Fatalf("MustText() = %q", got)
		}
	}
	if n := calls.Load(); n != 1 {
		t.Fatalf("decompressed %d times, want 1", n)
	}
}

func TestProvider_ConcurrentFirstCalls(t *testing.T) {
	text := sampleText()
	var calls atomic.Int32
	p := geocn.NewProvider(mustCompress(t, text), geocn.WithDecompressor(countingDecompressor(&calls)))

	const workers = 64
	start := make(chan struct{})
	results := make([]string, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			results[i] = p.MustText()
		}(i)
	}
	close(start)
	wg.Wait()

	if n := calls.Load(); n != 1 {
		t.Fatalf("decompressed %d times, want 1", n)
	}
	for i, got := range results {
		if got != text {
			t.Fatalf("worker %d got %d bytes, want %d", i, len(got), len(text))
		}
	}
}

func TestProvider_PayloadIsCopied(t *testing.T) {
	payload := mustCompress(t, "hello geo")
	p := geocn.NewProvider(payload)
	for i := range payload {
		payload[i] = 0
	}
	if got := p.MustText(); got != "hello geo" {
		t.Fatalf("MustText() = %q after caller mutated its buffer", got)
	}
	if p.PayloadSize() != len(payload) {
		t.Fatalf("PayloadSize() = %d, want %d", p.PayloadSize(), len(payload))
	}
}

func TestProvider_CorruptPayload(t *testing.T) {
	text := sampleText()
	payload := mustCompress(t, text)

	flipped := append([]byte(nil), payload...)
	flipped[len(flipped)/2] ^= 0x10

	tests := []struct {
		name    string
		payload []byte
		opts    []geocn.Option
	}{
		{"empty", nil, nil},
		{"truncated", payload[:len(payload)/2], []geocn.Option{geocn.WithDigest(digestOf(text))}},
		{"bit flipped", flipped, []geocn.Option{geocn.WithDigest(digestOf(text))}},
		{"invalid utf-8", mustCompress(t, "\xff\xfe\xfd"), nil},
		{"digest mismatch", mustCompress(t, "hello geo"), []geocn.Option{geocn.WithDigest(digestOf("hello geo!"))}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := geocn.NewProvider(tt.payload, tt.opts...)
			got, err := p.Text()
			if !errors.Is(err, geocn.ErrCorruptPayload) {
				t.Fatalf("Text() error = %v, want ErrCorruptPayload", err)
			}
			if got != "" {
				t.Fatalf("Text() = %q alongside error, want empty", got)
			}
		})
	}
}

func TestProvider_DecompressorErrorIsCorruptPayload(t *testing.T) {
	boom := errors.New("boom")
	p := geocn.NewProvider([]byte{1}, geocn.WithDecompressor(func([]byte) ([]byte, error) {
		return nil, boom
	}))
	_, err := p.Text()
	if !errors.Is(err, geocn.ErrCorruptPayload) {
		t.Fatalf("Text() error = %v, want ErrCorruptPayload", err)
	}
	if !errors.Is(err, boom) {
		t.Fatalf("Text() error = %v, want it to wrap the decompressor error", err)
	}
}

func TestProvider_FailureIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	p := geocn.NewProvider(nil, geocn.WithDecompressor(countingDecompressor(&calls)))

	_, err1 := p.Text()
	_, err2 := p.Text()
	if err1 == nil || err2 == nil {
		t.Fatalf("Text() errors = %v, %v, want both non-nil", err1, err2)
	}
	if err1.Error() != err2.Error() {
		t.Fatalf("errors differ: %v vs %v", err1, err2)
	}
	if n := calls.Load(); n != 1 {
		t.Fatalf("decompressed %d times, want 1", n)
	}
}

func TestProvider_MustTextPanicsOnCorruptPayload(t *testing.T) {
	p := geocn.NewProvider(mustCompress(t, "\xff"))

	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("MustText() did not panic")
		}
		err, ok := r.(error)
		if !ok {
			t.Fatalf("panic value %T, want error", r)
		}
		if !errors.Is(err, geocn.ErrCorruptPayload) {
			t.Fatalf("panic error = %v, want ErrCorruptPayload", err)
		}
	}()
	_ = p.MustText()
}

func TestWithDigest_Normalizes(t *testing.T) {
	digest := "  " + strings.ToUpper(digestOf("hello geo")) + "\n"
	p := geocn.NewProvider(mustCompress(t, "hello geo"), geocn.WithDigest(digest))
	if _, err := p.Text(); err != nil {
		t.Fatalf("Text() error = %v", err)
	}
}

func TestWithDecompressor_NilFallsBackToBrotli(t *testing.T) {
	p := geocn.NewProvider(mustCompress(t, "hello geo"), geocn.WithDecompressor(nil))
	if got := p.MustText(); got != "hello geo" {
		t.Fatalf("MustText() = %q", got)
	}
}
