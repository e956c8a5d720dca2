package geocn

import (
	"bytes"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"
)

// Config contains configuration options for a Provider.
type Config struct {
	Decompress DecompressFunc // Whole-buffer decoder (default: brotli Decompress)
	Digest     string         // Expected hex SHA-256 of the text; empty disables the check
}

// Option is a functional option for configuring a Provider.
type Option func(*Config)

// WithDecompressor sets the routine used to decode the payload.
func WithDecompressor(fn DecompressFunc) Option {
	return func(c *Config) {
		c.Decompress = fn
	}
}

// WithDigest pins the expected SHA-256 (hex) of the decompressed text.
func WithDigest(hexSHA256 string) Option {
	return func(c *Config) {
		c.Digest = strings.ToLower(strings.TrimSpace(hexSHA256))
	}
}

// defaultConfig returns the default configuration.
func defaultConfig() *Config {
	return &Config{
		Decompress: Decompress,
	}
}

// Provider serves the text of one compressed payload, decoding it on first
// use. Safe for concurrent use.
type Provider struct {
	payload []byte
	config  *Config
	text    func() (string, error)
}

// NewProvider returns a Provider over a copy of payload. Nothing is decoded
// until the first call to Text or MustText.
func NewProvider(payload []byte, opts ...Option) *Provider {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.Decompress == nil {
		cfg.Decompress = Decompress
	}

	p := &Provider{
		payload: bytes.Clone(payload),
		config:  cfg,
	}
	p.text = sync.OnceValues(p.load)
	return p
}

// load runs exactly once per Provider. A failure is kept as well: the payload
// is fixed, so there is nothing a second attempt could do differently.
func (p *Provider) load() (string, error) {
	raw, err := p.config.Decompress(p.payload)
	if err != nil {
		if !errors.Is(err, ErrCorruptPayload) {
			err = fmt.Errorf("%w: %w", ErrCorruptPayload, err)
		}
		return "", fmt.Errorf("decompressing payload: %w", err)
	}
	if !utf8.Valid(raw) {
		return "", fmt.Errorf("%w: decompressed text is not valid UTF-8", ErrCorruptPayload)
	}
	if p.config.Digest != "" {
		sum := sha256.Sum256(raw)
		got := hex.EncodeToString(sum[:])
		if subtle.ConstantTimeCompare([]byte(got), []byte(p.config.Digest)) != 1 {
			return "", fmt.Errorf("%w: sha256 %s, want %s", ErrCorruptPayload, got, p.config.Digest)
		}
	}
	return string(raw), nil
}

// Text returns the decompressed payload text.
func (p *Provider) Text() (string, error) {
	return p.text()
}

// MustText is like Text but panics on a corrupt payload.
func (p *Provider) MustText() string {
	s, err := p.text()
	if err != nil {
		panic(err)
	}
	return s
}

// PayloadSize returns the size of the compressed payload in bytes.
func (p *Provider) PayloadSize() int {
	return len(p.payload)
}
