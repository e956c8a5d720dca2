package geocn

import (
	_ "embed"
	"sync"
)

//go:embed data/GeoCN.json.br
var geoPayload []byte

//go:embed data/GeoCN.json.sha256
var geoDigest string

// Singleton for the provider over the embedded dataset.
var defaultProvider = sync.OnceValue(func() *Provider {
	return NewProvider(geoPayload, WithDigest(geoDigest))
})

// DefaultProvider returns the shared Provider over the embedded GeoCN payload.
func DefaultProvider() *Provider {
	return defaultProvider()
}

// GetGeoData returns the decompressed GeoCN dataset. The first call decodes the
// embedded payload; every later call returns the cached text.
//
// The payload is fixed at build time, so a corrupt payload is a build defect:
// GetGeoData panics with an error wrapping ErrCorruptPayload.
func GetGeoData() string {
	return DefaultProvider().MustText()
}

// LoadGeoData is like GetGeoData but returns the error instead of panicking.
func LoadGeoData() (string, error) {
	return DefaultProvider().Text()
}
