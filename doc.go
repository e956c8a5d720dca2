// Package geocn ships the GeoCN dataset (a GeoJSON FeatureCollection of
// Chinese administrative regions) inside the binary as a brotli stream and
// decodes it on first use.
//
// The decoded text is computed at most once per process and shared by every
// caller:
//
//	text := geocn.GetGeoData()
//
// Callers that prefer an error to a panic use LoadGeoData. The same text is
// also available as a parsed Atlas for name and point lookups:
//
//	a, err := geocn.DefaultAtlas()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	r, ok := a.RegionAt(23.13, 113.26) // 广东省
//
// The embedded payload is regenerated with ./cmd/update-payload, and
// ./cmd/geocn-wasm exposes GetGeoData to JavaScript as
// wasmHelpers.get_geo_data.
package geocn
