package geocn

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	geohash "github.com/TomiHiltunen/geohash-golang"
	"github.com/agnivade/levenshtein"
	"github.com/golang/geo/s2"
)

// ErrInvalidGeoJSON is returned when the dataset text is not a usable GeoJSON
// FeatureCollection.
var ErrInvalidGeoJSON = errors.New("geocn: invalid GeoJSON")

// maxFuzzyDistance caps the edit distance accepted by Lookup.
const maxFuzzyDistance = 3

// maxLookupInputLen limits name input length before Levenshtein scans.
const maxLookupInputLen = 256

// geohashPrecision gives ~1.2km cells, enough to tell region centers apart.
const geohashPrecision = 6

// Region is one feature of the dataset, typically a province-level division.
type Region struct {
	Index   int       // Position in the FeatureCollection
	Name    string    // properties.name (may be empty)
	Adcode  string    // properties.adcode, as text
	Level   string    // properties.level (e.g. "province")
	Center  s2.LatLng // properties.center, or the bounds center when absent
	Bounds  s2.Rect   // Bounding rectangle of all outer rings
	Geohash string    // Geohash of Center

	polygons []polygon
}

// polygon is one GeoJSON polygon: an outer ring and zero or more holes.
type polygon struct {
	outer *s2.Loop
	holes []*s2.Loop
}

// Contains reports whether the point lies inside the region: inside some outer
// ring and in none of that polygon's holes.
func (r Region) Contains(lat, lng float64) bool {
	ll := s2.LatLngFromDegrees(lat, lng)
	if !r.Bounds.ContainsLatLng(ll) {
		return false
	}
	pt := s2.PointFromLatLng(ll)
	for _, poly := range r.polygons {
		if poly.contains(pt) {
			return true
		}
	}
	return false
}

func (p polygon) contains(pt s2.Point) bool {
	if !p.outer.ContainsPoint(pt) {
		return false
	}
	for _, h := range p.holes {
		if h.ContainsPoint(pt) {
			return false
		}
	}
	return true
}

// Atlas is the parsed dataset. Immutable after ParseAtlas; safe for
// concurrent use.
type Atlas struct {
	regions   []Region
	nameIndex map[string]int // lowercase name → first region index
}

// Singleton atlas over the embedded dataset.
var defaultAtlas = sync.OnceValues(func() (*Atlas, error) {
	text, err := LoadGeoData()
	if err != nil {
		return nil, err
	}
	return ParseAtlas(text)
})

// DefaultAtlas returns the shared Atlas over the embedded dataset, parsing it
// on first call.
func DefaultAtlas() (*Atlas, error) {
	return defaultAtlas()
}

type featureCollection struct {
	Type     string    `json:"type"`
	Features []feature `json:"features"`
}

type feature struct {
	Properties struct {
		Name   string          `json:"name"`
		Adcode json.RawMessage `json:"adcode"`
		Level  string          `json:"level"`
		Center []float64       `json:"center"`
	} `json:"properties"`
	Geometry *geometry `json:"geometry"`
}

type geometry struct {
	Type        string          `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
}

// ParseAtlas parses a GeoJSON FeatureCollection of Polygon and MultiPolygon
// features.
func ParseAtlas(text string) (*Atlas, error) {
	var fc featureCollection
	if err := json.Unmarshal([]byte(text), &fc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidGeoJSON, err)
	}
	if fc.Type != "FeatureCollection" {
		return nil, fmt.Errorf("%w: root type %q, want FeatureCollection", ErrInvalidGeoJSON, fc.Type)
	}

	a := &Atlas{
		regions:   make([]Region, 0, len(fc.Features)),
		nameIndex: make(map[string]int, len(fc.Features)),
	}
	for i, f := range fc.Features {
		r, err := buildRegion(i, f)
		if err != nil {
			return nil, fmt.Errorf("%w: feature %d (%q): %w", ErrInvalidGeoJSON, i, f.Properties.Name, err)
		}
		a.regions = append(a.regions, r)
		if r.Name == "" {
			continue
		}
		key := strings.ToLower(r.Name)
		if _, ok := a.nameIndex[key]; !ok {
			a.nameIndex[key] = i
		}
	}
	return a, nil
}

func buildRegion(idx int, f feature) (Region, error) {
	r := Region{
		Index:  idx,
		Name:   strings.TrimSpace(f.Properties.Name),
		Adcode: adcodeText(f.Properties.Adcode),
		Level:  f.Properties.Level,
		Bounds: s2.EmptyRect(),
	}

	if f.Geometry != nil {
		polys, err := parseGeometry(f.Geometry)
		if err != nil {
			return Region{}, err
		}
		r.polygons = polys
		for _, p := range polys {
			r.Bounds = r.Bounds.Union(p.outer.RectBound())
		}
	}

	switch c := f.Properties.Center; {
	case len(c) != 0 && len(c) != 2:
		return Region{}, fmt.Errorf("center %v has %d values, want [lng, lat]", c, len(c))
	case len(c) == 2:
		r.Center = s2.LatLngFromDegrees(c[1], c[0])
		if !r.Center.IsValid() {
			return Region{}, fmt.Errorf("center %v out of range", c)
		}
	case !r.Bounds.IsEmpty():
		r.Center = r.Bounds.Center()
	}
	if !r.Bounds.IsEmpty() || len(f.Properties.Center) == 2 {
		r.Geohash = geohash.EncodeWithPrecision(r.Center.Lat.Degrees(), r.Center.Lng.Degrees(), geohashPrecision)
	}
	return r, nil
}

// adcodeText renders adcode whether the source encodes it as a number
// (110000) or a string ("100000_JD").
func adcodeText(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

func parseGeometry(g *geometry) ([]polygon, error) {
	switch g.Type {
	case "Polygon":
		var rings [][][]float64
		if err := json.Unmarshal(g.Coordinates, &rings); err != nil {
			return nil, fmt.Errorf("polygon coordinates: %w", err)
		}
		p, err := polygonFromRings(rings)
		if err != nil {
			return nil, err
		}
		return []polygon{p}, nil
	case "MultiPolygon":
		var parts [][][][]float64
		if err := json.Unmarshal(g.Coordinates, &parts); err != nil {
			return nil, fmt.Errorf("multipolygon coordinates: %w", err)
		}
		polys := make([]polygon, 0, len(parts))
		for i, rings := range parts {
			p, err := polygonFromRings(rings)
			if err != nil {
				return nil, fmt.Errorf("part %d: %w", i, err)
			}
			polys = append(polys, p)
		}
		return polys, nil
	default:
		return nil, fmt.Errorf("unsupported geometry type %q", g.Type)
	}
}

func polygonFromRings(rings [][][]float64) (polygon, error) {
	if len(rings) == 0 {
		return polygon{}, errors.New("polygon has no rings")
	}
	outer, err := loopFromRing(rings[0])
	if err != nil {
		return polygon{}, fmt.Errorf("outer ring: %w", err)
	}
	p := polygon{outer: outer}
	for i, ring := range rings[1:] {
		hole, err := loopFromRing(ring)
		if err != nil {
			return polygon{}, fmt.Errorf("hole %d: %w", i, err)
		}
		p.holes = append(p.holes, hole)
	}
	return p, nil
}

// loopFromRing converts a GeoJSON linear ring ([lng, lat] positions, first
// repeated as last) into an S2 loop around the smaller of the two areas it
// bounds, so ring winding order does not matter.
func loopFromRing(ring [][]float64) (*s2.Loop, error) {
	pts := make([]s2.Point, 0, len(ring))
	for _, pos := range ring {
		if len(pos) < 2 {
			return nil, fmt.Errorf("position %v has fewer than 2 values", pos)
		}
		ll := s2.LatLngFromDegrees(pos[1], pos[0])
		if !ll.IsValid() {
			return nil, fmt.Errorf("position %v out of range", pos)
		}
		pt := s2.PointFromLatLng(ll)
		if n := len(pts); n > 0 && pts[n-1] == pt {
			continue
		}
		pts = append(pts, pt)
	}
	if n := len(pts); n > 1 && pts[0] == pts[n-1] {
		pts = pts[:n-1]
	}
	if len(pts) < 3 {
		return nil, fmt.Errorf("ring has %d distinct vertices, want at least 3", len(pts))
	}

	if i, j, ok := findRingCrossing(pts); ok {
		return nil, fmt.Errorf("ring edges %d and %d cross", i, j)
	}

	l := s2.LoopFromPoints(pts)
	if err := l.Validate(); err != nil {
		return nil, fmt.Errorf("invalid ring: %w", err)
	}
	l.Normalize()
	return l, nil
}

// findRingCrossing reports the first pair of non-adjacent edges of the closed
// ring pts that properly cross. Edge i runs from pts[i] to pts[i+1], wrapping.
func findRingCrossing(pts []s2.Point) (int, int, bool) {
	n := len(pts)
	for i := 0; i+2 < n; i++ {
		crosser := s2.NewChainEdgeCrosser(pts[i], pts[(i+1)%n], pts[i+2])
		for j := i + 2; j < n; j++ {
			// The final edge shares a vertex with edge 0.
			if i == 0 && j == n-1 {
				break
			}
			if crosser.ChainCrossingSign(pts[(j+1)%n]) == s2.Cross {
				return i, j, true
			}
		}
	}
	return 0, 0, false
}

// Len returns the number of regions.
func (a *Atlas) Len() int {
	return len(a.regions)
}

// Regions returns the regions in dataset order.
func (a *Atlas) Regions() []Region {
	out := make([]Region, len(a.regions))
	copy(out, a.regions)
	return out
}

// Lookup finds a region by name. Exact case-insensitive matches win; with
// maxDist > 0 the closest name within that edit distance is returned
// (earliest region on ties). maxDist is capped at 3.
func (a *Atlas) Lookup(name string, maxDist int) (Region, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Region{}, false
	}
	if runes := []rune(name); len(runes) > maxLookupInputLen {
		name = string(runes[:maxLookupInputLen])
	}

	key := strings.ToLower(name)
	if i, ok := a.nameIndex[key]; ok {
		return a.regions[i], true
	}
	if maxDist <= 0 {
		return Region{}, false
	}
	if maxDist > maxFuzzyDistance {
		maxDist = maxFuzzyDistance
	}

	best, bestDist := -1, maxDist+1
	for i, r := range a.regions {
		if r.Name == "" {
			continue
		}
		d := levenshtein.ComputeDistance(key, strings.ToLower(r.Name))
		if d < bestDist {
			best, bestDist = i, d
		}
	}
	if best < 0 {
		return Region{}, false
	}
	return a.regions[best], true
}

// RegionAt returns the first region containing the point.
func (a *Atlas) RegionAt(lat, lng float64) (Region, bool) {
	for _, r := range a.regions {
		if r.Contains(lat, lng) {
			return r, true
		}
	}
	return Region{}, false
}
