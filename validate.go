package geocn

import (
	"fmt"
)

// minRegionCount is the smallest region count an acceptable dataset carries.
const minRegionCount = 5

// knownRegion is a region every acceptable dataset must resolve, both by name
// and by a coordinate well inside it.
type knownRegion struct {
	name     string
	adcode   string
	lat, lng float64
}

var knownRegions = []knownRegion{
	{"北京市", "110000", 39.9042, 116.4074},
	{"上海市", "310000", 31.2304, 121.4737},
	{"广东省", "440000", 23.1291, 113.2644},
	{"四川省", "510000", 30.5728, 104.0668},
	{"新疆维吾尔自治区", "650000", 43.8256, 87.6168},
}

// ValidatePayload decodes the provider's payload and checks that it is a
// usable dataset: it parses as an atlas, has enough named regions, and
// resolves the known regions by name and by coordinate.
func ValidatePayload(p *Provider) error {
	text, err := p.Text()
	if err != nil {
		return err
	}
	a, err := ParseAtlas(text)
	if err != nil {
		return err
	}
	return validateAtlas(a)
}

func validateAtlas(a *Atlas) error {
	if n := a.Len(); n < minRegionCount {
		return fmt.Errorf("region count too low: got %d, want >= %d", n, minRegionCount)
	}

	named := 0
	for _, r := range a.regions {
		if r.Name != "" {
			named++
		}
	}
	if named < minRegionCount {
		return fmt.Errorf("named region count too low: got %d, want >= %d", named, minRegionCount)
	}

	for _, k := range knownRegions {
		r, ok := a.Lookup(k.name, 0)
		if !ok {
			return fmt.Errorf("region %s not found by name", k.name)
		}
		if r.Adcode != k.adcode {
			return fmt.Errorf("region %s: adcode %q, want %q", k.name, r.Adcode, k.adcode)
		}
		at, ok := a.RegionAt(k.lat, k.lng)
		if !ok {
			return fmt.Errorf("no region at %.4f,%.4f (want %s)", k.lat, k.lng, k.name)
		}
		if at.Name != k.name {
			return fmt.Errorf("region at %.4f,%.4f is %s, want %s", k.lat, k.lng, at.Name, k.name)
		}
	}
	return nil
}
