package initiative

import (
	"fmt"
	"strings"

	"github.com/transition-map/initiative-cli/pkg/overpass"
)

// NormalizeOptions controls normalization policy.
type NormalizeOptions struct {
	// AllowNameless synthesizes "<Category> #<sourceID>" for nodes without
	// a name tag instead of skipping them. Default is to skip: nameless
	// records are unidentifiable on the map.
	AllowNameless bool
}

// Normalize maps a raw source node into a transient Initiative (no ID).
// It returns false when the node should be skipped. Pure function: no I/O,
// deterministic for the same input.
func Normalize(node overpass.Node, category Category, opts NormalizeOptions) (*Initiative, bool) {
	name := strings.TrimSpace(node.Tags["name"])
	if name == "" {
		if !opts.AllowNameless {
			return nil, false
		}
		name = fmt.Sprintf("%s #%d", category.Label(), node.ID)
	}

	in := &Initiative{
		SourceID:     node.ID,
		Name:         name,
		Category:     category,
		Description:  strings.TrimSpace(node.Tags["description"]),
		Address:      assembleAddress(node.Tags),
		Website:      firstTag(node.Tags, "website", "contact:website"),
		Phone:        firstTag(node.Tags, "phone", "contact:phone"),
		Email:        firstTag(node.Tags, "email", "contact:email"),
		OpeningHours: strings.TrimSpace(node.Tags["opening_hours"]),
		Longitude:    node.Lon,
		Latitude:     node.Lat,
		Verified:     false,
	}
	return in, true
}

// assembleAddress joins the address components present on the node in
// house-number, street, postcode, city order. Missing parts are skipped so
// the result carries no placeholder gaps.
func assembleAddress(tags map[string]string) string {
	var parts []string
	for _, key := range []string{"addr:housenumber", "addr:street", "addr:postcode", "addr:city"} {
		if v := strings.TrimSpace(tags[key]); v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, " ")
}

// firstTag returns the first non-empty value among the given tag keys.
func firstTag(tags map[string]string, keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(tags[k]); v != "" {
			return v
		}
	}
	return ""
}
