package overpass

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// DefaultPredicates returns the built-in category → Overpass tag predicate
// table. Keys match initiative category names; values are QL tag filters
// appended to a node query.
func DefaultPredicates() map[string]string {
	return map[string]string{
		"second_hand_shop": `["shop"="second_hand"]`,
		"recycling_point":  `["amenity"="recycling"]`,
		"organic_shop":     `["shop"="organic"]`,
		"social_facility":  `["amenity"="social_facility"]`,
		"repair_cafe":      `["repair"="assisted_self_service"]`,
		"zero_waste_shop":  `["shop"="zero_waste"]`,
		"farm_shop":        `["shop"="farm"]`,
		"food_sharing":     `["amenity"="food_sharing"]`,
	}
}

// LoadPredicates reads a YAML predicate table and merges it over the
// defaults, so operators only list the categories they want to override.
//
//	predicates:
//	  repair_cafe: '["amenity"="repair_cafe"]'
func LoadPredicates(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "overpass: read predicates %s", path)
	}

	var wrapper struct {
		Predicates map[string]string `yaml:"predicates"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return nil, eris.Wrap(err, "overpass: parse predicates")
	}

	merged := DefaultPredicates()
	for k, v := range wrapper.Predicates {
		merged[k] = v
	}
	return merged, nil
}
