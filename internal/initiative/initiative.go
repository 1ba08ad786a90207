// Package initiative holds the canonical domain record for ingested points
// of interest and the storage contract they are persisted through.
package initiative

import (
	"time"

	"github.com/rotisserie/eris"
)

// Category classifies an initiative. The set is closed: every ingested
// record carries exactly one of these values.
type Category int

const (
	SecondHandShop Category = iota + 1
	RecyclingPoint
	OrganicShop
	SocialFacility
	RepairCafe
	ZeroWasteShop
	FarmShop
	FoodSharing
)

// String returns the stable snake_case name used in storage and config.
func (c Category) String() string {
	switch c {
	case SecondHandShop:
		return "second_hand_shop"
	case RecyclingPoint:
		return "recycling_point"
	case OrganicShop:
		return "organic_shop"
	case SocialFacility:
		return "social_facility"
	case RepairCafe:
		return "repair_cafe"
	case ZeroWasteShop:
		return "zero_waste_shop"
	case FarmShop:
		return "farm_shop"
	case FoodSharing:
		return "food_sharing"
	default:
		return "unknown"
	}
}

// Label returns the human-readable form, used when synthesizing display
// names for nameless source nodes.
func (c Category) Label() string {
	switch c {
	case SecondHandShop:
		return "Second Hand Shop"
	case RecyclingPoint:
		return "Recycling Point"
	case OrganicShop:
		return "Organic Shop"
	case SocialFacility:
		return "Social Facility"
	case RepairCafe:
		return "Repair Cafe"
	case ZeroWasteShop:
		return "Zero Waste Shop"
	case FarmShop:
		return "Farm Shop"
	case FoodSharing:
		return "Food Sharing"
	default:
		return "Unknown"
	}
}

// Categories returns all known categories in declaration order.
func Categories() []Category {
	return []Category{
		SecondHandShop, RecyclingPoint, OrganicShop, SocialFacility,
		RepairCafe, ZeroWasteShop, FarmShop, FoodSharing,
	}
}

// ParseCategory converts a snake_case name into a Category.
func ParseCategory(s string) (Category, error) {
	for _, c := range Categories() {
		if c.String() == s {
			return c, nil
		}
	}
	return 0, eris.Errorf("initiative: unknown category %q", s)
}

// Platforms lists the social platforms the enrichment pipeline knows about.
var Platforms = []string{"facebook", "instagram", "twitter", "linkedin", "youtube", "tiktok"}

// Initiative is the canonical domain record. ID, CreatedAt and UpdatedAt
// are assigned by the store on first insert and are zero on freshly
// normalized records.
type Initiative struct {
	ID           int64             `json:"id"`
	SourceID     int64             `json:"source_id"`
	Name         string            `json:"name"`
	Category     Category          `json:"category"`
	Description  string            `json:"description,omitempty"`
	Address      string            `json:"address,omitempty"`
	Website      string            `json:"website,omitempty"`
	Phone        string            `json:"phone,omitempty"`
	Email        string            `json:"email,omitempty"`
	OpeningHours string            `json:"opening_hours,omitempty"`
	Longitude    float64           `json:"longitude"`
	Latitude     float64           `json:"latitude"`
	Verified     bool              `json:"verified"`
	SocialLinks  map[string]string `json:"social_links,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// ValidCoordinates reports whether the record's location is inside WGS84
// degree bounds.
func (i *Initiative) ValidCoordinates() bool {
	return i.Longitude >= -180 && i.Longitude <= 180 &&
		i.Latitude >= -90 && i.Latitude <= 90
}
