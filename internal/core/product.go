package core

import (
	"slices"
	"time"
)

// Availability values.
const (
	InStock    = "In Stock"
	OutOfStock = "Out of Stock"
)

// Defaults applied when optional fields are absent on create.
const (
	DefaultPriceUnit      = "piece"
	DefaultAreaLocation   = "A1"
	DefaultAllergySummary = "none"

	// CategoryOption is the sentinel for categories outside the closed set.
	CategoryOption = "option"

	// MaxImageKeys is the number of images a product may reference.
	MaxImageKeys = 2
)

// Categories is the closed category vocabulary.
var Categories = []string{
	"Fruits & Veggies",
	"Seafood",
	"Bakery",
	"Frozen Foods",
	"Beverages",
	"Snacks",
	"Infant Care",
	"Cereals & Breakfast",
	"Meat & Poultry",
}

// PriceUnits is the closed unit vocabulary, in display order.
var PriceUnits = []string{
	"piece", "lb", "oz", "g", "kg", "gallon", "dozen", "loaf", "bag",
	"bags", "carton", "block", "jar", "cup", "box", "pack", "can", "bottle",
}

// AreaLocations is the closed set of shelf areas.
var AreaLocations = []string{"A1", "A2", "A3", "A4", "A5", "A6", "A7", "A8", "A9", "A10"}

// IsPriceUnit reports whether u is a member of PriceUnits.
func IsPriceUnit(u string) bool { return slices.Contains(PriceUnits, u) }

// IsAreaLocation reports whether a is a member of AreaLocations.
func IsAreaLocation(a string) bool { return slices.Contains(AreaLocations, a) }

// IsAvailability reports whether a is exactly one of the two stock states.
func IsAvailability(a string) bool { return a == InStock || a == OutOfStock }

// Product is one persisted inventory record.
//
// The index fields are derived from Availability, CreatedAt and Barcode on
// every write and are never exposed over the API.
type Product struct {
	ID             string    `json:"id" dynamodbav:"id"`
	Name           string    `json:"name" dynamodbav:"name"`
	Description    string    `json:"description" dynamodbav:"description"`
	Category       string    `json:"category" dynamodbav:"category"`
	Price          float64   `json:"price" dynamodbav:"price"`
	PriceUnit      string    `json:"priceUnit" dynamodbav:"priceUnit"`
	Barcode        string    `json:"barcode" dynamodbav:"barcode"`
	Availability   string    `json:"availability" dynamodbav:"availability"`
	AreaLocation   string    `json:"areaLocation" dynamodbav:"areaLocation"`
	ScaleNeed      bool      `json:"scaleNeed" dynamodbav:"scaleNeed"`
	ImageKeys      []string  `json:"imageKeys" dynamodbav:"imageKeys"`
	AllergySummary string    `json:"allergySummary" dynamodbav:"allergySummary"`
	CreatedAt      time.Time `json:"createdAt" dynamodbav:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt" dynamodbav:"updatedAt"`

	AvailabilityKey string `json:"-" dynamodbav:"gsi1_pk"`
	CreatedKey      string `json:"-" dynamodbav:"gsi1_sk"`
	BarcodeKey      string `json:"-" dynamodbav:"gsi2_pk"`
}

// sortKeyLayout is fixed width so lexical order equals time order.
const sortKeyLayout = "2006-01-02T15:04:05.000Z"

// SortKey formats t as an index sort key.
func SortKey(t time.Time) string {
	return t.UTC().Format(sortKeyLayout)
}

// deriveIndexKeys refreshes the availability and barcode index keys. The
// sort key is only set when empty so it survives updates.
func (p *Product) deriveIndexKeys() {
	p.AvailabilityKey = p.Availability
	p.BarcodeKey = p.Barcode
	if p.CreatedKey == "" {
		p.CreatedKey = SortKey(p.CreatedAt)
	}
}

// Clone returns a deep copy of p.
func (p *Product) Clone() *Product {
	c := *p
	c.ImageKeys = slices.Clone(p.ImageKeys)
	return &c
}
