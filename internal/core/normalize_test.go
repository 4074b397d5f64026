package core

import (
	"slices"
	"testing"
)

// ============================================================================
// Category
// ============================================================================

func TestNormalizeCategory(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Bakery", "Bakery"},
		{"Meat & Poultry", "Meat & Poultry"},
		{"bakery", CategoryOption},
		{" Bakery", CategoryOption},
		{"", CategoryOption},
		{"Hardware", CategoryOption},
		{CategoryOption, CategoryOption},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := NormalizeCategory(tt.in); got != tt.want {
				t.Errorf("NormalizeCategory(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalizeCategory_Idempotent(t *testing.T) {
	inputs := append(slices.Clone(Categories), "", "snacks", "Toys", "option", "Fruits &amp; Veggies")

	for _, in := range inputs {
		once := NormalizeCategory(in)
		if twice := NormalizeCategory(once); twice != once {
			t.Errorf("NormalizeCategory not idempotent for %q: %q then %q", in, once, twice)
		}
		if once != CategoryOption && !slices.Contains(Categories, once) {
			t.Errorf("NormalizeCategory(%q) = %q, outside the category set", in, once)
		}
	}
}

// ============================================================================
// Unit
// ============================================================================

func TestNormalizeUnit(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", "piece"},
		{"   ", "piece"},
		{"pounds", "lb"},
		{"LBS", "lb"},
		{"per lb", "lb"},
		{"Per  Pound", "lb"},
		{"per per lb", "lb"},
		{"pcs", "piece"},
		{"ounces", "oz"},
		{"kilograms", "kg"},
		{"loaves", "loaf"},
		{"bags", "bags"},
		{"bag", "bag"},
		{"boxes", "box"},
		{"bottles", "bottle"},
		{"Bushel", "bushel"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := NormalizeUnit(tt.in); got != tt.want {
				t.Errorf("NormalizeUnit(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalizeUnit_Idempotent(t *testing.T) {
	inputs := []string{"", "pounds", "per lb", "per per oz", "Dozens", "liters", "PCS", "per"}
	for _, unit := range PriceUnits {
		inputs = append(inputs, unit, "per "+unit)
	}

	for _, in := range inputs {
		once := NormalizeUnit(in)
		if twice := NormalizeUnit(once); twice != once {
			t.Errorf("NormalizeUnit not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}

func TestNormalizeUnit_CanonicalUnitsMapToThemselves(t *testing.T) {
	for _, unit := range PriceUnits {
		if got := NormalizeUnit(unit); got != unit {
			t.Errorf("NormalizeUnit(%q) = %q, want unchanged", unit, got)
		}
	}
}

// ============================================================================
// Availability
// ============================================================================

func TestNormalizeAvailability(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Yes", InStock},
		{"y", InStock},
		{"1", InStock},
		{" available ", InStock},
		{"IN STOCK", InStock},
		{"instock", InStock},
		{"No", OutOfStock},
		{"0", OutOfStock},
		{"OOS", OutOfStock},
		{"unavailable", OutOfStock},
		{"out", OutOfStock},
		{"Out of Stock", OutOfStock},
		{"in-stock", InStock},
		{"currently out of stock", OutOfStock},
		{"", ""},
		{"maybe", ""},
		{"stock", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := NormalizeAvailability(tt.in); got != tt.want {
				t.Errorf("NormalizeAvailability(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

// ============================================================================
// Price
// ============================================================================

func TestCleanPriceString(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"$1.50", "1.50"},
		{"£1,234.00", "1234.00"},
		{"€ 3", "3"},
		{"¥100", "100"},
		{" 2.75\t", "2.75"},
		{"1 000", "1000"},
		{"abc", "abc"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := CleanPriceString(tt.in); got != tt.want {
				t.Errorf("CleanPriceString(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
