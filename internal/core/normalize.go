package core

import (
	"regexp"
	"slices"
	"strings"
	"unicode"
)

// unitSynonyms maps plural and long unit spellings to their canonical token.
var unitSynonyms = map[string]string{
	"pieces": "piece", "pcs": "piece", "piece": "piece",
	"lbs": "lb", "pound": "lb", "pounds": "lb", "lb": "lb",
	"ounces": "oz", "ounce": "oz", "oz": "oz",
	"grams": "g", "gram": "g", "g": "g",
	"kilograms": "kg", "kilogram": "kg", "kg": "kg",
	"gallons": "gallon", "gallon": "gallon",
	"dozens": "dozen", "dozen": "dozen",
	"loaves": "loaf", "loaf": "loaf",
	"bags": "bags", "bag": "bag",
	"cartons": "carton", "carton": "carton",
	"blocks": "block", "block": "block",
	"jars": "jar", "jar": "jar",
	"cups": "cup", "cup": "cup",
	"boxes": "box", "box": "box",
	"packs": "pack", "pack": "pack",
	"cans": "can", "can": "can",
	"bottles": "bottle", "bottle": "bottle",
}

var (
	inStockWords  = []string{"in stock", "instock", "available", "yes", "y", "1"}
	outStockWords = []string{"out of stock", "outofstock", "out", "oos", "unavailable", "no", "n", "0"}
)

var perPrefix = regexp.MustCompile(`^per\s+`)

// NormalizeCategory returns s when it is one of Categories and
// CategoryOption otherwise.
func NormalizeCategory(s string) string {
	if slices.Contains(Categories, s) {
		return s
	}
	return CategoryOption
}

// NormalizeUnit maps a loosely written unit onto its canonical token.
// Empty input becomes DefaultPriceUnit; "per lb" and "pounds" become "lb".
// Unknown units are returned lowercased rather than rejected.
func NormalizeUnit(s string) string {
	u := strings.ToLower(strings.TrimSpace(s))
	if u == "" {
		return DefaultPriceUnit
	}
	for perPrefix.MatchString(u) {
		u = perPrefix.ReplaceAllString(u, "")
	}
	if canon, ok := unitSynonyms[u]; ok {
		return canon
	}
	return u
}

// NormalizeAvailability maps stock wording onto InStock or OutOfStock.
// It returns "" when nothing matches, which callers treat as invalid.
func NormalizeAvailability(s string) string {
	v := strings.ToLower(strings.TrimSpace(s))
	if v == "" {
		return ""
	}
	if slices.Contains(inStockWords, v) {
		return InStock
	}
	if slices.Contains(outStockWords, v) {
		return OutOfStock
	}
	if strings.Contains(v, "in") && strings.Contains(v, "stock") {
		return InStock
	}
	if strings.Contains(v, "out") && strings.Contains(v, "stock") {
		return OutOfStock
	}
	return ""
}

// CleanPriceString strips currency symbols, thousands separators and
// whitespace so the result can be parsed as a number.
func CleanPriceString(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '$', '£', '€', '¥', ',':
			return -1
		}
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}
