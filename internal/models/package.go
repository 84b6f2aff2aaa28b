package models

import "github.com/shopspring/decimal"

// Package is a DStv subscription bouquet sold with a unit. Prices are TZS.
type Package struct {
	Value string          `json:"value"`
	Label string          `json:"label"`
	Price decimal.Decimal `json:"price"`
}

var packages = []Package{
	{Value: "premium", Label: "DStv Premium", Price: decimal.NewFromInt(189000)},
	{Value: "compact_plus", Label: "DStv Compact Plus", Price: decimal.NewFromInt(118000)},
	{Value: "compact", Label: "DStv Compact", Price: decimal.NewFromInt(68000)},
	{Value: "family", Label: "DStv Family", Price: decimal.NewFromInt(40000)},
	{Value: "access", Label: "DStv Access", Price: decimal.NewFromInt(27500)},
}

// Packages returns a copy of the package catalogue.
func Packages() []Package {
	out := make([]Package, len(packages))
	copy(out, packages)
	return out
}

// PackageLabel resolves a package value to its display label. Unknown
// values are returned unchanged.
func PackageLabel(value string) string {
	for _, p := range packages {
		if p.Value == value {
			return p.Label
		}
	}
	return value
}
