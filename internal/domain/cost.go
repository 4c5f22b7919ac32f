// Package domain contains core business types and interfaces.
//
// This file implements the construction cost estimator: surface areas per
// usage category times a base rate, adjusted by a zone multiplier. The
// rates follow the style of the objective-value start prices (τιμές
// εκκίνησης) used in Greek conventional budgets. All money is integer euro
// cents.
package domain

// UsageCategory classifies floor area by use for cost estimation.
type UsageCategory string

const (
	UsageResidential UsageCategory = "residential"
	UsageOffice      UsageCategory = "office"
	UsageRetail      UsageCategory = "retail"
	UsageStorage     UsageCategory = "storage" // basements, αποθήκες
	UsageParking     UsageCategory = "parking"
)

// Base construction rates per square meter, euro cents.
var costRates = map[UsageCategory]int64{
	UsageResidential: 1_100_00,
	UsageOffice:      1_050_00,
	UsageRetail:      1_200_00,
	UsageStorage:     400_00,
	UsageParking:     350_00,
}

// CostZone adjusts rates for regional construction cost differences.
type CostZone string

const (
	CostZoneStandard CostZone = "standard"
	CostZoneAttica   CostZone = "attica"  // Athens metro area
	CostZoneIslands  CostZone = "islands" // Aegean islands, materials shipped in
)

// Zone multipliers in basis points (10000 = ×1.00).
var zoneMultipliers = map[CostZone]int64{
	CostZoneStandard: 10_000,
	CostZoneAttica:   11_500,
	CostZoneIslands:  12_500,
}

// CostParams are the inputs to a cost estimate.
type CostParams struct {
	Zone     CostZone
	Surfaces []SurfaceEntry
}

// SurfaceEntry is one floor-area line: a usage category and its area in
// hundredths of a square meter (integer, so 8550 = 85.50 m²).
type SurfaceEntry struct {
	Category UsageCategory `json:"category"`
	AreaCm2  int64         `json:"area_cm2"` // m² × 100
}

// CostLine is one itemized category in a cost estimate.
type CostLine struct {
	Category  UsageCategory `json:"category"`
	AreaCm2   int64         `json:"area_cm2"`
	RateCents int64         `json:"rate_cents"` // per m²
	Cents     int64         `json:"cents"`
	Formatted string        `json:"formatted"`
}

// CostEstimate is the result of a cost calculation.
type CostEstimate struct {
	Zone           CostZone   `json:"zone"`
	Lines          []CostLine `json:"lines"`
	TotalCents     int64      `json:"total_cents"`
	FormattedTotal string     `json:"formatted_total"`
}

// EstimateCost computes a construction cost estimate. Pure function;
// invalid inputs return an EINVALID error.
func EstimateCost(p CostParams) (*CostEstimate, error) {
	const op = "cost.estimate"

	mult, ok := zoneMultipliers[p.Zone]
	if !ok {
		return nil, Invalid(op, "unknown cost zone")
	}
	if len(p.Surfaces) == 0 {
		return nil, Invalid(op, "at least one surface entry is required")
	}

	est := &CostEstimate{Zone: p.Zone}
	for _, s := range p.Surfaces {
		rate, ok := costRates[s.Category]
		if !ok {
			return nil, Invalid(op, "unknown usage category")
		}
		if s.AreaCm2 <= 0 {
			return nil, Invalid(op, "surface area must be positive")
		}

		// area(cm²) × rate(cents/m²) / 100, then the zone multiplier in
		// basis points. Integer division last to keep cents exact.
		base := s.AreaCm2 * rate / 100
		cents := base * mult / 10_000

		est.Lines = append(est.Lines, CostLine{
			Category:  s.Category,
			AreaCm2:   s.AreaCm2,
			RateCents: rate,
			Cents:     cents,
			Formatted: FormatEuroCents(cents),
		})
		est.TotalCents += cents
	}
	est.FormattedTotal = FormatEuroCents(est.TotalCents)
	return est, nil
}
