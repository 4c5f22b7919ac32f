// Package domain contains core business types and interfaces.
//
// This file implements the permit fee calculator. The schedule is a
// deterministic function of permit type and project budget; all money is
// integer euro cents so results are exactly reproducible.
package domain

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Fee schedule constants, euro cents.
const (
	// Flat electronic filing fee (e-Άδειες παράβολο) by permit type.
	filingFeeFullPermit   = 250_00
	filingFeeSmallScale   = 80_00
	filingFeeRenovation   = 50_00
	filingFeeLegalization = 120_00
	filingFeeDemolition   = 100_00

	// TEE levy: 2.5 per mille of the project budget, with a floor.
	teeLevyPerMille    = 25 // 2.5‰ expressed in tenths of a per-mille point
	teeLevyMinimum     = 100_00
	municipalTaxPerMil = 10 // municipal permit tax, 1% = 10‰
)

// FeeParams are the inputs to the permit fee calculation.
type FeeParams struct {
	PermitType  PermitType
	BudgetCents int64 // Project budget (προϋπολογισμός έργου) in euro cents
}

// FeeLine is one itemized charge in a fee breakdown.
type FeeLine struct {
	Label      string `json:"label"`
	Cents      int64  `json:"cents"`
	Formatted  string `json:"formatted"`
	LegalBasis string `json:"legal_basis,omitempty"`
}

// FeeBreakdown is the result of a fee calculation.
type FeeBreakdown struct {
	Lines          []FeeLine `json:"lines"`
	TotalCents     int64     `json:"total_cents"`
	FormattedTotal string    `json:"formatted_total"`
}

// CalculateFees computes the permit fee breakdown for the given inputs.
// Pure function; invalid inputs return an EINVALID error.
func CalculateFees(p FeeParams) (*FeeBreakdown, error) {
	const op = "fees.calculate"
	if !p.PermitType.IsValid() {
		return nil, Invalid(op, "unknown permit type")
	}
	if p.BudgetCents < 0 {
		return nil, Invalid(op, "budget must not be negative")
	}

	var lines []FeeLine

	filing := filingFee(p.PermitType)
	lines = append(lines, FeeLine{
		Label:      "Παράβολο ηλεκτρονικής υποβολής",
		Cents:      filing,
		Formatted:  FormatEuroCents(filing),
		LegalBasis: "Ν. 4495/2017 άρθρο 36",
	})

	// TEE levy and municipal tax scale with budget and apply only to
	// procedures that carry a budget filing.
	if p.PermitType == PermitTypeFull || p.PermitType == PermitTypeDemolition {
		tee := perMille(p.BudgetCents, teeLevyPerMille)
		if tee < teeLevyMinimum {
			tee = teeLevyMinimum
		}
		lines = append(lines, FeeLine{
			Label:      "Εισφορά ΤΕΕ",
			Cents:      tee,
			Formatted:  FormatEuroCents(tee),
			LegalBasis: "ΠΔ 696/1974",
		})

		municipal := perMille(p.BudgetCents, municipalTaxPerMil)
		lines = append(lines, FeeLine{
			Label:     "Δημοτικά τέλη έκδοσης",
			Cents:     municipal,
			Formatted: FormatEuroCents(municipal),
		})
	}

	var total int64
	for _, l := range lines {
		total += l.Cents
	}

	return &FeeBreakdown{
		Lines:          lines,
		TotalCents:     total,
		FormattedTotal: FormatEuroCents(total),
	}, nil
}

// filingFee returns the flat filing fee for a permit type.
func filingFee(t PermitType) int64 {
	switch t {
	case PermitTypeFull:
		return filingFeeFullPermit
	case PermitTypeSmallScale:
		return filingFeeSmallScale
	case PermitTypeRenovation:
		return filingFeeRenovation
	case PermitTypeLegalization:
		return filingFeeLegalization
	case PermitTypeDemolition:
		return filingFeeDemolition
	}
	return 0
}

// perMille computes cents * rate / 1000 in integer arithmetic, where rate
// is expressed in tenths of a per-mille point (25 = 2.5‰). Truncates
// toward zero, matching how the paper schedule rounds.
func perMille(cents int64, rate int64) int64 {
	return cents * rate / 10_000
}

// elPrinter renders numbers with Greek digit grouping (1.234,56).
var elPrinter = message.NewPrinter(language.Greek)

// FormatEuroCents renders an amount of euro cents as a Greek-locale
// currency string, e.g. 123456 -> "1.234,56 €".
func FormatEuroCents(cents int64) string {
	amount := number.Decimal(float64(cents)/100,
		number.MinFractionDigits(2), number.MaxFractionDigits(2))
	return elPrinter.Sprintf("%v €", amount)
}
