// Package domain contains core business types and interfaces.
//
// This file enumerates the quota-consuming tools. Every tool invocation
// passes through the entitlement gate exactly once, so the monthly counter
// is a single pool shared across all seven tools rather than per-tool
// buckets.
package domain

// ToolKind identifies one of the platform's quota-consuming tools.
type ToolKind string

const (
	ToolAsk           ToolKind = "ask"            // regulation Q&A
	ToolBlueprint     ToolKind = "blueprint"      // blueprint/drawing analysis
	ToolChecklist     ToolKind = "checklist"      // permit submission checklist
	ToolReport        ToolKind = "report"         // technical report generation
	ToolFeeCalculator ToolKind = "fee_calculator" // permit fee calculation
	ToolCostEstimator ToolKind = "cost_estimator" // construction cost estimate
	ToolLetterDraft   ToolKind = "letter_draft"   // cover letter to the building authority
)

// ToolKinds lists every tool in display order.
func ToolKinds() []ToolKind {
	return []ToolKind{
		ToolAsk,
		ToolBlueprint,
		ToolChecklist,
		ToolReport,
		ToolFeeCalculator,
		ToolCostEstimator,
		ToolLetterDraft,
	}
}

// IsValid returns true if the kind is a recognized tool.
func (k ToolKind) IsValid() bool {
	switch k {
	case ToolAsk, ToolBlueprint, ToolChecklist, ToolReport,
		ToolFeeCalculator, ToolCostEstimator, ToolLetterDraft:
		return true
	}
	return false
}
