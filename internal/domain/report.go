// Package domain contains core business types and interfaces.
//
// This file defines the Report domain types and data structures for
// generating permit technical reports (τεχνική έκθεση) in PDF and DOCX
// formats.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// Report Format
// =============================================================================

// ReportFormat represents the output format of a report.
type ReportFormat string

const (
	// ReportFormatPDF generates a PDF document.
	ReportFormatPDF ReportFormat = "pdf"

	// ReportFormatDOCX generates a Microsoft Word document.
	ReportFormatDOCX ReportFormat = "docx"
)

// String returns the string representation of the format.
func (f ReportFormat) String() string {
	return string(f)
}

// IsValid returns true if the format is a recognized value.
func (f ReportFormat) IsValid() bool {
	switch f {
	case ReportFormatPDF, ReportFormatDOCX:
		return true
	}
	return false
}

// ContentType returns the MIME content type for the format.
func (f ReportFormat) ContentType() string {
	switch f {
	case ReportFormatPDF:
		return "application/pdf"
	case ReportFormatDOCX:
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	default:
		return "application/octet-stream"
	}
}

// FileExtension returns the file extension for the format.
func (f ReportFormat) FileExtension() string {
	return string(f)
}

// =============================================================================
// Report Domain Type
// =============================================================================

// Report represents a generated technical report stored in the database.
type Report struct {
	ID             uuid.UUID // Unique identifier
	ProjectID      uuid.UUID // Project this report was generated for
	UserID         uuid.UUID // User who generated the report
	PDFStorageKey  string    // Storage key for PDF file (empty if not generated)
	DOCXStorageKey string    // Storage key for DOCX file (empty if not generated)
	FindingCount   int       // Number of blueprint findings included
	GeneratedAt    time.Time // When report was generated
}

// HasPDF returns true if this report has a PDF version.
func (r *Report) HasPDF() bool {
	return r.PDFStorageKey != ""
}

// HasDOCX returns true if this report has a DOCX version.
func (r *Report) HasDOCX() bool {
	return r.DOCXStorageKey != ""
}

// =============================================================================
// Report Data Aggregates (for generation)
// =============================================================================

// ReportData aggregates all data needed to generate a report.
// This struct is populated by the job handler before passing to generators.
type ReportData struct {
	// Engineer/user information
	EngineerName     string // Engineer's display name
	EngineerCompany  string // Company/business name
	EngineerRegistry string // TEE registry number
	EngineerEmail    string // Contact email
	EngineerPhone    string // Contact phone

	// Project details
	ProjectID    uuid.UUID  // Project ID
	ProjectTitle string     // Project title
	PermitType   PermitType // Permit procedure
	Address      string     // Property street address
	City         string     // Municipality
	PostalCode   string     // Postal code
	Authority    string     // Competent building authority
	Description  string     // Project notes

	// Generated narrative (AI-produced technical description)
	Narrative string

	// Blueprint findings included in the report
	Findings []ReportFinding

	// Checklist state at generation time, if a checklist exists
	ChecklistDone  int
	ChecklistTotal int

	// Metadata
	GeneratedAt time.Time // When report is being generated
}

// TotalFindings returns the total number of findings.
func (d *ReportData) TotalFindings() int {
	return len(d.Findings)
}

// FindingCountBySeverity returns counts grouped by severity level.
func (d *ReportData) FindingCountBySeverity() map[FindingSeverity]int {
	counts := make(map[FindingSeverity]int)
	for _, f := range d.Findings {
		counts[f.Severity]++
	}
	return counts
}

// HasChecklist returns true if checklist progress is available.
func (d *ReportData) HasChecklist() bool {
	return d.ChecklistTotal > 0
}

// PropertyAddress returns the complete formatted property address.
func (d *ReportData) PropertyAddress() string {
	if d.Address == "" {
		return ""
	}
	addr := d.Address
	if d.City != "" || d.PostalCode != "" {
		addr += "\n"
		if d.City != "" {
			addr += d.City
		}
		if d.PostalCode != "" {
			if d.City != "" {
				addr += " "
			}
			addr += d.PostalCode
		}
	}
	return addr
}

// =============================================================================
// Report Finding
// =============================================================================

// ReportFinding contains blueprint finding data formatted for reports.
type ReportFinding struct {
	Number            int             // Sequential number in report
	BlueprintFilename string          // Source drawing filename
	Title             string          // Finding title
	Description       string          // Finding description
	Severity          FindingSeverity // Severity level
	Reference         string          // Legal basis, e.g. "ΝΟΚ άρθρο 11"
	ThumbnailURL      string          // URL to drawing thumbnail (presigned)
}

// HasReference returns true if this finding cites a regulation.
func (f *ReportFinding) HasReference() bool {
	return f.Reference != ""
}
