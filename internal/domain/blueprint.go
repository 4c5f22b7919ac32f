// Package domain contains core business types and interfaces.
//
// This file defines the Blueprint domain type and related types for
// managing uploaded permit drawings and their AI analysis.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// Blueprint Analysis Status
// =============================================================================

// BlueprintAnalysisStatus represents the state of AI analysis for a blueprint.
type BlueprintAnalysisStatus string

const (
	// BlueprintAnalysisPending indicates the blueprint is queued for analysis.
	BlueprintAnalysisPending BlueprintAnalysisStatus = "pending"

	// BlueprintAnalysisRunning indicates AI analysis is in progress.
	BlueprintAnalysisRunning BlueprintAnalysisStatus = "running"

	// BlueprintAnalysisCompleted indicates AI analysis finished successfully.
	BlueprintAnalysisCompleted BlueprintAnalysisStatus = "completed"

	// BlueprintAnalysisFailed indicates AI analysis failed.
	BlueprintAnalysisFailed BlueprintAnalysisStatus = "failed"
)

// String returns the string representation of the status.
func (s BlueprintAnalysisStatus) String() string {
	return string(s)
}

// IsValid returns true if the status is a recognized value.
func (s BlueprintAnalysisStatus) IsValid() bool {
	switch s {
	case BlueprintAnalysisPending, BlueprintAnalysisRunning,
		BlueprintAnalysisCompleted, BlueprintAnalysisFailed:
		return true
	}
	return false
}

// =============================================================================
// Blueprint Constants
// =============================================================================

// SupportedBlueprintTypes maps MIME types to their human-readable names.
// Scanned drawings arrive as raster images; vector formats are out of scope.
var SupportedBlueprintTypes = map[string]string{
	"image/jpeg": "JPEG",
	"image/png":  "PNG",
	"image/webp": "WebP",
}

const (
	// MaxBlueprintSize is the maximum allowed size for uploaded drawings (20MB).
	MaxBlueprintSize = 20 * 1024 * 1024

	// ThumbnailMaxWidth is the maximum width for generated thumbnails.
	ThumbnailMaxWidth = 320

	// ThumbnailMaxHeight is the maximum height for generated thumbnails.
	ThumbnailMaxHeight = 320

	// ThumbnailJPEGQuality is the JPEG quality for thumbnail generation (0-100).
	ThumbnailJPEGQuality = 85
)

// =============================================================================
// Blueprint Domain Type
// =============================================================================

// Blueprint represents an uploaded permit drawing.
type Blueprint struct {
	ID               uuid.UUID               // Unique identifier
	ProjectID        uuid.UUID               // Parent project
	StorageKey       string                  // Key in storage service for the original file
	ThumbnailKey     string                  // Key in storage service for the thumbnail
	OriginalFilename string                  // Original filename from upload
	ContentType      string                  // MIME type (e.g. "image/png")
	SizeBytes        int64                   // File size in bytes
	Width            int32                   // Pixel width
	Height           int32                   // Pixel height
	AnalysisStatus   BlueprintAnalysisStatus // Current AI analysis status
	CreatedAt        time.Time               // When blueprint was uploaded
	UpdatedAt        time.Time               // When blueprint was last modified

	// Analysis holds the stored AI analysis once status is completed.
	Analysis *BlueprintAnalysis

	// Computed fields (not stored in database, populated by services)
	ThumbnailURL string // Presigned/public URL for thumbnail
	OriginalURL  string // Presigned/public URL for original file
}

// IsAnalyzed returns true if AI analysis has finished, successfully or not.
func (b *Blueprint) IsAnalyzed() bool {
	return b.AnalysisStatus == BlueprintAnalysisCompleted ||
		b.AnalysisStatus == BlueprintAnalysisFailed
}

// =============================================================================
// Analysis Findings
// =============================================================================

// FindingSeverity grades how serious a blueprint finding is for the permit
// application.
type FindingSeverity string

const (
	FindingSeverityInfo     FindingSeverity = "info"
	FindingSeverityWarning  FindingSeverity = "warning"
	FindingSeverityBlocking FindingSeverity = "blocking"
)

// IsValid returns true if the severity is a recognized value.
func (s FindingSeverity) IsValid() bool {
	switch s {
	case FindingSeverityInfo, FindingSeverityWarning, FindingSeverityBlocking:
		return true
	}
	return false
}

// BlueprintFinding is one issue or observation the AI extracted from a
// drawing: a missing dimension, an inconsistency with the permit type, a
// likely code conflict. Findings are stored as JSON on the blueprint row.
type BlueprintFinding struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Severity    FindingSeverity `json:"severity"`
	Reference   string          `json:"reference,omitempty"` // e.g. "ΝΟΚ άρθρο 11"
}

// BlueprintAnalysis is the stored result of one AI analysis run.
type BlueprintAnalysis struct {
	Summary     string             `json:"summary"`
	DrawingType string             `json:"drawing_type"` // e.g. "κάτοψη", "τομή", "διάγραμμα κάλυψης"
	Findings    []BlueprintFinding `json:"findings"`
	AnalyzedAt  time.Time          `json:"analyzed_at"`
}

// BlockingCount returns the number of blocking findings.
func (a *BlueprintAnalysis) BlockingCount() int {
	n := 0
	for _, f := range a.Findings {
		if f.Severity == FindingSeverityBlocking {
			n++
		}
	}
	return n
}
