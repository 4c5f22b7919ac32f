// Package domain contains core business types and interfaces.
//
// This file defines the Project domain type: a building-permit case that
// blueprint analyses, checklists, and technical reports attach to.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// Permit Type
// =============================================================================

// PermitType classifies the building-permit procedure a project follows.
// The categories mirror the Greek permitting framework (Ν. 4495/2017).
type PermitType string

const (
	// PermitTypeFull is a full building permit (οικοδομική άδεια, κατηγορία 1-3).
	PermitTypeFull PermitType = "full_permit"

	// PermitTypeSmallScale is a small-scale works approval (έγκριση εργασιών
	// μικρής κλίμακας).
	PermitTypeSmallScale PermitType = "small_scale"

	// PermitTypeRenovation covers interior renovation notifications.
	PermitTypeRenovation PermitType = "renovation"

	// PermitTypeLegalization is a legalization filing for unauthorized
	// construction (Ν. 4495/2017 τακτοποίηση).
	PermitTypeLegalization PermitType = "legalization"

	// PermitTypeDemolition is a demolition permit.
	PermitTypeDemolition PermitType = "demolition"
)

// String returns the string representation of the permit type.
func (t PermitType) String() string {
	return string(t)
}

// IsValid returns true if the permit type is a recognized value.
func (t PermitType) IsValid() bool {
	switch t {
	case PermitTypeFull, PermitTypeSmallScale, PermitTypeRenovation,
		PermitTypeLegalization, PermitTypeDemolition:
		return true
	}
	return false
}

// GreekLabel returns the display name of the permit procedure in Greek,
// as it appears on e-Adeies filings.
func (t PermitType) GreekLabel() string {
	switch t {
	case PermitTypeFull:
		return "Οικοδομική Άδεια"
	case PermitTypeSmallScale:
		return "Έγκριση Εργασιών Μικρής Κλίμακας"
	case PermitTypeRenovation:
		return "Γνωστοποίηση Εργασιών Εσωτερικής Ανακαίνισης"
	case PermitTypeLegalization:
		return "Τακτοποίηση Αυθαιρέτου (Ν. 4495/2017)"
	case PermitTypeDemolition:
		return "Άδεια Κατεδάφισης"
	default:
		return string(t)
	}
}

// =============================================================================
// Project Status
// =============================================================================

// ProjectStatus represents the lifecycle state of a permit project.
type ProjectStatus string

const (
	// ProjectStatusPreparing indicates the file is being assembled.
	ProjectStatusPreparing ProjectStatus = "preparing"

	// ProjectStatusSubmitted indicates the application has been filed with
	// the building authority.
	ProjectStatusSubmitted ProjectStatus = "submitted"

	// ProjectStatusApproved indicates the permit was issued.
	ProjectStatusApproved ProjectStatus = "approved"

	// ProjectStatusRejected indicates the application was returned with
	// objections.
	ProjectStatusRejected ProjectStatus = "rejected"
)

// String returns the string representation of the status.
func (s ProjectStatus) String() string {
	return string(s)
}

// IsValid returns true if the status is a recognized value.
func (s ProjectStatus) IsValid() bool {
	switch s {
	case ProjectStatusPreparing, ProjectStatusSubmitted,
		ProjectStatusApproved, ProjectStatusRejected:
		return true
	}
	return false
}

// =============================================================================
// Project Domain Type
// =============================================================================

// Project represents one building-permit case belonging to a user.
type Project struct {
	ID          uuid.UUID     // Unique identifier
	UserID      uuid.UUID     // Owner of the project
	Title       string        // Working title, e.g. "Κατοικία Χαλάνδρι"
	PermitType  PermitType    // Permit procedure this project follows
	Status      ProjectStatus // Current lifecycle state
	Address     string        // Street address of the property
	City        string        // Municipality
	PostalCode  string        // Postal code
	Authority   string        // Competent building authority (ΥΔΟΜ), optional
	Description string        // Optional free-form notes
	CreatedAt   time.Time     // When project was created
	UpdatedAt   time.Time     // When project was last modified

	// Computed fields (not stored directly, populated by queries/services)
	BlueprintCount int // Number of uploaded blueprints
	ReportCount    int // Number of generated reports
}

// FullAddress returns the formatted property address for display.
func (p *Project) FullAddress() string {
	addr := p.Address
	if p.City != "" {
		if addr != "" {
			addr += ", "
		}
		addr += p.City
	}
	if p.PostalCode != "" {
		if addr != "" {
			addr += " "
		}
		addr += p.PostalCode
	}
	return addr
}

// CreateProjectParams contains the validated parameters for creating a project.
type CreateProjectParams struct {
	UserID      uuid.UUID
	Title       string
	PermitType  PermitType
	Address     string
	City        string
	PostalCode  string
	Authority   string
	Description string
}

// UpdateProjectParams contains parameters for updating a project.
type UpdateProjectParams struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	Title       string
	PermitType  PermitType
	Status      ProjectStatus
	Address     string
	City        string
	PostalCode  string
	Authority   string
	Description string
}
