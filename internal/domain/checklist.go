// Package domain contains core business types and interfaces.
//
// This file defines the Checklist domain types for the permit-submission
// checklist tool. A checklist is generated once per request from the
// project's permit type and the AI's reading of current filing requirements,
// then stored on the project for the user to work through.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// ChecklistItem is one required document or step in a permit filing.
type ChecklistItem struct {
	Title       string `json:"title"`                 // e.g. "Τοπογραφικό διάγραμμα"
	Description string `json:"description,omitempty"` // What the item is and who signs it
	Required    bool   `json:"required"`              // False for conditionally-needed items
	Reference   string `json:"reference,omitempty"`   // Legal basis, e.g. "Ν. 4495/2017 άρθρο 40"
	Done        bool   `json:"done"`                  // User-toggled completion state
}

// Checklist represents a generated permit-submission checklist.
type Checklist struct {
	ID          uuid.UUID       // Unique identifier
	ProjectID   uuid.UUID       // Project this checklist belongs to
	PermitType  PermitType      // Permit type the checklist was generated for
	Items       []ChecklistItem // Ordered filing requirements
	GeneratedAt time.Time       // When the checklist was generated
	UpdatedAt   time.Time       // Last item toggle
}

// Progress returns completed and total counts over required items.
func (c *Checklist) Progress() (done, total int) {
	for _, item := range c.Items {
		if !item.Required {
			continue
		}
		total++
		if item.Done {
			done++
		}
	}
	return done, total
}

// IsComplete returns true when every required item is done.
func (c *Checklist) IsComplete() bool {
	done, total := c.Progress()
	return total > 0 && done == total
}
