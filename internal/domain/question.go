// Package domain contains core business types and interfaces.
//
// This file defines the Question domain type for the regulation Q&A tool.
// Answered questions are kept as history so users can revisit prior answers
// without spending another quota use.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Citation points at the regulation text an answer relies on.
type Citation struct {
	Reference string `json:"reference"`         // e.g. "ΝΟΚ (Ν. 4067/2012) άρθρο 19"
	Excerpt   string `json:"excerpt,omitempty"` // short quoted passage, optional
}

// Question represents one answered regulation Q&A exchange.
type Question struct {
	ID        uuid.UUID  // Unique identifier
	UserID    uuid.UUID  // Who asked
	ProjectID *uuid.UUID // Optional: project context the question was asked in
	Question  string     // The user's question
	Answer    string     // The generated answer
	Citations []Citation // Regulation references backing the answer
	CreatedAt time.Time  // When the question was answered
}

// AskParams contains the validated parameters for the Q&A tool.
type AskParams struct {
	UserID    uuid.UUID
	ProjectID *uuid.UUID // Optional project context
	Question  string
}

const (
	// MaxQuestionLength bounds a single question. Long pasted documents
	// belong in the blueprint/report tools, not Q&A.
	MaxQuestionLength = 4000
)

// LetterDraft is the result of the cover-letter tool: a ready-to-edit
// transmittal to the competent building authority. Drafts are returned to
// the caller, not persisted.
type LetterDraft struct {
	Recipient string // Authority the letter addresses
	Subject   string
	Body      string
	DraftedAt time.Time
}

// DraftLetterParams contains the validated parameters for the letter tool.
type DraftLetterParams struct {
	UserID    uuid.UUID
	ProjectID uuid.UUID
	Purpose   string // What the letter should accomplish, in the user's words
}
