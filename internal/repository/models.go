package repository

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/sqlc-dev/pqtype"
)

// User mirrors the users table.
type User struct {
	ID                 uuid.UUID
	Email              string
	PasswordHash       string
	Name               string
	CompanyName        sql.NullString
	Phone              sql.NullString
	RegistryNumber     sql.NullString
	StripeCustomerID   sql.NullString
	SubscriptionStatus string
	SubscriptionID     sql.NullString
	Plan               string
	UsesThisMonth      int32
	LastResetAt        time.Time
	EmailVerified      bool
	EmailVerifiedAt    sql.NullTime
	IsAdmin            bool
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Session mirrors the sessions table.
type Session struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	TokenHash string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// EmailVerificationToken mirrors the email_verification_tokens table.
type EmailVerificationToken struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	TokenHash string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// PasswordResetToken mirrors the password_reset_tokens table.
type PasswordResetToken struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	TokenHash string
	ExpiresAt time.Time
	UsedAt    sql.NullTime
	CreatedAt time.Time
}

// Job mirrors the jobs table.
type Job struct {
	ID           uuid.UUID
	JobType      string
	Payload      json.RawMessage
	Status       string
	Priority     int32
	Attempts     int32
	MaxAttempts  int32
	ErrorMessage sql.NullString
	ScheduledAt  time.Time
	StartedAt    sql.NullTime
	CompletedAt  sql.NullTime
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Project mirrors the projects table.
type Project struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	Title       string
	PermitType  string
	Status      string
	Address     string
	City        string
	PostalCode  string
	Authority   string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Blueprint mirrors the blueprints table.
type Blueprint struct {
	ID               uuid.UUID
	ProjectID        uuid.UUID
	StorageKey       string
	ThumbnailKey     string
	OriginalFilename string
	ContentType      string
	SizeBytes        int64
	Width            int32
	Height           int32
	AnalysisStatus   string
	Analysis         pqtype.NullRawMessage
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Checklist mirrors the checklists table.
type Checklist struct {
	ID          uuid.UUID
	ProjectID   uuid.UUID
	PermitType  string
	Items       json.RawMessage
	GeneratedAt time.Time
	UpdatedAt   time.Time
}

// Report mirrors the reports table.
type Report struct {
	ID             uuid.UUID
	ProjectID      uuid.UUID
	UserID         uuid.UUID
	PDFStorageKey  string
	DOCXStorageKey string
	FindingCount   int32
	GeneratedAt    time.Time
}

// Question mirrors the questions table.
type Question struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	ProjectID uuid.NullUUID
	Question  string
	Answer    string
	Citations pqtype.NullRawMessage
	CreatedAt time.Time
}
