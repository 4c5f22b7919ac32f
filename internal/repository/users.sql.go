package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

const userColumns = `id, email, password_hash, name, company_name, phone, registry_number,
	stripe_customer_id, subscription_status, subscription_id,
	plan, uses_this_month, last_reset_at,
	email_verified, email_verified_at, is_admin, created_at, updated_at`

func scanUser(row *sql.Row) (User, error) {
	var u User
	err := row.Scan(
		&u.ID, &u.Email, &u.PasswordHash, &u.Name, &u.CompanyName, &u.Phone, &u.RegistryNumber,
		&u.StripeCustomerID, &u.SubscriptionStatus, &u.SubscriptionID,
		&u.Plan, &u.UsesThisMonth, &u.LastResetAt,
		&u.EmailVerified, &u.EmailVerifiedAt, &u.IsAdmin, &u.CreatedAt, &u.UpdatedAt,
	)
	return u, err
}

type CreateUserParams struct {
	Email          string
	PasswordHash   string
	Name           string
	CompanyName    sql.NullString
	Phone          sql.NullString
	RegistryNumber sql.NullString
	Plan           string
}

const createUser = `-- name: CreateUser :one
INSERT INTO users (email, password_hash, name, company_name, phone, registry_number, plan)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING ` + userColumns

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	row := q.db.QueryRowContext(ctx, createUser,
		arg.Email, arg.PasswordHash, arg.Name, arg.CompanyName, arg.Phone, arg.RegistryNumber, arg.Plan)
	return scanUser(row)
}

const getUserByID = `-- name: GetUserByID :one
SELECT ` + userColumns + ` FROM users WHERE id = $1`

func (q *Queries) GetUserByID(ctx context.Context, id uuid.UUID) (User, error) {
	return scanUser(q.db.QueryRowContext(ctx, getUserByID, id))
}

const getUserByEmail = `-- name: GetUserByEmail :one
SELECT ` + userColumns + ` FROM users WHERE email = lower($1)`

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (User, error) {
	return scanUser(q.db.QueryRowContext(ctx, getUserByEmail, email))
}

const getUserByStripeCustomerID = `-- name: GetUserByStripeCustomerID :one
SELECT ` + userColumns + ` FROM users WHERE stripe_customer_id = $1`

func (q *Queries) GetUserByStripeCustomerID(ctx context.Context, customerID string) (User, error) {
	return scanUser(q.db.QueryRowContext(ctx, getUserByStripeCustomerID, customerID))
}

type UpdateUserProfileParams struct {
	ID             uuid.UUID
	Name           string
	CompanyName    sql.NullString
	Phone          sql.NullString
	RegistryNumber sql.NullString
}

const updateUserProfile = `-- name: UpdateUserProfile :exec
UPDATE users
SET name = $2, company_name = $3, phone = $4, registry_number = $5, updated_at = now()
WHERE id = $1`

func (q *Queries) UpdateUserProfile(ctx context.Context, arg UpdateUserProfileParams) error {
	_, err := q.db.ExecContext(ctx, updateUserProfile,
		arg.ID, arg.Name, arg.CompanyName, arg.Phone, arg.RegistryNumber)
	return err
}

type UpdateUserPasswordParams struct {
	ID           uuid.UUID
	PasswordHash string
}

const updateUserPassword = `-- name: UpdateUserPassword :exec
UPDATE users SET password_hash = $2, updated_at = now() WHERE id = $1`

func (q *Queries) UpdateUserPassword(ctx context.Context, arg UpdateUserPasswordParams) error {
	_, err := q.db.ExecContext(ctx, updateUserPassword, arg.ID, arg.PasswordHash)
	return err
}

const updateUserEmailVerification = `-- name: UpdateUserEmailVerification :exec
UPDATE users SET email_verified = true, email_verified_at = now(), updated_at = now() WHERE id = $1`

func (q *Queries) UpdateUserEmailVerification(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.ExecContext(ctx, updateUserEmailVerification, id)
	return err
}

type UpdateUserStripeCustomerParams struct {
	ID               uuid.UUID
	StripeCustomerID sql.NullString
}

const updateUserStripeCustomer = `-- name: UpdateUserStripeCustomer :exec
UPDATE users SET stripe_customer_id = $2, updated_at = now() WHERE id = $1`

func (q *Queries) UpdateUserStripeCustomer(ctx context.Context, arg UpdateUserStripeCustomerParams) error {
	_, err := q.db.ExecContext(ctx, updateUserStripeCustomer, arg.ID, arg.StripeCustomerID)
	return err
}

type UpdateUserSubscriptionParams struct {
	ID                 uuid.UUID
	SubscriptionStatus string
	SubscriptionID     sql.NullString
}

const updateUserSubscription = `-- name: UpdateUserSubscription :exec
UPDATE users SET subscription_status = $2, subscription_id = $3, updated_at = now() WHERE id = $1`

func (q *Queries) UpdateUserSubscription(ctx context.Context, arg UpdateUserSubscriptionParams) error {
	_, err := q.db.ExecContext(ctx, updateUserSubscription, arg.ID, arg.SubscriptionStatus, arg.SubscriptionID)
	return err
}

type UpdateUserPlanParams struct {
	ID   uuid.UUID
	Plan string
}

// UpdateUserPlan changes only the plan tier. The usage counter and its
// reset anchor are deliberately untouched: a mid-period plan change keeps
// accumulated usage, measured against the new quota from the next check on.
const updateUserPlan = `-- name: UpdateUserPlan :one
UPDATE users SET plan = $2, updated_at = now()
WHERE id = $1
RETURNING ` + userColumns

func (q *Queries) UpdateUserPlan(ctx context.Context, arg UpdateUserPlanParams) (User, error) {
	return scanUser(q.db.QueryRowContext(ctx, updateUserPlan, arg.ID, arg.Plan))
}

type GetUserUsageRow struct {
	Plan          string
	UsesThisMonth int32
	LastResetAt   time.Time
}

const getUserUsage = `-- name: GetUserUsage :one
SELECT plan, uses_this_month, last_reset_at FROM users WHERE id = $1`

// GetUserUsage reads the raw metering state without applying the staleness
// rule; callers interpret the count through the domain predicate.
func (q *Queries) GetUserUsage(ctx context.Context, id uuid.UUID) (GetUserUsageRow, error) {
	var r GetUserUsageRow
	err := q.db.QueryRowContext(ctx, getUserUsage, id).Scan(&r.Plan, &r.UsesThisMonth, &r.LastResetAt)
	return r, err
}

type ConsumeUseParams struct {
	ID    uuid.UUID
	Quota int32 // -1 disables the quota bound (unlimited plans)
}

type ConsumeUseRow struct {
	UsesThisMonth int32
	LastResetAt   time.Time
}

// ConsumeUse is the single atomic increment behind every allowed tool
// invocation. The month-match CASE rolls a stale counter over to 1 and
// re-anchors the period in the same statement; the WHERE clause refuses
// the update when the effective count has already reached the quota.
// No row returned means either the user is missing or the quota is
// exhausted - callers disambiguate with a follow-up read.
const consumeUse = `-- name: ConsumeUse :one
UPDATE users SET
    uses_this_month = CASE
        WHEN date_trunc('month', last_reset_at AT TIME ZONE 'UTC') = date_trunc('month', now() AT TIME ZONE 'UTC')
        THEN uses_this_month + 1
        ELSE 1
    END,
    last_reset_at = CASE
        WHEN date_trunc('month', last_reset_at AT TIME ZONE 'UTC') = date_trunc('month', now() AT TIME ZONE 'UTC')
        THEN last_reset_at
        ELSE now()
    END,
    updated_at = now()
WHERE id = $1
  AND ($2 < 0 OR CASE
        WHEN date_trunc('month', last_reset_at AT TIME ZONE 'UTC') = date_trunc('month', now() AT TIME ZONE 'UTC')
        THEN uses_this_month
        ELSE 0
    END < $2)
RETURNING uses_this_month, last_reset_at`

func (q *Queries) ConsumeUse(ctx context.Context, arg ConsumeUseParams) (ConsumeUseRow, error) {
	var r ConsumeUseRow
	err := q.db.QueryRowContext(ctx, consumeUse, arg.ID, arg.Quota).Scan(&r.UsesThisMonth, &r.LastResetAt)
	return r, err
}

const listUsers = `-- name: ListUsers :many
SELECT ` + userColumns + ` FROM users ORDER BY created_at DESC LIMIT $1 OFFSET $2`

type ListUsersParams struct {
	Limit  int32
	Offset int32
}

func (q *Queries) ListUsers(ctx context.Context, arg ListUsersParams) ([]User, error) {
	rows, err := q.db.QueryContext(ctx, listUsers, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var u User
		if err := rows.Scan(
			&u.ID, &u.Email, &u.PasswordHash, &u.Name, &u.CompanyName, &u.Phone, &u.RegistryNumber,
			&u.StripeCustomerID, &u.SubscriptionStatus, &u.SubscriptionID,
			&u.Plan, &u.UsesThisMonth, &u.LastResetAt,
			&u.EmailVerified, &u.EmailVerifiedAt, &u.IsAdmin, &u.CreatedAt, &u.UpdatedAt,
		); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}
