package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stwalsh4118/estatedesk/internal/database"
	"github.com/stwalsh4118/estatedesk/internal/models"
)

// LeadRepository defines the interface for lead data access operations.
type LeadRepository interface {
	// Create inserts a lead and returns it as stored.
	Create(ctx context.Context, lead *models.Lead) (*models.Lead, error)

	// GetByID returns nil, nil if the lead does not exist (not an error).
	GetByID(ctx context.Context, id uuid.UUID) (*models.Lead, error)

	// List returns leads matching filter, newest first.
	// Returns an empty slice if nothing matches.
	List(ctx context.Context, filter models.LeadFilter) ([]models.Lead, error)

	// Update applies a partial update. Returns nil, nil if the lead does not exist.
	Update(ctx context.Context, id uuid.UUID, update models.LeadUpdate) (*models.Lead, error)

	// UpdateStatus moves a lead to a new funnel stage.
	// Returns nil, nil if the lead does not exist.
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.LeadStatus) (*models.Lead, error)

	// Delete removes a lead. It reports whether a row was deleted.
	Delete(ctx context.Context, id uuid.UUID) (bool, error)

	// Count returns the total number of leads across all statuses.
	Count(ctx context.Context) (int, error)

	// CountByStatus returns the number of leads currently in status.
	CountByStatus(ctx context.Context, status models.LeadStatus) (int, error)

	// ListActivitySince returns (id, created_at) records for leads created at
	// or after since, oldest first.
	ListActivitySince(ctx context.Context, since time.Time) ([]models.ActivityRecord, error)

	// ListOutcomesBetween returns the source and current status of every lead
	// created in [since, until).
	ListOutcomesBetween(ctx context.Context, since, until time.Time) ([]models.LeadOutcome, error)
}

// leadRepository is the concrete implementation of LeadRepository.
type leadRepository struct {
	db *database.Database
}

// NewLeadRepository creates a new instance of LeadRepository.
func NewLeadRepository(db *database.Database) LeadRepository {
	return &leadRepository{
		db: db,
	}
}

const leadColumns = `
	l.id,
	l.name,
	l.email,
	l.phone,
	l.message,
	l.status,
	l.lead_source,
	l.budget_fit,
	l.readiness,
	l.region_match,
	l.property_id,
	p.code,
	l.created_at,
	l.updated_at`

const leadFrom = `
	FROM leads l
	LEFT JOIN properties p ON p.id = l.property_id`

func scanLead(row pgx.Row) (*models.Lead, error) {
	var lead models.Lead
	err := row.Scan(
		&lead.ID,
		&lead.Name,
		&lead.Email,
		&lead.Phone,
		&lead.Message,
		&lead.Status,
		&lead.Source,
		&lead.BudgetFit,
		&lead.Readiness,
		&lead.RegionMatch,
		&lead.PropertyID,
		&lead.PropertyCode,
		&lead.CreatedAt,
		&lead.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &lead, nil
}

func (r *leadRepository) Create(ctx context.Context, lead *models.Lead) (*models.Lead, error) {
	query := `
		INSERT INTO leads (
			name, email, phone, message, status, lead_source,
			budget_fit, readiness, region_match, property_id
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`

	var id uuid.UUID
	err := r.db.Pool.QueryRow(ctx, query,
		lead.Name,
		lead.Email,
		lead.Phone,
		lead.Message,
		string(lead.Status),
		string(lead.Source),
		lead.BudgetFit,
		lead.Readiness,
		lead.RegionMatch,
		lead.PropertyID,
	).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("failed to insert lead: %w", err)
	}

	created, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if created == nil {
		return nil, fmt.Errorf("lead %s vanished after insert", id)
	}
	return created, nil
}

func (r *leadRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Lead, error) {
	query := `SELECT` + leadColumns + leadFrom + ` WHERE l.id = $1`

	lead, err := scanLead(r.db.Pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query lead %s: %w", id, err)
	}
	return lead, nil
}

func (r *leadRepository) List(ctx context.Context, filter models.LeadFilter) ([]models.Lead, error) {
	query, args := buildLeadListQuery(filter)

	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list leads: %w", err)
	}
	defer rows.Close()

	leads := []models.Lead{}
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan lead row: %w", err)
		}
		leads = append(leads, *lead)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating lead rows: %w", err)
	}
	return leads, nil
}

// buildLeadListQuery renders the filtered listing statement.
func buildLeadListQuery(filter models.LeadFilter) (string, []any) {
	var (
		where []string
		args  []any
	)
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		where = append(where, fmt.Sprintf("l.status = $%d", len(args)))
	}
	if filter.Source != "" {
		args = append(args, string(filter.Source))
		where = append(where, fmt.Sprintf("l.lead_source = $%d", len(args)))
	}

	var b strings.Builder
	b.WriteString("SELECT")
	b.WriteString(leadColumns)
	b.WriteString(leadFrom)
	if len(where) > 0 {
		b.WriteString("\n\tWHERE ")
		b.WriteString(strings.Join(where, " AND "))
	}

	args = append(args, clampLimit(filter.Limit))
	fmt.Fprintf(&b, "\n\tORDER BY l.created_at DESC, l.id\n\tLIMIT $%d", len(args))

	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	args = append(args, offset)
	fmt.Fprintf(&b, " OFFSET $%d", len(args))

	return b.String(), args
}

func (r *leadRepository) Update(ctx context.Context, id uuid.UUID, update models.LeadUpdate) (*models.Lead, error) {
	if update.Empty() {
		return r.GetByID(ctx, id)
	}

	query, args := buildLeadUpdate(id, update)
	tag, err := r.db.Pool.Exec(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to update lead %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return nil, nil
	}
	return r.GetByID(ctx, id)
}

// buildLeadUpdate renders an UPDATE touching only the non-nil fields of update
// and the columns it clears. The lead id is always the first argument.
func buildLeadUpdate(id uuid.UUID, update models.LeadUpdate) (string, []any) {
	args := []any{id}
	var sets []string
	set := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	setNull := func(column string) {
		sets = append(sets, column+" = NULL")
	}

	if update.Name != nil {
		set("name", *update.Name)
	}
	if update.Email != nil {
		set("email", *update.Email)
	}
	if update.Phone != nil {
		set("phone", *update.Phone)
	}
	if update.Message != nil {
		set("message", *update.Message)
	}
	if update.Source != nil {
		set("lead_source", string(*update.Source))
	}
	switch {
	case update.BudgetFit != nil:
		set("budget_fit", *update.BudgetFit)
	case update.ClearBudgetFit:
		setNull("budget_fit")
	}
	switch {
	case update.Readiness != nil:
		set("readiness", *update.Readiness)
	case update.ClearReadiness:
		setNull("readiness")
	}
	switch {
	case update.RegionMatch != nil:
		set("region_match", *update.RegionMatch)
	case update.ClearRegionMatch:
		setNull("region_match")
	}
	switch {
	case update.PropertyID != nil:
		set("property_id", *update.PropertyID)
	case update.ClearProperty:
		setNull("property_id")
	}
	sets = append(sets, "updated_at = NOW()")

	return "UPDATE leads SET " + strings.Join(sets, ", ") + " WHERE id = $1", args
}

func (r *leadRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.LeadStatus) (*models.Lead, error) {
	tag, err := r.db.Pool.Exec(ctx,
		`UPDATE leads SET status = $2, updated_at = NOW() WHERE id = $1`,
		id, string(status),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update status of lead %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return nil, nil
	}
	return r.GetByID(ctx, id)
}

func (r *leadRepository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM leads WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete lead %s: %w", id, err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *leadRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM leads`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count leads: %w", err)
	}
	return count, nil
}

func (r *leadRepository) CountByStatus(ctx context.Context, status models.LeadStatus) (int, error) {
	var count int
	err := r.db.Pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM leads WHERE status = $1`, string(status),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count %s leads: %w", status, err)
	}
	return count, nil
}

func (r *leadRepository) ListActivitySince(ctx context.Context, since time.Time) ([]models.ActivityRecord, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id::text, created_at, NULL::text
		FROM leads
		WHERE created_at >= $1
		ORDER BY created_at
	`, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query lead activity since %s: %w", since.Format(time.RFC3339), err)
	}
	return collectActivity(rows)
}

func (r *leadRepository) ListOutcomesBetween(ctx context.Context, since, until time.Time) ([]models.LeadOutcome, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT lead_source, status
		FROM leads
		WHERE created_at >= $1 AND created_at < $2
	`, since, until)
	if err != nil {
		return nil, fmt.Errorf("failed to query lead outcomes from %s to %s: %w",
			since.Format(time.RFC3339), until.Format(time.RFC3339), err)
	}
	defer rows.Close()

	outcomes := []models.LeadOutcome{}
	for rows.Next() {
		var source, status string
		if err := rows.Scan(&source, &status); err != nil {
			return nil, fmt.Errorf("failed to scan lead outcome: %w", err)
		}
		outcomes = append(outcomes, models.LeadOutcome{
			Source: models.LeadSource(source),
			Status: models.LeadStatus(status),
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating lead outcomes: %w", err)
	}
	return outcomes, nil
}
