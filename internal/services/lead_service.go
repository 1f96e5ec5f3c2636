package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/stwalsh4118/estatedesk/internal/logger"
	"github.com/stwalsh4118/estatedesk/internal/metrics"
	"github.com/stwalsh4118/estatedesk/internal/models"
	"github.com/stwalsh4118/estatedesk/internal/repository"
	"github.com/stwalsh4118/estatedesk/internal/scoring"
)

// Signal validation constants
const (
	MinSignal = 0.0
	MaxSignal = 100.0
)

// Service-level errors
var (
	ErrLeadNotFound     = errors.New("lead not found")
	ErrInvalidLead      = errors.New("invalid lead")
	ErrInvalidStatus    = errors.New("invalid lead status")
	ErrPropertyNotFound = errors.New("property not found")
)

// ScoredLead is a lead together with its freshly computed score.
type ScoredLead struct {
	models.Lead
	Score models.ScoreResult `json:"score"`
}

// LeadService defines the interface for lead business logic operations.
type LeadService interface {
	// Create validates and stores a new lead. Status defaults to new and
	// source to website. A property code must name an existing property.
	Create(ctx context.Context, lead models.Lead) (*ScoredLead, error)

	// Get returns ErrLeadNotFound if the lead does not exist.
	Get(ctx context.Context, id uuid.UUID) (*ScoredLead, error)

	// List returns an empty slice when nothing matches.
	List(ctx context.Context, filter models.LeadFilter) ([]ScoredLead, error)

	// Update applies a partial update. Name and email are trimmed as on
	// Create. A blank property code unlinks the property. Returns
	// ErrLeadNotFound if the lead does not exist.
	Update(ctx context.Context, id uuid.UUID, update models.LeadUpdate) (*ScoredLead, error)

	// UpdateStatus moves a lead to another funnel stage.
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.LeadStatus) (*ScoredLead, error)

	// Delete returns ErrLeadNotFound if the lead does not exist.
	Delete(ctx context.Context, id uuid.UUID) error

	// Preview scores ad-hoc signals without touching storage.
	Preview(signals scoring.Signals) scoring.Breakdown
}

// leadService is the concrete implementation of LeadService.
type leadService struct {
	leads      repository.LeadRepository
	properties repository.PropertyRepository
	scorer     scoring.Scorer
	metrics    *metrics.Metrics
	log        *logger.Logger
}

// NewLeadService creates a new instance of LeadService. m may be nil.
func NewLeadService(
	leads repository.LeadRepository,
	properties repository.PropertyRepository,
	scorer scoring.Scorer,
	m *metrics.Metrics,
	log *logger.Logger,
) LeadService {
	return &leadService{
		leads:      leads,
		properties: properties,
		scorer:     scorer,
		metrics:    m,
		log:        log,
	}
}

func (s *leadService) Create(ctx context.Context, lead models.Lead) (*ScoredLead, error) {
	lead.Name = strings.TrimSpace(lead.Name)
	lead.Email = strings.TrimSpace(lead.Email)
	if lead.Status == "" {
		lead.Status = models.LeadStatusNew
	}
	if lead.Source == "" {
		lead.Source = models.LeadSourceWebsite
	}

	if err := validateLead(lead); err != nil {
		s.log.Warn("Invalid lead rejected", map[string]interface{}{
			"error": err.Error(),
		})
		return nil, err
	}

	if lead.PropertyCode != nil {
		id, err := s.resolveProperty(ctx, *lead.PropertyCode)
		if err != nil {
			return nil, err
		}
		lead.PropertyID = id
	}

	created, err := s.leads.Create(ctx, &lead)
	if err != nil {
		s.log.Error("Failed to create lead", err, map[string]interface{}{
			"source": string(lead.Source),
		})
		return nil, fmt.Errorf("failed to create lead: %w", err)
	}

	scored := s.score(*created)
	s.log.Info("Lead created", map[string]interface{}{
		"lead_id": created.ID.String(),
		"source":  string(created.Source),
		"score":   scored.Score.Score,
		"tier":    string(scored.Score.Label),
	})
	return &scored, nil
}

func (s *leadService) Get(ctx context.Context, id uuid.UUID) (*ScoredLead, error) {
	lead, err := s.leads.GetByID(ctx, id)
	if err != nil {
		s.log.Error("Failed to query lead", err, map[string]interface{}{
			"lead_id": id.String(),
		})
		return nil, fmt.Errorf("failed to query lead: %w", err)
	}
	if lead == nil {
		return nil, ErrLeadNotFound
	}

	scored := s.score(*lead)
	return &scored, nil
}

func (s *leadService) List(ctx context.Context, filter models.LeadFilter) ([]ScoredLead, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, filter.Status)
	}

	leads, err := s.leads.List(ctx, filter)
	if err != nil {
		s.log.Error("Failed to list leads", err, map[string]interface{}{
			"status": string(filter.Status),
			"source": string(filter.Source),
		})
		return nil, fmt.Errorf("failed to list leads: %w", err)
	}

	scored := make([]ScoredLead, 0, len(leads))
	for _, lead := range leads {
		scored = append(scored, s.score(lead))
	}

	s.log.Debug("Leads listed", map[string]interface{}{
		"count":  len(scored),
		"status": string(filter.Status),
	})
	return scored, nil
}

func (s *leadService) Update(ctx context.Context, id uuid.UUID, update models.LeadUpdate) (*ScoredLead, error) {
	update.Name = trimmed(update.Name)
	update.Email = trimmed(update.Email)
	update.PropertyCode = trimmed(update.PropertyCode)

	if update.PropertyCode != nil && *update.PropertyCode == "" {
		if update.ClearProperty {
			return nil, fmt.Errorf("%w: property given twice", ErrInvalidLead)
		}
		update.PropertyCode = nil
		update.ClearProperty = true
	}

	if err := validateUpdate(update); err != nil {
		s.log.Warn("Invalid lead update rejected", map[string]interface{}{
			"lead_id": id.String(),
			"error":   err.Error(),
		})
		return nil, err
	}

	if update.PropertyCode != nil {
		propertyID, err := s.resolveProperty(ctx, *update.PropertyCode)
		if err != nil {
			return nil, err
		}
		update.PropertyID = propertyID
	}

	lead, err := s.leads.Update(ctx, id, update)
	if err != nil {
		s.log.Error("Failed to update lead", err, map[string]interface{}{
			"lead_id": id.String(),
		})
		return nil, fmt.Errorf("failed to update lead: %w", err)
	}
	if lead == nil {
		return nil, ErrLeadNotFound
	}

	scored := s.score(*lead)
	s.log.Info("Lead updated", map[string]interface{}{
		"lead_id": id.String(),
		"score":   scored.Score.Score,
	})
	return &scored, nil
}

func (s *leadService) UpdateStatus(ctx context.Context, id uuid.UUID, status models.LeadStatus) (*ScoredLead, error) {
	if !status.Valid() {
		s.log.Warn("Invalid lead status provided", map[string]interface{}{
			"lead_id": id.String(),
			"status":  string(status),
		})
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	lead, err := s.leads.UpdateStatus(ctx, id, status)
	if err != nil {
		s.log.Error("Failed to update lead status", err, map[string]interface{}{
			"lead_id": id.String(),
			"status":  string(status),
		})
		return nil, fmt.Errorf("failed to update lead status: %w", err)
	}
	if lead == nil {
		return nil, ErrLeadNotFound
	}

	s.log.Info("Lead moved", map[string]interface{}{
		"lead_id": id.String(),
		"status":  string(status),
	})
	scored := s.score(*lead)
	return &scored, nil
}

func (s *leadService) Delete(ctx context.Context, id uuid.UUID) error {
	deleted, err := s.leads.Delete(ctx, id)
	if err != nil {
		s.log.Error("Failed to delete lead", err, map[string]interface{}{
			"lead_id": id.String(),
		})
		return fmt.Errorf("failed to delete lead: %w", err)
	}
	if !deleted {
		return ErrLeadNotFound
	}

	s.log.Info("Lead deleted", map[string]interface{}{
		"lead_id": id.String(),
	})
	return nil
}

func (s *leadService) Preview(signals scoring.Signals) scoring.Breakdown {
	breakdown := s.scorer.Explain(signals)
	s.metrics.ObserveScore(string(breakdown.Label))
	return breakdown
}

func (s *leadService) score(lead models.Lead) ScoredLead {
	result := s.scorer.ScoreLead(lead)
	s.metrics.ObserveScore(string(result.Label))
	return ScoredLead{Lead: lead, Score: result}
}

func (s *leadService) resolveProperty(ctx context.Context, code string) (*uuid.UUID, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, fmt.Errorf("%w: property code must not be blank", ErrInvalidLead)
	}

	property, err := s.properties.FindByCode(ctx, code)
	if err != nil {
		s.log.Error("Failed to look up property", err, map[string]interface{}{
			"property_code": code,
		})
		return nil, fmt.Errorf("failed to look up property: %w", err)
	}
	if property == nil {
		return nil, fmt.Errorf("%w: %q", ErrPropertyNotFound, code)
	}
	return &property.ID, nil
}

func validateLead(lead models.Lead) error {
	if lead.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidLead)
	}
	if lead.Email == "" {
		return fmt.Errorf("%w: email is required", ErrInvalidLead)
	}
	if !lead.Status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, lead.Status)
	}
	if err := validateSignal("budget_fit", lead.BudgetFit); err != nil {
		return err
	}
	return validateSignal("readiness", lead.Readiness)
}

// validateUpdate expects name and email already trimmed.
func validateUpdate(update models.LeadUpdate) error {
	if update.Name != nil && *update.Name == "" {
		return fmt.Errorf("%w: name must not be blank", ErrInvalidLead)
	}
	if update.Email != nil && *update.Email == "" {
		return fmt.Errorf("%w: email must not be blank", ErrInvalidLead)
	}

	conflicts := []struct {
		field string
		set   bool
		clear bool
	}{
		{models.ClearBudgetFit, update.BudgetFit != nil, update.ClearBudgetFit},
		{models.ClearReadiness, update.Readiness != nil, update.ClearReadiness},
		{models.ClearRegionMatch, update.RegionMatch != nil, update.ClearRegionMatch},
		{models.ClearProperty, update.PropertyCode != nil || update.PropertyID != nil, update.ClearProperty},
	}
	for _, c := range conflicts {
		if c.set && c.clear {
			return fmt.Errorf("%w: %s cannot be set and cleared together", ErrInvalidLead, c.field)
		}
	}

	if err := validateSignal("budget_fit", update.BudgetFit); err != nil {
		return err
	}
	return validateSignal("readiness", update.Readiness)
}

func trimmed(v *string) *string {
	if v == nil {
		return nil
	}
	t := strings.TrimSpace(*v)
	return &t
}

func validateSignal(name string, v *float64) error {
	if v == nil {
		return nil
	}
	if *v < MinSignal || *v > MaxSignal {
		return fmt.Errorf("%w: %s must be between %.0f and %.0f, got %g",
			ErrInvalidLead, name, MinSignal, MaxSignal, *v)
	}
	return nil
}
