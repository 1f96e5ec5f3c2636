package models

import (
	"time"

	"github.com/google/uuid"
)

// LeadStatus is the stage a lead occupies in the sales funnel.
type LeadStatus string

// Lead statuses, in funnel order.
const (
	LeadStatusNew       LeadStatus = "new"
	LeadStatusContacted LeadStatus = "contacted"
	LeadStatusQualified LeadStatus = "qualified"
	LeadStatusViewing   LeadStatus = "viewing"
	LeadStatusOffer     LeadStatus = "offer"
	LeadStatusWon       LeadStatus = "won"
	LeadStatusLost      LeadStatus = "lost"
)

// FunnelStages is the fixed funnel order used by dashboards.
var FunnelStages = []LeadStatus{
	LeadStatusNew,
	LeadStatusContacted,
	LeadStatusQualified,
	LeadStatusViewing,
	LeadStatusOffer,
	LeadStatusWon,
	LeadStatusLost,
}

// Valid reports whether s is one of the recognised funnel stages.
func (s LeadStatus) Valid() bool {
	for _, stage := range FunnelStages {
		if s == stage {
			return true
		}
	}
	return false
}

// LeadSource is the channel a lead arrived through.
type LeadSource string

// Known lead sources. Other values are stored as given.
const (
	LeadSourceWebsite  LeadSource = "website"
	LeadSourceReferral LeadSource = "referral"
	LeadSourcePortal   LeadSource = "portal"
	LeadSourceSocial   LeadSource = "social"
	LeadSourceWalkIn   LeadSource = "walk_in"
	LeadSourceOther    LeadSource = "other"
	LeadSourceUnknown  LeadSource = "unknown"
)

// Lead represents a prospective customer inquiry tracked through the funnel.
// Nullable columns use pointers to distinguish between zero values and NULL.
type Lead struct {
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	BudgetFit    *float64   `json:"budget_fit,omitempty"`
	Readiness    *float64   `json:"readiness,omitempty"`
	RegionMatch  *bool      `json:"region_match,omitempty"`
	PropertyID   *uuid.UUID `json:"property_id,omitempty"`
	PropertyCode *string    `json:"property_code,omitempty"`
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	Phone        string     `json:"phone,omitempty"`
	Message      string     `json:"message,omitempty"`
	Status       LeadStatus `json:"status"`
	Source       LeadSource `json:"source"`
	ID           uuid.UUID  `json:"id"`
}

// LeadFilter narrows a lead listing. Zero values mean "no filter".
type LeadFilter struct {
	Status LeadStatus
	Source LeadSource
	Limit  int
	Offset int
}

// Nullable lead fields a LeadUpdate can reset to NULL.
const (
	ClearBudgetFit   = "budget_fit"
	ClearReadiness   = "readiness"
	ClearRegionMatch = "region_match"
	ClearProperty    = "property"
)

// LeadUpdate carries a partial update; nil fields are left untouched.
// PropertyCode is resolved to PropertyID by the service layer. The Clear
// flags set the matching column to NULL and cannot be combined with a value
// for the same field.
type LeadUpdate struct {
	Name             *string
	Email            *string
	Phone            *string
	Message          *string
	Source           *LeadSource
	BudgetFit        *float64
	Readiness        *float64
	RegionMatch      *bool
	PropertyID       *uuid.UUID
	PropertyCode     *string
	ClearBudgetFit   bool
	ClearReadiness   bool
	ClearRegionMatch bool
	ClearProperty    bool
}

// Empty reports whether the update changes nothing.
func (u LeadUpdate) Empty() bool {
	return u.Name == nil && u.Email == nil && u.Phone == nil && u.Message == nil &&
		u.Source == nil && u.BudgetFit == nil && u.Readiness == nil &&
		u.RegionMatch == nil && u.PropertyID == nil && u.PropertyCode == nil &&
		!u.ClearBudgetFit && !u.ClearReadiness && !u.ClearRegionMatch && !u.ClearProperty
}

// Clear sets the flag named by field. Unknown names are ignored.
func (u *LeadUpdate) Clear(field string) {
	switch field {
	case ClearBudgetFit:
		u.ClearBudgetFit = true
	case ClearReadiness:
		u.ClearReadiness = true
	case ClearRegionMatch:
		u.ClearRegionMatch = true
	case ClearProperty:
		u.ClearProperty = true
	}
}

// LeadOutcome is the minimal projection used for source attribution.
type LeadOutcome struct {
	Source LeadSource
	Status LeadStatus
}
