package models

// Tier is the categorical label derived from a lead score.
type Tier string

const (
	TierHot  Tier = "Hot"
	TierWarm Tier = "Warm"
	TierCold Tier = "Cold"
)

// ScoreResult is a derived lead score. It is recomputed on every read.
type ScoreResult struct {
	Score int  `json:"score"`
	Label Tier `json:"label"`
}

// ActivityRecord is one timestamped business record (lead, viewing or offer)
// fed to the pipeline aggregator. CreatedAt is an ISO-8601 string; Status is
// only meaningful for offers.
type ActivityRecord struct {
	ID        string `json:"id"`
	CreatedAt string `json:"created_at"`
	Status    string `json:"status,omitempty"`
}

// TimeSeriesBucket holds the per-category counts for one calendar day.
type TimeSeriesBucket struct {
	Date     string `json:"date"`
	Leads    int    `json:"leads"`
	Viewings int    `json:"viewings"`
	Offers   int    `json:"offers"`
	Won      int    `json:"won"`
}

// FunnelStage is the number of leads currently at a stage.
type FunnelStage struct {
	Stage      LeadStatus `json:"stage"`
	Count      int        `json:"count"`
	Percentage float64    `json:"percentage"`
}

// SourceAttribution summarises how one lead source performs.
type SourceAttribution struct {
	Source         LeadSource `json:"source"`
	Leads          int        `json:"leads"`
	Won            int        `json:"won"`
	ConversionRate float64    `json:"conversion_rate"`
}

// ConversionSummary is the headline conversion block of the dashboard.
type ConversionSummary struct {
	TotalLeads     int     `json:"total_leads"`
	Won            int     `json:"won"`
	Lost           int     `json:"lost"`
	Open           int     `json:"open"`
	ConversionRate float64 `json:"conversion_rate"`
	WinRate        float64 `json:"win_rate"`
}
