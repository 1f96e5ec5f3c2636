package analytics

import (
	"context"
	"fmt"
	"sort"

	"github.com/stwalsh4118/estatedesk/internal/models"
)

// StageCounter counts leads currently in a given status.
type StageCounter interface {
	CountByStatus(ctx context.Context, status models.LeadStatus) (int, error)
}

// FunnelByStage counts leads per funnel stage, in models.FunnelStages order.
// Stages with no leads are omitted. Percentages are relative to total, which
// the caller computes over all statuses. A zero total yields an empty result
// without querying. The first counter error aborts the whole computation.
func FunnelByStage(ctx context.Context, counter StageCounter, total int) ([]models.FunnelStage, error) {
	stages := []models.FunnelStage{}
	if total <= 0 {
		return stages, nil
	}

	for _, status := range models.FunnelStages {
		count, err := counter.CountByStatus(ctx, status)
		if err != nil {
			return nil, fmt.Errorf("failed to count %s leads: %w", status, err)
		}
		if count == 0 {
			continue
		}
		stages = append(stages, models.FunnelStage{
			Stage:      status,
			Count:      count,
			Percentage: percentage(count, total),
		})
	}

	return stages, nil
}

// StatusCounts queries the count of every funnel stage.
func StatusCounts(ctx context.Context, counter StageCounter) (map[models.LeadStatus]int, error) {
	counts := make(map[models.LeadStatus]int, len(models.FunnelStages))
	for _, status := range models.FunnelStages {
		count, err := counter.CountByStatus(ctx, status)
		if err != nil {
			return nil, fmt.Errorf("failed to count %s leads: %w", status, err)
		}
		counts[status] = count
	}
	return counts, nil
}

// AttributeSources groups leads by source. Results are ordered by lead volume,
// then by source name.
func AttributeSources(outcomes []models.LeadOutcome) []models.SourceAttribution {
	bySource := make(map[models.LeadSource]*models.SourceAttribution)
	for _, o := range outcomes {
		source := o.Source
		if source == "" {
			source = models.LeadSourceUnknown
		}
		attr, ok := bySource[source]
		if !ok {
			attr = &models.SourceAttribution{Source: source}
			bySource[source] = attr
		}
		attr.Leads++
		if o.Status == models.LeadStatusWon {
			attr.Won++
		}
	}

	result := make([]models.SourceAttribution, 0, len(bySource))
	for _, attr := range bySource {
		attr.ConversionRate = percentage(attr.Won, attr.Leads)
		result = append(result, *attr)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Leads != result[j].Leads {
			return result[i].Leads > result[j].Leads
		}
		return result[i].Source < result[j].Source
	})

	return result
}

// SummarizeConversions derives the headline conversion figures from per-status counts.
func SummarizeConversions(counts map[models.LeadStatus]int) models.ConversionSummary {
	var summary models.ConversionSummary
	for _, count := range counts {
		summary.TotalLeads += count
	}
	summary.Won = counts[models.LeadStatusWon]
	summary.Lost = counts[models.LeadStatusLost]
	summary.Open = summary.TotalLeads - summary.Won - summary.Lost
	summary.ConversionRate = percentage(summary.Won, summary.TotalLeads)
	summary.WinRate = percentage(summary.Won, summary.Won+summary.Lost)
	return summary
}

func percentage(part, whole int) float64 {
	if whole <= 0 {
		return 0
	}
	return float64(part) / float64(whole) * 100
}
