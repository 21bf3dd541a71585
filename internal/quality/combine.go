package quality

import (
	"sort"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"atelier/internal/domain"
)

// Penalty points subtracted from 100 per detected issue. IDs missing from the
// table fall back to the per-severity default.
var penaltyTable = map[string]map[domain.Severity]int{
	"resolution-too-low":  {domain.SeverityFail: 30},
	"resolution-low":      {domain.SeverityWarn: 10},
	"aspect-extreme":      {domain.SeverityWarn: 8},
	"blur-severe":         {domain.SeverityFail: 35, domain.SeverityWarn: 15},
	"blur-moderate":       {domain.SeverityWarn: 15},
	"brightness-low":      {domain.SeverityWarn: 10},
	"brightness-high":     {domain.SeverityWarn: 10},
	"brightness-clipped":  {domain.SeverityWarn: 10},
	"clutter-high":        {domain.SeverityWarn: 12},
	"cropping-severe":     {domain.SeverityFail: 30},
	"cropping-risk":       {domain.SeverityWarn: 12},
	"no-face-detected":    {domain.SeverityFail: 35},
	"face-too-small":      {domain.SeverityWarn: 15},
	"background-contrast": {domain.SeverityWarn: 8},
	"actor-too-small":     {domain.SeverityWarn: 10},
	"garment-too-small":   {domain.SeverityWarn: 10},
	"server-unavailable":  {domain.SeverityWarn: 0},
}

var defaultPenalties = map[domain.Severity]int{
	domain.SeverityFail: 25,
	domain.SeverityWarn: 10,
	domain.SeverityPass: 0,
}

var titleCaser = cases.Title(language.English)

// Combine merges the quick and refined partials into one scored report.
// It is pure and idempotent: the same partials always produce the same result.
func Combine(kind domain.PhotoKind, client domain.AnalysisPartial, server *domain.AnalysisPartial) domain.PhotoAnalysisResult {
	merged := make(map[string]domain.PhotoIssue)
	for _, issue := range client.Issues {
		merged[issue.ID] = issue
	}
	if server != nil {
		for _, issue := range server.Issues {
			existing, ok := merged[issue.ID]
			// On a shared ID keep the higher severity; on a tie prefer the
			// refined pass, whose metrics are fresher.
			if !ok || issue.Severity.Rank() >= existing.Severity.Rank() {
				merged[issue.ID] = issue
			}
		}
	}

	issues := make([]domain.PhotoIssue, 0, len(merged))
	status := domain.SeverityPass
	score := 100
	for _, issue := range merged {
		if issue.Message == "" {
			issue.Message = labelFor(issue.ID)
		}
		issues = append(issues, issue)
		status = domain.MaxSeverity(status, issue.Severity)
		score -= Penalty(issue.ID, issue.Severity)
	}
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	sort.Slice(issues, func(i, j int) bool {
		if issues[i].Severity.Rank() != issues[j].Severity.Rank() {
			return issues[i].Severity.Rank() > issues[j].Severity.Rank()
		}
		return issues[i].ID < issues[j].ID
	})

	result := domain.PhotoAnalysisResult{
		Kind:          kind,
		Score:         score,
		Status:        status,
		Issues:        issues,
		ClientMetrics: client.Metrics,
		AnalyzedAt:    time.Now().UTC(),
		Version:       domain.AnalysisVersion,
	}
	if server != nil {
		result.ServerMetrics = server.Metrics
	}
	return result
}

// Penalty looks up the deduction for an issue, falling back to the severity
// class default for unlisted IDs.
func Penalty(id string, severity domain.Severity) int {
	if bySeverity, ok := penaltyTable[id]; ok {
		if p, ok := bySeverity[severity]; ok {
			return p
		}
	}
	return defaultPenalties[severity]
}

// labelFor derives a human label from an issue ID, e.g.
// "resolution-too-low" becomes "Resolution Too Low".
func labelFor(id string) string {
	return titleCaser.String(strings.ReplaceAll(id, "-", " "))
}
