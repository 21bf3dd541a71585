package quality

import (
	"reflect"
	"testing"

	"atelier/internal/domain"
)

func issue(id string, sev domain.Severity) domain.PhotoIssue {
	return domain.PhotoIssue{ID: id, Severity: sev, Message: "m-" + id}
}

func TestCombineKeepsHigherSeverityOnSharedID(t *testing.T) {
	client := domain.AnalysisPartial{Issues: []domain.PhotoIssue{issue("blur-severe", domain.SeverityWarn)}}
	server := &domain.AnalysisPartial{Issues: []domain.PhotoIssue{issue("blur-severe", domain.SeverityFail)}}

	result := Combine(domain.PhotoKindActor, client, server)
	if len(result.Issues) != 1 {
		t.Fatalf("expected 1 merged issue, got %d", len(result.Issues))
	}
	if result.Issues[0].Severity != domain.SeverityFail {
		t.Fatalf("expected fail to win, got %s", result.Issues[0].Severity)
	}

	// Same outcome with the sides swapped.
	result = Combine(domain.PhotoKindActor, domain.AnalysisPartial{Issues: server.Issues},
		&domain.AnalysisPartial{Issues: client.Issues})
	if result.Issues[0].Severity != domain.SeverityFail {
		t.Fatalf("expected fail to win regardless of side, got %s", result.Issues[0].Severity)
	}
}

func TestCombineScoreMonotonicallyNonIncreasing(t *testing.T) {
	ids := []string{"resolution-low", "blur-moderate", "clutter-high", "cropping-risk", "unlisted-issue"}
	prev := 101
	var issues []domain.PhotoIssue
	for _, id := range ids {
		issues = append(issues, issue(id, domain.SeverityWarn))
		result := Combine(domain.PhotoKindGarment, domain.AnalysisPartial{Issues: issues}, nil)
		if result.Score > prev {
			t.Fatalf("score increased from %d to %d after adding %s", prev, result.Score, id)
		}
		if result.Score < 0 || result.Score > 100 {
			t.Fatalf("score out of range: %d", result.Score)
		}
		prev = result.Score
	}
}

func TestCombineScoreClampedAtZero(t *testing.T) {
	var issues []domain.PhotoIssue
	for _, id := range []string{"blur-severe", "resolution-too-low", "cropping-severe", "no-face-detected", "x1", "x2"} {
		issues = append(issues, issue(id, domain.SeverityFail))
	}
	result := Combine(domain.PhotoKindActor, domain.AnalysisPartial{Issues: issues}, nil)
	if result.Score != 0 {
		t.Fatalf("expected clamp at 0, got %d", result.Score)
	}
	if result.Status != domain.SeverityFail {
		t.Fatalf("expected fail status, got %s", result.Status)
	}
}

func TestCombineEmptyIsPassWithFullScore(t *testing.T) {
	result := Combine(domain.PhotoKindGarment, domain.AnalysisPartial{}, &domain.AnalysisPartial{})
	if result.Score != 100 || result.Status != domain.SeverityPass || len(result.Issues) != 0 {
		t.Fatalf("unexpected result for empty partials: %+v", result)
	}
}

func TestCombineIsDeterministic(t *testing.T) {
	client := domain.AnalysisPartial{Issues: []domain.PhotoIssue{
		issue("clutter-high", domain.SeverityWarn),
		issue("blur-moderate", domain.SeverityWarn),
	}}
	server := &domain.AnalysisPartial{Issues: []domain.PhotoIssue{
		issue("cropping-risk", domain.SeverityWarn),
		issue("blur-moderate", domain.SeverityWarn),
	}}
	first := Combine(domain.PhotoKindActor, client, server)
	second := Combine(domain.PhotoKindActor, client, server)
	first.AnalyzedAt = second.AnalyzedAt
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("combine not deterministic:\n%+v\n%+v", first, second)
	}
}

func TestCombineStatusIsMaxSeverity(t *testing.T) {
	client := domain.AnalysisPartial{Issues: []domain.PhotoIssue{issue("resolution-low", domain.SeverityWarn)}}
	server := &domain.AnalysisPartial{Issues: []domain.PhotoIssue{issue("cropping-severe", domain.SeverityFail)}}
	result := Combine(domain.PhotoKindGarment, client, server)
	if result.Status != domain.SeverityFail {
		t.Fatalf("expected fail status, got %s", result.Status)
	}
	if result.Issues[0].ID != "cropping-severe" {
		t.Fatalf("expected fail issue sorted first, got %s", result.Issues[0].ID)
	}
}

func TestPenaltyFallsBackToSeverityDefault(t *testing.T) {
	if got := Penalty("never-seen-before", domain.SeverityFail); got != 25 {
		t.Fatalf("default fail penalty: got %d want 25", got)
	}
	if got := Penalty("never-seen-before", domain.SeverityWarn); got != 10 {
		t.Fatalf("default warn penalty: got %d want 10", got)
	}
	if got := Penalty("resolution-too-low", domain.SeverityFail); got != 30 {
		t.Fatalf("listed penalty: got %d want 30", got)
	}
}

func TestLabelForHumanizesIssueIDs(t *testing.T) {
	if got := labelFor("resolution-too-low"); got != "Resolution Too Low" {
		t.Fatalf("labelFor: got %q", got)
	}
}
