package domain

import "testing"

func TestJobStatusTransitions(t *testing.T) {
	cases := []struct {
		from, to JobStatus
		want     bool
	}{
		{JobStatusQueued, JobStatusRunning, true},
		{JobStatusQueued, JobStatusSucceeded, true},
		{JobStatusQueued, JobStatusFailed, true},
		{JobStatusRunning, JobStatusSucceeded, true},
		{JobStatusRunning, JobStatusFailed, true},
		{JobStatusRunning, JobStatusQueued, false},
		{JobStatusSucceeded, JobStatusFailed, false},
		{JobStatusSucceeded, JobStatusRunning, false},
		{JobStatusFailed, JobStatusSucceeded, false},
		{JobStatusFailed, JobStatusRunning, false},
	}
	for _, tc := range cases {
		if got := tc.from.CanTransition(tc.to); got != tc.want {
			t.Fatalf("%s -> %s: got %v want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestTerminalStatesAreImmutable(t *testing.T) {
	for _, terminal := range []JobStatus{JobStatusSucceeded, JobStatusFailed} {
		if !terminal.Terminal() {
			t.Fatalf("%s should be terminal", terminal)
		}
		for _, to := range []JobStatus{JobStatusQueued, JobStatusRunning, JobStatusSucceeded, JobStatusFailed} {
			if terminal.CanTransition(to) {
				t.Fatalf("terminal %s must not transition to %s", terminal, to)
			}
		}
	}
}

func TestSeverityOrdering(t *testing.T) {
	if SeverityPass.Rank() >= SeverityWarn.Rank() || SeverityWarn.Rank() >= SeverityFail.Rank() {
		t.Fatalf("severity ordering broken: pass=%d warn=%d fail=%d",
			SeverityPass.Rank(), SeverityWarn.Rank(), SeverityFail.Rank())
	}
	if got := MaxSeverity(SeverityWarn, SeverityFail); got != SeverityFail {
		t.Fatalf("MaxSeverity(warn, fail) = %s", got)
	}
	if got := MaxSeverity(SeverityWarn, SeverityPass); got != SeverityWarn {
		t.Fatalf("MaxSeverity(warn, pass) = %s", got)
	}
}
