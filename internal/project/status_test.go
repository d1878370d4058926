package project

import "testing"

func TestStatusFlow(t *testing.T) {
	s := StatusDiscovery
	steps := 0
	for {
		next, ok := s.Next()
		if !ok {
			break
		}
		if next.Index() != s.Index()+1 {
			t.Fatalf("%s -> %s skips a stage", s, next)
		}
		s = next
		steps++
	}
	if s != StatusCompleted {
		t.Errorf("expected flow to end at completed, got %s", s)
	}
	if steps != len(Flow)-1 {
		t.Errorf("expected %d transitions, got %d", len(Flow)-1, steps)
	}
}

func TestStatusOnHold(t *testing.T) {
	if !StatusOnHold.Valid() {
		t.Error("on_hold should be valid")
	}
	if StatusOnHold.Index() != -1 {
		t.Error("on_hold should sit outside the flow")
	}
	if _, ok := StatusOnHold.Next(); ok {
		t.Error("on_hold should have no next stage")
	}
}

func TestStatusValid(t *testing.T) {
	for _, s := range Flow {
		if !s.Valid() {
			t.Errorf("%s should be valid", s)
		}
	}
	if Status("archived").Valid() {
		t.Error("archived should be invalid")
	}
}

func TestNeedsApproval(t *testing.T) {
	tests := []struct {
		status Status
		want   bool
	}{
		{StatusReviewFindings, true},
		{StatusReviewPRD, true},
		{StatusReviewQA, true},
		{StatusDiscovery, false},
		{StatusDevelopment, false},
		{StatusOnHold, false},
	}
	for _, tt := range tests {
		if got := tt.status.NeedsApproval(); got != tt.want {
			t.Errorf("%s.NeedsApproval() = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestGates(t *testing.T) {
	tests := []struct {
		in       string
		column   string
		review   Status
		advances Status
	}{
		{"findings", "findings_approved", StatusReviewFindings, StatusDocumentation},
		{"prd", "prd_approved", StatusReviewPRD, StatusTaskBreakdown},
		{"qa", "qa_approved", StatusReviewQA, StatusUserTesting},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			g, err := ParseGate(tt.in)
			if err != nil {
				t.Fatalf("ParseGate(%q) failed: %v", tt.in, err)
			}
			if g.Column() != tt.column {
				t.Errorf("column = %q, want %q", g.Column(), tt.column)
			}
			if g.Review() != tt.review {
				t.Errorf("review = %s, want %s", g.Review(), tt.review)
			}
			if g.Advances() != tt.advances {
				t.Errorf("advances = %s, want %s", g.Advances(), tt.advances)
			}
			// Approving a gate moves the project past its review stage.
			if g.Advances().Index() != g.Review().Index()+1 {
				t.Errorf("gate %s does not advance directly past %s", g, g.Review())
			}
		})
	}

	if _, err := ParseGate("legal"); err == nil {
		t.Error("expected error for unknown gate")
	}
}

func TestNewProjectValidate(t *testing.T) {
	if err := (NewProject{Name: "  "}).Validate(); err == nil {
		t.Error("expected error for blank name")
	}
	if err := (NewProject{Name: "CRM rollout"}).Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
