package project

import (
	"errors"
	"fmt"
)

var ErrNotFound = errors.New("project not found")

type Status string

const (
	StatusDiscovery      Status = "discovery"
	StatusAnalysis       Status = "analysis"
	StatusReviewFindings Status = "review_findings"
	StatusDocumentation  Status = "documentation"
	StatusPRDCreation    Status = "prd_creation"
	StatusReviewPRD      Status = "review_prd"
	StatusTaskBreakdown  Status = "task_breakdown"
	StatusDevelopment    Status = "development"
	StatusReviewQA       Status = "review_qa"
	StatusUserTesting    Status = "user_testing"
	StatusIteration      Status = "iteration"
	StatusCompleted      Status = "completed"
	StatusOnHold         Status = "on_hold"
)

// Flow is the ordered delivery pipeline. on_hold sits outside it.
var Flow = []Status{
	StatusDiscovery,
	StatusAnalysis,
	StatusReviewFindings,
	StatusDocumentation,
	StatusPRDCreation,
	StatusReviewPRD,
	StatusTaskBreakdown,
	StatusDevelopment,
	StatusReviewQA,
	StatusUserTesting,
	StatusIteration,
	StatusCompleted,
}

// Index returns the position of s in Flow, or -1.
func (s Status) Index() int {
	for i, f := range Flow {
		if f == s {
			return i
		}
	}
	return -1
}

func (s Status) Valid() bool {
	return s == StatusOnHold || s.Index() >= 0
}

// Next returns the following stage. Completed, on_hold and unknown statuses have none.
func (s Status) Next() (Status, bool) {
	i := s.Index()
	if i < 0 || i == len(Flow)-1 {
		return "", false
	}
	return Flow[i+1], true
}

// NeedsApproval reports whether the stage is waiting on a human gate.
func (s Status) NeedsApproval() bool {
	switch s {
	case StatusReviewFindings, StatusReviewPRD, StatusReviewQA:
		return true
	}
	return false
}

// Gate is one of the three human sign-offs in the flow.
type Gate string

const (
	GateFindings Gate = "findings"
	GatePRD      Gate = "prd"
	GateQA       Gate = "qa"
)

func ParseGate(s string) (Gate, error) {
	switch g := Gate(s); g {
	case GateFindings, GatePRD, GateQA:
		return g, nil
	}
	return "", fmt.Errorf("unknown approval gate %q", s)
}

// Column is the projects boolean the gate flips; the timestamp column is Column()+"_at".
func (g Gate) Column() string {
	return string(g) + "_approved"
}

// Advances returns the status a project moves to once the gate is approved.
func (g Gate) Advances() Status {
	switch g {
	case GateFindings:
		return StatusDocumentation
	case GatePRD:
		return StatusTaskBreakdown
	case GateQA:
		return StatusUserTesting
	}
	return ""
}

// Review returns the review stage the gate closes.
func (g Gate) Review() Status {
	switch g {
	case GateFindings:
		return StatusReviewFindings
	case GatePRD:
		return StatusReviewPRD
	case GateQA:
		return StatusReviewQA
	}
	return ""
}
