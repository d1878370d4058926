package reconcile

import (
	"fmt"
	"time"
)

// Report summarises one reconciliation run. Success is only ever false when the
// run aborted, in which case Run returns an error instead of a report.
type Report struct {
	Success    bool      `json:"success"`
	Message    string    `json:"message"`
	Synced     int       `json:"synced"`
	Updated    int       `json:"updated"`
	Errors     []string  `json:"errors"`
	AgentID    string    `json:"-"`
	StartedAt  time.Time `json:"-"`
	FinishedAt time.Time `json:"-"`
}

type outcome int

const (
	outcomeSynced outcome = iota
	outcomeUpdated
)

// itemResult is the result of processing one conversation or one backfill record.
type itemResult struct {
	outcome outcome
	err     error
}

func ok(o outcome) itemResult { return itemResult{outcome: o} }

func failed(format string, args ...any) itemResult {
	return itemResult{err: fmt.Errorf(format, args...)}
}

// fold accumulates item results in processing order.
func (r *Report) fold(results []itemResult) {
	for _, res := range results {
		if res.err != nil {
			r.Errors = append(r.Errors, res.err.Error())
			continue
		}
		switch res.outcome {
		case outcomeSynced:
			r.Synced++
		case outcomeUpdated:
			r.Updated++
		}
	}
}

func (r *Report) finish() {
	r.Success = true
	r.Message = fmt.Sprintf("Synced %d new, updated %d existing", r.Synced, r.Updated)
	if r.Errors == nil {
		r.Errors = []string{}
	}
}

// Status is the lightweight view served by the sync status endpoint.
type Status struct {
	AgentID            string `json:"agentId"`
	TotalConversations int    `json:"totalConversations"`
	InterviewURL       string `json:"interviewUrl"`
}
