package alerts

import (
	"time"
)

// Status is the result of processing one subscriber in a run.
type Status string

const (
	StatusSkipped Status = "skipped"  // ineligible or no current weather
	StatusNoAlert Status = "no_alert" // evaluated, nothing to send
	StatusSent    Status = "sent"
	StatusNotSent Status = "not_sent" // sender refused or is unconfigured
	StatusFailed  Status = "failed"
)

// Outcome records what happened to one subscriber.
type Outcome struct {
	SubscriberID int64  `json:"subscriberId"`
	Email        string `json:"email,omitempty"`
	Status       Status `json:"status"`
	Reason       string `json:"reason,omitempty"`
	Message      string `json:"message,omitempty"`
	Err          error  `json:"-"`
}

// RunSummary collects every outcome of one run.
type RunSummary struct {
	ID         string         `json:"id"`
	StartedAt  time.Time      `json:"startedAt"`
	FinishedAt time.Time      `json:"finishedAt"`
	Disabled   bool           `json:"disabled,omitempty"`
	Error      string         `json:"error,omitempty"`
	Counts     map[Status]int `json:"counts"`
	Outcomes   []Outcome      `json:"outcomes"`
}

// Count returns how many outcomes ended with status.
func (s RunSummary) Count(status Status) int {
	n := 0
	for _, o := range s.Outcomes {
		if o.Status == status {
			n++
		}
	}
	return n
}

// Duration is the wall time of the run.
func (s RunSummary) Duration() time.Duration {
	return s.FinishedAt.Sub(s.StartedAt)
}

func (s *RunSummary) tally() {
	s.Counts = make(map[Status]int, 5)
	for _, o := range s.Outcomes {
		s.Counts[o.Status]++
	}
}
