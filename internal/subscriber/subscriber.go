package subscriber

import "context"

// Subscriber is a user who may receive weather alerts at a saved location.
// Latitude and Longitude are nil when no location was saved.
type Subscriber struct {
	ID            int64    `json:"id"`
	Email         string   `json:"email"`
	Phone         string   `json:"phone"`
	AlertsEnabled bool     `json:"alertsEnabled"`
	Latitude      *float64 `json:"latitude,omitempty"`
	Longitude     *float64 `json:"longitude,omitempty"`
}

// Directory lists subscribers. The alert loop only ever reads from it.
type Directory interface {
	ListAll(ctx context.Context) ([]Subscriber, error)
}

// SkipReason reports why s cannot be evaluated, or "" when it can.
func (s Subscriber) SkipReason() string {
	switch {
	case !s.AlertsEnabled:
		return "alerts disabled"
	case s.Phone == "":
		return "no phone number"
	case s.Latitude == nil || s.Longitude == nil:
		return "no saved location"
	}
	return ""
}

// Eligible reports whether s is opted in with a phone number and both coordinates.
func (s Subscriber) Eligible() bool {
	return s.SkipReason() == ""
}
