package notify

import "context"

// Sender delivers a text message. It returns true when the carrier accepted
// the message and false otherwise, including when the sender is not
// configured. Failures are logged by the sender and never returned.
type Sender interface {
	Send(ctx context.Context, to, body string) bool
}
