package mailer

import "context"

// Sender delivers one HTML email and reports the provider message id.
// Delivery is at-most-once from the caller's point of view; callers that
// must survive send failures keep their own state and expose a resend path.
type Sender interface {
	Send(ctx context.Context, to, subject, html string) (id string, err error)
}
