// Package mail dispatches outbound email for the server, currently just the
// account verification message.
package mail

import "context"

// Mailer sends account-lifecycle email.
type Mailer interface {
	// SendVerificationEmail delivers the verification link for token to the
	// given address.
	SendVerificationEmail(ctx context.Context, to, fullname, token string) error
}
