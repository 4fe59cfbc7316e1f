package identity

import (
	"context"
	"fmt"

	"github.com/goliatone/go-print"
)

// Mail is an outbound notification carrying an action token link.
type Mail struct {
	To      string         `json:"to"`
	Subject string         `json:"subject"`
	Link    string         `json:"link"`
	Data    map[string]any `json:"data,omitempty"`
}

// Mailer delivers account notifications. Delivery failures are logged
// by callers and never roll back the transaction that produced the
// token.
type Mailer interface {
	Send(ctx context.Context, mail Mail) error
}

type noopMailer struct{}

func (noopMailer) Send(context.Context, Mail) error { return nil }

func normalizeMailer(m Mailer) Mailer {
	if m == nil {
		return noopMailer{}
	}
	return m
}

// PrintMailer dumps the notification to stdout, useful in development
// where no SMTP relay is wired.
type PrintMailer struct{}

func (PrintMailer) Send(_ context.Context, mail Mail) error {
	fmt.Println("====== SENDING EMAIL NOTIFICATION =======")
	fmt.Println(print.MaybePrettyJSON(mail))
	return nil
}

// ValidationLink builds the email validation URL for a token.
func ValidationLink(baseURL, token string) string {
	return fmt.Sprintf("%s/auth/validate_email/%s", baseURL, token)
}

// ResetLink builds the password reset URL for a token.
func ResetLink(baseURL, token string) string {
	return fmt.Sprintf("%s/auth/reset_password?token=%s", baseURL, token)
}
