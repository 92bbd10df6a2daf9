// Package mail delivers password-reset tokens. The default
// implementation writes them to the log, which is enough for
// development and test setups without an SMTP relay.
package mail

import (
	"context"

	"github.com/avolkov/tiergate/internal/logging"
)

type LogMailer struct {
	logger logging.Logger
}

func NewLogMailer(l logging.Logger) *LogMailer {
	return &LogMailer{logger: l.With("module", "mailer")}
}

func (m *LogMailer) SendPasswordReset(ctx context.Context, email, token string) error {
	m.logger.Info(ctx, "password reset requested", "email", email, "token", token)
	return nil
}
