package auth

import (
	"context"
	"time"
)

// mailTimeout bounds a single delivery attempt. Dispatch never blocks the
// signup response; a failed attempt is logged and the user retries by
// re-signing-up.
const mailTimeout = 10 * time.Second

// LogMailer writes the notification to the log instead of a mail transport.
// Stands in for SMTP in development and tests.
type LogMailer struct {
	Logger Logger
	Sender string
}

func NewLogMailer(logger Logger, sender string) *LogMailer {
	if logger == nil {
		logger = defLogger{}
	}
	return &LogMailer{Logger: logger, Sender: sender}
}

func (m *LogMailer) SendConfirmationCode(_ context.Context, email, code string) error {
	m.Logger.Info("sending confirmation code email", "from", m.Sender, "to", email, "code", code)
	return nil
}

// dispatchCode delivers the plaintext code on a detached goroutine with a
// bounded timeout. Transport failure must not crash or fail the request.
func dispatchCode(mailer Mailer, logger Logger, email, code string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), mailTimeout)
		defer cancel()

		defer func() {
			if r := recover(); r != nil {
				logger.Error("mailer panicked", "recover", r)
			}
		}()

		if err := mailer.SendConfirmationCode(ctx, email, code); err != nil {
			logger.Warn("confirmation code delivery failed", "email", email, "error", err)
		}
	}()
}
