package mail

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"
)

// LogMailer stands in for a real provider in dev and tests.
type LogMailer struct{}

func NewLogMailer() *LogMailer { return &LogMailer{} }

func (n *LogMailer) SendPasswordReset(ctx context.Context, in PasswordResetInput) error {
	// Optional: simulate slow provider
	if msStr := os.Getenv("MAILER_SLEEP_MS"); msStr != "" {
		ms, _ := strconv.Atoi(msStr)
		if ms > 0 {
			select {
			case <-time.After(time.Duration(ms) * time.Millisecond):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	// Optional: simulate provider outage
	if os.Getenv("MAILER_FAIL") == "1" {
		return fmt.Errorf("provider down (simulated)")
	}

	log.Printf("mail.password_reset email=%s name=%s link=%s",
		in.Email, in.Name, in.ResetLink,
	)
	return nil
}
