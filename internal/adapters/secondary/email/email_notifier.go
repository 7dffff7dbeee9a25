package email

import (
	"context"
	"log/slog"

	"github.com/lorrc/service-desk-sla/internal/core/ports"
)

// MockSMTPNotifier logs notices instead of sending mail. Outbound mail
// transport belongs to a separate delivery service.
type MockSMTPNotifier struct {
	users  ports.UserDirectory
	logger *slog.Logger
}

var _ ports.Notifier = (*MockSMTPNotifier)(nil)

// NewMockSMTPNotifier creates a new mock notifier that resolves recipients through users.
func NewMockSMTPNotifier(users ports.UserDirectory, logger *slog.Logger) ports.Notifier {
	return &MockSMTPNotifier{
		users:  users,
		logger: logger.With("component", "email_notifier"),
	}
}

// Notify logs the notice. Callers run it off the request path, so the lookup
// detaches from the caller's cancellation.
func (n *MockSMTPNotifier) Notify(ctx context.Context, params ports.NotificationParams) {
	notifyCtx := context.WithoutCancel(ctx)

	user, err := n.users.GetByID(notifyCtx, params.RecipientUserID)
	if err != nil {
		n.logger.ErrorContext(notifyCtx, "failed to resolve notification recipient",
			"user_id", params.RecipientUserID,
			"ticket_id", params.TicketID,
			"error", err,
		)
		return
	}

	n.logger.InfoContext(notifyCtx, "mock email sent",
		"to_name", user.FullName,
		"to_email", user.Email,
		"subject", params.Subject,
		"ticket_id", params.TicketID,
	)
}
