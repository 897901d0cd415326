package notify

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"travelbooking/internal/app/policies"
)

var ErrRecipientRequired = errors.New("notify: recipient required")

// LogNotifier writes notifications to the structured log. It stands in for a mail or push gateway.
type LogNotifier struct {
	Logger *slog.Logger
}

func (n LogNotifier) Send(ctx context.Context, to string, template string, data any) error {
	to = strings.TrimSpace(to)
	if to == "" {
		return ErrRecipientRequired
	}
	logger := n.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "notification sent", "to", to, "template", template, "data", data)
	return nil
}

var _ policies.Notifier = LogNotifier{}
