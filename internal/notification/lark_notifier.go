// Package notification delivers operator alerts about processed invoices.
package notification

import (
	"context"
	"fmt"

	"github.com/isnex/invoice-loader/internal/application/port"
	"github.com/isnex/invoice-loader/internal/lark"
	"go.uber.org/zap"
)

// TextSender is the subset of lark.MessageAPI used for alerts
type TextSender interface {
	SendText(ctx context.Context, receiveIDType, receiveID, text string) (string, error)
}

// LarkNotifier sends alerts as Lark text messages to one recipient
type LarkNotifier struct {
	sender      TextSender
	recipientID string
	logger      *zap.Logger
}

// NewLarkNotifier creates a notifier that messages recipientID (an open_id)
func NewLarkNotifier(sender TextSender, recipientID string, logger *zap.Logger) *LarkNotifier {
	return &LarkNotifier{
		sender:      sender,
		recipientID: recipientID,
		logger:      logger,
	}
}

// NotifyFailure sends a processing failure alert
func (n *LarkNotifier) NotifyFailure(ctx context.Context, alert port.FailureAlert) error {
	return n.send(ctx, "failure", FailureText(alert))
}

// NotifyValidationFailed sends an incomplete-extraction alert
func (n *LarkNotifier) NotifyValidationFailed(ctx context.Context, alert port.ValidationAlert) error {
	return n.send(ctx, "validation", ValidationText(alert))
}

// NotifyDailySummary sends the daily digest
func (n *LarkNotifier) NotifyDailySummary(ctx context.Context, summary port.DailySummary) error {
	return n.send(ctx, "daily_summary", SummaryText(summary))
}

func (n *LarkNotifier) send(ctx context.Context, kind, text string) error {
	messageID, err := n.sender.SendText(ctx, lark.ReceiveIDOpenID, n.recipientID, text)
	if err != nil {
		n.logger.Warn("Failed to send notification",
			zap.String("kind", kind),
			zap.Error(err))
		return fmt.Errorf("failed to send %s notification: %w", kind, err)
	}

	n.logger.Info("Notification sent",
		zap.String("kind", kind),
		zap.String("message_id", messageID))
	return nil
}

var _ port.Notifier = (*LarkNotifier)(nil)
