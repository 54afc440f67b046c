package notify

import (
	"context"

	tradeapp "github.com/Massea0/entrepriseOS-complete-sub002/internal/application/trade"
	"github.com/Massea0/entrepriseOS-complete-sub002/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// LoggingNotifier writes notifications to the log
type LoggingNotifier struct {
	logger *zap.Logger
}

// NewLoggingNotifier creates a notifier that logs at info level
func NewLoggingNotifier(l *zap.Logger) *LoggingNotifier {
	return &LoggingNotifier{logger: l.Named("notifications")}
}

// Notify implements tradeapp.Notifier
func (n *LoggingNotifier) Notify(ctx context.Context, notification tradeapp.Notification) error {
	logger.WithLogger(ctx, n.logger).Info("purchase order notification",
		zap.String("tenant_id", notification.TenantID.String()),
		zap.String("kind", notification.Kind),
		zap.String("order_id", notification.OrderID.String()),
		zap.String("order_number", notification.OrderNumber),
		zap.Strings("recipients", notification.Recipients),
		zap.String("message", notification.Message),
	)
	return nil
}

var _ tradeapp.Notifier = (*LoggingNotifier)(nil)
