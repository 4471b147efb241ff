package notify

import (
	"context"

	"go.uber.org/zap"
)

// Notifier доставляет уведомление пользователю. Ядро бронирования
// вызывает его после коммита транзакции; ошибка доставки никогда
// не откатывает и не проваливает само бронирование.
type Notifier interface {
	Notify(ctx context.Context, userID int64, message, link string) error
}

// LogNotifier пишет уведомления в лог. Используется когда внешний
// канал доставки не настроен.
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(ctx context.Context, userID int64, message, link string) error {
	n.logger.Info("Notification",
		zap.Int64("user_id", userID),
		zap.String("message", message),
		zap.String("link", link),
	)
	return nil
}
