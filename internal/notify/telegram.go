package notify

import (
	"context"
	"fmt"

	"github.com/go-telegram/bot"
	"go.uber.org/zap"

	"github.com/tutorhub/classbooking/internal/model"
)

// UserResolver отдаёт профиль пользователя для определения канала доставки.
type UserResolver interface {
	GetByID(ctx context.Context, id int64) (*model.User, error)
}

// TelegramNotifier доставляет уведомления через Telegram.
type TelegramNotifier struct {
	bot    *bot.Bot
	users  UserResolver
	logger *zap.Logger
}

// NewTelegramNotifier создаёт нотификатор поверх Telegram Bot API
func NewTelegramNotifier(token string, users UserResolver, logger *zap.Logger) (*TelegramNotifier, error) {
	b, err := bot.New(token)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}

	return &TelegramNotifier{
		bot:    b,
		users:  users,
		logger: logger,
	}, nil
}

// Notify отправляет сообщение в Telegram. Пользователи без привязанного
// Telegram ID молча пропускаются — доставка для них невозможна.
func (n *TelegramNotifier) Notify(ctx context.Context, userID int64, message, link string) error {
	user, err := n.users.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("get user: %w", err)
	}

	if user == nil || user.TelegramID == 0 {
		n.logger.Debug("User has no telegram id, skipping notification",
			zap.Int64("user_id", userID))
		return nil
	}

	text := message
	if link != "" {
		text += "\n" + link
	}

	_, err = n.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: user.TelegramID,
		Text:   text,
	})
	if err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}

	return nil
}
