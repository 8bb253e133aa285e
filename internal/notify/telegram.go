// Package notify доставляет уведомления об обменах в Telegram.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Freeeeeet/slotswap/internal/model"
	"github.com/Freeeeeet/slotswap/internal/repository"
	"github.com/go-telegram/bot"
	"go.uber.org/zap"
)

const timeLayout = "02.01.2006 15:04"

// TelegramNotifier пишет участникам обмена в их чат с ботом
type TelegramNotifier struct {
	bot    *bot.Bot
	users  repository.UserRepository
	logger *zap.Logger
}

// NewTelegramNotifier создаёт клиента бота без запроса getMe при старте
func NewTelegramNotifier(token string, users repository.UserRepository, logger *zap.Logger, opts ...bot.Option) (*TelegramNotifier, error) {
	opts = append([]bot.Option{bot.WithSkipGetMe()}, opts...)

	b, err := bot.New(token, opts...)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}

	return &TelegramNotifier{
		bot:    b,
		users:  users,
		logger: logger,
	}, nil
}

// SwapRequested уведомляет получателя о новой заявке
func (n *TelegramNotifier) SwapRequested(ctx context.Context, req *model.SwapRequest) error {
	var b strings.Builder
	b.WriteString("🔄 Новая заявка на обмен слотами\n\n")
	if req.InitiatorSlot != nil {
		fmt.Fprintf(&b, "Вам предлагают: %s\n", describeSlot(req.InitiatorSlot))
	}
	if req.ReceiverSlot != nil {
		fmt.Fprintf(&b, "В обмен на: %s\n", describeSlot(req.ReceiverSlot))
	}

	return n.send(ctx, req.ReceiverID, b.String())
}

// SwapResolved уведомляет инициатора об ответе
func (n *TelegramNotifier) SwapResolved(ctx context.Context, req *model.SwapRequest) error {
	var text string
	switch req.Status {
	case model.SwapStatusAccepted:
		text = "✅ Ваша заявка на обмен принята"
	case model.SwapStatusRejected:
		text = "❌ Ваша заявка на обмен отклонена"
	default:
		return nil
	}

	if req.ReceiverSlot != nil && req.Status == model.SwapStatusAccepted {
		text += "\n\nТеперь ваш слот: " + describeSlot(req.ReceiverSlot)
	}

	return n.send(ctx, req.InitiatorID, text)
}

func (n *TelegramNotifier) send(ctx context.Context, userID, text string) error {
	user, err := n.users.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("get user: %w", err)
	}
	if user == nil || user.TelegramChatID == nil {
		n.logger.Debug("User has no telegram chat, skipping notification",
			zap.String("user_id", userID),
		)
		return nil
	}

	_, err = n.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: *user.TelegramChatID,
		Text:   text,
	})
	if err != nil {
		if errors.Is(err, bot.ErrorForbidden) {
			// Пользователь заблокировал бота
			n.logger.Info("Bot is blocked by user",
				zap.String("user_id", userID),
			)
			return nil
		}
		return fmt.Errorf("send telegram message: %w", err)
	}

	return nil
}

func describeSlot(e *model.Event) string {
	return fmt.Sprintf("«%s», %s – %s",
		e.Title,
		e.StartTime.Format(timeLayout),
		e.EndTime.Format(timeLayout),
	)
}
