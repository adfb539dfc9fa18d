package bot

import (
	"gopkg.in/telebot.v4"
)

// AdminMiddleware checks if the Telegram ID belongs to a configured operator.
func (b *Bot) AdminMiddleware(next telebot.HandlerFunc) telebot.HandlerFunc {
	return func(ctx telebot.Context) error {
		userID := ctx.Sender().ID

		if !b.adminIDs[userID] {
			b.log.Info("Access denied", "username", ctx.Sender().Username, "id", userID)
			return ctx.Send("⛔ Эта команда доступна только сотрудникам.")
		}

		return next(ctx)
	}
}
