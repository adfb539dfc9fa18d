package bot

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tulparexpress/tulpar-bot/internal/metrics"
	"github.com/tulparexpress/tulpar-bot/internal/repository"
	"gopkg.in/telebot.v4"
)

// Bot contains the bot API instance and other information.
type Bot struct {
	bot          *telebot.Bot
	log          *slog.Logger
	clients      repository.ClientManager
	parcels      repository.ParcelManager
	payments     repository.PaymentManager
	settings     repository.SettingsManager
	metrics      *metrics.Metrics
	stateManager *StateManager
	adminIDs     map[int64]bool
	usdPerKg     decimal.Decimal

	// send delivers a message outside of a handler reply (notifications,
	// broadcasts). Points at the API client's Send.
	send func(to telebot.Recipient, what interface{}, opts ...interface{}) (*telebot.Message, error)
}

// NewBot creates a new bot with the given token.
func NewBot(
	log *slog.Logger,
	clients repository.ClientManager,
	parcels repository.ParcelManager,
	payments repository.PaymentManager,
	settings repository.SettingsManager,
	appMetrics *metrics.Metrics,
	token string,
	poller time.Duration,
	usdPerKg string,
	adminIDs []int64,
) (*Bot, error) {
	tgBot, err := telebot.NewBot(telebot.Settings{
		Token:  token,
		Poller: &telebot.LongPoller{Timeout: poller},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Telegram bot: %w", err)
	}
	log.Info("Authorized on account", "account", tgBot.Me.Username)

	tariff, err := decimal.NewFromString(usdPerKg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse usd-per-kg tariff: %w", err)
	}

	admins := make(map[int64]bool, len(adminIDs))
	for _, id := range adminIDs {
		admins[id] = true
	}

	botInstance := &Bot{
		bot:          tgBot,
		log:          log,
		clients:      clients,
		parcels:      parcels,
		payments:     payments,
		settings:     settings,
		metrics:      appMetrics,
		stateManager: NewStateManager(),
		adminIDs:     admins,
		usdPerKg:     tariff,
		send:         tgBot.Send,
	}

	botInstance.registerRoutes()

	return botInstance, nil
}

// Start launches the bot to listen for updates.
func (b *Bot) Start() {
	b.log.Info("Telegram bot is starting...")
	b.bot.Start()
}

// Stop gracefully stops the Telegram bot and logs the action.
func (b *Bot) Stop() {
	b.log.Info("Telegram bot is stopped...")
	b.bot.Stop()
}

// registerRoutes configures all routes (commands).
func (b *Bot) registerRoutes() {
	// Public routes.
	b.bot.Handle("/start", b.startHandler)
	b.bot.Handle(btnMyParcels, b.myParcelsHandler)
	b.bot.Handle(btnBalance, b.balanceHandler)
	b.bot.Handle(btnTrack, b.trackPromptHandler)
	b.bot.Handle(btnRate, b.rateHandler)
	b.bot.Handle(telebot.OnText, b.routeTextHandler)

	// Admin routes.
	b.bot.Handle("/admin", b.AdminMiddleware(b.adminPanelHandler))
	b.bot.Handle(btnAdminAddParcel, b.AdminMiddleware(b.addParcelPromptHandler))
	b.bot.Handle(btnAdminAdvance, b.AdminMiddleware(b.advanceStatusPromptHandler))
	b.bot.Handle(btnAdminPayment, b.AdminMiddleware(b.addPaymentPromptHandler))
	b.bot.Handle(btnAdminSettle, b.AdminMiddleware(b.settlePaymentPromptHandler))
	b.bot.Handle(btnAdminFindClient, b.AdminMiddleware(b.findClientPromptHandler))
	b.bot.Handle(btnAdminManifest, b.AdminMiddleware(b.manifestHandler))
	b.bot.Handle(btnAdminBroadcast, b.AdminMiddleware(b.broadcastPromptHandler))
	b.bot.Handle(btnAdminSetRate, b.AdminMiddleware(b.setRatePromptHandler))
	b.bot.Handle(btnAdminBack, b.backHandler)
}
