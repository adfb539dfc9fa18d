package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tulparexpress/tulpar-bot/internal/models"
	"github.com/tulparexpress/tulpar-bot/internal/repository"
	"gopkg.in/telebot.v4"
)

const queryTimeout = 3 * time.Second

const msgInternalError = "🚫 Внутренняя ошибка, попробуйте позже."

// User states awaited by routeTextHandler.
const (
	stateAwaitingName     = "awaiting_name"
	stateAwaitingPhone    = "awaiting_phone"
	stateAwaitingTracking = "awaiting_tracking"

	stateAwaitingParcel      = "awaiting_parcel"
	stateAwaitingAdvance     = "awaiting_advance"
	stateAwaitingPayment     = "awaiting_payment"
	stateAwaitingSettle      = "awaiting_settle"
	stateAwaitingClientQuery = "awaiting_client_query"
	stateAwaitingBroadcast   = "awaiting_broadcast"
	stateAwaitingRate        = "awaiting_rate"
)

// startHandler greets a returning client or starts the registration dialog.
func (b *Bot) startHandler(ctx telebot.Context) error {
	b.metrics.CommandReceived.WithLabelValues("/start").Inc()
	b.log.Info("User started the bot", "id", ctx.Sender().ID, "username", ctx.Sender().Username)

	timeoutCtx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	client, err := b.clients.GetClientByChatID(timeoutCtx, ctx.Sender().ID)
	if err == nil {
		responseText := fmt.Sprintf(
			"👋 С возвращением, %s!\nВаш код клиента: *%s*", client.FullName, client.DisplayCode(),
		)
		return ctx.Send(responseText, mainMenu, telebot.ModeMarkdown)
	}
	if !errors.Is(err, repository.ErrClientNotFound) {
		b.log.ErrorContext(timeoutCtx, "Failed to look up client", "error", err)
		return ctx.Send(msgInternalError)
	}

	b.stateManager.Set(ctx.Sender().ID, UserState{WaitingFor: stateAwaitingName})
	return ctx.Send("🐎 Добро пожаловать в Tulpar Express!\nВведите ваше полное имя:")
}

// routeTextHandler dispatches free-form text according to the sender's state.
func (b *Bot) routeTextHandler(ctx telebot.Context) error {
	userID := ctx.Sender().ID

	state, ok := b.stateManager.Get(userID)
	if !ok {
		return ctx.Reply("🤖 Пожалуйста, пользуйтесь кнопками меню или командой /start.")
	}

	switch state.WaitingFor {
	case stateAwaitingName:
		return b.registerNameStep(ctx)
	case stateAwaitingPhone:
		return b.registerPhoneStep(ctx, state.FullName)
	case stateAwaitingTracking:
		return b.trackLookup(ctx)
	case stateAwaitingParcel:
		return b.addParcelStep(ctx)
	case stateAwaitingAdvance:
		return b.advanceStatusStep(ctx)
	case stateAwaitingPayment:
		return b.addPaymentStep(ctx)
	case stateAwaitingSettle:
		return b.settlePaymentStep(ctx)
	case stateAwaitingClientQuery:
		return b.findClientStep(ctx)
	case stateAwaitingBroadcast:
		return b.broadcastStep(ctx)
	case stateAwaitingRate:
		return b.setRateStep(ctx)
	default:
		return ctx.Reply("🤖 Пожалуйста, пользуйтесь кнопками меню или командой /start.")
	}
}

// registerNameStep stores the entered name and asks for the phone number.
func (b *Bot) registerNameStep(ctx telebot.Context) error {
	fullName := strings.TrimSpace(ctx.Text())
	if fullName == "" {
		b.stateManager.Set(ctx.Sender().ID, UserState{WaitingFor: stateAwaitingName})
		return ctx.Send("✍️ Имя не может быть пустым. Введите ваше полное имя:")
	}

	b.stateManager.Set(ctx.Sender().ID, UserState{WaitingFor: stateAwaitingPhone, FullName: fullName})
	return ctx.Send("📞 Введите ваш номер телефона:")
}

// registerPhoneStep completes the registration and shows the issued code.
func (b *Bot) registerPhoneStep(ctx telebot.Context, fullName string) error {
	timeoutCtx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	phone := strings.TrimSpace(ctx.Text())
	if phone == "" {
		b.stateManager.Set(ctx.Sender().ID, UserState{WaitingFor: stateAwaitingPhone, FullName: fullName})
		return ctx.Send("📞 Телефон не может быть пустым. Введите ваш номер телефона:")
	}

	started := time.Now()
	client, err := b.clients.CreateClient(timeoutCtx, ctx.Sender().ID, fullName, phone)
	b.metrics.DBQueryDuration.WithLabelValues("create_client").Observe(time.Since(started).Seconds())
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateChatID) {
			return ctx.Send("❌ Этот Telegram-аккаунт уже зарегистрирован. Используйте /start.")
		}
		b.log.ErrorContext(timeoutCtx, "Failed to register client", "error", err)
		return ctx.Send(msgInternalError)
	}

	b.metrics.NewClients.Inc()
	b.log.Info("New client registered", "code", client.Code, "chat_id", client.ChatID)

	responseText := fmt.Sprintf(
		"✅ Регистрация завершена!\nВаш код клиента: *%s*\nУказывайте его при заказах на складе в Китае.",
		client.DisplayCode(),
	)
	return ctx.Send(responseText, mainMenu, telebot.ModeMarkdown)
}

// myParcelsHandler lists all parcels of the sender.
func (b *Bot) myParcelsHandler(ctx telebot.Context) error {
	b.metrics.CommandReceived.WithLabelValues("my_parcels").Inc()

	timeoutCtx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	client, err := b.clients.GetClientByChatID(timeoutCtx, ctx.Sender().ID)
	if err != nil {
		if errors.Is(err, repository.ErrClientNotFound) {
			return ctx.Send("🤔 Вы ещё не зарегистрированы. Нажмите /start.")
		}
		b.log.ErrorContext(timeoutCtx, "Failed to look up client", "error", err)
		return ctx.Send(msgInternalError)
	}

	parcels, err := b.parcels.GetParcelsByClient(timeoutCtx, client.Code)
	if err != nil {
		b.log.ErrorContext(timeoutCtx, "Failed to get client parcels", "error", err)
		return ctx.Send(msgInternalError)
	}

	if len(parcels) == 0 {
		return ctx.Send("📭 У вас пока нет посылок.")
	}

	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("📦 *Ваши посылки (%d):*\n", len(parcels)))
	for _, parcel := range parcels {
		builder.WriteString("\n" + formatParcel(parcel))
	}

	return ctx.Send(builder.String(), telebot.ModeMarkdown)
}

// balanceHandler shows the sender's balance: settled payments minus invoices.
func (b *Bot) balanceHandler(ctx telebot.Context) error {
	b.metrics.CommandReceived.WithLabelValues("balance").Inc()

	timeoutCtx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	client, err := b.clients.GetClientByChatID(timeoutCtx, ctx.Sender().ID)
	if err != nil {
		if errors.Is(err, repository.ErrClientNotFound) {
			return ctx.Send("🤔 Вы ещё не зарегистрированы. Нажмите /start.")
		}
		b.log.ErrorContext(timeoutCtx, "Failed to look up client", "error", err)
		return ctx.Send(msgInternalError)
	}

	balance, err := b.payments.GetClientBalance(timeoutCtx, client.Code)
	if err != nil {
		b.log.ErrorContext(timeoutCtx, "Failed to get client balance", "error", err)
		return ctx.Send(msgInternalError)
	}

	if balance.IsNegative() {
		return ctx.Send(
			fmt.Sprintf("💰 Задолженность: *%s сом*", balance.Neg().StringFixed(2)), telebot.ModeMarkdown,
		)
	}
	return ctx.Send(fmt.Sprintf("💰 Ваш баланс: *%s сом*", balance.StringFixed(2)), telebot.ModeMarkdown)
}

// trackPromptHandler asks for a tracking code to look up.
func (b *Bot) trackPromptHandler(ctx telebot.Context) error {
	b.metrics.CommandReceived.WithLabelValues("track").Inc()

	b.stateManager.Set(ctx.Sender().ID, UserState{WaitingFor: stateAwaitingTracking})
	return ctx.Send("🔍 Введите трек-номер посылки:")
}

// trackLookup resolves a tracking code entered by the sender. Clients only
// see their own parcels; operators see any parcel.
func (b *Bot) trackLookup(ctx telebot.Context) error {
	timeoutCtx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	tracking := strings.TrimSpace(ctx.Text())

	parcel, err := b.parcels.GetParcelByTracking(timeoutCtx, tracking)
	if err != nil {
		if errors.Is(err, repository.ErrParcelNotFound) {
			return ctx.Send("🤷 Посылка с таким трек-номером не найдена.")
		}
		b.log.ErrorContext(timeoutCtx, "Failed to get parcel", "tracking", tracking, "error", err)
		return ctx.Send(msgInternalError)
	}

	if !b.adminIDs[ctx.Sender().ID] {
		client, errClient := b.clients.GetClientByChatID(timeoutCtx, ctx.Sender().ID)
		if errClient != nil || client.Code != parcel.ClientCode {
			return ctx.Send("🤷 Посылка с таким трек-номером не найдена.")
		}
	}

	return ctx.Send(formatParcel(parcel), telebot.ModeMarkdown)
}

// rateHandler shows the current exchange rate.
func (b *Bot) rateHandler(ctx telebot.Context) error {
	b.metrics.CommandReceived.WithLabelValues("rate").Inc()

	timeoutCtx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	rate, err := b.settings.GetUSDRate(timeoutCtx)
	if err != nil {
		b.log.ErrorContext(timeoutCtx, "Failed to get USD rate", "error", err)
		return ctx.Send(msgInternalError)
	}

	return ctx.Send(fmt.Sprintf("💱 Курс: 1 USD = *%s сом*", rate.String()), telebot.ModeMarkdown)
}

// backHandler returns the sender to the main menu.
func (b *Bot) backHandler(ctx telebot.Context) error {
	return ctx.Send("🤖 Главное меню", mainMenu)
}

// formatParcel renders one parcel as a Markdown block.
func formatParcel(parcel models.Parcel) string {
	var builder strings.Builder

	builder.WriteString(fmt.Sprintf("*%s*\n", parcel.Tracking))
	builder.WriteString(fmt.Sprintf("Статус: %s\n", parcel.Status.DisplayName()))
	if !parcel.WeightKg.IsZero() {
		builder.WriteString(fmt.Sprintf("Вес: %s кг\n", parcel.WeightKg.StringFixed(2)))
	}
	if !parcel.AmountSom.IsZero() {
		builder.WriteString(fmt.Sprintf(
			"К оплате: %s сом ($%s)\n", parcel.AmountSom.StringFixed(2), parcel.AmountUSD.StringFixed(2),
		))
	}

	const dateLayout = "02.01.2006"
	if parcel.DateChina != nil {
		builder.WriteString(fmt.Sprintf("Отправлена из Китая: %s\n", parcel.DateChina.Format(dateLayout)))
	}
	if parcel.DateBishkek != nil {
		builder.WriteString(fmt.Sprintf("Прибыла в Бишкек: %s\n", parcel.DateBishkek.Format(dateLayout)))
	}
	if parcel.DateDelivered != nil {
		builder.WriteString(fmt.Sprintf("Выдана: %s\n", parcel.DateDelivered.Format(dateLayout)))
	}

	return builder.String()
}
