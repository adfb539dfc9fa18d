package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tulparexpress/tulpar-bot/internal/models"
	"github.com/tulparexpress/tulpar-bot/internal/report"
	"github.com/tulparexpress/tulpar-bot/internal/repository"
	"gopkg.in/telebot.v4"
)

// adminPanelHandler opens the operator menu.
func (b *Bot) adminPanelHandler(ctx telebot.Context) error {
	b.metrics.CommandReceived.WithLabelValues("/admin").Inc()
	b.log.Info("Admin opened the panel", "user", ctx.Sender().ID)

	return ctx.Send("🛠 Панель оператора", adminMenu)
}

// addParcelPromptHandler asks for the new parcel fields.
func (b *Bot) addParcelPromptHandler(ctx telebot.Context) error {
	b.stateManager.Set(ctx.Sender().ID, UserState{WaitingFor: stateAwaitingParcel})
	return ctx.Send("➕ Введите: КОД_КЛИЕНТА ТРЕК ВЕС_КГ [СУММА_USD]\n"+
		"Например: `TE-5001 TRK123 2.5 30`\nБез суммы она считается по тарифу за килограмм.",
		telebot.ModeMarkdown)
}

// addParcelStep registers a parcel. When the operator omits the USD amount it
// is priced by weight at the configured per-kilogram tariff; the som amount is
// derived from the USD amount via the current exchange rate.
func (b *Bot) addParcelStep(ctx telebot.Context) error {
	timeoutCtx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	const minFields = 3
	const maxFields = 4
	fields := strings.Fields(ctx.Text())
	if len(fields) < minFields || len(fields) > maxFields {
		return ctx.Send("❌ Ожидается 3 или 4 поля: КОД_КЛИЕНТА ТРЕК ВЕС_КГ [СУММА_USD]")
	}

	clientCode, err := parseClientCode(fields[0])
	if err != nil {
		return ctx.Send("❌ Неверный код клиента: " + fields[0])
	}
	weightKg, err := decimal.NewFromString(fields[2])
	if err != nil {
		return ctx.Send("❌ Неверный вес: " + fields[2])
	}

	amountUSD := weightKg.Mul(b.usdPerKg).Round(2)
	if len(fields) == maxFields {
		amountUSD, err = decimal.NewFromString(fields[3])
		if err != nil {
			return ctx.Send("❌ Неверная сумма: " + fields[3])
		}
	}

	rate, err := b.settings.GetUSDRate(timeoutCtx)
	if err != nil {
		b.log.ErrorContext(timeoutCtx, "Failed to get USD rate", "error", err)
		return ctx.Send(msgInternalError)
	}
	amountSom := amountUSD.Mul(rate).Round(2)

	parcel, err := b.parcels.CreateParcel(timeoutCtx, clientCode, fields[1], weightKg, amountUSD, amountSom)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrClientNotFound):
			return ctx.Send("❌ Клиент с таким кодом не найден.")
		case errors.Is(err, repository.ErrDuplicateTracking):
			return ctx.Send("❌ Посылка с таким трек-номером уже существует.")
		case errors.Is(err, repository.ErrNegativeAmount):
			return ctx.Send("❌ Вес и суммы не могут быть отрицательными.")
		default:
			b.log.ErrorContext(timeoutCtx, "Failed to create parcel", "error", err)
			return ctx.Send(msgInternalError)
		}
	}

	b.log.Info("Parcel registered", "tracking", parcel.Tracking, "client", parcel.ClientCode, "admin", ctx.Sender().ID)
	return ctx.Send(
		fmt.Sprintf("✅ Посылка *%s* добавлена (%s сом).", parcel.Tracking, parcel.AmountSom.StringFixed(2)),
		telebot.ModeMarkdown,
	)
}

// advanceStatusPromptHandler asks which parcel to advance and to what stage.
func (b *Bot) advanceStatusPromptHandler(ctx telebot.Context) error {
	b.stateManager.Set(ctx.Sender().ID, UserState{WaitingFor: stateAwaitingAdvance})
	return ctx.Send("🚚 Введите: ТРЕК НОВЫЙ_СТАТУС\n" +
		"Статусы: CHINA_WAREHOUSE → IN_TRANSIT → BISHKEK_ARRIVED → READY_PICKUP → DELIVERED")
}

// advanceStatusStep moves the parcel one stage forward and notifies its owner.
func (b *Bot) advanceStatusStep(ctx telebot.Context) error {
	timeoutCtx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	const fieldCount = 2
	fields := strings.Fields(ctx.Text())
	if len(fields) != fieldCount {
		return ctx.Send("❌ Ожидается 2 поля: ТРЕК НОВЫЙ_СТАТУС")
	}

	target, err := models.ParseParcelStatus(strings.ToUpper(fields[1]))
	if err != nil {
		return ctx.Send("❌ Неизвестный статус: " + fields[1])
	}

	started := time.Now()
	parcel, err := b.parcels.AdvanceParcelStatus(timeoutCtx, fields[0], target)
	b.metrics.DBQueryDuration.WithLabelValues("advance_parcel").Observe(time.Since(started).Seconds())
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrParcelNotFound):
			return ctx.Send("❌ Посылка с таким трек-номером не найдена.")
		case errors.Is(err, repository.ErrInvalidTransition):
			return ctx.Send("❌ Так нельзя: статус меняется только на следующий по порядку.")
		default:
			b.log.ErrorContext(timeoutCtx, "Failed to advance parcel", "tracking", fields[0], "error", err)
			return ctx.Send(msgInternalError)
		}
	}

	b.log.Info("Parcel advanced", "tracking", parcel.Tracking, "status", parcel.Status, "admin", ctx.Sender().ID)
	go b.notifyClient(parcel)

	return ctx.Send(
		fmt.Sprintf("✅ *%s*: %s", parcel.Tracking, parcel.Status.DisplayName()), telebot.ModeMarkdown,
	)
}

// notifyClient tells the parcel owner about the new status.
func (b *Bot) notifyClient(parcel models.Parcel) {
	notifyCtx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	client, err := b.clients.GetClientByCode(notifyCtx, parcel.ClientCode)
	if err != nil {
		b.log.ErrorContext(notifyCtx, "Failed to find parcel owner", "client", parcel.ClientCode, "error", err)
		return
	}
	if client.ChatID == 0 {
		return
	}

	message := fmt.Sprintf("📦 Ваша посылка *%s*:\n%s", parcel.Tracking, parcel.Status.DisplayName())
	if _, err = b.send(telebot.ChatID(client.ChatID), message, telebot.ModeMarkdown); err != nil {
		// This can happen if a user has blocked the bot
		b.log.WarnContext(notifyCtx, "Failed to notify client", "chat_id", client.ChatID, "error", err)
		return
	}
	b.metrics.SentMessages.WithLabelValues("text").Inc()
}

// addPaymentPromptHandler asks for the payment fields.
func (b *Bot) addPaymentPromptHandler(ctx telebot.Context) error {
	b.stateManager.Set(ctx.Sender().ID, UserState{WaitingFor: stateAwaitingPayment})
	return ctx.Send("💵 Введите: КОД_КЛИЕНТА СУММА_СОМ МЕТОД (CASH, CARD или TRANSFER)")
}

// addPaymentStep records a payment intent.
func (b *Bot) addPaymentStep(ctx telebot.Context) error {
	timeoutCtx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	const fieldCount = 3
	fields := strings.Fields(ctx.Text())
	if len(fields) != fieldCount {
		return ctx.Send("❌ Ожидается 3 поля: КОД_КЛИЕНТА СУММА_СОМ МЕТОД")
	}

	clientCode, err := parseClientCode(fields[0])
	if err != nil {
		return ctx.Send("❌ Неверный код клиента: " + fields[0])
	}
	amount, err := decimal.NewFromString(fields[1])
	if err != nil {
		return ctx.Send("❌ Неверная сумма: " + fields[1])
	}
	method, err := models.ParsePaymentMethod(strings.ToUpper(fields[2]))
	if err != nil {
		return ctx.Send("❌ Метод должен быть CASH, CARD или TRANSFER.")
	}

	payment, err := b.payments.CreatePayment(timeoutCtx, clientCode, amount, method)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrClientNotFound):
			return ctx.Send("❌ Клиент с таким кодом не найден.")
		case errors.Is(err, repository.ErrZeroAmount):
			return ctx.Send("❌ Сумма не может быть нулевой.")
		default:
			b.log.ErrorContext(timeoutCtx, "Failed to create payment", "error", err)
			return ctx.Send(msgInternalError)
		}
	}

	b.log.Info("Payment recorded", "id", payment.ID, "client", payment.ClientCode, "admin", ctx.Sender().ID)
	return ctx.Send(fmt.Sprintf("✅ Оплата №%d создана, статус PENDING.", payment.ID))
}

// settlePaymentPromptHandler asks which payment to settle.
func (b *Bot) settlePaymentPromptHandler(ctx telebot.Context) error {
	b.stateManager.Set(ctx.Sender().ID, UserState{WaitingFor: stateAwaitingSettle})
	return ctx.Send("✅ Введите: НОМЕР_ОПЛАТЫ PAID или REFUNDED")
}

// settlePaymentStep finalizes a pending payment.
func (b *Bot) settlePaymentStep(ctx telebot.Context) error {
	timeoutCtx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	const fieldCount = 2
	fields := strings.Fields(ctx.Text())
	if len(fields) != fieldCount {
		return ctx.Send("❌ Ожидается 2 поля: НОМЕР_ОПЛАТЫ PAID|REFUNDED")
	}

	paymentID, err := strconv.Atoi(fields[0])
	if err != nil {
		return ctx.Send("❌ Неверный номер оплаты: " + fields[0])
	}
	target, err := models.ParsePaymentStatus(strings.ToUpper(fields[1]))
	if err != nil {
		return ctx.Send("❌ Статус должен быть PAID или REFUNDED.")
	}

	err = b.payments.SettlePayment(timeoutCtx, paymentID, target)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrPaymentNotFound):
			return ctx.Send("❌ Оплата с таким номером не найдена.")
		case errors.Is(err, repository.ErrAlreadySettled):
			return ctx.Send("❌ Оплата уже проведена с другим статусом.")
		case errors.Is(err, repository.ErrInvalidTransition):
			return ctx.Send("❌ Оплату можно провести только в PAID или REFUNDED.")
		default:
			b.log.ErrorContext(timeoutCtx, "Failed to settle payment", "id", paymentID, "error", err)
			return ctx.Send(msgInternalError)
		}
	}

	b.log.Info("Payment settled", "id", paymentID, "status", target, "admin", ctx.Sender().ID)
	return ctx.Send(fmt.Sprintf("✅ Оплата №%d: %s.", paymentID, target))
}

// findClientPromptHandler asks for a client code or phone to look up.
func (b *Bot) findClientPromptHandler(ctx telebot.Context) error {
	b.stateManager.Set(ctx.Sender().ID, UserState{WaitingFor: stateAwaitingClientQuery})
	return ctx.Send("🔎 Введите код клиента (TE-XXXX) или номер телефона:")
}

// findClientStep resolves a client by code or phone and shows a short card.
func (b *Bot) findClientStep(ctx telebot.Context) error {
	timeoutCtx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	query := strings.TrimSpace(ctx.Text())

	var client models.Client
	code, err := parseClientCode(query)
	if err == nil {
		client, err = b.clients.GetClientByCode(timeoutCtx, code)
	} else {
		client, err = b.clients.GetClientByPhone(timeoutCtx, query)
	}
	if err != nil {
		if errors.Is(err, repository.ErrClientNotFound) {
			return ctx.Send("🤷 Клиент не найден.")
		}
		b.log.ErrorContext(timeoutCtx, "Failed to find client", "query", query, "error", err)
		return ctx.Send(msgInternalError)
	}

	balance, err := b.payments.GetClientBalance(timeoutCtx, client.Code)
	if err != nil {
		b.log.ErrorContext(timeoutCtx, "Failed to get client balance", "error", err)
		return ctx.Send(msgInternalError)
	}

	responseText := fmt.Sprintf(
		"👤 *%s*\nКод: %s\nТелефон: %s\nЗарегистрирован: %s\nБаланс: %s сом",
		client.FullName,
		client.DisplayCode(),
		client.Phone,
		client.RegDate.Format("02.01.2006"),
		balance.StringFixed(2),
	)
	return ctx.Send(responseText, telebot.ModeMarkdown)
}

// manifestHandler exports every undelivered parcel to an Excel workbook.
func (b *Bot) manifestHandler(ctx telebot.Context) error {
	timeoutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	started := time.Now()

	var parcels []models.Parcel
	for _, status := range []models.ParcelStatus{
		models.StatusChinaWarehouse,
		models.StatusInTransit,
		models.StatusBishkekArrived,
		models.StatusReadyPickup,
	} {
		inStatus, err := b.parcels.GetParcelsByStatus(timeoutCtx, status)
		if err != nil {
			b.log.ErrorContext(timeoutCtx, "Failed to get parcels by status", "status", status, "error", err)
			return ctx.Send(msgInternalError)
		}
		parcels = append(parcels, inStatus...)
	}

	buffer, err := report.GenerateParcelManifest(parcels)
	if err != nil {
		if errors.Is(err, report.ErrNoParcels) {
			return ctx.Send("📭 Активных посылок нет.")
		}
		b.log.ErrorContext(timeoutCtx, "Failed to generate manifest", "error", err)
		return ctx.Send(msgInternalError)
	}

	b.metrics.ReportGeneration.WithLabelValues("status").Observe(time.Since(started).Seconds())
	b.metrics.SentMessages.WithLabelValues("document").Inc()

	document := &telebot.Document{
		File:     telebot.FromReader(buffer),
		FileName: fmt.Sprintf("parcels_%s.xlsx", time.Now().Format("2006-01-02")),
	}
	return ctx.Send(document)
}

// broadcastPromptHandler starts the broadcast dialog.
func (b *Bot) broadcastPromptHandler(ctx telebot.Context) error {
	userID := ctx.Sender().ID
	b.log.Info("Admin initiated a broadcast", "user", userID)

	b.stateManager.Set(userID, UserState{WaitingFor: stateAwaitingBroadcast})
	return ctx.Send("📣 Введите текст рассылки. Его получат все зарегистрированные клиенты.")
}

// broadcastStep confirms the broadcast and starts the sending process.
func (b *Bot) broadcastStep(ctx telebot.Context) error {
	timeoutCtx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	message := strings.TrimSpace(ctx.Text())
	if message == "" {
		b.stateManager.Set(ctx.Sender().ID, UserState{WaitingFor: stateAwaitingBroadcast})
		return ctx.Send("✍️ Текст рассылки не может быть пустым. Введите текст:")
	}

	clients, err := b.clients.ListClients(timeoutCtx)
	if err != nil {
		b.log.ErrorContext(timeoutCtx, "Failed to get clients for broadcast", "error", err)
		return ctx.Send(msgInternalError)
	}

	// The broadcast runs in a goroutine so the bot doesn't freeze.
	go b.sendBroadcast(ctx.Sender().ID, message, clients)

	return ctx.Send(fmt.Sprintf("📨 Рассылка запущена, получателей: %d.", len(clients)))
}

// sendBroadcast is the background worker that delivers the broadcast.
func (b *Bot) sendBroadcast(adminID int64, message string, clients []models.Client) {
	b.log.Info("Starting broadcast", "from_admin", adminID, "client_count", len(clients))

	successfulSends := 0
	failedSends := 0

	for _, client := range clients {
		// Don't send the message to the admin who initiated it.
		if client.ChatID == adminID {
			continue
		}

		if _, err := b.send(telebot.ChatID(client.ChatID), message); err != nil {
			// This can happen if a user has blocked the bot
			b.log.Warn("Failed to send broadcast message to client", "chat_id", client.ChatID, "error", err)
			failedSends++
		} else {
			b.metrics.SentMessages.WithLabelValues("broadcast").Inc()
			successfulSends++
		}

		// IMPORTANT: Wait a bit between messages to avoid Telegram's rate limits
		const telegramRateTimeout = 100 * time.Millisecond
		time.Sleep(telegramRateTimeout)
	}

	reportText := fmt.Sprintf("📣 Рассылка завершена. Доставлено: %d, не доставлено: %d.",
		successfulSends, failedSends)
	if _, err := b.send(telebot.ChatID(adminID), reportText); err != nil {
		b.log.Warn("Failed to send broadcast report to admin", "admin", adminID, "error", err)
	}
}

// setRatePromptHandler asks for a new USD-to-som rate.
func (b *Bot) setRatePromptHandler(ctx telebot.Context) error {
	b.stateManager.Set(ctx.Sender().ID, UserState{WaitingFor: stateAwaitingRate})
	return ctx.Send("💱 Введите новый курс (сом за 1 USD):")
}

// setRateStep stores the new exchange rate.
func (b *Bot) setRateStep(ctx telebot.Context) error {
	timeoutCtx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	rate, err := decimal.NewFromString(strings.TrimSpace(ctx.Text()))
	if err != nil || !rate.IsPositive() {
		return ctx.Send("❌ Курс должен быть положительным числом.")
	}

	if err = b.settings.SetUSDRate(timeoutCtx, rate); err != nil {
		b.log.ErrorContext(timeoutCtx, "Failed to set USD rate", "error", err)
		return ctx.Send(msgInternalError)
	}

	b.log.Info("USD rate updated", "rate", rate, "admin", ctx.Sender().ID)
	return ctx.Send(fmt.Sprintf("✅ Курс обновлён: 1 USD = %s сом.", rate.String()))
}

// parseClientCode accepts both the bare number and the printed TE-XXXX form.
func parseClientCode(raw string) (int, error) {
	raw = strings.TrimPrefix(strings.ToUpper(strings.TrimSpace(raw)), "TE-")
	return strconv.Atoi(raw)
}
