package bot

import "gopkg.in/telebot.v4"

// Reply-keyboard button labels. telebot routes text messages that match a
// registered button label to its handler before falling through to OnText.
const (
	btnMyParcels = "📦 Мои посылки"
	btnBalance   = "💰 Баланс"
	btnTrack     = "🔍 Отследить посылку"
	btnRate      = "💱 Курс доллара"

	btnAdminAddParcel  = "➕ Добавить посылку"
	btnAdminAdvance    = "🚚 Обновить статус"
	btnAdminPayment    = "💵 Принять оплату"
	btnAdminSettle     = "✅ Провести оплату"
	btnAdminFindClient = "🔎 Найти клиента"
	btnAdminManifest   = "📄 Выгрузка в Excel"
	btnAdminBroadcast  = "📣 Рассылка"
	btnAdminSetRate    = "💱 Установить курс"
	btnAdminBack       = "⬅️ Назад"
)

// mainMenu is the reply keyboard every registered client sees.
var mainMenu = buildMenu(
	[]string{btnMyParcels, btnBalance},
	[]string{btnTrack, btnRate},
)

// adminMenu is the reply keyboard for operators.
var adminMenu = buildMenu(
	[]string{btnAdminAddParcel, btnAdminAdvance},
	[]string{btnAdminPayment, btnAdminSettle},
	[]string{btnAdminFindClient, btnAdminManifest},
	[]string{btnAdminBroadcast, btnAdminSetRate},
	[]string{btnAdminBack},
)

func buildMenu(rows ...[]string) *telebot.ReplyMarkup {
	menu := &telebot.ReplyMarkup{ResizeKeyboard: true}

	menuRows := make([]telebot.Row, 0, len(rows))
	for _, labels := range rows {
		buttons := make([]telebot.Btn, 0, len(labels))
		for _, label := range labels {
			buttons = append(buttons, menu.Text(label))
		}
		menuRows = append(menuRows, menu.Row(buttons...))
	}
	menu.Reply(menuRows...)

	return menu
}
