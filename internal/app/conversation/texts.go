package conversation

import (
	"fmt"
	"strings"

	"github.com/dalemusser/filescout/internal/app/chat"
	"github.com/dalemusser/filescout/internal/app/store/audit"
	"github.com/dalemusser/filescout/internal/domain/models"
)

// Reply keyboard labels. Incoming text equal to one of these is a command,
// never a folder name or a phone number.
const (
	btnLogin  = "🔑 Войти"
	btnLogout = "❌ Выйти"
	btnSearch = "Поиск"
	btnPanel  = "Админ панель"
	btnBack   = "Назад"

	btnAddAdmin   = "Добавить администратора"
	btnAddUser    = "Добавить пользователя"
	btnListUsers  = "Список пользователей"
	btnFindUser   = "Найти пользователя"
	btnBroadcast  = "Отправить сообщение"
	btnListAdmins = "Список администраторов"

	cmdStart = "/start"
)

// Inline labels.
const (
	btnYes         = "Да"
	btnNo          = "Нет"
	btnDeleteUser  = "Удалить пользователя"
	btnChangeGroup = "Изменить группу"
	btnDeleteAdmin = "Удалить администратора"
)

const (
	msgStart = "👋 Приветствую вас, я <b>FileScout</b>! 🌟 Я ваш надежный помощник для поиска и получения файлов из Google Диска. 📂\n\n" +
		"С моей помощью вы можете быстро и легко найти нужные файлы, просто указав название папки! 📁\n\n" +
		"Но для начала мне нужно убедиться, что это действительно вы, поэтому необходимо пройти аутентификацию. 🔑\n\n" +
		"Как это работает:\n" +
		"1️⃣ Нажмите на кнопку <b>Войти</b>, чтобы я мог убедиться, что это вы.\n" +
		"2️⃣ Отправьте мне свой номер телефона, который поможет мне найти вас.\n" +
		"3️⃣ Введите пароль, чтобы завершить вход в аккаунт.\n" +
		"4️⃣ Как только вы войдете, сможете вводить название папки, и я помогу вам найти все файлы в ней! 📂\n\n" +
		"Готовы? Тогда нажмите на кнопку <b>Войти</b>, чтобы начать! 👇"

	msgEnterPassword = "🔒 Введите пароль для входа в ваш аккаунт:\n\n" +
		"Пожалуйста, убедитесь, что вы вводите правильный пароль. 🛠️"

	msgPressLoginFirst = "❗ Сначала нажмите кнопку <b>Войти</b>."
	msgShareContact    = "📱 Нажмите кнопку <b>Войти</b> и отправьте свой номер телефона."
	msgForeignContact  = "❗ Отправьте, пожалуйста, свой собственный контакт."
	msgLoginFailed     = "🚫 Пароль неверный или учетная запись не найдена. Попробуйте снова."
	msgAlreadyIn       = "Вы уже вошли. Чтобы сменить учетную запись, нажмите <b>❌ Выйти</b>."

	msgWelcomeAdmin = "🎉 Добро пожаловать, администратор! 🌟\n\n" +
		"Теперь у вас есть доступ ко всем функциям управления системой. " +
		"Вы можете управлять пользователями и настраивать параметры.\n\n" +
		"Нажмите на кнопку ниже, чтобы начать то действие, которое вам требуется:"

	msgWelcomeMember = "🎉 Добро пожаловать! 🌈\n\n" +
		"Теперь вы можете легко искать файлы в системе. " +
		"Просто нажмите кнопку Поиск, чтобы начать!"

	msgLogout = "🚪 Вы успешно вышли из аккаунта. Мы надеемся, что ваше время было приятным!\n\n" +
		"Чтобы вернуться и продолжить пользоваться всеми функциями нашего сервиса, " +
		"просто нажмите кнопку <b>🔑 Войти.</b>"

	msgDemoted = "⚠️ Ваша учетная запись больше не действительна. Войдите снова."

	msgSearchPrompt = "🔎 Пожалуйста, укажите номер каталога, который вы хотите найти. " +
		"🗂️ Это поможет мне быстро и точно предоставить вам нужную информацию. ✨"
	msgFolderNotFound = "Папка не найдена. 🥺"
	msgNoFiles        = "🚫 Файлы не найдены. 😞"
	msgTryLater       = "⚠️ Сервис временно недоступен. Пожалуйста, попробуйте позже."
	msgUseKeyboard    = "Выберите действие на клавиатуре ниже. 👇"

	msgDenied       = "🚫 Недостаточно прав для этого действия."
	msgInternal     = "⚠️ Произошла ошибка при обработке. Пожалуйста, попробуйте снова."
	msgStaleAction  = "⌛ Это действие устарело."
	msgUseButtons   = "Пожалуйста, воспользуйтесь кнопками под сообщением выше. 👆"
	msgAdminMenu    = "✨ Выберите действие, которое хотите выполнить:"
	msgBackToStart  = "🔙 Вы вернулись на предыдущий шаг. Как я могу помочь вам дальше?"
	msgAskUserPhone = "📞 <b>Пожалуйста, введите номер телефона (без плюса):</b>\n" +
		"Не забудьте проверить, что номер правильный!"
	msgAskAdminPhone = "📞 <b>Пожалуйста, введите номер телефона администратора (без плюса):</b>\n" +
		"Не забудьте проверить, что номер правильный!"
	msgPhoneExample = "Вы можете вводить номер как с пробелами, так и без них. " +
		"Пример: <b>375 33 350 78 90</b> или <b>375333507890</b>. 🥺📞"
	msgInvalidPhone = "❌ Ой! Неверный номер телефона. " +
		"Пожалуйста, убедитесь, что вводите корректный номер. " + msgPhoneExample

	msgNoUsers        = "🚫 Список пользователей пуст."
	msgNoAdmins       = "🚫 Список администраторов пуст."
	msgUserNotFound   = "Пользователь с таким номером телефона не найден."
	msgAdminNotFound  = "Администратор с таким номером не найден."
	msgChooseGroup    = "✅ Пожалуйста, выберите группу:"
	msgNoGroups       = "🚫 Группы не настроены."
	msgComposeMessage = "✏️ Пожалуйста, введите сообщение (это может быть текст, фото или видео), " +
		"которое вы хотите отправить всем пользователям группы <b>%s</b>:"
	msgGroupEmpty    = "🚫 В данной группе нет пользователей."
	msgAdminCanceled = "🚫 Добавление администратора было отменено. Если вам нужно что-то еще, просто дайте знать!"
	msgAccountExists = "⚠️ Учетная запись с номером <b>+%s</b> уже существует."
	msgUnknownGroup  = "⚠️ Такой группы не существует."
	msgLastAdmin     = "🚫 Нельзя удалить последнего администратора."
	msgProtected     = "🚫 Главного администратора удалить нельзя."

	msgMessageTooLong = "⚠️ Сообщение слишком длинное. Сократите текст (до 4096 символов, подпись к медиа до 1024) и отправьте снова."
)

func msgContactAccepted(phone string) string {
	return fmt.Sprintf("📱 Ваш логин: <b>+%s</b>.\n\n"+
		"Теперь, чтобы завершить процесс входа, пожалуйста, введите свой пароль. 🔑", phone)
}

func msgConfirmAdmin(phone, password string) string {
	return fmt.Sprintf("🔔 Вы собираетесь добавить нового администратора с номером: <b>+%s</b>\n"+
		"🔑 Вот его пароль для доступа: <b>%s</b>\n\n"+
		"✅ <b>Пожалуйста, подтвердите добавление:</b>", phone, password)
}

func msgSelectUserGroup(phone, password string) string {
	return fmt.Sprintf("🔔 Вы собираетесь добавить нового пользователя с номером: <b>+%s</b>\n"+
		"🔑 Вот его пароль для доступа: <b>%s</b>\n\n"+
		"⚠️ <b>Пожалуйста, скопируйте пароль, так как после выбора группы он станет недоступен.</b>\n\n"+
		"✅ <b>Пожалуйста, выберите группу папок, которые он сможет получать:</b>", phone, password)
}

func msgAdminAdded(phone string) string {
	return fmt.Sprintf("🎉 Поздравляю! Новый администратор с номером <b>+%s</b> успешно добавлен!", phone)
}

func msgUserAdded(phone, group string) string {
	return fmt.Sprintf("🎉 Поздравляю! Новый пользователь с номером <b>+%s</b> успешно добавлен в группу <b>%s</b>!", phone, group)
}

func msgUserDeleted(phone string) string {
	return fmt.Sprintf("Пользователь c номером +%s был удален", phone)
}

func msgAdminDeleted(phone string) string {
	return fmt.Sprintf("Администратор c номером +%s был удален", phone)
}

func msgGroupChanged(group string) string {
	return fmt.Sprintf("Группа пользователя обновлена на %s.", group)
}

func msgChangeGroupFor(phone string) string {
	return fmt.Sprintf("Выберите новую группу для <b>+%s</b>:", phone)
}

func msgBroadcastDone(sent, skipped, failed int) string {
	return fmt.Sprintf("✅ Сообщение отправлено пользователям группы.\n\n"+
		"Доставлено: <b>%d</b>\nБез привязанного чата: <b>%d</b>\nОшибок доставки: <b>%d</b>",
		sent, skipped, failed)
}

// memberLine is a member card; index 0 leaves out the list number.
func memberLine(index int, m models.Member) string {
	line := fmt.Sprintf("📞 Номер: <b>+%s</b>, Группа: <b>%s</b>", m.Phone, m.Group)
	if index > 0 {
		return fmt.Sprintf("%d. %s", index, line)
	}
	return line
}

// historyLimit caps the audit lines shown on a member card.
const historyLimit = 3

const msgRecentHistory = "<b>Последние события:</b>"

var historyLabels = map[string]string{
	audit.EventLoginSuccess:             "вход",
	audit.EventLoginFailedNotFound:      "попытка входа",
	audit.EventLoginFailedWrongPassword: "неверный пароль",
	audit.EventLogout:                   "выход",
	audit.EventSessionDemoted:           "сессия сброшена",
	audit.EventMemberCreated:            "добавлен",
	audit.EventMemberGroupChanged:       "смена группы",
	audit.EventAccessDenied:             "отказ в доступе",
}

func historyLine(e audit.Event) string {
	label, ok := historyLabels[e.EventType]
	if !ok {
		label = e.EventType
	}
	return fmt.Sprintf("• %s %s", e.Timestamp.Format("02.01.2006 15:04"), label)
}

func adminLine(index int, a models.Admin) string {
	return fmt.Sprintf("%d. 📞 Номер: <b>+%s</b>", index, a.Phone)
}

// Keyboards.

func loginKeyboard() [][]chat.ReplyButton {
	return [][]chat.ReplyButton{{{Text: btnLogin, RequestContact: true}}}
}

// reloginKeyboard is shown after logout; the phone is still on the session
// so the button sends plain text instead of a contact.
func reloginKeyboard() [][]chat.ReplyButton {
	return [][]chat.ReplyButton{{{Text: btnLogin}}}
}

func startKeyboard(role models.Role) [][]chat.ReplyButton {
	if role == models.RoleAdmin {
		return [][]chat.ReplyButton{
			{{Text: btnSearch}, {Text: btnLogout}},
			{{Text: btnPanel}},
		}
	}
	return [][]chat.ReplyButton{{{Text: btnSearch}, {Text: btnLogout}}}
}

func browseKeyboard(role models.Role) [][]chat.ReplyButton {
	if role == models.RoleAdmin {
		return [][]chat.ReplyButton{{{Text: btnLogout}, {Text: btnPanel}}}
	}
	return [][]chat.ReplyButton{{{Text: btnLogout}}}
}

func adminKeyboard() [][]chat.ReplyButton {
	return [][]chat.ReplyButton{
		{{Text: btnAddAdmin}, {Text: btnAddUser}},
		{{Text: btnListUsers}, {Text: btnFindUser}},
		{{Text: btnBroadcast}, {Text: btnListAdmins}},
		{{Text: btnBack}},
	}
}

// Callback data is "<action>[:<arg>...]".
const (
	cbAddAdmin     = "add_admin"
	cbCancelAdmin  = "cancel_admin"
	cbSelectGroup  = "select_group"
	cbGroupMessage = "group_message"
	cbDeleteUser   = "delete_user"
	cbDeleteAdmin  = "delete_admin"
	cbChangeGroup  = "change_group"
	cbMoveGroup    = "move_group"
)

func callbackData(action string, args ...string) string {
	return strings.Join(append([]string{action}, args...), ":")
}

func parseCallback(data string) (action string, args []string) {
	parts := strings.Split(data, ":")
	return parts[0], parts[1:]
}

func confirmAdminButtons() [][]chat.InlineButton {
	return [][]chat.InlineButton{{
		{Text: btnYes, Data: cbAddAdmin},
		{Text: btnNo, Data: cbCancelAdmin},
	}}
}

func memberActions(m models.Member) [][]chat.InlineButton {
	return [][]chat.InlineButton{{
		{Text: btnDeleteUser, Data: callbackData(cbDeleteUser, m.Phone)},
		{Text: btnChangeGroup, Data: callbackData(cbChangeGroup, m.Phone)},
	}}
}

func adminActions(a models.Admin) [][]chat.InlineButton {
	return [][]chat.InlineButton{{
		{Text: btnDeleteAdmin, Data: callbackData(cbDeleteAdmin, a.Phone)},
	}}
}

// groupButtons lays out one button per group, two per row.
func groupButtons(groups []models.Group, action string, prefix ...string) [][]chat.InlineButton {
	var rows [][]chat.InlineButton
	var row []chat.InlineButton
	for _, g := range groups {
		args := append(append([]string{}, prefix...), g.Name)
		row = append(row, chat.InlineButton{Text: g.Name, Data: callbackData(action, args...)})
		if len(row) == 2 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	return rows
}
