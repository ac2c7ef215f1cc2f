package reading

import (
	"errors"
	"fmt"
	"strings"

	"github.com/landerpin123/uniq-tarot/internal/tarot"
)

// GenericFailure is shown for internal faults.
const GenericFailure = "⚠️ Произошла ошибка. Попробуйте позже."

var userMessages = map[Kind]string{
	KindAlreadyRegistered: "❌ Вы уже зарегистрированы!",
	KindNotRegistered:     "❌ Сначала зарегистрируйтесь: /register",
	KindUnknownSpread:     "❌ Такого расклада нет. Выберите расклад: /tarot",
	KindInsufficientFunds: "❌ Недостаточно средств для этого расклада.",
	KindNoActiveSpread:    "❌ Нет активного расклада. Начните новый: /tarot",
	KindIndexOutOfRange:   "❌ Такой карты нет среди предложенных. Выберите другую.",
	KindInvalidName:       "❌ Имя не может быть пустым. Введите ваше имя и фамилию:",
	KindInvalidBirthDate:  "❌ Неверная дата. Введите дату рождения в формате ДД.ММ.ГГГГ:",
}

// UserMessage turns any transition error into the text shown to the user.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if !errors.As(err, &e) {
		return GenericFailure
	}
	msg, ok := userMessages[e.Kind]
	if !ok {
		return GenericFailure
	}
	if e.Kind == KindInsufficientFunds && e.Detail != "" {
		return msg + "\n" + e.Detail
	}
	return msg
}

func textWelcomeNew() string {
	return "🔮 Добро пожаловать!\nДля регистрации введите /register"
}

func textWelcomeBack(name string, balance int) string {
	return fmt.Sprintf("🔮 С возвращением, %s!\nБаланс: %d💰\nИспользуйте /tarot для расклада", name, balance)
}

func textWelcomeRegistering() string {
	return "🔮 Добро пожаловать!\nПродолжим регистрацию."
}

func textAskName() string {
	return "📝 Введите ваше имя и фамилию:"
}

func textAskBirthDate() string {
	return "📅 Введите дату рождения (ДД.ММ.ГГГГ):"
}

func textRegistered(balance int) string {
	return fmt.Sprintf("🎉 Регистрация завершена!\nБаланс: %d💰\nИспользуйте /tarot для расклада", balance)
}

func textSpreadMenu(balance int) string {
	return fmt.Sprintf("🃏 Выберите расклад (баланс: %d💰):", balance)
}

func spreadLabel(sp *tarot.Spread) string {
	return fmt.Sprintf("%s — %d💰 (%s)", sp.Name, sp.Price, cardsWord(sp.Cards))
}

func textFunds(balance, price int) string {
	return fmt.Sprintf("Баланс: %d💰, стоимость: %d💰", balance, price)
}

func textPick(sp *tarot.Spread, pick int, balance int, paid bool) string {
	var b strings.Builder
	if paid {
		fmt.Fprintf(&b, "✨ Расклад «%s» начат. Списано %d💰, баланс: %d💰\n", sp.Name, sp.Price, balance)
	}
	fmt.Fprintf(&b, "Выберите карту %d/%d:", pick, sp.Cards)
	return b.String()
}

func textResult(sp *tarot.Spread, cards []*tarot.Card, balance int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🔮 Ваш расклад «%s»:\n\n", sp.Name)
	for i, c := range cards {
		fmt.Fprintf(&b, "%d. %s — %s\n", i+1, c.Name, c.Meaning)
	}
	fmt.Fprintf(&b, "\nБаланс: %d💰", balance)
	return b.String()
}

func textBalance(balance int) string {
	return fmt.Sprintf("💰 Ваш баланс: %d", balance)
}

func cardsWord(n int) string {
	switch {
	case n%10 == 1 && n%100 != 11:
		return fmt.Sprintf("%d карта", n)
	case n%10 >= 2 && n%10 <= 4 && (n%100 < 12 || n%100 > 14):
		return fmt.Sprintf("%d карты", n)
	default:
		return fmt.Sprintf("%d карт", n)
	}
}
