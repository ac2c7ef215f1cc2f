package bot

import (
	"fmt"
	"strings"

	tele "gopkg.in/telebot.v4"

	"github.com/landerpin123/uniq-tarot/core/telegram/format"
	"github.com/landerpin123/uniq-tarot/core/telegram/keyboard"
	"github.com/landerpin123/uniq-tarot/internal/reading"
	"github.com/landerpin123/uniq-tarot/internal/session"
)

const picksPerRow = 5

// renderChoices lays choices out as an inline keyboard: spreads one per
// row, card picks five per row.
func renderChoices(choices []reading.Choice) *tele.ReplyMarkup {
	if len(choices) == 0 {
		return nil
	}
	btns := make([]keyboard.Button, 0, len(choices))
	perRow := 1
	for _, ch := range choices {
		if ch.Token.Action == reading.ActionPick {
			perRow = picksPerRow
		}
		btns = append(btns, keyboard.Button{
			Text:    ch.Label,
			Action:  ch.Token.Action,
			Payload: ch.Token.Payload,
		})
	}
	return keyboard.Grid(btns, perRow)
}

// historyText renders readings as MarkdownV2, newest first.
func historyText(readings []reading.Reading) string {
	if len(readings) == 0 {
		return md("📜 История раскладов пуста. Начните с /tarot")
	}
	var b strings.Builder
	b.WriteString("*" + md("📜 Последние расклады") + "*\n")
	for i, rd := range readings {
		names := make([]string, 0, len(rd.Cards))
		for _, c := range rd.Cards {
			names = append(names, c.Name)
		}
		fmt.Fprintf(&b, "\n%s *%s* %s\n%s\n",
			md(fmt.Sprintf("%d.", i+1)),
			md(rd.Spread),
			md(fmt.Sprintf("(%s, %d💰)", rd.CreatedAt.UTC().Format("02.01.2006 15:04"), rd.Price)),
			md(strings.Join(names, ", ")),
		)
	}
	return b.String()
}

func md(s string) string { return format.MarkdownV2(s) }

func helpText(cmds []tele.Command) string {
	var b strings.Builder
	b.WriteString("🔮 Бот раскладов Таро\n\n")
	for _, c := range cmds {
		fmt.Fprintf(&b, "%s — %s\n", c.Text, c.Description)
	}
	return strings.TrimRight(b.String(), "\n")
}

func sessionsText(st session.Stats, queued int, failed uint64) string {
	return fmt.Sprintf(
		"👥 Сессии: %d\nЗарегистрированы: %d\nВ раскладе: %d\nОчередь сохранений: %d\nОшибок сохранения: %d",
		st.Sessions, st.Registered, st.Drawing, queued, failed,
	)
}
