package bot

import (
	tele "gopkg.in/telebot.v4"

	tghelpers "github.com/landerpin123/uniq-tarot/core/telegram/helpers"
	"github.com/landerpin123/uniq-tarot/core/telegram/ui"
)

// registrationFlow hands free text to the machine while a user is filling
// in their profile.
type registrationFlow struct {
	b *Bot
}

func (f registrationFlow) InProgress(userID int64) bool {
	return f.b.machine.InRegistration(userID)
}

func (f registrationFlow) ManagerHandler(c tele.Context) error {
	if c.Message() != nil && c.Message().Document != nil {
		return tghelpers.SendText(c, textOnlyText)
	}
	return f.b.onText(c)
}

// fallbacks answers updates no route claimed. Free text still goes through
// the machine so a user mid-registration after a restart is recognised.
func (b *Bot) fallbacks() ui.Replies {
	return ui.Replies{
		OnText:      b.onText,
		Document:    textOnlyText,
		StaleButton: textStaleButton,
	}
}
