// Package keyboard lays out inline keyboards.
package keyboard

import tele "gopkg.in/telebot.v4"

// Button is one inline button. Action and Payload travel back in the
// callback data as "\f<action>|<payload>".
type Button struct {
	Text    string
	Action  string
	Payload string
}

// Grid places buttons left to right, perRow to a row; the last row may be
// shorter. perRow below 1 means one button per row.
func Grid(buttons []Button, perRow int) *tele.ReplyMarkup {
	perRow = max(perRow, 1)
	markup := &tele.ReplyMarkup{}
	rows := make([][]tele.InlineButton, 0, (len(buttons)+perRow-1)/perRow)
	var row []tele.InlineButton
	for _, b := range buttons {
		row = append(row, *markup.Data(b.Text, b.Action, b.Payload).Inline())
		if len(row) == perRow {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	markup.InlineKeyboard = rows
	return markup
}
