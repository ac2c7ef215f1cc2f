// Package commands describes slash commands and the names Telegram accepts
// for them.
package commands

import (
	"errors"
	"fmt"
	"strings"

	tele "gopkg.in/telebot.v4"
)

// MaxNameLen is the longest command Telegram shows in the menu, without the
// leading slash.
const MaxNameLen = 32

// Command is one registered slash command. Aliases are plain words that
// invoke it from free text, with or without a slash.
type Command struct {
	Handler     tele.HandlerFunc
	Description string
	AdminOnly   bool
	Hidden      bool
	Aliases     []string
}

// Validate reports a command that cannot be registered.
func (c Command) Validate() error {
	switch {
	case c.Handler == nil:
		return errors.New("nil handler")
	case strings.TrimSpace(c.Description) == "":
		return errors.New("empty description")
	}
	return nil
}

// Name canonicalizes a command name to "/lower_case" and checks it against
// Telegram's rules: 1 to 32 latin letters, digits or underscores.
func Name(raw string) (string, error) {
	name := strings.ToLower(strings.TrimSpace(raw))
	if !strings.HasPrefix(name, "/") {
		return "", fmt.Errorf("command %q: missing slash prefix", raw)
	}
	body := name[1:]
	if body == "" || len(body) > MaxNameLen {
		return "", fmt.Errorf("command %q: length must be 1..%d", raw, MaxNameLen)
	}
	for _, r := range body {
		if !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '_') {
			return "", fmt.Errorf("command %q: invalid character %q", raw, r)
		}
	}
	return name, nil
}

// Key turns user text into a lookup key: the first word, lowercased, with
// any "@botname" suffix removed.
func Key(text string) string {
	word, _, _ := strings.Cut(strings.TrimSpace(text), " ")
	word, _, _ = strings.Cut(word, "@")
	return strings.ToLower(word)
}
