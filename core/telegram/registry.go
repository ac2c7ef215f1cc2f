package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/landerpin123/uniq-tarot/core/logger"
	"github.com/landerpin123/uniq-tarot/core/telegram/commands"

	tele "gopkg.in/telebot.v4"
)

// Registry is the routing table: slash commands with their text aliases and
// callback handlers keyed by the part of the data before "|".
type Registry struct {
	mu        sync.RWMutex
	commands  map[string]commands.Command
	aliases   map[string]string
	callbacks map[string]tele.HandlerFunc

	callbackNotFound tele.HandlerFunc
}

// NewRegistry returns an empty table. Unknown callbacks are answered with a
// short notice until SetCallbackNotFound replaces it.
func NewRegistry() *Registry {
	return &Registry{
		commands:  make(map[string]commands.Command),
		aliases:   make(map[string]string),
		callbacks: make(map[string]tele.HandlerFunc),
		callbackNotFound: func(c tele.Context) error {
			return c.Respond(&tele.CallbackResponse{Text: "Неизвестное действие"})
		},
	}
}

// RegisterCommand adds a command under its canonical name. Invalid and
// duplicate registrations are logged and ignored; the first one wins.
func (r *Registry) RegisterCommand(name string, cmd commands.Command) {
	if r == nil {
		return
	}
	if err := r.addCommand(name, cmd); err != nil {
		logger.Warn(context.Background(), "tg.wire", "register.command.skip",
			slog.String("command", name),
			slog.String("reason", err.Error()),
		)
	}
}

func (r *Registry) addCommand(name string, cmd commands.Command) error {
	key, err := commands.Name(name)
	if err != nil {
		return err
	}
	if err := cmd.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.commands[key]; dup {
		return fmt.Errorf("duplicate %s", key)
	}
	aliases := make([]string, 0, len(cmd.Aliases))
	for _, a := range cmd.Aliases {
		alias := strings.ToLower(strings.TrimSpace(a))
		if alias == "" {
			continue
		}
		if owner, taken := r.aliases[alias]; taken {
			return fmt.Errorf("alias %q already used by %s", alias, owner)
		}
		aliases = append(aliases, alias)
	}
	r.commands[key] = cmd
	for _, alias := range aliases {
		r.aliases[alias] = key
		r.aliases["/"+alias] = key
	}
	return nil
}

// ListCommands returns commands sorted by name. With visibleOnly hidden and
// admin-only commands are left out, which is what the menu and /help show.
func (r *Registry) ListCommands(visibleOnly bool) []tele.Command {
	r.mu.RLock()
	defer r.mu.RUnlock()
	list := make([]tele.Command, 0, len(r.commands))
	for _, name := range slices.Sorted(maps.Keys(r.commands)) {
		meta := r.commands[name]
		if visibleOnly && (meta.Hidden || meta.AdminOnly) {
			continue
		}
		list = append(list, tele.Command{Text: name, Description: meta.Description})
	}
	return list
}

// LookupCommand resolves message text, a command or one of its aliases, to
// the canonical name.
func (r *Registry) LookupCommand(text string) (string, commands.Command, bool) {
	key := commands.Key(text)
	if key == "" {
		return "", commands.Command{}, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if !strings.HasPrefix(key, "/") {
		key = "/" + key
	}
	if cmd, ok := r.commands[key]; ok {
		return key, cmd, true
	}
	if owner, ok := r.aliases[key]; ok {
		return owner, r.commands[owner], true
	}
	return "", commands.Command{}, false
}

// Commands returns a copy of the command table.
func (r *Registry) Commands() map[string]commands.Command {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return maps.Clone(r.commands)
}

// RegisterCallback maps a callback key to its handler.
func (r *Registry) RegisterCallback(key string, handler tele.HandlerFunc) error {
	if r == nil || key == "" || handler == nil {
		return fmt.Errorf("invalid callback registration %q", key)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.callbacks[key]; exists {
		return fmt.Errorf("callback already registered: %s", key)
	}
	r.callbacks[key] = handler
	return nil
}

func (r *Registry) GetCallback(key string) (tele.HandlerFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.callbacks[key]
	return h, ok
}

// ListCallbacks returns the sorted callback keys.
func (r *Registry) ListCallbacks() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.callbacks))
}

func (r *Registry) SetCallbackNotFound(h tele.HandlerFunc) {
	if h == nil {
		return
	}
	r.mu.Lock()
	r.callbackNotFound = h
	r.mu.Unlock()
}

// CallbackNotFound is nil-safe so routes can be built without a registry.
func (r *Registry) CallbackNotFound() tele.HandlerFunc {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.callbackNotFound
}

// InitBotCommands publishes the visible commands to the Telegram menu. A
// failure is logged; the bot still works without the menu.
func InitBotCommands(bot *tele.Bot, reg *Registry) {
	if err := bot.SetCommands(reg.ListCommands(true)); err != nil {
		logger.Error(context.Background(), "tg.wire", "register.commands.set_failed",
			slog.String("err", err.Error()),
		)
	}
}
