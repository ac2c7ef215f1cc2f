package telegram

import (
	"testing"

	"github.com/landerpin123/uniq-tarot/core/telegram/commands"

	tele "gopkg.in/telebot.v4"
)

func nop(tele.Context) error { return nil }

func TestRegistryCommands(t *testing.T) {
	reg := NewRegistry()
	reg.RegisterCommand("/tarot", commands.Command{Handler: nop, Description: "Расклад", Aliases: []string{"Таро"}})
	reg.RegisterCommand("/sessions", commands.Command{Handler: nop, Description: "Сессии", AdminOnly: true})
	reg.RegisterCommand("/help", commands.Command{Handler: nop, Description: "Помощь"})
	reg.RegisterCommand("/help", commands.Command{Handler: nop, Description: "дубль"})
	reg.RegisterCommand("help", commands.Command{Handler: nop, Description: "без слэша"})
	reg.RegisterCommand("/empty", commands.Command{Handler: nop})

	if n := len(reg.Commands()); n != 3 {
		t.Fatalf("commands = %d", n)
	}
	visible := reg.ListCommands(true)
	if len(visible) != 2 || visible[0].Text != "/help" || visible[1].Text != "/tarot" {
		t.Fatalf("visible = %+v", visible)
	}
	if _, cmd, _ := reg.LookupCommand("/help"); cmd.Description != "Помощь" {
		t.Fatalf("duplicate replaced the first command: %q", cmd.Description)
	}

	for _, text := range []string{"/tarot", "/Tarot@tarot_bot", "таро", "ТАРО", "/таро"} {
		if key, _, ok := reg.LookupCommand(text); !ok || key != "/tarot" {
			t.Errorf("LookupCommand(%q) = %q, %v", text, key, ok)
		}
	}
	if _, _, ok := reg.LookupCommand("привет"); ok {
		t.Fatal("plain text resolved to a command")
	}
}

func TestRegistryCallbacks(t *testing.T) {
	reg := NewRegistry()
	if err := reg.RegisterCallback("pick", nop); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := reg.RegisterCallback("pick", nop); err == nil {
		t.Fatal("duplicate callback accepted")
	}
	if err := reg.RegisterCallback("", nop); err == nil {
		t.Fatal("empty key accepted")
	}
	if _, ok := reg.GetCallback("pick"); !ok {
		t.Fatal("pick not found")
	}
	if keys := reg.ListCallbacks(); len(keys) != 1 || keys[0] != "pick" {
		t.Fatalf("keys = %v", keys)
	}
	if reg.CallbackNotFound() == nil {
		t.Fatal("default not-found handler missing")
	}
	var nilReg *Registry
	if nilReg.CallbackNotFound() != nil {
		t.Fatal("nil registry must return nil")
	}
}
