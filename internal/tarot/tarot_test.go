package tarot

import (
	"strings"
	"testing"
)

func TestLoadDeckEmbedded(t *testing.T) {
	deck, err := LoadDeck()
	if err != nil {
		t.Fatalf("load deck: %v", err)
	}
	if deck.Len() != 78 {
		t.Fatalf("expected 78 cards, got %d", deck.Len())
	}
	seen := map[string]bool{}
	for _, c := range deck.Cards() {
		if c.Meaning == "" {
			t.Fatalf("card %q has no meaning", c.Name)
		}
		if seen[c.Name] {
			t.Fatalf("duplicate card %q", c.Name)
		}
		seen[c.Name] = true
	}
	if first := deck.Cards()[0].Name; first != "Шут" {
		t.Fatalf("first card = %q, want Шут", first)
	}
}

func TestDeckCardsSharesPointers(t *testing.T) {
	deck, err := LoadDeck()
	if err != nil {
		t.Fatalf("load deck: %v", err)
	}
	a, b := deck.Cards(), deck.Cards()
	a[0] = nil
	if b[0] == nil {
		t.Fatal("Cards must return a fresh slice")
	}
	if deck.Cards()[5] != b[5] {
		t.Fatal("cards must be shared by pointer")
	}
}

func TestParseDeckRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"empty":     "cards: []",
		"no name":   "cards:\n  - name: \"  \"\n    meaning: x\n",
		"duplicate": "cards:\n  - name: A\n    meaning: x\n  - name: A\n    meaning: y\n",
		"bad yaml":  "cards: [",
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := ParseDeck([]byte(data)); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestNewSpreadsDefaults(t *testing.T) {
	s, err := NewSpreads(DefaultSpreadDefs(), 78)
	if err != nil {
		t.Fatalf("new spreads: %v", err)
	}
	want := []string{"1 карта", "3 карты", "Кельтский крест"}
	got := s.Names()
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("names = %v, want %v", got, want)
	}
	sp, ok := s.Lookup("3 карты")
	if !ok || sp.Price != 25 || sp.Cards != 3 {
		t.Fatalf("lookup 3 карты = %+v, %v", sp, ok)
	}
	if _, ok := s.Lookup("нет такого"); ok {
		t.Fatal("unknown spread must not resolve")
	}
}

func TestNewSpreadsValidation(t *testing.T) {
	cases := []struct {
		name string
		defs []SpreadDef
	}{
		{"none", nil},
		{"blank name", []SpreadDef{{Name: " ", Price: 1, Cards: 1}}},
		{"negative price", []SpreadDef{{Name: "a", Price: -1, Cards: 1}}},
		{"zero cards", []SpreadDef{{Name: "a", Price: 1, Cards: 0}}},
		{"too many cards", []SpreadDef{{Name: "a", Price: 1, Cards: 5}}},
		{"duplicate", []SpreadDef{{Name: "a", Price: 1, Cards: 1}, {Name: "a", Price: 2, Cards: 2}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewSpreads(tc.defs, 4); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}
