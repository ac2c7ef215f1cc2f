// Package tarot holds the static catalogs of the bot: the card deck and
// the spreads a user can buy.
package tarot

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed cards.yaml
var embeddedCards []byte

// Card is an immutable catalog entry. Cards are shared by pointer and never copied.
type Card struct {
	Name    string `yaml:"name"`
	Meaning string `yaml:"meaning"`
}

// Deck is the ordered card catalog.
type Deck struct {
	cards []*Card
}

type deckFile struct {
	Cards []Card `yaml:"cards"`
}

// LoadDeck parses the catalog embedded into the binary.
func LoadDeck() (*Deck, error) {
	return ParseDeck(embeddedCards)
}

// ParseDeck parses a YAML card catalog and validates it.
func ParseDeck(data []byte) (*Deck, error) {
	var file deckFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("tarot: parse cards: %w", err)
	}
	if len(file.Cards) == 0 {
		return nil, errors.New("tarot: card catalog is empty")
	}

	seen := make(map[string]struct{}, len(file.Cards))
	cards := make([]*Card, 0, len(file.Cards))
	for i := range file.Cards {
		c := file.Cards[i]
		c.Name = strings.TrimSpace(c.Name)
		c.Meaning = strings.TrimSpace(c.Meaning)
		if c.Name == "" {
			return nil, fmt.Errorf("tarot: card #%d has no name", i+1)
		}
		if _, dup := seen[c.Name]; dup {
			return nil, fmt.Errorf("tarot: duplicate card %q", c.Name)
		}
		seen[c.Name] = struct{}{}
		cards = append(cards, &c)
	}
	return &Deck{cards: cards}, nil
}

// Cards returns the catalog in its canonical order. The slice is a copy;
// the cards are shared.
func (d *Deck) Cards() []*Card {
	out := make([]*Card, len(d.cards))
	copy(out, d.cards)
	return out
}

// Len reports the number of cards in the catalog.
func (d *Deck) Len() int {
	return len(d.cards)
}
