package tarot

import (
	"errors"
	"fmt"
	"strings"
)

// Spread defines what a reading costs and how many cards it draws.
type Spread struct {
	Name  string
	Price int
	Cards int
}

// SpreadDef is the configuration form of a spread.
type SpreadDef struct {
	Name  string `yaml:"name"`
	Price int    `yaml:"price"`
	Cards int    `yaml:"cards"`
}

// DefaultSpreadDefs returns the spreads offered when configuration lists none.
func DefaultSpreadDefs() []SpreadDef {
	return []SpreadDef{
		{Name: "1 карта", Price: 10, Cards: 1},
		{Name: "3 карты", Price: 25, Cards: 3},
		{Name: "Кельтский крест", Price: 50, Cards: 10},
	}
}

// Spreads is the ordered spread catalog.
type Spreads struct {
	list   []*Spread
	byName map[string]*Spread
}

// NewSpreads validates the definitions against the deck size and builds the catalog.
func NewSpreads(defs []SpreadDef, deckSize int) (*Spreads, error) {
	if len(defs) == 0 {
		return nil, errors.New("tarot: no spreads defined")
	}
	s := &Spreads{
		list:   make([]*Spread, 0, len(defs)),
		byName: make(map[string]*Spread, len(defs)),
	}
	for _, def := range defs {
		name := strings.TrimSpace(def.Name)
		switch {
		case name == "":
			return nil, errors.New("tarot: spread without a name")
		case def.Price < 0:
			return nil, fmt.Errorf("tarot: spread %q has negative price %d", name, def.Price)
		case def.Cards <= 0:
			return nil, fmt.Errorf("tarot: spread %q must draw at least one card", name)
		case def.Cards > deckSize:
			return nil, fmt.Errorf("tarot: spread %q draws %d cards but the deck has %d", name, def.Cards, deckSize)
		}
		if _, dup := s.byName[name]; dup {
			return nil, fmt.Errorf("tarot: duplicate spread %q", name)
		}
		sp := &Spread{Name: name, Price: def.Price, Cards: def.Cards}
		s.list = append(s.list, sp)
		s.byName[name] = sp
	}
	return s, nil
}

// Lookup finds a spread by its exact name.
func (s *Spreads) Lookup(name string) (*Spread, bool) {
	sp, ok := s.byName[name]
	return sp, ok
}

// Names returns spread names in catalog order.
func (s *Spreads) Names() []string {
	names := make([]string, 0, len(s.list))
	for _, sp := range s.list {
		names = append(names, sp.Name)
	}
	return names
}

// All returns the spreads in catalog order.
func (s *Spreads) All() []*Spread {
	out := make([]*Spread, len(s.list))
	copy(out, s.list)
	return out
}
