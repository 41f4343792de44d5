// Package card loads card definitions and builds decks from them.
package card

import (
	_ "embed"
	"os"

	"github.com/naoina/toml"
	"github.com/rotisserie/eris"
)

//go:embed assets/cards.toml
var defaultCards []byte

var (
	ErrEmptySet     = eris.New("card set has no cards")
	ErrDuplicateKey = eris.New("duplicate card key")
	ErrInvalidCard  = eris.New("invalid card definition")
)

// CopiesPerDeck is how many copies of each definition go into a built deck.
const CopiesPerDeck = 2

type Type string

const (
	TypeCreature Type = "creature"
	TypeSpell    Type = "spell"
)

type Definition struct {
	Key   string `toml:"key"`
	Name  string `toml:"name"`
	Text  string `toml:"text"`
	Type  Type   `toml:"c_type"`
	Cost  int    `toml:"cost"`
	Power int    `toml:"power"`
}

type file struct {
	Cards []Definition `toml:"cards"`
}

// Set is an ordered, validated collection of definitions.
type Set struct {
	defs  []Definition
	byKey map[string]int
}

// Load parses a TOML document made of [[cards]] tables.
func Load(data []byte) (*Set, error) {
	var f file
	if err := toml.Unmarshal(data, &f); err != nil {
		return nil, eris.Wrap(err, "failed to parse card set")
	}
	if len(f.Cards) == 0 {
		return nil, ErrEmptySet
	}
	s := &Set{
		defs:  make([]Definition, 0, len(f.Cards)),
		byKey: make(map[string]int, len(f.Cards)),
	}
	for i, def := range f.Cards {
		if err := def.validate(); err != nil {
			return nil, eris.Wrapf(err, "card %d", i)
		}
		if _, ok := s.byKey[def.Key]; ok {
			return nil, eris.Wrapf(ErrDuplicateKey, "key %q", def.Key)
		}
		s.byKey[def.Key] = len(s.defs)
		s.defs = append(s.defs, def)
	}
	return s, nil
}

func LoadFile(path string) (*Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "failed to read card file %q", path)
	}
	return Load(data)
}

// Default returns the embedded card set.
func Default() (*Set, error) {
	return Load(defaultCards)
}

func (d Definition) validate() error {
	switch {
	case d.Key == "":
		return eris.Wrap(ErrInvalidCard, "missing key")
	case d.Name == "":
		return eris.Wrapf(ErrInvalidCard, "%q is missing a name", d.Key)
	case d.Cost < 0:
		return eris.Wrapf(ErrInvalidCard, "%q has a negative cost", d.Key)
	case d.Power < 0:
		return eris.Wrapf(ErrInvalidCard, "%q has negative power", d.Key)
	}
	return nil
}

func (s *Set) Definitions() []Definition {
	out := make([]Definition, len(s.defs))
	copy(out, s.defs)
	return out
}

func (s *Set) Get(key string) (Definition, bool) {
	i, ok := s.byKey[key]
	if !ok {
		return Definition{}, false
	}
	return s.defs[i], true
}

func (s *Set) Len() int {
	return len(s.defs)
}

// DeckSize is the number of cards BuildDeck produces.
func (s *Set) DeckSize() int {
	return len(s.defs) * CopiesPerDeck
}

type ID uint64

// Card is one instance of a definition inside a match.
type Card struct {
	ID    ID     `json:"id"`
	Key   string `json:"key"`
	Name  string `json:"name"`
	Text  string `json:"text"`
	Type  Type   `json:"type"`
	Cost  int    `json:"cost"`
	Power int    `json:"power"`
}

func newCard(id ID, def Definition) Card {
	return Card{
		ID:    id,
		Key:   def.Key,
		Name:  def.Name,
		Text:  def.Text,
		Type:  def.Type,
		Cost:  def.Cost,
		Power: def.Power,
	}
}

// BuildDeck returns CopiesPerDeck instances of every definition in set order. nextID is called once per card.
func BuildDeck(s *Set, nextID func() ID) []Card {
	deck := make([]Card, 0, s.DeckSize())
	for _, def := range s.defs {
		for i := 0; i < CopiesPerDeck; i++ {
			deck = append(deck, newCard(nextID(), def))
		}
	}
	return deck
}
