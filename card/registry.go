package card

import (
	"github.com/kamstrup/intmap"
)

// Registry indexes the card instances of a match by id.
type Registry struct {
	cards *intmap.Map[ID, Card]
	next  ID
}

func NewRegistry(capacity int) *Registry {
	return &Registry{
		cards: intmap.New[ID, Card](capacity),
		next:  1,
	}
}

// NextID hands out ids starting at 1.
func (r *Registry) NextID() ID {
	id := r.next
	r.next++
	return id
}

func (r *Registry) Add(c Card) {
	r.cards.Put(c.ID, c)
}

func (r *Registry) Get(id ID) (Card, bool) {
	return r.cards.Get(id)
}

func (r *Registry) Remove(id ID) {
	r.cards.Del(id)
}

func (r *Registry) Len() int {
	return r.cards.Len()
}

// Mint builds a deck from the set, registering every card.
func (r *Registry) Mint(s *Set) []Card {
	deck := BuildDeck(s, r.NextID)
	for _, c := range deck {
		r.Add(c)
	}
	return deck
}
