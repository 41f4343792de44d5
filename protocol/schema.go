package protocol

import (
	"github.com/invopop/jsonschema"
)

// Schemas describes the payload of every client request type that carries one.
func Schemas() map[Type]*jsonschema.Schema {
	r := &jsonschema.Reflector{ExpandedStruct: true}
	return map[Type]*jsonschema.Schema{
		TypeConnect:       r.Reflect(&Connect{}),
		TypeDrawCard:      r.Reflect(&DrawCard{}),
		TypePlayCard:      r.Reflect(&PlayCard{}),
		TypeSpecialAction: r.Reflect(&SpecialAction{}),
		TypeChat:          r.Reflect(&Chat{}),
	}
}
