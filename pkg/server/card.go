package server

import (
	"github.com/a2aproject/a2a-go/a2a"
)

// CardSpec describes one coffeeshop agent for its published agent card.
type CardSpec struct {
	Name        string
	Description string
	Skills      []a2a.AgentSkill
}

// CounterCardSpec is the front-of-house agent taking natural language orders.
func CounterCardSpec() CardSpec {
	return CardSpec{
		Name:        "Coffeeshop Counter",
		Description: "Takes natural language coffee and food orders and routes them to the barista and kitchen.",
		Skills: []a2a.AgentSkill{{
			ID:          "place-order",
			Name:        "Place order",
			Description: "Accepts an order in plain language, itemizes it against the product catalog and dispatches it for preparation.",
			Tags:        []string{"coffee", "order"},
			Examples:    []string{"A latte and two chocolate croissants, please."},
		}},
	}
}

// BaristaCardSpec is the drink preparation agent.
func BaristaCardSpec() CardSpec {
	return CardSpec{
		Name:        "Coffeeshop Barista",
		Description: "Prepares espresso and coffee drinks dispatched by the counter.",
		Skills: []a2a.AgentSkill{{
			ID:          "prepare-drinks",
			Name:        "Prepare drinks",
			Description: "Acknowledges and prepares drink line items.",
			Tags:        []string{"coffee", "barista"},
		}},
	}
}

// KitchenCardSpec is the food preparation agent.
func KitchenCardSpec() CardSpec {
	return CardSpec{
		Name:        "Coffeeshop Kitchen",
		Description: "Prepares pastries and snacks dispatched by the counter.",
		Skills: []a2a.AgentSkill{{
			ID:          "prepare-food",
			Name:        "Prepare food",
			Description: "Acknowledges and prepares food line items.",
			Tags:        []string{"food", "kitchen"},
		}},
	}
}

// BuildAgentCard assembles the A2A agent card served at the well-known path.
// Security schemes are advertised only when bearer auth is enabled.
func BuildAgentCard(spec CardSpec, url, version string, authEnabled bool) *a2a.AgentCard {
	card := &a2a.AgentCard{
		Name:               spec.Name,
		Description:        spec.Description,
		URL:                url,
		Version:            version,
		ProtocolVersion:    "0.3.0",
		DefaultInputModes:  []string{"text/plain"},
		DefaultOutputModes: []string{"text/plain"},
		Skills:             spec.Skills,
		Capabilities: a2a.AgentCapabilities{
			Streaming:              true,
			PushNotifications:      false,
			StateTransitionHistory: false,
		},
		PreferredTransport: a2a.TransportProtocolJSONRPC,
	}

	if authEnabled {
		card.SecuritySchemes = a2a.NamedSecuritySchemes{
			"BearerAuth": a2a.HTTPAuthSecurityScheme{
				Scheme:       "bearer",
				BearerFormat: "JWT",
				Description:  "JWT Bearer token authentication",
			},
		}
		card.Security = []a2a.SecurityRequirements{
			{"BearerAuth": a2a.SecuritySchemeScopes{}},
		}
	}

	return card
}
