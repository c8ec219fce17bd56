package model

type InteractionType string

const (
	InteractionConversationStart InteractionType = "INICIO CONVERSACION"
	InteractionPurchase          InteractionType = "COMPRA"
	InteractionProposal          InteractionType = "PROPUESTA"
)

const ChannelWhatsApp = "WHATSAPP"

// Interaction is the CRM event payload.
type Interaction struct {
	Phone   string          `json:"int_celular_v"`
	Type    InteractionType `json:"int_tipo_interaccion"`
	Origin  string          `json:"int_origen"`
	Channel string          `json:"int_canal_interaccion"`
}
