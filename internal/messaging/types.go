package messaging

import "strings"

// channelAddressingPrefix is the provider's channel qualifier on sender
// and recipient identifiers ("From=whatsapp:+5511...").
const channelAddressingPrefix = "whatsapp:"

// InboundMessage is one webhook delivery from the messaging provider,
// validated at the boundary before it reaches resolution logic.
type InboundMessage struct {
	From       string `form:"From" validate:"required"`
	Body       string `form:"Body" validate:"required"`
	MessageSID string `form:"MessageSid"`
}

// SenderPhone returns the sender identifier with the provider's channel
// addressing prefix removed, ready for normalization.
func (m InboundMessage) SenderPhone() string {
	from := strings.TrimSpace(m.From)
	if len(from) >= len(channelAddressingPrefix) &&
		strings.EqualFold(from[:len(channelAddressingPrefix)], channelAddressingPrefix) {
		from = from[len(channelAddressingPrefix):]
	}
	return from
}

// UpdateDataRequest is the server-to-server payload that lets the
// organization's own systems update a member's contact phone.
type UpdateDataRequest struct {
	Phone            string `json:"phone" validate:"required"`
	BirthDate        string `json:"birth_date"`
	CPF              string `json:"cpf" validate:"required"`
	RegistrationID   string `json:"registration_id" validate:"required"`
	IsRepresentative bool   `json:"is_representative"`
	Token            string `json:"token" validate:"required"`
}
