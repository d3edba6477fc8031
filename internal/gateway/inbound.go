// Package gateway adapts the WhatsApp providers: it normalizes inbound
// webhook payloads into Inbound and sends text messages through a Sender.
// Two providers are supported: Z-API (the default) and Twilio.
package gateway

import (
	"strings"
	"time"
)

// UnknownName is used when the provider reports no display name.
const UnknownName = "Desconhecido"

// Inbound is a normalized broker message. Only direct, non-empty text
// messages from other parties become an Inbound.
type Inbound struct {
	MessageID  string
	Phone      string
	SenderName string
	FromMe     bool
	IsGroup    bool
	Text       string
	Timestamp  time.Time
}

// ZAPIText is the text part of a Z-API callback.
type ZAPIText struct {
	Message string `json:"message"`
}

// ZAPIPayload is the subset of the Z-API "on message received" callback
// the assistant reads.
type ZAPIPayload struct {
	InstanceID string    `json:"instanceId"`
	MessageID  string    `json:"messageId"`
	Phone      string    `json:"phone"`
	FromMe     bool      `json:"fromMe"`
	SenderName string    `json:"senderName"`
	ChatName   string    `json:"chatName"`
	Momment    int64     `json:"momment"` // unix ms; spelled this way by Z-API
	Status     string    `json:"status"`
	IsGroup    bool      `json:"isGroup"`
	Type       string    `json:"type"`
	Text       *ZAPIText `json:"text,omitempty"`
}

// ParseZAPI normalizes a Z-API callback. ok is false for messages sent by
// the connected number, group messages, non-text messages and payloads
// without a phone.
func ParseZAPI(p ZAPIPayload) (Inbound, bool) {
	if p.FromMe || p.IsGroup || p.Text == nil {
		return Inbound{}, false
	}
	phone := strings.TrimSpace(p.Phone)
	text := strings.TrimSpace(p.Text.Message)
	if phone == "" || text == "" {
		return Inbound{}, false
	}
	var ts time.Time
	if p.Momment > 0 {
		ts = time.UnixMilli(p.Momment).UTC()
	}
	return Inbound{
		MessageID:  p.MessageID,
		Phone:      phone,
		SenderName: firstName(p.SenderName, p.ChatName),
		Text:       text,
		Timestamp:  ts,
	}, true
}

// TwilioPayload is the form-encoded Twilio WhatsApp webhook.
type TwilioPayload struct {
	MessageSid  string `form:"MessageSid"`
	AccountSid  string `form:"AccountSid"`
	From        string `form:"From"` // "whatsapp:+5511999999999"
	To          string `form:"To"`
	Body        string `form:"Body"`
	ProfileName string `form:"ProfileName"`
	NumMedia    string `form:"NumMedia"`
}

// ParseTwilio normalizes a Twilio webhook. The phone is reduced to digits
// so both providers share identities.
func ParseTwilio(p TwilioPayload) (Inbound, bool) {
	phone := twilioPhone(p.From)
	text := strings.TrimSpace(p.Body)
	if phone == "" || text == "" {
		return Inbound{}, false
	}
	return Inbound{
		MessageID:  p.MessageSid,
		Phone:      phone,
		SenderName: firstName(p.ProfileName),
		Text:       text,
		Timestamp:  time.Now().UTC(),
	}, true
}

func twilioPhone(from string) string {
	from = strings.TrimPrefix(strings.TrimSpace(from), "whatsapp:")
	var b strings.Builder
	for _, r := range from {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func firstName(candidates ...string) string {
	for _, c := range candidates {
		if t := strings.TrimSpace(c); t != "" {
			return t
		}
	}
	return UnknownName
}
