// Package integration implements the Integration Router (spec §4.6): it
// normalizes inbound platform events into UnifiedMessages, enforces
// personality-scoped access control, submits work to the Task Executor,
// and relays the response back through the originating platform adapter.
// Grounded on the teacher's orchestration/hitl_webhook_handler.go for the
// signed-webhook-delivery shape and the audit chain's own HMAC sign/
// verify pair (internal/audit/chain.go) for constant-time signature
// checking, since the pack carries no direct webhook-ingress example.
package integration

import "time"

// Direction is which way a UnifiedMessage travels.
type Direction string

const (
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
)

// Attachment is a file or media reference carried on a message.
type Attachment struct {
	URL      string `json:"url"`
	MimeType string `json:"mimeType,omitempty"`
	Name     string `json:"name,omitempty"`
}

// UnifiedMessage is the platform-agnostic inbound/outbound message shape
// every adapter normalizes to and from (spec §3 "Integration").
type UnifiedMessage struct {
	ID                string            `json:"id"`
	IntegrationID     string            `json:"integrationId"`
	Platform          string            `json:"platform"`
	Direction         Direction         `json:"direction"`
	SenderID          string            `json:"senderId"`
	SenderName        string            `json:"senderName,omitempty"`
	ChatID            string            `json:"chatId"`
	Text              string            `json:"text"`
	Attachments       []Attachment      `json:"attachments,omitempty"`
	PlatformMessageID string            `json:"platformMessageId,omitempty"`
	Metadata          map[string]string `json:"metadata,omitempty"`
	Timestamp         time.Time         `json:"timestamp"`
}

// Status is the lifecycle state of a configured Integration.
type Status string

const (
	StatusActive       Status = "active"
	StatusDisabled     Status = "disabled"
	StatusError        Status = "error"
	StatusUnconfigured Status = "unconfigured"
)

// Integration is one configured platform connection (spec §3
// "Integration"). Config holds platform-specific secrets/settings and is
// redacted whenever it is read back through the API.
type Integration struct {
	ID           string            `json:"id"`
	Platform     string            `json:"platform"`
	DisplayName  string            `json:"displayName"`
	Enabled      bool              `json:"enabled"`
	Status       Status            `json:"status"`
	Config       map[string]string `json:"config"`
	MessageCount int64             `json:"messageCount"`
	CreatedAt    time.Time         `json:"createdAt"`
	UpdatedAt    time.Time         `json:"updatedAt"`
}

// Redacted returns a copy of the Integration with every config value
// replaced, safe to serve over the API (spec §3 "(contains sensitive
// fields — redacted on read)").
func (i Integration) Redacted() Integration {
	cp := i
	cp.Config = make(map[string]string, len(i.Config))
	for k := range i.Config {
		cp.Config[k] = "••••••••"
	}
	return cp
}

// OutboundSend is what the router hands an adapter to relay a task's
// result back to the originating platform (spec §4.6 step 8).
type OutboundSend struct {
	TaskID          string
	ChatID          string
	ReplyToMessageID string
	Text            string
	AudioBase64     string
	AudioFormat     string
}

// ActivePersonality is the minimal contract the router needs from the
// Personality entity (spec §3 "the only contract the core needs").
type ActivePersonality struct {
	ID                  string
	Voice               string
	SelectedIntegrations []string
}
