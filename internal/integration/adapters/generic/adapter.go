// Package generic implements a configurable webhook adapter for platforms
// that speak plain JSON over HTTP with one of the three signature schemes
// spec §4.6 names (hex HMAC, base64 HMAC, shared-secret header), so a new
// integration can be wired up from config alone instead of a bespoke
// adapter package.
package generic

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/secureyeoman/secureyeoman/internal/apperrors"
	"github.com/secureyeoman/secureyeoman/internal/idgen"
	"github.com/secureyeoman/secureyeoman/internal/integration"
)

// Scheme selects which signature verification function VerifyWebhook uses.
type Scheme string

const (
	SchemeHexHMAC      Scheme = "hex_hmac"
	SchemeBase64HMAC   Scheme = "base64_hmac"
	SchemeSharedSecret Scheme = "shared_secret"
)

// Adapter is a minimal webhook-in, HTTP-POST-out integration.
type Adapter struct {
	integrationID string
	platform      string
	sendURL       string
	secret        []byte
	scheme        Scheme
	signatureHdr  string
	hexPrefix     string
	rateLimit     integration.RateLimit
	client        *http.Client
}

func New(scheme Scheme) *Adapter {
	return &Adapter{scheme: scheme, client: &http.Client{Timeout: 10 * time.Second}, rateLimit: integration.DefaultRateLimit()}
}

func (a *Adapter) Init(_ context.Context, cfg map[string]string) error {
	a.integrationID = cfg["integrationId"]
	a.platform = cfg["platform"]
	a.sendURL = cfg["sendUrl"]
	a.secret = []byte(cfg["secret"])
	a.signatureHdr = cfg["signatureHeader"]
	a.hexPrefix = cfg["hexPrefix"]
	if a.platform == "" || a.sendURL == "" {
		return apperrors.Newf(apperrors.KindInvalidInput, "generic adapter requires platform and sendUrl")
	}
	return nil
}

func (a *Adapter) Start(context.Context) error { return nil }
func (a *Adapter) Stop(context.Context) error  { return nil }

func (a *Adapter) IsHealthy(context.Context) bool { return a.sendURL != "" }

func (a *Adapter) WebhookPath() string { return "/hooks/" + a.platform + "/" + a.integrationID }

func (a *Adapter) VerifyWebhook(rawBody []byte, signatureHeader string) bool {
	switch a.scheme {
	case SchemeHexHMAC:
		return integration.VerifyHexHMAC(a.secret, rawBody, signatureHeader, a.hexPrefix)
	case SchemeBase64HMAC:
		return integration.VerifyBase64HMAC(a.secret, rawBody, signatureHeader)
	case SchemeSharedSecret:
		return integration.VerifySharedSecret(a.secret, signatureHeader)
	default:
		return false
	}
}

type genericEvent struct {
	SenderID   string            `json:"senderId"`
	SenderName string            `json:"senderName"`
	ChatID     string            `json:"chatId"`
	Text       string            `json:"text"`
	MessageID  string            `json:"messageId"`
	Metadata   map[string]string `json:"metadata"`
}

func (a *Adapter) HandleWebhook(_ context.Context, rawBody []byte, signatureHeader string) (*integration.UnifiedMessage, error) {
	if !a.VerifyWebhook(rawBody, signatureHeader) {
		return nil, apperrors.Newf(apperrors.KindSignatureInvalid, "%s webhook signature invalid", a.platform)
	}
	var evt genericEvent
	if err := json.Unmarshal(rawBody, &evt); err != nil {
		return nil, apperrors.New("generic.HandleWebhook", apperrors.KindInvalidInput, err)
	}
	return &integration.UnifiedMessage{
		ID:                idgen.New(),
		IntegrationID:     a.integrationID,
		Platform:          a.platform,
		Direction:         integration.DirectionInbound,
		SenderID:          evt.SenderID,
		SenderName:        evt.SenderName,
		ChatID:            evt.ChatID,
		Text:              evt.Text,
		PlatformMessageID: evt.MessageID,
		Metadata:          evt.Metadata,
		Timestamp:         time.Now(),
	}, nil
}

type outboundPayload struct {
	ChatID           string `json:"chatId"`
	Text             string `json:"text"`
	ReplyToMessageID string `json:"replyToMessageId,omitempty"`
	AudioBase64      string `json:"audioBase64,omitempty"`
	AudioFormat      string `json:"audioFormat,omitempty"`
}

func (a *Adapter) SendMessage(ctx context.Context, send integration.OutboundSend) error {
	body, err := json.Marshal(outboundPayload{
		ChatID:           send.ChatID,
		Text:             send.Text,
		ReplyToMessageID: send.ReplyToMessageID,
		AudioBase64:      send.AudioBase64,
		AudioFormat:      send.AudioFormat,
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.sendURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := a.client.Do(req)
	if err != nil {
		return apperrors.New("generic.SendMessage", apperrors.KindNetwork, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return apperrors.Newf(apperrors.KindProviderUnavailable, "%s send returned %d", a.platform, resp.StatusCode)
	}
	return nil
}

func (a *Adapter) Platform() string                 { return a.platform }
func (a *Adapter) RateLimit() integration.RateLimit { return a.rateLimit }

var _ integration.Adapter = (*Adapter)(nil)
