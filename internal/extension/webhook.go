package extension

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/secureyeoman/secureyeoman/internal/obs"
)

const (
	signatureHeader = "X-Friday-Signature"
	eventHeader     = "X-Friday-Event"
	eventHeaderVal  = "extension-hook"
)

// WebhookDispatcher fires signed, fire-and-forget POSTs to every enabled
// webhook whose hookPoints include the emitted point (spec §4.7 "Outbound
// webhooks"). Grounded on orchestration/hitl_webhook_handler.go's
// doNotify/doNotifyWithRetry shape; signing reuses the audit chain's own
// HMAC-SHA256-hex pattern (internal/audit/chain.go sign/verifySignature).
type WebhookDispatcher struct {
	mu       sync.RWMutex
	webhooks map[string]Webhook
	client   *http.Client
	timeout  time.Duration
	logger   obs.Logger
}

func NewWebhookDispatcher(timeout time.Duration, logger obs.Logger) *WebhookDispatcher {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if logger == nil {
		logger = obs.NoOpLogger{}
	}
	return &WebhookDispatcher{
		webhooks: make(map[string]Webhook),
		client:   &http.Client{Timeout: timeout},
		timeout:  timeout,
		logger:   logger.WithComponent("extension.webhook"),
	}
}

func (d *WebhookDispatcher) Register(w Webhook) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.webhooks[w.ID] = w
}

func (d *WebhookDispatcher) Unregister(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.webhooks, id)
}

// DispatchAll POSTs to every enabled, matching webhook concurrently and
// fire-and-forget: the caller's emit() has already returned its outcome
// by the time these requests land, per spec §4.7 step 5.
func (d *WebhookDispatcher) DispatchAll(ctx context.Context, point Point, event string, data interface{}) {
	d.mu.RLock()
	matching := make([]Webhook, 0, len(d.webhooks))
	for _, w := range d.webhooks {
		if w.listensTo(point) {
			matching = append(matching, w)
		}
	}
	d.mu.RUnlock()

	for _, w := range matching {
		go d.deliverWithRetry(detachedContext(ctx), w, point, event, data)
	}
}

// detachedContext preserves trace/correlation values a context.Value
// carries while dropping its parent's cancellation, since webhook
// delivery must outlive the HTTP request that triggered the emit.
func detachedContext(parent context.Context) context.Context {
	return context.WithoutCancel(parent)
}

func (d *WebhookDispatcher) deliverWithRetry(ctx context.Context, w Webhook, point Point, event string, data interface{}) {
	backoff := 50 * time.Millisecond
	var lastErr error
	for attempt := 1; attempt <= 3; attempt++ {
		if err := d.deliver(ctx, w, point, event, data); err != nil {
			lastErr = err
			time.Sleep(backoff)
			backoff *= 2
			continue
		}
		return
	}
	d.logger.Warn("webhook delivery failed after retries", obs.Fields{
		"webhookId": w.ID, "hookPoint": string(point), "error": lastErr.Error(),
	})
}

func (d *WebhookDispatcher) deliver(ctx context.Context, w Webhook, point Point, event string, data interface{}) error {
	body, err := json.Marshal(webhookPayload{HookPoint: point, Event: event, Data: data, Timestamp: time.Now()})
	if err != nil {
		return err
	}

	callCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, w.URL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(eventHeader, eventHeaderVal)
	if w.Secret != "" {
		req.Header.Set(signatureHeader, "sha256="+hexHMAC([]byte(w.Secret), body))
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook %s returned status %d", w.ID, resp.StatusCode)
	}
	return nil
}

func hexHMAC(secret, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
