// Package github implements the Integration Router's GitHub adapter:
// inbound issue/comment webhooks verified with HMAC-SHA256 hex
// (X-Hub-Signature-256), outbound sends posted as issue comments.
// Grounded on the teacher's orchestration/hitl_webhook_handler.go for the
// HTTP client / header-setting shape.
package github

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/secureyeoman/secureyeoman/internal/apperrors"
	"github.com/secureyeoman/secureyeoman/internal/idgen"
	"github.com/secureyeoman/secureyeoman/internal/integration"
)

const signaturePrefix = "sha256="

// Adapter integrates a single GitHub repository.
type Adapter struct {
	integrationID string
	token         string
	repo          string
	secret        []byte
	client        *http.Client
}

func New() *Adapter {
	return &Adapter{client: &http.Client{Timeout: 10 * time.Second}}
}

func (a *Adapter) Init(_ context.Context, cfg map[string]string) error {
	a.token = cfg["token"]
	a.repo = cfg["repo"]
	a.secret = []byte(cfg["webhookSecret"])
	a.integrationID = cfg["integrationId"]
	if a.token == "" || a.repo == "" {
		return apperrors.Newf(apperrors.KindInvalidInput, "github adapter requires token and repo")
	}
	return nil
}

func (a *Adapter) Start(context.Context) error { return nil }
func (a *Adapter) Stop(context.Context) error  { return nil }

func (a *Adapter) IsHealthy(ctx context.Context) bool {
	return a.TestConnection(ctx) == nil
}

func (a *Adapter) TestConnection(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "https://api.github.com/repos/"+a.repo, nil)
	if err != nil {
		return err
	}
	a.authorize(req)
	resp, err := a.client.Do(req)
	if err != nil {
		return apperrors.New("github.TestConnection", apperrors.KindNetwork, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return apperrors.Newf(apperrors.KindProviderUnavailable, "github test connection returned %d", resp.StatusCode)
	}
	return nil
}

func (a *Adapter) WebhookPath() string { return "/hooks/github/" + a.integrationID }

func (a *Adapter) VerifyWebhook(rawBody []byte, signatureHeader string) bool {
	return integration.VerifyHexHMAC(a.secret, rawBody, signatureHeader, signaturePrefix)
}

type issueCommentEvent struct {
	Action string `json:"action"`
	Issue  struct {
		Number int    `json:"number"`
		Title  string `json:"title"`
	} `json:"issue"`
	Comment struct {
		ID   int64  `json:"id"`
		Body string `json:"body"`
		User struct {
			Login string `json:"login"`
		} `json:"user"`
	} `json:"comment"`
}

func (a *Adapter) HandleWebhook(_ context.Context, rawBody []byte, signatureHeader string) (*integration.UnifiedMessage, error) {
	if !a.VerifyWebhook(rawBody, signatureHeader) {
		return nil, apperrors.Newf(apperrors.KindSignatureInvalid, "github webhook signature invalid")
	}
	var evt issueCommentEvent
	if err := json.Unmarshal(rawBody, &evt); err != nil {
		return nil, apperrors.New("github.HandleWebhook", apperrors.KindInvalidInput, err)
	}
	if evt.Action != "created" || evt.Comment.Body == "" {
		return nil, nil
	}
	return &integration.UnifiedMessage{
		ID:                idgen.New(),
		IntegrationID:     a.integrationID,
		Platform:          a.Platform(),
		Direction:         integration.DirectionInbound,
		SenderID:          evt.Comment.User.Login,
		SenderName:        evt.Comment.User.Login,
		ChatID:            fmt.Sprintf("%s#%d", a.repo, evt.Issue.Number),
		Text:              evt.Comment.Body,
		PlatformMessageID: fmt.Sprintf("%d", evt.Comment.ID),
		Metadata:          map[string]string{"issueTitle": evt.Issue.Title},
		Timestamp:         time.Now(),
	}, nil
}

func (a *Adapter) SendMessage(ctx context.Context, send integration.OutboundSend) error {
	var issueNumber string
	if n, ok := parseIssueNumber(send.ChatID); ok {
		issueNumber = n
	} else {
		return apperrors.Newf(apperrors.KindInvalidInput, "cannot derive issue number from chat id %q", send.ChatID)
	}
	body, err := json.Marshal(map[string]string{"body": send.Text})
	if err != nil {
		return err
	}
	url := fmt.Sprintf("https://api.github.com/repos/%s/issues/%s/comments", a.repo, issueNumber)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	a.authorize(req)
	req.Header.Set("Content-Type", "application/json")
	resp, err := a.client.Do(req)
	if err != nil {
		return apperrors.New("github.SendMessage", apperrors.KindNetwork, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return apperrors.Newf(apperrors.KindProviderUnavailable, "github send comment returned %d", resp.StatusCode)
	}
	return nil
}

func (a *Adapter) Platform() string { return "github" }

func (a *Adapter) RateLimit() integration.RateLimit {
	return integration.RateLimit{PerSecond: 1, Burst: 5}
}

func (a *Adapter) authorize(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+a.token)
	req.Header.Set("Accept", "application/vnd.github+json")
}

func parseIssueNumber(chatID string) (string, bool) {
	for i := len(chatID) - 1; i >= 0; i-- {
		if chatID[i] == '#' {
			return chatID[i+1:], true
		}
	}
	return "", false
}

var (
	_ integration.Adapter               = (*Adapter)(nil)
	_ integration.TestConnectionAdapter = (*Adapter)(nil)
)
