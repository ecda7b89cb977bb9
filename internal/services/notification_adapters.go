package services

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/taskhive/backend/internal/models"
	"github.com/taskhive/backend/pkg/logger"
)

var IMBotTypes = []string{"wechat_work", "dingtalk", "feishu", "slack", "webhook"}

// Notice is a platform-neutral message. Body is markdown; Fields carry the raw values for plain webhooks.
type Notice struct {
	Kind   string                 `json:"kind"` // digest, payout, test
	Title  string                 `json:"title"`
	Body   string                 `json:"body"`
	Fields map[string]interface{} `json:"fields,omitempty"`
}

// NotificationAdapter formats and signs a Notice for one IM platform.
type NotificationAdapter interface {
	Send(bot *models.IMBot, n *Notice) error
}

func getAdapter(botType string) NotificationAdapter {
	switch botType {
	case "wechat_work":
		return &wecomAdapter{}
	case "dingtalk":
		return &dingtalkAdapter{}
	case "feishu":
		return &feishuAdapter{}
	case "slack":
		return &slackAdapter{}
	default:
		return &genericAdapter{}
	}
}

var notificationHTTPClient = &http.Client{Timeout: 10 * time.Second}

func postJSON(client *http.Client, webhookURL string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequest(http.MethodPost, webhookURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	logger.Debug().Int("status", resp.StatusCode).Int("payload_bytes", len(body)).Msg("[Notification] webhook responded")

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned status %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

// splitMessage cuts msg into chunks of at most maxLen bytes, preferring line breaks.
func splitMessage(msg string, maxLen int) []string {
	if len(msg) <= maxLen {
		return []string{msg}
	}

	var parts []string
	remaining := msg
	for len(remaining) > 0 {
		if len(remaining) <= maxLen {
			parts = append(parts, remaining)
			break
		}

		breakPoint := maxLen
		if i := strings.LastIndexByte(remaining[:maxLen], '\n'); i > maxLen/2 {
			breakPoint = i + 1
		}
		parts = append(parts, remaining[:breakPoint])
		remaining = remaining[breakPoint:]
	}
	return parts
}

func markdown(n *Notice) string {
	return fmt.Sprintf("**%s**\n\n%s", n.Title, n.Body)
}

func dingTalkSign(timestamp int64, secret string) string {
	stringToSign := fmt.Sprintf("%d\n%s", timestamp, secret)
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(stringToSign))
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}

func feishuSign(timestamp int64, secret string) string {
	stringToSign := fmt.Sprintf("%d\n%s", timestamp, secret)
	h := hmac.New(sha256.New, []byte(stringToSign))
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}

func dingTalkWebhookURL(webhook, secret string) string {
	if secret == "" {
		return webhook
	}
	timestamp := time.Now().UnixMilli()
	sep := "&"
	if !strings.Contains(webhook, "?") {
		sep = "?"
	}
	return fmt.Sprintf("%s%stimestamp=%d&sign=%s", webhook, sep, timestamp, url.QueryEscape(dingTalkSign(timestamp, secret)))
}

// wecomAdapter posts to WeCom (Enterprise WeChat) group bots
type wecomAdapter struct{}

func (a *wecomAdapter) Send(bot *models.IMBot, n *Notice) error {
	parts := splitMessage(markdown(n), 4000)
	for i, part := range parts {
		if len(parts) > 1 {
			part = fmt.Sprintf("**[%d/%d]**\n\n%s", i+1, len(parts), part)
		}
		payload := map[string]interface{}{
			"msgtype": "markdown",
			"markdown": map[string]string{
				"content": part,
			},
		}
		if err := postJSON(notificationHTTPClient, bot.Webhook, payload); err != nil {
			return err
		}
	}
	return nil
}

type dingtalkAdapter struct{}

func (a *dingtalkAdapter) Send(bot *models.IMBot, n *Notice) error {
	webhookURL := dingTalkWebhookURL(bot.Webhook, bot.Secret)
	payload := map[string]interface{}{
		"msgtype": "markdown",
		"markdown": map[string]string{
			"title": n.Title,
			"text":  markdown(n),
		},
	}
	return postJSON(notificationHTTPClient, webhookURL, payload)
}

// feishuAdapter handles Feishu (Lark) bots; signed when the bot has a secret.
type feishuAdapter struct{}

func (a *feishuAdapter) Send(bot *models.IMBot, n *Notice) error {
	payload := map[string]interface{}{
		"msg_type": "text",
		"content": map[string]string{
			"text": n.Title + "\n\n" + n.Body,
		},
	}
	if bot.Secret != "" {
		timestamp := time.Now().Unix()
		payload["timestamp"] = fmt.Sprintf("%d", timestamp)
		payload["sign"] = feishuSign(timestamp, bot.Secret)
	}
	return postJSON(notificationHTTPClient, bot.Webhook, payload)
}

type slackAdapter struct{}

func (a *slackAdapter) Send(bot *models.IMBot, n *Notice) error {
	// Slack mrkdwn uses single asterisks for bold.
	body := strings.ReplaceAll(n.Body, "**", "*")
	blocks := []map[string]interface{}{
		{
			"type": "header",
			"text": map[string]string{"type": "plain_text", "text": n.Title},
		},
	}
	for _, part := range splitMessage(body, 3000) {
		blocks = append(blocks, map[string]interface{}{
			"type": "section",
			"text": map[string]string{"type": "mrkdwn", "text": part},
		})
	}
	payload := map[string]interface{}{
		"text":   n.Title,
		"blocks": blocks,
	}
	return postJSON(notificationHTTPClient, bot.Webhook, payload)
}

// genericAdapter posts the notice as JSON, for custom integrations.
type genericAdapter struct{}

func (a *genericAdapter) Send(bot *models.IMBot, n *Notice) error {
	payload := map[string]interface{}{
		"kind":   n.Kind,
		"title":  n.Title,
		"text":   n.Body,
		"fields": n.Fields,
		"sent":   time.Now().UTC().Format(time.RFC3339),
	}
	if bot.Secret != "" {
		body, _ := json.Marshal(n)
		h := hmac.New(sha256.New, []byte(bot.Secret))
		h.Write(body)
		payload["signature"] = base64.StdEncoding.EncodeToString(h.Sum(nil))
	}
	return postJSON(notificationHTTPClient, bot.Webhook, payload)
}
