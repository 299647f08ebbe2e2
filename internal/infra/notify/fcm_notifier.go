package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"media-subscription-platform/internal/domain/model"
	"media-subscription-platform/internal/domain/ports/adapter"
)

var _ adapter.Notifier = (*FCMNotifier)(nil)

// FCMNotifier delivers push messages through the FCM HTTP API. Every app
// install subscribes to a per-user topic, so user sends are topic sends too.
type FCMNotifier struct {
	serverKey string
	baseURL   string
	client    *http.Client
}

func NewFCMNotifier(serverKey, baseURL string, timeout time.Duration) *FCMNotifier {
	return &FCMNotifier{
		serverKey: serverKey,
		baseURL:   baseURL,
		client:    &http.Client{Timeout: timeout},
	}
}

func (n *FCMNotifier) Name() string { return "fcm" }

type fcmPayload struct {
	To           string          `json:"to"`
	Notification fcmNotification `json:"notification"`
}

type fcmNotification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Image string `json:"image,omitempty"`
}

func (n *FCMNotifier) Notify(ctx context.Context, target model.NotifyTarget, msg model.Message) error {
	var topic string
	switch t := target.(type) {
	case model.UserTarget:
		topic = "user-" + t.UserID
	case model.TopicTarget:
		topic = t.Topic
	default:
		return fmt.Errorf("fcm: unsupported target %T", target)
	}

	payload := fcmPayload{
		To: "/topics/" + topic,
		Notification: fcmNotification{
			Title: msg.Title,
			Body:  msg.Body,
			Image: msg.ImageURL,
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("fcm: marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.baseURL+"/fcm/send", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("fcm: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "key="+n.serverKey)

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("fcm: send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("fcm: unexpected status %d: %s", resp.StatusCode, string(b))
	}
	return nil
}
