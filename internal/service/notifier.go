package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-retryablehttp"
	standardwebhooks "github.com/standard-webhooks/standard-webhooks/libraries/go"
)

// notificationChanBufferSize is the buffer size for the notification channel
// (notifications are dropped, and counted, when it is full).
const notificationChanBufferSize = 256

// Notification type constants.
const (
	NotificationTypeTranscriptionCompleted = "transcription_completed"
	NotificationTypeTranscriptionFailed    = "transcription_failed"
)

// Notification is the payload handed to the external notification dispatcher.
type Notification struct {
	RecordingID    uuid.UUID      `json:"recording_id"`
	ProjectID      uuid.UUID      `json:"project_id"`
	UserID         uuid.UUID      `json:"user_id"`
	OrganizationID uuid.UUID      `json:"organization_id"`
	Type           string         `json:"type"`
	Title          string         `json:"title"`
	Message        string         `json:"message"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

// NotificationDispatcher delivers notifications fire-and-forget. Callers
// never wait on delivery and never see delivery errors.
type NotificationDispatcher interface {
	Notify(ctx context.Context, notification Notification)
}

// NotificationSender is one delivery channel (webhook, email, ...).
type NotificationSender interface {
	Send(ctx context.Context, notification Notification) error
}

// NotificationMetrics counts dropped notifications; nil disables counting.
type NotificationMetrics interface {
	RecordNotificationDropped(ctx context.Context)
}

// NotificationManager fans notifications out to registered senders from a
// dedicated goroutine. Enqueueing never blocks: when the buffer is full the
// notification is dropped and counted.
type NotificationManager struct {
	notifications chan Notification
	senders       []NotificationSender
	metrics       NotificationMetrics
	wg            sync.WaitGroup
	closeOnce     sync.Once
}

// NewNotificationManager creates a manager and starts its delivery worker.
// metrics may be nil when metrics are disabled.
func NewNotificationManager(metrics NotificationMetrics) *NotificationManager {
	m := &NotificationManager{
		notifications: make(chan Notification, notificationChanBufferSize),
		metrics:       metrics,
	}

	m.wg.Add(1)
	go m.deliverLoop()

	return m
}

// RegisterSender registers a delivery channel. Must only be called during
// startup, before any notification is published.
func (m *NotificationManager) RegisterSender(sender NotificationSender) {
	m.senders = append(m.senders, sender)
}

// Notify enqueues the notification without blocking.
func (m *NotificationManager) Notify(ctx context.Context, notification Notification) {
	select {
	case m.notifications <- notification:
	default:
		if m.metrics != nil {
			m.metrics.RecordNotificationDropped(ctx)
		}

		slog.Warn("notification dropped, buffer full",
			"recording_id", notification.RecordingID,
			"type", notification.Type,
		)
	}
}

// Close drains the buffer, stops the worker, and waits for it to exit.
func (m *NotificationManager) Close() {
	m.closeOnce.Do(func() {
		close(m.notifications)
	})
	m.wg.Wait()
}

func (m *NotificationManager) deliverLoop() {
	defer m.wg.Done()

	for notification := range m.notifications {
		for _, sender := range m.senders {
			// Delivery is best-effort by contract; failures are logged and dropped.
			if err := sender.Send(context.Background(), notification); err != nil {
				slog.Error("notification delivery failed",
					"recording_id", notification.RecordingID,
					"type", notification.Type,
					"error", err,
				)
			}
		}
	}
}

const (
	notificationSendTimeout  = 10 * time.Second
	notificationSendRetryMax = 2
)

// WebhookNotificationSender posts notifications to the surrounding system's
// dispatcher endpoint with Standard Webhooks conformance: each delivery is
// signed and carries webhook-id, webhook-signature and webhook-timestamp
// headers, so the receiver can verify authenticity and deduplicate.
type WebhookNotificationSender struct {
	url        string
	signer     *standardwebhooks.Webhook
	httpClient *retryablehttp.Client
}

// NewWebhookNotificationSender creates a sender for the given dispatcher URL.
// signingKey is the Standard Webhooks secret (whsec_-prefixed base64).
func NewWebhookNotificationSender(url, signingKey string) (*WebhookNotificationSender, error) {
	signer, err := standardwebhooks.NewWebhook(signingKey)
	if err != nil {
		return nil, fmt.Errorf("create webhook signer: %w", err)
	}

	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = notificationSendRetryMax
	retryClient.HTTPClient.Timeout = notificationSendTimeout
	retryClient.Logger = nil

	return &WebhookNotificationSender{url: url, signer: signer, httpClient: retryClient}, nil
}

// Send signs and POSTs the notification as JSON. Retries reuse the same
// message id and signature; the body does not change between attempts.
func (s *WebhookNotificationSender) Send(ctx context.Context, notification Notification) error {
	body, err := json.Marshal(notification)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	messageID := uuid.Must(uuid.NewV7()).String()
	timestamp := time.Now()

	signature, err := s.signer.Sign(messageID, timestamp, body)
	if err != nil {
		return fmt.Errorf("sign notification: %w", err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build notification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(standardwebhooks.HeaderWebhookID, messageID)
	req.Header.Set(standardwebhooks.HeaderWebhookSignature, signature)
	req.Header.Set(standardwebhooks.HeaderWebhookTimestamp, strconv.FormatInt(timestamp.Unix(), 10))

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("notification dispatcher returned status %d", resp.StatusCode)
	}

	return nil
}
