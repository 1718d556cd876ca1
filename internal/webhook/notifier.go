// Package webhook はMake.comウェブフックへのイベント通知を提供する。
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
)

// OnboardingEvent はオンボーディング完了時に送信するペイロード。
type OnboardingEvent struct {
	Event            string `json:"event"`
	Email            string `json:"email"`
	WhatsappNumber   string `json:"whatsappNumber"`
	MarketingConsent string `json:"marketingConsent"`
}

// Notifier はウェブフックURLへイベントをPOSTする。
// 通知の失敗はログに記録するのみで、呼び出し元の処理は妨げない。
type Notifier struct {
	webhookURL string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewNotifier はNotifierを生成する。
func NewNotifier(webhookURL string, httpClient *http.Client, logger *slog.Logger) *Notifier {
	return &Notifier{
		webhookURL: webhookURL,
		httpClient: httpClient,
		logger:     logger,
	}
}

// NotifyOnboarding はオンボーディング完了イベントを送信する。
func (n *Notifier) NotifyOnboarding(ctx context.Context, event OnboardingEvent) error {
	if event.Event == "" {
		event.Event = "onboarding_completed"
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		n.logger.Warn("webhook delivery failed",
			slog.String("error", err.Error()),
		)
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		n.logger.Warn("webhook returned error status",
			slog.Int("http_status", resp.StatusCode),
		)
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	n.logger.Info("webhook delivered",
		slog.String("event", event.Event),
	)
	return nil
}
