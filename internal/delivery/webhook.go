package delivery

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/yuehengyu/Lunara/internal/domain"
)

// SubscriptionRemover is the slice of the subscription store the
// gateway needs to honor Invalidate.
type SubscriptionRemover interface {
	DeleteSubscription(ctx context.Context, id string) error
}

// WebhookGateway pushes payloads to a subscription's endpoint via HTTP
// POST, signing each body with HMAC-SHA256 of the subscription secret.
type WebhookGateway struct {
	httpClient *http.Client
	remover    SubscriptionRemover
	logger     *slog.Logger
}

func NewWebhookGateway(remover SubscriptionRemover, logger *slog.Logger) *WebhookGateway {
	return &WebhookGateway{
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		remover: remover,
		logger:  logger,
	}
}

// Send posts the payload to the target endpoint and classifies the
// outcome. 2xx is delivered; 401/403/404/410 is terminal (the target
// is gone or the credentials no longer match); everything else,
// including transport errors, is transient.
func (g *WebhookGateway) Send(ctx context.Context, target domain.Subscription, p Payload) Result {
	body, err := json.Marshal(p)
	if err != nil {
		return Result{Err: fmt.Errorf("marshaling payload: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target.EndpointURL, bytes.NewReader(body))
	if err != nil {
		return Result{Err: fmt.Errorf("building request: %w", err)}
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Lunara-Signature", computeHMAC(body, target.SecretKey))
	if p.DedupeTag != "" {
		req.Header.Set("X-Lunara-Dedupe", p.DedupeTag)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		g.logger.Warn("delivery failed",
			"subscription_id", target.ID,
			"recipient_id", target.RecipientID,
			"error", err,
		)
		return Result{Err: err}
	}
	defer resp.Body.Close()

	// Drain a bounded amount so the connection can be reused.
	io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		g.logger.Info("delivery successful",
			"subscription_id", target.ID,
			"recipient_id", target.RecipientID,
			"status_code", resp.StatusCode,
		)
		return Result{Delivered: true}
	case isTerminalStatus(resp.StatusCode):
		g.logger.Warn("delivery failed terminally",
			"subscription_id", target.ID,
			"recipient_id", target.RecipientID,
			"status_code", resp.StatusCode,
		)
		return Result{Terminal: true, Err: fmt.Errorf("endpoint returned %d", resp.StatusCode)}
	default:
		g.logger.Warn("delivery failed",
			"subscription_id", target.ID,
			"recipient_id", target.RecipientID,
			"status_code", resp.StatusCode,
		)
		return Result{Err: fmt.Errorf("endpoint returned %d", resp.StatusCode)}
	}
}

// Invalidate removes a terminally failed target from the store.
func (g *WebhookGateway) Invalidate(ctx context.Context, target domain.Subscription) error {
	if err := g.remover.DeleteSubscription(ctx, target.ID); err != nil {
		return fmt.Errorf("removing subscription %s: %w", target.ID, err)
	}
	g.logger.Info("subscription invalidated",
		"subscription_id", target.ID,
		"recipient_id", target.RecipientID,
	)
	return nil
}

func isTerminalStatus(code int) bool {
	switch code {
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound, http.StatusGone:
		return true
	}
	return false
}

// computeHMAC generates an HMAC-SHA256 signature for the payload.
func computeHMAC(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}
