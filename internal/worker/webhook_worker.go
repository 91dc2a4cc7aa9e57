package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/hibiken/asynq"

	"github.com/makeasinger/genqueue/internal/events"
)

const (
	retryBase = time.Second
	retryCap  = 5 * time.Minute
)

// WebhookWorker delivers job callbacks queued by events.WebhookDispatcher
type WebhookWorker struct {
	httpClient   *http.Client
	allowPrivate bool
}

// NewWebhookWorker creates a worker. allowPrivate lets callbacks target
// loopback and private networks.
func NewWebhookWorker(allowPrivate bool) *WebhookWorker {
	return &WebhookWorker{
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		allowPrivate: allowPrivate,
	}
}

// ProcessTask posts the callback body. A returned error makes asynq retry
// the task; rejected URLs are not retried.
func (w *WebhookWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var task events.WebhookTask
	if err := json.Unmarshal(t.Payload(), &task); err != nil {
		return fmt.Errorf("failed to unmarshal webhook task: %v: %w", err, asynq.SkipRetry)
	}

	if err := validateURL(task.CallbackURL, w.allowPrivate); err != nil {
		slog.Warn("webhook: rejected callback URL", "url", task.CallbackURL, "error", err)
		return fmt.Errorf("rejected callback URL: %v: %w", err, asynq.SkipRetry)
	}

	if err := w.post(ctx, task.CallbackURL, task.Body); err != nil {
		retried, _ := asynq.GetRetryCount(ctx)
		slog.Warn("webhook attempt failed", "attempt", retried+1, "url", task.CallbackURL, "error", err)
		return err
	}

	slog.Info("webhook delivered", "url", task.CallbackURL)
	return nil
}

func (w *WebhookWorker) post(ctx context.Context, callbackURL string, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, callbackURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("non-2xx status: %d", resp.StatusCode)
	}
	return nil
}

// validateURL blocks non-HTTP schemes and, unless allowPrivate is set,
// private/internal IP ranges.
func validateURL(rawURL string, allowPrivate bool) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	if u.Scheme != "https" && u.Scheme != "http" {
		return fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	if allowPrivate {
		return nil
	}

	host := u.Hostname()
	ips, err := net.LookupHost(host)
	if err != nil {
		return fmt.Errorf("DNS lookup failed: %w", err)
	}

	for _, ipStr := range ips {
		ip := net.ParseIP(ipStr)
		if ip == nil {
			continue
		}
		if ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() || ip.IsUnspecified() {
			return fmt.Errorf("private/internal IP blocked: %s", ipStr)
		}
	}

	return nil
}

// RetryDelay is the asynq retry delay: a random duration between 0 and
// min(retryCap, retryBase * 2^n).
func RetryDelay(n int, _ error, _ *asynq.Task) time.Duration {
	exp := retryCap
	if n < 20 {
		exp = retryBase * time.Duration(1<<n)
		if exp > retryCap {
			exp = retryCap
		}
	}
	return time.Duration(rand.Int64N(int64(exp)))
}
