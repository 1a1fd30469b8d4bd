package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	apperrors "github.com/solutionspelichet/library-un/internal/errors"
	"github.com/solutionspelichet/library-un/internal/security"
	"github.com/solutionspelichet/library-un/pkg/contracts/domain"
)

const (
	appsScriptContentType = "text/plain;charset=utf-8"
	userAgent             = "library-un-reconcile/1.0"
)

// AppsScript posts the payload as JSON to a Google Apps Script web app.
// The body is sent as text/plain, which Apps Script accepts without a
// preflight. When the payload carries a secret the request is signed with
// it. The response is drained and ignored.
type AppsScript struct {
	url    string
	client *http.Client
	logger *slog.Logger
}

// NewAppsScript creates the sink. A nil client gets one with the given timeout.
func NewAppsScript(url string, timeout time.Duration, client *http.Client, logger *slog.Logger) *AppsScript {
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AppsScript{
		url:    url,
		client: client,
		logger: logger.With(slog.String("component", "sink"), slog.String("sink", "apps_script")),
	}
}

func (s *AppsScript) Name() string { return "apps_script" }

func (s *AppsScript) Send(ctx context.Context, p domain.Payload) error {
	body, err := json.Marshal(p)
	if err != nil {
		return apperrors.NewTransportError("failed to encode payload", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return apperrors.NewTransportError("failed to create request", err)
	}
	req.Header.Set("Content-Type", appsScriptContentType)
	req.Header.Set("User-Agent", userAgent)
	security.NewRequestSigner(p.Secret).Sign(req, body)

	start := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.ErrorContext(ctx, "payload delivery failed",
			slog.String("error", err.Error()),
			slog.Duration("duration", time.Since(start)))
		return apperrors.NewTransportError("apps script request failed", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	attrs := []any{
		slog.Int("status_code", resp.StatusCode),
		slog.Int("bytes", len(body)),
		slog.Duration("duration", time.Since(start)),
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		s.logger.WarnContext(ctx, "apps script answered with a non-success status", attrs...)
		return nil
	}
	s.logger.InfoContext(ctx, "payload sent", attrs...)
	return nil
}

// Ping issues a GET to the web app URL; any HTTP answer counts as reachable
func (s *AppsScript) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return apperrors.NewTransportError("failed to create request", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return apperrors.NewTransportError("apps script unreachable", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	s.logger.DebugContext(ctx, "ping", slog.Int("status_code", resp.StatusCode))
	return nil
}
