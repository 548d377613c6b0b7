package honeypot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	observemetrics "github.com/wolfman30/scam-honeypot/internal/observability/metrics"
	"github.com/wolfman30/scam-honeypot/pkg/logging"
)

const (
	// DefaultCallbackURL receives terminal session reports.
	DefaultCallbackURL     = "https://hackathon.guvi.in/api/updateHoneyPotFinalResult"
	defaultCallbackTimeout = 10 * time.Second
	defaultUserAgent       = "scam-honeypot/0.1"
)

// ReportArchive keeps a copy of every delivered report.
type ReportArchive interface {
	Archive(ctx context.Context, payload CallbackPayload) error
}

// DispatcherConfig controls how terminal reports are delivered. Timeout bounds
// the callback request and the archive write separately.
type DispatcherConfig struct {
	URL        string
	Timeout    time.Duration
	HTTPClient *http.Client
	Limits     Limits
	Archive    ReportArchive
	Metrics    *observemetrics.HoneypotMetrics
	Logger     *logging.Logger
}

// CallbackDispatcher posts a single terminal report per session. A session is
// only recorded as reported after the endpoint answers 2xx, so a failed
// attempt can be retried by a later call.
type CallbackDispatcher struct {
	url     string
	timeout time.Duration
	client  *http.Client
	limits  Limits
	archive ReportArchive
	metrics *observemetrics.HoneypotMetrics
	logger  *logging.Logger

	mu       sync.Mutex
	sent     map[string]struct{}
	inflight map[string]struct{}
}

// NewCallbackDispatcher creates a dispatcher with sane defaults.
func NewCallbackDispatcher(cfg DispatcherConfig) *CallbackDispatcher {
	url := strings.TrimSpace(cfg.URL)
	if url == "" {
		url = DefaultCallbackURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultCallbackTimeout
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	limits := cfg.Limits.withDefaults()
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	return &CallbackDispatcher{
		url:      url,
		timeout:  timeout,
		client:   client,
		limits:   limits,
		archive:  cfg.Archive,
		metrics:  cfg.Metrics,
		logger:   logger,
		sent:     make(map[string]struct{}),
		inflight: make(map[string]struct{}),
	}
}

// Dispatch delivers the terminal report for sessionID. It returns true only
// for the call that actually delivered the report.
func (d *CallbackDispatcher) Dispatch(ctx context.Context, sessionID string, state *SessionState) bool {
	d.mu.Lock()
	if _, ok := d.sent[sessionID]; ok {
		d.mu.Unlock()
		d.logger.Warn("callback already sent", "session_id", sessionID)
		d.metrics.ObserveCallback("duplicate", 0)
		return false
	}
	if _, ok := d.inflight[sessionID]; ok {
		d.mu.Unlock()
		d.metrics.ObserveCallback("inflight", 0)
		return false
	}
	d.inflight[sessionID] = struct{}{}
	d.mu.Unlock()

	defer func() {
		d.mu.Lock()
		delete(d.inflight, sessionID)
		d.mu.Unlock()
	}()

	payload := BuildCallbackPayload(sessionID, state, d.limits)
	start := time.Now()
	if err := d.post(ctx, payload); err != nil {
		d.logger.Error("failed to send callback",
			"session_id", sessionID,
			"error", err,
		)
		d.metrics.ObserveCallback("failed", time.Since(start).Seconds())
		return false
	}

	d.mu.Lock()
	d.sent[sessionID] = struct{}{}
	d.mu.Unlock()

	d.metrics.ObserveCallback("sent", time.Since(start).Seconds())
	d.logger.Info("callback sent",
		"session_id", sessionID,
		"total_messages", payload.TotalMessagesExchanged,
	)

	if d.archive != nil {
		archiveCtx, cancel := context.WithTimeout(ctx, d.timeout)
		defer cancel()
		if err := d.archive.Archive(archiveCtx, payload); err != nil {
			d.logger.Warn("failed to archive report", "session_id", sessionID, "error", err)
		}
	}
	return true
}

// Dispatched reports whether a report was already delivered for sessionID.
func (d *CallbackDispatcher) Dispatched(sessionID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.sent[sessionID]
	return ok
}

func (d *CallbackDispatcher) post(ctx context.Context, payload CallbackPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("honeypot: marshal callback payload: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("honeypot: build callback request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", defaultUserAgent)
	req.Header.Set("X-Request-ID", uuid.NewString())

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("honeypot: callback request failed: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("honeypot: callback returned status %d", resp.StatusCode)
	}
	return nil
}

// BuildCallbackPayload assembles the terminal report for a session.
func BuildCallbackPayload(sessionID string, state *SessionState, limits Limits) CallbackPayload {
	return CallbackPayload{
		SessionID:              sessionID,
		ScamDetected:           state.ScamDetected,
		TotalMessagesExchanged: state.TotalMessageCount,
		ExtractedIntelligence:  state.ExtractedIntelligence.Clone(),
		AgentNotes:             agentNotes(state, limits),
	}
}

var categoryNouns = map[string][2]string{
	CategoryUPIIDs:             {"UPI id", "UPI ids"},
	CategoryBankAccounts:       {"bank account", "bank accounts"},
	CategoryPhoneNumbers:       {"phone number", "phone numbers"},
	CategoryURLs:               {"url", "urls"},
	CategorySuspiciousKeywords: {"suspicious keyword", "suspicious keywords"},
}

// agentNotes summarises why the session stopped and what it yielded.
func agentNotes(state *SessionState, limits Limits) string {
	var reason string
	switch {
	case state.TotalMessageCount >= limits.MaxMessages:
		reason = "message limit reached"
	case state.ConsecutiveNoNewIntel >= limits.MaxNoNewIntel:
		reason = fmt.Sprintf("no new intelligence for %d turns", state.ConsecutiveNoNewIntel)
	default:
		reason = "session closed"
	}

	var counts []string
	for _, category := range Categories {
		n := len(state.ExtractedIntelligence.Category(category))
		if n == 0 {
			continue
		}
		noun := categoryNouns[category][0]
		if n > 1 {
			noun = categoryNouns[category][1]
		}
		counts = append(counts, fmt.Sprintf("%d %s", n, noun))
	}
	if len(counts) == 0 {
		return "Session completed: " + reason + "; no intelligence extracted"
	}
	return "Session completed: " + reason + "; " + strings.Join(counts, ", ")
}
