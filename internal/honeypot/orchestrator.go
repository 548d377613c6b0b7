package honeypot

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	observemetrics "github.com/wolfman30/scam-honeypot/internal/observability/metrics"
	"github.com/wolfman30/scam-honeypot/pkg/logging"
)

var orchestratorTracer = otel.Tracer("honeypot/orchestrator")

// ScamClassifier decides whether a single message is a scam attempt.
type ScamClassifier interface {
	Classify(ctx context.Context, text string) ScamDetectionResult
}

// IntelligenceExtractor merges identifiers found in text into a snapshot.
type IntelligenceExtractor interface {
	Extract(text string, existing IntelligenceSnapshot) IntelligenceSnapshot
}

// DecoyReplier produces the reply sent back on flagged sessions.
type DecoyReplier interface {
	Generate(state *SessionState) string
}

// ReportDispatcher delivers the terminal report for a session.
type ReportDispatcher interface {
	Dispatch(ctx context.Context, sessionID string, state *SessionState) bool
}

// Service is the inbound boundary used by transports.
type Service interface {
	SubmitMessage(ctx context.Context, req MessageRequest) (*MessageResponse, error)
}

// OrchestratorConfig wires the orchestrator's collaborators. Nil fields get
// the package defaults, except Dispatcher which disables reporting when nil.
type OrchestratorConfig struct {
	Store      SessionStore
	Classifier ScamClassifier
	Extractor  IntelligenceExtractor
	Replier    DecoyReplier
	Dispatcher ReportDispatcher
	Limits     Limits
	Metrics    *observemetrics.HoneypotMetrics
	Logger     *logging.Logger
}

// Orchestrator runs the per-message pipeline for each session.
type Orchestrator struct {
	store      SessionStore
	classifier ScamClassifier
	extractor  IntelligenceExtractor
	replier    DecoyReplier
	dispatcher ReportDispatcher
	limits     Limits
	metrics    *observemetrics.HoneypotMetrics
	logger     *logging.Logger

	dispatches sync.WaitGroup
}

// NewOrchestrator creates an orchestrator.
func NewOrchestrator(cfg OrchestratorConfig) *Orchestrator {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	o := &Orchestrator{
		store:      cfg.Store,
		classifier: cfg.Classifier,
		extractor:  cfg.Extractor,
		replier:    cfg.Replier,
		dispatcher: cfg.Dispatcher,
		limits:     cfg.Limits.withDefaults(),
		metrics:    cfg.Metrics,
		logger:     logger,
	}
	if o.store == nil {
		o.store = NewMemorySessionStore()
	}
	if o.classifier == nil {
		o.classifier = NewClassifier(logger)
	}
	if o.extractor == nil {
		o.extractor = NewExtractor()
	}
	if o.replier == nil {
		o.replier = NewReplyGenerator(nil)
	}
	return o
}

// SubmitMessage records one inbound message and returns the reply to send.
// Stored state is only replaced once every step has succeeded.
func (o *Orchestrator) SubmitMessage(ctx context.Context, req MessageRequest) (*MessageResponse, error) {
	sessionID := strings.TrimSpace(req.SessionID)
	if sessionID == "" {
		return nil, ErrEmptySessionID
	}

	ctx, span := orchestratorTracer.Start(ctx, "honeypot.submit_message")
	defer span.End()
	span.SetAttributes(attribute.String("honeypot.session_id", sessionID))

	logger := o.logger.With("session_id", sessionID)

	unlock := o.store.Lock(sessionID)
	defer unlock()

	state := o.store.GetOrCreate(ctx, sessionID).Clone()
	reply, err := o.advance(ctx, logger, sessionID, state, req.Message)
	if err != nil {
		logger.Error("failed to process message", "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "advance failed")
		return nil, err
	}

	o.store.Save(ctx, sessionID, state)
	o.metrics.ObserveMessage(state.ScamDetected)
	span.SetAttributes(
		attribute.Bool("honeypot.scam_detected", state.ScamDetected),
		attribute.Int("honeypot.total_messages", state.TotalMessageCount),
	)

	if IsTerminal(state, o.limits) {
		o.metrics.ObserveTerminal()
		o.dispatchAsync(logger, sessionID, state.Clone())
	}

	return &MessageResponse{
		Reply:        reply,
		ScamDetected: state.ScamDetected,
		SessionID:    sessionID,
	}, nil
}

// advance applies one message to a private copy of the session. A panic in
// any collaborator is turned into an error so the stored state stays intact.
func (o *Orchestrator) advance(ctx context.Context, logger *logging.Logger, sessionID string, state *SessionState, msg ConversationMessage) (reply string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("honeypot: processing session %s: %v", sessionID, r)
		}
	}()

	state.ConversationHistory = append(state.ConversationHistory, msg)
	state.TotalMessageCount++

	if !state.ScamDetected {
		result := o.classifier.Classify(ctx, msg.Text)
		o.metrics.ObserveClassification(result.Confidence, result.ScamDetected)
		if result.ScamDetected {
			state.ScamDetected = true
			logger.Info("session flagged",
				"confidence", result.Confidence,
				"reasons", result.Reasons,
			)
		}
	}

	if !state.ScamDetected {
		return AcknowledgementReply, nil
	}

	before := state.ExtractedIntelligence
	merged := o.extractor.Extract(msg.Text, before)
	for _, category := range Categories {
		o.metrics.ObserveIntel(category, len(merged.Category(category))-len(before.Category(category)))
	}
	if merged.Total() > before.Total() {
		state.ConsecutiveNoNewIntel = 0
	} else {
		state.ConsecutiveNoNewIntel++
	}
	state.ExtractedIntelligence = merged

	return o.replier.Generate(state), nil
}

// dispatchAsync fires the terminal report without holding up the reply.
func (o *Orchestrator) dispatchAsync(logger *logging.Logger, sessionID string, snapshot *SessionState) {
	if o.dispatcher == nil {
		return
	}
	o.dispatches.Add(1)
	go func() {
		defer o.dispatches.Done()
		if o.dispatcher.Dispatch(context.Background(), sessionID, snapshot) {
			logger.Info("session reported")
		}
	}()
}

// Wait blocks until every in-flight report dispatch has finished.
func (o *Orchestrator) Wait() {
	o.dispatches.Wait()
}

var _ Service = (*Orchestrator)(nil)
