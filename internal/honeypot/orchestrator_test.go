package honeypot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/scam-honeypot/pkg/logging"
)

type recordingDispatcher struct {
	mu     sync.Mutex
	calls  []string
	states []*SessionState
}

func (d *recordingDispatcher) Dispatch(_ context.Context, sessionID string, state *SessionState) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, sessionID)
	d.states = append(d.states, state)
	return true
}

func (d *recordingDispatcher) snapshot() ([]string, []*SessionState) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.calls...), append([]*SessionState(nil), d.states...)
}

type panicClassifier struct{}

func (panicClassifier) Classify(context.Context, string) ScamDetectionResult {
	panic("classifier exploded")
}

type testHarness struct {
	orchestrator *Orchestrator
	store        *MemorySessionStore
	dispatcher   *recordingDispatcher
}

func newHarness(cfg OrchestratorConfig) *testHarness {
	h := &testHarness{store: NewMemorySessionStore(), dispatcher: &recordingDispatcher{}}
	cfg.Store = h.store
	cfg.Dispatcher = h.dispatcher
	cfg.Logger = logging.Discard()
	h.orchestrator = NewOrchestrator(cfg)
	return h
}

func (h *testHarness) submit(t *testing.T, sessionID, text string) *MessageResponse {
	t.Helper()
	resp, err := h.orchestrator.SubmitMessage(context.Background(), MessageRequest{
		SessionID: sessionID,
		Message:   ConversationMessage{Sender: "scammer", Text: text, Timestamp: time.Now().UTC()},
	})
	require.NoError(t, err)
	return resp
}

func (h *testHarness) state(sessionID string) *SessionState {
	return h.store.GetOrCreate(context.Background(), sessionID)
}

const scamText = "URGENT: Your bank account will be blocked. Pay the fine immediately."

func TestSubmitMessageBenignAcknowledges(t *testing.T) {
	h := newHarness(OrchestratorConfig{})

	resp := h.submit(t, "s-1", "Hi, is this the right number for the bakery?")

	assert.Equal(t, AcknowledgementReply, resp.Reply)
	assert.False(t, resp.ScamDetected)
	assert.Equal(t, "s-1", resp.SessionID)

	state := h.state("s-1")
	assert.Equal(t, 1, state.TotalMessageCount)
	assert.Len(t, state.ConversationHistory, 1)
	assert.Zero(t, state.ExtractedIntelligence.Total())
	assert.Zero(t, state.ConsecutiveNoNewIntel)
}

func TestSubmitMessageFlagsAndExtracts(t *testing.T) {
	h := newHarness(OrchestratorConfig{})

	resp := h.submit(t, "s-1", scamText+" Send it to fraudster@ybl or call 9876543210")

	assert.True(t, resp.ScamDetected)
	assert.NotEqual(t, AcknowledgementReply, resp.Reply)
	assert.True(t, ValidDecoyReply(resp.Reply))

	state := h.state("s-1")
	assert.True(t, state.ScamDetected)
	assert.Equal(t, []string{"fraudster@ybl"}, state.ExtractedIntelligence.UPIIDs)
	assert.Contains(t, state.ExtractedIntelligence.PhoneNumbers, "9876543210")
	assert.Zero(t, state.ConsecutiveNoNewIntel)
}

func TestSubmitMessageFlagNeverReverts(t *testing.T) {
	h := newHarness(OrchestratorConfig{})

	h.submit(t, "s-1", scamText)
	resp := h.submit(t, "s-1", "hello")

	assert.True(t, resp.ScamDetected)
	assert.NotEqual(t, AcknowledgementReply, resp.Reply)
	assert.True(t, h.state("s-1").ScamDetected)
}

func TestSubmitMessageIntelligenceIsMonotonic(t *testing.T) {
	h := newHarness(OrchestratorConfig{})
	messages := []string{
		scamText,
		"Pay to fraudster@ybl",
		"ok",
		"Or visit https://kyc.example.in/verify",
		"call 9123456780",
	}

	var previous IntelligenceSnapshot
	for i, text := range messages {
		h.submit(t, "s-1", text)
		current := h.state("s-1").ExtractedIntelligence
		for _, category := range Categories {
			assert.Subset(t, current.Category(category), previous.Category(category), "message %d category %s", i, category)
		}
		assert.Equal(t, i+1, h.state("s-1").TotalMessageCount)
		previous = current.Clone()
	}
}

func TestSubmitMessageStagnationTriggersReport(t *testing.T) {
	h := newHarness(OrchestratorConfig{})

	h.submit(t, "s-1", scamText)
	h.submit(t, "s-1", "ok")
	h.submit(t, "s-1", "ok")
	h.orchestrator.Wait()
	calls, _ := h.dispatcher.snapshot()
	assert.Empty(t, calls)

	h.submit(t, "s-1", "ok")
	h.orchestrator.Wait()

	calls, states := h.dispatcher.snapshot()
	require.Equal(t, []string{"s-1"}, calls)
	assert.Equal(t, 3, states[0].ConsecutiveNoNewIntel)
	assert.Equal(t, 4, states[0].TotalMessageCount)
	assert.True(t, states[0].ScamDetected)
}

func TestSubmitMessageNewIntelResetsStagnation(t *testing.T) {
	h := newHarness(OrchestratorConfig{})

	h.submit(t, "s-1", scamText)
	h.submit(t, "s-1", "ok")
	h.submit(t, "s-1", "ok")
	assert.Equal(t, 2, h.state("s-1").ConsecutiveNoNewIntel)

	h.submit(t, "s-1", "my upi is payme@okaxis")
	assert.Zero(t, h.state("s-1").ConsecutiveNoNewIntel)
}

func TestSubmitMessageLimitTriggersReport(t *testing.T) {
	h := newHarness(OrchestratorConfig{})

	for i := range 14 {
		h.submit(t, "s-1", fmt.Sprintf("hello %d", i))
	}
	h.orchestrator.Wait()
	calls, _ := h.dispatcher.snapshot()
	assert.Empty(t, calls)

	h.submit(t, "s-1", "hello again")
	h.orchestrator.Wait()

	calls, states := h.dispatcher.snapshot()
	require.Len(t, calls, 1)
	assert.Equal(t, 15, states[0].TotalMessageCount)
	assert.False(t, states[0].ScamDetected)
}

func TestSubmitMessageCustomLimits(t *testing.T) {
	h := newHarness(OrchestratorConfig{Limits: Limits{MaxMessages: 2, MaxNoNewIntel: 10}})

	h.submit(t, "s-1", "hello")
	h.submit(t, "s-1", "hello")
	h.orchestrator.Wait()

	calls, _ := h.dispatcher.snapshot()
	assert.Len(t, calls, 1)
}

func TestSubmitMessageDispatchGetsSnapshot(t *testing.T) {
	h := newHarness(OrchestratorConfig{Limits: Limits{MaxMessages: 1, MaxNoNewIntel: 3}})

	h.submit(t, "s-1", "hello")
	h.orchestrator.Wait()
	_, states := h.dispatcher.snapshot()
	require.Len(t, states, 1)

	assert.NotSame(t, h.state("s-1"), states[0])
	h.submit(t, "s-1", "hello again")
	h.orchestrator.Wait()
	assert.Equal(t, 1, states[0].TotalMessageCount)
}

func TestSubmitMessageRejectsEmptySessionID(t *testing.T) {
	h := newHarness(OrchestratorConfig{})

	for _, id := range []string{"", "   "} {
		_, err := h.orchestrator.SubmitMessage(context.Background(), MessageRequest{SessionID: id})
		assert.ErrorIs(t, err, ErrEmptySessionID)
	}
	assert.Zero(t, h.store.Len())
}

func TestSubmitMessageFailureLeavesStateUntouched(t *testing.T) {
	h := newHarness(OrchestratorConfig{})
	h.submit(t, "s-1", "hello")

	failing := NewOrchestrator(OrchestratorConfig{
		Store:      h.store,
		Classifier: panicClassifier{},
		Dispatcher: h.dispatcher,
		Logger:     logging.Discard(),
	})
	resp, err := failing.SubmitMessage(context.Background(), MessageRequest{
		SessionID: "s-1",
		Message:   ConversationMessage{Sender: "scammer", Text: scamText},
	})

	require.Error(t, err)
	assert.Nil(t, resp)
	state := h.state("s-1")
	assert.Equal(t, 1, state.TotalMessageCount)
	assert.Len(t, state.ConversationHistory, 1)
	assert.False(t, state.ScamDetected)
}

func TestSubmitMessageSerializesSameSession(t *testing.T) {
	h := newHarness(OrchestratorConfig{Limits: Limits{MaxMessages: 1000, MaxNoNewIntel: 1000}})

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := h.orchestrator.SubmitMessage(context.Background(), MessageRequest{
				SessionID: "shared",
				Message:   ConversationMessage{Sender: "scammer", Text: fmt.Sprintf("message %d", i)},
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	state := h.state("shared")
	assert.Equal(t, 50, state.TotalMessageCount)
	assert.Len(t, state.ConversationHistory, 50)
}

func TestSubmitMessageSessionsAreIndependent(t *testing.T) {
	h := newHarness(OrchestratorConfig{})

	h.submit(t, "a", scamText)
	resp := h.submit(t, "b", "hello")

	assert.False(t, resp.ScamDetected)
	assert.Equal(t, 1, h.state("b").TotalMessageCount)
	assert.Equal(t, 2, h.store.Len())
}

func TestSubmitMessageEndToEndWithDispatcher(t *testing.T) {
	srv := newReportServer(t)
	dispatcher := NewCallbackDispatcher(DispatcherConfig{URL: srv.URL, Logger: logging.Discard()})
	o := NewOrchestrator(OrchestratorConfig{Dispatcher: dispatcher, Logger: logging.Discard()})

	send := func(text string) {
		_, err := o.SubmitMessage(context.Background(), MessageRequest{
			SessionID: "e2e",
			Message:   ConversationMessage{Sender: "scammer", Text: text},
		})
		require.NoError(t, err)
	}

	send(scamText)
	for range 5 {
		send("ok")
	}
	o.Wait()

	assert.True(t, dispatcher.Dispatched("e2e"))
	assert.Equal(t, int32(1), srv.hits.Load())
	payloads := srv.received()
	require.Len(t, payloads, 1)
	// Later terminal messages may race the first dispatch; any of them may win.
	assert.Contains(t, []any{4.0, 5.0, 6.0}, payloads[0]["totalMessagesExchanged"])
}

func TestWaitReturnsWhenArchiveHangs(t *testing.T) {
	srv := newReportServer(t)
	dispatcher := NewCallbackDispatcher(DispatcherConfig{
		URL:     srv.URL,
		Timeout: 200 * time.Millisecond,
		Archive: blockingArchive{},
		Logger:  logging.Discard(),
	})
	o := NewOrchestrator(OrchestratorConfig{
		Dispatcher: dispatcher,
		Limits:     Limits{MaxMessages: 1, MaxNoNewIntel: 3},
		Logger:     logging.Discard(),
	})

	_, err := o.SubmitMessage(context.Background(), MessageRequest{
		SessionID: "s-1",
		Message:   ConversationMessage{Sender: "scammer", Text: "hello"},
	})
	require.NoError(t, err)

	waited := make(chan struct{})
	go func() {
		o.Wait()
		close(waited)
	}()
	select {
	case <-waited:
	case <-time.After(3 * time.Second):
		t.Fatal("Wait blocked on a hung archive")
	}
	assert.True(t, dispatcher.Dispatched("s-1"))
}

func TestPartialLimitsKeepDefaults(t *testing.T) {
	h := newHarness(OrchestratorConfig{Limits: Limits{MaxMessages: 5}})

	h.submit(t, "s-1", scamText)
	h.submit(t, "s-1", "ok")
	h.orchestrator.Wait()

	calls, _ := h.dispatcher.snapshot()
	assert.Empty(t, calls)
	assert.Equal(t, Limits{MaxMessages: 5, MaxNoNewIntel: 3}, h.orchestrator.limits)
}

func TestSubmitMessageLogsWithSessionID(t *testing.T) {
	var buf bytes.Buffer
	o := NewOrchestrator(OrchestratorConfig{Logger: logging.NewWithWriter(&buf, "info")})

	_, err := o.SubmitMessage(context.Background(), MessageRequest{
		SessionID: "s-log",
		Message:   ConversationMessage{Sender: "scammer", Text: scamText},
	})
	require.NoError(t, err)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "session flagged", entry["msg"])
	assert.Equal(t, "s-log", entry["session_id"])
}
