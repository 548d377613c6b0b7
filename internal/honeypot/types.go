package honeypot

import (
	"errors"
	"time"
)

// ErrEmptySessionID is returned when a message arrives without a session identifier.
var ErrEmptySessionID = errors.New("honeypot: session id is required")

// Intelligence categories tracked per session.
const (
	CategoryUPIIDs             = "upi_ids"
	CategoryBankAccounts       = "bank_accounts"
	CategoryPhoneNumbers       = "phone_numbers"
	CategoryURLs               = "urls"
	CategorySuspiciousKeywords = "suspicious_keywords"
)

// Categories lists the intelligence categories in report order.
var Categories = []string{
	CategoryUPIIDs,
	CategoryBankAccounts,
	CategoryPhoneNumbers,
	CategoryURLs,
	CategorySuspiciousKeywords,
}

// ConversationMessage is one recorded turn of a session.
type ConversationMessage struct {
	Sender    string    `json:"sender"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// IntelligenceSnapshot holds adversary-disclosed identifiers. Values within a
// category are unique and kept in insertion order.
type IntelligenceSnapshot struct {
	UPIIDs             []string `json:"upi_ids"`
	BankAccounts       []string `json:"bank_accounts"`
	PhoneNumbers       []string `json:"phone_numbers"`
	URLs               []string `json:"urls"`
	SuspiciousKeywords []string `json:"suspicious_keywords"`
}

// NewIntelligenceSnapshot returns a snapshot with every category present and empty.
func NewIntelligenceSnapshot() IntelligenceSnapshot {
	return IntelligenceSnapshot{
		UPIIDs:             []string{},
		BankAccounts:       []string{},
		PhoneNumbers:       []string{},
		URLs:               []string{},
		SuspiciousKeywords: []string{},
	}
}

// Clone returns a deep copy.
func (s IntelligenceSnapshot) Clone() IntelligenceSnapshot {
	return IntelligenceSnapshot{
		UPIIDs:             cloneStrings(s.UPIIDs),
		BankAccounts:       cloneStrings(s.BankAccounts),
		PhoneNumbers:       cloneStrings(s.PhoneNumbers),
		URLs:               cloneStrings(s.URLs),
		SuspiciousKeywords: cloneStrings(s.SuspiciousKeywords),
	}
}

// Category returns the values recorded for the named category.
func (s IntelligenceSnapshot) Category(name string) []string {
	switch name {
	case CategoryUPIIDs:
		return s.UPIIDs
	case CategoryBankAccounts:
		return s.BankAccounts
	case CategoryPhoneNumbers:
		return s.PhoneNumbers
	case CategoryURLs:
		return s.URLs
	case CategorySuspiciousKeywords:
		return s.SuspiciousKeywords
	default:
		return nil
	}
}

// Total counts entries across all categories.
func (s IntelligenceSnapshot) Total() int {
	return len(s.UPIIDs) + len(s.BankAccounts) + len(s.PhoneNumbers) + len(s.URLs) + len(s.SuspiciousKeywords)
}

// SessionState is the per-session record owned by a SessionStore.
type SessionState struct {
	ConversationHistory   []ConversationMessage `json:"conversation_history"`
	ScamDetected          bool                  `json:"scam_detected"`
	TotalMessageCount     int                   `json:"total_message_count"`
	ExtractedIntelligence IntelligenceSnapshot  `json:"extracted_intelligence"`
	ConsecutiveNoNewIntel int                   `json:"consecutive_no_new_intel"`
}

// NewSessionState returns a fresh session with zero counters.
func NewSessionState() *SessionState {
	return &SessionState{
		ConversationHistory:   []ConversationMessage{},
		ExtractedIntelligence: NewIntelligenceSnapshot(),
	}
}

// Clone returns a deep copy so callers can mutate without touching stored state.
func (s *SessionState) Clone() *SessionState {
	if s == nil {
		return nil
	}
	history := make([]ConversationMessage, len(s.ConversationHistory))
	copy(history, s.ConversationHistory)
	return &SessionState{
		ConversationHistory:   history,
		ScamDetected:          s.ScamDetected,
		TotalMessageCount:     s.TotalMessageCount,
		ExtractedIntelligence: s.ExtractedIntelligence.Clone(),
		ConsecutiveNoNewIntel: s.ConsecutiveNoNewIntel,
	}
}

// LastMessageText returns the text of the most recent message, or "" when empty.
func (s *SessionState) LastMessageText() string {
	if s == nil || len(s.ConversationHistory) == 0 {
		return ""
	}
	return s.ConversationHistory[len(s.ConversationHistory)-1].Text
}

// ScamDetectionResult is the transient verdict of a single classification.
type ScamDetectionResult struct {
	ScamDetected bool     `json:"scamDetected"`
	Confidence   float64  `json:"confidence"`
	Reasons      []string `json:"reasons"`
}

// Metadata describes the channel a message arrived on. The engine ignores it.
type Metadata struct {
	Channel  string `json:"channel"`
	Language string `json:"language"`
	Locale   string `json:"locale"`
}

// MessageRequest is the inbound submit_message payload.
type MessageRequest struct {
	SessionID           string                `json:"sessionId"`
	Message             ConversationMessage   `json:"message"`
	ConversationHistory []ConversationMessage `json:"conversationHistory"`
	Metadata            Metadata              `json:"metadata"`
}

// MessageResponse is returned for every accepted message.
type MessageResponse struct {
	Reply        string `json:"reply"`
	ScamDetected bool   `json:"scamDetected"`
	SessionID    string `json:"sessionId"`
}

// CallbackPayload is the terminal report sent to the reporting endpoint.
type CallbackPayload struct {
	SessionID              string               `json:"sessionId"`
	ScamDetected           bool                 `json:"scamDetected"`
	TotalMessagesExchanged int                  `json:"totalMessagesExchanged"`
	ExtractedIntelligence  IntelligenceSnapshot `json:"extractedIntelligence"`
	AgentNotes             string               `json:"agentNotes"`
}

func cloneStrings(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}
