package honeypot

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/wolfman30/scam-honeypot/pkg/logging"
)

// Handler wires HTTP requests to the honeypot service.
type Handler struct {
	service Service
	logger  *logging.Logger
}

// NewHandler creates a honeypot handler.
func NewHandler(service Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Message handles POST /honeypot/message.
func (h *Handler) Message(w http.ResponseWriter, r *http.Request) {
	var body messageBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.logger.Warn("failed to decode message request", "error", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	req, err := body.toRequest()
	if err != nil {
		h.logger.Warn("rejected message request", "error", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	resp, err := h.service.SubmitMessage(r.Context(), req)
	if err != nil {
		if errors.Is(err, ErrEmptySessionID) {
			http.Error(w, "sessionId is required", http.StatusBadRequest)
			return
		}
		h.logger.Error("failed to process message", "session_id", req.SessionID, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, resp)
}

// Info handles GET /api/honeypot/message.
func (h *Handler) Info(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"message": "Honeypot API - POST to this endpoint"})
}

// Health handles GET /health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to write JSON response", "error", err)
	}
}

// messageBody mirrors MessageRequest with optional fields so missing values
// can be told apart from empty ones.
type messageBody struct {
	SessionID *string `json:"sessionId"`
	Message   *struct {
		Sender    *string         `json:"sender"`
		Text      *string         `json:"text"`
		Timestamp json.RawMessage `json:"timestamp"`
	} `json:"message"`
	ConversationHistory []json.RawMessage `json:"conversationHistory"`
	Metadata            Metadata          `json:"metadata"`
}

// DecodeMessageRequest parses and validates a raw submit_message body.
func DecodeMessageRequest(data []byte) (MessageRequest, error) {
	var body messageBody
	if err := json.Unmarshal(data, &body); err != nil {
		return MessageRequest{}, fmt.Errorf("invalid request body: %w", err)
	}
	return body.toRequest()
}

func (b messageBody) toRequest() (MessageRequest, error) {
	if b.SessionID == nil || strings.TrimSpace(*b.SessionID) == "" {
		return MessageRequest{}, errors.New("sessionId is required")
	}
	if b.Message == nil {
		return MessageRequest{}, errors.New("message is required")
	}
	if b.Message.Sender == nil {
		return MessageRequest{}, errors.New("message.sender is required")
	}
	if b.Message.Text == nil {
		return MessageRequest{}, errors.New("message.text is required")
	}
	ts, err := parseTimestamp(b.Message.Timestamp)
	if err != nil {
		return MessageRequest{}, err
	}

	// History sent by the caller is not trusted; the session keeps its own.
	return MessageRequest{
		SessionID: strings.TrimSpace(*b.SessionID),
		Message: ConversationMessage{
			Sender:    *b.Message.Sender,
			Text:      *b.Message.Text,
			Timestamp: ts,
		},
		Metadata: b.Metadata,
	}, nil
}

// parseTimestamp accepts RFC 3339 strings or Unix epochs in seconds or
// milliseconds.
func parseTimestamp(raw json.RawMessage) (time.Time, error) {
	value := strings.TrimSpace(string(raw))
	if value == "" || value == "null" {
		return time.Time{}, errors.New("message.timestamp is required")
	}

	if strings.HasPrefix(value, `"`) {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return time.Time{}, errors.New("message.timestamp is invalid")
		}
		s = strings.TrimSpace(s)
		for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999999", "2006-01-02 15:04:05"} {
			if t, err := time.Parse(layout, s); err == nil {
				return t.UTC(), nil
			}
		}
		value = s
	}

	epoch, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return time.Time{}, errors.New("message.timestamp is invalid")
	}
	if epoch > 2e10 {
		return time.UnixMilli(int64(epoch)).UTC(), nil
	}
	return time.Unix(int64(epoch), 0).UTC(), nil
}
