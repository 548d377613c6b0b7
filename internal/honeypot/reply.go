package honeypot

import (
	"math/rand/v2"
	"strings"
)

// RandomSource picks an index in [0, n).
type RandomSource interface {
	Intn(n int) int
}

type globalRand struct{}

func (globalRand) Intn(n int) int { return rand.IntN(n) }

// AcknowledgementReply is sent while a session has not been flagged.
const AcknowledgementReply = "Thank you for your message. How can I help you today?"

var (
	credentialKeywords = []string{"account number", "card number", "cvv", "pin", "password", "otp", "aadhaar", "pan"}
	paymentKeywords    = []string{"payment", "transfer", "send money", "deposit", "pay", "fee", "charge"}
	urgencyKeywords    = []string{"urgent", "immediately", "right now", "asap", "today only", "hurry", "fast", "quickly", "don't delay", "act now"}

	// prohibitedReplyWords would tell the other side we know what they are doing.
	prohibitedReplyWords = []string{"scam", "fraud", "police", "report", "illegal"}
)

var (
	sharingCautionReplies = []string{
		"I'm not comfortable sharing that information right now. Why do you need it?",
		"I need to be careful with my details. Can you explain why this is necessary?",
		"I'm hesitant to provide that. Is there another way to proceed?",
		"I'd like to understand more before sharing any personal information.",
	}
	paymentCautionReplies = []string{
		"I need to think about this carefully. Can you provide more details?",
		"I'm not sure about making payments like this. What are my options?",
		"I need to understand this better before proceeding with any payment.",
		"Can you explain why this payment is necessary? I want to be sure.",
		"I'm hesitant to send money without understanding the process better.",
	}
	slowDownReplies = []string{
		"I need some time to understand this properly. Can we slow down a bit?",
		"This seems rushed. Can you explain everything step by step?",
		"I prefer to take my time with important decisions. What's the hurry?",
		"Let me understand this first before taking any quick action.",
	}
	genericReplies = []string{
		"I see. Can you please explain this more clearly?",
		"I'm not sure I understand. Could you tell me more about this?",
		"Thank you for the information. What do you need me to do exactly?",
		"I need some time to think about this. What are the next steps?",
		"I'm a bit confused about this process. Can you guide me?",
		"Okay, I understand. How does this work exactly?",
		"I see. What should I do now?",
		"Thank you for explaining. Is there anything else I should know?",
		"I'm not very familiar with these things. Can you help me understand?",
		"Alright. What information do you need from me?",
	}
)

// ReplyPools returns every decoy reply pool, highest priority first.
func ReplyPools() [][]string {
	return [][]string{sharingCautionReplies, paymentCautionReplies, slowDownReplies, genericReplies}
}

// ValidDecoyReply reports whether a reply asks at most one question and
// avoids any word that would reveal detection.
func ValidDecoyReply(reply string) bool {
	if strings.Count(reply, "?") > 1 {
		return false
	}
	lowered := strings.ToLower(reply)
	for _, word := range prohibitedReplyWords {
		if strings.Contains(lowered, word) {
			return false
		}
	}
	return true
}

// ReplyGenerator picks a decoy reply based on the latest message in a session.
type ReplyGenerator struct {
	rand RandomSource
}

// NewReplyGenerator creates a generator. A nil source uses the global generator.
func NewReplyGenerator(src RandomSource) *ReplyGenerator {
	if src == nil {
		src = globalRand{}
	}
	return &ReplyGenerator{rand: src}
}

// Generate returns a decoy reply for the current session state.
func (g *ReplyGenerator) Generate(state *SessionState) string {
	return g.pick(poolFor(strings.ToLower(state.LastMessageText())))
}

func poolFor(lastMessage string) []string {
	switch {
	case containsAny(lastMessage, credentialKeywords):
		return sharingCautionReplies
	case containsAny(lastMessage, paymentKeywords):
		return paymentCautionReplies
	case containsAny(lastMessage, urgencyKeywords):
		return slowDownReplies
	default:
		return genericReplies
	}
}

func (g *ReplyGenerator) pick(pool []string) string {
	return pool[g.rand.Intn(len(pool))]
}

func containsAny(text string, keywords []string) bool {
	for _, keyword := range keywords {
		if strings.Contains(text, keyword) {
			return true
		}
	}
	return false
}
