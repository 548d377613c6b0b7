package honeypot

import (
	"regexp"
	"slices"
	"strings"
)

var (
	upiPattern     = regexp.MustCompile(`\b[a-zA-Z0-9._-]+@[a-zA-Z0-9.-]+\b`)
	accountPattern = regexp.MustCompile(`\b\d{10,18}\b`)
	urlPattern     = regexp.MustCompile(`(?i)\bhttps?://[^\s<>"']+\b`)
	phoneStrip     = regexp.MustCompile(`[^0-9+]`)

	// Applied in order; a number matched by several patterns is recorded once.
	phonePatterns = []*regexp.Regexp{
		regexp.MustCompile(`\b[+]?91[-\s]?[6-9]\d{9}\b`),
		regexp.MustCompile(`\b[6-9]\d{9}\b`),
		regexp.MustCompile(`\b0[-\s]?[6-9]\d{9}\b`),
		regexp.MustCompile(`\b\d{10}\b`),
		regexp.MustCompile(`\b[+]?\d{11,15}\b`),
	}
)

// suspiciousKeywords are matched by substring against the lowercased text.
var suspiciousKeywords = []string{
	"urgent", "immediately", "payment", "transfer", "deposit",
	"prize", "winner", "lottery", "bonus", "reward",
	"suspend", "block", "deactivate", "legal action",
	"account number", "card number", "cvv", "pin", "password",
	"otp", "aadhaar", "pan", "tax", "customs", "court",
	"police", "government", "official", "department",
}

// Extractor pulls adversary-disclosed identifiers out of message text.
type Extractor struct{}

// NewExtractor returns an Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract returns the union of existing with every identifier found in text.
// existing is not modified and no prior entry is ever dropped, so running it
// twice over the same text adds nothing the second time.
func (e *Extractor) Extract(text string, existing IntelligenceSnapshot) IntelligenceSnapshot {
	out := existing.Clone()

	out.UPIIDs = appendUnique(out.UPIIDs, upiPattern.FindAllString(text, -1)...)

	for _, account := range accountPattern.FindAllString(text, -1) {
		if looksLikeMobile(account) {
			continue
		}
		out.BankAccounts = appendUnique(out.BankAccounts, account)
	}

	for _, pattern := range phonePatterns {
		for _, phone := range pattern.FindAllString(text, -1) {
			out.PhoneNumbers = appendUnique(out.PhoneNumbers, normalizePhone(phone))
		}
	}

	out.URLs = appendUnique(out.URLs, urlPattern.FindAllString(text, -1)...)

	lowered := strings.ToLower(text)
	for _, keyword := range suspiciousKeywords {
		if strings.Contains(lowered, keyword) {
			out.SuspiciousKeywords = appendUnique(out.SuspiciousKeywords, keyword)
		}
	}

	return out
}

// looksLikeMobile reports whether a digit run is a 10-digit number starting
// 6-9, which is treated as a phone number rather than an account.
func looksLikeMobile(digits string) bool {
	if len(digits) != 10 {
		return false
	}
	switch digits[0] {
	case '6', '7', '8', '9':
		return true
	}
	return false
}

// normalizePhone keeps digits and '+'.
func normalizePhone(raw string) string {
	return phoneStrip.ReplaceAllString(raw, "")
}

func appendUnique(dst []string, values ...string) []string {
	for _, v := range values {
		if v == "" || slices.Contains(dst, v) {
			continue
		}
		dst = append(dst, v)
	}
	return dst
}
