package honeypot

import (
	"context"
	"regexp"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/scam-honeypot/pkg/logging"
)

var classifierTracer = otel.Tracer("honeypot/classifier")

// ScamThreshold is the minimum confidence at which a message is flagged.
const ScamThreshold = 0.40

const noIndicatorsReason = "No scam indicators detected"

// signalCategory is one independently scored family of scam indicators.
type signalCategory struct {
	label    string
	weight   float64
	patterns []*regexp.Regexp
	// once adds the weight a single time no matter how many patterns match.
	once bool
}

// Classifier scores messages against fixed scam-signal pattern tables.
type Classifier struct {
	logger     *logging.Logger
	categories []signalCategory
}

// NewClassifier creates a classifier with the built-in pattern tables.
func NewClassifier(logger *logging.Logger) *Classifier {
	if logger == nil {
		logger = logging.Default()
	}
	return &Classifier{
		logger: logger,
		categories: []signalCategory{
			{
				label:  "Urgency language",
				weight: 0.25,
				patterns: compileAll(
					`\burgent\b`,
					`\bimmediately\b`,
					`\bright now\b`,
					`\basap\b`,
					`\btoday only\b`,
					`\blimited time\b`,
					`\bact fast\b`,
					`\bdon't delay\b`,
					`\blast chance\b`,
					`\boffer expires\b`,
					`\bending soon\b`,
					`\bquick action\b`,
					`\b24 hours\b`,
					`\b48 hours\b`,
				),
			},
			{
				label:  "Account threat",
				weight: 0.30,
				patterns: compileAll(
					`\baccount blocked\b`,
					`\baccount suspended\b`,
					`\baccount closed\b`,
					`\baccount frozen\b`,
					`\baccount deactivated\b`,
					`\bsuspend\b`,
					`\bblock\b`,
					`\bdeactivate\b`,
					`\bclose\b`,
					`\bfrozen\b`,
					`\blegal action\b`,
					`\barrest\b`,
					`\bjail\b`,
					`\bprison\b`,
					`\bcourt case\b`,
					`\bcriminal\b`,
					`\bfraud\b`,
					`\billegal\b`,
					`\bviolation\b`,
					`\bseized\b`,
				),
			},
			{
				label:  "Payment/verification request",
				weight: 0.25,
				patterns: compileAll(
					`\bpayment\b`,
					`\btransfer\b`,
					`\bsend money\b`,
					`\bdeposit\b`,
					`\bpay\b`,
					`\bcharge\b`,
					`\bfee\b`,
					`\bfine\b`,
					`\bpenalty\b`,
					`\btransaction\b`,
					`\bu?pi\b`,
					`\bupi\b`,
					`\bkyc\b`,
					`\bverify\b`,
					`\bverification\b`,
					`\bconfirm\b`,
					`\bupdate\b`,
					`\bshare\b`,
					`\bprovide\b`,
					`\bgive\b`,
				),
			},
			{
				label:  "Authority impersonation",
				weight: 0.20,
				patterns: compileAll(
					`\bbank\b`,
					`\bgovernment\b`,
					`\btax\b`,
					`\bcustoms\b`,
					`\bcourt\b`,
					`\bpolice\b`,
					`\binvestigation\b`,
					`\bofficial\b`,
					`\bdepartment\b`,
					`\brai\b`,
					`\bincome tax\b`,
					`\bgst\b`,
					`\bsebi\b`,
					`\brbi\b`,
					`\breserve bank\b`,
					`\bcyber cell\b`,
					`\bfbi\b`,
					`\binterpol\b`,
					`\bsecurity\b`,
					`\bsbi\b`,
					`\bicici\b`,
					`\bhdfc\b`,
					`\baxis\b`,
					`\bpnb\b`,
					`\bsupport\b`,
				),
			},
			{
				label:  "Suspicious phone request",
				weight: 0.25,
				once:   true,
				patterns: compileAll(
					`\bcall\s+me\s+on\s+\+?\d{10,15}\b`,
					`\bcall\s+me\s+on\s+\d{10}\b`,
					`\bcall\s+\+?\d{10,15}\b`,
					`\bphone\s+\+?\d{10,15}\b`,
					`\bmobile\s+\+?\d{10,15}\b`,
					`\bcontact\s+\+?\d{10,15}\b`,
					`\+?\d{10,15}\s+for\s+(?:help|support|details|info)`,
				),
			},
		},
	}
}

// Classify scores text for scam indicators. It never fails; empty text yields
// zero confidence and a negative verdict.
func (c *Classifier) Classify(ctx context.Context, text string) ScamDetectionResult {
	_, span := classifierTracer.Start(ctx, "classifier.classify")
	defer span.End()

	lowered := strings.ToLower(text)
	var reasons []string
	confidence := 0.0

	for _, category := range c.categories {
		for _, pattern := range category.patterns {
			if !pattern.MatchString(lowered) {
				continue
			}
			reasons = append(reasons, category.label+": "+pattern.String())
			confidence += category.weight
			if category.once {
				break
			}
		}
	}

	if confidence > 1.0 {
		confidence = 1.0
	}
	if len(reasons) == 0 {
		reasons = []string{noIndicatorsReason}
	}

	result := ScamDetectionResult{
		ScamDetected: confidence >= ScamThreshold,
		Confidence:   confidence,
		Reasons:      reasons,
	}

	span.SetAttributes(
		attribute.Bool("honeypot.scam_detected", result.ScamDetected),
		attribute.Float64("honeypot.confidence", result.Confidence),
	)
	if result.ScamDetected {
		c.logger.Debug("scam indicators matched",
			"confidence", result.Confidence,
			"signals", len(reasons),
		)
	}
	return result
}

func compileAll(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(exprs))
	for _, expr := range exprs {
		out = append(out, regexp.MustCompile(expr))
	}
	return out
}
