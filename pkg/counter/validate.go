package counter

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/a2aproject/a2a-go/a2a"
)

// DefaultMaxOrderChars bounds accepted order text. Long input costs
// model tokens and latency for no plausible order.
const DefaultMaxOrderChars = 10000

// ValidationResult is the outcome of input validation.
type ValidationResult struct {
	Valid         bool
	ErrorMessage  string
	SanitizedText string
}

// Validator guards order text before any further processing.
type Validator interface {
	Validate(msg *a2a.Message) ValidationResult
}

// InputValidator checks presence, length, and sanitizes unsafe markup.
type InputValidator struct {
	maxChars int
}

// NewInputValidator creates a validator with the given length bound.
// Zero or negative means DefaultMaxOrderChars.
func NewInputValidator(maxChars int) *InputValidator {
	if maxChars <= 0 {
		maxChars = DefaultMaxOrderChars
	}
	return &InputValidator{maxChars: maxChars}
}

// Validate extracts the message text and sanitizes it. Failures carry
// the specific reason; the caller surfaces it as-is.
func (v *InputValidator) Validate(msg *a2a.Message) ValidationResult {
	if msg == nil || len(msg.Parts) == 0 {
		return ValidationResult{ErrorMessage: "No message content"}
	}

	text := firstTextPart(msg.Parts)
	if strings.TrimSpace(text) == "" {
		return ValidationResult{ErrorMessage: "No text content"}
	}

	if len(text) > v.maxChars {
		return ValidationResult{
			ErrorMessage: fmt.Sprintf("Message exceeds maximum length of %d characters", v.maxChars),
		}
	}

	return ValidationResult{
		Valid:         true,
		SanitizedText: Sanitize(text),
	}
}

// unsafeTagPattern matches opening and closing tags for markup that can
// execute or embed content. Only the tags are stripped; inner text is
// kept, since the goal is neutralizing payloads, not parsing HTML.
var unsafeTagPattern = regexp.MustCompile(`(?i)</?(script|iframe|object|embed)\b[^>]*>`)

// Sanitize strips unsafe markup tags and control characters, then trims
// whitespace. Best-effort pattern stripping: consumers still treat the
// result as untrusted.
func Sanitize(text string) string {
	text = unsafeTagPattern.ReplaceAllString(text, "")

	text = strings.Map(func(r rune) rune {
		switch r {
		case '\n', '\r', '\t':
			return r
		}
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, text)

	return strings.TrimSpace(text)
}

// firstTextPart returns the first non-empty TextPart in parts.
func firstTextPart(parts []a2a.Part) string {
	for _, part := range parts {
		if tp, ok := part.(a2a.TextPart); ok && tp.Text != "" {
			return tp.Text
		}
	}
	return ""
}
