package validate

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	defaultMaxMessageLength = 10000
	defaultMaxRepeatedRun   = 100
	labelRepeatedRun        = 20
)

// Reason codes reported in Result.Reasons.
const (
	ReasonEmptyMessage    = "empty_message"
	ReasonMessageTooLong  = "message_too_long"
	ReasonRepeatedChars   = "repeated_characters"
	ReasonHTMLTag         = "html_tag"
	ReasonScriptURI       = "javascript_uri"
	ReasonEventHandler    = "event_handler"
	ReasonSQLPattern      = "sql_pattern"
	ReasonInvalidPhone    = "invalid_phone"
	ReasonEmptyAfterClean = "empty_after_sanitize"
)

var (
	scriptBlockPattern  = regexp.MustCompile(`(?is)<\s*(script|style)[^>]*>.*?<\s*/\s*(script|style)\s*>`)
	htmlTagPattern      = regexp.MustCompile(`(?s)<\s*/?\s*[a-zA-Z!][^>]*>`)
	scriptURIPattern    = regexp.MustCompile(`(?i)javascript\s*:`)
	eventHandlerPattern = regexp.MustCompile(`(?i)\bon[a-z]+\s*=\s*("[^"]*"|'[^']*'|[^\s>]*)`)
	sqlKeywordPattern   = regexp.MustCompile(`(?i)\b(union|select|insert|update|delete|drop|create|alter|exec)\b`)
	multiSpacePattern   = regexp.MustCompile(`[ \t]{2,}`)

	angleBrackets = strings.NewReplacer("<", "", ">", "")
)

// Config holds validator limits. Zero values fall back to defaults.
type Config struct {
	MaxMessageLength int
	MaxRepeatedRun   int
}

// Result is the outcome of validating one message and optional phone.
type Result struct {
	Valid            bool
	Suspicious       bool
	SanitizedMessage string
	CleanPhone       string
	Reasons          []string
}

// Validator sanitizes free-text messages and normalizes phone numbers.
type Validator struct {
	maxLength int
	maxRun    int
}

// New returns a Validator using cfg limits.
func New(cfg Config) *Validator {
	maxLength := cfg.MaxMessageLength
	if maxLength <= 0 {
		maxLength = defaultMaxMessageLength
	}
	maxRun := cfg.MaxRepeatedRun
	if maxRun <= 0 {
		maxRun = defaultMaxRepeatedRun
	}
	return &Validator{maxLength: maxLength, maxRun: maxRun}
}

// Validate checks message and, when phone is non-empty, normalizes it.
// Dangerous content is stripped and flagged as suspicious; the result is
// still invalid only for length, DoS, empty or phone failures.
func (v *Validator) Validate(message, phone string) Result {
	res := Result{Valid: true}

	if strings.TrimSpace(message) == "" {
		res.Valid = false
		res.Reasons = append(res.Reasons, ReasonEmptyMessage)
	}
	if utf8.RuneCountInString(message) > v.maxLength {
		res.Valid = false
		res.Reasons = append(res.Reasons, ReasonMessageTooLong)
	}
	if HasRepeatedRun(message, v.maxRun) {
		res.Valid = false
		res.Reasons = append(res.Reasons, ReasonRepeatedChars)
	}

	if res.Valid {
		sanitized, reasons := Sanitize(message)
		if len(reasons) > 0 {
			res.Suspicious = true
			res.Reasons = append(res.Reasons, reasons...)
		}
		if sanitized == "" {
			res.Valid = false
			res.Reasons = append(res.Reasons, ReasonEmptyAfterClean)
		}
		res.SanitizedMessage = sanitized
	}

	if phone != "" {
		clean, ok := NormalizePhone(phone)
		if !ok {
			res.Valid = false
			res.Reasons = append(res.Reasons, ReasonInvalidPhone)
		}
		res.CleanPhone = clean
	}

	return res
}

// ValidateLabel checks a short display text such as a sender name or a
// notification title. An empty label is valid. Over-long labels and
// repeated-character runs are invalid; markup is stripped and flagged.
func (v *Validator) ValidateLabel(label string, maxLength int) Result {
	res := Result{Valid: true}
	label = strings.TrimSpace(label)
	if label == "" {
		return res
	}

	if maxLength > 0 && utf8.RuneCountInString(label) > maxLength {
		res.Valid = false
		res.Reasons = append(res.Reasons, ReasonMessageTooLong)
	}
	if HasRepeatedRun(label, min(v.maxRun, labelRepeatedRun)) {
		res.Valid = false
		res.Reasons = append(res.Reasons, ReasonRepeatedChars)
	}
	if !res.Valid {
		return res
	}

	sanitized, reasons := Sanitize(label)
	if len(reasons) > 0 {
		res.Suspicious = true
		res.Reasons = append(res.Reasons, reasons...)
	}
	if sanitized == "" {
		res.Valid = false
		res.Reasons = append(res.Reasons, ReasonEmptyAfterClean)
	}
	res.SanitizedMessage = sanitized
	return res
}

// Sanitize removes HTML, script URIs, inline handlers and SQL keywords from s.
// It returns the cleaned text and one reason per pattern class that matched.
// Passes repeat until the text stops changing, so stripping one pattern
// cannot assemble another. Every repeat shortens the text, which bounds
// the loop.
func Sanitize(s string) (string, []string) {
	seen := map[string]bool{}
	var reasons []string
	note := func(r string) {
		if !seen[r] {
			seen[r] = true
			reasons = append(reasons, r)
		}
	}

	out := s
	for {
		prev := out
		if eventHandlerPattern.MatchString(out) {
			note(ReasonEventHandler)
			out = eventHandlerPattern.ReplaceAllString(out, "")
		}
		if scriptBlockPattern.MatchString(out) || htmlTagPattern.MatchString(out) {
			note(ReasonHTMLTag)
			out = scriptBlockPattern.ReplaceAllString(out, "")
			out = htmlTagPattern.ReplaceAllString(out, "")
		}
		if scriptURIPattern.MatchString(out) {
			note(ReasonScriptURI)
			out = scriptURIPattern.ReplaceAllString(out, "")
		}
		if sqlKeywordPattern.MatchString(out) {
			note(ReasonSQLPattern)
			out = sqlKeywordPattern.ReplaceAllString(out, "")
		}
		// Stray angle brackets can reassemble a tag once inner text is removed.
		out = angleBrackets.Replace(out)
		if out == prev {
			break
		}
	}

	out = multiSpacePattern.ReplaceAllString(out, " ")
	return strings.TrimSpace(out), reasons
}

// NormalizePhone strips non-digits and returns an E.164 style +1 number.
// Only 10 digit numbers, or 11 digit numbers with a leading 1, are accepted.
func NormalizePhone(phone string) (string, bool) {
	var b strings.Builder
	b.Grow(len(phone))
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()

	switch {
	case len(digits) == 10:
		return "+1" + digits, true
	case len(digits) == 11 && digits[0] == '1':
		return "+" + digits, true
	default:
		return "", false
	}
}

// HasRepeatedRun reports whether s contains limit or more identical runes in a row.
func HasRepeatedRun(s string, limit int) bool {
	if limit <= 1 {
		return s != ""
	}
	var prev rune
	run := 0
	for i, r := range s {
		if i > 0 && r == prev {
			run++
		} else {
			run = 1
			prev = r
		}
		if run >= limit {
			return true
		}
	}
	return false
}
