// Package privacy scrubs personally identifiable information from tool
// results before they are serialized into an LLM prompt.
package privacy

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
)

const (
	// maxDepth bounds recursion over untrusted external JSON.
	maxDepth = 10
	// maxListLen caps ordered lists before element-wise redaction.
	maxListLen = 20
	// DefaultMaxLength caps the serialized form produced by SafeStringify.
	DefaultMaxLength = 3000

	truncatedMarker = "[TRUNCATED]"
	redactedMarker  = "[REDACTED]"
	redactedID      = "[REDACTED_ID]"
	stringifyError  = "[Error stringifying data]"
)

type pattern struct {
	name string
	re   *regexp.Regexp
}

// Patterns are applied in this fixed order over the same string, so later
// patterns see the partially redacted text and overlapping matches are not
// reprocessed.
var piiPatterns = []pattern{
	{"EMAIL", regexp.MustCompile(`(?i)[A-Z0-9._%+-]+@[A-Z0-9.-]+\.[A-Z]{2,}`)},
	{"PHONE", regexp.MustCompile(`\+?1?[-.\s]?\(?\d{3}\)?[-.\s]?\d{3}[-.\s]?\d{4}`)},
	{"SSN", regexp.MustCompile(`\b\d{3}[-\s]?\d{2}[-\s]?\d{4}\b`)},
	{"CREDITCARD", regexp.MustCompile(`\b(?:\d{4}[-\s]?){3}\d{4}\b`)},
	{"IP", regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}\b`)},
	{"ECID", regexp.MustCompile(`\b\d{38}\b`)},
	{"UUID", regexp.MustCompile(`(?i)[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}`)},
	{"JWT", regexp.MustCompile(`eyJ[A-Za-z0-9_-]*\.eyJ[A-Za-z0-9_-]*\.[A-Za-z0-9_-]*`)},
	{"APIKEY", regexp.MustCompile(`(?i)(?:api[_-]?key|token|secret|password)['":\s]*[=:]\s*['"]?[a-zA-Z0-9_-]{20,}['"]?`)},
	{"BEARERTOKEN", regexp.MustCompile(`(?i)Bearer\s+[A-Za-z0-9_-]+`)},
}

// sensitiveFields is matched as lowercase substrings of record keys.
var sensitiveFields = []string{
	"email", "emailaddress", "personalemail", "workemail",
	"phone", "phonenumber", "mobilephone", "homephone",
	"ssn", "socialsecuritynumber", "password", "secret", "apikey",
	"token", "accesstoken", "creditcard", "cardnumber", "cvv",
	"address", "streetaddress", "firstname", "lastname", "fullname",
	"name", "birthdate", "dateofbirth", "dob", "nationalid",
	"passportnumber", "driverlicense", "ipaddress", "deviceid",
	"xid", "ecid", "mcid", "identityvalue",
}

func redactString(value string) string {
	out := value
	for _, p := range piiPatterns {
		out = p.re.ReplaceAllString(out, "[REDACTED_"+p.name+"]")
	}
	return out
}

func isSensitiveField(name string) bool {
	lower := strings.ToLower(name)
	for _, s := range sensitiveFields {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}

// maskValue keeps the first two and last two characters of a sensitive
// string, replacing the middle with "***". Short values are replaced
// entirely.
func maskValue(value string) string {
	runes := []rune(value)
	if len(runes) <= 4 {
		return redactedMarker
	}
	return string(runes[:2]) + "***" + string(runes[len(runes)-2:])
}

// Redact returns a structurally mirrored copy of data with sensitive content
// replaced. It never panics: unknown scalar kinds pass through unchanged.
func Redact(data any) any {
	return redact(data, 0)
}

func redact(data any, depth int) any {
	if depth > maxDepth {
		return truncatedMarker
	}
	switch v := data.(type) {
	case nil:
		return nil
	case string:
		return redactString(v)
	case float64:
		if numberLen(strconv.FormatFloat(v, 'f', -1, 64)) > 15 {
			return redactedID
		}
		return v
	case int:
		if numberLen(strconv.Itoa(v)) > 15 {
			return redactedID
		}
		return v
	case int64:
		if numberLen(strconv.FormatInt(v, 10)) > 15 {
			return redactedID
		}
		return v
	case json.Number:
		if numberLen(v.String()) > 15 {
			return redactedID
		}
		return v
	case []any:
		if len(v) > maxListLen {
			v = v[:maxListLen]
		}
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = redact(item, depth+1)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, value := range v {
			if isSensitiveField(key) {
				if s, ok := value.(string); ok {
					out[key] = maskValue(s)
				} else {
					out[key] = redactedMarker
				}
				continue
			}
			out[key] = redact(value, depth+1)
		}
		return out
	default:
		return data
	}
}

// numberLen counts the characters of a formatted number, treating long
// decimal identifiers as opaque. Signs and decimal points count like the
// source implementation's string length check.
func numberLen(s string) int {
	return len(s)
}

// SafeStringify redacts data and serializes it to an indented JSON string
// capped at maxLength characters, appending a truncation marker when the cap
// is exceeded. Pass 0 for the default cap. Serialization failures yield a
// fixed placeholder rather than an error.
func SafeStringify(data any, maxLength int) string {
	if maxLength <= 0 {
		maxLength = DefaultMaxLength
	}
	redacted := Redact(data)
	encoded, err := json.MarshalIndent(redacted, "", "  ")
	if err != nil {
		return stringifyError
	}
	if len(encoded) > maxLength {
		return string(encoded[:maxLength]) + "\n... " + truncatedMarker
	}
	return string(encoded)
}

// ContainsPII reports whether raw text matches any PII pattern. It is used
// to flag, not to block.
func ContainsPII(text string) bool {
	for _, p := range piiPatterns {
		if p.re.MatchString(text) {
			return true
		}
	}
	return false
}
