// Package validate implements the content-sanity checks the storage
// orchestrator runs over incoming request documents before they reach the
// database: a special-character-ratio check per string field, and an
// HTML/script-looking-payload scan, both applied to every string field
// encountered while walking a document. Ported from the original
// implementation's validate.cpp/.hpp, including its environment-variable-
// driven ignore list and ratio threshold.
package validate

import (
	"os"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/oriys/mongosvc/internal/logging"
)

// defaultIgnoreNames mirrors the original's default ignore list: field
// names containing these substrings are exempt from both the
// dangerous-content scan and the ratio check.
var defaultIgnoreNames = []string{"password", "version"}

const defaultRatio = 0.4

// Settings holds the ignore list and max special-character ratio. It is
// read once from the environment (or overridden explicitly via Override),
// matching the original's lazily-initialized singleton.
type Settings struct {
	IgnoreNames []string
	Ratio       float64
}

var (
	settingsOnce sync.Once
	settings     Settings
)

func loadSettingsFromEnv() Settings {
	s := Settings{IgnoreNames: append([]string(nil), defaultIgnoreNames...), Ratio: defaultRatio}
	if v := os.Getenv("SPT_JSON_PARSE_VALIDATION_IGNORE"); v != "" {
		v = strings.ReplaceAll(v, ",", " ")
		s.IgnoreNames = strings.Fields(v)
	}
	if v := os.Getenv("SPT_JSON_PARSE_VALIDATION_RATIO"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			s.Ratio = f
		} else {
			logging.Op().Warn("invalid SPT_JSON_PARSE_VALIDATION_RATIO, ignoring", "value", v)
		}
	}
	return s
}

// Default returns the process-wide Settings, lazily loaded from the
// environment on first use.
func Default() Settings {
	settingsOnce.Do(func() {
		settings = loadSettingsFromEnv()
	})
	return settings
}

// Override replaces the process-wide Settings, e.g. from config-loaded
// values rather than the environment. Intended to be called once at
// startup before any validation runs.
func Override(s Settings) {
	settingsOnce.Do(func() {})
	settings = s
}

func isIgnored(name string, ignore []string) bool {
	lower := strings.ToLower(name)
	for _, ig := range ignore {
		if strings.Contains(lower, strings.ToLower(ig)) {
			return true
		}
	}
	return false
}

// validateField applies the special-character-ratio check to one string
// field, mirroring the original's byte-class ranges (control chars and
// the ASCII punctuation bands) counted as "special".
func validateField(name, value string, s Settings) bool {
	if len(value) < 2 {
		return true
	}
	if isIgnored(name, s.IgnoreNames) {
		return true
	}

	if HasDangerousContent(value) {
		logging.Op().Warn("field has dangerous content", "field", name, "size", len(value))
		return false
	}

	special := 0
	for i := 0; i < len(value); i++ {
		c := value[i]
		switch {
		case c < 32:
			special++
		case c >= 33 && c <= 47:
			special++
		case c >= 58 && c <= 64:
			special++
		case c >= 91 && c <= 96:
			special++
		case c >= 123 && c < 127:
			special++
		}
	}

	ratio := float64(special) / float64(len(value))
	ok := ratio <= s.Ratio
	if !ok {
		logging.Op().Warn("field has too many special characters",
			"field", name, "limit_pct", s.Ratio*100, "size", len(value), "special", special)
	}
	return ok
}

// Document recursively validates every string field in doc, applying the
// special-character-ratio check. It returns false (and stops) at the
// first offending field.
func Document(doc bson.Raw) bool {
	s := Default()
	return validateRaw("", doc, s)
}

func validateRaw(parentName string, doc bson.Raw, s Settings) bool {
	elems, err := doc.Elements()
	if err != nil {
		return true
	}
	for _, elem := range elems {
		key := elem.Key()
		val := elem.Value()
		switch val.Type {
		case bson.TypeString:
			if !validateField(key, val.StringValue(), s) {
				return false
			}
		case bson.TypeEmbeddedDocument:
			if !validateRaw(key, val.Document(), s) {
				return false
			}
		case bson.TypeArray:
			if !validateArray(key, val.Array(), s) {
				return false
			}
		}
	}
	return true
}

func validateArray(name string, arr bson.Raw, s Settings) bool {
	values, err := arr.Values()
	if err != nil {
		return true
	}
	for _, val := range values {
		switch val.Type {
		case bson.TypeString:
			if !validateField(name, val.StringValue(), s) {
				return false
			}
		case bson.TypeEmbeddedDocument:
			if !validateRaw(name, val.Document(), s) {
				return false
			}
		case bson.TypeArray:
			if !validateArray(name, val.Array(), s) {
				return false
			}
		}
	}
	return true
}

// dangerousContentRe matches HTML/XML-tag-shaped substrings, the Go
// equivalent of the original's "<[^<>]+>" ECMAScript regex.
var dangerousContentRe = regexp.MustCompile(`(?is)<[^<>]+>`)

// HasDangerousContent scans a string for HTML-tag-looking or
// JavaScript-looking substrings. validateField applies it, before the
// special-character-ratio check, to every string field that is at least
// two bytes long and not on the ignore list; it is also exported
// for callers that want to check raw input ahead of BSON parsing.
func HasDangerousContent(field string) bool {
	if field == "" {
		return false
	}
	if dangerousContentRe.MatchString(field) {
		return true
	}

	hasVar := strings.Contains(field, "var ")
	hasLet := strings.Contains(field, "let ")
	hasConst := strings.Contains(field, "const ")
	hasEval := strings.Contains(field, "eval")
	hasAsync := strings.Contains(field, "async ")
	hasAlert := strings.Contains(field, "alert(")

	hasEquals := strings.Contains(field, "=")
	hasFn := strings.Contains(field, "function ")
	hasAwait := strings.Contains(field, "await")
	hasConsole := strings.Contains(field, "console.")

	suspicious := hasVar || hasLet || hasConst || hasEval || hasAsync || hasAlert
	confirms := hasEquals || hasFn || hasAwait || hasConsole
	return suspicious && confirms
}
