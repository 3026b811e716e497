// Package normalize provides type-aware cleaning of raw field values before
// comparison or persistence. Every write path goes through this one package
// so single-field updates and bulk writes can never diverge in behavior.
//
// The common output convention is "absent": the empty string for text-like
// kinds and a nil pointer for booleans. A value that cannot be cleaned into
// its kind becomes absent rather than being passed through.
package normalize

import (
	"regexp"
	"strings"
)

// Kind selects the cleaning rule for a value.
type Kind int

const (
	// KindText passes free text through unless empty.
	KindText Kind = iota
	// KindCode cleans controlled-vocabulary codes and placeholder tokens.
	KindCode
	// KindRef cleans identifier and foreign-key references.
	KindRef
	// KindDate cleans date strings; calendar checks belong to validation.
	KindDate
	// KindBool cleans boolean flags.
	KindBool
)

// placeholders are tokens that mean "no value" in code fields, matched
// case-insensitively after trimming.
var placeholders = map[string]bool{
	"none":      true,
	"undefined": true,
	"null":      true,
}

// refPattern is the store's identifier shape: an IATI organisation or
// activity identifier such as "GB-GOV-1" or "BB-BBB-123456789-1234AA".
// At least one hyphen-separated segment is required.
var refPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.]*(-[A-Za-z0-9_.]+)+$`)

// String cleans a raw string value according to its kind. The returned
// value is "" when the input normalizes to absent.
func String(kind Kind, raw string) string {
	switch kind {
	case KindCode:
		return Code(raw)
	case KindRef:
		return Ref(raw)
	case KindDate:
		return Date(raw)
	default:
		return Text(raw)
	}
}

// Text passes free text through unless it is empty or whitespace.
func Text(raw string) string {
	return strings.TrimSpace(raw)
}

// Code trims a controlled-vocabulary code and collapses placeholder
// tokens ("none", "undefined", "null", any case) to absent.
func Code(raw string) string {
	v := strings.TrimSpace(raw)
	if placeholders[strings.ToLower(v)] {
		return ""
	}
	return v
}

// Ref cleans an identifier or foreign-key reference. Anything that does
// not match the store's identifier format exactly becomes absent rather
// than being passed through.
func Ref(raw string) string {
	v := strings.TrimSpace(raw)
	if v == "" || !refPattern.MatchString(v) {
		return ""
	}
	return v
}

// Date collapses empty and whitespace-only values to absent and passes
// everything else through unchanged. Format and calendar checks belong
// to validation, not normalization.
func Date(raw string) string {
	return strings.TrimSpace(raw)
}

// Bool cleans a boolean flag. Truthy strings ("yes", "true", "1") map to
// true and falsy strings ("no", "false", "0") map to false; anything else
// is absent (nil).
//
// An explicit false MUST survive as false. Coalescing a boolean with
// "value or absent" silently turns false into unset, which corrupts
// reconciliation; callers must branch on the nil pointer, never on the
// dereferenced value alone.
func Bool(raw string) *bool {
	v := strings.ToLower(strings.TrimSpace(raw))
	switch v {
	case "yes", "true", "1":
		b := true
		return &b
	case "no", "false", "0":
		b := false
		return &b
	default:
		return nil
	}
}

// BoolValue cleans a raw value that may already be typed: a bool passes
// through unchanged (false stays false), a string goes through Bool, and
// anything else is absent.
func BoolValue(raw any) *bool {
	switch v := raw.(type) {
	case bool:
		b := v
		return &b
	case *bool:
		if v == nil {
			return nil
		}
		b := *v
		return &b
	case string:
		return Bool(v)
	default:
		return nil
	}
}
