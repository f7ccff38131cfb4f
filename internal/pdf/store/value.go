// Package store holds the mutable state of a signing session: field values
// and placed signature overlays.
package store

import (
	"strings"
)

// Value is a field value: Text, Bool or Image.
type Value interface {
	isValue()
	// Empty reports whether the value counts as unfilled.
	Empty() bool
}

// Text is a text or dropdown value.
type Text string

// Bool is a checkbox value.
type Bool bool

// Image is a signature image encoded as a data URI.
type Image string

func (Text) isValue()  {}
func (Bool) isValue()  {}
func (Image) isValue() {}

func (t Text) Empty() bool  { return t == "" }
func (b Bool) Empty() bool  { return !bool(b) }
func (i Image) Empty() bool { return i == "" }

// Truthy reports whether v selects a checkbox. Text values such as "true",
// "yes", "on" and "1" count as checked.
func Truthy(v Value) bool {
	switch t := v.(type) {
	case Bool:
		return bool(t)
	case Text:
		switch strings.ToLower(strings.TrimSpace(string(t))) {
		case "true", "yes", "on", "1", "checked", "x":
			return true
		}
	}
	return false
}

// String renders v for display and for text stamps.
func String(v Value) string {
	switch t := v.(type) {
	case Text:
		return string(t)
	case Bool:
		if t {
			return "true"
		}
		return "false"
	case Image:
		return string(t)
	}
	return ""
}
