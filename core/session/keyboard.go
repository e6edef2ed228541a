package session

import "strings"

// KeyEvent is a client keydown.
type KeyEvent struct {
	Key             string `json:"key"`
	Code            string `json:"code"`
	Target          string `json:"target"` // tag name of the focused element
	ContentEditable bool   `json:"contentEditable"`
}

// IsSpace reports whether the key is the spacebar.
func (k KeyEvent) IsSpace() bool {
	return k.Key == " " || k.Key == "Spacebar" || k.Code == "Space"
}

// InTextInput reports whether the key was typed into an editable field.
func (k KeyEvent) InTextInput() bool {
	switch strings.ToLower(k.Target) {
	case "input", "textarea", "select":
		return true
	}
	return k.ContentEditable
}
