package model

// Template is one humanized outreach message with {placeholder} tokens.
// Text is immutable once created; only Active toggles.
type Template struct {
	ID     int64
	Type   MessageType
	Text   string
	Active bool
}
