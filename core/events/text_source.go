package events

// KindTextChanged identifies a text change reported by the source.
const KindTextChanged Kind = "text_source.changed"

// TextChanged carries text reported by the text source.
type TextChanged struct {
	Base
	Text string
	Seq  uint64
	// Ignored is set when the pipeline was disabled and the text will not be
	// spoken.
	Ignored bool
}

// NewTextChanged creates a text changed event.
func NewTextChanged(text string, seq uint64, ignored bool) TextChanged {
	return TextChanged{Base: NewBase(KindTextChanged), Text: text, Seq: seq, Ignored: ignored}
}
