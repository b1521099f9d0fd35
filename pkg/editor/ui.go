package editor

// UI is the immediate-mode surface the editor draws on. Every call
// describes one widget for the current frame and returns what the user did
// to it since the previous frame.
type UI interface {
	// Group draws a collapsible group and calls body when it is expanded.
	Group(label string, body func())
	TextInput(label, text string, opts TextOptions) Response
	Checkbox(label string, checked bool) Response
	Choice(label string, options []string, selected int) Response
}

// TextOptions tune a text input.
type TextOptions struct {
	Multiline bool
	// MaxLength limits the number of characters when positive.
	MaxLength int
	// Invalid, when set, is shown next to the input and the input is styled
	// as invalid.
	Invalid string
	Slider  bool
}

// Response reports user interaction with one widget.
type Response struct {
	// Changed is set when the user edited the widget.
	Changed bool
	// Text is the edited text of a TextInput.
	Text string
	// Checked is the new state of a Checkbox.
	Checked bool
	// Selected is the new index of a Choice.
	Selected int
	// Steps counts increments (positive) and decrements (negative)
	// requested on a TextInput.
	Steps int
	// LostFocus is set when the widget lost keyboard focus.
	LostFocus bool
}
