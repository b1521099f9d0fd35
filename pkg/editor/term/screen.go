// Package term is a terminal front end for the editor built on tcell.
//
// Widgets are laid out one per row. Up, Down and Tab move the focus; the
// focused row receives key presses. Text inputs take typed characters,
// Backspace and Ctrl+U, PgUp and PgDn step numbers, Space toggles
// checkboxes, Left and Right cycle choices, Enter collapses groups. Escape
// ends editing and Ctrl+C quits.
package term

import (
	"strings"
	"sync"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/uniseg"

	"github.com/mesh-intelligence/cfgtree/pkg/editor"
)

// Styles used for drawing.
type Styles struct {
	Normal  tcell.Style
	Focused tcell.Style
	Group   tcell.Style
	Invalid tcell.Style
}

// DefaultStyles returns the built-in palette.
func DefaultStyles() Styles {
	return Styles{
		Normal:  tcell.StyleDefault,
		Focused: tcell.StyleDefault.Reverse(true),
		Group:   tcell.StyleDefault.Bold(true),
		Invalid: tcell.StyleDefault.Foreground(tcell.ColorRed),
	}
}

// Screen implements editor.UI on a tcell screen.
type Screen struct {
	screen tcell.Screen
	styles Styles

	mu sync.Mutex

	// per frame
	row   int
	index int
	path  []string

	focus     int
	focusRow  int
	lostFocus int
	scroll    int
	widgets   int
	pending   *tcell.EventKey
	editing   bool
	buf       []rune
	collapsed map[string]bool
}

// New wraps an initialised tcell screen.
func New(screen tcell.Screen) *Screen {
	return &Screen{
		screen:    screen,
		styles:    DefaultStyles(),
		lostFocus: -1,
		collapsed: make(map[string]bool),
	}
}

// SetStyles replaces the palette.
func (s *Screen) SetStyles(st Styles) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.styles = st
}

// Begin starts a frame.
func (s *Screen) Begin() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.screen.Clear()
	s.screen.HideCursor()
	s.row, s.index, s.path = 0, 0, s.path[:0]
}

// End finishes a frame and shows it.
func (s *Screen) End() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.widgets = s.index
	if s.widgets > 0 && s.focus >= s.widgets {
		s.focus = s.widgets - 1
	}
	_, h := s.screen.Size()
	if s.focusRow < s.scroll {
		s.scroll = s.focusRow
	} else if h > 0 && s.focusRow >= s.scroll+h {
		s.scroll = s.focusRow - h + 1
	}
	// Keys that reached no widget are dropped.
	s.pending = nil
	s.screen.Show()
}

// Handle processes one event. It returns true when the user asked to quit.
func (s *Screen) Handle(ev tcell.Event) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch ev := ev.(type) {
	case *tcell.EventResize:
		s.screen.Sync()
	case *tcell.EventKey:
		switch ev.Key() {
		case tcell.KeyCtrlC:
			return true
		case tcell.KeyEscape:
			if !s.editing {
				return true
			}
			s.blur()
		case tcell.KeyUp, tcell.KeyBacktab:
			s.moveFocus(-1)
		case tcell.KeyDown, tcell.KeyTab:
			s.moveFocus(1)
		default:
			s.pending = ev
		}
	}
	return false
}

func (s *Screen) moveFocus(delta int) {
	next := s.focus + delta
	if next < 0 || next >= s.widgets {
		return
	}
	s.blur()
	s.focus = next
}

func (s *Screen) blur() {
	s.lostFocus = s.focus
	s.editing = false
	s.buf = nil
}

// next allocates the widget slot for this call. It returns whether the
// widget is focused and the key meant for it, if any.
func (s *Screen) next() (focused bool, key *tcell.EventKey, lost bool) {
	i := s.index
	s.index++
	if i == s.lostFocus {
		lost = true
		s.lostFocus = -1
	}
	if i != s.focus {
		return false, nil, lost
	}
	s.focusRow = s.row
	key, s.pending = s.pending, nil
	return true, key, lost
}

func (s *Screen) line(text string, style tcell.Style) (int, int) {
	y := s.row - s.scroll
	s.row++
	x := 2 * len(s.path)
	return s.put(x, y, text, style), y
}

// put draws text grapheme by grapheme and returns the next column.
func (s *Screen) put(x, y int, text string, style tcell.Style) int {
	w, h := s.screen.Size()
	if y < 0 || y >= h {
		return x + uniseg.StringWidth(text)
	}
	g := uniseg.NewGraphemes(text)
	for g.Next() {
		if x >= w {
			break
		}
		runes := g.Runes()
		s.screen.SetContent(x, y, runes[0], runes[1:], style)
		x += g.Width()
	}
	return x
}

func (s *Screen) labelStyle(focused bool) tcell.Style {
	if focused {
		return s.styles.Focused
	}
	return s.styles.Normal
}

// Group draws a collapsible heading and, when open, its body indented.
func (s *Screen) Group(label string, body func()) {
	s.mu.Lock()
	focused, key, _ := s.next()
	id := strings.Join(append(s.path, label), "\x00")
	if key != nil {
		switch key.Key() {
		case tcell.KeyEnter, tcell.KeyLeft, tcell.KeyRight:
			s.collapsed[id] = !s.collapsed[id]
		case tcell.KeyRune:
			if key.Rune() == ' ' {
				s.collapsed[id] = !s.collapsed[id]
			}
		}
	}
	marker := "▾ "
	if s.collapsed[id] {
		marker = "▸ "
	}
	style := s.styles.Group
	if focused {
		style = s.styles.Focused.Bold(true)
	}
	s.line(marker+label, style)
	open := !s.collapsed[id]
	if open {
		s.path = append(s.path, label)
	}
	s.mu.Unlock()

	if !open {
		return
	}
	body()

	s.mu.Lock()
	s.path = s.path[:len(s.path)-1]
	s.mu.Unlock()
}

// TextInput draws a text field. Typing starts an edit buffer.
func (s *Screen) TextInput(label, text string, opts editor.TextOptions) editor.Response {
	s.mu.Lock()
	defer s.mu.Unlock()

	focused, key, lost := s.next()
	resp := editor.Response{LostFocus: lost}
	if key != nil {
		resp = s.editText(key, text, opts, resp)
	}
	shown := text
	if focused && s.editing {
		shown = string(s.buf)
	}
	if opts.Multiline {
		shown = strings.ReplaceAll(shown, "\n", "⏎")
	}

	x, y := s.line(label+": ", s.labelStyle(focused))
	valueStyle := s.styles.Normal
	if opts.Invalid != "" {
		valueStyle = s.styles.Invalid
	}
	end := s.put(x, y, shown, valueStyle)
	if focused && s.editing {
		s.screen.ShowCursor(end, y)
	}
	if opts.Invalid != "" {
		s.put(end+2, y, "! "+opts.Invalid, s.styles.Invalid)
	}
	return resp
}

func (s *Screen) editText(key *tcell.EventKey, text string, opts editor.TextOptions, resp editor.Response) editor.Response {
	begin := func() {
		if !s.editing {
			s.editing = true
			s.buf = []rune(text)
		}
	}
	switch key.Key() {
	case tcell.KeyPgUp, tcell.KeyPgDn:
		s.editing, s.buf = false, nil
		resp.Steps = 1
		if key.Key() == tcell.KeyPgDn {
			resp.Steps = -1
		}
	case tcell.KeyRune:
		begin()
		if opts.MaxLength > 0 && len(s.buf) >= opts.MaxLength {
			return resp
		}
		s.buf = append(s.buf, key.Rune())
		resp.Changed, resp.Text = true, string(s.buf)
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		begin()
		if len(s.buf) > 0 {
			s.buf = s.buf[:len(s.buf)-1]
			resp.Changed, resp.Text = true, string(s.buf)
		}
	case tcell.KeyCtrlU:
		begin()
		s.buf = s.buf[:0]
		resp.Changed, resp.Text = true, ""
	case tcell.KeyEnter:
		if opts.Multiline && s.editing {
			s.buf = append(s.buf, '\n')
			resp.Changed, resp.Text = true, string(s.buf)
			return resp
		}
		if s.editing {
			s.editing, s.buf = false, nil
			resp.LostFocus = true
		}
	}
	return resp
}

// Checkbox draws a toggle.
func (s *Screen) Checkbox(label string, checked bool) editor.Response {
	s.mu.Lock()
	defer s.mu.Unlock()

	focused, key, lost := s.next()
	resp := editor.Response{LostFocus: lost, Checked: checked}
	if key != nil && (key.Key() == tcell.KeyEnter || (key.Key() == tcell.KeyRune && key.Rune() == ' ')) {
		resp.Changed, resp.Checked = true, !checked
	}
	box := "[ ]"
	if resp.Checked {
		box = "[x]"
	}
	x, y := s.line(label+": ", s.labelStyle(focused))
	s.put(x, y, box, s.styles.Normal)
	return resp
}

// Choice draws a selector cycled with Left and Right.
func (s *Screen) Choice(label string, options []string, selected int) editor.Response {
	s.mu.Lock()
	defer s.mu.Unlock()

	focused, key, lost := s.next()
	resp := editor.Response{LostFocus: lost, Selected: selected}
	if key != nil && len(options) > 0 {
		step := 0
		switch key.Key() {
		case tcell.KeyLeft:
			step = -1
		case tcell.KeyRight, tcell.KeyEnter:
			step = 1
		case tcell.KeyRune:
			if key.Rune() == ' ' {
				step = 1
			}
		}
		if step != 0 {
			resp.Changed = true
			resp.Selected = (selected + step + len(options)) % len(options)
		}
	}
	name := ""
	if resp.Selected >= 0 && resp.Selected < len(options) {
		name = options[resp.Selected]
	}
	x, y := s.line(label+": ", s.labelStyle(focused))
	s.put(x, y, "< "+name+" >", s.styles.Normal)
	return resp
}
