package term

import (
	"context"

	"github.com/gdamore/tcell/v2"

	"github.com/mesh-intelligence/cfgtree/pkg/editor"
	"github.com/mesh-intelligence/cfgtree/pkg/tree"
)

// Run draws the store with ed until the user quits or ctx is done. The
// caller owns screen: it must be initialised before and finalised after.
// onChange, when set, runs after every frame that changed a value.
func Run(ctx context.Context, screen tcell.Screen, ed *editor.Editor, store *tree.Store, onChange func() error) error {
	s := New(screen)
	events := make(chan tcell.Event)
	done := make(chan struct{})
	defer close(done)
	go func() {
		for {
			ev := screen.PollEvent()
			if ev == nil {
				close(events)
				return
			}
			select {
			case events <- ev:
			case <-done:
				return
			}
		}
	}()

	for {
		changed := drawFrame(s, ed, store)
		if changed && onChange != nil {
			if err := onChange(); err != nil {
				return err
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if s.Handle(ev) {
				return nil
			}
		}
	}
}

// maxPasses bounds the redraws of one frame.
const maxPasses = 3

// drawFrame draws the store, again while the editor reports the frame out
// of date. Keys are consumed by the first pass only.
func drawFrame(s *Screen, ed *editor.Editor, store *tree.Store) bool {
	changed := false
	for range maxPasses {
		s.Begin()
		if ed.Show(s, store) {
			changed = true
		}
		s.End()
		if !ed.Stale() {
			break
		}
	}
	return changed
}
