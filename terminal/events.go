package terminal

import (
	"github.com/gdamore/tcell/v2"
)

// EventType classifies decoded input events
type EventType uint8

const (
	EventKey EventType = iota
	EventResize
	EventClosed
	EventOther
)

// Key identifies non-rune keys, KeyRune means Event.Rune carries the character
type Key uint8

const (
	KeyRune Key = iota
	KeyEscape
	KeyCtrlC
	KeyEnter
	KeyUp
	KeyDown
	KeyLeft
	KeyRight
	KeyUnknown
)

// Event is a decoded input event, independent of the backend event types
type Event struct {
	Type   EventType
	Key    Key
	Rune   rune
	Width  int
	Height int
}

var keyMap = map[tcell.Key]Key{
	tcell.KeyEscape: KeyEscape,
	tcell.KeyCtrlC:  KeyCtrlC,
	tcell.KeyEnter:  KeyEnter,
	tcell.KeyUp:     KeyUp,
	tcell.KeyDown:   KeyDown,
	tcell.KeyLeft:   KeyLeft,
	tcell.KeyRight:  KeyRight,
}

// translate converts a tcell event, nil means the screen was finalized
func translate(ev tcell.Event) Event {
	switch ev := ev.(type) {
	case nil:
		return Event{Type: EventClosed}
	case *tcell.EventKey:
		if ev.Key() == tcell.KeyRune {
			return Event{Type: EventKey, Key: KeyRune, Rune: ev.Rune()}
		}
		if k, ok := keyMap[ev.Key()]; ok {
			return Event{Type: EventKey, Key: k}
		}
		return Event{Type: EventKey, Key: KeyUnknown}
	case *tcell.EventResize:
		w, h := ev.Size()
		return Event{Type: EventResize, Width: w, Height: h}
	default:
		return Event{Type: EventOther}
	}
}
