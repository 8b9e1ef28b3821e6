// Package notice shows short user-facing status messages, the terminal
// counterpart of an editor's toast notifications.
package notice

import (
	"fmt"
	"io"
	"sync"
)

// Notifier surfaces transient messages to the user.
type Notifier interface {
	// Show displays a one-off message.
	Show(msg string)
	// Loading displays a message that stays until hide is called.
	Loading(msg string) (hide func())
}

// Terminal writes notices to w, prefixed with the program name.
type Terminal struct {
	w      io.Writer
	prefix string
	mu     sync.Mutex
}

func NewTerminal(w io.Writer, prefix string) *Terminal {
	return &Terminal{w: w, prefix: prefix}
}

func (t *Terminal) Show(msg string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(t.w, "%s: %s\n", t.prefix, msg)
}

// Loading prints msg. A printed line cannot be retracted, so hide is a no-op.
func (t *Terminal) Loading(msg string) func() {
	t.Show(msg)
	return func() {}
}

// Recorder keeps notices in memory.
type Recorder struct {
	mu       sync.Mutex
	Messages []string
	open     int
}

func (r *Recorder) Show(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Messages = append(r.Messages, msg)
}

func (r *Recorder) Loading(msg string) func() {
	r.mu.Lock()
	r.Messages = append(r.Messages, msg)
	r.open++
	r.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			r.open--
			r.mu.Unlock()
		})
	}
}

// Open returns how many loading notices have not been hidden.
func (r *Recorder) Open() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.open
}

// Last returns the most recent message, or "".
func (r *Recorder) Last() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.Messages) == 0 {
		return ""
	}
	return r.Messages[len(r.Messages)-1]
}
