package guard

import (
	"errors"
	"sync"
)

// ErrBusy is returned by TryAcquire when the slot is already held.
var ErrBusy = errors.New("operation already in flight")

// SlotLock is a non-blocking single-flight lock. One guards the text
// stream and one guards the image job per conversation; a second
// request is rejected up front rather than queued.
type SlotLock struct {
	mu   sync.Mutex
	held bool
}

// TryAcquire takes the slot or fails immediately with ErrBusy. On
// success it returns the release func; releasing twice is a no-op.
func (l *SlotLock) TryAcquire() (release func(), err error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.held {
		return nil, ErrBusy
	}
	l.held = true

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			l.held = false
			l.mu.Unlock()
		})
	}, nil
}

// Held reports whether the slot is currently taken. Advisory readers
// (hydration, periodic refresh) use it to skip work while a turn is
// busy.
func (l *SlotLock) Held() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.held
}
