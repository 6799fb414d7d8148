package chat

import (
	"context"
	"strings"
	"sync"
	"time"
)

// AwaitGreeting listens for an unsolicited reply sent right after connecting
// and returns its text. It gives up after wait, returning what it has. It
// must run before the first Submit; otherwise a late greeting and its
// sentinel would be taken as the reply to that request.
func AwaitGreeting(ctx context.Context, t Transport, wait time.Duration) (string, error) {
	var (
		mu   sync.Mutex
		text strings.Builder
		once sync.Once
		done = make(chan struct{})
	)
	l, err := t.Attach(func(payload string) {
		f := DecodeFrame(payload)
		switch f.Kind {
		case FrameSentinel:
			once.Do(func() { close(done) })
		case FrameResponse, FrameError, FrameFragment:
			mu.Lock()
			text.WriteString(f.Text)
			mu.Unlock()
		case FrameUnknown:
		}
	})
	if err != nil {
		return "", err
	}
	defer l.Detach()

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-done:
	case <-timer.C:
	case <-ctx.Done():
		return "", ctx.Err()
	}

	mu.Lock()
	defer mu.Unlock()
	return text.String(), nil
}
