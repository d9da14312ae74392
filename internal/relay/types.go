package relay

import (
	"context"
	"time"
)

// User is the author of a Status.
type User struct {
	Name            string
	ScreenName      string
	ProfileImageURL string
}

// Status is one timeline item. IDs are assigned by the source and grow
// monotonically.
type Status struct {
	ID        int64
	User      User
	Text      string
	CreatedAt time.Time
}

// Message is what gets posted to the destination channel.
type Message struct {
	Channel  string
	Text     string
	Username string
	IconURL  string
}

// Timeline fetches statuses strictly newer than sinceID. sinceID 0 means no cursor.
type Timeline interface {
	HomeTimeline(ctx context.Context, sinceID int64) ([]Status, error)
}

// Destination is the channel statuses are republished to.
type Destination interface {
	// ResolveChannel maps a channel name to its ID. ok is false when no
	// channel with that name exists.
	ResolveChannel(ctx context.Context, name string) (id string, ok bool, err error)
	// RecentMessages returns the text of up to limit of the newest messages.
	RecentMessages(ctx context.Context, channelID string, limit int) ([]string, error)
	Post(ctx context.Context, msg Message) error
}

// Recorder receives loop counters.
type Recorder interface {
	Polled()
	Fetched(n int)
	Published()
	Skipped()
	Cursor(id int64)
}

type nopRecorder struct{}

func (nopRecorder) Polled()      {}
func (nopRecorder) Fetched(int)  {}
func (nopRecorder) Published()   {}
func (nopRecorder) Skipped()     {}
func (nopRecorder) Cursor(int64) {}

// SleepFunc blocks for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep is the default SleepFunc.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
