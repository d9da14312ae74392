package relay

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	DefaultPostPause    = 5 * time.Second
	DefaultHistoryLimit = 20

	maxLoggedText = 80
)

type Options struct {
	// Channel is the destination channel name, without the leading '#'.
	Channel  string
	Interval time.Duration

	// PostPause is waited after every published status so the destination
	// can unfurl the link before the next one arrives. Zero means
	// DefaultPostPause, negative disables it.
	PostPause    time.Duration
	HistoryLimit int

	Sleep    SleepFunc
	Recorder Recorder
	Logger   logrus.FieldLogger
}

// Relay owns the poll-and-publish loop.
type Relay struct {
	timeline Timeline
	dest     Destination

	channel      string
	interval     time.Duration
	postPause    time.Duration
	historyLimit int
	sleep        SleepFunc
	rec          Recorder
	log          logrus.FieldLogger

	started   bool
	channelID string
}

func New(timeline Timeline, dest Destination, opts Options) (*Relay, error) {
	if timeline == nil {
		return nil, errors.New("relay: timeline is required")
	}
	if dest == nil {
		return nil, errors.New("relay: destination is required")
	}
	if opts.Channel == "" {
		return nil, errors.New("relay: channel is required")
	}

	r := &Relay{
		timeline:     timeline,
		dest:         dest,
		channel:      opts.Channel,
		interval:     opts.Interval,
		postPause:    opts.PostPause,
		historyLimit: opts.HistoryLimit,
		sleep:        opts.Sleep,
		rec:          opts.Recorder,
		log:          opts.Logger,
	}
	if r.interval <= 0 {
		r.interval = time.Minute
	}
	switch {
	case r.postPause == 0:
		r.postPause = DefaultPostPause
	case r.postPause < 0:
		r.postPause = 0
	}
	if r.historyLimit <= 0 {
		r.historyLimit = DefaultHistoryLimit
	}
	if r.sleep == nil {
		r.sleep = Sleep
	}
	if r.rec == nil {
		r.rec = nopRecorder{}
	}
	if r.log == nil {
		l := logrus.New()
		l.SetLevel(logrus.PanicLevel)
		r.log = l
	}
	return r, nil
}

// Start resolves the destination channel. A channel that does not exist only
// disables dedup; a failed lookup is returned.
func (r *Relay) Start(ctx context.Context) error {
	id, ok, err := r.dest.ResolveChannel(ctx, r.channel)
	if err != nil {
		return fmt.Errorf("resolve channel %q: %w", r.channel, err)
	}
	r.started = true
	if !ok || id == "" {
		r.channelID = ""
		r.log.WithField("channel", r.channel).Warn("Channel not found, posting without duplicate check.")
		return nil
	}
	r.channelID = id
	r.log.WithFields(logrus.Fields{"channel": r.channel, "channel_id": id}).Debug("Resolved channel.")
	return nil
}

// ChannelID is the resolved destination channel, or "" if it was not found.
func (r *Relay) ChannelID() string { return r.channelID }

// Poll fetches statuses newer than sinceID, publishes the ones not already in
// the channel oldest-first, and returns the advanced cursor. On a publish
// error the cursor reached so far is returned with the error.
func (r *Relay) Poll(ctx context.Context, sinceID int64) (int64, error) {
	r.rec.Polled()

	statuses, err := r.timeline.HomeTimeline(ctx, sinceID)
	if err != nil {
		return sinceID, fmt.Errorf("fetch timeline: %w", err)
	}
	if len(statuses) == 0 {
		r.log.Info("No new twitter posts.")
		return sinceID, nil
	}

	r.rec.Fetched(len(statuses))
	r.log.Infof("Got %d posts from Twitter.", len(statuses))

	var previous map[string]struct{}
	if r.channelID != "" {
		history, err := r.dest.RecentMessages(ctx, r.channelID, r.historyLimit)
		if err != nil {
			return sinceID, fmt.Errorf("fetch channel history: %w", err)
		}
		previous = previousSet(history)
	}

	batch := make([]Status, 0, len(statuses))
	for _, s := range statuses {
		if s.ID > sinceID {
			batch = append(batch, s)
		}
	}
	sort.SliceStable(batch, func(i, j int) bool { return batch[i].ID < batch[j].ID })

	cursor := sinceID
	for _, s := range batch {
		entry := r.log.WithFields(statusFields(s))
		link := StatusLink(s)

		if _, dup := previous[link]; dup {
			entry.Infof("Status from %s already in %s, skipping.", s.User.Name, r.channel)
			r.rec.Skipped()
		} else {
			msg := Message{
				Channel:  r.target(),
				Text:     link,
				Username: s.User.Name,
				IconURL:  s.User.ProfileImageURL,
			}
			if err := r.dest.Post(ctx, msg); err != nil {
				return cursor, fmt.Errorf("post status %d: %w", s.ID, err)
			}
			r.rec.Published()
			entry.Infof("Posted status from %s to %s.", s.User.Name, r.channel)
			if r.postPause > 0 {
				if err := r.sleep(ctx, r.postPause); err != nil {
					return advance(cursor, s.ID), err
				}
			}
		}

		cursor = advance(cursor, s.ID)
		r.rec.Cursor(cursor)
	}
	return cursor, nil
}

// Run resolves the channel and then polls every interval until ctx is done or
// a step fails.
func (r *Relay) Run(ctx context.Context) error {
	if !r.started {
		if err := r.Start(ctx); err != nil {
			return err
		}
	}

	var cursor int64
	for {
		next, err := r.Poll(ctx, cursor)
		cursor = next
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if err := r.sleep(ctx, r.interval); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
	}
}

// RunOnce resolves the channel and performs a single poll without a cursor.
func (r *Relay) RunOnce(ctx context.Context) (int64, error) {
	if !r.started {
		if err := r.Start(ctx); err != nil {
			return 0, err
		}
	}
	return r.Poll(ctx, 0)
}

// target prefers the resolved channel ID and falls back to the name.
func (r *Relay) target() string {
	if r.channelID != "" {
		return r.channelID
	}
	return r.channel
}

// statusFields describes a status for the per-item log lines.
func statusFields(s Status) logrus.Fields {
	f := logrus.Fields{"user": s.User.Name, "status_id": s.ID}
	if text := excerpt(s.Text, maxLoggedText); text != "" {
		f["text"] = strconv.Quote(text)
	}
	if !s.CreatedAt.IsZero() {
		f["created_at"] = s.CreatedAt.UTC().Format(time.RFC3339)
	}
	return f
}

func advance(cursor, id int64) int64 {
	if id > cursor {
		return id
	}
	return cursor
}
