package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	EnvConsumerKey       = "TWITTER_CONSUMER_KEY"
	EnvConsumerSecret    = "TWITTER_CONSUMER_SECRET"
	EnvAccessToken       = "TWITTER_ACCESS_TOKEN"
	EnvAccessTokenSecret = "TWITTER_ACCESS_TOKEN_SECRET"
	EnvSlackToken        = "SLACK_API_TOKEN"
	EnvChannel           = "TWITTER_ON_SLACK_CHANNEL"
	EnvWaitTime          = "TWITTER_ON_SLACK_WAIT_TIME"
	EnvSource            = "TWITTER_ON_SLACK_SOURCE"
	EnvFeedURL           = "TWITTER_ON_SLACK_FEED_URL"
)

const (
	SourceAPI  = "api"
	SourceFeed = "feed"
)

var (
	ErrMissingEnv = errors.New("missing required env var")
	ErrInvalidEnv = errors.New("invalid env var")
)

// MissingEnvError names the first required variable that was not set.
type MissingEnvError struct {
	Name string
}

func (e *MissingEnvError) Error() string {
	return fmt.Sprintf("missing required env var: %s", e.Name)
}

func (e *MissingEnvError) Unwrap() error { return ErrMissingEnv }

// InvalidEnvError reports a variable that was set to an unusable value.
type InvalidEnvError struct {
	Name   string
	Value  string
	Reason string
}

func (e *InvalidEnvError) Error() string {
	return fmt.Sprintf("invalid env var %s=%q: %s", e.Name, e.Value, e.Reason)
}

func (e *InvalidEnvError) Unwrap() error { return ErrInvalidEnv }

// Keys holds everything read from the environment at startup.
type Keys struct {
	Source string

	ConsumerKey       string
	ConsumerSecret    string
	AccessToken       string
	AccessTokenSecret string
	FeedURL           string

	SlackToken string
	Channel    string
	WaitTime   time.Duration
}

// LookupFunc matches os.LookupEnv.
type LookupFunc func(string) (string, bool)

// RetrieveKeys reads the required variables from the process environment.
func RetrieveKeys() (Keys, error) {
	return RetrieveKeysFrom(os.LookupEnv)
}

// RetrieveKeysFrom reads the required variables through lookup. It fails on the
// first absent one; there are no defaults for required values.
func RetrieveKeysFrom(lookup LookupFunc) (Keys, error) {
	if lookup == nil {
		lookup = os.LookupEnv
	}

	keys := Keys{Source: SourceAPI}
	if v, ok := lookup(EnvSource); ok && strings.TrimSpace(v) != "" {
		keys.Source = strings.ToLower(strings.TrimSpace(v))
	}

	var required []string
	switch keys.Source {
	case SourceAPI:
		required = []string{EnvConsumerKey, EnvConsumerSecret, EnvAccessToken, EnvAccessTokenSecret}
	case SourceFeed:
		required = []string{EnvFeedURL}
	default:
		return Keys{}, &InvalidEnvError{Name: EnvSource, Value: keys.Source, Reason: "must be api or feed"}
	}
	required = append(required, EnvSlackToken, EnvChannel, EnvWaitTime)

	values := make(map[string]string, len(required))
	for _, name := range required {
		v, ok := lookup(name)
		if !ok {
			return Keys{}, &MissingEnvError{Name: name}
		}
		values[name] = v
	}

	keys.ConsumerKey = values[EnvConsumerKey]
	keys.ConsumerSecret = values[EnvConsumerSecret]
	keys.AccessToken = values[EnvAccessToken]
	keys.AccessTokenSecret = values[EnvAccessTokenSecret]
	keys.FeedURL = strings.TrimSpace(values[EnvFeedURL])
	keys.SlackToken = values[EnvSlackToken]
	keys.Channel = strings.TrimPrefix(strings.TrimSpace(values[EnvChannel]), "#")

	raw := strings.TrimSpace(values[EnvWaitTime])
	secs, err := strconv.Atoi(raw)
	if err != nil || secs <= 0 {
		return Keys{}, &InvalidEnvError{Name: EnvWaitTime, Value: raw, Reason: "must be a positive number of seconds"}
	}
	keys.WaitTime = time.Duration(secs) * time.Second

	if keys.Source == SourceFeed {
		if err := validateHTTPURL(keys.FeedURL); err != nil {
			return Keys{}, &InvalidEnvError{Name: EnvFeedURL, Value: keys.FeedURL, Reason: err.Error()}
		}
	}

	return keys, nil
}
