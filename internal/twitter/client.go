package twitter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/dghubble/oauth1"

	"twitter-on-slack/internal/relay"
)

const (
	DefaultAPIBase = "https://api.twitter.com/1.1"
	// maxCount is the largest page statuses/home_timeline serves.
	maxCount = 200
	// maxPages bounds one poll; the API serves at most 800 timeline items.
	maxPages = 4
)

type Credentials struct {
	ConsumerKey       string
	ConsumerSecret    string
	AccessToken       string
	AccessTokenSecret string
}

// Client reads the authenticated user's home timeline over the REST API.
type Client struct {
	httpClient *http.Client
	apiBase    string
}

// NewClient signs every request made through base with OAuth 1.0a user
// credentials. apiBase may be empty for DefaultAPIBase.
func NewClient(base *http.Client, creds Credentials, apiBase string) *Client {
	if base == nil {
		base = http.DefaultClient
	}
	ctx := context.WithValue(context.Background(), oauth1.HTTPClient, base)
	cfg := oauth1.NewConfig(creds.ConsumerKey, creds.ConsumerSecret)
	signed := cfg.Client(ctx, oauth1.NewToken(creds.AccessToken, creds.AccessTokenSecret))
	signed.Timeout = base.Timeout

	apiBase = strings.TrimRight(strings.TrimSpace(apiBase), "/")
	if apiBase == "" {
		apiBase = DefaultAPIBase
	}
	return &Client{httpClient: signed, apiBase: apiBase}
}

// HomeTimeline returns statuses strictly newer than sinceID, newest first as
// the API sends them. sinceID 0 fetches the latest page only. With a cursor,
// older pages are followed with max_id until the cursor is reached, up to
// maxPages requests.
func (c *Client) HomeTimeline(ctx context.Context, sinceID int64) ([]relay.Status, error) {
	var out []relay.Status
	var maxID int64
	for page := 0; page < maxPages; page++ {
		raw, err := c.homeTimelinePage(ctx, sinceID, maxID)
		if err != nil {
			return nil, err
		}

		var oldest int64
		for _, s := range raw {
			st, ok := s.toStatus()
			if !ok {
				continue
			}
			if oldest == 0 || st.ID < oldest {
				oldest = st.ID
			}
			if st.ID <= sinceID || (maxID > 0 && st.ID > maxID) {
				continue
			}
			out = append(out, st)
		}

		// Stop at the cursor, on an empty page, or when a page makes no progress.
		if sinceID == 0 || oldest == 0 || oldest-1 <= sinceID {
			break
		}
		if maxID > 0 && oldest > maxID {
			break
		}
		maxID = oldest - 1
	}
	return out, nil
}

func (c *Client) homeTimelinePage(ctx context.Context, sinceID, maxID int64) ([]apiStatus, error) {
	u, err := url.Parse(c.apiBase + "/statuses/home_timeline.json")
	if err != nil {
		return nil, err
	}
	q := u.Query()
	q.Set("count", strconv.Itoa(maxCount))
	q.Set("tweet_mode", "extended")
	if sinceID > 0 {
		q.Set("since_id", strconv.FormatInt(sinceID, 10))
	}
	if maxID > 0 {
		q.Set("max_id", strconv.FormatInt(maxID, 10))
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8*1024*1024))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, parseAPIError(resp.StatusCode, body)
	}

	var raw []apiStatus
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decode home timeline: %w", err)
	}
	return raw, nil
}
