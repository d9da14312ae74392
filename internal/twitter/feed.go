package twitter

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"twitter-on-slack/internal/relay"
)

var statusPathRegex = regexp.MustCompile(`/([A-Za-z0-9_]{1,15})/status(?:es)?/([0-9]+)`)

// FeedClient reads a timeline from an RSS or Atom feed whose item links point
// at status pages (Nitter and similar bridges).
type FeedClient struct {
	httpClient *http.Client
	feedURL    string
	parser     *gofeed.Parser
}

func NewFeedClient(httpClient *http.Client, feedURL string) *FeedClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &FeedClient{
		httpClient: httpClient,
		feedURL:    strings.TrimSpace(feedURL),
		parser:     gofeed.NewParser(),
	}
}

// HomeTimeline fetches the feed and keeps the items newer than sinceID. The
// feed has no server-side cursor, so filtering happens here.
func (c *FeedClient) HomeTimeline(ctx context.Context, sinceID int64) ([]relay.Status, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.feedURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml;q=0.9, */*;q=0.8")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		msg := strings.TrimSpace(string(b))
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, fmt.Errorf("feed status=%d: %s", resp.StatusCode, msg)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 5*1024*1024))
	if err != nil {
		return nil, err
	}
	feed, err := c.parser.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	return feedStatuses(feed, sinceID), nil
}

func feedStatuses(feed *gofeed.Feed, sinceID int64) []relay.Status {
	if feed == nil {
		return nil
	}
	avatar := ""
	if feed.Image != nil {
		avatar = strings.TrimSpace(feed.Image.URL)
	}

	out := make([]relay.Status, 0, len(feed.Items))
	for _, it := range feed.Items {
		if it == nil {
			continue
		}
		handle, id, ok := parseStatusLink(it.Link)
		if !ok {
			handle, id, ok = parseStatusLink(it.GUID)
		}
		if !ok || id <= sinceID {
			continue
		}

		st := relay.Status{
			ID: id,
			User: relay.User{
				Name:            itemAuthorName(it, handle),
				ScreenName:      handle,
				ProfileImageURL: avatar,
			},
			Text: itemText(it),
		}
		if it.PublishedParsed != nil {
			st.CreatedAt = *it.PublishedParsed
		}
		out = append(out, st)
	}
	return out
}

func parseStatusLink(raw string) (handle string, id int64, ok bool) {
	m := statusPathRegex.FindStringSubmatch(strings.TrimSpace(raw))
	if m == nil {
		return "", 0, false
	}
	id, err := strconv.ParseInt(m[2], 10, 64)
	if err != nil || id <= 0 {
		return "", 0, false
	}
	return m[1], id, true
}

func itemAuthorName(it *gofeed.Item, handle string) string {
	if it.Author != nil && strings.TrimSpace(it.Author.Name) != "" {
		return strings.TrimSpace(it.Author.Name)
	}
	for _, a := range it.Authors {
		if a != nil && strings.TrimSpace(a.Name) != "" {
			return strings.TrimSpace(a.Name)
		}
	}
	if it.DublinCoreExt != nil {
		for _, c := range it.DublinCoreExt.Creator {
			if strings.TrimSpace(c) != "" {
				return strings.TrimSpace(c)
			}
		}
	}
	return handle
}

// itemText is the plain text of the item body, falling back to its title.
func itemText(it *gofeed.Item) string {
	html := it.Content
	if strings.TrimSpace(html) == "" {
		html = it.Description
	}
	if text := htmlText(html); text != "" {
		return text
	}
	return strings.TrimSpace(it.Title)
}

func htmlText(fragment string) string {
	if strings.TrimSpace(fragment) == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return ""
	}
	doc.Find("br").ReplaceWithHtml(" ")
	return strings.Join(strings.Fields(doc.Text()), " ")
}
