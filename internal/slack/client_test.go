package slack

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"twitter-on-slack/internal/relay"
)

type fakeSlack struct {
	mu    sync.Mutex
	forms map[string][]url.Values
	pages map[string]map[string]any
}

func (f *fakeSlack) handler(w http.ResponseWriter, r *http.Request) {
	_ = r.ParseForm()
	method := r.URL.Path[1:]

	f.mu.Lock()
	f.forms[method] = append(f.forms[method], r.Form)
	f.mu.Unlock()

	var body any
	switch method {
	case "conversations.list":
		body = f.pages[r.Form.Get("cursor")]
	case "conversations.history":
		body = map[string]any{
			"ok": true,
			"messages": []map[string]any{
				{"type": "message", "text": "<http://twitter.com/jack/status/20>", "ts": "2.0"},
				{"type": "message", "text": "hello", "ts": "1.0"},
			},
			"has_more": false,
		}
	case "chat.postMessage":
		if r.Form.Get("channel") == "C404" {
			body = map[string]any{"ok": false, "error": "channel_not_found"}
			break
		}
		body = map[string]any{"ok": true, "channel": r.Form.Get("channel"), "ts": "3.0"}
	default:
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(body)
}

func newFake(t *testing.T) (*fakeSlack, *Client) {
	t.Helper()
	f := &fakeSlack{
		forms: map[string][]url.Values{},
		pages: map[string]map[string]any{
			"": {
				"ok":                true,
				"channels":          []map[string]any{{"id": "C0", "name": "general"}},
				"response_metadata": map[string]any{"next_cursor": "page2"},
			},
			"page2": {
				"ok":                true,
				"channels":          []map[string]any{{"id": "C1", "name": "tweets"}},
				"response_metadata": map[string]any{"next_cursor": ""},
			},
		},
	}
	srv := httptest.NewServer(http.HandlerFunc(f.handler))
	t.Cleanup(srv.Close)
	return f, NewClient(srv.Client(), "xoxb-test", srv.URL+"/")
}

func TestResolveChannel_FollowsCursor(t *testing.T) {
	f, c := newFake(t)

	id, ok, err := c.ResolveChannel(context.Background(), "#tweets")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "C1", id)

	calls := f.forms["conversations.list"]
	require.Len(t, calls, 2)
	assert.Equal(t, "1000", calls[0].Get("limit"))
	assert.Equal(t, "page2", calls[1].Get("cursor"))
}

func TestResolveChannel_NotFound(t *testing.T) {
	_, c := newFake(t)

	id, ok, err := c.ResolveChannel(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, id)
}

func TestResolveChannel_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":false,"error":"invalid_auth"}`))
	}))
	t.Cleanup(srv.Close)

	c := NewClient(srv.Client(), "bad", srv.URL+"/")
	_, _, err := c.ResolveChannel(context.Background(), "tweets")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid_auth")
}

func TestRecentMessages(t *testing.T) {
	f, c := newFake(t)

	texts, err := c.RecentMessages(context.Background(), "C1", 20)
	require.NoError(t, err)
	assert.Equal(t, []string{"<http://twitter.com/jack/status/20>", "hello"}, texts)

	calls := f.forms["conversations.history"]
	require.Len(t, calls, 1)
	assert.Equal(t, "C1", calls[0].Get("channel"))
	assert.Equal(t, "20", calls[0].Get("limit"))
}

func TestPost_SetsAuthorIdentity(t *testing.T) {
	f, c := newFake(t)

	err := c.Post(context.Background(), relay.Message{
		Channel:  "C1",
		Text:     "http://twitter.com/jack/status/20",
		Username: "jack",
		IconURL:  "https://img/jack.png",
	})
	require.NoError(t, err)

	calls := f.forms["chat.postMessage"]
	require.Len(t, calls, 1)
	assert.Equal(t, "C1", calls[0].Get("channel"))
	assert.Equal(t, "http://twitter.com/jack/status/20", calls[0].Get("text"))
	assert.Equal(t, "jack", calls[0].Get("username"))
	assert.Equal(t, "https://img/jack.png", calls[0].Get("icon_url"))
}

func TestPost_Error(t *testing.T) {
	_, c := newFake(t)

	err := c.Post(context.Background(), relay.Message{Channel: "C404", Text: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "channel_not_found")
}
