package slack

import (
	"context"
	"net/http"
	"strings"

	"github.com/slack-go/slack"

	"twitter-on-slack/internal/relay"
)

// listPageSize matches the largest page conversations.list serves.
const listPageSize = 1000

// Client is the relay's destination: a Slack workspace reached through the
// Web API with a bot token.
type Client struct {
	api *slack.Client
}

// NewClient builds a Web API client. apiURL is only set by tests and must end
// with a slash.
func NewClient(httpClient *http.Client, token, apiURL string) *Client {
	opts := []slack.Option{}
	if httpClient != nil {
		opts = append(opts, slack.OptionHTTPClient(httpClient))
	}
	if strings.TrimSpace(apiURL) != "" {
		opts = append(opts, slack.OptionAPIURL(apiURL))
	}
	return &Client{api: slack.New(token, opts...)}
}

// ResolveChannel walks conversations.list until a channel named name shows up.
func (c *Client) ResolveChannel(ctx context.Context, name string) (string, bool, error) {
	name = strings.TrimPrefix(strings.TrimSpace(name), "#")
	if name == "" {
		return "", false, nil
	}

	cursor := ""
	for {
		channels, next, err := c.api.GetConversationsContext(ctx, &slack.GetConversationsParameters{
			Cursor:          cursor,
			Limit:           listPageSize,
			ExcludeArchived: true,
		})
		if err != nil {
			return "", false, err
		}
		for _, ch := range channels {
			if ch.Name == name {
				return ch.ID, true, nil
			}
		}
		if next == "" {
			return "", false, nil
		}
		cursor = next
	}
}

// RecentMessages returns the text of the newest limit messages in channelID.
func (c *Client) RecentMessages(ctx context.Context, channelID string, limit int) ([]string, error) {
	resp, err := c.api.GetConversationHistoryContext(ctx, &slack.GetConversationHistoryParameters{
		ChannelID: channelID,
		Limit:     limit,
	})
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(resp.Messages))
	for _, m := range resp.Messages {
		out = append(out, m.Text)
	}
	return out, nil
}

// Post sends msg as the status author, overriding the bot's name and icon.
func (c *Client) Post(ctx context.Context, msg relay.Message) error {
	opts := []slack.MsgOption{slack.MsgOptionText(msg.Text, false)}
	if strings.TrimSpace(msg.Username) != "" {
		opts = append(opts, slack.MsgOptionUsername(msg.Username))
	}
	if strings.TrimSpace(msg.IconURL) != "" {
		opts = append(opts, slack.MsgOptionIconURL(msg.IconURL))
	}
	_, _, err := c.api.PostMessageContext(ctx, msg.Channel, opts...)
	return err
}
