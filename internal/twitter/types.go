package twitter

import (
	"strconv"
	"strings"
	"time"

	"twitter-on-slack/internal/relay"
)

type apiUser struct {
	Name                 string `json:"name"`
	ScreenName           string `json:"screen_name"`
	ProfileImageURL      string `json:"profile_image_url"`
	ProfileImageURLHTTPS string `json:"profile_image_url_https"`
}

type apiStatus struct {
	ID        int64   `json:"id"`
	IDStr     string  `json:"id_str"`
	FullText  string  `json:"full_text"`
	Text      string  `json:"text"`
	CreatedAt string  `json:"created_at"`
	User      apiUser `json:"user"`
}

func (s apiStatus) toStatus() (relay.Status, bool) {
	id := s.ID
	if v := strings.TrimSpace(s.IDStr); v != "" {
		if parsed, err := strconv.ParseInt(v, 10, 64); err == nil {
			id = parsed
		}
	}
	if id <= 0 {
		return relay.Status{}, false
	}

	avatar := strings.TrimSpace(s.User.ProfileImageURLHTTPS)
	if avatar == "" {
		avatar = strings.TrimSpace(s.User.ProfileImageURL)
	}
	text := strings.TrimSpace(s.FullText)
	if text == "" {
		text = strings.TrimSpace(s.Text)
	}

	return relay.Status{
		ID: id,
		User: relay.User{
			Name:            strings.TrimSpace(s.User.Name),
			ScreenName:      strings.TrimSpace(s.User.ScreenName),
			ProfileImageURL: avatar,
		},
		Text:      text,
		CreatedAt: createdAt(s.CreatedAt),
	}, true
}

func createdAt(v string) time.Time {
	s := strings.TrimSpace(v)
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RubyDate, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
