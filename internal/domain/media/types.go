package media

import (
	"context"
	"errors"
)

// ErrIOFailure covers temp file and upload failures.
var ErrIOFailure = errors.New("media io failure")

// Message is an inbound chat message as reported by the engine.
type Message struct {
	ID             string `json:"id"`
	ChatID         string `json:"chatId"`
	IsGroup        bool   `json:"isGroupMsg"`
	Type           string `json:"type"`
	ClientURL      string `json:"clientUrl"`
	MediaKey       string `json:"mediaKey"`
	MimeType       string `json:"mimetype"`
	Caption        string `json:"caption"`
	SenderName     string `json:"senderName"`
	Timestamp      int64  `json:"timestamp"`
	AlbumParentKey string `json:"albumParentKey,omitempty"`
}

// IsGroupImage reports whether the message is a candidate for relay.
func (m Message) IsGroupImage() bool {
	return m.IsGroup && m.Type == "image" && m.ClientURL != ""
}

// GroupImage is the backend payload for a relayed group image.
type GroupImage struct {
	SenderName     string  `json:"sender_name"`
	Content        string  `json:"content"`
	ImageURL       string  `json:"image_url"`
	Timestamp      int64   `json:"timestamp"`
	MediaType      string  `json:"media_type"`
	AlbumParentKey *string `json:"album_parent_key"`
}

// NewGroupImage builds the backend payload for a relayed message.
func NewGroupImage(msg Message, url string) GroupImage {
	sender := msg.SenderName
	if sender == "" {
		sender = "Unknown"
	}

	var album *string
	if msg.AlbumParentKey != "" {
		key := msg.AlbumParentKey
		album = &key
	}

	return GroupImage{
		SenderName:     sender,
		Content:        msg.Caption,
		ImageURL:       url,
		Timestamp:      msg.Timestamp * 1000,
		MediaType:      "image",
		AlbumParentKey: album,
	}
}

// Fetcher downloads the encrypted payload behind a client URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Uploader stores a local file and returns its public URL.
type Uploader interface {
	Upload(ctx context.Context, path, folder string) (string, error)
}

// Notifier tells the backend about a relayed image.
type Notifier interface {
	GroupImage(ctx context.Context, chatID string, img GroupImage) error
}

// AllowList answers whether a session relays a given group.
type AllowList interface {
	HasGroup(sessionID, groupID string) bool
}

// Publisher pushes an event to the session's push channel room.
type Publisher interface {
	Publish(sessionID, kind string, data any)
}
