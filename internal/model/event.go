// Package model defines data structures for the bot core.
package model

// EventKind classifies an inbound webhook event.
type EventKind string

const (
	EventImageMessage EventKind = "image_message"
	EventTextMessage  EventKind = "text_message"
	EventMemberJoined EventKind = "member_joined"
	EventFollow       EventKind = "follow"
)

// SourceType tells where an event originated.
type SourceType string

const (
	SourceUser  SourceType = "user"
	SourceGroup SourceType = "group"
	SourceRoom  SourceType = "room"
)

// Source identifies the chat an event came from. UserID is the sender; for
// group and room sources GroupID or RoomID carries the shared chat id.
type Source struct {
	Type    SourceType
	UserID  string
	GroupID string
	RoomID  string
}

// IsDirect reports whether the event came from a one-on-one chat.
func (s Source) IsDirect() bool {
	return s.Type == SourceUser
}

// ChatID returns the identifier push messages should target.
func (s Source) ChatID() string {
	switch s.Type {
	case SourceGroup:
		return s.GroupID
	case SourceRoom:
		return s.RoomID
	default:
		return s.UserID
	}
}

// InboundEvent is one normalized webhook event. The reply token is single-use
// and short-lived; it must be consumed at most once.
type InboundEvent struct {
	Kind       EventKind
	ReplyToken string
	Source     Source

	// MessageID is set for image messages.
	MessageID string
	// Text is set for text messages.
	Text string
	// JoinedUserIDs is set for member-joined events.
	JoinedUserIDs []string
}

// Profile is a platform user profile.
type Profile struct {
	UserID        string `json:"userId"`
	DisplayName   string `json:"displayName"`
	PictureURL    string `json:"pictureUrl,omitempty"`
	StatusMessage string `json:"statusMessage,omitempty"`
}
