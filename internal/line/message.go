package line

// Message is one outbound platform message. Reply and push bodies always
// carry a list of messages, even for a single one.
type Message interface {
	message()
}

// TextMessage is a plain text message, optionally with quick-reply buttons.
type TextMessage struct {
	Type       string      `json:"type"`
	Text       string      `json:"text"`
	QuickReply *QuickReply `json:"quickReply,omitempty"`
}

func (TextMessage) message() {}

// QuickReply is the quick-reply affordance attached to a message.
type QuickReply struct {
	Items []QuickReplyItem `json:"items"`
}

// QuickReplyItem is one quick-reply button.
type QuickReplyItem struct {
	Type   string        `json:"type"`
	Action MessageAction `json:"action"`
}

// MessageAction is a button action that sends a literal text message when
// tapped.
type MessageAction struct {
	Type  string `json:"type"`
	Label string `json:"label"`
	Text  string `json:"text"`
}

// MentionMessage is a textV2 message with an inline {user} mention
// substitution.
type MentionMessage struct {
	Type         string                  `json:"type"`
	Text         string                  `json:"text"`
	Substitution map[string]Substitution `json:"substitution"`
}

func (MentionMessage) message() {}

// Substitution maps a placeholder to a mention target.
type Substitution struct {
	Type      string    `json:"type"`
	Mentionee Mentionee `json:"mentionee"`
}

// Mentionee identifies the mentioned user.
type Mentionee struct {
	Type   string `json:"type"`
	UserID string `json:"userId"`
}

// NewText builds a plain text message.
func NewText(text string) TextMessage {
	return TextMessage{Type: "text", Text: text}
}

// NewTextWithChoices builds a text message with one quick-reply button per
// choice. Each button's label is shown to the user and its text is sent back
// verbatim when tapped.
func NewTextWithChoices(text string, choices ...MessageAction) TextMessage {
	msg := NewText(text)
	items := make([]QuickReplyItem, len(choices))
	for i, c := range choices {
		c.Type = "message"
		items[i] = QuickReplyItem{Type: "action", Action: c}
	}
	msg.QuickReply = &QuickReply{Items: items}
	return msg
}

// NewMention builds a textV2 message that @-mentions userID via the literal
// {user} placeholder.
func NewMention(text, userID string) MentionMessage {
	return MentionMessage{
		Type: "textV2",
		Text: "{user} " + text,
		Substitution: map[string]Substitution{
			"user": {
				Type: "mention",
				Mentionee: Mentionee{
					Type:   "user",
					UserID: userID,
				},
			},
		},
	}
}
