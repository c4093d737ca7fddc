package line

import (
	"encoding/json"
	"fmt"

	"github.com/lipo-out/linebot/internal/model"
)

// webhookEnvelope is the raw webhook request body.
type webhookEnvelope struct {
	Destination string         `json:"destination"`
	Events      []webhookEvent `json:"events"`
}

// webhookEvent is one raw platform event.
type webhookEvent struct {
	Type       string `json:"type"`
	ReplyToken string `json:"replyToken"`
	Source     struct {
		Type    string `json:"type"`
		UserID  string `json:"userId"`
		GroupID string `json:"groupId"`
		RoomID  string `json:"roomId"`
	} `json:"source"`
	Message *struct {
		ID   string `json:"id"`
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"message"`
	Joined *struct {
		Members []struct {
			UserID string `json:"userId"`
		} `json:"members"`
	} `json:"joined"`
}

// ParseEvents maps a webhook body to normalized events, preserving array
// order. Raw events with an unrecognized kind or message type are dropped.
// The platform provides one reply token per event and expects at most one
// reply, so callers must process the result strictly in order.
func ParseEvents(body []byte) ([]model.InboundEvent, error) {
	var envelope webhookEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("invalid webhook envelope: %w", err)
	}

	events := make([]model.InboundEvent, 0, len(envelope.Events))
	for _, raw := range envelope.Events {
		ev, ok := normalize(raw)
		if !ok {
			continue
		}
		events = append(events, ev)
	}

	return events, nil
}

func normalize(raw webhookEvent) (model.InboundEvent, bool) {
	source, ok := normalizeSource(raw)
	if !ok {
		return model.InboundEvent{}, false
	}

	ev := model.InboundEvent{
		ReplyToken: raw.ReplyToken,
		Source:     source,
	}

	switch raw.Type {
	case "message":
		if raw.Message == nil {
			return model.InboundEvent{}, false
		}
		switch raw.Message.Type {
		case "text":
			ev.Kind = model.EventTextMessage
			ev.Text = raw.Message.Text
		case "image":
			ev.Kind = model.EventImageMessage
			ev.MessageID = raw.Message.ID
		default:
			// Stickers, audio, video, location: not supported.
			return model.InboundEvent{}, false
		}
	case "follow":
		ev.Kind = model.EventFollow
	case "memberJoined":
		ev.Kind = model.EventMemberJoined
		if raw.Joined != nil {
			for _, m := range raw.Joined.Members {
				ev.JoinedUserIDs = append(ev.JoinedUserIDs, m.UserID)
			}
		}
	default:
		return model.InboundEvent{}, false
	}

	return ev, true
}

func normalizeSource(raw webhookEvent) (model.Source, bool) {
	source := model.Source{
		UserID:  raw.Source.UserID,
		GroupID: raw.Source.GroupID,
		RoomID:  raw.Source.RoomID,
	}

	switch raw.Source.Type {
	case "user":
		source.Type = model.SourceUser
	case "group":
		source.Type = model.SourceGroup
	case "room":
		source.Type = model.SourceRoom
	default:
		return model.Source{}, false
	}

	return source, true
}
