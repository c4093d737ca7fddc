// Package service implements the bot's orchestration core: event dispatch,
// food vision analysis, general conversation and the travel tool-use loop.
package service

import (
	"context"

	"github.com/lipo-out/linebot/internal/backend"
	"github.com/lipo-out/linebot/internal/line"
	"github.com/lipo-out/linebot/internal/model"
)

// Messenger is the narrow platform surface the services need. Implemented by
// *line.Client.
type Messenger interface {
	ReplyMessage(ctx context.Context, replyToken string, messages ...line.Message) error
	PushMessage(ctx context.Context, to string, messages ...line.Message) error
	GetProfile(ctx context.Context, userID string) (*model.Profile, error)
	GetMessageContent(ctx context.Context, messageID string) ([]byte, error)
}

// UserStore is the persistence backend surface. Implemented by
// *backend.Client.
type UserStore interface {
	FindUserByLineID(ctx context.Context, lineUserID string) (*backend.User, error)
	CreateUser(ctx context.Context, user *backend.NewUser) error
	CreateFood(ctx context.Context, record *backend.FoodRecord) error
}
