package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/lipo-out/linebot/internal/backend"
	"github.com/lipo-out/linebot/internal/line"
	"github.com/lipo-out/linebot/internal/model"
	"github.com/lipo-out/linebot/pkg/logger"
)

const (
	memberJoinedReply = "歡迎加入！我是您的健康飲食助手。\n您可以傳送食物照片給我，我會幫您分析營養成分。"

	followWelcomeFormat = "Hi %s！歡迎使用 LipoOut！\n\n您可以：\n1. 傳送食物照片給我分析營養成分\n2. 跟我聊天討論健康飲食相關問題\n\n讓我們一起邁向健康的生活！"
	followApologyReply  = "歡迎加入！很抱歉，目前無法建立您的用戶資料。請稍後再試。"

	defaultUserGoal = "Moderate"
)

// Membership handles follow and member-joined events, provisioning backend
// users for new contacts.
type Membership struct {
	messenger Messenger
	backend   UserStore
	logger    *logger.Logger
}

// NewMembership creates the membership responder.
func NewMembership(messenger Messenger, userStore UserStore, log *logger.Logger) *Membership {
	return &Membership{
		messenger: messenger,
		backend:   userStore,
		logger:    log,
	}
}

// HandleFollow provisions the new contact in the backend and replies with a
// welcome message. Provisioning failures are reported to the user, not
// propagated.
func (m *Membership) HandleFollow(ctx context.Context, ev model.InboundEvent) error {
	userID := ev.Source.UserID

	name := fallbackName(userID)
	profile, err := m.messenger.GetProfile(ctx, userID)
	if err != nil {
		m.logger.Warn("failed to fetch profile on follow", zap.String("user_id", userID), zap.Error(err))
	} else {
		name = profile.DisplayName
	}

	if err := m.ensureUser(ctx, userID, name); err != nil {
		m.logger.Error("failed to provision user", zap.String("user_id", userID), zap.Error(err))
		return m.messenger.ReplyMessage(ctx, ev.ReplyToken, line.NewText(followApologyReply))
	}

	return m.messenger.ReplyMessage(ctx, ev.ReplyToken,
		line.NewText(fmt.Sprintf(followWelcomeFormat, name)))
}

// HandleMemberJoined replies with the fixed welcome template.
func (m *Membership) HandleMemberJoined(ctx context.Context, ev model.InboundEvent) error {
	return m.messenger.ReplyMessage(ctx, ev.ReplyToken, line.NewText(memberJoinedReply))
}

func (m *Membership) ensureUser(ctx context.Context, lineUserID, name string) error {
	_, err := m.backend.FindUserByLineID(ctx, lineUserID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, backend.ErrNotFound) {
		return err
	}

	return m.backend.CreateUser(ctx, &backend.NewUser{
		Name:       name,
		Goal:       defaultUserGoal,
		LineUserID: lineUserID,
	})
}

// fallbackName derives a display name when the profile is unavailable.
func fallbackName(userID string) string {
	suffix := userID
	if len(suffix) > 5 {
		suffix = suffix[len(suffix)-5:]
	}
	return "LINEUser-" + suffix
}
