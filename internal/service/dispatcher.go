package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/lipo-out/linebot/internal/backend"
	"github.com/lipo-out/linebot/internal/events"
	"github.com/lipo-out/linebot/internal/line"
	"github.com/lipo-out/linebot/internal/model"
	"github.com/lipo-out/linebot/internal/session"
	"github.com/lipo-out/linebot/pkg/logger"
	"github.com/lipo-out/linebot/pkg/metrics"
)

const (
	pendingMissingReply = "抱歉，無法找到分析資料，請再試一次。"
	noAccountReply      = "抱歉，尚未建立用戶資料。請先加我為好友或重新嘗試。"
	saveSuccessReply    = "已為您儲存此食物紀錄！"
	saveFailureReply    = "無法儲存此食物紀錄，請稍後再試。"
	rejectAckReply      = "好的，沒有儲存這筆資料。"
)

// Dispatcher routes each normalized event to exactly one handler based on
// kind and conversational context.
type Dispatcher struct {
	messenger  Messenger
	sessions   session.Store
	backend    UserStore
	vision     *Vision
	chat       *Chat
	travel     *Travel
	membership *Membership
	publisher  events.Publisher
	trigger    string
	logger     *logger.Logger
}

// DispatcherConfig holds the dispatcher's dependencies.
type DispatcherConfig struct {
	Messenger  Messenger
	Sessions   session.Store
	Backend    UserStore
	Vision     *Vision
	Chat       *Chat
	Travel     *Travel
	Membership *Membership
	Publisher  events.Publisher

	// GroupTriggerKeyword must appear in group/room text (case-insensitive)
	// before the bot responds, to avoid unsolicited replies in shared chats.
	GroupTriggerKeyword string

	Logger *logger.Logger
}

// NewDispatcher creates the event dispatcher.
func NewDispatcher(cfg DispatcherConfig) *Dispatcher {
	return &Dispatcher{
		messenger:  cfg.Messenger,
		sessions:   cfg.Sessions,
		backend:    cfg.Backend,
		vision:     cfg.Vision,
		chat:       cfg.Chat,
		travel:     cfg.Travel,
		membership: cfg.Membership,
		publisher:  cfg.Publisher,
		trigger:    strings.ToLower(cfg.GroupTriggerKeyword),
		logger:     cfg.Logger,
	}
}

// Dispatch handles one event. Failures are contained here: the returned
// error is for logging only, and one event's failure never blocks the next.
func (d *Dispatcher) Dispatch(ctx context.Context, ev model.InboundEvent) error {
	metrics.WebhookEventsTotal.WithLabelValues(string(ev.Kind), string(ev.Source.Type)).Inc()
	d.publisher.EventReceived(ctx, ev.Kind, ev.Source.Type)
	d.logger.WithEvent(string(ev.Kind), string(ev.Source.Type), ev.Source.UserID).
		Debug("event received")

	switch ev.Kind {
	case model.EventImageMessage:
		return d.vision.HandleImage(ctx, ev)
	case model.EventTextMessage:
		return d.handleText(ctx, ev)
	case model.EventMemberJoined:
		return d.membership.HandleMemberJoined(ctx, ev)
	case model.EventFollow:
		return d.membership.HandleFollow(ctx, ev)
	default:
		// Unrecognized kinds are dropped by the normalizer already.
		return nil
	}
}

// handleText is the per-text-event state machine: pending-confirmation
// phrases in direct chats, the trigger keyword gate in shared chats, then
// the conversational flows.
func (d *Dispatcher) handleText(ctx context.Context, ev model.InboundEvent) error {
	if ev.Source.IsDirect() {
		// Exact match only; no fuzzy matching, no trimming beyond what the
		// platform already strips.
		switch ev.Text {
		case SavePhrase:
			return d.handleSave(ctx, ev)
		case RejectPhrase:
			return d.handleReject(ctx, ev)
		}
		return d.converse(ctx, ev)
	}

	// Shared chats must address the bot explicitly.
	if d.trigger == "" || !strings.Contains(strings.ToLower(ev.Text), d.trigger) {
		return nil
	}
	return d.converse(ctx, ev)
}

func (d *Dispatcher) converse(ctx context.Context, ev model.InboundEvent) error {
	var reply string
	if d.travel.Matches(ev.Text) {
		var order *model.Order
		reply, order = d.travel.HandleMessage(ctx, ev.Text)
		if order != nil {
			d.publisher.OrderCreated(ctx, ev.Source.UserID, order)
		}
	} else {
		reply = d.chat.Reply(ctx, ev.Text)
	}

	metrics.RepliesTotal.WithLabelValues("text").Inc()
	return d.messenger.ReplyMessage(ctx, ev.ReplyToken, line.NewText(reply))
}

// handleSave persists the pending analysis. The entry stays in place until
// persistence succeeds, so a failed save can be retried; the final Remove is
// conditional so a save racing a fresh analysis cannot discard the newer
// entry.
func (d *Dispatcher) handleSave(ctx context.Context, ev model.InboundEvent) error {
	userID := ev.Source.UserID

	pending, ok := d.sessions.Peek(userID)
	if !ok {
		return d.messenger.ReplyMessage(ctx, ev.ReplyToken, line.NewText(pendingMissingReply))
	}

	user, err := d.backend.FindUserByLineID(ctx, userID)
	if err != nil {
		d.logger.Warn("user lookup failed on save", zap.String("user_id", userID), zap.Error(err))
		return d.messenger.ReplyMessage(ctx, ev.ReplyToken, line.NewText(noAccountReply))
	}

	record := &backend.FoodRecord{
		UserID:       user.ID,
		FoodAnalysis: pending.Text,
		FoodPhoto:    pending.ImageBase64,
		Protein:      pending.Protein,
		Carb:         pending.Carbohydrates,
		Fat:          pending.Fat,
		Calories:     pending.Calories,
	}
	if err := d.backend.CreateFood(ctx, record); err != nil {
		d.logger.Error("failed to persist food record", zap.String("user_id", userID), zap.Error(err))
		metrics.EventFailuresTotal.WithLabelValues("persistence").Inc()
		return d.messenger.ReplyMessage(ctx, ev.ReplyToken, line.NewText(saveFailureReply))
	}

	d.sessions.Remove(userID, pending)
	d.publisher.FoodSaved(ctx, userID, pending)
	return d.messenger.ReplyMessage(ctx, ev.ReplyToken, line.NewText(saveSuccessReply))
}

// handleReject discards any pending analysis and acknowledges. Safe to
// invoke with no pending entry.
func (d *Dispatcher) handleReject(ctx context.Context, ev model.InboundEvent) error {
	d.sessions.Take(ev.Source.UserID)
	return d.messenger.ReplyMessage(ctx, ev.ReplyToken, line.NewText(rejectAckReply))
}
