package service

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"unicode"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/lipo-out/linebot/internal/line"
	"github.com/lipo-out/linebot/internal/llm"
	"github.com/lipo-out/linebot/internal/model"
	"github.com/lipo-out/linebot/internal/session"
	"github.com/lipo-out/linebot/pkg/logger"
	"github.com/lipo-out/linebot/pkg/metrics"
)

// Confirmation phrases and quick-reply labels. The phrases are matched
// exactly by the dispatcher, so the quick-reply buttons must send them
// verbatim.
const (
	SavePhrase   = "儲存這筆記錄"
	RejectPhrase = "不用了"

	saveLabel   = "是"
	rejectLabel = "否"

	visionApologyReply = "抱歉，目前無法處理這張圖片。"
	savePromptSuffix   = "\n\n是否要儲存到您的紀錄？"
	addFriendSuffix    = " \n記得加入此帳號為好友以獲得最佳體驗：）"
	analyzingNotice    = "正在辨識你的食物中，請稍候...✨"
)

// ParseError means the vision model's output was not the expected JSON.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("malformed analysis output: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// AnalysisClass classifies a vision result.
type AnalysisClass int

const (
	// NonFood means the model did not recognize food; nothing is stored.
	NonFood AnalysisClass = iota
	// FoodResult means the narrative carries a plausible nutrition figure.
	FoodResult
)

// ClassifyAnalysis decides whether an analysis narrative describes food.
// A decimal digit in the text is the proxy for "a nutrition figure was
// found"; refusal texts carry none.
func ClassifyAnalysis(text string) AnalysisClass {
	if strings.ContainsFunc(text, unicode.IsDigit) {
		return FoodResult
	}
	return NonFood
}

// Vision analyzes food photos with one JSON-mode vision completion.
type Vision struct {
	messenger Messenger
	llmClient llm.Client
	sessions  session.Store
	model     string
	logger    *logger.Logger
}

// NewVision creates the food vision analyzer.
func NewVision(messenger Messenger, llmClient llm.Client, sessions session.Store, visionModel string, log *logger.Logger) *Vision {
	return &Vision{
		messenger: messenger,
		llmClient: llmClient,
		sessions:  sessions,
		model:     visionModel,
		logger:    log,
	}
}

// HandleImage processes one image message event.
func (v *Vision) HandleImage(ctx context.Context, ev model.InboundEvent) error {
	data, err := v.messenger.GetMessageContent(ctx, ev.MessageID)
	if err != nil {
		metrics.EventFailuresTotal.WithLabelValues("content_fetch").Inc()
		return fmt.Errorf("failed to fetch image content: %w", err)
	}
	imageBase64 := base64.StdEncoding.EncodeToString(data)

	if ev.Source.IsDirect() {
		return v.handleDirect(ctx, ev, imageBase64)
	}
	return v.handleGroup(ctx, ev, imageBase64)
}

func (v *Vision) handleDirect(ctx context.Context, ev model.InboundEvent, imageBase64 string) error {
	analysis, err := v.Analyze(ctx, imageBase64)
	if err != nil {
		v.logger.Error("vision analysis failed", zap.Error(err))
		metrics.EventFailuresTotal.WithLabelValues("analysis").Inc()
		return v.messenger.ReplyMessage(ctx, ev.ReplyToken, line.NewText(visionApologyReply))
	}

	if ClassifyAnalysis(analysis.Text) != FoodResult {
		metrics.RepliesTotal.WithLabelValues("text").Inc()
		return v.messenger.ReplyMessage(ctx, ev.ReplyToken, line.NewText(analysis.Text))
	}

	v.sessions.Put(ev.Source.UserID, analysis)

	msg := line.NewTextWithChoices(
		analysis.Text+savePromptSuffix,
		line.MessageAction{Label: saveLabel, Text: SavePhrase},
		line.MessageAction{Label: rejectLabel, Text: RejectPhrase},
	)
	metrics.RepliesTotal.WithLabelValues("quick_reply").Inc()
	return v.messenger.ReplyMessage(ctx, ev.ReplyToken, msg)
}

// handleGroup analyzes the image and fetches the sender's profile
// concurrently, then replies with an @-mention. A profile 404 (the sender
// has not added the bot) degrades to a plain reply with an invitation; any
// other profile failure drops the event.
func (v *Vision) handleGroup(ctx context.Context, ev model.InboundEvent, imageBase64 string) error {
	var (
		analysis   *model.FoodAnalysis
		profile    *model.Profile
		profileErr error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		analysis, err = v.Analyze(gctx, imageBase64)
		return err
	})
	g.Go(func() error {
		// Profile failures are handled separately from analysis failures;
		// they must not cancel the analysis.
		profile, profileErr = v.messenger.GetProfile(gctx, ev.Source.UserID)
		return nil
	})

	if err := g.Wait(); err != nil {
		v.logger.Error("vision analysis failed", zap.Error(err))
		metrics.EventFailuresTotal.WithLabelValues("analysis").Inc()
		return v.messenger.ReplyMessage(ctx, ev.ReplyToken, line.NewText(visionApologyReply))
	}

	switch {
	case profileErr == nil:
		metrics.RepliesTotal.WithLabelValues("mention").Inc()
		return v.messenger.ReplyMessage(ctx, ev.ReplyToken,
			line.NewText(analyzingNotice),
			line.NewMention(analysis.Text, profile.UserID),
		)
	case line.IsNotFound(profileErr):
		metrics.RepliesTotal.WithLabelValues("text").Inc()
		return v.messenger.ReplyMessage(ctx, ev.ReplyToken,
			line.NewText(analysis.Text+addFriendSuffix))
	default:
		metrics.EventFailuresTotal.WithLabelValues("profile_fetch").Inc()
		return fmt.Errorf("failed to fetch sender profile: %w", profileErr)
	}
}

// Analyze runs one vision completion over a base64 PNG and parses the
// structured nutrition result.
func (v *Vision) Analyze(ctx context.Context, imageBase64 string) (*model.FoodAnalysis, error) {
	resp, err := v.llmClient.Complete(ctx, &llm.CompletionRequest{
		Model: v.model,
		Messages: []llm.ChatMessage{
			{Role: "system", Content: visionSystemPrompt},
			{Role: "user", Content: visionUserPrompt, ImageBase64: imageBase64},
		},
		MaxTokens:    512,
		Temperature:  0.2,
		JSONResponse: true,
	})
	if err != nil {
		return nil, err
	}

	analysis, err := parseAnalysis(resp.Content)
	if err != nil {
		return nil, err
	}
	analysis.ImageBase64 = imageBase64
	return analysis, nil
}

// parseAnalysis decodes the model's JSON output. All numeric fields are
// required and must be non-negative.
func parseAnalysis(content string) (*model.FoodAnalysis, error) {
	var raw struct {
		Text          string   `json:"text"`
		Carbohydrates *float64 `json:"carbohydrates"`
		Protein       *float64 `json:"protein"`
		Fat           *float64 `json:"fat"`
		Calories      *float64 `json:"calories"`
	}
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return nil, &ParseError{Err: err}
	}

	fields := map[string]*float64{
		"carbohydrates": raw.Carbohydrates,
		"protein":       raw.Protein,
		"fat":           raw.Fat,
		"calories":      raw.Calories,
	}
	for name, value := range fields {
		if value == nil {
			return nil, &ParseError{Err: fmt.Errorf("missing field %q", name)}
		}
		if *value < 0 {
			return nil, &ParseError{Err: fmt.Errorf("negative field %q", name)}
		}
	}

	return &model.FoodAnalysis{
		Text:          raw.Text,
		Carbohydrates: *raw.Carbohydrates,
		Protein:       *raw.Protein,
		Fat:           *raw.Fat,
		Calories:      *raw.Calories,
	}, nil
}
