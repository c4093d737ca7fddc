package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/lipo-out/linebot/internal/llm"
	"github.com/lipo-out/linebot/pkg/logger"
)

const chatApologyReply = "抱歉，目前無法處理您的訊息。"

// Chat turns free text into a single-turn LLM reply. No state is read or
// written.
type Chat struct {
	llmClient llm.Client
	model     string
	logger    *logger.Logger
}

// NewChat creates the conversational responder.
func NewChat(llmClient llm.Client, chatModel string, log *logger.Logger) *Chat {
	return &Chat{
		llmClient: llmClient,
		model:     chatModel,
		logger:    log,
	}
}

// Reply returns the completion text for the user's message, or a fixed
// apology when the LLM call fails.
func (c *Chat) Reply(ctx context.Context, userText string) string {
	resp, err := c.llmClient.Complete(ctx, &llm.CompletionRequest{
		Model: c.model,
		Messages: []llm.ChatMessage{
			{Role: "system", Content: chatSystemPrompt},
			{Role: "user", Content: userText},
		},
		MaxTokens:   512,
		Temperature: 0.7,
	})
	if err != nil {
		c.logger.Error("chat completion failed", zap.Error(err))
		return chatApologyReply
	}
	return resp.Content
}
