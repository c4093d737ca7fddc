package service

import (
	"context"
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/lipo-out/linebot/internal/llm"
	"github.com/lipo-out/linebot/internal/model"
	"github.com/lipo-out/linebot/pkg/logger"
	"github.com/lipo-out/linebot/pkg/metrics"
)

const (
	safeModeMarker = "<SAFE_MODE>"

	travelApologyReply  = "抱歉，目前無法處理您的旅遊需求，請稍後再試。"
	travelRephraseReply = "抱歉，我沒有找到合適的方案。請換個方式描述您的預算、天數或想要的活動類型。"
	safeModeReply       = "我們注意到您的訊息可能包含敏感內容。如需協助，請聯繫我們的客服團隊。"
	noResultsNotice     = "很抱歉，沒有找到符合條件的旅行產品。"
)

var travelTriggerKeywords = []string{"旅遊", "旅行", "行程", "規劃"}

var productPickPatterns = []*regexp.Regexp{
	regexp.MustCompile(`方案(\d+)`),
	regexp.MustCompile(`選擇(\d+)`),
	regexp.MustCompile(`^(\d+)$`),
}

// Travel drives the travel booking sub-flow: direct criteria extraction with
// a catalog search short-circuit, and a bounded tool-use loop against the
// LLM for everything else.
type Travel struct {
	llmClient llm.Client
	catalog   []model.CatalogItem
	model     string
	maxTurns  int
	logger    *logger.Logger
}

// NewTravel creates the travel service. A non-positive maxTurns falls back
// to 5.
func NewTravel(llmClient llm.Client, chatModel string, maxTurns int, log *logger.Logger) *Travel {
	if maxTurns <= 0 {
		maxTurns = 5
	}
	return &Travel{
		llmClient: llmClient,
		catalog:   DefaultCatalog(),
		model:     chatModel,
		maxTurns:  maxTurns,
		logger:    log,
	}
}

// Matches reports whether text belongs to the travel sub-flow.
func (t *Travel) Matches(text string) bool {
	for _, keyword := range travelTriggerKeywords {
		if strings.Contains(text, keyword) {
			return true
		}
	}
	return false
}

// HandleMessage produces the reply for one travel message, plus the
// synthesized order when one was created.
func (t *Travel) HandleMessage(ctx context.Context, userText string) (string, *model.Order) {
	// Short-circuit: when the intent is unambiguous from surface text,
	// search immediately and skip the LLM round trip entirely.
	if criteria, ok := ExtractCriteria(userText); ok {
		if results := SearchCatalog(t.catalog, criteria); len(results) > 0 {
			metrics.CatalogSearchesTotal.WithLabelValues("direct_hit").Inc()
			return FormatSearchResults(results), nil
		}
		metrics.CatalogSearchesTotal.WithLabelValues("direct_miss").Inc()
	}

	return t.converse(ctx, userText)
}

// converse runs the bounded tool-use loop. Each assistant turn is scanned
// for embedded directives in priority order: SEARCH block, numeric product
// selection in the original user text, CREATE_ORDER block, safety marker.
func (t *Travel) converse(ctx context.Context, userText string) (string, *model.Order) {
	messages := []llm.ChatMessage{
		{Role: "system", Content: travelSystemPrompt},
		{Role: "user", Content: userText},
	}

	for turn := 0; turn < t.maxTurns; turn++ {
		resp, err := t.llmClient.Complete(ctx, &llm.CompletionRequest{
			Model:       t.model,
			Messages:    messages,
			MaxTokens:   512,
			Temperature: 0.7,
		})
		if err != nil {
			t.logger.Error("travel completion failed", zap.Error(err))
			return travelApologyReply, nil
		}

		assistant := resp.Content
		messages = append(messages, llm.ChatMessage{Role: "assistant", Content: assistant})

		if raw, ok := extractTagged(assistant, "SEARCH"); ok {
			var criteria model.TravelCriteria
			if err := json.Unmarshal([]byte(raw), &criteria); err != nil {
				t.logger.Warn("malformed SEARCH block", zap.Error(err))
			} else {
				results := SearchCatalog(t.catalog, criteria)
				if len(results) > 0 {
					metrics.CatalogSearchesTotal.WithLabelValues("loop_hit").Inc()
					return FormatSearchResults(results), nil
				}
				metrics.CatalogSearchesTotal.WithLabelValues("loop_miss").Inc()
				messages = append(messages, llm.ChatMessage{Role: "user", Content: noResultsNotice})
				continue
			}
		}

		if index, ok := extractProductSelection(userText); ok {
			if index >= 1 && index <= len(t.catalog) {
				item := t.catalog[index-1]
				order := t.placeOrder(item.ID, today())
				return "已為您預訂「" + item.Name + "」，請前往以下連結完成付款：" + order.PaymentLink, order
			}
		}

		if raw, ok := extractTagged(assistant, "CREATE_ORDER"); ok {
			var req struct {
				ProductID string `json:"product_id"`
				Date      string `json:"date"`
			}
			if err := json.Unmarshal([]byte(raw), &req); err == nil && req.ProductID != "" {
				order := t.placeOrder(req.ProductID, req.Date)
				messages = append(messages, llm.ChatMessage{Role: "user", Content: "已為你建立訂單：" + order.PaymentLink})
				return "已為您建立訂單，請前往以下連結完成付款：" + order.PaymentLink, order
			}
			t.logger.Warn("malformed CREATE_ORDER block")
		}

		// The flagged content itself is discarded, never shown to the user.
		if strings.Contains(assistant, safeModeMarker) {
			return safeModeReply, nil
		}

		return assistant, nil
	}

	return travelRephraseReply, nil
}

func (t *Travel) placeOrder(productID, date string) *model.Order {
	order := NewOrder(productID, date)
	metrics.OrdersTotal.Inc()
	t.logger.Info("order synthesized",
		zap.String("order_id", order.OrderID),
		zap.String("product_id", order.ProductID),
	)
	return order
}

// extractTagged pulls the body of a <TAG>...</TAG> block out of text.
func extractTagged(text, tag string) (string, bool) {
	open, close := "<"+tag+">", "</"+tag+">"
	start := strings.Index(text, open)
	if start < 0 {
		return "", false
	}
	rest := text[start+len(open):]
	end := strings.Index(rest, close)
	if end < 0 {
		return "", false
	}
	return strings.TrimSpace(rest[:end]), true
}

// extractProductSelection recognizes a 1-based product choice in the user's
// text: 方案N, 選擇N, or a bare integer.
func extractProductSelection(text string) (int, bool) {
	trimmed := strings.TrimSpace(text)
	for _, pattern := range productPickPatterns {
		if m := pattern.FindStringSubmatch(trimmed); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil {
				return n, true
			}
		}
	}
	return 0, false
}

func today() string {
	return time.Now().Format("2006-01-02")
}
