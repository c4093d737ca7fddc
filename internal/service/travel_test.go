package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lipo-out/linebot/pkg/logger"
)

func newTravelForTest(fake *fakeLLM) *Travel {
	return NewTravel(fake, "test-model", 5, logger.NewNop())
}

func TestTravelMatches(t *testing.T) {
	travel := newTravelForTest(&fakeLLM{})

	assert.True(t, travel.Matches("幫我規劃一下"))
	assert.True(t, travel.Matches("我想去旅遊"))
	assert.True(t, travel.Matches("下個月的行程"))
	assert.False(t, travel.Matches("今天吃什麼"))
}

func TestTravelDirectShortCircuit(t *testing.T) {
	fake := &fakeLLM{}
	travel := newTravelForTest(fake)

	reply, order := travel.HandleMessage(context.Background(), "我想去潛水旅遊，預算5萬，8天")

	assert.Nil(t, order)
	assert.Contains(t, reply, "小琉球潛水＋島語英語營")
	assert.NotContains(t, reply, "花東部落文化深潛旅")
	assert.Equal(t, 0, fake.callCount(), "an unambiguous request must not reach the LLM")
}

func TestTravelDirectMissFallsThroughToLoop(t *testing.T) {
	// Tags match but no item fits a 3-day window, so the direct search
	// misses and the conversation starts.
	fake := &fakeLLM{responses: []string{"想請問您偏好的天數？"}}
	travel := newTravelForTest(fake)

	reply, order := travel.HandleMessage(context.Background(), "3天的潛水旅遊")

	assert.Nil(t, order)
	assert.Equal(t, "想請問您偏好的天數？", reply)
	assert.Equal(t, 1, fake.callCount())
}

func TestTravelSearchDirective(t *testing.T) {
	fake := &fakeLLM{responses: []string{
		`好的，讓我找找。<SEARCH>{"duration_min":6,"duration_max":10,"tags":["潛水"],"budget_twd":50000}</SEARCH>`,
	}}
	travel := newTravelForTest(fake)

	reply, order := travel.HandleMessage(context.Background(), "幫我規劃一趟便宜的假期")

	assert.Nil(t, order)
	assert.Contains(t, reply, "小琉球潛水＋島語英語營")
	assert.Equal(t, 1, fake.callCount())
}

func TestTravelSearchMissContinuesLoop(t *testing.T) {
	fake := &fakeLLM{responses: []string{
		`<SEARCH>{"duration_min":1,"duration_max":2,"tags":["潛水"]}</SEARCH>`,
		"找不到符合的方案，您願意放寬天數嗎？",
	}}
	travel := newTravelForTest(fake)

	reply, order := travel.HandleMessage(context.Background(), "規劃2天潛水")

	assert.Nil(t, order)
	assert.Equal(t, "找不到符合的方案，您願意放寬天數嗎？", reply)
	assert.Equal(t, 2, fake.callCount(), "a search miss feeds back into the loop")
}

func TestTravelCreateOrderDirective(t *testing.T) {
	fake := &fakeLLM{responses: []string{
		`<CREATE_ORDER>{"product_id":"P002","date":"2026-10-01"}</CREATE_ORDER>`,
	}}
	travel := newTravelForTest(fake)

	reply, order := travel.HandleMessage(context.Background(), "請幫我預訂花東的行程")

	require.NotNil(t, order)
	assert.Equal(t, "P002", order.ProductID)
	assert.Equal(t, "2026-10-01", order.Date)
	assert.True(t, strings.HasPrefix(order.OrderID, "ORD-"))
	assert.Contains(t, reply, order.PaymentLink)
}

func TestTravelProductSelection(t *testing.T) {
	fake := &fakeLLM{responses: []string{"好的，確認一下您的選擇。"}}
	travel := newTravelForTest(fake)

	reply, order := travel.HandleMessage(context.Background(), "方案1 的行程")

	require.NotNil(t, order)
	assert.Equal(t, "P001", order.ProductID)
	assert.Contains(t, reply, "小琉球潛水＋島語英語營")
	assert.Contains(t, reply, order.PaymentLink)
}

func TestTravelSafeMode(t *testing.T) {
	fake := &fakeLLM{responses: []string{
		"這是一段不當內容 <SAFE_MODE>",
	}}
	travel := newTravelForTest(fake)

	reply, order := travel.HandleMessage(context.Background(), "規劃一些奇怪的事")

	assert.Nil(t, order)
	assert.Equal(t, safeModeReply, reply)
	assert.NotContains(t, reply, "不當內容", "flagged content must never surface")
}

func TestTravelMaxTurns(t *testing.T) {
	// Every turn searches and misses, so the loop exhausts its budget.
	fake := &fakeLLM{responses: []string{
		`<SEARCH>{"duration_min":1,"duration_max":2,"tags":["潛水"]}</SEARCH>`,
	}}
	travel := newTravelForTest(fake)

	reply, order := travel.HandleMessage(context.Background(), "規劃2天潛水")

	assert.Nil(t, order)
	assert.Equal(t, travelRephraseReply, reply)
	assert.Equal(t, 5, fake.callCount())
}

func TestTravelLLMFailure(t *testing.T) {
	fake := &fakeLLM{err: errBoom}
	travel := newTravelForTest(fake)

	reply, order := travel.HandleMessage(context.Background(), "幫我規劃假期")

	assert.Nil(t, order)
	assert.Equal(t, travelApologyReply, reply)
}

func TestExtractTagged(t *testing.T) {
	body, ok := extractTagged(`前言 <SEARCH>{"tags":["潛水"]}</SEARCH> 後話`, "SEARCH")
	require.True(t, ok)
	assert.Equal(t, `{"tags":["潛水"]}`, body)

	_, ok = extractTagged("沒有標記", "SEARCH")
	assert.False(t, ok)

	_, ok = extractTagged("<SEARCH>未閉合", "SEARCH")
	assert.False(t, ok)
}

func TestExtractProductSelection(t *testing.T) {
	cases := []struct {
		text string
		want int
		ok   bool
	}{
		{"方案2", 2, true},
		{"選擇3", 3, true},
		{"1", 1, true},
		{" 2 ", 2, true},
		{"我要第一個", 0, false},
		{"1000元", 0, false},
	}
	for _, tc := range cases {
		got, ok := extractProductSelection(tc.text)
		assert.Equal(t, tc.ok, ok, tc.text)
		if ok {
			assert.Equal(t, tc.want, got, tc.text)
		}
	}
}
