package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lipo-out/linebot/internal/line"
	"github.com/lipo-out/linebot/internal/model"
	"github.com/lipo-out/linebot/internal/session"
	"github.com/lipo-out/linebot/pkg/logger"
)

const foodAnalysisJSON = `{"text":"這是一份雞腿便當，約750大卡。","carbohydrates":80,"protein":35,"fat":25,"calories":750}`
const nonFoodJSON = `{"text":"這張圖片看起來不是食物喔。","carbohydrates":0,"protein":0,"fat":0,"calories":0}`

func directImageEvent() model.InboundEvent {
	return model.InboundEvent{
		Kind:       model.EventImageMessage,
		ReplyToken: "rt1",
		MessageID:  "m1",
		Source:     model.Source{Type: model.SourceUser, UserID: "U1"},
	}
}

func groupImageEvent() model.InboundEvent {
	ev := directImageEvent()
	ev.Source = model.Source{Type: model.SourceGroup, UserID: "U1", GroupID: "G1"}
	return ev
}

func newVisionForTest(messenger *fakeMessenger, fake *fakeLLM, sessions session.Store) *Vision {
	return NewVision(messenger, fake, sessions, "test-vision-model", logger.NewNop())
}

func TestClassifyAnalysis(t *testing.T) {
	assert.Equal(t, FoodResult, ClassifyAnalysis("這份餐點約750大卡"))
	assert.Equal(t, FoodResult, ClassifyAnalysis("蛋白質 35 克"))
	assert.Equal(t, NonFood, ClassifyAnalysis("這張圖片看起來不是食物喔。"))
	assert.Equal(t, NonFood, ClassifyAnalysis(""))
}

func TestParseAnalysis(t *testing.T) {
	t.Run("complete result", func(t *testing.T) {
		analysis, err := parseAnalysis(foodAnalysisJSON)
		require.NoError(t, err)
		assert.Equal(t, 750.0, analysis.Calories)
		assert.Equal(t, 35.0, analysis.Protein)
		assert.Equal(t, 80.0, analysis.Carbohydrates)
		assert.Equal(t, 25.0, analysis.Fat)
	})

	t.Run("missing field", func(t *testing.T) {
		_, err := parseAnalysis(`{"text":"x","protein":1,"fat":1,"calories":1}`)
		var parseErr *ParseError
		require.ErrorAs(t, err, &parseErr)
	})

	t.Run("negative field", func(t *testing.T) {
		_, err := parseAnalysis(`{"text":"x","carbohydrates":-1,"protein":1,"fat":1,"calories":1}`)
		var parseErr *ParseError
		require.ErrorAs(t, err, &parseErr)
	})

	t.Run("not json", func(t *testing.T) {
		_, err := parseAnalysis("好的，我看到一份便當")
		var parseErr *ParseError
		require.ErrorAs(t, err, &parseErr)
	})
}

func TestVisionDirectFoodCreatesPending(t *testing.T) {
	messenger := &fakeMessenger{}
	sessions := session.NewMemoryStore(0)
	vision := newVisionForTest(messenger, &fakeLLM{responses: []string{foodAnalysisJSON}}, sessions)

	err := vision.HandleImage(context.Background(), directImageEvent())
	require.NoError(t, err)

	// The pending analysis carries the image for later persistence.
	pending, ok := sessions.Take("U1")
	require.True(t, ok)
	assert.NotEmpty(t, pending.ImageBase64)
	assert.Equal(t, 750.0, pending.Calories)

	qr := messenger.lastReplyQuickReply()
	require.NotNil(t, qr)
	require.Len(t, qr.Items, 2)
	assert.Equal(t, "是", qr.Items[0].Action.Label)
	assert.Equal(t, SavePhrase, qr.Items[0].Action.Text)
	assert.Equal(t, "否", qr.Items[1].Action.Label)
	assert.Equal(t, RejectPhrase, qr.Items[1].Action.Text)
	assert.Contains(t, messenger.lastReplyText(), savePromptSuffix)
}

func TestVisionDirectNonFood(t *testing.T) {
	messenger := &fakeMessenger{}
	sessions := session.NewMemoryStore(0)
	vision := newVisionForTest(messenger, &fakeLLM{responses: []string{nonFoodJSON}}, sessions)

	err := vision.HandleImage(context.Background(), directImageEvent())
	require.NoError(t, err)

	_, ok := sessions.Take("U1")
	assert.False(t, ok, "non-food must not create a pending entry")
	assert.Nil(t, messenger.lastReplyQuickReply())
}

func TestVisionDirectMalformedOutput(t *testing.T) {
	messenger := &fakeMessenger{}
	sessions := session.NewMemoryStore(0)
	vision := newVisionForTest(messenger, &fakeLLM{responses: []string{"這不是 JSON"}}, sessions)

	err := vision.HandleImage(context.Background(), directImageEvent())
	require.NoError(t, err)

	assert.Equal(t, visionApologyReply, messenger.lastReplyText())
	_, ok := sessions.Take("U1")
	assert.False(t, ok)
}

func TestVisionGroupMentionsSender(t *testing.T) {
	messenger := &fakeMessenger{profile: &model.Profile{UserID: "U1", DisplayName: "小明"}}
	sessions := session.NewMemoryStore(0)
	vision := newVisionForTest(messenger, &fakeLLM{responses: []string{foodAnalysisJSON}}, sessions)

	err := vision.HandleImage(context.Background(), groupImageEvent())
	require.NoError(t, err)

	_, ok := sessions.Take("U1")
	assert.False(t, ok, "group analyses never create pending entries")

	require.Equal(t, 1, messenger.replyCount())
	batch := messenger.replies[0]
	require.Len(t, batch, 2)
	first, ok := batch[0].(line.TextMessage)
	require.True(t, ok)
	assert.Equal(t, analyzingNotice, first.Text)
	mention, ok := batch[1].(line.MentionMessage)
	require.True(t, ok)
	assert.Equal(t, "U1", mention.Substitution["user"].Mentionee.UserID)
}

func TestVisionGroupProfileNotFound(t *testing.T) {
	messenger := &fakeMessenger{profileErr: &line.APIError{StatusCode: 404}}
	sessions := session.NewMemoryStore(0)
	vision := newVisionForTest(messenger, &fakeLLM{responses: []string{foodAnalysisJSON}}, sessions)

	err := vision.HandleImage(context.Background(), groupImageEvent())
	require.NoError(t, err)

	text := messenger.lastReplyText()
	assert.Contains(t, text, addFriendSuffix)
	assert.NotContains(t, text, "{user}")
}

func TestVisionGroupProfileHardFailure(t *testing.T) {
	messenger := &fakeMessenger{profileErr: errBoom}
	sessions := session.NewMemoryStore(0)
	vision := newVisionForTest(messenger, &fakeLLM{responses: []string{foodAnalysisJSON}}, sessions)

	err := vision.HandleImage(context.Background(), groupImageEvent())
	assert.Error(t, err)
	assert.Equal(t, 0, messenger.replyCount(), "a non-404 profile failure drops the event")
}

func TestVisionContentFetchFailure(t *testing.T) {
	messenger := &fakeMessenger{contentErr: errBoom}
	sessions := session.NewMemoryStore(0)
	vision := newVisionForTest(messenger, &fakeLLM{}, sessions)

	err := vision.HandleImage(context.Background(), directImageEvent())
	assert.Error(t, err)
	assert.Equal(t, 0, messenger.replyCount())
}
