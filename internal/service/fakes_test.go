package service

import (
	"context"
	"errors"
	"sync"

	"github.com/lipo-out/linebot/internal/backend"
	"github.com/lipo-out/linebot/internal/line"
	"github.com/lipo-out/linebot/internal/llm"
	"github.com/lipo-out/linebot/internal/model"
)

// fakeLLM replays scripted completions and counts calls.
type fakeLLM struct {
	mu        sync.Mutex
	responses []string
	err       error
	calls     int
	requests  []*llm.CompletionRequest
}

func (f *fakeLLM) Complete(_ context.Context, req *llm.CompletionRequest) (*llm.CompletionResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.requests = append(f.requests, req)
	idx := f.calls
	f.calls++

	if f.err != nil {
		return nil, f.err
	}
	if idx >= len(f.responses) {
		idx = len(f.responses) - 1
	}
	if idx < 0 {
		return &llm.CompletionResponse{}, nil
	}
	return &llm.CompletionResponse{Content: f.responses[idx]}, nil
}

func (f *fakeLLM) Name() string     { return "fake" }
func (f *fakeLLM) Models() []string { return nil }

func (f *fakeLLM) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// fakeMessenger records outbound messages.
type fakeMessenger struct {
	mu sync.Mutex

	replies [][]line.Message
	pushes  [][]line.Message

	profile    *model.Profile
	profileErr error
	content    []byte
	contentErr error
	replyErr   error
}

func (f *fakeMessenger) ReplyMessage(_ context.Context, _ string, messages ...line.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replies = append(f.replies, messages)
	return f.replyErr
}

func (f *fakeMessenger) PushMessage(_ context.Context, _ string, messages ...line.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pushes = append(f.pushes, messages)
	return nil
}

func (f *fakeMessenger) GetProfile(context.Context, string) (*model.Profile, error) {
	if f.profileErr != nil {
		return nil, f.profileErr
	}
	if f.profile != nil {
		return f.profile, nil
	}
	return &model.Profile{UserID: "U1", DisplayName: "測試用戶"}, nil
}

func (f *fakeMessenger) GetMessageContent(context.Context, string) ([]byte, error) {
	if f.contentErr != nil {
		return nil, f.contentErr
	}
	if f.content != nil {
		return f.content, nil
	}
	return []byte("fake-png-bytes"), nil
}

func (f *fakeMessenger) replyCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.replies)
}

// lastReplyText digs the text out of the most recent reply's first message.
func (f *fakeMessenger) lastReplyText() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.replies) == 0 {
		return ""
	}
	batch := f.replies[len(f.replies)-1]
	switch m := batch[len(batch)-1].(type) {
	case line.TextMessage:
		return m.Text
	case line.MentionMessage:
		return m.Text
	}
	return ""
}

func (f *fakeMessenger) lastReplyQuickReply() *line.QuickReply {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.replies) == 0 {
		return nil
	}
	batch := f.replies[len(f.replies)-1]
	if m, ok := batch[0].(line.TextMessage); ok {
		return m.QuickReply
	}
	return nil
}

// fakeUserStore is an in-memory persistence backend.
type fakeUserStore struct {
	mu sync.Mutex

	users     map[string]*backend.User
	foods     []*backend.FoodRecord
	findErr   error
	createErr error
	foodErr   error
	foodHook  func()
	created   []*backend.NewUser
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: make(map[string]*backend.User)}
}

func (f *fakeUserStore) FindUserByLineID(_ context.Context, lineUserID string) (*backend.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.findErr != nil {
		return nil, f.findErr
	}
	if u, ok := f.users[lineUserID]; ok {
		return u, nil
	}
	return nil, backend.ErrNotFound
}

func (f *fakeUserStore) CreateUser(_ context.Context, user *backend.NewUser) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, user)
	f.users[user.LineUserID] = &backend.User{
		ID:         len(f.users) + 1,
		Name:       user.Name,
		Goal:       user.Goal,
		LineUserID: user.LineUserID,
	}
	return nil
}

func (f *fakeUserStore) CreateFood(_ context.Context, record *backend.FoodRecord) error {
	if f.foodHook != nil {
		f.foodHook()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.foodErr != nil {
		return f.foodErr
	}
	f.foods = append(f.foods, record)
	return nil
}

// recordingPublisher captures published domain events.
type recordingPublisher struct {
	mu     sync.Mutex
	events []string
	orders []*model.Order
}

func (p *recordingPublisher) EventReceived(_ context.Context, kind model.EventKind, _ model.SourceType) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, "received:"+string(kind))
}

func (p *recordingPublisher) FoodSaved(_ context.Context, userID string, _ *model.FoodAnalysis) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, "food_saved:"+userID)
}

func (p *recordingPublisher) OrderCreated(_ context.Context, _ string, order *model.Order) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.orders = append(p.orders, order)
}

func (p *recordingPublisher) Ready() bool { return true }
func (p *recordingPublisher) Close()      {}

var errBoom = errors.New("boom")
