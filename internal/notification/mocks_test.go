package notification_test

import (
	"auctionhouse/backend/internal/models"
	"auctionhouse/backend/internal/notification"
	"context"
	"sync"

	"github.com/stretchr/testify/mock"
)

type MockChannel struct {
	mock.Mock
	name string
}

func newMockChannel(name string) *MockChannel {
	return &MockChannel{name: name}
}

func (m *MockChannel) Name() string { return m.name }

func (m *MockChannel) Contact(user *models.User) string {
	switch m.name {
	case notification.ChannelEmail:
		return user.Email
	case notification.ChannelSMS:
		return user.Phone
	case notification.ChannelTelegram:
		if user.TelegramID != 0 {
			return "tg"
		}
	}
	return ""
}

func (m *MockChannel) Send(ctx context.Context, n notification.Notice) (string, error) {
	args := m.Called(ctx, n)
	return args.String(0), args.Error(1)
}

type MockUsers struct {
	mock.Mock
}

func (m *MockUsers) GetUserByID(ctx context.Context, userID string) (*models.User, error) {
	args := m.Called(ctx, userID)
	if u := args.Get(0); u != nil {
		return u.(*models.User), args.Error(1)
	}
	return nil, args.Error(1)
}

type memoryAudit struct {
	mu   sync.Mutex
	rows []*models.WinnerNotification
}

func (a *memoryAudit) SaveWinnerNotification(_ context.Context, n *models.WinnerNotification) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.rows = append(a.rows, n)
	return nil
}

type staticRenderer struct{}

func (staticRenderer) Render(lang, key string, vars map[string]string) string {
	return lang + ":" + key + ":" + vars["name"] + "|" + vars["title"] + "|" + vars["amount"]
}
