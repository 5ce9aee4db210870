package settlement_test

import (
	"auctionhouse/backend/internal/auctionerrors"
	"auctionhouse/backend/internal/models"
	"auctionhouse/backend/internal/notification"
	"auctionhouse/backend/internal/storage"
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// memStore is an in-memory Storage and LiveStore.
type memStore struct {
	mu           sync.Mutex
	rooms        map[string]*models.AuctionRoom
	bids         map[string]models.Bid
	products     map[string]*models.Product
	users        map[string]*models.User
	participants map[string]*models.Participant
	snapshots    map[string]*models.LiveSnapshot

	failInsertRoom string
	failReturns    int
	liveErr        error
	mutations      int
	audit          []*models.WinnerNotification
}

var _ storage.Storage = (*memStore)(nil)
var _ storage.LiveStore = (*memStore)(nil)

func newMemStore() *memStore {
	return &memStore{
		rooms:        make(map[string]*models.AuctionRoom),
		bids:         make(map[string]models.Bid),
		products:     make(map[string]*models.Product),
		users:        make(map[string]*models.User),
		participants: make(map[string]*models.Participant),
		snapshots:    make(map[string]*models.LiveSnapshot),
	}
}

// addRoom stores an active room and its product; the room ended an hour ago.
func (m *memStore) addRoom(id string, startingBid int64) *models.AuctionRoom {
	m.mu.Lock()
	defer m.mu.Unlock()

	productID := "product-" + id
	m.products[productID] = &models.Product{
		ID:          productID,
		Title:       "Item " + id,
		Environment: models.EnvironmentAuction,
	}
	end := time.Now().Add(-time.Hour)
	room := &models.AuctionRoom{
		ID:          id,
		ProductID:   productID,
		StartingBid: decimal.NewFromInt(startingBid),
		StartTime:   end.Add(-24 * time.Hour),
		EndTime:     end,
		Status:      models.AuctionActive,
	}
	m.rooms[id] = room
	copied := *room
	return &copied
}

func (m *memStore) room(id string) models.AuctionRoom {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.rooms[id]
}

func (m *memStore) product(id string) models.Product {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.products[id]
}

func (m *memStore) mutationCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mutations
}

func (m *memStore) roomBids(roomID string) []models.Bid {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.roomBidsLocked(roomID)
}

func (m *memStore) roomBidsLocked(roomID string) []models.Bid {
	var out []models.Bid
	for _, b := range m.bids {
		if b.RoomID == roomID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.Before(out[j].Timestamp)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (m *memStore) FetchLiveAuctionSnapshot(_ context.Context, roomID string) (*models.LiveSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.liveErr != nil {
		return nil, m.liveErr
	}
	snap, ok := m.snapshots[roomID]
	if !ok {
		return nil, fmt.Errorf("room %s: %w", roomID, auctionerrors.ErrSnapshotNotFound)
	}
	return snap, nil
}

func (m *memStore) GetExpiredActiveRooms(_ context.Context, now time.Time) ([]models.AuctionRoom, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.AuctionRoom
	for _, r := range m.rooms {
		if r.Status == models.AuctionActive && !r.EndTime.After(now) {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) GetRoomsPendingNotification(_ context.Context) ([]models.AuctionRoom, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.AuctionRoom
	for _, r := range m.rooms {
		if r.Status == models.AuctionEnded && r.WinnerID != nil {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) GetSettledRoomsWithAuctionProduct(_ context.Context) ([]models.AuctionRoom, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.AuctionRoom
	for _, r := range m.rooms {
		if r.Status != models.AuctionEnded && r.Status != models.AuctionWinnerNotified {
			continue
		}
		if p, ok := m.products[r.ProductID]; ok && p.Environment == models.EnvironmentAuction {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) GetRoomByID(_ context.Context, roomID string) (*models.AuctionRoom, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rooms[roomID]
	if !ok {
		return nil, auctionerrors.ErrRoomNotFound
	}
	copied := *r
	return &copied, nil
}

func (m *memStore) BidExists(_ context.Context, bidID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.bids[bidID]
	return ok, nil
}

func (m *memStore) InsertBid(_ context.Context, bid *models.Bid) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if bid.RoomID == m.failInsertRoom {
		return errors.New("connection reset by peer")
	}
	if _, ok := m.bids[bid.ID]; ok {
		return nil
	}
	m.bids[bid.ID] = *bid
	m.mutations++
	return nil
}

func (m *memStore) GetBidsForRoom(_ context.Context, roomID string) ([]models.Bid, error) {
	return m.roomBids(roomID), nil
}

func (m *memStore) SettleRoom(_ context.Context, roomID string, st storage.RoomSettlement) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rooms[roomID]
	if !ok || r.Status != models.AuctionActive {
		return fmt.Errorf("room %s: %w", roomID, auctionerrors.ErrRoomNotActive)
	}
	r.Status = models.AuctionEnded
	r.TotalBids = st.TotalBids
	r.TotalParticipants = st.TotalParticipants
	r.CurrentHighestBid = decimal.NewNullDecimal(st.HighestBid)
	r.CurrentHighestBidderID = st.HighestBidderID
	r.WinnerID = st.WinnerID
	r.ReserveReached = st.ReserveReached
	for id, b := range m.bids {
		if b.RoomID == roomID {
			b.IsWinning = id == st.WinningBidID
			m.bids[id] = b
		}
	}
	if st.WinnerID != nil {
		if p, ok := m.participants[roomID+"|"+*st.WinnerID]; ok {
			p.IsWinner = true
		}
	}
	m.mutations++
	return nil
}

func (m *memStore) MarkWinnerNotified(_ context.Context, roomID string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rooms[roomID]
	if !ok || r.Status != models.AuctionEnded {
		return fmt.Errorf("room %s: %w", roomID, auctionerrors.ErrRoomNotPending)
	}
	r.Status = models.AuctionWinnerNotified
	r.NotifiedAt = &at
	m.mutations++
	return nil
}

func (m *memStore) ReturnProductToMarketplace(_ context.Context, productID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failReturns > 0 {
		m.failReturns--
		return errors.New("deadlock detected")
	}
	p, ok := m.products[productID]
	if !ok {
		return auctionerrors.ErrProductNotFound
	}
	p.Environment = models.EnvironmentMarketplace
	m.mutations++
	return nil
}

func (m *memStore) GetProductByID(_ context.Context, productID string) (*models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[productID]
	if !ok {
		return nil, auctionerrors.ErrProductNotFound
	}
	copied := *p
	return &copied, nil
}

func (m *memStore) GetUserByID(_ context.Context, userID string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return nil, auctionerrors.ErrUserNotFound
	}
	return u, nil
}

func (m *memStore) SaveWinnerNotification(_ context.Context, n *models.WinnerNotification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.audit = append(m.audit, n)
	return nil
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) NotifyWinner(ctx context.Context, auctionID, winnerID, auctionTitle string, winningBid decimal.Decimal) (*notification.Result, error) {
	args := m.Called(ctx, auctionID, winnerID, auctionTitle, winningBid)
	if r := args.Get(0); r != nil {
		return r.(*notification.Result), args.Error(1)
	}
	return nil, args.Error(1)
}

func sentResult() *notification.Result {
	return &notification.Result{
		Success: true,
		Method:  notification.ChannelEmail,
		Primary: notification.ChannelResult{Channel: notification.ChannelEmail, Success: true, Reference: "<id@example.com>"},
	}
}

func failedResult() *notification.Result {
	return &notification.Result{
		Primary: notification.ChannelResult{Channel: notification.ChannelEmail, Error: "smtp: connection refused"},
	}
}

var baseMillis = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC).UnixMilli()

// exampleSnapshot is the live state of a room with bids A=1200, B=1500, C=1400.
func exampleSnapshot() *models.LiveSnapshot {
	highest := decimal.NewFromInt(1500)
	return &models.LiveSnapshot{
		Bids: map[string]models.LiveBid{
			"bid-a": {UserName: "Anna", Amount: decimal.NewFromInt(1200), BidderID: "user-a", Timestamp: baseMillis + 1000},
			"bid-b": {UserName: "Bohdan", Amount: decimal.NewFromInt(1500), BidderID: "user-b", Timestamp: baseMillis + 3000},
			"bid-c": {UserName: "Chris", Amount: decimal.NewFromInt(1400), UserID: "user-c", Timestamp: baseMillis + 2000},
		},
		TotalBids:         3,
		CurrentHighestBid: &highest,
	}
}
