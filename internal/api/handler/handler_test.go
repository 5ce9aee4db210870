package handler_test

import (
	"auctionhouse/backend/internal/api/handler"
	"auctionhouse/backend/internal/auctionerrors"
	"auctionhouse/backend/internal/notification"
	"auctionhouse/backend/internal/scheduler"
	"auctionhouse/backend/internal/settlement"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var secret = []byte("test-secret")

type MockSettler struct {
	mock.Mock
}

func (m *MockSettler) CheckExpiredAuctions(ctx context.Context) (*settlement.BatchResult, error) {
	args := m.Called(ctx)
	if r := args.Get(0); r != nil {
		return r.(*settlement.BatchResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockSettler) NotifyRoomWinner(ctx context.Context, roomID string) (*notification.Result, error) {
	args := m.Called(ctx, roomID)
	if r := args.Get(0); r != nil {
		return r.(*notification.Result), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockSettler) NotifyPendingWinners(ctx context.Context) (*settlement.SweepResult, error) {
	args := m.Called(ctx)
	if r := args.Get(0); r != nil {
		return r.(*settlement.SweepResult), args.Error(1)
	}
	return nil, args.Error(1)
}

type MockJobs struct {
	mock.Mock
}

func (m *MockJobs) Start() error   { return m.Called().Error(0) }
func (m *MockJobs) Stop()          { m.Called() }
func (m *MockJobs) Restart() error { return m.Called().Error(0) }

func (m *MockJobs) Status() []scheduler.JobStatus {
	return m.Called().Get(0).([]scheduler.JobStatus)
}

func (m *MockJobs) Trigger(ctx context.Context, index int) error {
	return m.Called(ctx, index).Error(0)
}

type envelope struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func setup(t *testing.T) (*MockSettler, *MockJobs, *gin.Engine) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	s := new(MockSettler)
	j := new(MockJobs)
	return s, j, handler.SetupRouter(handler.NewHandler(s, j), secret)
}

func adminToken(t *testing.T) string {
	t.Helper()
	tok, err := handler.IssueAdminToken(secret, "ops", time.Hour)
	require.NoError(t, err)
	return tok
}

func do(t *testing.T, r *gin.Engine, method, path, token string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w, env
}

func TestAdminAuth(t *testing.T) {
	_, jobs, r := setup(t)
	jobs.On("Status").Return([]scheduler.JobStatus{})

	wrongRole := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "u", "role": "user", "iss": "auctionhouse-admin", "exp": time.Now().Add(time.Hour).Unix(),
	})
	userTok, err := wrongRole.SignedString(secret)
	require.NoError(t, err)

	otherKey, err := handler.IssueAdminToken([]byte("other"), "ops", time.Hour)
	require.NoError(t, err)
	expired, err := handler.IssueAdminToken(secret, "ops", -time.Minute)
	require.NoError(t, err)

	tests := []struct {
		name   string
		token  string
		status int
	}{
		{"missing_token", "", http.StatusUnauthorized},
		{"wrong_signature", otherKey, http.StatusUnauthorized},
		{"expired", expired, http.StatusUnauthorized},
		{"not_admin", userTok, http.StatusForbidden},
		{"admin", adminToken(t), http.StatusOK},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			w, _ := do(t, r, http.MethodGet, "/api/jobs/status", tc.token)
			assert.Equal(t, tc.status, w.Code)
		})
	}
}

func TestHealthAndMetricsArePublic(t *testing.T) {
	_, jobs, r := setup(t)
	jobs.On("Status").Return([]scheduler.JobStatus{{Index: 0, Name: "settle", Running: true}})

	w, env := do(t, r, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"scheduler":"running"}`, string(env.Data))

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	mw := httptest.NewRecorder()
	r.ServeHTTP(mw, req)
	assert.Equal(t, http.StatusOK, mw.Code)
}

func TestCheckExpired(t *testing.T) {
	settler, _, r := setup(t)
	settler.On("CheckExpiredAuctions", mock.Anything).
		Return(&settlement.BatchResult{Checked: 2, Settled: 1, Failed: 1}, nil).Once()

	w, env := do(t, r, http.MethodPost, "/api/jobs/check-expired", adminToken(t))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "expired auctions processed", env.Message)

	var batch settlement.BatchResult
	require.NoError(t, json.Unmarshal(env.Data, &batch))
	assert.Equal(t, 2, batch.Checked)
	assert.Equal(t, 1, batch.Failed)

	settler.On("CheckExpiredAuctions", mock.Anything).Return(nil, fmt.Errorf("db: %w", context.DeadlineExceeded)).Once()
	w, env = do(t, r, http.MethodPost, "/api/jobs/check-expired", adminToken(t))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, env.Error, "deadline exceeded")
}

func TestJobControls(t *testing.T) {
	_, jobs, r := setup(t)
	status := []scheduler.JobStatus{{Index: 0, Name: "settle"}, {Index: 1, Name: "notify-pending"}}
	jobs.On("Status").Return(status)
	jobs.On("Start").Return(nil)
	jobs.On("Stop").Return()
	jobs.On("Restart").Return(auctionerrors.ErrSchedulerNotInitialized)
	jobs.On("Trigger", mock.Anything, 1).Return(nil)
	jobs.On("Trigger", mock.Anything, 5).Return(auctionerrors.ErrJobNotFound)
	jobs.On("Trigger", mock.Anything, 0).Return(auctionerrors.ErrJobBusy)
	tok := adminToken(t)

	w, _ := do(t, r, http.MethodPost, "/api/jobs/start", tok)
	assert.Equal(t, http.StatusOK, w.Code)
	w, _ = do(t, r, http.MethodPost, "/api/jobs/stop", tok)
	assert.Equal(t, http.StatusOK, w.Code)
	w, _ = do(t, r, http.MethodPost, "/api/jobs/restart", tok)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w, env := do(t, r, http.MethodPost, "/api/jobs/1/trigger", tok)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"index":1,"name":"notify-pending","schedule":"","running":false,"busy":false,"runs":0}`, string(env.Data))

	w, _ = do(t, r, http.MethodPost, "/api/jobs/5/trigger", tok)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w, _ = do(t, r, http.MethodPost, "/api/jobs/0/trigger", tok)
	assert.Equal(t, http.StatusConflict, w.Code)
	w, _ = do(t, r, http.MethodPost, "/api/jobs/abc/trigger", tok)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	jobs.AssertCalled(t, "Stop")
}

func TestNotifyWinner(t *testing.T) {
	settler, _, r := setup(t)
	tok := adminToken(t)

	ok := &notification.Result{Success: true, Method: "email", Primary: notification.ChannelResult{Channel: "email", Success: true}}
	settler.On("NotifyRoomWinner", mock.Anything, "room-1").Return(ok, nil)
	settler.On("NotifyRoomWinner", mock.Anything, "room-2").Return(nil, auctionerrors.ErrRoomNotPending)
	failed := &notification.Result{Primary: notification.ChannelResult{Channel: "email", Error: "smtp down"}}
	settler.On("NotifyRoomWinner", mock.Anything, "room-3").
		Return(failed, fmt.Errorf("room room-3: %w", auctionerrors.ErrPrimaryChannelFailed))

	w, env := do(t, r, http.MethodPost, "/api/auctions/room-1/notify-winner", tok)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), `"success":true`)

	w, _ = do(t, r, http.MethodPost, "/api/auctions/room-2/notify-winner", tok)
	assert.Equal(t, http.StatusConflict, w.Code)

	w, env = do(t, r, http.MethodPost, "/api/auctions/room-3/notify-winner", tok)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, string(env.Data), "smtp down")
}

func TestNotifyPending(t *testing.T) {
	settler, _, r := setup(t)
	settler.On("NotifyPendingWinners", mock.Anything).Return(&settlement.SweepResult{Pending: 3, Notified: 2, ProductsReturned: 1, Failed: 1}, nil)

	w, env := do(t, r, http.MethodPost, "/api/auctions/notify-pending", adminToken(t))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"pending":3,"notified":2,"productsReturned":1,"failed":1}`, string(env.Data))
}

func TestIssueAdminToken_EmptySecret(t *testing.T) {
	_, err := handler.IssueAdminToken(nil, "ops", time.Hour)
	assert.Error(t, err)
}
