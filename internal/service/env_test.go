package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"reviewhub/config"
	"reviewhub/internal/models"
	"reviewhub/internal/repository"
	"reviewhub/internal/testutil"
	"reviewhub/pkg/payment"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const (
	testKeySecret     = "key_secret"
	testWebhookSecret = "webhook_secret"
)

var testNow = time.Date(2026, 3, 11, 10, 0, 0, 0, time.UTC) // a Wednesday

type sentNotification struct {
	UserID uint
	Type   string
	Data   map[string]interface{}
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentNotification
}

func (n *recordingNotifier) Notify(_ context.Context, userID uint, notifType, _, _ string, data map[string]interface{}) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentNotification{UserID: userID, Type: notifType, Data: data})
	return nil
}

func (n *recordingNotifier) count(userID uint, notifType string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	c := 0
	for _, s := range n.sent {
		if s.UserID == userID && s.Type == notifType {
			c++
		}
	}
	return c
}

type recordingRooms struct {
	mu       sync.Mutex
	payloads map[uint][]interface{}
}

func (r *recordingRooms) BroadcastToConversation(id uint, payload interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.payloads == nil {
		r.payloads = map[uint][]interface{}{}
	}
	r.payloads[id] = append(r.payloads[id], payload)
}

type env struct {
	t        *testing.T
	db       *gorm.DB
	ctx      context.Context
	notifier *recordingNotifier
	rooms    *recordingRooms

	settings     *SettingsService
	gamification *GamificationService
	competition  *CompetitionService
	referral     *ReferralService
	task         *TaskService
	requests     *ReviewRequestService
	chat         *ChatService
	links        *DeepLinkService
	auth         *AuthService
	profile      *ProfileService
	admin        *AdminService
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db := testutil.NewDB(t)
	clock := testutil.FixedClock(testNow)

	users := repository.NewUserRepository(db)
	points := repository.NewPointsRepository(db)
	badges := repository.NewBadgeRepository(db)
	tasks := repository.NewTaskRepository(db)
	refs := repository.NewReferralRepository(db)
	wallet := repository.NewWalletRepository(db)
	rrs := repository.NewReviewRequestRepository(db)
	payments := repository.NewPaymentRepository(db)

	e := &env{t: t, db: db, ctx: context.Background(), notifier: &recordingNotifier{}, rooms: &recordingRooms{}}
	e.settings = NewSettingsService(repository.NewSettingRepository(db), 0)

	e.gamification = NewGamificationService(db, users, points, badges, tasks, refs, e.settings, e.notifier, time.UTC)
	e.gamification.now = clock

	e.competition = NewCompetitionService(db, repository.NewCompetitionRepository(db), e.notifier)
	e.competition.now = clock
	e.gamification.AddListener(e.competition)

	e.referral = NewReferralService(db, users, refs, wallet, e.settings, e.gamification, e.notifier)
	e.referral.now = clock
	e.referral.AddListener(e.competition)

	e.task = NewTaskService(db, tasks, rrs, wallet, e.settings, e.gamification, e.referral, e.competition, e.notifier)
	e.task.now = clock

	gw := payment.NewStubGateway(testKeySecret, testWebhookSecret)
	e.requests = NewReviewRequestService(db, rrs, payments, wallet, gw, e.settings, e.notifier, "INR")
	e.requests.now = clock

	e.chat = NewChatService(repository.NewChatRepository(db), e.rooms, e.notifier)
	e.chat.now = clock

	e.links = NewDeepLinkService(db, repository.NewDeepLinkRepository(db), "https://rh.test/", time.UTC)
	e.links.now = clock

	cfg := &config.Config{JWT: config.JWTConfig{
		AccessSecret:  "access",
		RefreshSecret: "refresh",
		AccessExpiry:  time.Hour,
		RefreshExpiry: 24 * time.Hour,
		Issuer:        "reviewhub-test",
	}}
	e.auth = NewAuthService(cfg, users, e.referral, e.gamification)
	e.profile = NewProfileService(users, wallet, e.gamification)
	e.admin = NewAdminService(repository.NewAdminRepository(db), repository.NewAuditLogRepository(db), users, e.settings, e.gamification)
	return e
}

// fundedRequest creates an active review request paid from the seller's wallet.
func (e *env) fundedRequest(seller *models.User, quantity int, amount string) *models.ReviewRequest {
	e.t.Helper()
	amt := decimal.RequireFromString(amount)
	total := amt.Mul(decimal.NewFromInt(int64(quantity)))
	testutil.SetBalance(e.t, e.db, seller.ID, total.StringFixed(2))
	co, err := e.requests.Create(e.ctx, seller.ID, ReviewRequestInput{
		ProductName:   "Kettle",
		ProductURL:    "https://shop.example.com/kettle",
		Platform:      "amazon",
		Quantity:      quantity,
		AmountPerTask: amt,
		PayWithWallet: true,
	})
	require.NoError(e.t, err)
	return co.ReviewRequest
}

// refundRequestedTask claims a slot and walks the task through all four steps.
func (e *env) refundRequestedTask(user *models.User, rr *models.ReviewRequest) *models.Task {
	e.t.Helper()
	task, err := e.task.ClaimTask(e.ctx, user.ID, rr.ID)
	require.NoError(e.t, err)
	amt := decimal.RequireFromString("499.00")
	inputs := map[int]StepInput{
		1: {OrderNumber: "OD-1", OrderAmount: &amt, ScreenshotURL: "https://img.test/order.png"},
		2: {ScreenshotURL: "https://img.test/delivered.png"},
		3: {ReviewURL: "https://shop.example.com/review/1"},
		4: {PaymentMethod: "upi", PaymentHandle: "user@upi"},
	}
	for step := 1; step <= 4; step++ {
		_, err := e.task.SubmitStep(e.ctx, user.ID, task.ID, step, inputs[step])
		require.NoError(e.t, err, "step %d", step)
	}
	return task
}
