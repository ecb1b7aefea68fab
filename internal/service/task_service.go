package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"reviewhub/internal/domain"
	"reviewhub/internal/models"
	"reviewhub/internal/repository"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	ErrTaskNotFound          = errors.New("task not found")
	ErrInvalidStep           = errors.New("step must be between 1 and 4")
	ErrStepLocked            = errors.New("previous step must be completed first")
	ErrTaskLocked            = errors.New("task is read-only after the refund request")
	ErrInvalidStepPayload    = errors.New("invalid step payload")
	ErrTaskNotAwaitingReview = errors.New("task is not awaiting refund review")
	ErrReviewRequestNotFound = errors.New("review request not found")
	ErrReviewRequestInactive = errors.New("review request is not accepting claims")
	ErrNoSlotsLeft           = errors.New("no task slots left")
	ErrAlreadyClaimed        = errors.New("task already claimed")
	ErrOwnReviewRequest      = errors.New("sellers cannot claim their own review request")
)

// ActivityRecorder receives metric increments for competitions.
type ActivityRecorder interface {
	RecordActivity(ctx context.Context, userID uint, metric string, delta int64) error
}

// StepInput is the payload of one step submission. Each step reads only its fields.
type StepInput struct {
	OrderNumber   string           `json:"order_number"`
	OrderAmount   *decimal.Decimal `json:"order_amount"`
	OrderDate     *time.Time       `json:"order_date"`
	ScreenshotURL string           `json:"screenshot_url"`
	ReviewURL     string           `json:"review_url"`
	ReviewText    string           `json:"review_text"`
	PaymentMethod string           `json:"payment_method"`
	PaymentHandle string           `json:"payment_handle"`
}

func (in StepInput) validate(step int) error {
	missing := func(field string) error {
		return fmt.Errorf("%w: %s is required", ErrInvalidStepPayload, field)
	}
	switch step {
	case domain.StepOrderPlaced:
		if strings.TrimSpace(in.OrderNumber) == "" {
			return missing("order_number")
		}
		if in.OrderAmount == nil || !in.OrderAmount.IsPositive() {
			return missing("order_amount")
		}
		if in.ScreenshotURL == "" {
			return missing("screenshot_url")
		}
	case domain.StepDeliveryProof:
		if in.ScreenshotURL == "" {
			return missing("screenshot_url")
		}
	case domain.StepReviewProof:
		if in.ReviewURL == "" && in.ScreenshotURL == "" {
			return missing("review_url")
		}
	case domain.StepRefundRequest:
		if in.PaymentMethod == "" {
			return missing("payment_method")
		}
		if strings.TrimSpace(in.PaymentHandle) == "" {
			return missing("payment_handle")
		}
	}
	return nil
}

func (in StepInput) toStep(taskID uint, step int, status string, at time.Time) *models.TaskStep {
	return &models.TaskStep{
		TaskID:        taskID,
		StepNumber:    step,
		StepStatus:    status,
		OrderNumber:   strings.TrimSpace(in.OrderNumber),
		OrderAmount:   in.OrderAmount,
		OrderDate:     in.OrderDate,
		ScreenshotURL: in.ScreenshotURL,
		ReviewURL:     in.ReviewURL,
		ReviewText:    in.ReviewText,
		PaymentMethod: in.PaymentMethod,
		PaymentHandle: strings.TrimSpace(in.PaymentHandle),
		SubmittedAt:   at,
		UpdatedAt:     at,
	}
}

// TaskService runs the four-step order, proof and refund workflow.
type TaskService struct {
	db           *gorm.DB
	tasks        *repository.TaskRepository
	requests     *repository.ReviewRequestRepository
	wallet       *repository.WalletRepository
	settings     *SettingsService
	gamification *GamificationService
	referrals    *ReferralService
	activity     ActivityRecorder
	notifier     Notifier
	now          func() time.Time
}

func NewTaskService(
	db *gorm.DB,
	tasks *repository.TaskRepository,
	requests *repository.ReviewRequestRepository,
	wallet *repository.WalletRepository,
	settings *SettingsService,
	gamification *GamificationService,
	referrals *ReferralService,
	activity ActivityRecorder,
	notifier Notifier,
) *TaskService {
	return &TaskService{
		db:           db,
		tasks:        tasks,
		requests:     requests,
		wallet:       wallet,
		settings:     settings,
		gamification: gamification,
		referrals:    referrals,
		activity:     activity,
		notifier:     notifier,
		now:          time.Now,
	}
}

// ClaimTask takes one slot of an active review request for the user.
func (s *TaskService) ClaimTask(ctx context.Context, userID, reviewRequestID uint) (*models.Task, error) {
	rr, err := s.requests.GetByID(ctx, reviewRequestID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrReviewRequestNotFound
	}
	if err != nil {
		return nil, err
	}
	if rr.SellerID == userID {
		return nil, ErrOwnReviewRequest
	}
	if rr.Status != domain.ReviewRequestActive {
		return nil, ErrReviewRequestInactive
	}

	task := &models.Task{
		UserID:          userID,
		ReviewRequestID: rr.ID,
		Title:           fmt.Sprintf("Review %s", rr.ProductName),
		ProductName:     rr.ProductName,
		ProductURL:      rr.ProductURL,
		Platform:        rr.Platform,
		Amount:          rr.AmountPerTask,
		Status:          domain.TaskStatusAssigned,
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		tasks := s.tasks.WithTx(tx)
		claimed, err := tasks.HasClaimed(ctx, userID, rr.ID)
		if err != nil {
			return err
		}
		if claimed {
			return ErrAlreadyClaimed
		}
		ok, err := s.requests.WithTx(tx).ClaimSlot(ctx, rr.ID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrNoSlotsLeft
		}
		return tasks.Create(ctx, task)
	})
	if err != nil {
		return nil, err
	}
	return task, nil
}

// SubmitStep records a step. Step N needs step N-1 completed; step 4 locks the task.
func (s *TaskService) SubmitStep(ctx context.Context, userID, taskID uint, step int, in StepInput) (*models.TaskStep, error) {
	if step < domain.StepOrderPlaced || step > domain.StepRefundRequest {
		return nil, ErrInvalidStep
	}
	task, err := s.tasks.GetForUser(ctx, taskID, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTaskNotFound
	}
	if err != nil {
		return nil, err
	}
	if task.RefundRequested || task.Status != domain.TaskStatusAssigned {
		return nil, ErrTaskLocked
	}
	if step > domain.StepOrderPlaced && !stepCompleted(task.Steps, step-1) {
		return nil, ErrStepLocked
	}
	if err := in.validate(step); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	if step < domain.StepRefundRequest {
		row := in.toStep(task.ID, step, domain.StepStatusCompleted, now)
		if err := s.tasks.UpsertStep(ctx, row); err != nil {
			return nil, err
		}
		return row, nil
	}

	row := in.toStep(task.ID, step, domain.StepStatusPendingAdmin, now)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		tasks := s.tasks.WithTx(tx)
		ok, err := tasks.MarkRefundRequested(ctx, task.ID, now)
		if err != nil {
			return err
		}
		if !ok {
			return ErrTaskLocked
		}
		return tasks.CreateStep(ctx, row)
	})
	if err != nil {
		return nil, err
	}
	log.Info().Str("component", "task").Uint("task_id", task.ID).Uint("user_id", userID).Msg("refund requested")
	return row, nil
}

func stepCompleted(steps []models.TaskStep, n int) bool {
	for _, st := range steps {
		if st.StepNumber == n {
			return st.StepStatus == domain.StepStatusCompleted
		}
	}
	return false
}

// TaskProgress is a task with its steps and the step the user may submit next.
// NextStep is 0 once the task is locked.
type TaskProgress struct {
	Task     *models.Task `json:"task"`
	NextStep int          `json:"next_step"`
	Locked   bool         `json:"locked"`
}

func (s *TaskService) GetProgress(ctx context.Context, userID, taskID uint) (*TaskProgress, error) {
	task, err := s.tasks.GetForUser(ctx, taskID, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTaskNotFound
	}
	if err != nil {
		return nil, err
	}
	p := &TaskProgress{Task: task}
	if task.RefundRequested || task.Status != domain.TaskStatusAssigned {
		p.Locked = true
		return p, nil
	}
	p.NextStep = domain.StepOrderPlaced
	for n := domain.StepOrderPlaced; n < domain.StepRefundRequest; n++ {
		if !stepCompleted(task.Steps, n) {
			break
		}
		p.NextStep = n + 1
	}
	return p, nil
}

func (s *TaskService) ListMine(ctx context.Context, userID uint, status string, limit, offset int) ([]models.Task, error) {
	return s.tasks.ListByUser(ctx, userID, status, limit, offset)
}

func (s *TaskService) ListRefundRequests(ctx context.Context, limit, offset int) ([]models.Task, error) {
	return s.tasks.ListRefundRequests(ctx, limit, offset)
}

// CompleteTask approves the refund request, refunds the task amount to the
// user's wallet and then runs the qualifying-action side effects: points,
// referral activation, commissions and competition activity.
func (s *TaskService) CompleteTask(ctx context.Context, taskID uint, notes string) (*models.Task, error) {
	task, err := s.tasks.GetByID(ctx, taskID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTaskNotFound
	}
	if err != nil {
		return nil, err
	}
	points := int64(s.settings.GetInt(ctx, domain.SettingPointsTaskCompletion, 20))
	now := s.now().UTC()

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		tasks := s.tasks.WithTx(tx)
		ok, err := tasks.SetStepStatus(ctx, task.ID, domain.StepRefundRequest,
			domain.StepStatusPendingAdmin, domain.StepStatusApproved, notes)
		if err != nil {
			return err
		}
		if !ok {
			return ErrTaskNotAwaitingReview
		}
		ok, err = tasks.Transition(ctx, task.ID, domain.TaskStatusRefundRequested, domain.TaskStatusCompleted, &now)
		if err != nil {
			return err
		}
		if !ok {
			return ErrTaskNotAwaitingReview
		}
		if task.Amount.IsPositive() {
			_, err = s.wallet.WithTx(tx).Credit(ctx, task.UserID, task.Amount,
				domain.WalletTxTaskRefund, fmt.Sprintf("task:%d", task.ID))
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	task.Status = domain.TaskStatusCompleted
	task.CompletedAt = &now
	log.Info().Str("component", "task").Uint("task_id", task.ID).Uint("user_id", task.UserID).
		Str("amount", task.Amount.StringFixed(2)).Msg("task completed")

	s.afterCompletion(ctx, task, points)
	return task, nil
}

func (s *TaskService) afterCompletion(ctx context.Context, task *models.Task, points int64) {
	logger := log.With().Str("component", "task").Uint("task_id", task.ID).Logger()

	notify(ctx, s.notifier, task.UserID, domain.NotifyTaskCompleted, "Task completed",
		fmt.Sprintf("Your refund of %s for %s was approved", task.Amount.StringFixed(2), task.ProductName),
		map[string]interface{}{"task_id": task.ID, "amount": task.Amount.StringFixed(2)})

	if s.referrals != nil {
		if _, err := s.referrals.ActivateReferral(ctx, task.UserID); err != nil {
			logger.Warn().Err(err).Msg("referral activation failed")
		}
		if _, err := s.referrals.CreditReferralCommission(ctx, task.UserID, task.ID, task.Amount); err != nil {
			logger.Warn().Err(err).Msg("referral commission failed")
		}
	}
	if s.gamification != nil && points > 0 {
		desc := fmt.Sprintf("Completed task: %s", task.Title)
		if _, err := s.gamification.AwardPoints(ctx, task.UserID, points, domain.PointsTaskCompletion, desc, domain.TaskRef(task.ID)); err != nil {
			logger.Warn().Err(err).Msg("task points failed")
		}
	}
	if s.activity != nil {
		if err := s.activity.RecordActivity(ctx, task.UserID, domain.MetricTasks, 1); err != nil {
			logger.Warn().Err(err).Msg("competition activity failed")
		}
	}
}

// RejectRefund rejects the step-4 request and closes the task.
func (s *TaskService) RejectRefund(ctx context.Context, taskID uint, notes string) (*models.Task, error) {
	task, err := s.tasks.GetByID(ctx, taskID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTaskNotFound
	}
	if err != nil {
		return nil, err
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		tasks := s.tasks.WithTx(tx)
		ok, err := tasks.SetStepStatus(ctx, task.ID, domain.StepRefundRequest,
			domain.StepStatusPendingAdmin, domain.StepStatusRejected, notes)
		if err != nil {
			return err
		}
		if !ok {
			return ErrTaskNotAwaitingReview
		}
		ok, err = tasks.Transition(ctx, task.ID, domain.TaskStatusRefundRequested, domain.TaskStatusRejected, nil)
		if err != nil {
			return err
		}
		if !ok {
			return ErrTaskNotAwaitingReview
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	task.Status = domain.TaskStatusRejected
	notify(ctx, s.notifier, task.UserID, domain.NotifyRefundRejected, "Refund rejected",
		notes, map[string]interface{}{"task_id": task.ID})
	return task, nil
}
