package repository

import (
	"context"
	"time"

	"reviewhub/internal/domain"
	"reviewhub/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type TaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

func (r *TaskRepository) WithTx(tx *gorm.DB) *TaskRepository {
	return &TaskRepository{db: tx}
}

func (r *TaskRepository) Create(ctx context.Context, t *models.Task) error {
	return r.db.WithContext(ctx).Create(t).Error
}

func (r *TaskRepository) GetByID(ctx context.Context, id uint) (*models.Task, error) {
	var t models.Task
	if err := r.db.WithContext(ctx).First(&t, id).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

// GetForUser loads the task with its steps, scoped to its owner.
func (r *TaskRepository) GetForUser(ctx context.Context, id, userID uint) (*models.Task, error) {
	var t models.Task
	err := r.db.WithContext(ctx).
		Preload("Steps", func(db *gorm.DB) *gorm.DB { return db.Order("step_number ASC") }).
		Where("id = ? AND user_id = ?", id, userID).First(&t).Error
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// HasClaimed reports whether the user already holds a task for the review request.
func (r *TaskRepository) HasClaimed(ctx context.Context, userID, reviewRequestID uint) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Task{}).
		Where("user_id = ? AND review_request_id = ?", userID, reviewRequestID).Count(&n).Error
	return n > 0, err
}

func (r *TaskRepository) ListByUser(ctx context.Context, userID uint, status string, limit, offset int) ([]models.Task, error) {
	q := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var list []models.Task
	err := q.Order("id DESC").Limit(limit).Offset(offset).Find(&list).Error
	return list, err
}

// ListRefundRequests returns tasks waiting for admin review, oldest first.
func (r *TaskRepository) ListRefundRequests(ctx context.Context, limit, offset int) ([]models.Task, error) {
	var list []models.Task
	err := r.db.WithContext(ctx).
		Preload("Steps", func(db *gorm.DB) *gorm.DB { return db.Order("step_number ASC") }).
		Where("status = ?", domain.TaskStatusRefundRequested).
		Order("refund_requested_at ASC").Limit(limit).Offset(offset).Find(&list).Error
	return list, err
}

func (r *TaskRepository) CountByStatus(ctx context.Context, userID uint, status string) (int64, error) {
	q := r.db.WithContext(ctx).Model(&models.Task{}).Where("status = ?", status)
	if userID != 0 {
		q = q.Where("user_id = ?", userID)
	}
	var n int64
	err := q.Count(&n).Error
	return n, err
}

func (r *TaskRepository) GetStep(ctx context.Context, taskID uint, step int) (*models.TaskStep, error) {
	var s models.TaskStep
	err := r.db.WithContext(ctx).Where("task_id = ? AND step_number = ?", taskID, step).First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *TaskRepository) ListSteps(ctx context.Context, taskID uint) ([]models.TaskStep, error) {
	var list []models.TaskStep
	err := r.db.WithContext(ctx).Where("task_id = ?", taskID).Order("step_number ASC").Find(&list).Error
	return list, err
}

// UpsertStep inserts the step or overwrites its payload when (task_id, step_number) exists.
func (r *TaskRepository) UpsertStep(ctx context.Context, s *models.TaskStep) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "task_id"}, {Name: "step_number"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"step_status", "order_number", "order_amount", "order_date", "screenshot_url",
			"review_url", "review_text", "payment_method", "payment_handle", "submitted_at", "updated_at",
		}),
	}).Create(s).Error
}

// CreateStep inserts a step and fails if it already exists.
func (r *TaskRepository) CreateStep(ctx context.Context, s *models.TaskStep) error {
	return r.db.WithContext(ctx).Create(s).Error
}

// SetStepStatus moves a step from one status to another. It reports whether the row changed.
func (r *TaskRepository) SetStepStatus(ctx context.Context, taskID uint, step int, from, to, notes string) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.TaskStep{}).
		Where("task_id = ? AND step_number = ? AND step_status = ?", taskID, step, from).
		Updates(map[string]interface{}{"step_status": to, "admin_notes": notes})
	return res.RowsAffected == 1, res.Error
}

// MarkRefundRequested locks the task. It reports whether this call set the flag.
func (r *TaskRepository) MarkRefundRequested(ctx context.Context, taskID uint, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Task{}).
		Where("id = ? AND refund_requested = ?", taskID, false).
		Updates(map[string]interface{}{
			"refund_requested":    true,
			"refund_requested_at": at,
			"status":              domain.TaskStatusRefundRequested,
		})
	return res.RowsAffected == 1, res.Error
}

// Transition moves the task from one status to another. It reports whether the row changed.
func (r *TaskRepository) Transition(ctx context.Context, taskID uint, from, to string, at *time.Time) (bool, error) {
	fields := map[string]interface{}{"status": to}
	if at != nil {
		fields["completed_at"] = *at
	}
	res := r.db.WithContext(ctx).Model(&models.Task{}).
		Where("id = ? AND status = ?", taskID, from).Updates(fields)
	return res.RowsAffected == 1, res.Error
}

type ReviewRequestRepository struct {
	db *gorm.DB
}

func NewReviewRequestRepository(db *gorm.DB) *ReviewRequestRepository {
	return &ReviewRequestRepository{db: db}
}

func (r *ReviewRequestRepository) WithTx(tx *gorm.DB) *ReviewRequestRepository {
	return &ReviewRequestRepository{db: tx}
}

func (r *ReviewRequestRepository) Create(ctx context.Context, rr *models.ReviewRequest) error {
	return r.db.WithContext(ctx).Create(rr).Error
}

func (r *ReviewRequestRepository) GetByID(ctx context.Context, id uint) (*models.ReviewRequest, error) {
	var rr models.ReviewRequest
	if err := r.db.WithContext(ctx).First(&rr, id).Error; err != nil {
		return nil, err
	}
	return &rr, nil
}

func (r *ReviewRequestRepository) GetByPaymentID(ctx context.Context, paymentID uint) (*models.ReviewRequest, error) {
	var rr models.ReviewRequest
	if err := r.db.WithContext(ctx).Where("payment_id = ?", paymentID).First(&rr).Error; err != nil {
		return nil, err
	}
	return &rr, nil
}

// ListAvailable returns active requests that still have unclaimed slots.
func (r *ReviewRequestRepository) ListAvailable(ctx context.Context, limit, offset int) ([]models.ReviewRequest, error) {
	var list []models.ReviewRequest
	err := r.db.WithContext(ctx).
		Where("status = ? AND claimed_count < quantity", domain.ReviewRequestActive).
		Order("id DESC").Limit(limit).Offset(offset).Find(&list).Error
	return list, err
}

func (r *ReviewRequestRepository) ListBySeller(ctx context.Context, sellerID uint, limit, offset int) ([]models.ReviewRequest, error) {
	var list []models.ReviewRequest
	err := r.db.WithContext(ctx).Where("seller_id = ?", sellerID).
		Order("id DESC").Limit(limit).Offset(offset).Find(&list).Error
	return list, err
}

func (r *ReviewRequestRepository) SetPayment(ctx context.Context, id, paymentID uint) error {
	return r.db.WithContext(ctx).Model(&models.ReviewRequest{}).Where("id = ?", id).
		UpdateColumn("payment_id", paymentID).Error
}

// Activate moves a request out of pending_payment. It reports whether this call activated it.
func (r *ReviewRequestRepository) Activate(ctx context.Context, id uint) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.ReviewRequest{}).
		Where("id = ? AND status = ?", id, domain.ReviewRequestPendingPayment).
		Update("status", domain.ReviewRequestActive)
	return res.RowsAffected == 1, res.Error
}

// ClaimSlot takes one slot if any remain. It reports whether a slot was taken.
func (r *ReviewRequestRepository) ClaimSlot(ctx context.Context, id uint) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.ReviewRequest{}).
		Where("id = ? AND status = ? AND claimed_count < quantity", id, domain.ReviewRequestActive).
		UpdateColumn("claimed_count", gorm.Expr("claimed_count + 1"))
	return res.RowsAffected == 1, res.Error
}

func (r *ReviewRequestRepository) Close(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Model(&models.ReviewRequest{}).Where("id = ?", id).
		Update("status", domain.ReviewRequestClosed).Error
}
