package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ReviewRequest is a seller's order for a number of product reviews. Each
// claimed slot becomes a Task.
type ReviewRequest struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	SellerID      uint            `gorm:"not null;index" json:"seller_id"`
	ProductName   string          `gorm:"size:255;not null" json:"product_name"`
	ProductURL    string          `gorm:"size:1024;not null" json:"product_url"`
	Platform      string          `gorm:"size:50" json:"platform"`
	Instructions  string          `gorm:"type:text" json:"instructions"`
	Quantity      int             `gorm:"not null" json:"quantity"`
	ClaimedCount  int             `gorm:"not null;default:0" json:"claimed_count"`
	AmountPerTask decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount_per_task"`
	TotalAmount   decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"total_amount"`
	Status        string          `gorm:"size:20;not null;index" json:"status"`
	PaymentID     *uint           `gorm:"index" json:"payment_id"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	DeletedAt     gorm.DeletedAt  `gorm:"index" json:"-"`

	Seller User `gorm:"foreignKey:SellerID" json:"-"`
}

func (ReviewRequest) TableName() string { return "review_requests" }

func (r *ReviewRequest) SlotsLeft() int { return r.Quantity - r.ClaimedCount }

type Task struct {
	ID                uint            `gorm:"primaryKey" json:"id"`
	UserID            uint            `gorm:"not null;uniqueIndex:idx_task_claim,priority:1;index" json:"user_id"`
	ReviewRequestID   uint            `gorm:"not null;uniqueIndex:idx_task_claim,priority:2" json:"review_request_id"`
	Title             string          `gorm:"size:255;not null" json:"title"`
	ProductName       string          `gorm:"size:255" json:"product_name"`
	ProductURL        string          `gorm:"size:1024" json:"product_url"`
	Platform          string          `gorm:"size:50" json:"platform"`
	Amount            decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	Status            string          `gorm:"size:20;not null;index" json:"status"`
	RefundRequested   bool            `gorm:"not null;default:false" json:"refund_requested"`
	RefundRequestedAt *time.Time      `json:"refund_requested_at"`
	CompletedAt       *time.Time      `json:"completed_at"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`

	Steps []TaskStep `gorm:"foreignKey:TaskID" json:"steps,omitempty"`
}

func (Task) TableName() string { return "tasks" }

// TaskStep holds the payload for one of the four workflow steps. Columns are
// shared across steps; each step fills the ones it needs.
type TaskStep struct {
	ID            uint             `gorm:"primaryKey" json:"id"`
	TaskID        uint             `gorm:"not null;uniqueIndex:idx_task_step,priority:1" json:"task_id"`
	StepNumber    int              `gorm:"not null;uniqueIndex:idx_task_step,priority:2" json:"step_number"`
	StepStatus    string           `gorm:"size:20;not null" json:"step_status"`
	OrderNumber   string           `gorm:"size:100" json:"order_number,omitempty"`
	OrderAmount   *decimal.Decimal `gorm:"type:decimal(12,2)" json:"order_amount,omitempty"`
	OrderDate     *time.Time       `json:"order_date,omitempty"`
	ScreenshotURL string           `gorm:"size:512" json:"screenshot_url,omitempty"`
	ReviewURL     string           `gorm:"size:1024" json:"review_url,omitempty"`
	ReviewText    string           `gorm:"type:text" json:"review_text,omitempty"`
	PaymentMethod string           `gorm:"size:30" json:"payment_method,omitempty"`
	PaymentHandle string           `gorm:"size:120" json:"payment_handle,omitempty"`
	AdminNotes    string           `gorm:"type:text" json:"admin_notes,omitempty"`
	SubmittedAt   time.Time        `json:"submitted_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

func (TaskStep) TableName() string { return "task_steps" }
