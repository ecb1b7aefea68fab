package domain

const (
	RoleUser   = "USER"
	RoleSeller = "SELLER"
	RoleAdmin  = "ADMIN"
)

const (
	ReferralStatusPending = "pending"
	ReferralStatusActive  = "active"
)

const (
	EarningStatusPending  = "pending"
	EarningStatusCredited = "credited"
)

// Point transaction types.
const (
	PointsDailyLogin        = "daily_login"
	PointsTaskCompletion    = "task_completion"
	PointsReferral          = "referral"
	PointsLevelUp           = "level_up"
	PointsProfileCompletion = "profile_completion"
	PointsBadge             = "badge"
	PointsAdminAdjustment   = "admin_adjustment"
)

const DefaultLevel = "Bronze"

// Badge catalog names referenced by achievement checks.
const (
	BadgeFirstTask        = "First Task"
	BadgeTaskAchiever     = "Task Achiever"
	BadgeTaskMaster       = "Task Master"
	BadgeTaskLegend       = "Task Legend"
	BadgeFirstReferral    = "First Referral"
	BadgeReferralChampion = "Referral Champion"
	BadgeVerifiedUser     = "Verified User"
	BadgeStreakMaster     = "Streak Master"
	StreakMasterThreshold = 30
)

const (
	ReviewRequestPendingPayment = "pending_payment"
	ReviewRequestActive         = "active"
	ReviewRequestClosed         = "closed"
)

const (
	TaskStatusAssigned        = "assigned"
	TaskStatusRefundRequested = "refund_requested"
	TaskStatusCompleted       = "completed"
	TaskStatusRejected        = "rejected"
)

const (
	StepOrderPlaced   = 1
	StepDeliveryProof = 2
	StepReviewProof   = 3
	StepRefundRequest = 4
)

const (
	StepStatusCompleted    = "completed"
	StepStatusPendingAdmin = "pending_admin"
	StepStatusApproved     = "approved"
	StepStatusRejected     = "rejected"
)

const (
	CompetitionActive = "active"
	CompetitionEnded  = "ended"
)

// Competition metrics.
const (
	MetricPoints    = "points"
	MetricTasks     = "tasks"
	MetricReferrals = "referrals"
)

const (
	PaymentStatusPending   = "PENDING"
	PaymentStatusCompleted = "COMPLETED"
	PaymentStatusFailed    = "FAILED"
	PaymentStatusExpired   = "EXPIRED"
)

const PaymentPurposeReviewRequest = "REVIEW_REQUEST"

// Wallet transaction types.
const (
	WalletTxReferralCommission   = "REFERRAL_COMMISSION"
	WalletTxTaskRefund           = "TASK_REFUND"
	WalletTxReviewRequestPayment = "REVIEW_REQUEST_PAYMENT"
	WalletTxAdjustment           = "ADJUSTMENT"
)

const (
	ConversationOpen   = "open"
	ConversationClosed = "closed"
)

// Notification types.
const (
	NotifyPointsAwarded     = "POINTS_AWARDED"
	NotifyLevelUp           = "LEVEL_UP"
	NotifyBadgeEarned       = "BADGE_EARNED"
	NotifyReferralJoined    = "REFERRAL_JOINED"
	NotifyCommission        = "REFERRAL_COMMISSION"
	NotifyTaskCompleted     = "TASK_COMPLETED"
	NotifyRefundRejected    = "REFUND_REJECTED"
	NotifyPaymentConfirmed  = "PAYMENT_CONFIRMED"
	NotifySupportReply      = "SUPPORT_REPLY"
	NotifyCompetitionJoined = "COMPETITION_JOINED"
)

// Runtime settings keys stored in system_settings.
const (
	SettingReferralMaxLevels          = "referral_max_levels"
	SettingReferralLevelCommissionFmt = "referral_level_%d_commission"
	SettingPointsReferral             = "points_referral"
	SettingPointsTaskCompletion       = "points_task_completion"
	SettingPointsProfileCompletion    = "points_profile_completion"
	SettingPaymentExpiryMinutes       = "payment_expiry_minutes"
	SettingMinTaskAmount              = "min_task_amount"
)

// DefaultSettings are seeded on migrate and used as fallbacks.
var DefaultSettings = map[string]string{
	SettingReferralMaxLevels:       "3",
	"referral_level_1_commission":  "10",
	"referral_level_2_commission":  "5",
	"referral_level_3_commission":  "2",
	SettingPointsReferral:          "50",
	SettingPointsTaskCompletion:    "20",
	SettingPointsProfileCompletion: "25",
	SettingPaymentExpiryMinutes:    "30",
	SettingMinTaskAmount:           "1",
}
