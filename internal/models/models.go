package models

import "time"

type Role string

const (
	RoleMember Role = "member"
	RoleCoach  Role = "coach"
	RoleAdmin  Role = "admin"
)

type PlanStatus string

const (
	PlanOngoing   PlanStatus = "ongoing"
	PlanCompleted PlanStatus = "completed"
	PlanCancelled PlanStatus = "cancelled"
)

type StageStatus string

const (
	StageNotStarted StageStatus = "not_started"
	StageInProgress StageStatus = "in_progress"
	StageCompleted  StageStatus = "completed"
	StageSkipped    StageStatus = "skipped"
	StageFailed     StageStatus = "failed"
)

// Valid reports whether s is one of the declared stage states.
func (s StageStatus) Valid() bool {
	switch s {
	case StageNotStarted, StageInProgress, StageCompleted, StageSkipped, StageFailed:
		return true
	}
	return false
}

// Open reports whether the stage can still receive progress.
func (s StageStatus) Open() bool {
	return s == StageNotStarted || s == StageInProgress
}

type Frequency string

const (
	FrequencyLight  Frequency = "light"
	FrequencyMedium Frequency = "medium"
	FrequencyHeavy  Frequency = "heavy"
)

func (f Frequency) Valid() bool {
	return f == FrequencyLight || f == FrequencyMedium || f == FrequencyHeavy
}

type BadgeConditionType string

const (
	ConditionNoSmokeDays BadgeConditionType = "no_smoke_days"
	ConditionMoneySaved  BadgeConditionType = "money_saved"
)

func (t BadgeConditionType) Valid() bool {
	return t == ConditionNoSmokeDays || t == ConditionMoneySaved
}

type User struct {
	ID          int64     `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	Role        Role      `json:"role"`
	TelegramID  *int64    `json:"telegram_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type Membership struct {
	ID            int64     `json:"id"`
	UserID        int64     `json:"user_id"`
	Tier          string    `json:"tier"`
	IsPro         bool      `json:"is_pro"`
	CanCreatePlan bool      `json:"can_create_plan"`
	ExpiresAt     time.Time `json:"expires_at"`
	CreatedAt     time.Time `json:"created_at"`
}

// SmokingStatus is a self-reported baseline. PlanID is nil until a plan is
// created from it.
type SmokingStatus struct {
	ID               int64     `json:"id"`
	UserID           int64     `json:"user_id"`
	PlanID           *int64    `json:"plan_id"`
	CigaretteCount   int       `json:"cigarette_count"`
	PricePerPack     float64   `json:"price_per_pack"`
	SuctionFrequency Frequency `json:"suction_frequency"`
	CreatedAt        time.Time `json:"created_at"`
}

type GoalDraft struct {
	UserID    int64     `json:"user_id"`
	Goal      string    `json:"goal"`
	Reasons   string    `json:"reasons"`
	UpdatedAt time.Time `json:"updated_at"`
}

type QuitPlan struct {
	ID        int64      `json:"id"`
	UserID    int64      `json:"user_id"`
	Goal      string     `json:"goal"`
	Reasons   string     `json:"reasons"`
	StartDate time.Time  `json:"start_date"`
	Status    PlanStatus `json:"status"`
	CoachID   *int64     `json:"coach_id,omitempty"`
	ReportURL string     `json:"report_url,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// QuitStage covers the inclusive civil-date range [StartDate, EndDate].
// MaxDailyCigarette nil means unconstrained, 0 means full cessation.
type QuitStage struct {
	ID                int64       `json:"id"`
	PlanID            int64       `json:"plan_id"`
	Position          int         `json:"position"`
	Name              string      `json:"name"`
	Description       string      `json:"description"`
	StartDate         time.Time   `json:"start_date"`
	EndDate           time.Time   `json:"end_date"`
	Status            StageStatus `json:"status"`
	MaxDailyCigarette *int        `json:"max_daily_cigarette"`
	CreatedAt         time.Time   `json:"created_at"`
	UpdatedAt         time.Time   `json:"updated_at"`
}

type ProgressRecord struct {
	ID             int64     `json:"id"`
	UserID         int64     `json:"user_id"`
	PlanID         int64     `json:"plan_id"`
	StageID        int64     `json:"stage_id"`
	RecordDay      time.Time `json:"record_day"`
	RecordedAt     time.Time `json:"recorded_at"`
	CigaretteCount int       `json:"cigarette_count"`
	Note           string    `json:"note"`
	MoneySpent     float64   `json:"money_spent"`
}

type BadgeCondition struct {
	Type  BadgeConditionType `json:"type"`
	Value float64            `json:"value"`
	Unit  string             `json:"unit"`
}

type Badge struct {
	ID          int64          `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Condition   BadgeCondition `json:"condition"`
	ProOnly     bool           `json:"pro_only"`
	CreatedAt   time.Time      `json:"created_at"`
}

type UserBadge struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	BadgeID   int64     `json:"badge_id"`
	PlanID    *int64    `json:"plan_id,omitempty"`
	GrantedAt time.Time `json:"granted_at"`
	Badge     *Badge    `json:"badge,omitempty"`
}

type Coach struct {
	UserID       int64  `json:"user_id"`
	DisplayName  string `json:"display_name"`
	Bio          string `json:"bio"`
	MaxUsers     int    `json:"max_users"`
	CurrentUsers int    `json:"current_users"`
}

type NotificationKind string

const (
	NotifyBadge    NotificationKind = "badge"
	NotifyPlan     NotificationKind = "plan"
	NotifyStage    NotificationKind = "stage"
	NotifyReminder NotificationKind = "reminder"
	NotifyWarning  NotificationKind = "warning"
)

type Notification struct {
	ID        int64            `json:"id"`
	UserID    int64            `json:"user_id"`
	Kind      NotificationKind `json:"kind"`
	Message   string           `json:"message"`
	CreatedAt time.Time        `json:"created_at"`
	ReadAt    *time.Time       `json:"read_at,omitempty"`
}
