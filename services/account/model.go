package account

import (
	"time"
)

// Account counters are a cached projection of the transaction log. They are
// written only through atomic increments (ledger credits/reversals, wallet
// debits); nothing reads a counter to compute a subsequent write.
type Account struct {
	ID               string    `gorm:"column:id;primaryKey" json:"user_id"`
	Email            string    `gorm:"column:email;uniqueIndex;not null" json:"email"`
	Name             string    `gorm:"column:name;not null" json:"name"`
	PasswordHash     string    `gorm:"column:password_hash" json:"-"`
	Picture          *string   `gorm:"column:picture" json:"picture,omitempty"`
	Balance          int64     `gorm:"column:balance;not null;default:0" json:"balance"`
	TotalEarned      int64     `gorm:"column:total_earned;not null;default:0" json:"total_earned"`
	SurveysCompleted int64     `gorm:"column:surveys_completed;not null;default:0" json:"surveys_completed"`
	PendingSurveys   int64     `gorm:"column:pending_surveys;not null;default:0" json:"pending_surveys"`
	CreatedAt        time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt        time.Time `gorm:"column:updated_at" json:"-"`
}

type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Name     string `json:"name" binding:"required"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type TokenResponse struct {
	Token string   `json:"token"`
	User  *Account `json:"user"`
}

type LeaderboardEntry struct {
	Rank             int     `json:"rank"`
	UserID           string  `json:"user_id"`
	Name             string  `json:"name"`
	Picture          *string `json:"picture,omitempty"`
	TotalEarned      int64   `json:"total_earned"`
	SurveysCompleted int64   `json:"surveys_completed"`
}
