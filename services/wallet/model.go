package wallet

import "time"

type WithdrawalStatus string

const (
	WithdrawalPending   WithdrawalStatus = "pending"
	WithdrawalCompleted WithdrawalStatus = "completed"
)

type Withdrawal struct {
	ID             string           `gorm:"column:id;primaryKey" json:"withdrawal_id"`
	Code           string           `gorm:"column:code;uniqueIndex" json:"code"`
	UserID         string           `gorm:"column:user_id;index;not null" json:"user_id"`
	Amount         int64            `gorm:"column:amount;not null" json:"amount"`
	Method         string           `gorm:"column:method;type:varchar(16);not null" json:"method"`
	AccountDetails string           `gorm:"column:account_details" json:"account_details"`
	Status         WithdrawalStatus `gorm:"column:status;type:varchar(16);not null" json:"status"`
	CreatedAt      time.Time        `gorm:"column:created_at" json:"created_at"`
	UpdatedAt      time.Time        `gorm:"column:updated_at" json:"updated_at"`
}

type WithdrawRequest struct {
	Amount         int64  `json:"amount" binding:"required"`
	Method         string `json:"method" binding:"required"`
	AccountDetails string `json:"account_details"`
}

func validMethod(method string) bool {
	switch method {
	case "paypal", "bank", "crypto":
		return true
	}
	return false
}
