package models

import (
	"time"

	"github.com/gocql/gocql"
)

type Coupon struct {
	ID             gocql.UUID `json:"id"`
	Code           string     `json:"code"`
	Type           string     `json:"type"` // "percentage", "fixed"
	Value          float64    `json:"value"`
	MinAmount      float64    `json:"min_amount"`
	MaxAmount      *float64   `json:"max_amount,omitempty"` // Plafond de réduction (type percentage)
	MaxUses        int        `json:"max_uses"`             // 0 = illimité
	UsedCount      int        `json:"used_count"`
	MaxUsesPerUser int        `json:"max_uses_per_user"`
	StartsAt       *time.Time `json:"starts_at,omitempty"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty"`
	IsActive       bool       `json:"is_active"`
	CreatedBy      string     `json:"created_by"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

type CouponUsage struct {
	ID       gocql.UUID `json:"id"`
	CouponID gocql.UUID `json:"coupon_id"`
	UserID   string     `json:"user_id"`
	OrderID  gocql.UUID `json:"order_id"`
	UsedAt   time.Time  `json:"used_at"`
}

type CouponValidation struct {
	IsValid      bool       `json:"is_valid"`
	ErrorMessage string     `json:"error_message,omitempty"`
	CouponID     gocql.UUID `json:"coupon_id,omitempty"`
	Discount     float64    `json:"discount"`
	Type         string     `json:"type"`
	Code         string     `json:"code"`
}
