package models

import (
	"time"

	"github.com/gocql/gocql"
)

type Order struct {
	ID              gocql.UUID `json:"id"`
	UserID          string     `json:"user_id"`
	Subtotal        float64    `json:"subtotal"`
	DiscountAmount  float64    `json:"discount_amount"`
	CouponCode      string     `json:"coupon_code,omitempty"`
	TaxAmount       float64    `json:"tax_amount"`
	ShippingAmount  float64    `json:"shipping_amount"`
	TotalAmount     float64    `json:"total_amount"`
	ShippingAddress Address    `json:"shipping_address"`
	PaymentMethod   string     `json:"payment_method"` // "card", "bank_transfer"
	PaymentStatus   string     `json:"payment_status"` // "pending", "paid", "failed"
	Status          string     `json:"status"`         // "pending", "confirmed", "shipped", "delivered", "cancelled"
	CreatedAt       time.Time  `json:"created_at"`
}

// OrderItem fige le prix unitaire au moment de l'achat
type OrderItem struct {
	OrderID   gocql.UUID `json:"order_id"`
	ProductID gocql.UUID `json:"product_id"`
	Name      string     `json:"name"`
	Quantity  int        `json:"quantity"`
	UnitPrice float64    `json:"unit_price"`
}

type Address struct {
	Street     string `json:"street"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}
