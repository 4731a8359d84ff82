package models

import (
	"time"

	"github.com/gocql/gocql"
)

type StockMovement struct {
	ID        gocql.UUID  `json:"id"`
	ProductID gocql.UUID  `json:"product_id"`
	Type      string      `json:"type"` // "sale", "restock", "return", "adjustment", "reserved"
	Quantity  int         `json:"quantity"`
	PrevStock int         `json:"prev_stock"`
	NewStock  int         `json:"new_stock"`
	Reason    string      `json:"reason"`
	OrderID   *gocql.UUID `json:"order_id,omitempty"`
	UserID    string      `json:"user_id"`
	CreatedAt time.Time   `json:"created_at"`
}

type StockAlert struct {
	ID             gocql.UUID `json:"id"`
	ProductID      gocql.UUID `json:"product_id"`
	ProductName    string     `json:"product_name"`
	CurrentStock   int        `json:"current_stock"`
	ThresholdStock int        `json:"threshold_stock"`
	AlertType      string     `json:"alert_type"` // "low_stock", "out_of_stock"
	IsResolved     bool       `json:"is_resolved"`
	CreatedAt      time.Time  `json:"created_at"`
	ResolvedAt     *time.Time `json:"resolved_at,omitempty"`
}

// ItemCheck est le verdict de disponibilité pour une ligne du panier
type ItemCheck struct {
	ProductID    gocql.UUID `json:"product_id"`
	ProductName  string     `json:"product_name"`
	Requested    int        `json:"requested"`
	CurrentStock int        `json:"current_stock"`
	UnitPrice    float64    `json:"unit_price"`
	Available    bool       `json:"available"`
	Backorder    bool       `json:"backorder"`
	RestockDate  *time.Time `json:"restock_date,omitempty"`
}

// AvailabilityReport partitionne les lignes en disponibles / indisponibles
type AvailabilityReport struct {
	AllAvailable     bool        `json:"all_available"`
	AvailableItems   []ItemCheck `json:"available_items"`
	UnavailableItems []ItemCheck `json:"unavailable_items"`
	Summary          string      `json:"summary"`
}
