package repository

import (
	"context"
	"errors"
	"time"

	"github.com/gocql/gocql"

	"coffret_back_end/internal/models"
)

// Erreurs sentinelles du niveau persistance
var (
	ErrNotFound          = errors.New("enregistrement introuvable")
	ErrInsufficientStock = errors.New("stock insuffisant")
	ErrStockContention   = errors.New("décrément de stock abandonné après plusieurs tentatives CAS")
)

// ProductRepository expose les opérations stock dont dépend le registre d'inventaire.
// Le décrément est conditionnel côté store (CAS) : le stock ne peut jamais devenir négatif.
type ProductRepository interface {
	GetProduct(ctx context.Context, id gocql.UUID) (*models.Product, error)
	// DecrementStock retire qty unités si le stock suffit (ou le vide si backorder autorisé).
	// Retourne le stock avant/après décrément.
	DecrementStock(ctx context.Context, id gocql.UUID, qty int) (prev int, next int, err error)
	SetStock(ctx context.Context, id gocql.UUID, newStock int) error
	ListLowStock(ctx context.Context, threshold int) ([]models.Product, error)
	ListOutOfStock(ctx context.Context) ([]models.Product, error)

	RecordMovement(ctx context.Context, m models.StockMovement) error
	ListMovements(ctx context.Context, productID *gocql.UUID, limit int) ([]models.StockMovement, error)

	InsertAlert(ctx context.Context, a models.StockAlert) error
	HasUnresolvedAlert(ctx context.Context, productID gocql.UUID) (bool, error)
	ListUnresolvedAlerts(ctx context.Context) ([]models.StockAlert, error)
	ResolveAlert(ctx context.Context, id gocql.UUID) error
}

// CouponRepository expose la lecture des coupons et l'incrément atomique du compteur d'usage.
type CouponRepository interface {
	GetByCode(ctx context.Context, code string) (*models.Coupon, error)
	Insert(ctx context.Context, c models.Coupon) error
	List(ctx context.Context) ([]models.Coupon, error)
	Update(ctx context.Context, id gocql.UUID, u CouponUpdate) error
	Delete(ctx context.Context, id gocql.UUID) error

	// IncrementUsage incrémente le compteur (table counter, atomique côté store)
	// et journalise l'utilisation.
	IncrementUsage(ctx context.Context, couponID gocql.UUID, userID string, orderID gocql.UUID) error
	UserUsageCount(ctx context.Context, couponID gocql.UUID, userID string) (int, error)
}

// CouponUpdate porte les champs modifiables d'un coupon (nil = inchangé)
type CouponUpdate struct {
	IsActive  *bool
	MaxUses   *int
	ExpiresAt *time.Time
}

// OrderRepository expose la création de commandes et leurs lignes.
// Les lignes sont insérées en un seul batch ; la commande peut être supprimée
// pour rollback si l'insertion des lignes échoue.
type OrderRepository interface {
	InsertOrder(ctx context.Context, o *models.Order) error
	InsertItems(ctx context.Context, items []models.OrderItem) error
	DeleteOrder(ctx context.Context, orderID gocql.UUID) error
	SetDiscount(ctx context.Context, orderID gocql.UUID, couponCode string, amount float64, newTotal float64) error
	SetPaymentStatus(ctx context.Context, orderID gocql.UUID, status string) error

	GetOrder(ctx context.Context, orderID gocql.UUID) (*models.Order, error)
	GetItems(ctx context.Context, orderID gocql.UUID) ([]models.OrderItem, error)
	ListByUser(ctx context.Context, userID string) ([]models.Order, error)
}
