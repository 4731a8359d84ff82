package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gocql/gocql"

	"coffret_back_end/internal/database"
	"coffret_back_end/internal/models"
)

// ScyllaCouponRepository implémente CouponRepository sur le keyspace orders.
// Le compteur d'usage vit dans une table counter dédiée : l'incrément est
// atomique côté store, jamais un read-modify-write applicatif.
type ScyllaCouponRepository struct{}

func NewScyllaCouponRepository() *ScyllaCouponRepository {
	return &ScyllaCouponRepository{}
}

func (r *ScyllaCouponRepository) GetByCode(ctx context.Context, code string) (*models.Coupon, error) {
	session, err := database.GetOrdersSession()
	if err != nil {
		return nil, err
	}

	var c models.Coupon
	query := `SELECT id, code, type, value, min_amount, max_amount, max_uses, max_uses_per_user,
			  starts_at, expires_at, is_active, created_by, created_at, updated_at
			  FROM coupons WHERE code = ? LIMIT 1`

	if err := session.Query(query, strings.ToUpper(code)).WithContext(ctx).Scan(
		&c.ID, &c.Code, &c.Type, &c.Value, &c.MinAmount, &c.MaxAmount,
		&c.MaxUses, &c.MaxUsesPerUser, &c.StartsAt, &c.ExpiresAt,
		&c.IsActive, &c.CreatedBy, &c.CreatedAt, &c.UpdatedAt,
	); err != nil {
		if err == gocql.ErrNotFound {
			return nil, ErrNotFound
		}
		return nil, err
	}

	// Le compteur vit dans sa propre table ; absent = jamais utilisé
	var uses int64
	counterQuery := `SELECT uses FROM coupon_usage_counters WHERE coupon_id = ?`
	if err := session.Query(counterQuery, c.ID).WithContext(ctx).Scan(&uses); err != nil {
		if err != gocql.ErrNotFound {
			return nil, err
		}
	}
	c.UsedCount = int(uses)

	return &c, nil
}

func (r *ScyllaCouponRepository) Insert(ctx context.Context, c models.Coupon) error {
	session, err := database.GetOrdersSession()
	if err != nil {
		return err
	}

	query := `
		INSERT INTO coupons (
			id, code, type, value, min_amount, max_amount, max_uses, max_uses_per_user,
			starts_at, expires_at, is_active, created_by, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	return session.Query(query,
		c.ID, c.Code, c.Type, c.Value, c.MinAmount, c.MaxAmount,
		c.MaxUses, c.MaxUsesPerUser, c.StartsAt, c.ExpiresAt,
		c.IsActive, c.CreatedBy, c.CreatedAt, c.UpdatedAt,
	).WithContext(ctx).Exec()
}

func (r *ScyllaCouponRepository) List(ctx context.Context) ([]models.Coupon, error) {
	session, err := database.GetOrdersSession()
	if err != nil {
		return nil, err
	}

	query := `SELECT id, code, type, value, min_amount, max_amount, max_uses, max_uses_per_user,
			  starts_at, expires_at, is_active, created_by, created_at, updated_at FROM coupons`

	iter := session.Query(query).WithContext(ctx).Iter()
	defer iter.Close()

	var coupons []models.Coupon
	var c models.Coupon

	for iter.Scan(&c.ID, &c.Code, &c.Type, &c.Value, &c.MinAmount, &c.MaxAmount,
		&c.MaxUses, &c.MaxUsesPerUser, &c.StartsAt, &c.ExpiresAt,
		&c.IsActive, &c.CreatedBy, &c.CreatedAt, &c.UpdatedAt) {
		coupons = append(coupons, c)
	}

	if err := iter.Close(); err != nil {
		return nil, err
	}
	return coupons, nil
}

func (r *ScyllaCouponRepository) Update(ctx context.Context, id gocql.UUID, u CouponUpdate) error {
	session, err := database.GetOrdersSession()
	if err != nil {
		return err
	}

	updates := []string{}
	values := []interface{}{}

	if u.IsActive != nil {
		updates = append(updates, "is_active = ?")
		values = append(values, *u.IsActive)
	}
	if u.MaxUses != nil {
		updates = append(updates, "max_uses = ?")
		values = append(values, *u.MaxUses)
	}
	if u.ExpiresAt != nil {
		updates = append(updates, "expires_at = ?")
		values = append(values, *u.ExpiresAt)
	}

	if len(updates) == 0 {
		return nil
	}

	updates = append(updates, "updated_at = ?")
	values = append(values, time.Now())
	values = append(values, id)

	query := fmt.Sprintf("UPDATE coupons SET %s WHERE id = ?", strings.Join(updates, ", "))
	return session.Query(query, values...).WithContext(ctx).Exec()
}

func (r *ScyllaCouponRepository) Delete(ctx context.Context, id gocql.UUID) error {
	session, err := database.GetOrdersSession()
	if err != nil {
		return err
	}

	return session.Query(`DELETE FROM coupons WHERE id = ?`, id).WithContext(ctx).Exec()
}

func (r *ScyllaCouponRepository) IncrementUsage(ctx context.Context, couponID gocql.UUID, userID string, orderID gocql.UUID) error {
	session, err := database.GetOrdersSession()
	if err != nil {
		return err
	}

	// Incrément atomique côté store (table counter)
	counterQuery := `UPDATE coupon_usage_counters SET uses = uses + 1 WHERE coupon_id = ?`
	if err := session.Query(counterQuery, couponID).WithContext(ctx).Exec(); err != nil {
		return err
	}

	// Journal d'usage (limite par utilisateur + traçabilité)
	usageQuery := `INSERT INTO coupon_usage (id, coupon_id, user_id, order_id, used_at) VALUES (?, ?, ?, ?, ?)`
	return session.Query(usageQuery,
		gocql.TimeUUID(), couponID, userID, orderID, time.Now(),
	).WithContext(ctx).Exec()
}

func (r *ScyllaCouponRepository) UserUsageCount(ctx context.Context, couponID gocql.UUID, userID string) (int, error) {
	session, err := database.GetOrdersSession()
	if err != nil {
		return 0, err
	}

	var count int
	query := `SELECT COUNT(*) FROM coupon_usage WHERE coupon_id = ? AND user_id = ? ALLOW FILTERING`
	if err := session.Query(query, couponID, userID).WithContext(ctx).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}
