package repository

import (
	"context"

	"github.com/gocql/gocql"

	"coffret_back_end/internal/database"
	"coffret_back_end/internal/models"
)

// ScyllaOrderRepository implémente OrderRepository sur le keyspace orders.
type ScyllaOrderRepository struct{}

func NewScyllaOrderRepository() *ScyllaOrderRepository {
	return &ScyllaOrderRepository{}
}

func (r *ScyllaOrderRepository) InsertOrder(ctx context.Context, o *models.Order) error {
	session, err := database.GetOrdersSession()
	if err != nil {
		return err
	}

	query := `
		INSERT INTO orders (
			id, user_id, subtotal, discount_amount, coupon_code, tax_amount, shipping_amount,
			total_amount, street, city, postal_code, country,
			payment_method, payment_status, status, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	return session.Query(query,
		o.ID, o.UserID, o.Subtotal, o.DiscountAmount, o.CouponCode, o.TaxAmount,
		o.ShippingAmount, o.TotalAmount, o.ShippingAddress.Street, o.ShippingAddress.City,
		o.ShippingAddress.PostalCode, o.ShippingAddress.Country,
		o.PaymentMethod, o.PaymentStatus, o.Status, o.CreatedAt,
	).WithContext(ctx).Exec()
}

// InsertItems insère toutes les lignes en un seul batch logged :
// soit toutes les lignes sont écrites, soit aucune.
func (r *ScyllaOrderRepository) InsertItems(ctx context.Context, items []models.OrderItem) error {
	session, err := database.GetOrdersSession()
	if err != nil {
		return err
	}

	batch := session.NewBatch(gocql.LoggedBatch).WithContext(ctx)
	query := `INSERT INTO order_items (order_id, product_id, name, quantity, unit_price) VALUES (?, ?, ?, ?, ?)`

	for _, item := range items {
		batch.Query(query, item.OrderID, item.ProductID, item.Name, item.Quantity, item.UnitPrice)
	}

	return session.ExecuteBatch(batch)
}

// DeleteOrder supprime un en-tête de commande orphelin (rollback après échec des lignes)
func (r *ScyllaOrderRepository) DeleteOrder(ctx context.Context, orderID gocql.UUID) error {
	session, err := database.GetOrdersSession()
	if err != nil {
		return err
	}

	return session.Query(`DELETE FROM orders WHERE id = ?`, orderID).WithContext(ctx).Exec()
}

func (r *ScyllaOrderRepository) SetDiscount(ctx context.Context, orderID gocql.UUID, couponCode string, amount float64, newTotal float64) error {
	session, err := database.GetOrdersSession()
	if err != nil {
		return err
	}

	query := `UPDATE orders SET discount_amount = ?, coupon_code = ?, total_amount = ? WHERE id = ?`
	return session.Query(query, amount, couponCode, newTotal, orderID).WithContext(ctx).Exec()
}

func (r *ScyllaOrderRepository) SetPaymentStatus(ctx context.Context, orderID gocql.UUID, status string) error {
	session, err := database.GetOrdersSession()
	if err != nil {
		return err
	}

	query := `UPDATE orders SET payment_status = ? WHERE id = ?`
	return session.Query(query, status, orderID).WithContext(ctx).Exec()
}

func (r *ScyllaOrderRepository) GetOrder(ctx context.Context, orderID gocql.UUID) (*models.Order, error) {
	session, err := database.GetOrdersSession()
	if err != nil {
		return nil, err
	}

	var o models.Order
	o.ID = orderID
	query := `SELECT user_id, subtotal, discount_amount, coupon_code, tax_amount, shipping_amount,
			  total_amount, street, city, postal_code, country,
			  payment_method, payment_status, status, created_at
			  FROM orders WHERE id = ?`

	if err := session.Query(query, orderID).WithContext(ctx).Scan(
		&o.UserID, &o.Subtotal, &o.DiscountAmount, &o.CouponCode, &o.TaxAmount,
		&o.ShippingAmount, &o.TotalAmount, &o.ShippingAddress.Street, &o.ShippingAddress.City,
		&o.ShippingAddress.PostalCode, &o.ShippingAddress.Country,
		&o.PaymentMethod, &o.PaymentStatus, &o.Status, &o.CreatedAt,
	); err != nil {
		if err == gocql.ErrNotFound {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return &o, nil
}

func (r *ScyllaOrderRepository) GetItems(ctx context.Context, orderID gocql.UUID) ([]models.OrderItem, error) {
	session, err := database.GetOrdersSession()
	if err != nil {
		return nil, err
	}

	query := `SELECT product_id, name, quantity, unit_price FROM order_items WHERE order_id = ?`
	iter := session.Query(query, orderID).WithContext(ctx).Iter()
	defer iter.Close()

	var items []models.OrderItem
	item := models.OrderItem{OrderID: orderID}

	for iter.Scan(&item.ProductID, &item.Name, &item.Quantity, &item.UnitPrice) {
		items = append(items, item)
	}

	if err := iter.Close(); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *ScyllaOrderRepository) ListByUser(ctx context.Context, userID string) ([]models.Order, error) {
	session, err := database.GetOrdersSession()
	if err != nil {
		return nil, err
	}

	query := `SELECT id, user_id, subtotal, discount_amount, coupon_code, tax_amount, shipping_amount,
			  total_amount, street, city, postal_code, country,
			  payment_method, payment_status, status, created_at
			  FROM orders WHERE user_id = ? ALLOW FILTERING`

	iter := session.Query(query, userID).WithContext(ctx).Iter()
	defer iter.Close()

	var orders []models.Order
	var o models.Order

	for iter.Scan(&o.ID, &o.UserID, &o.Subtotal, &o.DiscountAmount, &o.CouponCode,
		&o.TaxAmount, &o.ShippingAmount, &o.TotalAmount,
		&o.ShippingAddress.Street, &o.ShippingAddress.City,
		&o.ShippingAddress.PostalCode, &o.ShippingAddress.Country,
		&o.PaymentMethod, &o.PaymentStatus, &o.Status, &o.CreatedAt) {
		orders = append(orders, o)
	}

	if err := iter.Close(); err != nil {
		return nil, err
	}
	return orders, nil
}
