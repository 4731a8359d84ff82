package repository

import (
	"context"
	"time"

	"github.com/gocql/gocql"

	"coffret_back_end/internal/database"
	"coffret_back_end/internal/models"
)

// Nombre de tentatives CAS avant d'abandonner un décrément contesté
const casMaxRetries = 5

// ScyllaProductRepository implémente ProductRepository sur le keyspace products.
type ScyllaProductRepository struct{}

func NewScyllaProductRepository() *ScyllaProductRepository {
	return &ScyllaProductRepository{}
}

func (r *ScyllaProductRepository) GetProduct(ctx context.Context, id gocql.UUID) (*models.Product, error) {
	session, err := database.GetProductsSession()
	if err != nil {
		return nil, err
	}

	var p models.Product
	p.ID = id
	query := `SELECT name, description, price, stock, low_stock_threshold, allow_backorders,
			  restock_date, sku, is_active, created_at, updated_at
			  FROM products WHERE product_id = ?`

	if err := session.Query(query, id).WithContext(ctx).Scan(
		&p.Name, &p.Description, &p.Price, &p.Stock, &p.LowStockThreshold,
		&p.AllowBackorders, &p.RestockDate, &p.SKU, &p.IsActive,
		&p.CreatedAt, &p.UpdatedAt,
	); err != nil {
		if err == gocql.ErrNotFound {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return &p, nil
}

// DecrementStock retire qty unités via une transaction légère (UPDATE ... IF stock = ?).
// Deux réservations concurrentes de la dernière unité ne peuvent pas passer toutes les deux :
// la condition échoue pour la seconde, qui relit et constate le stock insuffisant.
func (r *ScyllaProductRepository) DecrementStock(ctx context.Context, id gocql.UUID, qty int) (int, int, error) {
	session, err := database.GetProductsSession()
	if err != nil {
		return 0, 0, err
	}

	for attempt := 0; attempt < casMaxRetries; attempt++ {
		var stock int
		var allowBackorders bool

		readQuery := `SELECT stock, allow_backorders FROM products WHERE product_id = ?`
		if err := session.Query(readQuery, id).WithContext(ctx).Scan(&stock, &allowBackorders); err != nil {
			if err == gocql.ErrNotFound {
				return 0, 0, ErrNotFound
			}
			return 0, 0, err
		}

		newStock := stock - qty
		if newStock < 0 {
			if !allowBackorders {
				return stock, stock, ErrInsufficientStock
			}
			// Backorder autorisé : on vide le stock, le reste sera servi au réassort
			newStock = 0
		}

		var prevStock int
		applied, err := session.Query(
			`UPDATE products SET stock = ?, updated_at = ? WHERE product_id = ? IF stock = ?`,
			newStock, time.Now(), id, stock,
		).WithContext(ctx).ScanCAS(&prevStock)
		if err != nil {
			return 0, 0, err
		}
		if applied {
			return stock, newStock, nil
		}
		// Un autre checkout a modifié le stock entre la lecture et l'écriture : on relit
	}

	return 0, 0, ErrStockContention
}

func (r *ScyllaProductRepository) SetStock(ctx context.Context, id gocql.UUID, newStock int) error {
	session, err := database.GetProductsSession()
	if err != nil {
		return err
	}

	query := `UPDATE products SET stock = ?, updated_at = ? WHERE product_id = ?`
	return session.Query(query, newStock, time.Now(), id).WithContext(ctx).Exec()
}

func (r *ScyllaProductRepository) ListLowStock(ctx context.Context, threshold int) ([]models.Product, error) {
	return r.scanProducts(ctx,
		`SELECT product_id, name, price, stock, low_stock_threshold, allow_backorders, restock_date
		 FROM products WHERE stock <= ? AND stock > 0 AND is_active = true ALLOW FILTERING`, threshold)
}

func (r *ScyllaProductRepository) ListOutOfStock(ctx context.Context) ([]models.Product, error) {
	return r.scanProducts(ctx,
		`SELECT product_id, name, price, stock, low_stock_threshold, allow_backorders, restock_date
		 FROM products WHERE stock = 0 AND is_active = true ALLOW FILTERING`)
}

func (r *ScyllaProductRepository) scanProducts(ctx context.Context, query string, args ...interface{}) ([]models.Product, error) {
	session, err := database.GetProductsSession()
	if err != nil {
		return nil, err
	}

	iter := session.Query(query, args...).WithContext(ctx).Iter()
	defer iter.Close()

	var products []models.Product
	var p models.Product

	for iter.Scan(&p.ID, &p.Name, &p.Price, &p.Stock, &p.LowStockThreshold,
		&p.AllowBackorders, &p.RestockDate) {
		products = append(products, p)
	}

	if err := iter.Close(); err != nil {
		return nil, err
	}
	return products, nil
}

func (r *ScyllaProductRepository) RecordMovement(ctx context.Context, m models.StockMovement) error {
	session, err := database.GetProductsSession()
	if err != nil {
		return err
	}

	query := `
		INSERT INTO stock_movements (
			id, product_id, type, quantity, prev_stock, new_stock, reason, order_id, user_id, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	return session.Query(query,
		m.ID, m.ProductID, m.Type, m.Quantity, m.PrevStock, m.NewStock,
		m.Reason, m.OrderID, m.UserID, m.CreatedAt,
	).WithContext(ctx).Exec()
}

func (r *ScyllaProductRepository) ListMovements(ctx context.Context, productID *gocql.UUID, limit int) ([]models.StockMovement, error) {
	session, err := database.GetProductsSession()
	if err != nil {
		return nil, err
	}

	var query string
	var args []interface{}

	if productID != nil {
		query = `SELECT id, product_id, type, quantity, prev_stock, new_stock, reason, order_id, user_id, created_at
				 FROM stock_movements WHERE product_id = ? LIMIT ?`
		args = []interface{}{*productID, limit}
	} else {
		query = `SELECT id, product_id, type, quantity, prev_stock, new_stock, reason, order_id, user_id, created_at
				 FROM stock_movements LIMIT ?`
		args = []interface{}{limit}
	}

	iter := session.Query(query, args...).WithContext(ctx).Iter()
	defer iter.Close()

	var movements []models.StockMovement
	var m models.StockMovement

	for iter.Scan(&m.ID, &m.ProductID, &m.Type, &m.Quantity, &m.PrevStock,
		&m.NewStock, &m.Reason, &m.OrderID, &m.UserID, &m.CreatedAt) {
		movements = append(movements, m)
	}

	if err := iter.Close(); err != nil {
		return nil, err
	}
	return movements, nil
}

func (r *ScyllaProductRepository) InsertAlert(ctx context.Context, a models.StockAlert) error {
	session, err := database.GetProductsSession()
	if err != nil {
		return err
	}

	query := `
		INSERT INTO stock_alerts (
			id, product_id, product_name, current_stock, threshold_stock,
			alert_type, is_resolved, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	return session.Query(query,
		a.ID, a.ProductID, a.ProductName, a.CurrentStock, a.ThresholdStock,
		a.AlertType, a.IsResolved, a.CreatedAt,
	).WithContext(ctx).Exec()
}

func (r *ScyllaProductRepository) HasUnresolvedAlert(ctx context.Context, productID gocql.UUID) (bool, error) {
	session, err := database.GetProductsSession()
	if err != nil {
		return false, err
	}

	var id gocql.UUID
	query := `SELECT id FROM stock_alerts WHERE product_id = ? AND is_resolved = false LIMIT 1 ALLOW FILTERING`
	if err := session.Query(query, productID).WithContext(ctx).Scan(&id); err != nil {
		if err == gocql.ErrNotFound {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (r *ScyllaProductRepository) ListUnresolvedAlerts(ctx context.Context) ([]models.StockAlert, error) {
	session, err := database.GetProductsSession()
	if err != nil {
		return nil, err
	}

	query := `SELECT id, product_id, product_name, current_stock, threshold_stock, alert_type,
			  is_resolved, created_at FROM stock_alerts WHERE is_resolved = false ALLOW FILTERING`

	iter := session.Query(query).WithContext(ctx).Iter()
	defer iter.Close()

	var alerts []models.StockAlert
	var a models.StockAlert

	for iter.Scan(&a.ID, &a.ProductID, &a.ProductName, &a.CurrentStock,
		&a.ThresholdStock, &a.AlertType, &a.IsResolved, &a.CreatedAt) {
		alerts = append(alerts, a)
	}

	if err := iter.Close(); err != nil {
		return nil, err
	}
	return alerts, nil
}

func (r *ScyllaProductRepository) ResolveAlert(ctx context.Context, id gocql.UUID) error {
	session, err := database.GetProductsSession()
	if err != nil {
		return err
	}

	query := `UPDATE stock_alerts SET is_resolved = true, resolved_at = ? WHERE id = ?`
	return session.Query(query, time.Now(), id).WithContext(ctx).Exec()
}
