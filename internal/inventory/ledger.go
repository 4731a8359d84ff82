package inventory

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/gocql/gocql"

	"coffret_back_end/internal/models"
	"coffret_back_end/internal/repository"
)

// DefaultLowStockThreshold est le seuil de stock faible quand le produit n'en définit pas
const DefaultLowStockThreshold = 10

// Line est une ligne de panier vue du registre d'inventaire
type Line struct {
	ProductID gocql.UUID
	Quantity  int
}

// Ledger est le registre d'inventaire : disponibilité, réservation, règlement
// post-commande. Toute écriture de stock passe par le décrément conditionnel
// du repository, jamais par un read-modify-write applicatif.
type Ledger struct {
	products repository.ProductRepository
	orders   repository.OrderRepository
}

func NewLedger(products repository.ProductRepository, orders repository.OrderRepository) *Ledger {
	return &Ledger{products: products, orders: orders}
}

// CheckAvailability partitionne les lignes en disponibles / indisponibles.
// Un produit inconnu est toujours indisponible avec un stock courant de 0.
// Un produit en backorder autorisé reste achetable au-delà du stock courant.
func (l *Ledger) CheckAvailability(ctx context.Context, lines []Line) (*models.AvailabilityReport, error) {
	report := &models.AvailabilityReport{AllAvailable: true}
	var unavailable []string

	for _, line := range lines {
		check := models.ItemCheck{
			ProductID: line.ProductID,
			Requested: line.Quantity,
		}

		p, err := l.products.GetProduct(ctx, line.ProductID)
		switch {
		case err == repository.ErrNotFound:
			check.Available = false
			check.ProductName = "produit inconnu"
		case err != nil:
			return nil, fmt.Errorf("lecture produit %s: %w", line.ProductID, err)
		default:
			check.ProductName = p.Name
			check.CurrentStock = p.Stock
			check.UnitPrice = p.Price
			check.RestockDate = p.RestockDate
			if p.Stock >= line.Quantity {
				check.Available = true
			} else if p.AllowBackorders {
				check.Available = true
				check.Backorder = true
			}
		}

		if check.Available {
			report.AvailableItems = append(report.AvailableItems, check)
		} else {
			report.AllAvailable = false
			report.UnavailableItems = append(report.UnavailableItems, check)
			unavailable = append(unavailable, fmt.Sprintf("%s (demandé %d, stock %d)",
				check.ProductName, check.Requested, check.CurrentStock))
		}
	}

	if !report.AllAvailable {
		report.Summary = "Indisponible: " + strings.Join(unavailable, ", ")
	}

	return report, nil
}

// Reserve re-vérifie la disponibilité puis décrémente le stock ligne par ligne.
// Si une ligne est indisponible, rien n'est décrémenté et la réservation échoue.
// Un échec du store en cours de séquence laisse les lignes précédentes décrémentées :
// il est remonté en PartialCommitError avec la liste des lignes commises.
func (l *Ledger) Reserve(ctx context.Context, lines []Line, userID string) (bool, *models.AvailabilityReport, error) {
	report, err := l.CheckAvailability(ctx, lines)
	if err != nil {
		return false, nil, err
	}
	if !report.AllAvailable {
		return false, report, nil
	}

	var done []string
	for _, check := range report.AvailableItems {
		prev, next, err := l.products.DecrementStock(ctx, check.ProductID, check.Requested)
		if err != nil {
			if err == repository.ErrInsufficientStock {
				// Un checkout concurrent a pris les dernières unités entre la
				// vérification et le décrément : pas d'effet pour cette ligne
				report.AllAvailable = false
				report.Summary = fmt.Sprintf("Indisponible: %s (demandé %d, stock épuisé entre-temps)",
					check.ProductName, check.Requested)
				if len(done) == 0 {
					return false, report, nil
				}
			}
			return false, report, &repository.PartialCommitError{
				Op:   "reserve",
				Done: done,
				Err:  err,
			}
		}

		l.journalMovement(ctx, check.ProductID, "reserved", check.Requested, prev, next, nil, userID)
		done = append(done, check.ProductName)
	}

	return true, report, nil
}

// SettleAfterOrder relit les lignes de la commande persistée et décrémente le stock
// en conséquence. Utilisé quand la réservation se fait à la création de commande
// plutôt qu'au panier. Best-effort : la commande est déjà placée.
func (l *Ledger) SettleAfterOrder(ctx context.Context, orderID gocql.UUID) error {
	items, err := l.orders.GetItems(ctx, orderID)
	if err != nil {
		return fmt.Errorf("lecture lignes commande %s: %w", orderID, err)
	}

	var done []string
	for _, item := range items {
		prev, next, err := l.products.DecrementStock(ctx, item.ProductID, item.Quantity)
		if err != nil {
			return &repository.PartialCommitError{
				Op:   "settle",
				Done: done,
				Err:  fmt.Errorf("décrément %s: %w", item.Name, err),
			}
		}

		oid := orderID
		l.journalMovement(ctx, item.ProductID, "sale", item.Quantity, prev, next, &oid, "")
		l.checkLowStockAlert(ctx, item.ProductID, item.Name, next)
		done = append(done, item.Name)
	}

	return nil
}

// OutOfStock liste les produits en rupture
func (l *Ledger) OutOfStock(ctx context.Context) ([]models.Product, error) {
	return l.products.ListOutOfStock(ctx)
}

// LowStock liste les produits sous le seuil (0 = seuil par défaut)
func (l *Ledger) LowStock(ctx context.Context, threshold int) ([]models.Product, error) {
	if threshold <= 0 {
		threshold = DefaultLowStockThreshold
	}
	return l.products.ListLowStock(ctx, threshold)
}

// Restock ajoute des unités et journalise le mouvement (admin)
func (l *Ledger) Restock(ctx context.Context, productID gocql.UUID, quantity int, reason, userID string) (int, int, error) {
	p, err := l.products.GetProduct(ctx, productID)
	if err != nil {
		return 0, 0, err
	}

	newStock := p.Stock + quantity
	if newStock < 0 {
		return p.Stock, p.Stock, fmt.Errorf("le stock ne peut pas être négatif")
	}

	if err := l.products.SetStock(ctx, productID, newStock); err != nil {
		return p.Stock, p.Stock, err
	}

	movementType := "restock"
	if quantity < 0 {
		movementType = "adjustment"
	}
	l.journalMovement(ctx, productID, movementType, quantity, p.Stock, newStock, nil, userID)
	l.checkLowStockAlert(ctx, productID, p.Name, newStock)

	return p.Stock, newStock, nil
}

// Adjust fixe le stock à une quantité absolue et journalise le mouvement (admin)
func (l *Ledger) Adjust(ctx context.Context, productID gocql.UUID, newStock int, reason, userID string) (int, int, error) {
	if newStock < 0 {
		return 0, 0, fmt.Errorf("le stock ne peut pas être négatif")
	}

	p, err := l.products.GetProduct(ctx, productID)
	if err != nil {
		return 0, 0, err
	}

	if err := l.products.SetStock(ctx, productID, newStock); err != nil {
		return p.Stock, p.Stock, err
	}

	l.journalMovement(ctx, productID, "adjustment", newStock-p.Stock, p.Stock, newStock, nil, userID)
	l.checkLowStockAlert(ctx, productID, p.Name, newStock)

	return p.Stock, newStock, nil
}

// journalMovement enregistre un mouvement de stock (échec non bloquant)
func (l *Ledger) journalMovement(ctx context.Context, productID gocql.UUID, movementType string,
	quantity, prev, next int, orderID *gocql.UUID, userID string) {

	movement := models.StockMovement{
		ID:        gocql.TimeUUID(),
		ProductID: productID,
		Type:      movementType,
		Quantity:  quantity,
		PrevStock: prev,
		NewStock:  next,
		OrderID:   orderID,
		UserID:    userID,
		CreatedAt: time.Now(),
	}

	if err := l.products.RecordMovement(ctx, movement); err != nil {
		log.Printf("⚠️ Erreur enregistrement mouvement stock: %v", err)
	}
}

// checkLowStockAlert crée une alerte si le stock passe sous le seuil
func (l *Ledger) checkLowStockAlert(ctx context.Context, productID gocql.UUID, productName string, currentStock int) {
	p, err := l.products.GetProduct(ctx, productID)
	if err != nil {
		return
	}

	threshold := p.LowStockThreshold
	if threshold == 0 {
		threshold = DefaultLowStockThreshold
	}

	var alertType string
	switch {
	case currentStock == 0:
		alertType = "out_of_stock"
	case currentStock <= threshold:
		alertType = "low_stock"
	default:
		return
	}

	// Une alerte non résolue suffit
	exists, err := l.products.HasUnresolvedAlert(ctx, productID)
	if err != nil || exists {
		return
	}

	alert := models.StockAlert{
		ID:             gocql.TimeUUID(),
		ProductID:      productID,
		ProductName:    productName,
		CurrentStock:   currentStock,
		ThresholdStock: threshold,
		AlertType:      alertType,
		IsResolved:     false,
		CreatedAt:      time.Now(),
	}

	if err := l.products.InsertAlert(ctx, alert); err != nil {
		log.Printf("⚠️ Erreur création alerte stock: %v", err)
	} else {
		log.Printf("🚨 Alerte stock créée pour %s: %s", productName, alertType)
	}
}
