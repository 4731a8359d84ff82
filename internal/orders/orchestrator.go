package orders

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/gocql/gocql"
	"github.com/google/uuid"

	"coffret_back_end/internal/discounts"
	"coffret_back_end/internal/inventory"
	"coffret_back_end/internal/models"
	"coffret_back_end/internal/repository"
)

// Stage est l'étape courante d'une tentative de checkout
type Stage string

const (
	StageStarted          Stage = "STARTED"
	StageInventoryChecked Stage = "INVENTORY_CHECKED"
	StageDiscountApplied  Stage = "DISCOUNT_APPLIED"
	StageOrderCreated     Stage = "ORDER_CREATED"
	StageItemsCreated     Stage = "ITEMS_CREATED"
	StageInventorySettled Stage = "INVENTORY_SETTLED"
	StageNotified         Stage = "NOTIFIED"
	StageFailed           Stage = "FAILED"
)

// Notifier envoie la confirmation de commande (collaborateur externe, best-effort)
type Notifier interface {
	Send(recipient, subject string, bodyContext map[string]interface{}) error
}

// ShippingPolicy : tarif plat, offert au-dessus du seuil
type ShippingPolicy struct {
	FlatRate      float64
	FreeThreshold float64
}

// PlacementRequest décrit une tentative de checkout
type PlacementRequest struct {
	UserID          string
	Email           string
	Items           []models.CartItem
	CouponCode      string
	ShippingAddress models.Address
	PaymentMethod   string
	TaxRate         float64 // politique du caller, pas de l'assembleur
	Shipping        ShippingPolicy
	IdempotencyKey  string
}

// PlacementResult est l'issue structurée d'une tentative : jamais une erreur brute
// pour les échecs métier, l'UI doit pouvoir afficher le message exact.
type PlacementResult struct {
	Stage       Stage    `json:"stage"`
	Failed      bool     `json:"failed"`
	FailedStage string   `json:"failed_stage,omitempty"` // "inventory", "order", "items"
	Message     string   `json:"message,omitempty"`
	Duplicate   bool     `json:"duplicate,omitempty"`
	OrderID     string   `json:"order_id,omitempty"`
	Subtotal    float64  `json:"subtotal"`
	Discount    float64  `json:"discount"`
	Tax         float64  `json:"tax"`
	Shipping    float64  `json:"shipping"`
	Total       float64  `json:"total"`
	CouponCode  string   `json:"coupon_code,omitempty"`
	Warnings    []string `json:"warnings,omitempty"`
}

// Orchestrator séquence une tentative de checkout :
// vérification stock → coupon → création commande → lignes → règlement stock →
// notification. Une seule tentative à la fois par panier ; la garde d'idempotence
// déduplique les soumissions concurrentes porteuses de la même clé.
type Orchestrator struct {
	ledger    *inventory.Ledger
	evaluator *discounts.Evaluator
	orders    repository.OrderRepository
	idem      IdempotencyStore
	notifier  Notifier
	now       func() time.Time
}

func NewOrchestrator(ledger *inventory.Ledger, evaluator *discounts.Evaluator,
	orders repository.OrderRepository, idem IdempotencyStore, notifier Notifier) *Orchestrator {

	return &Orchestrator{
		ledger:    ledger,
		evaluator: evaluator,
		orders:    orders,
		idem:      idem,
		notifier:  notifier,
		now:       time.Now,
	}
}

// PlaceOrder déroule la machine à états d'un checkout. Les échecs de stock et de
// coupon restent des résultats structurés ; les échecs de persistance avant la
// création des lignes sont fatals ; tout ce qui suit la commande placée est
// best-effort et ne la remet jamais en cause.
func (o *Orchestrator) PlaceOrder(ctx context.Context, req PlacementRequest) (*PlacementResult, error) {
	result := &PlacementResult{Stage: StageStarted}

	// --- 1. Vérification de la disponibilité ---
	lines, err := cartLines(req.Items)
	if err != nil {
		return o.fail(result, "inventory", err.Error()), nil
	}

	report, err := o.ledger.CheckAvailability(ctx, lines)
	if err != nil {
		return o.fail(result, "inventory", "Erreur lors de la vérification du stock"), err
	}
	if !report.AllAvailable {
		return o.fail(result, "inventory", report.Summary), nil
	}
	result.Stage = StageInventoryChecked

	// Sous-total sur les prix courants, figés ensuite dans les lignes de commande
	var subtotal float64
	for _, check := range report.AvailableItems {
		subtotal += check.UnitPrice * float64(check.Requested)
	}
	result.Subtotal = RoundCents(subtotal)

	// --- 2. Coupon (optionnel, échec non bloquant) ---
	var validation models.CouponValidation
	if req.CouponCode != "" {
		validation = o.evaluator.Validate(ctx, req.CouponCode, result.Subtotal, req.UserID)
		if validation.IsValid {
			result.Discount = RoundCents(validation.Discount)
			result.CouponCode = validation.Code
			result.Stage = StageDiscountApplied
			log.Printf("✅ Coupon appliqué: %s (%.2f€ de réduction)", validation.Code, result.Discount)
		} else {
			// Échec souple : on continue sans réduction, le message devient un avertissement
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("Coupon non appliqué: %s", validation.ErrorMessage))
			log.Printf("⚠️ Coupon refusé (%s): %s", req.CouponCode, validation.ErrorMessage)
		}
	}

	// --- 3. Totaux ---
	result.Tax = RoundCents(result.Subtotal * req.TaxRate)
	result.Shipping = req.Shipping.FlatRate
	if req.Shipping.FreeThreshold > 0 && result.Subtotal >= req.Shipping.FreeThreshold {
		result.Shipping = 0
	}
	result.Total = ComputeTotal(result.Subtotal, result.Discount, result.Tax, result.Shipping)

	// --- 4. Garde d'idempotence, avant toute écriture ---
	idemKey := req.IdempotencyKey
	if idemKey == "" {
		idemKey = uuid.NewString()
	}
	claimed, existing, err := o.idem.Claim(ctx, idemKey)
	if err != nil {
		return o.fail(result, "order", "Erreur lors de la protection anti-doublon"), err
	}
	if !claimed {
		result.Duplicate = true
		if existing == idemPending {
			// La première tentative est encore en vol : pas encore d'ID à rendre
			result.Message = "Une commande est déjà en cours de création pour cette tentative"
			log.Printf("🔁 Checkout dédupliqué (clé %s), tentative initiale en cours", idemKey)
		} else {
			result.OrderID = existing
			result.Message = "Commande déjà créée pour cette tentative"
			log.Printf("🔁 Checkout dédupliqué (clé %s) → commande %s", idemKey, existing)
		}
		return result, nil
	}

	// --- 5. Création de l'en-tête de commande (fatal en cas d'échec) ---
	order := &models.Order{
		ID:              gocql.TimeUUID(),
		UserID:          req.UserID,
		Subtotal:        result.Subtotal,
		DiscountAmount:  result.Discount,
		CouponCode:      result.CouponCode,
		TaxAmount:       result.Tax,
		ShippingAmount:  result.Shipping,
		TotalAmount:     result.Total,
		ShippingAddress: req.ShippingAddress,
		PaymentMethod:   req.PaymentMethod,
		PaymentStatus:   "pending",
		Status:          "pending",
		CreatedAt:       o.now(),
	}

	if err := o.orders.InsertOrder(ctx, order); err != nil {
		o.releaseClaim(ctx, idemKey)
		return o.fail(result, "order", "Erreur lors de la création de la commande"), err
	}
	result.Stage = StageOrderCreated
	result.OrderID = order.ID.String()

	// --- 6. Lignes de commande, prix unitaires figés (fatal, rollback de l'en-tête) ---
	items := make([]models.OrderItem, 0, len(report.AvailableItems))
	for _, check := range report.AvailableItems {
		items = append(items, models.OrderItem{
			OrderID:   order.ID,
			ProductID: check.ProductID,
			Name:      check.ProductName,
			Quantity:  check.Requested,
			UnitPrice: check.UnitPrice,
		})
	}

	if err := o.orders.InsertItems(ctx, items); err != nil {
		// L'en-tête est orphelin : rollback, sinon il faudrait le marquer invalide
		if delErr := o.orders.DeleteOrder(ctx, order.ID); delErr != nil {
			log.Printf("❌ Rollback impossible de la commande orpheline %s: %v", order.ID, delErr)
		}
		o.releaseClaim(ctx, idemKey)
		return o.fail(result, "items", "Erreur lors de l'enregistrement des articles"), err
	}
	result.Stage = StageItemsCreated

	if err := o.idem.Complete(ctx, idemKey, order.ID.String()); err != nil {
		log.Printf("⚠️ Clé d'idempotence non complétée (%s): %v", idemKey, err)
	}

	// --- 7. Compteur d'usage du coupon (incohérence remontée, jamais silencieuse) ---
	if validation.IsValid {
		if err := o.evaluator.Apply(ctx, order.ID, validation.CouponID, validation.Code,
			result.Discount, result.Total, req.UserID); err != nil {
			result.Warnings = append(result.Warnings,
				"Réduction enregistrée mais compteur d'usage non incrémenté, réconciliation requise")
			log.Printf("❌ Commit partiel coupon %s sur commande %s: %v", validation.Code, order.ID, err)
		}
	}

	// --- 8. Règlement du stock (best-effort, la commande est déjà placée) ---
	if err := o.ledger.SettleAfterOrder(ctx, order.ID); err != nil {
		result.Warnings = append(result.Warnings, "Stock non entièrement décrémenté, réconciliation requise")
		log.Printf("⚠️ Règlement stock incomplet pour commande %s: %v", order.ID, err)
	}
	result.Stage = StageInventorySettled

	// --- 9. Notification (best-effort, jamais fatale) ---
	if err := o.notifier.Send(req.Email, "Confirmation de votre commande Coffret", map[string]interface{}{
		"order_id":       order.ID.String(),
		"payment_method": req.PaymentMethod,
		"subtotal":       result.Subtotal,
		"discount":       result.Discount,
		"tax":            result.Tax,
		"shipping":       result.Shipping,
		"total":          result.Total,
		"items":          items,
	}); err != nil {
		result.Warnings = append(result.Warnings, "E-mail de confirmation non envoyé")
		log.Printf("⚠️ Erreur envoi confirmation à %s: %v", req.Email, err)
	} else {
		log.Printf("📧 Confirmation envoyée à %s (commande %s)", req.Email, order.ID)
	}
	result.Stage = StageNotified

	log.Printf("✅ Commande %s placée: %.2f€ (sous-total %.2f€, réduction %.2f€)",
		order.ID, result.Total, result.Subtotal, result.Discount)
	return result, nil
}

func (o *Orchestrator) fail(result *PlacementResult, stage, message string) *PlacementResult {
	result.Stage = StageFailed
	result.Failed = true
	result.FailedStage = stage
	result.Message = message
	return result
}

func (o *Orchestrator) releaseClaim(ctx context.Context, key string) {
	if err := o.idem.Release(ctx, key); err != nil {
		log.Printf("⚠️ Clé d'idempotence non libérée (%s): %v", key, err)
	}
}

// cartLines convertit les lignes de panier en lignes d'inventaire
func cartLines(items []models.CartItem) ([]inventory.Line, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("Panier vide")
	}

	lines := make([]inventory.Line, 0, len(items))
	for _, item := range items {
		if item.Quantity <= 0 {
			return nil, fmt.Errorf("Quantité invalide pour le produit %s", item.ProductID)
		}
		id, err := uuid.Parse(item.ProductID)
		if err != nil {
			return nil, fmt.Errorf("ID produit invalide: %s", item.ProductID)
		}
		lines = append(lines, inventory.Line{ProductID: gocql.UUID(id), Quantity: item.Quantity})
	}
	return lines, nil
}
