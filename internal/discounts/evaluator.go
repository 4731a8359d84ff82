package discounts

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gocql/gocql"

	"coffret_back_end/internal/models"
	"coffret_back_end/internal/repository"
)

// Evaluator valide les codes promo et applique la réduction à une commande.
// Les violations de règles sont des résultats structurés (CouponValidation),
// jamais des erreurs : l'UI doit pouvoir afficher le message exact.
type Evaluator struct {
	coupons repository.CouponRepository
	orders  repository.OrderRepository
	now     func() time.Time
}

func NewEvaluator(coupons repository.CouponRepository, orders repository.OrderRepository) *Evaluator {
	return &Evaluator{coupons: coupons, orders: orders, now: time.Now}
}

// Validate vérifie un code promo contre le sous-total. Les règles sont évaluées
// dans l'ordre, la première qui échoue gagne :
// existence → actif → date de début → expiration → limite d'usage → montant minimum,
// puis la limite par utilisateur.
func (e *Evaluator) Validate(ctx context.Context, code string, subtotal float64, userID string) models.CouponValidation {
	normalized := strings.ToUpper(strings.TrimSpace(code))

	coupon, err := e.coupons.GetByCode(ctx, normalized)
	if err != nil {
		if err != repository.ErrNotFound {
			return models.CouponValidation{
				IsValid:      false,
				ErrorMessage: "Erreur serveur",
			}
		}
		return models.CouponValidation{
			IsValid:      false,
			ErrorMessage: "Code coupon invalide",
		}
	}

	now := e.now()

	if !coupon.IsActive {
		return models.CouponValidation{
			IsValid:      false,
			ErrorMessage: "Ce coupon n'est plus actif",
		}
	}

	if coupon.StartsAt != nil && now.Before(*coupon.StartsAt) {
		return models.CouponValidation{
			IsValid:      false,
			ErrorMessage: "Ce coupon n'est pas encore valide",
		}
	}

	if coupon.ExpiresAt != nil && now.After(*coupon.ExpiresAt) {
		return models.CouponValidation{
			IsValid:      false,
			ErrorMessage: "Ce coupon a expiré",
		}
	}

	if coupon.MaxUses > 0 && coupon.UsedCount >= coupon.MaxUses {
		return models.CouponValidation{
			IsValid:      false,
			ErrorMessage: "Ce coupon a atteint sa limite d'utilisation",
		}
	}

	if subtotal < coupon.MinAmount {
		return models.CouponValidation{
			IsValid:      false,
			ErrorMessage: fmt.Sprintf("Montant minimum requis: %.2f€", coupon.MinAmount),
		}
	}

	if coupon.MaxUsesPerUser > 0 && userID != "" {
		userUses, err := e.coupons.UserUsageCount(ctx, coupon.ID, userID)
		if err == nil && userUses >= coupon.MaxUsesPerUser {
			return models.CouponValidation{
				IsValid:      false,
				ErrorMessage: "Vous avez déjà utilisé ce coupon le nombre maximum de fois",
			}
		}
	}

	// Calcul de la réduction
	var discount float64
	switch coupon.Type {
	case "percentage":
		discount = subtotal * (coupon.Value / 100)
		if coupon.MaxAmount != nil && discount > *coupon.MaxAmount {
			discount = *coupon.MaxAmount
		}
	case "fixed":
		discount = coupon.Value
		// La réduction ne dépasse jamais le sous-total
		if discount > subtotal {
			discount = subtotal
		}
	}

	return models.CouponValidation{
		IsValid:  true,
		CouponID: coupon.ID,
		Discount: discount,
		Type:     coupon.Type,
		Code:     coupon.Code,
	}
}

// Apply écrit la réduction sur la commande puis incrémente le compteur d'usage
// du coupon (atomique côté store). Si l'incrément échoue alors que la commande
// est déjà mise à jour, l'incohérence est remontée en PartialCommitError,
// jamais ignorée en silence.
func (e *Evaluator) Apply(ctx context.Context, orderID, couponID gocql.UUID, code string,
	amount, newTotal float64, userID string) error {

	if err := e.orders.SetDiscount(ctx, orderID, code, amount, newTotal); err != nil {
		return fmt.Errorf("mise à jour réduction commande %s: %w", orderID, err)
	}

	if err := e.coupons.IncrementUsage(ctx, couponID, userID, orderID); err != nil {
		return &repository.PartialCommitError{
			Op:   "coupon_apply",
			Done: []string{"order_discount_updated"},
			Err:  err,
		}
	}

	return nil
}
