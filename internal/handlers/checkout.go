package handlers

import (
	"context"
	"log"
	"math"
	"net/http"
	"os"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v83"
	"github.com/stripe/stripe-go/v83/paymentintent"

	"coffret_back_end/internal/database"
	"coffret_back_end/internal/models"
	"coffret_back_end/internal/orders"
)

// Checkout crée une commande complète avec validation stock et coupons
func Checkout(c *gin.Context) {
	var req struct {
		Street        string `json:"street" binding:"required"`
		City          string `json:"city" binding:"required"`
		PostalCode    string `json:"postal_code" binding:"required"`
		Country       string `json:"country" binding:"required"`
		CouponCode    string `json:"coupon_code"`    // Optionnel
		PaymentMethod string `json:"payment_method"` // "card" (défaut) ou "bank_transfer"
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides", "details": err.Error()})
		return
	}

	userID := c.GetString("user_id")
	email := c.GetString("email")

	if userID == "" || email == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Utilisateur non authentifié"})
		return
	}

	// ✅ 1. Récupérer le panier depuis Redis
	ctx := context.Background()
	cartKey := "cart:" + userID

	cartItems := loadCart(ctx, cartKey)
	if len(cartItems) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Panier vide ou introuvable"})
		return
	}

	paymentMethod := req.PaymentMethod
	if paymentMethod == "" {
		paymentMethod = "card"
	}

	// ✅ 2. Dérouler la machine à états du checkout
	placement := orders.PlacementRequest{
		UserID: userID,
		Email:  email,
		Items:  cartItems,
		ShippingAddress: models.Address{
			Street:     req.Street,
			City:       req.City,
			PostalCode: req.PostalCode,
			Country:    req.Country,
		},
		CouponCode:     req.CouponCode,
		PaymentMethod:  paymentMethod,
		TaxRate:        envFloat("TAX_RATE", 0.21),
		Shipping:       shippingPolicy(),
		IdempotencyKey: c.GetHeader("X-Idempotency-Key"),
	}

	result, err := orchestrator.PlaceOrder(c.Request.Context(), placement)
	if err != nil && result != nil && result.Failed {
		// Échec de persistance : fatal, jamais un faux succès
		log.Printf("❌ Checkout échoué (étape %s) pour %s: %v", result.FailedStage, userID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": result.Message, "stage": result.FailedStage})
		return
	}
	if result.Failed {
		// Échec métier (stock, panier) : message précis pour l'UI
		c.JSON(http.StatusBadRequest, gin.H{"error": result.Message, "stage": result.FailedStage})
		return
	}
	if result.Duplicate {
		c.JSON(http.StatusOK, gin.H{
			"message":  result.Message,
			"order_id": result.OrderID,
			"dedup":    true,
		})
		return
	}

	// ✅ 3. Supprimer le panier Redis APRÈS la commande
	if err := database.Redis.Del(ctx, cartKey).Err(); err == nil {
		log.Printf("🧹 Panier supprimé Redis pour %s", userID)
	}

	response := gin.H{
		"order_id":    result.OrderID,
		"subtotal":    result.Subtotal,
		"discount":    result.Discount,
		"tax":         result.Tax,
		"shipping":    result.Shipping,
		"amount":      result.Total,
		"currency":    "eur",
		"items_count": len(cartItems),
		"warnings":    result.Warnings,
	}

	// ✅ 4. Créer le PaymentIntent Stripe (paiement par carte)
	if paymentMethod == "card" && stripe.Key != "" {
		params := &stripe.PaymentIntentParams{
			Amount:   stripe.Int64(amountInCents(result.Total)),
			Currency: stripe.String("eur"),
			AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
				Enabled: stripe.Bool(true),
			},
			Metadata: map[string]string{
				"user_id":  userID,
				"email":    email,
				"order_id": result.OrderID,
			},
		}

		intent, err := paymentintent.New(params)
		if err != nil {
			log.Printf("❌ Erreur Stripe: %v", err)
			response["warnings"] = append(result.Warnings, "Paiement par carte indisponible, la commande reste en attente")
		} else {
			log.Printf("💳 PaymentIntent créé: %s (%.2f€) pour %s", intent.ID, result.Total, email)
			response["client_secret"] = intent.ClientSecret
			response["payment_id"] = intent.ID
		}
	}

	c.JSON(http.StatusOK, response)
}

// amountInCents convertit un montant en euros vers des centimes entiers.
// L'arrondi est indispensable : une conversion tronquée sur un flottant du type
// 16.979999999999999 facturerait un centime de moins.
func amountInCents(total float64) int64 {
	return int64(math.Round(total * 100))
}

// shippingPolicy lit la politique de livraison depuis l'environnement
func shippingPolicy() orders.ShippingPolicy {
	return orders.ShippingPolicy{
		FlatRate:      envFloat("SHIPPING_FLAT_RATE", 5.99),
		FreeThreshold: envFloat("SHIPPING_FREE_THRESHOLD", 50),
	}
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}
