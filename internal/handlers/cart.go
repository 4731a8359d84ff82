package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gocql/gocql"
	"github.com/google/uuid"

	"coffret_back_end/internal/cache"
	"coffret_back_end/internal/database"
	"coffret_back_end/internal/inventory"
	"coffret_back_end/internal/models"
)

const cartTTL = 7 * 24 * time.Hour

// AddToCart ajoute une ligne au panier Redis de l'utilisateur
func AddToCart(c *gin.Context) {
	var req struct {
		ProductID string `json:"product_id" binding:"required"`
		Quantity  int    `json:"quantity" binding:"required,min=1"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides: " + err.Error()})
		return
	}

	productUUID, err := uuid.Parse(req.ProductID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID produit invalide"})
		return
	}

	// Le produit doit exister (le prix sera relu au checkout)
	product, err := productRepo.GetProduct(c.Request.Context(), gocql.UUID(productUUID))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Produit introuvable: " + req.ProductID})
		return
	}

	userID := c.GetString("user_id")
	ctx := context.Background()
	cartKey := "cart:" + userID

	items := loadCart(ctx, cartKey)

	merged := false
	for i := range items {
		if items[i].ProductID == req.ProductID {
			items[i].Quantity += req.Quantity
			merged = true
			break
		}
	}
	if !merged {
		items = append(items, models.CartItem{
			ProductID: req.ProductID,
			Quantity:  req.Quantity,
			Name:      product.Name,
			Price:     product.Price,
		})
	}

	if err := saveCart(ctx, cartKey, items); err != nil {
		log.Printf("❌ Erreur sauvegarde panier: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur sauvegarde panier"})
		return
	}

	log.Printf("🛒 Article ajouté au panier de %s: %s x%d", userID, product.Name, req.Quantity)
	c.JSON(http.StatusOK, gin.H{
		"message": "Article ajouté au panier",
		"items":   items,
	})
}

// GetCart retourne le panier courant, noms enrichis depuis le cache produit
func GetCart(c *gin.Context) {
	userID := c.GetString("user_id")
	ctx := context.Background()

	items := loadCart(ctx, "cart:"+userID)
	if len(items) == 0 {
		c.JSON(http.StatusOK, gin.H{"items": []models.CartItem{}, "total": 0})
		return
	}

	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ProductID)
	}
	names := cache.GetProductNamesFromCache(ids)

	var total float64
	for i := range items {
		if name, ok := names[items[i].ProductID]; ok {
			items[i].Name = name
		}
		total += items[i].Price * float64(items[i].Quantity)
	}

	c.JSON(http.StatusOK, gin.H{"items": items, "total": total})
}

// ClearCart vide le panier
func ClearCart(c *gin.Context) {
	userID := c.GetString("user_id")
	ctx := context.Background()

	if err := database.Redis.Del(ctx, "cart:"+userID).Err(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur suppression panier"})
		return
	}

	log.Printf("🧹 Panier vidé pour %s", userID)
	c.JSON(http.StatusOK, gin.H{"message": "Panier vidé"})
}

// CheckCart vérifie la disponibilité du panier sans rien décrémenter.
// Le stock n'est décompté qu'une seule fois, au règlement post-commande :
// une vérification panier ne doit jamais consommer d'unités.
func CheckCart(c *gin.Context) {
	userID := c.GetString("user_id")
	ctx := c.Request.Context()

	items := loadCart(context.Background(), "cart:"+userID)
	if len(items) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Panier vide"})
		return
	}

	lines := make([]inventory.Line, 0, len(items))
	for _, item := range items {
		pid, err := uuid.Parse(item.ProductID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "ID produit invalide: " + item.ProductID})
			return
		}
		lines = append(lines, inventory.Line{ProductID: gocql.UUID(pid), Quantity: item.Quantity})
	}

	report, err := ledger.CheckAvailability(ctx, lines)
	if err != nil {
		log.Printf("❌ Erreur vérification panier pour %s: %v", userID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lors de la vérification du panier"})
		return
	}
	if !report.AllAvailable {
		c.JSON(http.StatusConflict, gin.H{
			"error":  report.Summary,
			"report": report,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Panier disponible", "report": report})
}

// loadCart lit le panier Redis (panier absent = panier vide)
func loadCart(ctx context.Context, cartKey string) []models.CartItem {
	data, err := database.Redis.Get(ctx, cartKey).Result()
	if err != nil {
		return nil
	}

	var items []models.CartItem
	if err := json.Unmarshal([]byte(data), &items); err != nil {
		return nil
	}
	return items
}

func saveCart(ctx context.Context, cartKey string, items []models.CartItem) error {
	data, err := json.Marshal(items)
	if err != nil {
		return err
	}
	return database.Redis.Set(ctx, cartKey, data, cartTTL).Err()
}
