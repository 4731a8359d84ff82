package handlers

import (
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gocql/gocql"
	"github.com/google/uuid"

	"coffret_back_end/internal/cache"
	"coffret_back_end/internal/inventory"
)

// CheckAvailability - Vérifier la disponibilité d'une liste d'articles
func CheckAvailability(c *gin.Context) {
	var req struct {
		Items []struct {
			ProductID string `json:"product_id" binding:"required"`
			Quantity  int    `json:"quantity" binding:"required,min=1"`
		} `json:"items" binding:"required,min=1"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides: " + err.Error()})
		return
	}

	lines := make([]inventory.Line, 0, len(req.Items))
	for _, item := range req.Items {
		pid, err := uuid.Parse(item.ProductID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "ID produit invalide: " + item.ProductID})
			return
		}
		lines = append(lines, inventory.Line{ProductID: gocql.UUID(pid), Quantity: item.Quantity})
	}

	report, err := ledger.CheckAvailability(c.Request.Context(), lines)
	if err != nil {
		log.Printf("❌ Erreur vérification disponibilité: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur serveur"})
		return
	}

	c.JSON(http.StatusOK, report)
}

// UpdateStock - Réapprovisionner ou ajuster le stock d'un produit (Admin)
func UpdateStock(c *gin.Context) {
	productID := c.Param("id")

	var req struct {
		Quantity int    `json:"quantity" binding:"required"`
		Type     string `json:"type" binding:"required"` // "restock", "adjustment"
		Reason   string `json:"reason"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides: " + err.Error()})
		return
	}

	pid, err := uuid.Parse(productID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID produit invalide"})
		return
	}

	userID := c.GetString("user_id")

	var prev, next int
	switch req.Type {
	case "restock":
		// Quantité relative : ajoutée au stock courant
		prev, next, err = ledger.Restock(c.Request.Context(), gocql.UUID(pid), req.Quantity, req.Reason, userID)
	case "adjustment":
		// Quantité absolue : le stock devient cette valeur
		prev, next, err = ledger.Adjust(c.Request.Context(), gocql.UUID(pid), req.Quantity, req.Reason, userID)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Type de mouvement invalide"})
		return
	}

	if err != nil {
		log.Printf("❌ Erreur mise à jour stock %s: %v", productID, err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cache.InvalidateProductCache(productID)

	log.Printf("✅ Stock mis à jour (%s): %d → %d", req.Type, prev, next)
	c.JSON(http.StatusOK, gin.H{
		"message":        "Stock mis à jour avec succès",
		"previous_stock": prev,
		"new_stock":      next,
	})
}

// GetStockMovements - Historique des mouvements de stock (Admin)
func GetStockMovements(c *gin.Context) {
	limit := 50
	if l, err := strconv.Atoi(c.Query("limit")); err == nil && l > 0 && l <= 500 {
		limit = l
	}

	var productFilter *gocql.UUID
	if pidStr := c.Query("product_id"); pidStr != "" {
		pid, err := uuid.Parse(pidStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "ID produit invalide"})
			return
		}
		gpid := gocql.UUID(pid)
		productFilter = &gpid
	}

	movements, err := productRepo.ListMovements(c.Request.Context(), productFilter, limit)
	if err != nil {
		log.Printf("❌ Erreur récupération mouvements: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur serveur"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"movements": movements,
		"total":     len(movements),
	})
}

// GetLowStockProducts - Produits sous le seuil de stock faible (Admin)
func GetLowStockProducts(c *gin.Context) {
	threshold := 0
	if t, err := strconv.Atoi(c.Query("threshold")); err == nil {
		threshold = t
	}

	products, err := ledger.LowStock(c.Request.Context(), threshold)
	if err != nil {
		log.Printf("❌ Erreur récupération stock faible: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur serveur"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"products": products,
		"total":    len(products),
	})
}

// GetOutOfStockProducts - Produits en rupture de stock (Admin)
func GetOutOfStockProducts(c *gin.Context) {
	products, err := ledger.OutOfStock(c.Request.Context())
	if err != nil {
		log.Printf("❌ Erreur récupération ruptures: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur serveur"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"products": products,
		"total":    len(products),
	})
}

// GetStockAlerts - Alertes stock non résolues (Admin)
func GetStockAlerts(c *gin.Context) {
	alerts, err := productRepo.ListUnresolvedAlerts(c.Request.Context())
	if err != nil {
		log.Printf("❌ Erreur récupération alertes: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur serveur"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"alerts": alerts,
		"total":  len(alerts),
	})
}

// ResolveStockAlert - Marquer une alerte stock comme résolue (Admin)
func ResolveStockAlert(c *gin.Context) {
	alertID := c.Param("id")

	id, err := gocql.ParseUUID(alertID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID alerte invalide"})
		return
	}

	if err := productRepo.ResolveAlert(c.Request.Context(), id); err != nil {
		log.Printf("❌ Erreur résolution alerte: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur serveur"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Alerte résolue"})
}
