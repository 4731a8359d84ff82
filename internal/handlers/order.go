package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gocql/gocql"

	"coffret_back_end/internal/repository"
)

// GetMyOrders - Récupérer les commandes de l'utilisateur connecté
func GetMyOrders(c *gin.Context) {
	userID := c.GetString("user_id")

	orderList, err := orderRepo.ListByUser(c.Request.Context(), userID)
	if err != nil {
		log.Printf("❌ Erreur récupération commandes de %s: %v", userID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur serveur"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"orders": orderList,
		"total":  len(orderList),
	})
}

// GetOrderByID - Récupérer une commande et ses lignes (propriétaire uniquement)
func GetOrderByID(c *gin.Context) {
	orderID := c.Param("id")
	userID := c.GetString("user_id")

	id, err := gocql.ParseUUID(orderID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID commande invalide"})
		return
	}

	order, err := orderRepo.GetOrder(c.Request.Context(), id)
	if err == repository.ErrNotFound {
		c.JSON(http.StatusNotFound, gin.H{"error": "Commande introuvable"})
		return
	}
	if err != nil {
		log.Printf("❌ Erreur récupération commande %s: %v", orderID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur serveur"})
		return
	}

	// Une commande n'est visible que par son propriétaire (ou un admin)
	if order.UserID != userID && c.GetHeader("X-User-Role") != "admin" {
		c.JSON(http.StatusForbidden, gin.H{"error": "Accès refusé"})
		return
	}

	items, err := orderRepo.GetItems(c.Request.Context(), id)
	if err != nil {
		log.Printf("⚠️ Erreur récupération lignes commande %s: %v", orderID, err)
	}

	c.JSON(http.StatusOK, gin.H{
		"order": order,
		"items": items,
	})
}
