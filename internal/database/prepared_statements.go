package database

import (
	"log"
	"sync"

	"github.com/gocql/gocql"
)

var preparedOnce sync.Once

// InitPreparedStatements pré-chauffe le cache de prepared statements de gocql :
// chaque requête est préparée côté serveur à sa première exécution, on paie donc
// ce coût au démarrage plutôt que sur le premier checkout.
func InitPreparedStatements() {
	preparedOnce.Do(func() {
		productsSession, err := GetProductsSession()
		if err != nil {
			log.Printf("⚠️ Impossible de pré-chauffer les prepared statements produits: %v", err)
			return
		}

		// Lecture stock + politique backorder (appelée pour chaque ligne du panier)
		warmup(productsSession, `SELECT stock, allow_backorders FROM products WHERE product_id = ?`, gocql.TimeUUID())

		ordersSession, err := GetOrdersSession()
		if err != nil {
			log.Printf("⚠️ Impossible de pré-chauffer les prepared statements commandes: %v", err)
			return
		}

		// Lookup coupon par code normalisé
		warmup(ordersSession, `SELECT id, code, type, value, min_amount, max_amount, max_uses, max_uses_per_user,
			starts_at, expires_at, is_active, created_by, created_at, updated_at
			FROM coupons WHERE code = ? LIMIT 1`, "WARMUP")

		// Lignes d'une commande (règlement post-commande)
		warmup(ordersSession, `SELECT product_id, name, quantity, unit_price
			FROM order_items WHERE order_id = ?`, gocql.TimeUUID())

		log.Println("✅ Prepared statements pré-chauffés")
	})
}

// warmup exécute la requête une fois pour la faire préparer et mettre en cache.
// Un résultat vide est attendu, seule la préparation compte.
func warmup(session *gocql.Session, query string, args ...interface{}) {
	iter := session.Query(query, args...).Iter()
	if err := iter.Close(); err != nil {
		log.Printf("⚠️ Préchauffage impossible: %v", err)
	}
}
