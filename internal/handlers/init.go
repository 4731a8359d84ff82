package handlers

import (
	"coffret_back_end/internal/database"
	"coffret_back_end/internal/discounts"
	"coffret_back_end/internal/inventory"
	"coffret_back_end/internal/orders"
	"coffret_back_end/internal/repository"
	"coffret_back_end/internal/utils"
)

var (
	productRepo  repository.ProductRepository
	couponRepo   repository.CouponRepository
	orderRepo    repository.OrderRepository
	ledger       *inventory.Ledger
	evaluator    *discounts.Evaluator
	orchestrator *orders.Orchestrator
)

// Init câble les repositories et les services du checkout.
// À appeler après la connexion aux bases.
func Init() {
	productRepo = repository.NewScyllaProductRepository()
	couponRepo = repository.NewScyllaCouponRepository()
	orderRepo = repository.NewScyllaOrderRepository()

	ledger = inventory.NewLedger(productRepo, orderRepo)
	evaluator = discounts.NewEvaluator(couponRepo, orderRepo)
	orchestrator = orders.NewOrchestrator(
		ledger,
		evaluator,
		orderRepo,
		orders.NewRedisIdempotencyStore(database.Redis),
		utils.NewMailer(),
	)
}
