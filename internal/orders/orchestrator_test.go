package orders

import (
	"context"
	"errors"
	"testing"

	"github.com/gocql/gocql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coffret_back_end/internal/discounts"
	"coffret_back_end/internal/inventory"
	"coffret_back_end/internal/models"
	"coffret_back_end/internal/repository"
)

type fakeProductRepo struct {
	products     map[gocql.UUID]*models.Product
	movements    []models.StockMovement
	decrementErr map[gocql.UUID]error
}

func newFakeProductRepo() *fakeProductRepo {
	return &fakeProductRepo{
		products:     map[gocql.UUID]*models.Product{},
		decrementErr: map[gocql.UUID]error{},
	}
}

func (f *fakeProductRepo) addProduct(name string, stock int, price float64) gocql.UUID {
	id := gocql.TimeUUID()
	f.products[id] = &models.Product{ID: id, Name: name, Stock: stock, Price: price, IsActive: true}
	return id
}

func (f *fakeProductRepo) GetProduct(ctx context.Context, id gocql.UUID) (*models.Product, error) {
	p, ok := f.products[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeProductRepo) DecrementStock(ctx context.Context, id gocql.UUID, qty int) (int, int, error) {
	if err := f.decrementErr[id]; err != nil {
		return 0, 0, err
	}
	p, ok := f.products[id]
	if !ok {
		return 0, 0, repository.ErrNotFound
	}
	newStock := p.Stock - qty
	if newStock < 0 {
		if !p.AllowBackorders {
			return p.Stock, p.Stock, repository.ErrInsufficientStock
		}
		newStock = 0
	}
	prev := p.Stock
	p.Stock = newStock
	return prev, newStock, nil
}

func (f *fakeProductRepo) SetStock(ctx context.Context, id gocql.UUID, newStock int) error {
	f.products[id].Stock = newStock
	return nil
}

func (f *fakeProductRepo) ListLowStock(ctx context.Context, threshold int) ([]models.Product, error) {
	return nil, nil
}

func (f *fakeProductRepo) ListOutOfStock(ctx context.Context) ([]models.Product, error) {
	return nil, nil
}

func (f *fakeProductRepo) RecordMovement(ctx context.Context, m models.StockMovement) error {
	f.movements = append(f.movements, m)
	return nil
}

func (f *fakeProductRepo) ListMovements(ctx context.Context, productID *gocql.UUID, limit int) ([]models.StockMovement, error) {
	return f.movements, nil
}

func (f *fakeProductRepo) InsertAlert(ctx context.Context, a models.StockAlert) error { return nil }

func (f *fakeProductRepo) HasUnresolvedAlert(ctx context.Context, productID gocql.UUID) (bool, error) {
	return true, nil
}

func (f *fakeProductRepo) ListUnresolvedAlerts(ctx context.Context) ([]models.StockAlert, error) {
	return nil, nil
}

func (f *fakeProductRepo) ResolveAlert(ctx context.Context, id gocql.UUID) error { return nil }

type fakeOrderRepo struct {
	orders         map[string]*models.Order
	items          map[gocql.UUID][]models.OrderItem
	deleted        []string
	insertOrderErr error
	insertItemsErr error
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{
		orders: map[string]*models.Order{},
		items:  map[gocql.UUID][]models.OrderItem{},
	}
}

func (f *fakeOrderRepo) InsertOrder(ctx context.Context, o *models.Order) error {
	if f.insertOrderErr != nil {
		return f.insertOrderErr
	}
	cp := *o
	f.orders[o.ID.String()] = &cp
	return nil
}

func (f *fakeOrderRepo) InsertItems(ctx context.Context, items []models.OrderItem) error {
	if f.insertItemsErr != nil {
		return f.insertItemsErr
	}
	if len(items) > 0 {
		f.items[items[0].OrderID] = items
	}
	return nil
}

func (f *fakeOrderRepo) DeleteOrder(ctx context.Context, orderID gocql.UUID) error {
	f.deleted = append(f.deleted, orderID.String())
	delete(f.orders, orderID.String())
	return nil
}

func (f *fakeOrderRepo) SetDiscount(ctx context.Context, orderID gocql.UUID, couponCode string, amount, newTotal float64) error {
	if o, ok := f.orders[orderID.String()]; ok {
		o.DiscountAmount = amount
		o.CouponCode = couponCode
		o.TotalAmount = newTotal
	}
	return nil
}

func (f *fakeOrderRepo) SetPaymentStatus(ctx context.Context, orderID gocql.UUID, status string) error {
	return nil
}

func (f *fakeOrderRepo) GetOrder(ctx context.Context, orderID gocql.UUID) (*models.Order, error) {
	o, ok := f.orders[orderID.String()]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return o, nil
}

func (f *fakeOrderRepo) GetItems(ctx context.Context, orderID gocql.UUID) ([]models.OrderItem, error) {
	return f.items[orderID], nil
}

func (f *fakeOrderRepo) ListByUser(ctx context.Context, userID string) ([]models.Order, error) {
	return nil, nil
}

type fakeCouponRepo struct {
	coupons    map[string]*models.Coupon
	increments int
}

func newFakeCouponRepo() *fakeCouponRepo {
	return &fakeCouponRepo{coupons: map[string]*models.Coupon{}}
}

func (f *fakeCouponRepo) GetByCode(ctx context.Context, code string) (*models.Coupon, error) {
	c, ok := f.coupons[code]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (f *fakeCouponRepo) Insert(ctx context.Context, c models.Coupon) error {
	f.coupons[c.Code] = &c
	return nil
}

func (f *fakeCouponRepo) List(ctx context.Context) ([]models.Coupon, error) { return nil, nil }

func (f *fakeCouponRepo) Update(ctx context.Context, id gocql.UUID, u repository.CouponUpdate) error {
	return nil
}

func (f *fakeCouponRepo) Delete(ctx context.Context, id gocql.UUID) error { return nil }

func (f *fakeCouponRepo) IncrementUsage(ctx context.Context, couponID gocql.UUID, userID string, orderID gocql.UUID) error {
	f.increments++
	return nil
}

func (f *fakeCouponRepo) UserUsageCount(ctx context.Context, couponID gocql.UUID, userID string) (int, error) {
	return 0, nil
}

type fakeIdemStore struct {
	claims   map[string]string
	released []string
}

func newFakeIdemStore() *fakeIdemStore {
	return &fakeIdemStore{claims: map[string]string{}}
}

func (s *fakeIdemStore) Claim(ctx context.Context, key string) (bool, string, error) {
	if existing, ok := s.claims[key]; ok {
		return false, existing, nil
	}
	s.claims[key] = idemPending
	return true, "", nil
}

func (s *fakeIdemStore) Complete(ctx context.Context, key, orderID string) error {
	s.claims[key] = orderID
	return nil
}

func (s *fakeIdemStore) Release(ctx context.Context, key string) error {
	s.released = append(s.released, key)
	delete(s.claims, key)
	return nil
}

type fakeNotifier struct {
	sent    []string
	sendErr error
}

func (n *fakeNotifier) Send(recipient, subject string, bodyContext map[string]interface{}) error {
	if n.sendErr != nil {
		return n.sendErr
	}
	n.sent = append(n.sent, recipient)
	return nil
}

type testRig struct {
	products *fakeProductRepo
	orders   *fakeOrderRepo
	coupons  *fakeCouponRepo
	idem     *fakeIdemStore
	notifier *fakeNotifier
	orch     *Orchestrator
}

func newTestRig() *testRig {
	rig := &testRig{
		products: newFakeProductRepo(),
		orders:   newFakeOrderRepo(),
		coupons:  newFakeCouponRepo(),
		idem:     newFakeIdemStore(),
		notifier: &fakeNotifier{},
	}

	ledger := inventory.NewLedger(rig.products, rig.orders)
	evaluator := discounts.NewEvaluator(rig.coupons, rig.orders)
	rig.orch = NewOrchestrator(ledger, evaluator, rig.orders, rig.idem, rig.notifier)
	return rig
}

func (rig *testRig) request(items ...models.CartItem) PlacementRequest {
	return PlacementRequest{
		UserID:        "user-1",
		Email:         "client@example.com",
		Items:         items,
		PaymentMethod: "card",
		TaxRate:       0.10,
		Shipping:      ShippingPolicy{FlatRate: 5.99, FreeThreshold: 20},
		ShippingAddress: models.Address{
			Street: "1 rue des Coffrets", City: "Bruxelles", PostalCode: "1000", Country: "BE",
		},
	}
}

func TestPlaceOrderHappyPath(t *testing.T) {
	rig := newTestRig()
	boxA := rig.products.addProduct("Coffret Gourmand", 10, 12.50)
	rig.coupons.coupons["PROMO10"] = &models.Coupon{
		ID: gocql.TimeUUID(), Code: "PROMO10", Type: "percentage", Value: 10, IsActive: true,
	}

	req := rig.request(models.CartItem{ProductID: boxA.String(), Quantity: 2})
	req.CouponCode = "PROMO10"

	result, err := rig.orch.PlaceOrder(context.Background(), req)

	require.NoError(t, err)
	assert.Equal(t, StageNotified, result.Stage)
	assert.False(t, result.Failed)
	assert.Empty(t, result.Warnings)

	// 25.00 − 2.50 + 2.50 de taxe + livraison offerte = 25.00
	assert.InDelta(t, 25.00, result.Subtotal, 1e-9)
	assert.InDelta(t, 2.50, result.Discount, 1e-9)
	assert.InDelta(t, 2.50, result.Tax, 1e-9)
	assert.InDelta(t, 0, result.Shipping, 1e-9)
	assert.InDelta(t, 25.00, result.Total, 1e-9)

	// La commande et ses lignes sont persistées, prix unitaires figés
	order := rig.orders.orders[result.OrderID]
	require.NotNil(t, order)
	assert.Equal(t, "PROMO10", order.CouponCode)
	assert.Equal(t, "pending", order.PaymentStatus)

	orderID, _ := gocql.ParseUUID(result.OrderID)
	items := rig.orders.items[orderID]
	require.Len(t, items, 1)
	assert.InDelta(t, 12.50, items[0].UnitPrice, 1e-9)

	// Compteur de coupon incrémenté exactement une fois, stock réglé, e-mail parti
	assert.Equal(t, 1, rig.coupons.increments)
	assert.Equal(t, 8, rig.products.products[boxA].Stock)
	assert.Equal(t, []string{"client@example.com"}, rig.notifier.sent)
}

func TestPlaceOrderInventoryFailure(t *testing.T) {
	rig := newTestRig()
	boxA := rig.products.addProduct("Coffret Gourmand", 1, 12.50)

	result, err := rig.orch.PlaceOrder(context.Background(),
		rig.request(models.CartItem{ProductID: boxA.String(), Quantity: 5}))

	require.NoError(t, err)
	assert.True(t, result.Failed)
	assert.Equal(t, "inventory", result.FailedStage)
	assert.Contains(t, result.Message, "Coffret Gourmand")

	// Rien n'a été écrit : pas de commande, pas de stock touché, pas de clé réclamée
	assert.Empty(t, rig.orders.orders)
	assert.Equal(t, 1, rig.products.products[boxA].Stock)
	assert.Empty(t, rig.idem.claims)
	assert.Empty(t, rig.notifier.sent)
}

func TestPlaceOrderEmptyCart(t *testing.T) {
	rig := newTestRig()

	result, err := rig.orch.PlaceOrder(context.Background(), rig.request())

	require.NoError(t, err)
	assert.True(t, result.Failed)
	assert.Equal(t, "inventory", result.FailedStage)
}

func TestPlaceOrderInvalidCouponIsSoftFailure(t *testing.T) {
	rig := newTestRig()
	boxA := rig.products.addProduct("Coffret Gourmand", 10, 12.50)

	req := rig.request(models.CartItem{ProductID: boxA.String(), Quantity: 2})
	req.CouponCode = "INEXISTANT"

	result, err := rig.orch.PlaceOrder(context.Background(), req)

	require.NoError(t, err)
	assert.False(t, result.Failed)
	assert.Equal(t, StageNotified, result.Stage)
	assert.InDelta(t, 0, result.Discount, 1e-9)
	assert.Equal(t, 0, rig.coupons.increments)

	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "Coupon non appliqué")
}

func TestPlaceOrderHeaderFailureReleasesClaim(t *testing.T) {
	rig := newTestRig()
	boxA := rig.products.addProduct("Coffret Gourmand", 10, 12.50)
	rig.orders.insertOrderErr = errors.New("keyspace indisponible")

	req := rig.request(models.CartItem{ProductID: boxA.String(), Quantity: 1})
	req.IdempotencyKey = "cle-1"

	result, err := rig.orch.PlaceOrder(context.Background(), req)

	require.Error(t, err)
	assert.True(t, result.Failed)
	assert.Equal(t, "order", result.FailedStage)
	assert.Equal(t, []string{"cle-1"}, rig.idem.released)
}

func TestPlaceOrderItemsFailureRollsBack(t *testing.T) {
	rig := newTestRig()
	boxA := rig.products.addProduct("Coffret Gourmand", 10, 12.50)
	rig.orders.insertItemsErr = errors.New("batch refusé")

	req := rig.request(models.CartItem{ProductID: boxA.String(), Quantity: 1})
	req.IdempotencyKey = "cle-1"

	result, err := rig.orch.PlaceOrder(context.Background(), req)

	require.Error(t, err)
	assert.True(t, result.Failed)
	assert.Equal(t, "items", result.FailedStage)

	// L'en-tête orphelin est supprimé et la clé libérée : l'appel peut être rejoué
	assert.Len(t, rig.orders.deleted, 1)
	assert.Empty(t, rig.orders.orders)
	assert.Equal(t, []string{"cle-1"}, rig.idem.released)
	assert.Empty(t, rig.notifier.sent)
}

func TestPlaceOrderDuplicateKey(t *testing.T) {
	rig := newTestRig()
	boxA := rig.products.addProduct("Coffret Gourmand", 10, 12.50)
	rig.idem.claims["cle-1"] = "commande-existante"

	req := rig.request(models.CartItem{ProductID: boxA.String(), Quantity: 1})
	req.IdempotencyKey = "cle-1"

	result, err := rig.orch.PlaceOrder(context.Background(), req)

	require.NoError(t, err)
	assert.True(t, result.Duplicate)
	assert.Equal(t, "commande-existante", result.OrderID)
	assert.Empty(t, rig.orders.orders)
	assert.Equal(t, 10, rig.products.products[boxA].Stock)
}

func TestPlaceOrderDuplicateStillInFlight(t *testing.T) {
	rig := newTestRig()
	boxA := rig.products.addProduct("Coffret Gourmand", 10, 12.50)
	// La première soumission n'a pas encore abouti : la clé est réclamée sans ID
	rig.idem.claims["cle-1"] = idemPending

	req := rig.request(models.CartItem{ProductID: boxA.String(), Quantity: 1})
	req.IdempotencyKey = "cle-1"

	result, err := rig.orch.PlaceOrder(context.Background(), req)

	require.NoError(t, err)
	assert.True(t, result.Duplicate)
	// Le marqueur interne ne doit jamais fuiter comme ID de commande
	assert.Empty(t, result.OrderID)
	assert.Contains(t, result.Message, "en cours")
	assert.Empty(t, rig.orders.orders)
}

func TestPlaceOrderConsumesStockExactlyOnce(t *testing.T) {
	rig := newTestRig()
	boxA := rig.products.addProduct("Coffret Gourmand", 10, 12.50)

	result, err := rig.orch.PlaceOrder(context.Background(),
		rig.request(models.CartItem{ProductID: boxA.String(), Quantity: 2}))

	require.NoError(t, err)
	require.False(t, result.Failed)

	// 2 unités achetées = 2 unités décomptées, ni plus ni moins
	assert.Equal(t, 8, rig.products.products[boxA].Stock)

	require.Len(t, rig.products.movements, 1)
	assert.Equal(t, "sale", rig.products.movements[0].Type)
	assert.Equal(t, 2, rig.products.movements[0].Quantity)
}

func TestPlaceOrderSettleFailureOnlyWarns(t *testing.T) {
	rig := newTestRig()
	boxA := rig.products.addProduct("Coffret Gourmand", 10, 12.50)
	rig.products.decrementErr[boxA] = errors.New("keyspace indisponible")

	result, err := rig.orch.PlaceOrder(context.Background(),
		rig.request(models.CartItem{ProductID: boxA.String(), Quantity: 1}))

	require.NoError(t, err)
	assert.False(t, result.Failed)
	assert.Equal(t, StageNotified, result.Stage)

	// La commande reste placée, l'incident est un avertissement
	assert.Len(t, rig.orders.orders, 1)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "Stock non entièrement décrémenté")
}

func TestPlaceOrderNotifierFailureOnlyWarns(t *testing.T) {
	rig := newTestRig()
	boxA := rig.products.addProduct("Coffret Gourmand", 10, 12.50)
	rig.notifier.sendErr = errors.New("SMTP injoignable")

	result, err := rig.orch.PlaceOrder(context.Background(),
		rig.request(models.CartItem{ProductID: boxA.String(), Quantity: 1}))

	require.NoError(t, err)
	assert.False(t, result.Failed)
	assert.Equal(t, StageNotified, result.Stage)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "E-mail de confirmation non envoyé")
}

func TestPlaceOrderShippingCharged(t *testing.T) {
	rig := newTestRig()
	boxA := rig.products.addProduct("Coffret Découverte", 10, 9.99)

	result, err := rig.orch.PlaceOrder(context.Background(),
		rig.request(models.CartItem{ProductID: boxA.String(), Quantity: 1}))

	require.NoError(t, err)
	// Sous le seuil de gratuité : la livraison s'ajoute au total
	assert.InDelta(t, 5.99, result.Shipping, 1e-9)
	assert.InDelta(t, 9.99+1.00+5.99, result.Total, 1e-9)
}

func TestPlaceOrderGeneratesKeyWhenAbsent(t *testing.T) {
	rig := newTestRig()
	boxA := rig.products.addProduct("Coffret Gourmand", 10, 12.50)

	result, err := rig.orch.PlaceOrder(context.Background(),
		rig.request(models.CartItem{ProductID: boxA.String(), Quantity: 1}))

	require.NoError(t, err)
	require.False(t, result.Failed)

	// Une clé interne a été réclamée puis complétée avec l'ID de la commande
	require.Len(t, rig.idem.claims, 1)
	for _, v := range rig.idem.claims {
		assert.Equal(t, result.OrderID, v)
	}
}
