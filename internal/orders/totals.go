package orders

import "math"

// RoundCents arrondit au centime (arrondi commercial, demi-centime vers le haut)
func RoundCents(v float64) float64 {
	return math.Floor(v*100+0.5) / 100
}

// ComputeTotal assemble le total d'une commande :
// sous-total − réduction + taxe + livraison, arrondi au centime, jamais négatif.
func ComputeTotal(subtotal, discount, tax, shipping float64) float64 {
	total := RoundCents(subtotal - discount + tax + shipping)
	if total < 0 {
		return 0
	}
	return total
}
