package orders

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoundCents(t *testing.T) {
	cases := []struct {
		name string
		in   float64
		want float64
	}{
		{"entier", 25, 25},
		{"deux décimales", 19.99, 19.99},
		{"demi-centime vers le haut", 2.005, 2.01},
		{"demi-centime vers le haut bis", 0.125, 0.13},
		{"tronque sous le demi-centime", 2.004, 2.00},
		{"flottant imprécis", 0.1 + 0.2, 0.30},
		{"pourcentage classique", 29.97 * 0.10, 3.00},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.want, RoundCents(tc.in), 1e-9)
		})
	}
}

func TestComputeTotal(t *testing.T) {
	cases := []struct {
		name     string
		subtotal float64
		discount float64
		tax      float64
		shipping float64
		want     float64
	}{
		{"sans réduction", 25, 0, 2.50, 5.99, 33.49},
		{"réduction compensée par la taxe", 25, 2.50, 2.50, 0, 25.00},
		{"livraison offerte", 60, 0, 12.60, 0, 72.60},
		{"réduction supérieure au reste", 10, 50, 0, 0, 0},
		{"tout à zéro", 0, 0, 0, 0, 0},
		{"centimes", 19.99, 5, 4.20, 5.99, 25.18},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.want, ComputeTotal(tc.subtotal, tc.discount, tc.tax, tc.shipping), 1e-9)
		})
	}
}
