package repository

import (
	"fmt"
	"strings"
)

// PartialCommitError signale qu'une séquence d'écritures s'est arrêtée en cours de
// route : les étapes de Done sont commises, le reste non. À distinguer d'un échec
// total pour que les opérateurs puissent réconcilier.
type PartialCommitError struct {
	Op   string   // opération englobante ("reserve", "settle", "coupon_apply")
	Done []string // étapes déjà commises
	Err  error    // cause de l'arrêt
}

func (e *PartialCommitError) Error() string {
	return fmt.Sprintf("commit partiel pendant %s (commis: %s): %v",
		e.Op, strings.Join(e.Done, ", "), e.Err)
}

func (e *PartialCommitError) Unwrap() error {
	return e.Err
}
