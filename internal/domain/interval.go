package domain

import "time"

// RandomInterval tire un entier uniforme dans [min, max] (bornes incluses).
// intn suit le contrat de math/rand.Intn.
func RandomInterval(min, max int, intn func(int) int) int {
	min, max = NormalizeIntervals(min, max)
	return min + intn(max-min+1)
}

// Seconds convertit un nombre d'unités en durée; unit vaut time.Second hors tests.
func Seconds(n int, unit time.Duration) time.Duration {
	if unit <= 0 {
		unit = time.Second
	}
	return time.Duration(n) * unit
}
