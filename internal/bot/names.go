package bot

import (
	rand "math/rand/v2"
	"slices"
	"strconv"
)

var botNames = []string{
	"Boteco do Alphinha",
	"Betadinho Nervoso",
	"Gamagrelado",
	"Deltarado",
	"Sigmãe",
	"Omega 3",
	"Bot Primeira Dose",
	"NeoCóptero",
	"Zezeta do Grau",
	"Kappacete",
	"Lambdinha do Grau",
	"Tetinha 3000",
}

// PickName returns a random bot name not in taken, falling back to
// "Bot N" once the list is exhausted.
func PickName(rng *rand.Rand, taken []string) string {
	var free []string
	for _, n := range botNames {
		if !slices.Contains(taken, n) {
			free = append(free, n)
		}
	}
	if len(free) > 0 {
		return free[rng.IntN(len(free))]
	}
	for i := 1; ; i++ {
		name := "Bot " + strconv.Itoa(i)
		if !slices.Contains(taken, name) {
			return name
		}
	}
}
