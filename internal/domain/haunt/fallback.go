package haunt

import "slices"

// SelectFallback picks a line from pool that is not among the last window
// entries of recent. If every line was used recently, the whole pool is
// eligible again. pick(n) must return a value in [0, n).
func SelectFallback(pool, recent []string, window int, pick func(n int) int) string {
	if len(pool) == 0 {
		return ""
	}

	if window > len(recent) {
		window = len(recent)
	}
	blocked := recent[len(recent)-window:]

	candidates := make([]string, 0, len(pool))
	for _, line := range pool {
		if !slices.Contains(blocked, line) {
			candidates = append(candidates, line)
		}
	}
	if len(candidates) == 0 {
		candidates = pool
	}

	return candidates[pick(len(candidates))]
}
