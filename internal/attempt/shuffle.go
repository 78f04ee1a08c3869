package attempt

// Shuffle returns a copy of items permuted by a linear congruential generator
// seeded with seed. The same seed always yields the same order; a zero seed
// behaves like 1.
func Shuffle[T any](items []T, seed uint64) []T {
	out := make([]T, len(items))
	copy(out, items)

	v := seed % (1 << 32)
	if v == 0 {
		v = 1
	}
	for i := len(out) - 1; i > 0; i-- {
		v = (v*1664525 + 1013904223) % (1 << 32)
		j := int(v % uint64(i+1))
		out[i], out[j] = out[j], out[i]
	}
	return out
}
