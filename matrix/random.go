package matrix

import "math/rand"

// Random returns a rows×cols matrix of uniform values in [0, 1) drawn from
// a generator seeded with seed, so every call with the same arguments
// returns the same matrix.
func Random(rows, cols int, seed int64) (*Dense, error) {
	m, err := New(rows, cols)
	if err != nil {
		return nil, err
	}
	fill(m, rand.New(rand.NewSource(seed)))
	return m, nil
}

// RandomPair returns two size×size matrices A and B drawn in that order from
// one generator seeded with seed.
func RandomPair(size int, seed int64) (a, b *Dense, err error) {
	if a, err = New(size, size); err != nil {
		return nil, nil, err
	}
	b, _ = New(size, size)
	rnd := rand.New(rand.NewSource(seed))
	fill(a, rnd)
	fill(b, rnd)
	return a, b, nil
}

func fill(m *Dense, rnd *rand.Rand) {
	for i := range m.data {
		m.data[i] = rnd.Float64()
	}
}
