package entropy

import (
	"math/rand"

	"wayfarer/internal/domain/models"
)

// Pool sizes per entry. One entry covers a typical multi-die turn; an
// expression that needs more values than the pool holds fails with
// EntropyExhausted at evaluation time and does not spill into the next index.
const (
	poolD20  = 8
	poolD100 = 4
	poolRaw  = 16
)

// Generate derives count entries starting at firstIndex. Every entry is a
// pure function of (seed, index): the per-entry generator is seeded with a
// mix of the two, never with stream position, so regeneration from any
// starting point agrees with the original run.
func Generate(seed int64, firstIndex, count int) []models.EntropyEntry {
	entries := make([]models.EntropyEntry, 0, count)
	for i := 0; i < count; i++ {
		index := firstIndex + i
		rng := rand.New(rand.NewSource(mix(seed, int64(index))))

		entry := models.EntropyEntry{
			Index: index,
			D20:   make([]int, poolD20),
			D100:  make([]int, poolD100),
			Raw:   make([]byte, poolRaw),
		}
		for j := range entry.D20 {
			entry.D20[j] = rng.Intn(20) + 1
		}
		for j := range entry.D100 {
			entry.D100[j] = rng.Intn(100) + 1
		}
		rng.Read(entry.Raw)
		entries = append(entries, entry)
	}
	return entries
}

// mix folds the index into the seed (splitmix64 finalizer) so neighboring
// indices do not produce correlated generators.
func mix(seed, index int64) int64 {
	z := uint64(seed) + uint64(index)*0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return int64(z ^ (z >> 31))
}
