package sampler

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
)

func seeded() *rand.Rand {
	return rand.New(rand.NewPCG(1, 2))
}

func TestShape(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"RM-101.ZNT", "rm 0 znt"},
		{"RM-2047.ZNT", "rm 0 znt"},
		{"AHU1 SAT-SP", "ahu0 sat sp"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Shape(tt.in))
		})
	}
}

func TestSelectRandom_Plain(t *testing.T) {
	pool := []string{"a", "b", "c", "a", "d"}

	got := SelectRandom(pool, 10, Options{Rand: seeded()})
	assert.ElementsMatch(t, []string{"a", "b", "c", "d"}, got)

	got = SelectRandom(pool, 2, Options{Rand: seeded()})
	assert.Len(t, got, 2)
	assert.NotEqual(t, got[0], got[1])
	assert.Subset(t, []string{"a", "b", "c", "d"}, got)

	assert.Empty(t, SelectRandom(pool, 0, Options{}))
	assert.Empty(t, SelectRandom(nil, 3, Options{}))
}

func TestSelectRandom_Clusters(t *testing.T) {
	sentences := map[string]string{
		"z1": "RM-101.ZNT",
		"z2": "RM-102.ZNT",
		"z3": "RM-103.ZNT",
		"s1": "AHU-1.SAT-SP",
		"s2": "AHU-2.SAT-SP",
	}
	pool := []string{"z1", "z2", "z3", "s1", "s2", "x"}

	t.Run("unique", func(t *testing.T) {
		got := SelectRandom(pool, 5, Options{UseCluster: true, UniqueClusters: true, Sentences: sentences, Rand: seeded()})
		assert.Len(t, got, 3)
		zones, supplies := 0, 0
		for _, srcid := range got {
			switch srcid[0] {
			case 'z':
				zones++
			case 's':
				supplies++
			}
		}
		assert.Equal(t, 1, zones)
		assert.Equal(t, 1, supplies)
		assert.Contains(t, got, "x")
	})

	t.Run("round robin", func(t *testing.T) {
		got := SelectRandom(pool, 3, Options{UseCluster: true, Sentences: sentences, Rand: seeded()})
		assert.Len(t, got, 3)
		assert.Contains(t, got, "x")

		all := SelectRandom(pool, 10, Options{UseCluster: true, Sentences: sentences, Rand: seeded()})
		assert.ElementsMatch(t, pool, all)
	})
}
