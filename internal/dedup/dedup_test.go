package dedup_test

import (
	"math/rand"
	"testing"

	"github.com/kesslerlabs/carvex/internal/dedup"
	"github.com/stretchr/testify/require"
)

// naiveAdmit mirrors the source's O(n^2) linear proximity check so the
// sorted-slice Set can be checked for equivalence against it.
func naiveAdmit(accepted []int64, offset int64) bool {
	for _, a := range accepted {
		d := offset - a
		if d < 0 {
			d = -d
		}
		if d < dedup.MinOffsetGap {
			return false
		}
	}
	return true
}

func TestAdmitRejectsWithinGap(t *testing.T) {
	s := dedup.New()
	s.Insert(1000)
	require.False(t, s.Admit(1500))
	require.True(t, s.Admit(2024))
}

func TestAdmitEquivalentToNaiveScan(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	var accepted []int64
	s := dedup.New()

	for i := 0; i < 2000; i++ {
		offset := int64(rng.Intn(200_000))

		want := naiveAdmit(accepted, offset)
		got := s.Admit(offset)
		require.Equal(t, want, got, "offset=%d", offset)

		if got {
			accepted = append(accepted, offset)
			s.Insert(offset)
		}
	}
}

func TestInsertIsIdempotent(t *testing.T) {
	s := dedup.New()
	s.Insert(42)
	s.Insert(42)
	require.Equal(t, 1, s.Len())
}
