package interval

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// intervalsFor builds a pair of intervals whose endpoint differences produce
// the given sign pattern, when such a pair exists.
func intervalsFor(s Signs) (Interval, Interval, bool) {
	for as := 0; as < 6; as++ {
		for ae := as; ae < 6; ae++ {
			for bs := 0; bs < 6; bs++ {
				for be := bs; be < 6; be++ {
					a, b := New(as, ae), New(bs, be)
					if SignsOf(a, b) == s {
						return a, b, true
					}
				}
			}
		}
	}
	return Interval{}, Interval{}, false
}

func allSigns() []Signs {
	var out []Signs
	vals := []int{-1, 0, 1}
	for _, a := range vals {
		for _, b := range vals {
			for _, c := range vals {
				for _, d := range vals {
					out = append(out, Signs{a, b, c, d})
				}
			}
		}
	}
	return out
}

func TestRelate_TableCells(t *testing.T) {
	for s, want := range reducedTable {
		a, b, ok := intervalsFor(s)
		require.True(t, ok, "no intervals for %v", s)
		assert.Equal(t, want, Relate(a, b), "signs %v", s)
	}
	for s, want := range extendedTable {
		a, b, ok := intervalsFor(s)
		require.True(t, ok, "no intervals for %v", s)
		assert.Equal(t, want, RelateExtended(a, b), "signs %v", s)
	}
}

func TestRelate_SentinelOutsideTable(t *testing.T) {
	for _, s := range allSigns() {
		a, b, ok := intervalsFor(s)
		if !ok {
			continue
		}
		if _, tabled := reducedTable[s]; !tabled {
			assert.Equal(t, Undefined, Relate(a, b), "signs %v", s)
		}
		if _, tabled := extendedTable[s]; !tabled {
			assert.Equal(t, NoRelation, RelateExtended(a, b), "signs %v", s)
		}
	}
	assert.Len(t, reducedTable, 9)
	assert.Len(t, extendedTable, 13)
}

func TestRelate_Examples(t *testing.T) {
	cases := []struct {
		name    string
		a, b    Interval
		reduced Relation
		ext     Extended
	}{
		{"event inside window", New(0, 20), New(5, 10), During, ExtDuring},
		{"window inside event", New(5, 10), New(0, 20), DuringInv, ExtDuringInv},
		{"disjoint after", New(0, 10), New(20, 30), Undefined, ExtAfter},
		{"disjoint before", New(20, 30), New(0, 10), Undefined, ExtBefore},
		{"touching end", New(0, 10), New(10, 20), Undefined, ExtMetBy},
		{"touching start", New(10, 20), New(0, 10), Undefined, ExtMeets},
		{"equal", New(3, 9), New(3, 9), Equal, ExtEqual},
		{"same start shorter", New(3, 9), New(3, 5), Starts, ExtStarts},
		{"same end shorter", New(3, 9), New(5, 9), Finishes, ExtFinishes},
		{"partial overlap", New(10, 30), New(0, 20), Overlaps, ExtOverlaps},
		{"far future sentinel", New(10000, 10001), New(40, 60), Undefined, ExtBefore},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.reduced, Relate(tc.a, tc.b))
			assert.Equal(t, tc.ext, RelateExtended(tc.a, tc.b))
		})
	}
}

func TestRelate_SwapIsInverse(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 5000; i++ {
		as := rng.Intn(40)
		ae := as + rng.Intn(20)
		bs := rng.Intn(40)
		be := bs + rng.Intn(20)
		a, b := New(as, ae), New(bs, be)

		assert.Equal(t, Relate(a, b).Inverse(), Relate(b, a), "a=%v b=%v", a, b)
		assert.Equal(t, RelateExtended(a, b).Inverse(), RelateExtended(b, a), "a=%v b=%v", a, b)
	}
}

func TestExtended_Inverse(t *testing.T) {
	assert.Equal(t, ExtAfter, ExtBefore.Inverse())
	assert.Equal(t, ExtBefore, ExtAfter.Inverse())
	assert.Equal(t, ExtMetBy, ExtMeets.Inverse())
	assert.Equal(t, ExtEqual, ExtEqual.Inverse())
	assert.Equal(t, NoRelation, NoRelation.Inverse())
	assert.Equal(t, NoRelation, Extended(42).Inverse())
	for x := ExtBefore; x <= MaxExtended; x++ {
		assert.Equal(t, x, x.Inverse().Inverse())
	}
}

func TestRelateChecked_RejectsInvalid(t *testing.T) {
	_, err := RelateChecked(New(10, 5), New(0, 3))
	require.ErrorIs(t, err, ErrInvalidInterval)

	_, err = RelateExtendedChecked(New(0, 3), New(9, 2))
	require.ErrorIs(t, err, ErrInvalidInterval)

	r, err := RelateChecked(New(0, 20), New(5, 10))
	require.NoError(t, err)
	assert.Equal(t, During, r)
}

func TestExtended_String(t *testing.T) {
	assert.Equal(t, "before", ExtBefore.String())
	assert.Equal(t, "none", NoRelation.String())
	assert.Equal(t, "Extended(99)", Extended(99).String())
}
