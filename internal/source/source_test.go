package source

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/abcd.report/internal/abcd"
)

func take(t *testing.T, src abcd.PointSource, n int) []abcd.Point {
	t.Helper()
	out := make([]abcd.Point, 0, n)
	for i := 0; i < n; i++ {
		p, ok := src.Next()
		require.True(t, ok, "source ended after %d points", i)
		out = append(out, p)
	}
	return out
}

func TestFixed(t *testing.T) {
	pts := []abcd.Point{{X: 0.1, Y: 0.2}, {X: 0.3, Y: 0.4}}
	f := NewFixed(pts...)

	got := take(t, f, 2)
	assert.Empty(t, cmp.Diff(pts, got))
	_, ok := f.Next()
	assert.False(t, ok)
}

func TestFixed_Cycle(t *testing.T) {
	f := &Fixed{Points: []abcd.Point{{X: 1}, {X: 2}}, Cycle: true}
	got := take(t, f, 5)
	xs := []float64{got[0].X, got[1].X, got[2].X, got[3].X, got[4].X}
	assert.Equal(t, []float64{1, 2, 1, 2, 1}, xs)
}

func TestFixed_Empty(t *testing.T) {
	f := &Fixed{Cycle: true}
	_, ok := f.Next()
	assert.False(t, ok)
}

func TestFunction_SameSeedSameSequence(t *testing.T) {
	a := take(t, NewFunction(42, nil, nil), 1000)
	b := take(t, NewFunction(42, nil, nil), 1000)
	c := take(t, NewFunction(43, nil, nil), 1000)

	assert.Empty(t, cmp.Diff(a, b))
	assert.NotEmpty(t, cmp.Diff(a, c))
}

func TestFunction_UniformRange(t *testing.T) {
	pts := take(t, NewFunction(7, nil, nil), 20000)
	var sumX, sumY float64
	for _, p := range pts {
		require.True(t, p.X >= 0 && p.X < 1)
		require.True(t, p.Y >= 0 && p.Y < 1)
		sumX += p.X
		sumY += p.Y
	}
	assert.InDelta(t, 0.5, sumX/float64(len(pts)), 0.02)
	assert.InDelta(t, 0.5, sumY/float64(len(pts)), 0.02)
}

func TestFunction_Transforms(t *testing.T) {
	raw := take(t, NewFunction(9, nil, nil), 100)
	mapped := take(t, NewFunction(9, Square, Sqrt), 100)
	for i := range raw {
		assert.InDelta(t, raw[i].X*raw[i].X, mapped[i].X, 1e-15)
		assert.InDelta(t, math.Sqrt(raw[i].Y), mapped[i].Y, 1e-15)
	}
}

func TestGaussian(t *testing.T) {
	pts := take(t, NewGaussian(11, 0.3, 0.7, 0.1), 20000)
	var sumX, sumY float64
	for _, p := range pts {
		sumX += p.X
		sumY += p.Y
	}
	assert.InDelta(t, 0.3, sumX/float64(len(pts)), 0.01)
	assert.InDelta(t, 0.7, sumY/float64(len(pts)), 0.01)
}

func TestMixture(t *testing.T) {
	bg := &Fixed{Points: []abcd.Point{{X: 0.9, Y: 0.1}}, Cycle: true}
	sig := &Fixed{Points: []abcd.Point{{X: 0.1, Y: 0.9}}, Cycle: true}
	m, err := NewMixture(5, bg, sig, 0.25)
	require.NoError(t, err)

	const n = 20000
	signal := 0
	for _, p := range take(t, m, n) {
		if p.X < 0.5 {
			signal++
		}
	}
	assert.InDelta(t, 0.25, float64(signal)/n, 0.02)
}

func TestMixture_Extremes(t *testing.T) {
	bg := &Fixed{Points: []abcd.Point{{X: 0}}, Cycle: true}
	sig := &Fixed{Points: []abcd.Point{{X: 1}}, Cycle: true}

	none, err := NewMixture(1, bg, sig, 0)
	require.NoError(t, err)
	all, err := NewMixture(1, bg, sig, 1)
	require.NoError(t, err)
	for i := 0; i < 100; i++ {
		p, _ := none.Next()
		assert.Equal(t, 0.0, p.X)
		p, _ = all.Next()
		assert.Equal(t, 1.0, p.X)
	}

	_, err = NewMixture(1, bg, sig, 1.5)
	assert.Error(t, err)
}

func TestLookupTransform(t *testing.T) {
	for _, name := range TransformNames() {
		tr, err := LookupTransform(name)
		require.NoError(t, err, name)
		assert.InDelta(t, 0.0, tr(0), 1e-12, name)
		v := tr(0.999999)
		assert.True(t, v > 0.9 && v <= 1, "%s(0.999999) = %v", name, v)
	}

	_, err := LookupTransform("cubic")
	assert.Error(t, err)
	assert.Equal(t, []string{"exp", "identity", "sqrt", "square"}, TransformNames())
}

func TestExp_IsMonotonicAndFalling(t *testing.T) {
	prev := -1.0
	for r := 0.0; r < 1; r += 0.01 {
		v := Exp(r)
		require.Greater(t, v, prev)
		prev = v
	}
	// Half of the draws land below the median of the truncated exponential.
	median := -math.Log(0.5*(1+math.Exp(-expRate))) / expRate
	assert.InDelta(t, median, Exp(0.5), 1e-12)
	assert.Less(t, Exp(0.5), 0.5)
}

func TestSeedFor(t *testing.T) {
	seen := make(map[uint64]int)
	for i := 0; i < 10000; i++ {
		s := SeedFor(1234, i)
		if prev, dup := seen[s]; dup {
			t.Fatalf("trial %d reuses seed of trial %d", i, prev)
		}
		seen[s] = i
	}
	assert.Equal(t, SeedFor(1, 2), SeedFor(1, 2))
	assert.NotEqual(t, SeedFor(1, 2), SeedFor(2, 2))
}
