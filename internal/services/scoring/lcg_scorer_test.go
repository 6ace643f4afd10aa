package scoring

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StudentDrop/internal/domain/models"
)

func TestScoreKnownIDs(t *testing.T) {
	cases := []struct {
		id       int64
		seed     int64
		risk     float64
		category models.RiskCategory
	}{
		{id: 0, seed: 49297, risk: 21.13, category: models.RiskLow},
		{id: 1, seed: 58598, risk: 25.12, category: models.RiskLow},
		{id: 5, seed: 95802, risk: 41.07, category: models.RiskMedium},
		{id: 10, seed: 142307, risk: 61.00, category: models.RiskMedium},
		{id: 13, risk: 72.96, category: models.RiskHigh},
		{id: 42, seed: 206659, risk: 88.59, category: models.RiskHigh},
		{id: 12345, seed: 96382, risk: 41.32, category: models.RiskMedium},
	}
	s := NewLCGScorer()
	for _, tc := range cases {
		if tc.seed != 0 {
			assert.Equal(t, tc.seed, Seed(tc.id), "seed for id %d", tc.id)
		}
		p := s.Score(tc.id)
		assert.Equal(t, tc.risk, p.RiskPercent, "risk for id %d", tc.id)
		assert.Equal(t, tc.category, p.Category, "category for id %d", tc.id)
	}
}

func TestScoreThresholdBoundaries(t *testing.T) {
	// ids chosen so the rounded percent lands exactly on or just past a threshold
	cases := []struct {
		id       int64
		risk     float64
		category models.RiskCategory
	}{
		{id: 22643, risk: 0.00, category: models.RiskLow},
		{id: 152724, risk: 40.00, category: models.RiskLow},
		{id: 203087, risk: 40.01, category: models.RiskMedium},
		{id: 222708, risk: 70.00, category: models.RiskMedium},
		{id: 39791, risk: 70.01, category: models.RiskHigh},
		{id: 9049, risk: 99.99, category: models.RiskHigh},
		// seeds 233269..233279 round to 100.00 and are capped
		{id: 132022, risk: 99.99, category: models.RiskHigh},
		{id: 8121, risk: 99.99, category: models.RiskHigh},
	}
	s := NewLCGScorer()
	for _, tc := range cases {
		p := s.Score(tc.id)
		assert.Equal(t, tc.risk, p.RiskPercent, "risk for id %d", tc.id)
		assert.Equal(t, tc.category, p.Category, "category for id %d", tc.id)
	}
}

func TestRiskPercentRoundsTiesToEven(t *testing.T) {
	// seed/Modulus*100 sits exactly on a half cent for these seeds
	s := NewLCGScorer()
	assert.Equal(t, int64(7290), Seed(773))
	assert.Equal(t, 3.12, s.Score(773).RiskPercent)
	assert.Equal(t, int64(1458), Seed(111581))
	assert.Equal(t, 0.62, s.Score(111581).RiskPercent)
}

func TestSeedNegativeAndExtremeIDs(t *testing.T) {
	assert.Equal(t, int64(39996), Seed(-1))
	assert.Equal(t, Seed(0), Seed(-Modulus))
	assert.Equal(t, Seed(0), Seed(Modulus))
	assert.Equal(t, int64(131324), Seed(math.MaxInt64))
	assert.Equal(t, int64(191249), Seed(math.MinInt64))

	p := NewLCGScorer().Score(-1)
	assert.Equal(t, 17.15, p.RiskPercent)
	assert.Equal(t, models.RiskLow, p.Category)

	assert.Equal(t, 56.29, NewLCGScorer().Score(math.MaxInt64).RiskPercent)
	assert.Equal(t, 81.98, NewLCGScorer().Score(math.MinInt64).RiskPercent)
}

func TestScoreProperties(t *testing.T) {
	s := NewLCGScorer()
	rng := rand.New(rand.NewSource(7))

	ids := []int64{math.MinInt64, math.MaxInt64, -1, 0, 1}
	for i := 0; i < 5000; i++ {
		ids = append(ids, rng.Int63()-rng.Int63())
	}

	for _, id := range ids {
		p := s.Score(id)

		// determinism
		require.Equal(t, p, s.Score(id))

		// range
		require.GreaterOrEqual(t, p.RiskPercent, 0.0)
		require.Less(t, p.RiskPercent, 100.0)

		// at most two decimals
		cents := p.RiskPercent * 100
		require.InDelta(t, math.Round(cents), cents, 1e-6, "id %d risk %v", id, p.RiskPercent)

		// classification consistency
		require.Equal(t, models.CategoryFor(p.RiskPercent), p.Category)
		require.True(t, p.Category.Valid())
	}
}

func TestRiskPercentEverySeed(t *testing.T) {
	for seed := int64(0); seed < Modulus; seed++ {
		r := RiskPercent(seed)
		require.GreaterOrEqual(t, r, 0.0, "seed %d", seed)
		require.LessOrEqual(t, r, 99.99, "seed %d", seed)
		cents := r * 100
		require.InDelta(t, math.Round(cents), cents, 1e-6, "seed %d risk %v", seed, r)
	}
}

func TestSeedCoversWholeRange(t *testing.T) {
	// 9301 is coprime with the modulus, so consecutive ids visit every seed once.
	seen := make(map[int64]struct{}, Modulus)
	for id := int64(0); id < Modulus; id++ {
		seen[Seed(id)] = struct{}{}
	}
	assert.Len(t, seen, int(Modulus))
}
