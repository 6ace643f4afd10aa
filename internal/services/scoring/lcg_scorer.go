package scoring

import (
	"strconv"

	"github.com/shopspring/decimal"

	"StudentDrop/internal/domain/models"
	domsvc "StudentDrop/internal/domain/service"
)

// Linear congruential parameters. The generator is used as a deterministic
// hash of the student id, not as a random source.
const (
	Multiplier int64 = 9301
	Increment  int64 = 49297
	Modulus    int64 = 233280
)

// MaxRiskPercent is the largest percent served. The top 11 seeds would
// otherwise round up to 100.00.
var MaxRiskPercent = decimal.RequireFromString("99.99")

// LCGScorer derives a risk percent in [0, 99.99] from a student id.
type LCGScorer struct{}

func NewLCGScorer() *LCGScorer { return &LCGScorer{} }

// Seed returns (id*Multiplier + Increment) mod Modulus as a value in
// [0, Modulus). The id is reduced first so the product cannot overflow,
// and negative ids wrap to the non-negative residue.
func Seed(id int64) int64 {
	r := id % Modulus
	if r < 0 {
		r += Modulus
	}
	return (r*Multiplier + Increment) % Modulus
}

// RiskPercent computes seed/Modulus*100 in float64 and rounds the exact
// binary value to two decimals, ties to even. The result is capped at
// MaxRiskPercent.
func RiskPercent(seed int64) float64 {
	raw := float64(seed) / float64(Modulus) * 100.0
	d := decimal.RequireFromString(strconv.FormatFloat(raw, 'f', 2, 64))
	f, _ := decimal.Min(d, MaxRiskPercent).Float64()
	return f
}

func (s *LCGScorer) Score(studentID int64) models.Prediction {
	risk := RiskPercent(Seed(studentID))
	return models.Prediction{
		RiskPercent: risk,
		Category:    models.CategoryFor(risk),
	}
}

var _ domsvc.RiskScorer = (*LCGScorer)(nil)
