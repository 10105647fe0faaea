// Package scoring computes the final score for a completed run. Pure
// function, no side effects.
package scoring

import "github.com/fixwright/fixwright/internal/types"

const (
	baseScore = 100
	// speedBonusThreshold is the run duration below which the bonus applies.
	speedBonusThreshold = 300.0
	speedBonus          = 10
	// freeCommits is the number of commits allowed before the efficiency
	// penalty starts.
	freeCommits      = 20
	penaltyPerCommit = 2
)

// Score computes the breakdown for a run: base 100, +10 when the run
// finished in under five minutes, -2 per commit beyond the 20th, floored
// at zero.
func Score(durationSeconds *float64, commitCount int) types.ScoreBreakdown {
	bonus := 0
	if durationSeconds != nil && *durationSeconds < speedBonusThreshold {
		bonus = speedBonus
	}

	penalty := 0
	if commitCount > freeCommits {
		penalty = (commitCount - freeCommits) * penaltyPerCommit
	}

	final := baseScore + bonus - penalty
	if final < 0 {
		final = 0
	}

	return types.ScoreBreakdown{
		BaseScore:         baseScore,
		SpeedBonus:        bonus,
		EfficiencyPenalty: penalty,
		FinalScore:        final,
	}
}
