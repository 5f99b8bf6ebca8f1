package beacon

import (
	"context"
	"math/rand"
)

// SubmitResult is the simulator's response to one beacon guess submission.
type SubmitResult int

const (
	SubmitSuccess SubmitResult = iota
	SubmitFailKeepTrying
	SubmitLastChanceFailed
	SubmitUnknown
)

// Submitter posts a single beacon guess and reports the simulator's
// response; implemented by internal/simclient.
type Submitter interface {
	SubmitBeaconGuess(ctx context.Context, beaconID int, guess [2]int) (SubmitResult, error)
}

// SubmitGuesses posts the beacon's guesses one at a time, halting on
// success, a last-chance failure, or an unknown response. If the
// candidate set is empty, ten well-separated random points are submitted
// instead.
func (b *BayesianSet) SubmitGuesses(ctx context.Context, beaconID int, sub Submitter, rng *rand.Rand) (SubmitResult, error) {
	var guesses [][2]int
	if len(b.Points) == 0 {
		for _, g := range RandomSpreadGuesses(10, rng) {
			x, y := g.Cast()
			guesses = append(guesses, [2]int{x, y})
		}
	} else {
		for _, g := range b.PackPerfectCircles() {
			x, y := g.Cast()
			guesses = append(guesses, [2]int{x, y})
		}
	}

	last := SubmitUnknown
	for _, g := range guesses {
		res, err := sub.SubmitBeaconGuess(ctx, beaconID, g)
		if err != nil {
			return last, err
		}
		last = res
		switch res {
		case SubmitSuccess, SubmitLastChanceFailed, SubmitUnknown:
			return res, nil
		case SubmitFailKeepTrying:
			continue
		}
	}
	return last, nil
}
