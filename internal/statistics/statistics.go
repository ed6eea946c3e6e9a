// Package statistics aggregates the outcomes of many matches, for bot
// tuning runs.
package statistics

import (
	"fmt"
	"math"
	"sort"

	"github.com/lox/toptrumps/internal/game"
)

// MatchResult is the outcome of one finished match
type MatchResult struct {
	Seed       int64  // RNG seed the match was dealt with (for replay)
	Winner     string // Empty for a draw
	WinnerSeat int    // Seat of the winner, -1 for a draw
	Rounds     int
	Ties       int // Rounds that fed the tie pot
	Players    int
}

// FromRoom summarises a finished match document.
func FromRoom(r *game.Room, seed int64) (MatchResult, error) {
	if r == nil || r.GameState == nil || r.GameState.Phase != game.PhaseFinished {
		return MatchResult{}, fmt.Errorf("match is not finished")
	}
	st := r.GameState
	res := MatchResult{
		Seed:       seed,
		Winner:     st.GameWinner,
		WinnerSeat: -1,
		Rounds:     len(st.RoundHistory),
		Players:    len(r.Players),
	}
	if p, ok := r.Players[st.GameWinner]; ok {
		res.WinnerSeat = p.Seat
	}
	for _, h := range st.RoundHistory {
		if h.Tie {
			res.Ties++
		}
	}
	return res, nil
}

// Statistics tracks match length and who wins across a series of matches
type Statistics struct {
	Matches    int
	SumRounds  float64
	SumRounds2 float64   // Sum of squares for variance calculation
	Values     []float64 // Rounds per match, for median/percentile calculation

	Draws    int
	Ties     int            // Tied rounds over every match
	Wins     map[string]int // Matches won per player
	SeatWins [game.MaxPlayers]int
}

// Add incorporates a match result into the statistics
func (s *Statistics) Add(result MatchResult) {
	rounds := float64(result.Rounds)
	s.Matches++
	s.SumRounds += rounds
	s.SumRounds2 += rounds * rounds
	s.Values = append(s.Values, rounds)
	s.Ties += result.Ties

	if result.Winner == "" {
		s.Draws++
		return
	}
	if s.Wins == nil {
		s.Wins = make(map[string]int)
	}
	s.Wins[result.Winner]++
	if result.WinnerSeat >= 0 && result.WinnerSeat < len(s.SeatWins) {
		s.SeatWins[result.WinnerSeat]++
	}
}

// Mean returns the average number of rounds per match
func (s *Statistics) Mean() float64 {
	if s.Matches == 0 {
		return 0
	}
	return s.SumRounds / float64(s.Matches)
}

// Variance returns the sample variance of match length
func (s *Statistics) Variance() float64 {
	if s.Matches < 2 {
		return 0
	}
	mean := s.Mean()
	return (s.SumRounds2 - float64(s.Matches)*mean*mean) / float64(s.Matches-1)
}

// StdDev returns the sample standard deviation of match length
func (s *Statistics) StdDev() float64 {
	return math.Sqrt(s.Variance())
}

// StdError returns the standard error of the mean
func (s *Statistics) StdError() float64 {
	if s.Matches == 0 {
		return 0
	}
	return s.StdDev() / math.Sqrt(float64(s.Matches))
}

// ConfidenceInterval95 returns the 95% confidence interval for the mean
func (s *Statistics) ConfidenceInterval95() (float64, float64) {
	mean := s.Mean()
	margin := 1.96 * s.StdError() // 95% confidence
	return mean - margin, mean + margin
}

// Median returns the median match length
func (s *Statistics) Median() float64 {
	return s.Percentile(0.5)
}

// Percentile returns the match length at the given percentile (0.0 to 1.0)
func (s *Statistics) Percentile(p float64) float64 {
	if len(s.Values) == 0 {
		return 0
	}
	sorted := make([]float64, len(s.Values))
	copy(sorted, s.Values)
	sort.Float64s(sorted)

	index := p * float64(len(sorted)-1)
	lower := int(index)
	upper := lower + 1

	if upper >= len(sorted) {
		return sorted[len(sorted)-1]
	}

	weight := index - float64(lower)
	return sorted[lower]*(1-weight) + sorted[upper]*weight
}

// WinRate returns the share of matches player won
func (s *Statistics) WinRate(player string) float64 {
	if s.Matches == 0 {
		return 0
	}
	return float64(s.Wins[player]) / float64(s.Matches)
}

// Leaders returns every player with at least one win, most wins first.
func (s *Statistics) Leaders() []string {
	out := make([]string, 0, len(s.Wins))
	for p := range s.Wins {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if s.Wins[out[i]] != s.Wins[out[j]] {
			return s.Wins[out[i]] > s.Wins[out[j]]
		}
		return out[i] < out[j]
	})
	return out
}

// Validate checks that every match is accounted for exactly once
func (s *Statistics) Validate() error {
	if s.Matches <= 0 {
		return fmt.Errorf("invalid matches count: %d", s.Matches)
	}

	if len(s.Values) != s.Matches {
		return fmt.Errorf("values array length (%d) does not match matches count (%d)",
			len(s.Values), s.Matches)
	}

	wins := 0
	for _, n := range s.Wins {
		wins += n
	}
	if wins+s.Draws != s.Matches {
		return fmt.Errorf("wins (%d) plus draws (%d) do not match matches count (%d)",
			wins, s.Draws, s.Matches)
	}

	seatWins := 0
	for _, n := range s.SeatWins {
		seatWins += n
	}
	if seatWins != wins {
		return fmt.Errorf("seat wins total (%d) does not match wins (%d)", seatWins, wins)
	}

	return nil
}
