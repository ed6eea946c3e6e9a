package bot

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/lox/toptrumps/internal/game"
)

// Fleet runs several bots in the same match.
type Fleet struct {
	players []*Player
}

// NewFleet groups players.
func NewFleet(players ...*Player) *Fleet {
	return &Fleet{players: players}
}

// Add appends a player to the fleet.
func (f *Fleet) Add(p *Player) {
	f.players = append(f.players, p)
}

// Len returns the number of bots.
func (f *Fleet) Len() int { return len(f.players) }

// Run plays every bot until the match finishes. The first bot to fail
// cancels the rest. Observers are attached to the first bot only so each
// snapshot is seen once.
func (f *Fleet) Run(ctx context.Context, observers ...func(prev, next *game.Room)) error {
	g, ctx := errgroup.WithContext(ctx)
	for i, p := range f.players {
		var obs []func(prev, next *game.Room)
		if i == 0 {
			obs = observers
		}
		g.Go(func() error {
			return p.Run(ctx, obs...)
		})
	}
	return g.Wait()
}
