// Package game implements the rules of an attribute-comparison card game:
// dealing, comparing, awarding rounds and detecting the end of a match, plus
// the phase state machine that sequences a round.
//
// Everything here is pure. Functions take snapshots and return values or
// patches; nothing performs I/O and nothing mutates its inputs, so every
// client that feeds the same snapshot in gets the same answer out.
//
// # Rounds
//
//	hands, discarded := game.Distribute(rng, deck, []string{"alice", "bob"})
//	res := game.Compare(state.CurrentRoundCards, "PIB", deck)
//	out := game.Resolve(state, res)
//	if winner, ok := game.CheckEnd(state.Hands()); ok { ... }
//
// # Phases
//
//	spinning -> selecting -> revealing -> comparing | tie -> selecting ... -> finished
//
// Clients express what they want as intents (Begin, Play, Reveal, Select,
// ResolveRound, Advance). Reduce checks the intent against the snapshot and
// returns a Patch of absolute path writes. Steps that find the phase has
// already moved on return ErrNoOp, which is what makes concurrent triggers
// from several clients safe without locks.
//
// # Events
//
// Diff compares two snapshots and reports what happened between them; it is
// how subscribers learn about cards played, rounds resolved and eliminations.
package game
