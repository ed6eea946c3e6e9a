package game

import (
	"regexp"
	"slices"
	"strings"

	"github.com/lox/toptrumps/internal/deck"
)

// Every client runs these checks before writing. The shared store performs
// none, so this file is the single place an authoritative gatekeeper would
// plug in.

const (
	MinPlayers        = 2
	MaxPlayers        = 8
	minNicknameLength = 3
	maxNicknameLength = 15
)

var nicknamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

// ValidateNickname checks a human player's nickname. Bot names are exempt.
func ValidateNickname(nickname string) error {
	n := strings.TrimSpace(nickname)
	switch {
	case len(n) < minNicknameLength:
		return invalid("join", nickname, "nickname must have at least %d characters", minNicknameLength)
	case len(n) > maxNicknameLength:
		return invalid("join", nickname, "nickname must have at most %d characters", maxNicknameLength)
	case !nicknamePattern.MatchString(n):
		return invalid("join", nickname, "nickname may only contain letters, digits and _")
	}
	return nil
}

// CheckStart validates the roster and deck a match is about to start with.
func CheckStart(players []Player, d *deck.Deck) error {
	if len(players) < MinPlayers || len(players) > MaxPlayers {
		return invalid("start", "", "need between %d and %d players, got %d", MinPlayers, MaxPlayers, len(players))
	}
	seen := make(map[string]bool, len(players))
	hosts := 0
	for _, p := range players {
		if p.Nickname == "" || strings.Contains(p.Nickname, "/") {
			return invalid("start", p.Nickname, "invalid nickname")
		}
		if !p.IsBot {
			if err := ValidateNickname(p.Nickname); err != nil {
				return err
			}
		}
		if seen[p.Nickname] {
			return invalid("start", p.Nickname, "duplicate nickname")
		}
		seen[p.Nickname] = true
		if p.IsHost {
			hosts++
		}
	}
	if hosts != 1 {
		return invalid("start", "", "exactly one host required, got %d", hosts)
	}
	if len(d.Cards) < len(players) {
		return invalid("start", "", "deck %s has %d cards for %d players", d.ID, len(d.Cards), len(players))
	}
	return nil
}

// CheckPlay validates player submitting cardID.
func CheckPlay(r *Room, player, cardID string) error {
	st := r.GameState
	if st == nil {
		return invalid("play", player, "match not started")
	}
	if st.Phase != PhaseSelecting {
		return invalid("play", player, "cards can only be played while selecting, phase is %s", st.Phase)
	}
	if !r.IsActive(player) {
		return invalid("play", player, "not an active player")
	}
	if played, ok := st.CurrentRoundCards[player]; ok {
		return invalid("play", player, "already played %s this round", played)
	}
	if !slices.Contains(st.Hand(player), cardID) {
		return invalid("play", player, "card %s is not in hand", cardID)
	}
	return nil
}

// CheckSelect validates player choosing attribute for the round.
func CheckSelect(r *Room, d *deck.Deck, player, attribute string) error {
	st := r.GameState
	if st == nil {
		return invalid("select", player, "match not started")
	}
	if st.Phase != PhaseRevealing {
		return invalid("select", player, "attributes can only be selected while revealing, phase is %s", st.Phase)
	}
	if player != st.CurrentPlayer {
		return invalid("select", player, "it is %s's turn to choose", st.CurrentPlayer)
	}
	if st.SelectedAttribute != "" && st.SelectedAttribute != attribute {
		return invalid("select", player, "attribute %s already selected", st.SelectedAttribute)
	}
	if !slices.Contains(d.Categories, attribute) {
		return invalid("select", player, "deck %s has no attribute %q", d.ID, attribute)
	}
	return nil
}

// CheckAdvance validates player moving the match on to the next round.
func CheckAdvance(r *Room, player string) error {
	st := r.GameState
	if st == nil {
		return invalid("advance", player, "match not started")
	}
	if player != r.HostNickname {
		return invalid("advance", player, "only the host %s advances rounds", r.HostNickname)
	}
	return nil
}
