package bot

import (
	"io"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/toptrumps/internal/deck"
	"github.com/lox/toptrumps/internal/game"
	"github.com/lox/toptrumps/internal/randutil"
)

func testLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{Level: log.ErrorLevel})
}

func roomWith(hands game.Hands, roster ...string) *game.Room {
	players := map[string]game.Player{}
	for i, p := range roster {
		players[p] = game.Player{Nickname: p, Seat: i, Status: game.StatusActive}
	}
	return &game.Room{
		HostNickname: roster[0],
		Players:      players,
		GameState:    &game.State{Phase: game.PhaseSelecting, CurrentPlayer: roster[0], PlayerCards: hands},
	}
}

func TestMakeDecisionIsStrongest(t *testing.T) {
	catalog, err := deck.Builtin()
	require.NoError(t, err)
	bot := NewBot(testLogger())

	for _, deckID := range []string{"paises", "capitais"} {
		d, ok := catalog.Deck(deckID)
		require.True(t, ok)

		for seed := int64(1); seed <= 20; seed++ {
			roster := []string{"ana", "bia", "caio"}
			hands, _ := game.Distribute(randutil.New(seed), d, roster)
			r := roomWith(hands, roster...)

			decision, err := bot.MakeDecision("ana", r, d)
			require.NoError(t, err)
			assert.Contains(t, hands["ana"], decision.CardID)
			card, _ := d.Card(decision.CardID)
			_, has := card.Value(decision.Attribute)
			assert.True(t, has, "attribute must be on the chosen card")

			opponents := bot.opponentCards("ana", r, d)
			for _, id := range hands["ana"] {
				c, _ := d.Card(id)
				for attr := range c.Attributes {
					assert.GreaterOrEqual(t, decision.Strength, winStrength(c, attr, opponents, d),
						"deck %s seed %d: %s/%s beats the decision", deckID, seed, id, attr)
				}
			}
			assert.NotEmpty(t, decision.Reasoning)
			assert.LessOrEqual(t, decision.Confidence, decision.Strength)
		}
	}
}

func TestMakeDecisionFirstPairWinsTies(t *testing.T) {
	d, err := deck.New("t", "T", []string{"A", "B"}, []deck.Card{
		{ID: "one", Name: "One", Attributes: map[string]float64{"A": 5, "B": 5}},
		{ID: "two", Name: "Two", Attributes: map[string]float64{"A": 9, "B": 1}},
		{ID: "opp", Name: "Opp", Attributes: map[string]float64{"A": 1, "B": 1}},
	})
	require.NoError(t, err)

	r := roomWith(game.Hands{"me": {"one", "two"}, "you": {"opp"}}, "me", "you")
	decision, err := NewBot(testLogger()).MakeDecision("me", r, d)
	require.NoError(t, err)
	assert.Equal(t, "one", decision.CardID)
	assert.Equal(t, "A", decision.Attribute)
	assert.Equal(t, 1.0, decision.Strength)
}

func TestMakeDecisionLowerWins(t *testing.T) {
	d, err := deck.New("t", "T", []string{"População", deck.FoundingAttribute}, []deck.Card{
		{ID: "old", Name: "Old", Attributes: map[string]float64{"População": 1, deck.FoundingAttribute: 1045}},
		{ID: "big", Name: "Big", Attributes: map[string]float64{"População": 9, deck.FoundingAttribute: 1960}},
	})
	require.NoError(t, err)

	r := roomWith(game.Hands{"me": {"old"}, "you": {"big"}}, "me", "you")
	decision, err := NewBot(testLogger()).MakeDecision("me", r, d)
	require.NoError(t, err)
	assert.Equal(t, deck.FoundingAttribute, decision.Attribute)
	assert.Contains(t, decision.Reasoning, "lower")
}

func TestMakeDecisionIgnoresPotAndEliminated(t *testing.T) {
	d, err := deck.New("t", "T", []string{"A"}, []deck.Card{
		{ID: "mine", Name: "Mine", Attributes: map[string]float64{"A": 5}},
		{ID: "pot", Name: "Pot", Attributes: map[string]float64{"A": 9}},
		{ID: "gone", Name: "Gone", Attributes: map[string]float64{"A": 9}},
		{ID: "low", Name: "Low", Attributes: map[string]float64{"A": 1}},
	})
	require.NoError(t, err)

	r := roomWith(game.Hands{"me": {"mine"}, "you": {"pot", "low"}, "out": {"gone"}}, "me", "you", "out")
	r.GameState.TiePot = []string{"pot"}
	out := r.Players["out"]
	out.Status = game.StatusEliminated
	r.Players["out"] = out

	decision, err := NewBot(testLogger()).MakeDecision("me", r, d)
	require.NoError(t, err)
	assert.Equal(t, 1.0, decision.Strength)

	_, err = NewBot(testLogger()).MakeDecision("nobody", r, d)
	assert.ErrorIs(t, err, ErrEmptyHand)
}

func TestBestAttribute(t *testing.T) {
	d, err := deck.New("t", "T", []string{"A", "B"}, []deck.Card{
		{ID: "mine", Name: "Mine", Attributes: map[string]float64{"A": 1, "B": 8}},
		{ID: "opp", Name: "Opp", Attributes: map[string]float64{"A": 5, "B": 5}},
	})
	require.NoError(t, err)

	r := roomWith(game.Hands{"me": {"mine"}, "you": {"opp"}}, "me", "you")
	attr, err := NewBot(testLogger()).BestAttribute("me", "mine", r, d)
	require.NoError(t, err)
	assert.Equal(t, "B", attr)
}

func TestPickName(t *testing.T) {
	rng := randutil.New(1)

	name := PickName(rng, nil)
	assert.Contains(t, botNames, name)
	assert.NotEqual(t, name, PickName(randutil.New(1), []string{name}))

	assert.Equal(t, "Bot 1", PickName(rng, botNames))
	assert.Equal(t, "Bot 2", PickName(rng, append([]string{"Bot 1"}, botNames...)))
}
