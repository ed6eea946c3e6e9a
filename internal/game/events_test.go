package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func eventTypes(events []GameEvent) []EventType {
	out := make([]EventType, len(events))
	for i, e := range events {
		out[i] = e.EventType()
	}
	return out
}

func TestDiffMatchStart(t *testing.T) {
	r := newTestRoom(PhaseSpinning, "A", Hands{"A": {"a1"}, "B": {"b1"}})

	events := Diff(nil, r, testNow)
	assert.Equal(t, []EventType{EventTypeMatchStarted, EventTypePhaseChanged}, eventTypes(events))

	started := events[0].(MatchStartedEvent)
	assert.Equal(t, []string{"A", "B"}, started.Players)
	assert.Equal(t, testNow, started.Timestamp())

	assert.Empty(t, Diff(r, r, testNow))
	assert.Empty(t, Diff(nil, &Room{}, testNow))
}

func TestDiffRound(t *testing.T) {
	d := xDeck(t)
	r0 := newTestRoom(PhaseSelecting, "A", Hands{"A": {"x10"}, "B": {"x20"}})

	r1 := step(t, r0, d, Play{Player: "A", CardID: "x10"})
	assert.Equal(t, []EventType{EventTypeCardPlayed}, eventTypes(Diff(r0, r1, testNow)))

	r2 := step(t, r1, d, Play{Player: "B", CardID: "x20"})
	events := Diff(r1, r2, testNow)
	assert.Equal(t, []EventType{EventTypeCardPlayed, EventTypePhaseChanged}, eventTypes(events))
	assert.Equal(t, "B", events[0].(CardPlayedEvent).Player)

	r3 := step(t, r2, d, Select{Player: "A", Attribute: "X"})
	assert.Equal(t, []EventType{EventTypeAttributeSelected}, eventTypes(Diff(r2, r3, testNow)))

	r4 := step(t, r3, d, ResolveRound{})
	events = Diff(r3, r4, testNow)
	assert.Equal(t, []EventType{EventTypeRoundResolved, EventTypePlayerEliminated, EventTypePhaseChanged}, eventTypes(events))
	resolved := events[0].(RoundResolvedEvent)
	assert.Equal(t, []string{"B"}, resolved.Result.Winners)
	assert.Equal(t, 2, resolved.HandSizes["B"])

	r5 := step(t, r4, d, Advance{Player: "A"})
	events = Diff(r4, r5, testNow)
	require.Equal(t, []EventType{EventTypePhaseChanged, EventTypeGameFinished}, eventTypes(events))
	assert.Equal(t, "B", events[1].(GameFinishedEvent).Winner)
}

func TestEventBus(t *testing.T) {
	bus := NewEventBus()
	var got []EventType
	unsubscribe := bus.Subscribe(EventSubscriberFunc(func(e GameEvent) {
		got = append(got, e.EventType())
	}))

	bus.Publish(CardPlayedEvent{Player: "A"})
	unsubscribe()
	bus.Publish(CardPlayedEvent{Player: "B"})

	assert.Equal(t, []EventType{EventTypeCardPlayed}, got)
}
