package game

import (
	"slices"
	"sort"
	"sync"
	"time"
)

// EventType identifies a change observed between two room snapshots.
type EventType string

const (
	EventTypeMatchStarted      EventType = "match_started"
	EventTypePhaseChanged      EventType = "phase_changed"
	EventTypeCardPlayed        EventType = "card_played"
	EventTypeAttributeSelected EventType = "attribute_selected"
	EventTypeRoundResolved     EventType = "round_resolved"
	EventTypePlayerEliminated  EventType = "player_eliminated"
	EventTypeGameFinished      EventType = "game_finished"
)

func (et EventType) String() string {
	return string(et)
}

// GameEvent is anything derived from a snapshot transition.
type GameEvent interface {
	EventType() EventType
	Timestamp() time.Time
}

// MatchStartedEvent fires the first time a snapshot carries a game state.
type MatchStartedEvent struct {
	Players       []string
	DeckID        string
	CurrentPlayer string
	timestamp     time.Time
}

func (e MatchStartedEvent) EventType() EventType { return EventTypeMatchStarted }
func (e MatchStartedEvent) Timestamp() time.Time { return e.timestamp }

// PhaseChangedEvent fires on every phase transition.
type PhaseChangedEvent struct {
	From, To  Phase
	Round     int
	timestamp time.Time
}

func (e PhaseChangedEvent) EventType() EventType { return EventTypePhaseChanged }
func (e PhaseChangedEvent) Timestamp() time.Time { return e.timestamp }

// CardPlayedEvent fires when a player's card shows up in the round.
type CardPlayedEvent struct {
	Player    string
	CardID    string
	Round     int
	timestamp time.Time
}

func (e CardPlayedEvent) EventType() EventType { return EventTypeCardPlayed }
func (e CardPlayedEvent) Timestamp() time.Time { return e.timestamp }

// AttributeSelectedEvent fires when the round's attribute is chosen.
type AttributeSelectedEvent struct {
	Player    string
	Attribute string
	Round     int
	timestamp time.Time
}

func (e AttributeSelectedEvent) EventType() EventType { return EventTypeAttributeSelected }
func (e AttributeSelectedEvent) Timestamp() time.Time { return e.timestamp }

// RoundResolvedEvent fires when a round is compared and awarded.
type RoundResolvedEvent struct {
	Result    RoundResult
	TiePot    int
	HandSizes map[string]int
	timestamp time.Time
}

func (e RoundResolvedEvent) EventType() EventType { return EventTypeRoundResolved }
func (e RoundResolvedEvent) Timestamp() time.Time { return e.timestamp }

// PlayerEliminatedEvent fires when a player's status turns eliminated.
type PlayerEliminatedEvent struct {
	Player    string
	Round     int
	timestamp time.Time
}

func (e PlayerEliminatedEvent) EventType() EventType { return EventTypePlayerEliminated }
func (e PlayerEliminatedEvent) Timestamp() time.Time { return e.timestamp }

// GameFinishedEvent fires when the match reaches its terminal phase.
// Winner is empty when the last cards were lost to the tie pot.
type GameFinishedEvent struct {
	Winner    string
	Rounds    int
	timestamp time.Time
}

func (e GameFinishedEvent) EventType() EventType { return EventTypeGameFinished }
func (e GameFinishedEvent) Timestamp() time.Time { return e.timestamp }

// Diff derives the events that explain the move from prev to next. Either
// snapshot may be nil. Neither is modified.
func Diff(prev, next *Room, now time.Time) []GameEvent {
	if next == nil || next.GameState == nil {
		return nil
	}
	ns := next.GameState
	var ps *State
	if prev != nil {
		ps = prev.GameState
	}

	var events []GameEvent
	if ps == nil {
		events = append(events, MatchStartedEvent{
			Players:       next.ActivePlayers(),
			DeckID:        next.DeckID,
			CurrentPlayer: ns.CurrentPlayer,
			timestamp:     now,
		})
		ps = &State{}
	}

	for _, p := range sortedKeys(ns.CurrentRoundCards) {
		if _, seen := ps.CurrentRoundCards[p]; seen && ps.CurrentRound == ns.CurrentRound {
			continue
		}
		events = append(events, CardPlayedEvent{Player: p, CardID: ns.CurrentRoundCards[p], Round: ns.CurrentRound, timestamp: now})
	}

	if ns.SelectedAttribute != "" && (ns.SelectedAttribute != ps.SelectedAttribute || ns.CurrentRound != ps.CurrentRound) {
		events = append(events, AttributeSelectedEvent{
			Player:    ns.CurrentPlayer,
			Attribute: ns.SelectedAttribute,
			Round:     ns.CurrentRound,
			timestamp: now,
		})
	}

	if len(ns.RoundHistory) > len(ps.RoundHistory) {
		sizes := make(map[string]int, len(ns.PlayerCards))
		for p := range ns.PlayerCards {
			sizes[p] = len(ns.Hand(p))
		}
		for _, res := range ns.RoundHistory[len(ps.RoundHistory):] {
			events = append(events, RoundResolvedEvent{
				Result:    res,
				TiePot:    len(ns.TiePot),
				HandSizes: sizes,
				timestamp: now,
			})
		}
	}

	if prev != nil {
		for _, p := range next.Roster() {
			if old, ok := prev.Players[p.Nickname]; ok && old.Active() && !p.Active() {
				events = append(events, PlayerEliminatedEvent{Player: p.Nickname, Round: ns.CurrentRound, timestamp: now})
			}
		}
	}

	if ns.Phase != ps.Phase {
		events = append(events, PhaseChangedEvent{From: ps.Phase, To: ns.Phase, Round: ns.CurrentRound, timestamp: now})
		if ns.Phase == PhaseFinished {
			events = append(events, GameFinishedEvent{Winner: ns.GameWinner, Rounds: ns.CurrentRound, timestamp: now})
		}
	}
	return events
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// EventSubscriber can subscribe to game events
type EventSubscriber interface {
	OnEvent(event GameEvent)
}

// EventSubscriberFunc adapts a function to EventSubscriber.
type EventSubscriberFunc func(GameEvent)

func (f EventSubscriberFunc) OnEvent(event GameEvent) { f(event) }

// EventBus manages event publishing and subscription
type EventBus interface {
	Subscribe(subscriber EventSubscriber) (unsubscribe func())
	Publish(event GameEvent)
}

// SimpleEventBus delivers events synchronously, in subscription order.
type SimpleEventBus struct {
	mu          sync.RWMutex
	nextID      int
	subscribers []subscription
}

type subscription struct {
	id  int
	sub EventSubscriber
}

// NewEventBus creates a new event bus
func NewEventBus() *SimpleEventBus {
	return &SimpleEventBus{}
}

// Subscribe adds a subscriber and returns a function removing it again.
func (bus *SimpleEventBus) Subscribe(subscriber EventSubscriber) func() {
	bus.mu.Lock()
	defer bus.mu.Unlock()
	bus.nextID++
	id := bus.nextID
	bus.subscribers = append(bus.subscribers, subscription{id: id, sub: subscriber})
	return func() {
		bus.mu.Lock()
		defer bus.mu.Unlock()
		bus.subscribers = slices.DeleteFunc(bus.subscribers, func(s subscription) bool { return s.id == id })
	}
}

// Publish sends an event to all subscribers
func (bus *SimpleEventBus) Publish(event GameEvent) {
	bus.mu.RLock()
	subs := slices.Clone(bus.subscribers)
	bus.mu.RUnlock()
	for _, s := range subs {
		s.sub.OnEvent(event)
	}
}
