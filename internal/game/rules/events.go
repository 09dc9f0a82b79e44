package rules

// ActionType names an action accepted by the engine.
type ActionType string

const (
	// Player actions
	ActionDeployTrait    ActionType = "DEPLOY_TRAIT"
	ActionEndTurn        ActionType = "END_TURN"
	ActionActivateTrait  ActionType = "ACTIVATE_TRAIT"
	ActionTakeFood       ActionType = "TAKE_FOOD"
	ActionAnswerQuestion ActionType = "ANSWER_QUESTION"
	ActionAnswerAmbush   ActionType = "ANSWER_AMBUSH"
	ActionLeaveGame      ActionType = "LEAVE_GAME"
	ActionSetPause       ActionType = "SET_PAUSE"

	// Synthetic actions delivered by timers
	ActionQuestionTimeout ActionType = "QUESTION_TIMEOUT"
	ActionAmbushTimeout   ActionType = "AMBUSH_TIMEOUT"
	ActionTurnTimeout     ActionType = "TURN_TIMEOUT"
)

// Synthetic reports whether the action is produced by the server rather than a client.
func (a ActionType) Synthetic() bool {
	switch a {
	case ActionQuestionTimeout, ActionAmbushTimeout, ActionTurnTimeout:
		return true
	default:
		return false
	}
}

// EventType indicates the category of a resolved effect in the game log.
type EventType string

const (
	// Game/round events
	EventGameStarted   EventType = "GAME_STARTED"
	EventPhaseChanged  EventType = "PHASE_CHANGED"
	EventTurnChanged   EventType = "TURN_CHANGED"
	EventRoundStarted  EventType = "ROUND_STARTED"
	EventFoodGenerated EventType = "FOOD_GENERATED"
	EventCardsDealt    EventType = "CARDS_DEALT"
	EventGameEnded     EventType = "GAME_ENDED"

	// Player events
	EventPlayerEnded    EventType = "PLAYER_ENDED"
	EventPlayerTimedOut EventType = "PLAYER_TIMED_OUT"
	EventPlayerLeft     EventType = "PLAYER_LEFT"

	// Deploy events
	EventAnimalCreated EventType = "ANIMAL_CREATED"
	EventTraitDeployed EventType = "TRAIT_DEPLOYED"
	EventTraitRemoved  EventType = "TRAIT_REMOVED"

	// Feeding events
	EventFoodTaken     EventType = "FOOD_TAKEN"
	EventFoodShared    EventType = "FOOD_SHARED"
	EventFoodDestroyed EventType = "FOOD_DESTROYED"
	EventFoodStolen    EventType = "FOOD_STOLEN"
	EventHibernated    EventType = "HIBERNATED"

	// Hunting events
	EventAttack         EventType = "ATTACK"
	EventEscaped        EventType = "ESCAPED"
	EventTailDropped    EventType = "TAIL_DROPPED"
	EventMimicry        EventType = "MIMICRY"
	EventTraitIgnored   EventType = "TRAIT_IGNORED"
	EventPoisoned       EventType = "POISONED"
	EventScavenged      EventType = "SCAVENGED"
	EventAnimalKilled   EventType = "ANIMAL_KILLED"
	EventAnimalStarved  EventType = "ANIMAL_STARVED"
	EventAnimalPoisoned EventType = "ANIMAL_POISON_DEATH"

	// Interactive sub-protocol events
	EventQuestionOpened   EventType = "QUESTION_OPENED"
	EventQuestionAnswered EventType = "QUESTION_ANSWERED"
	EventQuestionDefault  EventType = "QUESTION_DEFAULTED"
	EventAmbushOpened     EventType = "AMBUSH_OPENED"
	EventAmbushDecision   EventType = "AMBUSH_DECISION"
	EventAmbushClosed     EventType = "AMBUSH_CLOSED"
)

// LogEntry is one resolved effect in the append-only game log.
type LogEntry struct {
	Type     EventType `json:"type"`
	Round    int       `json:"round"`
	Turn     int       `json:"turn"`
	Phase    Phase     `json:"phase"`
	PlayerID string    `json:"playerId,omitempty"`
	SourceID string    `json:"sourceId,omitempty"`
	TargetID string    `json:"targetId,omitempty"`
	Trait    string    `json:"trait,omitempty"`
	Amount   int       `json:"amount,omitempty"`
	Detail   string    `json:"detail,omitempty"`
}
