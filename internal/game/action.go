package game

import (
	"time"

	"github.com/evoserver/evolution-server-go/internal/game/rules"
	"github.com/evoserver/evolution-server-go/internal/game/traits"
)

// Action is a request delivered to the engine. Which fields are read
// depends on Type:
//
//	DEPLOY_TRAIT      CardID, AnimalID (empty for a new animal), Alternate, TargetID (linked traits)
//	END_TURN          -
//	ACTIVATE_TRAIT    AnimalID, Trait, TargetID
//	TAKE_FOOD         AnimalID
//	ANSWER_QUESTION   QuestionID, Answer
//	ANSWER_AMBUSH     AmbushID, AnimalID, Attack
//	QUESTION_TIMEOUT  QuestionID
//	AMBUSH_TIMEOUT    AmbushID
//	TURN_TIMEOUT      Turn
//	LEAVE_GAME        -
//	SET_PAUSE         Pause
type Action struct {
	Type     rules.ActionType `json:"type"`
	PlayerID string           `json:"playerId,omitempty"`

	CardID    string      `json:"cardId,omitempty"`
	AnimalID  string      `json:"animalId,omitempty"`
	Alternate bool        `json:"alternate,omitempty"`
	TargetID  string      `json:"targetId,omitempty"`
	Trait     traits.Type `json:"trait,omitempty"`

	QuestionID string  `json:"questionId,omitempty"`
	Answer     *Answer `json:"answer,omitempty"`

	AmbushID string `json:"ambushId,omitempty"`
	Attack   bool   `json:"attack,omitempty"`

	Turn  int  `json:"turn,omitempty"`
	Pause bool `json:"pause,omitempty"`

	// At is stamped by the session when the action is dequeued. The engine
	// uses it for every time budget and never reads the wall clock.
	At time.Time `json:"at"`
}

// DeployTrait builds a DEPLOY_TRAIT action. An empty animalID plays the card
// as a new animal; alternate selects the card's second trait.
func DeployTrait(playerID, cardID, animalID string, alternate bool, targetID string) Action {
	return Action{
		Type:      rules.ActionDeployTrait,
		PlayerID:  playerID,
		CardID:    cardID,
		AnimalID:  animalID,
		Alternate: alternate,
		TargetID:  targetID,
	}
}

// EndTurn builds an END_TURN action.
func EndTurn(playerID string) Action {
	return Action{Type: rules.ActionEndTurn, PlayerID: playerID}
}

// ActivateTrait builds an ACTIVATE_TRAIT action.
func ActivateTrait(playerID, animalID string, trait traits.Type, targetID string) Action {
	return Action{
		Type:     rules.ActionActivateTrait,
		PlayerID: playerID,
		AnimalID: animalID,
		Trait:    trait,
		TargetID: targetID,
	}
}

// TakeFood builds a TAKE_FOOD action.
func TakeFood(playerID, animalID string) Action {
	return Action{Type: rules.ActionTakeFood, PlayerID: playerID, AnimalID: animalID}
}

// AnswerQuestion builds an ANSWER_QUESTION action.
func AnswerQuestion(playerID, questionID string, answer Answer) Action {
	return Action{
		Type:       rules.ActionAnswerQuestion,
		PlayerID:   playerID,
		QuestionID: questionID,
		Answer:     &answer,
	}
}

// AnswerAmbush builds an ANSWER_AMBUSH action.
func AnswerAmbush(playerID, ambushID, animalID string, attack bool) Action {
	return Action{
		Type:     rules.ActionAnswerAmbush,
		PlayerID: playerID,
		AmbushID: ambushID,
		AnimalID: animalID,
		Attack:   attack,
	}
}
