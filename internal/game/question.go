package game

import (
	"fmt"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/evoserver/evolution-server-go/internal/game/rules"
	"github.com/evoserver/evolution-server-go/internal/game/traits"
)

// openQuestion parks an attack on a decision by playerID. The turn timer is
// suspended while the question is open and resumes with the time that was
// left.
func (t *tx) openQuestion(kind QuestionType, playerID string, att Attack, options []Answer, def Answer) error {
	if t.s.Question != nil {
		return fmt.Errorf("%w: question %s already open", rules.ErrInvariant, t.s.Question.ID)
	}
	attacker, target, err := t.attackParties(att)
	if err != nil {
		return err
	}

	trait := traits.Carnivorous
	if kind == QuestionIntellect {
		trait = traits.Intellect
	}
	var traitID string
	for _, instance := range attacker.Traits {
		if instance.Type == trait {
			traitID = instance.ID
			break
		}
	}

	q := &Question{
		ID:             t.s.NextID(),
		Type:           kind,
		PlayerID:       playerID,
		SourcePlayerID: attacker.OwnerID,
		SourceAnimalID: attacker.ID,
		TraitID:        traitID,
		TargetPlayerID: target.OwnerID,
		TargetAnimalID: target.ID,
		Options:        options,
		DefaultAnswer:  &def,
		Attack:         att,
		CreatedAt:      t.at,
		Budget:         t.s.Settings.QuestionTime,
	}
	if current := t.s.Current(); current != nil {
		q.TurnPlayerID = current.ID
	}
	if !t.s.TurnDeadline.IsZero() && !t.at.IsZero() {
		q.TurnRemaining = max(t.s.TurnDeadline.Sub(t.at), 0)
	}
	t.s.TurnDeadline = time.Time{}
	t.s.Question = q

	t.in.trackQuestion(false)
	t.log(rules.LogEntry{
		Type:     rules.EventQuestionOpened,
		PlayerID: playerID,
		SourceID: attacker.ID,
		TargetID: target.ID,
		Detail:   string(kind),
	})
	return nil
}

// answerQuestion implements ANSWER_QUESTION. Only the asked player may
// answer and only with one of the offered options.
func (t *tx) answerQuestion(action Action) error {
	q := t.s.Question
	if q == nil || q.ID != action.QuestionID {
		return rules.Reject(rules.KindNotFound, "question %s is not open", action.QuestionID)
	}
	if q.PlayerID != action.PlayerID {
		return rules.Reject(rules.KindNotYourTurn, "question %s is addressed to %s", q.ID, q.PlayerID)
	}
	if action.Answer == nil {
		return rules.Reject(rules.KindInvalidAction, "missing answer")
	}
	if !slices.Contains(q.Options, *action.Answer) {
		return rules.Reject(rules.KindInvalidTarget, "answer %s is not offered", action.Answer.Kind)
	}
	t.log(rules.LogEntry{Type: rules.EventQuestionAnswered, PlayerID: q.PlayerID, Detail: string(action.Answer.Kind)})
	return t.resolveQuestion(*action.Answer, false)
}

// questionTimeout applies the default answer. Timeouts for a question that is
// no longer open are stale.
func (t *tx) questionTimeout(action Action) error {
	q := t.s.Question
	if q == nil || q.ID != action.QuestionID {
		return rules.Reject(rules.KindNotFound, "question %s is not open", action.QuestionID)
	}
	t.log(rules.LogEntry{Type: rules.EventQuestionDefault, PlayerID: q.PlayerID, Detail: string(q.DefaultAnswer.Kind)})
	t.engine.logger.Info("question defaulted",
		zap.String("game_id", t.s.ID),
		zap.String("question_id", q.ID),
		zap.String("player_id", q.PlayerID),
	)
	return t.resolveQuestion(*q.DefaultAnswer, true)
}

// resolveQuestion closes the open question and continues the parked attack.
// If the attack ends without a new question the turn resumes.
func (t *tx) resolveQuestion(answer Answer, defaulted bool) error {
	q := t.s.Question
	t.s.Question = nil
	if defaulted {
		t.in.trackQuestion(true)
	}
	if t.s.Settings.TurnTime > 0 && !t.at.IsZero() {
		t.s.TurnDeadline = t.at.Add(q.TurnRemaining)
	}

	_, attackerOK := t.s.Animal(q.Attack.AttackerID)
	_, targetOK := t.s.Animal(q.Attack.TargetID)
	if attackerOK && targetOK {
		if err := t.applyAnswer(q.Attack, answer); err != nil {
			return err
		}
	}
	if t.s.Question != nil {
		return nil
	}
	return t.restoreTurn()
}

// restoreTurn hands the turn on when its holder left or ended while the
// question was open.
func (t *tx) restoreTurn() error {
	current := t.s.Current()
	if current == nil || !current.Playing || current.Ended {
		return t.passTurn()
	}
	return nil
}
