package game

import (
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/evoserver/evolution-server-go/internal/game/dice"
	"github.com/evoserver/evolution-server-go/internal/game/rules"
	"github.com/evoserver/evolution-server-go/internal/game/traits"
)

// enterPhase moves the machine to the next phase and runs its entry rules.
// Entry rules may cascade into further transitions when a phase has nothing
// to do.
func (t *tx) enterPhase(next rules.Phase) error {
	phase, err := rules.Transition(t.s.Phase, next)
	if err != nil {
		return err
	}
	t.s.Phase = phase
	t.s.PhaseSeq++
	t.s.TurnDeadline = time.Time{}
	t.log(rules.LogEntry{Type: rules.EventPhaseChanged})

	switch phase {
	case rules.PhaseDeploy:
		return t.startDeploy()
	case rules.PhaseFeeding:
		return t.startFeeding()
	case rules.PhaseAmbush:
		return t.nextAmbush()
	case rules.PhaseExtinction:
		return t.runExtinction()
	case rules.PhaseRegeneration:
		return t.runRegeneration()
	case rules.PhaseFinal:
		t.end()
	}
	return nil
}

func (t *tx) startDeploy() error {
	for i := range t.s.Players {
		p := &t.s.Players[i]
		p.Acted = false
		p.Ended = !p.Playing || len(p.Hand) == 0
	}
	return t.startTurns()
}

func (t *tx) startFeeding() error {
	t.s.Food = GenerateFood(t.s, t.rng)
	t.log(rules.LogEntry{Type: rules.EventFoodGenerated, Amount: t.s.Food})
	for i := range t.s.Players {
		p := &t.s.Players[i]
		p.Acted = false
		p.Ended = !p.Playing || len(p.Continent) == 0
	}
	return t.startTurns()
}

// startTurns hands the first turn of a phase to the round player, or the
// next player after them who still has something to do.
func (t *tx) startTurns() error {
	n := len(t.s.Players)
	for offset := 0; offset < n; offset++ {
		idx := (t.s.RoundPlayer + offset) % n
		if p := &t.s.Players[idx]; p.Playing && !p.Ended {
			t.beginTurn(idx)
			return nil
		}
	}
	return t.finishPhase()
}

// passTurn moves the turn to the next playing player who has not ended the
// phase. The current player is considered last.
func (t *tx) passTurn() error {
	n := len(t.s.Players)
	for offset := 1; offset <= n; offset++ {
		idx := (t.s.CurrentPlayer + offset) % n
		if p := &t.s.Players[idx]; p.Playing && !p.Ended {
			t.beginTurn(idx)
			return nil
		}
	}
	return t.finishPhase()
}

func (t *tx) beginTurn(idx int) {
	t.s.CurrentPlayer = idx
	t.s.Turn++
	p := &t.s.Players[idx]
	p.Acted = false
	if t.s.Settings.TurnTime > 0 && !t.at.IsZero() {
		t.s.TurnDeadline = t.at.Add(t.s.Settings.TurnTime)
	} else {
		t.s.TurnDeadline = time.Time{}
	}
	t.log(rules.LogEntry{Type: rules.EventTurnChanged, PlayerID: p.ID})
}

// finishPhase is called when no player has turns left in an interactive phase.
func (t *tx) finishPhase() error {
	switch t.s.Phase {
	case rules.PhaseDeploy:
		return t.enterPhase(rules.PhaseFeeding)
	case rules.PhaseFeeding:
		return t.endFeeding()
	default:
		return nil
	}
}

func (t *tx) endFeeding() error {
	if t.hasAmbushSituation() {
		return t.enterPhase(rules.PhaseAmbush)
	}
	return t.enterPhase(rules.PhaseExtinction)
}

// endTurn implements END_TURN. In DEPLOY it ends the player's deploy phase.
// In FEEDING a player who acted passes the turn; one who did not is done
// for the phase.
func (t *tx) endTurn(playerID string) error {
	p, err := t.requireTurn(playerID)
	if err != nil {
		return err
	}
	if t.s.Phase == rules.PhaseDeploy || !p.Acted {
		p.Ended = true
		t.log(rules.LogEntry{Type: rules.EventPlayerEnded, PlayerID: p.ID})
	}
	return t.passTurn()
}

// turnTimeout ends the turn of a player whose time ran out. Timeouts for a
// turn that already ended are stale and rejected.
func (t *tx) turnTimeout(action Action) error {
	current := t.s.Current()
	if current == nil || current.ID != action.PlayerID || action.Turn != t.s.Turn {
		return rules.Reject(rules.KindNotYourTurn, "stale turn timeout for turn %d", action.Turn)
	}
	current.TimedOut = true
	t.log(rules.LogEntry{Type: rules.EventPlayerTimedOut, PlayerID: current.ID})
	return t.endTurn(current.ID)
}

// leave removes a player from play. Their animals stay on the board.
func (t *tx) leave(playerID string) error {
	p, _ := t.s.Player(playerID)
	wasCurrent := t.s.Current() == p
	p.Playing = false
	p.Ended = true
	t.log(rules.LogEntry{Type: rules.EventPlayerLeft, PlayerID: p.ID})

	if t.s.PlayingCount() < MinPlayers {
		return t.abandon()
	}

	if q := t.s.Question; q != nil && q.PlayerID == playerID {
		// closing the question hands the turn on if its holder is gone
		return t.resolveQuestion(*q.DefaultAnswer, true)
	}
	if amb := t.s.Ambush; amb != nil {
		for i := range amb.Ambushers {
			if amb.Ambushers[i].OwnerID == playerID && amb.Ambushers[i].Decision == DecisionPending {
				t.decide(amb, &amb.Ambushers[i], DecisionPass)
			}
		}
		return t.advanceAmbush()
	}
	if wasCurrent && t.s.Question == nil && t.s.Phase.Interactive() {
		return t.passTurn()
	}
	return nil
}

func (t *tx) abandon() error {
	phase, err := rules.Abandon(t.s.Phase)
	if err != nil {
		return err
	}
	t.s.Phase = phase
	t.s.PhaseSeq++
	t.log(rules.LogEntry{Type: rules.EventPhaseChanged})
	t.end()
	return nil
}

func (t *tx) setPause(action Action) error {
	p, _ := t.s.Player(action.PlayerID)
	p.WantsPause = action.Pause
	if !action.Pause {
		p.TimedOut = false
	}
	return nil
}

// AllPaused reports whether every playing player wants a pause. Turn timers
// are not armed while it holds.
func AllPaused(s *State) bool {
	anyPlaying := false
	for i := range s.Players {
		p := &s.Players[i]
		if !p.Playing {
			continue
		}
		if !p.PauseRequested() {
			return false
		}
		anyPlaying = true
	}
	return anyPlaying
}

// runExtinction removes animals that are poisoned or unfed and not
// hibernating, crediting their owners' dead score.
func (t *tx) runExtinction() error {
	for i := range t.s.Players {
		ids := make([]string, 0, len(t.s.Players[i].Continent))
		for _, animal := range t.s.Players[i].Continent {
			ids = append(ids, animal.ID)
		}
		for _, id := range ids {
			animal, ok := t.s.Animal(id)
			if !ok {
				continue
			}
			switch {
			case animal.Poisoned:
				if err := t.killAnimal(id, rules.EventAnimalPoisoned); err != nil {
					return err
				}
			case !animal.Fed() && !animal.Hibernating:
				if err := t.killAnimal(id, rules.EventAnimalStarved); err != nil {
					return err
				}
			}
		}
	}

	if len(t.s.Deck) == 0 || t.s.PlayingCount() < MinPlayers {
		return t.enterPhase(rules.PhaseFinal)
	}
	return t.enterPhase(rules.PhaseRegeneration)
}

// runRegeneration carries surplus food into fat storage, clears round flags,
// rotates the round player and deals new cards.
func (t *tx) runRegeneration() error {
	for i := range t.s.Players {
		p := &t.s.Players[i]
		for j := range p.Continent {
			animal := &p.Continent[j]
			surplus := max(animal.Food-animal.Needs(), 0)
			animal.Food = min(surplus, animal.Count(traits.FatTissue))
			animal.Poisoned = false
			animal.Hibernating = false
		}
		p.Ended = false
		p.Acted = false
		p.TimedOut = false
	}
	t.s.Food = -1
	t.s.AmbushQueue = []string{}
	t.s.Round++
	t.s.RoundPlayer = t.nextPlaying(t.s.RoundPlayer)
	t.s.Cooldowns = t.s.Cooldowns.Expire(t.s.Clock())
	t.log(rules.LogEntry{Type: rules.EventRoundStarted, PlayerID: t.s.Players[t.s.RoundPlayer].ID})

	n := len(t.s.Players)
	for offset := 0; offset < n; offset++ {
		p := &t.s.Players[(t.s.RoundPlayer+offset)%n]
		if !p.Playing {
			continue
		}
		count := 1 + len(p.Continent)
		if len(p.Hand) == 0 && len(p.Continent) == 0 {
			count = t.s.Settings.HandSize
		}
		t.deal(p, count)
	}

	if !t.anyoneCanPlay() {
		return t.enterPhase(rules.PhaseFinal)
	}
	return t.enterPhase(rules.PhaseDeploy)
}

func (t *tx) anyoneCanPlay() bool {
	for i := range t.s.Players {
		p := &t.s.Players[i]
		if p.Playing && (len(p.Hand) > 0 || len(p.Continent) > 0) {
			return true
		}
	}
	return false
}

func (t *tx) nextPlaying(from int) int {
	n := len(t.s.Players)
	for offset := 1; offset <= n; offset++ {
		idx := (from + offset) % n
		if t.s.Players[idx].Playing {
			return idx
		}
	}
	return from
}

// deal moves up to count cards from the top of the deck into p's hand.
func (t *tx) deal(p *Player, count int) {
	count = min(count, len(t.s.Deck))
	if count <= 0 {
		return
	}
	p.Hand = append(p.Hand, t.s.Deck[:count]...)
	t.s.Deck = append([]Card{}, t.s.Deck[count:]...)
	t.log(rules.LogEntry{Type: rules.EventCardsDealt, PlayerID: p.ID, Amount: count})
}

// end computes the final scoreboard. Players still in the game rank first,
// then by living score, then by dead score; remaining ties are broken by a
// random permutation taken before the stable sort.
func (t *tx) end() {
	board := make([]ScoreEntry, 0, len(t.s.Players))
	for i := range t.s.Players {
		p := &t.s.Players[i]
		board = append(board, ScoreEntry{
			PlayerID:    p.ID,
			Playing:     p.Playing,
			ScoreNormal: p.ScoreNormal(),
			ScoreDead:   p.ScoreDead,
		})
	}
	dice.Shuffle(t.rng, len(board), func(i, j int) {
		board[i], board[j] = board[j], board[i]
	})
	slices.SortStableFunc(board, compareScores)

	t.s.Scoreboard = board
	t.s.WinnerID = board[0].PlayerID
	t.s.Question = nil
	t.s.Ambush = nil
	t.s.TurnDeadline = time.Time{}
	t.log(rules.LogEntry{Type: rules.EventGameEnded, PlayerID: t.s.WinnerID})

	t.engine.logger.Info("game ended",
		zap.String("game_id", t.s.ID),
		zap.String("winner_id", t.s.WinnerID),
		zap.Int("round", t.s.Round),
	)
}

func compareScores(a, b ScoreEntry) int {
	if a.Playing != b.Playing {
		if a.Playing {
			return -1
		}
		return 1
	}
	if a.ScoreNormal != b.ScoreNormal {
		return b.ScoreNormal - a.ScoreNormal
	}
	return b.ScoreDead - a.ScoreDead
}
