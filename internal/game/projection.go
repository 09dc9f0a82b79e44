package game

// Project returns the view of s for viewerID. Other players' hands are
// replaced by their size, the deck by its size, and the random seed and the
// question's default answer are stripped. An empty viewerID hides every
// hand. Project never modifies s and is a pure function of its inputs.
func Project(s *State, viewerID string) *State {
	if s == nil {
		return nil
	}
	view := s.Clone()
	view.Seed = 0
	view.RollCount = 0
	view.DeckSize = len(s.Deck)
	view.Deck = nil
	for i := range view.Players {
		p := &view.Players[i]
		p.HandSize = len(s.Players[i].Hand)
		if p.ID != viewerID || viewerID == "" {
			p.Hand = nil
		}
	}
	if view.Question != nil {
		view.Question.DefaultAnswer = nil
	}
	return view
}
