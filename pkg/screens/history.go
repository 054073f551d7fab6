package screens

// actionSet is an insertion-ordered set of action descriptions.
type actionSet struct {
	order []string
	seen  map[string]struct{}
}

func newActionSet() *actionSet {
	return &actionSet{seen: make(map[string]struct{})}
}

// add appends action unless already present. Reports whether it was added.
func (s *actionSet) add(action string) bool {
	if _, ok := s.seen[action]; ok {
		return false
	}
	s.seen[action] = struct{}{}
	s.order = append(s.order, action)
	return true
}

func (s *actionSet) list() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}
