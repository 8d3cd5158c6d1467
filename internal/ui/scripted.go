package ui

// ScriptedPrompter answers prompts from a fixed script
type ScriptedPrompter struct {
	Answers  []string
	Confirms []bool
	// Cancel makes every prompt return ErrCancelled
	Cancel bool

	Asked []Question
}

// Ask implements Prompter
func (s *ScriptedPrompter) Ask(q Question) (string, error) {
	s.Asked = append(s.Asked, q)
	if s.Cancel || len(s.Answers) == 0 {
		return "", ErrCancelled
	}
	answer := s.Answers[0]
	s.Answers = s.Answers[1:]
	if answer == "" {
		answer = q.Default
	}
	return answer, nil
}

// Confirm implements Prompter
func (s *ScriptedPrompter) Confirm(string) (bool, error) {
	if s.Cancel || len(s.Confirms) == 0 {
		return false, ErrCancelled
	}
	ok := s.Confirms[0]
	s.Confirms = s.Confirms[1:]
	return ok, nil
}
