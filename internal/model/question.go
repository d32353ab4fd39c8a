package model

// Option letters accepted as answers.
const (
	OptionA = "A"
	OptionB = "B"
	OptionC = "C"
	OptionD = "D"
)

func ValidOption(letter string) bool {
	switch letter {
	case OptionA, OptionB, OptionC, OptionD:
		return true
	}
	return false
}

type Question struct {
	ID      uint    `json:"id"`
	QuizID  uint    `json:"quiz_id"`
	Text    string  `json:"text"`
	OptionA string  `json:"option_a"`
	OptionB string  `json:"option_b"`
	OptionC string  `json:"option_c"`
	OptionD string  `json:"option_d"`
	Marks   float64 `json:"marks"`
	Order   int     `json:"order"`
}

// OptionText returns the option body for a letter, or "" for an unknown letter.
func (q *Question) OptionText(letter string) string {
	switch letter {
	case OptionA:
		return q.OptionA
	case OptionB:
		return q.OptionB
	case OptionC:
		return q.OptionC
	case OptionD:
		return q.OptionD
	}
	return ""
}
