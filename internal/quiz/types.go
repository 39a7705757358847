package quiz

import "github.com/gokatarajesh/trivia-api/internal/question"

// AllCategoriesType is the quiz_category.type the client sends for "All".
const AllCategoriesType = "click"

// Category identifies the quiz scope.
type Category struct {
	ID   question.FlexInt `json:"id"`
	Type string           `json:"type"`
}

// All reports whether the category means every category. Only the type
// carries that meaning; an id alone always selects one category.
func (c Category) All() bool {
	return c.Type == AllCategoriesType
}

// Request is the body of POST /quizzes.
type Request struct {
	QuizCategory      *Category          `json:"quiz_category"`
	PreviousQuestions []question.FlexInt `json:"previous_questions"`
}

func (r Request) excluded() []int32 {
	ids := make([]int32, 0, len(r.PreviousQuestions))
	for _, id := range r.PreviousQuestions {
		ids = append(ids, int32(id))
	}
	return ids
}
