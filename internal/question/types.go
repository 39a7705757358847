package question

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	sqlcgen "github.com/gokatarajesh/trivia-api/internal/db/sqlc"
)

// Question is the formatted representation returned to clients.
type Question struct {
	ID         int32  `json:"id"`
	Question   string `json:"question"`
	Answer     string `json:"answer"`
	Category   int32  `json:"category"`
	Difficulty int32  `json:"difficulty"`
}

// CategoryMap maps category id to its label. JSON keys are the ids as strings.
type CategoryMap map[int32]string

// CreateRequest is the payload for adding a question. Every field is optional
// on the wire; missing ones are left for the store to reject.
type CreateRequest struct {
	Question   *string  `json:"question"`
	Answer     *string  `json:"answer"`
	Difficulty *FlexInt `json:"difficulty"`
	Category   *FlexInt `json:"category"`
}

// QuestionPage is one page of an ordered question listing.
type QuestionPage struct {
	Questions  []Question
	Total      int
	Categories CategoryMap
}

// CategoryPage is a page of questions within a single category.
type CategoryPage struct {
	QuestionPage
	Category string
}

// FlexInt decodes from either a JSON number or a numeric string; web forms
// tend to send select values as strings.
type FlexInt int32

func (f *FlexInt) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		data = []byte(s)
	}
	n, err := strconv.ParseInt(string(data), 10, 32)
	if err != nil {
		return fmt.Errorf("invalid integer %q", data)
	}
	*f = FlexInt(n)
	return nil
}

// Int32Ptr converts an optional FlexInt into an optional int32.
func (f *FlexInt) Int32Ptr() *int32 {
	if f == nil {
		return nil
	}
	v := int32(*f)
	return &v
}

// FromRow formats a stored question.
func FromRow(row sqlcgen.Question) Question {
	return Question{
		ID:         row.ID,
		Question:   row.Question,
		Answer:     row.Answer,
		Category:   row.Category,
		Difficulty: row.Difficulty,
	}
}

// FromRows formats rows; the result is never nil so it encodes as [].
func FromRows(rows []sqlcgen.Question) []Question {
	out := make([]Question, 0, len(rows))
	for _, row := range rows {
		out = append(out, FromRow(row))
	}
	return out
}

func categoryMap(rows []sqlcgen.Category) CategoryMap {
	m := make(CategoryMap, len(rows))
	for _, row := range rows {
		m[row.ID] = row.Type
	}
	return m
}
