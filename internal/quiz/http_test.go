package quiz

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gokatarajesh/trivia-api/internal/db/memdb"
	"github.com/gokatarajesh/trivia-api/internal/question"
)

type quizResponse struct {
	Success  bool               `json:"success"`
	Question *question.Question `json:"question"`
	Error    int                `json:"error"`
	Message  string             `json:"message"`
}

func postQuiz(t *testing.T, db *memdb.DB, body string) (*httptest.ResponseRecorder, quizResponse) {
	t.Helper()
	h := NewHTTPHandler(newTestSelector(db))
	req := httptest.NewRequest(http.MethodPost, "/quizzes", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.Quizzes(rec, req)

	var out quizResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return rec, out
}

func TestQuizzesReturnsQuestionFromCategory(t *testing.T) {
	rec, out := postQuiz(t, memdb.Seeded(), `{"previous_questions":[],"quiz_category":{"type":"Science","id":"1"}}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, out.Success)
	require.NotNil(t, out.Question)
	assert.Equal(t, int32(1), out.Question.Category)
}

func TestQuizzesSkipsPreviousQuestions(t *testing.T) {
	// Science holds 20, 21 and 22.
	rec, out := postQuiz(t, memdb.Seeded(), `{"previous_questions":[20,21],"quiz_category":{"type":"Science","id":1}}`)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, out.Question)
	assert.Equal(t, int32(22), out.Question.ID)
}

func TestQuizzesExhaustedPool(t *testing.T) {
	rec, out := postQuiz(t, memdb.Seeded(), `{"previous_questions":[20,21,22],"quiz_category":{"type":"Science","id":1}}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, out.Success)
	assert.Nil(t, out.Question)
	assert.Contains(t, rec.Body.String(), `"question":null`)
}

func TestQuizzesAllCategories(t *testing.T) {
	rec, out := postQuiz(t, memdb.Seeded(), `{"previous_questions":[],"quiz_category":{"type":"click","id":0}}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotNil(t, out.Question)
}

func TestQuizzesZeroIDWithNamedType(t *testing.T) {
	rec, out := postQuiz(t, memdb.Seeded(), `{"previous_questions":[],"quiz_category":{"type":"History","id":0}}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, out.Success)
	assert.Nil(t, out.Question)
}

func TestQuizzesUnprocessable(t *testing.T) {
	cases := map[string]string{
		"empty body":        ``,
		"malformed":         `{"previous_questions":`,
		"missing category":  `{"previous_questions":[]}`,
		"missing previous":  `{"quiz_category":{"type":"Science","id":1}}`,
		"non-numeric id":    `{"previous_questions":[],"quiz_category":{"type":"Science","id":"one"}}`,
		"non-numeric entry": `{"previous_questions":["x"],"quiz_category":{"type":"Science","id":1}}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			rec, out := postQuiz(t, memdb.Seeded(), body)
			assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
			assert.False(t, out.Success)
			assert.Equal(t, 422, out.Error)
			assert.Equal(t, "unprocessable", out.Message)
		})
	}
}

func TestQuizzesWrongMethod(t *testing.T) {
	h := NewHTTPHandler(newTestSelector(memdb.Seeded()))
	rec := httptest.NewRecorder()
	h.Quizzes(rec, httptest.NewRequest(http.MethodGet, "/quizzes", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
