package quiz

import (
	"encoding/json"
	"net/http"

	"github.com/gokatarajesh/trivia-api/internal/logging"
	httperrors "github.com/gokatarajesh/trivia-api/pkg/http/errors"
)

// HTTPHandler serves quiz play requests.
type HTTPHandler struct {
	selector *Selector
}

func NewHTTPHandler(selector *Selector) *HTTPHandler {
	return &HTTPHandler{selector: selector}
}

// Quizzes handles POST /quizzes. Any failure, including a malformed body,
// is reported as unprocessable.
func (h *HTTPHandler) Quizzes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httperrors.RespondMethodNotAllowed(w)
		return
	}

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperrors.RespondUnprocessable(w)
		return
	}
	if req.QuizCategory == nil || req.PreviousQuestions == nil {
		httperrors.RespondUnprocessable(w)
		return
	}

	next, err := h.selector.Next(r.Context(), *req.QuizCategory, req.excluded())
	if err != nil {
		logger := logging.FromContext(r.Context())
		logger.Error().Err(err).Msg("quiz selection failed")
		httperrors.RespondUnprocessable(w)
		return
	}

	httperrors.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"question": next,
	})
}
