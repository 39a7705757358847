package question

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/gokatarajesh/trivia-api/internal/logging"
	httperrors "github.com/gokatarajesh/trivia-api/pkg/http/errors"
)

// HTTPHandlers exposes the question and category endpoints.
type HTTPHandlers struct {
	svc *Service
}

// NewHTTPHandlers creates HTTP handlers backed by svc.
func NewHTTPHandlers(svc *Service) *HTTPHandlers {
	return &HTTPHandlers{svc: svc}
}

// questionsPayload is the body of POST /questions. A present "keyword"
// member selects search; otherwise the body is a new question.
type questionsPayload struct {
	Keyword *string `json:"keyword"`
	CreateRequest
}

type searchPayload struct {
	Keyword *string `json:"keyword"`
}

// Questions handles GET /questions (paginated listing) and
// POST /questions (create, or search when a keyword is supplied).
func (h *HTTPHandlers) Questions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.listQuestions(w, r)
	case http.MethodPost:
		var body questionsPayload
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			httperrors.RespondBadRequest(w)
			return
		}
		if body.Keyword != nil {
			h.search(w, r, *body.Keyword)
			return
		}
		h.create(w, r, body.CreateRequest)
	default:
		httperrors.RespondMethodNotAllowed(w)
	}
}

// Search handles POST /questions/search
func (h *HTTPHandlers) Search(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httperrors.RespondMethodNotAllowed(w)
		return
	}

	var body searchPayload
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Keyword == nil {
		httperrors.RespondBadRequest(w)
		return
	}
	h.search(w, r, *body.Keyword)
}

// Question handles DELETE /questions/{id}
func (h *HTTPHandlers) Question(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		httperrors.RespondMethodNotAllowed(w)
		return
	}

	id, err := pathID(r)
	if err != nil {
		// an integer too large for the id column names no row
		if errors.Is(err, strconv.ErrRange) {
			httperrors.RespondUnprocessable(w)
			return
		}
		httperrors.RespondNotFound(w)
		return
	}

	result, err := h.svc.Delete(r.Context(), id, ParsePage(r.URL.Query().Get("page")))
	if err != nil {
		h.respondServiceError(w, r, err, "delete question")
		return
	}

	httperrors.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"success":         true,
		"deleted":         result.Deleted,
		"questions":       result.Questions,
		"total_questions": result.Total,
	})
}

// Categories handles GET /categories
func (h *HTTPHandlers) Categories(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httperrors.RespondMethodNotAllowed(w)
		return
	}

	categories, err := h.svc.Categories(r.Context())
	if err != nil {
		h.respondServiceError(w, r, err, "list categories")
		return
	}

	httperrors.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"success":          true,
		"categories":       categories,
		"total_categories": len(categories),
	})
}

// CategoryQuestions handles GET /categories/{id}/questions
func (h *HTTPHandlers) CategoryQuestions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httperrors.RespondMethodNotAllowed(w)
		return
	}

	id, err := pathID(r)
	if err != nil {
		httperrors.RespondNotFound(w)
		return
	}

	result, err := h.svc.QuestionsByCategory(r.Context(), id, ParsePage(r.URL.Query().Get("page")))
	if err != nil {
		h.respondServiceError(w, r, err, "list category questions")
		return
	}

	httperrors.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"success":          true,
		"questions":        result.Questions,
		"total_questions":  result.Total,
		"current_category": result.Category,
	})
}

func (h *HTTPHandlers) listQuestions(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.ListQuestions(r.Context(), ParsePage(r.URL.Query().Get("page")))
	if err != nil {
		h.respondServiceError(w, r, err, "list questions")
		return
	}

	httperrors.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"success":         true,
		"questions":       result.Questions,
		"total_questions": result.Total,
		"categories":      result.Categories,
	})
}

func (h *HTTPHandlers) search(w http.ResponseWriter, r *http.Request, keyword string) {
	result, err := h.svc.Search(r.Context(), keyword, ParsePage(r.URL.Query().Get("page")))
	if err != nil {
		h.respondServiceError(w, r, err, "search questions")
		return
	}

	httperrors.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"success":         true,
		"questions":       result.Questions,
		"total_questions": result.Total,
	})
}

func (h *HTTPHandlers) create(w http.ResponseWriter, r *http.Request, req CreateRequest) {
	result, err := h.svc.Create(r.Context(), req, ParsePage(r.URL.Query().Get("page")))
	if err != nil {
		h.respondServiceError(w, r, err, "create question")
		return
	}

	httperrors.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"success":         true,
		"created":         result.Created,
		"questions":       result.Questions,
		"total_questions": result.Total,
	})
}

// respondServiceError maps service errors onto the wire contract. Store
// failures that are neither not-found nor unprocessable surface as 422 too.
func (h *HTTPHandlers) respondServiceError(w http.ResponseWriter, r *http.Request, err error, op string) {
	logger := logging.FromContext(r.Context())
	switch {
	case errors.Is(err, ErrNotFound):
		httperrors.RespondNotFound(w)
	default:
		logEvent(logger, err).Err(err).Str("op", op).Msg("request failed")
		httperrors.RespondUnprocessable(w)
	}
}

func logEvent(logger zerolog.Logger, err error) *zerolog.Event {
	if errors.Is(err, ErrUnprocessable) {
		return logger.Warn()
	}
	return logger.Error()
}

// pathID parses the {id} segment. Integers outside the int32 range fail
// with strconv.ErrRange.
func pathID(r *http.Request) (int32, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 32)
	if err != nil {
		return 0, err
	}
	return int32(id), nil
}
