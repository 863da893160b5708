package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/enfdev/letterbox/internal/apperror"
	"github.com/enfdev/letterbox/internal/auth"
	"github.com/enfdev/letterbox/internal/model"
	"github.com/enfdev/letterbox/internal/service"
)

// LetterHandler exposes the letter lifecycle endpoints.
type LetterHandler struct {
	letters *service.LetterService
	logger  *slog.Logger
}

func NewLetterHandler(letters *service.LetterService, logger *slog.Logger) *LetterHandler {
	return &LetterHandler{letters: letters, logger: logger}
}

func requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Forbidden("not authenticated"))
		return "", false
	}
	return userID, true
}

// SubmitLetterRequest carries a new mentee letter.
type SubmitLetterRequest struct {
	CategoryName string `json:"categoryName"`
	Title        string `json:"title"`
	Body         string `json:"body"`
}

// LetterStatusResponse is the public projection of a delivery record.
type LetterStatusResponse struct {
	StatusID  string    `json:"statusId"`
	Replied   bool      `json:"replied"`
	Saved     bool      `json:"saved"`
	Thanked   bool      `json:"thanked"`
	CreatedAt time.Time `json:"createdAt"`
}

func toStatusResponse(s *model.LetterStatus, side model.Role) LetterStatusResponse {
	saved := s.MenteeSaved
	if side == model.RoleMentor {
		saved = s.MentorSaved
	}
	return LetterStatusResponse{
		StatusID:  s.ID,
		Replied:   s.Replied(),
		Saved:     saved,
		Thanked:   s.Thanked,
		CreatedAt: s.CreatedAt,
	}
}

// HandleSubmit creates a mentee letter.
//
// POST /api/letters
func (h *LetterHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req SubmitLetterRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	status, err := h.letters.Submit(r.Context(), userID, service.SubmitParams{
		CategoryName: req.CategoryName,
		Title:        req.Title,
		Body:         req.Body,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toStatusResponse(status, model.RoleMentee))
}

// ReplyRequest carries a mentor's reply.
type ReplyRequest struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// HandleReply attaches a reply to a pending letter.
//
// POST /api/letters/{statusID}/reply
func (h *LetterHandler) HandleReply(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req ReplyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	reply, err := h.letters.Reply(r.Context(), userID, chi.URLParam(r, "statusID"), service.ReplyParams{
		Title: req.Title,
		Body:  req.Body,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"letterId": reply.ID})
}

// HandleList returns one page of the caller's mailbox.
//
// GET /api/letters?page=1&type=ALL|PENDING|SAVED
func (h *LetterHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	listType, err := model.ParseListType(r.URL.Query().Get("type"))
	if err != nil {
		writeError(w, apperror.ValidationFailed("type", "type must be ALL, PENDING, or SAVED"))
		return
	}
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))

	result, err := h.letters.List(r.Context(), userID, listType, page)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// LetterDetailsResponse is the full thread behind a mailbox entry.
type LetterDetailsResponse struct {
	Status       LetterStatusResponse `json:"status"`
	MenteeLetter *model.Letter        `json:"menteeLetter"`
	MentorLetter *model.Letter        `json:"mentorLetter,omitempty"`
}

// HandleDetails returns the thread and flips the caller's read flag.
//
// GET /api/letters/{statusID}
func (h *LetterHandler) HandleDetails(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	details, err := h.letters.Details(r.Context(), userID, chi.URLParam(r, "statusID"))
	if err != nil {
		writeError(w, err)
		return
	}

	side, _ := details.Status.SideOf(userID)
	writeJSON(w, http.StatusOK, LetterDetailsResponse{
		Status:       toStatusResponse(details.Status, side),
		MenteeLetter: details.MenteeLetter,
		MentorLetter: details.MentorLetter,
	})
}

// HandleSave keeps a thread in the caller's mailbox.
//
// POST /api/letters/{statusID}/save
func (h *LetterHandler) HandleSave(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	if err := h.letters.Save(r.Context(), userID, chi.URLParam(r, "statusID")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "saved"})
}

// HandleThrow passes a pending letter to another mentor.
//
// POST /api/letters/{statusID}/throw
func (h *LetterHandler) HandleThrow(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	status, err := h.letters.Throw(r.Context(), userID, chi.URLParam(r, "statusID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toStatusResponse(status, model.RoleMentor))
}

// HandleThanks records the mentee's appreciation for a reply.
//
// POST /api/letters/thanks/{letterID}
func (h *LetterHandler) HandleThanks(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	status, err := h.letters.Thanks(r.Context(), userID, chi.URLParam(r, "letterID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toStatusResponse(status, model.RoleMentee))
}

// HandleThrowCounts reports per-category throw totals.
//
// GET /api/letters/throw-counts
func (h *LetterHandler) HandleThrowCounts(w http.ResponseWriter, r *http.Request) {
	counts, err := h.letters.CategoryCounts(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if counts == nil {
		counts = []model.ThrowCategoryCount{}
	}
	writeJSON(w, http.StatusOK, counts)
}
