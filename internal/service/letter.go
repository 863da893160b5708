package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/enfdev/letterbox/internal/apperror"
	"github.com/enfdev/letterbox/internal/model"
	"github.com/enfdev/letterbox/internal/repository"
)

const (
	// MaxTitleLength and MaxBodyLength bound letter content.
	MaxTitleLength = 100
	MaxBodyLength  = 10000
)

// LetterService implements the letter lifecycle: mentees submit, mentors
// reply or throw, both sides read, save, and thank.
type LetterService struct {
	users         repository.UserRepository
	letters       repository.LetterRepository
	statuses      repository.LetterStatusRepository
	throws        repository.ThrowRepository
	notifications repository.NotificationRepository
	logger        *slog.Logger
}

func NewLetterService(
	users repository.UserRepository,
	letters repository.LetterRepository,
	statuses repository.LetterStatusRepository,
	throws repository.ThrowRepository,
	notifications repository.NotificationRepository,
	logger *slog.Logger,
) *LetterService {
	return &LetterService{
		users:         users,
		letters:       letters,
		statuses:      statuses,
		throws:        throws,
		notifications: notifications,
		logger:        logger,
	}
}

// SubmitParams carries a new mentee letter.
type SubmitParams struct {
	CategoryName string
	Title        string
	Body         string
}

func validateContent(title, body string) error {
	if strings.TrimSpace(title) == "" {
		return apperror.ValidationFailed("title", "title is required")
	}
	if len(title) > MaxTitleLength {
		return apperror.ValidationFailed("title",
			fmt.Sprintf("title must be %d characters or less", MaxTitleLength))
	}
	if strings.TrimSpace(body) == "" {
		return apperror.ValidationFailed("body", "body is required")
	}
	if len(body) > MaxBodyLength {
		return apperror.ValidationFailed("body",
			fmt.Sprintf("body must be %d characters or less", MaxBodyLength))
	}
	return nil
}

// Submit creates a mentee letter and its delivery record. The letter is
// assigned to a random mentor registered for the category, excluding the
// author. Submitting consumes one unit of the mentee's quota; at zero quota
// the submission is rejected before anything is written.
func (s *LetterService) Submit(ctx context.Context, menteeID string, p SubmitParams) (*model.LetterStatus, error) {
	if err := validateContent(p.Title, p.Body); err != nil {
		return nil, err
	}
	if strings.TrimSpace(p.CategoryName) == "" {
		return nil, apperror.ValidationFailed("categoryName", "category is required")
	}

	mentee, err := s.users.GetByID(ctx, menteeID)
	if err != nil {
		return nil, err
	}
	if mentee.Role != model.RoleMentee {
		return nil, apperror.Forbidden("only mentees can send letters")
	}

	mentor, err := s.users.PickMentor(ctx, p.CategoryName, menteeID)
	if err != nil {
		return nil, err
	}

	if err := s.users.DecrementQuota(ctx, menteeID); err != nil {
		return nil, err
	}

	letter := &model.Letter{
		CategoryName: p.CategoryName,
		Title:        p.Title,
		Body:         p.Body,
		CreatedAt:    time.Now(),
	}
	if err := s.letters.Create(ctx, letter); err != nil {
		s.refundQuota(ctx, menteeID)
		return nil, fmt.Errorf("service/letter: creating letter: %w", err)
	}

	status := &model.LetterStatus{
		MenteeLetterID: letter.ID,
		MenteeID:       menteeID,
		MentorID:       mentor.ID,
		CreatedAt:      letter.CreatedAt,
	}
	if err := s.statuses.Create(ctx, status); err != nil {
		s.refundQuota(ctx, menteeID)
		return nil, fmt.Errorf("service/letter: creating letter status: %w", err)
	}

	s.notify(ctx, mentor.ID, "A new letter has arrived in your mailbox.")

	s.logger.Info("letter submitted",
		slog.String("statusID", status.ID),
		slog.String("menteeID", menteeID),
		slog.String("mentorID", mentor.ID),
		slog.String("category", p.CategoryName),
	)
	return status, nil
}

// ReplyParams carries a mentor's reply.
type ReplyParams struct {
	Title string
	Body  string
}

// Reply attaches the mentor's answer to a pending letter. The reply inherits
// the original letter's category and consumes one unit of the mentor's
// quota. Only the currently assigned mentor may reply, and only once.
func (s *LetterService) Reply(ctx context.Context, mentorID, statusID string, p ReplyParams) (*model.Letter, error) {
	if err := validateContent(p.Title, p.Body); err != nil {
		return nil, err
	}

	status, err := s.statuses.GetByID(ctx, statusID)
	if err != nil {
		return nil, err
	}
	if status.MentorID != mentorID {
		return nil, apperror.Forbidden("letter is assigned to another mentor")
	}
	if status.Replied() {
		return nil, apperror.Conflict("letter", "letter already has a reply")
	}

	original, err := s.letters.GetByID(ctx, status.MenteeLetterID)
	if err != nil {
		return nil, err
	}

	if err := s.users.DecrementQuota(ctx, mentorID); err != nil {
		return nil, err
	}

	reply := &model.Letter{
		CategoryName: original.CategoryName,
		Title:        p.Title,
		Body:         p.Body,
		CreatedAt:    time.Now(),
	}
	if err := s.letters.Create(ctx, reply); err != nil {
		s.refundQuota(ctx, mentorID)
		return nil, fmt.Errorf("service/letter: creating reply letter: %w", err)
	}

	if err := s.statuses.SetMentorLetter(ctx, statusID, reply.ID); err != nil {
		s.refundQuota(ctx, mentorID)
		return nil, err
	}

	s.notify(ctx, status.MenteeID, "A reply to your letter has arrived.")

	s.logger.Info("letter replied",
		slog.String("statusID", statusID),
		slog.String("mentorID", mentorID),
	)
	return reply, nil
}

// List returns one page of the caller's mailbox, newest first.
func (s *LetterService) List(ctx context.Context, userID string, listType model.ListType, page int) (*model.LetterPage, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.Role.Valid() {
		return nil, apperror.Forbidden("complete your profile before using the mailbox")
	}
	if page < 1 {
		page = 1
	}

	letters, total, err := s.statuses.List(ctx, repository.LetterListQuery{
		UserID: userID,
		Role:   user.Role,
		Type:   listType,
		Page:   page,
	})
	if err != nil {
		return nil, fmt.Errorf("service/letter: listing letters for user %s: %w", userID, err)
	}

	totalPages := (total + repository.PageSize - 1) / repository.PageSize
	return &model.LetterPage{
		Letters:    letters,
		Page:       page,
		TotalPages: totalPages,
	}, nil
}

// Details returns the full thread behind a mailbox entry. Opening a thread
// marks it read for the caller's side; the other side's flag is untouched.
// Only the two participants may open a thread.
func (s *LetterService) Details(ctx context.Context, userID, statusID string) (*model.LetterDetails, error) {
	status, err := s.statuses.GetByID(ctx, statusID)
	if err != nil {
		return nil, err
	}
	side, ok := status.SideOf(userID)
	if !ok {
		return nil, apperror.Forbidden("letter belongs to another mailbox")
	}

	switch side {
	case model.RoleMentee:
		if !status.MenteeRead {
			if err := s.statuses.MarkRead(ctx, statusID, side); err != nil {
				return nil, err
			}
			status.MenteeRead = true
		}
	case model.RoleMentor:
		if !status.MentorRead {
			if err := s.statuses.MarkRead(ctx, statusID, side); err != nil {
				return nil, err
			}
			status.MentorRead = true
		}
	}

	details := &model.LetterDetails{Status: status}
	details.MenteeLetter, err = s.letters.GetByID(ctx, status.MenteeLetterID)
	if err != nil {
		return nil, err
	}
	if status.Replied() {
		details.MentorLetter, err = s.letters.GetByID(ctx, status.MentorLetterID)
		if err != nil {
			return nil, err
		}
	}
	return details, nil
}

// Save flags a thread as kept in the caller's mailbox. Saving is
// idempotent and per side.
func (s *LetterService) Save(ctx context.Context, userID, statusID string) error {
	status, err := s.statuses.GetByID(ctx, statusID)
	if err != nil {
		return err
	}
	side, ok := status.SideOf(userID)
	if !ok {
		return apperror.Forbidden("letter belongs to another mailbox")
	}
	return s.statuses.MarkSaved(ctx, statusID, side)
}

// Throw passes a pending letter on to a different mentor. The handover is
// recorded in the audit trail, the per-category throw counter is bumped, and
// the new mentor is notified. Only the currently assigned mentor may throw,
// and only while the letter has no reply.
func (s *LetterService) Throw(ctx context.Context, mentorID, statusID string) (*model.LetterStatus, error) {
	status, err := s.statuses.GetByID(ctx, statusID)
	if err != nil {
		return nil, err
	}
	if status.MentorID != mentorID {
		return nil, apperror.Forbidden("letter is assigned to another mentor")
	}
	if status.Replied() {
		return nil, apperror.Conflict("letter", "replied letters cannot be passed on")
	}

	original, err := s.letters.GetByID(ctx, status.MenteeLetterID)
	if err != nil {
		return nil, err
	}

	next, err := s.users.PickMentor(ctx, original.CategoryName, status.MenteeID, mentorID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.Conflict("letter", "no other mentor is available for this category")
		}
		return nil, err
	}

	if err := s.throws.ThrowAndReassign(ctx, status, original.CategoryName, next.ID); err != nil {
		return nil, fmt.Errorf("service/letter: reassigning letter %s: %w", statusID, err)
	}

	s.notify(ctx, next.ID, "A letter has been passed on to your mailbox.")

	s.logger.Info("letter thrown",
		slog.String("statusID", statusID),
		slog.String("fromMentorID", mentorID),
		slog.String("toMentorID", next.ID),
		slog.String("category", original.CategoryName),
	)
	return s.statuses.GetByID(ctx, statusID)
}

// Thanks records the mentee's appreciation for a reply, identified by the
// reply letter's ID, and notifies the mentor. Thanking twice is a no-op.
func (s *LetterService) Thanks(ctx context.Context, menteeID, mentorLetterID string) (*model.LetterStatus, error) {
	status, err := s.statuses.GetByMentorLetterID(ctx, mentorLetterID)
	if err != nil {
		return nil, err
	}
	if status.MenteeID != menteeID {
		return nil, apperror.Forbidden("letter belongs to another mailbox")
	}
	if status.Thanked {
		return status, nil
	}

	if err := s.statuses.MarkThanked(ctx, status.ID); err != nil {
		return nil, err
	}
	status.Thanked = true

	s.notify(ctx, status.MentorID, "A mentee sent their thanks for your reply.")
	return status, nil
}

// CategoryCounts reports how often letters were thrown per category,
// busiest first.
func (s *LetterService) CategoryCounts(ctx context.Context) ([]model.ThrowCategoryCount, error) {
	counts, err := s.throws.CategoryCounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("service/letter: loading throw counts: %w", err)
	}
	return counts, nil
}

// refundQuota compensates a quota decrement whose follow-up write failed.
// The refund itself failing leaves the unit lost; that is logged rather
// than surfaced, the caller already has the original error.
func (s *LetterService) refundQuota(ctx context.Context, userID string) {
	if err := s.users.RefundQuota(ctx, userID); err != nil {
		s.logger.Error("refunding quota failed",
			slog.String("userID", userID),
			slog.String("error", err.Error()),
		)
	}
}

// notify appends a mailbox notification. Delivery is best effort; a failure
// is logged and never fails the triggering operation.
func (s *LetterService) notify(ctx context.Context, userID, message string) {
	n := &model.Notification{
		UserID:    userID,
		Message:   message,
		CreatedAt: time.Now(),
	}
	if err := s.notifications.Append(ctx, n); err != nil {
		s.logger.Warn("appending notification failed",
			slog.String("userID", userID),
			slog.String("error", err.Error()),
		)
	}
}
