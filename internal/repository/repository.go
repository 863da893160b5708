// Package repository defines the persistence interfaces the service layer
// depends on. Each entity gets its own interface with the specific query
// and partial-update methods it needs, not a generic data-access layer.
package repository

import (
	"context"
	"time"

	"github.com/enfdev/letterbox/internal/model"
)

// PageSize is the fixed number of letter summaries per listing page.
const PageSize = 10

// UpdateProfileParams carries the optional profile-completion fields.
// Only non-nil fields are written.
type UpdateProfileParams struct {
	Nickname   *string
	Role       *model.Role
	BirdID     *string
	CategoryID *string
}

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	// GetByProvider looks a user up by the unique (provider, providerID)
	// pair. Returns apperror.ErrNotFound when no such user exists.
	GetByProvider(ctx context.Context, provider, providerID string) (*model.User, error)
	ExistsByNickname(ctx context.Context, nickname string) (bool, error)
	UpdateLastLogin(ctx context.Context, id string, at time.Time) error
	UpdateProfile(ctx context.Context, id string, params UpdateProfileParams) error
	UpdateRefreshHash(ctx context.Context, id, hash string) error
	// DecrementQuota atomically decrements the user's remaining letter
	// allowance, failing with apperror.ErrQuotaExceeded when it is already
	// zero. The counter never goes negative.
	DecrementQuota(ctx context.Context, id string) error
	// RefundQuota returns one unit consumed by a write that subsequently
	// failed.
	RefundQuota(ctx context.Context, id string) error
	// PickMentor returns a random mentor for the given category, excluding
	// the listed user ids. Returns apperror.ErrNotFound when none exists.
	PickMentor(ctx context.Context, categoryName string, exclude ...string) (*model.User, error)
}

type ReferenceRepository interface {
	ListBirds(ctx context.Context) ([]model.Bird, error)
	ListCategories(ctx context.Context) ([]model.Category, error)
	GetBirdByName(ctx context.Context, name string) (*model.Bird, error)
	GetCategoryByName(ctx context.Context, name string) (*model.Category, error)
}

type LetterRepository interface {
	Create(ctx context.Context, letter *model.Letter) error
	GetByID(ctx context.Context, id string) (*model.Letter, error)
}

// LetterListQuery selects one page of a user's letters. Role picks the side
// of the relation the user is on.
type LetterListQuery struct {
	UserID string
	Role   model.Role
	Type   model.ListType
	Page   int // 1-based
}

type LetterStatusRepository interface {
	Create(ctx context.Context, status *model.LetterStatus) error
	GetByID(ctx context.Context, id string) (*model.LetterStatus, error)
	// GetByMentorLetterID finds the status whose mentor reply is the given
	// letter. Returns apperror.ErrNotFound when no status references it.
	GetByMentorLetterID(ctx context.Context, letterID string) (*model.LetterStatus, error)
	// SetMentorLetter attaches a reply. It is a single-field update guarded
	// so an already-replied status fails with apperror.ErrConflict rather
	// than being overwritten.
	SetMentorLetter(ctx context.Context, statusID, letterID string) error
	// MarkRead and MarkSaved flip the flag for the given side. Both are
	// monotonic: they only ever go from false to true.
	MarkRead(ctx context.Context, statusID string, side model.Role) error
	MarkSaved(ctx context.Context, statusID string, side model.Role) error
	MarkThanked(ctx context.Context, statusID string) error
	// List returns one page of summaries ordered by letter creation time,
	// most recent first, plus the total number of matching rows.
	List(ctx context.Context, q LetterListQuery) ([]model.LetterSummary, int, error)
}

type ThrowRepository interface {
	// ThrowAndReassign performs the whole throw as one transaction:
	// insert the append-only audit row, bump the per-category counter
	// (created atomically on first use), and point the status at the new
	// mentor. Read flags and the mentor letter are untouched.
	ThrowAndReassign(ctx context.Context, status *model.LetterStatus, categoryName, newMentorID string) error
	CategoryCounts(ctx context.Context) ([]model.ThrowCategoryCount, error)
}

type NotificationRepository interface {
	Append(ctx context.Context, n *model.Notification) error
	// ListByUser returns the user's notifications in insertion order.
	ListByUser(ctx context.Context, userID string) ([]model.Notification, error)
	MarkAllSent(ctx context.Context, userID string) error
	DeleteAllByUser(ctx context.Context, userID string) error
}
