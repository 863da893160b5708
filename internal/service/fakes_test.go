package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/enfdev/letterbox/internal/apperror"
	"github.com/enfdev/letterbox/internal/auth"
	"github.com/enfdev/letterbox/internal/model"
	"github.com/enfdev/letterbox/internal/repository"
)

// In-memory fakes for the repository interfaces. Using fakes instead of a
// mock framework keeps the tests readable: what each fake does is right
// here on the page.

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// ---------------------------------------------------------------------------

type fakeKakao struct {
	user *auth.KakaoUser
	err  error
}

func (f *fakeKakao) Exchange(ctx context.Context, code string) (*auth.KakaoUser, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.user, nil
}

// ---------------------------------------------------------------------------

type fakeUserRepo struct {
	users  map[string]*model.User
	nextID int

	createErr error
	getErr    error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*model.User), nextID: 1}
}

func (f *fakeUserRepo) add(u *model.User) *model.User {
	if u.ID == "" {
		u.ID = fmt.Sprintf("user-%d", f.nextID)
		f.nextID++
	}
	if u.Quota == 0 {
		u.Quota = model.DefaultQuota
	}
	copied := *u
	f.users[u.ID] = &copied
	return f.users[u.ID]
}

func (f *fakeUserRepo) Create(ctx context.Context, user *model.User) error {
	if f.createErr != nil {
		return f.createErr
	}
	stored := f.add(user)
	*user = *stored
	return nil
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id string) (*model.User, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	u, ok := f.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	copied := *u
	return &copied, nil
}

func (f *fakeUserRepo) GetByProvider(ctx context.Context, provider, providerID string) (*model.User, error) {
	for _, u := range f.users {
		if u.Provider == provider && u.ProviderID == providerID {
			copied := *u
			return &copied, nil
		}
	}
	return nil, apperror.NotFound("user", providerID)
}

func (f *fakeUserRepo) ExistsByNickname(ctx context.Context, nickname string) (bool, error) {
	for _, u := range f.users {
		if u.Nickname == nickname {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeUserRepo) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	u, ok := f.users[id]
	if !ok {
		return apperror.NotFound("user", id)
	}
	u.LastLoginAt = at
	return nil
}

func (f *fakeUserRepo) UpdateProfile(ctx context.Context, id string, p repository.UpdateProfileParams) error {
	u, ok := f.users[id]
	if !ok {
		return apperror.NotFound("user", id)
	}
	if p.Nickname != nil {
		u.Nickname = *p.Nickname
	}
	if p.Role != nil {
		u.Role = *p.Role
	}
	if p.BirdID != nil {
		u.BirdID = *p.BirdID
	}
	if p.CategoryID != nil {
		u.CategoryID = *p.CategoryID
	}
	return nil
}

func (f *fakeUserRepo) UpdateRefreshHash(ctx context.Context, id, hash string) error {
	u, ok := f.users[id]
	if !ok {
		return apperror.NotFound("user", id)
	}
	u.RefreshHash = hash
	return nil
}

func (f *fakeUserRepo) DecrementQuota(ctx context.Context, id string) error {
	u, ok := f.users[id]
	if !ok {
		return apperror.NotFound("user", id)
	}
	if u.Quota <= 0 {
		return apperror.QuotaExceeded(id)
	}
	u.Quota--
	return nil
}

func (f *fakeUserRepo) RefundQuota(ctx context.Context, id string) error {
	u, ok := f.users[id]
	if !ok {
		return apperror.NotFound("user", id)
	}
	u.Quota++
	return nil
}

func (f *fakeUserRepo) PickMentor(ctx context.Context, categoryName string, exclude ...string) (*model.User, error) {
	for _, u := range f.users {
		if u.Role != model.RoleMentor || u.CategoryID != categoryName {
			continue
		}
		excluded := false
		for _, id := range exclude {
			if u.ID == id {
				excluded = true
				break
			}
		}
		if !excluded {
			copied := *u
			return &copied, nil
		}
	}
	return nil, apperror.NotFound("mentor", categoryName)
}

// ---------------------------------------------------------------------------

// fakeRefRepo resolves bird and category names to IDs of the form
// "bird:<name>" and "cat:<name>".
type fakeRefRepo struct {
	birds      []string
	categories []string
}

func newFakeRefRepo() *fakeRefRepo {
	return &fakeRefRepo{
		birds:      []string{"owl", "parrot"},
		categories: []string{"career", "life"},
	}
}

func (f *fakeRefRepo) ListBirds(ctx context.Context) ([]model.Bird, error) {
	out := make([]model.Bird, 0, len(f.birds))
	for _, name := range f.birds {
		out = append(out, model.Bird{ID: "bird:" + name, Name: name})
	}
	return out, nil
}

func (f *fakeRefRepo) ListCategories(ctx context.Context) ([]model.Category, error) {
	out := make([]model.Category, 0, len(f.categories))
	for _, name := range f.categories {
		out = append(out, model.Category{ID: "cat:" + name, Name: name})
	}
	return out, nil
}

func (f *fakeRefRepo) GetBirdByName(ctx context.Context, name string) (*model.Bird, error) {
	for _, b := range f.birds {
		if b == name {
			return &model.Bird{ID: "bird:" + name, Name: name}, nil
		}
	}
	return nil, apperror.NotFound("bird", name)
}

func (f *fakeRefRepo) GetCategoryByName(ctx context.Context, name string) (*model.Category, error) {
	for _, c := range f.categories {
		if c == name {
			return &model.Category{ID: "cat:" + name, Name: name}, nil
		}
	}
	return nil, apperror.NotFound("category", name)
}

// ---------------------------------------------------------------------------

type fakeLetterRepo struct {
	letters map[string]*model.Letter
	nextID  int

	createErr error
}

func newFakeLetterRepo() *fakeLetterRepo {
	return &fakeLetterRepo{letters: make(map[string]*model.Letter), nextID: 1}
}

func (f *fakeLetterRepo) Create(ctx context.Context, letter *model.Letter) error {
	if f.createErr != nil {
		return f.createErr
	}
	letter.ID = fmt.Sprintf("letter-%d", f.nextID)
	f.nextID++
	copied := *letter
	f.letters[letter.ID] = &copied
	return nil
}

func (f *fakeLetterRepo) GetByID(ctx context.Context, id string) (*model.Letter, error) {
	l, ok := f.letters[id]
	if !ok {
		return nil, apperror.NotFound("letter", id)
	}
	copied := *l
	return &copied, nil
}

// ---------------------------------------------------------------------------

type fakeStatusRepo struct {
	statuses map[string]*model.LetterStatus
	nextID   int

	createErr error
}

func newFakeStatusRepo() *fakeStatusRepo {
	return &fakeStatusRepo{statuses: make(map[string]*model.LetterStatus), nextID: 1}
}

func (f *fakeStatusRepo) Create(ctx context.Context, status *model.LetterStatus) error {
	if f.createErr != nil {
		return f.createErr
	}
	status.ID = fmt.Sprintf("status-%d", f.nextID)
	f.nextID++
	copied := *status
	f.statuses[status.ID] = &copied
	return nil
}

func (f *fakeStatusRepo) GetByID(ctx context.Context, id string) (*model.LetterStatus, error) {
	s, ok := f.statuses[id]
	if !ok {
		return nil, apperror.NotFound("letter status", id)
	}
	copied := *s
	return &copied, nil
}

func (f *fakeStatusRepo) GetByMentorLetterID(ctx context.Context, letterID string) (*model.LetterStatus, error) {
	for _, s := range f.statuses {
		if s.MentorLetterID == letterID {
			copied := *s
			return &copied, nil
		}
	}
	return nil, apperror.NotFound("letter status", letterID)
}

func (f *fakeStatusRepo) SetMentorLetter(ctx context.Context, statusID, letterID string) error {
	s, ok := f.statuses[statusID]
	if !ok {
		return apperror.NotFound("letter status", statusID)
	}
	if s.MentorLetterID != "" {
		return apperror.Conflict("letter status", "letter already has a reply")
	}
	s.MentorLetterID = letterID
	return nil
}

func (f *fakeStatusRepo) MarkRead(ctx context.Context, statusID string, side model.Role) error {
	s, ok := f.statuses[statusID]
	if !ok {
		return apperror.NotFound("letter status", statusID)
	}
	if side == model.RoleMentee {
		s.MenteeRead = true
	} else {
		s.MentorRead = true
	}
	return nil
}

func (f *fakeStatusRepo) MarkSaved(ctx context.Context, statusID string, side model.Role) error {
	s, ok := f.statuses[statusID]
	if !ok {
		return apperror.NotFound("letter status", statusID)
	}
	if side == model.RoleMentee {
		s.MenteeSaved = true
	} else {
		s.MentorSaved = true
	}
	return nil
}

func (f *fakeStatusRepo) MarkThanked(ctx context.Context, statusID string) error {
	s, ok := f.statuses[statusID]
	if !ok {
		return apperror.NotFound("letter status", statusID)
	}
	s.Thanked = true
	return nil
}

func (f *fakeStatusRepo) List(ctx context.Context, q repository.LetterListQuery) ([]model.LetterSummary, int, error) {
	var out []model.LetterSummary
	for _, s := range f.statuses {
		mine := (q.Role == model.RoleMentee && s.MenteeID == q.UserID) ||
			(q.Role == model.RoleMentor && s.MentorID == q.UserID)
		if !mine {
			continue
		}
		out = append(out, model.LetterSummary{StatusID: s.ID, Replied: s.Replied()})
	}
	return out, len(out), nil
}

// ---------------------------------------------------------------------------

type fakeThrowRepo struct {
	counts map[string]int64
	audits []model.ThrowLetter
}

func newFakeThrowRepo() *fakeThrowRepo {
	return &fakeThrowRepo{counts: make(map[string]int64)}
}

func (f *fakeThrowRepo) ThrowAndReassign(ctx context.Context, status *model.LetterStatus, categoryName, newMentorID string) error {
	f.audits = append(f.audits, model.ThrowLetter{
		LetterStatusID: status.ID,
		ThrownByID:     status.MentorID,
		CreatedAt:      time.Now(),
	})
	f.counts[categoryName]++
	status.MentorID = newMentorID
	return nil
}

func (f *fakeThrowRepo) CategoryCounts(ctx context.Context) ([]model.ThrowCategoryCount, error) {
	var out []model.ThrowCategoryCount
	for name, n := range f.counts {
		out = append(out, model.ThrowCategoryCount{CategoryName: name, Count: n})
	}
	return out, nil
}

// ---------------------------------------------------------------------------

type fakeNotificationRepo struct {
	notifications []*model.Notification
	nextID        int

	appendErr error
}

func newFakeNotificationRepo() *fakeNotificationRepo {
	return &fakeNotificationRepo{nextID: 1}
}

func (f *fakeNotificationRepo) Append(ctx context.Context, n *model.Notification) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	n.ID = fmt.Sprintf("notif-%d", f.nextID)
	f.nextID++
	copied := *n
	f.notifications = append(f.notifications, &copied)
	return nil
}

func (f *fakeNotificationRepo) ListByUser(ctx context.Context, userID string) ([]model.Notification, error) {
	var out []model.Notification
	for _, n := range f.notifications {
		if n.UserID == userID {
			out = append(out, *n)
		}
	}
	return out, nil
}

func (f *fakeNotificationRepo) MarkAllSent(ctx context.Context, userID string) error {
	for _, n := range f.notifications {
		if n.UserID == userID {
			n.Sent = true
		}
	}
	return nil
}

func (f *fakeNotificationRepo) DeleteAllByUser(ctx context.Context, userID string) error {
	kept := f.notifications[:0]
	for _, n := range f.notifications {
		if n.UserID != userID {
			kept = append(kept, n)
		}
	}
	f.notifications = kept
	return nil
}

// messagesFor collects the notification messages delivered to a user.
func (f *fakeNotificationRepo) messagesFor(userID string) []string {
	var out []string
	for _, n := range f.notifications {
		if n.UserID == userID {
			out = append(out, n.Message)
		}
	}
	return out
}

// containsMessage reports whether any of the user's notifications mentions
// the given fragment.
func (f *fakeNotificationRepo) containsMessage(userID, fragment string) bool {
	for _, msg := range f.messagesFor(userID) {
		if strings.Contains(msg, fragment) {
			return true
		}
	}
	return false
}
