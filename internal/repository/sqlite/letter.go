package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/enfdev/letterbox/internal/apperror"
	"github.com/enfdev/letterbox/internal/model"
	"github.com/enfdev/letterbox/internal/repository"
)

var (
	_ repository.LetterRepository       = letterRepo{}
	_ repository.LetterStatusRepository = statusRepo{}
)

// LetterRepository.Create would collide with UserRepository.Create on the
// shared *DB receiver, so letters and statuses use explicit method names on
// *DB and thin views implement the interfaces.

// Letters returns the letter repository view of the DB.
func (db *DB) Letters() repository.LetterRepository { return letterRepo{db} }

// Statuses returns the letter-status repository view of the DB.
func (db *DB) Statuses() repository.LetterStatusRepository { return statusRepo{db} }

type letterRepo struct{ db *DB }

func (r letterRepo) Create(ctx context.Context, letter *model.Letter) error {
	return r.db.CreateLetter(ctx, letter)
}

func (r letterRepo) GetByID(ctx context.Context, id string) (*model.Letter, error) {
	return r.db.GetLetterByID(ctx, id)
}

type statusRepo struct{ db *DB }

func (r statusRepo) Create(ctx context.Context, status *model.LetterStatus) error {
	return r.db.CreateLetterStatus(ctx, status)
}

func (r statusRepo) GetByID(ctx context.Context, id string) (*model.LetterStatus, error) {
	return r.db.GetLetterStatusByID(ctx, id)
}

func (r statusRepo) GetByMentorLetterID(ctx context.Context, letterID string) (*model.LetterStatus, error) {
	return r.db.GetLetterStatusByMentorLetterID(ctx, letterID)
}

func (r statusRepo) SetMentorLetter(ctx context.Context, statusID, letterID string) error {
	return r.db.SetMentorLetter(ctx, statusID, letterID)
}

func (r statusRepo) MarkRead(ctx context.Context, statusID string, side model.Role) error {
	return r.db.MarkLetterRead(ctx, statusID, side)
}

func (r statusRepo) MarkSaved(ctx context.Context, statusID string, side model.Role) error {
	return r.db.MarkLetterSaved(ctx, statusID, side)
}

func (r statusRepo) MarkThanked(ctx context.Context, statusID string) error {
	return r.db.MarkLetterThanked(ctx, statusID)
}

func (r statusRepo) List(ctx context.Context, q repository.LetterListQuery) ([]model.LetterSummary, int, error) {
	return r.db.ListLetters(ctx, q)
}

// CreateLetter inserts an immutable content record. ID and timestamp are
// assigned here if unset.
func (db *DB) CreateLetter(ctx context.Context, letter *model.Letter) error {
	letter.ID = xid.New().String()
	if letter.CreatedAt.IsZero() {
		letter.CreatedAt = time.Now()
	}

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO letters (id, category_name, title, body, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		letter.ID,
		letter.CategoryName,
		letter.Title,
		letter.Body,
		letter.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting letter: %w", err)
	}
	return nil
}

// GetLetterByID retrieves a letter.
// Returns apperror.ErrNotFound if no letter exists with that ID.
func (db *DB) GetLetterByID(ctx context.Context, id string) (*model.Letter, error) {
	var l model.Letter
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, category_name, title, body, created_at FROM letters WHERE id = ?`,
		id,
	).Scan(&l.ID, &l.CategoryName, &l.Title, &l.Body, &l.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, apperror.NotFound("letter", id)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: fetching letter %s: %w", id, err)
	}
	return &l, nil
}

const statusColumns = `id, mentee_letter_id, mentor_letter_id, mentee_id,
	mentor_id, mentee_read, mentor_read, mentee_saved, mentor_saved,
	thanked, created_at`

func scanStatus(row *sql.Row) (*model.LetterStatus, error) {
	var s model.LetterStatus
	var mentorLetter sql.NullString
	err := row.Scan(
		&s.ID,
		&s.MenteeLetterID,
		&mentorLetter,
		&s.MenteeID,
		&s.MentorID,
		&s.MenteeRead,
		&s.MentorRead,
		&s.MenteeSaved,
		&s.MentorSaved,
		&s.Thanked,
		&s.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	s.MentorLetterID = mentorLetter.String
	return &s, nil
}

// CreateLetterStatus inserts a new thread state with all flags false and
// no mentor letter.
func (db *DB) CreateLetterStatus(ctx context.Context, status *model.LetterStatus) error {
	status.ID = xid.New().String()
	if status.CreatedAt.IsZero() {
		status.CreatedAt = time.Now()
	}

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO letter_status (id, mentee_letter_id, mentee_id, mentor_id, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		status.ID,
		status.MenteeLetterID,
		status.MenteeID,
		status.MentorID,
		status.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting letter status: %w", err)
	}
	return nil
}

// GetLetterStatusByID retrieves a thread state.
func (db *DB) GetLetterStatusByID(ctx context.Context, id string) (*model.LetterStatus, error) {
	status, err := scanStatus(db.conn.QueryRowContext(ctx,
		`SELECT `+statusColumns+` FROM letter_status WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, apperror.NotFound("letter status", id)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: fetching letter status %s: %w", id, err)
	}
	return status, nil
}

// GetLetterStatusByMentorLetterID finds the thread whose reply is the given
// letter.
func (db *DB) GetLetterStatusByMentorLetterID(ctx context.Context, letterID string) (*model.LetterStatus, error) {
	status, err := scanStatus(db.conn.QueryRowContext(ctx,
		`SELECT `+statusColumns+` FROM letter_status WHERE mentor_letter_id = ?`, letterID))
	if err == sql.ErrNoRows {
		return nil, apperror.NotFound("letter status for mentor letter", letterID)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: fetching letter status by mentor letter %s: %w", letterID, err)
	}
	return status, nil
}

// SetMentorLetter attaches the reply. The IS NULL guard makes a second
// reply fail with Conflict instead of overwriting the first.
func (db *DB) SetMentorLetter(ctx context.Context, statusID, letterID string) error {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE letter_status SET mentor_letter_id = ?
		 WHERE id = ? AND mentor_letter_id IS NULL`,
		letterID, statusID)
	if err != nil {
		return fmt.Errorf("sqlite: setting mentor letter on status %s: %w", statusID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: setting mentor letter on status %s: %w", statusID, err)
	}
	if n == 0 {
		if _, getErr := db.GetLetterStatusByID(ctx, statusID); getErr != nil {
			return getErr
		}
		return apperror.Conflict("letter status", "already has a mentor reply")
	}
	return nil
}

func sideColumn(side model.Role, suffix string) (string, error) {
	switch side {
	case model.RoleMentee:
		return "mentee_" + suffix, nil
	case model.RoleMentor:
		return "mentor_" + suffix, nil
	}
	return "", fmt.Errorf("sqlite: invalid side %q", side)
}

// MarkLetterRead flips the read flag for one side. Monotonic: the SET only
// ever writes 1.
func (db *DB) MarkLetterRead(ctx context.Context, statusID string, side model.Role) error {
	col, err := sideColumn(side, "read")
	if err != nil {
		return err
	}
	res, err := db.conn.ExecContext(ctx,
		`UPDATE letter_status SET `+col+` = 1 WHERE id = ?`, statusID)
	if err != nil {
		return fmt.Errorf("sqlite: marking %s on status %s: %w", col, statusID, err)
	}
	return requireRow(res, "letter status", statusID)
}

// MarkLetterSaved flips the saved flag for one side.
func (db *DB) MarkLetterSaved(ctx context.Context, statusID string, side model.Role) error {
	col, err := sideColumn(side, "saved")
	if err != nil {
		return err
	}
	res, err := db.conn.ExecContext(ctx,
		`UPDATE letter_status SET `+col+` = 1 WHERE id = ?`, statusID)
	if err != nil {
		return fmt.Errorf("sqlite: marking %s on status %s: %w", col, statusID, err)
	}
	return requireRow(res, "letter status", statusID)
}

// MarkLetterThanked sets the thanked flag. Idempotent.
func (db *DB) MarkLetterThanked(ctx context.Context, statusID string) error {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE letter_status SET thanked = 1 WHERE id = ?`, statusID)
	if err != nil {
		return fmt.Errorf("sqlite: marking thanked on status %s: %w", statusID, err)
	}
	return requireRow(res, "letter status", statusID)
}

// ListLetters returns one page of letter summaries for the user's side of
// the relation plus the total count of matching rows.
//
// Ordering is letter creation time descending with the status id as a
// tiebreak, so sequential page fetches are stable absent concurrent writes.
func (db *DB) ListLetters(ctx context.Context, q repository.LetterListQuery) ([]model.LetterSummary, int, error) {
	sideCol, err := sideColumn(q.Role, "id")
	if err != nil {
		return nil, 0, err
	}
	readCol, _ := sideColumn(q.Role, "read")
	savedCol, _ := sideColumn(q.Role, "saved")

	where := `WHERE ls.` + sideCol + ` = ?`
	args := []any{q.UserID}
	switch q.Type {
	case model.ListPending:
		where += ` AND ls.mentor_letter_id IS NULL`
	case model.ListSaved:
		where += ` AND ls.` + savedCol + ` = 1`
	}

	var total int
	err = db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM letter_status ls `+where, args...,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("sqlite: counting letters: %w", err)
	}

	page := q.Page
	if page < 1 {
		page = 1
	}
	offset := (page - 1) * repository.PageSize

	rows, err := db.conn.QueryContext(ctx,
		`SELECT ls.id, l.category_name, l.title,
			ls.mentor_letter_id IS NOT NULL,
			ls.`+readCol+`, ls.`+savedCol+`, l.created_at
		 FROM letter_status ls
		 JOIN letters l ON l.id = ls.mentee_letter_id
		 `+where+`
		 ORDER BY l.created_at DESC, ls.id DESC
		 LIMIT ? OFFSET ?`,
		append(args, repository.PageSize, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("sqlite: listing letters: %w", err)
	}
	defer rows.Close()

	summaries := make([]model.LetterSummary, 0, repository.PageSize)
	for rows.Next() {
		var s model.LetterSummary
		if err := rows.Scan(&s.StatusID, &s.CategoryName, &s.Title,
			&s.Replied, &s.Read, &s.Saved, &s.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("sqlite: scanning letter summary: %w", err)
		}
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("sqlite: listing letters: %w", err)
	}

	return summaries, total, nil
}
