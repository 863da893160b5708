package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/enfdev/letterbox/internal/apperror"
	"github.com/enfdev/letterbox/internal/model"
	"github.com/enfdev/letterbox/internal/repository"
)

// compile-time check that *DB implements repository.UserRepository
var _ repository.UserRepository = (*DB)(nil)

const userColumns = `id, provider, provider_id, email, nickname, birth_year,
	role, COALESCE(bird_id, ''), COALESCE(category_id, ''), quota,
	refresh_hash, created_at, last_login_at`

func scanUser(row *sql.Row) (*model.User, error) {
	var u model.User
	var role string
	err := row.Scan(
		&u.ID,
		&u.Provider,
		&u.ProviderID,
		&u.Email,
		&u.Nickname,
		&u.BirthYear,
		&role,
		&u.BirdID,
		&u.CategoryID,
		&u.Quota,
		&u.RefreshHash,
		&u.CreatedAt,
		&u.LastLoginAt,
	)
	if err != nil {
		return nil, err
	}
	// Role stays the zero value until the profile is completed.
	if role != "" {
		u.Role, err = model.ParseRole(role)
		if err != nil {
			return nil, fmt.Errorf("sqlite: user %s: %w", u.ID, err)
		}
	}
	return &u, nil
}

// Create inserts a new user. The ID and quota are assigned here.
func (db *DB) Create(ctx context.Context, user *model.User) error {
	user.ID = xid.New().String()
	if user.Quota == 0 {
		user.Quota = model.DefaultQuota
	}

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO users (id, provider, provider_id, email, nickname,
			birth_year, role, quota, refresh_hash, created_at, last_login_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.Provider,
		user.ProviderID,
		user.Email,
		user.Nickname,
		user.BirthYear,
		string(user.Role),
		user.Quota,
		user.RefreshHash,
		user.CreatedAt,
		user.LastLoginAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting user (provider=%s id=%s): %w",
			user.Provider, user.ProviderID, err)
	}

	return nil
}

// GetByID retrieves a user by internal ID.
// Returns apperror.ErrNotFound if no user exists with that ID.
func (db *DB) GetByID(ctx context.Context, id string) (*model.User, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id)

	user, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, apperror.NotFound("user", id)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: fetching user %s: %w", id, err)
	}
	return user, nil
}

// GetByProvider retrieves a user by the unique (provider, providerID) pair.
func (db *DB) GetByProvider(ctx context.Context, provider, providerID string) (*model.User, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE provider = ? AND provider_id = ?`,
		provider, providerID)

	user, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, apperror.NotFound("user", provider+"/"+providerID)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: fetching user by provider %s/%s: %w",
			provider, providerID, err)
	}
	return user, nil
}

// ExistsByNickname reports whether any user already holds the nickname.
func (db *DB) ExistsByNickname(ctx context.Context, nickname string) (bool, error) {
	var count int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users WHERE nickname = ?`, nickname,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("sqlite: checking nickname %q: %w", nickname, err)
	}
	return count > 0, nil
}

// UpdateLastLogin sets the last-login timestamp. Targeted single-field
// update; nothing else on the row changes.
func (db *DB) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE users SET last_login_at = ? WHERE id = ?`, at, id)
	if err != nil {
		return fmt.Errorf("sqlite: updating last login for user %s: %w", id, err)
	}
	return requireRow(res, "user", id)
}

// UpdateProfile writes the non-nil fields of params.
func (db *DB) UpdateProfile(ctx context.Context, id string, params repository.UpdateProfileParams) error {
	sets := make([]string, 0, 4)
	args := make([]any, 0, 5)

	if params.Nickname != nil {
		sets = append(sets, "nickname = ?")
		args = append(args, *params.Nickname)
	}
	if params.Role != nil {
		sets = append(sets, "role = ?")
		args = append(args, string(*params.Role))
	}
	if params.BirdID != nil {
		sets = append(sets, "bird_id = ?")
		args = append(args, *params.BirdID)
	}
	if params.CategoryID != nil {
		sets = append(sets, "category_id = ?")
		args = append(args, *params.CategoryID)
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, id)

	res, err := db.conn.ExecContext(ctx,
		`UPDATE users SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return fmt.Errorf("sqlite: updating profile for user %s: %w", id, err)
	}
	return requireRow(res, "user", id)
}

// UpdateRefreshHash replaces the stored refresh-token hash. An empty hash
// clears it (logout).
func (db *DB) UpdateRefreshHash(ctx context.Context, id, hash string) error {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE users SET refresh_hash = ? WHERE id = ?`, hash, id)
	if err != nil {
		return fmt.Errorf("sqlite: updating refresh hash for user %s: %w", id, err)
	}
	return requireRow(res, "user", id)
}

// DecrementQuota performs an atomic compare-and-decrement. The WHERE guard
// keeps the counter from ever going negative, even under concurrent callers;
// zero rows affected means the quota was already spent.
func (db *DB) DecrementQuota(ctx context.Context, id string) error {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE users SET quota = quota - 1 WHERE id = ? AND quota > 0`, id)
	if err != nil {
		return fmt.Errorf("sqlite: decrementing quota for user %s: %w", id, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: decrementing quota for user %s: %w", id, err)
	}
	if n == 0 {
		// Either the user does not exist or the quota is zero; distinguish.
		if _, getErr := db.GetByID(ctx, id); getErr != nil {
			return getErr
		}
		return apperror.QuotaExceeded(id)
	}
	return nil
}

// RefundQuota adds the unit back when a write that consumed it failed
// afterwards.
func (db *DB) RefundQuota(ctx context.Context, id string) error {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE users SET quota = quota + 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: refunding quota for user %s: %w", id, err)
	}
	return requireRow(res, "user", id)
}

// PickMentor returns a random mentor whose category matches, excluding the
// given user ids (the mentee, and on a throw the current mentor).
func (db *DB) PickMentor(ctx context.Context, categoryName string, exclude ...string) (*model.User, error) {
	query := `SELECT ` + userColumns + `
		FROM users
		WHERE role = ?
		  AND category_id IN (SELECT id FROM categories WHERE name = ?)`
	args := []any{string(model.RoleMentor), categoryName}
	for _, id := range exclude {
		query += ` AND id != ?`
		args = append(args, id)
	}
	query += ` ORDER BY RANDOM() LIMIT 1`

	user, err := scanUser(db.conn.QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, apperror.NotFound("mentor for category", categoryName)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: picking mentor for category %q: %w", categoryName, err)
	}
	return user, nil
}

// requireRow converts a zero-rows-affected update into a NotFound error.
func requireRow(res sql.Result, resource, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound(resource, id)
	}
	return nil
}
