// Package service contains the business logic layer. Handlers parse HTTP,
// services enforce the rules, repositories persist. Services accept the
// repository interfaces and return apperror values; they know nothing about
// HTTP.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/enfdev/letterbox/internal/apperror"
	"github.com/enfdev/letterbox/internal/auth"
	"github.com/enfdev/letterbox/internal/model"
	"github.com/enfdev/letterbox/internal/repository"
)

// MaxNicknameLength bounds chosen nicknames.
const MaxNicknameLength = 20

// KakaoAuthenticator is the slice of auth.KakaoProvider the service needs.
// Tests substitute a fake.
type KakaoAuthenticator interface {
	Exchange(ctx context.Context, code string) (*auth.KakaoUser, error)
}

// AuthService orchestrates the OAuth sign-up/login flow, token refresh, and
// the post-signup profile completion.
type AuthService struct {
	provider KakaoAuthenticator
	users    repository.UserRepository
	refs     repository.ReferenceRepository
	tokens   *auth.TokenService
	hasher   *auth.SecretHasher
	logger   *slog.Logger
}

func NewAuthService(
	provider KakaoAuthenticator,
	users repository.UserRepository,
	refs repository.ReferenceRepository,
	tokens *auth.TokenService,
	hasher *auth.SecretHasher,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		provider: provider,
		users:    users,
		refs:     refs,
		tokens:   tokens,
		hasher:   hasher,
		logger:   logger,
	}
}

// AuthResult bundles the authenticated user with the issued tokens so the
// handler can set both cookies in one step.
type AuthResult struct {
	User         *model.User
	IsNew        bool // true on signup, false on login
	AccessToken  string
	RefreshToken string
}

// Authenticate exchanges the authorization code for a Kakao profile and
// signs the user up or in.
//
// A previously unseen (provider, providerId) creates exactly one user with
// creation and last-login timestamps set to now; a known pair only bumps
// last-login. Either way a fresh access/refresh pair is issued and the
// stored refresh hash is replaced, so earlier refresh tokens stop working.
func (s *AuthService) Authenticate(ctx context.Context, code string) (*AuthResult, error) {
	if strings.TrimSpace(code) == "" {
		return nil, apperror.ValidationFailed("code", "authorization code is required")
	}

	profile, err := s.provider.Exchange(ctx, code)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	isNew := false

	user, err := s.users.GetByProvider(ctx, auth.Provider, profile.ProviderID)
	switch {
	case err == nil:
		if err := s.users.UpdateLastLogin(ctx, user.ID, now); err != nil {
			return nil, fmt.Errorf("service/auth: updating last login for user %s: %w", user.ID, err)
		}
		user.LastLoginAt = now

	case errors.Is(err, apperror.ErrNotFound):
		isNew = true
		user = &model.User{
			Provider:    auth.Provider,
			ProviderID:  profile.ProviderID,
			Email:       profile.Email,
			Nickname:    profile.Nickname,
			BirthYear:   profile.BirthYear,
			CreatedAt:   now,
			LastLoginAt: now,
		}
		if err := s.users.Create(ctx, user); err != nil {
			return nil, fmt.Errorf("service/auth: creating user (providerID=%s): %w", profile.ProviderID, err)
		}
		s.logger.Info("user signed up",
			slog.String("userID", user.ID),
			slog.String("provider", auth.Provider),
		)

	default:
		return nil, fmt.Errorf("service/auth: looking up user (providerID=%s): %w", profile.ProviderID, err)
	}

	result, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, err
	}
	result.IsNew = isNew

	s.logger.Info("user authenticated",
		slog.String("userID", user.ID),
		slog.Bool("signup", isNew),
	)
	return result, nil
}

// Refresh validates a refresh token against the stored hash and rotates the
// access/refresh pair. A token that does not match the current hash, for
// example after a newer login, is rejected.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*AuthResult, error) {
	userID, secret, err := auth.ParseRefreshToken(refreshToken)
	if err != nil {
		return nil, apperror.Forbidden("invalid refresh token")
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.Forbidden("invalid refresh token")
		}
		return nil, fmt.Errorf("service/auth: fetching user %s: %w", userID, err)
	}

	if user.RefreshHash == "" || s.hasher.Verify(user.RefreshHash, secret) != nil {
		return nil, apperror.Forbidden("invalid refresh token")
	}

	return s.issueTokens(ctx, user)
}

// Logout clears the stored refresh hash, invalidating any outstanding
// refresh token. The access JWT simply ages out.
func (s *AuthService) Logout(ctx context.Context, userID string) error {
	if err := s.users.UpdateRefreshHash(ctx, userID, ""); err != nil {
		return fmt.Errorf("service/auth: clearing refresh hash for user %s: %w", userID, err)
	}
	return nil
}

func (s *AuthService) issueTokens(ctx context.Context, user *model.User) (*AuthResult, error) {
	accessToken, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating access token for user %s: %w", user.ID, err)
	}

	secret := auth.NewRefreshSecret()
	hash, err := s.hasher.Hash(secret)
	if err != nil {
		return nil, fmt.Errorf("service/auth: hashing refresh secret: %w", err)
	}
	if err := s.users.UpdateRefreshHash(ctx, user.ID, hash); err != nil {
		return nil, fmt.Errorf("service/auth: storing refresh hash for user %s: %w", user.ID, err)
	}
	user.RefreshHash = hash

	return &AuthResult{
		User:         user,
		AccessToken:  accessToken,
		RefreshToken: auth.FormatRefreshToken(user.ID, secret),
	}, nil
}

// GetUserByID returns the user for the given internal ID. Used by /api/me.
func (s *AuthService) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	if id == "" {
		return nil, apperror.ValidationFailed("id", "user ID is required")
	}
	return s.users.GetByID(ctx, id)
}

// ProfileParams carries the profile-completion fields chosen after signup.
type ProfileParams struct {
	Nickname     string
	Role         string
	BirdName     string
	CategoryName string
}

// CompleteProfile assigns nickname, role, bird, and category to a freshly
// signed-up user. The role is immutable once assigned: a second completion
// attempt fails with Conflict.
func (s *AuthService) CompleteProfile(ctx context.Context, userID string, p ProfileParams) (*model.User, error) {
	nickname := strings.TrimSpace(p.Nickname)
	if nickname == "" {
		return nil, apperror.ValidationFailed("nickname", "nickname is required")
	}
	if len(nickname) > MaxNicknameLength {
		return nil, apperror.ValidationFailed("nickname",
			fmt.Sprintf("nickname must be %d characters or less", MaxNicknameLength))
	}
	role, err := model.ParseRole(p.Role)
	if err != nil {
		return nil, apperror.ValidationFailed("role", "role must be MENTEE or MENTOR")
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.Role.Valid() {
		return nil, apperror.Conflict("user", "role is already assigned")
	}

	if nickname != user.Nickname {
		taken, err := s.users.ExistsByNickname(ctx, nickname)
		if err != nil {
			return nil, fmt.Errorf("service/auth: checking nickname %q: %w", nickname, err)
		}
		if taken {
			return nil, apperror.Conflict("nickname", "already taken")
		}
	}

	bird, err := s.refs.GetBirdByName(ctx, p.BirdName)
	if err != nil {
		return nil, err
	}
	category, err := s.refs.GetCategoryByName(ctx, p.CategoryName)
	if err != nil {
		return nil, err
	}

	err = s.users.UpdateProfile(ctx, userID, repository.UpdateProfileParams{
		Nickname:   &nickname,
		Role:       &role,
		BirdID:     &bird.ID,
		CategoryID: &category.ID,
	})
	if err != nil {
		return nil, fmt.Errorf("service/auth: updating profile for user %s: %w", userID, err)
	}

	s.logger.Info("profile completed",
		slog.String("userID", userID),
		slog.String("role", string(role)),
	)

	return s.users.GetByID(ctx, userID)
}

// CheckNickname reports whether a nickname is still available.
func (s *AuthService) CheckNickname(ctx context.Context, nickname string) (bool, error) {
	nickname = strings.TrimSpace(nickname)
	if nickname == "" {
		return false, apperror.ValidationFailed("nickname", "nickname is required")
	}
	taken, err := s.users.ExistsByNickname(ctx, nickname)
	if err != nil {
		return false, fmt.Errorf("service/auth: checking nickname %q: %w", nickname, err)
	}
	return !taken, nil
}

// ProfileOptions lists the birds and categories offered on the profile
// completion form.
func (s *AuthService) ProfileOptions(ctx context.Context) ([]model.Bird, []model.Category, error) {
	birds, err := s.refs.ListBirds(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("service/auth: listing birds: %w", err)
	}
	categories, err := s.refs.ListCategories(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("service/auth: listing categories: %w", err)
	}
	return birds, categories, nil
}
