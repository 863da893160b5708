package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/enfdev/letterbox/internal/apperror"
	"github.com/enfdev/letterbox/internal/auth"
	"github.com/enfdev/letterbox/internal/model"
)

const testJWTSecret = "test-secret-must-be-at-least-32-bytes!!"

func newTestAuthService(t *testing.T, kakao *fakeKakao, users *fakeUserRepo) *AuthService {
	t.Helper()
	tokens, err := auth.NewTokenService(testJWTSecret)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	return NewAuthService(kakao, users, newFakeRefRepo(), tokens, auth.NewSecretHasherForTest(4), testLogger())
}

func TestAuthenticate_Signup(t *testing.T) {
	users := newFakeUserRepo()
	kakao := &fakeKakao{user: &auth.KakaoUser{
		ProviderID: "kakao-123",
		Email:      "mentee@example.com",
		Nickname:   "kim",
		BirthYear:  1999,
	}}
	svc := newTestAuthService(t, kakao, users)

	result, err := svc.Authenticate(context.Background(), "some-code")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if !result.IsNew {
		t.Error("expected IsNew=true for a first-time provider ID")
	}
	if result.User.ID == "" {
		t.Error("expected a user ID to be assigned")
	}
	if result.User.Email != "mentee@example.com" || result.User.BirthYear != 1999 {
		t.Errorf("profile fields not carried over: %+v", result.User)
	}
	if result.AccessToken == "" || result.RefreshToken == "" {
		t.Error("expected both tokens to be issued")
	}

	// The refresh token must name the created user and match the stored hash.
	userID, _, err := auth.ParseRefreshToken(result.RefreshToken)
	if err != nil {
		t.Fatalf("ParseRefreshToken: %v", err)
	}
	if userID != result.User.ID {
		t.Errorf("refresh token user = %q, want %q", userID, result.User.ID)
	}
	stored, _ := users.GetByID(context.Background(), result.User.ID)
	if stored.RefreshHash == "" {
		t.Error("expected refresh hash to be stored")
	}
	if stored.Quota != model.DefaultQuota {
		t.Errorf("new user quota = %d, want %d", stored.Quota, model.DefaultQuota)
	}
}

func TestAuthenticate_Login(t *testing.T) {
	users := newFakeUserRepo()
	existing := users.add(&model.User{
		Provider:    auth.Provider,
		ProviderID:  "kakao-123",
		Nickname:    "kim",
		LastLoginAt: time.Now().Add(-24 * time.Hour),
	})
	kakao := &fakeKakao{user: &auth.KakaoUser{ProviderID: "kakao-123", Nickname: "kim"}}
	svc := newTestAuthService(t, kakao, users)

	result, err := svc.Authenticate(context.Background(), "some-code")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if result.IsNew {
		t.Error("expected IsNew=false for a known provider ID")
	}
	if result.User.ID != existing.ID {
		t.Errorf("authenticated as %q, want existing user %q", result.User.ID, existing.ID)
	}
	if len(users.users) != 1 {
		t.Errorf("user count = %d, want 1 (login must not create)", len(users.users))
	}

	stored, _ := users.GetByID(context.Background(), existing.ID)
	if time.Since(stored.LastLoginAt) > time.Minute {
		t.Errorf("last login not refreshed: %v", stored.LastLoginAt)
	}
}

func TestAuthenticate_ProviderError(t *testing.T) {
	svc := newTestAuthService(t, &fakeKakao{err: apperror.InvalidCode()}, newFakeUserRepo())

	_, err := svc.Authenticate(context.Background(), "bad-code")
	if !errors.Is(err, apperror.ErrInvalidCode) {
		t.Errorf("expected ErrInvalidCode, got %v", err)
	}
}

func TestAuthenticate_EmptyCode(t *testing.T) {
	svc := newTestAuthService(t, &fakeKakao{}, newFakeUserRepo())

	_, err := svc.Authenticate(context.Background(), "  ")
	if !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
}

func TestRefresh_RoundTrip(t *testing.T) {
	users := newFakeUserRepo()
	kakao := &fakeKakao{user: &auth.KakaoUser{ProviderID: "kakao-123", Nickname: "kim"}}
	svc := newTestAuthService(t, kakao, users)

	first, err := svc.Authenticate(context.Background(), "some-code")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}

	second, err := svc.Refresh(context.Background(), first.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if second.AccessToken == "" || second.RefreshToken == "" {
		t.Error("expected a fresh token pair")
	}
	if second.RefreshToken == first.RefreshToken {
		t.Error("refresh must rotate the refresh token")
	}

	// Rotation invalidates the previous token.
	if _, err := svc.Refresh(context.Background(), first.RefreshToken); !errors.Is(err, apperror.ErrForbidden) {
		t.Errorf("expected ErrForbidden for a rotated-out token, got %v", err)
	}
}

func TestRefresh_Garbage(t *testing.T) {
	svc := newTestAuthService(t, &fakeKakao{}, newFakeUserRepo())

	for _, token := range []string{"", "no-separator", "unknown-user.secret"} {
		if _, err := svc.Refresh(context.Background(), token); !errors.Is(err, apperror.ErrForbidden) {
			t.Errorf("Refresh(%q): expected ErrForbidden, got %v", token, err)
		}
	}
}

func TestRefresh_AfterLogout(t *testing.T) {
	users := newFakeUserRepo()
	kakao := &fakeKakao{user: &auth.KakaoUser{ProviderID: "kakao-123"}}
	svc := newTestAuthService(t, kakao, users)

	result, err := svc.Authenticate(context.Background(), "some-code")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if err := svc.Logout(context.Background(), result.User.ID); err != nil {
		t.Fatalf("Logout: %v", err)
	}

	if _, err := svc.Refresh(context.Background(), result.RefreshToken); !errors.Is(err, apperror.ErrForbidden) {
		t.Errorf("expected ErrForbidden after logout, got %v", err)
	}
}

func TestCompleteProfile(t *testing.T) {
	users := newFakeUserRepo()
	user := users.add(&model.User{Provider: auth.Provider, ProviderID: "kakao-123", Nickname: "kim"})
	svc := newTestAuthService(t, &fakeKakao{}, users)

	updated, err := svc.CompleteProfile(context.Background(), user.ID, ProfileParams{
		Nickname:     "nightowl",
		Role:         "MENTOR",
		BirdName:     "owl",
		CategoryName: "career",
	})
	if err != nil {
		t.Fatalf("CompleteProfile: %v", err)
	}
	if updated.Nickname != "nightowl" || updated.Role != model.RoleMentor {
		t.Errorf("profile not applied: %+v", updated)
	}
	if updated.BirdID != "bird:owl" || updated.CategoryID != "cat:career" {
		t.Errorf("bird/category not resolved: %+v", updated)
	}

	// The role is immutable once set.
	_, err = svc.CompleteProfile(context.Background(), user.ID, ProfileParams{
		Nickname: "other", Role: "MENTEE", BirdName: "owl", CategoryName: "career",
	})
	if !errors.Is(err, apperror.ErrConflict) {
		t.Errorf("expected ErrConflict on second completion, got %v", err)
	}
}

func TestCompleteProfile_Invalid(t *testing.T) {
	users := newFakeUserRepo()
	user := users.add(&model.User{Provider: auth.Provider, ProviderID: "kakao-123"})
	users.add(&model.User{Provider: auth.Provider, ProviderID: "kakao-456", Nickname: "taken"})
	svc := newTestAuthService(t, &fakeKakao{}, users)

	base := ProfileParams{Nickname: "fresh", Role: "MENTEE", BirdName: "owl", CategoryName: "career"}

	tests := []struct {
		name   string
		mutate func(p *ProfileParams)
		want   error
	}{
		{"empty nickname", func(p *ProfileParams) { p.Nickname = " " }, apperror.ErrValidation},
		{"bad role", func(p *ProfileParams) { p.Role = "ADMIN" }, apperror.ErrValidation},
		{"unknown bird", func(p *ProfileParams) { p.BirdName = "dodo" }, apperror.ErrNotFound},
		{"unknown category", func(p *ProfileParams) { p.CategoryName = "crypto" }, apperror.ErrNotFound},
		{"taken nickname", func(p *ProfileParams) { p.Nickname = "taken" }, apperror.ErrConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := base
			tt.mutate(&p)
			if _, err := svc.CompleteProfile(context.Background(), user.ID, p); !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestCheckNickname(t *testing.T) {
	users := newFakeUserRepo()
	users.add(&model.User{Provider: auth.Provider, ProviderID: "kakao-123", Nickname: "taken"})
	svc := newTestAuthService(t, &fakeKakao{}, users)

	available, err := svc.CheckNickname(context.Background(), "fresh")
	if err != nil {
		t.Fatalf("CheckNickname: %v", err)
	}
	if !available {
		t.Error("expected unused nickname to be available")
	}

	available, err = svc.CheckNickname(context.Background(), "taken")
	if err != nil {
		t.Fatalf("CheckNickname: %v", err)
	}
	if available {
		t.Error("expected used nickname to be unavailable")
	}

	if _, err := svc.CheckNickname(context.Background(), ""); !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("expected ErrValidation for empty nickname, got %v", err)
	}
}
