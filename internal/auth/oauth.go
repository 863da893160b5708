package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"golang.org/x/oauth2"

	"github.com/enfdev/letterbox/internal/apperror"
)

// kakaoEndpoint is Kakao's OAuth 2.0 authorization-code endpoint pair.
// The oauth2 package has no predefined endpoint for Kakao.
var kakaoEndpoint = oauth2.Endpoint{
	AuthURL:  "https://kauth.kakao.com/oauth/authorize",
	TokenURL: "https://kauth.kakao.com/oauth/token",
}

const kakaoProfileURL = "https://kapi.kakao.com/v2/user/me"

// KakaoUser is the slice of the Kakao profile response we care about.
// Kakao returns a much larger object; only these fields are unmarshalled.
type KakaoUser struct {
	ProviderID string // Kakao's numeric user id, stringified
	Email      string // may be empty if the user withheld consent
	Nickname   string
	BirthYear  int // zero when absent or unparsable
}

// Provider is the fixed provider name recorded on users created through
// this flow.
const Provider = "kakao"

// KakaoProvider wraps golang.org/x/oauth2 for Kakao's authorization-code
// flow: redirect the user to Kakao, receive a short-lived code on the
// callback, exchange it server-to-server for a token, then fetch the profile.
type KakaoProvider struct {
	config     *oauth2.Config
	profileURL string
}

// NewKakaoProvider creates a KakaoProvider with the given app credentials.
// callbackURL must exactly match the redirect URI registered with Kakao.
func NewKakaoProvider(clientID, clientSecret, callbackURL string) *KakaoProvider {
	return &KakaoProvider{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  callbackURL,
			Scopes:       []string{"profile_nickname", "account_email", "birthyear"},
			Endpoint:     kakaoEndpoint,
		},
		profileURL: kakaoProfileURL,
	}
}

// AuthURL returns the URL to redirect the user to for authorization.
// state is a random single-use value verified on callback to prevent CSRF.
func (p *KakaoProvider) AuthURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// Exchange trades the authorization code for a Kakao user profile.
//
// A code Kakao rejects surfaces as apperror.ErrInvalidCode; everything else
// that goes wrong talking to Kakao (unreachable, 5xx, malformed body) is
// apperror.ErrProviderUnavailable. Neither is retried here.
func (p *KakaoProvider) Exchange(ctx context.Context, code string) (*KakaoUser, error) {
	token, err := p.config.Exchange(ctx, code)
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) && retrieveErr.Response != nil &&
			retrieveErr.Response.StatusCode < http.StatusInternalServerError {
			return nil, apperror.InvalidCode()
		}
		return nil, apperror.ProviderUnavailable(fmt.Sprintf("token exchange: %v", err))
	}

	client := p.config.Client(ctx, token)
	resp, err := client.Get(p.profileURL)
	if err != nil {
		return nil, apperror.ProviderUnavailable(fmt.Sprintf("fetching profile: %v", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apperror.ProviderUnavailable(fmt.Sprintf("profile endpoint returned status %d", resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperror.ProviderUnavailable(fmt.Sprintf("reading profile: %v", err))
	}

	user, err := parseKakaoProfile(body)
	if err != nil {
		return nil, apperror.ProviderUnavailable(err.Error())
	}
	return user, nil
}

// parseKakaoProfile unmarshals Kakao's /v2/user/me response.
//
// Shape (abridged):
//
//	{"id": 123, "properties": {"nickname": "..."},
//	 "kakao_account": {"email": "...", "birthyear": "1996"}}
func parseKakaoProfile(body []byte) (*KakaoUser, error) {
	var raw struct {
		ID         int64 `json:"id"`
		Properties struct {
			Nickname string `json:"nickname"`
		} `json:"properties"`
		KakaoAccount struct {
			Email     string `json:"email"`
			BirthYear string `json:"birthyear"`
		} `json:"kakao_account"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("malformed profile response: %w", err)
	}
	if raw.ID == 0 {
		return nil, errors.New("malformed profile response: missing user id")
	}

	// birthyear is a four-digit string; treat anything unparsable as absent.
	birthYear, _ := strconv.Atoi(raw.KakaoAccount.BirthYear)

	return &KakaoUser{
		ProviderID: strconv.FormatInt(raw.ID, 10),
		Email:      raw.KakaoAccount.Email,
		Nickname:   raw.Properties.Nickname,
		BirthYear:  birthYear,
	}, nil
}
