package inbound

import (
	"net/http"
	"time"

	"github.com/samber/lo"
	"github.com/wardenid/warden/internal/emailotp/entity"
)

type SendOTPRequest struct {
	Email   string `json:"email"`
	Purpose string `json:"purpose"`
}

type SendOTPResponse struct{}

func (SendOTPResponse) Message() string {
	return "If an account with that email exists, we have sent a verification code."
}

type VerifyEmailRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

type VerifyEmailResponse struct {
	Verified    bool   `json:"verified"`
	AccessToken string `json:"access_token,omitempty"`

	sessionCookie *http.Cookie
}

func (r VerifyEmailResponse) Cookies() []*http.Cookie {
	if r.sessionCookie == nil {
		return nil
	}
	return []*http.Cookie{r.sessionCookie}
}

type SignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type SignInResponse struct {
	UserID      int64  `json:"user_id,string"`
	Email       string `json:"email"`
	AccessToken string `json:"access_token"`

	sessionCookie *http.Cookie
}

func (r SignInResponse) Cookies() []*http.Cookie {
	return []*http.Cookie{r.sessionCookie}
}

type SignInOTPRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

type SignInOTPResponse struct {
	UserID      int64  `json:"user_id,string"`
	Email       string `json:"email"`
	NewUser     bool   `json:"new_user"`
	AccessToken string `json:"access_token"`

	sessionCookie *http.Cookie
}

func (r SignInOTPResponse) Cookies() []*http.Cookie {
	return []*http.Cookie{r.sessionCookie}
}

type PasswordResetRequest struct {
	Email       string `json:"email"`
	Code        string `json:"code"`
	NewPassword string `json:"new_password"`
}

type PasswordResetResponse struct{}

func (PasswordResetResponse) Message() string {
	return "Password has been reset. Sign in with your new password."
}

type ServerCreateOTPRequest struct {
	Email   string `json:"email"`
	Purpose string `json:"purpose"`
}

type ServerCreateOTPResponse struct {
	Code      string `json:"code"`
	ExpiresAt int64  `json:"expires_at"`
}

type ServerGetOTPResponse struct {
	Found     bool   `json:"found"`
	Code      string `json:"code,omitempty"`
	ExpiresAt int64  `json:"expires_at,omitempty"`
}

// purposeNames lists the accepted purpose strings, for error payloads.
func purposeNames() []string {
	return lo.Map(entity.Purposes(), func(p entity.Purpose, _ int) string {
		return p.String()
	})
}

// sessionCookie builds the session cookie under whatever name the session
// issuer reports; the handler never assumes a fixed cookie name.
func sessionCookie(name, token string, expiresAt time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	}
}
