package inbound

import (
	"strings"

	"github.com/wardenid/warden/internal/emailotp/entity"
	"github.com/wardenid/warden/internal/emailotp/usecase"
	"github.com/wardenid/warden/internal/pkg/goerror"
	"github.com/wardenid/warden/internal/pkg/router"
)

// HTTPEndpoint exposes HTTP handlers for passcode issuance and sign-in flows.
type HTTPEndpoint struct {
	uc uc
}

func (h *HTTPEndpoint) purposeFromString(raw string) (entity.Purpose, error) {
	p := entity.PurposeFromString(raw)
	if p.IsUnknown() {
		return p, goerror.NewInvalidInput(nil, "purpose", "must be one of "+strings.Join(purposeNames(), ", "))
	}
	return p, nil
}

// SendOTP issues a one-time code and emails it to the given address.
// @Summary Send a one-time code
// @Description Generates a numeric code for the email and purpose, supersedes any previous code for the pair, and delivers it by email.
// @Tags EmailOTP
// @Accept json
// @Produce json
// @Param request body SendOTPRequest true "Send payload"
// @Success 200 {object} router.successResponse "Code sent"
// @Failure 400 {object} router.errorResponse "Invalid request body"
// @Failure 422 {object} router.errorResponse "Invalid email or purpose"
// @Failure 500 {object} router.errorResponse "Delivery failure"
// @Router /api/v1/otp/send [post]
func (h *HTTPEndpoint) SendOTP(r *router.Request) (any, error) {
	var req SendOTPRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	purpose, err := h.purposeFromString(req.Purpose)
	if err != nil {
		return nil, err
	}

	if err := h.uc.SendVerificationOTP(r.Context(), usecase.SendVerificationOTPInput{
		Email:   req.Email,
		Purpose: purpose,
	}); err != nil {
		return nil, err
	}

	return SendOTPResponse{}, nil
}

// VerifyEmail consumes an email-verification code and marks the email verified.
// @Summary Verify an email address
// @Description Validates the code issued for the email-verification purpose and marks the user's email verified. May start a session when auto sign-in is enabled.
// @Tags EmailOTP
// @Accept json
// @Produce json
// @Param request body VerifyEmailRequest true "Verification payload"
// @Success 200 {object} router.successResponse{data=VerifyEmailResponse} "Verification result"
// @Failure 400 {object} router.errorResponse "Invalid request body"
// @Failure 401 {object} router.errorResponse "Missing, expired, or wrong code"
// @Failure 404 {object} router.errorResponse "Unknown user"
// @Router /api/v1/email/verify [post]
func (h *HTTPEndpoint) VerifyEmail(r *router.Request) (any, error) {
	var req VerifyEmailRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	resp, err := h.uc.VerifyEmail(r.Context(), usecase.VerifyEmailInput{
		Email: req.Email,
		Code:  req.Code,
	})
	if err != nil {
		return nil, err
	}

	out := VerifyEmailResponse{
		Verified:    resp.Verified,
		AccessToken: resp.AccessToken,
	}
	if resp.SessionToken != "" {
		out.sessionCookie = sessionCookie(resp.CookieName, resp.SessionToken, resp.SessionExpiry)
	}

	return out, nil
}

// Login authenticates with email and password.
// @Summary Sign in with a password
// @Description Validates the password and starts a session. The session token is set as an HTTP-only cookie.
// @Tags EmailOTP, Authentication
// @Accept json
// @Produce json
// @Param request body SignInRequest true "Sign-in payload"
// @Success 200 {object} router.successResponse{data=SignInResponse} "Authentication result"
// @Failure 400 {object} router.errorResponse "Invalid request body"
// @Failure 401 {object} router.errorResponse "Wrong email or password"
// @Router /api/v1/sign-in [post]
func (h *HTTPEndpoint) Login(r *router.Request) (any, error) {
	var req SignInRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	resp, err := h.uc.Login(r.Context(), usecase.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return nil, err
	}

	return SignInResponse{
		UserID:        resp.UserID,
		Email:         resp.Email,
		AccessToken:   resp.AccessToken,
		sessionCookie: sessionCookie(resp.CookieName, resp.SessionToken, resp.SessionExpiry),
	}, nil
}

// SignInOTP authenticates with a sign-in code, provisioning the user if needed.
// @Summary Sign in with a one-time code
// @Description Validates the code issued for the sign-in purpose and starts a session. Creates the account on first sign-in.
// @Tags EmailOTP, Authentication
// @Accept json
// @Produce json
// @Param request body SignInOTPRequest true "OTP sign-in payload"
// @Success 200 {object} router.successResponse{data=SignInOTPResponse} "Authentication result"
// @Failure 400 {object} router.errorResponse "Invalid request body"
// @Failure 401 {object} router.errorResponse "Missing, expired, or wrong code"
// @Failure 500 {object} router.errorResponse "Account provisioning failure"
// @Router /api/v1/sign-in/otp [post]
func (h *HTTPEndpoint) SignInOTP(r *router.Request) (any, error) {
	var req SignInOTPRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	resp, err := h.uc.SignInOTP(r.Context(), usecase.SignInOTPInput{
		Email: req.Email,
		Code:  req.Code,
	})
	if err != nil {
		return nil, err
	}

	return SignInOTPResponse{
		UserID:        resp.UserID,
		Email:         resp.Email,
		NewUser:       resp.NewUser,
		AccessToken:   resp.AccessToken,
		sessionCookie: sessionCookie(resp.CookieName, resp.SessionToken, resp.SessionExpiry),
	}, nil
}

// PasswordReset sets a new password after validating a forget-password code.
// @Summary Reset a forgotten password
// @Description Validates the code issued for the forget-password purpose, stores the new password, and revokes existing sessions.
// @Tags EmailOTP
// @Accept json
// @Produce json
// @Param request body PasswordResetRequest true "Password reset payload"
// @Success 200 {object} router.successResponse "Password reset"
// @Failure 400 {object} router.errorResponse "Invalid request body"
// @Failure 401 {object} router.errorResponse "Missing, expired, or wrong code"
// @Failure 422 {object} router.errorResponse "Weak password"
// @Router /api/v1/password/reset [post]
func (h *HTTPEndpoint) PasswordReset(r *router.Request) (any, error) {
	var req PasswordResetRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	if err := h.uc.PasswordReset(r.Context(), usecase.PasswordResetInput{
		Email:       req.Email,
		Code:        req.Code,
		NewPassword: req.NewPassword,
	}); err != nil {
		return nil, err
	}

	return PasswordResetResponse{}, nil
}

// ServerCreateOTP issues a code for a trusted server caller and returns it.
// @Summary Create a code server-side
// @Description Issues a code for the email and purpose and returns it in the response instead of emailing it. Requires the internal API key.
// @Tags EmailOTP, Server
// @Accept json
// @Produce json
// @Param request body ServerCreateOTPRequest true "Creation payload"
// @Success 200 {object} router.successResponse{data=ServerCreateOTPResponse} "Issued code"
// @Failure 400 {object} router.errorResponse "Invalid request body"
// @Failure 403 {object} router.errorResponse "Missing or wrong internal API key"
// @Router /internal/api/v1/otp [post]
func (h *HTTPEndpoint) ServerCreateOTP(r *router.Request) (any, error) {
	var req ServerCreateOTPRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	purpose, err := h.purposeFromString(req.Purpose)
	if err != nil {
		return nil, err
	}

	resp, err := h.uc.ServerCreateOTP(r.Context(), usecase.ServerCreateOTPInput{
		Email:   req.Email,
		Purpose: purpose,
	})
	if err != nil {
		return nil, err
	}

	return ServerCreateOTPResponse{
		Code:      resp.Code,
		ExpiresAt: resp.ExpiresAt.Unix(),
	}, nil
}

// ServerGetOTP reports the live code for an email and purpose.
// @Summary Read the live code server-side
// @Description Returns the code that would currently verify for the email and purpose, or found=false when none would. Requires the internal API key.
// @Tags EmailOTP, Server
// @Produce json
// @Param email query string true "Email address"
// @Param purpose query string true "Code purpose"
// @Success 200 {object} router.successResponse{data=ServerGetOTPResponse} "Lookup result"
// @Failure 403 {object} router.errorResponse "Missing or wrong internal API key"
// @Router /internal/api/v1/otp [get]
func (h *HTTPEndpoint) ServerGetOTP(r *router.Request) (any, error) {
	purpose, err := h.purposeFromString(r.GetQuery("purpose"))
	if err != nil {
		return nil, err
	}

	resp, err := h.uc.ServerGetOTP(r.Context(), usecase.ServerGetOTPInput{
		Email:   r.GetQuery("email"),
		Purpose: purpose,
	})
	if err != nil {
		return nil, err
	}

	out := ServerGetOTPResponse{Found: resp.Found}
	if resp.Found {
		out.Code = resp.Code
		out.ExpiresAt = resp.ExpiresAt.Unix()
	}

	return out, nil
}
