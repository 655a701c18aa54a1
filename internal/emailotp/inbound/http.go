package inbound

import (
	"context"

	"github.com/wardenid/warden/internal/emailotp/usecase"
	"github.com/wardenid/warden/internal/pkg/router"
)

type uc interface {
	SendVerificationOTP(ctx context.Context, in usecase.SendVerificationOTPInput) error
	VerifyEmail(ctx context.Context, in usecase.VerifyEmailInput) (*usecase.VerifyEmailOutput, error)

	Login(ctx context.Context, in usecase.LoginInput) (*usecase.LoginOutput, error)
	SignInOTP(ctx context.Context, in usecase.SignInOTPInput) (*usecase.SignInOTPOutput, error)
	PasswordReset(ctx context.Context, in usecase.PasswordResetInput) error

	ServerCreateOTP(ctx context.Context, in usecase.ServerCreateOTPInput) (*usecase.ServerCreateOTPOutput, error)
	ServerGetOTP(ctx context.Context, in usecase.ServerGetOTPInput) (*usecase.ServerGetOTPOutput, error)
}

func RegisterHTTPEndpoint(r *router.Router, uc uc) {
	end := &HTTPEndpoint{uc: uc}

	// OTP issuance & verification
	r.POST("/api/v1/otp/send", end.SendOTP)
	r.POST("/api/v1/email/verify", end.VerifyEmail)

	// Sign-in
	r.POST("/api/v1/sign-in", end.Login)
	r.POST("/api/v1/sign-in/otp", end.SignInOTP)

	// Password recovery
	r.POST("/api/v1/password/reset", end.PasswordReset)

	// Server-to-server surface, guarded by the internal API key middleware
	r.POST("/internal/api/v1/otp", end.ServerCreateOTP)
	r.GET("/internal/api/v1/otp", end.ServerGetOTP)
}
