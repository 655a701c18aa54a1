package entity

// Purpose is the closed set of uses an OTP can be issued for.
//
// A code issued for one purpose never validates a request made for another
// purpose, even on the same email.
type Purpose int16

const (
	PurposeUnknown           Purpose = 0
	PurposeSignIn            Purpose = 1
	PurposeEmailVerification Purpose = 2
	PurposeForgetPassword    Purpose = 3
)

func PurposeFromString(str string) Purpose {
	switch str {
	case "sign-in":
		return PurposeSignIn
	case "email-verification":
		return PurposeEmailVerification
	case "forget-password":
		return PurposeForgetPassword
	default:
		return PurposeUnknown
	}
}

func (p Purpose) String() string {
	switch p {
	case PurposeSignIn:
		return "sign-in"
	case PurposeEmailVerification:
		return "email-verification"
	case PurposeForgetPassword:
		return "forget-password"
	default:
		return "unknown"
	}
}

func (p Purpose) IsUnknown() bool {
	switch p {
	case PurposeSignIn, PurposeEmailVerification, PurposeForgetPassword:
		return false
	default:
		return true
	}
}

// Purposes lists every valid purpose, in a stable order.
func Purposes() []Purpose {
	return []Purpose{PurposeSignIn, PurposeEmailVerification, PurposeForgetPassword}
}

type UserStatus int16

const (
	// UserStatusUnknown is mean status is not known / not set.
	UserStatusUnknown UserStatus = 0

	// UserStatusActive mean user is allowed to use the app.
	UserStatusActive UserStatus = 1

	// UserStatusBanned mean user is blocked from using the app (policy/abuse/etc).
	UserStatusBanned UserStatus = 2

	// UserStatusInactive mean user is not currently active (e.g., deactivated, closed).
	UserStatusInactive UserStatus = 3
)

func (us UserStatus) String() string {
	switch us {
	case UserStatusActive:
		return "Active"
	case UserStatusBanned:
		return "Banned"
	case UserStatusInactive:
		return "Inactive"
	default:
		return "Unknown"
	}
}

func (us UserStatus) Ensure() UserStatus {
	switch us {
	case UserStatusActive, UserStatusBanned, UserStatusInactive:
		return us
	default:
		return UserStatusUnknown
	}
}
