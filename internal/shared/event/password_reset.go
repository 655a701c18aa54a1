package event

const PasswordResetDestination string = "password_reset"
const PasswordResetConsumerAudit string = "password_reset_audit"

type PasswordResetMessage struct {
	UserID int64  `json:"user_id"`
	Email  string `json:"email"`
}
