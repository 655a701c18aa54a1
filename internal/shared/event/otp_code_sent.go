package event

const OTPCodeSentDestination string = "otp_code_sent"
const OTPCodeSentConsumerAudit string = "otp_code_sent_audit"

type OTPCodeSentMessage struct {
	Email     string `json:"email"`
	Purpose   string `json:"purpose"`
	ExpiresAt int64  `json:"expires_at"`
}
