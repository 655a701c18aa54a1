package event

const UserProvisionedDestination string = "user_provisioned"
const UserProvisionedConsumerAudit string = "user_provisioned_audit"

type UserProvisionedMessage struct {
	UserID int64  `json:"user_id"`
	Email  string `json:"email"`
}
