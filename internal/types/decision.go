package types

// LoginStatus identifies the blocking condition (if any) that applies to a
// login attempt. Values double as the machine-readable reason codes on the
// wire.
type LoginStatus string

const (
	StatusAllowed           LoginStatus = "ACCOUNT_OK"
	StatusBlocked           LoginStatus = "ACCOUNT_BLOCKED"
	StatusDeletionRequested LoginStatus = "ACCOUNT_DELETION_REQUESTED"
	StatusDeactivated       LoginStatus = "ACCOUNT_DEACTIVATED"
	StatusEmailUnverified   LoginStatus = "EMAIL_NOT_VERIFIED"
)

// LoginDecision is the classification of an account prior to credential
// verification. AllowLogin reports whether authentication may still complete:
// true for Allowed and for Deactivated (so the owner can reach the
// reactivation flow), false for every other status.
type LoginDecision struct {
	Status      LoginStatus `json:"status"`
	AllowLogin  bool        `json:"allow_login"`
	BlockReason string      `json:"block_reason,omitempty"`
}

// Decided convenience constructors keep call sites uniform.

func DecisionAllowed() LoginDecision {
	return LoginDecision{Status: StatusAllowed, AllowLogin: true}
}

func DecisionBlocked(reason string) LoginDecision {
	return LoginDecision{Status: StatusBlocked, BlockReason: reason}
}

func DecisionDeletionRequested() LoginDecision {
	return LoginDecision{Status: StatusDeletionRequested}
}

func DecisionDeactivated() LoginDecision {
	return LoginDecision{Status: StatusDeactivated, AllowLogin: true}
}

func DecisionEmailUnverified() LoginDecision {
	return LoginDecision{Status: StatusEmailUnverified}
}
