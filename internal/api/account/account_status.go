package account

import (
	"github.com/nepabhay/account-service/internal/types"
)

// Classify decides whether a login attempt may proceed for the given account,
// before any credential verification happens. It is a pure function of the
// account state: no I/O, no side effects.
//
// Precedence, first match wins:
//  1. nil account: Allowed. The caller's credential check fails on its own,
//     which avoids leaking which identifiers exist.
//  2. blocked
//  3. deletion requested (regardless of elapsed grace time)
//  4. deactivated, with AllowLogin=true so the owner can reach the
//     reactivation flow
//  5. unverified email, when verification is required by configuration
func Classify(acct *types.Account, requireVerifiedEmail bool) types.LoginDecision {
	if acct == nil {
		return types.DecisionAllowed()
	}

	if acct.IsBlocked {
		reason := ""
		if acct.BlockReason != nil {
			reason = *acct.BlockReason
		}
		return types.DecisionBlocked(reason)
	}

	if acct.DeletionRequestedAt != nil {
		return types.DecisionDeletionRequested()
	}

	if !acct.IsActive || acct.DeactivatedAt != nil {
		return types.DecisionDeactivated()
	}

	if requireVerifiedEmail && !acct.EmailVerified() {
		return types.DecisionEmailUnverified()
	}

	return types.DecisionAllowed()
}
