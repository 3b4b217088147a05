package flows

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/adminauth/account"
)

// RunSetAccountStatus enables or disables an account. Disabling also empties
// the refresh-token whitelist so no session outlives the change; access
// tokens already issued stay valid until they expire. changed is false when
// the account already had the requested status.
func RunSetAccountStatus(ctx context.Context, accountID string, active bool, deps AccountDeps) (changed bool, err error) {
	if deps.Now == nil {
		deps.Now = time.Now
	}

	current, err := deps.FindByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return false, deps.Errors.AccountNotFound
		}
		return false, err
	}

	if current.IsActive != active {
		if err := deps.SetActive(ctx, accountID, active, deps.Now()); err != nil {
			if errors.Is(err, account.ErrNotFound) {
				return false, deps.Errors.AccountNotFound
			}
			return false, err
		}
		changed = true
	}

	// Cleared even when already disabled, in case tokens were added by a
	// login that raced the previous disable.
	if !active {
		if err := deps.ClearAllRefreshTokens(ctx, accountID); err != nil {
			return changed, err
		}
	}
	return changed, nil
}
