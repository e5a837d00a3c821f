package lockup

import (
	"context"
	"errors"
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/neargov/gateway/internal/common"
	"github.com/neargov/gateway/internal/config"
	"github.com/neargov/gateway/pkg/gov"
)

// Resolver maps a user account to its lockup sub-account and fetches
// lockup-scoped balances. Every per-field RPC failure inside FetchInfo
// degrades to a documented default: partial data beats total failure.
type Resolver struct {
	caller gov.Caller
	cfg    *config.Config

	now func() time.Time
}

func NewResolver(caller gov.Caller, cfg *config.Config) *Resolver {
	return &Resolver{
		caller: caller,
		cfg:    cfg,
		now:    time.Now,
	}
}

// Resolve returns the lockup account id registered for the user, or
// an empty string when the user has never had a lockup. An empty view
// result is not an error here.
func (r *Resolver) Resolve(ctx context.Context, accountID string) (string, error) {
	venear, err := r.cfg.RequireVenear()
	if err != nil {
		return "", err
	}

	lockupID, err := gov.View[string](ctx, r.caller, venear, "get_lockup_account_id", map[string]any{
		"account_id": accountID,
	})
	if err != nil {
		if errors.Is(err, gov.ErrEmptyResult) {
			return "", nil
		}

		return "", err
	}

	return lockupID, nil
}

// balanceView fetches a U128 view, defaulting to "0" on any failure.
func (r *Resolver) balanceView(ctx context.Context, contractID, method string) string {
	v, err := gov.View[string](ctx, r.caller, contractID, method, nil)
	if err != nil {
		log.Default().Printf("lockup: %s.%s failed, defaulting to 0: %v", contractID, method, err)
		return "0"
	}

	return v
}

// stringView fetches an optional string view, defaulting to empty.
func (r *Resolver) stringView(ctx context.Context, contractID, method string) string {
	v, err := gov.View[string](ctx, r.caller, contractID, method, nil)
	if err != nil {
		if !errors.Is(err, gov.ErrEmptyResult) {
			log.Default().Printf("lockup: %s.%s failed, defaulting to none: %v", contractID, method, err)
		}
		return ""
	}

	return v
}

// FetchInfo builds the full lockup snapshot for an account. Only a
// missing contract id is fatal; everything else degrades per field.
func (r *Resolver) FetchInfo(ctx context.Context, accountID string) (*gov.LockupInfo, error) {
	venear, err := r.cfg.RequireVenear()
	if err != nil {
		return nil, err
	}

	lockupID, err := r.Resolve(ctx, accountID)
	if err != nil {
		log.Default().Printf("lockup: resolving %s failed, treating as no lockup: %v", accountID, err)
		lockupID = ""
	}

	info := &gov.LockupInfo{
		LockupID:              lockupID,
		LockedAmount:          gov.NewBalance("0"),
		LiquidOwnersBalance:   gov.NewBalance("0"),
		LiquidAmount:          gov.NewBalance("0"),
		WithdrawableAmount:    gov.NewBalance("0"),
		PendingAmount:         gov.NewBalance("0"),
		KnownDepositedBalance: gov.NewBalance("0"),
	}

	// Cost views live on the veNEAR contract and are wanted even when
	// no lockup exists yet: the client needs them to deploy one.
	registrationCost := "0"
	deploymentCost := "0"

	var costs sync.WaitGroup
	costs.Add(2)

	go func() {
		defer costs.Done()
		bounds, err := gov.View[gov.StorageBalanceBounds](ctx, r.caller, venear, "storage_balance_bounds", nil)
		if err != nil {
			log.Default().Printf("lockup: %s.storage_balance_bounds failed, defaulting to 0: %v", venear, err)
			return
		}
		registrationCost = bounds.Min
	}()

	go func() {
		defer costs.Done()
		deploymentCost = r.balanceView(ctx, venear, "get_lockup_deployment_cost")
	}()

	if lockupID != "" {
		// Deployed means a nonzero native balance at the lockup
		// account, not merely a registered lockup id.
		view, err := r.caller.ViewAccount(ctx, lockupID)
		if err != nil {
			if !errors.Is(err, gov.ErrAccountNotFound) {
				log.Default().Printf("lockup: view_account %s failed, treating as not deployed: %v", lockupID, err)
			}
		} else if !common.IsZeroYocto(view.Amount) {
			info.IsDeployed = true
		}
	}

	if info.IsDeployed {
		var (
			locked, liquidOwners, liquid, pending, deposited string
			unlockNs, pool                                   string
		)

		fields := []struct {
			method string
			out    *string
		}{
			{"get_venear_locked_balance", &locked},
			{"get_liquid_owners_balance", &liquidOwners},
			{"get_liquid_balance", &liquid},
			{"get_venear_pending_balance", &pending},
			{"get_known_deposited_balance", &deposited},
		}

		var wg sync.WaitGroup
		for _, f := range fields {
			f := f
			wg.Add(1)
			go func() {
				defer wg.Done()
				*f.out = r.balanceView(ctx, lockupID, f.method)
			}()
		}

		wg.Add(2)
		go func() {
			defer wg.Done()
			unlockNs = r.stringView(ctx, lockupID, "get_venear_unlock_timestamp")
		}()
		go func() {
			defer wg.Done()
			pool = r.stringView(ctx, lockupID, "get_staking_pool_account_id")
		}()

		wg.Wait()

		withdrawable, err := common.MinYocto(liquid, liquidOwners)
		if err != nil {
			withdrawable = "0"
		}

		info.LockedAmount = gov.NewBalance(locked)
		info.LiquidOwnersBalance = gov.NewBalance(liquidOwners)
		info.LiquidAmount = gov.NewBalance(liquid)
		info.WithdrawableAmount = gov.NewBalance(withdrawable)
		info.PendingAmount = gov.NewBalance(pending)
		info.KnownDepositedBalance = gov.NewBalance(deposited)
		info.UnlockTimestampNs = unlockNs
		info.StakingPool = pool
		info.UntilUnlockMs = untilUnlock(unlockNs, r.now())
	}

	costs.Wait()

	info.RegistrationCost = gov.NewBalance(registrationCost)
	info.LockupDeploymentCost = gov.NewBalance(deploymentCost)

	return info, nil
}

// untilUnlock converts a chain-native nanosecond timestamp to the
// remaining wall-clock milliseconds, floored at zero.
func untilUnlock(unlockNs string, now time.Time) int64 {
	if unlockNs == "" || unlockNs == "0" {
		return 0
	}

	ns, err := strconv.ParseInt(unlockNs, 10, 64)
	if err != nil {
		return 0
	}

	remaining := ns/1e6 - now.UnixMilli()
	if remaining < 0 {
		return 0
	}

	return remaining
}
