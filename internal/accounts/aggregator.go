package accounts

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/big"

	"github.com/neargov/gateway/internal/config"
	"github.com/neargov/gateway/internal/lockup"
	"github.com/neargov/gateway/pkg/gov"
)

// ErrNotRegistered means the account has no veNEAR record. A missing
// record is a 404, not a partial result.
var ErrNotRegistered = errors.New("account is not registered with veNEAR")

// Aggregator composes the veNEAR record, delegation state, lockup
// snapshot and raw balances into one account state. Sub-queries fail
// hard or soft individually; see the method docs.
type Aggregator struct {
	caller  gov.Caller
	cfg     *config.Config
	lockups *lockup.Resolver
}

func NewAggregator(caller gov.Caller, cfg *config.Config, lockups *lockup.Resolver) *Aggregator {
	return &Aggregator{
		caller:  caller,
		cfg:     cfg,
		lockups: lockups,
	}
}

// VenearAccount fetches the veNEAR record, hard-failing when absent.
func (a *Aggregator) VenearAccount(ctx context.Context, accountID string) (*gov.VenearAccountInfo, error) {
	venear, err := a.cfg.RequireVenear()
	if err != nil {
		return nil, err
	}

	info, err := gov.View[*gov.VenearAccountInfo](ctx, a.caller, venear, "get_account_info", map[string]any{
		"account_id": accountID,
	})
	if err != nil {
		if errors.Is(err, gov.ErrEmptyResult) {
			return nil, fmt.Errorf("%s: %w", accountID, ErrNotRegistered)
		}

		return nil, err
	}

	if info == nil {
		return nil, fmt.Errorf("%s: %w", accountID, ErrNotRegistered)
	}

	return info, nil
}

// Delegators lists a delegate's registered delegators.
func (a *Aggregator) Delegators(ctx context.Context, accountID string) ([]gov.Delegator, error) {
	venear, err := a.cfg.RequireVenear()
	if err != nil {
		return nil, err
	}

	delegators, err := gov.View[[]gov.Delegator](ctx, a.caller, venear, "get_delegators", map[string]any{
		"account_id": accountID,
	})
	if err != nil {
		if errors.Is(err, gov.ErrEmptyResult) {
			return []gov.Delegator{}, nil
		}

		return nil, err
	}

	return delegators, nil
}

// delegationState soft-fails to the zero value: delegation data is a
// statistic, not something worth failing the whole snapshot over.
func (a *Aggregator) delegationState(ctx context.Context, accountID string, info *gov.VenearAccountInfo) gov.DelegationState {
	state := gov.DelegationState{
		TotalDelegatedPower: gov.NewBalance("0"),
	}

	if info != nil && info.Delegation != nil && info.Delegation.AccountID != "" {
		state.IsDelegator = true
		state.DelegatedTo = info.Delegation.AccountID
	}

	delegators, err := a.Delegators(ctx, accountID)
	if err != nil {
		log.Default().Printf("accounts: delegators lookup for %s failed, defaulting: %v", accountID, err)
		return state
	}

	total := sumDelegatedPower(delegators)

	state.IsDelegate = len(delegators) > 0
	state.DelegatorsCount = len(delegators)
	state.TotalDelegatedPower = gov.NewBalance(total.String())

	return state
}

// sumDelegatedPower adds yocto-scale power values exactly; entries
// that do not parse are skipped rather than corrupting the sum.
func sumDelegatedPower(delegators []gov.Delegator) *big.Int {
	total := new(big.Int)
	for _, d := range delegators {
		power, ok := new(big.Int).SetString(d.DelegatedPower, 10)
		if !ok {
			continue
		}
		total.Add(total, power)
	}

	return total
}

// AccountState assembles the combined snapshot. The veNEAR record and
// the native balance are hard requirements; delegation, token balance
// and every lockup sub-field degrade independently.
func (a *Aggregator) AccountState(ctx context.Context, accountID string) (*gov.AccountState, error) {
	venear, err := a.cfg.RequireVenear()
	if err != nil {
		return nil, err
	}

	info, err := a.VenearAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}

	delegation := a.delegationState(ctx, accountID, info)

	lockupInfo, err := a.lockups.FetchInfo(ctx, accountID)
	if err != nil {
		// only configuration errors escape FetchInfo
		return nil, err
	}

	native, err := a.caller.ViewAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}

	tokenBalance, err := gov.View[string](ctx, a.caller, venear, "ft_balance_of", map[string]any{
		"account_id": accountID,
	})
	if err != nil {
		log.Default().Printf("accounts: ft_balance_of for %s failed, defaulting to 0: %v", accountID, err)
		tokenBalance = "0"
	}

	venearBalance := info.TotalBalance
	if venearBalance == "" {
		venearBalance = "0"
	}

	return &gov.AccountState{
		AccountID:     accountID,
		VenearBalance: gov.NewBalance(venearBalance),
		TokenBalance:  gov.NewBalance(tokenBalance),
		NativeBalance: gov.NewBalance(native.Amount),
		Delegation:    delegation,
		Lockup:        *lockupInfo,
	}, nil
}
