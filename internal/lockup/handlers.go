package lockup

import (
	"context"
	"errors"
	"net/http"

	com "github.com/neargov/gateway/internal/common"
	"github.com/neargov/gateway/internal/config"
	"github.com/neargov/gateway/pkg/gov"
)

type Service struct {
	resolver *Resolver
	cfg      *config.Config
	caller   gov.Caller
}

func NewService(resolver *Resolver, cfg *config.Config, caller gov.Caller) *Service {
	return &Service{
		resolver: resolver,
		cfg:      cfg,
		caller:   caller,
	}
}

func writeErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, gov.ErrAccountNotFound):
		com.BodyError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, config.ErrMissingContract):
		com.BodyError(w, http.StatusInternalServerError, err.Error())
	case errors.Is(err, gov.ErrBelowMinimumWithdrawal):
		com.BodyError(w, http.StatusOK, err.Error())
	default:
		com.BodyError(w, http.StatusBadGateway, err.Error())
	}
}

func accountIDParam(w http.ResponseWriter, r *http.Request, name string) (string, bool) {
	accountID := r.URL.Query().Get(name)
	if !com.IsValidAccountID(accountID) {
		com.BodyError(w, http.StatusBadRequest, name+" is missing or not a valid NEAR account id")
		return "", false
	}

	return accountID, true
}

type payloadResponse struct {
	TransactionPayload gov.TransactionPayload `json:"transactionPayload"`
}

func writePayload(w http.ResponseWriter, payload gov.TransactionPayload) {
	if err := com.Body(w, payloadResponse{TransactionPayload: payload}); err != nil {
		w.WriteHeader(http.StatusInternalServerError)
	}
}

// resolveDeployed resolves the caller's lockup and requires it to be
// live on chain. Returns false after writing the failure response.
func (s *Service) resolveDeployed(ctx context.Context, w http.ResponseWriter, accountID string) (string, bool) {
	lockupID, err := s.resolver.Resolve(ctx, accountID)
	if err != nil {
		writeErr(w, err)
		return "", false
	}

	if lockupID == "" {
		com.BodyError(w, http.StatusOK, accountID+" has no lockup registered; deploy one first")
		return "", false
	}

	view, err := s.caller.ViewAccount(ctx, lockupID)
	if err != nil {
		if errors.Is(err, gov.ErrAccountNotFound) {
			com.BodyError(w, http.StatusOK, "lockup "+lockupID+" is not deployed on chain yet")
			return "", false
		}

		writeErr(w, err)
		return "", false
	}

	if com.IsZeroYocto(view.Amount) {
		com.BodyError(w, http.StatusOK, "lockup "+lockupID+" is not deployed on chain yet")
		return "", false
	}

	return lockupID, true
}

// GetLockupInfo returns the full lockup snapshot for an account.
func (s *Service) GetLockupInfo(w http.ResponseWriter, r *http.Request) {
	accountID, ok := accountIDParam(w, r, "accountId")
	if !ok {
		return
	}

	info, err := s.resolver.FetchInfo(r.Context(), accountID)
	if err != nil {
		writeErr(w, err)
		return
	}

	if err := com.Body(w, info); err != nil {
		w.WriteHeader(http.StatusInternalServerError)
	}
}

// DeployLockup assembles the deploy_lockup payload. The deposit is
// fetched live from the veNEAR contract since the contract can change
// it.
func (s *Service) DeployLockup(w http.ResponseWriter, r *http.Request) {
	venear, err := s.cfg.RequireVenear()
	if err != nil {
		writeErr(w, err)
		return
	}

	cost, err := gov.View[string](r.Context(), s.caller, venear, "get_lockup_deployment_cost", nil)
	if err != nil {
		writeErr(w, err)
		return
	}

	writePayload(w, gov.DeployLockupPayload(venear, cost))
}

// DeleteLockup assembles the payload deleting the caller's lockup.
func (s *Service) DeleteLockup(w http.ResponseWriter, r *http.Request) {
	accountID, ok := accountIDParam(w, r, "accountId")
	if !ok {
		return
	}

	lockupID, ok := s.resolveDeployed(r.Context(), w, accountID)
	if !ok {
		return
	}

	writePayload(w, gov.DeleteLockupPayload(lockupID))
}

func (s *Service) stakeAmount(w http.ResponseWriter, r *http.Request) (string, bool) {
	yocto, err := com.NearToYocto(r.URL.Query().Get("amount"))
	if err != nil {
		com.BodyError(w, http.StatusBadRequest, "amount is missing or not a valid NEAR amount")
		return "", false
	}

	if com.IsZeroYocto(yocto) {
		com.BodyError(w, http.StatusBadRequest, "amount must be greater than zero")
		return "", false
	}

	return yocto, true
}

// DepositAndStake assembles the staking payload against the lockup's
// selected pool.
func (s *Service) DepositAndStake(w http.ResponseWriter, r *http.Request) {
	accountID, ok := accountIDParam(w, r, "accountId")
	if !ok {
		return
	}

	yocto, ok := s.stakeAmount(w, r)
	if !ok {
		return
	}

	lockupID, ok := s.resolveDeployed(r.Context(), w, accountID)
	if !ok {
		return
	}

	writePayload(w, gov.DepositAndStakePayload(lockupID, yocto))
}

// Unstake assembles the unstaking payload.
func (s *Service) Unstake(w http.ResponseWriter, r *http.Request) {
	accountID, ok := accountIDParam(w, r, "accountId")
	if !ok {
		return
	}

	yocto, ok := s.stakeAmount(w, r)
	if !ok {
		return
	}

	lockupID, ok := s.resolveDeployed(r.Context(), w, accountID)
	if !ok {
		return
	}

	writePayload(w, gov.UnstakePayload(lockupID, yocto))
}

// WithdrawLockup assembles a withdrawal of the full withdrawable
// balance, min(liquid, owners'), refusing below the 1 NEAR floor.
func (s *Service) WithdrawLockup(w http.ResponseWriter, r *http.Request) {
	accountID, ok := accountIDParam(w, r, "accountId")
	if !ok {
		return
	}

	info, err := s.resolver.FetchInfo(r.Context(), accountID)
	if err != nil {
		writeErr(w, err)
		return
	}

	if !info.IsDeployed {
		com.BodyError(w, http.StatusOK, accountID+" has no deployed lockup to withdraw from")
		return
	}

	payload, err := gov.WithdrawPayload(info.LockupID, accountID, info.LiquidAmount.Raw, info.LiquidOwnersBalance.Raw)
	if err != nil {
		writeErr(w, err)
		return
	}

	writePayload(w, payload)
}

// SelectStakingPool assembles the pool selection payload.
func (s *Service) SelectStakingPool(w http.ResponseWriter, r *http.Request) {
	accountID, ok := accountIDParam(w, r, "accountId")
	if !ok {
		return
	}

	poolID, ok := accountIDParam(w, r, "stakingPoolAccountId")
	if !ok {
		return
	}

	lockupID, ok := s.resolveDeployed(r.Context(), w, accountID)
	if !ok {
		return
	}

	writePayload(w, gov.SelectStakingPoolPayload(lockupID, poolID))
}

// RefreshStakingPoolBalance re-syncs the lockup's view of its staking
// pool deposit, following the same resolve-then-act flow as pool
// selection.
func (s *Service) RefreshStakingPoolBalance(w http.ResponseWriter, r *http.Request) {
	accountID, ok := accountIDParam(w, r, "accountId")
	if !ok {
		return
	}

	lockupID, ok := s.resolveDeployed(r.Context(), w, accountID)
	if !ok {
		return
	}

	writePayload(w, gov.RefreshStakingPoolBalancePayload(lockupID))
}

// LockNear assembles the payload locking the lockup's liquid balance
// into veNEAR.
func (s *Service) LockNear(w http.ResponseWriter, r *http.Request) {
	lockupID, ok := accountIDParam(w, r, "lockupId")
	if !ok {
		return
	}

	writePayload(w, gov.LockNearPayload(lockupID))
}

// BeginUnlockNear starts the unlock countdown on the lockup.
func (s *Service) BeginUnlockNear(w http.ResponseWriter, r *http.Request) {
	lockupID, ok := accountIDParam(w, r, "lockupId")
	if !ok {
		return
	}

	writePayload(w, gov.BeginUnlockPayload(lockupID))
}

// EndUnlockNear completes an elapsed unlock on the lockup.
func (s *Service) EndUnlockNear(w http.ResponseWriter, r *http.Request) {
	lockupID, ok := accountIDParam(w, r, "lockupId")
	if !ok {
		return
	}

	writePayload(w, gov.EndUnlockPayload(lockupID))
}

// UnlockNear is an alias flow: begin an unlock if none is pending.
func (s *Service) UnlockNear(w http.ResponseWriter, r *http.Request) {
	s.BeginUnlockNear(w, r)
}
