package accounts

import (
	"errors"
	"log"
	"net/http"

	com "github.com/neargov/gateway/internal/common"
	"github.com/neargov/gateway/internal/config"
	"github.com/neargov/gateway/pkg/gov"
)

type Service struct {
	agg    *Aggregator
	cfg    *config.Config
	caller gov.Caller
}

func NewService(agg *Aggregator, cfg *config.Config, caller gov.Caller) *Service {
	return &Service{
		agg:    agg,
		cfg:    cfg,
		caller: caller,
	}
}

func writeErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotRegistered), errors.Is(err, gov.ErrAccountNotFound):
		com.BodyError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, config.ErrMissingContract):
		com.BodyError(w, http.StatusInternalServerError, err.Error())
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

// GetAccountState returns the combined governance + lockup + staking
// snapshot for an account.
func (s *Service) GetAccountState(w http.ResponseWriter, r *http.Request) {
	accountID, ok := accountIDParam(w, r, "accountId")
	if !ok {
		return
	}

	state, err := s.agg.AccountState(r.Context(), accountID)
	if err != nil {
		writeErr(w, err)
		return
	}

	if err := com.Body(w, state); err != nil {
		w.WriteHeader(http.StatusInternalServerError)
	}
}

type balanceResponse struct {
	AccountID string      `json:"accountId"`
	Balance   gov.Balance `json:"balance"`
}

// GetAccountBalance returns the native NEAR balance.
func (s *Service) GetAccountBalance(w http.ResponseWriter, r *http.Request) {
	accountID, ok := accountIDParam(w, r, "accountId")
	if !ok {
		return
	}

	view, err := s.caller.ViewAccount(r.Context(), accountID)
	if err != nil {
		writeErr(w, err)
		return
	}

	err = com.Body(w, balanceResponse{
		AccountID: accountID,
		Balance:   gov.NewBalance(view.Amount),
	})
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
	}
}

type venearBalanceResponse struct {
	AccountID    string      `json:"accountId"`
	Balance      gov.Balance `json:"balance"`
	TokenBalance gov.Balance `json:"tokenBalance"`
	TotalSupply  gov.Balance `json:"totalSupply"`
}

// GetVenearBalance returns the account's veNEAR record balance, its
// fungible-token balance and the current total supply. Supply and
// token balance are display statistics and soft-fail to zero.
func (s *Service) GetVenearBalance(w http.ResponseWriter, r *http.Request) {
	accountID, ok := accountIDParam(w, r, "accountId")
	if !ok {
		return
	}

	venear, err := s.cfg.RequireVenear()
	if err != nil {
		writeErr(w, err)
		return
	}

	info, err := s.agg.VenearAccount(r.Context(), accountID)
	if err != nil {
		writeErr(w, err)
		return
	}

	tokenBalance, err := gov.View[string](r.Context(), s.caller, venear, "ft_balance_of", map[string]any{
		"account_id": accountID,
	})
	if err != nil {
		log.Default().Printf("accounts: ft_balance_of for %s failed, defaulting to 0: %v", accountID, err)
		tokenBalance = "0"
	}

	totalSupply, err := gov.View[string](r.Context(), s.caller, venear, "ft_total_supply", nil)
	if err != nil {
		log.Default().Printf("accounts: ft_total_supply failed, defaulting to 0: %v", err)
		totalSupply = "0"
	}

	err = com.Body(w, venearBalanceResponse{
		AccountID:    accountID,
		Balance:      gov.NewBalance(info.TotalBalance),
		TokenBalance: gov.NewBalance(tokenBalance),
		TotalSupply:  gov.NewBalance(totalSupply),
	})
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
	}
}

type delegatorsResponse struct {
	AccountID           string          `json:"accountId"`
	Delegators          []gov.Delegator `json:"delegators"`
	DelegatorsCount     int             `json:"delegatorsCount"`
	TotalDelegatedPower gov.Balance     `json:"totalDelegatedPower"`
}

// GetDelegators lists the delegators of a delegate with the summed
// delegated power.
func (s *Service) GetDelegators(w http.ResponseWriter, r *http.Request) {
	accountID, ok := accountIDParam(w, r, "accountId")
	if !ok {
		return
	}

	delegators, err := s.agg.Delegators(r.Context(), accountID)
	if err != nil {
		writeErr(w, err)
		return
	}

	err = com.Body(w, delegatorsResponse{
		AccountID:           accountID,
		Delegators:          delegators,
		DelegatorsCount:     len(delegators),
		TotalDelegatedPower: gov.NewBalance(sumDelegatedPower(delegators).String()),
	})
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
	}
}

type payloadResponse struct {
	TransactionPayload gov.TransactionPayload `json:"transactionPayload"`
}

// CreateNearTransaction assembles a plain native transfer payload.
func (s *Service) CreateNearTransaction(w http.ResponseWriter, r *http.Request) {
	receiverID, ok := accountIDParam(w, r, "receiverId")
	if !ok {
		return
	}

	yocto, err := com.NearToYocto(r.URL.Query().Get("amount"))
	if err != nil {
		com.BodyError(w, http.StatusBadRequest, "amount is missing or not a valid NEAR amount")
		return
	}

	if com.IsZeroYocto(yocto) {
		com.BodyError(w, http.StatusBadRequest, "amount must be greater than zero")
		return
	}

	payload := gov.TransferPayload(receiverID, yocto)

	if err := com.Body(w, payloadResponse{TransactionPayload: payload}); err != nil {
		w.WriteHeader(http.StatusInternalServerError)
	}
}

// DelegateAll assembles the payload delegating the caller's full
// voting power to a receiver.
func (s *Service) DelegateAll(w http.ResponseWriter, r *http.Request) {
	venear, err := s.cfg.RequireVenear()
	if err != nil {
		writeErr(w, err)
		return
	}

	receiverID, ok := accountIDParam(w, r, "receiverId")
	if !ok {
		return
	}

	payload := gov.DelegateAllPayload(venear, receiverID)

	if err := com.Body(w, payloadResponse{TransactionPayload: payload}); err != nil {
		w.WriteHeader(http.StatusInternalServerError)
	}
}

// Undelegate assembles the payload revoking any active delegation.
func (s *Service) Undelegate(w http.ResponseWriter, r *http.Request) {
	venear, err := s.cfg.RequireVenear()
	if err != nil {
		writeErr(w, err)
		return
	}

	payload := gov.UndelegatePayload(venear)

	if err := com.Body(w, payloadResponse{TransactionPayload: payload}); err != nil {
		w.WriteHeader(http.StatusInternalServerError)
	}
}
