package router

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/neargov/gateway/internal/accounts"
	"github.com/neargov/gateway/internal/config"
	"github.com/neargov/gateway/internal/lockup"
	"github.com/neargov/gateway/internal/notify"
	"github.com/neargov/gateway/internal/proposals"
	"github.com/neargov/gateway/internal/search"
	"github.com/neargov/gateway/pkg/gov"
)

type Router struct {
	cfg    *config.Config
	caller gov.Caller
	ranker search.Ranker
}

func NewServer(cfg *config.Config, caller gov.Caller, ranker search.Ranker) *Router {
	return &Router{
		cfg,
		caller,
		ranker,
	}
}

// implement the Server interface
func (r *Router) Start(port int) error {
	cr := chi.NewRouter()

	// configure middleware
	cr.Use(middleware.RequestID)
	cr.Use(middleware.Logger)

	// configure custom middleware
	cr.Use(OptionsMiddleware)
	cr.Use(HealthMiddleware)
	cr.Use(RequestSizeLimitMiddleware(1 << 20)) // Limit request bodies to 1MB
	cr.Use(middleware.Compress(9))

	// instantiate handlers
	gateway := proposals.NewGateway(r.caller, r.cfg)
	resolver := lockup.NewResolver(r.caller, r.cfg)
	agg := accounts.NewAggregator(r.caller, r.cfg, resolver)

	pr := proposals.NewService(gateway, r.cfg)
	acc := accounts.NewService(agg, r.cfg, r.caller)
	lk := lockup.NewService(resolver, r.cfg, r.caller)
	se := search.NewHandlers(search.NewService(r.ranker), gateway)
	no := notify.NewService(gateway)

	// proposal reads
	cr.Get("/get-proposal", pr.GetProposal)
	cr.Get("/get-recent-proposals", pr.GetRecent)
	cr.Get("/get-recent-active-proposals", pr.GetRecentActive)
	cr.Get("/get-votes", pr.GetVotes)
	cr.Get("/search-proposal", se.Search)

	// account reads
	cr.Get("/get-account-state", acc.GetAccountState)
	cr.Get("/get-account-balance", acc.GetAccountBalance)
	cr.Get("/get-venear-balance", acc.GetVenearBalance)
	cr.Get("/get-delegators", acc.GetDelegators)
	cr.Get("/get-lockup-info", lk.GetLockupInfo)

	// transaction payload assembly
	cr.Get("/create-near-transaction", acc.CreateNearTransaction)
	cr.Get("/create-proposal", pr.CreateProposal)
	cr.Get("/approve-proposal", pr.ApproveProposal)
	cr.Get("/vote", pr.Vote)
	cr.Get("/delegate-all", acc.DelegateAll)
	cr.Get("/undelegate", acc.Undelegate)
	cr.Get("/deploy-lockup", lk.DeployLockup)
	cr.Get("/delete-lockup", lk.DeleteLockup)
	cr.Get("/deposit-and-stake", lk.DepositAndStake)
	cr.Get("/unstake", lk.Unstake)
	cr.Get("/withdraw-lockup", lk.WithdrawLockup)
	cr.Get("/select-staking-pool", lk.SelectStakingPool)
	cr.Get("/refresh-staking-pool-balance", lk.RefreshStakingPoolBalance)
	cr.Get("/lock-near", lk.LockNear)
	cr.Get("/unlock-near", lk.UnlockNear)
	cr.Get("/begin-unlock-near", lk.BeginUnlockNear)
	cr.Get("/end-unlock-near", lk.EndUnlockNear)

	// notification formatting
	cr.Post("/handle-new-proposal", no.HandleNewProposal)
	cr.Post("/handle-proposal-approval", no.HandleProposalApproval)

	// start the server
	return http.ListenAndServe(fmt.Sprintf(":%v", port), cr)
}
