package config

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

// ErrMissingContract is a configuration fault: the request is never
// attempted without the contract id and the failure is never defaulted.
var ErrMissingContract = errors.New("contract account id is not configured")

type Config struct {
	ChainName      string `env:"CHAIN_NAME,default=mainnet"`
	RPCURL         string `env:"RPC_URL,default=https://rpc.mainnet.near.org"`
	VotingContract string `env:"VOTING_CONTRACT"`
	VenearContract string `env:"VENEAR_CONTRACT"`
	SentryURL      string `env:"SENTRY_URL"`
}

func New(ctx context.Context, envpath string) (*Config, error) {
	if envpath != "" {
		log.Default().Println("loading env from file: ", envpath)
		err := godotenv.Load(envpath)
		if err != nil {
			return nil, err
		}
	}

	cfg := &Config{}
	err := envconfig.Process(ctx, cfg)
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

// RequireVoting returns the voting contract id or a configuration
// error. Checked per request so that a misconfigured deployment fails
// loudly instead of issuing calls against an empty contract id.
func (c *Config) RequireVoting() (string, error) {
	if c.VotingContract == "" {
		return "", fmt.Errorf("voting: %w", ErrMissingContract)
	}

	return c.VotingContract, nil
}

func (c *Config) RequireVenear() (string, error) {
	if c.VenearContract == "" {
		return "", fmt.Errorf("venear: %w", ErrMissingContract)
	}

	return c.VenearContract, nil
}
