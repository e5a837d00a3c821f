package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/neargov/gateway/internal/config"
	"github.com/neargov/gateway/internal/services/nearrpc"
	"github.com/neargov/gateway/pkg/router"
)

func main() {
	log.Default().Println("launching governance gateway...")

	env := flag.String("env", "", "path to .env file")

	port := flag.Int("port", 3000, "port to listen on")

	flag.Parse()

	ctx := context.Background()

	conf, err := config.New(ctx, *env)
	if err != nil {
		log.Fatal(err)
	}

	if conf.SentryURL != "" && conf.SentryURL != "x" {
		err = sentry.Init(sentry.ClientOptions{
			Dsn: conf.SentryURL,
			// Set TracesSampleRate to 1.0 to capture 100%
			// of transactions for performance monitoring.
			// We recommend adjusting this value in production,
			TracesSampleRate: 1.0,
		})
		if err != nil {
			log.Fatalf("sentry.Init: %s", err)
		}
		// Flush buffered events before the program terminates.
		defer sentry.Flush(2 * time.Second)
	}

	log.Default().Println("chain: ", conf.ChainName)
	log.Default().Println("rpc endpoint: ", conf.RPCURL)

	if conf.VotingContract == "" {
		log.Default().Println("warning: VOTING_CONTRACT is not set, proposal endpoints will fail")
	}

	if conf.VenearContract == "" {
		log.Default().Println("warning: VENEAR_CONTRACT is not set, account and lockup endpoints will fail")
	}

	rpc := nearrpc.NewService(conf.RPCURL)

	log.Default().Println("starting api service...")

	// The third argument is the similarity ranker used for semantic and
	// hybrid search. None ships with this binary; pass a search.Ranker
	// implementation here (an embedding-service client, typically) and
	// both modes stop degrading to keyword matching.
	api := router.NewServer(conf, rpc, nil)

	log.Default().Println("listening on port: ", *port)

	if err := api.Start(*port); err != nil {
		log.Fatal(err)
	}
}
