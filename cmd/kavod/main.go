package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"kavochain/config"
	"kavochain/native/governance"
	"kavochain/native/multisig"
	"kavochain/native/staking"
	"kavochain/native/token"
	"kavochain/native/treasury"
	"kavochain/observability"
	"kavochain/observability/logging"
	"kavochain/state"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Engines bundles the wired economic modules behind one ledger.
type Engines struct {
	Ledger      *state.Ledger
	Coordinator *multisig.Coordinator
	Token       *token.Engine
	Treasury    *treasury.Engine
	Staking     *staking.Engine
	Governance  *governance.Engine
}

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	listenFlag := flag.String("listen", "", "Listen address for metrics and health (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}
	if *listenFlag != "" {
		cfg.ListenAddress = *listenFlag
	}

	logger := logging.Setup("kavod", cfg.LogLevel, cfg.LogFile)

	engines, err := buildEngines(cfg, logger)
	if err != nil {
		logger.Error("Failed to wire engines", slog.Any("error", err))
		os.Exit(1)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		if _, err := engines.Staking.ViewPool(); err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})
	mux.HandleFunc("/statusz", func(w http.ResponseWriter, _ *http.Request) {
		writeStatus(w, engines)
	})

	server := &http.Server{
		Addr:              cfg.ListenAddress,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("Listening", slog.String("address", cfg.ListenAddress))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server failed", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("Shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Shutdown failed", slog.Any("error", err))
	}
}

// writeStatus reports pool and treasury totals as JSON.
func writeStatus(w http.ResponseWriter, engines *Engines) {
	pool, err := engines.Staking.ViewPool()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	balances, burned, err := engines.Treasury.Balances()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	status := map[string]any{
		"total_staked":       pool.TotalStaked.String(),
		"reward_reserve":     pool.RewardReserve.String(),
		"total_voting_power": pool.TotalVotingPower,
		"treasury":           map[string]string{},
		"total_burned":       burned.String(),
	}
	buckets := status["treasury"].(map[string]string)
	for bucket, balance := range balances {
		buckets[bucket] = balance.String()
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(status); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// buildEngines constructs the ledger and every module, wired the way the
// tests compose them: token tax flows into the treasury, staking voting power
// feeds governance, and the multisig coordinator gates privileged setters.
func buildEngines(cfg *config.Config, logger *slog.Logger) (*Engines, error) {
	ledger := state.NewLedger()
	emitter := observability.NewEmitter(logger)

	coordinator := multisig.NewCoordinator()
	coordinator.SetState(ledger)
	coordinator.SetEmitter(emitter)
	multisigPolicy, err := cfg.MultisigPolicy()
	if err != nil {
		return nil, err
	}
	if err := coordinator.SetPolicy(multisigPolicy); err != nil {
		return nil, err
	}

	treasuryEngine := treasury.NewEngine()
	treasuryEngine.SetState(ledger)
	treasuryEngine.SetCoordinator(coordinator)
	treasuryEngine.SetEmitter(emitter)
	treasuryPolicy, err := cfg.TreasuryPolicy()
	if err != nil {
		return nil, err
	}
	treasuryEngine.SetPolicy(treasuryPolicy)
	if err := ledger.TreasuryPut(treasury.NewLedger(cfg.TreasuryAllocation())); err != nil {
		return nil, err
	}

	tokenEngine := token.NewEngine()
	tokenEngine.SetState(ledger)
	tokenEngine.SetTaxSink(treasuryEngine)
	tokenEngine.SetCoordinator(coordinator)
	tokenEngine.SetEmitter(emitter)
	tokenPolicy, err := cfg.TokenPolicy()
	if err != nil {
		return nil, err
	}
	if err := ledger.TokenPolicyPut(tokenPolicy); err != nil {
		return nil, err
	}

	stakingEngine := staking.NewEngine()
	stakingEngine.SetState(ledger)
	stakingEngine.SetEmitter(emitter)
	stakingParams, err := cfg.StakingParams()
	if err != nil {
		return nil, err
	}
	stakingEngine.SetParams(stakingParams)
	if err := ledger.StakePoolPut(staking.NewPool(stakingParams.Tiers)); err != nil {
		return nil, err
	}

	governanceEngine := governance.NewEngine()
	governanceEngine.SetState(ledger)
	governanceEngine.SetPowerSource(stakingEngine)
	governanceEngine.SetParamStore(state.NewParamStore(ledger))
	governanceEngine.SetEmitter(emitter)
	governanceEngine.SetPolicy(cfg.GovernancePolicy(state.AllowedParams()))

	return &Engines{
		Ledger:      ledger,
		Coordinator: coordinator,
		Token:       tokenEngine,
		Treasury:    treasuryEngine,
		Staking:     stakingEngine,
		Governance:  governanceEngine,
	}, nil
}
