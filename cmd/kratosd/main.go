// Copyright 2024 The go-equa Authors
// KratOs Consensus Node - Main Entry Point

package main

import (
	"encoding/hex"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/crypto/ed25519"

	"github.com/kratos-chain/kratos/common"
	"github.com/kratos-chain/kratos/genesis"
	"github.com/kratos-chain/kratos/node"
)

var (
	genesisPath = flag.String("genesis", "", "Path to genesis JSON document (empty = single-validator devnet fixture)")
	signingKey  = flag.String("signing-key", "", "Hex-encoded Ed25519 private key for this node's validator (empty = non-producing observer)")
	verbosity   = flag.Int("verbosity", 3, "Log verbosity (0=crit .. 5=trace)")
)

func main() {
	flag.Parse()

	log.SetDefault(log.NewLogger(log.NewTerminalHandlerWithLevel(os.Stderr, verbosityLevel(*verbosity), true)))

	log.Info("🔷 KratOs consensus node")
	log.Info("========================")

	var priv ed25519.PrivateKey
	var validatorID common.AccountId
	if *signingKey != "" {
		keyBytes, err := hex.DecodeString(*signingKey)
		if err != nil {
			log.Crit("invalid --signing-key hex", "err", err)
		}
		priv = ed25519.PrivateKey(keyBytes)
		validatorID = common.AccountIdFromPublicKey(priv.Public().(ed25519.PublicKey))
		log.Info("📝 validator key loaded", "account", validatorID.ShortString())
	} else {
		log.Warn("no --signing-key provided, running as a non-producing observer")
	}

	spec, err := loadGenesis(*genesisPath, validatorID)
	if err != nil {
		log.Crit("failed to load genesis", "err", err)
	}

	config := node.DefaultConfig()
	config.SigningKey = priv
	config.ValidatorID = validatorID

	n, err := node.New(config, spec, prometheus.DefaultRegisterer)
	if err != nil {
		log.Crit("failed to construct node", "err", err)
	}

	n.Start()
	log.Info("✅ node started", "chainTip", n.ChainTip().Header.Number, "slotDuration", config.SlotDuration)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	statsTicker := time.NewTicker(config.StatsInterval)
	defer statsTicker.Stop()

	for {
		select {
		case <-sigCh:
			log.Info("📡 received shutdown signal")
			n.Stop()
			return

		case <-statsTicker.C:
			stats := n.GetStats()
			log.Info("📊 node stats",
				"slotsProcessed", stats.SlotsProcessed,
				"blocksValidated", stats.BlocksValidated,
				"blocksRejected", stats.BlocksRejected,
				"slashesApplied", stats.SlashesApplied,
				"uptime", time.Since(stats.StartTime).Round(time.Second))
		}
	}
}

// verbosityLevel maps the geth-style 0-5 verbosity scale to a slog.Level.
func verbosityLevel(verbosity int) slog.Level {
	switch {
	case verbosity <= 0:
		return log.LevelCrit
	case verbosity == 1:
		return slog.LevelError
	case verbosity == 2:
		return slog.LevelWarn
	case verbosity == 3:
		return slog.LevelInfo
	case verbosity == 4:
		return slog.LevelDebug
	default:
		return log.LevelTrace
	}
}

// loadGenesis reads --genesis if supplied, otherwise falls back to a
// single-validator devnet fixture seeded from validatorID so `kratosd`
// runs out of the box for local testing.
func loadGenesis(path string, validatorID common.AccountId) (*genesis.GenesisSpec, error) {
	if path != "" {
		return genesis.LoadFromFile(path)
	}
	if validatorID.IsZero() {
		var generated common.AccountId
		copy(generated[:], []byte("kratos-devnet-default-validator"))
		validatorID = generated
	}
	log.Warn("no --genesis provided, using single-validator devnet fixture")
	return genesis.WithValidator(validatorID), nil
}
