package main

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/ZentaChain/zentalk-msgcore/pkg/api"
	"github.com/ZentaChain/zentalk-msgcore/pkg/config"
	"github.com/ZentaChain/zentalk-msgcore/pkg/crypto"
	"github.com/ZentaChain/zentalk-msgcore/pkg/storage"
)

const purgeInterval = time.Hour

func main() {
	cfg, err := config.FromArgs(os.Args[0], os.Args[1:], os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(2)
	}

	logger, err := config.NewLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("node stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	privateKey, err := loadOrGenerateKey(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to load key: %w", err)
	}
	logger.Info("private key loaded", zap.String("path", cfg.KeyPath), zap.Int("bits", privateKey.N.BitLen()))

	if err := os.MkdirAll(filepath.Dir(cfg.DatabasePath), 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	db, err := storage.NewMessageDB(cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Warn("error closing message database", zap.Error(err))
		}
	}()
	db.SetLogger(logger.Named("storage"))
	logger.Info("message database opened", zap.String("path", cfg.DatabasePath))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.PurgeAfter > 0 {
		go db.RunPurger(ctx, purgeInterval, cfg.PurgeAfter)
		logger.Info("purging finished messages", zap.Duration("after", cfg.PurgeAfter))
	}

	pubPEM, err := crypto.ExportPublicKeyPEM(&privateKey.PublicKey)
	if err != nil {
		return err
	}

	server, err := api.NewServer(db, &api.Config{
		Port:         cfg.Port,
		NodeID:       cfg.NodeID,
		PublicKey:    pubPEM,
		EnableCORS:   cfg.EnableCORS,
		RateLimit:    cfg.RateLimit,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}, logger.Named("api"))
	if err != nil {
		return err
	}

	if err := server.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	logger.Info("node stopped")
	return nil
}

// loadOrGenerateKey loads the node key, creating a 4096-bit key pair on
// first start.
func loadOrGenerateKey(cfg *config.Config, logger *zap.Logger) (*rsa.PrivateKey, error) {
	passphrase := []byte(cfg.KeyPassphrase)

	if _, err := os.Stat(cfg.KeyPath); err == nil {
		pemData, err := crypto.LoadKeyFromFile(cfg.KeyPath)
		if err != nil {
			return nil, err
		}
		return crypto.LoadPrivateKey(pemData, passphrase)
	}

	logger.Info("generating new RSA-4096 key pair", zap.String("path", cfg.KeyPath))
	privateKey, err := crypto.GenerateRSAKeyPair()
	if err != nil {
		return nil, err
	}

	pemData, err := crypto.ExportPrivateKeyPEM(privateKey, passphrase)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(cfg.KeyPath), 0700); err != nil {
		return nil, err
	}
	if err := crypto.SaveKeyToFile(cfg.KeyPath, pemData); err != nil {
		return nil, err
	}

	// Also save public key
	pubPEM, err := crypto.ExportPublicKeyPEM(&privateKey.PublicKey)
	if err != nil {
		return nil, err
	}
	pubPath := cfg.KeyPath + ".pub"
	if err := crypto.SaveKeyToFile(pubPath, pubPEM); err != nil {
		return nil, err
	}
	logger.Info("public key saved", zap.String("path", pubPath))

	return privateKey, nil
}
