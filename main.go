package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"channelpoints/application"
	"channelpoints/cmd"
	"channelpoints/config"
	"channelpoints/database"
	"channelpoints/domain/entities"
	"channelpoints/infrastructure"

	log "github.com/sirupsen/logrus"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "migrate":
			if err := handleMigrationCommand(); err != nil {
				log.WithError(err).Fatal("Migration error")
			}
			return
		case "adjust":
			if err := handleAdjustCommand(); err != nil {
				log.WithError(err).Fatal("Adjust error")
			}
			return
		case "verify":
			if err := handleVerifyCommand(); err != nil {
				log.WithError(err).Fatal("Verify error")
			}
			return
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info("Received shutdown signal, shutting down gracefully...")
		cancel()
	}()

	if err := cmd.Run(ctx); err != nil {
		log.WithError(err).Fatal("Application error")
	}
}

func handleMigrationCommand() error {
	if len(os.Args) < 3 {
		return fmt.Errorf("usage: channelpoints migrate [up|down|status] [args...]")
	}

	command := os.Args[2]
	switch command {
	case "up":
		return database.MigrateUp()
	case "down":
		steps := "1"
		if len(os.Args) > 3 {
			steps = os.Args[3]
		}
		return database.MigrateDown(steps)
	case "status":
		return database.MigrateStatus()
	default:
		return fmt.Errorf("unknown migration command: %s", command)
	}
}

// withLedger opens a database connection and runs fn against a ledger whose events go nowhere
func withLedger(fn func(ctx context.Context, ledger application.PointsLedger) error) error {
	ctx := context.Background()
	cfg := config.Get()
	cmd.ConfigureLogging(cfg)

	db, err := database.NewConnection(ctx, cfg.GetDatabaseURL(), 2)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	uowFactory := infrastructure.NewUnitOfWorkFactory(db, infrastructure.NewNoopEventPublisher())
	return fn(ctx, application.NewPointsLedger(uowFactory, nil))
}

func handleAdjustCommand() error {
	if len(os.Args) < 6 {
		return fmt.Errorf("usage: channelpoints adjust <user_id> <currency> <credit|debit|set> <amount> [description]")
	}

	userID := os.Args[2]
	currency, err := entities.ParseCurrency(os.Args[3])
	if err != nil {
		return err
	}
	amount, err := strconv.ParseInt(os.Args[5], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid amount %q: %w", os.Args[5], err)
	}
	var description string
	if len(os.Args) > 6 {
		description = os.Args[6]
	}

	return withLedger(func(ctx context.Context, ledger application.PointsLedger) error {
		tx, err := ledger.Adjust(ctx, application.AdjustRequest{
			UserID:      userID,
			Currency:    currency,
			Operation:   application.AdjustOperation(os.Args[4]),
			Amount:      amount,
			Description: description,
		})
		if err != nil {
			return err
		}
		if tx == nil {
			fmt.Printf("%s %s balance unchanged\n", userID, currency)
			return nil
		}
		fmt.Printf("%s %s balance: %d -> %d (transaction %d)\n", userID, currency, tx.BalanceBefore, tx.BalanceAfter, tx.ID)
		return nil
	})
}

func handleVerifyCommand() error {
	if len(os.Args) < 4 {
		return fmt.Errorf("usage: channelpoints verify <user_id> <currency>")
	}

	userID := os.Args[2]
	currency, err := entities.ParseCurrency(os.Args[3])
	if err != nil {
		return err
	}

	return withLedger(func(ctx context.Context, ledger application.PointsLedger) error {
		check, err := ledger.Verify(ctx, userID, currency)
		if err != nil {
			return err
		}
		fmt.Printf("balance=%d transaction_sum=%d transactions=%d chain_breaks=%d head_mismatch=%t\n",
			check.Balance, check.TransactionSum, check.TransactionCount, check.ChainBreaks, check.HeadMismatch)
		if !check.Consistent() {
			return fmt.Errorf("ledger for %s/%s is inconsistent", userID, currency)
		}
		return nil
	})
}
