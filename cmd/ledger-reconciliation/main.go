package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/aquaoffice/tresorerie.go/db"
	"github.com/aquaoffice/tresorerie.go/lib/logging"
	"github.com/aquaoffice/tresorerie.go/lib/service"
	"github.com/getsentry/sentry-go"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// script to replay every account ledger and report broken running balances
func main() {

	c := &service.Config{}

	// Load configruation from environment variables
	err := godotenv.Load(".env")
	if err != nil {
		fmt.Println("Failed to load .env file")
	}
	err = envconfig.Process("", c)
	if err != nil {
		log.Fatalf("Error loading environment variables: %v", err)
	}

	// Setup logging to STDOUT or a configrued log file
	logger := logging.Logger(c.LogFilePath)

	// Open a DB connection based on the configured DATABASE_URI
	dbConn, err := db.Open(c)
	if err != nil {
		logger.Fatalf("Error initializing db connection: %v", err)
	}
	defer dbConn.Close()

	if c.SentryDSN != "" {
		if err = sentry.Init(sentry.ClientOptions{
			Dsn: c.SentryDSN,
		}); err != nil {
			logger.Errorf("sentry init error: %v", err)
		}
		defer sentry.Flush(2 * time.Second)
	}

	svc := service.NewTreasuryService(c, dbConn, logger)

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(c.DatabaseTimeout)*time.Second)
	defer cancel()
	results, err := svc.ReconcileAll(ctx)
	if err != nil {
		sentry.CaptureException(err)
		logger.Fatalf("Error reconciling accounts: %v", err)
	}

	inconsistent := 0
	for _, r := range results {
		if r.Consistent {
			logger.Infof("Account %d consistent: %d entries, balance %s", r.AccountID, r.EntryCount, r.ComputedBalance.StringFixed(2))
			continue
		}
		inconsistent++
		err := fmt.Errorf("account %d is inconsistent: first broken entry %d, computed balance %s over %d entries, stored balance %s over %d entries",
			r.AccountID, r.FirstBrokenEntryID,
			r.ComputedBalance.StringFixed(2), r.EntryCount,
			r.ProjectedBalance.StringFixed(2), r.ProjectedEntryCount)
		logger.Error(err)
		sentry.CaptureException(err)
	}
	logger.Infof("Reconciled %d accounts, %d inconsistent", len(results), inconsistent)
	if inconsistent > 0 {
		sentry.Flush(2 * time.Second)
		os.Exit(1)
	}
}
