// stockhealth-sweep runs the stock health check for every active business.
// Intended as a cron entrypoint (Cloud Run job / scheduler).
//
// Usage (from backend directory):
//   DB_* and REDIS_ADDRESS env vars set, then:
//   go run ./cmd/stockhealth-sweep
//
// Flags:
//   --business-id  limit the sweep to a single business (uuid)
//   --continue-on-error  keep sweeping remaining businesses after a failure
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"bitbucket.org/mmdatafocus/stocktrack_backend/config"
	"bitbucket.org/mmdatafocus/stocktrack_backend/models"
	"bitbucket.org/mmdatafocus/stocktrack_backend/utils"
	"github.com/sirupsen/logrus"
)

func main() {
	businessID := flag.String("business-id", "", "Optional: sweep a single business (uuid)")
	continueOnError := flag.Bool("continue-on-error", false, "Keep sweeping remaining businesses after a failure")
	flag.Parse()

	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()
	if config.GetDB() == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil). Set DB_* env vars.")
		os.Exit(1)
	}
	logger := config.GetLogger()

	ctx := context.Background()
	ctx = utils.SetUserNameInContext(ctx, models.AutoTicketCreatedBy)

	var ids []string
	if strings.TrimSpace(*businessID) != "" {
		ids = []string{strings.TrimSpace(*businessID)}
	} else {
		var err error
		ids, err = models.ListBusinessIds(utils.SetSkipTenantScopeInContext(ctx, true))
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to list businesses: %v\n", err)
			os.Exit(1)
		}
	}

	failed := 0
	totalTickets := 0
	for _, id := range ids {
		bizCtx := utils.SetBusinessIdInContext(ctx, id)
		summary, err := models.RunStockHealthCheck(bizCtx)
		if err != nil {
			failed++
			logger.WithFields(logrus.Fields{
				"field":       "stockhealth-sweep",
				"business_id": id,
			}).Error("health check failed: " + err.Error())
			if !*continueOnError {
				os.Exit(1)
			}
			continue
		}
		totalTickets += summary.TicketsCreated
		logger.WithFields(logrus.Fields{
			"field":                 "stockhealth-sweep",
			"business_id":           id,
			"tickets_created":       summary.TicketsCreated,
			"duplicates_suppressed": summary.DuplicatesSuppressed,
		}).Info("health check complete")
	}

	fmt.Printf("Swept %d businesses: %d tickets created, %d failed\n", len(ids), totalTickets, failed)
	if failed > 0 {
		os.Exit(1)
	}
}
