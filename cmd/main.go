// catalog-service keeps the job catalog available through PostgreSQL
// outages: reads fall back to a local cache, writes made while PostgreSQL
// is down are kept locally and pushed back by the synchronizer, and a
// cron-driven sweeper deactivates postings once their 90-day TTL lapses.
package main

import (
	"fmt"
	"os"

	"jobmate/catalog-service/internal/cli"
)

func main() {
	if err := cli.BuildCLI().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "[catalog-service] %v\n", err)
		os.Exit(1)
	}
}
