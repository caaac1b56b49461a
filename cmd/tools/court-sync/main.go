// cmd/tools/court-sync/main.go
// court-sync refreshes the courts table from the portal's Κατάστημα
// dropdown. The dropdown is the authority on which courts exist;
// lookups against a court absent from it always fail, so the table is
// kept in step by running this on a schedule.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"go.uber.org/zap"

	"solon-workers/internal/common/config"
	"solon-workers/internal/common/database"
	"solon-workers/internal/common/logger"
	"solon-workers/internal/solon"
)

func main() {
	dryRun := flag.Bool("dry-run", false, "print the dropdown options without touching the database")
	timeout := flag.Duration("timeout", 3*time.Minute, "overall budget for the sync")
	flag.Parse()

	zapLog := logger.New("info", "console")
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	cfg, err := config.Load()
	if err != nil {
		zapLog.Fatal("config load failed", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	options, err := fetchCourtOptions(ctx, cfg, log)
	if err != nil {
		zapLog.Fatal("court dropdown fetch failed", zap.Error(err))
	}
	zapLog.Info("court dropdown read", zap.Int("options", len(options)))

	if *dryRun {
		for _, o := range options {
			fmt.Printf("%s\t%s\n", o.Value, o.Text)
		}
		return
	}

	pg, err := database.NewPostgres(cfg.Database.Postgres)
	if err != nil {
		zapLog.Fatal("postgres connection failed", zap.Error(err))
	}
	defer pg.Close()

	synced, err := syncCourts(ctx, pg, options)
	if err != nil {
		zapLog.Fatal("court sync failed", zap.Error(err))
	}
	zapLog.Info("court sync complete", zap.Int("synced", synced))
	os.Exit(0)
}

// fetchCourtOptions drives one browser session to the portal and reads
// the dropdown. The portal flakes under load, so the whole fetch is
// retried as a unit with a fresh session each attempt.
func fetchCourtOptions(ctx context.Context, cfg *config.Config, log logger.Logger) ([]solon.DropdownOption, error) {
	return retry.DoWithData(
		func() ([]solon.DropdownOption, error) {
			sess, err := solon.Open(ctx, cfg.Solon, cfg.Browser, log)
			if err != nil {
				return nil, err
			}
			defer sess.Close()
			return sess.DropdownOptions(ctx, cfg.Solon.CourtSelect)
		},
		retry.Context(ctx),
		retry.Attempts(3),
		retry.Delay(5*time.Second),
		retry.DelayType(retry.BackOffDelay),
	)
}

func syncCourts(ctx context.Context, pg *database.PostgresClient, options []solon.DropdownOption) (int, error) {
	synced := 0
	for _, o := range options {
		name := strings.TrimSpace(o.Text)
		// The first entry is usually the "choose a court" placeholder.
		if name == "" || o.Value == "" {
			continue
		}
		slug := strings.ReplaceAll(solon.FoldKey(name), " ", "-")
		_, err := pg.Exec(ctx, `
			INSERT INTO courts (name, slug, solon_code, is_active, created_at, updated_at)
			VALUES ($1, $2, $3, TRUE, NOW(), NOW())
			ON CONFLICT (name) DO UPDATE SET
				slug = EXCLUDED.slug,
				solon_code = EXCLUDED.solon_code,
				is_active = TRUE,
				updated_at = NOW()`,
			name, slug, o.Value)
		if err != nil {
			return synced, fmt.Errorf("upsert court %q: %w", name, err)
		}
		synced++
	}
	return synced, nil
}
