package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"steamrevs/pkg/cache"
	"steamrevs/pkg/config"
	"steamrevs/pkg/logger"
	"steamrevs/pkg/ratelimit"
	"steamrevs/pkg/scraper"
	"steamrevs/pkg/steam"
)

var (
	scrapeAppID       uint32
	scrapeReviewType  string
	scrapePurchase    string
	scrapeResume      bool
	scrapeEndNoNew    bool
	scrapeNumber      int
	scrapeFailParse   bool
	scrapeCacheSize   int
	scrapePageSize    int
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape OUTPUT",
	Short: "Scrape reviews into a CSV file, or resume a previous scrape",
	Long: `Scrape pulls review pages for one appid and appends the novel ones to
OUTPUT. A fresh scrape requires --appid and refuses to overwrite an
existing file; --resume instead replays an existing OUTPUT to rebuild
the duplicate filter and rescans the day window back to its oldest
review.`,
	Example: `  # Fresh scrape of ICO (appid 1274570)
  steamrevs scrape reviews.csv --appid 1274570

  # Pick it up again later
  steamrevs scrape reviews.csv --resume`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runScrape(args[0])
	},
}

func init() {
	rootCmd.AddCommand(scrapeCmd)

	scrapeCmd.Flags().Uint32VarP(&scrapeAppID, "appid", "a", 0, "appid to scrape (required unless resuming)")
	scrapeCmd.Flags().StringVarP(&scrapeReviewType, "review-type", "t", "", "restrict to positive or negative reviews")
	scrapeCmd.Flags().StringVar(&scrapePurchase, "purchase-type", "", "restrict to steam or non_steam_purchase reviews")
	scrapeCmd.Flags().BoolVarP(&scrapeResume, "resume", "r", false, "resume a previous scrape from OUTPUT")
	scrapeCmd.Flags().BoolVarP(&scrapeEndNoNew, "end-after-no-new-data", "e", false, "stop once a page contains only already-seen reviews")
	scrapeCmd.Flags().IntVarP(&scrapeNumber, "number", "n", 0, "stop after this many pages (0 = until exhausted)")
	scrapeCmd.Flags().BoolVar(&scrapeFailParse, "fail-resume-parse", false, "abort the resume if any persisted row fails to parse")
	scrapeCmd.Flags().IntVar(&scrapeCacheSize, "cache-size", 0, "staging buffer capacity in reviews (overrides config)")
	scrapeCmd.Flags().IntVar(&scrapePageSize, "page-size", 0, "reviews per page, max 100 (overrides config)")
}

func runScrape(output string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	applyFlagOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := logger.Initialize(&cfg.Logging); err != nil {
		return err
	}
	log := logger.GetLogger()

	client := steam.NewClient(cfg.Scrape.RequestTimeout, log)
	limiter := buildLimiter(&cfg.RateLimit)

	var (
		query *steam.Query
		c     *cache.Cache
	)
	if scrapeResume {
		query, c, err = prepareResume(cfg, output, log)
	} else {
		query, c, err = prepareFresh(cfg, output)
	}
	if err != nil {
		return err
	}

	title := client.AppTitle(query.AppID())
	log.InfoWithFields("starting scrape", map[string]interface{}{
		"appid":  query.AppID(),
		"title":  title,
		"output": output,
		"resume": scrapeResume,
	})

	poller, err := scraper.NewPoller(query, client, limiter, title, log)
	if err != nil {
		closeCache(c, log)
		return err
	}

	runner := scraper.NewRunner(poller, c, scraper.RunnerOptions{
		MaxBatches:        scrapeNumber,
		EndAfterNoNewData: scrapeEndNoNew,
		Retry:             cfg.Retry,
	}, log)

	runErr := runner.Run()
	closeErr := closeCache(c, log)

	if runErr != nil {
		return runErr
	}
	return closeErr
}

// applyFlagOverrides lets command-line flags win over config file and
// environment.
func applyFlagOverrides(cfg *config.Config) {
	if scrapeCacheSize > 0 {
		cfg.Scrape.CacheSize = scrapeCacheSize
	}
	if scrapePageSize > 0 {
		cfg.Scrape.PageSize = scrapePageSize
	}
	if scrapeReviewType != "" {
		cfg.Scrape.ReviewType = scrapeReviewType
	}
	if scrapePurchase != "" {
		cfg.Scrape.PurchaseType = scrapePurchase
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
}

// prepareFresh builds the query and cache for a brand-new scrape.
func prepareFresh(cfg *config.Config, output string) (*steam.Query, *cache.Cache, error) {
	if scrapeAppID == 0 {
		return nil, nil, errors.New("--appid is required for a new scrape")
	}

	c, err := cache.New(cfg.Scrape.CacheSize, output)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return nil, nil, fmt.Errorf("%s already exists; did you mean --resume?", output)
		}
		return nil, nil, err
	}

	query := steam.NewQuery(scrapeAppID).
		SetPageSize(cfg.Scrape.PageSize).
		SetReviewType(steam.ParseReviewType(cfg.Scrape.ReviewType)).
		SetPurchaseType(steam.ParsePurchaseType(cfg.Scrape.PurchaseType))

	return query, c, nil
}

// prepareResume replays the output file and builds a day-windowed
// complete-sweep query reaching back to its oldest review.
func prepareResume(cfg *config.Config, output string, log logger.Logger) (*steam.Query, *cache.Cache, error) {
	c, info, err := cache.Resume(cfg.Scrape.CacheSize, output, scrapeFailParse, log)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil, fmt.Errorf("%s does not exist; resuming needs a previous scrape's output", output)
		}
		return nil, nil, err
	}

	appid, err := strconv.ParseUint(info.AppID, 10, 32)
	if err != nil {
		closeCache(c, log)
		return nil, nil, fmt.Errorf("resume source has unusable appid %q: %w", info.AppID, err)
	}
	if scrapeAppID != 0 && uint32(appid) != scrapeAppID {
		closeCache(c, log)
		return nil, nil, fmt.Errorf("--appid %d does not match appid %d in %s", scrapeAppID, appid, output)
	}

	days, err := info.DayRange(time.Now())
	if err != nil {
		closeCache(c, log)
		return nil, nil, err
	}

	// The rescan sweeps everything in the window, so the cursor pages
	// through it at maximum size regardless of the configured page size.
	query := steam.NewQuery(uint32(appid)).
		SetPageSize(steam.MaxPageSize).
		SetReviewType(steam.ParseReviewType(cfg.Scrape.ReviewType)).
		SetPurchaseType(steam.ParsePurchaseType(cfg.Scrape.PurchaseType))
	if err := query.SetFilter(steam.FilterAll); err != nil {
		closeCache(c, log)
		return nil, nil, err
	}
	if err := query.SetDayRange(days); err != nil {
		closeCache(c, log)
		return nil, nil, err
	}

	log.InfoWithFields("resuming scrape", map[string]interface{}{
		"appid":     appid,
		"day_range": days,
	})

	return query, c, nil
}

func buildLimiter(cfg *config.RateLimitConfig) ratelimit.Limiter {
	if cfg.Mode == "token_bucket" {
		return ratelimit.NewTokenBucket(cfg.RequestsPerMinute, time.Minute)
	}
	return ratelimit.NewInterval(cfg.MinInterval)
}

func closeCache(c *cache.Cache, log logger.Logger) error {
	if err := c.Close(); err != nil {
		log.WithError(err).Error("failed to close output")
		return err
	}
	return nil
}
