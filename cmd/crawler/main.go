package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"scope-crawler/pkg/config"
	"scope-crawler/pkg/corpus"
	"scope-crawler/pkg/crawler"
	"scope-crawler/pkg/fetch"
	"scope-crawler/pkg/frontier"
	"scope-crawler/pkg/storage"
	"scope-crawler/pkg/utils"
)

func main() {
	configFileFlag := flag.String("config", "", "Path to YAML config file (optional when -seed is given)")
	logLevelFlag := flag.String("loglevel", "info", "Log level (trace, debug, info, warn, error)")
	seedFlag := flag.String("seed", "", "Comma-separated seed URLs, overrides seed_urls")
	reportFlag := flag.String("report", "", "Report file path, overrides report_path")
	validateFlag := flag.Bool("validate", false, "Validate the configuration and exit")
	pprofAddr := flag.String("pprof", "", "Address for pprof HTTP server (e.g. 'localhost:6060', empty to disable)")
	flag.Parse()

	if *validateFlag {
		os.Exit(doValidate(*configFileFlag, *seedFlag, os.Stdout, os.Stderr))
	}

	log := setupLogger(*logLevelFlag, os.Stderr)

	appCfg, warnings, err := buildConfig(*configFileFlag, *seedFlag, *reportFlag)
	if err != nil {
		log.WithField("error_cat", utils.CategorizeError(err)).Fatalf("Configuration error: %v", err)
	}
	for _, w := range warnings {
		log.Warn(w)
	}
	logAppConfig(appCfg, log)

	if *pprofAddr != "" {
		go func() {
			log.Infof("Starting pprof HTTP server on: http://%s/debug/pprof/", *pprofAddr)
			if err := http.ListenAndServe(*pprofAddr, nil); err != nil {
				log.Errorf("Pprof server failed to start on %s: %v", *pprofAddr, err)
			}
		}()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		sig, ok := <-sigChan
		if !ok {
			return
		}
		log.Warnf("Received signal: %v. Fetches will fail fast until the frontier drains...", sig)
		cancel()
		select {
		case sig = <-sigChan:
			log.Warnf("Received second signal: %v. Forcing exit.", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			log.Warn("Graceful shutdown period exceeded after signal. Forcing exit.")
			os.Exit(1)
		}
	}()

	os.Exit(runCrawl(ctx, appCfg, logrus.NewEntry(log)))
}

// runCrawl wires the components, runs the crawl and returns the process exit code
func runCrawl(ctx context.Context, appCfg *config.AppConfig, log *logrus.Entry) int {
	store, err := storage.NewBadgerStore(appCfg.StateDir, log)
	if err != nil {
		log.WithField("error_cat", utils.CategorizeError(err)).Errorf("Failed to initialize frontier store: %v", err)
		return 1
	}
	defer store.Close()
	gcCtx, stopGC := context.WithCancel(context.Background())
	defer stopGC()
	go store.RunGC(gcCtx, 10*time.Minute)

	front := frontier.NewFrontier(store, log)
	if front.Seed(appCfg.SeedURLs...) == 0 {
		log.Error("No usable seed URLs")
		return 1
	}

	patterns, err := appCfg.Trap.CompiledPathPatterns()
	if err != nil {
		log.Errorf("Invalid path patterns: %v", err)
		return 1
	}

	httpClient := fetch.NewClient(appCfg.HTTPClient, log)
	fetcher := fetch.NewFetcher(httpClient, fetch.RetryPolicy{
		MaxRetries:        appCfg.MaxRetries,
		InitialRetryDelay: appCfg.InitialRetryDelay,
		MaxRetryDelay:     appCfg.MaxRetryDelay,
	}, appCfg.UserAgent, log)
	limiter := fetch.NewRateLimiter(appCfg.DelayPerHost, appCfg.RequestsPerSecond, log)
	var robots *fetch.RobotsHandler
	if appCfg.EffectiveRespectRobots() {
		robots = fetch.NewRobotsHandler(fetcher, limiter, appCfg.UserAgent, log)
	}
	pages := corpus.NewHTTPCorpus(appCfg.CorpusDir, fetcher, robots, limiter, appCfg.MaxPageSizeBytes, log)

	c := crawler.NewCrawler(front, pages, crawler.Options{
		ScopeSuffix:        appCfg.ScopeSuffix,
		Trap:               appCfg.Trap.DetectorOptions(),
		DisallowedPatterns: patterns,
		ReportPath:         appCfg.ReportPath,
		TopWords:           appCfg.TopWords,
	}, log)

	runErr := c.Run(ctx)
	front.Close()

	if appCfg.SeenLogPath != "" {
		if err := store.WriteSeenLog(appCfg.SeenLogPath); err != nil {
			log.Errorf("Error writing seen log: %v", err)
		}
	}

	if runErr != nil {
		log.WithField("error_cat", utils.CategorizeError(runErr)).Errorf("Crawl finished with error: %v", runErr)
		return 1
	}
	if errors.Is(ctx.Err(), context.Canceled) {
		log.Warn("Crawl cancelled; report reflects the pages fetched before the signal.")
	}
	log.Info("Crawl completed successfully.")
	return 0
}

// loadConfig reads the YAML file at path; an empty path yields an empty config
func loadConfig(path string) (*config.AppConfig, error) {
	if path == "" {
		return &config.AppConfig{}, nil
	}
	return config.Load(path)
}

// buildConfig loads the config, applies the command-line overrides and validates it
func buildConfig(configPath, seeds, reportPath string) (*config.AppConfig, []string, error) {
	appCfg, err := loadConfig(configPath)
	if err != nil {
		return nil, nil, err
	}
	if seeds != "" {
		appCfg.SeedURLs = splitSeeds(seeds)
	}
	if reportPath != "" {
		appCfg.ReportPath = reportPath
	}
	warnings, err := appCfg.Validate()
	if err != nil {
		return nil, nil, err
	}
	return appCfg, warnings, nil
}

func splitSeeds(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// doValidate performs validation and writes output to provided writers.
// Returns exit code (0 = success, 1 = error).
func doValidate(configPath, seeds string, stdout, stderr io.Writer) int {
	appCfg, warnings, err := buildConfig(configPath, seeds, "")
	if err != nil {
		fmt.Fprintf(stderr, "ERROR: %v\n", err)
		return 1
	}
	for _, w := range warnings {
		fmt.Fprintf(stdout, "WARN: %s\n", w)
	}
	fmt.Fprintf(stdout, "OK: %d seed URL(s), scope '%s', report '%s'\n",
		len(appCfg.SeedURLs), appCfg.ScopeSuffix, appCfg.ReportPath)
	fmt.Fprintln(stdout, "\nConfiguration valid.")
	return 0
}

// setupLogger creates a configured logrus.Logger with the given log level.
func setupLogger(logLevelStr string, out io.Writer) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(out)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: "15:04:05.000"})
	log.SetLevel(logrus.InfoLevel)

	level, err := logrus.ParseLevel(logLevelStr)
	if err != nil {
		log.Warnf("Invalid log level '%s', using default 'info'. Error: %v", logLevelStr, err)
	} else {
		log.SetLevel(level)
	}
	return log
}

// logAppConfig logs the effective configuration
func logAppConfig(appCfg *config.AppConfig, log *logrus.Logger) {
	log.Infof("Config: Seeds:%d, Scope:'%s', Report:%s, TopWords:%d",
		len(appCfg.SeedURLs), appCfg.ScopeSuffix, appCfg.ReportPath, appCfg.TopWords)
	log.Infof("Config: StateDir:'%s', CorpusDir:%s, RespectRobots:%t, DelayPerHost:%v, RequestsPerSecond:%.2f",
		appCfg.StateDir, appCfg.CorpusDir, appCfg.EffectiveRespectRobots(), appCfg.DelayPerHost, appCfg.RequestsPerSecond)
	log.Infof("Config Retries: Max:%d, InitialDelay:%v, MaxDelay:%v",
		appCfg.MaxRetries, appCfg.InitialRetryDelay, appCfg.MaxRetryDelay)
	log.Infof("Config Traps: MaxPathVisits:%d, MaxURLLength:%d, FlagFirstSighting:%t, PathPatterns:%d",
		appCfg.Trap.MaxPathVisits, appCfg.Trap.MaxURLLength, appCfg.Trap.EffectiveFlagFirstSighting(),
		len(appCfg.Trap.DisallowedPathPatterns))
	log.Infof("Config HTTP Client: Timeout:%v, MaxIdle:%d, MaxIdlePerHost:%d, IdleTimeout:%v, TLSTimeout:%v, DialerTimeout:%v",
		appCfg.HTTPClient.Timeout, appCfg.HTTPClient.MaxIdleConns, appCfg.HTTPClient.MaxIdleConnsPerHost,
		appCfg.HTTPClient.IdleConnTimeout, appCfg.HTTPClient.TLSHandshakeTimeout, appCfg.HTTPClient.DialerTimeout)
}
