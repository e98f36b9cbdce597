package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/joho/godotenv"

	whisperer "github.com/local/whisperer"
	cfgpkg "github.com/local/whisperer/internal/config"
	logpkg "github.com/local/whisperer/internal/logger"
	"github.com/local/whisperer/internal/metrics"
	"github.com/local/whisperer/internal/sources"
	"github.com/local/whisperer/internal/statuscheck"
)

func main() {
	_ = godotenv.Load()

	var (
		filePath    = flag.String("file", "", "local document to extract")
		s3URI       = flag.String("s3", "", "s3://bucket/key document to extract")
		docURL      = flag.String("url", "", "remote document URL to extract")
		wait        = flag.Bool("wait", false, "block until the extraction completes")
		webhook     = flag.String("webhook", "", "deliver the result to this registered webhook")
		mode        = flag.String("mode", "form", "processing mode")
		check       = flag.Bool("check", false, "probe configuration and API reachability, then exit")
		usage       = flag.Bool("usage", false, "print usage counters, then exit")
		metricsAddr = flag.String("metrics-addr", "", "expose prometheus metrics on this address")
	)
	flag.Parse()

	cfg := cfgpkg.FromEnv()

	log, err := logpkg.New(logpkg.Options{
		Level:      cfg.Logging.Level,
		Pretty:     cfg.Logging.Pretty,
		File:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
		Compress:   cfg.Logging.Compress,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init: %v\n", err)
		os.Exit(1)
	}

	if *metricsAddr != "" {
		metrics.Init()
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", metrics.Handler())
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil {
				log.Error().Err(err).Msg("metrics server error")
			}
		}()
	}

	ctx := context.Background()

	if *check {
		summary := statuscheck.New(statuscheck.Options{
			BaseURL: cfg.API.BaseURL,
			APIKey:  cfg.API.APIKey,
		}).Summary(ctx)
		printJSON(summary)
		return
	}

	client, err := whisperer.New(whisperer.Options{Logger: &log})
	if err != nil {
		log.Fatal().Err(err).Msg("client init failed")
	}

	if *usage {
		info, err := client.GetUsageInfo(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("usage info failed")
		}
		printJSON(info)
		return
	}

	params := whisperer.WhisperParams{
		URL:               *docURL,
		Mode:              *mode,
		UseWebhook:        *webhook,
		WaitForCompletion: *wait,
		WaitTimeout:       cfg.Poll.WaitTimeout,
	}

	switch {
	case *filePath != "":
		params.FilePath = *filePath
	case *s3URI != "":
		bucket, key, err := splitS3URI(*s3URI)
		if err != nil {
			log.Fatal().Err(err).Msg("bad -s3 argument")
		}
		doc, err := sources.FromS3(ctx, bucket, key)
		if err != nil {
			log.Fatal().Err(err).Msg("s3 download failed")
		}
		params.Stream = strings.NewReader(string(doc.Data))
		params.Filename = doc.Filename
	case *docURL != "":
		// handled via params.URL
	default:
		flag.Usage()
		os.Exit(2)
	}

	result, err := client.Whisper(ctx, params)
	if err != nil {
		log.Fatal().Err(err).Msg("whisper failed")
	}
	printJSON(result)
}

func splitS3URI(uri string) (bucket, key string, err error) {
	rest, ok := strings.CutPrefix(uri, "s3://")
	if !ok {
		return "", "", fmt.Errorf("expected s3://bucket/key, got %q", uri)
	}
	bucket, key, ok = strings.Cut(rest, "/")
	if !ok || bucket == "" || key == "" {
		return "", "", fmt.Errorf("expected s3://bucket/key, got %q", uri)
	}
	return bucket, key, nil
}

func printJSON(v any) {
	out, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(out))
}
