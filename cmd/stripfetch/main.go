// Command stripfetch fetches a PNG image's horizontal strip fragments from
// a remote server, assembles them into a single image, and writes the
// result to disk. It is the CLI front-end for the stripfetch.adpollak.net
// fetch-decode-assemble pipeline.
package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"stripfetch.adpollak.net/internal/config"
	"stripfetch.adpollak.net/internal/fetch"
	"stripfetch.adpollak.net/internal/pipeline"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		logrus.WithError(err).Error("stripfetch failed")
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cfg := config.Defaults()

	cmd := &cobra.Command{
		Use:   "stripfetch",
		Short: "Fetch an image's strip fragments and assemble them into one PNG",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), cfg)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&cfg.Endpoint, "endpoint", cfg.Endpoint, "base URL of the fragment server (required)")
	flags.IntVar(&cfg.ImageNum, "image", cfg.ImageNum, "image selector, 1-3")
	flags.IntVar(&cfg.BufferSize, "buffer-size", cfg.BufferSize, "bounded queue capacity, 1-50")
	flags.IntVar(&cfg.NumProducers, "producers", cfg.NumProducers, "producer worker count, 1-20")
	flags.IntVar(&cfg.NumConsumers, "consumers", cfg.NumConsumers, "consumer worker count, 1-20")
	flags.IntVar(&cfg.ConsumerDelayMS, "delay-ms", cfg.ConsumerDelayMS, "per-fragment consumer delay in milliseconds, 0-1000")
	flags.IntVar(&cfg.RetryBudget, "retry-budget", cfg.RetryBudget, "max requeues per fragment before it's reported missing, 0-10")
	flags.IntVar(&cfg.HTTPTimeoutMS, "http-timeout-ms", cfg.HTTPTimeoutMS, "per-fetch HTTP timeout in milliseconds")
	flags.IntVar(&cfg.Total, "total", cfg.Total, "total fragment count the image is split into")
	flags.StringVar(&cfg.OutPath, "out", cfg.OutPath, "output PNG path")

	return cmd
}

func run(ctx context.Context, cfg config.Config) error {
	if err := cfg.Validate(); err != nil {
		return errors.Wrap(err, "invalid configuration")
	}

	log := logrus.StandardLogger()
	log.SetLevel(logrus.InfoLevel)

	httpClient := &http.Client{Timeout: cfg.HTTPTimeout() + 2*time.Second}
	fetcher := fetch.NewHTTPFetcher(cfg.Endpoint, httpClient, cfg.HTTPTimeout())

	pipelineCfg := pipeline.Config{
		Total:          cfg.Total,
		BufferSize:     cfg.BufferSize,
		NumProducers:   cfg.NumProducers,
		NumConsumers:   cfg.NumConsumers,
		ConsumerDelay:  cfg.ConsumerDelay(),
		ImageNum:       cfg.ImageNum,
		RetryBudget:    cfg.RetryBudget,
		CompressionLvl: config.CompressionLevel(),
	}

	result, err := pipeline.Run(ctx, pipelineCfg, fetcher, log)
	if err != nil {
		return errors.Wrap(err, "running pipeline")
	}

	out, err := os.Create(cfg.OutPath)
	if err != nil {
		return errors.Wrapf(err, "creating output file %s", cfg.OutPath)
	}
	defer out.Close()

	if err := pipeline.WritePNG(out, result); err != nil {
		return errors.Wrap(err, "writing output png")
	}

	log.WithFields(logrus.Fields{
		"out":       cfg.OutPath,
		"elapsed_s": result.Elapsed.Seconds(),
	}).Info("wrote assembled image")

	if len(result.MissingSequences) > 0 {
		log.WithField("missing_sequences", result.MissingSequences).
			Warn("some fragments could not be fetched/parsed within the retry budget")
		return errors.Errorf("%d fragments permanently missing: %v", len(result.MissingSequences), result.MissingSequences)
	}

	return nil
}
