package pipeline

import (
	"context"
	"io"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"stripfetch.adpollak.net/internal/chunk"
	"stripfetch.adpollak.net/internal/pngdoc"
)

// Strip geometry: each fragment is a 400px-wide, 6px-tall RGBA strip.
const (
	StripWidth  = 400
	StripHeight = 6
	Channels    = 4
)

// InfSize is the size in bytes of one fragment's inflated scanline data:
// each of StripHeight rows carries a 1-byte filter-type prefix ahead of its
// StripWidth*Channels pixel bytes.
const InfSize = StripHeight * (StripWidth*Channels + 1)

// Config holds everything the orchestrator needs to run one fetch-assemble
// pass, already validated by internal/config.
type Config struct {
	Total          int
	BufferSize     int
	NumProducers   int
	NumConsumers   int
	ConsumerDelay  time.Duration
	ImageNum       int
	RetryBudget    int
	CompressionLvl int // zlib level, e.g. zlib.DefaultCompression (-1)
}

// Result summarizes one completed (or partially completed) run.
type Result struct {
	Elapsed          time.Duration
	MissingSequences []int
	PNG              *pngdoc.SimplePNG
}

// Run spawns the producer and consumer pools described by cfg, assembles
// their output into a raster buffer, and re-encodes it as a PNG. It returns
// an error only for setup or final-emit failures; worker failures are
// resolved via the retry path and surfaced as Result.MissingSequences
// instead.
func Run(ctx context.Context, cfg Config, fetcher Fetcher, log *logrus.Logger) (*Result, error) {
	if cfg.Total <= 0 {
		return nil, errors.New("pipeline: Total must be > 0")
	}
	if cfg.BufferSize <= 0 {
		return nil, errors.New("pipeline: BufferSize must be > 0")
	}

	queue := NewQueue(cfg.BufferSize)
	coord := NewCoordinator(cfg.Total, cfg.RetryBudget)
	raster := make([]byte, InfSize*cfg.Total)

	start := time.Now()

	producers, producerCtx := errgroup.WithContext(ctx)
	for i := 0; i < cfg.NumProducers; i++ {
		p := &Producer{ID: i, Fetcher: fetcher, Queue: queue, Coord: coord, ImageNum: cfg.ImageNum, Log: log}
		producers.Go(func() error { return p.Run(producerCtx) })
	}

	consumers, _ := errgroup.WithContext(ctx)
	for i := 0; i < cfg.NumConsumers; i++ {
		c := &Consumer{ID: i, Queue: queue, Coord: coord, Raster: raster, InfSize: InfSize, Delay: cfg.ConsumerDelay, Log: log}
		consumers.Go(func() error { return c.Run() })
	}

	if err := producers.Wait(); err != nil {
		return nil, errors.Wrap(err, "producer pool failed")
	}
	// No producer will ever Put again: every sequence has reached a
	// terminal state (Coordinator.Claim only returns ok=false then).
	// Closing now wakes any consumer still blocked on an empty queue.
	queue.Close()

	if err := consumers.Wait(); err != nil {
		return nil, errors.Wrap(err, "consumer pool failed")
	}

	elapsed := time.Since(start)

	ihdr := chunk.IHDR{
		Width:             StripWidth,
		Height:            StripHeight * uint32(cfg.Total),
		BitDepth:          8,
		ColorType:         chunk.ColorTruecolorAlpha,
		CompressionMethod: 0,
		FilterMethod:      0,
		InterlaceMethod:   0,
	}
	png, err := pngdoc.DeflateIntoPNG(raster, cfg.CompressionLvl, ihdr)
	if err != nil {
		return nil, errors.Wrap(err, "compressing assembled raster")
	}

	missing := coord.MissingSequences()
	log.WithFields(logrus.Fields{
		"elapsed_s": elapsed.Seconds(),
		"total":     cfg.Total,
		"missing":   len(missing),
	}).Info("pipeline run complete")

	return &Result{Elapsed: elapsed, MissingSequences: missing, PNG: png}, nil
}

// WritePNG is a thin convenience wrapper so callers of Run don't need to
// import pngdoc directly just to persist Result.PNG.
func WritePNG(w io.Writer, result *Result) error {
	return pngdoc.WritePNG(w, result.PNG)
}
