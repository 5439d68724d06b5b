// Package config loads and validates the CLI-supplied parameters the
// orchestrator needs: endpoint, image selector, pool sizes, retry budget,
// HTTP timeout, and output path.
package config

import (
	"compress/zlib"
	"time"

	"github.com/pkg/errors"
)

// Config is the validated, fully-resolved set of parameters a run needs.
type Config struct {
	Endpoint        string
	ImageNum        int
	BufferSize      int
	NumProducers    int
	NumConsumers    int
	ConsumerDelayMS int
	RetryBudget     int
	HTTPTimeoutMS   int
	OutPath         string
	Total           int
}

// Defaults returns a Config with every field at its documented default,
// except Endpoint which has none and must always be supplied.
func Defaults() Config {
	return Config{
		ImageNum:        1,
		BufferSize:      20,
		NumProducers:    4,
		NumConsumers:    4,
		ConsumerDelayMS: 0,
		RetryBudget:     3,
		HTTPTimeoutMS:   5000,
		OutPath:         "all.png",
		Total:           50,
	}
}

// Validate checks every field against its documented legal range; the
// orchestrator must refuse to start rather than run with an out-of-range
// parameter.
func (c Config) Validate() error {
	if c.Endpoint == "" {
		return errors.New("config: endpoint is required")
	}
	if c.ImageNum < 1 || c.ImageNum > 3 {
		return errors.Errorf("config: image_num %d out of range [1,3]", c.ImageNum)
	}
	if c.BufferSize < 1 || c.BufferSize > c.Total {
		return errors.Errorf("config: buffer_size %d out of range [1,%d]", c.BufferSize, c.Total)
	}
	if c.NumProducers < 1 || c.NumProducers > 20 {
		return errors.Errorf("config: num_producers %d out of range [1,20]", c.NumProducers)
	}
	if c.NumConsumers < 1 || c.NumConsumers > 20 {
		return errors.Errorf("config: num_consumers %d out of range [1,20]", c.NumConsumers)
	}
	if c.ConsumerDelayMS < 0 || c.ConsumerDelayMS > 1000 {
		return errors.Errorf("config: consumer_delay_ms %d out of range [0,1000]", c.ConsumerDelayMS)
	}
	if c.RetryBudget < 0 || c.RetryBudget > 10 {
		return errors.Errorf("config: retry_budget %d out of range [0,10]", c.RetryBudget)
	}
	if c.HTTPTimeoutMS < 100 || c.HTTPTimeoutMS > 60000 {
		return errors.Errorf("config: http_timeout_ms %d out of range [100,60000]", c.HTTPTimeoutMS)
	}
	if c.Total < 1 {
		return errors.Errorf("config: total %d must be > 0", c.Total)
	}
	if c.OutPath == "" {
		return errors.New("config: out path must not be empty")
	}
	return nil
}

// ConsumerDelay returns ConsumerDelayMS as a time.Duration.
func (c Config) ConsumerDelay() time.Duration {
	return time.Duration(c.ConsumerDelayMS) * time.Millisecond
}

// HTTPTimeout returns HTTPTimeoutMS as a time.Duration.
func (c Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTPTimeoutMS) * time.Millisecond
}

// CompressionLevel is the zlib level the orchestrator re-encodes the
// assembled raster with. It is not user-configurable; exposed as a function
// so callers don't need to import zlib.
func CompressionLevel() int {
	return zlib.DefaultCompression
}
