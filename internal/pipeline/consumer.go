package pipeline

import (
	"time"

	"github.com/sirupsen/logrus"

	"stripfetch.adpollak.net/internal/pngdoc"
)

// Consumer dequeues fragments, parses them as PNGs, inflates the IDAT
// payload, and places the result into the shared raster buffer at the
// offset its sequence number implies. Any parse, inflate, or bounds failure
// requeues the sequence instead of silently dropping it.
type Consumer struct {
	ID      int
	Queue   *Queue
	Coord   *Coordinator
	Raster  []byte
	InfSize int
	Delay   time.Duration
	Log     *logrus.Logger
}

// Run executes the consumer loop until the queue is closed and drained,
// which happens once every sequence has reached a terminal state and every
// producer has exited (Run in orchestrator.go closes the queue then).
func (c *Consumer) Run() error {
	for {
		rec, ok := c.Queue.Get()
		if !ok {
			c.Log.WithField("worker", c.ID).Debug("consumer exiting: queue closed and drained")
			return nil
		}

		if c.Delay > 0 {
			time.Sleep(c.Delay)
		}

		log := c.Log.WithFields(logrus.Fields{"worker": c.ID, "sequence": rec.Sequence})

		doc, err := pngdoc.ParsePNG(rec.Bytes())
		if err != nil {
			log.WithError(err).Warn("failed to parse fragment as png, requeueing")
			c.Coord.Requeue(rec.Sequence)
			continue
		}
		if doc.FirstCRCMismatch != nil {
			log.WithError(doc.FirstCRCMismatch).Warn("crc mismatch in fragment, continuing with its data")
		}

		inflated, err := pngdoc.InflateIDAT(doc.IDAT)
		if err != nil {
			log.WithError(err).Warn("failed to inflate fragment idat, requeueing")
			c.Coord.Requeue(rec.Sequence)
			continue
		}

		offset := rec.Sequence * c.InfSize
		if offset < 0 || offset+c.InfSize > len(c.Raster) {
			log.WithField("offset", offset).Warn("inflated fragment does not fit raster bounds, requeueing")
			c.Coord.Requeue(rec.Sequence)
			continue
		}
		copy(c.Raster[offset:offset+c.InfSize], inflated)

		if alreadyConsumed := c.Coord.MarkConsumed(rec.Sequence); alreadyConsumed {
			log.Warn("sequence was already placed; duplicate consumption ignored")
		} else {
			log.Debug("placed fragment into raster")
		}
	}
}
