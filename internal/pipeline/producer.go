package pipeline

import (
	"context"

	"github.com/sirupsen/logrus"
)

// Fetcher is the HTTP client collaborator: fetch(url) → (sequence_number,
// body_bytes) or a transport failure. Implemented by *fetch.HTTPFetcher in
// production and by a stub in tests.
type Fetcher interface {
	Fetch(ctx context.Context, imageNum, sequence int) (seq int, body []byte, err error)
}

// Producer repeatedly claims a sequence number, fetches the fragment it
// names, and enqueues it. A transport failure or a sequence mismatch
// requeues the claimed sequence instead of abandoning it.
type Producer struct {
	ID       int
	Fetcher  Fetcher
	Queue    *Queue
	Coord    *Coordinator
	ImageNum int
	Log      *logrus.Logger
}

// Run executes the producer loop until the coordinator reports no more
// sequences will ever need fetching.
func (p *Producer) Run(ctx context.Context) error {
	for {
		sequence, ok := p.Coord.Claim()
		if !ok {
			p.Log.WithField("worker", p.ID).Debug("producer exiting: no more sequences to claim")
			return nil
		}

		log := p.Log.WithFields(logrus.Fields{"worker": p.ID, "sequence": sequence})

		seq, body, err := p.Fetcher.Fetch(ctx, p.ImageNum, sequence)
		if err != nil {
			log.WithError(err).Warn("transport failure, requeueing fragment")
			p.Coord.Requeue(sequence)
			continue
		}
		if seq != sequence {
			log.WithField("got_sequence", seq).Warn("fragment sequence header mismatch, requeueing")
			p.Coord.Requeue(sequence)
			continue
		}

		log.Debug("fetched fragment, enqueueing")
		p.Queue.Put(NewFragmentRecord(sequence, body))
	}
}
