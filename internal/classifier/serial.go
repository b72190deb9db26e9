package classifier

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/Samoxive/modbot/common/id"
	"github.com/Samoxive/modbot/internal/metrics"
)

var ErrSerialClosed = errors.New("serial classifier closed")

type pendingRequest struct {
	ctx     context.Context
	content string
	result  chan Verdict
}

// Serial is a single-concurrency queue in front of an Evaluator, for model
// backends that cannot serve concurrent inference. In-flight requests are kept
// in a table keyed by request id and processed one at a time; a caller whose
// context ends stops waiting and its request is dropped if not yet started.
type Serial struct {
	next Evaluator

	mu       sync.Mutex
	inflight map[int64]*pendingRequest
	queue    chan int64

	stopCh    chan struct{}
	stoppedCh chan struct{}
	stopOnce  sync.Once
}

func NewSerial(next Evaluator, queueSize int) *Serial {
	if queueSize <= 0 {
		queueSize = 64
	}
	s := &Serial{
		next:      next,
		inflight:  make(map[int64]*pendingRequest),
		queue:     make(chan int64, queueSize),
		stopCh:    make(chan struct{}),
		stoppedCh: make(chan struct{}),
	}
	go s.run()
	return s
}

func (s *Serial) Evaluate(ctx context.Context, content string) Verdict {
	reqID := id.New()
	req := &pendingRequest{
		ctx:     ctx,
		content: content,
		result:  make(chan Verdict, 1),
	}

	s.mu.Lock()
	s.inflight[reqID] = req
	s.mu.Unlock()
	metrics.SerialQueueDepth.Inc()

	select {
	case s.queue <- reqID:
	case <-ctx.Done():
		s.abandon(reqID)
		return inconclusive(ctxReason(ctx), ctx.Err())
	case <-s.stopCh:
		s.abandon(reqID)
		return inconclusive(ReasonCanceled, ErrSerialClosed)
	}

	select {
	case v := <-req.result:
		return v
	case <-ctx.Done():
		s.abandon(reqID)
		slog.WarnContext(ctx, "gave up waiting for serialized classification", "request_id", reqID)
		return inconclusive(ctxReason(ctx), ctx.Err())
	case <-s.stopCh:
		s.abandon(reqID)
		return inconclusive(ReasonCanceled, ErrSerialClosed)
	}
}

// Close stops the worker after the request it is currently running, if any.
// Waiting callers are released with an Inconclusive verdict.
func (s *Serial) Close() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
	})
	<-s.stoppedCh
}

// Pending returns how many requests are registered and not yet picked up.
func (s *Serial) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.inflight)
}

func (s *Serial) run() {
	defer close(s.stoppedCh)

	for {
		select {
		case <-s.stopCh:
			return
		case reqID := <-s.queue:
			req := s.take(reqID)
			if req == nil {
				// caller already gave up
				continue
			}
			if err := req.ctx.Err(); err != nil {
				req.result <- inconclusive(ctxReason(req.ctx), err)
				continue
			}
			req.result <- s.next.Evaluate(req.ctx, req.content)
		}
	}
}

func (s *Serial) take(reqID int64) *pendingRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.inflight[reqID]
	if !ok {
		return nil
	}
	delete(s.inflight, reqID)
	metrics.SerialQueueDepth.Dec()
	return req
}

func (s *Serial) abandon(reqID int64) {
	s.take(reqID)
}

func ctxReason(ctx context.Context) Reason {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return ReasonTimeout
	}
	return ReasonCanceled
}
