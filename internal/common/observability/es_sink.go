package observability

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Indexer stores one JSON document. database.ElasticsearchClient satisfies it.
type Indexer interface {
	Index(ctx context.Context, index, documentID string, body []byte) error
}

// SpanDocument is the indexed form of a finished span.
type SpanDocument struct {
	SpanID     string    `json:"span_id"`
	ParentID   string    `json:"parent_id,omitempty"`
	TraceID    string    `json:"trace_id"`
	Name       string    `json:"name"`
	Input      string    `json:"input,omitempty"`
	Output     string    `json:"output,omitempty"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	EndedAt    time.Time `json:"ended_at"`
	DurationMs int64     `json:"duration_ms"`
}

type spanRefKey struct{}

type spanRef struct {
	traceID string
	spanID  string
}

// SpanSink indexes finished spans into Elasticsearch from a background
// goroutine. End never blocks: when the buffer is full the span is dropped.
type SpanSink struct {
	indexer Indexer
	index   string
	logger  Logger
	queue   chan SpanDocument
	dropped atomic.Int64
	wg      sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

func NewSpanSink(indexer Indexer, index string, buffer int, log Logger) *SpanSink {
	if buffer <= 0 {
		buffer = 256
	}
	return &SpanSink{
		indexer: indexer,
		index:   index,
		logger:  log,
		queue:   make(chan SpanDocument, buffer),
	}
}

// Start launches the indexing loop; it exits when Close is called.
func (s *SpanSink) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for doc := range s.queue {
			s.write(doc)
		}
	}()
}

// Close stops accepting spans and waits for queued spans to be written.
func (s *SpanSink) Close() {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.queue)
	}
	s.mu.Unlock()
	s.wg.Wait()
}

// Dropped reports spans discarded because the buffer was full.
func (s *SpanSink) Dropped() int64 {
	return s.dropped.Load()
}

func (s *SpanSink) write(doc SpanDocument) {
	body, err := json.Marshal(doc)
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.indexer.Index(ctx, s.index, doc.SpanID, body); err != nil {
		s.logger.Warn("span index failed", map[string]interface{}{
			"span":  doc.Name,
			"error": err.Error(),
		})
	}
}

// enqueue holds the read lock so Close cannot close the queue mid-send.
func (s *SpanSink) enqueue(doc SpanDocument) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		s.dropped.Add(1)
		return
	}
	select {
	case s.queue <- doc:
	default:
		s.dropped.Add(1)
	}
}

func (s *SpanSink) StartSpan(ctx context.Context, name string) (context.Context, Span) {
	ref := spanRef{spanID: uuid.NewString()}
	parentID := ""
	if parent, ok := ctx.Value(spanRefKey{}).(spanRef); ok {
		ref.traceID = parent.traceID
		parentID = parent.spanID
	} else {
		ref.traceID = uuid.NewString()
	}

	span := &sinkSpan{
		sink: s,
		doc: SpanDocument{
			SpanID:    ref.spanID,
			ParentID:  parentID,
			TraceID:   ref.traceID,
			Name:      name,
			StartedAt: time.Now().UTC(),
		},
	}
	return context.WithValue(ctx, spanRefKey{}, ref), span
}

type sinkSpan struct {
	sink  *SpanSink
	mu    sync.Mutex
	doc   SpanDocument
	ended bool
}

func (s *sinkSpan) SetInput(v interface{}) {
	s.mu.Lock()
	s.doc.Input = serialize(v)
	s.mu.Unlock()
}

func (s *sinkSpan) SetOutput(v interface{}) {
	s.mu.Lock()
	s.doc.Output = serialize(v)
	s.mu.Unlock()
}

func (s *sinkSpan) SetError(err error) {
	if err == nil {
		return
	}
	s.mu.Lock()
	s.doc.Error = err.Error()
	s.mu.Unlock()
}

func (s *sinkSpan) End() {
	s.mu.Lock()
	if s.ended {
		s.mu.Unlock()
		return
	}
	s.ended = true
	s.doc.EndedAt = time.Now().UTC()
	s.doc.DurationMs = s.doc.EndedAt.Sub(s.doc.StartedAt).Milliseconds()
	doc := s.doc
	s.mu.Unlock()

	s.sink.enqueue(doc)
}
