package observability

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testLogger struct {
	mu    sync.Mutex
	warns []string
}

func (l *testLogger) Info(msg string, fields map[string]interface{}) {}

func (l *testLogger) Warn(msg string, fields map[string]interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warns = append(l.warns, msg)
}

type fakeIndexer struct {
	mu    sync.Mutex
	docs  []SpanDocument
	index string
	err   error
	block chan struct{}
}

func (f *fakeIndexer) Index(ctx context.Context, index, documentID string, body []byte) error {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.index = index
	var doc SpanDocument
	if err := json.Unmarshal(body, &doc); err != nil {
		return err
	}
	f.docs = append(f.docs, doc)
	return f.err
}

func TestSpanSink_IndexesFinishedSpans(t *testing.T) {
	idx := &fakeIndexer{}
	sink := NewSpanSink(idx, "analytics-spans", 8, &testLogger{})
	sink.Start()

	ctx, root := sink.StartSpan(context.Background(), "Analytics Agent Workflow")
	_, child := sink.StartSpan(ctx, "get_product_data")
	child.SetInput("SELECT * FROM reviews")
	child.SetError(errors.New("Attempted to call tables that do not exist"))
	child.End()
	child.End() // second End is ignored
	root.End()

	sink.Close()

	require.Len(t, idx.docs, 2)
	assert.Equal(t, "analytics-spans", idx.index)
	assert.Equal(t, "get_product_data", idx.docs[0].Name)
	assert.Equal(t, "SELECT * FROM reviews", idx.docs[0].Input)
	assert.Equal(t, "Attempted to call tables that do not exist", idx.docs[0].Error)
	assert.Equal(t, idx.docs[1].SpanID, idx.docs[0].ParentID)
	assert.Equal(t, idx.docs[1].TraceID, idx.docs[0].TraceID)
	assert.Empty(t, idx.docs[1].ParentID)
}

func TestSpanSink_DropsWhenFull(t *testing.T) {
	idx := &fakeIndexer{block: make(chan struct{})}
	sink := NewSpanSink(idx, "spans", 1, &testLogger{})

	// not started: the single buffer slot fills and the rest drop
	for i := 0; i < 3; i++ {
		_, span := sink.StartSpan(context.Background(), "step")
		span.End()
	}

	assert.Equal(t, int64(2), sink.Dropped())

	close(idx.block)
	sink.Start()
	sink.Close()
	assert.Len(t, idx.docs, 1)
}

func TestSpanSink_IndexErrorIsLogged(t *testing.T) {
	log := &testLogger{}
	idx := &fakeIndexer{err: errors.New("index_not_found")}
	sink := NewSpanSink(idx, "spans", 4, log)
	sink.Start()

	_, span := sink.StartSpan(context.Background(), "step")
	span.End()
	sink.Close()

	assert.Equal(t, []string{"span index failed"}, log.warns)
}

func TestSpanSink_EndAfterCloseDoesNotPanic(t *testing.T) {
	sink := NewSpanSink(&fakeIndexer{}, "spans", 4, &testLogger{})
	sink.Start()
	sink.Close()

	_, span := sink.StartSpan(context.Background(), "late")
	assert.NotPanics(t, span.End)
	assert.Equal(t, int64(1), sink.Dropped())
}

func TestSpanSink_ConcurrentEndAndClose(t *testing.T) {
	idx := &fakeIndexer{}
	sink := NewSpanSink(idx, "spans", 4, &testLogger{})
	sink.Start()

	const spans = 50
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < spans; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, span := sink.StartSpan(context.Background(), "step")
			span.End()
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		<-start
		sink.Close()
	}()

	close(start)
	wg.Wait()
	sink.Close()

	idx.mu.Lock()
	indexed := len(idx.docs)
	idx.mu.Unlock()
	assert.Equal(t, int64(spans), int64(indexed)+sink.Dropped())
}
