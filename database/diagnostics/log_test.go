package diagnostics

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/gaborage/go-tables/config"
	"github.com/gaborage/go-tables/logger"
)

type recordingSink struct {
	mu      sync.Mutex
	entries []Entry
	err     error
}

func (s *recordingSink) Write(_ context.Context, e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, e)
	return s.err
}

func fixedClock(t time.Time) func() time.Time { return func() time.Time { return t } }

func TestAffectedText(t *testing.T) {
	tests := []struct {
		n    int64
		want string
	}{
		{-1, "None"},
		{0, "None"},
		{1, "1 record"},
		{2, "2 records"},
		{1500, "1500 records"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, AffectedText(tt.n))
	}
}

func TestTimerText(t *testing.T) {
	assert.Equal(t, "0.0000s", TimerText(0))
	assert.Equal(t, "0.0123s", TimerText(12300*time.Microsecond))
	assert.Equal(t, "1.5000s", TimerText(1500*time.Millisecond))
}

func TestRecord(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	l := New()
	l.now = fixedClock(now)

	e := l.Record(context.Background(), Record{
		Statement:  "SELECT * FROM `t`",
		Start:      now.Add(-250 * time.Millisecond),
		Result:     3,
		Affected:   3,
		Connection: "main",
		Table:      "t",
	})

	_, err := uuid.Parse(e.ID)
	require.NoError(t, err)
	assert.Equal(t, "0.2500s", e.Timer)
	assert.Equal(t, 250*time.Millisecond, e.Duration)
	assert.Equal(t, 3, e.Result)
	assert.Equal(t, "3 records", e.Affected)
	assert.Equal(t, now, e.Time)
	assert.Empty(t, e.Error)

	list := l.List()
	require.Len(t, list, 1)
	assert.Equal(t, e, list[0])
}

func TestRecordError(t *testing.T) {
	l := New()
	e := l.Record(context.Background(), Record{Statement: "DELETE", Err: errors.New("locked")})
	assert.Equal(t, "locked", e.Error)
	assert.Equal(t, "None", e.Affected)
	assert.Equal(t, "0.0000s", e.Timer)
}

func TestListIsACopyInOrder(t *testing.T) {
	l := New()
	for _, s := range []string{"a", "b", "c"} {
		l.Record(context.Background(), Record{Statement: s})
	}
	list := l.List()
	list[0].Statement = "changed"

	got := l.List()
	require.Len(t, got, 3)
	assert.Equal(t, "a", got[0].Statement)
	assert.Equal(t, "c", got[2].Statement)
}

func TestMaxEntries(t *testing.T) {
	l := New(WithMaxEntries(2))
	for _, s := range []string{"a", "b", "c"} {
		l.Record(context.Background(), Record{Statement: s})
	}
	got := l.List()
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[0].Statement)
	assert.Equal(t, "c", got[1].Statement)

	l.Reset()
	assert.Equal(t, 0, l.Len())
}

func TestNilLog(t *testing.T) {
	var l *Log
	assert.Equal(t, Entry{}, l.Record(context.Background(), Record{Statement: "x"}))
	assert.Nil(t, l.List())
	assert.Equal(t, 0, l.Len())
	l.Reset()
}

func TestSinkReceivesEntries(t *testing.T) {
	var buf bytes.Buffer
	sink := &recordingSink{err: errors.New("unreachable")}
	l := New(WithSink(sink), WithSink(nil), WithLogger(logger.NewWithWriter(&buf, "debug", nil)))

	e := l.Record(context.Background(), Record{Statement: "SELECT 1"})
	require.Len(t, sink.entries, 1)
	assert.Equal(t, e.ID, sink.entries[0].ID)
	assert.Equal(t, 1, l.Len())
	assert.Contains(t, buf.String(), "Failed to export diagnostics entry")
}

func TestConcurrentRecord(t *testing.T) {
	l := New()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.Record(context.Background(), Record{Statement: "SELECT 1"})
		}()
	}
	wg.Wait()
	assert.Equal(t, 20, l.Len())
}

type fakeInserter struct {
	docs []any
	err  error
}

func (f *fakeInserter) InsertOne(_ context.Context, doc any, _ ...options.Lister[options.InsertOneOptions]) (*mongo.InsertOneResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.docs = append(f.docs, doc)
	return &mongo.InsertOneResult{InsertedID: doc.(Entry).ID}, nil
}

func TestMongoSinkWrite(t *testing.T) {
	ins := &fakeInserter{}
	s := &MongoSink{coll: ins, timeout: time.Second}

	require.NoError(t, s.Write(context.Background(), Entry{ID: "abc"}))
	require.Len(t, ins.docs, 1)

	ins.err = errors.New("no primary")
	err := s.Write(context.Background(), Entry{ID: "def"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "def")
	assert.ErrorIs(t, err, ins.err)

	assert.NoError(t, s.Close(context.Background()))
}

func TestNewMongoSinkNotConfigured(t *testing.T) {
	_, err := NewMongoSink(context.Background(), &config.MongoConfig{})
	assert.True(t, config.IsNotConfigured(err))

	_, err = NewMongoSink(context.Background(), nil)
	assert.True(t, config.IsNotConfigured(err))
}

func TestNewMongoSinkConnectFailure(t *testing.T) {
	orig := connectMongo
	t.Cleanup(func() { connectMongo = orig })
	connectMongo = func(*options.ClientOptions) (*mongo.Client, error) {
		return nil, errors.New("bad uri")
	}

	_, err := NewMongoSink(context.Background(), &config.MongoConfig{URI: "mongodb://localhost:27017"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to connect to MongoDB")
}
