package logging

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// RunLog collects timings and fields for one operation and emits them as a single entry.
// Safe for concurrent use by the workers of a batch.
type RunLog struct {
	mu      sync.Mutex
	timings map[string]int64
	fields  logrus.Fields
	logger  logrus.FieldLogger
}

func NewRunLog(logger logrus.FieldLogger) *RunLog {
	return &RunLog{
		timings: make(map[string]int64),
		fields:  make(logrus.Fields),
		logger:  OrDiscard(logger),
	}
}

// AddTiming starts a timer; calling the returned func records the elapsed milliseconds under name
func (l *RunLog) AddTiming(name string) func() {
	start := time.Now()

	return func() {
		elapsed := time.Since(start).Milliseconds()
		l.mu.Lock()
		defer l.mu.Unlock()
		l.timings[name] = elapsed
	}
}

// AddToExistingTiming is AddTiming but accumulates into name
func (l *RunLog) AddToExistingTiming(name string) func() {
	start := time.Now()

	return func() {
		elapsed := time.Since(start).Milliseconds()
		l.mu.Lock()
		defer l.mu.Unlock()
		l.timings[name] += elapsed
	}
}

func (l *RunLog) AddData(key string, value interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.fields[key] = value
}

// Log returns an entry carrying every collected field and timing
func (l *RunLog) Log() *logrus.Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	fields := make(logrus.Fields, len(l.fields)+len(l.timings))
	for key, value := range l.fields {
		fields[key] = value
	}
	for key, value := range l.timings {
		fields[key] = value
	}

	return l.logger.WithFields(fields)
}
