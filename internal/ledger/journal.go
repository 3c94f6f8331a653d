// internal/ledger/journal.go
package ledger

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/curvelaunch/internal/events"
)

// Journal appends settled trades to a CSV file. Rows are buffered and
// flushed periodically and on Close.
type Journal struct {
	mu       sync.Mutex
	writer   *csv.Writer
	file     *os.File
	ticker   *time.Ticker
	done     chan struct{}
	logger   *zap.Logger
	filePath string

	written    uint64
	flushCount uint64
}

// OpenJournal opens path for appending, creating it and its directory when
// needed. The header is written only to an empty file.
func OpenJournal(path string, flushInterval time.Duration, logger *zap.Logger) (*Journal, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if flushInterval <= 0 {
		flushInterval = time.Second
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to stat journal: %w", err)
	}

	j := &Journal{
		writer:   csv.NewWriter(file),
		file:     file,
		ticker:   time.NewTicker(flushInterval),
		done:     make(chan struct{}),
		logger:   logger.Named("journal"),
		filePath: path,
	}

	if stat.Size() == 0 {
		j.writer.Write(events.TradeSettledHeader)
		j.writer.Flush()
		if err := j.writer.Error(); err != nil {
			j.ticker.Stop()
			file.Close()
			return nil, fmt.Errorf("failed to write journal header: %w", err)
		}
	}

	go j.periodicFlush()
	return j, nil
}

// Attach subscribes the journal to settled trades on bus.
func (j *Journal) Attach(bus *events.Bus) events.Subscription {
	return bus.Subscribe(events.TradeSettled, events.Typed(func(_ context.Context, e events.TradeSettledEvent) error {
		return j.Record(e)
	}))
}

// Record appends one settled trade.
func (j *Journal) Record(e events.TradeSettledEvent) error {
	row := e.Record()

	j.mu.Lock()
	defer j.mu.Unlock()
	if err := j.writer.Write(row); err != nil {
		return fmt.Errorf("failed to write journal row: %w", err)
	}
	j.written++
	return nil
}

// Flush writes buffered rows and syncs the file.
func (j *Journal) Flush() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.flushLocked()
}

func (j *Journal) flushLocked() error {
	j.writer.Flush()
	if err := j.writer.Error(); err != nil {
		return fmt.Errorf("journal writer error: %w", err)
	}
	if err := j.file.Sync(); err != nil {
		return fmt.Errorf("failed to sync journal: %w", err)
	}
	j.flushCount++
	return nil
}

func (j *Journal) periodicFlush() {
	for {
		select {
		case <-j.ticker.C:
			if err := j.Flush(); err != nil {
				j.logger.Error("Periodic journal flush failed",
					zap.String("file", j.filePath),
					zap.Error(err))
			}
		case <-j.done:
			return
		}
	}
}

// Close flushes and closes the file.
func (j *Journal) Close() error {
	close(j.done)
	j.ticker.Stop()

	j.mu.Lock()
	defer j.mu.Unlock()

	j.writer.Flush()
	if err := j.writer.Error(); err != nil {
		j.file.Close()
		return fmt.Errorf("journal writer error on close: %w", err)
	}
	if err := j.file.Close(); err != nil {
		return fmt.Errorf("failed to close journal: %w", err)
	}

	j.logger.Info("Journal closed",
		zap.String("file", j.filePath),
		zap.Uint64("trades", j.written),
		zap.Uint64("flushes", j.flushCount))
	return nil
}

// Stats returns the number of rows written and flushes performed.
func (j *Journal) Stats() (trades, flushes uint64) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.written, j.flushCount
}
