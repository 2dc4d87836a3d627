package oracle

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/BlockonautAlchemist/Btc-trading-bot/internal/forecast"
)

// Journal appends accepted forecasts as JSON lines.
type Journal struct {
	mu   sync.Mutex
	file *os.File
	enc  *json.Encoder
}

type journalEntry struct {
	ReceivedAt  time.Time          `json:"received_at"`
	Timestamp   time.Time          `json:"timestamp"`
	Direction   forecast.Direction `json:"direction"`
	Confidence  float64            `json:"confidence"`
	TargetPrice float64            `json:"target_price"`
	Rationale   string             `json:"rationale"`
}

// NewJournal creates/opens the target file and returns a journal.
func NewJournal(path string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	return &Journal{file: file, enc: json.NewEncoder(file)}, nil
}

// Append writes one accepted forecast. Best effort: journal failures never
// fail a tick.
func (j *Journal) Append(fc *forecast.Forecast) {
	if fc == nil {
		return
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	_ = j.enc.Encode(journalEntry{
		ReceivedAt:  time.Now().UTC(),
		Timestamp:   fc.Timestamp,
		Direction:   fc.Direction,
		Confidence:  fc.Confidence,
		TargetPrice: fc.TargetPrice,
		Rationale:   fc.Rationale,
	})
}

// Close flushes and closes the file handle.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.file == nil {
		return nil
	}
	err := j.file.Close()
	j.file = nil
	return err
}
