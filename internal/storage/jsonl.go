package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"burrowfeed/internal/model"
)

// Record kinds written to JSONL.
const (
	RecordEvent = "event"
	RecordPrice = "price_snapshot"
)

// Record is one JSONL line.
type Record struct {
	Type  string               `json:"type"`
	Event *model.Event         `json:"event,omitempty"`
	Price *model.PriceSnapshot `json:"price,omitempty"`
}

// JsonlStorage appends records to a JSONL file.
type JsonlStorage struct {
	path string
	mu   sync.Mutex
}

func NewJsonlStorage(path string) *JsonlStorage {
	return &JsonlStorage{path: path}
}

// PutEvents appends one line per event, oldest first.
func (s *JsonlStorage) PutEvents(_ context.Context, events []model.Event) error {
	if len(events) == 0 {
		return nil
	}
	records := make([]Record, 0, len(events))
	for i := len(events) - 1; i >= 0; i-- {
		ev := events[i]
		records = append(records, Record{Type: RecordEvent, Event: &ev})
	}
	return s.appendRecords(records)
}

// PutPriceSnapshot appends one price snapshot line.
func (s *JsonlStorage) PutPriceSnapshot(_ context.Context, snap model.PriceSnapshot) error {
	return s.appendRecords([]Record{{Type: RecordPrice, Price: &snap}})
}

func (s *JsonlStorage) appendRecords(records []Record) error {
	dir := filepath.Dir(s.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open output file: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	enc := json.NewEncoder(writer)
	for _, record := range records {
		if err := enc.Encode(record); err != nil {
			return fmt.Errorf("write %s record: %w", record.Type, err)
		}
	}

	if err := writer.Flush(); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}
	return nil
}
