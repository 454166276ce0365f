package storage

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"uniscope/internal/entity"
	"uniscope/internal/model"
)

// maxLineBytes bounds a single JSONL line; dense blocks carry thousands of
// storage changes.
const maxLineBytes = 64 * 1024 * 1024

// JsonlChangeSink writes entity changes and decode errors to two JSONL files
// side by side in the output directory.
type JsonlChangeSink struct {
	changesPath string
	errorsPath  string
	mu          sync.Mutex
}

func NewJsonlChangeSink(dir string) *JsonlChangeSink {
	return &JsonlChangeSink{
		changesPath: filepath.Join(dir, "entity_changes.jsonl"),
		errorsPath:  filepath.Join(dir, "decode_errors.jsonl"),
	}
}

// PutChangeBatch appends a batch of entity changes as JSON lines.
func (s *JsonlChangeSink) PutChangeBatch(changes []entity.Change) error {
	if len(changes) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	records := make([]interface{}, len(changes))
	for i, change := range changes {
		records[i] = change
	}
	return appendLines(s.changesPath, records)
}

// PutDecodeErrorBatch appends decode diagnostics as JSON lines.
func (s *JsonlChangeSink) PutDecodeErrorBatch(errs []model.DecodeError) error {
	if len(errs) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	records := make([]interface{}, len(errs))
	for i, decodeErr := range errs {
		records[i] = decodeErr
	}
	return appendLines(s.errorsPath, records)
}

func (s *JsonlChangeSink) Close() error { return nil }

// JsonlBlockSink appends captured block traces, one block per line.
type JsonlBlockSink struct {
	path string
	mu   sync.Mutex
}

func NewJsonlBlockSink(path string) *JsonlBlockSink {
	return &JsonlBlockSink{path: path}
}

// PutBlockBatch appends a batch of block traces as JSON lines.
func (s *JsonlBlockSink) PutBlockBatch(blocks []model.Block) error {
	if len(blocks) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	records := make([]interface{}, len(blocks))
	for i, block := range blocks {
		records[i] = block
	}
	return appendLines(s.path, records)
}

func (s *JsonlBlockSink) Close() error { return nil }

func appendLines(path string, records []interface{}) error {
	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open output file: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	for _, record := range records {
		line, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("marshal record: %w", err)
		}
		if _, err := writer.Write(line); err != nil {
			return fmt.Errorf("write record: %w", err)
		}
		if err := writer.WriteByte('\n'); err != nil {
			return fmt.Errorf("write newline: %w", err)
		}
	}

	if err := writer.Flush(); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}
	return nil
}

// BlockReader streams block traces back out of a JSONL capture file.
type BlockReader struct {
	file    *os.File
	scanner *bufio.Scanner
}

func OpenBlockReader(path string) (*BlockReader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open block file: %w", err)
	}
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 1024*1024), maxLineBytes)
	return &BlockReader{file: file, scanner: scanner}, nil
}

// Next returns the next block trace, or io.EOF at the end of the file.
func (r *BlockReader) Next() (model.Block, error) {
	for r.scanner.Scan() {
		line := r.scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var block model.Block
		if err := json.Unmarshal(line, &block); err != nil {
			return model.Block{}, fmt.Errorf("parse block line: %w", err)
		}
		return block, nil
	}
	if err := r.scanner.Err(); err != nil {
		return model.Block{}, fmt.Errorf("read block file: %w", err)
	}
	return model.Block{}, io.EOF
}

func (r *BlockReader) Close() error { return r.file.Close() }
