package storage

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"uniscope/internal/entity"
	"uniscope/internal/model"
)

func TestBlockSinkRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "blocks.jsonl")

	sink := NewJsonlBlockSink(path)
	blocks := []model.Block{
		{Number: 10, Hash: "0x10", Timestamp: 1000},
		{Number: 11, Hash: "0x11", Timestamp: 1012, Transactions: []model.Transaction{
			{Hash: "0xtx", Calls: []model.Call{{Logs: []model.Log{{Address: "0xabc", Ordinal: 3}}}}},
		}},
	}
	if err := sink.PutBlockBatch(blocks[:1]); err != nil {
		t.Fatal(err)
	}
	// A second batch appends.
	if err := sink.PutBlockBatch(blocks[1:]); err != nil {
		t.Fatal(err)
	}

	reader, err := OpenBlockReader(path)
	if err != nil {
		t.Fatal(err)
	}
	defer reader.Close()

	first, err := reader.Next()
	if err != nil {
		t.Fatal(err)
	}
	if first.Number != 10 || first.Timestamp != 1000 {
		t.Fatalf("first block = %+v", first)
	}

	second, err := reader.Next()
	if err != nil {
		t.Fatal(err)
	}
	if len(second.Transactions) != 1 || second.Transactions[0].Calls[0].Logs[0].Ordinal != 3 {
		t.Fatalf("second block = %+v", second)
	}

	if _, err := reader.Next(); !errors.Is(err, io.EOF) {
		t.Fatalf("want EOF, got %v", err)
	}
}

func TestChangeSinkWritesBothFiles(t *testing.T) {
	dir := t.TempDir()
	sink := NewJsonlChangeSink(dir)

	changes := []entity.Change{{Block: 5, Entity: "pool", PK: "0xabc", Field: "liquidity", Op: "set", New: "100"}}
	if err := sink.PutChangeBatch(changes); err != nil {
		t.Fatal(err)
	}
	errs := []model.DecodeError{{BlockNumber: 5, Address: "0xabc", Error: "boom"}}
	if err := sink.PutDecodeErrorBatch(errs); err != nil {
		t.Fatal(err)
	}

	for _, name := range []string{"entity_changes.jsonl", "decode_errors.jsonl"} {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if len(data) == 0 {
			t.Fatalf("%s is empty", name)
		}
	}
}

func TestChangeSinkEmptyBatchWritesNothing(t *testing.T) {
	dir := t.TempDir()
	sink := NewJsonlChangeSink(dir)
	if err := sink.PutChangeBatch(nil); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(dir, "entity_changes.jsonl")); !os.IsNotExist(err) {
		t.Fatal("empty batch must not create the file")
	}
}
