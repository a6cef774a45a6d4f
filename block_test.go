package tabular

import (
	"context"
	"net"
	"reflect"
	"testing"

	"github.com/tabulardb/go-tabular/internal/proto"
)

func pipe(t *testing.T) (net.Conn, net.Conn) {
	t.Helper()
	a, b := net.Pipe()
	t.Cleanup(func() { a.Close(); b.Close() })
	return a, b
}

func TestBlockRoundTrip(t *testing.T) {
	names := []string{"id", "name"}
	types := []string{"UInt32", "String"}
	rows := [][]any{
		{uint64(1), "alice"},
		{uint64(2), "bob"},
	}

	blk, err := NewInsertBlock(names, types, rows)
	if err != nil {
		t.Fatalf("NewInsertBlock: %v", err)
	}

	client, server := pipe(t)
	w := proto.NewWriter(client)
	r := proto.NewReader(server)

	done := make(chan error, 1)
	go func() {
		if err := WriteBlock(w, blk); err != nil {
			done <- err
			return
		}
		done <- w.Flush(context.Background())
	}()

	got, err := ReadBlock(r)
	if err != nil {
		t.Fatalf("ReadBlock: %v", err)
	}
	if err := <-done; err != nil {
		t.Fatalf("writer side: %v", err)
	}

	if got.NRows() != 2 {
		t.Fatalf("NRows() = %d, want 2", got.NRows())
	}
	if !reflect.DeepEqual(got.Names, names) || !reflect.DeepEqual(got.Types, types) {
		t.Fatalf("got names/types %v/%v, want %v/%v", got.Names, got.Types, names, types)
	}
	if !reflect.DeepEqual(got.Columns[0].Values(), []any{uint64(1), uint64(2)}) {
		t.Errorf("id column = %v", got.Columns[0].Values())
	}
	if !reflect.DeepEqual(got.Columns[1].Values(), []any{"alice", "bob"}) {
		t.Errorf("name column = %v", got.Columns[1].Values())
	}
}

func TestEmptyBlockIsEndOfStreamSentinel(t *testing.T) {
	b := &Block{}
	if !b.IsEndOfStream() {
		t.Fatal("an empty Block should report IsEndOfStream")
	}
	if b.NRows() != 0 {
		t.Errorf("NRows() = %d, want 0", b.NRows())
	}
}

func TestNewInsertBlockRowWidthMismatch(t *testing.T) {
	_, err := NewInsertBlock([]string{"a", "b"}, []string{"String", "String"}, [][]any{{"x"}})
	if err == nil {
		t.Fatal("expected an error for a row with the wrong number of values")
	}
}
