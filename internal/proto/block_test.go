package proto

import (
	"context"
	"testing"
)

func TestBlockInfoRoundTrip(t *testing.T) {
	cases := []BlockInfo{
		{IsOverflows: false, BucketNum: -1},
		{IsOverflows: true, BucketNum: 3},
		{IsOverflows: false, BucketNum: 0}, // genuine bucket 0, not the "N/A" sentinel
	}
	for _, want := range cases {
		client, server := pipe(t)
		w := NewWriter(client)
		r := NewReader(server)

		done := make(chan error, 1)
		go func() {
			if err := WriteBlockInfo(w, want); err != nil {
				done <- err
				return
			}
			done <- w.Flush(context.Background())
		}()

		got, err := ReadBlockInfo(r)
		if err != nil {
			t.Fatalf("ReadBlockInfo: %v", err)
		}
		if err := <-done; err != nil {
			t.Fatalf("writer side: %v", err)
		}
		if got != want {
			t.Errorf("got %+v, want %+v", got, want)
		}
	}
}

func TestBlockHeaderRoundTrip(t *testing.T) {
	want := BlockHeader{
		Info:  BlockInfo{BucketNum: -1},
		NRows: 2,
		Columns: []RawColumn{
			{Name: "id", Type: "UInt32"},
			{Name: "name", Type: "String"},
		},
	}
	client, server := pipe(t)
	w := NewWriter(client)
	r := NewReader(server)

	done := make(chan error, 1)
	go func() {
		if err := WriteBlockHeader(w, want); err != nil {
			done <- err
			return
		}
		done <- w.Flush(context.Background())
	}()

	got, err := ReadBlockHeader(r)
	if err != nil {
		t.Fatalf("ReadBlockHeader: %v", err)
	}
	if err := <-done; err != nil {
		t.Fatalf("writer side: %v", err)
	}
	if got.NRows != want.NRows || len(got.Columns) != len(want.Columns) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
	for i := range want.Columns {
		if got.Columns[i] != want.Columns[i] {
			t.Errorf("column %d: got %+v, want %+v", i, got.Columns[i], want.Columns[i])
		}
	}
}

func TestEmptyBlockHeaderIsEndOfStreamSentinel(t *testing.T) {
	h := BlockHeader{Info: BlockInfo{BucketNum: -1}}
	if !h.IsEndOfStream() {
		t.Fatal("zero-rows/zero-columns header should report IsEndOfStream")
	}
	h.Columns = []RawColumn{{Name: "x", Type: "String"}}
	if h.IsEndOfStream() {
		t.Fatal("a header with columns should not report IsEndOfStream")
	}
}
