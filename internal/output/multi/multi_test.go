package multi

import (
	"context"
	"errors"
	"testing"

	"github.com/starlab-io/rmesg/internal/model"
	"github.com/starlab-io/rmesg/internal/stream"
)

type fakeOutput struct {
	writes   int
	closes   int
	writeErr error
	closeErr error
}

func (f *fakeOutput) Write(context.Context, stream.Item) error {
	f.writes++
	return f.writeErr
}

func (f *fakeOutput) Close() error {
	f.closes++
	return f.closeErr
}

func TestWriteFansOut(t *testing.T) {
	a := &fakeOutput{}
	b := &fakeOutput{}
	m := New(a, b)

	item := stream.Item{Entry: &model.Entry{Message: "x"}}
	if err := m.Write(context.Background(), item); err != nil {
		t.Fatalf("write: %v", err)
	}
	if a.writes != 1 || b.writes != 1 {
		t.Fatalf("expected one write each, got %d and %d", a.writes, b.writes)
	}
}

func TestWriteContinuesPastFailure(t *testing.T) {
	boom := errors.New("boom")
	a := &fakeOutput{writeErr: boom}
	b := &fakeOutput{}
	m := New(a, b)

	err := m.Write(context.Background(), stream.Item{Entry: &model.Entry{Message: "x"}})
	if !errors.Is(err, boom) {
		t.Fatalf("expected joined error to include the failure, got %v", err)
	}
	if b.writes != 1 {
		t.Fatal("second output must still receive the item")
	}
}

func TestCloseClosesAll(t *testing.T) {
	boom := errors.New("close failed")
	a := &fakeOutput{closeErr: boom}
	b := &fakeOutput{}
	m := New(a, b)

	err := m.Close()
	if !errors.Is(err, boom) {
		t.Fatalf("expected joined close error, got %v", err)
	}
	if a.closes != 1 || b.closes != 1 {
		t.Fatalf("expected one close each, got %d and %d", a.closes, b.closes)
	}
}
