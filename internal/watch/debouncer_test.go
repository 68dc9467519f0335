package watch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDebouncer_SingleEvent_PassesThrough(t *testing.T) {
	d := newDebouncer(30 * time.Millisecond)
	defer d.stop()

	d.add(Event{Path: "main.go", Operation: OpCreate, Timestamp: time.Now()})

	select {
	case batch := <-d.output():
		require.Len(t, batch, 1)
		assert.Equal(t, "main.go", batch[0].Path)
		assert.Equal(t, OpCreate, batch[0].Operation)
	case <-time.After(200 * time.Millisecond):
		t.Fatal("timeout waiting for debounced event")
	}
}

func TestDebouncer_RepeatedModify_Coalesces(t *testing.T) {
	d := newDebouncer(60 * time.Millisecond)
	defer d.stop()

	for i := 0; i < 5; i++ {
		d.add(Event{Path: "main.go", Operation: OpModify, Timestamp: time.Now()})
		time.Sleep(10 * time.Millisecond)
	}

	select {
	case batch := <-d.output():
		require.Len(t, batch, 1)
		assert.Equal(t, OpModify, batch[0].Operation)
	case <-time.After(500 * time.Millisecond):
		t.Fatal("timeout waiting for debounced batch")
	}
}

func TestDebouncer_CreateThenDelete_Cancels(t *testing.T) {
	d := newDebouncer(60 * time.Millisecond)
	defer d.stop()

	d.add(Event{Path: "tmp.go", Operation: OpCreate, Timestamp: time.Now()})
	d.add(Event{Path: "tmp.go", Operation: OpDelete, Timestamp: time.Now()})

	select {
	case batch := <-d.output():
		t.Fatalf("expected no batch for cancelled create+delete, got %v", batch)
	case <-time.After(150 * time.Millisecond):
	}
}

func TestDebouncer_DeleteThenCreate_BecomesModify(t *testing.T) {
	d := newDebouncer(60 * time.Millisecond)
	defer d.stop()

	d.add(Event{Path: "swap.go", Operation: OpDelete, Timestamp: time.Now()})
	d.add(Event{Path: "swap.go", Operation: OpCreate, Timestamp: time.Now()})

	select {
	case batch := <-d.output():
		require.Len(t, batch, 1)
		assert.Equal(t, OpModify, batch[0].Operation)
	case <-time.After(300 * time.Millisecond):
		t.Fatal("timeout waiting for debounced batch")
	}
}
