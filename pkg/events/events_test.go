package events

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemorySinkBoundedHistory(t *testing.T) {
	sink := NewMemorySink(3)
	for i := 0; i < 5; i++ {
		sink.Add("vault-a", Event{Type: TypeFill, Status: StatusApplied, Symbol: fmt.Sprintf("S%d", i)})
	}

	list := sink.List("vault-a")
	require.Len(t, list, 3)
	assert.Equal(t, "S2", list[0].Symbol)
	assert.Equal(t, "S4", list[2].Symbol)
}

func TestMemorySinkStampsTime(t *testing.T) {
	sink := NewMemorySink(10)
	sink.Add("vault-a", Event{Type: TypeExecOpen, Status: StatusAck})

	list := sink.List("vault-a")
	require.Len(t, list, 1)
	assert.False(t, list[0].At.IsZero())
}

func TestMemorySinkVaultsIsolated(t *testing.T) {
	sink := NewMemorySink(10)
	sink.Add("vault-a", Event{Type: TypeExecOpen, Status: StatusAck})

	assert.Empty(t, sink.List("vault-b"))
}

func TestMultiSinkFansOut(t *testing.T) {
	a := NewMemorySink(10)
	b := NewMemorySink(10)
	multi := MultiSink{a, b}

	multi.Add("vault-a", Event{Type: TypeExecClose, Status: StatusDryRun})

	assert.Len(t, a.List("vault-a"), 1)
	assert.Len(t, b.List("vault-a"), 1)
}
