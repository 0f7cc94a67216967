package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromContextAttachesRunFields(t *testing.T) {
	tl := NewTestLogger()
	cl := NewContextLogger(tl)

	ctx := WithRunID(context.Background(), "run-7")
	ctx = WithDocument(ctx, "in.pdf")
	cl.FromContext(ctx).Info("page classified")

	entries := tl.GetEntries()
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].Fields, String("run_id", "run-7"))
	assert.Contains(t, entries[0].Fields, String("document", "in.pdf"))
}

func TestFromContextWithoutValues(t *testing.T) {
	tl := NewTestLogger()
	cl := NewContextLogger(tl)

	cl.FromContext(context.Background()).Warn("bare")

	entries := tl.GetEntries()
	require.Len(t, entries, 1)
	assert.Empty(t, entries[0].Fields)
}

func TestWithFieldsReachSharedSink(t *testing.T) {
	tl := NewTestLogger()

	child := tl.With(String("run_id", "run-9"))
	child.Error("routing failed", Int("page", 3))

	entries := tl.GetEntries()
	require.Len(t, entries, 1)
	assert.Equal(t, "ERROR", entries[0].Level)
	assert.Contains(t, entries[0].Fields, String("run_id", "run-9"))
	assert.Contains(t, entries[0].Fields, Int("page", 3))
}
