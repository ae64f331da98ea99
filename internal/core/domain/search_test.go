package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAttemptOutcome_Succeeded(t *testing.T) {
	ok := AttemptOutcome{Backend: "pinecone", Chunks: 4, Duration: time.Millisecond}
	failed := AttemptOutcome{Backend: "pinecone", Err: errors.New("timeout")}

	assert.True(t, ok.Succeeded())
	assert.False(t, failed.Succeeded())
}

func TestSyncProgress_Percent(t *testing.T) {
	tests := []struct {
		name     string
		progress SyncProgress
		want     float64
	}{
		{"empty run is complete", SyncProgress{}, 100},
		{"halfway", SyncProgress{ChunksIndexed: 50, TotalChunks: 100}, 50},
		{"not started", SyncProgress{TotalChunks: 10}, 0},
		{"done", SyncProgress{ChunksIndexed: 10, TotalChunks: 10}, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, tt.progress.Percent(), 1e-9)
		})
	}
}

func TestSyncProgress_Remaining(t *testing.T) {
	p := SyncProgress{ChunksIndexed: 100, TotalChunks: 300, Elapsed: 10 * time.Second}
	assert.Equal(t, 20*time.Second, p.Remaining())

	assert.Zero(t, SyncProgress{TotalChunks: 300, Elapsed: time.Second}.Remaining())
	assert.Zero(t, SyncProgress{ChunksIndexed: 5, TotalChunks: 5, Elapsed: time.Second}.Remaining())
}
