package id

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewULIDMonotonic(t *testing.T) {
	prev := NewULID().String()
	for i := 0; i < 100; i++ {
		next := NewULID().String()
		require.Less(t, prev, next, "ids must sort in creation order")
		prev = next
	}
}

func TestNew(t *testing.T) {
	assert.Len(t, New(""), 26)
	assert.True(t, strings.HasPrefix(New("abc"), "abc_"))
}

func TestTypedIDGeneration(t *testing.T) {
	tests := []struct {
		prefix string
		id     string
	}{
		{"evt", NewEventID().String()},
		{"job", NewJobID().String()},
		{"req", NewRequestID().String()},
	}

	for _, tt := range tests {
		t.Run(tt.prefix, func(t *testing.T) {
			parts := strings.Split(tt.id, "_")
			require.Len(t, parts, 2)
			assert.Equal(t, tt.prefix, parts[0])
			assert.True(t, IsValid(parts[1]))
			assert.True(t, IsValid(tt.id))
		})
	}
}

func TestIsValid(t *testing.T) {
	bare := New("")

	tests := []struct {
		in   string
		want bool
	}{
		{bare, true},
		{"job_" + bare, true},
		{"", false},
		{"invalid", false},
		{"1234567890", false},
		{"zzzzzzzzzzzzzzzzzzzzzzzzzz", false},
		{"_" + bare, false},
		{"JOB_" + bare, false},
		{"job_", false},
		{"../" + bare, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, IsValid(tt.in))
		})
	}
}

func TestTimestamp(t *testing.T) {
	before := time.Now().UnixMilli()
	evt := NewEventID()
	after := time.Now().UnixMilli()

	ts, err := Timestamp(evt.String())
	require.NoError(t, err)
	assert.GreaterOrEqual(t, ts.UnixMilli(), before)
	assert.LessOrEqual(t, ts.UnixMilli(), after)

	_, err = Timestamp("evt_nope")
	assert.Error(t, err)
}
