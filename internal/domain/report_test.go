package domain

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateID(t *testing.T) {
	t.Run("includes count code prefix", func(t *testing.T) {
		id := generateID("MACC", []byte("export"))
		assert.True(t, strings.HasPrefix(id, "macc-"))
	})

	t.Run("deterministic", func(t *testing.T) {
		assert.Equal(t, generateID("MACC", []byte("export")), generateID("MACC", []byte("export")))
	})

	t.Run("different inputs produce different IDs", func(t *testing.T) {
		assert.NotEqual(t, generateID("MACC", []byte("export-a")), generateID("MACC", []byte("export-b")))
	})

	t.Run("empty code", func(t *testing.T) {
		id := generateID("  ", []byte("export"))
		assert.Len(t, id, 16)
		assert.NotContains(t, id, "-")
	})
}

func TestNewReport(t *testing.T) {
	fixed := time.Date(2025, time.January, 5, 9, 30, 0, 0, time.UTC)
	SetClock(clockwork.NewFakeClockAt(fixed))
	t.Cleanup(func() { SetClock(nil) })

	result := NewExtractionResult()
	result.CountInfo.CountCode = strPtr("MACC")

	report := NewReport([]byte("raw"), "macc.csv", "csv", result)

	assert.True(t, strings.HasPrefix(report.ID, "macc-"))
	assert.Equal(t, "macc.csv", report.Filename)
	assert.Equal(t, "csv", report.Format)
	assert.Equal(t, fixed, report.ExtractedAt)
	assert.Same(t, result, report.Result)
}

func TestSerializeReport(t *testing.T) {
	fixed := time.Date(2025, time.January, 5, 9, 30, 0, 0, time.UTC)

	t.Run("headers and key", func(t *testing.T) {
		result := NewExtractionResult()
		result.CountInfo.CountCode = strPtr("MACC")
		result.Years = []int{1997, 1998, 2000}
		report := Report{ID: "macc-abc", Format: "csv", Result: result, ExtractedAt: fixed}

		out, err := SerializeReport(report)

		require.NoError(t, err)
		assert.Equal(t, []byte("macc-abc"), out.Key)
		assert.Equal(t, "MACC", out.Headers[HeaderCountCode])
		assert.Equal(t, "1997-2000", out.Headers[HeaderYears])
		assert.Equal(t, "2025-01-05T09:30:00Z", out.Headers[HeaderExtractedAt])

		var roundtrip Report
		require.NoError(t, json.Unmarshal(out.Value, &roundtrip))
		assert.Equal(t, "macc-abc", roundtrip.ID)
		assert.Equal(t, []int{1997, 1998, 2000}, roundtrip.Result.Years)
	})

	t.Run("empty result omits optional headers", func(t *testing.T) {
		report := Report{ID: "abc", Result: NewExtractionResult(), ExtractedAt: fixed}

		out, err := SerializeReport(report)

		require.NoError(t, err)
		assert.NotContains(t, out.Headers, HeaderCountCode)
		assert.NotContains(t, out.Headers, HeaderYears)
		assert.Contains(t, string(out.Value), `"speciesTable":[]`)
	})
}

func TestSetClock(t *testing.T) {
	t.Run("set custom clock", func(t *testing.T) {
		fixedTime := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		SetClock(clockwork.NewFakeClockAt(fixedTime))
		assert.Equal(t, fixedTime, clock.Now())
		SetClock(nil)
	})

	t.Run("reset to real clock", func(t *testing.T) {
		SetClock(clockwork.NewFakeClockAt(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)))
		SetClock(nil)
		assert.True(t, time.Since(clock.Now()) < time.Second)
	})
}
