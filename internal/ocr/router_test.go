package ocr

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adverant/nexus/loanprocess-worker/internal/domain"
)

func TestRemoteHealthyFalseWithoutRemoteOrBreaker(t *testing.T) {
	r := &Router{}
	assert.False(t, r.remoteHealthy(context.Background()))
}

func TestRemoteHealthyTrueWhenProbeSucceeds(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	r := &Router{Remote: NewRemoteClient(server.URL, "", time.Second), Breaker: NewBreaker(3, time.Minute)}
	assert.True(t, r.remoteHealthy(context.Background()))
}

func TestRemoteHealthyFalseWhenProbeFailsAndCountsAgainstBreaker(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	breaker := NewBreaker(1, time.Minute)
	r := &Router{Remote: NewRemoteClient(server.URL, "", time.Second), Breaker: breaker}

	assert.False(t, r.remoteHealthy(context.Background()))
	assert.Equal(t, StateOpen, breaker.State())
}

// TestOcrPageNeverDialsRemoteWhenUnhealthy is the Scenario D property: a
// router that has already determined the remote service is unhealthy
// must not attempt a per-page remote call, even with a nil Tesseract
// fallback configured.
func TestOcrPageNeverDialsRemoteWhenUnhealthy(t *testing.T) {
	var remoteCalls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&remoteCalls, 1)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"text":"should never be reached"}`))
	}))
	defer server.Close()

	r := &Router{
		Remote:  NewRemoteClient(server.URL, "", time.Second),
		Breaker: NewBreaker(3, time.Minute),
	}

	_, usedFallback, err := r.ocrPage(context.Background(), 1, []byte("fake-image"), false)

	assert.EqualValues(t, 0, atomic.LoadInt32(&remoteCalls))
	assert.True(t, usedFallback)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no OCR fallback configured")
}

func TestOcrPageUsesRemoteWhenHealthy(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"text":"recognized text","confidence":0.9}`))
	}))
	defer server.Close()

	r := &Router{
		Remote:  NewRemoteClient(server.URL, "", time.Second),
		Breaker: NewBreaker(3, time.Minute),
	}

	pr, usedFallback, err := r.ocrPage(context.Background(), 1, []byte("fake-image"), true)
	require.NoError(t, err)
	assert.False(t, usedFallback)
	assert.Equal(t, "recognized text", pr.Text)
}

func TestOcrPageFallsBackWhenRemoteCallFails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	r := &Router{
		Remote:  NewRemoteClient(server.URL, "", time.Second),
		Breaker: NewBreaker(3, time.Minute),
	}

	_, usedFallback, err := r.ocrPage(context.Background(), 1, []byte("fake-image"), true)
	assert.True(t, usedFallback)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no OCR fallback configured")
}

func TestMergePagesReplacesOnlyOcrdPagesAndPreservesOrder(t *testing.T) {
	native := []domain.PageContent{
		{PageNumber: 1, Text: "native page 1"},
		{PageNumber: 2, Text: "native page 2 (scanned)"},
		{PageNumber: 3, Text: "native page 3"},
	}
	ocrResults := []PageResult{
		{PageNumber: 2, Text: "ocr recognized page 2"},
	}

	merged := mergePages(native, ocrResults)
	require.Len(t, merged, 3)
	assert.Equal(t, "native page 1", merged[0].Text)
	assert.Equal(t, "ocr recognized page 2", merged[1].Text)
	assert.Equal(t, "native page 3", merged[2].Text)
	assert.Equal(t, 1, merged[0].PageNumber)
	assert.Equal(t, 2, merged[1].PageNumber)
	assert.Equal(t, 3, merged[2].PageNumber)
}

func TestToResultJoinsPageTextWithBlankLine(t *testing.T) {
	pages := []domain.PageContent{
		{PageNumber: 1, Text: "first"},
		{PageNumber: 2, Text: "second"},
	}
	result := toResult(pages, MethodDocling, []int{1})

	assert.Equal(t, "first\n\nsecond", result.Content.Text)
	assert.Equal(t, 2, result.Content.PageCount)
	assert.Equal(t, MethodDocling, result.Method)
	assert.Equal(t, []int{1}, result.PagesOCRd)
}

func TestAllPageIndicesIsZeroIndexedAndGapFree(t *testing.T) {
	assert.Equal(t, []int{0, 1, 2}, allPageIndices(3))
	assert.Equal(t, []int{}, allPageIndices(0))
}

func TestRouteReturnsNativePagesUntouchedWhenModeSkip(t *testing.T) {
	r := &Router{}
	native := []domain.PageContent{{PageNumber: 1, Text: "native text"}}

	result, err := r.Route(context.Background(), "/nonexistent.pdf", native, DetectionResult{NeedsOCR: true, TotalPages: 1}, domain.OCRModeSkip)
	require.NoError(t, err)
	assert.Equal(t, MethodNone, result.Method)
	assert.Equal(t, "native text", result.Content.Text)
}

func TestRouteReturnsNativePagesUntouchedWhenAutoAndNoOCRNeeded(t *testing.T) {
	r := &Router{}
	native := []domain.PageContent{{PageNumber: 1, Text: "native text"}}

	result, err := r.Route(context.Background(), "/nonexistent.pdf", native, DetectionResult{NeedsOCR: false, TotalPages: 1}, domain.OCRModeAuto)
	require.NoError(t, err)
	assert.Equal(t, MethodNone, result.Method)
}
