package telemetry

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/gitlab-org/httpwatch/internal/snapshot"
)

func newRequest(t *testing.T) *http.Request {
	t.Helper()

	req, err := http.NewRequest(http.MethodPost, "http://example.com/api", strings.NewReader("ping"))
	require.NoError(t, err)

	return req
}

func newResponse() *http.Response {
	return &http.Response{
		Status:     "200 OK",
		StatusCode: http.StatusOK,
		ProtoMajor: 1,
		ProtoMinor: 1,
		Header:     http.Header{"Content-Type": {"text/plain"}},
		Body:       io.NopCloser(strings.NewReader("pong")),
	}
}

func TestRecordMergesSameID(t *testing.T) {
	logger := NewLogger(DetailRequestAndResponse)
	req := newRequest(t)

	id := logger.Record(LevelInfo, "", Context{RequestID: "req-1", Request: req})
	require.Equal(t, "req-1", id)

	logger.Record(LevelNotice, "POST http://example.com/api 200", Context{RequestID: "req-1", Request: req, Response: newResponse()})

	entries := logger.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, LevelNotice, entries[0].Level)
	assert.Equal(t, "POST http://example.com/api 200", entries[0].Message)
	require.NotNil(t, entries[0].Request)
	require.NotNil(t, entries[0].Response)
	assert.Equal(t, "pong", entries[0].Response.Body)
	require.NotNil(t, entries[0].CurlCommand)
	assert.Contains(t, *entries[0].CurlCommand, "ping")

	logger.Record(LevelError, "", Context{RequestID: "req-1"})
	entries = logger.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, LevelError, entries[0].Level)
	assert.Equal(t, "POST http://example.com/api 200", entries[0].Message, "an empty message keeps the previous one")
}

func TestRecordGeneratesIDs(t *testing.T) {
	logger := NewLogger(DetailNone)

	first := logger.Record(LevelInfo, "one", Context{})
	second := logger.Record(LevelInfo, "two", Context{})

	assert.NotEqual(t, first, second)
	assert.True(t, strings.HasPrefix(first, RequestIDPrefix))
	assert.Len(t, logger.Entries(), 2)
}

func TestRecordDetailModes(t *testing.T) {
	testCases := []struct {
		mode         DetailMode
		wantRequest  bool
		wantResponse bool
		wantBody     string
	}{
		{mode: DetailNone},
		{mode: DetailRequest, wantRequest: true},
		{mode: DetailRequestAndResponseHeaders, wantRequest: true, wantResponse: true, wantBody: snapshot.BodyLogDisabled},
		{mode: DetailRequestAndResponse, wantRequest: true, wantResponse: true, wantBody: "pong"},
	}

	for _, tc := range testCases {
		t.Run(tc.mode.String(), func(t *testing.T) {
			logger := NewLogger(tc.mode)
			logger.Record(LevelInfo, "done", Context{RequestID: "id", Request: newRequest(t), Response: newResponse()})

			entries := logger.Entries()
			require.Len(t, entries, 1)

			assert.Equal(t, tc.wantRequest, entries[0].Request != nil)
			assert.Equal(t, tc.wantRequest, entries[0].CurlCommand != nil)
			assert.Equal(t, tc.wantResponse, entries[0].Response != nil)
			if tc.wantResponse {
				assert.Equal(t, tc.wantBody, entries[0].Response.Body)
			}
		})
	}
}

func TestWithoutCurlCommand(t *testing.T) {
	logger := NewLogger(DetailRequest, WithoutCurlCommand())
	logger.Record(LevelInfo, "", Context{Request: newRequest(t)})

	entries := logger.Entries()
	require.Len(t, entries, 1)
	assert.NotNil(t, entries[0].Request)
	assert.Nil(t, entries[0].CurlCommand)
}

func TestAttachTransferTime(t *testing.T) {
	logger := NewLogger(DetailRequest)

	require.NotPanics(t, func() { logger.AttachTransferTime("unknown", 1.5) })
	assert.False(t, logger.HasEntries())

	logger.AttachTransferTime("id", 0.25)
	logger.Record(LevelInfo, "", Context{RequestID: "id"})
	logger.AttachTransferTime("id", 0.5)
	logger.Record(LevelInfo, "finished", Context{RequestID: "id"})

	entries := logger.Entries()
	require.Len(t, entries, 1)
	require.NotNil(t, entries[0].TransferTime)
	assert.InDelta(t, 0.5, *entries[0].TransferTime, 1e-9, "a later record keeps the transfer time")
}

func TestEntriesAreCopies(t *testing.T) {
	logger := NewLogger(DetailNone)
	logger.Record(LevelInfo, "", Context{RequestID: "id"})
	logger.AttachTransferTime("id", 1)

	entries := logger.Entries()
	*entries[0].TransferTime = 42
	entries[0].Level = LevelError

	fresh := logger.Entries()
	assert.InDelta(t, 1.0, *fresh[0].TransferTime, 1e-9)
	assert.Equal(t, LevelInfo, fresh[0].Level)
}

func TestClearAndDrain(t *testing.T) {
	logger := NewLogger(DetailNone)
	logger.Record(LevelInfo, "a", Context{RequestID: "a"})
	logger.Record(LevelInfo, "b", Context{RequestID: "b"})

	drained := logger.Drain()
	require.Len(t, drained, 2)
	assert.Equal(t, "a", drained[0].ID)
	assert.Equal(t, "b", drained[1].ID)
	assert.False(t, logger.HasEntries())

	logger.Record(LevelInfo, "c", Context{RequestID: "c"})
	logger.Clear()
	assert.Empty(t, logger.Entries())
}

func TestConcurrentRecordAndDrain(t *testing.T) {
	logger := NewLogger(DetailNone)

	const writers = 50
	const perWriter = 40

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				id := fmt.Sprintf("%d-%d", w, i)
				logger.Record(LevelInfo, "", Context{RequestID: id})
				logger.AttachTransferTime(id, 0.1)
			}
		}(w)
	}

	seen := map[string]int{}
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	draining := true
	for draining {
		select {
		case <-done:
			draining = false
		default:
		}
		for _, entry := range logger.Drain() {
			seen[entry.ID]++
		}
	}

	assert.Len(t, seen, writers*perWriter, "no entry is lost")
	for id, count := range seen {
		assert.Equal(t, 1, count, "entry %s drained once", id)
	}
}

func TestParseDetailMode(t *testing.T) {
	testCases := []struct {
		in   string
		want DetailMode
		err  bool
	}{
		{in: "true", want: DetailRequestAndResponse},
		{in: "false", want: DetailNone},
		{in: "none", want: DetailNone},
		{in: "request", want: DetailRequest},
		{in: "REQUEST_AND_RESPONSE_HEADERS", want: DetailRequestAndResponseHeaders},
		{in: "request_and_response", want: DetailRequestAndResponse},
		{in: "everything", err: true},
	}

	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			mode, err := ParseDetailMode(tc.in)
			if tc.err {
				require.ErrorIs(t, err, ErrUnknownDetailMode)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.want, mode)
		})
	}
}

func TestDiscard(t *testing.T) {
	id := Discard.Record(LevelInfo, "", Context{RequestID: "x"})

	assert.Equal(t, "x", id)
	assert.False(t, Discard.HasEntries())
	assert.Empty(t, Discard.Drain())
}

func TestRecordKeepsEarlierBodyWithNewHeaders(t *testing.T) {
	logger := NewLogger(DetailRequest)
	logger.Record(LevelInfo, "", Context{RequestID: "req-1", Request: newRequest(t)})

	sent, err := http.NewRequest(http.MethodPost, "http://example.com/api", nil)
	require.NoError(t, err)
	sent.Header.Set("Authorization", "Bearer token")

	logger.Record(LevelInfo, "done", Context{RequestID: "req-1", Request: sent})

	entries := logger.Entries()
	require.Len(t, entries, 1)
	require.NotNil(t, entries[0].Request.Body)
	assert.Equal(t, "ping", *entries[0].Request.Body)
	assert.Equal(t, "Bearer token", entries[0].Request.Headers.Get("Authorization"))
	require.NotNil(t, entries[0].CurlCommand)
	assert.Contains(t, *entries[0].CurlCommand, "ping")
	assert.Contains(t, *entries[0].CurlCommand, "Authorization: Bearer token")
}
