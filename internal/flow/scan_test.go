package flow

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scanflow/internal/api"
	"scanflow/internal/models"
	"scanflow/internal/session"
)

type stubSubmitter struct {
	calls    int
	requests []models.TakeRequest
	err      error
}

func (s *stubSubmitter) Take(ctx context.Context, req models.TakeRequest) error {
	s.calls++
	s.requests = append(s.requests, req)
	return s.err
}

func TestExtractQrcodeID(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want int64
	}{
		{"url with parameter", "https://x/y?qrid=42&other=1", 42},
		{"bare key-value", "qrid=7", 7},
		{"plain number", "99", 99},
		{"garbage", "abc", 0},
		{"empty", "", 0},
		{"url without the key", "https://x/y?other=1", 0},
		{"whitespace around number", "  123  ", 123},
		{"non-numeric parameter", "https://x/y?qrid=abc", 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ExtractQrcodeID(tc.in, "qrid"))
		})
	}
}

func committedStore(t *testing.T) *session.Store {
	t.Helper()
	store := testStore(t)
	require.NoError(t, store.SaveCommittedSelection(models.CommittedSelection{
		Process: &models.Process{ID: 3, Name: "上釉工序"},
		Device:  &models.Device{ID: 2},
		Product: &models.Product{ID: 101, BatchCode: "B2024-101"},
	}))
	return store
}

func TestEnterWithoutCommittedSelectionRedirects(t *testing.T) {
	sub := &stubSubmitter{}
	f := NewScanFlow(testConfig(), testStore(t), sub, nil)

	nav, err := f.Enter()
	require.NoError(t, err)
	require.NotNil(t, nav)
	assert.Equal(t, RouteSelection, nav.Route)
	assert.Zero(t, sub.calls, "precondition failure must not touch the network")
}

func TestSubmitMergesSelectionAndRecordsHistory(t *testing.T) {
	store := committedStore(t)
	sub := &stubSubmitter{}
	f := NewScanFlow(testConfig(), store, sub, nil)
	nav, err := f.Enter()
	require.NoError(t, err)
	require.Nil(t, nav)

	err = f.Submit(context.Background(), "https://x/y?qrid=42&qrcode=ABCDE", models.MethodScan)
	require.NoError(t, err)

	require.Len(t, sub.requests, 1)
	req := sub.requests[0]
	assert.Equal(t, int64(42), req.QrcodeID)
	assert.Equal(t, int64(3), req.ProductionProcessesID)
	assert.Equal(t, int64(2), req.DeviceID)
	assert.Equal(t, int64(101), req.ProductID)

	history, err := f.History()
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "https://x/y?qrid=42&qrcode=ABCDE", history[0].Code)
	assert.Equal(t, models.MethodScan, history[0].Method)
	assert.Equal(t, "https://x/y?qrid=42&qrcode=ABCDE", f.LastCode())
}

func TestSubmitFailureLeavesHistoryAlone(t *testing.T) {
	store := committedStore(t)
	sub := &stubSubmitter{err: &api.Error{Status: 200, Message: "二维码不存在"}}
	f := NewScanFlow(testConfig(), store, sub, nil)
	_, err := f.Enter()
	require.NoError(t, err)

	err = f.Submit(context.Background(), "42", models.MethodManual)
	require.Error(t, err)
	// The collaborator's message comes back verbatim.
	assert.Equal(t, "二维码不存在", err.Error())

	history, err := f.History()
	require.NoError(t, err)
	assert.Empty(t, history)
	assert.Empty(t, f.LastCode())
}

func TestSubmitRejectsEmptyInput(t *testing.T) {
	sub := &stubSubmitter{}
	f := NewScanFlow(testConfig(), committedStore(t), sub, nil)
	_, err := f.Enter()
	require.NoError(t, err)

	err = f.Submit(context.Background(), "   ", models.MethodManual)
	assert.ErrorIs(t, err, ErrEmptyInput)
	assert.Zero(t, sub.calls)
}

func TestHistoryCapAppliedOnSubmit(t *testing.T) {
	cfg := testConfig()
	cfg.HistoryLimit = 3
	store := committedStore(t)
	f := NewScanFlow(cfg, store, &stubSubmitter{}, nil)
	_, err := f.Enter()
	require.NoError(t, err)

	for _, code := range []string{"1", "2", "3", "4"} {
		require.NoError(t, f.Submit(context.Background(), code, models.MethodManual))
	}

	history, err := f.History()
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, "4", history[0].Code)
	assert.Equal(t, "2", history[2].Code)
}

func TestShouldAutoSubmit(t *testing.T) {
	f := NewScanFlow(testConfig(), testStore(t), &stubSubmitter{}, nil)

	cases := []struct {
		name string
		in   string
		want bool
	}{
		{"full scanned url", "http://175.24.15.119:91/qrcode?qrid=7&qrcode=7WTN0", true},
		{"code too short", "http://x/qrcode?qrid=7&qrcode=7WT", false},
		{"missing id", "http://x/qrcode?qrcode=7WTN0", false},
		{"missing code", "http://x/qrcode?qrid=7", false},
		{"not a url", "qrid=7", false},
		{"plain number", "42", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, f.ShouldAutoSubmit(tc.in))
		})
	}
}

func TestAutoSubmitDisabledByConfig(t *testing.T) {
	cfg := testConfig()
	cfg.AutoSubmit = false
	f := NewScanFlow(cfg, testStore(t), &stubSubmitter{}, nil)
	assert.False(t, f.ShouldAutoSubmit("http://x/qrcode?qrid=7&qrcode=7WTN0"))
}

func TestClearHistory(t *testing.T) {
	f := NewScanFlow(testConfig(), committedStore(t), &stubSubmitter{}, nil)
	_, err := f.Enter()
	require.NoError(t, err)
	require.NoError(t, f.Submit(context.Background(), "42", models.MethodManual))

	require.NoError(t, f.ClearHistory())

	history, err := f.History()
	require.NoError(t, err)
	assert.Empty(t, history)
	assert.Empty(t, f.LastCode())
}
