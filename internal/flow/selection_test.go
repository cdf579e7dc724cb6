package flow

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scanflow/internal/config"
	"scanflow/internal/models"
	"scanflow/internal/session"
)

type stubReference struct {
	processes []models.Process
	devices   []models.Device
	batches   []models.Batch
	err       error
	calls     int
}

func (s *stubReference) ProcessPageList(ctx context.Context, currPage, pageSize int) ([]models.Process, error) {
	s.calls++
	return s.processes, s.err
}

func (s *stubReference) DevicePageList(ctx context.Context, currPage, pageSize, deviceType int) ([]models.Device, error) {
	s.calls++
	return s.devices, s.err
}

func (s *stubReference) ProductSizeList(ctx context.Context) ([]models.Batch, error) {
	s.calls++
	return s.batches, s.err
}

func testConfig() *config.Config {
	return &config.Config{
		HistoryLimit:        50,
		SuppressionMarkers:  []string{"上釉", "胶装"},
		MarkerMeansRequired: true,
		AutoSubmit:          true,
		PageSize:            999,
		DeviceType:          2,
		QRIDParam:           "qrid",
		QRCodeParam:         "qrcode",
	}
}

func testStore(t *testing.T) *session.Store {
	t.Helper()
	s, err := session.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func referenceData() *stubReference {
	return &stubReference{
		processes: []models.Process{
			{ID: 1, Name: "切割工序"},
			{ID: 3, Name: "上釉工序"},
			{ID: 4, Name: "胶装工序"},
		},
		devices: []models.Device{
			{ID: 2, Name: "PDA-002", Type: models.DeviceTypePDA},
		},
		batches: []models.Batch{
			{Size: "600x600", Products: []models.Product{
				{ID: 101, BatchCode: "B2024-101"},
				{ID: 102, BatchCode: "B2024-102"},
			}},
			{Size: "800x800", Products: []models.Product{
				{ID: 201, BatchCode: "B2024-201"},
			}},
		},
	}
}

func enteredFlow(t *testing.T, cfg *config.Config, ref ReferenceLister) *SelectionFlow {
	t.Helper()
	f := NewSelectionFlow(cfg, testStore(t), ref, nil)
	f.Enter(context.Background())
	require.Equal(t, StateEditing, f.State())
	return f
}

func TestMarkerProcessRequiresProductSelection(t *testing.T) {
	f := enteredFlow(t, testConfig(), referenceData())

	f.SetProcess("3") // 上釉工序: marker hit
	assert.True(t, f.RequiresProductSelection())

	f.SetProcess("1") // 切割工序: no marker
	assert.False(t, f.RequiresProductSelection())
}

func TestInvertedPolarity(t *testing.T) {
	cfg := testConfig()
	cfg.MarkerMeansRequired = false
	f := enteredFlow(t, cfg, referenceData())

	f.SetProcess("3")
	assert.False(t, f.RequiresProductSelection())
	f.SetProcess("1")
	assert.True(t, f.RequiresProductSelection())
}

func TestSwitchingProcessClearsBatchAndProductAtomically(t *testing.T) {
	f := enteredFlow(t, testConfig(), referenceData())

	f.SetProcess("3")
	f.SetBatch("600x600")
	f.SetProduct("101")

	// Switching to a process with no product selection wipes both in the
	// same update.
	f.SetProcess("1")
	assert.Empty(t, f.Form().BatchID)
	assert.Empty(t, f.Form().ProductID)
	assert.Empty(t, f.Products())
}

func TestSwitchingBatchClearsProductAndSwapsList(t *testing.T) {
	f := enteredFlow(t, testConfig(), referenceData())
	f.SetProcess("3")

	f.SetBatch("600x600")
	f.SetProduct("101")
	require.Len(t, f.Products(), 2)

	f.SetBatch("800x800")
	assert.Empty(t, f.Form().ProductID, "product must clear with the batch")
	require.Len(t, f.Products(), 1)
	assert.Equal(t, int64(201), f.Products()[0].ID)

	f.SetBatch("")
	assert.Empty(t, f.Products())
}

func TestValidationRequiresProcess(t *testing.T) {
	f := enteredFlow(t, testConfig(), referenceData())

	_, err := f.Submit()
	assert.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, f.FieldErrors(), "process")
	assert.Equal(t, StateEditing, f.State())
}

func TestValidationRequiresBatchAndProductForMarkerProcess(t *testing.T) {
	f := enteredFlow(t, testConfig(), referenceData())
	f.SetProcess("3")

	_, err := f.Submit()
	assert.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, f.FieldErrors(), "batch")
	assert.Contains(t, f.FieldErrors(), "product")
}

func TestSubmitWithoutProductForPlainProcess(t *testing.T) {
	cfg := testConfig()
	store := testStore(t)
	f := NewSelectionFlow(cfg, store, referenceData(), nil)
	f.Enter(context.Background())

	f.SetProcess("1")
	nav, err := f.Submit()
	require.NoError(t, err)
	require.NotNil(t, nav)
	assert.Equal(t, RouteScanner, nav.Route)
	assert.Equal(t, StateCommitted, f.State())

	committed, err := store.CommittedSelection()
	require.NoError(t, err)
	require.NotNil(t, committed.Process)
	assert.Equal(t, int64(1), committed.Process.ID)
	assert.Nil(t, committed.Batch)
	assert.Nil(t, committed.Product)
}

func TestSubmitResolvesFullObjects(t *testing.T) {
	store := testStore(t)
	f := NewSelectionFlow(testConfig(), store, referenceData(), nil)
	f.Enter(context.Background())

	f.SetProcess("3")
	f.SetBatch("600x600")
	f.SetProduct("102")

	nav, err := f.Submit()
	require.NoError(t, err)
	assert.Equal(t, RouteScanner, nav.Route)

	committed, err := store.CommittedSelection()
	require.NoError(t, err)
	assert.Equal(t, "上釉工序", committed.Process.Name)
	assert.Equal(t, "600x600", committed.Batch.Size)
	assert.Equal(t, "B2024-102", committed.Product.BatchCode)
	assert.False(t, committed.Timestamp.IsZero())

	// The in-progress form is persisted alongside.
	saved, err := store.SelectionState()
	require.NoError(t, err)
	assert.Equal(t, "3", saved.ProcessID)
}

func TestStaleProcessIDFailsLocally(t *testing.T) {
	f := enteredFlow(t, testConfig(), referenceData())

	// An id from a previous reference-data load that no longer resolves.
	f.SetProcess("999")
	_, err := f.Submit()
	assert.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, f.FieldErrors(), "process")
}

func TestFetchFailureFallsBackToDefaults(t *testing.T) {
	ref := &stubReference{err: errors.New("connection refused")}
	f := enteredFlow(t, testConfig(), ref)

	assert.Len(t, f.Processes(), 5, "default process list")
	assert.Len(t, f.Devices(), 5, "default device list")
	assert.Len(t, f.Batches(), 3, "default batch list")
}

func TestEnterRestoresPersistedSelection(t *testing.T) {
	store := testStore(t)
	require.NoError(t, store.SaveSelectionState(models.SelectionState{
		ProcessID: "3", BatchID: "600x600", ProductID: "101",
	}))

	f := NewSelectionFlow(testConfig(), store, referenceData(), nil)
	f.Enter(context.Background())

	assert.Equal(t, "3", f.Form().ProcessID)
	assert.Equal(t, "600x600", f.Form().BatchID)
	// The derived product list is recomputed for the restored batch.
	assert.Len(t, f.Products(), 2)
}

func TestRequireDeviceVariant(t *testing.T) {
	cfg := testConfig()
	cfg.RequireDevice = true
	f := enteredFlow(t, cfg, referenceData())

	f.SetProcess("1")
	_, err := f.Submit()
	assert.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, f.FieldErrors(), "device")

	f.SetDevice("2")
	nav, err := f.Submit()
	require.NoError(t, err)
	assert.Equal(t, RouteScanner, nav.Route)
}
