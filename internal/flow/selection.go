package flow

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"scanflow/internal/config"
	"scanflow/internal/models"
	"scanflow/internal/session"
)

// State is the selection flow's position in its lifecycle.
type State int

const (
	StateLoading State = iota
	StateEditing
	StateValidating
	StateSubmitting
	StateCommitted
)

// ErrValidation marks a submit rejected by local field validation. The field
// messages live in SelectionFlow.FieldErrors.
var ErrValidation = errors.New("selection validation failed")

// ReferenceLister is the slice of the API client the selection flow needs.
type ReferenceLister interface {
	ProcessPageList(ctx context.Context, currPage, pageSize int) ([]models.Process, error)
	DevicePageList(ctx context.Context, currPage, pageSize, deviceType int) ([]models.Device, error)
	ProductSizeList(ctx context.Context) ([]models.Batch, error)
}

// SelectionFlow is the dependent-dropdown state machine: process selection
// decides whether batch/product apply, batch selection derives the visible
// product list, and a validated submit persists the committed tuple before
// handing off to the scanner.
type SelectionFlow struct {
	cfg    *config.Config
	store  *session.Store
	client ReferenceLister
	logger *slog.Logger

	state State
	form  models.SelectionState

	processes []models.Process
	devices   []models.Device
	batches   []models.Batch
	products  []models.Product // derived from the selected batch only

	fieldErrors map[string]string
}

// NewSelectionFlow wires the flow; call Enter before anything else.
func NewSelectionFlow(cfg *config.Config, store *session.Store, client ReferenceLister, logger *slog.Logger) *SelectionFlow {
	if logger == nil {
		logger = slog.Default()
	}
	return &SelectionFlow{
		cfg:         cfg,
		store:       store,
		client:      client,
		logger:      logger,
		state:       StateLoading,
		fieldErrors: map[string]string{},
	}
}

// Enter restores any persisted in-progress selection first, so the operator's
// partial progress is visible before the lists arrive, then loads the three
// reference lists concurrently. A failed fetch falls back to the built-in
// default list for that one concern; fetch failures never block the flow.
func (f *SelectionFlow) Enter(ctx context.Context) {
	f.state = StateLoading

	if saved, err := f.store.SelectionState(); err == nil {
		f.form = saved
	} else if !errors.Is(err, session.ErrNotFound) {
		f.logger.Warn("restoring selection state", "err", err)
	}

	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		procs, err := f.client.ProcessPageList(ctx, 1, f.cfg.PageSize)
		if err != nil || len(procs) == 0 {
			f.logger.Warn("process list unavailable, using defaults", "err", err)
			procs = defaultProcesses()
		}
		f.processes = procs
	}()
	go func() {
		defer wg.Done()
		devs, err := f.client.DevicePageList(ctx, 1, f.cfg.PageSize, f.cfg.DeviceType)
		if err != nil || len(devs) == 0 {
			f.logger.Warn("device list unavailable, using defaults", "err", err)
			devs = defaultDevices()
		}
		f.devices = devs
	}()
	go func() {
		defer wg.Done()
		batches, err := f.client.ProductSizeList(ctx)
		if err != nil || len(batches) == 0 {
			f.logger.Warn("batch list unavailable, using defaults", "err", err)
			batches = defaultBatches()
		}
		f.batches = batches
	}()
	wg.Wait()

	// Recompute the derived product list for a restored batch selection.
	f.products = f.productsForBatch(f.form.BatchID)
	f.state = StateEditing
}

// State returns the current lifecycle state.
func (f *SelectionFlow) State() State { return f.state }

// Form returns the in-progress selection (ids only).
func (f *SelectionFlow) Form() models.SelectionState { return f.form }

// Processes returns the loaded process list.
func (f *SelectionFlow) Processes() []models.Process { return f.processes }

// Devices returns the loaded device list.
func (f *SelectionFlow) Devices() []models.Device { return f.devices }

// Batches returns the loaded batch list.
func (f *SelectionFlow) Batches() []models.Batch { return f.batches }

// Products returns the visible product list, always derived from exactly the
// selected batch.
func (f *SelectionFlow) Products() []models.Product { return f.products }

// FieldErrors returns the per-field messages from the last failed submit.
func (f *SelectionFlow) FieldErrors() map[string]string { return f.fieldErrors }

func (f *SelectionFlow) lookupProcess(id string) *models.Process {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return nil
	}
	for i := range f.processes {
		if f.processes[i].ID == n {
			return &f.processes[i]
		}
	}
	return nil
}

func (f *SelectionFlow) lookupDevice(id string) *models.Device {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return nil
	}
	for i := range f.devices {
		if f.devices[i].ID == n {
			return &f.devices[i]
		}
	}
	return nil
}

func (f *SelectionFlow) lookupBatch(id string) *models.Batch {
	for i := range f.batches {
		if f.batches[i].ID() == id {
			return &f.batches[i]
		}
	}
	return nil
}

func (f *SelectionFlow) productsForBatch(batchID string) []models.Product {
	if batchID == "" {
		return nil
	}
	b := f.lookupBatch(batchID)
	if b == nil {
		return nil
	}
	return b.Products
}

// processTakesProduct evaluates the capability predicate for one process,
// honouring the configured polarity.
func (f *SelectionFlow) processTakesProduct(p *models.Process) bool {
	if p == nil {
		return false
	}
	hit := p.RequiresProductSelection(f.cfg.SuppressionMarkers)
	if f.cfg.MarkerMeansRequired {
		return hit
	}
	return !hit
}

// RequiresProductSelection reports whether the currently selected process
// takes a batch/product selection.
func (f *SelectionFlow) RequiresProductSelection() bool {
	return f.processTakesProduct(f.lookupProcess(f.form.ProcessID))
}

// SetProcess updates the process selection. When the new process does not
// take a product selection, batch and product are force-cleared in the same
// update so no intermediate state with a stale pair is ever observable.
func (f *SelectionFlow) SetProcess(id string) {
	f.form.ProcessID = id
	delete(f.fieldErrors, "process")
	if !f.processTakesProduct(f.lookupProcess(id)) {
		f.form.BatchID = ""
		f.form.ProductID = ""
		f.products = nil
	}
}

// SetDevice updates the device selection.
func (f *SelectionFlow) SetDevice(id string) {
	f.form.DeviceID = id
	delete(f.fieldErrors, "device")
}

// SetBatch updates the batch selection. The product selection is always
// cleared in the same update, then the visible product list is recomputed
// from the new batch's embedded products (empty when cleared or unknown).
func (f *SelectionFlow) SetBatch(id string) {
	f.form.BatchID = id
	f.form.ProductID = ""
	f.products = f.productsForBatch(id)
	delete(f.fieldErrors, "batch")
}

// SetProduct updates the product selection.
func (f *SelectionFlow) SetProduct(id string) {
	f.form.ProductID = id
	delete(f.fieldErrors, "product")
}

func (f *SelectionFlow) validate() bool {
	f.fieldErrors = map[string]string{}
	if f.form.ProcessID == "" {
		f.fieldErrors["process"] = "请选择工序"
	}
	if f.cfg.RequireDevice && f.form.DeviceID == "" {
		f.fieldErrors["device"] = "请选择设备"
	}
	if f.RequiresProductSelection() {
		if f.form.BatchID == "" {
			f.fieldErrors["batch"] = "请选择产品"
		}
		if f.form.ProductID == "" {
			f.fieldErrors["product"] = "请选择批次"
		}
	}
	return len(f.fieldErrors) == 0
}

// Submit validates the form, resolves the selected ids against the loaded
// reference lists, persists both the in-progress form and the committed
// tuple, and signals navigation to the scanner. A required id that no longer
// resolves (stale reference data) fails locally, never over the network.
func (f *SelectionFlow) Submit() (*Navigate, error) {
	f.state = StateValidating
	if !f.validate() {
		f.state = StateEditing
		return nil, ErrValidation
	}
	f.state = StateSubmitting

	proc := f.lookupProcess(f.form.ProcessID)
	if proc == nil {
		f.fieldErrors["process"] = "工序不存在，请重新选择"
		f.state = StateEditing
		return nil, ErrValidation
	}

	var dev *models.Device
	if f.form.DeviceID != "" {
		dev = f.lookupDevice(f.form.DeviceID)
		if dev == nil && f.cfg.RequireDevice {
			f.fieldErrors["device"] = "设备不存在，请重新选择"
			f.state = StateEditing
			return nil, ErrValidation
		}
	}

	var batch *models.Batch
	var product *models.Product
	if f.RequiresProductSelection() {
		batch = f.lookupBatch(f.form.BatchID)
		if batch == nil {
			f.fieldErrors["batch"] = "产品不存在，请重新选择"
			f.state = StateEditing
			return nil, ErrValidation
		}
		pid, _ := strconv.ParseInt(f.form.ProductID, 10, 64)
		for i := range f.products {
			if f.products[i].ID == pid {
				product = &f.products[i]
				break
			}
		}
		if product == nil {
			f.fieldErrors["product"] = "批次不存在，请重新选择"
			f.state = StateEditing
			return nil, ErrValidation
		}
	}

	committed := models.CommittedSelection{
		Process:   proc,
		Device:    dev,
		Batch:     batch,
		Product:   product,
		Timestamp: time.Now(),
	}

	// The form is persisted before the committed tuple so a crash between
	// the two writes still restores the operator's inputs.
	if err := f.store.SaveSelectionState(f.form); err != nil {
		f.state = StateEditing
		return nil, err
	}
	if err := f.store.SaveCommittedSelection(committed); err != nil {
		f.state = StateEditing
		return nil, err
	}

	f.state = StateCommitted
	return &Navigate{Route: RouteScanner}, nil
}
