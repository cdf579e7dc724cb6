package flow

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"scanflow/internal/config"
	"scanflow/internal/models"
	"scanflow/internal/session"
)

// ErrEmptyInput is returned for blank submissions.
var ErrEmptyInput = errors.New("empty scan input")

// ScanSubmitter is the slice of the API client the scan flow needs.
type ScanSubmitter interface {
	Take(ctx context.Context, req models.TakeRequest) error
}

// ScanFlow accepts codes (typed, pasted, or delivered by a host scanner),
// extracts the numeric identifier, merges it with the committed selection and
// submits it. Successful submissions land in the bounded history.
type ScanFlow struct {
	cfg    *config.Config
	store  *session.Store
	client ScanSubmitter
	logger *slog.Logger

	selection models.CommittedSelection
	lastCode  string
}

// NewScanFlow wires the flow; call Enter before submitting.
func NewScanFlow(cfg *config.Config, store *session.Store, client ScanSubmitter, logger *slog.Logger) *ScanFlow {
	if logger == nil {
		logger = slog.Default()
	}
	return &ScanFlow{cfg: cfg, store: store, client: client, logger: logger}
}

// Enter loads the committed selection. Without one the scanner cannot run at
// all; the caller is sent back to the selection flow, no recovery attempted.
func (f *ScanFlow) Enter() (*Navigate, error) {
	sel, err := f.store.CommittedSelection()
	if err != nil || sel.Process == nil {
		f.logger.Warn("no committed selection, redirecting to selection flow")
		return &Navigate{Route: RouteSelection}, nil
	}
	f.selection = sel
	return nil, nil
}

// Selection returns the committed selection loaded by Enter.
func (f *ScanFlow) Selection() models.CommittedSelection { return f.selection }

// LastCode returns the most recently submitted raw input.
func (f *ScanFlow) LastCode() string { return f.lastCode }

// ExtractQrcodeID pulls the numeric identifier out of raw scan input:
// a URL carrying ?key=<digits>, a bare key=<digits> fragment, or the whole
// input as an integer. Anything else yields 0, which the backend rejects.
func ExtractQrcodeID(raw, key string) int64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}
	if strings.Contains(raw, key+"=") {
		if u, err := url.Parse(raw); err == nil && u.Scheme != "" {
			if v := u.Query().Get(key); v != "" {
				if n, err := strconv.ParseInt(v, 10, 64); err == nil {
					return n
				}
			}
		}
		re := regexp.MustCompile(regexp.QuoteMeta(key) + `=(\d+)`)
		if m := re.FindStringSubmatch(raw); m != nil {
			n, _ := strconv.ParseInt(m[1], 10, 64)
			return n
		}
		return 0
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// ShouldAutoSubmit reports whether raw matches the strict scanned-URL shape:
// it parses as an http(s) URL and carries both the id parameter and a code
// parameter at least 5 characters long. Callers debounce by one macrotask
// before acting on it so a settling input state is read, not raced.
func (f *ScanFlow) ShouldAutoSubmit(raw string) bool {
	if !f.cfg.AutoSubmit {
		return false
	}
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return false
	}
	q := u.Query()
	return q.Get(f.cfg.QRIDParam) != "" && len(q.Get(f.cfg.QRCodeParam)) >= 5
}

// Submit extracts the identifier from raw, merges it with the committed
// selection and calls the backend. On success the raw code is appended to the
// bounded history and remembered as the latest result. On failure the
// backend's message comes back verbatim; nothing is retried and no persisted
// state changes.
func (f *ScanFlow) Submit(ctx context.Context, raw string, method models.ScanMethod) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ErrEmptyInput
	}

	req := models.TakeRequest{
		ProductionProcessesID: f.selection.Process.ID,
		QrcodeID:              ExtractQrcodeID(raw, f.cfg.QRIDParam),
	}
	if f.selection.Device != nil {
		req.DeviceID = f.selection.Device.ID
	}
	if f.selection.Product != nil {
		req.ProductID = f.selection.Product.ID
	}

	if err := f.client.Take(ctx, req); err != nil {
		f.logger.Warn("scan submit rejected", "qrcodeId", req.QrcodeID, "err", err)
		return err
	}

	now := time.Now()
	entry := models.ScanHistoryEntry{
		ID:        now.UnixMilli(),
		Code:      raw,
		Method:    method,
		Timestamp: now.Format("2006-01-02 15:04:05"),
	}
	if err := f.store.AppendHistory(entry, f.cfg.HistoryLimit); err != nil {
		// The submission already succeeded; a history write failure is
		// logged, not surfaced as a submit failure.
		f.logger.Warn("recording scan history", "err", err)
	}
	f.lastCode = raw
	return nil
}

// History returns the persisted history, newest first.
func (f *ScanFlow) History() ([]models.ScanHistoryEntry, error) {
	return f.store.History()
}

// ClearHistory wipes both the in-memory latest result and the persisted log.
func (f *ScanFlow) ClearHistory() error {
	f.lastCode = ""
	return f.store.ClearHistory()
}
