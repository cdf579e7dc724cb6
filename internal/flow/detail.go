package flow

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"scanflow/internal/config"
	"scanflow/internal/models"
)

// ErrMissingQrcodeID is the local error state for a detail URL without the
// required identifier. No network call is made in this case.
var ErrMissingQrcodeID = errors.New("missing required parameter qrcodeId")

// DetailFetcher is the slice of the API client the detail flows need.
type DetailFetcher interface {
	ProduceByQrcode(ctx context.Context, qrcodeID int64) (models.ProduceDetail, error)
	ShowConfigList(ctx context.Context) ([]models.DisplayFieldConfig, error)
	QrcodeInfo(ctx context.Context, infoID int64) (models.QrcodeInfo, error)
}

// RenderedField is one display line of the public detail page.
type RenderedField struct {
	Code  string
	Label string
	Value string
}

// DetailView is the resolved, renderable detail state.
type DetailView struct {
	Detail models.ProduceDetail
	Fields []RenderedField
}

// DetailFlow resolves a scanned code URL into the public product-detail
// display: the detail record and the display-field configuration are fetched
// together, then only configured, visible fields render, in configured order.
type DetailFlow struct {
	cfg    *config.Config
	client DetailFetcher
	logger *slog.Logger

	lastQrcodeID int64
}

// NewDetailFlow wires the flow.
func NewDetailFlow(cfg *config.Config, client DetailFetcher, logger *slog.Logger) *DetailFlow {
	if logger == nil {
		logger = slog.Default()
	}
	return &DetailFlow{cfg: cfg, client: client, logger: logger}
}

// fieldRenderers maps a display-config code to the detail field it reads.
// Config entries whose code has no renderer are skipped, never an error.
var fieldRenderers = map[string]func(models.ProduceDetail) string{
	"trademark":        func(d models.ProduceDetail) string { return orDash(d.Trademark) },
	"batchCode":        func(d models.ProduceDetail) string { return orDash(d.BatchCode) },
	"shareProductTime": func(d models.ProduceDetail) string { return formatDateTime(d.ShareProductTime) },
	"thumbCode":        func(d models.ProduceDetail) string { return orDash(d.ThumbCode) },
	"size":             func(d models.ProduceDetail) string { return orDash(d.Size) },
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func formatDateTime(s string) string {
	if s == "" {
		return "-"
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02 15:04:05")
		}
	}
	return s
}

// Resolve reads the identifiers from rawURL and builds the detail view. The
// numeric id is required; without it the flow returns its local error state
// and touches nothing over the network. The detail record and the display
// configuration are fetched concurrently and joined; if either failed, the
// detail failure wins.
func (f *DetailFlow) Resolve(ctx context.Context, rawURL string) (*DetailView, error) {
	id, ok := parseQrcodeIDParam(rawURL)
	if !ok {
		return nil, ErrMissingQrcodeID
	}
	f.lastQrcodeID = id
	return f.load(ctx, id)
}

// Retry re-issues both fetches for the last resolved identifier.
func (f *DetailFlow) Retry(ctx context.Context) (*DetailView, error) {
	if f.lastQrcodeID == 0 {
		return nil, ErrMissingQrcodeID
	}
	return f.load(ctx, f.lastQrcodeID)
}

func (f *DetailFlow) load(ctx context.Context, id int64) (*DetailView, error) {
	var (
		wg        sync.WaitGroup
		detail    models.ProduceDetail
		cfgList   []models.DisplayFieldConfig
		detailErr error
		cfgErr    error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		detail, detailErr = f.client.ProduceByQrcode(ctx, id)
	}()
	go func() {
		defer wg.Done()
		cfgList, cfgErr = f.client.ShowConfigList(ctx)
	}()
	wg.Wait()

	if detailErr != nil {
		return nil, detailErr
	}
	if cfgErr != nil {
		return nil, cfgErr
	}

	view := &DetailView{Detail: detail}
	for _, c := range cfgList {
		if !c.Visible() {
			continue
		}
		render, known := fieldRenderers[c.Code]
		if !known {
			continue
		}
		view.Fields = append(view.Fields, RenderedField{
			Code:  c.Code,
			Label: c.Name,
			Value: render(detail),
		})
	}
	return view, nil
}

// parseQrcodeIDParam reads the required numeric identifier from a detail URL.
func parseQrcodeIDParam(rawURL string) (int64, bool) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return 0, false
	}
	v := u.Query().Get("qrcodeId")
	if v == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n == 0 {
		return 0, false
	}
	return n, true
}

var schemeRe = regexp.MustCompile(`(?i)^https?://`)

// ResolveQrcode handles the code-landing entry point: the qrcode record is
// fetched and, when it names a target URL, turned into a navigation signal.
// Addresses without a scheme get https://; a /product-detail target becomes
// the in-app product detail route carrying the original identifier.
func (f *DetailFlow) ResolveQrcode(ctx context.Context, qrid int64) (*Navigate, models.QrcodeInfo, error) {
	info, err := f.client.QrcodeInfo(ctx, qrid)
	if err != nil {
		return nil, info, err
	}
	if info.URL == "" {
		return nil, info, nil
	}
	full := info.URL
	if !schemeRe.MatchString(full) {
		full = "https://" + full
	}
	if strings.Contains(full, "/product-detail") {
		return &Navigate{
			Route:  RouteProductDetail,
			Params: map[string]string{"qrcodeId": strconv.FormatInt(qrid, 10)},
		}, info, nil
	}
	return &Navigate{
		Route:  RouteExternal,
		Params: map[string]string{"url": full},
	}, info, nil
}
