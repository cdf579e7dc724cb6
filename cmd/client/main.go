package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"scanflow/internal/api"
	"scanflow/internal/config"
	"scanflow/internal/flow"
	"scanflow/internal/models"
	"scanflow/internal/scanner"
	"scanflow/internal/session"
)

func main() {
	cmd := flag.String("cmd", "scan", "Command: login|select|scan|detail|history|logout")
	serverFlag := flag.String("server", "", "Override server base URL (e.g. http://175.24.15.119:10019)")
	userFlag := flag.String("user", "", "Username (login)")
	passFlag := flag.String("pass", "", "Password (login)")
	urlFlag := flag.String("url", "", "Scanned/landing URL (detail)")
	clearFlag := flag.Bool("clear", false, "Clear instead of list (history)")
	verbose := flag.Bool("v", false, "Verbose logging")
	flag.Parse()

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	cfg, err := config.Load()
	if err != nil {
		fmt.Println("Error:", err)
		os.Exit(1)
	}
	if env := os.Getenv("SCANFLOW_SERVER"); env != "" {
		cfg.ServerURL = strings.TrimRight(env, "/")
	}
	if *serverFlag != "" {
		cfg.ServerURL = strings.TrimRight(*serverFlag, "/")
	}

	store, err := session.Open(filepath.Join(cfg.DataDir, "state"))
	if err != nil {
		fmt.Println("Error:", err)
		os.Exit(1)
	}
	defer store.Close()

	client := api.New(cfg.ServerURL, cfg.RequestTimeout, logger)
	client.TokenSource = store.Token
	client.OnUnauthorized = func() {
		// Global 401 side effect: the session is purged no matter which
		// flow issued the call.
		_ = store.Clear()
		fmt.Println("会话已过期，请重新登录 (run -cmd login)")
	}

	app := &appEnv{cfg: cfg, store: store, client: client, logger: logger}

	ctx := context.Background()
	switch *cmd {
	case "login":
		err = app.runLogin(ctx, *userFlag, *passFlag)
	case "select":
		err = app.runProtected(ctx, app.selectView)
	case "scan":
		err = app.runProtected(ctx, app.scanView)
	case "history":
		err = app.runProtected(ctx, app.historyView(*clearFlag))
	case "detail":
		err = app.runDetail(ctx, *urlFlag)
	case "logout":
		err = app.runLogout()
	default:
		fmt.Println("Unknown command:", *cmd)
		os.Exit(1)
	}
	if err != nil {
		fmt.Println("Error:", err)
		os.Exit(1)
	}
}

type appEnv struct {
	cfg    *config.Config
	store  *session.Store
	client *api.Client
	logger *slog.Logger
}

// runProtected runs a view behind the auth gate and acts on its navigation
// signal.
func (a *appEnv) runProtected(ctx context.Context, view flow.ViewFunc) error {
	nav, err := flow.Guard(a.store, view)(ctx)
	if err != nil {
		return err
	}
	a.follow(ctx, nav)
	return nil
}

// follow prints or performs a navigation signal. Signals are one-way; a
// redirect to login or selection ends the current command.
func (a *appEnv) follow(ctx context.Context, nav *flow.Navigate) {
	if nav == nil {
		return
	}
	switch nav.Route {
	case flow.RouteLogin:
		fmt.Println("未登录，请先执行: client -cmd login")
	case flow.RouteSelection:
		fmt.Println("未找到工序选择，请先执行: client -cmd select")
	case flow.RouteScanner:
		fmt.Println("选择已提交，可以开始扫码: client -cmd scan")
	case flow.RouteProductDetail:
		view, err := flow.NewDetailFlow(a.cfg, a.client, a.logger).
			Resolve(ctx, "/product-detail?qrcodeId="+nav.Params["qrcodeId"])
		if err != nil {
			fmt.Println("获取产品详情失败:", err)
			return
		}
		printDetail(view)
	case flow.RouteExternal:
		fmt.Println("外部链接:", nav.Params["url"])
	}
}

func (a *appEnv) runLogin(ctx context.Context, username, password string) error {
	in := bufio.NewReader(os.Stdin)
	if username == "" {
		fmt.Print("用户名: ")
		line, _ := in.ReadString('\n')
		username = strings.TrimSpace(line)
	}
	if password == "" {
		fmt.Print("密码: ")
		line, _ := in.ReadString('\n')
		password = strings.TrimSpace(line)
	}
	if username == "" || password == "" {
		return fmt.Errorf("用户名和密码不能为空")
	}

	info, err := a.client.Login(ctx, username, password)
	if err != nil {
		return fmt.Errorf("登录失败: %w", err)
	}

	name := info.Username
	if name == "" {
		name = username
	}
	userID := info.UserID
	if userID == "" && info.ID != 0 {
		userID = fmt.Sprintf("%d", info.ID)
	}
	sess := models.Session{
		LoggedIn:  true,
		Username:  name,
		UserID:    userID,
		Token:     info.Token,
		LoginTime: time.Now(),
	}
	if err := a.store.SetSession(sess, info); err != nil {
		return err
	}
	fmt.Println("登录成功，欢迎", name)
	fmt.Println("下一步: client -cmd select")
	return nil
}

func (a *appEnv) runLogout() error {
	if err := a.store.Clear(); err != nil {
		return err
	}
	fmt.Println("已退出登录")
	return nil
}

// selectView drives the selection flow interactively: process, optional
// device, then batch and product when the process takes them.
func (a *appEnv) selectView(ctx context.Context) (*flow.Navigate, error) {
	f := flow.NewSelectionFlow(a.cfg, a.store, a.client, a.logger)
	fmt.Println("正在加载数据...")
	f.Enter(ctx)

	in := bufio.NewReader(os.Stdin)
	fmt.Println("请选择工序:")
	for _, p := range f.Processes() {
		fmt.Printf("  [%d] %s (%s)\n", p.ID, p.Name, p.Descript)
	}
	f.SetProcess(prompt(in, "工序 ID", f.Form().ProcessID))

	if a.cfg.RequireDevice {
		fmt.Println("请选择设备:")
		for _, d := range f.Devices() {
			fmt.Printf("  [%d] %s (%s)\n", d.ID, d.Name, d.Code)
		}
		f.SetDevice(prompt(in, "设备 ID", f.Form().DeviceID))
	}

	if f.RequiresProductSelection() {
		fmt.Println("请选择产品:")
		for _, b := range f.Batches() {
			fmt.Printf("  [%s] %d 个批次\n", b.ID(), len(b.Products))
		}
		f.SetBatch(prompt(in, "产品", f.Form().BatchID))

		fmt.Println("请选择批次:")
		for _, p := range f.Products() {
			fmt.Printf("  [%d] %s\n", p.ID, p.BatchCode)
		}
		f.SetProduct(prompt(in, "批次 ID", f.Form().ProductID))
	}

	nav, err := f.Submit()
	if err != nil {
		for field, msg := range f.FieldErrors() {
			fmt.Printf("  %s: %s\n", field, msg)
		}
		return nil, err
	}
	return nav, nil
}

// scanView loops over input lines (or a host scanner when present) and
// submits each code against the committed selection.
func (a *appEnv) scanView(ctx context.Context) (*flow.Navigate, error) {
	f := flow.NewScanFlow(a.cfg, a.store, a.client, a.logger)
	if nav, err := f.Enter(); nav != nil || err != nil {
		return nav, err
	}

	sel := f.Selection()
	fmt.Printf("当前工序: %s\n", sel.Process.Name)
	if sel.Product != nil {
		fmt.Printf("当前批次: %s\n", sel.Product.BatchCode)
	}

	host := scanner.Detect()
	if host != nil {
		fmt.Println("检测到扫码设备，请扫码 (Ctrl+C 退出)")
		for {
			code, err := host.StartScan(ctx)
			if err != nil {
				return nil, err
			}
			a.submitCode(ctx, f, code, models.MethodScan)
		}
	}

	fmt.Println("请输入二维码内容或产品编号 (空行退出):")
	in := bufio.NewScanner(os.Stdin)
	for in.Scan() {
		line := strings.TrimSpace(in.Text())
		if line == "" {
			break
		}
		a.submitCode(ctx, f, line, models.MethodManual)
	}
	return nil, in.Err()
}

func (a *appEnv) submitCode(ctx context.Context, f *flow.ScanFlow, code string, method models.ScanMethod) {
	if f.ShouldAutoSubmit(code) {
		// Yield once so a settling input state is read, not raced.
		runtime.Gosched()
	}
	if err := f.Submit(ctx, code, method); err != nil {
		fmt.Println("提交失败:", err)
		return
	}
	fmt.Println("提交成功:", code)
}

func (a *appEnv) historyView(clear bool) flow.ViewFunc {
	return func(ctx context.Context) (*flow.Navigate, error) {
		if clear {
			if err := a.store.ClearHistory(); err != nil {
				return nil, err
			}
			fmt.Println("扫码历史已清空")
			return nil, nil
		}
		entries, err := a.store.History()
		if err != nil {
			return nil, err
		}
		if len(entries) == 0 {
			fmt.Println("暂无扫码历史")
			return nil, nil
		}
		fmt.Printf("扫码历史 (%d):\n", len(entries))
		for _, e := range entries {
			fmt.Printf("  %s  [%s]  %s\n", e.Timestamp, e.Method, e.Code)
		}
		return nil, nil
	}
}

// runDetail is the public entry point: no auth gate, URL in, rendered fields
// out. A qrid-style landing URL is resolved through the qrcode record first.
func (a *appEnv) runDetail(ctx context.Context, rawURL string) error {
	if rawURL == "" {
		return fmt.Errorf("--url required")
	}
	f := flow.NewDetailFlow(a.cfg, a.client, a.logger)

	if id := flow.ExtractQrcodeID(rawURL, a.cfg.QRIDParam); id != 0 &&
		!strings.Contains(rawURL, "qrcodeId=") {
		nav, info, err := f.ResolveQrcode(ctx, id)
		if err != nil {
			return err
		}
		if nav == nil {
			fmt.Printf("二维码 %s (批次 %s)，无跳转地址\n", info.Code, info.BatchCode)
			return nil
		}
		a.follow(ctx, nav)
		return nil
	}

	view, err := f.Resolve(ctx, rawURL)
	if err != nil {
		return err
	}
	printDetail(view)
	return nil
}

func printDetail(view *flow.DetailView) {
	fmt.Println("产品详情:")
	for _, field := range view.Fields {
		fmt.Printf("  %s: %s\n", field.Label, field.Value)
	}
	if len(view.Detail.ProduceUserList) > 0 {
		fmt.Printf("生产记录 (%d条):\n", len(view.Detail.ProduceUserList))
		for _, u := range view.Detail.ProduceUserList {
			fmt.Printf("  %s  %s  %s\n", u.OperateName, u.ProductionProcessesName, u.CreateTime)
		}
	}
}

func prompt(in *bufio.Reader, label, current string) string {
	if current != "" {
		fmt.Printf("%s [%s]: ", label, current)
	} else {
		fmt.Printf("%s: ", label)
	}
	line, _ := in.ReadString('\n')
	line = strings.TrimSpace(line)
	if line == "" {
		return current
	}
	return line
}
