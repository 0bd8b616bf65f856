package shell

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"sync"
	"time"

	xerrors "MicroFrontend-Portal/internal/errors"
	"MicroFrontend-Portal/internal/observability/metrics"
	"MicroFrontend-Portal/pkg/component"
	"MicroFrontend-Portal/pkg/logger"
	"MicroFrontend-Portal/pkg/plugin"
)

// State 表示宿主应用的加载阶段。
type State string

const (
	StateIdle    State = "idle"
	StateLoading State = "loading"
	StateReady   State = "ready"
	StateError   State = "error"
)

// ErrorMessage 是加载失败时展示给用户的唯一提示，具体原因只写入日志。
const ErrorMessage = "Failed to load plugins. Please check the console for more details."

// PluginPlaceholder 在插件不存在时渲染。
const PluginPlaceholder = "Loading plugin..."

// ConfigSource 提供插件描述符列表，portal.Client 实现了该接口。
type ConfigSource interface {
	FetchConfig(ctx context.Context) ([]plugin.Descriptor, error)
}

type routeEntry struct {
	plugin    string
	component component.Component
}

// Shell 是宿主应用：启动时拉取配置并加载插件，然后提供导航与路由页面。
type Shell struct {
	addr     string
	source   ConfigSource
	registry *plugin.Registry
	log      *slog.Logger

	once    sync.Once
	initErr error

	mu     sync.RWMutex
	state  State
	nav    []navItem
	routes map[string]routeEntry
}

// New 构造宿主应用，状态为 idle。
func New(addr string, source ConfigSource, registry *plugin.Registry) *Shell {
	if registry == nil {
		registry = plugin.NewRegistry()
	}
	return &Shell{
		addr:     addr,
		source:   source,
		registry: registry,
		log:      logger.Named("shell"),
		state:    StateIdle,
	}
}

// State 返回当前状态。
func (s *Shell) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Registry 返回宿主使用的插件注册表。
func (s *Shell) Registry() *plugin.Registry {
	return s.registry
}

// Init 只执行一次：拉取配置、加载全部插件并进入 ready；任何失败都进入 error 且不会重试。
func (s *Shell) Init(ctx context.Context) error {
	s.once.Do(func() {
		s.initErr = s.initialize(ctx)
	})
	return s.initErr
}

func (s *Shell) initialize(ctx context.Context) error {
	s.setState(StateLoading)
	start := time.Now()

	descriptors, err := s.source.FetchConfig(ctx)
	if err != nil {
		return s.fail(xerrors.Wrap(xerrors.CodeConfigUnavailable, err, "fetch plugin config"))
	}
	if err := s.registry.LoadPlugins(ctx, descriptors); err != nil {
		return s.fail(classifyLoadError(err))
	}

	nav, routes := buildRoutes(s.registry.GetAll())
	s.mu.Lock()
	s.nav = nav
	s.routes = routes
	s.state = StateReady
	s.mu.Unlock()

	s.log.Info("plugins loaded", "count", len(descriptors), "routes", len(routes), "duration", time.Since(start))
	return nil
}

func classifyLoadError(err error) error {
	switch {
	case errors.Is(err, context.Canceled):
		// 主动关闭，不需要重试或告警。
		return xerrors.Wrap(xerrors.CodeTimeout, err, "load plugins",
			xerrors.WithRetryable(false), xerrors.WithSeverity(xerrors.SeverityInfo))
	case errors.Is(err, context.DeadlineExceeded):
		return xerrors.Wrap(xerrors.CodeTimeout, err, "load plugins")
	case errors.Is(err, plugin.ErrBundleUnavailable):
		return xerrors.Wrap(xerrors.CodeBundleUnavailable, err, "load plugins")
	case plugin.IsBundleError(err):
		return xerrors.Wrap(xerrors.CodeBundleMalformed, err, "load plugins")
	default:
		return xerrors.Wrap(xerrors.CodeBundleMalformed, err, "load plugins", xerrors.WithSeverity(xerrors.SeverityWarning))
	}
}

func (s *Shell) fail(err error) error {
	s.setState(StateError)
	s.log.Log(context.Background(), xerrors.SeverityOf(err).Level(), "Failed to initialize plugins",
		"code", xerrors.CodeOf(err), "retryable", xerrors.RetryableError(err), "error", err)
	return err
}

func (s *Shell) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

// buildRoutes 生成导航和路由表。内置页面优先，同一路径以先注册的插件为准。
func buildRoutes(plugins []*plugin.Plugin) ([]navItem, map[string]routeEntry) {
	var nav []navItem
	routes := make(map[string]routeEntry)
	for _, p := range plugins {
		for _, r := range p.Routes {
			nav = append(nav, navItem{Label: p.Name, Path: r.Path})
			if r.Path == "/" || r.Path == "/about" {
				continue
			}
			if _, taken := routes[r.Path]; taken {
				continue
			}
			routes[r.Path] = routeEntry{plugin: p.Name, component: r.Component}
		}
	}
	return nav, routes
}

// Handler 返回宿主应用的路由。
func (s *Shell) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/plugins/{name}", s.handlePlugin)
	mux.HandleFunc("/", s.handlePage)
	return metrics.Instrument("shell", mux)
}

// Start 在后台执行 Init 并启动 HTTP 服务，直到上下文取消或出现错误。
func (s *Shell) Start(ctx context.Context) error {
	initCtx, cancelInit := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = s.Init(initCtx)
	}()
	// 监听失败时不必等待插件加载超时。
	defer func() {
		cancelInit()
		wg.Wait()
	}()

	server := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	s.log.Info("shell listening", "address", s.addr)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

func allowRead(w http.ResponseWriter, r *http.Request) bool {
	if r.Method == http.MethodGet || r.Method == http.MethodHead {
		return true
	}
	http.Error(w, "仅支持 GET", http.StatusMethodNotAllowed)
	return false
}

func (s *Shell) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !allowRead(w, r) {
		return
	}
	state := s.State()
	status := http.StatusOK
	if state != StateReady {
		status = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"state":   state,
		"plugins": s.registry.Len(),
	})
}

func (s *Shell) handlePage(w http.ResponseWriter, r *http.Request) {
	if !allowRead(w, r) {
		return
	}
	if s.renderIfFailed(w) {
		return
	}

	// 内置页面不依赖插件，加载完成前即可访问。
	switch r.URL.Path {
	case "/":
		s.render(w, http.StatusOK, pageData{Title: "Home", Content: homeContent})
		return
	case "/about":
		s.render(w, http.StatusOK, pageData{Title: "About", Content: aboutContent})
		return
	}
	if s.renderIfLoading(w) {
		return
	}

	s.mu.RLock()
	entry, ok := s.routes[r.URL.Path]
	s.mu.RUnlock()
	if !ok {
		s.render(w, http.StatusNotFound, pageData{Title: "Not Found", Content: notFoundContent})
		return
	}
	s.renderComponent(w, http.StatusOK, entry.plugin, entry.component, component.Props{Name: entry.plugin, Path: r.URL.Path})
}

func (s *Shell) handlePlugin(w http.ResponseWriter, r *http.Request) {
	if !allowRead(w, r) {
		return
	}
	if s.renderIfFailed(w) || s.renderIfLoading(w) {
		return
	}
	name := r.PathValue("name")
	p, ok := s.registry.Get(name)
	if !ok {
		s.log.Error("Plugin not found", "plugin", name)
		s.render(w, http.StatusNotFound, pageData{Title: name, Content: placeholder()})
		return
	}
	s.renderComponent(w, http.StatusOK, p.Name, p.Component, component.Props{Name: p.Name, Path: r.URL.Path})
}

// renderIfFailed 在 error 状态下渲染统一的错误页面，返回是否已经写出响应。
func (s *Shell) renderIfFailed(w http.ResponseWriter) bool {
	if s.State() != StateError {
		return false
	}
	s.render(w, http.StatusInternalServerError, pageData{Title: "Error", Error: ErrorMessage})
	return true
}

// renderIfLoading 在插件就绪前为插件路径渲染加载提示。
func (s *Shell) renderIfLoading(w http.ResponseWriter) bool {
	if s.State() == StateReady {
		return false
	}
	s.render(w, http.StatusOK, pageData{Title: "Loading", Loading: true})
	return true
}

func (s *Shell) renderComponent(w http.ResponseWriter, status int, title string, c component.Component, props component.Props) {
	var buf bytes.Buffer
	if err := c.Render(&buf, props); err != nil {
		s.log.Error("render plugin component", "plugin", props.Name, "path", props.Path, "error", err)
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	// 组件输出由 html/template 生成，已经转义。
	s.render(w, status, pageData{Title: title, Content: template.HTML(buf.String())})
}

func (s *Shell) render(w http.ResponseWriter, status int, data pageData) {
	if data.Nav == nil && data.Error == "" {
		s.mu.RLock()
		data.Nav = s.nav
		s.mu.RUnlock()
	}
	var buf bytes.Buffer
	if err := pages.Execute(&buf, data); err != nil {
		s.log.Error("render page", "error", err)
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

func placeholder() template.HTML {
	return template.HTML("<div>" + template.HTMLEscapeString(PluginPlaceholder) + "</div>")
}
