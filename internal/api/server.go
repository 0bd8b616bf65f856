package api

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/rs/cors"

	"MicroFrontend-Portal/internal/descriptor"
	xerrors "MicroFrontend-Portal/internal/errors"
	"MicroFrontend-Portal/internal/observability/metrics"
	"MicroFrontend-Portal/pkg/logger"
	"MicroFrontend-Portal/pkg/plugin"
)

// DefaultOrigin 为插件包服务的默认地址。
const DefaultOrigin = "http://localhost:5000"

// Server 负责暴露 /config 接口，返回插件描述符列表。
type Server struct {
	addr   string
	origin string
	store  descriptor.Store
	cors   *cors.Cors
	log    *slog.Logger
}

// Option 调整配置服务。
type Option func(*Server)

// WithOrigin 设置与 entry 拼接的插件包地址。
func WithOrigin(origin string) Option {
	return func(s *Server) {
		if origin != "" {
			s.origin = strings.TrimRight(origin, "/")
		}
	}
}

// WithAllowedOrigins 限制允许跨域访问的来源。
func WithAllowedOrigins(origins []string) Option {
	return func(s *Server) {
		s.cors = newCORS(origins)
	}
}

// NewServer 构造配置服务实例。
func NewServer(addr string, store descriptor.Store, opts ...Option) *Server {
	s := &Server{
		addr:   addr,
		origin: DefaultOrigin,
		store:  store,
		cors:   newCORS(nil),
		log:    logger.Named("config-server"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler 返回挂载了 CORS、请求标识与指标的路由。
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/config", s.handleConfig)
	return metrics.Instrument("config", withRequestID(s.cors.Handler(mux)))
}

// Start 启动 HTTP 服务，直到上下文取消或出现错误。
func (s *Server) Start(ctx context.Context) error {
	s.log.Info("config server listening", "address", s.addr, "origin", s.origin)
	return serve(ctx, s.addr, s.Handler())
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, "仅支持 GET 与 HEAD", http.StatusMethodNotAllowed)
		return
	}

	items, err := s.store.List(r.Context())
	if err != nil {
		writeError(w, s.log, err, xerrors.CodeStorageFailure)
		return
	}

	out := make([]plugin.Descriptor, len(items))
	for i, d := range items {
		out[i] = d.WithOrigin(s.origin)
	}
	writeJSON(w, http.StatusOK, out)
}
