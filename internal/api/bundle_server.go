package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/rs/cors"

	"MicroFrontend-Portal/internal/bundle"
	"MicroFrontend-Portal/internal/observability/metrics"
	"MicroFrontend-Portal/pkg/logger"
)

// BundleServer 在各自的 entry 路径上发布插件清单。
type BundleServer struct {
	addr  string
	store *bundle.Store
	cors  *cors.Cors
	log   *slog.Logger
}

// NewBundleServer 构造插件包服务。
func NewBundleServer(addr string, store *bundle.Store, allowedOrigins []string) *BundleServer {
	return &BundleServer{
		addr:  addr,
		store: store,
		cors:  newCORS(allowedOrigins),
		log:   logger.Named("bundle-server"),
	}
}

// Handler 返回插件包服务的路由。
func (s *BundleServer) Handler() http.Handler {
	return metrics.Instrument("bundle", withRequestID(s.cors.Handler(http.HandlerFunc(s.handleBundle))))
}

// Start 启动 HTTP 服务，直到上下文取消或出现错误。
func (s *BundleServer) Start(ctx context.Context) error {
	s.log.Info("bundle server listening", "address", s.addr, "entries", s.store.Entries())
	return serve(ctx, s.addr, s.Handler())
}

func (s *BundleServer) handleBundle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "仅支持 GET", http.StatusMethodNotAllowed)
		return
	}
	manifest, ok := s.store.Lookup(r.URL.Path)
	if !ok {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, manifest)
}
