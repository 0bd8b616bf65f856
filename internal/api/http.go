package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/cors"

	xerrors "MicroFrontend-Portal/internal/errors"
)

// RequestIDHeader 为每个响应附带的请求标识头。
const RequestIDHeader = "X-Request-ID"

// serve 启动 HTTP 服务，直到上下文取消或出现错误。
func serve(ctx context.Context, addr string, handler http.Handler) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           withContext(ctx, handler),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

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

// withContext 确保请求处理能够感知根上下文取消。
func withContext(ctx context.Context, handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-ctx.Done():
			http.Error(w, "服务已关闭", http.StatusServiceUnavailable)
			return
		default:
		}
		handler.ServeHTTP(w, r)
	})
}

// withRequestID 沿用调用方传入的请求标识，缺失时生成新的 UUID。
func withRequestID(handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		handler.ServeHTTP(w, r)
	})
}

// newCORS 对应原始配置服务中的 cors()：默认允许任意来源读取。
func newCORS(origins []string) *cors.Cors {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodHead, http.MethodOptions},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{RequestIDHeader},
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    xerrors.Code `json:"code"`
	Message string       `json:"message"`
}

// writeError 按统一错误码输出 JSON 错误，未编码的错误视为 fallback 类别。
func writeError(w http.ResponseWriter, log *slog.Logger, err error, fallback xerrors.Code) {
	coded, ok := xerrors.From(err)
	if !ok {
		coded = xerrors.Wrap(fallback, err, "")
	}
	status := xerrors.HTTPStatusOf(coded)
	if status >= http.StatusInternalServerError {
		log.Log(context.Background(), xerrors.SeverityOf(coded).Level(), "request failed",
			"error", coded, "retryable", xerrors.RetryableError(coded))
	}
	writeJSON(w, status, errorBody{Error: errorDetail{Code: coded.Code(), Message: coded.Message()}})
}
