package events

import (
	"context"
	"log/slog"

	xerrors "MicroFrontend-Portal/internal/errors"
	"MicroFrontend-Portal/pkg/logger"
	"MicroFrontend-Portal/pkg/plugin"
)

// Sink 把注册表事件写入审计日志并发布到 pub。发布失败只记录日志，不影响插件加载。
func Sink(pub Publisher) plugin.EventSink {
	log := logger.Named("load-events")
	return func(ctx context.Context, ev plugin.Event) {
		out := FromPlugin(ev)
		attrs := []any{
			slog.String("id", out.ID),
			slog.String("type", out.Type),
			slog.String("session", out.Session),
		}
		if out.Plugin != "" {
			attrs = append(attrs, slog.String("plugin", out.Plugin))
		}
		if out.Error != "" {
			attrs = append(attrs, slog.String("error", out.Error))
		}
		logger.Audit().Info("plugin load event", attrs...)

		if pub == nil {
			return
		}
		if err := pub.Publish(ctx, out); err != nil {
			err = xerrors.Wrap(xerrors.CodeEventFailure, err, "publish load event")
			log.Warn("发布加载事件失败", "type", out.Type, "plugin", out.Plugin, "error", err)
		}
	}
}
