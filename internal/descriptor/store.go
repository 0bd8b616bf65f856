package descriptor

import (
	"context"
	"fmt"
	"strings"

	xerrors "MicroFrontend-Portal/internal/errors"
	"MicroFrontend-Portal/pkg/plugin"
)

// Store 为配置服务提供插件描述符列表。返回值中的 URL 为空，由服务按 origin 拼接。
type Store interface {
	List(ctx context.Context) ([]plugin.Descriptor, error)
	Close() error
}

// Writer 由支持写入的存储实现，整体替换描述符列表。
type Writer interface {
	Save(ctx context.Context, descriptors []plugin.Descriptor) error
}

// Validate 检查描述符列表：名称唯一、entry 与路由路径以 / 开头、路由组件非空。
func Validate(descriptors []plugin.Descriptor) error {
	seen := make(map[string]struct{}, len(descriptors))
	for i, d := range descriptors {
		name := strings.TrimSpace(d.Name)
		if name == "" {
			return xerrors.New(xerrors.CodeInvalidArgument, fmt.Sprintf("descriptor %d has no name", i))
		}
		if _, dup := seen[name]; dup {
			return xerrors.New(xerrors.CodeConflict, fmt.Sprintf("duplicate descriptor name %s", name))
		}
		seen[name] = struct{}{}
		if !strings.HasPrefix(d.Entry, "/") {
			return xerrors.New(xerrors.CodeInvalidArgument, fmt.Sprintf("descriptor %s: entry %q must start with /", name, d.Entry))
		}
		for _, r := range d.Routes {
			if !strings.HasPrefix(r.Path, "/") {
				return xerrors.New(xerrors.CodeInvalidArgument, fmt.Sprintf("descriptor %s: route path %q must start with /", name, r.Path))
			}
			if strings.TrimSpace(r.Component) == "" {
				return xerrors.New(xerrors.CodeInvalidArgument, fmt.Sprintf("descriptor %s: route %s has no component", name, r.Path))
			}
		}
	}
	return nil
}

func cloneAll(descriptors []plugin.Descriptor) []plugin.Descriptor {
	out := make([]plugin.Descriptor, len(descriptors))
	for i, d := range descriptors {
		out[i] = d.Clone()
	}
	return out
}
