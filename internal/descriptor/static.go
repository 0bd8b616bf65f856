package descriptor

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"MicroFrontend-Portal/pkg/plugin"
)

// DefaultDescriptors 返回示例插件列表。
func DefaultDescriptors() []plugin.Descriptor {
	return []plugin.Descriptor{
		{
			Name:  "PluginA",
			Entry: "/plugin-a.js",
			Routes: []plugin.RouteDescriptor{
				{Path: "/plugin-a", Component: "PluginAPage"},
			},
		},
	}
}

// LoadFile 从 JSON 或 YAML 文件读取描述符列表，文件内容为数组。
func LoadFile(path string) ([]plugin.Descriptor, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("描述符文件路径不能为空")
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("解析描述符路径失败: %w", err)
	}

	content, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("读取描述符文件失败: %w", err)
	}

	var items []plugin.Descriptor
	switch strings.ToLower(filepath.Ext(absPath)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(content, &items)
	default:
		err = json.Unmarshal(content, &items)
	}
	if err != nil {
		return nil, fmt.Errorf("解析描述符文件失败: %w", err)
	}
	for i := range items {
		// URL 由配置服务按 origin 计算。
		items[i].URL = ""
	}
	if err := Validate(items); err != nil {
		return nil, err
	}
	return items, nil
}

// NewStaticStore 从文件构建内存存储，path 为空时使用示例插件。
func NewStaticStore(path string) (*MemoryStore, error) {
	if path == "" {
		return NewMemoryStore(DefaultDescriptors())
	}
	items, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	return NewMemoryStore(items)
}
