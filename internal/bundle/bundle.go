package bundle

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"MicroFrontend-Portal/pkg/plugin"
)

//go:embed samples/*.yaml
var samples embed.FS

// Bundle 是插件包文件：发布路径加上插件清单。
type Bundle struct {
	Entry           string `json:"entry" yaml:"entry"`
	plugin.Manifest `yaml:",inline"`
}

// Store 按 entry 路径保存插件清单。
type Store struct {
	manifests map[string]plugin.Manifest
	entries   []string
}

// NewStore 校验 bundles 并建立索引，重复的 entry 会被拒绝。
func NewStore(bundles []Bundle) (*Store, error) {
	s := &Store{manifests: make(map[string]plugin.Manifest, len(bundles))}
	for _, b := range bundles {
		if !strings.HasPrefix(b.Entry, "/") {
			return nil, fmt.Errorf("bundle %s: entry %q must start with /", b.Name, b.Entry)
		}
		if _, dup := s.manifests[b.Entry]; dup {
			return nil, fmt.Errorf("duplicate bundle entry %s", b.Entry)
		}
		if err := b.Manifest.Validate(); err != nil {
			return nil, fmt.Errorf("bundle %s: %w", b.Entry, err)
		}
		s.manifests[b.Entry] = b.Manifest
		s.entries = append(s.entries, b.Entry)
	}
	sort.Strings(s.entries)
	return s, nil
}

// Lookup 返回 entry 对应的清单。
func (s *Store) Lookup(entry string) (plugin.Manifest, bool) {
	m, ok := s.manifests[entry]
	return m, ok
}

// Entries 返回排序后的全部 entry。
func (s *Store) Entries() []string {
	return append([]string(nil), s.entries...)
}

// Open 从目录加载插件包，dir 为空时使用内置示例。
func Open(dir string) (*Store, error) {
	if dir == "" {
		return Samples()
	}
	return LoadDir(dir)
}

// Samples 返回内置的 PluginA 示例。
func Samples() (*Store, error) {
	sub, err := fs.Sub(samples, "samples")
	if err != nil {
		return nil, err
	}
	return loadFS(sub)
}

// LoadDir 读取目录下所有 .yaml/.yml/.json 插件包文件。
func LoadDir(dir string) (*Store, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("读取插件包目录失败: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s 不是目录", dir)
	}
	return loadFS(os.DirFS(filepath.Clean(dir)))
}

func loadFS(fsys fs.FS) (*Store, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("读取插件包目录失败: %w", err)
	}
	var bundles []Bundle
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(path.Ext(entry.Name()))
		if ext != ".yaml" && ext != ".yml" && ext != ".json" {
			continue
		}
		raw, err := fs.ReadFile(fsys, entry.Name())
		if err != nil {
			return nil, fmt.Errorf("读取插件包 %s 失败: %w", entry.Name(), err)
		}
		var b Bundle
		if ext == ".json" {
			err = json.Unmarshal(raw, &b)
		} else {
			err = yaml.Unmarshal(raw, &b)
		}
		if err != nil {
			return nil, fmt.Errorf("解析插件包 %s 失败: %w", entry.Name(), err)
		}
		bundles = append(bundles, b)
	}
	return NewStore(bundles)
}
