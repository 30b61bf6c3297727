package domains

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/kart-io/logger"
	"gopkg.in/yaml.v3"
)

// NewFilterFromFile 创建过滤器并用 YAML 文件覆盖内置数据表。
func NewFilterFromFile(path string) (*Filter, error) {
	f := &Filter{tables: defaultTables(), path: path}
	if err := f.Reload(); err != nil {
		return nil, err
	}
	return f, nil
}

// Reload 重新读取 YAML 文件，覆盖数据表中对应的非空字段。
// 解析失败时保留现有数据表。
func (f *Filter) Reload() error {
	if f.path == "" {
		return nil
	}

	data, err := os.ReadFile(f.path)
	if err != nil {
		return fmt.Errorf("failed to read domain tables: %w", err)
	}

	var override Tables
	if err := yaml.Unmarshal(data, &override); err != nil {
		return fmt.Errorf("failed to parse domain tables: %w", err)
	}

	merged := defaultTables()
	if len(override.NationalRegulators) > 0 {
		merged.NationalRegulators = override.NationalRegulators
	}
	if len(override.TopicAgencies) > 0 {
		merged.TopicAgencies = override.TopicAgencies
	}
	if len(override.ProvinceDomains) > 0 {
		merged.ProvinceDomains = override.ProvinceDomains
	}
	if len(override.TopicRules) > 0 {
		merged.TopicRules = override.TopicRules
	}
	if len(override.RegulatoryTerms) > 0 {
		merged.RegulatoryTerms = override.RegulatoryTerms
	}

	f.mu.Lock()
	f.tables = merged
	f.mu.Unlock()

	logger.Infow("domain tables loaded",
		"path", f.path,
		"national", len(merged.NationalRegulators),
		"topic_rules", len(merged.TopicRules),
	)
	return nil
}

// Watch 启动 fsnotify 监听，数据表文件变更时热加载。
// 监听文件所在目录以兼容编辑器的原子替换写入。
func (f *Filter) Watch() error {
	if f.path == "" {
		return nil
	}

	f.watchMu.Lock()
	defer f.watchMu.Unlock()
	if f.done != nil {
		return nil // 已在监听
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(f.path)); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch domain tables dir: %w", err)
	}

	done := make(chan struct{})
	f.done = done
	target := filepath.Clean(f.path)

	go func() {
		defer watcher.Close()
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) {
					continue
				}
				if err := f.Reload(); err != nil {
					logger.Errorw("failed to reload domain tables", "error", err.Error())
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warnw("domain tables watcher error", "error", err.Error())
			case <-done:
				return
			}
		}
	}()

	logger.Infow("watching domain tables", "path", f.path)
	return nil
}

// Close 停止监听。未启动监听时调用是安全的。
func (f *Filter) Close() {
	f.watchMu.Lock()
	defer f.watchMu.Unlock()
	if f.done != nil {
		close(f.done)
		f.done = nil
	}
}
