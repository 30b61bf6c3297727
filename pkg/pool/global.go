package pool

import (
	"sync"
	"time"
)

var (
	globalMu      sync.RWMutex
	globalManager *Manager
)

// GlobalConfig 全局池集合配置。
type GlobalConfig struct {
	HealthCheckPoolConfig *Config
	BackgroundPoolConfig  *Config
}

// DefaultGlobalConfig 返回全局池的默认配置。
func DefaultGlobalConfig() *GlobalConfig {
	return &GlobalConfig{
		HealthCheckPoolConfig: HealthCheckPoolConfig(),
		BackgroundPoolConfig:  BackgroundPoolConfig(),
	}
}

// InitGlobal 使用默认配置初始化全局池，服务启动时调用一次。
func InitGlobal() error {
	return InitGlobalWithConfig(DefaultGlobalConfig())
}

// InitGlobalWithConfig 初始化全局池，重复调用是无害的空操作。
// config 中为 nil 的池配置会跳过对应池。
func InitGlobalWithConfig(config *GlobalConfig) error {
	if config == nil {
		config = DefaultGlobalConfig()
	}

	globalMu.Lock()
	defer globalMu.Unlock()

	if globalManager != nil {
		return nil
	}

	m := NewManager()
	register := func(t Type, cfg *Config) error {
		if cfg == nil {
			return nil
		}
		return m.Register(string(t), cfg)
	}
	if err := register(HealthCheckPool, config.HealthCheckPoolConfig); err != nil {
		m.ReleaseAll()
		return err
	}
	if err := register(BackgroundPool, config.BackgroundPoolConfig); err != nil {
		m.ReleaseAll()
		return err
	}

	globalManager = m
	return nil
}

// GetGlobal 返回全局池管理器，未初始化时返回 ErrManagerNotInitialized。
func GetGlobal() (*Manager, error) {
	globalMu.RLock()
	defer globalMu.RUnlock()

	if globalManager == nil {
		return nil, ErrManagerNotInitialized
	}
	return globalManager, nil
}

// GetByType 返回全局管理器中的预定义类型池。
func GetByType(poolType Type) (*Pool, error) {
	manager, err := GetGlobal()
	if err != nil {
		return nil, err
	}
	return manager.Get(string(poolType))
}

// SubmitToType 向全局预定义类型池提交任务。调用方应准备好在返回
// 错误时降级执行，全局池未初始化同样走降级路径。
func SubmitToType(poolType Type, task func()) error {
	manager, err := GetGlobal()
	if err != nil {
		return err
	}
	return manager.Submit(string(poolType), task)
}

// StatsGlobal 返回全局管理器中所有池的运行快照。
func StatsGlobal() (map[string]Info, error) {
	manager, err := GetGlobal()
	if err != nil {
		return nil, err
	}
	return manager.Stats(), nil
}

// CloseGlobalTimeout 释放全局池，等待在途任务直到超时。停机时调用。
func CloseGlobalTimeout(timeout time.Duration) error {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalManager == nil {
		return nil
	}

	err := globalManager.ReleaseAllTimeout(timeout)
	globalManager = nil
	return err
}

// ResetGlobal 重置全局池，仅测试使用。
func ResetGlobal() {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalManager != nil {
		globalManager.ReleaseAll()
		globalManager = nil
	}
}
