package container

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"wallet-ledger-go/infrastructure/logger"
)

// Lifecycle 长期运行的组件，Run 阻塞直到 ctx 取消或出错。
type Lifecycle interface {
	Name() string
	Run(ctx context.Context) error
}

// LifecycleManager 生命周期管理器
type LifecycleManager struct {
	components []Lifecycle
	logger     *logger.Logger
	mu         sync.RWMutex
}

// NewLifecycleManager 创建新的生命周期管理器
func NewLifecycleManager(log *logger.Logger) *LifecycleManager {
	if log == nil {
		log = logger.NewNop()
	}
	return &LifecycleManager{
		components: make([]Lifecycle, 0),
		logger:     log,
	}
}

// Register 注册组件
func (m *LifecycleManager) Register(component Lifecycle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.components = append(m.components, component)
}

// Names 已注册组件名（按注册顺序）
func (m *LifecycleManager) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.components))
	for _, c := range m.components {
		names = append(names, c.Name())
	}
	return names
}

// RunAll 并发运行所有组件；任一组件出错会取消其余组件。
// ctx 取消导致的退出不视为错误。
func (m *LifecycleManager) RunAll(ctx context.Context) error {
	m.mu.RLock()
	components := append([]Lifecycle(nil), m.components...)
	m.mu.RUnlock()

	g, gctx := errgroup.WithContext(ctx)
	for _, component := range components {
		component := component
		g.Go(func() error {
			m.logger.Info(fmt.Sprintf("%s started", component.Name()))
			err := component.Run(gctx)
			if err != nil && !errors.Is(err, context.Canceled) {
				m.logger.LogError(err, map[string]interface{}{
					"component": component.Name(),
					"action":    "run",
				})
				return fmt.Errorf("component %s failed: %w", component.Name(), err)
			}
			m.logger.Info(fmt.Sprintf("%s stopped", component.Name()))
			return nil
		})
	}
	return g.Wait()
}

// componentFunc 把函数适配为 Lifecycle
type componentFunc struct {
	name string
	run  func(ctx context.Context) error
}

func (c componentFunc) Name() string { return c.name }

func (c componentFunc) Run(ctx context.Context) error { return c.run(ctx) }
