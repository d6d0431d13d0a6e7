package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher 基于 fsnotify 监听配置文件，写入/创建后重新加载并回调。
// 监听所在目录而不是文件本身，编辑器"写临时文件再 rename"的保存方式也能捕获。
type Watcher struct {
	Path     string
	Cooldown time.Duration // 冷却时间，避免一次保存触发多次重载
	OnError  func(error)

	mu         sync.Mutex
	lastReload time.Time
}

// Start 阻塞直到 ctx 取消；回调收到最新且通过校验的配置。
func (w *Watcher) Start(ctx context.Context, onUpdate func(AppConfig)) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer fw.Close()

	target := filepath.Clean(w.Path)
	if err := fw.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("failed to watch config dir: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			// 只处理写入和创建事件
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				w.handleChange(onUpdate)
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.reportError(fmt.Errorf("watcher error: %w", err))
		}
	}
}

func (w *Watcher) handleChange(onUpdate func(AppConfig)) {
	w.mu.Lock()
	if w.Cooldown > 0 && time.Since(w.lastReload) < w.Cooldown {
		w.mu.Unlock()
		return
	}
	w.mu.Unlock()

	cfg, err := LoadWithEnvOverrides(w.Path)
	if err != nil {
		// 写到一半的文件会解析失败，等下一次事件
		w.reportError(fmt.Errorf("reload config: %w", err))
		return
	}

	w.mu.Lock()
	w.lastReload = time.Now()
	w.mu.Unlock()
	if onUpdate != nil {
		onUpdate(cfg)
	}
}

// LastReload 最近一次成功重载的时间。
func (w *Watcher) LastReload() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastReload
}

func (w *Watcher) reportError(err error) {
	if w.OnError != nil {
		w.OnError(err)
	}
}
