package container

import (
	"fmt"

	"github.com/gocrud/ioc/builder"
	"github.com/gocrud/ioc/logging"
)

// Extension 容器扩展，可以向策略链插入策略或设置策略
type Extension interface {
	Initialize(ctx *ExtensionContext) error
}

// ExtensionFunc 函数适配器
type ExtensionFunc func(ctx *ExtensionContext) error

func (f ExtensionFunc) Initialize(ctx *ExtensionContext) error {
	return f(ctx)
}

// ExtensionContext 扩展可以访问的容器内部
type ExtensionContext struct {
	Container  *Container
	Strategies *builder.StagedStrategyChain
	Policies   *builder.PolicyList
	Lifetime   *builder.LifetimeContainer
	Logger     logging.Logger
}

// AddExtension 初始化并添加扩展。
// 扩展实现 builder.Disposable 或 io.Closer 时随容器一起释放。
func (c *Container) AddExtension(ext Extension) error {
	if err := c.checkDisposed(); err != nil {
		return err
	}
	if ext == nil {
		return fmt.Errorf("%w: 扩展为 nil", builder.ErrArgumentNull)
	}

	ctx := &ExtensionContext{
		Container:  c,
		Strategies: c.strategies,
		Policies:   c.policies,
		Lifetime:   c.lifetime,
		Logger:     c.logger,
	}
	if err := ext.Initialize(ctx); err != nil {
		return fmt.Errorf("container: 初始化扩展 %T 失败: %w", ext, err)
	}

	c.mu.Lock()
	c.extensions = append(c.extensions, ext)
	c.mu.Unlock()
	c.lifetime.Add(ext)

	c.logger.Debug("添加扩展", logging.F("extension", fmt.Sprintf("%T", ext)))
	return nil
}

// Extensions 返回已添加的扩展
func (c *Container) Extensions() []Extension {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Extension, len(c.extensions))
	copy(out, c.extensions)
	return out
}
