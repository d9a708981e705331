package lifetime

import (
	"errors"
	"testing"

	"github.com/gocrud/ioc/builder"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type closer struct{ closed int }

func (c *closer) Close() error {
	c.closed++
	return nil
}

type disposable struct{ err error }

func (d *disposable) Dispose() error { return d.err }

func TestManagers_Ownership(t *testing.T) {
	tests := []struct {
		name      string
		manager   Manager
		ownership Ownership
		caches    bool
		disposes  bool
	}{
		{"transient", NewTransient(), NonOwning, false, false},
		{"container", NewContainerControlled(), Owning, true, true},
		{"external", NewExternallyControlled(), NonOwning, true, false},
		{"hierarchical", NewHierarchical(), Owning, true, true},
		{"perresolve", NewPerResolve(), SingleUse, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.ownership, tt.manager.Ownership())

			c := &closer{}
			tt.manager.SetValue(c)
			if tt.caches {
				assert.Same(t, c, tt.manager.GetValue())
			} else {
				assert.Nil(t, tt.manager.GetValue())
			}

			require.NoError(t, tt.manager.Dispose())
			assert.Nil(t, tt.manager.GetValue())
			if tt.disposes {
				assert.Equal(t, 1, c.closed)
			} else {
				assert.Equal(t, 0, c.closed)
			}
		})
	}
}

func TestManagers_AttachInUse(t *testing.T) {
	for _, m := range []Manager{NewTransient(), NewContainerControlled(), NewExternallyControlled(), NewHierarchical(), NewPerResolve()} {
		assert.False(t, m.InUse())
		require.NoError(t, m.Attach())
		assert.True(t, m.InUse())
		assert.ErrorIs(t, m.Attach(), builder.ErrLifetimeManagerInUse)
	}
}

func TestContainerControlled_RemoveValue(t *testing.T) {
	m := NewContainerControlled()
	c := &closer{}
	m.SetValue(c)
	m.RemoveValue()
	assert.Nil(t, m.GetValue())

	// 移除后不再负责释放
	require.NoError(t, m.Dispose())
	assert.Equal(t, 0, c.closed)
}

func TestContainerControlled_DisposeError(t *testing.T) {
	boom := errors.New("boom")
	m := NewContainerControlled()
	m.SetValue(&disposable{err: boom})
	assert.ErrorIs(t, m.Dispose(), boom)
}

func TestHierarchical_Clone(t *testing.T) {
	m := NewHierarchical()
	m.SetValue(&closer{})

	clone, ok := m.CloneForContainer().(*Hierarchical)
	require.True(t, ok)
	assert.Nil(t, clone.GetValue())
	assert.True(t, clone.InUse())
}

func TestPerResolve_Slots(t *testing.T) {
	m := NewPerResolve()
	a := m.NewRequestSlot()
	b := m.NewRequestSlot()

	a.SetValue(1)
	assert.Equal(t, 1, a.GetValue())
	assert.Nil(t, b.GetValue())
	_, nested := a.(builder.RequestScopedPolicy)
	assert.False(t, nested)
}

func TestFactory(t *testing.T) {
	f := SingletonFactory()
	p1, err := f.CreateLifetimePolicy()
	require.NoError(t, err)
	p2, err := f.CreateLifetimePolicy()
	require.NoError(t, err)
	assert.NotSame(t, p1, p2)
	assert.True(t, p1.(Manager).InUse())

	tp, err := TransientFactory().CreateLifetimePolicy()
	require.NoError(t, err)
	_, transient := tp.(builder.TransientPolicy)
	assert.True(t, transient)

	require.NoError(t, f.Attach())
	assert.ErrorIs(t, f.Attach(), builder.ErrLifetimeManagerInUse)
}

func TestFactory_SharedManager(t *testing.T) {
	// newManager 返回同一个管理器时，第二次创建报错而不是共用缓存
	shared := NewContainerControlled()
	f := NewFactory(func() Manager { return shared })

	p, err := f.CreateLifetimePolicy()
	require.NoError(t, err)
	assert.Same(t, shared, p)

	_, err = f.CreateLifetimePolicy()
	assert.ErrorIs(t, err, builder.ErrLifetimeManagerInUse)
}

func TestParse(t *testing.T) {
	for name, want := range map[string]Ownership{
		"singleton":    Owning,
		"transient":    NonOwning,
		"external":     NonOwning,
		"hierarchical": Owning,
		"perresolve":   SingleUse,
	} {
		m, err := Parse(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, m.Ownership(), name)
	}

	_, err := Parse("forever")
	assert.Error(t, err)
}
