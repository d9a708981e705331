package database

import (
	"testing"

	"github.com/gocrud/ioc/builder"
	"github.com/gocrud/ioc/container"
	"github.com/gocrud/ioc/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type User struct {
	gorm.Model
	Name string
}

// 依赖默认数据库的仓储
type UserRepo struct {
	db *gorm.DB
}

func NewUserRepo(db *gorm.DB) *UserRepo {
	return &UserRepo{db: db}
}

func memory(o *Options) {
	// 内存库只在单个连接内可见
	o.MaxOpenConns = 1
	o.MaxIdleConns = 1
	o.AutoMigrate = []any{&User{}}
}

func TestNew_SqliteInMemory(t *testing.T) {
	rt := core.NewRuntime()
	require.NoError(t, rt.Apply(New(
		WithDatabase("default", sqlite.Open(":memory:"), memory),
		WithDatabase("audit", sqlite.Open(":memory:"), memory),
	)))
	require.NoError(t, rt.Container.RegisterFactory(builder.TypeOf[*UserRepo](), NewUserRepo, container.WithSingleton()))

	repo, err := container.Resolve[*UserRepo](rt.Container)
	require.NoError(t, err)
	require.NoError(t, repo.db.Create(&User{Name: "alice"}).Error)

	var count int64
	require.NoError(t, repo.db.Model(&User{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)

	// 命名实例是不同的数据库
	audit, err := container.ResolveNamed[*gorm.DB](rt.Container, "audit")
	require.NoError(t, err)
	require.NoError(t, audit.Model(&User{}).Count(&count).Error)
	assert.EqualValues(t, 0, count)

	def, err := container.ResolveNamed[*gorm.DB](rt.Container, "default")
	require.NoError(t, err)
	assert.Same(t, repo.db, def)

	require.NoError(t, rt.Container.Dispose())
	sqlDB, err := def.DB()
	require.NoError(t, err)
	assert.Error(t, sqlDB.Ping())
}

func TestBuilder_Errors(t *testing.T) {
	_, err := NewBuilder().
		Add("nil-dialector", nil, nil).
		Add("dup", sqlite.Open(":memory:"), nil).
		Add("dup", sqlite.Open(":memory:"), nil).
		Build(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dialector")
	assert.Contains(t, err.Error(), "重复")
}
