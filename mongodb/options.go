package mongodb

import (
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// Options MongoDB 客户端配置
type Options struct {
	Name        string        `json:"name" yaml:"name"`
	Uri         string        `json:"uri" yaml:"uri"`
	Username    string        `json:"username" yaml:"username"`
	Password    string        `json:"password" yaml:"password"`
	MaxPoolSize uint64        `json:"maxPoolSize" yaml:"maxPoolSize"`
	MinPoolSize uint64        `json:"minPoolSize" yaml:"minPoolSize"`
	Timeout     time.Duration `json:"timeout" yaml:"timeout"`
}

func NewDefaultOptions(name, uri string) *Options {
	return &Options{
		Name:        name,
		Uri:         uri,
		MaxPoolSize: 100,
		MinPoolSize: 5,
		Timeout:     10 * time.Second,
	}
}

func (o *Options) Validate() error {
	switch {
	case o.Name == "":
		return errors.New("mongodb: 客户端名称不能为空")
	case o.Uri == "":
		return errors.New("mongodb: uri 不能为空")
	case o.Timeout <= 0:
		return errors.New("mongodb: 超时必须大于 0")
	case o.MaxPoolSize > 0 && o.MinPoolSize > o.MaxPoolSize:
		return errors.New("mongodb: 最小连接数不能大于最大连接数")
	}
	return nil
}

// clientOptions 转换为驱动的客户端选项，uri 由 mgo 单独传入
func (o *Options) clientOptions() *options.ClientOptionsBuilder {
	opts := options.Client()
	if o.Username != "" || o.Password != "" {
		opts.SetAuth(options.Credential{Username: o.Username, Password: o.Password})
	}
	if o.MaxPoolSize > 0 {
		opts.SetMaxPoolSize(o.MaxPoolSize)
	}
	if o.MinPoolSize > 0 {
		opts.SetMinPoolSize(o.MinPoolSize)
	}
	opts.SetConnectTimeout(o.Timeout)
	return opts
}
