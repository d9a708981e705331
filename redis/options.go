package redis

import (
	"errors"
	"time"
)

// ClientOptions Redis 客户端配置
type ClientOptions struct {
	Name         string        `json:"name" yaml:"name"`
	Addr         string        `json:"addr" yaml:"addr"`
	Password     string        `json:"password" yaml:"password"`
	DB           int           `json:"db" yaml:"db"`
	DialTimeout  time.Duration `json:"dialTimeout" yaml:"dialTimeout"`
	ReadTimeout  time.Duration `json:"readTimeout" yaml:"readTimeout"`
	WriteTimeout time.Duration `json:"writeTimeout" yaml:"writeTimeout"`
	PoolSize     int           `json:"poolSize" yaml:"poolSize"`
	MinIdleConns int           `json:"minIdleConns" yaml:"minIdleConns"`
	MaxRetries   int           `json:"maxRetries" yaml:"maxRetries"`
	// SkipPing 注册时不检查连接
	SkipPing bool `json:"skipPing" yaml:"skipPing"`
}

func NewDefaultOptions(name string) *ClientOptions {
	return &ClientOptions{
		Name:         name,
		Addr:         "localhost:6379",
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 5,
		MaxRetries:   3,
	}
}

func (o *ClientOptions) Validate() error {
	switch {
	case o.Name == "":
		return errors.New("redis: 客户端名称不能为空")
	case o.Addr == "":
		return errors.New("redis: 地址不能为空")
	case o.DB < 0:
		return errors.New("redis: 数据库编号不能为负数")
	case o.DialTimeout <= 0:
		return errors.New("redis: 连接超时必须大于 0")
	}
	return nil
}
