package etcd

import (
	"errors"
	"time"
)

// ClientOptions etcd 客户端配置
type ClientOptions struct {
	Name               string        `json:"name" yaml:"name"`
	Endpoints          []string      `json:"endpoints" yaml:"endpoints"`
	DialTimeout        time.Duration `json:"dialTimeout" yaml:"dialTimeout"`
	Username           string        `json:"username" yaml:"username"`
	Password           string        `json:"password" yaml:"password"`
	AutoSyncInterval   time.Duration `json:"autoSyncInterval" yaml:"autoSyncInterval"`
	MaxCallSendMsgSize int           `json:"maxCallSendMsgSize" yaml:"maxCallSendMsgSize"`
	MaxCallRecvMsgSize int           `json:"maxCallRecvMsgSize" yaml:"maxCallRecvMsgSize"`
}

func NewDefaultOptions(name string) *ClientOptions {
	return &ClientOptions{
		Name:        name,
		Endpoints:   []string{"localhost:2379"},
		DialTimeout: 5 * time.Second,
	}
}

func (o *ClientOptions) Validate() error {
	switch {
	case o.Name == "":
		return errors.New("etcd: 客户端名称不能为空")
	case len(o.Endpoints) == 0:
		return errors.New("etcd: 至少需要一个 endpoint")
	case o.DialTimeout <= 0:
		return errors.New("etcd: 连接超时必须大于 0")
	}
	return nil
}
