package config

// Load 把配置节绑定到新的 T，section 为空时绑定整个配置
func Load[T any](cfg Configuration, section string) (T, error) {
	var t T
	err := cfg.Bind(section, &t)
	return t, err
}
