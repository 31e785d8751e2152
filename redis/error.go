package redis

import (
	"errors"
	"fmt"
)

var (
	ErrRedisConfig  = errors.New("redis config error")
	ErrRedisConnect = errors.New("redis connect error")
)

func ConfigError(err error, name string) error {
	return fmt.Errorf("%w %s: %w", ErrRedisConfig, name, err)
}

func ConnectError(err error, name string) error {
	return fmt.Errorf("%w %s: %w", ErrRedisConnect, name, err)
}
