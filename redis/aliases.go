package redis

import (
	"github.com/go-redis/redis/v8"

	"github.com/datatrails/go-datatrails-bankcache/logger"
)

type Logger = logger.Logger

// so we dont have to import go-redis everywhere
type UniversalClient = redis.UniversalClient

// Nil is returned by GET and friends when the key does not exist.
const Nil = redis.Nil
