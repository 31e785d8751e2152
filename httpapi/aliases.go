package httpapi

import (
	"github.com/datatrails/go-datatrails-bankcache/logger"
)

type Logger = logger.Logger
