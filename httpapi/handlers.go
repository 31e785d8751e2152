// Package httpapi exposes the bank cache over a small JSON api:
//
//	GET    /banks/{bank...}          child banks and keys of bank
//	GET    /banks/{bank...}?key=K    value of K, 404 if missing
//	PUT    /banks/{bank...}?key=K    store the JSON body as K
//	DELETE /banks/{bank...}[?key=K]  flush K, or bank and everything below it
//	HEAD   /banks/{bank...}[?key=K]  200 if K (or bank) exists, else 404
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/datatrails/go-datatrails-bankcache/bankcache"
	"github.com/datatrails/go-datatrails-bankcache/errhandling"
	"github.com/datatrails/go-datatrails-bankcache/metrics"
	"github.com/datatrails/go-datatrails-bankcache/tracing"
)

const (
	maxBodyBytes = 1 << 20
)

// Cache is the part of *bankcache.Cache the api needs.
type Cache interface {
	Store(ctx context.Context, bank, key string, value any) error
	Fetch(ctx context.Context, bank, key string, out any) (bool, error)
	Updated(ctx context.Context, bank, key string) (time.Time, bool, error)
	List(ctx context.Context, bank string) ([]string, error)
	Keys(ctx context.Context, bank string) ([]string, error)
	Contains(ctx context.Context, bank, key string) (bool, error)
	Flush(ctx context.Context, bank, key string) error
}

type BankResponse struct {
	Bank  string   `json:"bank"`
	Banks []string `json:"banks"`
	Keys  []string `json:"keys"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type Handlers struct {
	log   Logger
	cache Cache
}

func NewHandlers(log Logger, cache Cache) *Handlers {
	return &Handlers{log: log, cache: cache}
}

// RegisterRoutes adds the /banks routes to rg.
func RegisterRoutes(rg gin.IRouter, h *Handlers) {
	banks := rg.Group("/banks")
	banks.GET("/*bank", h.HandleGet)
	banks.HEAD("/*bank", h.HandleHead)
	banks.PUT("/*bank", h.HandlePut)
	banks.DELETE("/*bank", h.HandleDelete)
}

// NewRouter returns the complete api handler: a gin engine wrapped in
// tracing and, if m is not nil, request metrics.
func NewRouter(log Logger, cache Cache, m *metrics.Metrics) http.Handler {
	engine := gin.New()
	engine.Use(gin.Recovery(), requestID(log))
	engine.GET("/healthz", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	RegisterRoutes(engine, NewHandlers(log, cache))
	return tracing.HTTPMiddleware(m.NewLatencyMetricsHandler(engine))
}

func (h *Handlers) HandleGet(c *gin.Context) {
	log := requestLogger(c, h.log)
	ctx := c.Request.Context()
	bank := c.Param("bank")

	if key := c.Query("key"); key != "" {
		var value any
		found, err := h.cache.Fetch(ctx, bank, key, &value)
		if err != nil {
			h.fail(c, log, err)
			return
		}
		if !found {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "key not found"})
			return
		}
		if updated, ok, err := h.cache.Updated(ctx, bank, key); err == nil && ok {
			c.Header("Last-Modified", updated.UTC().Format(http.TimeFormat))
		}
		c.JSON(http.StatusOK, value)
		return
	}

	banks, err := h.cache.List(ctx, bank)
	if err != nil {
		h.fail(c, log, err)
		return
	}
	keys, err := h.cache.Keys(ctx, bank)
	if err != nil {
		h.fail(c, log, err)
		return
	}
	c.JSON(http.StatusOK, BankResponse{Bank: strings.Trim(bank, bankcache.BankSeparator), Banks: banks, Keys: keys})
}

func (h *Handlers) HandleHead(c *gin.Context) {
	log := requestLogger(c, h.log)
	found, err := h.cache.Contains(c.Request.Context(), c.Param("bank"), c.Query("key"))
	if err != nil {
		h.fail(c, log, err)
		return
	}
	if !found {
		c.Status(http.StatusNotFound)
		return
	}
	c.Status(http.StatusOK)
}

func (h *Handlers) HandlePut(c *gin.Context) {
	log := requestLogger(c, h.log)
	key := c.Query("key")
	if key == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "key is required"})
		return
	}

	var value any
	dec := json.NewDecoder(http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes))
	if err := dec.Decode(&value); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "body must be JSON: " + err.Error()})
		return
	}

	if err := h.cache.Store(c.Request.Context(), c.Param("bank"), key, value); err != nil {
		h.fail(c, log, err)
		return
	}
	log.Debugf("stored %s in %s", key, c.Param("bank"))
	c.Status(http.StatusNoContent)
}

func (h *Handlers) HandleDelete(c *gin.Context) {
	log := requestLogger(c, h.log)
	if err := h.cache.Flush(c.Request.Context(), c.Param("bank"), c.Query("key")); err != nil {
		h.fail(c, log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// fail maps cache errors to status codes: bad arguments are the caller's
// fault, transient redis failures are 503 and other redis failures 502.
func (h *Handlers) fail(c *gin.Context, log Logger, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, bankcache.ErrInvalidBank), errors.Is(err, bankcache.ErrInvalidKey):
		status = http.StatusBadRequest
	case errhandling.IsTransient(err):
		status = http.StatusServiceUnavailable
	case errors.Is(err, bankcache.ErrCache):
		status = http.StatusBadGateway
	}
	if status >= http.StatusInternalServerError {
		log.Infof("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	}
	c.JSON(status, ErrorResponse{Error: err.Error()})
}
