// Package codec serialises cached values to and from the bytes held in
// redis.
package codec

import (
	"errors"
	"fmt"
	"strings"
)

const (
	CBORName = "cbor"
	JSONName = "json"
)

var (
	ErrUnknownSerializer = errors.New("unknown serializer")
)

// Serializer converts cached values to and from bytes.
type Serializer interface {
	Marshal(value any) ([]byte, error)
	Unmarshal(data []byte, value any) error
	Name() string
}

// New returns the serializer registered under name. The empty name selects
// CBOR.
func New(name string) (Serializer, error) {
	switch strings.ToLower(name) {
	case "", CBORName:
		return NewCBORSerializer()
	case JSONName:
		return JSONSerializer{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSerializer, name)
	}
}
