package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

var (
	ErrNoValue = errors.New("one of --file or --value is required")
)

// parseValue decodes a YAML (or JSON) document. An empty document is an
// error rather than a nil value.
func parseValue(data []byte) (any, error) {
	var value any
	if err := yaml.Unmarshal(data, &value); err != nil {
		return nil, fmt.Errorf("cannot parse value: %w", err)
	}
	if value == nil {
		return nil, ErrNoValue
	}
	return normalize(value), nil
}

// readValue reads the value for store from file ("-" is stdin) or, if file
// is empty, from the literal value.
func readValue(stdin io.Reader, file string, literal string) (any, error) {
	switch {
	case file == "-":
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, err
		}
		return parseValue(data)
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, err
		}
		return parseValue(data)
	case literal != "":
		return parseValue([]byte(literal))
	}
	return nil, ErrNoValue
}

// normalize converts the map[any]any yaml produces for non string keys into
// map[string]any so the value can be stored with either serializer.
func normalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, e := range t {
			t[k] = normalize(e)
		}
		return t
	case map[any]any:
		m := make(map[string]any, len(t))
		for k, e := range t {
			m[fmt.Sprint(k)] = normalize(e)
		}
		return m
	case []any:
		for i, e := range t {
			t[i] = normalize(e)
		}
		return t
	}
	return v
}

func printValue(w io.Writer, value any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(value); err != nil {
		return err
	}
	return enc.Close()
}
