package environment

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/datatrails/go-datatrails-bankcache/logger"
)

const (
	commaSeparator = ","
)

// GetLogLevel returns the LOGLEVEL or fallback. This is called before any
// logger is available. i.e. don't use a logger here.
func GetLogLevel(fallback string) string {
	value, ok := os.LookupEnv("LOGLEVEL")
	if !ok || value == "" {
		return fallback
	}
	return value
}

// GetWithDefault returns value of environment variable.
// If the environment variable does not exist the default value is returned.
func GetWithDefault(key, fallback string) string {
	value, ok := os.LookupEnv(key)
	if !ok {
		value = fallback
	}
	return value
}

// GetRequired gets the value for the key, or an error if it is not set.
func GetRequired(key string) (string, error) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return "", fmt.Errorf("required environment variable '%s' is not defined", key)
	}
	return value, nil
}

// GetIntWithDefault returns value of environment variable that is
// expected to be an int.
// If the environment variable does not exist or is incorrect,
// then the default value is returned.
func GetIntWithDefault(key string, fallback int) int {
	val, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	value, err := strconv.Atoi(val)
	if err != nil {
		logger.Sugar.Infof("`%s' can not be converted to an integer. defaulting to %v. err=%v", key, fallback, err)
		return fallback
	}
	return value
}

// GetDurationWithDefault is GetIntWithDefault for time.ParseDuration strings
// such as "250ms" or "2s".
func GetDurationWithDefault(key string, fallback time.Duration) time.Duration {
	val, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	value, err := time.ParseDuration(val)
	if err != nil {
		logger.Sugar.Infof("`%s' can not be converted to a duration. defaulting to %v. err=%v", key, fallback, err)
		return fallback
	}
	return value
}

// GetTruthy returns true if key is set to a value that is truthy. Returns
// false otherwise.
func GetTruthy(key string) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return false
	}
	// t,true,True,1 are all examples of 'truthy' values understood by ParseBool
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false
	}
	return b
}

// GetListWithDefault returns the key's value split on commas. Whitespace
// around each element is removed and empty elements are dropped.
//
// NOTE: if the value is not csv, it is returned as is in a list with the original string
// as the only element in the list
func GetListWithDefault(key string, fallback []string) []string {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	values := []string{}
	for _, v := range strings.Split(value, commaSeparator) {
		v = strings.TrimSpace(v)
		if v != "" {
			values = append(values, v)
		}
	}
	return values
}

// ReadIndirect reads the file named by the environment variable varname and
// returns its contents with surrounding whitespace removed. If varname is
// not set, fallback is returned. Failing to read a named file is an error.
func ReadIndirect(varname, fallback string) (string, error) {
	filename, ok := os.LookupEnv(varname)
	if !ok || filename == "" {
		return fallback, nil
	}
	b, err := os.ReadFile(filename)
	if err != nil {
		return fallback, fmt.Errorf("error reading file `%s' named by %s: %w", filename, varname, err)
	}
	return strings.TrimSpace(string(b)), nil
}
