package bankcache

import (
	"strings"

	env "github.com/datatrails/go-datatrails-bankcache/environment"
)

const (
	BankSeparator = "/"

	BankPrefixEnv      = "REDIS_BANK_PREFIX"
	BankKeysPrefixEnv  = "REDIS_BANK_KEYS_PREFIX"
	KeyPrefixEnv       = "REDIS_KEY_PREFIX"
	TimestampPrefixEnv = "REDIS_TIMESTAMP_PREFIX"
	SeparatorEnv       = "REDIS_KEY_SEPARATOR"

	defaultBankPrefix      = "$BANK"
	defaultBankKeysPrefix  = "$BANKEYS"
	defaultKeyPrefix       = "$KEY"
	defaultTimestampPrefix = "$TSTAMP"
	defaultSeparator       = "_"
)

// Layout names the redis keys used for banks and values. Two caches sharing
// a redis database must use different prefixes.
type Layout struct {
	BankPrefix      string
	BankKeysPrefix  string
	KeyPrefix       string
	TimestampPrefix string
	Separator       string
}

func DefaultLayout() Layout {
	return Layout{
		BankPrefix:      defaultBankPrefix,
		BankKeysPrefix:  defaultBankKeysPrefix,
		KeyPrefix:       defaultKeyPrefix,
		TimestampPrefix: defaultTimestampPrefix,
		Separator:       defaultSeparator,
	}
}

// LayoutFromEnv overrides the default layout with any REDIS_*_PREFIX and
// REDIS_KEY_SEPARATOR variables that are set.
func LayoutFromEnv() Layout {
	return Layout{
		BankPrefix:      env.GetWithDefault(BankPrefixEnv, defaultBankPrefix),
		BankKeysPrefix:  env.GetWithDefault(BankKeysPrefixEnv, defaultBankKeysPrefix),
		KeyPrefix:       env.GetWithDefault(KeyPrefixEnv, defaultKeyPrefix),
		TimestampPrefix: env.GetWithDefault(TimestampPrefixEnv, defaultTimestampPrefix),
		Separator:       env.GetWithDefault(SeparatorEnv, defaultSeparator),
	}
}

// BankKey is the set of child bank names of bank.
func (l Layout) BankKey(bank string) string {
	return l.BankPrefix + l.Separator + bank
}

// BankKeysKey is the set of key names stored in bank.
func (l Layout) BankKeysKey(bank string) string {
	return l.BankKeysPrefix + l.Separator + bank
}

// ValueKey holds the serialised value of key in bank.
func (l Layout) ValueKey(bank, key string) string {
	return l.KeyPrefix + l.Separator + bank + BankSeparator + key
}

// TimestampKey holds the unix time key was last stored.
func (l Layout) TimestampKey(bank, key string) string {
	return l.TimestampPrefix + l.Separator + bank + BankSeparator + key
}

// parseBank trims surrounding separators and splits bank into its segments.
// Dots are ordinary characters so minion ids can be used as bank names.
func parseBank(bank string) (string, []string, error) {
	path := strings.Trim(bank, BankSeparator)
	if path == "" {
		return "", nil, invalidBankError(bank, "empty path")
	}
	segments := strings.Split(path, BankSeparator)
	for _, s := range segments {
		if s == "" {
			return "", nil, invalidBankError(bank, "empty path segment")
		}
	}
	return path, segments, nil
}

func checkKey(key string) error {
	if key == "" {
		return invalidKeyError(key, "empty key")
	}
	if strings.Contains(key, BankSeparator) {
		return invalidKeyError(key, "key contains "+BankSeparator)
	}
	return nil
}

// parentOf returns the parent path of a normalised bank and the bank's own
// name. ok is false for a top level bank.
func parentOf(path string) (parent string, name string, ok bool) {
	i := strings.LastIndex(path, BankSeparator)
	if i < 0 {
		return "", path, false
	}
	return path[:i], path[i+1:], true
}
