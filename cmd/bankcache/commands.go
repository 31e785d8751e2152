package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/datatrails/go-datatrails-bankcache/bankcache"
	"github.com/datatrails/go-datatrails-bankcache/logger"
)

var storeCmd = &cobra.Command{
	Use:   "store BANK KEY",
	Short: "Store a value under KEY in BANK",
	Long: `Store a YAML or JSON value under KEY in BANK, creating the bank and
its parents as needed.

Examples:
  bankcache store minions/alpha grains -f grains.yaml
  bankcache store minions/alpha role -v web`,
	Args: cobra.ExactArgs(2),
	RunE: runStore,
}

var fetchCmd = &cobra.Command{
	Use:   "fetch BANK KEY",
	Short: "Print the value of KEY in BANK as YAML",
	Args:  cobra.ExactArgs(2),
	RunE:  runFetch,
}

var flushCmd = &cobra.Command{
	Use:   "flush BANK [KEY]",
	Short: "Remove KEY from BANK, or BANK and everything below it",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runFlush,
}

var listCmd = &cobra.Command{
	Use:   "list BANK",
	Short: "List the child banks of BANK",
	Args:  cobra.ExactArgs(1),
	RunE:  runList,
}

var keysCmd = &cobra.Command{
	Use:   "keys BANK",
	Short: "List the keys stored in BANK",
	Args:  cobra.ExactArgs(1),
	RunE:  runKeys,
}

var containsCmd = &cobra.Command{
	Use:   "contains BANK [KEY]",
	Short: "Exit 0 if KEY is in BANK (or BANK exists), 2 otherwise",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runContains,
}

var updatedCmd = &cobra.Command{
	Use:   "updated BANK KEY",
	Short: "Print when KEY in BANK was last stored",
	Args:  cobra.ExactArgs(2),
	RunE:  runUpdated,
}

// errNotFound makes the command exit non zero without an error message.
type errNotFound struct {
	what string
}

func (e errNotFound) Error() string {
	return e.what + " not found"
}

func init() {
	storeCmd.Flags().StringP("file", "f", "", "YAML or JSON file holding the value, - for stdin")
	storeCmd.Flags().StringP("value", "v", "", "the value, as YAML")

	rootCmd.AddCommand(storeCmd)
	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(flushCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(keysCmd)
	rootCmd.AddCommand(containsCmd)
	rootCmd.AddCommand(updatedCmd)
}

// withCache runs f with a connected cache under the command timeout.
func withCache(cmd *cobra.Command, f func(ctx context.Context, cache *bankcache.Cache) error) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	cache, err := openCache(ctx, cmd, logger.Sugar)
	if err != nil {
		return err
	}
	defer cache.Close()

	return f(ctx, cache)
}

// bankKey names key in bank for messages, or just bank if key is empty.
func bankKey(bank, key string) string {
	if key == "" {
		return bank
	}
	return bank + bankcache.BankSeparator + key
}

func runStore(cmd *cobra.Command, args []string) error {
	file, _ := cmd.Flags().GetString("file")
	literal, _ := cmd.Flags().GetString("value")

	value, err := readValue(cmd.InOrStdin(), file, literal)
	if err != nil {
		return err
	}
	return withCache(cmd, func(ctx context.Context, cache *bankcache.Cache) error {
		return cache.Store(ctx, args[0], args[1], value)
	})
}

func runFetch(cmd *cobra.Command, args []string) error {
	return withCache(cmd, func(ctx context.Context, cache *bankcache.Cache) error {
		var value any
		found, err := cache.Fetch(ctx, args[0], args[1], &value)
		if err != nil {
			return err
		}
		if !found {
			return errNotFound{what: bankKey(args[0], args[1])}
		}
		return printValue(cmd.OutOrStdout(), value)
	})
}

func runFlush(cmd *cobra.Command, args []string) error {
	key := ""
	if len(args) == 2 {
		key = args[1]
	}
	return withCache(cmd, func(ctx context.Context, cache *bankcache.Cache) error {
		return cache.Flush(ctx, args[0], key)
	})
}

func runList(cmd *cobra.Command, args []string) error {
	return withCache(cmd, func(ctx context.Context, cache *bankcache.Cache) error {
		banks, err := cache.List(ctx, args[0])
		if err != nil {
			return err
		}
		for _, b := range banks {
			fmt.Fprintln(cmd.OutOrStdout(), b)
		}
		return nil
	})
}

func runKeys(cmd *cobra.Command, args []string) error {
	return withCache(cmd, func(ctx context.Context, cache *bankcache.Cache) error {
		keys, err := cache.Keys(ctx, args[0])
		if err != nil {
			return err
		}
		for _, k := range keys {
			fmt.Fprintln(cmd.OutOrStdout(), k)
		}
		return nil
	})
}

func runContains(cmd *cobra.Command, args []string) error {
	key := ""
	if len(args) == 2 {
		key = args[1]
	}
	return withCache(cmd, func(ctx context.Context, cache *bankcache.Cache) error {
		found, err := cache.Contains(ctx, args[0], key)
		if err != nil {
			return err
		}
		if !found {
			return errNotFound{what: bankKey(args[0], key)}
		}
		return nil
	})
}

func runUpdated(cmd *cobra.Command, args []string) error {
	return withCache(cmd, func(ctx context.Context, cache *bankcache.Cache) error {
		updated, found, err := cache.Updated(ctx, args[0], args[1])
		if err != nil {
			return err
		}
		if !found {
			return errNotFound{what: bankKey(args[0], args[1])}
		}
		fmt.Fprintln(cmd.OutOrStdout(), updated.UTC().Format(time.RFC3339Nano))
		return nil
	})
}
