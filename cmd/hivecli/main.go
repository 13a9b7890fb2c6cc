// Command hivecli is the interactive and one-shot front-end for a hivebox
// box. It generalizes the teacher's bespoke strings.Fields dispatcher
// (internal/cli/handler.go) into spf13/cobra subcommands, with an
// interactive REPL mode grounded on calvinalkan-agent-task's cmd/sloty
// (peterh/liner readline, tab completion, history file).
package main

import (
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/jassi-singh/hivebox/internal/box"
	"github.com/jassi-singh/hivebox/internal/config"
	"github.com/jassi-singh/hivebox/internal/format"
)

var boxName string

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))

	root := &cobra.Command{
		Use:   "hivecli",
		Short: "Interact with a hivebox box",
		Long:  "hivecli opens a box by name and either runs one command against it or drops into an interactive REPL.",
	}
	root.PersistentFlags().StringVarP(&boxName, "box", "b", "default", "box name")

	root.AddCommand(
		replCmd(),
		putCmd(),
		getCmd(),
		deleteCmd(),
		compactCmd(),
		clearCmd(),
	)
	root.RunE = func(cmd *cobra.Command, args []string) error {
		return runREPL(boxName)
	}

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func openBox(name string) (box.Box, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	opts := box.Options{
		Lazy:               cfg.DEFAULT_LAZY,
		CompactionStrategy: box.DefaultCompactionStrategy(cfg.COMPACTION_DELETED_RATIO),
		CrashRecovery:      cfg.CRASH_RECOVERY,
	}
	if cfg.ENCRYPTION_KEY_HEX != "" {
		key, err := hex.DecodeString(cfg.ENCRYPTION_KEY_HEX)
		if err != nil {
			return nil, fmt.Errorf("decode ENCRYPTION_KEY_HEX: %w", err)
		}
		opts.EncryptionKey = key
	}

	return box.Open(cfg, nil, name, opts)
}

func replCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Start an interactive session against the box",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runREPL(boxName)
		},
	}
}

func putCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "put <key> <value>",
		Short: "Put a key/value pair",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := openBox(boxName)
			if err != nil {
				return err
			}
			defer b.Close()
			if err := b.Put(parseKey(args[0]), args[1]); err != nil {
				return err
			}
			fmt.Println("OK")
			return nil
		},
	}
}

func getCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Get a key's value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := openBox(boxName)
			if err != nil {
				return err
			}
			defer b.Close()
			value := b.Get(parseKey(args[0]), nil)
			if value == nil {
				fmt.Println("(nil)")
				return nil
			}
			fmt.Printf("%v\n", value)
			return nil
		},
	}
}

func deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <key>",
		Short: "Delete a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := openBox(boxName)
			if err != nil {
				return err
			}
			defer b.Close()
			if err := b.Delete(parseKey(args[0])); err != nil {
				return err
			}
			fmt.Println("OK")
			return nil
		},
	}
}

func compactCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "compact",
		Short: "Rewrite the box's log, discarding dead frames",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := openBox(boxName)
			if err != nil {
				return err
			}
			defer b.Close()
			if err := b.Compact(); err != nil {
				return err
			}
			fmt.Println("OK")
			return nil
		},
	}
}

func clearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every key from the box",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := openBox(boxName)
			if err != nil {
				return err
			}
			defer b.Close()
			n, err := b.Clear()
			if err != nil {
				return err
			}
			fmt.Printf("removed %d keys\n", n)
			return nil
		},
	}
}

// parseKey treats a purely-numeric argument as a uint32 key and everything
// else as a string key. The one-shot subcommands and the REPL both use it.
func parseKey(s string) format.Key {
	var n uint32
	if _, err := fmt.Sscanf(s, "%d", &n); err == nil && fmt.Sprintf("%d", n) == s {
		return format.NewUintKey(n)
	}
	return format.NewStringKey(s)
}
