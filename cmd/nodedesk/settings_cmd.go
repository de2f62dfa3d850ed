package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"nodedesk/pkg/core"
)

// setters maps a settings field name to the store helper that changes it.
var setters = map[string]func(s *core.Store, value string) error{
	"url": func(s *core.Store, v string) error {
		return s.SaveExternalURL(v)
	},
	"external-key": func(s *core.Store, v string) error {
		return s.SaveExternalAPIKey(v)
	},
	"log-level": func(s *core.Store, v string) error {
		return s.SaveLogLevel(v)
	},
	"lang": func(s *core.Store, v string) error {
		return s.ChangeLanguage(v)
	},
	"use-external": func(s *core.Store, v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return err
		}
		s.ToggleUseExternalNode(b)
		return nil
	},
	"run-internal": func(s *core.Store, v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return err
		}
		s.ToggleRunInternalNode(b)
		return nil
	},
}

func setterNames() []string {
	names := make([]string, 0, len(setters))
	for n := range setters {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func newSettingsCmd(opts *cliOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Inspect or change the stored settings",
		Long: `Inspect or change the stored settings record.

Stop the server first when using the leveldb backend; it holds an
exclusive lock on the database.`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the settings record as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, opts, func(s *core.Store) error {
				return printJSON(cmd.OutOrStdout(), s.State())
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set <field> <value>",
		Short: "Change one setting",
		Long:  "Change one setting. Fields: " + strings.Join(setterNames(), ", "),
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			set, ok := setters[args[0]]
			if !ok {
				return fmt.Errorf("unknown field %q (valid: %s)", args[0], strings.Join(setterNames(), ", "))
			}
			return withStore(cmd, opts, func(s *core.Store) error {
				if err := set(s, args[1]); err != nil {
					return fmt.Errorf("%s: %w", args[0], err)
				}
				return printJSON(cmd.OutOrStdout(), s.State())
			})
		},
	})

	return cmd
}

func newConnectionCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "connection",
		Short: "Print the node endpoint and API key the client would use",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, opts, func(s *core.Store) error {
				return printJSON(cmd.OutOrStdout(), s.Connection())
			})
		},
	}
}

// withStore opens the store for a one-shot command and persists any change
// before returning.
func withStore(cmd *cobra.Command, opts *cliOptions, fn func(s *core.Store) error) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelWarn}))

	a, err := openApp(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}

	fnErr := fn(a.Store)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.Close(ctx); err != nil && fnErr == nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return fnErr
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
