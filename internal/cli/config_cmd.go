// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/deskmate/internal/config"
)

// HandleConfig inspects or edits the configuration file.
func HandleConfig(env *Env, args Args) error {
	p := NewArgParser(args.Raw)

	path := args.ConfigPath
	if path == "" {
		var err error
		if path, err = config.ConfigPath(); err != nil {
			return NewCommandError("config", "path", "could not locate config file", err)
		}
	}

	switch strings.ToLower(p.Subcommand()) {
	case "", "show":
		cfg := env.Config
		if cfg == nil {
			cfg = config.Default()
		}
		if args.JSON {
			return NewJSONResponse("config", cfg).Fprint(env.Stdout)
		}
		return toml.NewEncoder(env.Stdout).Encode(cfg)

	case "path":
		fmt.Fprintln(env.Stdout, path)
		return nil

	case "keys":
		for _, key := range config.Keys() {
			fmt.Fprintln(env.Stdout, key)
		}
		return nil

	case "get":
		key := p.Positional(1)
		if key == "" {
			return ErrMissingArgument("key", "deskmate config get <key>")
		}
		cfg := env.Config
		if cfg == nil {
			cfg = config.Default()
		}
		v, err := cfg.Get(key)
		if err != nil {
			return &UsageError{Reason: err.Error(), Example: "deskmate config keys"}
		}
		fmt.Fprintln(env.Stdout, v)
		return nil

	case "set":
		// Raw args, so negative numbers are not taken for flags
		if len(args.Raw) < 3 {
			return ErrMissingArgument("key and value", "deskmate config set <key> <value>")
		}
		return setConfigValue(env, path, args.Raw[1], strings.Join(args.Raw[2:], " "), args.Quiet)
	}

	return &UsageError{
		Reason:  "unknown config subcommand: " + p.Subcommand(),
		Example: "deskmate config [show|get|set|keys|path]",
	}
}

// setConfigValue edits one key in the file at path. Environment overrides
// are not written back.
func setConfigValue(env *Env, path, key, value string, quiet bool) error {
	cfg, err := config.ReadFile(path)
	if err != nil {
		return err
	}
	if err := cfg.Set(key, value); err != nil {
		return &UsageError{Reason: err.Error(), Example: "deskmate config keys"}
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := config.SaveTOML(cfg, path); err != nil {
		return NewCommandError("config", "set", "could not write "+path, err)
	}
	if !quiet {
		fmt.Fprintf(env.Stdout, "%s %s = %s\n", SuccessStyle.Render("Set"), key, value)
	}
	return nil
}
