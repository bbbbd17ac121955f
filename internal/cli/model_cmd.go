// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jeranaias/deskmate/internal/modelconfig"
)

const modelUsage = "deskmate model set --api-key KEY [--base-url URL] [--model NAME]"

// HandleModel manages the active model configuration record.
func HandleModel(ctx context.Context, env *Env, args Args) error {
	if env.Models == nil {
		return NewCommandError("model", "open", "model store unavailable", nil)
	}

	p := NewArgParser(args.Raw)
	switch strings.ToLower(p.Subcommand()) {
	case "", "show":
		return showModel(ctx, env, args)
	case "set":
		return setModel(ctx, env, p, args)
	case "clear", "reset":
		if err := env.Models.Clear(ctx); err != nil {
			return NewCommandError("model", "clear", "could not remove configuration", err)
		}
		if !args.Quiet {
			fmt.Fprintln(env.Stdout, SuccessStyle.Render("Model configuration cleared"))
		}
		return nil
	}
	return &UsageError{Reason: "unknown model subcommand: " + p.Subcommand(), Example: "deskmate model [show|set|clear]"}
}

func showModel(ctx context.Context, env *Env, args Args) error {
	cfg, err := env.Models.Resolver().Resolve(ctx)
	configured := err == nil
	if err != nil && !errors.Is(err, modelconfig.ErrConfigMissing) {
		return NewCommandError("model", "show", "could not read configuration", err)
	}

	if args.JSON {
		data := ModelData{Configured: configured}
		if configured {
			data.APIKey = cfg.MaskedKey()
			data.BaseURL = cfg.BaseURL
			data.Model = cfg.Model
		}
		return NewJSONResponse("model", data).Fprint(env.Stdout)
	}

	if !configured {
		fmt.Fprintln(env.Stdout, WarningStyle.Render("No model configured."))
		fmt.Fprintln(env.Stdout, DimStyle.Render("Run: "+modelUsage))
		return nil
	}

	fmt.Fprintln(env.Stdout, TitleStyle.Render("Active model"))
	fmt.Fprintln(env.Stdout, RenderField("Model", cfg.Model))
	fmt.Fprintln(env.Stdout, RenderField("API key", cfg.MaskedKey()))
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "(provider default)"
	}
	fmt.Fprintln(env.Stdout, RenderField("Base URL", baseURL))
	return nil
}

func setModel(ctx context.Context, env *Env, p *ArgParser, args Args) error {
	cfg := modelconfig.ModelConfig{
		APIKey:  strings.TrimSpace(p.Flag("api-key")),
		BaseURL: strings.TrimSpace(p.Flag("base-url")),
		Model:   strings.TrimSpace(p.FlagOrDefault("model", modelconfig.DefaultModel)),
	}
	if cfg.APIKey == "" {
		return ErrMissingArgument("--api-key", modelUsage)
	}

	if err := env.Models.Save(ctx, cfg); err != nil {
		return NewCommandError("model", "set", "could not save configuration", err)
	}
	if !args.Quiet {
		fmt.Fprintf(env.Stdout, "%s %s (key %s)\n",
			SuccessStyle.Render("Saved"), cfg.Model, cfg.MaskedKey())
	}
	return nil
}
