// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// config_cmd.go - Configuration inspection and editing for the dojoquest CLI.
package cli

import (
	"fmt"

	"github.com/jeranaias/dojoquest/internal/config"
)

// HandleConfig shows or changes configuration.
//
//	dojoquest config             Show current configuration
//	dojoquest config key VALUE   Save the API key
//	dojoquest config model NAME  Set the chat model
func HandleConfig(args Args) error {
	switch args.Subcommand {
	case "":
		return showConfig()
	case "key":
		if args.Value == "" {
			return fmt.Errorf("usage: dojoquest config key <api-key>")
		}
		return updateConfig(func(cfg *config.Config) { cfg.API.Key = args.Value },
			"API key saved")
	case "model":
		if args.Value == "" {
			return fmt.Errorf("usage: dojoquest config model <name>")
		}
		return updateConfig(func(cfg *config.Config) { cfg.API.Model = args.Value },
			fmt.Sprintf("model set to %s", args.Value))
	default:
		return fmt.Errorf("unknown config subcommand %q (try: key, model)", args.Subcommand)
	}
}

func showConfig() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	path, _ := config.ConfigPath()

	fmt.Println(titleStyle.Render("DojoQuest - Configuration"))
	fmt.Println()
	fmt.Printf("%s %s\n", labelStyle.Render("File"), dimStyle.Render(path))
	fmt.Printf("%s %s\n", labelStyle.Render("API URL"), valueStyle.Render(cfg.API.URL))
	fmt.Printf("%s %s\n", labelStyle.Render("Model"), valueStyle.Render(cfg.API.Model))
	fmt.Printf("%s %s\n", labelStyle.Render("Temperature"),
		valueStyle.Render(fmt.Sprintf("%.1f", cfg.API.Temperature)))

	key := "not set"
	if cfg.API.Key != "" {
		key = "configured"
	}
	fmt.Printf("%s %s\n", labelStyle.Render("API key"), dimStyle.Render(key))

	sync := "disabled"
	if cfg.Sync.Enabled {
		sync = fmt.Sprintf("%s (debounce %dms)", cfg.Sync.URL, cfg.Sync.DebounceMs)
	}
	fmt.Printf("%s %s\n", labelStyle.Render("Sync"), valueStyle.Render(sync))
	fmt.Printf("%s %s\n", labelStyle.Render("Server port"),
		valueStyle.Render(fmt.Sprintf("%d", cfg.Server.Port)))
	return nil
}

func updateConfig(change func(*config.Config), confirmation string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	change(cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := config.Save(cfg); err != nil {
		return err
	}
	fmt.Println(successStyle.Render("✓ ") + confirmation)
	return nil
}
