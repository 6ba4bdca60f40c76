// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// serve.go - Local backend command for the dojoquest CLI.
package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jeranaias/dojoquest/internal/config"
	"github.com/jeranaias/dojoquest/internal/server"
)

// HandleServe runs the local backend until interrupted.
func HandleServe(args Args) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	port := cfg.Server.Port
	if args.Port != 0 {
		port = args.Port
	}
	dataDir, err := cfg.DataDir()
	if err != nil {
		return err
	}

	srv := server.NewServer(port, dataDir)
	if cfg.Server.WebRoot != "" {
		srv = srv.WithWebRoot(cfg.Server.WebRoot)
	}

	if !args.Quiet {
		fmt.Println(titleStyle.Render("DojoQuest - Backend"))
		fmt.Printf("%s %s\n", labelStyle.Render("Listening"),
			valueStyle.Render(fmt.Sprintf("http://127.0.0.1:%d", srv.Port())))
		fmt.Printf("%s %s\n", labelStyle.Render("Snapshots"), valueStyle.Render(dataDir))
		if cfg.Server.WebRoot != "" {
			fmt.Printf("%s %s\n", labelStyle.Render("Web root"), valueStyle.Render(cfg.Server.WebRoot))
		}
		fmt.Println(dimStyle.Render("Ctrl+C to stop."))
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-sigChan:
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	}
}
