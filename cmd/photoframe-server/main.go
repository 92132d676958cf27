/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"photoframe/internal/backend"
	applog "photoframe/internal/log"
	"photoframe/internal/version"
)

// Order service entrypoint: serves designs and exports per order from Postgres.
func main() {
	args := os.Args
	if len(args) > 1 {
		switch args[1] {
		case "version", "--version", "-v":
			fmt.Println(version.String())
			return
		}
	}

	applog.Init(applog.FromEnv())
	l := applog.WithComponent("server")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := backend.LoadServerConfig()
	l.Info("starting order service", slog.String("version", version.Version), slog.String("addr", cfg.Addr))
	if err := backend.Serve(ctx, cfg); err != nil {
		l.Error("server stopped", slog.Any("err", err))
		os.Exit(1)
	}
}
