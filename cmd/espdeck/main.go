/*
 * Copyright 2025 ESPDeck Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/espdeck/espdeck/pkg/config"
	"github.com/espdeck/espdeck/pkg/dashboard"
	"github.com/espdeck/espdeck/pkg/version"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	configPath := flag.String("config", "/etc/espdeck/espdeck.json", "Path to dashboard config file")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println("espdeck " + version.GetFullVersion())
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var cfg dashboard.Config

	loader := config.NewConfig(nil)
	if err := loader.LoadAndValidate(ctx, *configPath, &cfg); err != nil {
		return fmt.Errorf("load config %s: %w", *configPath, err)
	}

	app, err := dashboard.New(ctx, &cfg)
	if err != nil {
		return err
	}

	defer func() {
		if err := app.Close(); err != nil {
			log.Printf("Error closing dashboard: %v", err)
		}
	}()

	return app.Run(ctx)
}
