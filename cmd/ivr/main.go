// Copyright 2025 VeloxVOIP.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// 	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/livekit/protocol/logger"

	"github.com/veloxvoip/ari-ivr/pkg/ari"
	"github.com/veloxvoip/ari-ivr/pkg/config"
	"github.com/veloxvoip/ari-ivr/pkg/ivr"
	"github.com/veloxvoip/ari-ivr/pkg/service"
	"github.com/veloxvoip/ari-ivr/pkg/stats"
	"github.com/veloxvoip/ari-ivr/version"
)

func main() {
	cmd := &cli.Command{
		Name:        "ivr",
		Usage:       "IVR service",
		Version:     version.Version,
		Description: "DTMF menu and routing for Asterisk ARI",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Usage:   "IVR yaml config file",
				Sources: cli.EnvVars("IVR_CONFIG_FILE"),
			},
			&cli.StringFlag{
				Name:    "config-body",
				Usage:   "IVR yaml config body",
				Sources: cli.EnvVars("IVR_CONFIG_BODY"),
			},
		},
		Action: runService,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Println(err)
	}
}

func runService(ctx context.Context, c *cli.Command) error {
	configFile := c.String("config")
	conf, err := getConfig(c)
	if err != nil {
		// The service still starts on a bad document, on the built-in
		// minimal policy. Credentials can be fixed by a live reload.
		conf = config.Default()
		if initErr := conf.Init(); initErr != nil {
			return initErr
		}
		logger.GetLogger().Errorw("could not load config, starting with built-in default policy", err)
	}
	log := logger.GetLogger()

	stopChan := make(chan os.Signal, 1)
	signal.Notify(stopChan, syscall.SIGTERM, syscall.SIGQUIT)

	killChan := make(chan os.Signal, 1)
	signal.Notify(killChan, syscall.SIGINT)

	mon, err := stats.NewMonitor(nil)
	if err != nil {
		return err
	}

	store := config.NewStore(configFile, conf)
	store.OnReload(func(*config.Config) {
		mon.ConfigReloaded()
	})
	if configFile != "" {
		if err := store.Watch(); err != nil {
			log.Warnw("config watch unavailable, live reload disabled", err)
		}
	}

	ivrSvc := ivr.NewService(store, ari.NewClient(conf.Asterisk), mon)
	listener := ari.NewListener(conf, ivrSvc)

	svc := service.NewService(conf, log, listener.Close, ivrSvc.ActiveCalls, mon)

	listenerCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go listener.Run(listenerCtx)

	go func() {
		select {
		case sig := <-stopChan:
			log.Infow("exit requested, finishing active calls then shutting down", "signal", sig)
			svc.Stop(false)
		case sig := <-killChan:
			log.Infow("exit requested, stopping all calls and shutting down", "signal", sig)
			svc.Stop(true)
		}
	}()

	err = svc.Run()
	store.Close()
	return err
}

func getConfig(c *cli.Command) (*config.Config, error) {
	configFile := c.String("config")
	configBody := c.String("config-body")
	if configBody == "" {
		if configFile == "" {
			return nil, &config.ConfigError{Reason: "no config file or body provided"}
		}
		content, err := os.ReadFile(configFile)
		if err != nil {
			return nil, &config.ConfigError{Reason: "could not read config file", Err: err}
		}
		configBody = string(content)
	}

	conf, err := config.NewConfig(configBody)
	if err != nil {
		return nil, err
	}
	if err := conf.Init(); err != nil {
		return nil, err
	}
	return conf, nil
}
