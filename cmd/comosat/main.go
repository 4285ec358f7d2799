/*
 * COMOSAT - An SDN Control Plane for Space-Air-Ground Integrated Networks
 *
 * Copyright (C) 2025-2026 SAGIN SDN Project. All rights reserved.
 *
 * This program is free software; you can redistribute it and/or modify
 * it under the terms of the GNU General Public License as published by
 * the Free Software Foundation; either version 2 of the License, or
 * any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License along
 * with this program; if not, write to the Free Software Foundation, Inc.,
 * 51 Franklin Street, Fifth Floor, Boston, MA 02110-1301 USA.
 */

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/sagin-sdn/comosat"
	"github.com/sagin-sdn/comosat/api"
	"github.com/sagin-sdn/comosat/database"
	"github.com/sagin-sdn/comosat/election"
	"github.com/sagin-sdn/comosat/flow"
	"github.com/sagin-sdn/comosat/ldap"
	"github.com/sagin-sdn/comosat/log"
	"github.com/sagin-sdn/comosat/network"
	"github.com/sagin-sdn/comosat/placement"
	"github.com/sagin-sdn/comosat/topology"

	"github.com/fsnotify/fsnotify"
	"github.com/op/go-logging"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const (
	programName     = "comosat"
	programVersion  = comosat.Version
	defaultLogLevel = logging.INFO
)

var (
	logger        = logging.MustGetLogger("main")
	loggerLeveled logging.LeveledBackend

	showVersion       = flag.Bool("version", false, "show program version and exit")
	defaultConfigFile = flag.String("config", fmt.Sprintf("/usr/local/etc/%v.yaml", programName), "absolute path of the configuration file")
)

func main() {
	runtime.GOMAXPROCS(runtime.NumCPU())
	flag.Parse()
	if *showVersion {
		fmt.Printf("Version: %v\n", programVersion)
		os.Exit(0)
	}

	initConfig()
	initLog()

	scenario, err := placement.LoadScenario(viper.GetString("scenario.path"))
	if err != nil {
		logger.Fatalf("failed to load the scenario: %v", err)
	}
	logger.Infof("loaded a scenario: nodes=%v, slots=%v", len(scenario.Nodes()), scenario.Slots())

	ctx, cancel := context.WithCancel(context.Background())

	var observer Observer = alwaysMaster{}
	var recorder database.Recorder
	if viper.GetBool("mysql.enabled") {
		db, err := database.NewMySQL()
		if err != nil {
			logger.Fatalf("failed to init MySQL database: %v", err)
		}
		observer = initElectionObserver(ctx, db)
		recorder = db
	}

	channel := newFabric(viper.GetFloat64("fabric.failure_rate"))
	coordinator := network.NewCoordinator(network.Config{
		Store:    placement.NewStore(),
		Compiler: flow.NewCompiler(topology.FromLinks(scenario.Links())),
		Channel:  channel,
		Workers:  viper.GetInt("default.workers"),
	})
	defer coordinator.Close()

	if viper.GetBool("fabric.enabled") {
		connectFabric(ctx, coordinator, scenario)
	}

	driver := newSlotDriver(coordinator, scenario, recorder)
	initAPIServer(observer, driver, recorder)
	initSignalHandler(coordinator, channel, cancel)

	driver.run(ctx, getScenarioPeriod(), observer)
	// The scenario finished; keep serving the API until a signal arrives.
	<-ctx.Done()
}

func initConfig() {
	viper.SetConfigFile(*defaultConfigFile)
	// Read the config file.
	if err := viper.ReadInConfig(); err != nil {
		logger.Fatalf("failed to read the config file: %v", err)
	}
	// Watching and re-reading config file whenever it changes.
	viper.OnConfigChange(func(e fsnotify.Event) {
		// Ignore all the fsnotify operations except WRITE to avoid reading empty config.
		if e.Op != fsnotify.Write {
			return
		}
		logger.Infof("config file changed: %v", e.Name)
		if loggerLeveled != nil {
			// Set log level for all modules
			loggerLeveled.SetLevel(getLogLevel(), "")
		}
	})
	viper.WatchConfig()

	if err := validateConfig(); err != nil {
		logger.Fatalf("invalid configuration: %v", err)
	}
}

func validateConfig() error {
	if len(viper.GetString("scenario.path")) == 0 {
		return errors.New("invalid scenario.path")
	}
	if period := viper.GetInt("scenario.period"); period <= 0 {
		return errors.New("invalid scenario.period")
	}
	if port := viper.GetInt("rest.port"); port <= 0 || port > 0xFFFF {
		return errors.New("invalid rest.port")
	}
	if len(viper.GetString("log.driver")) == 0 {
		return errors.New("invalid log.driver")
	}
	if rate := viper.GetFloat64("fabric.failure_rate"); rate < 0 || rate >= 1 {
		return errors.New("invalid fabric.failure_rate")
	}

	return nil
}

func getScenarioPeriod() time.Duration {
	return time.Duration(viper.GetInt("scenario.period")) * time.Second
}

func initLog() {
	logDriver := viper.GetString("log.driver")

	var err error
	var backend logging.Backend
	switch strings.ToLower(logDriver) {
	case "stderr":
		backend = logging.NewLogBackend(os.Stderr, "", 0)
		backend = logging.NewBackendFormatter(backend, logging.MustStringFormatter(`%{time} [%{pid}] %{level}: %{shortpkg}.%{longfunc}: %{message}`))
	case "syslog":
		backend, err = log.NewSyslog(programName)
		if err != nil {
			logger.Fatalf("failed to init log: %v", err)
		}
		backend = logging.NewBackendFormatter(backend, logging.MustStringFormatter(`%{level}: %{shortpkg}.%{longfunc}: %{message}`))
	default:
		logger.Fatalf("unsupported log driver: %v", logDriver)
	}

	loggerLeveled = logging.AddModuleLevel(backend)
	// Set log level for all modules
	loggerLeveled.SetLevel(getLogLevel(), "")
	logging.SetBackend(loggerLeveled)
}

func getLogLevel() logging.Level {
	level := strings.ToUpper(viper.GetString("log.level"))
	ret, err := logging.LogLevel(level)
	if err != nil {
		logger.Errorf("invalid log.level=%v, defaulting to %v..", level, defaultLogLevel)
		return defaultLogLevel
	}

	return ret
}

func initElectionObserver(ctx context.Context, db *database.MySQL) *election.Observer {
	observer := election.New(db)
	go func() {
		if err := observer.Run(ctx); err != nil {
			logger.Fatalf("failed to run the election observer: %v", err)
		}
		logger.Debugf("election observer terminated")
	}()

	return observer
}

// connectFabric brings up an emulated session for every scenario node.
func connectFabric(ctx context.Context, coordinator *network.Coordinator, scenario *placement.Scenario) {
	for _, n := range scenario.Nodes() {
		if err := coordinator.SwitchConnected(ctx, n.ID); err != nil {
			logger.Errorf("failed to connect the emulated switch %v (%v): %v", n.ID, n.Name, err)
			continue
		}
		logger.Infof("emulated switch %v (%v, %v) is connected", n.ID, n.Name, n.Type)
	}
}

func initAPIServer(observer Observer, driver *slotDriver, recorder database.Recorder) {
	go func() {
		s := &api.Server{}
		s.Port = uint16(viper.GetInt("rest.port"))
		if viper.GetBool("rest.tls") == true {
			s.TLS.Cert = viper.GetString("rest.cert_file")
			s.TLS.Key = viper.GetString("rest.key_file")
		}
		s.Observer = observer
		s.Controller = driver
		s.Recorder = recorder
		if viper.GetBool("auth.enabled") {
			s.Auth = ldap.New(viper.Sub("ldap"), 5)
		}

		if err := s.Serve(); err != nil {
			logger.Fatalf("failed to run the API server: %v", err)
		}
	}()
}

func initSignalHandler(coordinator *network.Coordinator, channel *fabric, cancel context.CancelFunc) {
	go func() {
		c := make(chan os.Signal, 5)
		// All incoming signals will be transferred to the channel
		signal.Notify(c)

		// Infinte loop.
		for {
			s := <-c
			if s == syscall.SIGTERM || s == syscall.SIGINT {
				// Graceful shutdown
				logger.Warning("Shutting down...")
				cancel()
				// Timeout for cancelation
				time.Sleep(5 * time.Second)
				os.Exit(0)
			} else if s == syscall.SIGHUP {
				fmt.Println("* Coordinator status:")
				fmt.Println(coordinator.String())
				fmt.Println("* Fabric status:")
				fmt.Println(channel.String())
			}
		}
	}()
}
