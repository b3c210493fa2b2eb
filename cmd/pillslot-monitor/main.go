/*
pillslot-monitor - Monitors load-cell pill slot sensors
Copyright (C) 2026, The Medisense Project

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program. If not, see <http://www.gnu.org/licenses/>.
*/

package main

import (
	"fmt"
	"strings"

	arg "github.com/alexflint/go-arg"
	"github.com/sirupsen/logrus"

	"github.com/medisense/pillslot-monitor/engine"
	"github.com/medisense/pillslot-monitor/identity"
	"github.com/medisense/pillslot-monitor/store"
)

var version = "<not set>"

var log = logrus.New()

type Args struct {
	ConfigFile string `arg:"-c,--config" help:"configuration file" default:"/etc/pillslot/monitor.yaml"`
	LogLevel   string `arg:"-l,--log-level" help:"Set the logging level (debug, info, warn, error)" default:"info"`
}

func (Args) Version() string {
	return version
}

func procArgs() Args {
	args := Args{}
	arg.MustParse(&args)
	return args
}

func setLogLevel(level string) {
	switch level {
	case "debug":
		log.SetLevel(logrus.DebugLevel)
	case "info":
		log.SetLevel(logrus.InfoLevel)
	case "warn":
		log.SetLevel(logrus.WarnLevel)
	case "error":
		log.SetLevel(logrus.ErrorLevel)
	default:
		log.SetLevel(logrus.InfoLevel)
		log.Warn("Unknown log level, defaulting to info")
	}
}

type customFormatter struct{}

func (f *customFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	return []byte(fmt.Sprintf("[%s] %s\n", strings.ToUpper(entry.Level.String()), entry.Message)), nil
}

func main() {
	err := runMain()
	if err != nil {
		log.Fatal(err.Error())
	}
}

func runMain() error {
	log.SetFormatter(new(customFormatter))
	args := procArgs()
	setLogLevel(args.LogLevel)

	log.Info("Running version: ", version)

	config, err := ParseConfig(args.ConfigFile)
	if err != nil {
		return err
	}
	if config.LogLevel != "" {
		setLogLevel(config.LogLevel)
	}

	db, err := store.Open(config.StoreFile)
	if err != nil {
		return err
	}
	defer db.Close()

	resolver := identity.NewResolver()
	pairings, err := db.LoadPairings()
	if err != nil {
		return fmt.Errorf("failed to load pairings: %v", err)
	}
	resolver.Restore(pairings)
	log.Infof("Restored %d pairings", len(pairings))

	eng := engine.New(log, resolver, nil)
	configs, err := db.LoadSlotConfigs()
	if err != nil {
		return fmt.Errorf("failed to load slot configs: %v", err)
	}
	for _, cfg := range configs {
		eng.SetConfig(cfg)
	}
	log.Infof("Restored %d slot configs", len(configs))

	var source notificationSource
	switch config.Source {
	case "serial":
		source, err = newSerialSource(config.SerialPort, config.BaudRate)
	case "dbus":
		source, err = newDbusSource()
	default:
		return fmt.Errorf("unknown notification source '%s'", config.Source)
	}
	if err != nil {
		return err
	}

	if err := startService(eng, resolver, db, source); err != nil {
		return err
	}

	log.Infof("Processing notifications from %s source", config.Source)
	for n := range source.Notifications() {
		res, err := eng.HandleNotification(n.DeviceAddress, n.Data)
		if err != nil {
			log.Debugf("Dropping packet from %s: %v", n.DeviceAddress, err)
			continue
		}
		log.Debugf("Slot %d weight %.1f g", res.SlotID, res.SmoothedGrams)
		if res.Event != nil {
			log.Infof("Event on slot %d: %s %s", res.SlotID, res.Event.Category, res.Event.Detail)
		}
		if res.CommandStatus != "" {
			log.Info("Command feedback: ", res.CommandStatus)
		}
	}

	return nil
}

// notification is one raw telemetry delivery from a device.
type notification struct {
	DeviceAddress string
	Data          []byte
}

// notificationSource delivers raw notification bytes and carries the outbound
// command path back to a device.
type notificationSource interface {
	Notifications() <-chan notification
	SendCommand(deviceAddress string, payload []byte) error
}
