/*
 * Copyright 2018 The Trickster Authors
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

package config

import (
	"flag"
	"io"
)

const (
	// Command-line flags
	cfConfig      = "config"
	cfVersion     = "version"
	cfValidate    = "validate-config"
	cfLogLevel    = "log-level"
	cfInstanceID  = "instance-id"
	cfMetricsPort = "metrics-port"
	cfSimulate    = "simulate"
)

// Flags holds the values for whitelisted flags
type Flags struct {
	PrintVersion      bool
	ValidateConfig    bool
	Simulate          bool
	customPath        bool
	MetricsListenPort int
	InstanceID        int
	ConfigPath        string
	LogLevel          string
}

func parseFlags(applicationName string, arguments []string, output io.Writer) (*Flags, error) {
	flags := &Flags{}
	flagSet := flag.NewFlagSet(applicationName, flag.ContinueOnError)
	if output != nil {
		flagSet.SetOutput(output)
	}

	flagSet.BoolVar(&flags.PrintVersion, cfVersion, false,
		"Prints the reelsync version")
	flagSet.BoolVar(&flags.ValidateConfig, cfValidate, false,
		"Validates a reelsync config and exits without starting the daemon")
	flagSet.StringVar(&flags.ConfigPath, cfConfig, "",
		"Path to reelsync Config File")
	flagSet.StringVar(&flags.LogLevel, cfLogLevel, "",
		"Level of Logging to use (debug, info, warn, error)")
	flagSet.IntVar(&flags.InstanceID, cfInstanceID, 0,
		"Instance ID is for running multiple reelsync processes"+
			" from the same config while logging to their own files")
	flagSet.IntVar(&flags.MetricsListenPort, cfMetricsPort, 0,
		"Port that the /metrics endpoint will listen on")
	flagSet.BoolVar(&flags.Simulate, cfSimulate, false,
		"Emits synthetic like and comment events for demonstration")

	if err := flagSet.Parse(arguments); err != nil {
		return nil, err
	}
	if flags.ConfigPath != "" {
		flags.customPath = true
	}
	return flags, nil
}

// loadFlags loads configuration from command line flags.
func (c *Config) loadFlags(flags *Flags) {
	if flags.MetricsListenPort > 0 {
		c.Metrics.ListenPort = flags.MetricsListenPort
	}
	if flags.LogLevel != "" {
		c.Logging.LogLevel = flags.LogLevel
	}
	if flags.InstanceID > 0 {
		c.Main.InstanceID = flags.InstanceID
	}
	if flags.Simulate {
		c.Main.Simulate = true
	}
}
