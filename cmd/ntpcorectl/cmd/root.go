/*
Copyright (c) Facebook, Inc. and its affiliates.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package cmd implements ntpcorectl, a read-only diagnostic CLI against a
// running ntpcored's stats HTTP endpoint, in the shape of ptpcheck's
// cmd/root.go (RootCmd exported, ConfigureVerbosity helper, persistent
// verbose flag).
package cmd

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// RootCmd is ntpcorectl's main entry point.
var RootCmd = &cobra.Command{
	Use:   "ntpcorectl",
	Short: "Status and diagnostics for ntpcored",
}

var rootVerboseFlag bool
var rootAddrFlag string

const rootAddrFlagDesc = "Address of the ntpcored stats endpoint, e.g. http://localhost:4269"

func init() {
	RootCmd.PersistentFlags().BoolVarP(&rootVerboseFlag, "verbose", "v", false, "verbose output")
	RootCmd.PersistentFlags().StringVarP(&rootAddrFlag, "addr", "a", "http://localhost:4269", rootAddrFlagDesc)
}

// ConfigureVerbosity sets log verbosity from the parsed persistent flags.
func ConfigureVerbosity() {
	log.SetLevel(log.InfoLevel)
	if rootVerboseFlag {
		log.SetLevel(log.DebugLevel)
	}
}

// Execute is ntpcorectl's main entry point.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
