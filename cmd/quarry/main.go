// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"flag"
	"fmt"
	"go/build"
	"os"

	"github.com/quarrylang/quarry/analysis"
	"github.com/quarrylang/quarry/analysis/config"
	"github.com/quarrylang/quarry/analysis/constprop"
	"github.com/quarrylang/quarry/analysis/dataflow"
	"github.com/quarrylang/quarry/analysis/liveness"
	"github.com/quarrylang/quarry/analysis/ssair"
	"github.com/quarrylang/quarry/internal/formatutil"
	"golang.org/x/tools/go/buildutil"
	"golang.org/x/tools/go/ssa"
)

// flags
var (
	configFilename = ""
	mode           = ssa.InstantiateGenerics
	showLoops      = false
)

func init() {
	flag.StringVar(&configFilename, "config", "", "configuration file")
	flag.BoolVar(&showLoops, "loops", false, "report the elementary loops of each live function")
	flag.Var(&mode, "build", ssa.BuilderModeDoc)
	flag.Var((*buildutil.TagsFlag)(&build.Default.BuildTags), "tags", buildutil.TagsFlagDoc)
}

const usage = `Run the sparse dataflow analyses on your Go packages.

Usage:
  quarry package...
  quarry source.go
  quarry source1.go source2.go

prefix with GOOS and/or GOARCH to analyze a different architecture:
  GOOS=windows GOARCH=amd64 quarry agent/agent.go agent/agent_windows.go

Use the -help flag to display the options.

Examples:
% quarry hello.go
`

func main() {
	if err := doMain(); err != nil {
		fmt.Fprintf(os.Stderr, "quarry: %s\n", err)
		os.Exit(1)
	}
}

func doMain() error {
	flag.Parse()

	if len(flag.Args()) == 0 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	var err error
	var cfg *config.Config
	if configFilename == "" {
		cfg = config.NewDefault()
	} else {
		cfg, err = config.Load(configFilename)
		if err != nil {
			return fmt.Errorf("failed to load config %s: %s", configFilename, err)
		}
	}
	logger := config.NewLogGroup(cfg)

	fmt.Fprintf(os.Stderr, formatutil.Faint("Reading sources")+"\n")
	program, err := analysis.LoadProgram(nil, "", mode, flag.Args())
	if err != nil {
		return fmt.Errorf("failed to load program: %s", err)
	}

	fmt.Fprintf(os.Stderr, formatutil.Faint("Analyzing")+"\n")
	m := ssair.BuildProgram(program.Program)

	solver := dataflow.NewSolver(logger, m.Symbols)
	solver.SetMaxVisits(cfg.MaxVisits)
	dataflow.NewDeadCodeAnalysis(solver)
	var consts *constprop.Analysis
	if cfg.RunAnalysis(string(constprop.Kind)) {
		consts = constprop.New(solver)
	}
	var live *liveness.Analysis
	if cfg.RunAnalysis(string(liveness.Kind)) {
		live = liveness.New(solver)
	}
	if err := solver.RunToFixpoint(m.Top); err != nil {
		return fmt.Errorf("analysis failed: %s", err)
	}

	reportResults(cfg, logger, solver, m, consts, live)
	return nil
}
