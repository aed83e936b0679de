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

package config

import (
	"fmt"
	"os"
	"path"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/quarrylang/quarry/internal/funcutil"
)

var (
	// The global config file
	configFile string
)

// SetGlobalConfig sets the global config filename
func SetGlobalConfig(filename string) {
	configFile = filename
}

// LoadGlobal loads the config file that has been set by SetGlobalConfig
func LoadGlobal() (*Config, error) {
	return Load(configFile)
}

// Config controls which analyses run and how their results are reported.
// If some field is not defined in the config file, it will be empty/zero in
// the struct. Private fields are not populated from a yaml file, but computed
// after initialization.
type Config struct {
	Options `yaml:",inline"`

	sourceFile string

	// if the FuncFilter is specified
	funcFilterRegex *regexp.Regexp

	// Analyses lists the analyses to run: "deadcode", "constprop",
	// "liveness". An empty list runs all of them.
	Analyses []string `yaml:"analyses"`
}

// Options are the scalar settings shared by all analyses.
type Options struct {
	// FuncFilter restricts reporting to the functions whose name matches the
	// regex. An empty filter matches every function.
	FuncFilter string `yaml:"func-filter"`

	// ReportsDir is the directory where reports are written when ReportResults
	// is set. If empty, a temporary directory is created next to the config
	// file.
	ReportsDir string `yaml:"reports-dir"`

	// ReportResults controls whether analysis results are written to files in
	// ReportsDir in addition to being logged.
	ReportResults bool `yaml:"report-results"`

	// MaxVisits bounds the number of program point visitations of the solver.
	// Default is -1. If provided MaxVisits is <= 0, then it is ignored and the
	// solver runs to fixpoint.
	MaxVisits int `yaml:"max-visits"`

	// Loglevel controls the verbosity of the tool
	LogLevel int `yaml:"log-level"`

	// Suppress warnings
	SilenceWarn bool `yaml:"silence-warn"`
}

// NewDefault returns an empty default config.
func NewDefault() *Config {
	return &Config{
		sourceFile: "",
		Analyses:   nil,
		Options: Options{
			FuncFilter:    "",
			ReportsDir:    "",
			ReportResults: false,
			MaxVisits:     -1,
			LogLevel:      int(InfoLevel),
			SilenceWarn:   false,
		},
	}
}

// Load reads a configuration from a file
func Load(filename string) (*Config, error) {
	cfg := NewDefault()
	b, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("could not read config file: %w", err)
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, fmt.Errorf("could not unmarshal config file: %w", err)
	}

	cfg.sourceFile = filename

	if cfg.ReportResults {
		if err := setReportsDir(cfg, filename); err != nil {
			return nil, err
		}
	}

	// If logLevel has not been specified (i.e. it is 0) set the default to Info
	if cfg.LogLevel == 0 {
		cfg.LogLevel = int(InfoLevel)
	}

	if cfg.MaxVisits == 0 {
		cfg.MaxVisits = -1
	}

	known := []string{"deadcode", "constprop", "liveness"}
	for _, name := range cfg.Analyses {
		if !funcutil.Contains(known, name) {
			return nil, fmt.Errorf("unknown analysis %q in config file", name)
		}
	}

	if cfg.FuncFilter != "" {
		r, err := regexp.Compile(cfg.FuncFilter)
		if err == nil {
			cfg.funcFilterRegex = r
		}
	}

	return cfg, nil
}

func setReportsDir(c *Config, filename string) error {
	if c.ReportsDir == "" {
		tmpdir, err := os.MkdirTemp(path.Dir(filename), "*-report")
		if err != nil {
			return fmt.Errorf("could not create temp dir for reports")
		}
		c.ReportsDir = tmpdir
		return nil
	}
	err := os.Mkdir(c.ReportsDir, 0750)
	if err != nil && !os.IsExist(err) {
		return fmt.Errorf("could not create directory %s", c.ReportsDir)
	}
	return nil
}

// RelPath returns filename path relative to the config source file
func (c Config) RelPath(filename string) string {
	return path.Join(path.Dir(c.sourceFile), filename)
}

// RunAnalysis returns true if the named analysis is enabled. An empty analysis
// list in the config enables everything.
func (c Config) RunAnalysis(name string) bool {
	return len(c.Analyses) == 0 || funcutil.Contains(c.Analyses, name)
}

// MatchFuncFilter returns true if the function name matches the function
// filter set in the config file. If no filter has been set, it matches
// anything and returns true. This function safely considers the case where a
// filter has been specified by the user, but it could not be compiled to a
// regex. The safe case is to check whether the filter string is a prefix of
// the function name
func (c Config) MatchFuncFilter(funcname string) bool {
	if c.funcFilterRegex != nil {
		return c.funcFilterRegex.MatchString(funcname)
	} else if c.FuncFilter != "" {
		return strings.HasPrefix(funcname, c.FuncFilter)
	}
	return true
}
