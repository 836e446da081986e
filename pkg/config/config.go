// Package config holds the pass-configuration flag set spec §6 describes:
// the set of optimization/dump toggles the CLI and an optional eddic.yaml
// project file both populate, with CLI flags taking precedence (except
// fparameter-allocation, where a value in the file always applies).
package config

import (
	"fmt"
	"os"

	"github.com/raymyers/ralph-cc/pkg/platform"
	"gopkg.in/yaml.v3"
)

// Flags is the full set of runtime configuration recognized by the pipeline
// (spec §6 "Pass configuration"). Field names match the YAML keys via the
// yaml struct tags; cobra flags bind to the same fields by pointer.
type Flags struct {
	OptimizeAll     bool `yaml:"optimize-all"`
	OptimizeStrings bool `yaml:"optimize-strings"`
	OptimizeUnused  bool `yaml:"optimize-unused"`

	DumpMTACBefore bool `yaml:"mtac"`
	DumpMTACAfter  bool `yaml:"mtac-opt"`
	MTACOnly       bool `yaml:"mtac-only"`
	DumpLTAC       bool `yaml:"dltac"`

	// ParameterAllocation allocates the first eligible parameters to
	// registers; on by default per spec §6.
	ParameterAllocation bool `yaml:"fparameter-allocation"`

	// TargetName is "32", "64", or empty for auto-detect.
	TargetName string `yaml:"target"`
}

// Default returns the flag set's documented defaults (spec §6: everything
// off except fparameter-allocation, target auto-detected).
func Default() *Flags {
	return &Flags{ParameterAllocation: true}
}

// fileFlags mirrors Flags for YAML decoding, except ParameterAllocation is a
// *bool: Default() sets that field's effective default to true, so a plain
// bool zero value can't tell "absent from the file" apart from "file says
// false" the way every other field's false-is-default zero value can.
type fileFlags struct {
	OptimizeAll     bool `yaml:"optimize-all"`
	OptimizeStrings bool `yaml:"optimize-strings"`
	OptimizeUnused  bool `yaml:"optimize-unused"`

	DumpMTACBefore bool `yaml:"mtac"`
	DumpMTACAfter  bool `yaml:"mtac-opt"`
	MTACOnly       bool `yaml:"mtac-only"`
	DumpLTAC       bool `yaml:"dltac"`

	ParameterAllocation *bool `yaml:"fparameter-allocation"`

	TargetName string `yaml:"target"`
}

// Load reads an eddic.yaml project file at path and merges it under f,
// leaving any field f already set (non-zero) untouched — CLI flags take
// precedence over the file, per spec.md's AMBIENT STACK note. The one
// exception is ParameterAllocation: when the file sets it, the file's value
// replaces f's, whatever f held before. A missing
// file is not an error; callers that want to require one should stat first.
func Load(path string, f *Flags) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("config: reading %s: %w", path, err)
	}
	var fromFile fileFlags
	if err := yaml.Unmarshal(data, &fromFile); err != nil {
		return fmt.Errorf("config: parsing %s: %w", path, err)
	}
	mergeDefaults(f, &fromFile)
	return nil
}

// mergeDefaults copies every field set in file into dst, but only where dst
// still holds its zero value — this is how CLI flags (applied to dst first)
// win over the project file. ParameterAllocation is the exception: it is
// copied whenever the file sets it, since its default is on and a plain bool
// cannot tell "left at the default" from "set on the command line".
func mergeDefaults(dst *Flags, file *fileFlags) {
	if !dst.OptimizeAll {
		dst.OptimizeAll = file.OptimizeAll
	}
	if !dst.OptimizeStrings {
		dst.OptimizeStrings = file.OptimizeStrings
	}
	if !dst.OptimizeUnused {
		dst.OptimizeUnused = file.OptimizeUnused
	}
	if !dst.DumpMTACBefore {
		dst.DumpMTACBefore = file.DumpMTACBefore
	}
	if !dst.DumpMTACAfter {
		dst.DumpMTACAfter = file.DumpMTACAfter
	}
	if !dst.MTACOnly {
		dst.MTACOnly = file.MTACOnly
	}
	if !dst.DumpLTAC {
		dst.DumpLTAC = file.DumpLTAC
	}
	if file.ParameterAllocation != nil {
		dst.ParameterAllocation = *file.ParameterAllocation
	}
	if dst.TargetName == "" {
		dst.TargetName = file.TargetName
	}
}

// Target resolves TargetName to a platform.Target, defaulting to X86_64
// when unset (auto-detect, approximated here by always preferring the
// 64-bit descriptor since the middle-end itself is architecture-neutral).
func (f *Flags) Target() platform.Target {
	switch f.TargetName {
	case "32":
		return platform.X86
	case "64":
		return platform.X86_64
	default:
		return platform.X86_64
	}
}

// EnableAllOptimizations reports whether every optimization pass should run
// regardless of its individual group flag.
func (f *Flags) EnableAllOptimizations() bool { return f.OptimizeAll }
