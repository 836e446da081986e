package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/raymyers/ralph-cc/pkg/config"
	"github.com/raymyers/ralph-cc/pkg/platform"
	"github.com/spf13/cobra"
)

var version = "0.1.0"

// ErrNoFrontEnd is returned when eddic is invoked against a source file: this
// binary wires only the middle-end (spec.md §1's explicit scope). Compiling
// a real program means driving pkg/pipeline.Run directly against an
// mtac.Program a front end produced.
var ErrNoFrontEnd = errors.New("no front end wired into this build")

// configPath is the project file config.Load reads; CLI flags win over it,
// except for fparameter-allocation, which the file overrides when it sets it.
var configPath string

// debugFlagNames lists the single-dash, CompCert-style spellings eddic also
// accepts for the dump flags, normalized to double-dash before cobra parses
// them (mirrors the teacher's own normalizeFlags for -dparse/-dclight/...).
var debugFlagNames = []string{"dmtac", "dmtac-opt", "dltac"}

func main() {
	os.Exit(run())
}

func run() int {
	rootCmd := newRootCmd(os.Stdout, os.Stderr)
	rootCmd.SetArgs(normalizeFlags(os.Args[1:]))
	if err := rootCmd.Execute(); err != nil {
		return 1
	}
	return 0
}

// normalizeFlags rewrites e.g. -dmtac to --dmtac so pflag accepts it.
func normalizeFlags(args []string) []string {
	out := make([]string, len(args))
	for i, arg := range args {
		out[i] = arg
		for _, name := range debugFlagNames {
			if arg == "-"+name {
				out[i] = "--" + name
				break
			}
		}
	}
	return out
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	flags := config.Default()

	rootCmd := &cobra.Command{
		Use:   "eddic [file]",
		Short: "eddic is the EDDI compiler's middle-end and pass driver",
		Long: `eddic drives the EDDI middle-end: MTAC optimization, MTAC->LTAC
lowering, register allocation, and the LTAC peephole optimizer. It has no
lexer, parser, or code generator of its own (spec.md §1); those are external
collaborators that hand it an already-built mtac.Program and consume its
LTAC output.`,
		Version:       version,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.Load(configPath, flags); err != nil {
				fmt.Fprintf(errOut, "eddic: %v\n", err)
				return err
			}

			if len(args) == 0 {
				return cmd.Help()
			}
			filename := args[0]

			desc := platform.Descriptors[flags.Target()]
			fmt.Fprintf(out, "eddic: resolved target %s (%d caller-saved, %d callee-saved)\n",
				flags.Target(), len(desc.CallerSaved), len(desc.CalleeSaved))
			fmt.Fprintf(errOut, "eddic: %s: %v\n", filename, ErrNoFrontEnd)
			return ErrNoFrontEnd
		},
	}
	rootCmd.SetOut(out)
	rootCmd.SetErr(errOut)

	rootCmd.Flags().BoolVar(&flags.OptimizeAll, "optimize-all", flags.OptimizeAll, "enable every optimization pass")
	rootCmd.Flags().BoolVar(&flags.OptimizeStrings, "optimize-strings", flags.OptimizeStrings, "enable string-specific optimizations")
	rootCmd.Flags().BoolVar(&flags.OptimizeUnused, "optimize-unused", flags.OptimizeUnused, "enable unused function/variable elimination")
	rootCmd.Flags().BoolVar(&flags.DumpMTACBefore, "dmtac", flags.DumpMTACBefore, "dump MTAC before optimization")
	rootCmd.Flags().BoolVar(&flags.DumpMTACAfter, "dmtac-opt", flags.DumpMTACAfter, "dump MTAC after optimization")
	rootCmd.Flags().BoolVar(&flags.MTACOnly, "mtac-only", flags.MTACOnly, "stop after MTAC optimization; skip lowering and code generation")
	rootCmd.Flags().BoolVar(&flags.DumpLTAC, "dltac", flags.DumpLTAC, "dump LTAC after register allocation and peephole")
	rootCmd.Flags().BoolVar(&flags.ParameterAllocation, "fparameter-allocation", flags.ParameterAllocation, "allocate the first eligible parameters to registers")
	rootCmd.Flags().StringVar(&flags.TargetName, "target", flags.TargetName, `target word size, "32" or "64" (auto-detect default)`)
	rootCmd.Flags().StringVar(&configPath, "config", "eddic.yaml", "project configuration file")

	return rootCmd
}
