// Package main implements armsim, a functional ARM/Thumb simulator.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/retroenv/retrogolib/buildinfo"
	"github.com/retroenv/retrogolib/log"

	"github.com/aravk2005/ARMsimulator/asm"
	"github.com/aravk2005/ARMsimulator/cache"
	"github.com/aravk2005/ARMsimulator/config"
	"github.com/aravk2005/ARMsimulator/emu"
	"github.com/aravk2005/ARMsimulator/insts"
	"github.com/aravk2005/ARMsimulator/loader"
	"github.com/aravk2005/ARMsimulator/report"
	"github.com/aravk2005/ARMsimulator/timing/latency"
)

var (
	version = "0.1.0"
	commit  = ""
	date    = ""
)

// Exit codes.
const (
	exitOK    = 0
	exitError = 1
	exitFault = 2
)

type optionFlags struct {
	input      string
	configPath string

	maxCycles uint64
	armBytes  int
	dump      int

	trace  bool
	debug  bool
	quiet  bool
	cache  bool
	timing bool
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout))
}

// run simulates the program named in args and returns the exit code.
func run(args []string, stdout io.Writer) int {
	options, flags, err := readArguments(args)
	if err != nil {
		fmt.Fprintf(stdout, "usage: armsim [options] <program.bin|program.s>\n\n")
		flags.SetOutput(stdout)
		flags.PrintDefaults()
		return exitError
	}

	cfg, err := buildConfig(options, flags)
	if err != nil {
		fmt.Fprintln(stdout, fmt.Errorf("configuration failed: %w", err))
		return exitError
	}

	logger := cfg.Logger()

	if !options.quiet {
		printBanner(stdout)
	}

	img, err := loadImage(options.input, cfg, logger)
	if err != nil {
		logger.Error("Loading program failed", log.String("file", options.input), log.Err(err))
		return exitError
	}

	list, err := img.Decode(insts.NewDecoder())
	if err != nil {
		logger.Error("Decoding program failed", log.String("file", options.input), log.Err(err))
		return exitError
	}

	prog := emu.NewProgram(list)
	if !options.quiet {
		_ = report.WriteListing(stdout, prog.Instructions())
		fmt.Fprintln(stdout)
	}

	opts := cfg.EmulatorOptions(logger)
	if cfg.Trace {
		opts = append(opts, emu.WithTracer(func(cycle uint64, pc uint32, inst insts.Instruction, _ *emu.RegFile) {
			_ = report.WriteTrace(stdout, cycle, pc, inst)
		}))
	}

	emulator := emu.NewEmulator(opts...)
	result := emulator.Run(prog)

	if err := writeResults(stdout, emulator, result, cfg); err != nil {
		logger.Error("Writing results failed", log.Err(err))
		return exitError
	}

	if result.Reason == emu.HaltMemoryFault {
		return exitFault
	}
	return exitOK
}

func readArguments(args []string) (optionFlags, *flag.FlagSet, error) {
	flags := flag.NewFlagSet("armsim", flag.ContinueOnError)
	flags.SetOutput(io.Discard)
	options := optionFlags{}

	flags.StringVar(&options.configPath, "config", "", "path to a JSON simulation config")
	flags.Uint64Var(&options.maxCycles, "max-cycles", emu.DefaultMaxCycles, "cycle budget of the run")
	flags.IntVar(&options.armBytes, "arm-bytes", config.AutoARMBytes, "length of the leading ARM region, -1 to detect")
	flags.IntVar(&options.dump, "dump", 0, "number of leading memory bytes to dump after the run")
	flags.BoolVar(&options.trace, "trace", false, "print every executed instruction")
	flags.BoolVar(&options.debug, "debug", false, "enable debug logging")
	flags.BoolVar(&options.quiet, "q", false, "only print the final state")
	flags.BoolVar(&options.cache, "cache", false, "attach the default data cache model")
	flags.BoolVar(&options.timing, "timing", false, "estimate execution time with the default latency table")

	if err := flags.Parse(args); err != nil {
		return options, flags, err
	}
	if flags.NArg() != 1 {
		return options, flags, errors.New("missing program file")
	}
	options.input = flags.Arg(0)

	return options, flags, nil
}

// buildConfig loads the config file, if any, and applies the flags the
// user set explicitly on top of it.
func buildConfig(options optionFlags, flags *flag.FlagSet) (*config.SimConfig, error) {
	cfg := config.DefaultConfig()
	if options.configPath != "" {
		var err error
		cfg, err = config.LoadConfig(options.configPath)
		if err != nil {
			return nil, err
		}
	}

	flags.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "max-cycles":
			cfg.MaxCycles = options.maxCycles
		case "arm-bytes":
			cfg.ARMBytes = options.armBytes
		case "dump":
			cfg.DumpMemory = options.dump
		case "trace":
			cfg.Trace = options.trace
		case "debug":
			if options.debug {
				cfg.LogLevel = config.LevelDebug
			}
		case "q":
			if options.quiet && cfg.LogLevel != config.LevelDebug {
				cfg.LogLevel = config.LevelError
			}
		case "cache":
			if options.cache && cfg.Cache == nil {
				cacheConfig := cache.DefaultConfig()
				cfg.Cache = &cacheConfig
			}
		case "timing":
			if options.timing && cfg.Timing == nil {
				cfg.Timing = latency.DefaultTimingConfig()
			}
		}
	})

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadImage reads a raw binary, or assembles a .s source file.
func loadImage(path string, cfg *config.SimConfig, logger *log.Logger) (*loader.Image, error) {
	if !strings.EqualFold(filepath.Ext(path), ".s") {
		return loader.Load(path, cfg.ARMBytes)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening file '%s': %w", path, err)
	}
	defer func() { _ = file.Close() }()

	assembler := asm.NewAssembler()
	assembler.Logger = logger

	out, err := assembler.Assemble(file)
	if err != nil {
		return nil, fmt.Errorf("assembling: %w", err)
	}

	return loader.New(out.Binary, out.ARMBytes)
}

func writeResults(w io.Writer, emulator *emu.Emulator, result emu.RunResult, cfg *config.SimConfig) error {
	if err := report.WriteState(w, emulator.RegFile()); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w); err != nil {
		return err
	}
	if err := report.WriteSummary(w, result, emulator.DataCache()); err != nil {
		return err
	}
	if cfg.DumpMemory > 0 {
		if _, err := fmt.Fprintln(w); err != nil {
			return err
		}
		return report.WriteMemory(w, emulator.Memory(), cfg.DumpMemory)
	}
	return nil
}

func printBanner(w io.Writer) {
	fmt.Fprintln(w, "[----------------------------------]")
	fmt.Fprintln(w, "[ armsim - ARM/Thumb CPU simulator ]")
	fmt.Fprintf(w, "[----------------------------------]\n\n")
	fmt.Fprintf(w, "version: %s\n\n", buildinfo.Version(version, commit, date))
}
