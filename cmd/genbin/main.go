// Package main implements genbin, which assembles test programs into raw
// mixed ARM/Thumb binaries for armsim.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/retroenv/retrogolib/log"

	"github.com/aravk2005/ARMsimulator/asm"
	"github.com/aravk2005/ARMsimulator/config"
)

// fixture is the built-in mixed test program.
const fixture = `; ARM region
        mov  r0, #4
        add  r0, r1, r2
        sub  r0, r1, r2
        cmp  r0, #4
        and  r0, r1, #4
        orr  r0, r1, #4
        eor  r0, r1, #4
        ldr  r0, [r1]
        str  r0, [r1, #4]
        b    #-8
        bl   #-8
        bx   r1

        .thumb
        movs r3, #4
        adds r0, r4, r1
        subs r0, r2, r1
`

type optionFlags struct {
	input  string
	output string

	debug bool
	quiet bool
}

func main() {
	options, err := readArguments(os.Args[1:])
	if err != nil {
		os.Exit(1)
	}

	logger := config.CreateLogger(options.debug, options.quiet)

	size, err := generate(options, logger)
	if err != nil {
		logger.Error("Generating binary failed", log.Err(err))
		os.Exit(1)
	}

	logger.Info("Wrote binary", log.String("file", options.output), log.Int("bytes", size))
}

func readArguments(args []string) (optionFlags, error) {
	flags := flag.NewFlagSet("genbin", flag.ContinueOnError)
	options := optionFlags{}

	flags.StringVar(&options.output, "o", "test_mixed.bin", "name of the output binary")
	flags.BoolVar(&options.debug, "debug", false, "enable debug logging")
	flags.BoolVar(&options.quiet, "q", false, "perform operations quietly")
	flags.Usage = func() {
		fmt.Fprintf(flags.Output(), "usage: genbin [options] [program.s]\n\n")
		flags.PrintDefaults()
	}

	if err := flags.Parse(args); err != nil {
		return options, err
	}
	if flags.NArg() > 1 {
		flags.Usage()
		return options, fmt.Errorf("too many arguments")
	}
	options.input = flags.Arg(0)

	return options, nil
}

// generate assembles the input, or the built-in fixture, and writes the
// binary. It returns the number of bytes written.
func generate(options optionFlags, logger *log.Logger) (int, error) {
	var source io.Reader = strings.NewReader(fixture)
	if options.input != "" {
		file, err := os.Open(options.input)
		if err != nil {
			return 0, fmt.Errorf("opening file '%s': %w", options.input, err)
		}
		defer func() { _ = file.Close() }()
		source = file
	}

	assembler := asm.NewAssembler()
	assembler.Logger = logger

	out, err := assembler.Assemble(source)
	if err != nil {
		return 0, fmt.Errorf("assembling: %w", err)
	}

	if err := os.WriteFile(options.output, out.Binary, 0644); err != nil {
		return 0, fmt.Errorf("creating file '%s': %w", options.output, err)
	}

	logger.Debug("Assembled program",
		log.Int("arm_bytes", out.ARMBytes),
		log.Int("instructions", len(out.Instructions)))

	return len(out.Binary), nil
}
