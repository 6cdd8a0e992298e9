package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ksco/uld/pkg/linker"
	"github.com/ksco/uld/pkg/utils"
)

func main() {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger().
		Level(zerolog.WarnLevel)

	ctx := linker.NewContext(logger)
	remaining := parseArgs(ctx)

	if err := linker.Link(ctx, remaining); err != nil {
		fmt.Fprintf(os.Stderr, "uld: %+v\n", err)
		os.Exit(1)
	}
}

// parseArgs implements the flag table of SPEC_FULL.md §4.9 over os.Args,
// in the hand-rolled style of every CLI driver in the pack: no third-party
// flag library, just paired readArg/readFlag closures over a shrinking
// argument slice.
func parseArgs(ctx *linker.Context) []string {
	args := os.Args[1:]
	var remaining []string
	var arg string
	outputSet := false

	readArg := func(name string) bool {
		long := "--" + name
		short := "-" + name
		for _, opt := range []string{short, long} {
			if len(args) == 0 {
				return false
			}
			if args[0] == opt {
				if len(args) == 1 {
					fatal(fmt.Sprintf("option %s: argument missing", opt))
				}
				arg = args[1]
				args = args[2:]
				return true
			}
			if s, ok := utils.RemovePrefix(args[0], opt+"="); ok {
				arg = s
				args = args[1:]
				return true
			}
		}
		// -lNAME / -LPATH / -oPATH style, no separating space
		if len(name) == 1 && len(args) > 0 && args[0] != "-"+name {
			if s, ok := utils.RemovePrefix(args[0], "-"+name); ok {
				arg = s
				args = args[1:]
				return true
			}
		}
		return false
	}

	readFlag := func(name string) bool {
		if len(args) == 0 {
			return false
		}
		for _, opt := range []string{"-" + name, "--" + name} {
			if args[0] == opt {
				args = args[1:]
				return true
			}
		}
		return false
	}

	for len(args) > 0 {
		switch {
		case readFlag("h"), readFlag("help"):
			fmt.Printf("Usage: %s [options] file...\n", os.Args[0])
			os.Exit(0)
		case readArg("o"), readArg("output"):
			ctx.Arg.Output = arg
			outputSet = true
		case readArg("L"), readArg("library-path"):
			ctx.Arg.LibraryPaths = append(ctx.Arg.LibraryPaths, arg)
		case readArg("l"):
			remaining = append(remaining, "-l"+arg)
		case readFlag("static"):
			// static is the only supported mode
		case readArg("fuse-ld"):
			// accepted, ignored
		case readFlag("nostdlib"):
			// accepted, ignored by the core pipeline
		case readArg("Map"):
			ctx.Arg.MapFile = arg
		case readArg("log-level"):
			level, err := zerolog.ParseLevel(arg)
			if err != nil {
				fatal(fmt.Sprintf("unknown --log-level: %s", arg))
			}
			ctx.Log = ctx.Log.Level(level)
		default:
			if strings.HasPrefix(args[0], "-") {
				fatal(fmt.Sprintf("unknown command line option: %s", args[0]))
			}
			remaining = append(remaining, args[0])
			args = args[1:]
		}
	}

	if !outputSet {
		fatal("option -o: output path required")
	}

	for i, p := range ctx.Arg.LibraryPaths {
		ctx.Arg.LibraryPaths[i] = filepath.Clean(p)
	}

	return remaining
}

func fatal(msg string) {
	fmt.Fprintln(os.Stderr, "uld: "+msg)
	os.Exit(1)
}
