package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/chazu/classkit/classfile"
	"github.com/chazu/classkit/disasm"
)

// ---------------------------------------------------------------------------
// classkit dump: readable class listings
// ---------------------------------------------------------------------------

func runDump(ctx context.Context, e *env, args []string) error {
	var cf commonFlags
	fs := e.flagSet("dump", &cf)
	skipDebug := fs.Bool("skip-debug", false, "Leave out source file, line number and local variable information")
	skipFrames := fs.Bool("skip-frames", false, "Leave out stack map frames")
	expandFrames := fs.Bool("expand-frames", false, "Print every frame in expanded form")
	if err := fs.Parse(args); err != nil {
		return err
	}
	configureLogging(&cf)

	var flags int
	if *skipDebug {
		flags |= classfile.SkipDebug
	}
	if *skipFrames {
		flags |= classfile.SkipFrames
	}
	if *expandFrames {
		flags |= classfile.ExpandFrames
	}

	files, err := findClassFiles(e.inputs(fs.Args()))
	if err != nil {
		return err
	}
	listings, err := process(ctx, files, cf.jobs, func(ctx context.Context, f classFile, b []byte) (string, error) {
		return disasm.Disassemble(b, flags)
	})
	if err != nil {
		return err
	}
	for i, listing := range listings {
		if len(files) > 1 {
			fmt.Fprintf(e.stdout, "// %s\n", files[i].Path)
		}
		fmt.Fprint(e.stdout, listing)
		if i < len(listings)-1 && !strings.HasSuffix(listing, "\n\n") {
			fmt.Fprintln(e.stdout)
		}
	}
	return nil
}
