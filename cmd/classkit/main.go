// classkit CLI - reads, prints, rewrites and indexes JVM class files
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/tliron/commonlog"

	"github.com/chazu/classkit/manifest"

	_ "github.com/tliron/commonlog/simple"
)

var log = commonlog.GetLogger("classkit.cli")

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

// command is one classkit subcommand.
type command struct {
	name    string
	summary string
	run     func(ctx context.Context, env *env, args []string) error
}

var commands = []command{
	{"dump", "print a readable listing of class files", runDump},
	{"rewrite", "read and rewrite class files, recomputing maxs or frames", runRewrite},
	{"digest", "print trace digests; record or check a digest lock", runDigest},
	{"index", "add class files to the catalog", runIndex},
	{"query", "query the catalog", runQuery},
}

// env carries what every subcommand needs: the project configuration and
// the output streams.
type env struct {
	m      *manifest.Manifest
	stdout io.Writer
	stderr io.Writer
}

func usage(w io.Writer) {
	fmt.Fprintf(w, "Usage: classkit <command> [options] [paths...]\n\n")
	fmt.Fprintf(w, "Paths are class files or directories searched for .class files.\n")
	fmt.Fprintf(w, "Without paths, the [input] dirs of classkit.toml are used.\n\n")
	fmt.Fprintf(w, "Commands:\n")
	for _, c := range commands {
		fmt.Fprintf(w, "  %-8s %s\n", c.name, c.summary)
	}
	fmt.Fprintf(w, "\nExamples:\n")
	fmt.Fprintf(w, "  classkit dump build/classes/Main.class\n")
	fmt.Fprintf(w, "  classkit rewrite -compute frames -o out build/classes\n")
	fmt.Fprintf(w, "  classkit digest -lock build/classes\n")
	fmt.Fprintf(w, "  classkit index -db catalog.db build/classes\n")
	fmt.Fprintf(w, "  classkit query -db catalog.db subclasses java/lang/Exception\n")
}

// run executes the command line and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		usage(stderr)
		if len(args) == 0 {
			return 2
		}
		return 0
	}

	var cmd *command
	for i := range commands {
		if commands[i].name == args[0] {
			cmd = &commands[i]
		}
	}
	if cmd == nil {
		fmt.Fprintf(stderr, "Error: unknown command %q\n\n", args[0])
		usage(stderr)
		return 2
	}

	m, err := manifest.FindAndLoad(".")
	if err != nil {
		fmt.Fprintf(stderr, "Error loading manifest: %v\n", err)
		return 1
	}
	if m == nil {
		dir, err := os.Getwd()
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		m = manifest.Default(dir)
	}

	e := &env{m: m, stdout: stdout, stderr: stderr}
	if err := cmd.run(ctx, e, args[1:]); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// commonFlags are accepted by every subcommand and override classkit.toml.
type commonFlags struct {
	verbosity int
	logFile   string
	jobs      int
}

func (e *env) flagSet(name string, cf *commonFlags) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(e.stderr)
	fs.IntVar(&cf.verbosity, "v", e.m.Log.Verbosity, "Log verbosity (-1 warnings only, 0 notices, 1 info, 2 debug)")
	fs.StringVar(&cf.logFile, "log", e.m.Log.File, "Log file (default stderr)")
	fs.IntVar(&cf.jobs, "j", e.m.Input.Jobs, "Class files processed at once (0 = one per CPU)")
	return fs
}

// configureLogging applies the logging flags. It is called once per run,
// after flag parsing.
func configureLogging(cf *commonFlags) {
	var path *string
	if cf.logFile != "" {
		path = &cf.logFile
	}
	commonlog.Configure(cf.verbosity, path)
}

// inputs returns the paths named on the command line, or the configured
// input directories.
func (e *env) inputs(args []string) []string {
	if len(args) > 0 {
		return args
	}
	return e.m.InputDirPaths()
}
