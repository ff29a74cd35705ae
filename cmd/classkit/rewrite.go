package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/chazu/classkit/catalog"
	"github.com/chazu/classkit/classfile"
	"github.com/chazu/classkit/trace"
)

// ---------------------------------------------------------------------------
// classkit rewrite: read and write class files back out
// ---------------------------------------------------------------------------

// rewriteOptions are the resolved rewrite settings for one run.
type rewriteOptions struct {
	readerFlags int
	writerFlags int
	verify      bool
	catalog     *catalog.Catalog
}

func runRewrite(ctx context.Context, e *env, args []string) error {
	var cf commonFlags
	fs := e.flagSet("rewrite", &cf)
	compute := fs.String("compute", e.m.Rewrite.Compute, "What the writer recomputes: nothing, maxs or frames")
	outDir := fs.String("o", e.m.OutputDirPath(), "Output directory")
	skipDebug := fs.Bool("skip-debug", e.m.Rewrite.SkipDebug, "Strip debug information")
	expandFrames := fs.Bool("expand-frames", e.m.Rewrite.ExpandFrames, "Read frames in expanded form")
	verify := fs.Bool("verify", false, "Check that every rewritten class has the same trace as its input, frames and maxs aside")
	dbPath := fs.String("db", "", "Catalog used to find common superclasses when computing frames")
	if err := fs.Parse(args); err != nil {
		return err
	}
	configureLogging(&cf)

	e.m.Rewrite.Compute = *compute
	e.m.Rewrite.SkipDebug = *skipDebug
	e.m.Rewrite.ExpandFrames = *expandFrames
	writerFlags, err := e.m.WriterFlags()
	if err != nil {
		return err
	}
	opts := rewriteOptions{
		readerFlags: e.m.ReaderFlags(),
		writerFlags: writerFlags,
		verify:      *verify,
	}
	if *dbPath != "" {
		c, err := catalog.Open(ctx, *dbPath)
		if err != nil {
			return err
		}
		defer c.Close()
		opts.catalog = c
	}

	files, err := findClassFiles(e.inputs(fs.Args()))
	if err != nil {
		return err
	}
	sizes, err := process(ctx, files, cf.jobs, func(ctx context.Context, f classFile, b []byte) (int, error) {
		out, err := rewriteClass(ctx, b, opts)
		if err != nil {
			return 0, err
		}
		dest := filepath.Join(*outDir, f.Rel)
		if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
			return 0, err
		}
		if err := os.WriteFile(dest, out, 0644); err != nil {
			return 0, err
		}
		log.Infof("rewrote %s: %d -> %d bytes", f.Path, len(b), len(out))
		return len(out), nil
	})
	if err != nil {
		return err
	}

	total := 0
	for _, n := range sizes {
		total += n
	}
	fmt.Fprintf(e.stdout, "Rewrote %d class files (%d bytes) to %s\n", len(files), total, *outDir)
	return nil
}

// rewriteClass reads b and writes it back with opts. When nothing is
// recomputed the writer shares the reader's constant pool, so unchanged
// methods are copied as is. Recomputing maxs or frames always starts from
// a fresh writer, which re-encodes every method.
func rewriteClass(ctx context.Context, b []byte, opts rewriteOptions) ([]byte, error) {
	r, err := classfile.NewReader(b)
	if err != nil {
		return nil, err
	}
	var w *classfile.Writer
	if opts.writerFlags == 0 {
		w = classfile.NewWriterFromReader(r, 0)
	} else {
		w = classfile.NewWriter(opts.writerFlags)
	}
	if opts.catalog != nil {
		w.CommonSuperClass = func(a, b string) string {
			return opts.catalog.CommonSuperClass(ctx, a, b)
		}
	}

	var cv classfile.ClassVisitor = w
	var rec *trace.Recorder
	if opts.verify {
		rec = trace.New(w)
		cv = rec
	}
	if err := r.Accept(cv, nil, opts.readerFlags); err != nil {
		return nil, err
	}
	out, err := w.ToBytes()
	if err != nil {
		return nil, err
	}
	if opts.verify {
		if err := verifyRewrite(rec.Trace(), out); err != nil {
			return nil, err
		}
	}
	if bytes.Equal(out, b) {
		log.Debugf("%s unchanged", r.ClassName())
	}
	return out, nil
}

// verifyRewrite compares the events read from the input with those read
// back from the output.
func verifyRewrite(in *trace.Trace, out []byte) error {
	back, err := trace.Record(out, 0)
	if err != nil {
		return fmt.Errorf("cannot read rewritten class: %w", err)
	}
	if d := trace.Diff(in.Without("Frame", "Maxs"), back.Without("Frame", "Maxs")); d != "" {
		return fmt.Errorf("rewritten class differs: %s", d)
	}
	return nil
}
