package main

import (
	"context"
	"fmt"
	"sort"

	"github.com/chazu/classkit/classfile"
	"github.com/chazu/classkit/manifest"
	"github.com/chazu/classkit/trace"
)

// ---------------------------------------------------------------------------
// classkit digest: structural digests and the digest lock
// ---------------------------------------------------------------------------

// digestFlags leave out events that compilers and rewriters are free to
// change without changing what a class means.
const digestFlags = classfile.SkipDebug | classfile.SkipFrames

func runDigest(ctx context.Context, e *env, args []string) error {
	var cf commonFlags
	fs := e.flagSet("digest", &cf)
	lock := fs.Bool("lock", false, "Record the digests in the lock file")
	check := fs.Bool("check", false, "Compare the digests with the lock file and fail on any difference")
	lockPath := fs.String("lock-file", e.m.DigestLockPath(), "Digest lock file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	configureLogging(&cf)
	if *lock && *check {
		return fmt.Errorf("-lock and -check are exclusive")
	}

	files, err := findClassFiles(e.inputs(fs.Args()))
	if err != nil {
		return err
	}
	entries, err := process(ctx, files, cf.jobs, func(ctx context.Context, f classFile, b []byte) (manifest.LockedClass, error) {
		r, err := classfile.NewReader(b)
		if err != nil {
			return manifest.LockedClass{}, err
		}
		rec := trace.New(nil)
		if err := r.Accept(rec, nil, digestFlags); err != nil {
			return manifest.LockedClass{}, err
		}
		d, err := rec.Trace().Digest()
		if err != nil {
			return manifest.LockedClass{}, err
		}
		return manifest.LockedClass{Name: r.ClassName(), Path: f.Path, Digest: d.String()}, nil
	})
	if err != nil {
		return err
	}

	switch {
	case *lock:
		if err := manifest.WriteLock(*lockPath, &manifest.DigestLock{Classes: entries}); err != nil {
			return err
		}
		fmt.Fprintf(e.stdout, "Locked %d classes in %s\n", len(entries), *lockPath)
		return nil
	case *check:
		return checkDigests(e, *lockPath, entries)
	}
	for _, c := range entries {
		fmt.Fprintf(e.stdout, "%s  %s  %s\n", c.Digest, c.Name, c.Path)
	}
	return nil
}

// checkDigests reports every class whose digest differs from the lock, and
// every locked class that is missing.
func checkDigests(e *env, lockPath string, entries []manifest.LockedClass) error {
	lf, err := manifest.ReadLock(lockPath)
	if err != nil {
		return err
	}
	if lf == nil {
		return fmt.Errorf("no digest lock at %s (run classkit digest -lock)", lockPath)
	}

	var problems []string
	seen := make(map[string]bool, len(entries))
	for _, c := range entries {
		seen[c.Name] = true
		locked := lf.Find(c.Name)
		switch {
		case locked == nil:
			problems = append(problems, fmt.Sprintf("%s: not in lock", c.Name))
		case locked.Digest != c.Digest:
			problems = append(problems, fmt.Sprintf("%s: digest changed", c.Name))
		}
	}
	for _, locked := range lf.Classes {
		if !seen[locked.Name] {
			problems = append(problems, fmt.Sprintf("%s: missing", locked.Name))
		}
	}
	sort.Strings(problems)
	for _, p := range problems {
		fmt.Fprintln(e.stdout, p)
	}
	if len(problems) > 0 {
		return fmt.Errorf("%d of %d classes differ from %s", len(problems), len(lf.Classes), lockPath)
	}
	fmt.Fprintf(e.stdout, "All %d classes match %s\n", len(entries), lockPath)
	return nil
}
