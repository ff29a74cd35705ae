package main

import (
	"context"
	"fmt"

	"github.com/chazu/classkit/catalog"
)

// ---------------------------------------------------------------------------
// classkit index and query: the class catalog
// ---------------------------------------------------------------------------

func runIndex(ctx context.Context, e *env, args []string) error {
	var cf commonFlags
	fs := e.flagSet("index", &cf)
	dbPath := fs.String("db", e.m.CatalogPath(), "Catalog database")
	if err := fs.Parse(args); err != nil {
		return err
	}
	configureLogging(&cf)

	files, err := findClassFiles(e.inputs(fs.Args()))
	if err != nil {
		return err
	}
	summaries, err := process(ctx, files, cf.jobs, func(ctx context.Context, f classFile, b []byte) (*catalog.Summary, error) {
		return catalog.Summarize(b, f.Path)
	})
	if err != nil {
		return err
	}

	c, err := catalog.Open(ctx, *dbPath)
	if err != nil {
		return err
	}
	defer c.Close()
	for _, s := range summaries {
		if err := c.Put(ctx, s); err != nil {
			return err
		}
	}
	fmt.Fprintf(e.stdout, "Indexed %d classes in %s\n", len(summaries), *dbPath)
	return nil
}

// queries maps query names to catalog lookups. Each takes one class name,
// except classes which takes none.
var queries = map[string]func(c *catalog.Catalog, ctx context.Context, name string) ([]string, error){
	"subclasses":   (*catalog.Catalog).Subclasses,
	"implementors": (*catalog.Catalog).Implementors,
	"users":        (*catalog.Catalog).Users,
	"ancestors":    (*catalog.Catalog).Ancestors,
	"classes": func(c *catalog.Catalog, ctx context.Context, _ string) ([]string, error) {
		return c.Classes(ctx)
	},
	"digest": func(c *catalog.Catalog, ctx context.Context, name string) ([]string, error) {
		d, err := c.Digest(ctx, name)
		if err != nil {
			return nil, err
		}
		return []string{d}, nil
	},
	"members": func(c *catalog.Catalog, ctx context.Context, name string) ([]string, error) {
		s, err := c.Get(ctx, name)
		if err != nil {
			return nil, err
		}
		var out []string
		for _, m := range s.Members {
			out = append(out, fmt.Sprintf("%s %s%s", m.Kind, m.Name, m.Desc))
		}
		return out, nil
	},
}

func runQuery(ctx context.Context, e *env, args []string) error {
	var cf commonFlags
	fs := e.flagSet("query", &cf)
	dbPath := fs.String("db", e.m.CatalogPath(), "Catalog database")
	if err := fs.Parse(args); err != nil {
		return err
	}
	configureLogging(&cf)

	rest := fs.Args()
	if len(rest) == 0 {
		return fmt.Errorf("usage: classkit query <subclasses|implementors|users|ancestors|members|digest|classes> [class]")
	}
	q, ok := queries[rest[0]]
	if !ok {
		return fmt.Errorf("unknown query %q", rest[0])
	}
	var name string
	switch {
	case rest[0] == "classes" && len(rest) != 1:
		return fmt.Errorf("query classes takes no class name")
	case rest[0] != "classes" && len(rest) != 2:
		return fmt.Errorf("query %s takes one class name", rest[0])
	case len(rest) == 2:
		name = rest[1]
	}

	c, err := catalog.Open(ctx, *dbPath)
	if err != nil {
		return err
	}
	defer c.Close()
	results, err := q(c, ctx, name)
	if err != nil {
		return err
	}
	for _, r := range results {
		fmt.Fprintln(e.stdout, r)
	}
	return nil
}
