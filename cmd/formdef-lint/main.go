// Command formdef-lint loads YAML form definitions and reports registration
// mistakes (duplicate fields, unknown references, dependency cycles,
// malformed rules and expressions) before they can abort a form at runtime.
package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/goliatone/go-formstate/pkg/field"
	"github.com/goliatone/go-formstate/pkg/formdef"
)

func main() {
	quiet := flag.Bool("quiet", false, "suppress per-file OK output")
	flag.Parse()

	paths := flag.Args()
	if len(paths) == 0 {
		log.Fatalf("usage: formdef-lint [-quiet] <definition.yaml> [...]")
	}

	failures := 0
	for _, path := range paths {
		if err := lint(path, *quiet); err != nil {
			failures++
			fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
		}
	}
	if failures > 0 {
		os.Exit(1)
	}
}

func lint(path string, quiet bool) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	def, err := formdef.Load(raw)
	if err != nil {
		return err
	}

	if _, err := def.Registry(); err != nil {
		return describe(err)
	}

	if !quiet {
		fmt.Printf("%s: %s OK (%d fields)\n", path, def.Form, len(def.Fields))
	}
	return nil
}

// describe keeps the registry's typed failures readable on one line.
func describe(err error) error {
	var dup *field.DuplicateFieldError
	var unknown *field.UnknownFieldError
	var cycle *field.CycleError
	switch {
	case errors.As(err, &dup), errors.As(err, &unknown), errors.As(err, &cycle):
		return err
	default:
		return fmt.Errorf("invalid definition: %w", err)
	}
}
