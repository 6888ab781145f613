// Copyright 2023-2024, Tern Labs, Inc.
// For license information, see https://github.com/ternchain/precompiles/blob/master/LICENSE.md

package main

import (
	"fmt"
	"os"
	"sort"
	"strings"

	flag "github.com/spf13/pflag"

	"github.com/ternchain/precompiles/precompiles"
)

// Prints the dispatch tables of the installed precompiles, for wiring
// external tooling that needs selectors, topics, or error identifiers.

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string) error {
	f := flag.NewFlagSet("selectors", flag.ContinueOnError)
	only := f.String("only", "", "limit output to the precompile with this name")
	showEvents := f.Bool("events", false, "also print event topics")
	showErrors := f.Bool("errors", false, "also print custom error signatures")
	if err := f.Parse(args); err != nil {
		return err
	}

	contracts := precompiles.Precompiles()

	names := make([]string, 0, len(contracts))
	byName := make(map[string]precompiles.Precompile, len(contracts))
	for _, contract := range contracts {
		impl := contract.Precompile()
		names = append(names, impl.Name())
		byName[impl.Name()] = impl
	}
	sort.Strings(names)

	for _, name := range names {
		if *only != "" && !strings.EqualFold(*only, name) {
			continue
		}
		impl := byName[name]
		fmt.Printf("%v %v\n", impl.Address(), name)

		for _, doc := range impl.MethodDocs() {
			fmt.Printf("\t0x%x  %-10v %v\n", doc.Selector, doc.Mutability, doc.Signature)
		}
		if *showEvents {
			topics := impl.EventDocs()
			events := make([]string, 0, len(topics))
			for event := range topics {
				events = append(events, event)
			}
			sort.Strings(events)
			for _, event := range events {
				fmt.Printf("\ttopic %v  %v\n", topics[event], event)
			}
		}
		if *showErrors {
			for _, errABI := range impl.GetErrorABIs() {
				fmt.Printf("\t0x%x  error      %v\n", errABI.ID[:4], errABI.Sig)
			}
		}
	}
	return nil
}
