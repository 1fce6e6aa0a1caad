// Package main provides the regmap command-line tool. It loads a
// memory-map document, validates it, and can dump the expanded register
// layout or a live register summary against an in-memory bus.
package main

import (
	"flag"
	"fmt"
	"os"
	"sort"

	"github.com/sarchlab/regmap/bus"
	"github.com/sarchlab/regmap/loader"
	"github.com/sarchlab/regmap/schema"
)

var (
	advisory = flag.Bool("advisory", false, "Report diagnostics without failing the load")
	summary  = flag.Bool("summary", false, "Print current register values from an in-memory bus")
	verbose  = flag.Bool("v", false, "Verbose output")
	memBytes = flag.Uint64("mem", 1<<24, "In-memory bus capacity in bytes")
)

func main() {
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Usage: regmap [options] <memorymap.yaml>\n")
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	mapPath := flag.Arg(0)

	mode := loader.Strict
	if *advisory {
		mode = loader.Advisory
	}

	b := bus.NewMemoryBus(*memBytes)
	l := loader.New(loader.WithValidationMode(mode))

	result, err := l.Load(mapPath, b)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading memory map: %v\n", err)
		os.Exit(1)
	}

	for _, d := range result.Diagnostics {
		fmt.Fprintf(os.Stderr, "warning: %s\n", d)
	}

	fmt.Printf("Memory map: %s\n", result.Map.Name())
	if *verbose {
		dumpModel(result.Model)
	}

	if *summary {
		if err := dumpSummary(result.Map); err != nil {
			fmt.Fprintf(os.Stderr, "Error reading registers: %v\n", err)
			os.Exit(1)
		}
	}

	if len(result.Diagnostics) > 0 {
		os.Exit(2)
	}
}

// dumpModel prints the expanded layout: every block, register, field and
// array with resolved offsets.
func dumpModel(model *schema.MemoryMap) {
	for _, blk := range model.Blocks {
		fmt.Printf("  block %s @ 0x%08X (range 0x%X)\n",
			blk.Name, blk.BaseAddress, blk.Range)
		for _, rd := range blk.Registers {
			fmt.Printf("    %-32s 0x%08X\n", rd.Name, rd.Offset)
			for _, fd := range rd.Fields {
				if fd.Width == 1 {
					fmt.Printf("      %-30s [%d] %s\n", fd.Name, fd.Offset, fd.Access)
				} else {
					fmt.Printf("      %-30s [%d:%d] %s\n",
						fd.Name, fd.Offset+fd.Width-1, fd.Offset, fd.Access)
				}
			}
		}
		for _, ad := range blk.Arrays {
			fmt.Printf("    %-32s 0x%08X x%d stride %d\n",
				ad.Name, ad.Base, ad.Count, ad.Stride)
		}
	}
}

// dumpSummary prints the current word value of every register, block by
// block.
func dumpSummary(m *loader.RegisterMap) error {
	for _, blockName := range m.Blocks() {
		blk, err := m.Block(blockName)
		if err != nil {
			return err
		}
		values, err := blk.Summary()
		if err != nil {
			return err
		}

		names := make([]string, 0, len(values))
		for name := range values {
			names = append(names, name)
		}
		sort.Strings(names)

		fmt.Printf("  block %s\n", blockName)
		for _, name := range names {
			fmt.Printf("    %-32s 0x%08X\n", name, values[name])
		}
	}
	return nil
}
