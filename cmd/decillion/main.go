// Command decillion runs the block optimizer over Go packages that build UI
// through the markup DSL. Loading, type checking and printing belong to the
// Go toolchain; this command only wires them to the transform pass.
//
// Usage:
//
//	decillion [-w] [-allowlist config.yaml] [-v] ./...
//
// Without -w the rewritten files are printed to stdout.
package main

import (
	"bytes"
	"flag"
	"fmt"
	"go/format"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/tliron/commonlog"
	"golang.org/x/tools/go/packages"

	"github.com/evilbocchi/decillion"
	"github.com/evilbocchi/decillion/internal/metrics"

	_ "github.com/tliron/commonlog/simple"
)

var (
	write     = flag.Bool("w", false, "write rewritten files in place instead of printing to stdout")
	allowlist = flag.String("allowlist", "", "YAML file with additional pure-call allow-list entries")
	verbosity = flag.Int("v", 0, "log verbosity (0 = quiet)")
)

var (
	headerStyle    = lipgloss.NewStyle().Bold(true)
	optimizedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	skippedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

func main() {
	flag.Parse()
	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: decillion [-w] [-allowlist file.yaml] [-v N] packages...")
		os.Exit(2)
	}
	commonlog.Configure(*verbosity, nil)

	if err := run(flag.Args()); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("decillion: "+err.Error()))
		os.Exit(1)
	}
}

func run(patterns []string) error {
	opts := []decillion.Option{}
	if *allowlist != "" {
		list, err := decillion.LoadAllowList(*allowlist)
		if err != nil {
			return err
		}
		opts = append(opts, decillion.WithAllowList(list))
	}
	collector := metrics.NewCollector()
	opts = append(opts, decillion.WithMetrics(collector))
	transformer := decillion.New(opts...)

	cfg := &packages.Config{
		Mode: packages.NeedName | packages.NeedFiles | packages.NeedCompiledGoFiles |
			packages.NeedImports | packages.NeedTypes | packages.NeedSyntax | packages.NeedTypesInfo,
	}
	pkgs, err := packages.Load(cfg, patterns...)
	if err != nil {
		return fmt.Errorf("load packages: %w", err)
	}
	if packages.PrintErrors(pkgs) > 0 {
		return fmt.Errorf("packages contain errors")
	}

	for _, pkg := range pkgs {
		for i, file := range pkg.Syntax {
			filename := pkg.CompiledGoFiles[i]
			report, err := transformer.TransformFile(pkg.Fset, file, pkg.Types, pkg.TypesInfo)
			if err != nil {
				return fmt.Errorf("%s: %w", filename, err)
			}
			printReport(filename, report)
			if !report.Changed {
				continue
			}

			var buf bytes.Buffer
			if err := format.Node(&buf, pkg.Fset, file); err != nil {
				return fmt.Errorf("format %s: %w", filename, err)
			}
			if *write {
				if err := os.WriteFile(filename, buf.Bytes(), 0o644); err != nil {
					return fmt.Errorf("write %s: %w", filename, err)
				}
			} else {
				fmt.Println(headerStyle.Render("--- " + filename))
				os.Stdout.Write(buf.Bytes())
			}
		}
	}

	printSummary(collector)
	return nil
}

func printReport(filename string, report *decillion.Report) {
	for _, c := range report.Components {
		if c.Transformed {
			fmt.Fprintln(os.Stderr, optimizedStyle.Render(
				fmt.Sprintf("  %s: %s optimized (%d slots, %d opaque)", filename, c.Name, c.Slots, c.OpaqueSlots)))
			continue
		}
		fmt.Fprintln(os.Stderr, skippedStyle.Render(
			fmt.Sprintf("  %s: %s unchanged (%s)", filename, c.Name, c.Reason)))
	}
}

func printSummary(collector *metrics.Collector) {
	m := collector.GetMetrics()
	fmt.Fprintln(os.Stderr, headerStyle.Render(fmt.Sprintf(
		"decillion: %d files, %d/%d components optimized (%.0f%%), %d slots (%d opaque)",
		m.FilesProcessed, m.ComponentsOptimized, m.ComponentsSeen,
		collector.OptimizationRate(), m.SlotsEmitted, m.OpaqueSlots)))
}
