package app

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/vmud/newshub/internal/cache"
	"github.com/vmud/newshub/internal/cli"
	"github.com/vmud/newshub/internal/company"
)

func runProviders(args []string) int {
	fs := flag.NewFlagSet("providers", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	cfg, logger, ok := loadRuntime(envLoader)
	if !ok {
		return 1
	}

	dir, err := company.LoadDirectory(cfg.CompaniesFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Load companies: %v\n", err)
		return 1
	}
	registry, err := buildRegistry(cfg, dir, cache.NewMemory(), logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Build provider registry: %v\n", err)
		return 1
	}

	fmt.Print(formatTable(providerRows(cfg.ProviderList(), registry.Names())))
	fmt.Printf("companies: %s\n", strings.Join(dir.Names(), ", "))
	return 0
}

// providerRows lists registered providers, then selected names that have no
// registered adapter.
func providerRows(selectedNames, registered []string) [][]string {
	selected := map[string]struct{}{}
	for _, name := range selectedNames {
		selected[name] = struct{}{}
	}

	rows := [][]string{{"PROVIDER", "STATE"}}
	known := map[string]struct{}{}
	for _, name := range registered {
		known[name] = struct{}{}
		state := "available"
		if _, ok := selected[name]; ok {
			state = "enabled"
		}
		rows = append(rows, []string{name, state})
	}
	for _, name := range selectedNames {
		if _, ok := known[name]; !ok {
			rows = append(rows, []string{name, "selected but not configured"})
		}
	}
	return rows
}

// formatTable left-aligns columns by display width.
func formatTable(rows [][]string) string {
	var widths []int
	for _, row := range rows {
		for i, cell := range row {
			if i >= len(widths) {
				widths = append(widths, 0)
			}
			if w := runewidth.StringWidth(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}

	var b strings.Builder
	for _, row := range rows {
		for i, cell := range row {
			if i == len(row)-1 {
				b.WriteString(cell)
				break
			}
			b.WriteString(runewidth.FillRight(cell, widths[i]))
			b.WriteString("  ")
		}
		b.WriteString("\n")
	}
	return b.String()
}
