package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"reloadr-hq/reloadr/pkg/cli"
	"reloadr-hq/reloadr/pkg/reload"
	"reloadr-hq/reloadr/pkg/reload/rebuild"
	"reloadr-hq/reloadr/pkg/reload/source"
)

var checkFlags struct {
	format string
}

var checkCmd = &cobra.Command{
	Use:   "check SCRIPT [NAME...]",
	Short: "Check that definitions rebuild",
	Long: `Run the reload pipeline once, without installing anything, for the marked
definitions of a script or for the named ones.

The command fails when any definition cannot be located or rebuilt, which
makes it usable as a pre-commit or CI check.

Examples:
  # Check every marked definition
  reloadr check app.go

  # Check two definitions, marked or not
  reloadr check app.go Tick Counter --format json`,
	Args: cobra.MinimumNArgs(1),
	RunE: checkScript,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().StringVar(&checkFlags.format, "format", "text", "output format: text, json, csv")
}

// checkResult is the outcome of rebuilding one definition.
type checkResult struct {
	Symbol string `json:"symbol"`
	Kind   string `json:"kind"`
	OK     bool   `json:"ok"`
	Hash   string `json:"hash,omitempty"`
	Error  string `json:"error,omitempty"`
}

type checkResults []checkResult

func (r checkResults) Header() []string {
	return []string{"SYMBOL", "KIND", "STATUS", "HASH", "ERROR"}
}

func (r checkResults) Rows() [][]string {
	rows := make([][]string, 0, len(r))
	for _, res := range r {
		status := "ok"
		if !res.OK {
			status = "failed"
		}
		rows = append(rows, []string{res.Symbol, res.Kind, status, shortHash(res.Hash), res.Error})
	}
	return rows
}

func checkScript(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseFormat(checkFlags.format)
	if err != nil {
		return cli.NewConfigError("--format", err)
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ns, err := rebuild.Load(args[0], reload.NamespaceOptions(cfg.Reload)...)
	if err != nil {
		return cli.NewCommandError("check", err)
	}

	targets, err := checkTargets(ns.Path(), args[1:], cfg.Reload.Markers)
	if err != nil {
		return cli.NewCommandError("check", err)
	}

	results := make(checkResults, 0, len(targets))
	failed := 0
	for _, target := range targets {
		res := checkDefinition(ns, target)
		if !res.OK {
			failed++
		}
		results = append(results, res)
	}

	if err := cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), results); err != nil {
		return err
	}
	if failed > 0 {
		return cli.NewCommandError("check", fmt.Errorf("%d of %d definitions failed to rebuild", failed, len(results)))
	}
	return nil
}

// checkTargets returns the marked definitions of the script, or the named
// ones. A name is looked up as a function first, then as a class.
func checkTargets(path string, names, markers []string) ([]source.Marked, error) {
	if len(names) == 0 {
		marked, err := source.FindMarked(path, markers)
		if err != nil {
			return nil, err
		}
		if len(marked) == 0 {
			return nil, errors.New("no marked definitions")
		}
		return marked, nil
	}

	targets := make([]source.Marked, 0, len(names))
	for _, name := range names {
		kind := source.KindFunction
		if _, err := source.Locate(path, name, kind); errors.Is(err, source.ErrNotFound) {
			kind = source.KindClass
		}
		targets = append(targets, source.Marked{Name: name, Kind: kind})
	}
	return targets, nil
}

func checkDefinition(ns *rebuild.Namespace, target source.Marked) checkResult {
	res := checkResult{Symbol: target.Name, Kind: target.Kind.String()}

	frag, err := source.Locate(ns.Path(), target.Name, target.Kind)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	def, err := rebuild.Rebuild(frag, ns, nil)
	if err != nil {
		res.Error = err.Error()
		return res
	}

	res.OK = true
	res.Hash = def.Hash
	return res
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
