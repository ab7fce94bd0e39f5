// planctl is a diagnostic CLI for dynaplan: it loads a schema catalog
// from YAML and explains which access plan the planner would choose for
// a given condition set, without touching a store.
package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kartikbazzad/dynaplan/internal/condition"
	"github.com/kartikbazzad/dynaplan/internal/logger"
	"github.com/kartikbazzad/dynaplan/internal/planner"
	"github.com/kartikbazzad/dynaplan/internal/schema"
)

var (
	schemaPath string
	recordType string
)

var rootCmd = &cobra.Command{
	Use:   "planctl",
	Short: "Explain dynaplan access plans",
}

var explainCmd = &cobra.Command{
	Use:   "explain [field=op:value ...]",
	Short: "Show the access plan for a condition set",
	Long: `Explain prints the plan(s) the planner chooses for a condition set.

Conditions are given as field=op:value arguments, e.g.:

  planctl explain --schema schema.yaml --type User id=eq:42
  planctl explain --schema schema.yaml --type User email=in:a@x.io,b@x.io
  planctl explain --schema schema.yaml --type Order user_id=eq:7 total=gt:100`,
	RunE: runExplain,
}

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "List registered record types",
	RunE:  runSchema,
}

func main() {
	rootCmd.PersistentFlags().StringVar(&schemaPath, "schema", "schema.yaml", "schema catalog YAML file")
	explainCmd.Flags().StringVar(&recordType, "type", "", "record type to plan against")
	_ = explainCmd.MarkFlagRequired("type")

	rootCmd.AddCommand(explainCmd)
	rootCmd.AddCommand(schemaCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadCatalog() (*schema.Catalog, error) {
	log := logger.New(os.Stderr, logger.LevelWarn, "[planctl]")
	catalog := schema.NewCatalog(log)
	if err := catalog.LoadFile(schemaPath); err != nil {
		return nil, err
	}
	return catalog, nil
}

func runExplain(cmd *cobra.Command, args []string) error {
	catalog, err := loadCatalog()
	if err != nil {
		return err
	}

	conds := make([]condition.Condition, 0, len(args))
	for _, arg := range args {
		c, err := parseCondition(arg)
		if err != nil {
			return err
		}
		conds = append(conds, c)
	}

	set, err := condition.Normalize(conds)
	if err != nil {
		return err
	}

	p := planner.New(catalog, 0, logger.New(os.Stderr, logger.LevelWarn, "[planctl]"))
	plans, err := p.PlanAccess(recordType, set)
	if err != nil {
		return err
	}

	for i := range plans {
		fmt.Printf("plan %d/%d: %s\n", i+1, len(plans), plans[i].Describe())
	}
	return nil
}

func runSchema(cmd *cobra.Command, args []string) error {
	catalog, err := loadCatalog()
	if err != nil {
		return err
	}

	for _, d := range catalog.List() {
		fmt.Printf("%s -> table %s\n", d.RecordType, d.TableName)
		fmt.Printf("  key: hash=%s", d.Key.Hash.Field)
		if d.Key.Range != nil {
			fmt.Printf(" range=%s", d.Key.Range.Field)
		}
		fmt.Println()
		for _, idx := range d.Indexes {
			fmt.Printf("  index %s: hash=%s", idx.Name, idx.Hash.Field)
			if idx.Range != nil {
				fmt.Printf(" range=%s", idx.Range.Field)
			}
			fmt.Printf(" projection=%s\n", idx.Projection)
		}
	}
	return nil
}

// parseCondition parses field=op:value. For in, the value is a
// comma-separated member list. Values that parse as numbers are treated
// as numbers so range comparisons behave as expected.
func parseCondition(arg string) (condition.Condition, error) {
	eq := strings.Index(arg, "=")
	if eq <= 0 {
		return condition.Condition{}, fmt.Errorf("malformed condition %q, want field=op:value", arg)
	}
	field := arg[:eq]

	rest := arg[eq+1:]
	colon := strings.Index(rest, ":")
	if colon <= 0 {
		return condition.Condition{}, fmt.Errorf("malformed condition %q, want field=op:value", arg)
	}

	op := condition.Operator(rest[:colon])
	raw := rest[colon+1:]

	if op == condition.OpIn {
		parts := strings.Split(raw, ",")
		values := make([]interface{}, 0, len(parts))
		for _, part := range parts {
			values = append(values, parseValue(part))
		}
		return condition.In(field, values...), nil
	}

	return condition.Condition{Field: field, Op: op, Value: parseValue(raw)}, nil
}

func parseValue(raw string) interface{} {
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	return raw
}
