package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"

	"github.com/cwbudde/formulaengine/pkg/formulaengine"
)

// batchFile is the YAML shape an eval invocation reads: a flat map of
// variable name to scalar, and an ordered list of named formula
// bodies.
type batchFile struct {
	Variables map[string]any `yaml:"variables"`
	Formulas  []struct {
		Name string `yaml:"name"`
		Body string `yaml:"body"`
	} `yaml:"formulas"`
}

var evalCmd = &cobra.Command{
	Use:   "eval [file]",
	Short: "Run a batch of formulas described in a YAML file",
	Args:  cobra.ExactArgs(1),
	RunE:  runEval,
}

func init() {
	rootCmd.AddCommand(evalCmd)
}

func runEval(cmd *cobra.Command, args []string) error {
	content, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading %s: %w", args[0], err)
	}

	var batch batchFile
	if err := yaml.Unmarshal(content, &batch); err != nil {
		return fmt.Errorf("parsing batch file: %w", err)
	}

	eng := formulaengine.New()
	for name, raw := range batch.Variables {
		v, err := scalarToValue(raw)
		if err != nil {
			return fmt.Errorf("variable %s: %w", name, err)
		}
		eng.SetVariable(name, v)
	}

	formulas := make([]formulaengine.Formula, 0, len(batch.Formulas))
	for _, f := range batch.Formulas {
		formulas = append(formulas, formulaengine.NewFormula(f.Name, f.Body))
	}

	if err := eng.Execute(context.Background(), formulas); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, f := range batch.Formulas {
		if v, ok := eng.GetResult(f.Name); ok {
			fmt.Fprintf(out, "%s = %s\n", f.Name, v.Text())
			continue
		}
		if msg, ok := eng.GetErrors()[f.Name]; ok {
			fmt.Fprintf(out, "%s: %s\n", f.Name, msg)
		}
	}

	return nil
}

func scalarToValue(raw any) (formulaengine.Value, error) {
	switch v := raw.(type) {
	case string:
		return formulaengine.String(v), nil
	case bool:
		return formulaengine.Bool(v), nil
	case int:
		return formulaengine.Number(float64(v)), nil
	case float64:
		return formulaengine.Number(v), nil
	case uint64:
		return formulaengine.Number(float64(v)), nil
	default:
		return formulaengine.Value{}, fmt.Errorf("unsupported variable type %T", raw)
	}
}
