package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cwbudde/formulaengine/internal/lexer"
)

var lexCmd = &cobra.Command{
	Use:   "lex [file]",
	Short: "Tokenize a formula body and print the resulting tokens",
	Args:  cobra.ExactArgs(1),
	RunE:  runLex,
}

func init() {
	rootCmd.AddCommand(lexCmd)
}

func runLex(cmd *cobra.Command, args []string) error {
	content, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading %s: %w", args[0], err)
	}

	tokens, err := lexer.Tokenize(string(content))
	if err != nil {
		return err
	}

	for _, tok := range tokens {
		fmt.Fprintln(cmd.OutOrStdout(), describeToken(tok))
	}
	return nil
}

func describeToken(tok lexer.Token) string {
	switch tok.Type {
	case lexer.NUMBER:
		return fmt.Sprintf("NUMBER %g", tok.Num)
	case lexer.STRING:
		return fmt.Sprintf("STRING %q", tok.Str)
	case lexer.BOOL:
		return fmt.Sprintf("BOOL %t", tok.Bool)
	case lexer.IDENT:
		return fmt.Sprintf("IDENT %s", tok.Str)
	default:
		return tok.Type.String()
	}
}
