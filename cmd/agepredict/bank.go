package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/yungbote/agepredict-backend/internal/questionnaire"
)

func newBankCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bank",
		Short: "Inspect question banks",
	}

	validate := &cobra.Command{
		Use:   "validate",
		Short: "Load a question bank and report its shape",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, _ := cmd.Flags().GetString("file")
			bank, err := questionnaire.LoadBank(path)
			if err != nil {
				return err
			}
			source := path
			if source == "" {
				source = "embedded bank"
			}
			printBankSummary(cmd.OutOrStdout(), source, bank)
			return nil
		},
	}
	validate.Flags().StringP("file", "f", "", "bank YAML file (default: embedded bank)")

	cmd.AddCommand(validate)
	return cmd
}

func printBankSummary(w io.Writer, source string, bank *questionnaire.Bank) {
	fmt.Fprintf(w, "%s %s\n", green("valid"), bold(source))
	fmt.Fprintf(w, "  %-12s %d questions\n", "discovery", len(bank.Discovery))
	for _, c := range questionnaire.Categories {
		fmt.Fprintf(w, "  %-12s %d questions\n", cyan(string(c)), len(bank.Categories[c]))
	}
}
