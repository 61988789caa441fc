package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/yungbote/agepredict-backend/internal/questionnaire"
)

// chooser returns the index of the option picked for p.
type chooser func(p *questionnaire.Prompt) (int, error)

func newQuizCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "quiz",
		Short: "Take the questionnaire in the terminal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, _ := cmd.Flags().GetString("file")
			bank, err := questionnaire.LoadBank(path)
			if err != nil {
				return err
			}
			engine, err := questionnaire.NewEngine(bank)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			in := cmd.InOrStdin()
			choose := lineChooser(in, out)
			if f, ok := in.(*os.File); ok && f == os.Stdin && isTTY() {
				choose = selectChooser
			}
			outcome, err := runQuiz(out, engine, choose)
			if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
				fmt.Fprintln(out, yellow("questionnaire abandoned"))
				return nil
			}
			if err != nil {
				return err
			}
			printOutcome(out, outcome)
			return nil
		},
	}
	cmd.Flags().StringP("file", "f", "", "bank YAML file (default: embedded bank)")
	return cmd
}

func runQuiz(w io.Writer, engine *questionnaire.Engine, choose chooser) (*questionnaire.Outcome, error) {
	for {
		p := engine.Current()
		if p == nil {
			return nil, questionnaire.ErrFinished
		}
		idx, err := choose(p)
		if err != nil {
			return nil, err
		}
		step, err := engine.Answer(idx)
		if err != nil {
			return nil, err
		}
		if step.Done {
			return step.Outcome, nil
		}
		if p.Phase == questionnaire.PhaseDiscovery && step.Next != nil && step.Next.Phase == questionnaire.PhaseScoring {
			fmt.Fprintf(w, "%s %s\n", gray("category:"), cyan(string(step.Next.Category)))
		}
	}
}

func promptLabel(p *questionnaire.Prompt) string {
	return fmt.Sprintf("[%d/%d] %s", p.Number, p.Of, p.Question.Text)
}

func selectChooser(p *questionnaire.Prompt) (int, error) {
	items := make([]string, len(p.Question.Options))
	for i, o := range p.Question.Options {
		items[i] = o.Text
	}
	sel := promptui.Select{
		Label: promptLabel(p),
		Items: items,
		Size:  len(items),
	}
	idx, _, err := sel.Run()
	return idx, err
}

// lineChooser reads 1-based option numbers, one per line. Used when stdin is
// not a terminal.
func lineChooser(r io.Reader, w io.Writer) chooser {
	sc := bufio.NewScanner(r)
	return func(p *questionnaire.Prompt) (int, error) {
		n := len(p.Question.Options)
		fmt.Fprintln(w, bold(promptLabel(p)))
		for i, o := range p.Question.Options {
			fmt.Fprintf(w, "  %d) %s\n", i+1, o.Text)
		}
		for {
			if !sc.Scan() {
				if err := sc.Err(); err != nil {
					return -1, err
				}
				return -1, promptui.ErrEOF
			}
			v, err := strconv.Atoi(strings.TrimSpace(sc.Text()))
			if err == nil && v >= 1 && v <= n {
				return v - 1, nil
			}
			fmt.Fprintf(w, "%s\n", yellow(fmt.Sprintf("enter a number between 1 and %d", n)))
		}
	}
}

func printOutcome(w io.Writer, o *questionnaire.Outcome) {
	fmt.Fprintf(w, "%s %s\n", bold("predicted age range:"), green(o.Label))
	fmt.Fprintf(w, "%s %s\n", gray("category:"), o.Category)
	fmt.Fprintf(w, "%s %s\n", gray("answers:"), strings.Join(o.RawAnswers, ", "))
}
