package cli

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/petrisync/pkg/diagram"
	"github.com/matzehuels/petrisync/pkg/errors"
	"github.com/matzehuels/petrisync/pkg/model"
	"github.com/matzehuels/petrisync/pkg/synchronizer"
)

// checkResult is the outcome of applying one model entity.
type checkResult struct {
	ID     string
	Type   string
	Code   errors.Code
	Detail string
}

// OK reports whether the entity reached the diagram.
func (r checkResult) OK() bool { return r.Code == "" }

func (c *CLI) checkCommand() *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:   "check [file]",
		Short: "Validate a model document",
		Long: `Check applies every entity of a model document to an empty diagram in
document order and reports the entities that were dropped and why.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			results, err := c.runCheck(args[0])
			if err != nil {
				return err
			}
			failed := printCheck(cmd.OutOrStdout(), results)
			if failed == 0 {
				return nil
			}
			if strict {
				return fmt.Errorf("%d of %d entities dropped", failed, len(results))
			}
			printWarning("%d of %d entities would be dropped", failed, len(results))
			return nil
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "fail if any entity is dropped")
	return cmd
}

// runCheck applies the entities of path one by one in document order, so
// an arc listed before its endpoints is reported as dangling.
func (c *CLI) runCheck(path string) ([]checkResult, error) {
	cfg, err := c.config()
	if err != nil {
		return nil, err
	}
	doc, err := model.LoadFile(path)
	if err != nil {
		return nil, err
	}
	m := model.NewStore()
	if err := doc.Populate(m); err != nil {
		return nil, err
	}

	st := diagram.NewState()
	sy := synchronizer.New(st, synchronizer.Options{
		Shapes: cfg.ShapeRegistry(),
		Origin: cfg.Origin(),
		Logger: c.Logger,
	})

	var results []checkResult
	for _, entry := range m.Entries() {
		v, _ := entry.Get(model.FieldType)
		r := checkResult{ID: entry.ID(), Type: model.Stringify(v)}
		e, err := model.Decode(entry)
		if err == nil {
			err = sy.OnAdd(e)
		}
		if err != nil {
			r.Code = errors.GetCode(err)
			r.Detail = errors.UserMessage(err)
		}
		results = append(results, r)
	}
	if err := st.Check(); err != nil {
		return results, err
	}
	return results, nil
}

// printCheck writes a table of results and returns the number of failures.
func printCheck(w io.Writer, results []checkResult) int {
	failed := 0
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		status := iconSuccess
		if !r.OK() {
			status = iconError
			failed++
		}
		rows = append(rows, []string{status, r.ID, r.Type, string(r.Code), r.Detail})
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("", "Entity", "Type", "Code", "Detail").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			if row < 0 || row >= len(results) {
				return lipgloss.NewStyle()
			}
			if results[row].OK() {
				if col == 0 {
					return styleIconSuccess
				}
				return lipgloss.NewStyle()
			}
			if col == 0 || col == 3 {
				return styleIconError
			}
			return StyleDim
		})

	fmt.Fprintln(w, t.Render())
	fmt.Fprintln(w, StyleDim.Render(fmt.Sprintf("%d ok · %d dropped", len(results)-failed, failed)))
	return failed
}
