package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/petrisync/pkg/store"
)

func (c *CLI) snapshotCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "snapshot",
		Aliases: []string{"snap"},
		Short:   "Manage saved layouts",
	}
	cmd.AddCommand(c.snapshotListCommand())
	cmd.AddCommand(c.snapshotShowCommand())
	cmd.AddCommand(c.snapshotDeleteCommand())
	return cmd
}

func (c *CLI) snapshotListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved snapshots",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withStore(cmd.Context(), func(ctx context.Context, st store.Store) error {
				names, err := st.List(ctx)
				if err != nil {
					return err
				}
				if len(names) == 0 {
					printInfo("No snapshots")
					return nil
				}
				for _, name := range names {
					fmt.Fprintln(cmd.OutOrStdout(), name)
				}
				return nil
			})
		},
	}
}

func (c *CLI) snapshotShowCommand() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "show [name]",
		Short: "Print a saved snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withStore(cmd.Context(), func(ctx context.Context, st store.Store) error {
				snap, err := st.Get(ctx, args[0])
				if err != nil {
					return err
				}
				if asJSON {
					enc := json.NewEncoder(cmd.OutOrStdout())
					enc.SetIndent("", "  ")
					return enc.Encode(snap)
				}
				printSnapshot(cmd.OutOrStdout(), snap)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	return cmd
}

func (c *CLI) snapshotDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "delete [name...]",
		Aliases: []string{"rm"},
		Short:   "Delete saved snapshots",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withStore(cmd.Context(), func(ctx context.Context, st store.Store) error {
				for _, name := range args {
					if err := st.Delete(ctx, name); err != nil {
						return err
					}
					printSuccess("Deleted %s", name)
				}
				return nil
			})
		},
	}
}

// withStore opens the configured store for the duration of fn.
func (c *CLI) withStore(ctx context.Context, fn func(context.Context, store.Store) error) error {
	var st store.Store
	err := spin(ctx, "Opening snapshot store...", func(ctx context.Context) error {
		var err error
		st, err = c.openStore(ctx)
		return err
	})
	if err != nil {
		return err
	}
	defer st.Close()
	return fn(ctx, st)
}

func printSnapshot(w io.Writer, s *store.Snapshot) {
	fmt.Fprintln(w, StyleTitle.Render(s.Name))
	fmt.Fprintln(w, StyleDim.Render("saved "+s.SavedAt.Format("2006-01-02 15:04:05")))

	rows := make([][]string, 0, len(s.Nodes)+len(s.Links))
	for _, n := range s.Nodes {
		rows = append(rows, []string{"node", n.ID, fmt.Sprintf("%.1f,%.1f", n.X, n.Y), strconv.FormatBool(n.Pinned)})
	}
	for _, l := range s.Links {
		rows = append(rows, []string{"arc", l.ID, l.Anchor, strconv.FormatBool(l.Locked)})
	}
	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("", "ID", "Position / Anchor", "Pinned / Locked").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			if col == 0 {
				return StyleDim
			}
			return lipgloss.NewStyle()
		})
	fmt.Fprintln(w, t.Render())
}
