package cli

import (
	"context"
	"errors"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/matzehuels/petrisync/pkg/engine"
	"github.com/matzehuels/petrisync/pkg/feed"
	"github.com/matzehuels/petrisync/pkg/store"
)

type editOpts struct {
	remote  string
	restore bool
}

func (c *CLI) editCommand() *cobra.Command {
	opts := editOpts{restore: true}

	cmd := &cobra.Command{
		Use:   "edit [file]",
		Short: "Edit a diagram in the terminal",
		Long: `Edit opens an interactive editor for a model document, or for a remote
model served by "petrisync serve" when --remote (or feed.url) is set.

Press on a node and drag to draw an arc; release on empty canvas to
create the opposite kind of node. Drag with the configured trigger to
move a node. New entities stay provisional until committed with c.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.config()
			if err != nil {
				return err
			}
			var path string
			if len(args) == 1 {
				path = args[0]
			}
			if opts.remote == "" && path == "" {
				opts.remote = cfg.Feed.URL
			}
			if opts.remote == "" && path == "" {
				return errors.New("edit needs a model file or a remote feed URL")
			}
			return c.runEdit(cmd.Context(), path, opts)
		},
	}
	cmd.Flags().StringVar(&opts.remote, "remote", "", "websocket URL of a remote model")
	cmd.Flags().BoolVar(&opts.restore, "restore", opts.restore, "start from the saved snapshot")
	return cmd
}

func (c *CLI) runEdit(ctx context.Context, path string, opts editOpts) error {
	cfg, err := c.config()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var client *feed.Client
	if opts.remote != "" {
		if err := spin(ctx, "Connecting to "+opts.remote+"...", func(ctx context.Context) error {
			client, err = feed.Dial(ctx, feed.ClientOptions{
				URL:         opts.remote,
				Username:    cfg.Feed.Username,
				Password:    cfg.Feed.Password,
				Subprotocol: cfg.Feed.Subprotocol,
				Logger:      c.Logger,
			})
			return err
		}); err != nil {
			return err
		}
		defer client.Close()
	}

	link := newEditorLink()
	sopts := sessionOptions{renderer: link, forms: link, async: true}
	if client != nil {
		sopts.publisher = client
	}
	s, err := c.openSession(path, sopts)
	if err != nil {
		return err
	}
	defer s.stop()
	link.ed = s.ed

	st, err := c.openStore(ctx)
	if err != nil {
		c.Logger.Warn("snapshots disabled", "err", err)
		st = nil
	} else {
		defer st.Close()
	}

	if client != nil {
		go func() {
			if err := client.Run(ctx, s.ed.Listener()); err != nil && !errors.Is(err, context.Canceled) {
				c.Logger.Error("feed closed", "err", err)
			}
		}()
	}
	if st != nil && opts.restore {
		s.ed.Post(func() { c.restore(ctx, st, s) })
	}
	s.ed.Post(s.ed.Start)
	go s.ed.Run(ctx)

	m := newEditModel(ctx, s, st, cfg.Canvas.Width, cfg.Canvas.Height)
	m.doubleClick = cfg.Interaction.DoubleClick.Duration
	m.remote = client != nil

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseAllMotion(), tea.WithContext(ctx))
	go link.pump(ctx, p.Send)

	_, err = p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

func newEditModel(ctx context.Context, s *session, st store.Store, w, h float64) EditModel {
	return EditModel{
		ctx:     ctx,
		s:       s,
		store:   st,
		canvasW: w,
		canvasH: h,
		copy:    clipboard.WriteAll,
		focus:   -1,
	}
}

var _ engine.Renderer = (*editorLink)(nil)
