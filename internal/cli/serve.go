package cli

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/petrisync/pkg/engine"
	"github.com/matzehuels/petrisync/pkg/feed"
	"github.com/matzehuels/petrisync/pkg/render"
	"github.com/matzehuels/petrisync/pkg/store"
)

const shutdownTimeout = 5 * time.Second

type serveOpts struct {
	listen  string
	restore bool
	save    bool
}

func (c *CLI) serveCommand() *cobra.Command {
	opts := serveOpts{restore: true, save: true}

	cmd := &cobra.Command{
		Use:   "serve [file]",
		Short: "Serve a model and its live diagram over HTTP and websocket",
		Long: `Serve runs the editor headless. The model is exposed over a REST API and
a websocket feed; every refresh of the diagram is pushed to connected
clients. Without a file the model starts empty.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var path string
			if len(args) == 1 {
				path = args[0]
			}
			return c.runServe(cmd.Context(), path, opts)
		},
	}
	cmd.Flags().StringVar(&opts.listen, "listen", "", "listen address (default from config)")
	cmd.Flags().BoolVar(&opts.restore, "restore", opts.restore, "start from the saved snapshot")
	cmd.Flags().BoolVar(&opts.save, "save", opts.save, "save the layout on shutdown")
	return cmd
}

func (c *CLI) runServe(ctx context.Context, path string, opts serveOpts) error {
	cfg, err := c.config()
	if err != nil {
		return err
	}
	listen := opts.listen
	if listen == "" {
		listen = cfg.Feed.Listen
	}

	var srv *feed.Server
	s, err := c.openSession(path, sessionOptions{
		renderer: engine.RendererFunc(func(f *render.Frame) { srv.Render(f) }),
		async:    true,
	})
	if err != nil {
		return err
	}
	defer s.stop()

	srv = feed.NewServer(feed.ServerOptions{
		Model:       s.model,
		Username:    cfg.Feed.Username,
		Password:    cfg.Feed.Password,
		Subprotocol: cfg.Feed.Subprotocol,
		Logger:      c.Logger,
	})
	defer srv.Close()

	var st store.Store
	if opts.restore || opts.save {
		if err := spin(ctx, "Opening snapshot store...", func(ctx context.Context) error {
			st, err = c.openStore(ctx)
			return err
		}); err != nil {
			return err
		}
		defer st.Close()
	}
	if opts.restore {
		// Queued behind the replayed model, so every node exists.
		s.ed.Post(func() { c.restore(ctx, st, s) })
	}
	s.ed.Post(s.ed.Start)

	ln, err := net.Listen("tcp", listen)
	if err != nil {
		return err
	}
	printSuccess("Serving %s", s.name)
	printKeyValue("http", "http://"+ln.Addr().String()+"/api/diagram")
	printKeyValue("websocket", "ws://"+ln.Addr().String()+"/ws")

	err = serve(ctx, s.ed, srv, ln)

	// Run has returned, so the editor is ours again.
	if opts.save {
		saveCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if perr := st.Put(saveCtx, s.ed.Snapshot(s.name)); perr != nil {
			c.Logger.Warn("could not save snapshot", "name", s.name, "err", perr)
		} else {
			printDetail("saved snapshot %s", s.name)
		}
	}
	return err
}

// serve runs the editor loop and the HTTP server until ctx ends or the
// server fails.
func serve(ctx context.Context, ed *engine.Editor, h http.Handler, ln net.Listener) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	hs := &http.Server{Handler: h, ReadHeaderTimeout: 10 * time.Second}
	httpErr := make(chan error, 1)
	go func() {
		err := hs.Serve(ln)
		cancel()
		httpErr <- err
	}()

	runErr := ed.Run(ctx)

	shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stop()
	_ = hs.Shutdown(shutdownCtx)

	if err := <-httpErr; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	if errors.Is(runErr, context.Canceled) {
		return nil
	}
	return runErr
}
