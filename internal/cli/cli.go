// Package cli implements the petrisync command-line interface.
//
// # Commands
//
//   - edit: interactive terminal editor for a model document
//   - render: lay out a document and export SVG, DOT, PNG or JSON
//   - serve: run the editor headless behind the feed server
//   - check: validate a document against the synchronizer rules
//   - snapshot: list, show and delete saved layouts
//   - completion: shell completion scripts
//
// All commands accept --config and --verbose (-v).
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/petrisync/internal/config"
	"github.com/matzehuels/petrisync/pkg/buildinfo"
	"github.com/matzehuels/petrisync/pkg/engine"
	"github.com/matzehuels/petrisync/pkg/model"
	"github.com/matzehuels/petrisync/pkg/store"
	"github.com/matzehuels/petrisync/pkg/synchronizer"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// defaultSettleTicks bounds headless layout runs.
const defaultSettleTicks = 600

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	configPath string
	cfg        *config.Config
}

// New creates a CLI writing logs to w.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "petrisync",
		Short:        "Petrisync edits Petri-net diagrams bound to a live model",
		Long:         `Petrisync keeps a Petri-net diagram of places, transitions and arcs in sync with an authoritative model, lays it out with a force simulation and lets you edit it from the terminal or over a websocket feed.`,
		Version:      buildinfo.Get().Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_, err := c.config()
			return err
		},
	}
	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default "+config.Path()+")")

	root.AddCommand(c.editCommand())
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.checkCommand())
	root.AddCommand(c.snapshotCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// config loads the configuration once.
func (c *CLI) config() (*config.Config, error) {
	if c.cfg != nil {
		return c.cfg, nil
	}
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return nil, err
	}
	c.cfg = cfg
	return cfg, nil
}

// openStore opens the configured snapshot backend.
func (c *CLI) openStore(ctx context.Context) (store.Store, error) {
	cfg, err := c.config()
	if err != nil {
		return nil, err
	}
	return store.Open(ctx, cfg.StoreConfig())
}

// session is a loaded document bound to an editor.
type session struct {
	path  string
	name  string
	doc   *model.Document
	model *model.Store
	ed    *engine.Editor
	stop  func()
}

type sessionOptions struct {
	renderer  engine.Renderer
	forms     synchronizer.FormSink
	publisher engine.Publisher
	// async subscribes through the editor queue, for sessions whose
	// editor runs in [engine.Editor.Run] while others write the model.
	async bool
}

// openSession loads path into a fresh model store and an editor
// subscribed to it. An empty path starts an empty model.
func (c *CLI) openSession(path string, opts sessionOptions) (*session, error) {
	cfg, err := c.config()
	if err != nil {
		return nil, err
	}
	doc := &model.Document{}
	if path != "" {
		if doc, err = model.LoadFile(path); err != nil {
			return nil, err
		}
	}
	m := model.NewStore()
	if err := doc.Populate(m); err != nil {
		return nil, fmt.Errorf("populate %s: %w", path, err)
	}

	var pub engine.Publisher = m
	if opts.publisher != nil {
		pub = opts.publisher
	}
	params := cfg.LayoutParams()
	ed := engine.New(engine.Options{
		Shapes:    cfg.ShapeRegistry(),
		Origin:    cfg.Origin(),
		Layout:    &params,
		Trigger:   cfg.DragTrigger(),
		DeadZone:  cfg.Interaction.DeadZone,
		Renderer:  opts.renderer,
		Publisher: pub,
		Forms:     opts.forms,
		Logger:    c.Logger,
	})
	var l model.Listener = ed
	if opts.async {
		l = ed.Listener()
	}
	stop := m.Subscribe(l)
	m.Replay(l)

	return &session{
		path:  path,
		name:  diagramName(path, doc),
		doc:   doc,
		model: m,
		ed:    ed,
		stop:  stop,
	}, nil
}

// restore applies the saved layout of s, if any.
func (c *CLI) restore(ctx context.Context, st store.Store, s *session) bool {
	snap, err := st.Get(ctx, s.name)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			c.Logger.Warn("could not load snapshot", "name", s.name, "err", err)
		}
		return false
	}
	s.ed.ApplySnapshot(snap)
	return true
}

// settle runs the layout until it stops or maxTicks is reached.
func settle(ed *engine.Editor, maxTicks int) int {
	ed.Start()
	n := 0
	for n < maxTicks && ed.Tick() {
		n++
	}
	ed.Simulation().Stop()
	return n
}

// diagramName is the snapshot key of a document: its name, or the file
// name without extension.
func diagramName(path string, doc *model.Document) string {
	if doc != nil && doc.Name != "" {
		return doc.Name
	}
	if path == "" {
		return "untitled"
	}
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
