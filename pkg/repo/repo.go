// Package repo is the CLI-facing orchestration layer: it opens a store,
// changestore and working copy together per pkg/config.Config, and wires
// pkg/record, pkg/apply, pkg/unrecord, pkg/channel and pkg/output into the
// small set of operations a command-line front end needs, the way the
// teacher's pkg/nornicdb.Open/DB type wraps its own storage engine for
// cmd/nornicdb to drive.
package repo

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/orneryd/pristine/pkg/alive"
	"github.com/orneryd/pristine/pkg/apply"
	"github.com/orneryd/pristine/pkg/changestore"
	"github.com/orneryd/pristine/pkg/channel"
	"github.com/orneryd/pristine/pkg/config"
	"github.com/orneryd/pristine/pkg/output"
	"github.com/orneryd/pristine/pkg/pristine"
	"github.com/orneryd/pristine/pkg/record"
	"github.com/orneryd/pristine/pkg/render"
	"github.com/orneryd/pristine/pkg/store"
	"github.com/orneryd/pristine/pkg/telemetry"
	"github.com/orneryd/pristine/pkg/unrecord"
	"github.com/orneryd/pristine/pkg/workingcopy"
)

// Repo bundles one repository's store, change storage and working copy.
type Repo struct {
	cfg  *config.Config
	s    store.Store
	cs   changestore.Changestore
	wc   workingcopy.WorkingCopy
	tel  *telemetry.Telemetry
	root string
}

// Open opens (creating on first use) the repository rooted at root using
// cfg's store/output/log settings. Changes are kept under
// root/.pristine/changes; the working copy is root itself.
func Open(root string, cfg *config.Config) (*Repo, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s, err := cfg.OpenStore()
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}
	changesDir := filepath.Join(root, ".pristine", "changes")
	if err := os.MkdirAll(changesDir, 0o755); err != nil {
		s.Close()
		return nil, fmt.Errorf("creating changes dir: %w", err)
	}
	cs, err := changestore.NewFilesystemChangestore(changesDir)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("opening changestore: %w", err)
	}
	return &Repo{
		cfg:  cfg,
		s:    s,
		cs:   cs,
		wc:   workingcopy.NewFilesystem(root),
		tel:  telemetry.New(telemetry.NewStdLogger()),
		root: root,
	}, nil
}

// Close releases the underlying store.
func (r *Repo) Close() error { return r.s.Close() }

// RecordFile diffs path's current content on disk against channelName's
// alive subgraph rooted at pristine.RootVertex, builds the resulting
// Change, saves it to the changestore, and applies it to channelName.
//
// This CLI tracks a single flat text blob per channel rather than a real
// filesystem tree — pkg/record's Record operates against one root Vertex,
// and nothing yet builds the FOLDER-edge name-vertex structures
// pkg/output's tree walk expects (that wiring is the planned next step);
// until then, "record" and "checkout" round-trip one file's content
// through the pristine, which is enough to exercise record/apply/unrecord/
// channel end to end.
func (r *Repo) RecordFile(ctx context.Context, channelName, path string) (pristine.Hash, error) {
	content, err := os.ReadFile(filepath.Join(r.root, path))
	if err != nil {
		return pristine.Hash{}, fmt.Errorf("reading %s: %w", path, err)
	}

	var hash pristine.Hash
	err = store.WithWrite(ctx, r.s, func(txn store.Txn) error {
		resolver := changestore.ContentsResolver(txn, r.cs)
		c, err := record.Record(txn, pristine.RootVertex, content, resolver)
		if err != nil {
			return err
		}
		if len(c.Atoms) == 0 {
			return fmt.Errorf("no changes to record in %s", path)
		}

		ids := channel.ChangesOn(txn, channelName)
		c.Dependencies = make([]pristine.Hash, 0, len(ids))
		for _, id := range ids {
			h, ok := channel.HashOf(txn, id)
			if ok {
				c.Dependencies = append(c.Dependencies, h)
			}
		}
		hash, err = r.cs.SaveChange(c)
		return err
	})
	if err != nil {
		return pristine.Hash{}, err
	}

	c, err := r.cs.GetChange(hash)
	if err != nil {
		return pristine.Hash{}, err
	}
	if _, err := apply.Apply(ctx, r.s, r.tel, channelName, c); err != nil {
		return pristine.Hash{}, err
	}
	return hash, nil
}

// Unrecord removes h from channelName, undoing every atom it applied.
func (r *Repo) Unrecord(ctx context.Context, channelName string, h pristine.Hash) error {
	return unrecord.Unrecord(ctx, r.s, r.cs, r.tel, channelName, h)
}

// CreateChannel reports an error if name already has changes recorded on
// it; otherwise it succeeds without writing anything; a channel name with
// no changeset rows already behaves as a valid empty channel (spec.md
// §3.4), so there is nothing to persist until the first change is
// recorded on it.
func (r *Repo) CreateChannel(ctx context.Context, name string) error {
	return store.WithRead(ctx, r.s, func(txn store.Txn) error {
		if len(channel.ChangesOn(txn, name)) > 0 {
			return fmt.Errorf("channel %q already has changes recorded on it", name)
		}
		return nil
	})
}

// ForkChannel creates to as a copy of from's current changeset.
func (r *Repo) ForkChannel(ctx context.Context, from, to string) error {
	return store.WithWrite(ctx, r.s, func(txn store.Txn) error {
		channel.Fork(txn, from, to)
		return nil
	})
}

// LogEntry is one change reported by Log.
type LogEntry struct {
	Hash         pristine.Hash
	Dependencies []pristine.Hash
}

// Log lists every change currently on channelName.
func (r *Repo) Log(ctx context.Context, channelName string) ([]LogEntry, error) {
	var entries []LogEntry
	err := store.WithRead(ctx, r.s, func(txn store.Txn) error {
		for _, id := range channel.ChangesOn(txn, channelName) {
			h, ok := channel.HashOf(txn, id)
			if !ok {
				continue
			}
			header, err := r.cs.GetHeader(h)
			if err != nil {
				return err
			}
			entries = append(entries, LogEntry{Hash: h, Dependencies: header.Dependencies})
		}
		return nil
	})
	return entries, err
}

// Checkout writes channelName's alive subgraph back onto the working copy
// via pkg/output, returning any conflicts surfaced.
func (r *Repo) Checkout(ctx context.Context, channelName string, nameConflicts bool) ([]output.Conflict, error) {
	opts := output.Options{
		OutputNameConflicts: nameConflicts || r.cfg.Output.OutputNameConflicts,
		NWorkers:            r.cfg.Output.Workers,
	}
	return output.Output(ctx, r.s, r.cs, r.wc, r.tel, channelName, opts)
}

// RenderChannel renders channelName's alive subgraph rooted at
// pristine.RootVertex back into text, for the single-blob tracking mode
// RecordFile uses (see its doc comment) without touching the working copy
// or pkg/output's tree machinery.
func (r *Repo) RenderChannel(ctx context.Context, channelName string) ([]byte, error) {
	var out []byte
	err := store.WithRead(ctx, r.s, func(txn store.Txn) error {
		resolver := changestore.ContentsResolver(txn, r.cs)
		g := alive.Retrieve(txn, pristine.RootVertex)
		sccOf, sccs := alive.Tarjan(g)
		rootIdx, _ := g.IndexOf(pristine.RootVertex)
		path := alive.BuildConflictTree(g, sccOf, sccOf[rootIdx])

		buf := render.NewTextBuffer()
		if err := render.Render(txn, g, sccOf, sccs, path, resolver, buf); err != nil {
			return err
		}
		out = buf.Bytes()
		return nil
	})
	return out, err
}
