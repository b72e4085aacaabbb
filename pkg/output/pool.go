package output

import (
	"sync"

	"github.com/orneryd/pristine/pkg/alive"
	"github.com/orneryd/pristine/pkg/changestore"
	"github.com/orneryd/pristine/pkg/graph"
	"github.com/orneryd/pristine/pkg/render"
	"github.com/orneryd/pristine/pkg/store"
	"github.com/orneryd/pristine/pkg/workingcopy"
)

// renderJob is one file body waiting to be rendered to the working copy.
type renderJob struct {
	item OutputItem
	path string
}

// filePool is the worker pool spec.md §9 describes: a fixed set of
// goroutines draining a shared job channel, each rendering one file's
// alive subgraph independently. Workers never touch the tree/inodes
// tables, but they read the graph and, after a successful render, delete
// redundant forward PSEUDO edges from it; txnMu serializes every such use
// of the Txn, rendering included, so workers overlap only on the
// working-copy write.
type filePool struct {
	jobs  chan renderJob
	wg    sync.WaitGroup
	once  sync.Once
	txn   store.Txn
	txnMu sync.Mutex
	cs    changestore.Changestore
	repo  workingcopy.WorkingCopy

	mu        sync.Mutex
	conflicts []Conflict
	firstErr  error
}

func newPool(n int, txn store.Txn, cs changestore.Changestore, repo workingcopy.WorkingCopy) *filePool {
	p := &filePool{jobs: make(chan renderJob, 64), txn: txn, cs: cs, repo: repo}
	p.wg.Add(n)
	for i := 0; i < n; i++ {
		go p.worker()
	}
	return p
}

func (p *filePool) worker() {
	defer p.wg.Done()
	for job := range p.jobs {
		conflicts, err := p.renderOne(job)
		p.mu.Lock()
		p.conflicts = append(p.conflicts, conflicts...)
		if err != nil && p.firstErr == nil {
			p.firstErr = err
		}
		p.mu.Unlock()
	}
}

func (p *filePool) submit(job renderJob) {
	p.jobs <- job
}

func (p *filePool) closeJobs() {
	p.once.Do(func() { close(p.jobs) })
}

// stop is a defer-safe cleanup for the case Output returns early (an error
// mid-collection): it unblocks every worker without waiting for one to
// finish a job that was never submitted.
func (p *filePool) stop() {
	p.closeJobs()
}

// drain closes the job queue, waits for every in-flight render to finish,
// and returns every conflict surfaced plus the first error any worker hit.
func (p *filePool) drain() ([]Conflict, error) {
	p.closeJobs()
	p.wg.Wait()
	return p.conflicts, p.firstErr
}

func (p *filePool) renderOne(job renderJob) ([]Conflict, error) {
	p.txnMu.Lock()
	root, err := graph.FindBlock(p.txn, job.item.Pos)
	if err != nil {
		p.txnMu.Unlock()
		return nil, err
	}
	g := alive.Retrieve(p.txn, root)
	sccOf, sccs := alive.Tarjan(g)
	rootIdx, _ := g.IndexOf(root)
	path, forwardSCC := alive.BuildConflictTreeWithForward(g, sccOf, sccOf[rootIdx])
	resolver := changestore.ContentsResolver(p.txn, p.cs)

	buf := newReportingBuffer(job.path)
	renderErr := render.Render(p.txn, g, sccOf, sccs, path, resolver, buf)
	if renderErr == nil {
		// spec.md §4.3 rule 2: forward PSEUDO edges the conflict tree walk
		// found redundant are purged once the walk (and the rendering
		// derived from it) no longer needs the graph in its original shape.
		alive.RemoveForwardEdges(p.txn, alive.CollectForwardEdges(g, sccOf, forwardSCC))
	}
	p.txnMu.Unlock()
	if renderErr != nil {
		return nil, renderErr
	}

	w, err := p.repo.WriteFile(job.path)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(buf.Bytes()); err != nil {
		w.Close()
		return nil, err
	}
	return buf.conflicts, w.Close()
}
