package world

import (
	"runtime"
	"sync"

	"github.com/pthm-cable/brine/fluid"
)

// islandJob is a contiguous range of island indexes for one worker.
type islandJob struct {
	start, end int
	dt         float32
}

// islandPool runs island updates on persistent workers. Islands are
// disjoint by construction, so bodies in different islands never read
// or contest the same neighborhood; each island gets its own impulse
// recorder, and the recorders replay in island order after the join so
// the fluid sees the same impulse sequence a serial walk would produce.
type islandPool struct {
	workers  int
	workChan chan islandJob
	doneChan chan struct{}
	stopChan chan struct{}
	wg       sync.WaitGroup
	running  bool

	// Set before dispatch each run, read-only while workers are busy.
	bodies    []Body
	islands   [][]int32
	recorders []impulseRecorder
}

func newIslandPool(workers int) *islandPool {
	if workers < 1 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &islandPool{workers: workers}
}

func (p *islandPool) start() {
	if p.running {
		return
	}
	p.workChan = make(chan islandJob, p.workers)
	p.doneChan = make(chan struct{}, p.workers)
	p.stopChan = make(chan struct{})
	p.running = true

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

func (p *islandPool) stop() {
	if !p.running {
		return
	}
	close(p.stopChan)
	p.wg.Wait()
	close(p.workChan)
	close(p.doneChan)
	p.running = false
}

func (p *islandPool) worker() {
	defer p.wg.Done()
	for {
		select {
		case <-p.stopChan:
			return
		case job, ok := <-p.workChan:
			if !ok {
				return
			}
			for i := job.start; i < job.end; i++ {
				rec := &p.recorders[i]
				for _, bi := range p.islands[i] {
					p.bodies[bi].UpdateSelf(job.dt, rec)
				}
			}
			p.doneChan <- struct{}{}
		}
	}
}

// run updates every body across the worker pool, one recorder per
// island, then merges the queued fluid impulses in island order.
func (p *islandPool) run(fld fluid.Backend, bodies []Body, islands [][]int32, dt float32) {
	p.start()
	p.bodies = bodies
	p.islands = islands

	for len(p.recorders) < len(islands) {
		p.recorders = append(p.recorders, impulseRecorder{})
	}
	active := p.recorders[:len(islands)]
	for i := range active {
		active[i].backend = fld
		active[i].reset()
	}

	// At most one chunk per worker, so the done channel never backs up.
	chunk := (len(islands) + p.workers - 1) / p.workers
	dispatched := 0
	for start := 0; start < len(islands); start += chunk {
		end := min(start+chunk, len(islands))
		p.workChan <- islandJob{start: start, end: end, dt: dt}
		dispatched++
	}
	for i := 0; i < dispatched; i++ {
		<-p.doneChan
	}

	for i := range active {
		active[i].replay()
	}

	p.bodies = nil
	p.islands = nil
}
