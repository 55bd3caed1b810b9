package orchestrator

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Smallzoamz/Bonchon-Studio/internal/infrastructure/monitoring"
	"github.com/Smallzoamz/Bonchon-Studio/internal/shared/id"
	"github.com/Smallzoamz/Bonchon-Studio/internal/shared/types"
)

// State is the lifecycle position of an app id
type State string

const (
	StateIdle         State = "idle"
	StateDownloading  State = "downloading"
	StateExtracting   State = "extracting"
	StatePlacing      State = "placing"
	StateUninstalling State = "uninstalling"
)

// job is one run for one app id
type job struct {
	id        id.JobID
	appID     string
	op        types.Operation
	started   time.Time
	ctx       context.Context
	cancel    context.CancelFunc
	cancelled atomic.Bool
	timer     *monitoring.Timer

	mu    sync.Mutex
	state State // Protected by mu
}

func (j *job) setState(s State) {
	j.mu.Lock()
	j.state = s
	j.mu.Unlock()
}

func (j *job) currentState() State {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.state
}

// jobTable enforces one job per app id
type jobTable struct {
	mu   sync.Mutex
	jobs map[string]*job // Protected by mu
}

func newJobTable() *jobTable {
	return &jobTable{jobs: make(map[string]*job)}
}

// claim registers j unless its app id already has a job
func (t *jobTable) claim(j *job) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, busy := t.jobs[j.appID]; busy {
		return false
	}
	t.jobs[j.appID] = j
	return true
}

// release removes j if it still owns its app id
func (t *jobTable) release(j *job) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.jobs[j.appID] == j {
		delete(t.jobs, j.appID)
	}
}

func (t *jobTable) get(appID string) (*job, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	j, ok := t.jobs[appID]
	return j, ok
}

func (t *jobTable) ids() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	ids := make([]string, 0, len(t.jobs))
	for appID := range t.jobs {
		ids = append(ids, appID)
	}
	sort.Strings(ids)
	return ids
}

func (t *jobTable) all() []*job {
	t.mu.Lock()
	defer t.mu.Unlock()
	jobs := make([]*job, 0, len(t.jobs))
	for _, j := range t.jobs {
		jobs = append(jobs, j)
	}
	return jobs
}
