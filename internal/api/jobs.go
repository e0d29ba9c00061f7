package api

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/talgya/zoneforge/internal/catalog"
	"github.com/talgya/zoneforge/internal/entropy"
	"github.com/talgya/zoneforge/internal/generator"
	"github.com/talgya/zoneforge/internal/template"
)

// Finished jobs beyond this count are forgotten oldest first; their maps stay
// available from the archive.
const maxRetainedJobs = 256

// DefaultRetries is how many further seeds a job tries after a failed run.
const DefaultRetries = 4

// JobStatus is the lifecycle state of a generation job.
type JobStatus string

const (
	JobQueued  JobStatus = "queued"
	JobRunning JobStatus = "running"
	JobDone    JobStatus = "done"
	JobFailed  JobStatus = "failed"
)

// Finished reports whether the job will not change any more.
func (s JobStatus) Finished() bool {
	return s == JobDone || s == JobFailed
}

// ErrUnknownJob is returned for job ids the manager does not hold.
var ErrUnknownJob = errors.New("unknown job")

// Archive stores finished maps. persistence.DB satisfies it.
type Archive interface {
	SaveMap(id string, res *generator.Result) error
}

// JobRequest describes one generation.
type JobRequest struct {
	Template *template.Template
	Size     int
	Seed     int64 // Zero picks a random seed
}

// JobEvent is published on every phase change and when a job finishes.
type JobEvent struct {
	Job    string    `json:"job"`
	Status JobStatus `json:"status"`
	Phase  string    `json:"phase"`
	Error  string    `json:"error,omitempty"`
	Time   time.Time `json:"time"`
}

// JobView is a snapshot of a job safe to hand out.
type JobView struct {
	ID        string    `json:"id"`
	Template  string    `json:"template"`
	Size      int       `json:"size"`
	Seed      int64     `json:"seed"` // Seed of the latest attempt
	Attempts  int       `json:"attempts"`
	Status    JobStatus `json:"status"`
	Phase     string    `json:"phase"`
	Error     string    `json:"error,omitempty"`
	Submitted time.Time `json:"submitted"`
	Finished  time.Time `json:"finished,omitempty"`
	Archived  bool      `json:"archived"`
}

type job struct {
	view   JobView
	tmpl   *template.Template
	result *generator.Result
	events []JobEvent
	subs   map[int]chan JobEvent
}

// JobManager runs generations on worker goroutines. The engine itself is
// single-threaded; each job owns its generator and context.
type JobManager struct {
	Settings generator.Settings // Base settings; Size and Seed come from each request

	// Retries is how many successive seeds a job tries after its requested
	// seed fails.
	Retries int

	catalog catalog.Catalog
	archive Archive
	slots   chan struct{}

	mu      sync.Mutex
	jobs    map[string]*job
	order   []string
	nextSub int
	wg      sync.WaitGroup
}

// NewJobManager creates a manager running at most workers generations at
// once. archive may be nil.
func NewJobManager(cat catalog.Catalog, archive Archive, workers int) *JobManager {
	if workers < 1 {
		workers = 1
	}
	return &JobManager{
		Settings: generator.DefaultSettings(),
		Retries:  DefaultRetries,
		catalog:  cat,
		archive:  archive,
		slots:    make(chan struct{}, workers),
		jobs:     make(map[string]*job),
	}
}

// Submit queues a generation and returns its initial view.
func (m *JobManager) Submit(req JobRequest) (JobView, error) {
	if req.Template == nil {
		return JobView{}, errors.New("submit: no template")
	}
	if req.Size <= 0 {
		return JobView{}, fmt.Errorf("submit: invalid size %d", req.Size)
	}
	if !req.Template.SupportsSize(req.Size) {
		return JobView{}, fmt.Errorf("submit: template %q does not support size %d", req.Template.Name, req.Size)
	}
	if err := generator.CheckGuards(req.Template, m.catalog); err != nil {
		return JobView{}, fmt.Errorf("submit: %w", err)
	}
	if req.Seed == 0 {
		req.Seed = entropy.NewSeed()
	}

	j := &job{
		view: JobView{
			ID:        uuid.NewString(),
			Template:  req.Template.Name,
			Size:      req.Size,
			Seed:      req.Seed,
			Status:    JobQueued,
			Phase:     generator.PhaseInit.String(),
			Submitted: time.Now(),
		},
		tmpl: req.Template,
		subs: make(map[int]chan JobEvent),
	}

	m.mu.Lock()
	m.jobs[j.view.ID] = j
	m.order = append(m.order, j.view.ID)
	m.publish(j)
	m.evict()
	view := j.view
	m.mu.Unlock()

	slog.Info("job queued", "job", view.ID, "template", view.Template, "size", view.Size, "seed", view.Seed)

	m.wg.Add(1)
	go m.run(j)
	return view, nil
}

func (m *JobManager) run(j *job) {
	defer m.wg.Done()
	m.slots <- struct{}{}
	defer func() { <-m.slots }()

	m.mu.Lock()
	j.view.Status = JobRunning
	m.publish(j)
	settings := m.Settings
	settings.Size = j.view.Size
	retries := max(m.Retries, 0)
	m.mu.Unlock()

	start := time.Now()
	var (
		res *generator.Result
		err error
	)
	for attempt := 0; attempt <= retries; attempt++ {
		m.mu.Lock()
		if attempt > 0 {
			j.view.Seed++
		}
		j.view.Attempts = attempt + 1
		settings.Seed = j.view.Seed
		m.mu.Unlock()

		gen := generator.NewMapGenerator(j.tmpl, m.catalog, settings)
		gen.OnPhase = func(p generator.Phase) {
			m.mu.Lock()
			j.view.Phase = p.String()
			m.publish(j)
			m.mu.Unlock()
		}
		if res, err = gen.Generate(); err == nil {
			break
		}
		slog.Debug("job attempt failed", "job", j.view.ID, "seed", settings.Seed, "error", err)
	}

	archived := false
	if err == nil && m.archive != nil {
		if aerr := m.archive.SaveMap(j.view.ID, res); aerr != nil {
			slog.Error("archive failed", "job", j.view.ID, "error", aerr)
		} else {
			archived = true
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	j.view.Finished = time.Now()
	j.view.Archived = archived
	if err != nil {
		j.view.Status = JobFailed
		j.view.Error = err.Error()
		slog.Warn("job failed", "job", j.view.ID, "phase", j.view.Phase, "error", err)
	} else {
		j.view.Status = JobDone
		j.result = res
		slog.Info("job done", "job", j.view.ID, "elapsed", time.Since(start).Round(time.Millisecond),
			"attempts", j.view.Attempts, "roads", humanize.Comma(int64(res.Roads)), "guards", len(res.Objects))
	}
	m.publish(j)
	for id, ch := range j.subs {
		close(ch)
		delete(j.subs, id)
	}
}

// publish records the job's current state as an event and fans it out.
// Callers hold m.mu.
func (m *JobManager) publish(j *job) {
	e := JobEvent{
		Job:    j.view.ID,
		Status: j.view.Status,
		Phase:  j.view.Phase,
		Error:  j.view.Error,
		Time:   time.Now(),
	}
	j.events = append(j.events, e)
	for _, ch := range j.subs {
		select {
		case ch <- e:
		default:
			slog.Warn("job subscriber lagging, event dropped", "job", j.view.ID)
		}
	}
}

// evict forgets the oldest finished jobs beyond the retention limit.
// Callers hold m.mu.
func (m *JobManager) evict() {
	for len(m.order) > maxRetainedJobs {
		evicted := false
		for i, id := range m.order {
			if m.jobs[id].view.Status.Finished() {
				delete(m.jobs, id)
				m.order = append(m.order[:i], m.order[i+1:]...)
				evicted = true
				break
			}
		}
		if !evicted {
			return
		}
	}
}

// Get returns a snapshot of the job.
func (m *JobManager) Get(id string) (JobView, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return JobView{}, false
	}
	return j.view, true
}

// Result returns the finished map of a successful job.
func (m *JobManager) Result(id string) (*generator.Result, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok || j.result == nil {
		return nil, false
	}
	return j.result, true
}

// Subscribe returns the events published so far and a channel carrying the
// rest. The channel is closed when the job finishes; for a finished job it
// is closed already. cancel must be called when the caller stops reading.
func (m *JobManager) Subscribe(id string) (backlog []JobEvent, events <-chan JobEvent, cancel func(), err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return nil, nil, nil, fmt.Errorf("job %s: %w", id, ErrUnknownJob)
	}
	backlog = append([]JobEvent(nil), j.events...)
	ch := make(chan JobEvent, (int(generator.PhaseDone)+1)*(max(m.Retries, 0)+1)+3)
	if j.view.Status.Finished() {
		close(ch)
		return backlog, ch, func() {}, nil
	}

	subID := m.nextSub
	m.nextSub++
	j.subs[subID] = ch
	cancel = func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if _, ok := j.subs[subID]; ok {
			delete(j.subs, subID)
			close(ch)
		}
	}
	return backlog, ch, cancel, nil
}

// Counts returns how many retained jobs are in each state.
func (m *JobManager) Counts() map[JobStatus]int {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := map[JobStatus]int{JobQueued: 0, JobRunning: 0, JobDone: 0, JobFailed: 0}
	for _, j := range m.jobs {
		counts[j.view.Status]++
	}
	return counts
}

// Wait blocks until every submitted job has finished.
func (m *JobManager) Wait() {
	m.wg.Wait()
}
