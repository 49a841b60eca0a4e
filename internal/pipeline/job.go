package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/procureiq/deepresearch/internal/model"
	"github.com/procureiq/deepresearch/internal/visual"
)

// eventBuffer bounds each subscriber channel. A slow or absent consumer
// drops events; snapshots remain authoritative.
const eventBuffer = 64

// job is the mutable state of one deep research run. All mutation happens
// under mu; the run goroutine is the only writer once processing starts.
type job struct {
	mu sync.Mutex

	id        string
	state     model.JobState
	query     model.Query
	studyType model.StudyType
	records   []visual.StructuredRecord
	questions []model.ClarifyingQuestion

	progress model.CommandCenterProgress
	report   *model.Report
	failure  *model.JobFailure

	cancel context.CancelFunc
	seq    int
	subs   map[int]chan model.ProgressEvent
	nextID int
}

func newJob(id string, query model.Query, studyType model.StudyType, records []visual.StructuredRecord) *job {
	return &job{
		id:        id,
		state:     model.JobIntake,
		query:     query,
		studyType: studyType,
		records:   records,
		progress: model.CommandCenterProgress{
			Stage:     model.StagePlan,
			Phases:    model.PhasesFor(model.StagePlan),
			StartedAt: time.Now().UTC(),
		},
		subs: make(map[int]chan model.ProgressEvent),
	}
}

// snapshotLocked builds the caller-facing view. Callers must hold mu.
func (j *job) snapshotLocked() model.DeepResearchResponse {
	p := j.progress
	p.ElapsedMS = time.Since(p.StartedAt).Milliseconds()

	// Copy grow-only slices so observers never see later mutation.
	p.Phases = append([]model.StagePhase(nil), p.Phases...)
	p.CompletedStages = append([]model.Stage(nil), p.CompletedStages...)
	p.Agents = append([]model.ResearchAgent(nil), p.Agents...)
	p.InsightStream = append([]string(nil), p.InsightStream...)
	if p.Synthesis != nil {
		s := *p.Synthesis
		p.Synthesis = &s
	}

	return model.DeepResearchResponse{
		JobID:     j.id,
		State:     j.state,
		StudyType: j.studyType,
		Questions: j.questions,
		Progress:  &p,
		Report:    j.report,
		Error:     j.failure,
	}
}

// emitLocked pushes one event to all subscribers. Seq is monotone per job;
// delivery is non-blocking and events are dropped for full subscribers.
func (j *job) emitLocked(typ model.EventType) {
	j.seq++
	ev := model.ProgressEvent{
		Type:      typ,
		JobID:     j.id,
		Seq:       j.seq,
		Timestamp: time.Now().UTC(),
		Data:      j.snapshotLocked(),
	}
	for _, ch := range j.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

func (j *job) emit(typ model.EventType) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.emitLocked(typ)
}

// subscribe registers an observer channel and returns an unsubscribe func.
func (j *job) subscribe() (<-chan model.ProgressEvent, func()) {
	j.mu.Lock()
	defer j.mu.Unlock()
	id := j.nextID
	j.nextID++
	ch := make(chan model.ProgressEvent, eventBuffer)
	j.subs[id] = ch
	return ch, func() {
		j.mu.Lock()
		defer j.mu.Unlock()
		if c, ok := j.subs[id]; ok {
			delete(j.subs, id)
			close(c)
		}
	}
}

// phase helpers. All assume mu is held.

func (j *job) phaseLocked(id string) *model.StagePhase {
	for i := range j.progress.Phases {
		if j.progress.Phases[i].ID == id {
			return &j.progress.Phases[i]
		}
	}
	return nil
}

func (j *job) startPhaseLocked(id, detail string) {
	if p := j.phaseLocked(id); p != nil {
		now := time.Now().UTC()
		p.Status = model.PhaseActive
		p.StartedAt = &now
		p.Detail = detail
	}
}

func (j *job) finishPhaseLocked(id string, status model.PhaseStatus, detail string) {
	if p := j.phaseLocked(id); p != nil {
		now := time.Now().UTC()
		p.Status = status
		p.CompletedAt = &now
		if detail != "" {
			p.Detail = detail
		}
	}
}

// advanceStageLocked moves the job to the next canonical stage. Transitions
// are forward-only; a request to move backwards is ignored.
func (j *job) advanceStageLocked(next model.Stage) bool {
	if model.StageIndex(next) <= model.StageIndex(j.progress.Stage) {
		return false
	}
	j.progress.CompletedStages = append(j.progress.CompletedStages, j.progress.Stage)
	j.progress.Stage = next
	j.progress.Phases = model.PhasesFor(next)
	return true
}

func (j *job) insightLocked(line string) {
	j.progress.InsightStream = append(j.progress.InsightStream, line)
}
