package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/abhisek/skillpath/internal/catalog"
	"github.com/abhisek/skillpath/internal/mastery"
	"github.com/abhisek/skillpath/internal/predictor"
	"github.com/abhisek/skillpath/internal/question"
	"github.com/abhisek/skillpath/internal/store"
)

const tracerName = "github.com/abhisek/skillpath/internal/session"

// snapshotRetention is how many standings snapshots are kept per learner.
const snapshotRetention = 20

// Config wires a Manager to its collaborators. Catalog, Predictor and
// Questions are required.
type Config struct {
	Catalog   *catalog.Catalog
	Predictor predictor.Predictor
	Questions question.Catalog

	// Updater holds the step sizes; nil uses mastery.DefaultUpdater.
	Updater *mastery.Updater
	Fanout  predictor.FanoutOptions

	Recorder  Recorder
	Snapshots store.SnapshotRepo
	Metrics   Metrics
	Logger    *slog.Logger
	Tracer    trace.Tracer

	// Rand seeds question picks; nil uses the global source.
	Rand *rand.Rand
}

// Manager owns every learner's Session. The map lock only guards lookups;
// work on a session happens under that session's own lock.
type Manager struct {
	catalog   *catalog.Catalog
	predictor predictor.Predictor
	questions question.Catalog
	selector  *Selector
	updater   mastery.Updater
	fanout    predictor.FanoutOptions

	recorder  Recorder
	snapshots store.SnapshotRepo
	metrics   Metrics
	logger    *slog.Logger
	tracer    trace.Tracer
	now       func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session
	creating singleflight.Group
}

// NewManager validates cfg and returns a Manager with no sessions.
func NewManager(cfg Config) (*Manager, error) {
	switch {
	case cfg.Catalog == nil:
		return nil, errors.New("session manager: catalog is required")
	case cfg.Predictor == nil:
		return nil, errors.New("session manager: predictor is required")
	case cfg.Questions == nil:
		return nil, errors.New("session manager: question catalog is required")
	}

	updater := mastery.DefaultUpdater()
	if cfg.Updater != nil {
		updater = *cfg.Updater
	}
	m := &Manager{
		catalog:   cfg.Catalog,
		predictor: cfg.Predictor,
		questions: cfg.Questions,
		selector:  NewSelector(cfg.Questions, cfg.Rand),
		updater:   updater,
		fanout:    cfg.Fanout,
		recorder:  cfg.Recorder,
		snapshots: cfg.Snapshots,
		metrics:   cfg.Metrics,
		logger:    cfg.Logger,
		tracer:    cfg.Tracer,
		now:       time.Now,
		sessions:  make(map[string]*Session),
	}
	if m.metrics == nil {
		m.metrics = nopMetrics{}
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	if m.tracer == nil {
		m.tracer = otel.Tracer(tracerName)
	}
	return m, nil
}

// Catalog returns the skill and learner catalog the manager was built with.
func (m *Manager) Catalog() *catalog.Catalog { return m.catalog }

// Initialize queries the predictor for every skill and installs the result
// as learnerName's session with an empty answered set. It is all-or-nothing:
// on failure the learner keeps whatever session it had before.
func (m *Manager) Initialize(ctx context.Context, learnerName string) (*Session, error) {
	return m.initialize(ctx, learnerName, store.ActionInitialize, false)
}

// Reset is Initialize for a learner who already practiced: mastery is
// re-predicted from scratch and answered questions become eligible again.
func (m *Manager) Reset(ctx context.Context, learnerName string) (*Session, error) {
	return m.initialize(ctx, learnerName, store.ActionReset, false)
}

// Ensure returns the learner's session, initializing one if needed.
// Concurrent callers for the same learner share one initialization, and a
// session that appears while predicting is returned untouched.
func (m *Manager) Ensure(ctx context.Context, learnerName string) (*Session, error) {
	if sess, err := m.Session(learnerName); err == nil {
		return sess, nil
	}
	v, err, _ := m.creating.Do(learnerName, func() (any, error) {
		if sess, err := m.Session(learnerName); err == nil {
			return sess, nil
		}
		return m.initialize(ctx, learnerName, store.ActionInitialize, true)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Session), nil
}

// Session returns the active session of learnerName or ErrNoSession.
func (m *Manager) Session(learnerName string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sess, ok := m.sessions[learnerName]
	if !ok {
		return nil, fmt.Errorf("learner %q: %w", learnerName, ErrNoSession)
	}
	return sess, nil
}

// Active returns the number of live sessions.
func (m *Manager) Active() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// initialize predicts a fresh state and commits it. With keepExisting a
// session installed meanwhile wins and the prediction is discarded.
func (m *Manager) initialize(ctx context.Context, learnerName, kind string, keepExisting bool) (*Session, error) {
	ctx, span := m.tracer.Start(ctx, "session.initialize",
		trace.WithAttributes(attribute.String("learner", learnerName), attribute.String("kind", kind)))
	defer span.End()

	learner, err := m.catalog.Learner(learnerName)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "unknown learner")
		return nil, err
	}

	state, err := m.predict(ctx, learner)
	if err != nil {
		m.metrics.PredictorFailed()
		span.RecordError(err)
		span.SetStatus(codes.Error, "predictor unavailable")
		m.logger.ErrorContext(ctx, "session initialization failed",
			"learner", learner.Name, "kind", kind, "error", err)
		return nil, err
	}

	id := uuid.NewString()
	now := m.now()

	sess, installed := m.commit(learner, id, state, now, keepExisting)
	if !installed {
		span.SetAttributes(attribute.Bool("discarded", true))
		m.logger.DebugContext(ctx, "session already present, prediction discarded", "learner", learner.Name)
		return sess, nil
	}

	standings := state.Snapshot()
	span.SetAttributes(attribute.String("session_id", id))
	m.metrics.SessionInitialized(kind)
	m.metrics.Standings(learner.Name, standings)
	m.logger.InfoContext(ctx, "session initialized",
		"learner", learner.Name, "session_id", id, "kind", kind, "skills", state.Len())
	m.recordSession(ctx, store.SessionEventData{SessionID: id, Learner: learner.Name, Action: kind})

	return sess, nil
}

// commit installs state as learner's session. An existing session is
// re-installed in place unless keepExisting is set, in which case it is
// returned with false. A session ended concurrently is replaced by
// a new one.
func (m *Manager) commit(learner catalog.Learner, id string, state *mastery.State, now time.Time, keepExisting bool) (*Session, bool) {
	for {
		m.mu.Lock()
		sess, exists := m.sessions[learner.Name]
		if !exists {
			sess = &Session{Learner: learner}
			sess.install(id, state, now)
			m.sessions[learner.Name] = sess
			m.mu.Unlock()
			return sess, true
		}
		m.mu.Unlock()

		if keepExisting {
			return sess, false
		}
		sess.mu.Lock()
		if !sess.ended {
			sess.install(id, state, now)
			sess.mu.Unlock()
			return sess, true
		}
		sess.mu.Unlock()
	}
}

// predict builds a complete mastery state for learner or fails without
// partial results.
func (m *Manager) predict(ctx context.Context, learner catalog.Learner) (*mastery.State, error) {
	skills := m.catalog.Skills()
	values, err := predictor.All(ctx, m.predictor, learner, skills, m.fanout)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPredictorUnavailable, err)
	}

	entries := make([]mastery.Entry, len(skills))
	for i, skill := range skills {
		entries[i] = mastery.Entry{Skill: skill.Name, Probability: values[i]}
	}
	state, err := mastery.NewState(entries)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPredictorUnavailable, err)
	}
	return state, nil
}

// Next is the result of NextQuestion.
type Next struct {
	SessionID string
	Selection
}

// NextQuestion selects the next question for learnerName. A Complete
// selection is a normal outcome, recomputed on every call.
func (m *Manager) NextQuestion(ctx context.Context, learnerName string) (Next, error) {
	ctx, span := m.tracer.Start(ctx, "session.next_question",
		trace.WithAttributes(attribute.String("learner", learnerName)))
	defer span.End()

	sess, err := m.Session(learnerName)
	if err != nil {
		span.RecordError(err)
		return Next{}, err
	}

	sess.mu.Lock()
	if sess.ended {
		sess.mu.Unlock()
		err := fmt.Errorf("learner %q: %w", learnerName, ErrNoSession)
		span.RecordError(err)
		return Next{}, err
	}
	sel, err := m.selector.Next(ctx, sess.state, sess.answered)
	if err != nil {
		sess.mu.Unlock()
		span.RecordError(err)
		span.SetStatus(codes.Error, "selection failed")
		return Next{}, err
	}
	id := sess.id
	justCompleted := sel.Complete && sess.status != StatusComplete
	if sel.Complete {
		sess.status = StatusComplete
	} else {
		sess.status = StatusReady
		sess.stats.Served++
	}
	stats := sess.stats
	started := sess.startedAt
	sess.mu.Unlock()

	span.SetAttributes(attribute.String("session_id", id), attribute.Bool("complete", sel.Complete))

	if sel.Complete {
		if justCompleted {
			m.metrics.SessionComplete()
			m.logger.InfoContext(ctx, "session complete",
				"learner", learnerName, "session_id", id, "answered", stats.Answered, "correct", stats.Correct)
			m.recordSession(ctx, store.SessionEventData{
				SessionID:       id,
				Learner:         learnerName,
				Action:          store.ActionComplete,
				QuestionsServed: stats.Served,
				CorrectAnswers:  stats.Correct,
				DurationSecs:    int(m.now().Sub(started).Seconds()),
			})
			m.saveSnapshot(ctx, id, learnerName, sel.Standings)
		}
		return Next{SessionID: id, Selection: sel}, nil
	}

	span.SetAttributes(attribute.Int("question_id", sel.Question.ID), attribute.String("skill", sel.Question.Skill))
	m.metrics.QuestionServed(sel.Question.Skill)
	m.logger.DebugContext(ctx, "question served",
		"learner", learnerName, "session_id", id, "question_id", sel.Question.ID, "skill", sel.Question.Skill)
	return Next{SessionID: id, Selection: sel}, nil
}

// Result is the outcome of a submitted answer.
type Result struct {
	SessionID     string
	QuestionID    int
	Skill         string
	Correct       bool
	CorrectAnswer string
	Adjustment    mastery.Adjustment
	Standings     []mastery.Entry
}

// Verdict renders Correct as "correct" or "incorrect".
func (r Result) Verdict() string {
	if r.Correct {
		return "correct"
	}
	return "incorrect"
}

// SubmitAnswer grades answer against question questionID, records the id as
// answered and moves the mastery of the question's skill. Unknown ids fail
// with ErrQuestionNotFound and change nothing. A question whose skill is not
// tracked is still recorded as answered.
func (m *Manager) SubmitAnswer(ctx context.Context, learnerName string, questionID int, answer string) (Result, error) {
	ctx, span := m.tracer.Start(ctx, "session.submit_answer",
		trace.WithAttributes(attribute.String("learner", learnerName), attribute.Int("question_id", questionID)))
	defer span.End()

	sess, err := m.Session(learnerName)
	if err != nil {
		span.RecordError(err)
		return Result{}, err
	}

	q, err := m.questions.FindByID(ctx, questionID)
	if err != nil {
		span.RecordError(err)
		if errors.Is(err, question.ErrNotFound) {
			return Result{}, fmt.Errorf("%w: %w", ErrQuestionNotFound, err)
		}
		span.SetStatus(codes.Error, "question lookup failed")
		return Result{}, fmt.Errorf("find question %d: %w", questionID, err)
	}

	correct := question.Check(q, answer)

	sess.mu.Lock()
	if sess.ended {
		sess.mu.Unlock()
		err := fmt.Errorf("learner %q: %w", learnerName, ErrNoSession)
		span.RecordError(err)
		return Result{}, err
	}
	sess.answered.Add(q.ID)
	adj, err := m.updater.Apply(sess.state, q.Skill, correct)
	if err != nil {
		sess.mu.Unlock()
		span.RecordError(err)
		span.SetStatus(codes.Error, "update failed")
		return Result{}, err
	}
	sess.stats.Answered++
	if correct {
		sess.stats.Correct++
	}
	res := Result{
		SessionID:     sess.id,
		QuestionID:    q.ID,
		Skill:         q.Skill,
		Correct:       correct,
		CorrectAnswer: q.CorrectAnswer,
		Adjustment:    adj,
		Standings:     sess.state.Snapshot(),
	}
	sess.mu.Unlock()

	span.SetAttributes(attribute.String("session_id", res.SessionID), attribute.Bool("correct", correct))
	m.metrics.AnswerApplied(q.Skill, correct)

	if adj.Tracked {
		m.metrics.Standings(learnerName, res.Standings)
		m.logger.InfoContext(ctx, "answer applied",
			"learner", learnerName, "session_id", res.SessionID, "question_id", q.ID,
			"skill", q.Skill, "verdict", res.Verdict(), "before", adj.Before, "after", adj.After)
	} else {
		m.logger.WarnContext(ctx, "answer for untracked skill, mastery unchanged",
			"learner", learnerName, "session_id", res.SessionID, "question_id", q.ID, "skill", q.Skill)
	}

	if m.recorder != nil {
		err := m.recorder.AppendAnswerEvent(ctx, store.AnswerEventData{
			SessionID:     res.SessionID,
			Learner:       learnerName,
			QuestionID:    q.ID,
			Skill:         q.Skill,
			LearnerAnswer: answer,
			CorrectAnswer: q.CorrectAnswer,
			Correct:       correct,
			Tracked:       adj.Tracked,
			MasteryBefore: adj.Before,
			MasteryAfter:  adj.After,
		})
		if err != nil {
			m.logger.WarnContext(ctx, "failed to record answer event", "error", err)
		}
	}

	return res, nil
}

// Standings returns the learner's ranked mastery, weakest first.
func (m *Manager) Standings(learnerName string) (string, []mastery.Entry, error) {
	sess, err := m.Session(learnerName)
	if err != nil {
		return "", nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.ended {
		return "", nil, fmt.Errorf("learner %q: %w", learnerName, ErrNoSession)
	}
	return sess.id, sess.state.Snapshot(), nil
}

// End removes the learner's session and records its final standings.
// Operations still holding the session fail with ErrNoSession afterwards.
func (m *Manager) End(ctx context.Context, learnerName string) error {
	m.mu.Lock()
	sess, ok := m.sessions[learnerName]
	delete(m.sessions, learnerName)
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("learner %q: %w", learnerName, ErrNoSession)
	}

	sess.mu.Lock()
	sess.ended = true
	id := sess.id
	stats := sess.stats
	started := sess.startedAt
	standings := sess.state.Snapshot()
	sess.mu.Unlock()

	skills := make([]string, len(standings))
	for i, e := range standings {
		skills[i] = e.Skill
	}
	m.metrics.Forget(learnerName, skills)
	m.logger.InfoContext(ctx, "session ended", "learner", learnerName, "session_id", id)
	m.recordSession(ctx, store.SessionEventData{
		SessionID:       id,
		Learner:         learnerName,
		Action:          store.ActionEnd,
		QuestionsServed: stats.Served,
		CorrectAnswers:  stats.Correct,
		DurationSecs:    int(m.now().Sub(started).Seconds()),
	})
	m.saveSnapshot(ctx, id, learnerName, standings)
	return nil
}

func (m *Manager) recordSession(ctx context.Context, data store.SessionEventData) {
	if m.recorder == nil {
		return
	}
	if err := m.recorder.AppendSessionEvent(ctx, data); err != nil {
		m.logger.WarnContext(ctx, "failed to record session event", "action", data.Action, "error", err)
	}
}

func (m *Manager) saveSnapshot(ctx context.Context, sessionID, learner string, standings []mastery.Entry) {
	if m.snapshots == nil {
		return
	}
	snap := &store.Snapshot{SessionID: sessionID, Learner: learner, Standings: standings}
	if err := m.snapshots.Save(ctx, snap); err != nil {
		m.logger.WarnContext(ctx, "failed to save standings snapshot", "error", err)
		return
	}
	if err := m.snapshots.Prune(ctx, learner, snapshotRetention); err != nil {
		m.logger.WarnContext(ctx, "failed to prune standings snapshots", "error", err)
	}
}
