package session

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/skillpath/internal/catalog"
	"github.com/abhisek/skillpath/internal/mastery"
	"github.com/abhisek/skillpath/internal/predictor"
	"github.com/abhisek/skillpath/internal/question"
	"github.com/abhisek/skillpath/internal/store"
)

type fakeRecorder struct {
	mu       sync.Mutex
	sessions []store.SessionEventData
	answers  []store.AnswerEventData
}

func (f *fakeRecorder) AppendSessionEvent(_ context.Context, d store.SessionEventData) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions = append(f.sessions, d)
	return nil
}

func (f *fakeRecorder) AppendAnswerEvent(_ context.Context, d store.AnswerEventData) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.answers = append(f.answers, d)
	return nil
}

func (f *fakeRecorder) actions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, s := range f.sessions {
		out = append(out, s.Action)
	}
	return out
}

type fakeSnapshots struct {
	mu    sync.Mutex
	saved []store.Snapshot
}

func (f *fakeSnapshots) Save(_ context.Context, s *store.Snapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, *s)
	return nil
}

func (f *fakeSnapshots) Latest(context.Context, string) (*store.Snapshot, error) { return nil, nil }
func (f *fakeSnapshots) Prune(context.Context, string, int) error { return nil }

// tablePredictor returns fixed values and can be switched to fail.
type tablePredictor struct {
	mu     sync.Mutex
	values map[string]float64
	fail   string
	calls  int
}

func (p *tablePredictor) InitialMastery(_ context.Context, _ catalog.Learner, skill catalog.Skill) (float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if skill.Name == p.fail {
		return 0, fmt.Errorf("%w: no estimate for %s", predictor.ErrUnavailable, skill.Name)
	}
	return p.values[skill.Name], nil
}

func (p *tablePredictor) set(values map[string]float64, fail string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.values = values
	p.fail = fail
}

type fixture struct {
	mgr       *Manager
	pred      *tablePredictor
	bank      *question.MemoryCatalog
	rec       *fakeRecorder
	snapshots *fakeSnapshots
}

func newFixture(t *testing.T, values map[string]float64, qs ...question.Question) *fixture {
	t.Helper()
	cat, err := catalog.New(
		[]catalog.Skill{{Name: "A", ID: 0}, {Name: "B", ID: 1}},
		[]catalog.Learner{{Name: "ana", ID: 1}, {Name: "ben", ID: 2}},
	)
	require.NoError(t, err)

	bank, err := question.NewMemoryCatalog(qs)
	require.NoError(t, err)

	f := &fixture{
		pred:      &tablePredictor{values: values},
		bank:      bank,
		rec:       &fakeRecorder{},
		snapshots: &fakeSnapshots{},
	}
	f.mgr, err = NewManager(Config{
		Catalog:   cat,
		Predictor: f.pred,
		Questions: bank,
		Recorder:  f.rec,
		Snapshots: f.snapshots,
		Rand:      rand.New(rand.NewPCG(1, 1)),
	})
	require.NoError(t, err)
	return f
}

func defaultBank() []question.Question {
	return []question.Question{
		{ID: 1, Skill: "A", Options: []string{"x", "y"}, CorrectAnswer: "x"},
		{ID: 2, Skill: "A", Options: []string{"x", "y"}, CorrectAnswer: "y"},
		{ID: 7, Skill: "B", Options: []string{"x", "y"}, CorrectAnswer: "x"},
	}
}

func TestNewManager_RequiresCollaborators(t *testing.T) {
	_, err := NewManager(Config{})
	assert.Error(t, err)
}

func TestInitialize_OneEntryPerSkillAndEmptyAnswered(t *testing.T) {
	f := newFixture(t, map[string]float64{"A": 0.9, "B": 0.1}, defaultBank()...)

	sess, err := f.mgr.Initialize(context.Background(), "ana")
	require.NoError(t, err)

	assert.NotEmpty(t, sess.ID())
	assert.Empty(t, sess.Answered())
	assert.Equal(t, StatusReady, sess.Status())
	assert.Equal(t, []mastery.Entry{{Skill: "B", Probability: 0.1}, {Skill: "A", Probability: 0.9}}, sess.Standings())
	assert.Equal(t, []string{store.ActionInitialize}, f.rec.actions())
}

func TestInitialize_UnknownLearner(t *testing.T) {
	f := newFixture(t, map[string]float64{"A": 0.5, "B": 0.5})

	_, err := f.mgr.Initialize(context.Background(), "nobody")
	assert.ErrorIs(t, err, catalog.ErrUnknownLearner)
	assert.Zero(t, f.pred.calls)
}

func TestInitialize_PredictorFailureIsAllOrNothing(t *testing.T) {
	f := newFixture(t, map[string]float64{"A": 0.5, "B": 0.5})
	f.pred.set(map[string]float64{"A": 0.5}, "B")

	_, err := f.mgr.Initialize(context.Background(), "ana")
	require.ErrorIs(t, err, ErrPredictorUnavailable)
	assert.ErrorIs(t, err, predictor.ErrUnavailable)

	_, err = f.mgr.Session("ana")
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestInitialize_FailedReinitKeepsPreviousSession(t *testing.T) {
	f := newFixture(t, map[string]float64{"A": 0.4, "B": 0.6}, defaultBank()...)
	ctx := context.Background()

	sess, err := f.mgr.Initialize(ctx, "ana")
	require.NoError(t, err)
	id := sess.ID()
	_, err = f.mgr.SubmitAnswer(ctx, "ana", 1, "x")
	require.NoError(t, err)

	f.pred.set(map[string]float64{"A": 0.1}, "B")
	_, err = f.mgr.Reset(ctx, "ana")
	require.ErrorIs(t, err, ErrPredictorUnavailable)

	assert.Equal(t, id, sess.ID())
	assert.Equal(t, []int{1}, sess.Answered())
	p, err := sess.Mastery("A")
	require.NoError(t, err)
	assert.InDelta(t, 0.45, p, 1e-9)
}

func TestInitialize_NaNFromPredictor(t *testing.T) {
	f := newFixture(t, map[string]float64{"A": math.NaN(), "B": 0.5})

	_, err := f.mgr.Initialize(context.Background(), "ana")
	assert.ErrorIs(t, err, ErrPredictorUnavailable)
	assert.ErrorIs(t, err, mastery.ErrInvalidProbability)
}

func TestInitialize_ClampsOutOfRangePredictions(t *testing.T) {
	f := newFixture(t, map[string]float64{"A": 1.7, "B": -0.2})

	sess, err := f.mgr.Initialize(context.Background(), "ana")
	require.NoError(t, err)
	assert.Equal(t, []mastery.Entry{{Skill: "B", Probability: 0}, {Skill: "A", Probability: 1}}, sess.Standings())
}

func TestNextQuestion_ServesWeakestSkill(t *testing.T) {
	f := newFixture(t, map[string]float64{"A": 0.9, "B": 0.1}, defaultBank()...)
	ctx := context.Background()
	_, err := f.mgr.Initialize(ctx, "ana")
	require.NoError(t, err)

	next, err := f.mgr.NextQuestion(ctx, "ana")
	require.NoError(t, err)
	assert.False(t, next.Complete)
	assert.Equal(t, 7, next.Question.ID)
	assert.Equal(t, "B", next.Question.Skill)
}

func TestNextQuestion_AnsweredLastQuestionOfSkill(t *testing.T) {
	f := newFixture(t, map[string]float64{"A": 0.9, "B": 0.1}, defaultBank()...)
	ctx := context.Background()
	_, err := f.mgr.Initialize(ctx, "ana")
	require.NoError(t, err)

	_, err = f.mgr.SubmitAnswer(ctx, "ana", 7, "y")
	require.NoError(t, err)

	next, err := f.mgr.NextQuestion(ctx, "ana")
	require.NoError(t, err)
	assert.Equal(t, "A", next.Question.Skill)
}

func TestNextQuestion_NoSession(t *testing.T) {
	f := newFixture(t, map[string]float64{"A": 0.5, "B": 0.5}, defaultBank()...)

	_, err := f.mgr.NextQuestion(context.Background(), "ana")
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestNextQuestion_CompleteIsIdempotent(t *testing.T) {
	f := newFixture(t, map[string]float64{"A": 0.5, "B": 0.5}, defaultBank()...)
	ctx := context.Background()
	sess, err := f.mgr.Initialize(ctx, "ana")
	require.NoError(t, err)

	for _, q := range defaultBank() {
		_, err := f.mgr.SubmitAnswer(ctx, "ana", q.ID, q.CorrectAnswer)
		require.NoError(t, err)
	}

	for i := 0; i < 3; i++ {
		next, err := f.mgr.NextQuestion(ctx, "ana")
		require.NoError(t, err)
		assert.True(t, next.Complete)
		assert.Len(t, next.Standings, 2)
	}
	assert.Equal(t, StatusComplete, sess.Status())
	assert.Equal(t, []string{store.ActionInitialize, store.ActionComplete}, f.rec.actions())
	assert.Len(t, f.snapshots.saved, 1)

	// A reloaded bank with a fresh question brings the session back.
	require.NoError(t, f.bank.Replace(append(defaultBank(), question.Question{ID: 9, Skill: "B", CorrectAnswer: "z"})))
	next, err := f.mgr.NextQuestion(ctx, "ana")
	require.NoError(t, err)
	assert.False(t, next.Complete)
	assert.Equal(t, 9, next.Question.ID)
	assert.Equal(t, StatusReady, sess.Status())
}

func TestSubmitAnswer_Steps(t *testing.T) {
	tests := []struct {
		name    string
		initial float64
		answer  string
		want    float64
		verdict string
	}{
		{"correct", 0.5, "x", 0.55, "correct"},
		{"incorrect", 0.5, "y", 0.475, "incorrect"},
		{"correct clamps high", 0.98, "x", 1.0, "correct"},
		{"incorrect clamps low", 0.01, "y", 0.0, "incorrect"},
		{"whitespace ignored", 0.5, "  x\n", 0.55, "correct"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, map[string]float64{"A": tt.initial, "B": 0.5}, defaultBank()...)
			ctx := context.Background()
			_, err := f.mgr.Initialize(ctx, "ana")
			require.NoError(t, err)

			res, err := f.mgr.SubmitAnswer(ctx, "ana", 1, tt.answer)
			require.NoError(t, err)
			assert.Equal(t, tt.verdict, res.Verdict())
			assert.Equal(t, "x", res.CorrectAnswer)
			assert.True(t, res.Adjustment.Tracked)
			assert.InDelta(t, tt.want, res.Adjustment.After, 1e-9)

			require.Len(t, f.rec.answers, 1)
			assert.Equal(t, tt.answer, f.rec.answers[0].LearnerAnswer)
		})
	}
}

func TestSubmitAnswer_UnknownQuestion(t *testing.T) {
	f := newFixture(t, map[string]float64{"A": 0.5, "B": 0.5}, defaultBank()...)
	ctx := context.Background()
	sess, err := f.mgr.Initialize(ctx, "ana")
	require.NoError(t, err)
	before := sess.Standings()

	_, err = f.mgr.SubmitAnswer(ctx, "ana", 404, "x")
	require.ErrorIs(t, err, ErrQuestionNotFound)
	assert.ErrorIs(t, err, question.ErrNotFound)
	assert.Empty(t, sess.Answered())
	assert.Equal(t, before, sess.Standings())
	assert.Empty(t, f.rec.answers)
}

func TestSubmitAnswer_UntrackedSkill(t *testing.T) {
	bank := append(defaultBank(), question.Question{ID: 50, Skill: "Z", CorrectAnswer: "x"})
	f := newFixture(t, map[string]float64{"A": 0.5, "B": 0.3}, bank...)
	ctx := context.Background()
	sess, err := f.mgr.Initialize(ctx, "ana")
	require.NoError(t, err)
	before := sess.Standings()

	res, err := f.mgr.SubmitAnswer(ctx, "ana", 50, "x")
	require.NoError(t, err)
	assert.False(t, res.Adjustment.Tracked)
	assert.True(t, res.Correct)
	assert.Equal(t, before, res.Standings)
	assert.Equal(t, []int{50}, sess.Answered())
}

func TestSubmitAnswer_RepeatAdjustsAgainButInsertsOnce(t *testing.T) {
	f := newFixture(t, map[string]float64{"A": 0.5, "B": 0.5}, defaultBank()...)
	ctx := context.Background()
	sess, err := f.mgr.Initialize(ctx, "ana")
	require.NoError(t, err)

	_, err = f.mgr.SubmitAnswer(ctx, "ana", 1, "x")
	require.NoError(t, err)
	res, err := f.mgr.SubmitAnswer(ctx, "ana", 1, "x")
	require.NoError(t, err)

	assert.InDelta(t, 0.6, res.Adjustment.After, 1e-9)
	assert.Equal(t, []int{1}, sess.Answered())
	assert.Equal(t, 2, sess.Stats().Answered)
}

func TestReset_RestoresPredictionAndClearsAnswered(t *testing.T) {
	f := newFixture(t, map[string]float64{"A": 0.3, "B": 0.6}, defaultBank()...)
	ctx := context.Background()
	sess, err := f.mgr.Initialize(ctx, "ana")
	require.NoError(t, err)
	firstID := sess.ID()

	for _, q := range defaultBank() {
		_, err := f.mgr.SubmitAnswer(ctx, "ana", q.ID, "wrong")
		require.NoError(t, err)
	}

	again, err := f.mgr.Reset(ctx, "ana")
	require.NoError(t, err)
	assert.Same(t, sess, again)
	assert.NotEqual(t, firstID, again.ID())
	assert.Empty(t, again.Answered())
	assert.Equal(t, Stats{}, again.Stats())
	assert.Equal(t, []mastery.Entry{{Skill: "A", Probability: 0.3}, {Skill: "B", Probability: 0.6}}, again.Standings())
	assert.Equal(t, []string{store.ActionInitialize, store.ActionReset}, f.rec.actions())
}

func TestReset_WithoutSessionInitializes(t *testing.T) {
	f := newFixture(t, map[string]float64{"A": 0.3, "B": 0.6})

	_, err := f.mgr.Reset(context.Background(), "ben")
	require.NoError(t, err)
	assert.Equal(t, 1, f.mgr.Active())
}

func TestEnsure(t *testing.T) {
	f := newFixture(t, map[string]float64{"A": 0.3, "B": 0.6})
	ctx := context.Background()

	a, err := f.mgr.Ensure(ctx, "ana")
	require.NoError(t, err)
	b, err := f.mgr.Ensure(ctx, "ana")
	require.NoError(t, err)
	assert.Same(t, a, b)
	assert.Equal(t, 2, f.pred.calls)
}

func TestEnd(t *testing.T) {
	f := newFixture(t, map[string]float64{"A": 0.3, "B": 0.6})
	ctx := context.Background()
	_, err := f.mgr.Initialize(ctx, "ana")
	require.NoError(t, err)

	require.NoError(t, f.mgr.End(ctx, "ana"))
	_, err = f.mgr.Session("ana")
	assert.ErrorIs(t, err, ErrNoSession)
	assert.ErrorIs(t, f.mgr.End(ctx, "ana"), ErrNoSession)

	require.Len(t, f.snapshots.saved, 1)
	assert.Equal(t, "ana", f.snapshots.saved[0].Learner)
	assert.Equal(t, []string{store.ActionInitialize, store.ActionEnd}, f.rec.actions())
}

func TestStandings(t *testing.T) {
	f := newFixture(t, map[string]float64{"A": 0.3, "B": 0.3})
	ctx := context.Background()
	sess, err := f.mgr.Initialize(ctx, "ana")
	require.NoError(t, err)

	id, standings, err := f.mgr.Standings("ana")
	require.NoError(t, err)
	assert.Equal(t, sess.ID(), id)
	// Ties keep catalog order.
	assert.Equal(t, []string{"A", "B"}, []string{standings[0].Skill, standings[1].Skill})

	_, _, err = f.mgr.Standings("ben")
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestSessionsAreIsolated(t *testing.T) {
	var qs []question.Question
	for id := 1; id <= 40; id++ {
		skill := "A"
		if id%2 == 0 {
			skill = "B"
		}
		qs = append(qs, question.Question{ID: id, Skill: skill, CorrectAnswer: "x"})
	}
	f := newFixture(t, map[string]float64{"A": 0.5, "B": 0.5}, qs...)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 2)
	for _, learner := range []string{"ana", "ben"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.mgr.Initialize(ctx, learner); err != nil {
				errs <- err
				return
			}
			for {
				next, err := f.mgr.NextQuestion(ctx, learner)
				if err != nil {
					errs <- err
					return
				}
				if next.Complete {
					return
				}
				if _, err := f.mgr.SubmitAnswer(ctx, learner, next.Question.ID, "x"); err != nil {
					errs <- err
					return
				}
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatal(err)
	}

	for _, learner := range []string{"ana", "ben"} {
		sess, err := f.mgr.Session(learner)
		require.NoError(t, err)
		assert.Len(t, sess.Answered(), 40, learner)
		assert.Equal(t, 40, sess.Stats().Correct, learner)
	}
}

func TestApplySequenceStaysInBounds(t *testing.T) {
	f := newFixture(t, map[string]float64{"A": 0.5, "B": 0.5}, defaultBank()...)
	ctx := context.Background()
	_, err := f.mgr.Initialize(ctx, "ana")
	require.NoError(t, err)

	rng := rand.New(rand.NewPCG(3, 4))
	ids := []int{1, 2, 7}
	for i := 0; i < 500; i++ {
		answer := "x"
		if rng.IntN(3) == 0 {
			answer = "y"
		}
		res, err := f.mgr.SubmitAnswer(ctx, "ana", ids[rng.IntN(len(ids))], answer)
		require.NoError(t, err)
		for _, e := range res.Standings {
			if e.Probability < 0 || e.Probability > 1 {
				t.Fatalf("probability out of range after %d answers: %+v", i, e)
			}
		}
	}
}

func TestNewManager_ZeroStepsAreKept(t *testing.T) {
	cat, err := catalog.New([]catalog.Skill{{Name: "A", ID: 0}}, []catalog.Learner{{Name: "ana", ID: 1}})
	require.NoError(t, err)
	bank, err := question.NewMemoryCatalog([]question.Question{{ID: 1, Skill: "A", CorrectAnswer: "x"}})
	require.NoError(t, err)

	mgr, err := NewManager(Config{
		Catalog:   cat,
		Predictor: &tablePredictor{values: map[string]float64{"A": 0.4}},
		Questions: bank,
		Updater:   &mastery.Updater{},
	})
	require.NoError(t, err)

	ctx := context.Background()
	_, err = mgr.Initialize(ctx, "ana")
	require.NoError(t, err)
	res, err := mgr.SubmitAnswer(ctx, "ana", 1, "x")
	require.NoError(t, err)
	assert.True(t, res.Correct)
	assert.InDelta(t, 0.4, res.Adjustment.After, 1e-9)
}
