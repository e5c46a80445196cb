package commands_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/tangle/cmd/tangle/commands"
	"go.trai.ch/tangle/internal/adapters/memory"
	"go.trai.ch/tangle/internal/adapters/telemetry"
	"go.trai.ch/tangle/internal/app"
	"go.trai.ch/tangle/internal/build"
	"go.trai.ch/tangle/internal/core/domain"
	"go.trai.ch/tangle/internal/core/ports/mocks"
	"go.trai.ch/tangle/internal/engine/cascade"
	"go.trai.ch/tangle/internal/engine/cycle"
	"go.uber.org/mock/gomock"
)

type harness struct {
	app   *app.App
	store *memory.Store
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	ctrl := gomock.NewController(t)
	log := mocks.NewMockLogger(ctrl)
	log.EXPECT().Info(gomock.Any()).AnyTimes()
	log.EXPECT().Warn(gomock.Any()).AnyTimes()
	log.EXPECT().Error(gomock.Any()).AnyTimes()

	store := memory.NewStore()
	tracer := telemetry.NewNoOpTracer()
	a := app.New(
		store,
		cycle.NewChecker(store, tracer),
		cascade.NewEngine(store, domain.DefaultPolicy(), log, tracer),
		log,
		tracer,
		app.Settings{Parallelism: 2},
	)

	next := 0
	a.WithIDGenerator(func() domain.TaskID {
		id := domain.TaskID(string(rune('A' + next)))
		next++
		return id
	})
	return &harness{app: a, store: store}
}

// exec runs one command line against a fresh CLI over the shared app.
func (h *harness) exec(args ...string) (string, string, error) {
	var out, errOut bytes.Buffer
	cli := commands.New(h.app)
	cli.SetOutput(&out, &errOut)
	cli.SetArgs(args)
	err := cli.Execute(context.Background())
	return out.String(), errOut.String(), err
}

func (h *harness) mustExec(t *testing.T, args ...string) string {
	t.Helper()
	out, _, err := h.exec(args...)
	require.NoError(t, err)
	return out
}

func (h *harness) status(t *testing.T, id domain.TaskID) domain.Status {
	t.Helper()
	task, err := h.store.GetTask(context.Background(), id)
	require.NoError(t, err)
	return task.Status
}

func TestTaskAdd(t *testing.T) {
	h := newHarness(t)

	out := h.mustExec(t, "task", "add", "write docs", "-d", "the user guide")
	assert.Equal(t, "A\n", out)

	task, err := h.store.GetTask(context.Background(), "A")
	require.NoError(t, err)
	assert.Equal(t, "write docs", task.Title)
	assert.Equal(t, "the user guide", task.Description)
	assert.Equal(t, domain.StatusPending, task.Status)
}

func TestTaskAdd_EmptyTitle(t *testing.T) {
	h := newHarness(t)

	_, _, err := h.exec("task", "add", "   ")
	assert.ErrorIs(t, err, domain.ErrEmptyTitle)
}

func TestTaskAdd_JSON(t *testing.T) {
	h := newHarness(t)

	out := h.mustExec(t, "--json", "task", "add", "ship")

	var task domain.Task
	require.NoError(t, json.Unmarshal([]byte(out), &task))
	assert.Equal(t, domain.TaskID("A"), task.ID)
	assert.Equal(t, "ship", task.Title)
	assert.Equal(t, domain.StatusPending, task.Status)
}

func TestTaskList(t *testing.T) {
	h := newHarness(t)

	assert.Equal(t, "no tasks\n", h.mustExec(t, "task", "list"))

	h.mustExec(t, "task", "add", "first")
	h.mustExec(t, "task", "add", "second")

	out := h.mustExec(t, "task", "ls")
	assert.Contains(t, out, "ID")
	assert.Contains(t, out, "first")
	assert.Contains(t, out, "second")

	out = h.mustExec(t, "task", "list", "--json")
	var tasks []domain.Task
	require.NoError(t, json.Unmarshal([]byte(out), &tasks))
	require.Len(t, tasks, 2)
	assert.Equal(t, domain.TaskID("A"), tasks[0].ID)
	assert.Equal(t, domain.TaskID("B"), tasks[1].ID)
}

func TestTaskShow(t *testing.T) {
	h := newHarness(t)
	h.mustExec(t, "task", "add", "design")
	h.mustExec(t, "task", "add", "build")
	h.mustExec(t, "dep", "add", "B", "A")

	out := h.mustExec(t, "task", "show", "B")
	assert.Contains(t, out, "build")
	assert.Contains(t, out, "A (pending)")

	out = h.mustExec(t, "task", "show", "A", "--json")
	var view struct {
		ID         domain.TaskID `json:"id"`
		DependsOn  []domain.Task `json:"depends_on"`
		Dependents []domain.Task `json:"dependents"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &view))
	assert.Equal(t, domain.TaskID("A"), view.ID)
	assert.Empty(t, view.DependsOn)
	require.Len(t, view.Dependents, 1)
	assert.Equal(t, domain.TaskID("B"), view.Dependents[0].ID)
}

func TestTaskShow_NotFound(t *testing.T) {
	h := newHarness(t)

	_, _, err := h.exec("task", "show", "missing")
	assert.ErrorIs(t, err, domain.ErrTaskNotFound)
}

func TestTaskStatus_Cascades(t *testing.T) {
	h := newHarness(t)
	h.mustExec(t, "task", "add", "a")
	h.mustExec(t, "task", "add", "b")
	h.mustExec(t, "dep", "add", "B", "A")

	out := h.mustExec(t, "task", "status", "A", "blocked")
	assert.Contains(t, out, "B: pending -> blocked")
	assert.Equal(t, domain.StatusBlocked, h.status(t, "B"))

	out = h.mustExec(t, "task", "status", "A", "COMPLETED")
	assert.Contains(t, out, "B: blocked -> pending")
	assert.Equal(t, domain.StatusPending, h.status(t, "B"))
}

func TestTaskStatus_InvalidToken(t *testing.T) {
	h := newHarness(t)
	h.mustExec(t, "task", "add", "a")

	_, _, err := h.exec("task", "status", "A", "done")
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)
	assert.Equal(t, domain.StatusPending, h.status(t, "A"))
}

func TestTaskRm(t *testing.T) {
	h := newHarness(t)
	h.mustExec(t, "task", "add", "a")
	h.mustExec(t, "task", "add", "b")
	h.mustExec(t, "dep", "add", "B", "A")
	h.mustExec(t, "task", "status", "A", "blocked")

	out := h.mustExec(t, "task", "rm", "A")
	assert.Contains(t, out, "B: blocked -> pending")

	_, err := h.store.GetTask(context.Background(), "A")
	assert.ErrorIs(t, err, domain.ErrTaskNotFound)
	edges, err := h.store.ListEdges(context.Background())
	require.NoError(t, err)
	assert.Empty(t, edges)
}

func TestDepAdd_RejectsCycle(t *testing.T) {
	h := newHarness(t)
	for _, title := range []string{"a", "b", "c"} {
		h.mustExec(t, "task", "add", title)
	}
	h.mustExec(t, "dep", "add", "A", "B")
	h.mustExec(t, "dep", "add", "B", "C")

	_, errOut, err := h.exec("dep", "add", "C", "A")
	require.Error(t, err)

	var cycleErr *domain.CycleError
	require.True(t, errors.As(err, &cycleErr))
	assert.Equal(t, []domain.TaskID{"A", "B", "C", "A"}, cycleErr.Path)
	assert.Equal(t, "rejected: A -> B -> C -> A\n", errOut)

	edges, err := h.store.ListEdges(context.Background())
	require.NoError(t, err)
	assert.Len(t, edges, 2)
}

func TestDepAdd_Duplicate(t *testing.T) {
	h := newHarness(t)
	h.mustExec(t, "task", "add", "a")
	h.mustExec(t, "task", "add", "b")

	out := h.mustExec(t, "dep", "add", "A", "B")
	assert.Contains(t, out, "A now depends on B")

	out = h.mustExec(t, "dep", "add", "A", "B")
	assert.Equal(t, "A already depends on B\n", out)

	out = h.mustExec(t, "--json", "dep", "add", "A", "B")
	var res app.AddResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.False(t, res.Created)
	assert.Equal(t, domain.TaskID("B"), res.Edge.DependsOnID)
}

func TestDepAdd_SelfDependency(t *testing.T) {
	h := newHarness(t)
	h.mustExec(t, "task", "add", "a")

	_, _, err := h.exec("dep", "add", "A", "A")
	assert.ErrorIs(t, err, domain.ErrSelfDependency)
}

func TestDepRmAndList(t *testing.T) {
	h := newHarness(t)
	h.mustExec(t, "task", "add", "a")
	h.mustExec(t, "task", "add", "b")

	assert.Equal(t, "no dependencies\n", h.mustExec(t, "dep", "list"))

	h.mustExec(t, "dep", "add", "A", "B")
	assert.Equal(t, "A -> B\n", h.mustExec(t, "dep", "ls"))

	h.mustExec(t, "dep", "rm", "A", "B")
	assert.Equal(t, "no dependencies\n", h.mustExec(t, "dep", "list"))

	_, _, err := h.exec("dep", "rm", "A", "B")
	assert.ErrorIs(t, err, domain.ErrEdgeNotFound)
}

func TestRecompute(t *testing.T) {
	h := newHarness(t)
	h.mustExec(t, "task", "add", "a")
	h.mustExec(t, "task", "add", "b")
	h.mustExec(t, "dep", "add", "B", "A")
	require.NoError(t, h.store.SetStatus(context.Background(), "A", domain.StatusBlocked))

	out := h.mustExec(t, "--json", "recompute", "B")
	var report cascade.Report
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	require.Len(t, report.Changes, 1)
	assert.Equal(t, domain.TaskID("B"), report.Changes[0].TaskID)
	assert.Equal(t, domain.StatusBlocked, report.Changes[0].To)

	_, _, err := h.exec("recompute", "missing")
	assert.ErrorIs(t, err, domain.ErrTaskNotFound)
}

func TestReconcile(t *testing.T) {
	h := newHarness(t)
	h.mustExec(t, "task", "add", "a")
	h.mustExec(t, "task", "add", "b")
	h.mustExec(t, "dep", "add", "B", "A")
	require.NoError(t, h.store.SetStatus(context.Background(), "A", domain.StatusCompleted))
	require.NoError(t, h.store.SetStatus(context.Background(), "B", domain.StatusBlocked))

	out := h.mustExec(t, "reconcile")
	assert.Contains(t, out, "B: blocked -> pending (dependencies_completed)")
	assert.Contains(t, out, "recomputed 2, changed 1")

	out = h.mustExec(t, "reconcile")
	assert.Equal(t, "recomputed 2, changed 0\n", out)
}

func TestVersion(t *testing.T) {
	h := newHarness(t)

	out := h.mustExec(t, "version")
	assert.Equal(t, "tangle version "+build.Info()+"\n", out)
}

func TestRoot_Help(t *testing.T) {
	h := newHarness(t)

	out := h.mustExec(t, "--help")
	assert.Contains(t, out, "dep")
	assert.Contains(t, out, "reconcile")
}
