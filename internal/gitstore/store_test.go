package gitstore

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-git/go-git/v5/plumbing"

	"github.com/stratumdev/stratum/internal/entity"
)

func newTestStoreAt(t *testing.T, path string) *Store {
	t.Helper()
	s, err := Open(Options{Path: path, Agent: "tester"})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	return s
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return newTestStoreAt(t, filepath.Join(t.TempDir(), "repo"))
}

func testTask(id, title string) *entity.Generic {
	task := &entity.Task{
		ID:       id,
		Title:    title,
		Status:   "pending",
		Priority: "normal",
		Agent:    "tester",
	}
	return task.ToGeneric()
}

func TestPutAndGet(t *testing.T) {
	s := newTestStore(t)

	if err := s.Put(testTask("t1", "write tests")); err != nil {
		t.Fatalf("put: %v", err)
	}

	g, err := s.Get("t1", entity.TypeTask)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if g == nil {
		t.Fatal("expected entity, got nil")
	}
	task, err := entity.TaskFromGeneric(g)
	if err != nil {
		t.Fatalf("from generic: %v", err)
	}
	if task.Title != "write tests" {
		t.Errorf("expected title 'write tests', got %q", task.Title)
	}
}

func TestGetAbsentIsNotAnError(t *testing.T) {
	s := newTestStore(t)
	g, err := s.Get("nope", entity.TypeTask)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if g != nil {
		t.Errorf("expected nil for absent entity, got %+v", g)
	}
}

func TestContentAddressingDeduplicates(t *testing.T) {
	s := newTestStore(t)

	data := []byte(`{"same":"bytes"}`)
	h1, err := s.StoreObject(data)
	if err != nil {
		t.Fatalf("store object: %v", err)
	}
	h2, err := s.StoreObject(data)
	if err != nil {
		t.Fatalf("store object again: %v", err)
	}
	if h1 != h2 {
		t.Errorf("identical bytes hashed differently: %s vs %s", h1, h2)
	}

	got, err := s.ReadObject(h1)
	if err != nil {
		t.Fatalf("read object: %v", err)
	}
	if string(got) != string(data) {
		t.Errorf("read back %q, want %q", got, data)
	}
}

func TestReadObjectNotFound(t *testing.T) {
	s := newTestStore(t)
	missing := plumbing.NewHash("0123456789abcdef0123456789abcdef01234567")
	if _, err := s.ReadObject(missing); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestIdenticalTreesHashEqually(t *testing.T) {
	s := newTestStore(t)

	h1, _ := s.StoreObject([]byte("a"))
	h2, _ := s.StoreObject([]byte("b"))

	t1, err := s.BuildTree(map[entryKey]plumbing.Hash{
		{Type: "task", ID: "x"}:    h1,
		{Type: "context", ID: "y"}: h2,
	})
	if err != nil {
		t.Fatalf("build tree: %v", err)
	}
	t2, err := s.BuildTree(map[entryKey]plumbing.Hash{
		{Type: "context", ID: "y"}: h2,
		{Type: "task", ID: "x"}:    h1,
	})
	if err != nil {
		t.Fatalf("build tree: %v", err)
	}
	if t1 != t2 {
		t.Errorf("identical contents produced different tree hashes: %s vs %s", t1, t2)
	}
}

func TestBranchIsolation(t *testing.T) {
	s := newTestStore(t)

	if err := s.CreateBranch("alice", "alice", ""); err != nil {
		t.Fatalf("create alice: %v", err)
	}
	if err := s.SwitchBranch("alice", false); err != nil {
		t.Fatalf("switch alice: %v", err)
	}
	if err := s.Put(testTask("t1", "T1")); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, err := s.QueryByAgent("alice", entity.TypeTask)
	if err != nil {
		t.Fatalf("query alice: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 task on alice, got %d", len(got))
	}
	task, _ := entity.TaskFromGeneric(got[0])
	if task.Title != "T1" {
		t.Errorf("expected T1, got %q", task.Title)
	}

	// bob branches from main, which never saw T1
	if err := s.CreateBranch("bob", "bob", "main"); err != nil {
		t.Fatalf("create bob: %v", err)
	}
	if err := s.SwitchBranch("bob", false); err != nil {
		t.Fatalf("switch bob: %v", err)
	}
	empty, err := s.QueryByAgent("bob", entity.TypeTask)
	if err != nil {
		t.Fatalf("query bob: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("expected empty result on bob, got %d entries", len(empty))
	}
}

func TestQueryOrderingIsStable(t *testing.T) {
	s := newTestStore(t)
	s.Put(testTask("b", "second"))
	s.Put(testTask("a", "first"))
	note := &entity.ContextNote{ID: "n1", Title: "n", Content: "c", Agent: "tester"}
	s.Put(note.ToGeneric())

	first, err := s.QueryByAgent("tester", "")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	second, err := s.QueryByAgent("tester", "")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(first) != 3 || len(second) != 3 {
		t.Fatalf("expected 3 entities, got %d and %d", len(first), len(second))
	}
	for i := range first {
		if first[i].ID != second[i].ID {
			t.Errorf("ordering unstable at %d: %s vs %s", i, first[i].ID, second[i].ID)
		}
	}
	// context sorts before task
	if first[0].Type != entity.TypeContext {
		t.Errorf("expected context first, got %s", first[0].Type)
	}
	if first[1].ID != "a" || first[2].ID != "b" {
		t.Errorf("tasks not sorted by id: %s, %s", first[1].ID, first[2].ID)
	}
}

func TestHistoryNewestFirst(t *testing.T) {
	s := newTestStore(t)
	s.Put(testTask("t1", "one"))
	s.Put(testTask("t2", "two"))
	s.Put(testTask("t3", "three"))

	hist, err := s.History(2)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(hist) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(hist))
	}
	if !strings.Contains(hist[0].Message, "t3") {
		t.Errorf("expected newest commit first, got %q", hist[0].Message)
	}
	if !strings.Contains(hist[1].Message, "t2") {
		t.Errorf("expected t2 second, got %q", hist[1].Message)
	}
	if hist[0].Author != "tester" {
		t.Errorf("expected author tester, got %q", hist[0].Author)
	}

	all, err := s.History(0)
	if err != nil {
		t.Fatalf("history all: %v", err)
	}
	// three puts plus the root commit
	if len(all) != 4 {
		t.Errorf("expected 4 commits, got %d", len(all))
	}
}

func TestDeleteIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	s.Put(testTask("t1", "doomed"))

	before, _ := s.History(0)

	if err := s.Rm("t1", entity.TypeTask); err != nil {
		t.Fatalf("rm: %v", err)
	}
	if g, _ := s.Get("t1", entity.TypeTask); g != nil {
		t.Error("expected entity gone after rm")
	}

	afterFirst, _ := s.History(0)
	if len(afterFirst) != len(before)+1 {
		t.Fatalf("expected exactly one delete commit, got %d -> %d", len(before), len(afterFirst))
	}

	// repeat delete: success, no new commit
	if err := s.Rm("t1", entity.TypeTask); err != nil {
		t.Fatalf("second rm: %v", err)
	}
	if err := s.Rm("never-existed", entity.TypeTask); err != nil {
		t.Fatalf("rm of absent id: %v", err)
	}
	afterAll, _ := s.History(0)
	if len(afterAll) != len(afterFirst) {
		t.Errorf("idempotent deletes appended commits: %d -> %d", len(afterFirst), len(afterAll))
	}
}

func TestUpdateKeepsHistory(t *testing.T) {
	s := newTestStore(t)
	s.Put(testTask("t1", "v1"))
	s.Put(testTask("t1", "v2"))

	g, err := s.Get("t1", entity.TypeTask)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	task, _ := entity.TaskFromGeneric(g)
	if task.Title != "v2" {
		t.Errorf("expected latest version, got %q", task.Title)
	}

	hist, _ := s.History(0)
	var update, create bool
	for _, c := range hist {
		if strings.HasPrefix(c.Message, "update task t1") {
			update = true
		}
		if strings.HasPrefix(c.Message, "create task t1") {
			create = true
		}
	}
	if !create || !update {
		t.Errorf("expected create and update commits in history: %+v", hist)
	}
}

func TestPutRejectsMalformedRelationship(t *testing.T) {
	s := newTestStore(t)

	// endpoint types are required so traversal can resolve every visit
	rel := &entity.Relationship{
		ID: "r-bad", Agent: "tester",
		SourceID: "a", SourceType: "",
		TargetID: "b", TargetType: entity.TypeTask,
		Kind: entity.KindDependsOn, Direction: entity.DirectionUni, Strength: "strong",
	}
	err := s.Put(rel.ToGeneric())
	if !errors.Is(err, entity.ErrInvalid) {
		t.Errorf("expected ErrInvalid for typeless endpoint, got %v", err)
	}

	before, _ := s.History(0)
	if len(before) != 1 { // only the root commit
		t.Errorf("rejected relationship must not commit, history has %d entries", len(before))
	}
}

func TestGraphThroughStore(t *testing.T) {
	repoPath := filepath.Join(t.TempDir(), "repo")
	s := newTestStoreAt(t, repoPath)
	s.Put(testTask("a", "A"))
	s.Put(testTask("b", "B"))

	rel := &entity.Relationship{
		ID: "r1", Agent: "tester",
		SourceID: "a", SourceType: entity.TypeTask,
		TargetID: "b", TargetType: entity.TypeTask,
		Kind: entity.KindDependsOn, Direction: entity.DirectionUni, Strength: "strong",
	}
	if err := s.Put(rel.ToGeneric()); err != nil {
		t.Fatalf("put relationship: %v", err)
	}
	// edge to an entity that was never stored
	dangling := &entity.Relationship{
		ID: "r2", Agent: "tester",
		SourceID: "b", SourceType: entity.TypeTask,
		TargetID: "ghost", TargetType: entity.TypeTask,
		Kind: entity.KindReferences, Direction: entity.DirectionUni, Strength: "weak",
	}
	if err := s.Put(dangling.ToGeneric()); err != nil {
		t.Fatalf("put dangling relationship: %v", err)
	}

	res, err := s.Traverse("a", 5)
	if err != nil {
		t.Fatalf("traverse: %v", err)
	}
	if len(res.Visits) != 2 {
		t.Fatalf("expected visits b and ghost, got %+v", res.Visits)
	}
	if len(res.Dangling) != 1 || res.Dangling[0] != "ghost" {
		t.Errorf("expected ghost reported dangling, got %+v", res.Dangling)
	}

	path, ok := s.FindPath("a", "ghost", 5)
	if !ok || len(path) != 2 {
		t.Fatalf("expected 2-edge path to ghost, got ok=%v path=%+v", ok, path)
	}

	// index survives reopen on the same branch
	s2, err := Open(Options{Path: repoPath, Agent: "tester"})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if _, ok := s2.FindPath("a", "b", 5); !ok {
		t.Error("expected rebuilt index to know a -> b")
	}

	// deleting the relationship drops the edge
	if err := s.Rm("r1", entity.TypeRelationship); err != nil {
		t.Fatalf("rm relationship: %v", err)
	}
	if _, ok := s.FindPath("a", "b", 5); ok {
		t.Error("expected edge gone after delete")
	}
}

func TestDecodingFailureIsSurfaced(t *testing.T) {
	s := newTestStore(t)

	// hand-craft a malformed payload in the task slot
	blob, err := s.StoreObject([]byte("{not json"))
	if err != nil {
		t.Fatalf("store object: %v", err)
	}
	entries := map[entryKey]plumbing.Hash{{Type: "task", ID: "bad"}: blob}
	treeHash, err := s.BuildTree(entries)
	if err != nil {
		t.Fatalf("build tree: %v", err)
	}
	ref, _ := s.repo.Reference(s.currentRef(), false)
	commitHash, err := s.writeCommit("inject malformed record", treeHash, ref.Hash())
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	if err := s.repo.Storer.SetReference(plumbing.NewHashReference(s.currentRef(), commitHash)); err != nil {
		t.Fatalf("move ref: %v", err)
	}

	if _, err := s.Get("bad", entity.TypeTask); !errors.Is(err, entity.ErrDecode) {
		t.Errorf("expected ErrDecode, got %v", err)
	}

	// Writing over the corrupt slot must surface the decode failure instead
	// of treating the record as absent and committing a fresh create.
	if err := s.Put(testTask("bad", "overwrite")); !errors.Is(err, entity.ErrDecode) {
		t.Errorf("expected Put over corrupt record to fail with ErrDecode, got %v", err)
	}
	hist, err := s.History(0)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(hist) != 2 { // root commit + the injected one
		t.Errorf("failed Put must not commit, history has %d entries", len(hist))
	}
}

func TestRegistryTypedDecode(t *testing.T) {
	s := newTestStore(t)
	if err := s.Put(testTask("t1", "write report")); err != nil {
		t.Fatalf("put: %v", err)
	}
	g, err := s.Get("t1", entity.TypeTask)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	e, err := s.Registry().Decode(g)
	if err != nil {
		t.Fatalf("registry decode: %v", err)
	}
	task, ok := e.(*entity.Task)
	if !ok {
		t.Fatalf("expected *entity.Task, got %T", e)
	}
	if task.Title != "write report" {
		t.Errorf("decoded title = %q", task.Title)
	}
	if _, err := s.Registry().Decode(&entity.Generic{ID: "x", Type: "alien"}); !errors.Is(err, entity.ErrDecode) {
		t.Errorf("expected ErrDecode for unregistered type, got %v", err)
	}
}
