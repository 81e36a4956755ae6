package port

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/camptocamp/oca-port/internal/git"
	"github.com/camptocamp/oca-port/internal/github"
)

// fakeRepo is an in-memory Repo recording every mutation, so tests can
// assert on the exact sequence of git operations the engine performs.
type fakeRepo struct {
	commits   []git.Commit
	ancestors []git.Commit
	// patchIDs maps a commit hash to its content key; unmapped hashes
	// fall back to the hash itself (identity equivalence)
	patchIDs  map[string]string
	branches  map[string]bool
	conflicts map[string][]string

	created      []string // "name<-startPoint"
	checkouts    []string
	deleted      []string
	picked       []string
	resets       []string
	aborts       int
	trailers     []string
	pushed       []string
	hasConflicts bool

	// head tracks the tip of the checked-out branch: the start point
	// after a branch creation, the last picked hash after a cherry-pick.
	head string
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		patchIDs:  map[string]string{},
		branches:  map[string]bool{},
		conflicts: map[string][]string{},
		head:      "base",
	}
}

func (r *fakeRepo) CommitsBetween(from, to git.BranchRef, path string) ([]git.Commit, error) {
	return r.commits, nil
}

func (r *fakeRepo) AncestorCommits(ref git.BranchRef, path string) ([]git.Commit, error) {
	return r.ancestors, nil
}

func (r *fakeRepo) PatchID(hash, path string) (string, error) {
	if id, ok := r.patchIDs[hash]; ok {
		return id, nil
	}
	return hash, nil
}

func (r *fakeRepo) ResolveRef(ref git.BranchRef) (string, error) {
	return "deadbeef", nil
}

func (r *fakeRepo) BranchExists(name string) bool {
	return r.branches[name]
}

func (r *fakeRepo) CreateBranch(name, startPoint string) error {
	r.created = append(r.created, name+"<-"+startPoint)
	r.branches[name] = true
	r.head = startPoint
	return nil
}

func (r *fakeRepo) CheckoutBranch(name string) error {
	r.checkouts = append(r.checkouts, name)
	r.head = name
	return nil
}

func (r *fakeRepo) HeadCommit() (string, error) {
	return r.head, nil
}

func (r *fakeRepo) ResetHard(commit string) error {
	r.resets = append(r.resets, commit)
	r.head = commit
	// Drop the picks the reset discarded, when the target is one of them.
	for i, hash := range r.picked {
		if hash == commit {
			r.picked = r.picked[:i+1]
			break
		}
	}
	return nil
}

func (r *fakeRepo) DeleteBranch(name string) error {
	r.deleted = append(r.deleted, name)
	delete(r.branches, name)
	return nil
}

func (r *fakeRepo) CherryPick(hash string) error {
	if paths, ok := r.conflicts[hash]; ok {
		return &git.ConflictError{Hash: hash, Paths: paths}
	}
	r.picked = append(r.picked, hash)
	r.head = hash
	return nil
}

func (r *fakeRepo) CherryPickAbort() error {
	r.aborts++
	return nil
}

func (r *fakeRepo) HasConflicts() (bool, error) {
	return r.hasConflicts, nil
}

func (r *fakeRepo) AmendTrailer(key, value string) error {
	r.trailers = append(r.trailers, key+": "+value)
	return nil
}

func (r *fakeRepo) Push(remote, branch string) error {
	r.pushed = append(r.pushed, remote+":"+branch)
	return nil
}

// fakeLookup resolves commits to pull requests from a static map and
// counts API calls.
type fakeLookup struct {
	prs   map[string][]*github.PullRequest
	err   error
	calls int
}

func (l *fakeLookup) PullRequestsForCommit(ctx context.Context, owner, repo, sha string) ([]*github.PullRequest, error) {
	l.calls++
	if l.err != nil {
		return nil, l.err
	}
	return l.prs[sha], nil
}

// fakeCreator records draft PR creation requests.
type fakeCreator struct {
	reqs []github.NewPullRequest
	err  error
}

func (c *fakeCreator) CreateDraftPullRequest(ctx context.Context, owner, repo string, req github.NewPullRequest) (*github.PullRequest, error) {
	c.reqs = append(c.reqs, req)
	if c.err != nil {
		return nil, c.err
	}
	return &github.PullRequest{Number: 999, HTMLURL: "https://github.com/OCA/wms/pull/999"}, nil
}

// memStore is an in-memory cache.Store going through JSON like the real
// one, so serialization of cached values is covered too.
type memStore struct {
	entries map[string][]byte
	sets    int
}

func newMemStore() *memStore {
	return &memStore{entries: map[string][]byte{}}
}

func (s *memStore) Get(key string, v interface{}) (bool, error) {
	raw, ok := s.entries[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, v)
}

func (s *memStore) Set(key string, v interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	s.entries[key] = raw
	s.sets++
	return nil
}

func (s *memStore) Clear() error {
	s.entries = map[string][]byte{}
	return nil
}

// fakeBlacklist satisfies both Blacklist and BlacklistStore.
type fakeBlacklist struct {
	prs       map[string]string
	dirty     bool
	committed []string
}

func newFakeBlacklist() *fakeBlacklist {
	return &fakeBlacklist{prs: map[string]string{}}
}

func (b *fakeBlacklist) IsPRBlacklisted(ref string) (string, bool) {
	reason, ok := b.prs[ref]
	return reason, ok
}

func (b *fakeBlacklist) BlacklistPR(ref, reason string) {
	b.prs[ref] = reason
	b.dirty = true
}

func (b *fakeBlacklist) Dirty() bool { return b.dirty }

func (b *fakeBlacklist) Commit(message string) error {
	b.committed = append(b.committed, message)
	b.dirty = false
	return nil
}

// scriptPrompter replays scripted answers and fails the test when the
// engine asks more questions than expected.
type scriptPrompter struct {
	t        *testing.T
	confirms []bool
	selects  []string

	confirmTitles []string
	selectTitles  []string
}

func (p *scriptPrompter) Confirm(title, description string) (bool, error) {
	p.t.Helper()
	if len(p.confirms) == 0 {
		p.t.Fatalf("unexpected Confirm(%q)", title)
	}
	p.confirmTitles = append(p.confirmTitles, title)
	answer := p.confirms[0]
	p.confirms = p.confirms[1:]
	return answer, nil
}

func (p *scriptPrompter) Select(title string, options ...string) (string, error) {
	p.t.Helper()
	if len(p.selects) == 0 {
		p.t.Fatalf("unexpected Select(%q)", title)
	}
	p.selectTitles = append(p.selectTitles, title)
	answer := p.selects[0]
	p.selects = p.selects[1:]
	return answer, nil
}

// failPrompter fails the test on any prompt: used where the engine must
// not ask anything (non-interactive mode).
type failPrompter struct{ t *testing.T }

func (p failPrompter) Confirm(title, description string) (bool, error) {
	p.t.Fatalf("unexpected Confirm(%q) in non-interactive mode", title)
	return false, nil
}

func (p failPrompter) Select(title string, options ...string) (string, error) {
	p.t.Fatalf("unexpected Select(%q) in non-interactive mode", title)
	return "", nil
}

func testCommit(hash, subject string, day int) git.Commit {
	return git.Commit{
		Hash:         hash,
		Author:       "alice",
		AuthoredDate: time.Date(2022, 6, day, 10, 0, 0, 0, time.UTC),
		Subject:      subject,
	}
}

func mergedPR(number int, title string, mergedDay int) *github.PullRequest {
	return &github.PullRequest{
		Number:   number,
		Title:    title,
		State:    "closed",
		HTMLURL:  fmt.Sprintf("https://github.com/OCA/wms/pull/%d", number),
		User:     github.PRUser{Login: "alice"},
		MergedAt: time.Date(2022, 7, mergedDay, 12, 0, 0, 0, time.UTC),
	}
}
