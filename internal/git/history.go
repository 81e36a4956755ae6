package git

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Commit represents one commit touching an addon. Produced by history
// queries and never mutated afterwards.
type Commit struct {
	Hash         string
	Author       string
	AuthoredDate time.Time
	Subject      string
	Body         string
	FilesChanged []string
}

// ShortHash returns the abbreviated commit hash.
func (c Commit) ShortHash() string {
	if len(c.Hash) > 7 {
		return c.Hash[:7]
	}
	return c.Hash
}

// Message returns the full commit message (subject plus body).
func (c Commit) Message() string {
	if c.Body == "" {
		return c.Subject
	}
	return c.Subject + "\n\n" + c.Body
}

// log output separators: NUL between fields, RS between records. Commit
// bodies can contain nearly anything else.
const (
	logFieldSep  = "\x00"
	logRecordSep = "\x1e"
)

const logFormat = "%H%x00%an%x00%at%x00%s%x00%b%x1e"

// CommitsBetween returns the commits reachable from `from` but not from
// `to` (two-dot, ancestry-based exclusion) that modify a file under path,
// oldest first so replay order is preserved. Merge commits are skipped.
// An unchanged path yields an empty slice, not an error.
func (r *Repository) CommitsBetween(from, to BranchRef, path string) ([]Commit, error) {
	if _, err := r.ResolveRef(from); err != nil {
		return nil, err
	}
	if _, err := r.ResolveRef(to); err != nil {
		return nil, err
	}

	out, err := r.run(
		"log", "--reverse", "--no-merges",
		"--format="+logFormat,
		fmt.Sprintf("%s..%s", to.Ref(), from.Ref()),
		"--", path,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list commits between %s and %s: %w", to.Ref(), from.Ref(), err)
	}

	commits, err := parseLog(out)
	if err != nil {
		return nil, err
	}
	for i := range commits {
		files, err := r.filesChanged(commits[i].Hash, path)
		if err != nil {
			return nil, err
		}
		commits[i].FilesChanged = files
	}
	return commits, nil
}

// AncestorCommits returns the commits reachable from ref that modify a
// file under path, without any exclusion. Used to build the equivalence
// set of already-applied commits on the target branch.
func (r *Repository) AncestorCommits(ref BranchRef, path string) ([]Commit, error) {
	if _, err := r.ResolveRef(ref); err != nil {
		return nil, err
	}
	out, err := r.run(
		"log", "--no-merges",
		"--format="+logFormat,
		ref.Ref(),
		"--", path,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list ancestors of %s: %w", ref.Ref(), err)
	}
	return parseLog(out)
}

func parseLog(out string) ([]Commit, error) {
	var commits []Commit
	for _, record := range strings.Split(out, logRecordSep) {
		record = strings.TrimLeft(record, "\n")
		if strings.TrimSpace(record) == "" {
			continue
		}
		fields := strings.SplitN(record, logFieldSep, 5)
		if len(fields) != 5 {
			return nil, fmt.Errorf("unexpected git log record: %q", record)
		}
		epoch, err := strconv.ParseInt(fields[2], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid author date %q: %w", fields[2], err)
		}
		commits = append(commits, Commit{
			Hash:         fields[0],
			Author:       fields[1],
			AuthoredDate: time.Unix(epoch, 0),
			Subject:      fields[3],
			Body:         strings.TrimSpace(fields[4]),
		})
	}
	return commits, nil
}

// filesChanged returns the files modified by a commit, restricted to path.
func (r *Repository) filesChanged(hash, path string) ([]string, error) {
	args := []string{"diff-tree", "--no-commit-id", "--name-only", "-r", hash}
	if path != "" {
		args = append(args, "--", path)
	}
	out, err := r.run(args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list files of %s: %w", hash, err)
	}
	var files []string
	for _, line := range strings.Split(out, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			files = append(files, line)
		}
	}
	return files, nil
}

// PatchID computes a stable content-based equivalence key for the diff a
// commit introduces under path. Ported commits get new hashes, so
// "already ported" detection must compare patch content, not identity.
// An empty string means the commit introduces no change under path.
func (r *Repository) PatchID(hash, path string) (string, error) {
	args := []string{"show", hash}
	if path != "" {
		args = append(args, "--", path)
	}
	diff, err := r.run(args...)
	if err != nil {
		return "", fmt.Errorf("failed to show %s: %w", hash, err)
	}
	out, err := r.runInput([]byte(diff), "patch-id", "--stable")
	if err != nil {
		return "", fmt.Errorf("failed to compute patch-id of %s: %w", hash, err)
	}
	fields := strings.Fields(out)
	if len(fields) == 0 {
		return "", nil
	}
	return fields[0], nil
}
