// Package storage persists user decisions inside the repository itself,
// so a "do not port this again" choice travels with the branch it was
// taken on.
package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/camptocamp/oca-port/internal/git"
	"github.com/camptocamp/oca-port/internal/logger"
)

// BlacklistFile is the tracked file holding blacklist records, relative
// to the repository root.
const BlacklistFile = ".oca-port/blacklist.json"

// Blacklist records addons and pull requests the user declined to port or
// migrate. Records are consulted at the start of every run and committed
// onto the working branch when new ones are added.
type Blacklist struct {
	repo  *git.Repository
	path  string
	data  blacklistData
	dirty bool
}

type blacklistData struct {
	// Addons maps addon name to the reason it was blacklisted
	Addons map[string]string `json:"addons,omitempty"`
	// PullRequests maps a PR reference ("OCA/wms#42") to the reason
	PullRequests map[string]string `json:"pull_requests,omitempty"`
}

// NewBlacklist loads the blacklist file from the working tree. A missing
// file yields an empty blacklist.
func NewBlacklist(repo *git.Repository) (*Blacklist, error) {
	b := &Blacklist{
		repo: repo,
		path: filepath.Join(repo.Path(), BlacklistFile),
		data: blacklistData{
			Addons:       map[string]string{},
			PullRequests: map[string]string{},
		},
	}

	raw, err := os.ReadFile(b.path)
	if err != nil {
		if os.IsNotExist(err) {
			return b, nil
		}
		return nil, fmt.Errorf("failed to read blacklist file: %w", err)
	}
	if err := json.Unmarshal(raw, &b.data); err != nil {
		return nil, fmt.Errorf("failed to parse blacklist file: %w", err)
	}
	if b.data.Addons == nil {
		b.data.Addons = map[string]string{}
	}
	if b.data.PullRequests == nil {
		b.data.PullRequests = map[string]string{}
	}
	return b, nil
}

// IsAddonBlacklisted returns the reason an addon was blacklisted, if any.
func (b *Blacklist) IsAddonBlacklisted(addon string) (string, bool) {
	reason, ok := b.data.Addons[addon]
	return reason, ok
}

// BlacklistAddon records that an addon must not be proposed for porting
// or migration again.
func (b *Blacklist) BlacklistAddon(addon, reason string) {
	if reason == "" {
		reason = "Blacklisted by user"
	}
	b.data.Addons[addon] = reason
	b.dirty = true
	logger.Debug().Str("addon", addon).Str("reason", reason).Msg("Addon blacklisted")
}

// IsPRBlacklisted returns the reason a pull request was blacklisted, if any.
func (b *Blacklist) IsPRBlacklisted(ref string) (string, bool) {
	reason, ok := b.data.PullRequests[ref]
	return reason, ok
}

// BlacklistPR records that a pull request must not be proposed for
// porting again.
func (b *Blacklist) BlacklistPR(ref, reason string) {
	if reason == "" {
		reason = "Blacklisted by user"
	}
	b.data.PullRequests[ref] = reason
	b.dirty = true
	logger.Debug().Str("pr", ref).Str("reason", reason).Msg("Pull request blacklisted")
}

// Dirty reports whether records were added since the last commit.
func (b *Blacklist) Dirty() bool {
	return b.dirty
}

// Commit writes the blacklist file and records it in a commit on the
// current branch.
func (b *Blacklist) Commit(message string) error {
	if !b.dirty {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(b.path), 0o755); err != nil {
		return fmt.Errorf("failed to create blacklist directory: %w", err)
	}
	raw, err := json.MarshalIndent(b.data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal blacklist: %w", err)
	}
	if err := os.WriteFile(b.path, append(raw, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write blacklist file: %w", err)
	}
	if message == "" {
		message = "oca-port: update blacklist"
	}
	if err := b.repo.Commit(message, BlacklistFile); err != nil {
		return err
	}
	b.dirty = false
	return nil
}
