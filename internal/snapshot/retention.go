package snapshot

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Info holds metadata for retention decisions.
type Info struct {
	Path      string
	Scenario  string
	Year      int
	Size      int64
	CreatedAt time.Time
}

// RetentionPolicy decides which snapshots of one scenario year to keep.
type RetentionPolicy interface {
	Apply(snapshots []Info) (keep []Info)
}

// CountPolicy keeps the N most recent snapshots.
type CountPolicy struct {
	MaxCount int
}

// Apply keeps the first MaxCount snapshots (assumed sorted newest-first).
func (p *CountPolicy) Apply(snapshots []Info) []Info {
	if p.MaxCount < 0 || len(snapshots) <= p.MaxCount {
		return snapshots
	}
	return snapshots[:p.MaxCount]
}

// List scans dir for snapshot files and returns them sorted newest-first.
// Files whose header cannot be read are skipped.
func List(dir string) ([]Info, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading snapshot directory: %w", err)
	}

	var snapshots []Info
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, FilePrefix) || !strings.HasSuffix(name, FileSuffix) {
			continue
		}

		path := filepath.Join(dir, name)
		header, err := ReadHeader(path)
		if err != nil {
			continue
		}
		fi, err := e.Info()
		if err != nil {
			continue
		}

		snapshots = append(snapshots, Info{
			Path:      path,
			Scenario:  header.Scenario,
			Year:      header.Year,
			Size:      fi.Size(),
			CreatedAt: header.CreatedAt,
		})
	}

	sort.SliceStable(snapshots, func(i, j int) bool {
		if !snapshots[i].CreatedAt.Equal(snapshots[j].CreatedAt) {
			return snapshots[i].CreatedAt.After(snapshots[j].CreatedAt)
		}
		return filepath.Base(snapshots[i].Path) > filepath.Base(snapshots[j].Path)
	})

	return snapshots, nil
}

// ApplyRetention applies policy separately to the snapshots of each scenario
// and year, and deletes the ones not kept.
func ApplyRetention(dir string, policy RetentionPolicy) (deleted []string, err error) {
	snapshots, err := List(dir)
	if err != nil {
		return nil, err
	}

	type groupKey struct {
		scenario string
		year     int
	}
	groups := make(map[groupKey][]Info)
	var order []groupKey
	for _, s := range snapshots {
		k := groupKey{s.Scenario, s.Year}
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], s)
	}

	for _, k := range order {
		group := groups[k]
		keep := make(map[string]bool)
		for _, s := range policy.Apply(group) {
			keep[s.Path] = true
		}
		for _, s := range group {
			if keep[s.Path] {
				continue
			}
			if err := os.Remove(s.Path); err != nil {
				return deleted, fmt.Errorf("removing %s: %w", filepath.Base(s.Path), err)
			}
			deleted = append(deleted, s.Path)
		}
	}

	return deleted, nil
}

// Rotate keeps only the newest keep snapshots per scenario and year. keep of
// 0 disables rotation.
func Rotate(dir string, keep int) ([]string, error) {
	if keep <= 0 {
		return nil, nil
	}
	return ApplyRetention(dir, &CountPolicy{MaxCount: keep})
}
