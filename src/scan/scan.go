// Package scan checks the provisioning tree for committed secrets
// before its bundles get deployed into build contexts.
package scan

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/zricethezav/gitleaks/v8/detect"
	"golang.org/x/sync/semaphore"
)

// defaultMaxFileSize skips anything larger; config bundles are small
// text trees and big files are almost always binaries.
const defaultMaxFileSize = 1 << 20

// Finding is one detected secret.
type Finding struct {
	File        string
	Line        int
	RuleID      string
	Description string
}

// Scanner runs the gitleaks default ruleset over a directory tree.
type Scanner struct {
	MaxFileSize int64

	detector *detect.Detector
}

// New creates a scanner with the gitleaks default configuration.
func New() (*Scanner, error) {
	d, err := detect.NewDetectorDefaultConfig()
	if err != nil {
		return nil, err
	}
	return &Scanner{detector: d, MaxFileSize: defaultMaxFileSize}, nil
}

// ScanTree scans every regular file under root. Files over MaxFileSize
// are skipped. The per-file detection runs on a bounded worker pool;
// file order in the result follows the walk order.
func (s *Scanner) ScanTree(ctx context.Context, root string) ([]Finding, error) {
	files, err := collectFiles(root, s.MaxFileSize)
	if err != nil {
		return nil, err
	}

	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		findings = make(map[string][]Finding, len(files))
		firstErr error
	)

	sem := semaphore.NewWeighted(int64(runtime.NumCPU()))

	for _, file := range files {
		if err := sem.Acquire(ctx, 1); err != nil {
			return nil, err
		}
		wg.Add(1)
		go func(path string) {
			defer wg.Done()
			defer sem.Release(1)

			ff, err := s.scanFile(path, root)
			mu.Lock()
			defer mu.Unlock()
			if err != nil && firstErr == nil {
				firstErr = err
				return
			}
			if len(ff) > 0 {
				findings[path] = ff
			}
		}(file)
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}

	var out []Finding
	for _, file := range files {
		out = append(out, findings[file]...)
	}
	return out, nil
}

func (s *Scanner) scanFile(path, root string) ([]Finding, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	hits := s.detector.DetectBytes(data)
	if len(hits) == 0 {
		return nil, nil
	}

	rel, err := filepath.Rel(root, path)
	if err != nil {
		rel = path
	}

	findings := make([]Finding, 0, len(hits))
	for _, h := range hits {
		findings = append(findings, Finding{
			File:        rel,
			Line:        h.StartLine + 1, // gitleaks is 0-indexed
			RuleID:      h.RuleID,
			Description: h.Description,
		})
	}
	return findings, nil
}

// collectFiles lists the regular files under root worth scanning, in
// walk order.
func collectFiles(root string, maxSize int64) ([]string, error) {
	if maxSize <= 0 {
		maxSize = defaultMaxFileSize
	}

	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if !info.Mode().IsRegular() || info.Size() > maxSize {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}
