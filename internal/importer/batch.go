package importer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// FileInfo describes a statement file in the import directory.
type FileInfo struct {
	Name string
	Path string
	Size int64
}

// BatchFile is one statement in a multi-file batch.
type BatchFile struct {
	AccountID string
	Path      string
}

// BatchResult is the per-file outcome of a batch import.
type BatchResult struct {
	File  BatchFile
	Stats *Stats
	Err   error
}

const (
	importDir    = "import"
	processedDir = "import/processed"
)

// Scan returns statement CSVs waiting in <root>/import/.
func Scan(root string) ([]FileInfo, error) {
	dir := filepath.Join(root, importDir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading import dir: %w", err)
	}

	var files []FileInfo
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if !strings.HasSuffix(strings.ToLower(e.Name()), ".csv") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", e.Name(), err)
		}
		files = append(files, FileInfo{
			Name: e.Name(),
			Path: filepath.Join(dir, e.Name()),
			Size: info.Size(),
		})
	}
	return files, nil
}

// MarkProcessed moves a file from import/ to import/processed/.
func MarkProcessed(root, fileName string) error {
	src := filepath.Join(root, importDir, fileName)
	dstDir := filepath.Join(root, processedDir)

	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		return fmt.Errorf("creating processed dir: %w", err)
	}

	if err := os.Rename(src, filepath.Join(dstDir, fileName)); err != nil {
		return fmt.Errorf("moving %s to processed: %w", fileName, err)
	}
	return nil
}

// ImportBatch imports several statement files concurrently. Fingerprints are
// scoped per account, so files for different accounts cannot conflict; files
// for the same account serialize on the store's duplicate arbitration.
func (im *Importer) ImportBatch(ctx context.Context, files []BatchFile, opts Options) []BatchResult {
	results := make([]BatchResult, len(files))

	const workers = 4
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup

	for i, f := range files {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, f BatchFile) {
			defer wg.Done()
			defer func() { <-sem }()

			results[i].File = f
			raw, err := os.ReadFile(f.Path)
			if err != nil {
				results[i].Err = fmt.Errorf("reading %s: %w", f.Path, err)
				return
			}
			results[i].Stats, results[i].Err = im.Import(ctx, f.AccountID, raw, opts)
		}(i, f)
	}
	wg.Wait()

	return results
}
