package importer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerlink-dev/ledgerlink/internal/logging"
	"github.com/ledgerlink-dev/ledgerlink/internal/model"
	"github.com/ledgerlink-dev/ledgerlink/internal/store"
	"github.com/ledgerlink-dev/ledgerlink/internal/store/memory"
)

const sampleStatement = "Datum;Omschrijving;Bedrag\n" +
	"05/03/2024;CLOUDHOST EU SARL;-49,00\n" +
	"06/03/2024;Betaling factuur 2024-117;-120,00\n" +
	"07/03/2024;COLRUYT 441 HALLE;-86,40\n"

func newImporter() (*Importer, *memory.Store) {
	st := memory.New()
	return New(st, logging.Nop()), st
}

func TestImport(t *testing.T) {
	ctx := context.Background()
	im, st := newImporter()

	stats, err := im.Import(ctx, "acct-1", []byte(sampleStatement), DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 3, stats.Imported)
	assert.Equal(t, 0, stats.Skipped)
	assert.Equal(t, 0, stats.Errors)
	require.Len(t, stats.Transactions, 3)

	for _, tx := range stats.Transactions {
		assert.NotEmpty(t, tx.ID)
		assert.NotEmpty(t, tx.Fingerprint)
		assert.Equal(t, "acct-1", tx.AccountID)
		assert.Equal(t, model.StatusPending, tx.Status)
	}

	// Keyword hit on the third row.
	assert.Equal(t, "groceries", stats.Transactions[2].SuggestedCategory)

	listed, err := st.ListTransactions(ctx, store.TransactionFilter{})
	require.NoError(t, err)
	assert.Len(t, listed, 3)
}

func TestImport_SecondPassSkipsEverything(t *testing.T) {
	ctx := context.Background()
	im, _ := newImporter()

	_, err := im.Import(ctx, "acct-1", []byte(sampleStatement), DefaultOptions())
	require.NoError(t, err)

	stats, err := im.Import(ctx, "acct-1", []byte(sampleStatement), DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 0, stats.Imported)
	assert.Equal(t, stats.Total, stats.Skipped)
}

func TestImport_DedupIsScopedPerAccount(t *testing.T) {
	ctx := context.Background()
	im, _ := newImporter()

	_, err := im.Import(ctx, "acct-1", []byte(sampleStatement), DefaultOptions())
	require.NoError(t, err)

	// The same rows under another account are new transactions.
	stats, err := im.Import(ctx, "acct-2", []byte(sampleStatement), DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Imported)
	assert.Equal(t, 0, stats.Skipped)
}

func TestImport_UpdateExistingRefreshesCategoriesOnly(t *testing.T) {
	ctx := context.Background()
	im, st := newImporter()

	first, err := im.Import(ctx, "acct-1", []byte(sampleStatement), DefaultOptions())
	require.NoError(t, err)

	// Simulate a reviewed transaction whose category rules changed since.
	reviewed := first.Transactions[2]
	reviewed.SuggestedCategory = "stale"
	require.NoError(t, st.UpdateTransaction(ctx, reviewed))

	opts := DefaultOptions()
	opts.UpdateExisting = true
	stats, err := im.Import(ctx, "acct-1", []byte(sampleStatement), opts)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Updated)
	assert.Equal(t, 0, stats.Imported)

	tx, err := st.GetTransaction(ctx, reviewed.ID)
	require.NoError(t, err)
	assert.Equal(t, "groceries", tx.SuggestedCategory)
	assert.Equal(t, model.StatusPending, tx.Status, "update never touches reconciliation state")
}

func TestImport_StrictModeRejectsDuplicates(t *testing.T) {
	ctx := context.Background()
	im, _ := newImporter()

	_, err := im.Import(ctx, "acct-1", []byte(sampleStatement), DefaultOptions())
	require.NoError(t, err)

	stats, err := im.Import(ctx, "acct-1", []byte(sampleStatement), Options{})
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Errors)
	assert.Equal(t, 0, stats.Imported)
	assert.Equal(t, 0, stats.Skipped)
}

func TestImport_BadRowsBecomeWarnings(t *testing.T) {
	ctx := context.Background()
	im, _ := newImporter()

	raw := sampleStatement + "NOTADATE;broken row;-1,00\n"
	stats, err := im.Import(ctx, "acct-1", []byte(raw), DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 3, stats.Imported)
	require.Len(t, stats.Warnings, 1)
	assert.Equal(t, 5, stats.Warnings[0].Line)
}

func TestImport_RequiresAccountID(t *testing.T) {
	im, _ := newImporter()
	_, err := im.Import(context.Background(), "", []byte(sampleStatement), DefaultOptions())
	require.Error(t, err)
}

func TestImport_UnknownFormat(t *testing.T) {
	im, _ := newImporter()
	opts := DefaultOptions()
	opts.Format = "no-such-bank"
	_, err := im.Import(context.Background(), "acct-1", []byte(sampleStatement), opts)
	require.Error(t, err)
}

func TestPreviewStatement(t *testing.T) {
	ctx := context.Background()
	im, st := newImporter()

	p, err := im.PreviewStatement(ctx, "acct-1", []byte(sampleStatement), DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, 3, p.Total)
	assert.Equal(t, 3, p.NewCount)
	assert.Equal(t, 0, p.DuplicateCount)
	require.Len(t, p.Rows, 3)
	assert.Equal(t, "-49.00", p.Rows[0].Amount)
	assert.False(t, p.Rows[0].IsDuplicate)

	// Preview never persists.
	listed, err := st.ListTransactions(ctx, store.TransactionFilter{})
	require.NoError(t, err)
	assert.Empty(t, listed)

	// After a real import the same rows preview as duplicates.
	_, err = im.Import(ctx, "acct-1", []byte(sampleStatement), DefaultOptions())
	require.NoError(t, err)

	p, err = im.PreviewStatement(ctx, "acct-1", []byte(sampleStatement), DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, 3, p.DuplicateCount)
	assert.Equal(t, 0, p.NewCount)
	assert.True(t, p.Rows[0].IsDuplicate)
}

func TestPreviewStatement_SampleCap(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("Datum;Omschrijving;Bedrag\n")
	for i := 0; i < 30; i++ {
		fmt.Fprintf(&sb, "%02d/03/2024;Row %d;-%d,00\n", i%28+1, i, i+1)
	}

	im, _ := newImporter()
	p, err := im.PreviewStatement(context.Background(), "acct-1", []byte(sb.String()), DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, 30, p.Total)
	assert.Len(t, p.Rows, previewSampleCap)
}

func TestScanAndMarkProcessed(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, importDir)
	require.NoError(t, os.MkdirAll(dir, 0o755))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "march.csv"), []byte(sampleStatement), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("not a statement"), 0o644))

	files, err := Scan(root)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "march.csv", files[0].Name)
	assert.Greater(t, files[0].Size, int64(0))

	require.NoError(t, MarkProcessed(root, "march.csv"))

	files, err = Scan(root)
	require.NoError(t, err)
	assert.Empty(t, files)

	_, err = os.Stat(filepath.Join(root, processedDir, "march.csv"))
	require.NoError(t, err)
}

func TestScan_MissingDirIsEmpty(t *testing.T) {
	files, err := Scan(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestImportBatch(t *testing.T) {
	root := t.TempDir()
	pathA := filepath.Join(root, "a.csv")
	pathB := filepath.Join(root, "b.csv")
	require.NoError(t, os.WriteFile(pathA, []byte(sampleStatement), 0o644))
	require.NoError(t, os.WriteFile(pathB, []byte(sampleStatement), 0o644))

	im, _ := newImporter()
	results := im.ImportBatch(context.Background(), []BatchFile{
		{AccountID: "acct-1", Path: pathA},
		{AccountID: "acct-2", Path: pathB},
		{AccountID: "acct-3", Path: filepath.Join(root, "missing.csv")},
	}, DefaultOptions())

	require.Len(t, results, 3)
	require.NoError(t, results[0].Err)
	require.NoError(t, results[1].Err)
	assert.Equal(t, 3, results[0].Stats.Imported)
	assert.Equal(t, 3, results[1].Stats.Imported)
	require.Error(t, results[2].Err)
}
