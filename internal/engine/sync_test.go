package engine

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bianoble/crowdin-sync/internal/config"
	"github.com/bianoble/crowdin-sync/internal/ledger"
	"github.com/bianoble/crowdin-sync/internal/mapper"
	"github.com/bianoble/crowdin-sync/internal/remote"
	"github.com/bianoble/crowdin-sync/internal/sandbox"
	"github.com/bianoble/crowdin-sync/internal/syncerr"
)

type fixture struct {
	root       string
	ledgerPath string
	cat        *remote.Memory
	engine     *SyncEngine
	cfg        *config.Config
}

func newFixture(t *testing.T, mode config.Mode) *fixture {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "locales"), 0755))

	cfg := &config.Config{
		Version:         1,
		ProjectID:       "p1",
		RootDirectories: []string{"locales"},
		Mode:            mode,
		Retry:           fastRetry,
	}
	config.ApplyDefaults(cfg)

	cat := remote.NewMemory("de", "fr")
	ledgerPath := filepath.Join(root, ledger.DefaultFileName)
	return &fixture{
		root:       root,
		ledgerPath: ledgerPath,
		cat:        cat,
		cfg:        cfg,
		engine: &SyncEngine{
			Catalog:     cat,
			Writer:      sandbox.New(root),
			ProjectRoot: root,
			LedgerPath:  ledgerPath,
			NewRunID:    func() string { return "run-1" },
		},
	}
}

func (f *fixture) write(t *testing.T, rel, content string) string {
	t.Helper()
	p := filepath.Join(f.root, "locales", filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0644))
	return mapper.HashContent([]byte(content))
}

func TestSyncNewAndUnchangedUpdatesLedger(t *testing.T) {
	f := newFixture(t, config.ModeUploadOnly)
	h1 := f.write(t, "a.json", `{"a":1}`)
	h2 := f.write(t, "b.json", `{"b":2}`)
	f.cat.Seed("b.json", []byte(`{"b":2}`), "de")

	led := ledger.New("p1")
	led.Record("b.json", h2)
	require.NoError(t, ledger.Save(f.ledgerPath, led))

	result, err := f.engine.Sync(context.Background(), f.cfg, SyncOptions{})
	require.NoError(t, err)
	require.Equal(t, []ActionKind{UploadNew, Skip}, kinds(result.Plan))
	assert.Equal(t, "a.json", result.Plan[0].Key())
	assert.Equal(t, "b.json", result.Plan[1].Key())
	require.True(t, result.Report.OK(), "failed: %+v", result.Report.Failed)
	assert.Equal(t, "run-1", result.Report.RunID)

	after, err := ledger.Load(f.ledgerPath, "p1")
	require.NoError(t, err)
	assert.Equal(t, h1, after.Lookup("a.json"))
	assert.Equal(t, h2, after.Lookup("b.json"))
	assert.Equal(t, 1, f.cat.CallCount(remote.OpCreate))
}

func TestSyncIsIdempotent(t *testing.T) {
	f := newFixture(t, config.ModeUploadOnly)
	f.write(t, "a.json", `{"a":1}`)
	f.write(t, "nested/b.json", `{"b":2}`)

	first, err := f.engine.Sync(context.Background(), f.cfg, SyncOptions{})
	require.NoError(t, err)
	require.True(t, first.Report.OK())

	again, err := f.engine.Plan(context.Background(), f.cfg, "")
	require.NoError(t, err)
	require.Len(t, again.Plan, 2)
	for _, a := range again.Plan {
		assert.Equal(t, Skip, a.Kind, a.Target())
	}
}

func TestSyncChangedFileIsUpdated(t *testing.T) {
	f := newFixture(t, config.ModeUploadOnly)
	f.write(t, "a.json", `{"a":1}`)
	_, err := f.engine.Sync(context.Background(), f.cfg, SyncOptions{})
	require.NoError(t, err)

	h := f.write(t, "a.json", `{"a":2}`)
	result, err := f.engine.Sync(context.Background(), f.cfg, SyncOptions{})
	require.NoError(t, err)
	require.Equal(t, []ActionKind{UploadChanged}, kinds(result.Plan))
	assert.Equal(t, 1, f.cat.CallCount(remote.OpUpdate))

	content, ok := f.cat.Content("a.json")
	require.True(t, ok)
	assert.Equal(t, `{"a":2}`, string(content))

	led, err := ledger.Load(f.ledgerPath, "p1")
	require.NoError(t, err)
	assert.Equal(t, h, led.Lookup("a.json"))
}

func TestSyncFullDownloadsUnmatched(t *testing.T) {
	f := newFixture(t, config.ModeFull)
	f.write(t, "a.json", `{"a":1}`)
	f.cat.Seed("legacy/strings.xml", []byte("<resources/>"), "de")
	f.cat.SetTranslation("legacy/strings.xml", "de", []byte("<resources>de</resources>"))

	result, err := f.engine.Sync(context.Background(), f.cfg, SyncOptions{})
	require.NoError(t, err)
	require.Equal(t, []ActionKind{UploadNew, DownloadTranslation}, kinds(result.Plan))
	require.True(t, result.Report.OK(), "failed: %+v", result.Report.Failed)

	got, err := os.ReadFile(filepath.Join(f.root, "translations", "de", "legacy", "strings.xml"))
	require.NoError(t, err)
	assert.Equal(t, "<resources>de</resources>", string(got))

	led, err := ledger.Load(f.ledgerPath, "p1")
	require.NoError(t, err)
	assert.Equal(t, mapper.HashContent(got), led.LookupTranslation("legacy/strings.xml", "de"))
}

func TestSyncDeleteRemoved(t *testing.T) {
	f := newFixture(t, config.ModeFull)
	f.cfg.Upload.DeleteRemoved = true
	f.write(t, "a.json", `{"a":1}`)
	f.cat.Seed("old.json", []byte(`{"old":1}`), "de")

	led := ledger.New("p1")
	led.Record("old.json", "H-old")
	led.RecordTranslation("old.json", "de", "H-de")
	require.NoError(t, ledger.Save(f.ledgerPath, led))

	result, err := f.engine.Sync(context.Background(), f.cfg, SyncOptions{})
	require.NoError(t, err)
	require.Equal(t, []ActionKind{UploadNew, DeleteResource}, kinds(result.Plan))
	require.True(t, result.Report.OK(), "failed: %+v", result.Report.Failed)

	_, ok := f.cat.Content("old.json")
	assert.False(t, ok)
	assert.NoDirExists(t, filepath.Join(f.root, "translations"))

	got, err := ledger.Load(f.ledgerPath, "p1")
	require.NoError(t, err)
	assert.Empty(t, got.Lookup("old.json"))
	assert.Empty(t, got.LookupTranslation("old.json", "de"))
	assert.NotEmpty(t, got.Lookup("a.json"))
}

func TestSyncPartialFailureKeepsSuccesses(t *testing.T) {
	f := newFixture(t, config.ModeUploadOnly)
	f.write(t, "a.json", `{"a":1}`)
	f.write(t, "b.json", `{"b":2}`)
	f.cat.FailNext(remote.OpCreate, "b.json", syncerr.New(syncerr.KindValidation, "create", errors.New("bad file")), 1)

	result, err := f.engine.Sync(context.Background(), f.cfg, SyncOptions{})
	require.NoError(t, err)
	require.Len(t, result.Report.Failed, 1)
	require.NoError(t, result.LedgerErr)

	led, err := ledger.Load(f.ledgerPath, "p1")
	require.NoError(t, err)
	assert.NotEmpty(t, led.Lookup("a.json"))
	assert.Empty(t, led.Lookup("b.json"))
}

func TestSyncAuthFailureBeforeActionsWritesNothing(t *testing.T) {
	f := newFixture(t, config.ModeFull)
	f.write(t, "a.json", `{"a":1}`)
	f.cat.FailNext(remote.OpList, "", syncerr.New(syncerr.KindAuth, "list", errors.New("401")), 1)

	result, err := f.engine.Sync(context.Background(), f.cfg, SyncOptions{})
	require.Error(t, err)
	assert.Nil(t, result)
	assert.Equal(t, syncerr.KindAuth, syncerr.KindOf(err))

	_, statErr := os.Stat(f.ledgerPath)
	assert.True(t, errors.Is(statErr, fs.ErrNotExist))
	assert.Zero(t, f.cat.CallCount(remote.OpCreate))
}

func TestSyncListRetriesTransient(t *testing.T) {
	f := newFixture(t, config.ModeUploadOnly)
	f.write(t, "a.json", `{"a":1}`)
	f.cat.FailNext(remote.OpList, "", transient(), 2)

	result, err := f.engine.Sync(context.Background(), f.cfg, SyncOptions{})
	require.NoError(t, err)
	assert.True(t, result.Report.OK())
	assert.Equal(t, 3, f.cat.CallCount(remote.OpList))
}

func TestSyncDryRun(t *testing.T) {
	f := newFixture(t, config.ModeUploadOnly)
	f.write(t, "a.json", `{"a":1}`)

	result, err := f.engine.Sync(context.Background(), f.cfg, SyncOptions{DryRun: true})
	require.NoError(t, err)
	assert.Nil(t, result.Report)
	assert.Len(t, result.Plan, 1)
	assert.Zero(t, f.cat.CallCount(remote.OpCreate))

	_, statErr := os.Stat(f.ledgerPath)
	assert.True(t, errors.Is(statErr, fs.ErrNotExist))
}

func TestSyncModeOverride(t *testing.T) {
	f := newFixture(t, config.ModeFull)
	f.write(t, "a.json", `{"a":1}`)
	f.cat.Seed("other.json", []byte("{}"), "de")

	result, err := f.engine.Sync(context.Background(), f.cfg, SyncOptions{Mode: config.ModeUploadOnly})
	require.NoError(t, err)
	assert.Equal(t, []ActionKind{UploadNew}, kinds(result.Plan))
}

func TestSyncMissingRootIsConfigurationError(t *testing.T) {
	f := newFixture(t, config.ModeUploadOnly)
	f.cfg.RootDirectories = []string{"missing"}

	_, err := f.engine.Sync(context.Background(), f.cfg, SyncOptions{})
	require.Error(t, err)
	assert.Equal(t, syncerr.KindConfiguration, syncerr.KindOf(err))
}

func TestSyncLedgerLocked(t *testing.T) {
	f := newFixture(t, config.ModeUploadOnly)
	lk, err := ledger.Lock(f.ledgerPath)
	require.NoError(t, err)
	defer func() { _ = lk.Unlock() }()

	_, err = f.engine.Sync(context.Background(), f.cfg, SyncOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ledger.ErrLocked)
}

func TestStatusDescribesPlan(t *testing.T) {
	f := newFixture(t, config.ModeFull)
	f.write(t, "a.json", `{"a":1}`)
	f.cat.Seed("other.json", []byte("{}"), "de")

	status, err := f.engine.Status(context.Background(), f.cfg, "")
	require.NoError(t, err)
	require.Len(t, status.Actions, 2)
	assert.Equal(t, "new", status.Actions[0].State)
	assert.Equal(t, "locales/a.json", status.Actions[0].Local)
	assert.Equal(t, "download", status.Actions[1].State)
	assert.Equal(t, "translations/de/other.json", status.Actions[1].Local)
	assert.Equal(t, map[string]int{"new": 1, "download": 1}, status.Counts)
}

func TestDescribeDelete(t *testing.T) {
	actions := []Action{{Kind: DeleteResource, Remote: resource("old.json", "3")}}

	got := Describe(actions, config.ModeUploadOnly)
	require.Len(t, got.Actions, 1)
	assert.Equal(t, ActionStatus{Remote: "old.json", State: "delete"}, got.Actions[0])
	assert.Equal(t, 1, got.Counts["delete"])
	assert.Equal(t, "old.json", actions[0].Target())
}

func TestRunContextTimeout(t *testing.T) {
	cfg := &config.Config{Timeout: "1h"}
	ctx, cancel := RunContext(context.Background(), cfg, 0)
	defer cancel()
	_, ok := ctx.Deadline()
	assert.True(t, ok)

	ctx2, cancel2 := RunContext(context.Background(), &config.Config{}, 0)
	defer cancel2()
	_, ok = ctx2.Deadline()
	assert.False(t, ok)
}
