package engine

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bianoble/crowdin-sync/internal/config"
	"github.com/bianoble/crowdin-sync/internal/ledger"
)

func TestCheckCleanAfterSync(t *testing.T) {
	f := newFixture(t, config.ModeUploadOnly)
	f.write(t, "a.json", `{"a":1}`)
	_, err := f.engine.Sync(context.Background(), f.cfg, SyncOptions{})
	require.NoError(t, err)

	ce := &CheckEngine{ProjectRoot: f.root, LedgerPath: f.ledgerPath}
	result, err := ce.Check(context.Background(), f.cfg)
	require.NoError(t, err)
	assert.True(t, result.Clean)
	assert.Empty(t, result.Drifted)
}

func TestCheckReportsDriftAndStale(t *testing.T) {
	f := newFixture(t, config.ModeUploadOnly)
	h := f.write(t, "a.json", `{"a":1}`)
	f.write(t, "new.json", `{"n":1}`)

	led := ledger.New("p1")
	led.Record("a.json", h)
	led.Record("gone.json", h)
	require.NoError(t, ledger.Save(f.ledgerPath, led))

	h2 := f.write(t, "a.json", `{"a":2}`)

	ce := &CheckEngine{ProjectRoot: f.root, LedgerPath: f.ledgerPath}
	result, err := ce.Check(context.Background(), f.cfg)
	require.NoError(t, err)
	assert.False(t, result.Clean)
	require.Len(t, result.Drifted, 2)
	assert.Equal(t, DriftEntry{Path: "locales/a.json", RemoteKey: "a.json", Expected: h, Actual: h2}, result.Drifted[0])
	assert.Equal(t, "", result.Drifted[1].Expected)
	assert.Equal(t, []string{"gone.json"}, result.Stale)
}

func TestPruneRemovesStaleKeys(t *testing.T) {
	f := newFixture(t, config.ModeUploadOnly)
	h := f.write(t, "a.json", `{"a":1}`)

	led := ledger.New("p1")
	led.Record("a.json", h)
	led.Record("gone.json", h)
	require.NoError(t, ledger.Save(f.ledgerPath, led))

	pe := &PruneEngine{ProjectRoot: f.root, LedgerPath: f.ledgerPath}

	dry, err := pe.Prune(context.Background(), f.cfg, PruneOptions{DryRun: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"gone.json"}, dry.Removed)
	still, err := ledger.Load(f.ledgerPath, "p1")
	require.NoError(t, err)
	assert.NotEmpty(t, still.Lookup("gone.json"))

	result, err := pe.Prune(context.Background(), f.cfg, PruneOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"gone.json"}, result.Removed)

	after, err := ledger.Load(f.ledgerPath, "p1")
	require.NoError(t, err)
	assert.Equal(t, []string{"a.json"}, after.Keys())

	_, err = os.Stat(f.root + "/locales/a.json")
	assert.NoError(t, err, "prune must not touch local files")
}

func TestInfo(t *testing.T) {
	f := newFixture(t, config.ModeFull)
	led := ledger.New("p1")
	led.Record("a.json", "0000000000000000000000000000000000000000000000000000000000000000")
	led.RecordTranslation("b.json", "de", "1111111111111111111111111111111111111111111111111111111111111111")
	require.NoError(t, ledger.Save(f.ledgerPath, led))

	r, err := Info("1.2.3", f.cfg, []config.ConfigLayerInfo{
		{Level: config.LevelUser, Path: "/home/u/.config/crowdin-sync/crowdin-sync.yaml"},
		{Level: config.LevelProject, Path: "crowdin-sync.yaml", Loaded: true},
	}, "crowdin-sync.yaml", f.ledgerPath)
	require.NoError(t, err)

	assert.Equal(t, "1.2.3", r.Version)
	assert.Equal(t, "p1", r.ProjectID)
	assert.Equal(t, 1, r.Resources)
	assert.Equal(t, 1, r.Translations)
	assert.Positive(t, r.LedgerSize)
	assert.False(t, r.HasToken)
	assert.Equal(t, "https://api.crowdin.com/api/v2", r.Endpoint)
	require.Len(t, r.ConfigChain, 2)
	assert.True(t, r.ConfigChain[1].Loaded)
}
