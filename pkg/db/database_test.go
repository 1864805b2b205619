package db

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/acorn-io/dns-converge/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDatabase(t *testing.T) *database {
	t.Helper()
	d, err := New(context.Background(), "sqlite", filepath.Join(t.TempDir(), "test.db"), nil)
	require.NoError(t, err)
	return d.(*database)
}

func TestUnsupportedDialect(t *testing.T) {
	_, err := New(context.Background(), "postgres", "", nil)
	assert.ErrorContains(t, err, "unsupported dialect")
}

func TestVMIP(t *testing.T) {
	d := newTestDatabase(t)
	ctx := context.Background()

	ip, err := d.VMIP(ctx)
	require.NoError(t, err)
	assert.Empty(t, ip)

	require.NoError(t, d.SetVMIP(ctx, "203.0.113.5"))
	require.NoError(t, d.SetVMIP(ctx, "203.0.113.6"))

	ip, err = d.VMIP(ctx)
	require.NoError(t, err)
	assert.Equal(t, "203.0.113.6", ip)

	var count int64
	require.NoError(t, d.db.Model(&RuntimeSetting{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestReports(t *testing.T) {
	d := newTestDatabase(t)
	ctx := context.Background()

	_, _, err := d.LatestReport(ctx, "")
	assert.ErrorIs(t, err, ErrNoReport)

	pending := model.NewConvergenceResponse()
	pending.Declared["app.example.com"] = model.Declaration{Domain: "example.com", Type: model.RecordTypeA, Data: "203.0.113.5"}
	pending.Resolving["app.example.com"] = []string{}
	pending.Status = model.StatusPending
	require.NoError(t, d.SaveReport(ctx, "deploy", pending))

	ready := model.NewConvergenceResponse()
	ready.Status = model.StatusReady
	require.NoError(t, d.SaveReport(ctx, "check", ready))

	latest, at, err := d.LatestReport(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, model.StatusReady, latest.Status)
	assert.False(t, at.IsZero())

	latest, _, err = d.LatestReport(ctx, "deploy")
	require.NoError(t, err)
	assert.Equal(t, pending, latest)
}

func TestPurgeReports(t *testing.T) {
	d := newTestDatabase(t)
	ctx := context.Background()

	require.NoError(t, d.SaveReport(ctx, "check", model.NewConvergenceResponse()))
	require.NoError(t, d.db.Model(&Report{}).Where("1 = 1").Update("created_at", time.Now().Add(-2*time.Hour)).Error)
	require.NoError(t, d.SaveReport(ctx, "check", model.NewConvergenceResponse()))

	deleted, err := d.PurgeReports(time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	var count int64
	require.NoError(t, d.db.Unscoped().Model(&Report{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestRedisRuntime(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	ctx := context.Background()

	r, err := NewRedisRuntime(ctx, addr, os.Getenv("REDIS_PASSWORD"), t.Name()+time.Now().Format(time.RFC3339Nano))
	require.NoError(t, err)
	defer r.Close()

	ip, err := r.VMIP(ctx)
	require.NoError(t, err)
	assert.Empty(t, ip)

	require.NoError(t, r.SetVMIP(ctx, "203.0.113.5"))
	ip, err = r.VMIP(ctx)
	require.NoError(t, err)
	assert.Equal(t, "203.0.113.5", ip)
	require.NoError(t, r.client.Del(ctx, r.key(settingVMIP)).Err())
}
