package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/acorn-io/dns-converge/pkg/model"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
hostname: app.example.com
probePort: 9090
pollInterval: 30s
records:
  app.example.com: {domain: example.com, type: A, data: "${TEST_VM_IP}"}
  www.example.com: {domain: example.com, type: CNAME, data: app.example.com}
adapters:
  aws:
    accessKeyId: "${TEST_AWS_KEY}"
    secretAccessKey: plain
  digitalocean: null
profiles:
  default:
    tokenHash: "$2a$10$abcdefghijklmnopqrstuv"
    adapters:
      dnsimple: {email: ops@example.com, token: "${TEST_DNSIMPLE_TOKEN}"}
`

func TestLoad(t *testing.T) {
	t.Setenv("TEST_VM_IP", "203.0.113.5")
	t.Setenv("TEST_AWS_KEY", "AKIAEXAMPLE")
	t.Setenv("TEST_DNSIMPLE_TOKEN", "dnsimple-token")

	path := filepath.Join(t.TempDir(), "dns-converge.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "app.example.com", cfg.Hostname)
	assert.Equal(t, 9090, cfg.ProbePort)
	assert.Equal(t, 30*time.Second, cfg.PollInterval)
	assert.Equal(t, DefaultHostsFile, cfg.HostsFile)
	assert.Len(t, cfg.InstanceID, instanceIDLength)

	want := []model.Record{
		{Domain: "example.com", Name: "app.example.com", Type: model.RecordTypeA, Data: "203.0.113.5"},
		{Domain: "example.com", Name: "www.example.com", Type: model.RecordTypeCname, Data: "app.example.com"},
	}
	if diff := cmp.Diff(want, cfg.RecordList()); diff != "" {
		t.Errorf("records mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(t, "AKIAEXAMPLE", cfg.Adapters["aws"]["accessKeyId"])
	settings, ok := cfg.Adapters["digitalocean"]
	assert.True(t, ok)
	assert.Nil(t, settings)
	assert.Equal(t, "dnsimple-token", cfg.Profiles["default"].Adapters["dnsimple"]["token"])
}

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse([]byte("instanceId: fixed\n"))
	require.NoError(t, err)
	assert.Equal(t, "fixed", cfg.InstanceID)
	assert.Equal(t, DefaultProbePort, cfg.ProbePort)
	assert.Equal(t, DefaultPollInterval, cfg.PollInterval)
	assert.Empty(t, cfg.RecordList())
}

func TestParseInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "unknown record type",
			content: "records:\n  app.example.com: {domain: example.com, type: MX, data: mail}\n",
			wantErr: "unrecognized record type",
		},
		{
			name:    "missing data",
			content: "records:\n  app.example.com: {domain: example.com, type: A}\n",
			wantErr: "needs both domain and data",
		},
		{
			name:    "name outside domain",
			content: "records:\n  app.example.net: {domain: example.com, type: A, data: 203.0.113.5}\n",
			wantErr: "not inside domain",
		},
		{
			name:    "unknown adapter",
			content: "adapters:\n  cloudflare: {token: x}\n",
			wantErr: "unknown DNS adapter",
		},
		{
			name:    "profile without token hash",
			content: "profiles:\n  default: {adapters: {aws: {accessKeyId: x}}}\n",
			wantErr: "tokenHash is required",
		},
		{
			name:    "bad yaml",
			content: "records: [",
			wantErr: "parsing config file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.content))
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestValidateReportsRecordsInNameOrder(t *testing.T) {
	content := "records:\n" +
		"  zeta.example.com: {domain: example.com, type: MX, data: mail}\n" +
		"  alpha.example.com: {domain: example.com, type: TXT, data: hello}\n" +
		"  mid.example.com: {domain: example.com, type: SRV, data: x}\n"
	for i := 0; i < 5; i++ {
		_, err := Parse([]byte(content))
		assert.ErrorContains(t, err, "record alpha.example.com")
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorContains(t, err, "reading config file")
}
