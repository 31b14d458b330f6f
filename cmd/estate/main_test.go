package main

import (
	"bytes"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/rahul/estate/internal/agent"
	"github.com/rahul/estate/internal/approval"
	"github.com/rahul/estate/internal/data"
	"github.com/rahul/estate/internal/store"
	"github.com/rahul/estate/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseContext(t *testing.T) {
	qctx, err := parseContext([]string{"property_id=PROP-001", " vendor_id = VEN-001 ", "note=a=b"})
	require.NoError(t, err)
	assert.Equal(t, agent.Context{
		"property_id": "PROP-001",
		"vendor_id":   "VEN-001",
		"note":        "a=b",
	}, qctx)

	_, err = parseContext([]string{"novalue"})
	assert.Error(t, err)
	_, err = parseContext([]string{"=x"})
	assert.Error(t, err)
}

func TestApproverFor(t *testing.T) {
	assert.Equal(t, approval.Auto{Decision: true}, approverFor(config.ApprovalReject, true, nil, nil))
	assert.Equal(t, approval.Auto{Decision: true}, approverFor(config.ApprovalApprove, false, nil, nil))
	assert.Equal(t, approval.Auto{Decision: false}, approverFor(config.ApprovalReject, false, nil, nil))
	assert.IsType(t, &approval.Console{}, approverFor(config.ApprovalConsole, false, strings.NewReader(""), &bytes.Buffer{}))
}

func TestOpenHistory(t *testing.T) {
	h, err := openHistory(config.MemoryConfig{Type: config.MemoryTypeMemory})
	require.NoError(t, err)
	assert.IsType(t, &store.MemoryHistory{}, h)

	h, err = openHistory(config.MemoryConfig{Type: config.MemoryTypeSQLite, Path: t.TempDir() + "/history.db"})
	require.NoError(t, err)
	assert.IsType(t, &store.SQLiteHistory{}, h)
	require.NoError(t, h.Close())
}

func TestCheckTables(t *testing.T) {
	fsys := fstest.MapFS{
		"entities/properties.csv": {Data: []byte("property_id\nPROP-001\nPROP-002\n")},
		"entities/vendors.csv":    {Data: []byte("vendor_id\nVEN-001\n")},
	}
	var out bytes.Buffer
	missing := checkTables(&out, data.NewTables(fsys, nil))

	assert.Equal(t, len(requiredTables)-2, missing)
	assert.Contains(t, out.String(), "entities/properties.csv")
	assert.Regexp(t, `properties\s+ok\s+2`, out.String())
}

func TestStartupChecks(t *testing.T) {
	cfg := config.Default()
	cfg.Providers["openai"] = config.ProviderConfig{APIKey: "sk-test-abcd1234", Enabled: true}

	checks := startupChecks(cfg, data.NewTables(fstest.MapFS{}, nil))
	require.Len(t, checks, 1+len(requiredTables))
	assert.True(t, checks[0].OK)
	assert.True(t, strings.HasSuffix(checks[0].Note, "1234"))
	assert.NotContains(t, checks[0].Note, "sk-test")
	for _, c := range checks[1:] {
		assert.False(t, c.OK)
	}
}
