package cli

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/connectorctl/internal/core/domain"
)

func TestVerifyCmd_AllHealthy(t *testing.T) {
	m := &fakeManager{report: &domain.VerifyReport{Entries: []domain.VerifyEntry{
		{Name: fileSystemID, Settings: domain.NewConnectorSettings(fileSystemID, "0.13.0"), Status: domain.VerifyStatusOK},
		{Name: nuixID, Settings: domain.NewConnectorSettings(nuixID, "0.13.0"), Status: domain.VerifyStatusRepaired},
	}}}

	out, err := execute(t, m, nil, "verify")
	require.NoError(t, err)
	assert.Contains(t, out, "OK")
	assert.Contains(t, out, "Downloaded")
}

func TestVerifyCmd_Failure(t *testing.T) {
	m := &fakeManager{report: &domain.VerifyReport{Entries: []domain.VerifyEntry{
		{Name: fileSystemID, Settings: domain.NewConnectorSettings(fileSystemID, "0.13.0"), Status: domain.VerifyStatusOK},
		{
			Name:     nuixID,
			Settings: domain.NewConnectorSettings(nuixID, "0.13.0"),
			Status:   domain.VerifyStatusMissingDirectory,
			Err:      domain.ErrInstallationMissing,
		},
	}}}

	out, err := execute(t, m, nil, "verify", "-o", "json")
	require.ErrorIs(t, err, domain.ErrVerificationFailed)
	assert.Contains(t, err.Error(), "1 of 2 connectors failed")

	var views []verifyView
	require.NoError(t, json.Unmarshal([]byte(out), &views))
	require.Len(t, views, 2)
	assert.Equal(t, "missing_directory", views[1].Status)
	assert.Equal(t, domain.ErrInstallationMissing.Error(), views[1].Error)
	assert.Empty(t, views[0].Error)
}

func TestVerifyCmd_Empty(t *testing.T) {
	out, err := execute(t, &fakeManager{report: &domain.VerifyReport{}}, nil, "verify")
	require.NoError(t, err)
	assert.Contains(t, out, "No connectors configured.")
}

func TestStatusText(t *testing.T) {
	assert.Equal(t, "OK", statusText(domain.VerifyStatusOK, false))
	assert.Equal(t, "Download failed", statusText(domain.VerifyStatusRepairFailed, false))
	assert.Contains(t, statusText(domain.VerifyStatusMissingBinary, true), "Binary missing")
}

func TestParseOutputFormat(t *testing.T) {
	for _, s := range []string{"table", "json", "yaml"} {
		f, err := parseOutputFormat(s)
		require.NoError(t, err)
		assert.Equal(t, OutputFormat(s), f)
	}

	_, err := parseOutputFormat("csv")
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
}
