package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/lehigh-university-libraries/woundlabel/internal/labels"
	"github.com/lehigh-university-libraries/woundlabel/internal/models"
)

func TestRootCommandsRegistered(t *testing.T) {
	root := NewRootCmd()

	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.Subset(t, names, []string{"serve", "agreement", "export", "hash-password"})
}

// setupLabels writes the two-role scenario and points the config at it
func setupLabels(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(origDir) })

	path := filepath.Join(dir, "labels.csv")
	store := labels.NewCSVStore(path)
	for _, r := range []models.LabelRecord{
		{ImageID: "A", Role: models.Surgeon, Altered: true, Findings: []models.Finding{models.NecroticTissue}},
		{ImageID: "A", Role: models.Dermatologist, Altered: true, Findings: []models.Finding{models.NecroticTissue}},
		{ImageID: "B", Role: models.Surgeon},
		{ImageID: "B", Role: models.Dermatologist, Altered: true, Findings: []models.Finding{models.EdemaBeyondEdge}},
	} {
		require.NoError(t, store.Append(context.Background(), r))
	}

	t.Setenv("WOUNDLABEL_LABELS_PATH", path)
	t.Setenv("WOUNDLABEL_BLOB_DIR", filepath.Join(dir, "remote"))
	t.Setenv("WOUNDLABEL_LOG_LEVEL", "error")
	return dir
}

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestAgreementCommand(t *testing.T) {
	setupLabels(t)

	out, err := execute(t, "", "agreement", "--tables")
	require.NoError(t, err)
	assert.Contains(t, out, "image_name,Surgeon,Dermatologist\nA,1,1\nB,0,1\n")
	assert.Contains(t, out, "Cohen's Kappa between Surgeon and Dermatologist: 0.00")

	out, err = execute(t, "", "agreement", "--format", "yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "kappa: 0")

	_, err = execute(t, "", "agreement", "--format", "html")
	assert.Error(t, err)
}

func TestExportCommand(t *testing.T) {
	dir := setupLabels(t)

	out, err := execute(t, "", "export", "--destination", "tables")
	require.NoError(t, err)
	assert.Contains(t, out, "classification_table.csv -> tables/classification_table.csv")

	data, err := os.ReadFile(filepath.Join(dir, "remote", "tables", "additional_labels_table.csv"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "A,0,0,0,0,0,2,0,0,0,0")
}

func TestAgreementCommandWritesYAMLFile(t *testing.T) {
	dir := setupLabels(t)

	out, err := execute(t, "", "agreement", "--format", "yaml", "--output", filepath.Join("reports", "agreement.yaml"))
	require.NoError(t, err)
	assert.Empty(t, out)

	data, err := os.ReadFile(filepath.Join(dir, "reports", "agreement.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "kappa: 0")
}

func TestExportCommandDefaultDestination(t *testing.T) {
	dir := setupLabels(t)

	_, err := execute(t, "", "export")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "remote", "exports", "classification_table.csv"))
}

func TestExportCommandDriveRequiresDestination(t *testing.T) {
	setupLabels(t)
	t.Setenv("WOUNDLABEL_BLOB_BACKEND", "drive")

	_, err := execute(t, "", "export")
	assert.ErrorContains(t, err, "export.destination")
}

func TestHashPasswordCommand(t *testing.T) {
	setupLabels(t)

	out, err := execute(t, "s3cret\n", "hash-password")
	require.NoError(t, err)
	hash := strings.TrimSpace(out)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("s3cret")))

	_, err = execute(t, "", "hash-password")
	assert.Error(t, err)
}
