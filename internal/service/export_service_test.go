package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/practice-rules-api/internal/dto"
	"github.com/noah-isme/practice-rules-api/pkg/export"
	appErrors "github.com/noah-isme/practice-rules-api/pkg/errors"
)

type failingRenderer struct{}

func (failingRenderer) ContentType() string { return "text/csv" }
func (failingRenderer) Extension() string   { return "csv" }
func (failingRenderer) Render(export.Table) ([]byte, error) {
	return nil, errors.New("disk full")
}

func newExportServiceForTest(svc *testServices) *ExportService {
	return NewExportService(svc.ruleSets, svc.rules, zap.NewNop(), nil, nil)
}

func TestExportServiceCSV(t *testing.T) {
	svc := newTestServices()
	saved, _ := saveInitial(t, svc)
	_, err := svc.rules.CreateRule(context.Background(), practiceA, dto.CreateRuleRequest{
		Name: "Second", Priority: 3, Action: "ALLOW", Condition: fluShotCondition(),
	})
	require.NoError(t, err)

	result, err := newExportServiceForTest(svc).ExportRules(context.Background(), practiceA, saved.ID, "")
	require.NoError(t, err)
	assert.Equal(t, "text/csv", result.ContentType)
	assert.True(t, strings.HasPrefix(result.Filename, "rules_v1_"))
	assert.True(t, strings.HasSuffix(result.Filename, ".csv"))

	body := string(result.Body)
	assert.Contains(t, body, "Priority,Name,Action,Enabled,Condition,Message")
	assert.Contains(t, body, `Slot.type = ""flu-shot"" @22:00-02:00`)
	// Only the saved version's single rule is exported.
	assert.NotContains(t, body, "Second")
}

func TestExportServicePDF(t *testing.T) {
	svc := newTestServices()
	saved, _ := saveInitial(t, svc)

	result, err := newExportServiceForTest(svc).ExportRules(context.Background(), practiceA, saved.ID, "PDF")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", result.ContentType)
	assert.True(t, strings.HasPrefix(string(result.Body), "%PDF"))
}

func TestExportServiceErrors(t *testing.T) {
	svc := newTestServices()
	saved, _ := saveInitial(t, svc)
	exporter := newExportServiceForTest(svc)

	_, err := exporter.ExportRules(context.Background(), practiceA, saved.ID, "xlsx")
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation.Code))

	_, err = exporter.ExportRules(context.Background(), "practice-b", saved.ID, "csv")
	assert.True(t, appErrors.HasCode(err, appErrors.ErrRuleSetNotFound.Code))

	broken := NewExportService(svc.ruleSets, svc.rules, nil, failingRenderer{}, nil)
	_, err = broken.ExportRules(context.Background(), practiceA, saved.ID, "csv")
	assert.True(t, appErrors.HasCode(err, appErrors.ErrInternal.Code))
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "na", sanitizeFilename(""))
	assert.Equal(t, "a_b-c-d", sanitizeFilename("a b/c:d"))
	assert.Len(t, sanitizeFilename(strings.Repeat("x", 150)), 100)
}
