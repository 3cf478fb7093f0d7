package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/practice-rules-api/internal/models"
	"github.com/noah-isme/practice-rules-api/pkg/condition"
	appErrors "github.com/noah-isme/practice-rules-api/pkg/errors"
	"github.com/noah-isme/practice-rules-api/pkg/export"
)

// Export formats.
const (
	ExportFormatCSV = "csv"
	ExportFormatPDF = "pdf"
)

// ExportResult is a rendered export ready to be sent as an attachment.
type ExportResult struct {
	Filename    string
	ContentType string
	Body        []byte
}

type tableRenderer interface {
	ContentType() string
	Extension() string
	Render(table export.Table) ([]byte, error)
}

// ExportService renders the rules of a rule set as CSV or PDF.
type ExportService struct {
	ruleSets  *RuleSetService
	rules     *RuleService
	renderers map[string]tableRenderer
	logger    *zap.Logger
	now       func() time.Time
}

// NewExportService constructs an ExportService. Nil renderers fall back to the
// default CSV and PDF exporters.
func NewExportService(ruleSets *RuleSetService, rules *RuleService, logger *zap.Logger, csv, pdf tableRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{
		ruleSets:  ruleSets,
		rules:     rules,
		renderers: map[string]tableRenderer{ExportFormatCSV: csv, ExportFormatPDF: pdf},
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// ExportRules renders every rule of ruleSetID in evaluation order.
func (s *ExportService) ExportRules(ctx context.Context, practiceID, ruleSetID, format string) (*ExportResult, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = ExportFormatCSV
	}
	renderer, ok := s.renderers[format]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}

	ruleSet, err := s.ruleSets.GetRuleSet(ctx, practiceID, ruleSetID)
	if err != nil {
		return nil, err
	}
	rules, err := s.rules.ListRules(ctx, practiceID, ruleSetID)
	if err != nil {
		return nil, err
	}

	table := s.buildTable(ruleSet, rules)
	body, err := renderer.Render(table)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}
	s.logger.Info("rules exported",
		zap.String("practice_id", practiceID),
		zap.String("rule_set_id", ruleSet.ID),
		zap.String("format", format),
		zap.Int("rules", len(rules)))

	return &ExportResult{
		Filename:    fmt.Sprintf("rules_v%d_%s.%s", ruleSet.Version, sanitizeFilename(ruleSet.ID), renderer.Extension()),
		ContentType: renderer.ContentType(),
		Body:        body,
	}, nil
}

func (s *ExportService) buildTable(ruleSet *models.RuleSet, rules []models.Rule) export.Table {
	table := export.Table{
		Title: fmt.Sprintf("Scheduling rules, version %d", ruleSet.Version),
		Subtitle: []string{
			fmt.Sprintf("Practice %s, rule set %s (%s)", ruleSet.PracticeID, ruleSet.ID, ruleSet.State()),
			fmt.Sprintf("%s. Generated %s", ruleSet.Description, s.now().Format(time.RFC3339)),
		},
		Columns: []export.Column{
			{Header: "Priority", Weight: 1},
			{Header: "Name", Weight: 3},
			{Header: "Action", Weight: 1.2},
			{Header: "Enabled", Weight: 1.2},
			{Header: "Condition", Weight: 8},
			{Header: "Message", Weight: 3},
		},
		Rows: make([][]string, 0, len(rules)),
	}
	for _, rule := range rules {
		table.Rows = append(table.Rows, []string{
			strconv.Itoa(rule.Priority),
			rule.Name,
			rule.Action,
			strconv.FormatBool(rule.Enabled),
			describeStored(rule),
			rule.Message,
		})
	}
	return table
}

// describeStored renders a stored condition, falling back to the raw JSON if
// it no longer decodes.
func describeStored(rule models.Rule) string {
	evaluable, err := rule.Evaluable()
	if err != nil {
		return string(rule.Condition)
	}
	return condition.Describe(evaluable.Condition.Node)
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}
