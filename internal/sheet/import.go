package sheet

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/manav03panchal/revise/internal/engine"
	apperrors "github.com/manav03panchal/revise/internal/errors"
	"github.com/manav03panchal/revise/internal/logging"
	"github.com/manav03panchal/revise/internal/model"
	"github.com/manav03panchal/revise/internal/parser"
	"github.com/manav03panchal/revise/internal/validate"
)

// ImportOptions controls a topic import.
type ImportOptions struct {
	// Sheet names the worksheet to read. Defaults to Topics, then the first
	// sheet of the workbook.
	Sheet string
	// Strategy is used for rows without a strategy. Defaults to the first
	// strategy.
	Strategy string
	// DryRun validates every row without creating topics.
	DryRun bool
}

// ImportResult summarizes an import.
type ImportResult struct {
	Processed int      `json:"processed"`
	Created   int      `json:"created"`
	Skipped   int      `json:"skipped"`
	Errors    []string `json:"errors,omitempty"`
}

// ImportFile imports topics from an .xlsx or .csv file.
func ImportFile(ctx context.Context, e *engine.Engine, path string, opts ImportOptions) (*ImportResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apperrors.NewUserErrorWithField("file", path,
			"cannot open import file", "Check the path and try again")
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return ImportCSV(ctx, e, f, opts)
	case ".xlsx", ".xlsm":
		return ImportXLSX(ctx, e, f, opts)
	default:
		return nil, apperrors.NewValidationError("file", path,
			"unsupported file type", "Use an .xlsx or .csv file")
	}
}

// ImportCSV imports topics from CSV with a header row.
func ImportCSV(ctx context.Context, e *engine.Engine, r io.Reader, opts ImportOptions) (*ImportResult, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, apperrors.NewValidationError("file", "", "invalid CSV: "+err.Error(), "")
	}
	return importRows(ctx, e, rows, opts)
}

// ImportXLSX imports topics from a workbook.
func ImportXLSX(ctx context.Context, e *engine.Engine, r io.Reader, opts ImportOptions) (*ImportResult, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, apperrors.NewValidationError("file", "", "invalid workbook: "+err.Error(), "")
	}
	defer f.Close()

	sheet, err := pickSheet(f.GetSheetList(), opts.Sheet)
	if err != nil {
		return nil, err
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	return importRows(ctx, e, rows, opts)
}

func pickSheet(sheets []string, want string) (string, error) {
	if len(sheets) == 0 {
		return "", apperrors.NewValidationError("sheet", "", "workbook has no sheets", "")
	}
	if want == "" {
		want = TopicsSheet
	}
	for _, s := range sheets {
		if strings.EqualFold(s, want) {
			return s, nil
		}
	}
	if want == TopicsSheet {
		return sheets[0], nil
	}
	return "", apperrors.NewValidationError("sheet", want, "sheet not found",
		"Available sheets: "+strings.Join(sheets, ", "))
}

// columns maps recognized headers to their index, -1 when absent.
type columns struct {
	name, strategy, created, lastRevised int
}

func headerKey(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer(" ", "", "_", "", "-", "").Replace(s)
}

func parseHeader(row []string) (columns, error) {
	cols := columns{name: -1, strategy: -1, created: -1, lastRevised: -1}
	for i, cell := range row {
		switch headerKey(cell) {
		case "name", "topic":
			cols.name = i
		case "strategy":
			cols.strategy = i
		case "created", "createdat", "createdon":
			cols.created = i
		case "lastrevised", "lastreviseddate":
			cols.lastRevised = i
		}
	}
	if cols.name < 0 {
		return cols, apperrors.NewValidationError("header", strings.Join(row, ","),
			"no Name column found",
			"The first row must name the columns, e.g. Name,Strategy,Created,Last revised")
	}
	return cols, nil
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// importer carries lookups shared across rows.
type importer struct {
	engine     *engine.Engine
	opts       ImportOptions
	now        time.Time
	existing   map[string]bool
	strategies map[string]*model.Strategy
}

func importRows(ctx context.Context, e *engine.Engine, rows [][]string, opts ImportOptions) (*ImportResult, error) {
	start := 0
	for start < len(rows) && blank(rows[start]) {
		start++
	}
	if start == len(rows) {
		return &ImportResult{}, nil
	}
	cols, err := parseHeader(rows[start])
	if err != nil {
		return nil, err
	}

	topics, err := e.QueryAll(ctx)
	if err != nil {
		return nil, err
	}
	im := &importer{
		engine:     e,
		opts:       opts,
		now:        e.Now(),
		existing:   make(map[string]bool, len(topics)),
		strategies: make(map[string]*model.Strategy),
	}
	for _, t := range topics {
		im.existing[strings.ToLower(t.Name)] = true
	}

	result := &ImportResult{}
	for i := start + 1; i < len(rows); i++ {
		if blank(rows[i]) {
			continue
		}
		result.Processed++
		created, err := im.row(ctx, rows[i], cols)
		switch {
		case err != nil:
			result.Errors = append(result.Errors, fmt.Sprintf("row %d: %v", i+1, err))
		case created:
			result.Created++
		default:
			result.Skipped++
		}
	}

	logging.FromContext(ctx).Info("topics imported",
		"processed", result.Processed,
		"created", result.Created,
		"skipped", result.Skipped,
		"failed", len(result.Errors),
		"dry_run", opts.DryRun)
	return result, nil
}

// row imports one record. It reports false without error when a topic of
// the same name already exists.
func (im *importer) row(ctx context.Context, row []string, cols columns) (bool, error) {
	name, err := validate.TopicName(validate.StripControlChars(cell(row, cols.name)))
	if err != nil {
		return false, err
	}
	key := strings.ToLower(name)
	if im.existing[key] {
		return false, nil
	}

	s, err := im.strategy(ctx, cell(row, cols.strategy))
	if err != nil {
		return false, err
	}

	var opts engine.CreateOptions
	if v := cell(row, cols.created); v != "" {
		if opts.CreatedAt, err = parser.ParseDay(v, im.now, parser.PreferPast); err != nil {
			return false, err
		}
	}
	if v := cell(row, cols.lastRevised); v != "" {
		if opts.LastRevised, err = parser.ParseDay(v, im.now, parser.PreferPast); err != nil {
			return false, err
		}
	}

	if !im.opts.DryRun {
		if _, err := im.engine.CreateTopic(ctx, name, s.ID, opts); err != nil {
			return false, err
		}
	}
	im.existing[key] = true
	return true, nil
}

func (im *importer) strategy(ctx context.Context, ref string) (*model.Strategy, error) {
	if ref == "" {
		ref = im.opts.Strategy
	}
	key := strings.ToLower(ref)
	if s, ok := im.strategies[key]; ok {
		return s, nil
	}

	var s *model.Strategy
	if ref == "" {
		all, err := im.engine.ListStrategies(ctx)
		if err != nil {
			return nil, err
		}
		if len(all) == 0 {
			return nil, apperrors.NewStrategyNotFoundError("")
		}
		s = all[0]
	} else {
		var err error
		if s, err = im.engine.GetStrategy(ctx, ref); err != nil {
			return nil, err
		}
	}
	im.strategies[key] = s
	return s, nil
}
