package sheet

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/manav03panchal/revise/internal/engine"
	"github.com/manav03panchal/revise/internal/model"
	"github.com/manav03panchal/revise/internal/timetable"
)

// Sheet names in exported workbooks.
const (
	TopicsSheet     = "Topics"
	StrategiesSheet = "Strategies"
)

// Column headers of the topics table. Import recognizes the same names.
const (
	ColName        = "Name"
	ColStrategy    = "Strategy"
	ColCreated     = "Created"
	ColLastRevised = "Last revised"
	ColNextDue     = "Next due"
	ColStatus      = "Status"
	ColCompleted   = "Completed"
	ColTotal       = "Total"
)

var topicHeader = []string{
	ColName, ColStrategy, ColCreated, ColLastRevised,
	ColNextDue, ColStatus, ColCompleted, ColTotal,
}

var strategyHeader = []string{ColName, "Intervals", "Revisions"}

// topicRecords flattens the snapshot's topics into table rows.
func topicRecords(snap *engine.Snapshot, today time.Time) [][]string {
	names := make(map[string]string, len(snap.Strategies))
	for _, s := range snap.Strategies {
		names[s.ID] = s.Name
	}

	rows := make([][]string, 0, len(snap.Topics))
	for _, t := range snap.Topics {
		p := timetable.Evaluate(t.NextRevisionDate, today)
		rows = append(rows, []string{
			t.Name,
			names[t.StrategyID],
			timetable.FormatDay(t.CreatedAt),
			formatOptionalDay(t.LastRevisedDate),
			formatOptionalDay(p.NextDue),
			string(p.Status),
			strconv.Itoa(t.CompletedCount()),
			strconv.Itoa(len(t.RevisionDates)),
		})
	}
	return rows
}

func strategyRecords(strategies []*model.Strategy) [][]string {
	rows := make([][]string, 0, len(strategies))
	for _, s := range strategies {
		rows = append(rows, []string{
			s.Name,
			s.IntervalsText(),
			strconv.Itoa(len(s.EffectiveIntervals())),
		})
	}
	return rows
}

func formatOptionalDay(t *time.Time) string {
	if t == nil {
		return ""
	}
	return timetable.FormatDay(*t)
}

// WriteCSV writes the topics table as CSV.
func WriteCSV(w io.Writer, snap *engine.Snapshot, today time.Time) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(topicHeader); err != nil {
		return err
	}
	if err := cw.WriteAll(topicRecords(snap, today)); err != nil {
		return err
	}
	return cw.Error()
}

// WriteXLSX writes a workbook with a topics sheet and a strategies sheet.
func WriteXLSX(w io.Writer, snap *engine.Snapshot, today time.Time) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", TopicsSheet); err != nil {
		return err
	}
	if _, err := f.NewSheet(StrategiesSheet); err != nil {
		return err
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}

	if err := writeTable(f, TopicsSheet, topicHeader, topicRecords(snap, today), bold); err != nil {
		return err
	}
	if err := writeTable(f, StrategiesSheet, strategyHeader, strategyRecords(snap.Strategies), bold); err != nil {
		return err
	}
	if err := f.SetColWidth(TopicsSheet, "A", "A", 40); err != nil {
		return err
	}
	if err := f.SetColWidth(TopicsSheet, "B", "F", 14); err != nil {
		return err
	}
	if err := f.SetColWidth(StrategiesSheet, "A", "B", 24); err != nil {
		return err
	}

	f.SetActiveSheet(0)
	return f.Write(w)
}

func writeTable(f *excelize.File, sheet string, header []string, rows [][]string, headerStyle int) error {
	if err := setRow(f, sheet, 1, header); err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(len(header), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
		return err
	}
	for i, row := range rows {
		if err := setRow(f, sheet, i+2, row); err != nil {
			return err
		}
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, values []string) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	vals := make([]any, len(values))
	for i, v := range values {
		vals[i] = v
	}
	return f.SetSheetRow(sheet, cell, &vals)
}
