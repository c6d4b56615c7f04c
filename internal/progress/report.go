package progress

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

const (
	overviewSheet = "Overview"
	itemsSheet    = "Items"
)

// WriteReport writes an xlsx workbook describing the learner's progress on
// every track visible to tier. Sheet "Overview" holds per-module percentages,
// sheet "Items" holds one row per lesson and quiz.
func (e *Engine) WriteReport(w io.Writer, p Progress, tier Tier) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", overviewSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(itemsSheet); err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}

	overview := [][]any{{"Track", "Module", "Completion %", "Lessons done", "Lessons total", "Quiz done"}}
	items := [][]any{{"Module", "Item", "Kind", "Completed"}}

	for _, t := range e.Overview(p, tier) {
		for _, m := range t.Modules {
			overview = append(overview, []any{t.Name, m.Title, m.Pct, m.LessonsDone, m.LessonsTotal, yesNo(m.QuizDone)})
		}
	}
	for _, m := range e.VisibleModules(tier) {
		for _, l := range m.Lessons {
			items = append(items, []any{m.ID, l.ID, string(ActivityLesson), yesNo(p[LessonKey(m.ID, l.ID)])})
		}
		items = append(items, []any{m.ID, QuizItem, string(ActivityQuiz), yesNo(p[QuizKey(m.ID)])})
	}

	if err := writeRows(f, overviewSheet, overview); err != nil {
		return err
	}
	if err := writeRows(f, itemsSheet, items); err != nil {
		return err
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return fmt.Errorf("cell name: %w", err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
