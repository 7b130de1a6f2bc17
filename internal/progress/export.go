package progress

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/cryptoedu/tutor/internal/lesson"
	"github.com/cryptoedu/tutor/internal/navigator"
)

const (
	progressSheet = "Progress"
	summarySheet  = "Summary"
)

var progressHeader = []any{"Topic", "Subtopic", "Completed", "Practice score", "Challenge score"}

// WriteReport writes an XLSX workbook describing userID's progress through l.
// l must already carry the user's completion state (see Annotate). The
// Progress sheet has one row per subtopic; the Summary sheet holds the
// overall percentage and every final test attempt.
func WriteReport(w io.Writer, l *lesson.Lesson, userID string, finals []FinalTestResult) error {
	if l == nil {
		return fmt.Errorf("write report: %w", lesson.ErrInvalidLesson)
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", progressSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create style: %w", err)
	}

	if err := f.SetSheetRow(progressSheet, "A1", &progressHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if err := f.SetCellStyle(progressSheet, "A1", "E1", bold); err != nil {
		return fmt.Errorf("style header: %w", err)
	}

	row := 2
	for _, t := range l.Topics {
		for _, s := range t.Subtopics {
			cell, _ := excelize.CoordinatesToCellName(1, row)
			values := []any{t.Title, s.Title, yesNo(s.Completed), scoreCell(s.DBQuizScore), scoreCell(s.AIQuizScore)}
			if err := f.SetSheetRow(progressSheet, cell, &values); err != nil {
				return fmt.Errorf("write row %d: %w", row, err)
			}
			row++
		}
	}
	if err := f.SetColWidth(progressSheet, "A", "B", 32); err != nil {
		return fmt.Errorf("set column width: %w", err)
	}

	if _, err := f.NewSheet(summarySheet); err != nil {
		return fmt.Errorf("create summary sheet: %w", err)
	}
	completed, total := navigator.Counts(l)
	summary := [][]any{
		{"Learner", userID},
		{"Lesson", l.Title},
		{"Completed subtopics", fmt.Sprintf("%d/%d", completed, total)},
		{"Overall progress", navigator.OverallProgress(l)},
		{},
		{"Final test attempt", "Score", "Taken at"},
	}
	for i, r := range finals {
		summary = append(summary, []any{i + 1, r.Score, r.CreatedAt.UTC().Format("2006-01-02 15:04")})
	}
	for i, values := range summary {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(summarySheet, cell, &values); err != nil {
			return fmt.Errorf("write summary row %d: %w", i+1, err)
		}
	}
	if err := f.SetCellStyle(summarySheet, "A1", "A4", bold); err != nil {
		return fmt.Errorf("style summary: %w", err)
	}
	if err := f.SetColWidth(summarySheet, "A", "A", 24); err != nil {
		return fmt.Errorf("set column width: %w", err)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func scoreCell(score *int) any {
	if score == nil {
		return ""
	}
	return *score
}
