package services

import (
	"fmt"
	"regexp"

	"github.com/xuri/excelize/v2"
)

// Sheet names of the exported workbooks.
const (
	CumulativeSheet = "Cumulative"
	CommentsSheet   = "Comments"
)

// workbook writes one sheet and reuses a style per distinct fill.
type workbook struct {
	f      *excelize.File
	sheet  string
	header int
	styles map[Fill]int
}

func newWorkbook(sheet string) (*workbook, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		f.Close()
		return nil, err
	}
	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		f.Close()
		return nil, err
	}
	return &workbook{f: f, sheet: sheet, header: header, styles: make(map[Fill]int)}, nil
}

func (w *workbook) style(fill Fill) (int, error) {
	if id, ok := w.styles[fill]; ok {
		return id, nil
	}
	st := &excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{fill.Background}},
	}
	if fill.Font != "" {
		st.Font = &excelize.Font{Color: fill.Font}
	}
	id, err := w.f.NewStyle(st)
	if err != nil {
		return 0, err
	}
	w.styles[fill] = id
	return id, nil
}

func (w *workbook) setHeader(columns []string) error {
	for i, col := range columns {
		ref, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := w.f.SetCellValue(w.sheet, ref, col); err != nil {
			return err
		}
	}
	if len(columns) == 0 {
		return nil
	}
	last, err := excelize.CoordinatesToCellName(len(columns), 1)
	if err != nil {
		return err
	}
	return w.f.SetCellStyle(w.sheet, "A1", last, w.header)
}

// setRow writes cells into 1-based row n.
func (w *workbook) setRow(n int, cells []Cell) error {
	for i, cell := range cells {
		ref, err := excelize.CoordinatesToCellName(i+1, n)
		if err != nil {
			return err
		}
		if err := w.f.SetCellValue(w.sheet, ref, cell.Value); err != nil {
			return err
		}
		if cell.Fill == nil {
			continue
		}
		id, err := w.style(*cell.Fill)
		if err != nil {
			return err
		}
		if err := w.f.SetCellStyle(w.sheet, ref, ref, id); err != nil {
			return err
		}
	}
	return nil
}

func (w *workbook) bytes() ([]byte, error) {
	defer w.f.Close()
	buf, err := w.f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// ExportCumulative renders the grid as an xlsx workbook with the same
// columns and fills as the screen.
func ExportCumulative(grid CumulativeGrid) ([]byte, error) {
	w, err := newWorkbook(CumulativeSheet)
	if err != nil {
		return nil, err
	}
	if err := w.setHeader(grid.Columns); err != nil {
		w.f.Close()
		return nil, err
	}
	for i, row := range grid.Rows {
		if err := w.setRow(i+2, row); err != nil {
			w.f.Close()
			return nil, err
		}
	}
	return w.bytes()
}

func ExportComments(rows []CommentRow) ([]byte, error) {
	w, err := newWorkbook(CommentsSheet)
	if err != nil {
		return nil, err
	}
	if err := w.setHeader(commentColumns); err != nil {
		w.f.Close()
		return nil, err
	}
	for i, r := range rows {
		cells := []Cell{{Value: r.Date}, {Value: r.Procedure}, {Value: r.Evaluator}, r.Complexity, r.Overall, {Value: r.Notes}}
		if err := w.setRow(i+2, cells); err != nil {
			w.f.Close()
			return nil, err
		}
	}
	return w.bytes()
}

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9@._-]+`)

// CumulativeFileName is {resident}_{procedure}_cumulative.xlsx.
func CumulativeFileName(residentEmail, procedureID string) string {
	return unsafeFileChars.ReplaceAllString(residentEmail, "_") + "_" +
		unsafeFileChars.ReplaceAllString(procedureID, "_") + "_cumulative.xlsx"
}

func CommentsFileName(residentEmail string) string {
	return unsafeFileChars.ReplaceAllString(residentEmail, "_") + "_comments.xlsx"
}
