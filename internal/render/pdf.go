package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jung-kurt/gofpdf"

	"github.com/MDJISHAN/smart-attendance-calendar-generator/internal/attendance"
)

// PDFRenderer 分页文档：A3 横向，每月每人一节，状态单元格按出勤着色
type PDFRenderer struct{}

// NewPDFRenderer 创建 PDFRenderer
func NewPDFRenderer() *PDFRenderer { return &PDFRenderer{} }

func (r *PDFRenderer) Format() Format { return FormatPDF }

const (
	pdfMargin     = 10.0
	pdfLabelWidth = 45.0
	pdfDayWidth   = 35.0
	pdfRowHeight  = 14.0
	pdfLineHeight = 11.0
)

// ErrPDFUnsupportedText 内置 Helvetica 只覆盖 cp1252，超出的字符（如中文）无法输出
var ErrPDFUnsupportedText = errors.New("PDF 内置字体不支持该文本")

type rgb struct{ r, g, b int }

var (
	pdfHeaderFill  = rgb{211, 211, 211}
	pdfPresentFill = rgb{198, 239, 206}
	pdfAbsentFill  = rgb{255, 199, 206}
	pdfHolidayFill = rgb{255, 235, 156}
)

func (r *PDFRenderer) Render(ctx context.Context, report *attendance.Report) (*Artifact, error) {
	pdf := gofpdf.New("L", "pt", "A3", "")
	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	pdf.SetAutoPageBreak(false, pdfMargin)
	pdf.SetCatalogSort(true)
	pdf.SetCreationDate(report.Config.PeriodStart)
	pdf.SetModificationDate(report.Config.PeriodStart)
	pdf.SetTitle("Attendance Calendar "+report.Config.BatchID, true)
	pdf.SetCreator("smart-attendance-calendar-generator", true)

	tr := pdf.UnicodeTranslatorFromDescriptor("")
	_, pageH := pdf.GetPageSize()

	pdf.AddPage()
	for _, group := range report.Months {
		for _, block := range group.Blocks {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if pdf.GetY()+pdfBlockHeight() > pageH-pdfMargin {
				pdf.AddPage()
			}
			if err := writePDFBlock(pdf, tr, report.Config, block); err != nil {
				return nil, err
			}
			if pdf.Err() {
				return nil, fmt.Errorf("生成 PDF 失败: %w", pdf.Error())
			}
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("写入 PDF 失败: %w", err)
	}
	return &Artifact{
		Format:      FormatPDF,
		Filename:    BaseName(report.Config) + ".pdf",
		ContentType: "application/pdf",
		Data:        buf.Bytes(),
	}, nil
}

// pdfBlockHeight 标题 + 3 行摘要 + 间距 + 8 行表格 + 块间距
func pdfBlockHeight() float64 {
	return 18 + 3*pdfLineHeight + 6 + float64(2+len(dayRows))*pdfRowHeight + 20
}

// pdfText 转为 cp1252；存在无法映射的字符时报错而不是输出 "."
func pdfText(tr func(string) string, s string) (string, error) {
	out := tr(s)
	i := 0
	for _, r := range s {
		if r >= 0x80 && out[i] == '.' {
			return "", fmt.Errorf("%w: %q 含字符 %q", ErrPDFUnsupportedText, s, r)
		}
		i++
	}
	return out, nil
}

func writePDFBlock(pdf *gofpdf.Fpdf, tr func(string) string, cfg attendance.ReportConfig, b attendance.MonthBlock) error {
	lines := append([]string{b.Label}, headerLines(cfg, b)...)
	for i, line := range lines {
		text, err := pdfText(tr, line)
		if err != nil {
			return err
		}
		lines[i] = text
	}

	pdf.SetFont("Helvetica", "B", 13)
	pdf.CellFormat(0, 18, lines[0], "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 9)
	for _, line := range lines[1:] {
		pdf.CellFormat(0, pdfLineHeight, line, "", 1, "L", false, 0, "")
	}
	pdf.Ln(6)

	pdf.SetFont("Helvetica", "B", 8)
	setFill(pdf, pdfHeaderFill)
	pdf.CellFormat(pdfLabelWidth, pdfRowHeight, "", "1", 0, "C", true, 0, "")
	for _, d := range b.Days {
		pdf.CellFormat(pdfDayWidth, pdfRowHeight, strconv.Itoa(d.Day), "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)
	pdf.CellFormat(pdfLabelWidth, pdfRowHeight, "", "1", 0, "C", true, 0, "")
	for _, d := range b.Days {
		pdf.CellFormat(pdfDayWidth, pdfRowHeight, attendance.ShortWeekday(d.Weekday), "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 8)
	for _, dr := range dayRows {
		pdf.CellFormat(pdfLabelWidth, pdfRowHeight, dr.Label, "1", 0, "C", false, 0, "")
		isStatus := dr.Label == "Status"
		for _, d := range b.Days {
			fill := false
			if isStatus {
				if c, ok := statusFill(d.Status); ok {
					setFill(pdf, c)
					fill = true
				}
			}
			pdf.CellFormat(pdfDayWidth, pdfRowHeight, dr.Value(d), "1", 0, "C", fill, 0, "")
		}
		pdf.Ln(-1)
	}
	pdf.Ln(20)
	return nil
}

func statusFill(s attendance.Status) (rgb, bool) {
	switch s {
	case attendance.StatusPresent:
		return pdfPresentFill, true
	case attendance.StatusAbsent:
		return pdfAbsentFill, true
	case attendance.StatusHoliday:
		return pdfHolidayFill, true
	default:
		return rgb{}, false
	}
}

func setFill(pdf *gofpdf.Fpdf, c rgb) {
	pdf.SetFillColor(c.r, c.g, c.b)
}
