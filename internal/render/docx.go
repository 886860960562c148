package render

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/MDJISHAN/smart-attendance-calendar-generator/internal/attendance"
)

// DocxRenderer Word 文档：标题 + 每月每人一节（摘要段落 + 表格）
//
// 只生成 WordprocessingML 最小包：[Content_Types].xml、_rels/.rels、word/document.xml。
// TODO: 能拉取 github.com/gomutex/godocx 源码后改用其生成 document.xml，保留 zipParts 打包
type DocxRenderer struct{}

// NewDocxRenderer 创建 DocxRenderer
func NewDocxRenderer() *DocxRenderer { return &DocxRenderer{} }

func (r *DocxRenderer) Format() Format { return FormatDOCX }

const (
	docxContentTypes = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">` +
		`<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>` +
		`<Default Extension="xml" ContentType="application/xml"/>` +
		`<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>` +
		`</Types>`

	docxRels = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` +
		`<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>` +
		`</Relationships>`

	docxDocumentOpen = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>`

	// A3 横向，页边距 1cm
	docxDocumentClose = `<w:sectPr><w:pgSz w:w="23811" w:h="16838" w:orient="landscape"/>` +
		`<w:pgMar w:top="567" w:right="567" w:bottom="567" w:left="567" w:header="0" w:footer="0" w:gutter="0"/>` +
		`</w:sectPr></w:body></w:document>`
)

func (r *DocxRenderer) Render(ctx context.Context, report *attendance.Report) (*Artifact, error) {
	var body strings.Builder
	body.WriteString(docxDocumentOpen)
	writeDocxParagraph(&body, "Attendance Report", 36, true)

	for _, group := range report.Months {
		for _, block := range group.Blocks {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			writeDocxParagraph(&body, block.Label, 28, true)
			for _, line := range headerLines(report.Config, block) {
				writeDocxParagraph(&body, line, 18, false)
			}
			writeDocxTable(&body, block)
			writeDocxParagraph(&body, "", 18, false)
		}
	}
	body.WriteString(docxDocumentClose)

	data, err := zipParts([]zipPart{
		{"[Content_Types].xml", []byte(docxContentTypes)},
		{"_rels/.rels", []byte(docxRels)},
		{"word/document.xml", []byte(body.String())},
	}, report.Config.PeriodStart)
	if err != nil {
		return nil, fmt.Errorf("打包 Word 文档失败: %w", err)
	}

	return &Artifact{
		Format:      FormatDOCX,
		Filename:    BaseName(report.Config) + ".docx",
		ContentType: "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		Data:        data,
	}, nil
}

// writeDocxParagraph size 为半磅
func writeDocxParagraph(sb *strings.Builder, text string, size int, bold bool) {
	sb.WriteString(`<w:p><w:r><w:rPr>`)
	if bold {
		sb.WriteString(`<w:b/>`)
	}
	fmt.Fprintf(sb, `<w:sz w:val="%d"/></w:rPr><w:t xml:space="preserve">`, size)
	xmlEscape(sb, text)
	sb.WriteString(`</w:t></w:r></w:p>`)
}

func writeDocxTable(sb *strings.Builder, b attendance.MonthBlock) {
	sb.WriteString(`<w:tbl><w:tblPr><w:tblW w:w="0" w:type="auto"/><w:tblBorders>`)
	for _, side := range []string{"top", "left", "bottom", "right", "insideH", "insideV"} {
		fmt.Fprintf(sb, `<w:%s w:val="single" w:sz="4" w:space="0" w:color="000000"/>`, side)
	}
	sb.WriteString(`</w:tblBorders></w:tblPr>`)

	dayCells := make([]string, 0, len(b.Days)+1)
	weekdayCells := make([]string, 0, len(b.Days)+1)
	dayCells = append(dayCells, "")
	weekdayCells = append(weekdayCells, "")
	for _, d := range b.Days {
		dayCells = append(dayCells, strconv.Itoa(d.Day))
		weekdayCells = append(weekdayCells, attendance.ShortWeekday(d.Weekday))
	}
	writeDocxRow(sb, dayCells, true)
	writeDocxRow(sb, weekdayCells, true)

	for _, dr := range dayRows {
		cells := make([]string, 0, len(b.Days)+1)
		cells = append(cells, dr.Label)
		for _, d := range b.Days {
			cells = append(cells, dr.Value(d))
		}
		writeDocxRow(sb, cells, false)
	}
	sb.WriteString(`</w:tbl>`)
}

func writeDocxRow(sb *strings.Builder, cells []string, header bool) {
	sb.WriteString(`<w:tr>`)
	for _, c := range cells {
		sb.WriteString(`<w:tc><w:tcPr>`)
		if header {
			sb.WriteString(`<w:shd w:val="clear" w:color="auto" w:fill="D3D3D3"/>`)
		}
		sb.WriteString(`</w:tcPr><w:p><w:pPr><w:jc w:val="center"/></w:pPr><w:r><w:rPr>`)
		if header {
			sb.WriteString(`<w:b/>`)
		}
		sb.WriteString(`<w:sz w:val="14"/></w:rPr><w:t>`)
		xmlEscape(sb, c)
		sb.WriteString(`</w:t></w:r></w:p></w:tc>`)
	}
	sb.WriteString(`</w:tr>`)
}

func xmlEscape(sb *strings.Builder, s string) {
	var buf bytes.Buffer
	_ = xml.EscapeText(&buf, []byte(s))
	sb.Write(buf.Bytes())
}

// ── zip 打包（docx 与结果归档共用） ──

type zipPart struct {
	Name string
	Data []byte
}

// zipParts 按顺序写入 zip；固定修改时间保证同一输入输出一致
func zipParts(parts []zipPart, modified time.Time) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, p := range parts {
		w, err := zw.CreateHeader(&zip.FileHeader{
			Name:     p.Name,
			Method:   zip.Deflate,
			Modified: modified,
		})
		if err != nil {
			return nil, err
		}
		if _, err := w.Write(p.Data); err != nil {
			return nil, err
		}
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
