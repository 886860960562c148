package roster

import (
	"bytes"
	"encoding/binary"
	"strconv"
	"testing"
	"unicode/utf16"
)

// ════════════════════════════════════════════════════════════
// 测试用 BIFF8 工作簿生成
// ════════════════════════════════════════════════════════════
//
// 只写解析名单需要的记录：BOF / BOUNDSHEET / SST / LABELSST / NUMBER / EOF，
// 外层为单个 FAT 链的 OLE2 容器，Workbook 流补齐到 4096 字节以避开短流。

const (
	cfbSectorSize = 512
	cfbEndOfChain = 0xFFFFFFFE
	cfbFreeSect   = 0xFFFFFFFF
	cfbFATSect    = 0xFFFFFFFD
	cfbCutoff     = 4096
)

type xlsSheet struct {
	name string
	rows [][]string
}

func buildXLS(t *testing.T, sheets ...xlsSheet) *bytes.Buffer {
	t.Helper()
	return bytes.NewBuffer(cfbWrap(t, biffWorkbook(t, sheets)))
}

// ── BIFF8 记录 ──

func biffRecord(buf *bytes.Buffer, id uint16, body []byte) {
	var head [4]byte
	binary.LittleEndian.PutUint16(head[0:], id)
	binary.LittleEndian.PutUint16(head[2:], uint16(len(body)))
	buf.Write(head[:])
	buf.Write(body)
}

func le(values ...interface{}) []byte {
	var buf bytes.Buffer
	for _, v := range values {
		_ = binary.Write(&buf, binary.LittleEndian, v)
	}
	return buf.Bytes()
}

// utf16Chars 未压缩字符串：标志位 0x01 + UTF-16LE
func utf16Chars(s string) (units int, data []byte) {
	codes := utf16.Encode([]rune(s))
	return len(codes), le(uint8(1), codes)
}

func biffBOF(buf *bytes.Buffer, kind uint16) {
	biffRecord(buf, 0x809, le(uint16(0x600), kind, uint16(0), uint16(0), uint32(0), uint32(0)))
}

// isBiffNumber 能被 NUMBER 记录原样还原的数字串
func isBiffNumber(s string) bool {
	f, err := strconv.ParseFloat(s, 64)
	return err == nil && strconv.FormatFloat(f, 'f', -1, 64) == s
}

func biffWorkbook(t *testing.T, sheets []xlsSheet) []byte {
	t.Helper()

	var sst []string
	sstIndex := make(map[string]uint32)
	var refs uint32
	for _, sh := range sheets {
		for _, row := range sh.rows {
			for _, v := range row {
				if v == "" || isBiffNumber(v) {
					continue
				}
				refs++
				if _, ok := sstIndex[v]; !ok {
					sstIndex[v] = uint32(len(sst))
					sst = append(sst, v)
				}
			}
		}
	}

	var globals bytes.Buffer
	biffBOF(&globals, 0x0005)

	filepos := make([]int, len(sheets))
	for i, sh := range sheets {
		n, chars := utf16Chars(sh.name)
		filepos[i] = globals.Len() + 4
		biffRecord(&globals, 0x85, append(le(uint32(0), uint8(0), uint8(0), uint8(n)), chars...))
	}

	sstBody := le(refs, uint32(len(sst)))
	for _, s := range sst {
		n, chars := utf16Chars(s)
		sstBody = append(sstBody, le(uint16(n))...)
		sstBody = append(sstBody, chars...)
	}
	if len(sstBody) > 8224 {
		t.Fatalf("测试 SST 过大 (%d 字节)，请减少不同的文本", len(sstBody))
	}
	biffRecord(&globals, 0xfc, sstBody)
	biffRecord(&globals, 0x0a, nil)

	stream := bytes.NewBuffer(globals.Bytes())
	for i, sh := range sheets {
		binary.LittleEndian.PutUint32(stream.Bytes()[filepos[i]:], uint32(stream.Len()))

		biffBOF(stream, 0x0010)
		for r, row := range sh.rows {
			for c, v := range row {
				switch {
				case v == "":
				case isBiffNumber(v):
					f, _ := strconv.ParseFloat(v, 64)
					biffRecord(stream, 0x203, le(uint16(r), uint16(c), uint16(0), f))
				default:
					biffRecord(stream, 0xFD, le(uint16(r), uint16(c), uint16(0), sstIndex[v]))
				}
			}
		}
		biffRecord(stream, 0x0a, nil)
	}
	return stream.Bytes()
}

// ── OLE2 容器 ──

// cfbWrap 扇区布局：FAT 扇区 → 目录扇区 → Workbook 流
func cfbWrap(t *testing.T, workbook []byte) []byte {
	t.Helper()

	size := len(workbook)
	if size < cfbCutoff {
		size = cfbCutoff
	}
	size = (size + cfbSectorSize - 1) / cfbSectorSize * cfbSectorSize
	stream := make([]byte, size)
	copy(stream, workbook)

	streamSectors := size / cfbSectorSize
	fatSectors := 1
	for fatSectors*(cfbSectorSize/4) < fatSectors+1+streamSectors {
		fatSectors++
	}
	if fatSectors > 109 {
		t.Fatalf("测试工作簿过大，需要 %d 个 FAT 扇区", fatSectors)
	}
	dirSector := fatSectors
	firstStream := dirSector + 1

	fat := make([]uint32, fatSectors*(cfbSectorSize/4))
	for i := range fat {
		fat[i] = cfbFreeSect
	}
	for i := 0; i < fatSectors; i++ {
		fat[i] = cfbFATSect
	}
	fat[dirSector] = cfbEndOfChain
	for i := 0; i < streamSectors; i++ {
		fat[firstStream+i] = uint32(firstStream + i + 1)
	}
	fat[firstStream+streamSectors-1] = cfbEndOfChain

	msat := make([]uint32, 109)
	for i := range msat {
		msat[i] = cfbFreeSect
	}
	for i := 0; i < fatSectors; i++ {
		msat[i] = uint32(i)
	}

	var out bytes.Buffer
	// 签名、CLSID、版本、字节序、扇区 2^9 / 短扇区 2^6
	out.Write(le(
		uint32(0xE011CFD0), uint32(0xE11AB1A1),
		[4]uint32{},
		uint16(0x3E), uint16(3), uint16(0xFFFE),
		uint16(9), uint16(6),
		uint16(0), uint64(0),
		uint32(fatSectors), uint32(dirSector),
		uint32(0),
		uint32(cfbCutoff),
		uint32(cfbEndOfChain), uint32(0), // 无短扇区表
		uint32(cfbEndOfChain), uint32(0), // 无 DIFAT 扇区
		msat,
	))
	out.Write(le(fat))

	dir := make([]byte, 0, cfbSectorSize)
	dir = append(dir, cfbDirEntry("Root Entry", 5, 1, cfbEndOfChain, 0)...)
	dir = append(dir, cfbDirEntry("Workbook", 2, cfbFreeSect, uint32(firstStream), uint32(size))...)
	dir = append(dir, make([]byte, cfbSectorSize-len(dir))...)
	out.Write(dir)

	out.Write(stream)
	return out.Bytes()
}

func cfbDirEntry(name string, kind uint8, child, start, size uint32) []byte {
	var nameBts [32]uint16
	codes := utf16.Encode([]rune(name))
	copy(nameBts[:], codes)
	return le(
		nameBts,
		uint16((len(codes)+1)*2),
		kind, uint8(1), // 类型、颜色
		uint32(cfbFreeSect), uint32(cfbFreeSect), child,
		[8]uint16{},
		uint32(0),
		[2]uint64{},
		start, size,
		uint32(0),
	)
}
