package core

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
)

// XRefEntry represents a single cross-reference entry. An entry either points
// at a byte offset in the file (classic), marks a free object, or points into
// an object stream (PDF 1.5+ type 2 entries).
type XRefEntry struct {
	Offset      int64 // Byte offset in file (in-use) or next free object number (free)
	Generation  int   // Generation number
	InUse       bool  // true if object is in use, false if free
	InStream    bool  // true if the object lives inside an object stream
	StreamNum   int   // Object number of the containing object stream
	StreamIndex int   // Index of the object within that stream
}

// XRefTable represents a PDF cross-reference table
type XRefTable struct {
	Entries map[int]*XRefEntry // Map from object number to XRef entry
	Trailer Dict               // Trailer dictionary
}

// NewXRefTable creates a new empty XRef table
func NewXRefTable() *XRefTable {
	return &XRefTable{
		Entries: make(map[int]*XRefEntry),
		Trailer: make(Dict),
	}
}

// Get retrieves an XRef entry by object number
func (x *XRefTable) Get(objNum int) (*XRefEntry, bool) {
	entry, ok := x.Entries[objNum]
	return entry, ok
}

// Set adds or updates an XRef entry
func (x *XRefTable) Set(objNum int, entry *XRefEntry) {
	x.Entries[objNum] = entry
}

// Size returns the number of entries in the table
func (x *XRefTable) Size() int {
	return len(x.Entries)
}

// XRefParser parses PDF cross-reference tables and cross-reference streams
type XRefParser struct {
	reader io.ReadSeeker
}

// NewXRefParser creates a new XRef parser
func NewXRefParser(r io.ReadSeeker) *XRefParser {
	return &XRefParser{
		reader: r,
	}
}

// FindXRef finds the byte offset of the XRef section by scanning from EOF.
// PDFs end with "startxref\n<offset>\n%%EOF".
func (x *XRefParser) FindXRef() (int64, error) {
	fileSize, err := x.reader.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, fmt.Errorf("failed to seek to end: %w", err)
	}

	// The startxref section lives in the last kilobyte
	readSize := int64(1024)
	if fileSize < readSize {
		readSize = fileSize
	}

	_, err = x.reader.Seek(fileSize-readSize, io.SeekStart)
	if err != nil {
		return 0, fmt.Errorf("failed to seek to startxref area: %w", err)
	}

	buf := make([]byte, readSize)
	n, err := x.reader.Read(buf)
	if err != nil && err != io.EOF {
		return 0, fmt.Errorf("failed to read startxref area: %w", err)
	}
	buf = buf[:n]

	content := string(buf)
	idx := strings.LastIndex(content, "startxref")
	if idx == -1 {
		return 0, fmt.Errorf("startxref not found in PDF")
	}

	afterStartXRef := content[idx+len("startxref"):]
	lines := strings.Split(afterStartXRef, "\n")
	if len(lines) < 2 {
		return 0, fmt.Errorf("invalid startxref format")
	}

	offsetStr := strings.TrimSpace(lines[1])
	offset, err := strconv.ParseInt(offsetStr, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid xref offset: %w", err)
	}

	return offset, nil
}

var objHeaderRe = regexp.MustCompile(`^\d+\s+\d+\s+obj`)

// isXRefStream reports whether the content at the current reader position is
// a cross-reference stream ("N G obj" followed by an /XRef stream) rather
// than a traditional "xref" table.
func (x *XRefParser) isXRefStream() (bool, error) {
	pos, err := x.reader.Seek(0, io.SeekCurrent)
	if err != nil {
		return false, fmt.Errorf("failed to get position: %w", err)
	}

	buf := make([]byte, 32)
	n, err := x.reader.Read(buf)
	if err != nil && err != io.EOF {
		return false, fmt.Errorf("failed to read xref header: %w", err)
	}

	// Restore position regardless of outcome
	if _, serr := x.reader.Seek(pos, io.SeekStart); serr != nil {
		return false, fmt.Errorf("failed to restore position: %w", serr)
	}

	head := strings.TrimLeft(string(buf[:n]), " \t\r\n")
	if strings.HasPrefix(head, "xref") {
		return false, nil
	}
	if objHeaderRe.MatchString(head) {
		return true, nil
	}

	return false, fmt.Errorf("unrecognized xref section at offset %d", pos)
}

// ParseXRef parses the cross-reference section at the given byte offset,
// dispatching between classic tables and xref streams.
func (x *XRefParser) ParseXRef(offset int64) (*XRefTable, error) {
	if _, err := x.reader.Seek(offset, io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed to seek to xref: %w", err)
	}

	isStream, err := x.isXRefStream()
	if err != nil {
		return nil, err
	}

	if isStream {
		return x.parseXRefStream()
	}
	return x.parseXRefTable()
}

// parseXRefTable parses a traditional xref table at the current position.
func (x *XRefParser) parseXRefTable() (*XRefTable, error) {
	scanner := bufio.NewScanner(x.reader)

	if !scanner.Scan() {
		return nil, fmt.Errorf("failed to read xref keyword")
	}
	line := strings.TrimSpace(scanner.Text())
	if line != "xref" {
		return nil, fmt.Errorf("expected 'xref' keyword, got '%s'", line)
	}

	table := NewXRefTable()
	foundTrailer := false

	// Parse subsections
	for scanner.Scan() {
		line = strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if line == "trailer" {
			trailer, err := x.parseTrailer(scanner)
			if err != nil {
				return nil, fmt.Errorf("failed to parse trailer: %w", err)
			}
			table.Trailer = trailer
			foundTrailer = true
			break
		}

		// Subsection header: firstObjNum count
		parts := strings.Fields(line)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid subsection header: %s", line)
		}

		firstObjNum, err := strconv.Atoi(parts[0])
		if err != nil {
			return nil, fmt.Errorf("invalid first object number: %w", err)
		}

		count, err := strconv.Atoi(parts[1])
		if err != nil {
			return nil, fmt.Errorf("invalid count: %w", err)
		}

		for i := 0; i < count; i++ {
			if !scanner.Scan() {
				return nil, fmt.Errorf("unexpected end of xref subsection")
			}

			entry, err := x.parseEntry(scanner.Text())
			if err != nil {
				return nil, fmt.Errorf("failed to parse xref entry: %w", err)
			}

			table.Set(firstObjNum+i, entry)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanner error: %w", err)
	}

	if !foundTrailer {
		return nil, fmt.Errorf("xref table missing trailer")
	}

	return table, nil
}

// parseEntry parses a single XRef entry line.
// Format: "nnnnnnnnnn ggggg n" (in use) or "nnnnnnnnnn ggggg f" (free).
func (x *XRefParser) parseEntry(line string) (*XRefEntry, error) {
	// Entries are nominally exactly 20 bytes but trailing whitespace varies
	if len(line) < 18 {
		return nil, fmt.Errorf("xref entry too short: %q", line)
	}

	offsetStr := strings.TrimSpace(line[0:10])
	genStr := strings.TrimSpace(line[10:16])
	flag := strings.TrimSpace(line[16:18])

	offset, err := strconv.ParseInt(offsetStr, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid offset %q: %w", offsetStr, err)
	}

	generation, err := strconv.Atoi(genStr)
	if err != nil {
		return nil, fmt.Errorf("invalid generation %q: %w", genStr, err)
	}

	var inUse bool
	switch flag {
	case "n":
		inUse = true
	case "f":
		inUse = false
	default:
		return nil, fmt.Errorf("invalid in-use flag: %q", flag)
	}

	return &XRefEntry{
		Offset:     offset,
		Generation: generation,
		InUse:      inUse,
	}, nil
}

// parseTrailer parses the trailer dictionary after the "trailer" keyword
func (x *XRefParser) parseTrailer(scanner *bufio.Scanner) (Dict, error) {
	var dictText strings.Builder
	depth := 0

	for scanner.Scan() {
		line := scanner.Text()
		dictText.WriteString(line)
		dictText.WriteString("\n")

		depth += strings.Count(line, "<<") - strings.Count(line, ">>")
		if depth <= 0 && strings.Contains(dictText.String(), ">>") {
			break
		}
	}

	parser := NewParser(strings.NewReader(dictText.String()))
	obj, err := parser.ParseObject()
	if err != nil {
		return nil, fmt.Errorf("failed to parse trailer dictionary: %w", err)
	}

	dict, ok := obj.(Dict)
	if !ok {
		return nil, fmt.Errorf("trailer is not a dictionary, got %T", obj)
	}

	return dict, nil
}

// parseXRefStream parses a cross-reference stream (PDF 1.5+) at the current
// position. The stream dictionary doubles as the trailer.
func (x *XRefParser) parseXRefStream() (*XRefTable, error) {
	parser := NewParser(x.reader)
	indObj, err := parser.ParseIndirectObject()
	if err != nil {
		return nil, fmt.Errorf("failed to parse xref stream object: %w", err)
	}

	stream, ok := indObj.Object.(*Stream)
	if !ok {
		return nil, fmt.Errorf("xref stream object is not a stream: %T", indObj.Object)
	}

	if typeName, ok := stream.Dict.GetName("Type"); !ok || string(typeName) != "XRef" {
		return nil, fmt.Errorf("xref stream has wrong /Type: %v", stream.Dict.Get("Type"))
	}

	sizeInt, ok := stream.Dict.GetInt("Size")
	if !ok {
		return nil, fmt.Errorf("xref stream missing /Size")
	}

	// Field widths
	wArr, ok := stream.Dict.GetArray("W")
	if !ok || len(wArr) != 3 {
		return nil, fmt.Errorf("xref stream missing or invalid /W")
	}
	w := make([]int, 3)
	for i := range w {
		wi, ok := wArr.GetInt(i)
		if !ok || wi < 0 {
			return nil, fmt.Errorf("invalid /W element %d: %v", i, wArr.Get(i))
		}
		w[i] = int(wi)
	}

	// Subsection index; defaults to a single run covering all objects
	index := []int{0, int(sizeInt)}
	if idxArr, ok := stream.Dict.GetArray("Index"); ok {
		if len(idxArr)%2 != 0 {
			return nil, fmt.Errorf("xref stream /Index has odd length %d", len(idxArr))
		}
		index = index[:0]
		for i := 0; i < len(idxArr); i++ {
			n, ok := idxArr.GetInt(i)
			if !ok {
				return nil, fmt.Errorf("invalid /Index element %d: %v", i, idxArr.Get(i))
			}
			index = append(index, int(n))
		}
	}

	data, err := stream.Decode()
	if err != nil {
		return nil, fmt.Errorf("failed to decode xref stream: %w", err)
	}

	entryWidth := w[0] + w[1] + w[2]
	if entryWidth == 0 {
		return nil, fmt.Errorf("xref stream has zero entry width")
	}

	table := NewXRefTable()
	table.Trailer = stream.Dict

	pos := 0
	for i := 0; i+1 < len(index); i += 2 {
		first, count := index[i], index[i+1]
		for j := 0; j < count; j++ {
			if pos+entryWidth > len(data) {
				return nil, fmt.Errorf("xref stream truncated: need %d bytes at offset %d, have %d", entryWidth, pos, len(data))
			}

			entry, err := parseXRefStreamEntry(data[pos:pos+entryWidth], w)
			if err != nil {
				return nil, fmt.Errorf("failed to parse xref stream entry %d: %w", first+j, err)
			}
			pos += entryWidth

			table.Set(first+j, entry)
		}
	}

	return table, nil
}

// parseXRefStreamEntry decodes a single binary xref stream entry using the
// field widths from /W. Entry types: 0=free, 1=in-use, 2=in object stream.
func parseXRefStreamEntry(data []byte, w []int) (*XRefEntry, error) {
	// A zero-width type field defaults to type 1 per the spec
	entryType := int64(1)
	pos := 0
	if w[0] > 0 {
		entryType = readBigEndianInt(data[pos:pos+w[0]], w[0])
		pos += w[0]
	}

	field1 := readBigEndianInt(data[pos:pos+w[1]], w[1])
	pos += w[1]
	field2 := readBigEndianInt(data[pos:pos+w[2]], w[2])

	switch entryType {
	case 0:
		return &XRefEntry{
			Offset:     field1, // next free object number
			Generation: int(field2),
			InUse:      false,
		}, nil
	case 1:
		return &XRefEntry{
			Offset:     field1,
			Generation: int(field2),
			InUse:      true,
		}, nil
	case 2:
		return &XRefEntry{
			InUse:       true,
			InStream:    true,
			StreamNum:   int(field1),
			StreamIndex: int(field2),
		}, nil
	default:
		return nil, fmt.Errorf("unknown xref stream entry type %d", entryType)
	}
}

// readBigEndianInt reads a big-endian integer of the given byte width.
func readBigEndianInt(data []byte, width int) int64 {
	var val int64
	for i := 0; i < width; i++ {
		val = val<<8 | int64(data[i])
	}
	return val
}

// ParseXRefFromEOF finds and parses the XRef section by scanning from EOF
func (x *XRefParser) ParseXRefFromEOF() (*XRefTable, error) {
	offset, err := x.FindXRef()
	if err != nil {
		return nil, fmt.Errorf("failed to find xref: %w", err)
	}

	table, err := x.ParseXRef(offset)
	if err != nil {
		return nil, fmt.Errorf("failed to parse xref: %w", err)
	}

	return table, nil
}

// ParsePrevXRef checks if the trailer has a /Prev entry and parses that XRef
// section. This handles incremental updates in PDFs.
func (x *XRefParser) ParsePrevXRef(table *XRefTable) (*XRefTable, error) {
	prevObj := table.Trailer.Get("Prev")
	if prevObj == nil {
		return nil, nil // No previous XRef
	}

	prevInt, ok := prevObj.(Int)
	if !ok {
		return nil, fmt.Errorf("invalid /Prev entry type: %T", prevObj)
	}

	prevTable, err := x.ParseXRef(int64(prevInt))
	if err != nil {
		return nil, fmt.Errorf("failed to parse previous xref: %w", err)
	}

	return prevTable, nil
}

// MergeXRefTables merges multiple XRef tables (from incremental updates).
// Later entries override earlier ones.
func MergeXRefTables(tables ...*XRefTable) *XRefTable {
	merged := NewXRefTable()

	// Process tables in order (earliest first); later entries win
	for _, table := range tables {
		for objNum, entry := range table.Entries {
			merged.Set(objNum, entry)
		}
		// Keep the last trailer
		merged.Trailer = table.Trailer
	}

	return merged
}

// ParseAllXRefs parses the main XRef section and all previous ones
// (incremental updates), including hybrid-reference /XRefStm sections.
// Returns them in order from oldest to newest.
func (x *XRefParser) ParseAllXRefs() ([]*XRefTable, error) {
	mainTable, err := x.ParseXRefFromEOF()
	if err != nil {
		return nil, err
	}

	tables := []*XRefTable{mainTable}
	seen := map[int64]bool{}

	currentTable := mainTable
	for {
		// Hybrid-reference files point at a supplementary xref stream
		if stmObj, ok := currentTable.Trailer.GetInt("XRefStm"); ok && !seen[int64(stmObj)] {
			seen[int64(stmObj)] = true
			stmTable, err := x.ParseXRef(int64(stmObj))
			if err != nil {
				return nil, fmt.Errorf("failed to parse hybrid xref stream: %w", err)
			}
			tables = append([]*XRefTable{stmTable}, tables...)
		}

		prevTable, err := x.ParsePrevXRef(currentTable)
		if err != nil {
			return nil, fmt.Errorf("failed to parse prev xref: %w", err)
		}
		if prevTable == nil {
			break
		}

		// Prepend (oldest first); guard against /Prev loops
		prevInt, _ := currentTable.Trailer.GetInt("Prev")
		if seen[int64(prevInt)] {
			break
		}
		seen[int64(prevInt)] = true

		tables = append([]*XRefTable{prevTable}, tables...)
		currentTable = prevTable
	}

	return tables, nil
}
