package sam

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/exascience/pargo/pipeline"

	"github.com/3dgenomes/hicprep/internal"
	"github.com/3dgenomes/hicprep/utils"
)

func errMalformedf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %v", ErrMalformed, fmt.Sprintf(format, args...))
}

// ParseHeaderField parses a TAG:VALUE pair of a header line.
func (sc *StringScanner) ParseHeaderField() (tag, value string) {
	if sc.err != nil {
		return
	}
	tag, ok := sc.readUntil(':')
	if !ok || (len(tag) != 2) {
		sc.fail("invalid header field tag %v", tag)
		return "", ""
	}
	value, _ = sc.readUntil('\t')
	return tag, value
}

// ParseHeaderLine parses the fields of a header line after its
// record type code.
func (sc *StringScanner) ParseHeaderLine() utils.StringMap {
	if sc.err != nil {
		return nil
	}
	record := make(utils.StringMap)
	for sc.Len() > 0 {
		tag, value := sc.ParseHeaderField()
		if sc.err != nil {
			break
		}
		if !record.SetUniqueEntry(tag, value) {
			sc.fail("duplicate field tag %v in a SAM header line", tag)
			break
		}
	}
	return record
}

// ParseHeader parses the header section of a SAM file. It stops at
// the first line that does not start with '@', which is left
// unread.
func ParseHeader(reader *bufio.Reader) (hdr *Header, lines int, err error) {
	hdr = NewHeader()
	var sc StringScanner
	for {
		switch data, err := reader.Peek(1); {
		case err == io.EOF:
			return hdr, lines, nil
		case err != nil:
			return hdr, lines, err
		case data[0] != '@':
			return hdr, lines, nil
		}
		line, err := reader.ReadString('\n')
		if err != nil && err != io.EOF {
			return hdr, lines, err
		}
		lines++
		line = strings.TrimRight(line, "\r\n")
		if len(line) < 3 {
			return hdr, lines, errMalformedf("header line %q too short", line)
		}
		code, rest := line[:3], ""
		if len(line) > 4 {
			rest = line[4:]
		}
		sc.Reset(rest)
		switch code {
		case "@HD":
			hdr.HD = sc.ParseHeaderLine()
		case "@SQ":
			ref, err := parseReference(sc.ParseHeaderLine())
			if err != nil {
				return hdr, lines, err
			}
			hdr.SQ = append(hdr.SQ, ref)
		case "@PG":
			hdr.PG = append(hdr.PG, sc.ParseHeaderLine())
		case "@CO":
			hdr.CO = append(hdr.CO, rest)
		default:
			// @RG and user-defined records carry nothing we need.
		}
		if sc.err != nil {
			return hdr, lines, sc.err
		}
	}
}

// ParseInteger parses an optional field of type i.
func (sc *StringScanner) ParseInteger() interface{} {
	if sc.err != nil {
		return nil
	}
	value, _ := sc.readUntil('\t')
	val, err := strconv.ParseInt(value, 10, 32)
	if err != nil {
		sc.fail("%v", err)
	}
	return int32(val)
}

// ParseFloat parses an optional field of type f.
func (sc *StringScanner) ParseFloat() interface{} {
	if sc.err != nil {
		return nil
	}
	value, _ := sc.readUntil('\t')
	val, err := strconv.ParseFloat(value, 32)
	if err != nil {
		sc.fail("%v", err)
	}
	return float32(val)
}

// ParseString parses an optional field of type Z. Fields of type H
// and B are also kept in their textual representation.
func (sc *StringScanner) ParseString() interface{} {
	if sc.err != nil {
		return nil
	}
	value, _ := sc.readUntil('\t')
	return value
}

// ParseChar parses an optional field of type A.
func (sc *StringScanner) ParseChar() interface{} {
	if sc.err != nil {
		return nil
	}
	value, _ := sc.readByteUntil('\t')
	return value
}

// A FieldParser parses the value of an optional field.
type FieldParser func(*StringScanner) interface{}

var optionalFieldParseTable = map[byte]FieldParser{
	'A': (*StringScanner).ParseChar,
	'i': (*StringScanner).ParseInteger,
	'f': (*StringScanner).ParseFloat,
	'Z': (*StringScanner).ParseString,
	'H': (*StringScanner).ParseString,
	'B': (*StringScanner).ParseString,
}

// ParseOptionalField parses a TAG:TYPE:VALUE optional field.
func (sc *StringScanner) ParseOptionalField() (tag utils.Symbol, value interface{}) {
	if sc.err != nil {
		return nil, nil
	}
	tagname, ok := sc.readUntil(':')
	if !ok || (len(tagname) != 2) {
		sc.fail("invalid field tag %v in SAM alignment line", tagname)
		return nil, nil
	}
	tag = utils.Intern(tagname)
	typebyte, ok := sc.readByteUntil(':')
	if !ok {
		sc.fail("invalid field type %q in SAM alignment line", typebyte)
		return nil, nil
	}
	parser, ok := optionalFieldParseTable[typebyte]
	if !ok {
		sc.fail("unknown field type %q in SAM alignment line", typebyte)
		return nil, nil
	}
	return tag, parser(sc)
}

func (sc *StringScanner) doString() string {
	if sc.err != nil {
		return ""
	}
	value, ok := sc.readUntil('\t')
	if !ok {
		sc.fail("missing tabulator in SAM alignment line")
		return ""
	}
	return value
}

func (sc *StringScanner) doInt32() int32 {
	if sc.err != nil {
		return 0
	}
	value, err := strconv.ParseInt(sc.doString(), 10, 32)
	if err != nil {
		sc.fail("%v", err)
	}
	return int32(value)
}

func (sc *StringScanner) doUint(bitSize int) uint64 {
	if sc.err != nil {
		return 0
	}
	value, err := strconv.ParseUint(sc.doString(), 10, bitSize)
	if err != nil {
		sc.fail("%v", err)
	}
	return value
}

// ParseAlignment parses the current line as a SAM alignment.
func (sc *StringScanner) ParseAlignment() *Alignment {
	aln := NewAlignment()

	aln.QNAME = sc.doString()
	aln.FLAG = uint16(sc.doUint(16))
	aln.RNAME = sc.doString()
	aln.POS = sc.doInt32()
	aln.MAPQ = byte(sc.doUint(8))
	aln.CIGAR = sc.doString()
	aln.RNEXT = sc.doString()
	aln.PNEXT = sc.doInt32()
	aln.TLEN = sc.doInt32()
	aln.SEQ = sc.doString()
	aln.QUAL, _ = sc.readUntil('\t')

	for sc.Len() > 0 {
		tag, value := sc.ParseOptionalField()
		if sc.err != nil {
			break
		}
		aln.TAGS.Set(tag, value)
	}

	return aln
}

// ParseAlignment parses a single SAM alignment line.
func ParseAlignment(line string) (*Alignment, error) {
	var sc StringScanner
	sc.Reset(line)
	aln := sc.ParseAlignment()
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return aln, nil
}

// InputFile represents a SAM or BAM file for input. It implements
// pipeline.Source, producing batches of alignment lines.
type InputFile struct {
	rc   io.ReadCloser
	buf  *bufio.Reader
	cmd  *exec.Cmd
	err  error
	data []string
}

// SAM file extensions.
const (
	SamExt = ".sam"
	BamExt = ".bam"
)

// Open a SAM or BAM file for input.
//
// BAM files are decoded by a samtools view process. Any other
// extension is read as SAM.
func Open(name string) (*InputFile, error) {
	switch filepath.Ext(name) {
	case BamExt:
		if _, err := os.Stat(name); err != nil {
			return nil, err
		}
		cmd := exec.Command("samtools", "view", "-h", "-@", strconv.Itoa(runtime.GOMAXPROCS(0)), name)
		outPipe, err := cmd.StdoutPipe()
		if err != nil {
			return nil, err
		}
		if err = cmd.Start(); err != nil {
			return nil, fmt.Errorf("%v, while starting samtools for %v", err, name)
		}
		return &InputFile{rc: outPipe, buf: bufio.NewReader(outPipe), cmd: cmd}, nil
	default:
		file, err := os.Open(name)
		if err != nil {
			return nil, err
		}
		return &InputFile{rc: file, buf: bufio.NewReader(file)}, nil
	}
}

// ParseHeader parses the header section of the input file. It must
// be called before the input file is used as a pipeline source.
func (f *InputFile) ParseHeader() (*Header, error) {
	hdr, _, err := ParseHeader(f.buf)
	return hdr, err
}

// Close closes the input file, and waits for samtools if necessary.
func (f *InputFile) Close() error {
	err := f.rc.Close()
	if f.cmd != nil {
		if nerr := f.cmd.Wait(); err == nil {
			err = nerr
		}
	}
	return err
}

// Err implements the method of the pipeline.Source interface.
func (f *InputFile) Err() error {
	return f.err
}

// Prepare implements the method of the pipeline.Source interface.
func (f *InputFile) Prepare(_ context.Context) int {
	return -1
}

// Fetch implements the method of the pipeline.Source interface.
func (f *InputFile) Fetch(size int) (fetched int) {
	f.data = make([]string, 0, size)
	for fetched < size {
		line, err := f.buf.ReadString('\n')
		if err != nil && err != io.EOF {
			f.err = err
			return 0
		}
		if line = strings.TrimRight(line, "\r\n"); line != "" {
			f.data = append(f.data, line)
			fetched++
		}
		if err == io.EOF {
			break
		}
	}
	return fetched
}

// Data implements the method of the pipeline.Source interface.
func (f *InputFile) Data() interface{} {
	return f.data
}

const (
	minBatchSize = 4096
	maxBatchSize = 65536
)

// LinesToAlignments returns a pargo pipeline.Filter that parses
// slices of SAM alignment lines into slices of freshly allocated
// Alignment values.
func LinesToAlignments() pipeline.Filter {
	return func(p *pipeline.Pipeline, _ pipeline.NodeKind, _ *int) (receiver pipeline.Receiver, _ pipeline.Finalizer) {
		receiver = func(_ int, data interface{}) interface{} {
			lines := data.([]string)
			alns := make([]*Alignment, 0, len(lines))
			var sc StringScanner
			for _, line := range lines {
				sc.Reset(line)
				aln := sc.ParseAlignment()
				if err := sc.Err(); err != nil {
					p.SetErr(fmt.Errorf("%w, while parsing SAM alignment %v", err, line))
					return alns
				}
				alns = append(alns, aln)
			}
			return alns
		}
		return
	}
}

// ScanAlignments parses all alignments of the given SAM or BAM file in
// parallel, and passes them to receive in batches, in file order.
func ScanAlignments(name string, receive func(hdr *Header, alns []*Alignment) error) (err error) {
	input, err := Open(name)
	if err != nil {
		return err
	}
	defer func() {
		if nerr := input.Close(); err == nil {
			err = nerr
		}
	}()
	hdr, err := input.ParseHeader()
	if err != nil {
		return fmt.Errorf("%w, while parsing the header of %v", err, name)
	}
	var p pipeline.Pipeline
	p.Source(input)
	p.SetVariableBatchSize(minBatchSize, maxBatchSize)
	p.Add(
		pipeline.LimitedPar(0, LinesToAlignments()),
		pipeline.StrictOrd(pipeline.Receive(func(_ int, data interface{}) interface{} {
			if err := receive(hdr, data.([]*Alignment)); err != nil {
				p.SetErr(err)
			}
			return nil
		})),
	)
	return internal.RunPipeline(&p)
}
