package sam

import (
	"strconv"

	"github.com/3dgenomes/hicprep/utils"
)

// A Reference is one @SQ line of a SAM header.
type Reference struct {
	Name   string
	Length int32
}

// Header holds the parts of a SAM header that are relevant for
// parsing mapped reads.
type Header struct {
	HD utils.StringMap
	SQ []Reference
	PG []utils.StringMap
	CO []string
}

// NewHeader returns an empty header.
func NewHeader() *Header { return &Header{} }

// Reference returns the reference sequence with the given name.
func (hdr *Header) Reference(name string) (Reference, bool) {
	for _, ref := range hdr.SQ {
		if ref.Name == name {
			return ref, true
		}
	}
	return Reference{}, false
}

// Alignment is one alignment line of a SAM file.
type Alignment struct {
	QNAME string
	FLAG  uint16
	RNAME string
	POS   int32
	MAPQ  byte
	CIGAR string
	RNEXT string
	PNEXT int32
	TLEN  int32
	SEQ   string
	QUAL  string
	TAGS  utils.SmallMap
}

// Interned optional field tags.
var (
	XS = utils.Intern("XS")
	NH = utils.Intern("NH")
)

// NewAlignment allocates an alignment with room for a few tags.
func NewAlignment() *Alignment {
	return &Alignment{TAGS: make(utils.SmallMap, 0, 8)}
}

// FLAG bits.
const (
	Multiple      = 0x1
	Proper        = 0x2
	Unmapped      = 0x4
	NextUnmapped  = 0x8
	Reversed      = 0x10
	NextReversed  = 0x20
	First         = 0x40
	Last          = 0x80
	Secondary     = 0x100
	QCFailed      = 0x200
	Duplicate     = 0x400
	Supplementary = 0x800
)

func (aln *Alignment) IsMultiple() bool      { return (aln.FLAG & Multiple) != 0 }
func (aln *Alignment) IsUnmapped() bool      { return (aln.FLAG & Unmapped) != 0 }
func (aln *Alignment) IsReversed() bool      { return (aln.FLAG & Reversed) != 0 }
func (aln *Alignment) IsSecondary() bool     { return (aln.FLAG & Secondary) != 0 }
func (aln *Alignment) IsSupplementary() bool { return (aln.FLAG & Supplementary) != 0 }

// ReadID returns the QNAME without its mate suffix.
func (aln *Alignment) ReadID() string {
	return utils.ReadID(aln.QNAME)
}

// NH returns the number of reported hits, or 0 if the NH tag is
// absent or not an integer.
func (aln *Alignment) NH() int32 {
	if value, ok := aln.TAGS.Get(NH); ok {
		if nh, ok := value.(int32); ok {
			return nh
		}
	}
	return 0
}

// IsNonUnique reports whether the read is unmapped, has a suboptimal
// hit (XS tag), or reports more than one hit (NH tag).
func (aln *Alignment) IsNonUnique() bool {
	return aln.IsUnmapped() || aln.TAGS.Has(XS) || aln.NH() > 1
}

// Position returns the 1-based position of the 5' end of the read.
// For reads on the reverse strand, this is POS plus the length of
// the sequence.
func (aln *Alignment) Position() int32 {
	if aln.IsReversed() {
		return aln.POS + int32(len(aln.SEQ))
	}
	return aln.POS
}

func parseReference(record utils.StringMap) (Reference, error) {
	name, found := record["SN"]
	if !found {
		return Reference{}, errMalformedf("SN entry in a SQ header line missing")
	}
	ln, found := record["LN"]
	if !found {
		return Reference{Name: name, Length: 0x7FFFFFFF}, errMalformedf("LN entry in a SQ header line missing")
	}
	length, err := strconv.ParseInt(ln, 10, 32)
	if err != nil {
		return Reference{Name: name}, errMalformedf("%v, while parsing LN entry of SQ header line", err)
	}
	return Reference{Name: name, Length: int32(length)}, nil
}
