// hicprep: iterative mapping and model optimization for Hi-C data.
// Copyright (c) 2020 imec vzw.

// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version, and Additional Terms
// (see below).

// This program is distributed in the hope that it will be useful, but
// WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Affero General Public License for more details.

// You should have received a copy of the GNU Affero General Public
// License and Additional Terms along with this program. If not, see
// <https://github.com/3dgenomes/hicprep/blob/master/LICENSE.txt>.

// Package fastq reads, writes, splits and filters FASTQ files.
package fastq

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/pgzip"
	"github.com/shenwei356/bio/seq"
	"github.com/shenwei356/bio/seqio/fastx"

	"github.com/3dgenomes/hicprep/utils"
)

// ErrMalformed is wrapped by all errors that report an invalid FASTQ
// record.
var ErrMalformed = errors.New("malformed FASTQ record")

// A Record is one four-line FASTQ entry. Lines are stored without
// their line terminators. The separator line is always written as a
// bare "+".
type Record struct {
	Header   string
	Sequence string
	Plus     string
	Quality  string
}

// ID returns the read identifier of the record, without mate suffix.
func (r *Record) ID() string {
	return utils.ReadID(r.Header)
}

// Format writes the record in FASTQ format.
func (r *Record) Format(out *bufio.Writer) (err error) {
	for _, line := range [4]string{r.Header, r.Sequence, r.Plus, r.Quality} {
		if _, err = out.WriteString(line); err != nil {
			return err
		}
		if err = out.WriteByte('\n'); err != nil {
			return err
		}
	}
	return nil
}

// AppendFormat appends the record in FASTQ format to buf.
func (r *Record) AppendFormat(buf []byte) []byte {
	for _, line := range [4]string{r.Header, r.Sequence, r.Plus, r.Quality} {
		buf = append(buf, line...)
		buf = append(buf, '\n')
	}
	return buf
}

// A Reader reads FASTQ records from a plain or gzip-compressed file.
// It implements pipeline.Source, producing batches of *Record.
type Reader struct {
	name string
	fx   *fastx.Reader
	err  error
	data []*Record
}

// Open a FASTQ file for input. Gzip compression is detected from the
// content, not the file name. An empty file yields no records.
func Open(name string) (*Reader, error) {
	info, err := os.Stat(name)
	if err != nil {
		return nil, err
	}
	if info.Size() == 0 {
		return &Reader{name: name}, nil
	}
	fx, err := fastx.NewReader(seq.DNAredundant, name, "")
	if err != nil {
		return nil, fmt.Errorf("%v, while opening %v", err, name)
	}
	return &Reader{name: name, fx: fx}, nil
}

// Close closes the FASTQ file.
func (r *Reader) Close() error {
	if r.fx != nil {
		r.fx.Close()
	}
	return nil
}

// Read returns the next record, or io.EOF at the end of the file.
func (r *Reader) Read() (*Record, error) {
	if r.fx == nil {
		return nil, io.EOF
	}
	record, err := r.fx.Read()
	if err == io.EOF {
		return nil, io.EOF
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v, while reading %v", ErrMalformed, err, r.name)
	}
	if !r.fx.IsFastq {
		return nil, fmt.Errorf("%w: %v is not in FASTQ format", ErrMalformed, r.name)
	}
	return &Record{
		Header:   "@" + string(record.Name),
		Sequence: string(record.Seq.Seq),
		Plus:     "+",
		Quality:  string(record.Seq.Qual),
	}, nil
}

// Err implements the method of the pipeline.Source interface.
func (r *Reader) Err() error {
	return r.err
}

// Prepare implements the method of the pipeline.Source interface.
func (r *Reader) Prepare(_ context.Context) int {
	return -1
}

// Fetch implements the method of the pipeline.Source interface.
func (r *Reader) Fetch(size int) (fetched int) {
	r.data = make([]*Record, 0, size)
	for fetched < size {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			r.err = err
			r.data = nil
			return 0
		}
		r.data = append(r.data, rec)
		fetched++
	}
	return fetched
}

// Data implements the method of the pipeline.Source interface.
func (r *Reader) Data() interface{} {
	return r.data
}

// A Writer writes FASTQ records to a file, compressed with pgzip if
// the file name ends in .gz.
type Writer struct {
	file *os.File
	gz   *pgzip.Writer
	*bufio.Writer
}

// Create a FASTQ file for output.
func Create(name string) (*Writer, error) {
	file, err := os.Create(name)
	if err != nil {
		return nil, err
	}
	if filepath.Ext(name) == ".gz" {
		gz := pgzip.NewWriter(file)
		return &Writer{file: file, gz: gz, Writer: bufio.NewWriter(gz)}, nil
	}
	return &Writer{file: file, Writer: bufio.NewWriter(file)}, nil
}

// WriteRecord writes one record.
func (w *Writer) WriteRecord(rec *Record) error {
	return rec.Format(w.Writer)
}

// Close flushes and closes the FASTQ file.
func (w *Writer) Close() error {
	err := w.Flush()
	if w.gz != nil {
		if nerr := w.gz.Close(); err == nil {
			err = nerr
		}
	}
	if nerr := w.file.Close(); err == nil {
		err = nerr
	}
	return err
}

// Each calls f on every record of the given file, in order.
func Each(name string, f func(rec *Record) error) (err error) {
	r, err := Open(name)
	if err != nil {
		return err
	}
	defer func() {
		if nerr := r.Close(); err == nil {
			err = nerr
		}
	}()
	for {
		rec, err := r.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if err = f(rec); err != nil {
			return err
		}
	}
}
