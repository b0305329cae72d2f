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

package fastq

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/3dgenomes/hicprep/utils"
)

// LineCount returns the number of lines in a plain or gzip-compressed
// file. A last line without terminator is counted.
func LineCount(name string) (count int, err error) {
	file, err := os.Open(name)
	if err != nil {
		return 0, err
	}
	defer func() {
		if nerr := file.Close(); err == nil {
			err = nerr
		}
	}()
	input, gz, err := utils.HandleGzip(bufio.NewReader(file))
	if err != nil {
		return 0, fmt.Errorf("%v, while opening %v", err, name)
	}
	if gz != nil {
		defer func() {
			if nerr := gz.Close(); err == nil {
				err = nerr
			}
		}()
	}
	buf := make([]byte, 64*1024)
	var last byte = '\n'
	for {
		n, err := input.Read(buf)
		if n > 0 {
			count += bytes.Count(buf[:n], []byte{'\n'})
			last = buf[n-1]
		}
		if err == io.EOF {
			if last != '\n' {
				count++
			}
			return count, nil
		}
		if err != nil {
			return count, err
		}
	}
}

// Chunk splits a FASTQ file into files of at most maxReads records
// each, named outBase.1, outBase.2, and so on. If the input already
// has no more than maxReads records, it is not split, and Chunk
// returns the input file name as the only chunk. The second result
// reports whether new files were created.
func Chunk(name, outBase string, maxReads int) (chunks []string, split bool, err error) {
	if maxReads <= 0 {
		return nil, false, fmt.Errorf("invalid number of reads per chunk %v", maxReads)
	}
	lines, err := LineCount(name)
	if err != nil {
		return nil, false, err
	}
	if lines <= maxReads*4 {
		return []string{name}, false, nil
	}
	var out *Writer
	closeChunk := func() error {
		if out == nil {
			return nil
		}
		err := out.Close()
		out = nil
		return err
	}
	count := 0
	err = Each(name, func(rec *Record) error {
		if count%maxReads == 0 {
			if err := closeChunk(); err != nil {
				return err
			}
			chunk := outBase + "." + strconv.Itoa(len(chunks)+1)
			var err error
			if out, err = Create(chunk); err != nil {
				return err
			}
			chunks = append(chunks, chunk)
		}
		count++
		return out.WriteRecord(rec)
	})
	if nerr := closeChunk(); err == nil {
		err = nerr
	}
	if err != nil {
		return chunks, true, fmt.Errorf("%v, while splitting %v into chunks", err, name)
	}
	return chunks, true, nil
}
