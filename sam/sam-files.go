// elCall: a fast decoder for neural-network-based variant callers.
// Copyright (c) 2019-2020 imec vzw.

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
// <https://github.com/ExaScience/elcall/blob/master/LICENSE.txt>.

// Package sam provides read-only access to aligned reads for indel
// allele recovery. It parses SAM text files and answers pileup-style
// queries for insertion/deletion signatures at candidate sites.
package sam

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"unicode"
)

// Alignment flag values, as in the SAM specification.
const (
	Unmapped      = 0x4
	Secondary     = 0x100
	Supplementary = 0x800

	// Reads with any of these flags never contribute to pileups.
	pileupFlagFilter = Unmapped | Secondary | Supplementary
)

// An Alignment is the subset of a SAM record needed for pileup queries.
type Alignment struct {
	QNAME string
	FLAG  uint16
	RNAME string
	POS   int32 // 1-based leftmost mapping position
	MAPQ  byte
	CIGAR []CigarOperation
	SEQ   string
}

// CigarOperations contains the valid CIGAR operation codes.
const CigarOperations = "MmIiDdNnSsHhPpXx="

var cigarOperationsTable = make(map[byte]byte, len(CigarOperations))

func init() {
	for _, c := range CigarOperations {
		cigarOperationsTable[byte(c)] = byte(unicode.ToUpper(rune(c)))
	}
}

func isDigit(char byte) bool { return ('0' <= char) && (char <= '9') }

// A CigarOperation is a single run-length-encoded CIGAR element.
type CigarOperation struct {
	Length    int32
	Operation byte
}

// ScanCigarString parses a CIGAR string with explicit bounds checks.
func ScanCigarString(cigar string) (slice []CigarOperation, err error) {
	if cigar == "*" {
		return nil, nil
	}
	for i := 0; i < len(cigar); {
		j := i
		for j < len(cigar) && isDigit(cigar[j]) {
			j++
		}
		if j == i || j == len(cigar) {
			return nil, fmt.Errorf("invalid CIGAR string %v", cigar)
		}
		length, nerr := strconv.ParseInt(cigar[i:j], 10, 32)
		if nerr != nil {
			return nil, fmt.Errorf("%v, while scanning CIGAR string %v", nerr, cigar)
		}
		operation := cigarOperationsTable[cigar[j]]
		if operation == 0 {
			return nil, fmt.Errorf("invalid CIGAR operation %c in %v", cigar[j], cigar)
		}
		slice = append(slice, CigarOperation{int32(length), operation})
		i = j + 1
	}
	return slice, nil
}

// end returns the 1-based position one past the last reference base
// covered by the alignment.
func (aln *Alignment) end() int32 {
	end := aln.POS
	for _, op := range aln.CIGAR {
		switch op.Operation {
		case 'M', 'D', 'N', '=', 'X':
			end += op.Length
		}
	}
	return end
}

// ParseAlignment parses one SAM alignment line.
func ParseAlignment(line string) (*Alignment, error) {
	fields := strings.SplitN(line, "\t", 11)
	if len(fields) < 10 {
		return nil, fmt.Errorf("invalid SAM alignment line with %v fields", len(fields))
	}
	flag, err := strconv.ParseUint(fields[1], 10, 16)
	if err != nil {
		return nil, fmt.Errorf("%v, while parsing FLAG in SAM alignment %v", err, fields[0])
	}
	pos, err := strconv.ParseInt(fields[3], 10, 32)
	if err != nil {
		return nil, fmt.Errorf("%v, while parsing POS in SAM alignment %v", err, fields[0])
	}
	mapq, err := strconv.ParseUint(fields[4], 10, 8)
	if err != nil {
		return nil, fmt.Errorf("%v, while parsing MAPQ in SAM alignment %v", err, fields[0])
	}
	cigar, err := ScanCigarString(fields[5])
	if err != nil {
		return nil, fmt.Errorf("%v, in SAM alignment %v", err, fields[0])
	}
	return &Alignment{
		QNAME: fields[0],
		FLAG:  uint16(flag),
		RNAME: fields[2],
		POS:   int32(pos),
		MAPQ:  byte(mapq),
		CIGAR: cigar,
		SEQ:   strings.ToUpper(fields[9]),
	}, nil
}

// ReadAlignments parses a SAM text file (optionally gzip-compressed),
// skipping the header and all reads that never contribute to pileups.
func ReadAlignments(filename string) (alns []*Alignment, err error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer func() {
		if nerr := f.Close(); err == nil {
			err = nerr
		}
	}()
	var reader io.Reader = f
	if strings.HasSuffix(filename, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, err
		}
		defer gz.Close()
		reader = gz
	}
	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 0, 1024*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if len(line) == 0 || line[0] == '@' {
			continue
		}
		aln, err := ParseAlignment(line)
		if err != nil {
			return nil, err
		}
		if aln.FLAG&pileupFlagFilter != 0 || aln.RNAME == "*" || aln.POS <= 0 {
			continue
		}
		alns = append(alns, aln)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	sort.SliceStable(alns, func(i, j int) bool {
		if alns[i].RNAME != alns[j].RNAME {
			return alns[i].RNAME < alns[j].RNAME
		}
		return alns[i].POS < alns[j].POS
	})
	return alns, nil
}
