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

package fasta

import (
	"bufio"
	"bytes"
	"log"
	"unicode"

	"github.com/exascience/elcall/internal"
)

// FaiReference represents an entry in an FAI file.
type FaiReference struct {
	Name      string
	Length    int32
	Offset    int64
	LineBases int32
	LineWidth int32
}

// ParseFai parses an FAI file. The returned slice preserves the
// order of the entries in the file, which determines the order of
// the contig lines in the VCF header.
func ParseFai(filename string) (fai []FaiReference) {
	f := internal.FileOpen(filename)
	defer internal.Close(f)

	scanner := bufio.NewScanner(f)

	for scanner.Scan() {
		b := bytes.Split(scanner.Bytes(), []byte("\t"))
		if len(b) != 5 {
			log.Panicf("badly formatted fai file %v - invalid number of entries", filename)
		}

		fai = append(fai, FaiReference{
			Name:      string(b[0]),
			Length:    int32(internal.ParseInt(string(b[1]), 10, 32)),
			Offset:    internal.ParseInt(string(b[2]), 10, 64),
			LineBases: int32(internal.ParseInt(string(b[3]), 10, 32)),
			LineWidth: int32(internal.ParseInt(string(b[4]), 10, 32)),
		})
	}

	if err := scanner.Err(); err != nil {
		log.Panic(err)
	}

	return fai
}

func contigFromHeader(b []byte) string {
	i := 1
	for ; i < len(b); i++ {
		if c := b[i]; c >= '!' && c <= '~' {
			break
		}
	}
	j := i + 1
	for ; j < len(b); j++ {
		if c := b[j]; c < '!' || c > '~' {
			break
		}
	}
	return string(b[i:j])
}

var iupacUpperTable = map[byte]byte{
	'A': 'A', 'a': 'A',
	'C': 'C', 'c': 'C',
	'G': 'G', 'g': 'G',
	'T': 'T', 't': 'T',
	'N': 'N', 'n': 'N',
	'R': 'N', 'r': 'N',
	'Y': 'N', 'y': 'N',
	'M': 'N', 'm': 'N',
	'K': 'N', 'k': 'N',
	'W': 'N', 'w': 'N',
	'S': 'N', 's': 'N',
	'B': 'N', 'b': 'N',
	'D': 'N', 'd': 'N',
	'H': 'N', 'h': 'N',
	'V': 'N', 'v': 'N',
}

// ToUpperAndN normalizes ambiguity codes in FASTA references,
// and converts all codes to upper case.
func ToUpperAndN(base byte) byte {
	if n, ok := iupacUpperTable[base]; ok {
		return n
	}
	return base
}

// A Reference provides read-only access to the reference sequences
// of a FASTA file, indexed by contig.
type Reference struct {
	seqs map[string][]byte
}

// NewReference wraps parsed FASTA contents.
func NewReference(seqs map[string][]byte) *Reference {
	return &Reference{seqs: seqs}
}

// ParseReference parses a FASTA file into a Reference. Sequences are
// converted to upper case with ambiguity codes normalized.
func ParseReference(filename string) *Reference {
	return NewReference(ParseFasta(filename, nil))
}

// Fetch returns the reference bases for the half-open, 0-based range
// [start, end) of the given contig. Unknown contigs and out-of-bounds
// ranges yield the empty string rather than an error: callers treat
// malformed regions as missing evidence.
func (ref *Reference) Fetch(contig string, start, end int) string {
	if ref == nil {
		return ""
	}
	seq, ok := ref.seqs[contig]
	if !ok {
		return ""
	}
	if start < 0 || end > len(seq) || start >= end {
		return ""
	}
	return string(seq[start:end])
}

// ParseFasta sequentially parses a FASTA file.
//
// If fai is given, the sequences are pre-allocated to reduce pressure
// on the garbage collector. The contents are converted to upper case
// and ambiguity codes are normalized.
func ParseFasta(filename string, fai []FaiReference) (fasta map[string][]byte) {
	f := internal.FileOpen(filename)
	defer internal.Close(f)

	lengths := make(map[string]int32)
	for _, ref := range fai {
		lengths[ref.Name] = ref.Length
	}
	initSeq := func(contig string) []byte {
		if length, ok := lengths[contig]; ok {
			return make([]byte, 0, length)
		}
		return nil
	}

	scanner := bufio.NewScanner(bufio.NewReader(f))

	if !scanner.Scan() {
		log.Panicf("empty fasta file %v", filename)
	}
	b := scanner.Bytes()
	for len(b) == 0 {
		if !scanner.Scan() {
			log.Panicf("empty fasta file %v", filename)
		}
		b = scanner.Bytes()
	}
	if b[0] != '>' {
		log.Panicf("invalid fasta file %v - missing first header", filename)
	}

	contig := contigFromHeader(b)
	seq := initSeq(contig)
	fasta = make(map[string][]byte)

scanLoop:
	for scanner.Scan() {
		b := scanner.Bytes()
		if len(b) == 0 {
			if !scanner.Scan() {
				break scanLoop
			}
			b = scanner.Bytes()
			for len(b) == 0 {
				if !scanner.Scan() {
					break scanLoop
				}
				b = scanner.Bytes()
			}
			if b[0] != '>' {
				log.Panicf("invalid fasta file %v - empty line", filename)
			}
		}
		if b[0] == '>' {
			fasta[contig] = seq
			contig = contigFromHeader(b)
			seq = initSeq(contig)
		} else {
			for i, c := range b {
				b[i] = ToUpperAndN(byte(unicode.ToUpper(rune(c))))
			}
			seq = append(seq, b...)
		}
	}

	fasta[contig] = seq

	if err := scanner.Err(); err != nil {
		log.Panic(err)
	}

	return fasta
}
