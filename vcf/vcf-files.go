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

package vcf

import (
	"bufio"
	"io"
	"strconv"
)

var headerPreamble = []string{
	`##FILTER=<ID=PASS,Description="All filters passed">`,
	`##FILTER=<ID=LowQual,Description="Confidence in this variant being real is below calling threshold.">`,
	`##ALT=<ID=DEL,Description="Deletion">`,
	`##ALT=<ID=INS,Description="Insertion of novel sequence">`,
	`##INFO=<ID=SVTYPE,Number=1,Type=String,Description="Type of structural variant">`,
	`##INFO=<ID=LENGUESS,Number=.,Type=Integer,Description="Best guess of the indel length">`,
	`##FORMAT=<ID=GT,Number=1,Type=String,Description="Genotype">`,
	`##FORMAT=<ID=GQ,Number=1,Type=Integer,Description="Genotype Quality">`,
	`##FORMAT=<ID=DP,Number=1,Type=Integer,Description="Read Depth">`,
	`##FORMAT=<ID=AF,Number=1,Type=Float,Description="Estimated allele frequency in the range (0,1)">`,
}

// Format writes the header block.
func (header *Header) Format(out *bufio.Writer) error {
	_, _ = out.WriteString(FileFormatVersionLine)
	_ = out.WriteByte('\n')
	_, _ = out.WriteString("##source=")
	_, _ = out.WriteString(header.Source)
	_ = out.WriteByte('\n')
	for _, line := range headerPreamble {
		_, _ = out.WriteString(line)
		_ = out.WriteByte('\n')
	}
	for _, contig := range header.Contigs {
		_, _ = out.WriteString("##contig=<ID=")
		_, _ = out.WriteString(contig.Name)
		_, _ = out.WriteString(",length=")
		_, _ = out.WriteString(strconv.FormatInt(int64(contig.Length), 10))
		_, _ = out.WriteString(">\n")
	}
	_, _ = out.WriteString("#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO\tFORMAT\t")
	_, _ = out.WriteString(header.SampleName)
	return out.WriteByte('\n')
}

// Format appends one VCF variant line.
func (variant *Variant) Format(out []byte) []byte {
	out = append(append(out, variant.Chrom...), '\t')
	out = append(strconv.AppendInt(out, int64(variant.Pos), 10), '\t')
	out = append(out, '.', '\t')
	out = append(append(out, variant.Ref...), '\t')
	if len(variant.Alt) == 0 {
		out = append(out, '.')
	} else {
		out = append(out, variant.Alt[0]...)
		for _, alt := range variant.Alt[1:] {
			out = append(out, ',')
			out = append(out, alt...)
		}
	}
	out = append(out, '\t')
	out = append(strconv.AppendInt(out, int64(variant.Qual), 10), '\t')
	out = append(append(out, variant.Filter...), '\t')
	if variant.LengthGuess > 0 {
		out = append(out, "LENGUESS="...)
		out = strconv.AppendInt(out, int64(variant.LengthGuess), 10)
	} else {
		out = append(out, '.')
	}
	out = append(out, "\tGT:GQ:DP:AF\t"...)
	out = append(append(out, variant.Genotype...), ':')
	out = append(strconv.AppendInt(out, int64(variant.Qual), 10), ':')
	out = append(strconv.AppendInt(out, int64(variant.Depth), 10), ':')
	out = strconv.AppendFloat(out, variant.AlleleFrequency, 'f', 4, 64)
	return append(out, '\n')
}

// A Writer serializes a header and variant records to an output stream.
type Writer struct {
	out *bufio.Writer
	buf []byte
}

// NewWriter creates a Writer and writes the header block.
func NewWriter(w io.Writer, header *Header) (*Writer, error) {
	out := bufio.NewWriter(w)
	if err := header.Format(out); err != nil {
		return nil, err
	}
	return &Writer{out: out}, nil
}

// Write serializes one variant record.
func (w *Writer) Write(variant *Variant) error {
	w.buf = variant.Format(w.buf[:0])
	_, err := w.out.Write(w.buf)
	return err
}

// WriteLine writes a raw line, used for debug traces.
func (w *Writer) WriteLine(line string) error {
	if _, err := w.out.WriteString(line); err != nil {
		return err
	}
	return w.out.WriteByte('\n')
}

// Flush flushes buffered output.
func (w *Writer) Flush() error {
	return w.out.Flush()
}
