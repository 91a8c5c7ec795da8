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

// Package vcf formats called variants as VCF text output.
package vcf

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/exascience/elcall/fasta"
	"github.com/exascience/elcall/utils"
)

// The VCF file format version emitted by elcall.
const FileFormatVersionLine = "##fileformat=VCFv4.1"

// Filter values for called variants.
const (
	FilterNone    = "."
	FilterPass    = "PASS"
	FilterLowQual = "LowQual"
)

// Genotype strings for called variants.
const (
	GenotypeHomoReference      = "0/0"
	GenotypeHomoVariant        = "1/1"
	GenotypeHeteroVariant      = "0/1"
	GenotypeHeteroVariantMulti = "1/2"
)

type (
	// A Header describes the header block of a VCF output file: the
	// fixed preamble, one contig line per reference-index entry, and
	// the column header naming the sample.
	Header struct {
		SampleName string
		Contigs    []fasta.FaiReference
		Source     string
	}

	// A Variant is one called site, ready for serialization.
	Variant struct {
		Chrom           string
		Pos             int32 // 1-based
		Ref             string
		Alt             []string
		Qual            int32
		Filter          string
		LengthGuess     int32 // 0 if the indel length was not inferred
		Genotype        string
		Depth           int32
		AlleleFrequency float64
	}
)

// NewHeader creates a header for the given sample, tagged with a
// unique run identifier.
func NewHeader(sampleName string, contigs []fasta.FaiReference) *Header {
	return &Header{
		SampleName: sampleName,
		Contigs:    contigs,
		Source:     fmt.Sprintf("%v %v; runID=%v", utils.ProgramName, utils.ProgramVersion, uuid.New()),
	}
}
