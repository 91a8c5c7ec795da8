// elCall: a fast decoder for neural-network-based variant callers.
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
// <https://github.com/ExaScience/elcall/blob/master/LICENSE.txt>.

// Package caller decodes per-site probability distributions produced
// by a genotyping network into called variants.
package caller

import (
	"bufio"
	"io"
	"log"
	"os"
	"strings"

	"gonum.org/v1/gonum/floats"

	"github.com/exascience/elcall/internal"
)

// Evidence window geometry.
const (
	// FlankingBases is the number of reference positions on each
	// side of a candidate site in the evidence window.
	FlankingBases = 16

	// WindowSize is the width of the evidence window.
	WindowSize = 2*FlankingBases + 1

	// Center is the window index of the candidate site itself.
	Center = FlankingBases

	nucleotideChannels = 8 // ACGT on the forward strand, then ACGT on the reverse strand
	categoryChannels   = 4

	// TensorSize is the number of values in a flattened tensor.
	TensorSize = WindowSize * nucleotideChannels * categoryChannels
)

// Channel indexes the per-position evidence categories.
type Channel int

// The evidence categories.
const (
	ChannelReference Channel = iota
	ChannelInsert
	ChannelDelete
	ChannelSNP
)

var numToBase = [4]byte{'A', 'C', 'G', 'T'}

// baseToNum maps A/C/G/T to 0..3; other bytes map to -1.
func baseToNum(base byte) int {
	switch base {
	case 'A':
		return 0
	case 'C':
		return 1
	case 'G':
		return 2
	case 'T':
		return 3
	default:
		return -1
	}
}

// A Tensor is the evidence summary for one candidate site: window
// positions × 8 nucleotide strand-channels × 4 categories.
type Tensor [WindowSize][nucleotideChannels][categoryChannels]float64

// Flatten serializes the tensor in row-major order for the classifier.
func (t *Tensor) Flatten() []float64 {
	flat := make([]float64, 0, TensorSize)
	for pos := 0; pos < WindowSize; pos++ {
		for base := 0; base < nucleotideChannels; base++ {
			flat = append(flat, t[pos][base][:]...)
		}
	}
	return flat
}

// channelColumn returns the 8 per-nucleotide values of one category at
// one window position.
func (t *Tensor) channelColumn(pos int, ch Channel) []float64 {
	column := make([]float64, nucleotideChannels)
	for base := 0; base < nucleotideChannels; base++ {
		column[base] = t[pos][base][ch]
	}
	return column
}

// channelSum sums one category over all nucleotide channels at one
// window position.
func (t *Tensor) channelSum(pos int, ch Channel) float64 {
	return floats.Sum(t.channelColumn(pos, ch))
}

// mergedStrands folds the reverse-strand nucleotide channels into the
// forward-strand ones for one category at one window position.
func (t *Tensor) mergedStrands(pos int, ch Channel) []float64 {
	merged := make([]float64, 4)
	for base := 0; base < 4; base++ {
		merged[base] = t[pos][base][ch] + t[pos][base+4][ch]
	}
	return merged
}

// A Site is one candidate genomic position with its evidence window.
// Sites are immutable once produced by the batch source.
type Site struct {
	Chrom           string
	Pos             int32 // 1-based
	ReferenceWindow string
	Tensor          Tensor
}

// A Batch is one classifier batch of sites.
type Batch struct {
	Sites []Site
}

// FlattenedTensors serializes all site tensors for the classifier.
func (b *Batch) FlattenedTensors() [][]float64 {
	tensors := make([][]float64, len(b.Sites))
	for i := range b.Sites {
		tensors[i] = b.Sites[i].Tensor.Flatten()
	}
	return tensors
}

// A BatchSource yields classifier batches. It is pull-based and not
// restartable after done is returned true; the final batch may be
// partial and may accompany done.
type BatchSource interface {
	Next() (batch *Batch, done bool)
}

// A TensorReader reads whitespace-separated tensor lines of the form
//
//	chrom pos referenceWindow v0 v1 ... v1055
//
// and groups them into batches. Malformed lines are fatal.
type TensorReader struct {
	scanner   *bufio.Scanner
	closer    io.Closer
	batchSize int
}

// NewTensorReader creates a batch source over a reader.
func NewTensorReader(r io.Reader, batchSize int) *TensorReader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 1024*1024), 16*1024*1024)
	return &TensorReader{scanner: scanner, batchSize: batchSize}
}

// OpenTensorFile creates a batch source over a tensor file, or over
// standard input when the filename is "-".
func OpenTensorFile(filename string, batchSize int) *TensorReader {
	if filename == "-" {
		return NewTensorReader(os.Stdin, batchSize)
	}
	f := internal.FileOpen(filename)
	tr := NewTensorReader(f, batchSize)
	tr.closer = f
	return tr
}

func parseSite(line string) (site Site) {
	fields := strings.Fields(line)
	if len(fields) != 3+TensorSize {
		log.Panicf("invalid tensor line with %v fields, expected %v", len(fields), 3+TensorSize)
	}
	site.Chrom = fields[0]
	site.Pos = int32(internal.ParseInt(fields[1], 10, 32))
	site.ReferenceWindow = fields[2]
	if len(site.ReferenceWindow) != WindowSize {
		log.Panicf("invalid reference window of width %v at %v:%v", len(site.ReferenceWindow), site.Chrom, site.Pos)
	}
	i := 3
	for pos := 0; pos < WindowSize; pos++ {
		for base := 0; base < nucleotideChannels; base++ {
			for ch := 0; ch < categoryChannels; ch++ {
				site.Tensor[pos][base][ch] = internal.ParseFloat(fields[i], 64)
				i++
			}
		}
	}
	return site
}

// Next reads the next batch. The returned done flag is true when the
// input is exhausted; the final batch may be partial.
func (tr *TensorReader) Next() (*Batch, bool) {
	batch := &Batch{Sites: make([]Site, 0, tr.batchSize)}
	for len(batch.Sites) < tr.batchSize {
		if !tr.scanner.Scan() {
			if err := tr.scanner.Err(); err != nil {
				log.Panic(err)
			}
			if tr.closer != nil {
				internal.Close(tr.closer)
				tr.closer = nil
			}
			if len(batch.Sites) == 0 {
				return nil, true
			}
			return batch, true
		}
		line := tr.scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		batch.Sites = append(batch.Sites, parseSite(line))
	}
	return batch, false
}
