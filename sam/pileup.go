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

package sam

import (
	"github.com/willf/bitset"

	"github.com/exascience/elcall/fasta"
)

const (
	// Bin width of the per-contig interval index (4096 bases).
	pileupBinBits = 12

	// Reads per pileup column beyond this are ignored.
	maxPileupDepth = 250
)

type contigAlignments struct {
	alns []*Alignment
	bins []*bitset.BitSet
}

// A PileupSource answers indel-signature queries over a set of
// alignments, looking up deleted bases in a reference when available.
type PileupSource struct {
	ref     *fasta.Reference
	contigs map[string]*contigAlignments
}

// NewPileupSource indexes the alignments of a SAM file for pileup
// queries. The reference may be nil, in which case deletion queries
// return no evidence.
func NewPileupSource(filename string, ref *fasta.Reference) (*PileupSource, error) {
	alns, err := ReadAlignments(filename)
	if err != nil {
		return nil, err
	}
	ps := &PileupSource{
		ref:     ref,
		contigs: make(map[string]*contigAlignments),
	}
	for _, aln := range alns {
		ca := ps.contigs[aln.RNAME]
		if ca == nil {
			ca = new(contigAlignments)
			ps.contigs[aln.RNAME] = ca
		}
		ca.alns = append(ca.alns, aln)
	}
	for _, ca := range ps.contigs {
		for i, aln := range ca.alns {
			firstBin := uint(aln.POS) >> pileupBinBits
			lastBin := uint(aln.end()) >> pileupBinBits
			for len(ca.bins) <= int(lastBin) {
				ca.bins = append(ca.bins, bitset.New(uint(len(ca.alns))))
			}
			for b := firstBin; b <= lastBin; b++ {
				ca.bins[b].Set(uint(i))
			}
		}
	}
	return ps, nil
}

// forEachOverlapping calls f for each alignment whose reference span
// covers the 1-based position, in position order, up to the depth cap.
func (ps *PileupSource) forEachOverlapping(contig string, position int32, f func(aln *Alignment)) {
	if ps == nil || position <= 0 {
		return
	}
	ca := ps.contigs[contig]
	if ca == nil {
		return
	}
	bin := uint(position) >> pileupBinBits
	if int(bin) >= len(ca.bins) {
		return
	}
	depth := 0
	for i, ok := ca.bins[bin].NextSet(0); ok; i, ok = ca.bins[bin].NextSet(i + 1) {
		aln := ca.alns[i]
		if aln.POS <= position && position < aln.end() {
			f(aln)
			if depth++; depth >= maxPileupDepth {
				return
			}
		}
	}
}

// insertionAt returns the bases inserted immediately after the read
// base aligned to the 1-based reference position, or "".
func insertionAt(aln *Alignment, position int32) string {
	refLoc := aln.POS
	seqIdx := int32(0)
	for i, op := range aln.CIGAR {
		switch op.Operation {
		case 'M', '=', 'X':
			if position >= refLoc && position < refLoc+op.Length {
				if position == refLoc+op.Length-1 && i+1 < len(aln.CIGAR) && aln.CIGAR[i+1].Operation == 'I' {
					start := seqIdx + (position - refLoc) + 1
					end := start + aln.CIGAR[i+1].Length
					if int(end) <= len(aln.SEQ) {
						return aln.SEQ[start:end]
					}
				}
				return ""
			}
			refLoc += op.Length
			seqIdx += op.Length
		case 'I', 'S':
			seqIdx += op.Length
		case 'D', 'N':
			if position >= refLoc && position < refLoc+op.Length {
				return ""
			}
			refLoc += op.Length
		}
	}
	return ""
}

// deletionAt returns the number of reference bases deleted immediately
// after the read base aligned to the 1-based reference position, or 0.
func deletionAt(aln *Alignment, position int32) int32 {
	refLoc := aln.POS
	for i, op := range aln.CIGAR {
		switch op.Operation {
		case 'M', '=', 'X':
			if position >= refLoc && position < refLoc+op.Length {
				if position == refLoc+op.Length-1 && i+1 < len(aln.CIGAR) && aln.CIGAR[i+1].Operation == 'D' {
					return aln.CIGAR[i+1].Length
				}
				return 0
			}
			refLoc += op.Length
		case 'D', 'N':
			if position >= refLoc && position < refLoc+op.Length {
				return 0
			}
			refLoc += op.Length
		}
	}
	return 0
}

// indelCounts tallies observed indel allele strings, remembering the
// order of first observation so that ties resolve deterministically.
type indelCounts struct {
	counts map[string]int
	order  []string
}

func (c *indelCounts) add(allele string) {
	if c.counts == nil {
		c.counts = make(map[string]int)
	}
	if _, seen := c.counts[allele]; !seen {
		c.order = append(c.order, allele)
	}
	c.counts[allele]++
}

// best returns the most frequent allele; ties keep the earliest
// observed one.
func (c *indelCounts) best() string {
	best := ""
	bestCount := 0
	for _, allele := range c.order {
		if count := c.counts[allele]; count > bestCount {
			best = allele
			bestCount = count
		}
	}
	return best
}

// InsertionBases returns the most frequently observed insertion allele
// at the 1-based position whose length falls in [minLength, maxLength],
// skipping the ignore string. It returns "" when no read carries such
// an insertion.
func (ps *PileupSource) InsertionBases(contig string, position int32, minLength, maxLength int32, ignore string) string {
	var counts indelCounts
	ps.forEachOverlapping(contig, position, func(aln *Alignment) {
		bases := insertionAt(aln, position)
		if bases == "" {
			return
		}
		if length := int32(len(bases)); length < minLength || length > maxLength {
			return
		}
		if bases == ignore {
			return
		}
		counts.add(bases)
	})
	return counts.best()
}

// DeletionBases returns the reference bases of the most frequently
// observed deletion at the 1-based position whose length falls in
// [minLength, maxLength]. It returns "" when no read carries such a
// deletion or when no reference is available.
func (ps *PileupSource) DeletionBases(contig string, position int32, minLength, maxLength int32) string {
	if ps == nil || ps.ref == nil {
		return ""
	}
	var counts indelCounts
	ps.forEachOverlapping(contig, position, func(aln *Alignment) {
		length := deletionAt(aln, position)
		if length < minLength || length > maxLength || length == 0 {
			return
		}
		// Deleted bases occupy the 0-based range [position, position+length).
		bases := ps.ref.Fetch(contig, int(position), int(position+length))
		if bases == "" {
			return
		}
		counts.add(bases)
	})
	return counts.best()
}
