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

package caller

import (
	"gonum.org/v1/gonum/floats"

	"github.com/exascience/elcall/model"
)

// inferredIndelMinimumAlleleFrequency is the minimum fraction of
// reference-channel support an offset needs to extend an inferred
// indel beyond the minimum span.
const inferredIndelMinimumAlleleFrequency = 0.125

// An AlignmentSource answers pileup queries for indel alleles that are
// too long to read from the evidence window. Positions are 1-based.
// Implementations return "" when no signature in the length range is
// observed.
type AlignmentSource interface {
	// InsertionBases returns the most frequently observed inserted
	// base string with length in [minLength, maxLength] at the
	// position, skipping the ignore string when non-empty.
	InsertionBases(contig string, position int32, minLength, maxLength int32, ignore string) string

	// DeletionBases returns the reference bases of the most
	// frequently observed deletion with length in [minLength,
	// maxLength] at the position.
	DeletionBases(contig string, position int32, minLength, maxLength int32) string
}

// adaptiveMaxLength widens the pileup scan range for lengths at the
// inference threshold, where the resolved length is a lower bound
// rather than an exact value.
func adaptiveMaxLength(length int) int32 {
	if length >= model.MinLengthNeedingInference {
		return model.MaxInferredLength
	}
	return int32(length)
}

// insertionBasesFromTensor reads the inserted bases directly from the
// insert channel of the positions right of center, merging strands and
// taking the argmax nucleotide per position.
func insertionBasesFromTensor(t *Tensor, length int) string {
	bases := make([]byte, 0, length)
	for pos := Center + 1; pos <= Center+length; pos++ {
		insert := t.mergedStrands(pos, ChannelInsert)
		bases = append(bases, numToBase[floats.MaxIdx(insert)])
	}
	return string(bases)
}

// inferredInsertionBases walks the positions right of center and
// collects argmax nucleotides while the insert channel keeps enough
// support relative to the reference channel. Offsets within the
// minimum span are always taken.
func inferredInsertionBases(t *Tensor) string {
	var bases []byte
	for pos := Center + 1; pos <= 2*FlankingBases; pos++ {
		insert := t.mergedStrands(pos, ChannelInsert)
		if pos < Center+model.MinLengthNeedingInference ||
			floats.Sum(insert) >= inferredIndelMinimumAlleleFrequency*t.channelSum(pos, ChannelReference) {
			bases = append(bases, numToBase[floats.MaxIdx(insert)])
		} else {
			break
		}
	}
	return string(bases)
}

// inferredDeletionLength walks the positions right of center and
// counts offsets while the delete channel keeps enough support
// relative to the reference channel.
func inferredDeletionLength(t *Tensor) (length int) {
	for pos := Center + 1; pos <= 2*FlankingBases; pos++ {
		if pos < Center+model.MinLengthNeedingInference ||
			t.channelSum(pos, ChannelDelete) >= inferredIndelMinimumAlleleFrequency*t.channelSum(pos, ChannelReference) {
			length++
		} else {
			break
		}
	}
	return length
}

// recoverInsertion resolves the inserted base string for a site given
// the resolved insertion length.
func (c *Caller) recoverInsertion(site *Site, length int) (bases string, observedLength int, inferred bool) {
	if c.AlwaysUsePileupForIndels {
		bases = c.Alignments.InsertionBases(site.Chrom, site.Pos, int32(length), adaptiveMaxLength(length), "")
		return bases, len(bases), false
	}
	if length < model.MinLengthNeedingInference {
		bases = insertionBasesFromTensor(&site.Tensor, length)
		return bases, len(bases), false
	}
	if c.Alignments != nil {
		bases = c.Alignments.InsertionBases(site.Chrom, site.Pos, model.MinLengthNeedingInference, model.MaxInferredLength, "")
		if len(bases) > 0 {
			return bases, len(bases), false
		}
	}
	bases = inferredInsertionBases(&site.Tensor)
	return bases, len(bases), true
}

// deletionBasesFromReference returns the deleted bases, reading the
// reference window for lengths within the flank and the external
// reference beyond it.
func (c *Caller) deletionBasesFromReference(site *Site, length int) string {
	if length <= 0 {
		return ""
	}
	if length <= FlankingBases {
		return site.ReferenceWindow[Center+1 : Center+1+length]
	}
	if c.Reference != nil {
		if bases := c.Reference.Fetch(site.Chrom, int(site.Pos), int(site.Pos)+length); bases != "" {
			return bases
		}
	}
	return site.ReferenceWindow[Center+1:]
}

// recoverDeletion resolves the deleted base string for a site given
// the resolved deletion length.
func (c *Caller) recoverDeletion(site *Site, length int) (bases string, observedLength int, inferred bool) {
	if c.AlwaysUsePileupForIndels {
		bases = c.Alignments.DeletionBases(site.Chrom, site.Pos, int32(length), adaptiveMaxLength(length))
		return bases, len(bases), false
	}
	if length < model.MinLengthNeedingInference {
		bases = c.deletionBasesFromReference(site, length)
		return bases, len(bases), false
	}
	if c.Alignments != nil {
		bases = c.Alignments.DeletionBases(site.Chrom, site.Pos, model.MinLengthNeedingInference, model.MaxInferredLength)
		if len(bases) >= FlankingBases {
			return bases, len(bases), false
		}
	}
	length = inferredDeletionLength(&site.Tensor)
	bases = c.deletionBasesFromReference(site, length)
	return bases, len(bases), true
}
