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
	"strings"
	"testing"

	"github.com/exascience/elcall/model"
)

// fakeAlignments answers every pileup query with fixed alleles and
// records the requested length ranges.
type fakeAlignments struct {
	insertion, deletion  string
	minLength, maxLength int32
}

func (fa *fakeAlignments) InsertionBases(contig string, position int32, minLength, maxLength int32, ignore string) string {
	fa.minLength, fa.maxLength = minLength, maxLength
	if fa.insertion == ignore {
		return ""
	}
	return fa.insertion
}

func (fa *fakeAlignments) DeletionBases(contig string, position int32, minLength, maxLength int32) string {
	fa.minLength, fa.maxLength = minLength, maxLength
	return fa.deletion
}

func TestAdaptiveMaxLength(t *testing.T) {
	if got := adaptiveMaxLength(3); got != 3 {
		t.Errorf("adaptiveMaxLength(3) = %v", got)
	}
	if got := adaptiveMaxLength(model.MinLengthNeedingInference); got != model.MaxInferredLength {
		t.Errorf("adaptiveMaxLength at threshold = %v", got)
	}
}

func TestRecoverInsertionShortFromTensor(t *testing.T) {
	site := makeTestSite(makeWindow('A', ""))
	site.Tensor[Center+1][3][ChannelInsert] = 4 // T
	site.Tensor[Center+2][0][ChannelInsert] = 4 // A

	c := &Caller{}
	bases, length, inferred := c.recoverInsertion(site, 2)
	if bases != "TA" || length != 2 || inferred {
		t.Errorf("unexpected recovery %v/%v/%v", bases, length, inferred)
	}
}

func TestRecoverInsertionLongFromPileup(t *testing.T) {
	site := makeTestSite(makeWindow('A', ""))
	alignments := &fakeAlignments{insertion: strings.Repeat("T", 20)}

	c := &Caller{Alignments: alignments}
	bases, length, inferred := c.recoverInsertion(site, model.MinLengthNeedingInference)
	if bases != alignments.insertion || length != 20 || inferred {
		t.Errorf("unexpected recovery %v/%v/%v", bases, length, inferred)
	}
	if alignments.minLength != model.MinLengthNeedingInference || alignments.maxLength != model.MaxInferredLength {
		t.Errorf("unexpected scan range [%v, %v]", alignments.minLength, alignments.maxLength)
	}
}

func TestRecoverInsertionInferred(t *testing.T) {
	site := makeTestSite(makeWindow('A', ""))
	for pos := Center + 1; pos <= 2*FlankingBases; pos++ {
		site.Tensor[pos][2][ChannelInsert] = 2 // G
	}

	c := &Caller{Alignments: &fakeAlignments{}}
	bases, length, inferred := c.recoverInsertion(site, model.MinLengthNeedingInference)
	if !inferred {
		t.Fatal("expected inferred insertion")
	}
	if bases != strings.Repeat("G", FlankingBases) || length != FlankingBases {
		t.Errorf("unexpected recovery %v/%v", bases, length)
	}
}

func TestRecoverDeletionShortFromWindow(t *testing.T) {
	site := makeTestSite(makeWindow('A', "CGT"))

	c := &Caller{}
	bases, length, inferred := c.recoverDeletion(site, 3)
	if bases != "CGT" || length != 3 || inferred {
		t.Errorf("unexpected recovery %v/%v/%v", bases, length, inferred)
	}
}

func TestRecoverDeletionLongFromPileup(t *testing.T) {
	site := makeTestSite(makeWindow('A', ""))
	alignments := &fakeAlignments{deletion: strings.Repeat("C", 18)}

	c := &Caller{Alignments: alignments}
	bases, length, inferred := c.recoverDeletion(site, model.MinLengthNeedingInference)
	if bases != alignments.deletion || length != 18 || inferred {
		t.Errorf("unexpected recovery %v/%v/%v", bases, length, inferred)
	}
}

func TestRecoverDeletionInferred(t *testing.T) {
	site := makeTestSite(makeWindow('A', strings.Repeat("C", FlankingBases)))
	for pos := Center + 1; pos <= 2*FlankingBases; pos++ {
		site.Tensor[pos][0][ChannelDelete] = 2
	}

	c := &Caller{}
	bases, length, inferred := c.recoverDeletion(site, model.MinLengthNeedingInference)
	if !inferred {
		t.Fatal("expected inferred deletion")
	}
	if length != FlankingBases || bases != strings.Repeat("C", FlankingBases) {
		t.Errorf("unexpected recovery %v/%v", bases, length)
	}
}

func TestRecoverIndelsAlwaysFromPileup(t *testing.T) {
	site := makeTestSite(makeWindow('A', "CG"))
	alignments := &fakeAlignments{insertion: "TT", deletion: "CG"}

	c := &Caller{Alignments: alignments, AlwaysUsePileupForIndels: true}
	if bases, _, inferred := c.recoverInsertion(site, 2); bases != "TT" || inferred {
		t.Errorf("unexpected insertion recovery %v/%v", bases, inferred)
	}
	if alignments.minLength != 2 || alignments.maxLength != 2 {
		t.Errorf("unexpected scan range [%v, %v]", alignments.minLength, alignments.maxLength)
	}
	if bases, _, inferred := c.recoverDeletion(site, 2); bases != "CG" || inferred {
		t.Errorf("unexpected deletion recovery %v/%v", bases, inferred)
	}
}
