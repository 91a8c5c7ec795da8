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
	"github.com/exascience/elcall/vcf"
)

// makeWindow builds an evidence window with a G left flank and a given
// center base and right flank, padded with T.
func makeWindow(center byte, right string) string {
	if len(right) < FlankingBases {
		right += strings.Repeat("T", FlankingBases-len(right))
	}
	return strings.Repeat("G", FlankingBases) + string(center) + right
}

func makeTestSite(window string) *Site {
	site := &Site{Chrom: "chr20", Pos: 10000, ReferenceWindow: window}
	// 10 reads covering the center base
	site.Tensor[Center][0][ChannelReference] = 10
	return site
}

func TestCallSiteHeteroSNP(t *testing.T) {
	site := makeTestSite(makeWindow('A', ""))
	site.Tensor[Center][1][ChannelSNP] = 4 // C on the forward strand

	p := new(model.Probabilities)
	p.GT21[model.AC] = 0.9
	p.Genotype[model.HeteroVariant] = 0.9
	p.Length1[model.LengthIndexOffset] = 1
	p.Length2[model.LengthIndexOffset] = 1

	c := &Caller{QualityThreshold: -1}
	variant, reason := c.CallSite(site, p)
	if variant == nil {
		t.Fatal("no variant called, reason:", reason)
	}
	if variant.Ref != "A" || len(variant.Alt) != 1 || variant.Alt[0] != "C" {
		t.Errorf("unexpected alleles %v -> %v", variant.Ref, variant.Alt)
	}
	if variant.Genotype != vcf.GenotypeHeteroVariant {
		t.Errorf("unexpected genotype %v", variant.Genotype)
	}
	if variant.Depth != 10 {
		t.Errorf("unexpected depth %v", variant.Depth)
	}
	if variant.AlleleFrequency != 0.4 {
		t.Errorf("unexpected allele frequency %v", variant.AlleleFrequency)
	}
	if variant.Qual <= 0 {
		t.Errorf("unexpected quality %v", variant.Qual)
	}
	if variant.Filter != vcf.FilterNone {
		t.Errorf("unexpected filter %v", variant.Filter)
	}
}

func TestCallSiteHeteroSNPMultiAllelic(t *testing.T) {
	// neither best base matches the reference
	site := makeTestSite(makeWindow('G', ""))
	site.Tensor[Center][2][ChannelReference] = 10
	site.Tensor[Center][0][ChannelReference] = 0
	site.Tensor[Center][0][ChannelSNP] = 3
	site.Tensor[Center][1][ChannelSNP] = 3

	p := new(model.Probabilities)
	p.GT21[model.AC] = 0.9
	p.Genotype[model.HeteroVariant] = 0.9
	p.Length1[model.LengthIndexOffset] = 1
	p.Length2[model.LengthIndexOffset] = 1

	c := &Caller{QualityThreshold: -1}
	variant, reason := c.CallSite(site, p)
	if variant == nil {
		t.Fatal("no variant called, reason:", reason)
	}
	if len(variant.Alt) != 2 || variant.Alt[0] != "A" || variant.Alt[1] != "C" {
		t.Errorf("unexpected alternates %v", variant.Alt)
	}
	if variant.Genotype != vcf.GenotypeHeteroVariantMulti {
		t.Errorf("unexpected genotype %v", variant.Genotype)
	}
}

func TestCallSiteHomoInsertionFromTensor(t *testing.T) {
	site := makeTestSite(makeWindow('A', ""))
	site.Tensor[Center+1][1][ChannelInsert] = 5 // C
	site.Tensor[Center+2][2][ChannelInsert] = 5 // G
	site.Tensor[Center+3][3][ChannelInsert] = 5 // T

	p := new(model.Probabilities)
	p.GT21[model.InsIns] = 0.9
	p.Genotype[model.HomoVariant] = 0.9
	p.Length1[model.LengthIndexOffset+3] = 0.8
	p.Length2[model.LengthIndexOffset+3] = 0.8
	p.Length1[model.LengthIndexOffset] = 0.1
	p.Length2[model.LengthIndexOffset] = 0.1

	c := &Caller{QualityThreshold: -1}
	variant, reason := c.CallSite(site, p)
	if variant == nil {
		t.Fatal("no variant called, reason:", reason)
	}
	if variant.Ref != "A" || len(variant.Alt) != 1 || variant.Alt[0] != "ACGT" {
		t.Errorf("unexpected alleles %v -> %v", variant.Ref, variant.Alt)
	}
	if variant.Genotype != vcf.GenotypeHomoVariant {
		t.Errorf("unexpected genotype %v", variant.Genotype)
	}
	if variant.LengthGuess != 0 {
		t.Errorf("unexpected length guess %v", variant.LengthGuess)
	}
	if variant.AlleleFrequency != 0.5 {
		t.Errorf("unexpected allele frequency %v", variant.AlleleFrequency)
	}
}

func TestCallSiteHomoDeletionFromWindow(t *testing.T) {
	site := makeTestSite(makeWindow('A', "CG"))
	site.Tensor[Center+1][0][ChannelDelete] = 3

	p := new(model.Probabilities)
	p.GT21[model.DelDel] = 0.9
	p.Genotype[model.HomoVariant] = 0.9
	p.Length1[model.LengthIndexOffset-2] = 0.8
	p.Length2[model.LengthIndexOffset-2] = 0.8

	c := &Caller{QualityThreshold: -1}
	variant, reason := c.CallSite(site, p)
	if variant == nil {
		t.Fatal("no variant called, reason:", reason)
	}
	if variant.Ref != "ACG" || len(variant.Alt) != 1 || variant.Alt[0] != "A" {
		t.Errorf("unexpected alleles %v -> %v", variant.Ref, variant.Alt)
	}
	if variant.AlleleFrequency != 0.3 {
		t.Errorf("unexpected allele frequency %v", variant.AlleleFrequency)
	}
}

func TestCallSiteInferredLongInsertion(t *testing.T) {
	site := makeTestSite(makeWindow('A', ""))
	// insertion support stops before the window edge
	for pos := Center + 1; pos < 2*FlankingBases; pos++ {
		site.Tensor[pos][1][ChannelInsert] = 2
	}
	site.Tensor[2*FlankingBases][0][ChannelReference] = 10

	p := new(model.Probabilities)
	p.GT21[model.AIns] = 0.9
	p.Genotype[model.HeteroVariant] = 0.9
	p.Length1[model.LengthIndexOffset] = 0.9
	p.Length2[model.LengthIndexOffset+model.MaxVariantLength] = 0.9

	c := &Caller{QualityThreshold: -1}
	variant, reason := c.CallSite(site, p)
	if variant == nil {
		t.Fatal("no variant called, reason:", reason)
	}
	wantAlt := "A" + strings.Repeat("C", FlankingBases-1)
	if variant.Ref != "A" || len(variant.Alt) != 1 || variant.Alt[0] != wantAlt {
		t.Errorf("unexpected alleles %v -> %v", variant.Ref, variant.Alt)
	}
	if variant.LengthGuess != FlankingBases-1 {
		t.Errorf("unexpected length guess %v", variant.LengthGuess)
	}
	if variant.Genotype != vcf.GenotypeHeteroVariant {
		t.Errorf("unexpected genotype %v", variant.Genotype)
	}
}

func TestCallSiteZeroDepth(t *testing.T) {
	site := &Site{Chrom: "chr20", Pos: 10000, ReferenceWindow: makeWindow('A', "")}

	p := new(model.Probabilities)
	p.GT21[model.AC] = 0.9
	p.Genotype[model.HeteroVariant] = 0.9
	p.Length1[model.LengthIndexOffset] = 1
	p.Length2[model.LengthIndexOffset] = 1

	c := &Caller{QualityThreshold: -1}
	variant, reason := c.CallSite(site, p)
	if variant != nil || reason != reasonZeroDepth {
		t.Errorf("expected zero depth skip, got %v / %v", variant, reason)
	}
}

func TestCallSiteReferenceHandling(t *testing.T) {
	site := makeTestSite(makeWindow('A', ""))

	p := new(model.Probabilities)
	p.GT21[model.AA] = 0.9
	p.Genotype[model.HomoReference] = 0.9
	p.Length1[model.LengthIndexOffset] = 1
	p.Length2[model.LengthIndexOffset] = 1

	c := &Caller{QualityThreshold: -1}
	if variant, reason := c.CallSite(site, p); variant != nil || reason != "" {
		t.Errorf("expected silent skip, got %v / %v", variant, reason)
	}

	c.ShowReference = true
	variant, reason := c.CallSite(site, p)
	if variant == nil || reason != reasonReference {
		t.Fatalf("expected reference record, got %v / %v", variant, reason)
	}
	if variant.Ref != "A" || variant.Alt[0] != "A" || variant.Genotype != vcf.GenotypeHomoReference {
		t.Errorf("unexpected reference record %v", variant)
	}
	if variant.AlleleFrequency != 1 {
		t.Errorf("unexpected allele frequency %v", variant.AlleleFrequency)
	}
}

func TestCallSiteAlleleFrequencyClamped(t *testing.T) {
	site := makeTestSite(makeWindow('A', ""))
	site.Tensor[Center+1][1][ChannelInsert] = 50 // more insert support than depth

	p := new(model.Probabilities)
	p.GT21[model.InsIns] = 0.9
	p.Genotype[model.HomoVariant] = 0.9
	p.Length1[model.LengthIndexOffset+1] = 0.8
	p.Length2[model.LengthIndexOffset+1] = 0.8

	c := &Caller{QualityThreshold: -1}
	variant, reason := c.CallSite(site, p)
	if variant == nil {
		t.Fatal("no variant called, reason:", reason)
	}
	if variant.AlleleFrequency != 1 {
		t.Errorf("allele frequency not clamped: %v", variant.AlleleFrequency)
	}
}

func TestQualityScore(t *testing.T) {
	p := new(model.Probabilities)
	p.GT21[model.AC] = 0.9
	p.Genotype[model.HeteroVariant] = 0.9

	confident := qualityScore("A", []string{"C"}, "0/1", p)
	if confident <= 0 {
		t.Errorf("unexpected quality %v", confident)
	}

	p.GT21[model.AC] = 0.5
	p.Genotype[model.HeteroVariant] = 0.5
	uncertain := qualityScore("A", []string{"C"}, "0/1", p)
	if uncertain <= 0 || uncertain >= confident {
		t.Errorf("quality %v not below %v", uncertain, confident)
	}

	// multi-allelic genotypes score both alternates against the reference
	p.GT21[model.CG] = 0.9
	p.Genotype[model.HeteroVariant] = 0.9
	if multi := qualityScore("A", []string{"C", "G"}, "1/2", p); multi <= 0 {
		t.Errorf("unexpected multi-allelic quality %v", multi)
	}
}

func TestFiltrationValue(t *testing.T) {
	if v := filtrationValue(-1, 100); v != vcf.FilterNone {
		t.Errorf("unexpected filter %v", v)
	}
	if v := filtrationValue(100, 100); v != vcf.FilterPass {
		t.Errorf("unexpected filter %v", v)
	}
	if v := filtrationValue(100, 99); v != vcf.FilterLowQual {
		t.Errorf("unexpected filter %v", v)
	}
}
