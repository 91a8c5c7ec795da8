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
	"github.com/exascience/elcall/fasta"
	"github.com/exascience/elcall/model"
	"github.com/exascience/elcall/vcf"
)

// A Caller turns per-site probability distributions into VCF variant
// records.
type Caller struct {
	// Alignments answers pileup queries for long indel alleles. May
	// be nil; long indels then rely on inference alone.
	Alignments AlignmentSource

	// Reference provides deleted bases beyond the evidence window.
	// May be nil; long deletions then truncate at the window edge.
	Reference *fasta.Reference

	// QualityThreshold splits PASS from LowQual. Negative disables
	// filtration.
	QualityThreshold int32

	// ShowReference emits records for sites called homozygous
	// reference.
	ShowReference bool

	// Debug replaces record output with per-site decode traces.
	Debug bool

	// AlwaysUsePileupForIndels answers every indel allele from the
	// alignment source instead of the evidence window. Requires
	// Alignments.
	AlwaysUsePileupForIndels bool
}

// Skip and trace reasons reported for decoded sites.
const (
	reasonReference        = "Reference"
	reasonNormalOutput     = "Normal output"
	reasonZeroDepth        = "Read Depth is zero"
	reasonNoHeteroInsLen   = "is hetero insertion and # of insertion bases predicted is less than 0"
	reasonNoHeteroDelLen   = "is hetero deletion and # of deletion bases predicted is less than 0"
	reasonNoBasePrediction = "no reference base / alternate base prediction"
)

// CallSite decodes one site. The returned variant is nil when the site
// produces no record; reason then explains why, except for reference
// sites silently skipped outside debug mode. For emitted records the
// reason distinguishes reference calls from variant calls for tracing.
func (c *Caller) CallSite(site *Site, p *model.Probabilities) (*vcf.Variant, string) {
	h := scoreHypotheses(p, site.ReferenceWindow[Center])

	if h.isReference && !c.Debug && !c.ShowReference {
		return nil, ""
	}

	t := &site.Tensor
	depth := t.channelSum(Center, ChannelDelete) + t.channelSum(Center, ChannelReference)
	if depth == 0 {
		return nil, reasonZeroDepth
	}

	var genotype string
	switch {
	case h.isReference:
		genotype = vcf.GenotypeHomoReference
	case h.isHomoSNP || h.isHomoIns || h.isHomoDel:
		genotype = vcf.GenotypeHomoVariant
	case h.isHeteroSNP || h.isHeteroACGTIns || h.isHeteroInsIns || h.isHeteroACGTDel || h.isHeteroDelDel:
		genotype = vcf.GenotypeHeteroVariant
	case h.isHeteroInsDel:
		genotype = vcf.GenotypeHeteroVariantMulti
	}

	var referenceBase string
	var alternateBases []string
	var lengthGuess int

	switch {
	case h.isReference:
		referenceBase = site.ReferenceWindow[Center : Center+1]
		alternateBases = []string{referenceBase}

	case h.isHomoSNP:
		base1, base2 := homoSNPBases(p)
		referenceBase = site.ReferenceWindow[Center : Center+1]
		alternate := string(base1)
		if alternate == referenceBase {
			alternate = string(base2)
		}
		alternateBases = []string{alternate}

	case h.isHeteroSNP:
		base1, base2 := heteroSNPBases(p)
		referenceBase = site.ReferenceWindow[Center : Center+1]
		if string(base1) != referenceBase && string(base2) != referenceBase {
			alternateBases = []string{string(base1), string(base2)}
			genotype = vcf.GenotypeHeteroVariantMulti
		} else if string(base1) != referenceBase {
			alternateBases = []string{string(base1)}
		} else {
			alternateBases = []string{string(base2)}
		}

	case h.isInsertion():
		var length int
		switch {
		case h.isHomoIns:
			length = h.homoInsLength
		case h.isHeteroACGTIns:
			length = h.heteroACGTInsLength
		case h.isHeteroInsIns:
			length = h.heteroInsInsLength2
		}
		if (h.isHeteroACGTIns || h.isHeteroInsIns) && length <= 0 {
			return nil, reasonNoHeteroInsLen
		}

		insertionBases, insertionLength, inferred := c.recoverInsertion(site, length)
		var alternate string
		if insertionLength > 0 {
			referenceBase = site.ReferenceWindow[Center : Center+1]
			alternate = referenceBase + insertionBases
			alternateBases = []string{alternate}
		}
		if inferred {
			lengthGuess = insertionLength
		}

		if h.isHeteroACGTIns && insertionLength > 0 {
			substituted := string(heteroInsertBase(p))
			if substituted != referenceBase {
				alternateBases = []string{substituted, alternate}
				genotype = vcf.GenotypeHeteroVariantMulti
			}
		} else if h.isHeteroInsIns && insertionLength > 0 {
			otherBases := ""
			if c.Alignments != nil {
				otherBases = c.Alignments.InsertionBases(
					site.Chrom, site.Pos,
					int32(h.heteroInsInsLength1), adaptiveMaxLength(h.heteroInsInsLength1),
					insertionBases)
			}
			if otherBases == "" {
				otherBases = insertionBases[:minInt(h.heteroInsInsLength1, len(insertionBases))]
			}
			alternate1 := referenceBase + otherBases
			if alternate1 != alternate {
				alternateBases = []string{alternate1, alternate}
				genotype = vcf.GenotypeHeteroVariantMulti
			}
		}

	case h.isDeletion():
		var length int
		switch {
		case h.isHomoDel:
			length = h.homoDelLength
		case h.isHeteroACGTDel:
			length = h.heteroACGTDelLength
		case h.isHeteroDelDel:
			length = h.heteroDelDelLength2
		}
		if (h.isHeteroACGTDel || h.isHeteroDelDel) && length <= 0 {
			return nil, reasonNoHeteroDelLen
		}

		deletionBases, deletionLength, inferred := c.recoverDeletion(site, length)
		var alternate string
		if deletionLength > 0 {
			referenceBase = site.ReferenceWindow[Center:Center+1] + deletionBases
			alternate = referenceBase[:1]
			alternateBases = []string{alternate}
		}
		if inferred {
			lengthGuess = deletionLength
		}

		if h.isHeteroACGTDel && deletionLength > 0 {
			substituted := string(heteroDeleteBase(p))
			if substituted != referenceBase[:1] {
				alternateBases = []string{alternate, substituted + referenceBase[1:]}
				genotype = vcf.GenotypeHeteroVariantMulti
			}
		} else if h.isHeteroDelDel && deletionLength > 0 {
			shorter := h.heteroDelDelLength1 + 1
			if shorter > len(referenceBase) {
				shorter = len(referenceBase)
			}
			alternate2 := referenceBase[:1] + referenceBase[shorter:]
			if alternate2 != alternate && referenceBase != alternate && referenceBase != alternate2 {
				alternateBases = []string{alternate, alternate2}
				genotype = vcf.GenotypeHeteroVariantMulti
			}
		}

	case h.isHeteroInsDel:
		insertionBases, insertionLength, _ := c.recoverInsertion(site, h.heteroInsDelInsLen)
		deletionBases, deletionLength, _ := c.recoverDeletion(site, h.heteroInsDelDelLen)
		if insertionLength > 0 && deletionLength > 0 {
			referenceBase = site.ReferenceWindow[Center:Center+1] + deletionBases
			alternateBases = []string{
				referenceBase[:1],
				referenceBase[:1] + insertionBases + referenceBase[1:],
			}
		}
	}

	if referenceBase == "" || len(alternateBases) == 0 {
		return nil, reasonNoBasePrediction
	}

	frequency := c.alleleFrequency(site, h, referenceBase, alternateBases, depth)

	quality := qualityScore(referenceBase, alternateBases, genotype, p)

	variant := &vcf.Variant{
		Chrom:           site.Chrom,
		Pos:             site.Pos,
		Ref:             referenceBase,
		Alt:             alternateBases,
		Qual:            quality,
		Filter:          filtrationValue(c.QualityThreshold, quality),
		Genotype:        genotype,
		Depth:           int32(depth),
		AlleleFrequency: frequency,
	}
	if 0 < lengthGuess && lengthGuess < FlankingBases {
		variant.LengthGuess = int32(lengthGuess)
	}

	reason := reasonNormalOutput
	if h.isReference {
		reason = reasonReference
	}
	return variant, reason
}

// alleleFrequency estimates the fraction of reads supporting the
// called alleles at the site. The supporting-read formula differs per
// variant class; indel support is read one position right of center.
func (c *Caller) alleleFrequency(site *Site, h *siteHypotheses, referenceBase string, alternateBases []string, depth float64) float64 {
	t := &site.Tensor
	var supportingReads float64
	switch {
	case h.isReference:
		if base := baseToNum(referenceBase[0]); base >= 0 {
			supportingReads = t[Center][base][ChannelReference] + t[Center][base+4][ChannelReference]
		}
	case h.isSNP():
		for _, alternate := range alternateBases {
			for i := 0; i < len(alternate); i++ {
				base := baseToNum(alternate[i])
				if base < 0 {
					continue
				}
				supportingReads += t[Center][base][ChannelSNP] + t[Center][base+4][ChannelSNP] +
					t[Center][base][ChannelReference] + t[Center][base+4][ChannelReference]
			}
		}
	case h.isInsertion():
		supportingReads = t.channelSum(Center+1, ChannelInsert) - t.channelSum(Center+1, ChannelSNP)
	case h.isDeletion():
		supportingReads = t.channelSum(Center+1, ChannelDelete)
	case h.isHeteroInsDel:
		supportingReads = t.channelSum(Center+1, ChannelInsert) +
			t.channelSum(Center+1, ChannelDelete) -
			t.channelSum(Center+1, ChannelSNP)
	}
	frequency := supportingReads / depth
	if frequency > 1 {
		frequency = 1
	}
	if frequency < 0 {
		frequency = 0
	}
	return frequency
}

func minInt(x, y int) int {
	if x < y {
		return x
	}
	return y
}
