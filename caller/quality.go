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
	"math"

	"github.com/exascience/elcall/model"
	"github.com/exascience/elcall/vcf"
)

// qualityScore scores the confidence of a final call by re-deriving
// the base-change and genotype classes from the emitted reference and
// alternate strings and folding their probabilities into a Phred-like
// scale. Unresolvable genotypes score 0.
func qualityScore(referenceBase string, alternateBases []string, genotype string, p *model.Probabilities) int32 {
	genotype1 := int(genotype[0] - '0')
	genotype2 := int(genotype[2] - '0')
	if genotype1 > genotype2 {
		genotype1, genotype2 = genotype2, genotype1
	}

	alleles := alternateBases
	if len(alleles) == 1 {
		first := alleles[0]
		if genotype1 == 0 || genotype2 == 0 {
			first = referenceBase
		}
		alleles = []string{first, alleles[0]}
	}
	label := model.MixPartialLabels(
		model.PartialLabel(referenceBase, alleles[0]),
		model.PartialLabel(referenceBase, alleles[1]),
	)
	gt21, ok := model.GT21FromLabel(label)
	if !ok {
		return 0
	}

	isHomoReference := genotype1 == 0 && genotype2 == 0
	isHomoVariant := !isHomoReference && genotype1 == genotype2
	var genotypeClass model.GenotypeClass
	switch {
	case isHomoReference:
		genotypeClass = model.HomoReference
	case isHomoVariant:
		genotypeClass = model.HomoVariant
	default:
		genotypeClass = model.HeteroVariant
	}

	jointProbability := p.GT21[gt21] * p.Genotype[genotypeClass]
	t := (-10*math.Log10E)*math.Log(((1.0-jointProbability)+1e-300)/(jointProbability+1e-300)) + 33
	return int32(math.Round(t * t))
}

// filtrationValue maps a quality score to the FILTER column given the
// configured threshold; a negative threshold disables filtration.
func filtrationValue(qualityThreshold, qualityScore int32) string {
	if qualityThreshold < 0 {
		return vcf.FilterNone
	}
	if qualityScore >= qualityThreshold {
		return vcf.FilterPass
	}
	return vcf.FilterLowQual
}
