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

// siteHypotheses holds the ten joint variant hypothesis probabilities
// for a site, the length combinations selected while computing them,
// and the winner flags. The flags are derived by comparing against the
// strict maximum, so exactly the hypotheses that attain the maximum
// are set, and the composer consults them in a fixed order.
type siteHypotheses struct {
	reference     float64
	homoSNP       float64
	heteroSNP     float64
	homoIns       float64
	homoDel       float64
	heteroACGTIns float64
	heteroInsIns  float64
	heteroACGTDel float64
	heteroDelDel  float64
	heteroInsDel  float64

	homoInsLength       int
	homoDelLength       int
	heteroACGTInsLength int
	heteroACGTDelLength int
	heteroInsInsLength1 int
	heteroInsInsLength2 int
	heteroDelDelLength1 int
	heteroDelDelLength2 int
	heteroInsDelDelLen  int
	heteroInsDelInsLen  int

	isReference     bool
	isHomoSNP       bool
	isHeteroSNP     bool
	isHomoIns       bool
	isHeteroACGTIns bool
	isHeteroInsIns  bool
	isHomoDel       bool
	isHeteroACGTDel bool
	isHeteroDelDel  bool
	isHeteroInsDel  bool
}

func (h *siteHypotheses) isSNP() bool {
	return h.isHomoSNP || h.isHeteroSNP
}

func (h *siteHypotheses) isInsertion() bool {
	return h.isHomoIns || h.isHeteroACGTIns || h.isHeteroInsIns
}

func (h *siteHypotheses) isDeletion() bool {
	return h.isHomoDel || h.isHeteroACGTDel || h.isHeteroDelDel
}

func max4(a, b, c, d float64) float64 {
	return floats.Max([]float64{a, b, c, d})
}

// scoreHypotheses computes the joint probabilities of the ten variant
// hypotheses for a site and selects the winners. refBase is the window
// center base; a non-ACGT center base gets a zero reference hypothesis.
func scoreHypotheses(p *model.Probabilities, refBase byte) *siteHypotheses {
	h := new(siteHypotheses)

	homoReference := p.Genotype[model.HomoReference]
	homoVariant := p.Genotype[model.HomoVariant]
	heteroVariant := p.Genotype[model.HeteroVariant]
	zeroLength := p.LengthProb1(0) * p.LengthProb2(0)

	var homoInsLength, homoDelLength float64
	h.homoInsLength, homoInsLength = homozygousIndelLength(p, true)
	h.homoDelLength, homoDelLength = homozygousIndelLength(p, false)
	var heteroACGTInsLength, heteroACGTDelLength float64
	h.heteroACGTInsLength, heteroACGTInsLength = heterozygousIndelLength(p, true)
	h.heteroACGTDelLength, heteroACGTDelLength = heterozygousIndelLength(p, false)
	var heteroInsInsLength, heteroDelDelLength, heteroInsDelLength float64
	h.heteroInsInsLength1, h.heteroInsInsLength2, heteroInsInsLength = heterozygousDoubleInsertionLengths(p)
	h.heteroDelDelLength1, h.heteroDelDelLength2, heteroDelDelLength = heterozygousDoubleDeletionLengths(p)
	h.heteroInsDelDelLen, h.heteroInsDelInsLen, heteroInsDelLength = insertionDeletionLengths(p)

	if refGT21, ok := model.GT21FromLabel(string([]byte{refBase, refBase})); ok {
		h.reference = p.GT21[refGT21] * zeroLength * homoReference
	}
	h.homoSNP = max4(
		p.GT21[model.AA], p.GT21[model.CC], p.GT21[model.GG], p.GT21[model.TT],
	) * zeroLength * homoVariant
	h.heteroSNP = floats.Max([]float64{
		p.GT21[model.AC], p.GT21[model.AG], p.GT21[model.AT],
		p.GT21[model.CG], p.GT21[model.CT], p.GT21[model.GT],
	}) * zeroLength * heteroVariant
	h.homoIns = p.GT21[model.InsIns] * homoInsLength * homoVariant
	h.homoDel = p.GT21[model.DelDel] * homoDelLength * homoVariant
	h.heteroACGTIns = max4(
		p.GT21[model.AIns], p.GT21[model.CIns], p.GT21[model.GIns], p.GT21[model.TIns],
	) * heteroACGTInsLength * heteroVariant
	h.heteroInsIns = p.GT21[model.InsIns] * heteroInsInsLength * heteroVariant
	h.heteroACGTDel = max4(
		p.GT21[model.ADel], p.GT21[model.CDel], p.GT21[model.GDel], p.GT21[model.TDel],
	) * heteroACGTDelLength * heteroVariant
	h.heteroDelDel = p.GT21[model.DelDel] * heteroDelDelLength * heteroVariant
	h.heteroInsDel = p.GT21[model.InsDel] * heteroInsDelLength * heteroVariant

	maximum := floats.Max([]float64{
		h.reference,
		h.homoSNP,
		h.heteroSNP,
		h.homoIns,
		h.homoDel,
		h.heteroACGTIns,
		h.heteroInsIns,
		h.heteroACGTDel,
		h.heteroDelDel,
		h.heteroInsDel,
	})

	h.isReference = maximum == h.reference
	h.isHomoSNP = maximum == h.homoSNP
	h.isHeteroSNP = maximum == h.heteroSNP
	h.isHomoIns = maximum == h.homoIns
	h.isHeteroACGTIns = maximum == h.heteroACGTIns
	h.isHeteroInsIns = maximum == h.heteroInsIns
	h.isHomoDel = maximum == h.homoDel
	h.isHeteroACGTDel = maximum == h.heteroACGTDel
	h.isHeteroDelDel = maximum == h.heteroDelDel
	h.isHeteroInsDel = maximum == h.heteroInsDel

	return h
}

// gt21ArgMax picks the most probable class from a candidate list,
// first on ties.
func gt21ArgMax(p *model.Probabilities, candidates []model.GT21) model.GT21 {
	probs := make([]float64, len(candidates))
	for i, gt := range candidates {
		probs[i] = p.GT21[gt]
	}
	return candidates[floats.MaxIdx(probs)]
}

// homoSNPBases returns the base pair of the most probable homozygous
// substitution class.
func homoSNPBases(p *model.Probabilities) (byte, byte) {
	label := gt21ArgMax(p, []model.GT21{model.AA, model.CC, model.GG, model.TT}).Label()
	return label[0], label[1]
}

// heteroSNPBases returns the base pair of the most probable
// heterozygous substitution class.
func heteroSNPBases(p *model.Probabilities) (byte, byte) {
	label := gt21ArgMax(p, []model.GT21{
		model.AC, model.AG, model.AT, model.CG, model.CT, model.GT,
	}).Label()
	return label[0], label[1]
}

// heteroInsertBase returns the substituted base of the most probable
// base+insertion class.
func heteroInsertBase(p *model.Probabilities) byte {
	return gt21ArgMax(p, []model.GT21{model.AIns, model.CIns, model.GIns, model.TIns}).Label()[0]
}

// heteroDeleteBase returns the substituted base of the most probable
// base+deletion class.
func heteroDeleteBase(p *model.Probabilities) byte {
	return gt21ArgMax(p, []model.GT21{model.ADel, model.CDel, model.GDel, model.TDel}).Label()[0]
}
