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

// Package model defines the output classes of the genotyping network
// and the classifier interface used by the calling pipeline.
package model

// GT21 enumerates the 21 base-change classes predicted by the network.
// The order matches the network's output layer and must not change.
type GT21 int

// The 21 base-change classes.
const (
	AA GT21 = iota
	AC
	AG
	AT
	CC
	CG
	CT
	GG
	GT
	TT
	DelDel
	ADel
	CDel
	GDel
	TDel
	InsIns
	AIns
	CIns
	GIns
	TIns
	InsDel

	// GT21Size is the number of base-change classes.
	GT21Size = 21
)

var gt21Labels = [GT21Size]string{
	"AA", "AC", "AG", "AT", "CC", "CG", "CT", "GG", "GT", "TT",
	"DelDel", "ADel", "CDel", "GDel", "TDel",
	"InsIns", "AIns", "CIns", "GIns", "TIns",
	"InsDel",
}

var gt21FromLabel = make(map[string]GT21, GT21Size)

func init() {
	for i, label := range gt21Labels {
		gt21FromLabel[label] = GT21(i)
	}
}

// Label returns the class label, e.g. "AC" or "InsDel".
func (gt GT21) Label() string {
	return gt21Labels[gt]
}

// GT21FromLabel looks up a base-change class by label. It returns
// InsDel, false for unknown labels.
func GT21FromLabel(label string) (GT21, bool) {
	gt, ok := gt21FromLabel[label]
	if !ok {
		return InsDel, false
	}
	return gt, true
}

// GT21FromBases returns the base-change class for a pair of bases,
// normalizing the pair order.
func GT21FromBases(base1, base2 byte) GT21 {
	if base1 > base2 {
		base1, base2 = base2, base1
	}
	gt, _ := GT21FromLabel(string([]byte{base1, base2}))
	return gt
}

// PartialLabel derives one allele's contribution to a base-change
// label from the final reference/alternate strings: "Ins", "Del", or
// the substituted base.
func PartialLabel(ref, alt string) string {
	if len(ref) > len(alt) {
		return "Del"
	}
	if len(ref) < len(alt) {
		return "Ins"
	}
	return alt[:1]
}

// MixPartialLabels combines two partial labels into a GT21 label.
func MixPartialLabels(label1, label2 string) string {
	if len(label1) == 1 && len(label2) == 1 {
		if label1 <= label2 {
			return label1 + label2
		}
		return label2 + label1
	}
	if len(label1) > 1 && len(label2) == 1 {
		label1, label2 = label2, label1
	}
	if len(label1) == 1 && len(label2) > 1 {
		return label1 + label2
	}
	if label1 == label2 {
		return label1 + label2
	}
	return "InsDel"
}

// GenotypeClass enumerates the coarse genotype classes. The first
// three match the network's genotype output; the multi-allelic class
// shares the heterozygous probability.
type GenotypeClass int

// The genotype classes.
const (
	HomoReference GenotypeClass = iota
	HomoVariant
	HeteroVariant
	HeteroVariantMulti

	// GenotypeSize is the number of genotype classes predicted by
	// the network.
	GenotypeSize = 3
)

// String returns the VCF genotype string for the class.
func (g GenotypeClass) String() string {
	switch g {
	case HomoReference:
		return "0/0"
	case HomoVariant:
		return "1/1"
	case HeteroVariant:
		return "0/1"
	default:
		return "1/2"
	}
}

// Variant-length model constants.
const (
	// MaxVariantLength is the largest indel length the network
	// predicts directly; the two signed length distributions are
	// indexed over [-MaxVariantLength, +MaxVariantLength].
	MaxVariantLength = 16

	// LengthIndexOffset maps a signed length to a vector index.
	LengthIndexOffset = MaxVariantLength

	// LengthClasses is the size of each length distribution.
	LengthClasses = 2*MaxVariantLength + 1

	// MinLengthNeedingInference is the smallest resolved length
	// whose allele bases cannot be read from the evidence window.
	MinLengthNeedingInference = MaxVariantLength

	// MaxInferredLength caps pileup scans for long indels.
	MaxInferredLength = 50
)

// Probabilities holds the four per-site probability vectors produced
// by one classifier call. Values are used literally; the engine never
// renormalizes them.
type Probabilities struct {
	GT21     [GT21Size]float64
	Genotype [GenotypeSize]float64
	Length1  [LengthClasses]float64
	Length2  [LengthClasses]float64
}

// LengthProb1 returns the probability of signed length l in the first
// length distribution.
func (p *Probabilities) LengthProb1(l int) float64 {
	return p.Length1[l+LengthIndexOffset]
}

// LengthProb2 returns the probability of signed length l in the
// second length distribution.
func (p *Probabilities) LengthProb2(l int) float64 {
	return p.Length2[l+LengthIndexOffset]
}

// A Classifier computes per-site probability vectors for a batch of
// evidence tensors. Predict returns an owned snapshot: implementations
// must not hand out references to internal result buffers that a
// subsequent Predict call overwrites.
type Classifier interface {
	RestoreParameters(path string) error
	Predict(tensors [][]float64) ([]Probabilities, error)
}
