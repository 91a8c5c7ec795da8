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

import "github.com/exascience/elcall/model"

// The length resolvers search the two signed-length distributions for
// the combination with the highest joint probability under a given
// zygosity hypothesis. Comparisons are strict, so on exact probability
// ties the first combination in iteration order wins.

// homozygousIndelLength scans the diagonal where both alleles carry
// the same indel length. positive is true for insertions.
func homozygousIndelLength(p *model.Probabilities, positive bool) (length int, prob float64) {
	sign := -1
	if positive {
		sign = 1
	}
	for i := 1; i <= model.MaxVariantLength; i++ {
		temp := p.LengthProb1(sign*i) * p.LengthProb2(sign*i)
		if temp > prob {
			length = i
			prob = temp
		}
	}
	return length, prob
}

// heterozygousIndelLength scans combinations where one allele carries
// no length change, trying both allele orderings for each length.
func heterozygousIndelLength(p *model.Probabilities, positive bool) (length int, prob float64) {
	sign := -1
	if positive {
		sign = 1
	}
	for i := 1; i <= model.MaxVariantLength; i++ {
		temp := p.LengthProb1(0) * p.LengthProb2(sign*i)
		if temp > prob {
			length = i
			prob = temp
		}
		temp = p.LengthProb1(sign*i) * p.LengthProb2(0)
		if temp > prob {
			length = i
			prob = temp
		}
	}
	return length, prob
}

// heterozygousDoubleInsertionLengths scans all insertion length pairs.
// Equal lengths are allowed: two distinct insertions can have the same
// number of bases. Returns length1 <= length2.
func heterozygousDoubleInsertionLengths(p *model.Probabilities) (length1, length2 int, prob float64) {
	for i := 1; i <= model.MaxVariantLength; i++ {
		for j := 1; j <= model.MaxVariantLength; j++ {
			temp := p.LengthProb1(i) * p.LengthProb2(j)
			if temp > prob {
				if i <= j {
					length1, length2 = i, j
				} else {
					length1, length2 = j, i
				}
				prob = temp
			}
		}
	}
	return length1, length2, prob
}

// heterozygousDoubleDeletionLengths scans all deletion length pairs.
// Equal lengths are excluded: two deletions of the same length at the
// same site are the same allele. Returns length1 <= length2.
func heterozygousDoubleDeletionLengths(p *model.Probabilities) (length1, length2 int, prob float64) {
	for i := 1; i <= model.MaxVariantLength; i++ {
		for j := 1; j <= model.MaxVariantLength; j++ {
			if i == j {
				continue
			}
			temp := p.LengthProb1(-i) * p.LengthProb2(-j)
			if temp > prob {
				if i <= j {
					length1, length2 = i, j
				} else {
					length1, length2 = j, i
				}
				prob = temp
			}
		}
	}
	return length1, length2, prob
}

// insertionDeletionLengths scans all mixed pairs, trying both allele
// orderings, and returns the deletion length first.
func insertionDeletionLengths(p *model.Probabilities) (deletionLength, insertionLength int, prob float64) {
	deletionLength, insertionLength = -1, -1
	for i := 1; i <= model.MaxVariantLength; i++ {
		for j := 1; j <= model.MaxVariantLength; j++ {
			temp := p.LengthProb1(i) * p.LengthProb2(-j)
			if temp > prob {
				deletionLength, insertionLength = j, i
				prob = temp
			}
			temp = p.LengthProb1(-i) * p.LengthProb2(j)
			if temp > prob {
				deletionLength, insertionLength = i, j
				prob = temp
			}
		}
	}
	return deletionLength, insertionLength, prob
}
