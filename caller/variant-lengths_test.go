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
	"math/rand"
	"testing"

	"github.com/exascience/elcall/model"
)

func randomLengthProbabilities(r *rand.Rand) *model.Probabilities {
	p := new(model.Probabilities)
	var sum1, sum2 float64
	for i := 0; i < model.LengthClasses; i++ {
		p.Length1[i] = r.Float64()
		p.Length2[i] = r.Float64()
		sum1 += p.Length1[i]
		sum2 += p.Length2[i]
	}
	for i := 0; i < model.LengthClasses; i++ {
		p.Length1[i] /= sum1
		p.Length2[i] /= sum2
	}
	return p
}

func TestHomozygousIndelLength(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	for trial := 0; trial < 1000; trial++ {
		p := randomLengthProbabilities(r)
		for _, positive := range []bool{true, false} {
			sign := -1
			if positive {
				sign = 1
			}
			wantLength, wantProb := 0, 0.0
			for i := 1; i <= model.MaxVariantLength; i++ {
				prob := p.LengthProb1(sign*i) * p.LengthProb2(sign*i)
				if prob > wantProb {
					wantLength, wantProb = i, prob
				}
			}
			length, prob := homozygousIndelLength(p, positive)
			if length != wantLength || prob != wantProb {
				t.Fatalf("homozygousIndelLength(positive=%v) = (%v, %v), want (%v, %v)",
					positive, length, prob, wantLength, wantProb)
			}
		}
	}
}

func TestHeterozygousIndelLength(t *testing.T) {
	r := rand.New(rand.NewSource(43))
	for trial := 0; trial < 1000; trial++ {
		p := randomLengthProbabilities(r)
		for _, positive := range []bool{true, false} {
			sign := -1
			if positive {
				sign = 1
			}
			wantLength, wantProb := 0, 0.0
			for i := 1; i <= model.MaxVariantLength; i++ {
				for _, prob := range []float64{
					p.LengthProb1(0) * p.LengthProb2(sign*i),
					p.LengthProb1(sign*i) * p.LengthProb2(0),
				} {
					if prob > wantProb {
						wantLength, wantProb = i, prob
					}
				}
			}
			length, prob := heterozygousIndelLength(p, positive)
			if length != wantLength || prob != wantProb {
				t.Fatalf("heterozygousIndelLength(positive=%v) = (%v, %v), want (%v, %v)",
					positive, length, prob, wantLength, wantProb)
			}
		}
	}
}

func TestHeterozygousDoubleLengths(t *testing.T) {
	r := rand.New(rand.NewSource(44))
	for trial := 0; trial < 1000; trial++ {
		p := randomLengthProbabilities(r)

		length1, length2, prob := heterozygousDoubleInsertionLengths(p)
		if length1 > length2 {
			t.Fatal("double insertion lengths not ordered")
		}
		wantProb := 0.0
		for i := 1; i <= model.MaxVariantLength; i++ {
			for j := 1; j <= model.MaxVariantLength; j++ {
				if q := p.LengthProb1(i) * p.LengthProb2(j); q > wantProb {
					wantProb = q
				}
			}
		}
		if prob != wantProb {
			t.Fatalf("double insertion probability %v, want %v", prob, wantProb)
		}
		if prob != p.LengthProb1(length1)*p.LengthProb2(length2) &&
			prob != p.LengthProb1(length2)*p.LengthProb2(length1) {
			t.Fatal("double insertion lengths inconsistent with probability")
		}

		length1, length2, prob = heterozygousDoubleDeletionLengths(p)
		if length1 > length2 {
			t.Fatal("double deletion lengths not ordered")
		}
		if length1 == length2 && length1 != 0 {
			t.Fatal("double deletion selected i == j")
		}
		wantProb = 0.0
		for i := 1; i <= model.MaxVariantLength; i++ {
			for j := 1; j <= model.MaxVariantLength; j++ {
				if i == j {
					continue
				}
				if q := p.LengthProb1(-i) * p.LengthProb2(-j); q > wantProb {
					wantProb = q
				}
			}
		}
		if prob != wantProb {
			t.Fatalf("double deletion probability %v, want %v", prob, wantProb)
		}
	}
}

func TestInsertionDeletionLengths(t *testing.T) {
	r := rand.New(rand.NewSource(45))
	for trial := 0; trial < 1000; trial++ {
		p := randomLengthProbabilities(r)
		deletionLength, insertionLength, prob := insertionDeletionLengths(p)
		wantProb := 0.0
		for i := 1; i <= model.MaxVariantLength; i++ {
			for j := 1; j <= model.MaxVariantLength; j++ {
				if q := p.LengthProb1(i) * p.LengthProb2(-j); q > wantProb {
					wantProb = q
				}
				if q := p.LengthProb1(-i) * p.LengthProb2(j); q > wantProb {
					wantProb = q
				}
			}
		}
		if prob != wantProb {
			t.Fatalf("insertion+deletion probability %v, want %v", prob, wantProb)
		}
		if deletionLength < 1 || insertionLength < 1 {
			t.Fatal("insertion+deletion lengths not resolved")
		}
		if prob != p.LengthProb1(insertionLength)*p.LengthProb2(-deletionLength) &&
			prob != p.LengthProb1(-deletionLength)*p.LengthProb2(insertionLength) {
			t.Fatal("insertion+deletion lengths inconsistent with probability")
		}
	}
}
