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
	"strconv"
	"strings"
	"testing"
)

func tensorLine(chrom string, pos int32, window string, values []float64) string {
	fields := make([]string, 0, 3+len(values))
	fields = append(fields, chrom, strconv.FormatInt(int64(pos), 10), window)
	for _, v := range values {
		fields = append(fields, strconv.FormatFloat(v, 'f', 6, 64))
	}
	return strings.Join(fields, " ")
}

func TestTensorReader(t *testing.T) {
	r := rand.New(rand.NewSource(46))
	window := makeWindow('A', "")

	var lines []string
	var flats [][]float64
	for i := 0; i < 5; i++ {
		values := make([]float64, TensorSize)
		for j := range values {
			values[j] = float64(r.Intn(100)) / 4
		}
		flats = append(flats, values)
		lines = append(lines, tensorLine("chr20", int32(100+i), window, values))
	}
	input := strings.Join(lines, "\n") + "\n\n"

	reader := NewTensorReader(strings.NewReader(input), 2)

	batch, done := reader.Next()
	if done || len(batch.Sites) != 2 {
		t.Fatalf("unexpected first batch: %v sites, done %v", len(batch.Sites), done)
	}
	site := &batch.Sites[0]
	if site.Chrom != "chr20" || site.Pos != 100 || site.ReferenceWindow != window {
		t.Errorf("unexpected site %v:%v %v", site.Chrom, site.Pos, site.ReferenceWindow)
	}
	flat := site.Tensor.Flatten()
	for i, v := range flat {
		if v != flats[0][i] {
			t.Fatalf("tensor value %v is %v, want %v", i, v, flats[0][i])
		}
	}

	batch, done = reader.Next()
	if done || len(batch.Sites) != 2 {
		t.Fatalf("unexpected second batch: %v sites, done %v", len(batch.Sites), done)
	}

	batch, done = reader.Next()
	if !done || len(batch.Sites) != 1 {
		t.Fatalf("unexpected final batch: %v sites, done %v", len(batch.Sites), done)
	}
	if batch.Sites[0].Pos != 104 {
		t.Errorf("unexpected final site position %v", batch.Sites[0].Pos)
	}

	if batch, done := reader.Next(); batch != nil || !done {
		t.Error("reader not exhausted after final batch")
	}
}

func TestTensorChannelHelpers(t *testing.T) {
	var tensor Tensor
	tensor[Center][0][ChannelReference] = 1
	tensor[Center][4][ChannelReference] = 2
	tensor[Center][1][ChannelSNP] = 3

	if sum := tensor.channelSum(Center, ChannelReference); sum != 3 {
		t.Errorf("unexpected channel sum %v", sum)
	}
	merged := tensor.mergedStrands(Center, ChannelReference)
	if merged[0] != 3 || merged[1] != 0 {
		t.Errorf("unexpected merged strands %v", merged)
	}
	if sum := tensor.channelSum(Center, ChannelSNP); sum != 3 {
		t.Errorf("unexpected SNP channel sum %v", sum)
	}
}
