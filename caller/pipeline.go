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
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/exascience/pargo/parallel"

	"github.com/exascience/elcall/model"
	"github.com/exascience/elcall/vcf"
)

// A Pipeline streams batches from a source through the classifier and
// the caller into a VCF writer. Classification of the next batch
// overlaps with decoding and output of the current one, while records
// stay in input order.
type Pipeline struct {
	Source     BatchSource
	Classifier model.Classifier
	Caller     *Caller
	Writer     *vcf.Writer
}

// batchSlot is one filled pipeline slot: a batch with its
// classification result.
type batchSlot struct {
	batch *Batch
	probs []model.Probabilities
	last  bool
}

func (p *Pipeline) fill() (slot batchSlot, err error) {
	slot.batch, slot.last = p.Source.Next()
	if slot.batch == nil || len(slot.batch.Sites) == 0 {
		slot.batch = nil
		slot.last = true
		return slot, nil
	}
	slot.probs, err = p.Classifier.Predict(slot.batch.FlattenedTensors())
	if err != nil {
		return slot, err
	}
	if len(slot.probs) != len(slot.batch.Sites) {
		log.Panicf(
			"inconsistent shape between input tensors and output predictions %d/%d",
			len(slot.batch.Sites), len(slot.probs),
		)
	}
	return slot, nil
}

// Run processes all batches. It calls the classifier exactly once per
// batch and returns the first classification or output error.
func (p *Pipeline) Run() error {
	current, err := p.fill()
	if err != nil {
		return err
	}
	for current.batch != nil {
		var next batchSlot
		var fillErr, drainErr error
		parallel.Do(
			func() {
				if !current.last {
					next, fillErr = p.fill()
				} else {
					next.last = true
				}
			},
			func() {
				drainErr = p.drain(current)
			},
		)
		if drainErr != nil {
			return drainErr
		}
		if fillErr != nil {
			return fillErr
		}
		current = next
	}
	return p.Writer.Flush()
}

// siteOutput is the decode result for one site: a record, a debug
// trace, or neither for silently skipped sites.
type siteOutput struct {
	variant *vcf.Variant
	trace   string
}

// drain decodes a classified batch in parallel and writes the results
// in batch order.
func (p *Pipeline) drain(slot batchSlot) error {
	sites := slot.batch.Sites
	outputs := parallel.RangeReduce(0, len(sites), 0, func(low, high int) interface{} {
		outputs := make([]siteOutput, 0, high-low)
		for i := low; i < high; i++ {
			var output siteOutput
			variant, reason := p.Caller.CallSite(&sites[i], &slot.probs[i])
			if p.Caller.Debug {
				if reason != "" {
					output.trace = debugTrace(&sites[i], &slot.probs[i], reason)
				}
			} else {
				output.variant = variant
			}
			outputs = append(outputs, output)
		}
		return outputs
	}, func(left, right interface{}) interface{} {
		return append(left.([]siteOutput), right.([]siteOutput)...)
	}).([]siteOutput)

	for _, output := range outputs {
		if output.trace != "" {
			if err := p.Writer.WriteLine(output.trace); err != nil {
				return err
			}
		}
		if output.variant != nil {
			if err := p.Writer.Write(output.variant); err != nil {
				return err
			}
		}
	}
	return nil
}

func appendProbVector(sb *strings.Builder, probs []float64) {
	sb.WriteByte('[')
	for i, prob := range probs {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.FormatFloat(prob, 'f', 8, 64))
	}
	sb.WriteByte(']')
}

// debugTrace renders one decode trace line: position, the four raw
// probability vectors, and the decode outcome.
func debugTrace(site *Site, p *model.Probabilities, reason string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s\t%d\t", site.Chrom, site.Pos)
	appendProbVector(&sb, p.GT21[:])
	sb.WriteByte('\t')
	appendProbVector(&sb, p.Genotype[:])
	sb.WriteByte('\t')
	appendProbVector(&sb, p.Length1[:])
	sb.WriteByte('\t')
	appendProbVector(&sb, p.Length2[:])
	sb.WriteByte('\t')
	sb.WriteString(reason)
	return sb.String()
}
