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

package cmd

import (
	"flag"
	"fmt"
	"log"
	"os"
	"runtime"
	"time"

	"github.com/exascience/elcall/caller"
	"github.com/exascience/elcall/fasta"
	"github.com/exascience/elcall/internal"
	"github.com/exascience/elcall/model"
	"github.com/exascience/elcall/sam"
	"github.com/exascience/elcall/vcf"
)

// CallHelp is the help string for this command.
const CallHelp = "\ncall parameters:\n" +
	"elcall call tensor-file vcf-output-file\n" +
	"--model endpoint-url\n" +
	"[--checkpoint file]\n" +
	"[--bam sam-file]\n" +
	"[--reference fasta-file]\n" +
	"[--sample-name name]\n" +
	"[--qual cutoff]\n" +
	"[--show-ref]\n" +
	"[--debug]\n" +
	"[--pileup-for-all-indels]\n" +
	"[--nr-of-threads n]\n" +
	"[--config yaml-file]\n" +
	"[--timed]\n" +
	"[--profile file]\n" +
	"[--log-path path]\n"

// Call implements the elcall call command. It streams evidence tensors
// through an external classifier and decodes the predictions into VCF
// variant records.
func Call() {
	var (
		endpoint, checkpoint   string
		bamFile, referenceFile string
		sampleName, configFile string
		profile, logPath       string
		qual, nrOfThreads      int
		showRef, debug         bool
		pileupForAllIndels     bool
		timed                  bool
	)

	var flags flag.FlagSet

	flags.StringVar(&endpoint, "model", "", "URL of the classifier prediction service")
	flags.StringVar(&checkpoint, "checkpoint", "", "model checkpoint for the classifier to restore before predicting")
	flags.StringVar(&bamFile, "bam", "", "alignment file for recovering long indel alleles")
	flags.StringVar(&referenceFile, "reference", "", "reference fasta file, with a .fai index next to it")
	flags.StringVar(&sampleName, "sample-name", "SAMPLE", "sample name for the VCF column header")
	flags.IntVar(&qual, "qual", -1, "quality score cutoff separating PASS from LowQual")
	flags.BoolVar(&showRef, "show-ref", false, "emit records for homozygous reference sites")
	flags.BoolVar(&debug, "debug", false, "print per-site decode traces instead of records")
	flags.BoolVar(&pileupForAllIndels, "pileup-for-all-indels", false, "recover every indel allele from the alignment file")
	flags.IntVar(&nrOfThreads, "nr-of-threads", 0, "number of worker threads")
	flags.StringVar(&configFile, "config", "", "runtime configuration file")
	flags.BoolVar(&timed, "timed", false, "measure the runtime")
	flags.StringVar(&profile, "profile", "", "write a runtime profile to the specified file(s)")
	flags.StringVar(&logPath, "log-path", "", "write log files to the specified directory")

	parseFlags(flags, 4, CallHelp)

	tensorFile := getFilename(os.Args[2], CallHelp)
	output := getFilename(os.Args[3], CallHelp)

	setLogOutput(logPath)

	// sanity checks

	var sanityChecksFailed bool

	if tensorFile != "-" && !checkExist("", tensorFile) {
		sanityChecksFailed = true
	}
	if !checkCreate("", output) {
		sanityChecksFailed = true
	}
	if endpoint == "" {
		log.Println("Error: Missing classifier endpoint. Please add the --model option to your call.")
		sanityChecksFailed = true
	}
	if bamFile != "" && !checkExist("--bam", bamFile) {
		sanityChecksFailed = true
	}
	if referenceFile != "" {
		if !checkExist("--reference", referenceFile) {
			sanityChecksFailed = true
		}
		if !checkExist("--reference", referenceFile+".fai") {
			sanityChecksFailed = true
		}
	}
	if pileupForAllIndels && bamFile == "" {
		log.Println("Error: --pileup-for-all-indels requires the --bam option.")
		sanityChecksFailed = true
	}
	if configFile != "" && !checkExist("--config", configFile) {
		sanityChecksFailed = true
	}
	if profile != "" && !checkCreate("--profile", profile) {
		sanityChecksFailed = true
	}
	if nrOfThreads < 0 {
		log.Println("Error: Invalid nr-of-threads: ", nrOfThreads)
		sanityChecksFailed = true
	}

	if sanityChecksFailed {
		fmt.Fprint(os.Stderr, CallHelp)
		os.Exit(1)
	}

	if nrOfThreads > 0 {
		runtime.GOMAXPROCS(nrOfThreads)
	}

	config, err := LoadConfig(configFile)
	if err != nil {
		log.Panic(err)
	}

	classifier := model.NewRemoteClassifier(endpoint, config.ClassifierRetries, time.Duration(config.ClassifierTimeout))
	if checkpoint != "" {
		checkpointPath, err := internal.FullPathname(checkpoint)
		if err != nil {
			log.Panic(err)
		}
		if err := classifier.RestoreParameters(checkpointPath); err != nil {
			log.Panic(err)
		}
	}

	var reference *fasta.Reference
	var contigs []fasta.FaiReference
	if referenceFile != "" {
		contigs = fasta.ParseFai(referenceFile + ".fai")
		reference = fasta.ParseReference(referenceFile)
	}

	var alignments caller.AlignmentSource
	if bamFile != "" {
		pileup, err := sam.NewPileupSource(bamFile, reference)
		if err != nil {
			log.Panic(err)
		}
		alignments = pileup
	}

	outFile := internal.FileCreate(output)
	defer internal.Close(outFile)
	writer, err := vcf.NewWriter(outFile, vcf.NewHeader(sampleName, contigs))
	if err != nil {
		log.Panic(err)
	}

	pipeline := &caller.Pipeline{
		Source:     caller.OpenTensorFile(tensorFile, config.BatchSize),
		Classifier: classifier,
		Caller: &caller.Caller{
			Alignments:               alignments,
			Reference:                reference,
			QualityThreshold:         int32(qual),
			ShowReference:            showRef,
			Debug:                    debug,
			AlwaysUsePileupForIndels: pileupForAllIndels,
		},
		Writer: writer,
	}

	timedRun(timed, profile, "Calling variants.", 1, func() {
		if err := pipeline.Run(); err != nil {
			log.Panic(err)
		}
	})
}
