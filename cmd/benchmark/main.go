package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/MeKo-Tech/polyglot/internal/benchmark"
	"github.com/MeKo-Tech/polyglot/internal/detect"
)

func main() {
	var (
		corpusFile  = flag.String("corpus", "testdata/corpus/detect.tsv", "Labelled corpus (code<TAB>text per line)")
		iterations  = flag.Int("iterations", 200, "Number of passes per throughput benchmark")
		outputFile  = flag.String("output", "", "Write the accuracy report as JSON to this file (optional)")
		minAccuracy = flag.Float64("min-accuracy", 0, "Exit with status 1 when accuracy falls below this fraction")
		verbose     = flag.Bool("verbose", false, "Verbose output")
	)
	flag.Parse()

	fmt.Println("polyglot language detection benchmark")
	fmt.Println("=====================================")

	samples, err := benchmark.LoadCorpusFile(*corpusFile)
	if err != nil {
		log.Fatalf("Failed to load corpus: %v", err)
	}
	if *verbose {
		fmt.Printf("Loaded %d samples from %s\n", len(samples), *corpusFile)
	}

	det := detect.Default()
	report := benchmark.EvaluateDetector(det, samples)
	if err := report.WriteText(os.Stdout); err != nil {
		log.Fatalf("Failed to write report: %v", err)
	}

	fmt.Printf("\nRunning throughput benchmarks with %d iterations each...\n", *iterations)
	suite := benchmark.NewDetectionSuite(det, samples)
	suite.RunAll(*iterations)
	suite.PrintResults(os.Stdout)

	if *outputFile != "" {
		if err := saveReport(*outputFile, report); err != nil {
			log.Printf("Failed to save report: %v", err)
		} else {
			fmt.Printf("Report saved to: %s\n", *outputFile)
		}
	}

	if report.Accuracy() < *minAccuracy {
		fmt.Fprintf(os.Stderr, "accuracy %.3f is below the required %.3f\n", report.Accuracy(), *minAccuracy)
		os.Exit(1)
	}
}

func saveReport(filename string, report benchmark.AccuracyReport) error {
	data, err := json.MarshalIndent(struct {
		benchmark.AccuracyReport
		Accuracy float64 `json:"accuracy"`
	}{report, report.Accuracy()}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filename, append(data, '\n'), 0o600)
}
