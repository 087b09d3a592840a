package benchmark

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"text/tabwriter"
	"time"

	"github.com/MeKo-Tech/polyglot/internal/detect"
)

// LanguageScore counts the samples labelled with one language.
type LanguageScore struct {
	Total   int `json:"total"`
	Correct int `json:"correct"`
}

// Miss is a sample the detector got wrong.
type Miss struct {
	Sample Sample        `json:"sample"`
	Got    detect.Result `json:"got"`
}

// AccuracyReport summarises a detector run over a corpus.
type AccuracyReport struct {
	Total      int                       `json:"total"`
	Correct    int                       `json:"correct"`
	ByLanguage map[string]*LanguageScore `json:"by_language"`
	// ByTier counts which tier decided each sample, right or wrong.
	ByTier   map[string]int `json:"by_tier"`
	Misses   []Miss         `json:"misses"`
	Duration time.Duration  `json:"duration_ns"`
}

// Accuracy is the fraction of samples classified as labelled.
func (r AccuracyReport) Accuracy() float64 {
	if r.Total == 0 {
		return 0
	}
	return float64(r.Correct) / float64(r.Total)
}

// EvaluateDetector classifies every sample once.
func EvaluateDetector(det *detect.Detector, samples []Sample) AccuracyReport {
	rep := AccuracyReport{
		ByLanguage: map[string]*LanguageScore{},
		ByTier:     map[string]int{},
	}
	timer := NewTimer("evaluate")
	for _, s := range samples {
		res := det.Classify(s.Text)
		score := rep.ByLanguage[s.Code]
		if score == nil {
			score = &LanguageScore{}
			rep.ByLanguage[s.Code] = score
		}
		rep.Total++
		score.Total++
		rep.ByTier[res.Tier.String()]++
		if res.Language.Code == s.Code {
			rep.Correct++
			score.Correct++
			continue
		}
		rep.Misses = append(rep.Misses, Miss{Sample: s, Got: res})
	}
	rep.Duration = timer.Stop()
	return rep
}

// WriteText renders the report as a per-language table followed by the misses.
func (r AccuracyReport) WriteText(w io.Writer) error {
	_, _ = fmt.Fprintf(w, "Accuracy: %d/%d (%.1f%%) in %v\n\n", r.Correct, r.Total, r.Accuracy()*100, r.Duration)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "LANG\tCORRECT\tTOTAL")
	for _, code := range slices.Sorted(maps.Keys(r.ByLanguage)) {
		s := r.ByLanguage[code]
		_, _ = fmt.Fprintf(tw, "%s\t%d\t%d\n", code, s.Correct, s.Total)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	_, _ = fmt.Fprintln(w)
	for _, tier := range slices.Sorted(maps.Keys(r.ByTier)) {
		_, _ = fmt.Fprintf(w, "tier %s: %d\n", tier, r.ByTier[tier])
	}

	for _, m := range r.Misses {
		_, _ = fmt.Fprintf(w, "MISS line %d: %q want %s, got %s (%s)\n",
			m.Sample.Line, m.Sample.Text, m.Sample.Code, m.Got.Language.Code, m.Got.Rule)
	}
	return nil
}

// NewDetectionSuite returns throughput benchmarks for det over samples: one
// pass over the whole corpus and one per tier that decided some sample.
func NewDetectionSuite(det *detect.Detector, samples []Sample) *BenchmarkSuite {
	suite := NewBenchmarkSuite()
	suite.Add("classify/corpus", func() error {
		for _, s := range samples {
			det.Classify(s.Text)
		}
		return nil
	})

	byTier := map[detect.Tier][]string{}
	for _, s := range samples {
		tier := det.Classify(s.Text).Tier
		byTier[tier] = append(byTier[tier], s.Text)
	}
	for _, tier := range slices.Sorted(maps.Keys(byTier)) {
		texts := byTier[tier]
		suite.Add("classify/"+tier.String(), func() error {
			for _, t := range texts {
				det.Classify(t)
			}
			return nil
		})
	}
	return suite
}
