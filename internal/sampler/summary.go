package sampler

import (
	"github.com/montanaflynn/stats"

	"bayesrisk/domain/model"
)

// Summarize builds the posterior parameter summary table from pooled
// draws: mean, SD, and the 2.5/50/97.5 percentiles per coefficient.
func Summarize(set *model.PosteriorSampleSet) []model.ParameterSummary {
	out := make([]model.ParameterSummary, len(set.Parameters))
	for j, name := range set.Parameters {
		col := stats.Float64Data(set.Column(j))
		mean, _ := stats.Mean(col)
		sd, _ := stats.StandardDeviationSample(col)
		q2, _ := stats.Percentile(col, 2.5)
		median, _ := stats.Median(col)
		q97, _ := stats.Percentile(col, 97.5)
		out[j] = model.ParameterSummary{
			Parameter: name,
			Mean:      mean,
			SD:        sd,
			Q2_5:      q2,
			Median:    median,
			Q97_5:     q97,
		}
	}
	return out
}
