package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Push sends the gathered metrics to a Pushgateway, grouped by job id.
// The process exits right after, so there is nothing to scrape.
func Push(url, jobID string, g prometheus.Gatherer) error {
	if g == nil {
		g = prometheus.DefaultGatherer
	}
	return push.New(url, "nbrunner").
		Grouping("job_id", jobID).
		Gatherer(g).
		Push()
}
