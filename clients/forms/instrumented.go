package forms

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// instrumentedClient implements Client with the call wrapped in a Prometheus
// summary metric.
type instrumentedClient struct {
	name string
	base Client
}

var clientDurationSummaryVec = promauto.NewSummaryVec(
	prometheus.SummaryOpts{
		Name:       "formspree_client_duration_seconds",
		Help:       "client runtime duration and result",
		MaxAge:     time.Minute,
		Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
	},
	[]string{"instance_name", "method", "result"})

// newInstrumentedClient returns an instance of the Client decorated with a
// prometheus summary metric.
func newInstrumentedClient(name string, base Client) Client {
	return &instrumentedClient{
		name: name,
		base: base,
	}
}

// Submit implements Client
func (_d *instrumentedClient) Submit(ctx context.Context, formKey string, data SubmissionData, opts SubmissionOptions) (result SubmissionResult, err error) {
	_since := time.Now()
	defer func() {
		res := "ok"
		if err != nil || (result != nil && !result.Ok()) {
			res = "error"
		}

		clientDurationSummaryVec.WithLabelValues(_d.name, "Submit", res).Observe(time.Since(_since).Seconds())
	}()
	return _d.base.Submit(ctx, formKey, data, opts)
}
