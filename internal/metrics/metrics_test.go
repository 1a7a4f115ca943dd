package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics(t *testing.T) {
	Register()
	Register()

	assert.NotPanics(t, func() {
		ObserveHTTP("/api/test", "200", 0.01)
		IncRateLimited()
		IncSheetsSync("ok")
	})
}

func TestConsultationEventCounter(t *testing.T) {
	before := testutil.ToFloat64(consultationEvents.WithLabelValues("test_event"))
	IncConsultationEvent("test_event")
	IncConsultationEvent("test_event")
	assert.Equal(t, before+2, testutil.ToFloat64(consultationEvents.WithLabelValues("test_event")))
}
