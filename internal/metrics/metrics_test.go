package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

// Collectors register in the default registry, so the package shares
// one instance across tests.
var testMetrics = NewMetrics("metrics_test")

func TestUpdateActiveCampaigns(t *testing.T) {
	testMetrics.UpdateActiveCampaigns(3)
	assert.Equal(t, 3.0, testutil.ToFloat64(testMetrics.ActiveCampaigns))

	testMetrics.UpdateActiveCampaigns(0)
	assert.Zero(t, testutil.ToFloat64(testMetrics.ActiveCampaigns))
}

func TestRecordArchiveSplitsOutcomes(t *testing.T) {
	testMetrics.RecordArchive(true)
	testMetrics.RecordArchive(false)
	testMetrics.RecordArchive(false)

	assert.Equal(t, 1.0, testutil.ToFloat64(testMetrics.EventsArchived))
	assert.Equal(t, 2.0, testutil.ToFloat64(testMetrics.ArchiveFailures))
}
