package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCounters(t *testing.T) {
	Register()
	Register() // second call must not panic

	before := testutil.ToFloat64(tokenRefresh.WithLabelValues("ok"))
	IncTokenRefresh("ok")
	assert.Equal(t, before+1, testutil.ToFloat64(tokenRefresh.WithLabelValues("ok")))

	before = testutil.ToFloat64(forcedLogout)
	IncForcedLogout()
	assert.Equal(t, before+1, testutil.ToFloat64(forcedLogout))

	before = testutil.ToFloat64(apiRequests.WithLabelValues("login", "200"))
	IncAPIRequest("login", "200")
	assert.Equal(t, before+1, testutil.ToFloat64(apiRequests.WithLabelValues("login", "200")))
}
