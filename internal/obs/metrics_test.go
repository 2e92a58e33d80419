package obs

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveOperationOutcomes(t *testing.T) {
	before := testutil.ToFloat64(opTotal.WithLabelValues("fetch_all", "success"))
	ObserveOperation("fetch_all", time.Now(), nil)
	after := testutil.ToFloat64(opTotal.WithLabelValues("fetch_all", "success"))
	if after != before+1 {
		t.Fatalf("success counter = %v, want %v", after, before+1)
	}

	before = testutil.ToFloat64(opTotal.WithLabelValues("cancel", "error"))
	ObserveOperation("cancel", time.Now(), errors.New("boom"))
	after = testutil.ToFloat64(opTotal.WithLabelValues("cancel", "error"))
	if after != before+1 {
		t.Fatalf("error counter = %v, want %v", after, before+1)
	}
}
