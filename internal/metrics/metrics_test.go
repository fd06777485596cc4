// CMWAPI - Common Map Widget API messaging core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cmwapi

package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordPublish(t *testing.T) {
	before := testutil.ToFloat64(MessagesPublished.WithLabelValues("test.publish", "failure"))
	RecordPublish("test.publish", time.Millisecond, errors.New("down"))
	RecordPublish("test.publish", time.Millisecond, nil)

	if got := testutil.ToFloat64(MessagesPublished.WithLabelValues("test.publish", "failure")); got != before+1 {
		t.Errorf("failure count = %v, want %v", got, before+1)
	}
	if got := testutil.ToFloat64(MessagesPublished.WithLabelValues("test.publish", "success")); got < 1 {
		t.Errorf("success count = %v, want >= 1", got)
	}
}

func TestRecordChannelError(t *testing.T) {
	RecordChannelError("", "internal error")
	if got := testutil.ToFloat64(ChannelErrors.WithLabelValues("none", "internal error")); got < 1 {
		t.Errorf("empty channel should be recorded as none, got %v", got)
	}
}

func TestRecordTreeMutation(t *testing.T) {
	RecordTreeMutation("create_overlay", nil, 3, 7)
	if got := testutil.ToFloat64(Overlays); got != 3 {
		t.Errorf("Overlays = %v, want 3", got)
	}
	if got := testutil.ToFloat64(Features); got != 7 {
		t.Errorf("Features = %v, want 7", got)
	}
}

func TestRecordBreakerTransition(t *testing.T) {
	RecordBreakerTransition("bus-test", "closed", "open", 2)
	if got := testutil.ToFloat64(CircuitBreakerState.WithLabelValues("bus-test")); got != 2 {
		t.Errorf("state = %v, want 2", got)
	}
	if got := testutil.ToFloat64(CircuitBreakerTransitions.WithLabelValues("bus-test", "closed", "open")); got != 1 {
		t.Errorf("transitions = %v, want 1", got)
	}
}
