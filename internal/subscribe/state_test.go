package subscribe

import "testing"

func TestStateTrackerEnteringConsumingResetsRetries(t *testing.T) {
	s := newStateTracker()
	s.recordFailure()
	s.recordFailure()
	s.setBackoff(4000)

	s.set(StatusConsuming)

	retries, backoffMs := s.snapshot()
	if retries != 0 || backoffMs != 0 {
		t.Fatalf("expected retries and backoff reset on entering consuming, got retries=%d backoff=%d", retries, backoffMs)
	}
	if s.Status() != StatusConsuming {
		t.Fatalf("expected status consuming, got %s", s.Status())
	}
}

func TestStateTrackerRecordFailureIncrements(t *testing.T) {
	s := newStateTracker()
	if r := s.recordFailure(); r != 1 {
		t.Fatalf("expected first failure to report retries=1, got %d", r)
	}
	if r := s.recordFailure(); r != 2 {
		t.Fatalf("expected second failure to report retries=2, got %d", r)
	}
}

func TestStateTrackerInitialStatusDisconnected(t *testing.T) {
	s := newStateTracker()
	if s.Status() != StatusDisconnected {
		t.Fatalf("expected initial status disconnected, got %s", s.Status())
	}
}
