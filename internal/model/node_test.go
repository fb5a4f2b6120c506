package model

import (
	"testing"
)

func int64Ptr(v int64) *int64 {
	return &v
}

func TestStatusAt_NeverReported(t *testing.T) {
	n := &Node{}

	// Pending regardless of the clock.
	for _, now := range []int64{0, 1000, 1 << 40} {
		if got := n.StatusAt(now, 30); got != NodeStatusPending {
			t.Errorf("StatusAt(%d) = %s, expected pending", now, got)
		}
	}
}

func TestStatusAt_Online(t *testing.T) {
	now := int64(10000)
	n := &Node{LastSeen: int64Ptr(now - 5)}

	if got := n.StatusAt(now, 30); got != NodeStatusOnline {
		t.Errorf("StatusAt = %s, expected online", got)
	}
}

func TestStatusAt_Offline(t *testing.T) {
	now := int64(10000)
	n := &Node{LastSeen: int64Ptr(now - 120)}

	if got := n.StatusAt(now, 30); got != NodeStatusOffline {
		t.Errorf("StatusAt = %s, expected offline", got)
	}
}

func TestStatusAt_Boundary(t *testing.T) {
	now := int64(10000)
	timeout := int64(30)

	// Exactly at the threshold the node is still online.
	atThreshold := &Node{LastSeen: int64Ptr(now - timeout)}
	if got := atThreshold.StatusAt(now, timeout); got != NodeStatusOnline {
		t.Errorf("StatusAt at exact threshold = %s, expected online", got)
	}

	// One second past the threshold it is offline.
	pastThreshold := &Node{LastSeen: int64Ptr(now - timeout - 1)}
	if got := pastThreshold.StatusAt(now, timeout); got != NodeStatusOffline {
		t.Errorf("StatusAt past threshold = %s, expected offline", got)
	}
}
