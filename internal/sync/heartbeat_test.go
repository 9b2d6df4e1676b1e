package sync

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestHeartbeatAdvances(t *testing.T) {
	hb := NewHeartbeat()
	assert.EqualValues(t, 0, hb.Revision())

	t1 := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	rev := hb.Advance(t1)
	assert.EqualValues(t, 1, rev)
	assert.EqualValues(t, 1, hb.Revision())

	status := hb.Status()
	assert.Equal(t, t1, status.LastChangeAt)
	assert.Equal(t, t1, status.LastCheckedAt)
}

func TestHeartbeatMarkCheckedDoesNotMoveRevision(t *testing.T) {
	hb := NewHeartbeat()
	t1 := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	hb.Advance(t1)

	t2 := t1.Add(10 * time.Minute)
	hb.MarkChecked(t2)

	status := hb.Status()
	assert.EqualValues(t, 1, status.Revision)
	assert.Equal(t, t1, status.LastChangeAt)
	assert.Equal(t, t2, status.LastCheckedAt)
}
