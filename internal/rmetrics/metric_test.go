package rmetrics_test

import (
	"testing"

	"github.com/kffl/reactor/internal/rmetrics"
	"github.com/stretchr/testify/assert"
)

func TestMetrics(t *testing.T) {
	rmetrics.Add(rmetrics.EpollWait, 1)
	assert.Equal(t, uint64(1), rmetrics.Get(rmetrics.EpollWait))
	rmetrics.Add(rmetrics.EpollWait, 1)
	assert.Equal(t, uint64(2), rmetrics.Get(rmetrics.EpollWait))
	rmetrics.Add(rmetrics.Max+1, 1)
	assert.Equal(t, uint64(0), rmetrics.Get(rmetrics.Max+1))
	assert.Equal(t, uint64(0), rmetrics.Get(-1))
	rmetrics.Add(rmetrics.TimerAdds, 3)
	rmetrics.Add(rmetrics.TimerRearms, 4)
	all := rmetrics.GetAll()
	assert.Equal(t, uint64(3), all[rmetrics.TimerAdds])
	assert.Equal(t, uint64(4), all[rmetrics.TimerRearms])
	rmetrics.ShowMetrics()
}
