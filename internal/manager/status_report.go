package manager

import (
	"time"

	"modelgate/pkg/types"
)

// Status builds a detailed status response for /status.
func (m *Manager) Status() types.StatusResponse {
	resp := types.StatusResponse{
		Backends:       make([]types.BackendStatus, 0, len(m.order)),
		LoadsTotal:     m.loadsTotal.Load(),
		EvictionsTotal: m.evictionsTotal.Load(),
		UptimeSeconds:  int64(time.Since(m.startTime).Seconds()),
		ServerTimeUnix: m.now().Unix(),
	}
	for _, h := range m.order {
		st := h.Status()
		switch st.State {
		case StateReady:
			resp.ReadyCount++
		case StateLoading:
			resp.LoadingCount++
		}
		resp.Backends = append(resp.Backends, types.BackendStatus{
			ModelID:   st.ModelID,
			State:     string(st.State),
			LastUsed:  st.LastUsed,
			Inflight:  st.Inflight,
			QueueLen:  st.QueueLen,
			Port:      st.Port,
			PID:       st.PID,
			LastError: st.LastError,
		})
	}
	return resp
}
