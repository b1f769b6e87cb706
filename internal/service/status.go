package service

import (
	"os"
	"runtime"
	"time"

	"fitroom/internal/registry"
	"fitroom/pkg/types"
)

// Status returns a snapshot of the service.
func (s *Service) Status() types.StatusResponse {
	s.mu.RLock()
	st := types.StatusResponse{
		State:            string(s.state),
		Error:            s.err,
		OS:               runtime.GOOS,
		Arch:             runtime.GOARCH,
		DetectedBackends: kindStrings(s.detected),
	}
	if h := s.handle; h != nil {
		st.Pipeline = &types.PipelineStatus{
			ModelType: h.ModelType().String(),
			Requested: h.Requested().String(),
			FellBack:  h.FellBack(),
			Backend:   h.Backend().String(),
			Precision: string(h.Precision()),
			MaxEdge:   h.Backend().MaxEdge(),
		}
	}
	s.mu.RUnlock()

	inflight := len(s.genCh)
	st.Inflight = inflight
	if q := len(s.queueCh) - inflight; q > 0 {
		st.QueueLen = q
	}
	st.MaxQueueDepth = s.cfg.MaxQueueDepth
	st.UptimeSeconds = int64(time.Since(s.startTime).Seconds())
	st.ServerTimeUnix = time.Now().Unix()
	st.GenerationsTotal = s.generationsTotal.Load()
	st.DowngradesTotal = s.downgradesTotal.Load()
	st.LoadsTotal = s.loadsTotal.Load()
	return st
}

// Device returns the active backend, or "" when nothing is loaded.
func (s *Service) Device() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.handle == nil {
		return ""
	}
	return s.handle.Backend().String()
}

// Models lists the model sources known to the loader.
func (s *Service) Models() []registry.Source { return s.loader.Catalog().List() }

// OpenResult opens a stored result image by name.
func (s *Service) OpenResult(name string) (*os.File, error) {
	if s.deps.Outputs == nil {
		return nil, os.ErrNotExist
	}
	return s.deps.Outputs.Open(name)
}
