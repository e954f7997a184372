package server

import (
	"net/http"

	"github.com/flexnote/compute-broker/compute"
)

// SelectComputeRequest is the body of POST /api/compute/select.
type SelectComputeRequest struct {
	GPUType   string `json:"gpu_type"`
	GPUCount  int    `json:"gpu_count"`
	SessionID string `json:"session_id,omitempty"`
	UserID    string `json:"user_id,omitempty"`
}

type SelectComputeResponse struct {
	SessionID  string `json:"session_id"`
	InstanceID string `json:"instance_id"`
	Status     string `json:"status"`
	Message    string `json:"message"`
}

type InstanceSummaryResponse struct {
	ID        string `json:"id"`
	SessionID string `json:"session_id"`
	GPUType   string `json:"gpu_type"`
	Status    string `json:"status"`
}

// AvailableGPUsHandler lists GPU types. It always answers 200, serving the
// built in catalog when the provider is down.
func (s *Server) AvailableGPUsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, s.compute.AvailableGPUTypes(r.Context()))
	}
}

func (s *Server) SelectComputeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SelectComputeRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, err)
			return
		}

		result, err := s.compute.SelectCompute(r.Context(), compute.SelectRequest{
			GPUType:   req.GPUType,
			GPUCount:  req.GPUCount,
			SessionID: req.SessionID,
			UserID:    req.UserID,
		})
		if err != nil {
			writeError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, SelectComputeResponse{
			SessionID:  result.SessionID,
			InstanceID: result.InstanceID,
			Status:     string(result.Status),
			Message:    result.Message,
		})
	}
}

func (s *Server) ListInstancesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		instances := s.compute.ActiveInstances()
		out := make([]InstanceSummaryResponse, 0, len(instances))
		for _, inst := range instances {
			out = append(out, InstanceSummaryResponse{
				ID:        inst.InstanceID,
				SessionID: inst.SessionID,
				GPUType:   inst.GPUType,
				Status:    string(inst.Status),
			})
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func (s *Server) InstanceStatusHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		inst, err := s.compute.InstanceStatus(r.Context(), r.PathValue("id"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, inst)
	}
}

func (s *Server) StopInstanceHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.compute.StopInstance(r.Context(), r.PathValue("id")); err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, MessageResponse{Message: "Instance stopped successfully"})
	}
}
