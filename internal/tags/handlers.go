package tags

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/AutoMap-DE/AutoMap-Backend/internal/device"
)

// Handler exposes the tagging service over HTTP.
type Handler struct {
	svc *Service
	fp  *device.Fingerprinter
}

func NewHandler(svc *Service, fp *device.Fingerprinter) *Handler {
	return &Handler{svc: svc, fp: fp}
}

// DeviceID resolves the submitting device's pseudonym. Clients that carry
// their own identifier send it in X-Device-ID; anyone else is fingerprinted
// from the request. The value is a best-effort pseudonym, never validated.
func (h *Handler) DeviceID(r *http.Request) string {
	if id := r.Header.Get("X-Device-ID"); id != "" {
		return id
	}
	return h.fp.FromRequest(r)
}

func (h *Handler) SubmitTagHandler(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Lat   float64 `json:"lat"`
		Lng   float64 `json:"lng"`
		Notes string  `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	machine, err := h.svc.SubmitTag(input.Lat, input.Lng, h.DeviceID(r), input.Notes)
	if errors.Is(err, ErrInvalidCoordinate) {
		http.Error(w, "Invalid coordinates", http.StatusBadRequest)
		return
	}
	if errors.Is(err, ErrDuplicateTag) {
		http.Error(w, "You already tagged a machine nearby", http.StatusConflict)
		return
	}
	if err != nil {
		http.Error(w, "Failed to submit tag", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(machine); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

func (h *Handler) MachinesHandler(w http.ResponseWriter, r *http.Request) {
	includePending := r.URL.Query().Get("include_pending") == "true"
	machines := h.svc.ListMachines(includePending)

	writeJSON(w, machines)
}

func (h *Handler) MachineDetailHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	machine := h.svc.GetMachine(id)
	if machine == nil {
		http.Error(w, "Machine not found", http.StatusNotFound)
		return
	}

	response := struct {
		*Machine
		UniqueDevices int  `json:"unique_devices"`
		UserTagged    bool `json:"user_tagged"`
	}{
		Machine:       machine,
		UniqueDevices: len(machine.DeviceIDs()),
		UserTagged:    h.svc.HasUserTagged(id, h.DeviceID(r)),
	}
	writeJSON(w, response)
}

func (h *Handler) PendingHandler(w http.ResponseWriter, r *http.Request) {
	type pendingOut struct {
		*Machine
		UniqueDevices int `json:"unique_devices"`
	}
	pending := h.svc.ListPending()
	out := make([]pendingOut, 0, len(pending))
	for _, m := range pending {
		out = append(out, pendingOut{Machine: m, UniqueDevices: len(m.DeviceIDs())})
	}
	writeJSON(w, out)
}

func (h *Handler) StatsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.svc.Stats())
}

func (h *Handler) ConfirmHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	machine, ok := h.svc.AdminConfirm(id)
	if !ok {
		http.Error(w, "Machine not found", http.StatusNotFound)
		return
	}
	writeJSON(w, machine)
}

func (h *Handler) DeleteHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !h.svc.AdminDelete(id) {
		http.Error(w, "Machine not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ExportHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.svc.Export())
}

func (h *Handler) ImportHandler(w http.ResponseWriter, r *http.Request) {
	var data ExportData
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		http.Error(w, "Invalid import payload", http.StatusBadRequest)
		return
	}
	if err := h.svc.Import(data); err != nil {
		http.Error(w, "Invalid import payload", http.StatusBadRequest)
		return
	}
	writeJSON(w, h.svc.Stats())
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}
