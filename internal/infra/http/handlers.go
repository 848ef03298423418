package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nRudzy/medicandle-sub000/internal/domain/ledger"
	"github.com/nRudzy/medicandle-sub000/internal/domain/materials"
	"github.com/nRudzy/medicandle-sub000/internal/domain/units"
	"github.com/nRudzy/medicandle-sub000/internal/engine"
)

type handlers struct {
	mgr *engine.Manager
	log *slog.Logger
}

type materialResponse struct {
	ID            int64           `json:"id"`
	Name          string          `json:"name"`
	Category      string          `json:"category"`
	Unit          units.Unit      `json:"unit"`
	CostPerUnit   decimal.Decimal `json:"cost_per_unit"`
	PhysicalStock decimal.Decimal `json:"physical_stock"`
	ReservedStock decimal.Decimal `json:"reserved_stock"`
	Available     decimal.Decimal `json:"available"`
}

func toMaterialResponse(m *materials.Material) materialResponse {
	return materialResponse{
		ID:            m.ID,
		Name:          m.Name,
		Category:      m.Category,
		Unit:          m.Unit,
		CostPerUnit:   m.CostPerUnit,
		PhysicalStock: m.PhysicalStock,
		ReservedStock: m.ReservedStock,
		Available:     m.Available(),
	}
}

type movementResponse struct {
	ID            int64               `json:"id"`
	MaterialID    int64               `json:"material_id"`
	Type          ledger.MovementType `json:"type"`
	QuantityDelta decimal.Decimal     `json:"quantity_delta"`
	Unit          units.Unit          `json:"unit"`
	UnitPrice     *decimal.Decimal    `json:"unit_price,omitempty"`
	ValueDelta    *decimal.Decimal    `json:"value_delta,omitempty"`
	SourceType    ledger.SourceType   `json:"source_type"`
	SourceID      string              `json:"source_id,omitempty"`
	Comment       string              `json:"comment,omitempty"`
	CreatedAt     time.Time           `json:"created_at"`
}

func toMovementResponses(mvs []ledger.Movement) []movementResponse {
	out := make([]movementResponse, 0, len(mvs))
	for i := range mvs {
		mv := &mvs[i]
		out = append(out, movementResponse{
			ID:            mv.ID,
			MaterialID:    mv.MaterialID,
			Type:          mv.Type,
			QuantityDelta: mv.QuantityDelta,
			Unit:          mv.Unit,
			UnitPrice:     mv.UnitPrice,
			ValueDelta:    mv.ValueDelta,
			SourceType:    mv.SourceType,
			SourceID:      mv.SourceID,
			Comment:       mv.Comment,
			CreatedAt:     mv.CreatedAt,
		})
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (h *handlers) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *engine.ValidationError
	var nferr *engine.MaterialNotFoundError
	var iserr *engine.InsufficientStockError
	var uerr *units.IncompatibleUnitError

	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": verr.Error()})
	case errors.As(err, &nferr):
		writeJSON(w, http.StatusNotFound, map[string]any{"error": nferr.Error()})
	case errors.As(err, &iserr):
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":   iserr.Error(),
			"missing": iserr.Missing,
		})
	case errors.As(err, &uerr):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"error": uerr.Error()})
	default:
		h.log.Error("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "internal error"})
	}
}

func pathInt64(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(r.PathValue(name), 10, 64)
}

func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	return uuid.Parse(r.PathValue(name))
}

func (h *handlers) listMaterials(w http.ResponseWriter, r *http.Request) {
	mats, err := h.mgr.Materials(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	out := make([]materialResponse, 0, len(mats))
	for i := range mats {
		out = append(out, toMaterialResponse(&mats[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handlers) materialMovements(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt64(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid material id"})
		return
	}
	mvs, err := h.mgr.Ledger().MovementsForMaterial(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toMovementResponses(mvs))
}

type adjustmentRequest struct {
	Delta     decimal.Decimal     `json:"delta"`
	Unit      units.Unit          `json:"unit"`
	UnitPrice *decimal.Decimal    `json:"unit_price"`
	Comment   string              `json:"comment"`
	Type      ledger.MovementType `json:"type"`
}

func (h *handlers) recordAdjustment(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt64(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid material id"})
		return
	}
	var req adjustmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid request body"})
		return
	}
	mv, err := h.mgr.RecordManualAdjustment(r.Context(), engine.AdjustmentInput{
		MaterialID: id,
		Delta:      req.Delta,
		Unit:       req.Unit,
		UnitPrice:  req.UnitPrice,
		Comment:    req.Comment,
		Type:       req.Type,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toMovementResponses([]ledger.Movement{*mv})[0])
}

func (h *handlers) orderFeasibility(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid order id"})
		return
	}
	report, err := h.mgr.AnalyzeFeasibility(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *handlers) orderMovements(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid order id"})
		return
	}
	mvs, err := h.mgr.Ledger().MovementsForSource(r.Context(), ledger.SourceOrder, id.String())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toMovementResponses(mvs))
}

func (h *handlers) reserveOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid order id"})
		return
	}
	if err := h.mgr.Reserve(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) releaseOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid order id"})
		return
	}
	if err := h.mgr.Release(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) consumeOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid order id"})
		return
	}
	if err := h.mgr.Consume(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
