package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"loom/internal/engine"
	"loom/internal/export"
	"loom/internal/segment"
	"loom/internal/unit"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
}

func (s *Server) handlePackets(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.listPackets(w, r)
	case http.MethodPost:
		s.createPacket(w, r)
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) listPackets(w http.ResponseWriter, r *http.Request) {
	includeArchived := queryFlag(r, "archived")
	packets, err := s.engine.Store().ListPackets(r.Context(), includeArchived)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	views := make([]packetResponse, len(packets))
	for i, packet := range packets {
		views[i] = packetView(packet)
	}
	s.writeJSON(w, http.StatusOK, packetListResponse{Packets: views})
}

func (s *Server) createPacket(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.requireActor(w, r)
	if !ok {
		return
	}
	var payload createPacketPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	packet, items, err := s.engine.CreatePacket(r.Context(), engine.CreatePacketRequest{
		SourceRef:     payload.SourceRef,
		SourceText:    payload.SourceText,
		TemplateRef:   payload.TemplateRef,
		StyleTagRef:   payload.StyleTagRef,
		TaskType:      payload.TaskType,
		Granularity:   segment.Granularity(payload.Granularity),
		TranslatorIDs: payload.Translators,
	}, actor)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	views := make([]unitResponse, len(items))
	for i := range items {
		views[i] = unitView(&items[i])
	}
	s.writeJSON(w, http.StatusCreated, packetCreatedResponse{
		Packet: packetView(packet),
		Units:  views,
	})
}

// handlePacket serves GET /api/packets/{id} and POST /api/packets/{id}/archive.
func (s *Server) handlePacket(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/packets/")
	packetID, action, _ := strings.Cut(rest, "/")
	if packetID == "" {
		s.writeError(w, http.StatusNotFound, "packet not found")
		return
	}

	switch {
	case action == "" && r.Method == http.MethodGet:
		s.describePacket(w, r, packetID)
	case action == "archive" && r.Method == http.MethodPost:
		actor, ok := s.requireActor(w, r)
		if !ok {
			return
		}
		if err := s.engine.ArchivePacket(r.Context(), packetID, actor); err != nil {
			s.writeEngineError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, healthResponse{Status: "archived"})
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) describePacket(w http.ResponseWriter, r *http.Request, packetID string) {
	packet, err := s.engine.Store().GetPacket(r.Context(), packetID)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	if packet == nil {
		s.writeError(w, http.StatusNotFound, "packet not found")
		return
	}
	progress, err := s.engine.Store().PacketProgress(r.Context(), packetID)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	view := packetView(packet)
	view.Progress = make(map[string]int, len(progress))
	for status, count := range progress {
		view.Progress[string(status)] = count
	}
	s.writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleUnits(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	translator := strings.TrimSpace(r.URL.Query().Get("translator"))
	items, err := s.engine.ListAssigned(r.Context(), translator)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, unitListResponse{Units: unitViews(items)})
}

// handleUnitAction serves GET /api/units/{id} and the POST lifecycle verbs
// /api/units/{id}/draft, /submit, /review.
func (s *Server) handleUnitAction(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/units/")
	idRaw, action, _ := strings.Cut(rest, "/")
	unitID, err := strconv.ParseInt(idRaw, 10, 64)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid unit id")
		return
	}

	if action == "" {
		if r.Method != http.MethodGet {
			s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		s.describeUnit(w, r, unitID)
		return
	}
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	actor, ok := s.requireActor(w, r)
	if !ok {
		return
	}

	var (
		item   *unit.Item
		actErr error
	)
	switch action {
	case "draft":
		var payload draftPayload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		item, actErr = s.engine.SaveDraft(r.Context(), unitID, payload.TargetText, actor)
	case "submit":
		var payload submitPayload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		item, actErr = s.engine.Submit(r.Context(), unitID, payload.TargetText, actor)
	case "review":
		var payload reviewPayload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		item, actErr = s.engine.Review(r.Context(), unitID, engine.ReviewRequest{
			Decision: engine.Decision(payload.Decision),
			Checked:  payload.Checked,
			Reason:   payload.Reason,
		}, actor)
	default:
		s.writeError(w, http.StatusNotFound, "unknown unit action")
		return
	}
	if actErr != nil {
		s.writeEngineError(w, actErr)
		return
	}
	s.writeJSON(w, http.StatusOK, unitView(item))
}

func (s *Server) describeUnit(w http.ResponseWriter, r *http.Request, unitID int64) {
	item, err := s.engine.Store().GetItem(r.Context(), unitID)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	if item == nil {
		s.writeError(w, http.StatusNotFound, "unit not found")
		return
	}
	s.writeJSON(w, http.StatusOK, unitView(item))
}

func (s *Server) handleReviewQueue(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	queue, err := s.flow.Queue(r.Context())
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, unitListResponse{Units: unitViews(queue)})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	actor, ok := s.requireActor(w, r)
	if !ok {
		return
	}
	query := r.URL.Query()
	filter := export.Filter{
		TranslatorID: strings.TrimSpace(query.Get("translator")),
		TaskType:     strings.TrimSpace(query.Get("taskType")),
	}
	if raw := strings.TrimSpace(query.Get("from")); raw != "" {
		from, err := parseTimeParam(raw, false)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid from date")
			return
		}
		filter.From = &from
	}
	if raw := strings.TrimSpace(query.Get("to")); raw != "" {
		to, err := parseTimeParam(raw, true)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid to date")
			return
		}
		filter.To = &to
	}

	records, err := s.gate.Approved(r.Context(), filter, actor)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	if records == nil {
		records = []export.Record{}
	}
	s.writeJSON(w, http.StatusOK, records)
}

// parseTimeParam accepts RFC3339 timestamps or bare dates. A bare "to" date is
// widened to the end of that day so the range stays inclusive.
func parseTimeParam(raw string, endOfDay bool) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, raw); err == nil {
		return ts.UTC(), nil
	}
	day, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, err
	}
	if endOfDay {
		return day.Add(24*time.Hour - time.Nanosecond).UTC(), nil
	}
	return day.UTC(), nil
}

func queryFlag(r *http.Request, name string) bool {
	value := strings.TrimSpace(r.URL.Query().Get(name))
	return value == "1" || strings.EqualFold(value, "true")
}
