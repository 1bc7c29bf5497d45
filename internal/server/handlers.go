package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/sellerdesk/approvals/internal/errors"
	"github.com/sellerdesk/approvals/internal/platform/httpx"
	"github.com/sellerdesk/approvals/internal/storage"
	"github.com/sellerdesk/approvals/internal/workflow/domain"
	"github.com/sellerdesk/approvals/internal/workflow/engine"
	"github.com/sellerdesk/approvals/internal/workflow/projection"
)

// defaultHistoryLimit caps history responses unless the caller asks for more.
const defaultHistoryLimit = 100

// transitionBody is the request shape for single and bulk transitions. The
// raw body doubles as the guard payload so guard fields (commission, refund
// amount, ...) need no envelope.
type transitionBody struct {
	Reason string   `json:"reason"`
	Notes  string   `json:"notes"`
	IDs    []string `json:"ids"`
}

type transitionResponse struct {
	Status  string `json:"status"`
	Version int64  `json:"version"`
}

type escalatedResponse struct {
	EscalationID string `json:"escalationId"`
}

type bulkResponse struct {
	Succeeded   []string          `json:"succeeded"`
	Escalated   []string          `json:"escalated,omitempty"`
	Failed      map[string]string `json:"failed"`
	Disposition string            `json:"disposition"`
}

// handleEntityPost dispatches the two POST shapes under /entities/{type}/:
// {id}/transitions/{action} and transitions/{action}/bulk.
func (s *Server) handleEntityPost(w http.ResponseWriter, r *http.Request) {
	// The path type segment scopes every lookup: an entity addressed under
	// the wrong type is a 404, never a cross-type transition.
	entityType, ok := domain.ParseEntityType(r.PathValue("type"))
	if !ok {
		writeError(w, r, apperrors.WithMetadata(apperrors.CodeBadRequest, "unknown entity type",
			map[string]string{"EntityType": r.PathValue("type")}))
		return
	}

	rest := strings.Split(strings.Trim(r.PathValue("rest"), "/"), "/")
	switch {
	case len(rest) == 3 && rest[0] == "transitions" && rest[2] == "bulk":
		s.handleBulkTransition(w, r, entityType, rest[1])
	case len(rest) == 3 && rest[1] == "transitions":
		s.handleTransition(w, r, entityType, rest[0], rest[2])
	default:
		http.NotFound(w, r)
	}
}

func (s *Server) handleTransition(w http.ResponseWriter, r *http.Request, entityType domain.EntityType, entityID, action string) {
	actor, ok := actorFromContext(r.Context())
	if !ok {
		writeError(w, r, apperrors.New(apperrors.CodeUnauthenticated, "missing actor"))
		return
	}

	body, payload, err := decodeTransitionBody(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	result, err := s.engine.Execute(httpx.RequestContext(r), engine.Request{
		EntityID:   entityID,
		EntityType: entityType,
		Action:     action,
		Actor:      actor,
		Payload:    payload,
		Reason:     body.Reason,
		Notes:      body.Notes,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	if result.Disposition == engine.DispositionEscalated {
		_ = httpx.WriteJSON(w, http.StatusAccepted, escalatedResponse{EscalationID: result.Escalation.ID})
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, transitionResponse{
		Status:  string(result.Status),
		Version: result.Version,
	})
}

func (s *Server) handleBulkTransition(w http.ResponseWriter, r *http.Request, entityType domain.EntityType, action string) {
	actor, ok := actorFromContext(r.Context())
	if !ok {
		writeError(w, r, apperrors.New(apperrors.CodeUnauthenticated, "missing actor"))
		return
	}

	body, payload, err := decodeTransitionBody(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if len(body.IDs) == 0 {
		writeError(w, r, apperrors.New(apperrors.CodeBadRequest, "ids are required"))
		return
	}

	result := s.engine.ExecuteBulk(httpx.RequestContext(r), body.IDs, engine.Request{
		EntityType: entityType,
		Action:     action,
		Actor:      actor,
		Payload:    payload,
		Reason:     body.Reason,
		Notes:      body.Notes,
	})

	failed := make(map[string]string, len(result.Failed))
	for entityID, code := range result.Failed {
		failed[entityID] = string(code)
	}
	_ = httpx.WriteJSON(w, http.StatusMultiStatus, bulkResponse{
		Succeeded:   result.Succeeded,
		Escalated:   result.Escalated,
		Failed:      failed,
		Disposition: string(result.Disposition()),
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	entityType, ok := domain.ParseEntityType(r.PathValue("type"))
	if !ok {
		writeError(w, r, apperrors.New(apperrors.CodeBadRequest, "unknown entity type"))
		return
	}
	entityID := r.PathValue("id")

	// History stays readable regardless of the entity's current state, but an
	// unknown id, or an id addressed under the wrong type, is still a 404.
	entity, err := s.store.GetEntity(httpx.RequestContext(r), entityID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, r, apperrors.WithMetadata(apperrors.CodeNotFound, "entity not found",
				map[string]string{"EntityID": entityID}))
			return
		}
		writeError(w, r, apperrors.Wrap(apperrors.CodeUnknown, "load entity", err))
		return
	}
	if entity.Type != entityType {
		writeError(w, r, apperrors.WithMetadata(apperrors.CodeNotFound, "entity not found",
			map[string]string{"EntityID": entityID, "EntityType": string(entityType)}))
		return
	}

	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			writeError(w, r, apperrors.New(apperrors.CodeBadRequest, "limit must be a positive integer"))
			return
		}
		limit = parsed
	}

	entries, err := s.store.ListAuditEntries(httpx.RequestContext(r), entityID, limit)
	if err != nil {
		writeError(w, r, apperrors.Wrap(apperrors.CodeUnknown, "list audit entries", err))
		return
	}

	type entryBody struct {
		FromStatus       string    `json:"fromStatus"`
		ToStatus         string    `json:"toStatus"`
		Action           string    `json:"action"`
		ActorID          string    `json:"actorId"`
		RequestedBy      string    `json:"requestedBy,omitempty"`
		Reason           string    `json:"reason,omitempty"`
		Notes            string    `json:"notes,omitempty"`
		OccurredAt       time.Time `json:"occurredAt"`
		ResultingVersion int64     `json:"resultingVersion"`
	}
	out := make([]entryBody, 0, len(entries))
	for _, entry := range entries {
		out = append(out, entryBody{
			FromStatus:       string(entry.FromStatus),
			ToStatus:         string(entry.ToStatus),
			Action:           entry.Action,
			ActorID:          entry.ActorID,
			RequestedBy:      entry.RequestedBy,
			Reason:           entry.Reason,
			Notes:            entry.Notes,
			OccurredAt:       entry.OccurredAt,
			ResultingVersion: entry.ResultingVersion,
		})
	}
	_ = httpx.WriteJSON(w, http.StatusOK, map[string]any{"entries": out})
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	entityType, ok := domain.ParseEntityType(r.PathValue("type"))
	if !ok {
		writeError(w, r, apperrors.New(apperrors.CodeBadRequest, "unknown entity type"))
		return
	}

	query := r.URL.Query()
	filters := projection.Filters{
		Category: strings.TrimSpace(query.Get("category")),
		Search:   strings.TrimSpace(query.Get("search")),
	}
	if raw := strings.TrimSpace(query.Get("status")); raw != "" {
		status, ok := domain.ParseStatus(raw)
		if !ok {
			writeError(w, r, apperrors.WithMetadata(apperrors.CodeBadRequest, "unknown status",
				map[string]string{"Status": raw}))
			return
		}
		filters.Status = status
	}

	page := parseIntOr(query.Get("page"), 1)
	pageSize := parseIntOr(query.Get("limit"), 0)

	result, err := s.projection.Query(httpx.RequestContext(r), entityType, filters, page, pageSize)
	if err != nil {
		writeError(w, r, err)
		return
	}

	type itemBody struct {
		ID       string          `json:"id"`
		Type     string          `json:"type"`
		Status   string          `json:"status"`
		Name     string          `json:"name"`
		Category string          `json:"category,omitempty"`
		Domain   json.RawMessage `json:"domain,omitempty"`
		Version  int64           `json:"version"`
	}
	items := make([]itemBody, 0, len(result.Items))
	for _, entity := range result.Items {
		items = append(items, itemBody{
			ID:       entity.ID,
			Type:     string(entity.Type),
			Status:   string(entity.Status),
			Name:     entity.Name,
			Category: entity.Category,
			Domain:   entity.Domain,
			Version:  entity.Version,
		})
	}
	_ = httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"items": items,
		"page":  result.Page,
		"pages": result.Pages,
		"total": result.Total,
	})
}

func (s *Server) handleListEscalations(w http.ResponseWriter, r *http.Request) {
	var status domain.EscalationStatus
	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		parsed, ok := domain.ParseEscalationStatus(raw)
		if !ok {
			writeError(w, r, apperrors.New(apperrors.CodeBadRequest, "unknown escalation status"))
			return
		}
		status = parsed
	}

	escalations, err := s.store.ListEscalations(httpx.RequestContext(r), status, 0)
	if err != nil {
		writeError(w, r, apperrors.Wrap(apperrors.CodeUnknown, "list escalations", err))
		return
	}

	type escalationBody struct {
		ID           string          `json:"id"`
		EntityID     string          `json:"entityId"`
		EntityType   string          `json:"entityType"`
		Action       string          `json:"action"`
		TargetStatus string          `json:"targetStatus"`
		Payload      json.RawMessage `json:"payload,omitempty"`
		Reason       string          `json:"reason,omitempty"`
		RequestedBy  string          `json:"requestedBy"`
		RequestedAt  time.Time       `json:"requestedAt"`
		Status       string          `json:"status"`
	}
	out := make([]escalationBody, 0, len(escalations))
	for _, escalation := range escalations {
		out = append(out, escalationBody{
			ID:           escalation.ID,
			EntityID:     escalation.EntityID,
			EntityType:   string(escalation.EntityType),
			Action:       escalation.Action,
			TargetStatus: string(escalation.TargetStatus),
			Payload:      escalation.PayloadJSON,
			Reason:       escalation.Reason,
			RequestedBy:  escalation.RequestedBy,
			RequestedAt:  escalation.RequestedAt,
			Status:       string(escalation.Status),
		})
	}
	_ = httpx.WriteJSON(w, http.StatusOK, map[string]any{"escalations": out})
}

type resolveBody struct {
	Reason string `json:"reason"`
}

func (s *Server) handleConfirm(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromContext(r.Context())
	if !ok {
		writeError(w, r, apperrors.New(apperrors.CodeUnauthenticated, "missing actor"))
		return
	}
	var body resolveBody
	if err := httpx.DecodeJSON(r, &body); err != nil {
		writeError(w, r, apperrors.Wrap(apperrors.CodeBadRequest, "invalid request body", err))
		return
	}

	result, err := s.engine.Confirm(httpx.RequestContext(r), r.PathValue("id"), actor, body.Reason)
	if err != nil {
		writeError(w, r, err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, transitionResponse{
		Status:  string(result.Status),
		Version: result.Version,
	})
}

func (s *Server) handleDismiss(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromContext(r.Context())
	if !ok {
		writeError(w, r, apperrors.New(apperrors.CodeUnauthenticated, "missing actor"))
		return
	}
	var body resolveBody
	if err := httpx.DecodeJSON(r, &body); err != nil {
		writeError(w, r, apperrors.Wrap(apperrors.CodeBadRequest, "invalid request body", err))
		return
	}

	if err := s.engine.Dismiss(httpx.RequestContext(r), r.PathValue("id"), actor, body.Reason); err != nil {
		writeError(w, r, err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "dismissed"})
}

// decodeTransitionBody reads the body once and returns both the parsed
// envelope fields and the raw JSON for guard evaluation.
func decodeTransitionBody(r *http.Request) (transitionBody, json.RawMessage, error) {
	var raw json.RawMessage
	if err := httpx.DecodeJSON(r, &raw); err != nil {
		return transitionBody{}, nil, apperrors.Wrap(apperrors.CodeBadRequest, "invalid request body", err)
	}
	if len(raw) == 0 {
		return transitionBody{}, nil, nil
	}
	var body transitionBody
	if err := json.Unmarshal(raw, &body); err != nil {
		return transitionBody{}, nil, apperrors.Wrap(apperrors.CodeBadRequest, "invalid request body", err)
	}
	return body, raw, nil
}

func parseIntOr(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return parsed
}
