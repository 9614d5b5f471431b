package gateway

import (
	"errors"
	"sort"

	"github.com/gofiber/fiber/v2"

	"github.com/example/collab-editor-demo/modules/problem"
	"github.com/example/collab-editor-demo/modules/runner"
)

const defaultHistoryLimit = 50

// healthHandler reports liveness plus a couple of headline numbers.
func (m *Module) healthHandler(c *fiber.Ctx) error {
	return c.JSON(HealthResponse{
		Status:  "ok",
		Rooms:   m.session.RoomCount(),
		Clients: m.hub.ClientCount(),
	})
}

// listRooms returns every room with live state and its current member count.
// Rooms whose members all disconnected still appear until the janitor evicts
// them.
func (m *Module) listRooms(c *fiber.Ctx) error {
	ids := m.session.RoomIDs()
	sort.Strings(ids)

	rooms := make([]RoomInfo, 0, len(ids))
	for _, id := range ids {
		rooms = append(rooms, RoomInfo{
			RoomID:  id,
			Members: m.hub.RoomClientCount(id),
		})
	}
	return c.JSON(RoomListResponse{Rooms: rooms, Count: len(rooms)})
}

// createRoom mints a fresh room id. State materializes lazily when the first
// member joins over WebSocket.
func (m *Module) createRoom(c *fiber.Ctx) error {
	return c.Status(fiber.StatusCreated).JSON(CreateRoomResponse{RoomID: m.newRoomID()})
}

// getHistory returns the tail of a room's chat transcript.
func (m *Module) getHistory(c *fiber.Ctx) error {
	roomID := c.Params("id")
	if !m.session.HasRoom(roomID) {
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{
			Error:   "not_found",
			Message: "Room not found",
		})
	}

	limit := c.QueryInt("limit", defaultHistoryLimit)
	if limit <= 0 {
		limit = defaultHistoryLimit
	}

	messages := m.session.Messages(roomID)
	if len(messages) > limit {
		messages = messages[len(messages)-limit:]
	}

	return c.JSON(HistoryResponse{
		RoomID:   roomID,
		Messages: messages,
		Count:    len(messages),
	})
}

// getStats combines the event-driven counters with the live gauges.
func (m *Module) getStats(c *fiber.Ctx) error {
	return c.JSON(StatsResponse{
		Counters:    m.stats.Snapshot(),
		LiveRooms:   m.session.RoomCount(),
		LiveClients: m.hub.ClientCount(),
	})
}

// executeHandler compiles and runs a submitted snippet and returns the
// structured result. Program failures come back as 200 with a non-zero
// exitCode; only malformed requests and infrastructure failures are errors.
func (m *Module) executeHandler(c *fiber.Ctx) error {
	var req ExecuteRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request body",
		})
	}
	if req.Code == "" || req.Language == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "invalid_request",
			Message: "Code and language are required",
		})
	}

	result, err := m.runner.Run(c.Context(), runner.Request{
		Code:     req.Code,
		Language: req.Language,
		Stdin:    req.Stdin,
		RoomID:   req.RoomID,
	})
	if err != nil {
		if errors.Is(err, runner.ErrUnsupportedLanguage) {
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
				Error:   "unsupported_language",
				Message: err.Error(),
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error:   "execution_failed",
			Message: "Failed to execute code",
		})
	}

	return c.JSON(result)
}

// problemHandler proxies a problem lookup to the upstream source.
func (m *Module) problemHandler(c *fiber.Ctx) error {
	var req ProblemRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request body",
		})
	}
	if req.Slug == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "invalid_request",
			Message: "Problem slug is required",
		})
	}

	p, err := m.problem.Fetch(req.Slug)
	if err != nil {
		var upstreamErr *problem.UpstreamError
		switch {
		case errors.Is(err, problem.ErrNotFound):
			return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{
				Error:   "not_found",
				Message: "Problem content not found. Check the name spelling.",
			})
		case errors.As(err, &upstreamErr):
			return c.Status(fiber.StatusBadRequest).JSON(UpstreamErrorResponse{
				Error:   "upstream_error",
				Message: "Problem source reported an error",
				Details: upstreamErr.Details,
			})
		default:
			return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
				Error:   "upstream_unavailable",
				Message: "Failed to fetch problem data",
			})
		}
	}

	return c.JSON(p)
}
