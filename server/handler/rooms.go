package handler

import (
	"github.com/gofiber/fiber/v2"

	"pkg.world.dev/duel/protocol"
	"pkg.world.dev/duel/room"
)

const defaultChatLimit = 50

type RoomLister interface {
	Rooms() []room.Summary
	Room(id string) (room.Summary, bool)
}

type GetRoomsResponse struct {
	Rooms []room.Summary `json:"rooms"`
}

// GetRooms godoc
//
//	@Summary      Lists open rooms in creation order
//	@Produce      application/json
//	@Success      200  {object}  GetRoomsResponse
//	@Router       /rooms [get]
func GetRooms(rooms RoomLister) func(*fiber.Ctx) error {
	return func(ctx *fiber.Ctx) error {
		return ctx.JSON(GetRoomsResponse{Rooms: rooms.Rooms()})
	}
}

func GetRoom(rooms RoomLister) func(*fiber.Ctx) error {
	return func(ctx *fiber.Ctx) error {
		summary, ok := rooms.Room(ctx.Params("id"))
		if !ok {
			return fiber.NewError(fiber.StatusNotFound, "room not found")
		}
		return ctx.JSON(summary)
	}
}

type GetChatResponse struct {
	RoomID   string          `json:"room_id"`
	Messages []protocol.Chat `json:"messages"`
}

// GetRoomChat godoc
//
//	@Summary      Returns the most recent chat messages of a room, oldest first
//	@Produce      application/json
//	@Param        id     path   string  true   "Room id"
//	@Param        limit  query  int     false  "Maximum number of messages"
//	@Success      200  {object}  GetChatResponse
//	@Failure      400  {string}  string  "Invalid limit"
//	@Router       /rooms/{id}/chat [get]
func GetRoomChat(history ChatHistory) func(*fiber.Ctx) error {
	return func(ctx *fiber.Ctx) error {
		limit, err := parseLimit(ctx, defaultChatLimit)
		if err != nil {
			return err
		}
		roomID := ctx.Params("id")
		msgs, err := history.ChatHistory(ctx.UserContext(), roomID, limit)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to read chat history: "+err.Error())
		}
		return ctx.JSON(GetChatResponse{RoomID: roomID, Messages: msgs})
	}
}

func parseLimit(ctx *fiber.Ctx, fallback int) (int, error) {
	limit := ctx.QueryInt("limit", fallback)
	if limit <= 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "limit must be a positive number")
	}
	return limit, nil
}
