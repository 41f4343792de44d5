package handler

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"pkg.world.dev/duel/protocol"
	"pkg.world.dev/duel/storage/redis"
)

type ChatHistory interface {
	ChatHistory(ctx context.Context, roomID string, limit int) ([]protocol.Chat, error)
}

type MatchHistory interface {
	RecentResults(ctx context.Context, limit int) ([]redis.MatchResult, error)
}

type StatsReader interface {
	PlayerStats(ctx context.Context, name string) (redis.PlayerStats, error)
}

type GetMatchesResponse struct {
	Matches []redis.MatchResult `json:"matches"`
}

// GetMatches godoc
//
//	@Summary      Returns the most recently finished matches, newest first
//	@Produce      application/json
//	@Param        limit  query  int  false  "Maximum number of matches"
//	@Success      200  {object}  GetMatchesResponse
//	@Router       /matches [get]
func GetMatches(matches MatchHistory, defaultLimit int) func(*fiber.Ctx) error {
	return func(ctx *fiber.Ctx) error {
		limit, err := parseLimit(ctx, defaultLimit)
		if err != nil {
			return err
		}
		results, err := matches.RecentResults(ctx.UserContext(), limit)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to read matches: "+err.Error())
		}
		return ctx.JSON(GetMatchesResponse{Matches: results})
	}
}

func GetPlayerStats(stats StatsReader) func(*fiber.Ctx) error {
	return func(ctx *fiber.Ctx) error {
		name := ctx.Params("name")
		if name == "" {
			return fiber.NewError(fiber.StatusBadRequest, "player name is required")
		}
		s, err := stats.PlayerStats(ctx.UserContext(), name)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to read stats: "+err.Error())
		}
		return ctx.JSON(s)
	}
}

// GetMessageSchemas returns the JSON schema of every client payload keyed by message type.
func GetMessageSchemas() func(*fiber.Ctx) error {
	schemas := protocol.Schemas()
	return func(ctx *fiber.Ctx) error {
		return ctx.JSON(schemas)
	}
}
