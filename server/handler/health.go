package handler

import "github.com/gofiber/fiber/v2"

type GetHealthResponse struct {
	IsServerRunning   bool `json:"isServerRunning"`
	IsGameLoopRunning bool `json:"isGameLoopRunning"`
	Players           int  `json:"players"`
	Connections       int  `json:"connections"`
}

type HealthSource interface {
	PlayerCount() int
	ConnectionCount() int
}

// GetHealth godoc
//
//	@Summary      Returns the health of the server and the game loop
//	@Produce      application/json
//	@Success      200  {object}  GetHealthResponse
//	@Router       /health [get]
func GetHealth(src HealthSource, isGameLoopRunning func() bool) func(*fiber.Ctx) error {
	return func(ctx *fiber.Ctx) error {
		running := false
		if isGameLoopRunning != nil {
			running = isGameLoopRunning()
		}
		return ctx.JSON(GetHealthResponse{
			IsServerRunning:   true,
			IsGameLoopRunning: running,
			Players:           src.PlayerCount(),
			Connections:       src.ConnectionCount(),
		})
	}
}
