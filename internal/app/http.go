package app

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/campus-admin-agent/internal/agent"
	"github.com/noah-isme/campus-admin-agent/internal/handler"
	"github.com/noah-isme/campus-admin-agent/internal/middleware"
	"github.com/noah-isme/campus-admin-agent/internal/router"
	"github.com/noah-isme/campus-admin-agent/internal/service"
)

// HTTP builds the fiber application serving the assistant API.
func (a *App) HTTP() (*fiber.App, error) {
	profile, err := agent.LookupProfile(a.Config.AgentProfile)
	if err != nil {
		return nil, err
	}

	server := fiber.New(fiber.Config{
		AppName:      a.Config.AppName,
		ServerHeader: a.Config.AppName,
	})

	logger := a.Logger
	middleware.Register(server, middleware.Config{Logger: &logger, AllowOrigins: a.Config.CORSOrigins})

	var jwtMiddleware fiber.Handler
	if a.Config.JWTSecret != "" {
		jwtMiddleware = middleware.JWTProtected(a.Config.JWTSecret)
	}

	router.Register(server, a.Config, router.Dependencies{
		DB:              a.DB,
		ChatHandler:     handler.NewChatHandler(a.Runner, a.Memory(), profile, service.NewValidator(), a.Logger),
		ToolHandler:     handler.NewToolHandler(a.Registry, a.Logger),
		ActivityHandler: handler.NewActivityHandler(a.Activity, a.Logger),
		JWTMiddleware:   jwtMiddleware,
		ChatRateLimit:   a.Config.ChatRateLimit,
	})
	return server, nil
}
