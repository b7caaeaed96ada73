package app

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/womat/debug"
)

// runWebServer starts the applications web server and listens for web requests.
//  It's designed to run in a separate go function to not block the main go function.
//  e.g.: go runWebServer()
//  See app.Run()
func (app *App) runWebServer() {
	err := app.web.Listen(app.urlParsed.Host)
	debug.ErrorLog.Print(err)
}

// HandleData returns the report of the last sampling window.
func (app *App) HandleData() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		debug.InfoLog.Print("web request data")

		r, ok := app.history.Latest()
		if !ok {
			return ctx.Status(http.StatusNoContent).Send(nil)
		}
		return ctx.JSON(newReport(r))
	}
}

// HandleHistory returns the stored reports, oldest first.
func (app *App) HandleHistory() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		debug.InfoLog.Print("web request history")

		reports := app.history.Reports()
		resp := make([]report, 0, len(reports))
		for _, r := range reports {
			resp = append(resp, newReport(r))
		}
		return ctx.JSON(resp)
	}
}

// HandleSpeed returns the report line of the last sampling window as plain text.
//  e.g. rotations/s = 1.000 CW
func (app *App) HandleSpeed() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		debug.InfoLog.Print("web request speed")

		r, ok := app.history.Latest()
		if !ok {
			return ctx.Status(http.StatusNoContent).Send(nil)
		}
		return ctx.SendString(r.String())
	}
}
