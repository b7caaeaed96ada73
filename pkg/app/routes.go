package app

// initDefaultRoutes initializes the applications default routes.
//  Every web service can be disabled in the webservices section of the config file.
func (app *App) initDefaultRoutes() {
	api := app.web.Group("/")
	if app.config.Webserver.Webservices["version"] {
		api.Get("/version", app.HandleVersion())
	}
	if app.config.Webserver.Webservices["health"] {
		api.Get("/health", app.HandleHealth())
	}
	if app.config.Webserver.Webservices["data"] {
		api.Get("/data", app.HandleData())
	}
	if app.config.Webserver.Webservices["history"] {
		api.Get("/history", app.HandleHistory())
	}
	if app.config.Webserver.Webservices["speed"] {
		api.Get("/speed", app.HandleSpeed())
	}
}
