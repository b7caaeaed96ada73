package app

import (
	"net/http"
	"os"
	"runtime"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/womat/debug"
)

// HandleHealth returns data about the health of myself and the edge delivery.
// output example:
//  {"NumGoroutines":11,"NumCPU":4,"HeapAllocatedBytes":332256,"HeapAllocatedMB":0,
//   "SysMemoryBytes":360290312,"SysMemoryMB":343,"Version":"1.0.00+20261001","ProgLang":"go1.17.2",
//   "HostName":"raspi","Time":"2026-10-19T10:00:00+02:00","Backend":"gpiod",
//   "Edges":48960,"Unresolved":0,"Dropped":0,"MQTTConnected":true}
func (app *App) HandleHealth() fiber.Handler {
	bToMb := func(b uint64) uint64 {
		return b / 1024 / 1024
	}

	host, _ := os.Hostname()

	return func(ctx *fiber.Ctx) error {
		debug.InfoLog.Print("web request health")

		var m runtime.MemStats
		runtime.ReadMemStats(&m)

		hab := m.Alloc
		smb := m.Sys

		healthData := struct {
			NumGoroutines      int
			NumCPU             int
			HeapAllocatedBytes uint64
			HeapAllocatedMB    uint64
			SysMemoryBytes     uint64
			SysMemoryMB        uint64
			Version            string
			ProgLang           string
			HostName           string
			Time               string
			Backend            string
			Edges              uint64
			Unresolved         uint64
			Dropped            uint64
			MQTTConnected      bool
		}{
			NumGoroutines:      runtime.NumGoroutine(),
			NumCPU:             runtime.NumCPU(),
			HeapAllocatedBytes: hab,
			HeapAllocatedMB:    bToMb(hab),
			SysMemoryBytes:     smb,
			SysMemoryMB:        bToMb(smb),
			ProgLang:           runtime.Version(),
			Version:            VERSION,
			HostName:           host,
			Time:               time.Now().Format(time.RFC3339),
			Backend:            app.config.Encoder.Backend,
			MQTTConnected:      app.mqtt.Connected(),
		}

		if app.monitor != nil {
			s := app.monitor.Stats()
			healthData.Edges = s.Edges
			healthData.Unresolved = s.Unresolved
			healthData.Dropped = s.Dropped
		}

		ctx.Status(http.StatusOK)
		return ctx.JSON(healthData)
	}
}
