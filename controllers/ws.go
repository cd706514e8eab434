package controllers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/jenkinph/procedure-passport/services"
)

const roomKey = "ws_room"

// DashboardUpgrade picks the room of a dashboard socket: a resident's own
// room, or for admins the room of ?resident= or the admin room.
func DashboardUpgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	id := identity(c)
	room := services.ResidentRoom(id.Email)
	if id.IsAdmin() {
		room = services.AdminRoom
		if r := c.Query("resident"); r != "" {
			room = services.ResidentRoom(r)
		}
	}
	c.Locals(roomKey, room)
	return c.Next()
}

// DashboardSocket holds the connection open until the browser leaves.
var DashboardSocket = websocket.New(func(conn *websocket.Conn) {
	room, _ := conn.Locals(roomKey).(string)
	Svc.Hub.Serve(room, conn)
})
