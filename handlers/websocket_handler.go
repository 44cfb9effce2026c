package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/cybermouflons/CTFNote/feed"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Фронтенд живёт на другом origin.
		return true
	},
}

// ServeFeed обрабатывает GET /ws/ctfs/{ctfID}: подписывает клиента на
// фид активности соревнования.
func ServeFeed(hub *feed.Hub, w http.ResponseWriter, r *http.Request) {
	ctfID, err := getIDFromURL(r, "ctfID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("failed to upgrade feed connection", slog.Any("error", err))
		return
	}

	client := &feed.Client{
		Hub:  hub,
		Conn: conn,
		Send: make(chan []byte, 256),
		Room: feed.RoomID(ctfID),
	}
	hub.Register <- client

	go client.WritePump()
	go client.ReadPump()
}
