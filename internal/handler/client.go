package handler

import (
	"net/http"

	"github.com/gorilla/websocket"

	"ppemonitor/internal/logger"
	"ppemonitor/internal/service"
)

// Upgrader upgrades HTTP connections to WebSocket; CheckOrigin allows all origins.
var Upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// EventsWebsocketHandler registers viewer connections in the HubService so they
// receive detection events. A late joiner first gets the last event sent.
func EventsWebsocketHandler(manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		connection, err := Upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Error("WebSocket upgrade error: %v", err)
			return
		}

		hub := manager.GetWebsocketService()
		hub.Register(connection)
		defer hub.Unregister(connection)

		if last, ok := hub.LastMessage(); ok {
			if err := hub.SendTo(connection, last); err != nil {
				logger.Error("Error replaying last message: %v", err)
			}
		}

		for {
			messageType, data, err := connection.ReadMessage()
			if err != nil {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
					logger.Info("Viewer disconnected normally")
				} else {
					logger.Info("Viewer disconnected: %v", err)
				}
				break
			}
			if messageType == websocket.TextMessage {
				logger.Info("Message from viewer: %s", data)
			}
		}
	}
}
