package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/airsql/airsql/internal/query"
	"github.com/airsql/airsql/pkg"
)

type WatchRequest struct {
	Query string `json:"query"`
	ReqId int    `json:"req_id"` // echoed back so clients can match replies
}

type WatchResponse struct {
	Data    string `json:"data"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	ReqId   int    `json:"req_id"`
}

var upgrader = websocket.Upgrader{
	WriteBufferSize: 1024 * 10,
	ReadBufferSize:  1024 * 10,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// ServeWatch runs the websocket endpoint. Each message carries one query;
// a wait query keeps its reply pending on the long-lived connection until
// data appears instead of holding an HTTP response open. Every execution
// passes through the same admission gate as plain connections.
func (s *Server) ServeWatch(port int) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/watch", s.WatchHandler)
	return http.ListenAndServe(fmt.Sprintf(":%d", port), mux)
}

func (s *Server) WatchHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		pkg.ErrorLog(err)
		return
	}
	pkg.InfoLog("new watch connection from", conn.RemoteAddr())
	defer conn.Close()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				pkg.ErrorLog("unexpected close", err)
			} else {
				pkg.DebugLog("watch connection closed", err)
			}
			return
		}

		var req WatchRequest
		if err := json.Unmarshal(message, &req); err != nil {
			pkg.ErrorLog("parsing watch request", err)
			continue
		}

		s.acquire()
		out, exec_err := Execute(s.Registry, req.Query)
		s.release()

		res := WatchResponse{Status: http.StatusOK, Message: "ok", Data: out, ReqId: req.ReqId}
		if exec_err != nil {
			status := http.StatusBadRequest
			if qe, ok := exec_err.(*query.QueryError); ok {
				status = qe.Status()
			}
			res = WatchResponse{Status: status, Message: exec_err.Error(), ReqId: req.ReqId}
		}
		if err := conn.WriteJSON(res); err != nil {
			pkg.ErrorLog("writing watch response", err)
			return
		}
	}
}
