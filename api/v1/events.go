package v1

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"nhooyr.io/websocket"
)

// Events upgrades the request to a websocket and streams the session's
// progress, completion and error notifications until the session reaches a
// terminal event or the client goes away. An empty id streams all sessions.
func (sh *SessionHandler) Events(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		markErr(w, err)
		return
	}
	defer func() { _ = conn.Close(websocket.StatusInternalError, "closed") }()

	ch, detach := sh.hub.Subscribe(id, 32)
	defer detach()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			_ = conn.Close(websocket.StatusNormalClosure, "done")
			return
		case e, ok := <-ch:
			if !ok {
				_ = conn.Close(websocket.StatusNormalClosure, "done")
				return
			}
			b, merr := json.Marshal(e)
			if merr != nil {
				continue
			}
			if werr := conn.Write(ctx, websocket.MessageText, b); werr != nil {
				return
			}
			if id != "" && e.Type.Terminal() {
				_ = conn.Close(websocket.StatusNormalClosure, "session ended")
				return
			}
		}
	}
}
