package main

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const maxBodySize = 1 << 20

// envelope wraps every API response.
type envelope struct {
	Success    bool        `json:"success"`
	Data       interface{} `json:"data,omitempty"`
	Pagination *pagination `json:"pagination,omitempty"`
	Error      string      `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeData(w http.ResponseWriter, status int, data interface{}) {
	writeJSON(w, status, envelope{Success: true, Data: data})
}

func writePage(w http.ResponseWriter, data interface{}, p pagination) {
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: data, Pagination: &p})
}

func (h *hub) writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := kindOf(err)
	msg := err.Error()
	if kind == Internal {
		h.log.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
		msg = "Internal server error"
	}
	writeJSON(w, kind.status(), envelope{Success: false, Error: msg})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) error {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize)).Decode(v); err != nil {
		return newError(InvalidInput, "Invalid JSON body")
	}
	return nil
}

// guard rejects requests whose bearer credential is missing, unknown, or
// (for write) below the secret tier.
func (h *hub) guard(write bool, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := h.gate.authorize(r, write); err != nil {
			h.writeError(w, r, err)
			return
		}
		next(w, r)
	}
}

func (h *hub) read(next http.HandlerFunc) http.HandlerFunc { return h.guard(false, next) }
func (h *hub) write(next http.HandlerFunc) http.HandlerFunc { return h.guard(true, next) }

func (h *hub) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"timestamp": h.now().UTC().Format(time.RFC3339Nano),
	})
}

type tokenRequest struct {
	PublishKey string `json:"publishKey"`
	ClientID   string `json:"clientId"`
}

func (h *hub) handleToken(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	tok, err := h.gate.issue(req.PublishKey, req.ClientID, h.endpointFor(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, tok)
}

// endpointFor is the websocket URL handed out with tokens.
func (h *hub) endpointFor(r *http.Request) string {
	if h.endpoint != "" {
		return h.endpoint
	}
	scheme := "ws"
	if r.TLS != nil {
		scheme = "wss"
	}
	return scheme + "://" + r.Host + "/ws"
}

func (h *hub) handleListChannels(w http.ResponseWriter, r *http.Request) {
	items, p := h.list(pageFromQuery(r, defaultChannelsPage))
	writePage(w, items, p)
}

func (h *hub) handleCreateChannel(w http.ResponseWriter, r *http.Request) {
	var spec channelSpec
	if err := decodeBody(w, r, &spec); err != nil {
		h.writeError(w, r, err)
		return
	}
	c, err := h.create(spec)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, c)
}

func (h *hub) handleGetChannel(w http.ResponseWriter, r *http.Request) {
	c, err := h.get(mux.Vars(r)["slug"])
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, c)
}

func (h *hub) handleUpdateChannel(w http.ResponseWriter, r *http.Request) {
	var p channelPatch
	if err := decodeBody(w, r, &p); err != nil {
		h.writeError(w, r, err)
		return
	}
	c, err := h.update(mux.Vars(r)["slug"], p)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, c)
}

func (h *hub) handleDeleteChannel(w http.ResponseWriter, r *http.Request) {
	if err := h.delete(mux.Vars(r)["slug"]); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *hub) handleHistory(w http.ResponseWriter, r *http.Request) {
	items, p, err := h.history(mux.Vars(r)["slug"], pageFromQuery(r, defaultMessagesPage))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writePage(w, items, p)
}

func (h *hub) handlePublish(w http.ResponseWriter, r *http.Request) {
	var req publishRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	res, err := h.publish(mux.Vars(r)["slug"], req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, res)
}

type wsHandler struct {
	h        *hub
	upgrader *websocket.Upgrader
}

// ServeHTTP admits a websocket carrying a valid ?token. Bad tokens are
// upgraded and then closed with 4001 so browser clients can see why.
func (wsh wsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	claims, verr := wsh.h.gate.verify(r.URL.Query().Get("token"))
	ws, err := wsh.upgrader.Upgrade(w, r, nil)
	if err != nil {
		wsh.h.log.Debug("websocket upgrade failed", zap.Error(err))
		return
	}
	if verr != nil {
		_ = ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(closeInvalidToken, verr.Error()),
			time.Now().Add(writeWait))
		ws.Close()
		return
	}
	newConnection(ws, wsh.h).run(claims.ClientID)
}
