package api

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// srsHookRequest is the subset of the SRS webhook payload the gate needs.
// App is the RTMP application, Stream the stream key the publisher used.
type srsHookRequest struct {
	Action string `json:"action"`
	App    string `json:"app"`
	Stream string `json:"stream"`
}

// srsHookResponse follows the SRS webhook contract: code zero allows the
// action, anything else rejects it.
type srsHookResponse struct {
	Code    int    `json:"code"`
	Action  string `json:"action,omitempty"`
	VideoID int64  `json:"videoId,omitempty"`
}

func normalizeSRSAction(action string) string {
	normalized := strings.ToLower(strings.TrimSpace(action))
	return strings.TrimPrefix(normalized, "on_")
}

func constantTimeEqual(expected, provided string) bool {
	if expected == "" || provided == "" {
		return false
	}
	if len(expected) != len(provided) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(provided)) == 1
}

func (h *Handler) srsHookAuthorized(r *http.Request) bool {
	token := strings.TrimSpace(h.SRSHookToken)
	if token == "" {
		// No token configured means the hook endpoint is open; the media
		// server is expected to sit on a private network in that setup.
		return true
	}
	if authHeader := strings.TrimSpace(r.Header.Get("Authorization")); authHeader != "" {
		if parts := strings.SplitN(authHeader, " ", 2); len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			if constantTimeEqual(token, strings.TrimSpace(parts[1])) {
				return true
			}
		}
	}
	if queryToken := strings.TrimSpace(r.URL.Query().Get("token")); queryToken != "" {
		return constantTimeEqual(token, queryToken)
	}
	return false
}

// SRSHook handles the media server's publish lifecycle callbacks. Publish is
// the gate: a non-zero code makes SRS drop the encoder connection.
func (h *Handler) SRSHook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
		return
	}
	if !h.srsHookAuthorized(r) {
		h.logger().Warn("srs hook rejected token", "path", r.URL.Path, "remote", r.RemoteAddr)
		writeError(w, http.StatusUnauthorized, fmt.Errorf("unauthorized"))
		return
	}

	var req srsHookRequest
	if r.Body != nil && r.Body != http.NoBody {
		if err := decodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, err)
			return
		}
	}
	action := normalizeSRSAction(req.Action)
	if action == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("action is required"))
		return
	}
	stream := strings.TrimSpace(req.Stream)

	switch action {
	case "publish":
		asset, err := h.Live.AuthorizePublish(r.Context(), strings.TrimSpace(req.App), stream)
		if err != nil {
			h.logger().Warn("live publish rejected", "stream", stream, "error", err)
			writeJSON(w, statusForError(err), srsHookResponse{Code: 1, Action: "on_publish"})
			return
		}
		writeJSON(w, http.StatusOK, srsHookResponse{Code: 0, Action: "on_publish", VideoID: asset.ID})
	case "unpublish":
		h.Live.EndPublish(r.Context(), strings.TrimSpace(req.App), stream)
		writeJSON(w, http.StatusOK, srsHookResponse{Code: 0, Action: "on_unpublish"})
	default:
		writeError(w, http.StatusBadRequest, fmt.Errorf("unknown action %s", req.Action))
	}
}
