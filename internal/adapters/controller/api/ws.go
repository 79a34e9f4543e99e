package api

import (
	"encoding/json"
	"github.com/Badsnus/qr-studio/internal/domain/service"
	qr "github.com/Badsnus/qr-studio/pkg/qrcode"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"net/http"
	"sync"
	"time"
)

const wsWriteTimeout = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 64 << 10,
}

// PreviewError is sent instead of a preview when a request fails.
type PreviewError struct {
	Seq   uint64 `json:"seq,omitempty"`
	Error string `json:"error"`
}

// PreviewSocket streams previews for an editing session. Every text message
// is a RenderRequest; only the newest request's preview is ever written back.
func (h *Handler) PreviewSocket(w http.ResponseWriter, r *http.Request) {
	session := mux.Vars(r)["session"]
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warnf("preview socket upgrade failed: %v", err)
		return
	}
	defer conn.Close()
	defer h.previews.Forget(session)

	previewer := h.previews.Session(session)
	var (
		writeMu sync.Mutex
		wg      sync.WaitGroup
	)
	write := func(v any) {
		writeMu.Lock()
		defer writeMu.Unlock()
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if err := conn.WriteJSON(v); err != nil {
			h.logger.Debugf("preview socket write failed: %v", err)
		}
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			break
		}

		var req RenderRequest
		if err = json.Unmarshal(data, &req); err != nil {
			write(PreviewError{Error: "invalid request"})
			continue
		}
		c, _, err := h.customization(&req)
		if err != nil {
			write(PreviewError{Error: err.Error()})
			continue
		}

		out := previewer.Request(r.Context(), req.Payload, c)
		wg.Add(1)
		go func() {
			defer wg.Done()
			pv := <-out
			if pv.Superseded {
				return
			}
			if pv.Err != nil {
				write(PreviewError{Seq: pv.Seq, Error: pv.Err.Error()})
				return
			}
			resp, err := previewResponse(pv)
			if err != nil {
				write(PreviewError{Seq: pv.Seq, Error: err.Error()})
				return
			}
			write(resp)
		}()
	}
	previewer.Stop()
	wg.Wait()
}

func previewResponse(pv service.Preview) (PreviewResponse, error) {
	file, err := pv.Result.File("preview", qr.FormatPNG)
	if err != nil {
		return PreviewResponse{}, err
	}
	return PreviewResponse{
		Seq:      pv.Seq,
		Image:    file.DataURL(),
		Fallback: pv.Result.Fallback,
		Warnings: warnings(pv.Result),
	}, nil
}
