package server

import (
	"fmt"
	"net/http"
	"time"

	"gocv.io/x/gocv"

	"github.com/seniorcare/nightwatchman/internal/capture"
)

const streamBoundary = "nightwatchmanframe"

// StreamHandler serves the camera as an MJPEG stream, for positioning the
// device over the bed during setup.
type StreamHandler struct {
	camera capture.Camera
}

// NewStreamHandler creates a StreamHandler reading from the given camera.
func NewStreamHandler(camera capture.Camera) *StreamHandler {
	return &StreamHandler{camera: camera}
}

// ServeHTTP streams JPEG-encoded frames until the client disconnects. The
// stream paces itself to the camera's configured FPS and keeps retrying at
// that cadence when a frame read fails, so a briefly busy camera does not
// tear down the connection.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary="+streamBoundary)
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	interval := h.frameInterval()
	for {
		select {
		case <-r.Context().Done():
			return
		default:
		}

		if err := h.writeFrame(w); err != nil {
			// A write error means the client is gone; read errors are
			// retried on the next pass.
			if _, ok := err.(writeError); ok {
				return
			}
		}

		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		time.Sleep(interval)
	}
}

// writeError marks a failure on the client connection, as opposed to a
// camera-side failure.
type writeError struct{ err error }

func (e writeError) Error() string { return e.err.Error() }

func (h *StreamHandler) writeFrame(w http.ResponseWriter) error {
	frame, err := h.camera.ReadFrame()
	if err != nil {
		return err
	}

	buf, err := gocv.IMEncode(".jpg", *frame)
	frame.Close()
	if err != nil {
		return err
	}
	defer buf.Close()

	if _, err := fmt.Fprintf(w, "--%s\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n",
		streamBoundary, buf.Len()); err != nil {
		return writeError{err}
	}
	if _, err := w.Write(buf.GetBytes()); err != nil {
		return writeError{err}
	}
	if _, err := fmt.Fprint(w, "\r\n"); err != nil {
		return writeError{err}
	}
	return nil
}

// frameInterval derives the stream cadence from the camera's FPS setting.
func (h *StreamHandler) frameInterval() time.Duration {
	fps := h.camera.FPS()
	if fps <= 0 {
		fps = capture.DefaultFPS
	}
	return time.Second / time.Duration(fps)
}
