package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/ironsheep/edge-map-service/internal/logger"
)

const (
	greetingNamed   = "Hello, %s. This HTTP triggered function executed successfully."
	greetingGeneric = "This HTTP triggered function executed successfully. Pass a name in the query string or in the request body for a personalized response."

	// maxHelloBody bounds how much of a greeting body is parsed.
	maxHelloBody = 64 << 10
)

// handleEdges reads the whole body as an encoded image and answers with its
// JPEG edge map.
func (s *Server) handleEdges(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			sendErrorResponse(w, r, "body_too_large",
				fmt.Sprintf("Request body exceeds %d bytes", tooLarge.Limit), http.StatusRequestEntityTooLarge)
			return
		}
		log.Warn("failed to read request body", zap.Error(err))
		sendErrorResponse(w, r, "invalid_request", "Failed to read request body", http.StatusBadRequest)
		return
	}
	if len(body) == 0 {
		sendErrorResponse(w, r, "empty_body", "Request body must contain an image", http.StatusBadRequest)
		return
	}

	res, err := s.pipeline.Process(r.Context(), log, body)
	if err != nil {
		code, message, status := classifyError(err)
		if status >= http.StatusInternalServerError {
			log.Error("edge map failed", zap.String("code", code), zap.Error(err))
		} else {
			log.Info("edge map rejected", zap.String("code", code), zap.Error(err))
		}
		sendErrorResponse(w, r, code, message, status)
		return
	}

	h := w.Header()
	h.Set("Content-Type", "image/jpeg")
	h.Set("Content-Disposition", `attachment; filename="image.jpg"`)
	h.Set("Content-Length", strconv.Itoa(len(res.JPEG)))
	h.Set("X-Edge-Pixels", strconv.Itoa(res.EdgePixels))
	h.Set("X-Image-Width", strconv.Itoa(res.Width))
	h.Set("X-Image-Height", strconv.Itoa(res.Height))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(res.JPEG); err != nil {
		log.Warn("failed to write edge map", zap.Error(err))
	}
}

// handleHello greets by the name query parameter, falling back to a "name"
// field in a JSON body. Bodies that are not JSON objects are ignored.
func (s *Server) handleHello(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	name := r.URL.Query().Get("name")
	if name == "" && r.Body != nil {
		var req struct {
			Name string `json:"name"`
		}
		if err := json.NewDecoder(io.LimitReader(r.Body, maxHelloBody)).Decode(&req); err == nil {
			name = req.Name
		}
	}
	log.Info("hello request", zap.Bool("named", name != ""), zap.String("backend", s.pipeline.Backend()))

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if name != "" {
		fmt.Fprintf(w, greetingNamed, name)
		return
	}
	io.WriteString(w, greetingGeneric)
}

type healthResponse struct {
	Status  string `json:"status"`
	Backend string `json:"backend"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	err := json.NewEncoder(w).Encode(healthResponse{
		Status:  "ok",
		Backend: s.pipeline.Backend(),
	})
	if err != nil {
		logger.FromContext(r.Context()).Warn("failed to write health response", zap.Error(err))
	}
}
