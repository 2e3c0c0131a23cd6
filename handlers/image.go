package handlers

import (
	"bytes"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/nfnt/resize"
)

const (
	thumbnailHeight    = 500
	maxThumbnailHeight = 2000
	maxSourceBytes     = 20 << 20
	maxSourcePixels    = 40_000_000
)

// FetchImage fetches a recipe image from ?url=, scales it to ?h= pixels high
// (500 by default) keeping the aspect ratio, and returns it in its original
// format. Images are never scaled up.
func (s *Server) FetchImage(w http.ResponseWriter, r *http.Request) {
	imageURL := r.URL.Query().Get("url")
	if imageURL == "" {
		http.Error(w, "URL parameter is required", http.StatusBadRequest)
		return
	}
	u, err := url.Parse(imageURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		http.Error(w, "URL parameter must be an absolute http(s) URL", http.StatusBadRequest)
		return
	}

	height := uint(thumbnailHeight)
	if h := r.URL.Query().Get("h"); h != "" {
		n, err := strconv.Atoi(h)
		if err != nil || n <= 0 || n > maxThumbnailHeight {
			http.Error(w, "Invalid height", http.StatusBadRequest)
			return
		}
		height = uint(n)
	}

	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, u.String(), nil)
	if err != nil {
		http.Error(w, "Failed to fetch image", http.StatusBadGateway)
		return
	}
	resp, err := s.fetch.Do(req)
	if err != nil {
		s.log.WithField("url", imageURL).WithError(err).Warn("failed to fetch image")
		http.Error(w, "Failed to fetch image", http.StatusBadGateway)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		http.Error(w, "Failed to fetch image", http.StatusBadGateway)
		return
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxSourceBytes))
	if err != nil {
		http.Error(w, "Failed to fetch image", http.StatusBadGateway)
		return
	}
	// Dimensions come from the header; nothing above the budget is decoded.
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		http.Error(w, "Failed to decode image", http.StatusUnsupportedMediaType)
		return
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > maxSourcePixels {
		http.Error(w, "Image dimensions too large", http.StatusRequestEntityTooLarge)
		return
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		http.Error(w, "Failed to decode image", http.StatusUnsupportedMediaType)
		return
	}

	bounds := img.Bounds()
	if bounds.Dy() > int(height) {
		aspectRatio := float64(bounds.Dx()) / float64(bounds.Dy())
		width := uint(float64(height) * aspectRatio)
		if width == 0 {
			width = 1
		}
		img = resize.Resize(width, height, img, resize.Lanczos3)
	}

	format = strings.ToLower(format)
	w.Header().Set("Content-Type", "image/"+format)
	w.Header().Set("Cache-Control", "public, max-age=86400")
	switch format {
	case "jpeg":
		err = jpeg.Encode(w, img, &jpeg.Options{Quality: 85})
	case "png":
		err = png.Encode(w, img)
	case "gif":
		err = gif.Encode(w, img, nil)
	default:
		w.Header().Del("Content-Type")
		http.Error(w, "Unsupported image format", http.StatusUnsupportedMediaType)
		return
	}
	if err != nil {
		s.log.WithField("url", imageURL).WithError(err).Warn("failed to encode image")
	}
}
