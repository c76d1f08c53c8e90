package handlers

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"excursion/middleware"
)

// Export streams the gallery records as CSV.
func (h *GalleryHandler) Export(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	const op = "gallery.Export"

	user, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		writeError(w, "User not found in context", http.StatusUnauthorized)
		return
	}

	items := h.gallery.List(r.Context())

	// Set headers for CSV download
	timestamp := time.Now().Format("2006-01-02_15-04-05")
	filename := fmt.Sprintf("senegal_excursion_gallery_%s.csv", timestamp)
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))

	writer := csv.NewWriter(w)
	defer writer.Flush()

	header := []string{
		"ID",
		"Title",
		"Location",
		"Kind",
		"Image",
		"Description",
		"Created",
		"Updated",
	}
	if err := writer.Write(header); err != nil {
		h.logger.Error("failed to write CSV header", zap.String("op", op), zap.Error(err))
		return
	}

	for _, item := range items {
		row := []string{
			item.ID,
			item.Title,
			string(item.Location),
			string(item.Kind),
			item.Image,
			item.Description,
			item.Created.Format(time.RFC3339),
			item.Updated.Format(time.RFC3339),
		}
		if err := writer.Write(row); err != nil {
			h.logger.Error("failed to write CSV row", zap.String("op", op), zap.Error(err))
			return
		}
	}

	h.logger.Info("gallery exported", zap.String("op", op), zap.String("user_id", user.UserID), zap.Int("items", len(items)))
}
