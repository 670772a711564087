package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all donation routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/donations", func(r chi.Router) {
		r.Get("/", h.HandleList)             // Local ledger
		r.Post("/", h.HandleSave)            // Save to DonorTools and record locally
		r.Post("/import", h.HandleImport)    // Pull new donations into the ledger
		r.Get("/remote", h.HandleListRemote) // Joined remote donations, nothing stored
	})
}
