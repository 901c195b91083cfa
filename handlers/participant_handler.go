package handlers

import (
	"net/http"

	"github.com/clashpoint/arena-system/middleware"
	"github.com/clashpoint/arena-system/services"
)

type ParticipantHandler struct {
	entryService       services.EntryService
	participantService services.ParticipantService
}

func NewParticipantHandler(entryService services.EntryService, participantService services.ParticipantService) *ParticipantHandler {
	return &ParticipantHandler{
		entryService:       entryService,
		participantService: participantService,
	}
}

// JoinHandler обрабатывает POST /tournaments/{tournamentID}/join.
func (h *ParticipantHandler) JoinHandler(w http.ResponseWriter, r *http.Request) {
	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required to join tournament")
		return
	}

	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input services.JoinTournamentInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	input.UserID = currentUserID
	input.TournamentID = tournamentID

	participant, err := h.entryService.JoinTournament(r.Context(), input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"participant": participant}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// MyRegistrationsHandler обрабатывает GET /me/registrations.
func (h *ParticipantHandler) MyRegistrationsHandler(w http.ResponseWriter, r *http.Request) {
	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	registrations, err := h.participantService.ListByUser(r.Context(), currentUserID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"registrations": registrations}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// AcknowledgeResultHandler обрабатывает POST /me/registrations/{participantID}/ack.
func (h *ParticipantHandler) AcknowledgeResultHandler(w http.ResponseWriter, r *http.Request) {
	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	participantID, err := getIDFromURL(r, "participantID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.participantService.AcknowledgeResult(r.Context(), currentUserID, participantID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"acknowledged": true}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
