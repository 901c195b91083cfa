package handlers

import (
	"net/http"
	"strconv"

	"github.com/clashpoint/arena-system/services"
)

// AdminHandler объединяет операции, доступные только администраторам:
// расчёт призов и сверка кошельков.
type AdminHandler struct {
	settlementService services.SettlementService
	walletService     services.WalletService
}

func NewAdminHandler(settlementService services.SettlementService, walletService services.WalletService) *AdminHandler {
	return &AdminHandler{
		settlementService: settlementService,
		walletService:     walletService,
	}
}

type settleWinnerInput struct {
	WinnerUserID int `json:"winner_user_id"`
}

type settlePerKillInput struct {
	// Ключи — идентификаторы участников, значения — число убийств.
	Kills map[string]int `json:"kills"`
}

// SettleWinnerHandler обрабатывает POST /admin/tournaments/{tournamentID}/settle/winner.
func (h *AdminHandler) SettleWinnerHandler(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input settleWinnerInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.settlementService.SettleWinner(r.Context(), tournamentID, input.WinnerUserID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"message": "tournament settled"}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// SettlePerKillHandler обрабатывает POST /admin/tournaments/{tournamentID}/settle/per-kill.
func (h *AdminHandler) SettlePerKillHandler(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input settlePerKillInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	// JSON-ключи всегда строки, переводим в идентификаторы участников.
	kills := make(map[int]int, len(input.Kills))
	for rawID, count := range input.Kills {
		participantID, err := strconv.Atoi(rawID)
		if err != nil {
			unprocessableResponse(w, r, services.ErrKillsUnknownEntry)
			return
		}
		kills[participantID] = count
	}

	if err := h.settlementService.SettlePerKill(r.Context(), tournamentID, kills); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"message": "tournament settled"}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ReconcileWalletsHandler обрабатывает POST /admin/wallets/reconcile.
func (h *AdminHandler) ReconcileWalletsHandler(w http.ResponseWriter, r *http.Request) {
	drifts, err := h.walletService.ReconcileWallets(r.Context())
	if err != nil {
		serverErrorResponse(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"drifts": drifts, "drift_count": len(drifts)}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
