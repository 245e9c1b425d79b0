package admins

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"project/database"
	"project/ledger"
	"project/models"
	"project/utils"
)

// Ticket grants and revocations are the only way tickets enter the economy
// from outside a round. Both write through the ledger; nothing here touches
// wallet rows directly.

type ticketRequest struct {
	UserID uint   `json:"user_id"`
	Tier   string `json:"tier"`
	Amount int64  `json:"amount"`
	Note   string `json:"note,omitempty"`
}

func writeLedgerError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ledger.ErrInvalidAmount):
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Amount must be a positive integer", Data: map[string]interface{}{"code": "INVALID_AMOUNT"}})
	case errors.Is(err, ledger.ErrUnknownTier):
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Unknown tier", Data: map[string]interface{}{"code": "INVALID_TIER"}})
	case errors.Is(err, ledger.ErrInsufficientBalance):
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "User does not hold that many tickets", Data: map[string]interface{}{"code": "INSUFFICIENT_BALANCE"}})
	default:
		log.Printf("[admin/tickets] ledger error: %v", err)
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Something went wrong, please try again"})
	}
}

// POST /admin/tickets/grant
func GrantTicketsHandler(w http.ResponseWriter, r *http.Request) {
	var req ticketRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Invalid JSON body"})
		return
	}
	balance, err := ledger.Credit(database.DB, req.UserID, models.Tier(req.Tier), req.Amount,
		models.ReasonAdminGrant, ledger.Meta{"note": req.Note})
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, utils.APIResponse{Success: true, Message: "Tickets granted", Data: map[string]interface{}{
		"user_id": req.UserID,
		"tier":    req.Tier,
		"balance": balance,
	}})
}

// POST /admin/tickets/revoke
func RevokeTicketsHandler(w http.ResponseWriter, r *http.Request) {
	var req ticketRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Invalid JSON body"})
		return
	}
	balance, err := ledger.Debit(database.DB, req.UserID, models.Tier(req.Tier), req.Amount,
		models.ReasonAdminRevoke, ledger.Meta{"note": req.Note})
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Tickets revoked", Data: map[string]interface{}{
		"user_id": req.UserID,
		"tier":    req.Tier,
		"balance": balance,
	}})
}

// GET /admin/ledger/reconcile
// Full ledger replay. Any mismatch is a broken conservation invariant.
func ReconcileHandler(w http.ResponseWriter, r *http.Request) {
	mismatches, err := ledger.Reconcile(database.DB)
	if err != nil {
		log.Printf("[admin/tickets] reconcile: %v", err)
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Something went wrong, please try again"})
		return
	}
	if len(mismatches) > 0 {
		log.Printf("[admin/tickets] reconcile found %d mismatches", len(mismatches))
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Successfully", Data: map[string]interface{}{
		"consistent": len(mismatches) == 0,
		"mismatches": mismatches,
	}})
}
