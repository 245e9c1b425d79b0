package users

import (
	"log"
	"net/http"
	"strconv"

	"project/database"
	"project/ledger"
	"project/utils"
)

// GET /users/wallet
// Returns the caller's Tier→balance snapshot, zero-filled for tiers without
// tickets.
func WalletHandler(w http.ResponseWriter, r *http.Request) {
	uid, ok := utils.GetUserID(r)
	if !ok || uid == 0 {
		utils.WriteJSON(w, http.StatusUnauthorized, utils.APIResponse{Success: false, Message: "Unauthorized"})
		return
	}
	snapshot, err := ledger.WalletFor(database.DB, uid)
	if err != nil {
		log.Printf("[wallet] snapshot for user %d: %v", uid, err)
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Something went wrong, please try again"})
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Successfully", Data: map[string]interface{}{
		"wallet": snapshot,
	}})
}

// GET /users/wallet/ledger?limit=50
// The caller's most recent ledger entries, newest first.
func WalletLedgerHandler(w http.ResponseWriter, r *http.Request) {
	uid, ok := utils.GetUserID(r)
	if !ok || uid == 0 {
		utils.WriteJSON(w, http.StatusUnauthorized, utils.APIResponse{Success: false, Message: "Unauthorized"})
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries, err := ledger.EntriesFor(database.DB, uid, limit)
	if err != nil {
		log.Printf("[wallet] ledger for user %d: %v", uid, err)
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Something went wrong, please try again"})
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Successfully", Data: map[string]interface{}{
		"entries": entries,
	}})
}
