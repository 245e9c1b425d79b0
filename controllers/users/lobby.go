package users

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"project/ledger"
	"project/lobby"
	"project/models"
	"project/utils"

	"github.com/gorilla/mux"
)

// LobbyController exposes the lobby lifecycle over HTTP. All state mutations
// happen inside the lobby manager's transactions; the controller only maps
// domain errors onto status codes.
type LobbyController struct {
	mgr *lobby.Manager
}

func NewLobbyController(mgr *lobby.Manager) *LobbyController {
	return &LobbyController{mgr: mgr}
}

type joinRequest struct {
	Tier        string `json:"tier"`
	QueueSize   int    `json:"queue_size"`
	LuckyNumber *int   `json:"lucky_number,omitempty"`
}

type chooseNumberRequest struct {
	Number int `json:"number"`
}

// writeLobbyError maps domain failures to responses with stable codes the
// client can branch on.
func writeLobbyError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, lobby.ErrUnknownTier), errors.Is(err, lobby.ErrQueueSize):
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Unknown tier or queue size", Data: map[string]interface{}{"code": "INVALID_TIER"}})
	case errors.Is(err, lobby.ErrInvalidNumber):
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Lucky number out of range for this lobby", Data: map[string]interface{}{"code": "INVALID_NUMBER"}})
	case errors.Is(err, lobby.ErrNumberTaken):
		utils.WriteJSON(w, http.StatusConflict, utils.APIResponse{Success: false, Message: "That lucky number is already taken", Data: map[string]interface{}{"code": "NUMBER_TAKEN"}})
	case errors.Is(err, lobby.ErrDuplicateEntry):
		utils.WriteJSON(w, http.StatusConflict, utils.APIResponse{Success: false, Message: "You already hold a seat in this lobby", Data: map[string]interface{}{"code": "DUPLICATE_ENTRY"}})
	case errors.Is(err, lobby.ErrLobbyFull):
		utils.WriteJSON(w, http.StatusConflict, utils.APIResponse{Success: false, Message: "Lobby just filled, please retry to join the next one", Data: map[string]interface{}{"code": "LOBBY_FULL"}})
	case errors.Is(err, lobby.ErrLobbyClosed):
		utils.WriteJSON(w, http.StatusConflict, utils.APIResponse{Success: false, Message: "Countdown already started, numbers are locked", Data: map[string]interface{}{"code": "LOBBY_CLOSED"}})
	case errors.Is(err, ledger.ErrInsufficientBalance):
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Not enough tickets for this tier", Data: map[string]interface{}{"code": "INSUFFICIENT_BALANCE"}})
	case errors.Is(err, lobby.ErrNotFound):
		utils.WriteJSON(w, http.StatusNotFound, utils.APIResponse{Success: false, Message: "Lobby not found", Data: map[string]interface{}{"code": "NOT_FOUND"}})
	default:
		log.Printf("[lobby] handler error: %v", err)
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Something went wrong, please try again"})
	}
}

// POST /lobbies/join
func (c *LobbyController) Join(w http.ResponseWriter, r *http.Request) {
	uid, ok := utils.GetUserID(r)
	if !ok || uid == 0 {
		utils.WriteJSON(w, http.StatusUnauthorized, utils.APIResponse{Success: false, Message: "Unauthorized"})
		return
	}
	var req joinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Invalid JSON body"})
		return
	}
	view, err := c.mgr.Join(models.Tier(req.Tier), req.QueueSize, uid, req.LuckyNumber)
	if err != nil {
		writeLobbyError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, utils.APIResponse{Success: true, Message: "Seat taken", Data: view})
}

// POST /lobbies/{id}/number
func (c *LobbyController) ChooseNumber(w http.ResponseWriter, r *http.Request) {
	uid, ok := utils.GetUserID(r)
	if !ok || uid == 0 {
		utils.WriteJSON(w, http.StatusUnauthorized, utils.APIResponse{Success: false, Message: "Unauthorized"})
		return
	}
	lobbyID, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Invalid lobby id"})
		return
	}
	var req chooseNumberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Invalid JSON body"})
		return
	}
	view, err := c.mgr.ChooseNumber(uint(lobbyID), uid, req.Number)
	if err != nil {
		writeLobbyError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Lucky number set", Data: view})
}

// GET /lobbies/{id}
func (c *LobbyController) State(w http.ResponseWriter, r *http.Request) {
	uid, ok := utils.GetUserID(r)
	if !ok || uid == 0 {
		utils.WriteJSON(w, http.StatusUnauthorized, utils.APIResponse{Success: false, Message: "Unauthorized"})
		return
	}
	lobbyID, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Invalid lobby id"})
		return
	}
	view, err := c.mgr.State(uint(lobbyID), uid)
	if err != nil {
		writeLobbyError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Successfully", Data: view})
}

// GET /lobbies/active?tier=BRONZE&queue_size=20
func (c *LobbyController) Active(w http.ResponseWriter, r *http.Request) {
	uid, ok := utils.GetUserID(r)
	if !ok || uid == 0 {
		utils.WriteJSON(w, http.StatusUnauthorized, utils.APIResponse{Success: false, Message: "Unauthorized"})
		return
	}
	tier := r.URL.Query().Get("tier")
	queueSize, _ := strconv.Atoi(r.URL.Query().Get("queue_size"))
	view, err := c.mgr.ActiveState(models.Tier(tier), queueSize, uid)
	if err != nil {
		writeLobbyError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Successfully", Data: view})
}
