package users

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"project/database"
	"project/models"
	"project/utils"

	"github.com/gorilla/mux"
	"gorm.io/gorm"
)

// GET /games?limit=20
// Archived rounds, newest first. Reads only game history, never live lobbies.
func GameHistoryListHandler(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	type summary struct {
		GameNumber    int64       `json:"game_number"`
		Tier          models.Tier `json:"tier"`
		Capacity      int         `json:"capacity"`
		WinningNumber int         `json:"winning_number"`
		WinnerName    string      `json:"winner_name"`
		RewardTier    models.Tier `json:"reward_tier"`
		RewardAmount  int         `json:"reward_amount"`
		ResolvedAt    string      `json:"resolved_at"`
	}

	var games []models.GameHistory
	if err := database.DB.Order("game_number DESC").Limit(limit).Find(&games).Error; err != nil {
		log.Printf("[history] listing games: %v", err)
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Something went wrong, please try again"})
		return
	}

	out := make([]summary, 0, len(games))
	for _, g := range games {
		out = append(out, summary{
			GameNumber:    g.GameNumber,
			Tier:          g.Tier,
			Capacity:      g.Capacity,
			WinningNumber: g.WinningNumber,
			WinnerName:    g.WinnerName,
			RewardTier:    g.RewardTier,
			RewardAmount:  g.RewardAmount,
			ResolvedAt:    g.ResolvedAt.UTC().Format("2006-01-02T15:04:05Z"),
		})
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Successfully", Data: map[string]interface{}{
		"games": out,
	}})
}

// GET /games/{number}
// Full archived round including every seat and the audit seed.
func GameHistoryDetailHandler(w http.ResponseWriter, r *http.Request) {
	number, err := strconv.ParseInt(mux.Vars(r)["number"], 10, 64)
	if err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Invalid game number"})
		return
	}

	var game models.GameHistory
	err = database.DB.Preload("Players").Where("game_number = ?", number).First(&game).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		utils.WriteJSON(w, http.StatusNotFound, utils.APIResponse{Success: false, Message: "Game not found", Data: map[string]interface{}{"code": "NOT_FOUND"}})
		return
	}
	if err != nil {
		log.Printf("[history] loading game %d: %v", number, err)
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Something went wrong, please try again"})
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Successfully", Data: map[string]interface{}{
		"game": game,
	}})
}

// GET /tiers
// The economy catalog: tier ladder, queue sizes and rewards. Pure data.
func TierCatalogHandler(w http.ResponseWriter, r *http.Request) {
	type tierInfo struct {
		Tier       models.Tier `json:"tier"`
		NextTier   models.Tier `json:"next_tier,omitempty"`
		QueueSizes []int       `json:"queue_sizes"`
		EntryCost  int         `json:"entry_cost"`
		USDValue   float64     `json:"usd_value"`
	}
	rewards := map[string]int{}
	tiers := make([]tierInfo, 0, 8)
	for _, t := range models.TiersOrdered() {
		next, _ := models.NextTier(t)
		tiers = append(tiers, tierInfo{
			Tier:       t,
			NextTier:   next,
			QueueSizes: models.QueueSizesFor(t),
			EntryCost:  models.EntryCost(t),
			USDValue:   models.USDValue(t),
		})
	}
	for _, size := range []int{20, 40, 60} {
		rewards[strconv.Itoa(size)] = models.RewardAmount(size)
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Successfully", Data: map[string]interface{}{
		"tiers":   tiers,
		"rewards": rewards,
	}})
}
