package handlers

import (
	"net/http"

	"github.com/andrewpaige1/quizwhiz-api/logger"
	"github.com/andrewpaige1/quizwhiz-api/utils"
)

// Health reports whether the database answers.
func (db *DBHandler) Health(w http.ResponseWriter, r *http.Request) {
	sqlDB, err := db.DB.DB()
	if err == nil {
		err = sqlDB.PingContext(r.Context())
	}
	if err != nil {
		logger.Warningf("Health: database ping failed: %v", err)
		utils.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
