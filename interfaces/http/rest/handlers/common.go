package handlers

import (
	"net/http"
	"strconv"

	"mentraflow-backend/pkg/common"
)

// maxExportBytes bounds a submitted export body.
const maxExportBytes = 10 << 20

const maxSmallBodyBytes = 64 << 10

// queryLimit reads the optional limit parameter. Zero means "use the default".
func queryLimit(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		common.RespondError(w, http.StatusBadRequest, common.StandardErrorCodes.BadRequest, "limit must be a non-negative integer")
		return 0, false
	}
	return limit, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}, maxBytes int64) bool {
	if err := common.ParseJSONBody(w, r, v, maxBytes); err != nil {
		common.RespondError(w, http.StatusBadRequest, common.StandardErrorCodes.BadRequest, "Invalid request body: "+err.Error())
		return false
	}
	return true
}
