package api

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/okian/ladder/internal/domain/model"
	"github.com/okian/ladder/internal/domain/ranking"
)

// leaderboardQuery reads group, period and type from the query string and
// the attribute from the path.
func leaderboardQuery(op string, r *http.Request) (ranking.LeaderboardQuery, error) {
	v := r.URL.Query()
	period, err := model.ParsePeriod(v.Get("period"))
	if err != nil {
		return ranking.LeaderboardQuery{}, WrapKind(op, ErrBadRequest, err)
	}
	scoreType, err := model.ParseScoreType(v.Get("type"))
	if err != nil {
		return ranking.LeaderboardQuery{}, WrapKind(op, ErrBadRequest, err)
	}
	return ranking.LeaderboardQuery{
		Group:     v.Get("group"),
		Period:    period,
		Attr:      r.PathValue("attr"),
		ScoreType: scoreType,
	}, nil
}

func intParam(op string, v url.Values, name string, def int64) (int64, error) {
	raw := v.Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, WrapKind(op, ErrBadRequest, fmt.Errorf("%s must be an integer", name))
	}
	return n, nil
}

func boolParam(op string, v url.Values, name string) (bool, error) {
	raw := v.Get(name)
	if raw == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, WrapKind(op, ErrBadRequest, fmt.Errorf("%s must be a boolean", name))
	}
	return b, nil
}
