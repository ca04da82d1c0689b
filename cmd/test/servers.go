package main

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/lucasbarnes96/truenorth-index/src/config"
	"github.com/lucasbarnes96/truenorth-index/src/interfaces"
	"github.com/lucasbarnes96/truenorth-index/src/logger"
	"github.com/lucasbarnes96/truenorth-index/src/server"
	"github.com/lucasbarnes96/truenorth-index/src/storage"
	"github.com/lucasbarnes96/truenorth-index/src/utils"
)

// -----------------------------------------------------------------------------

// checkQueryServer starts the query API over the finished workspace and walks
// the read surface: the published day must be served even though a blocked
// run came after it, while diagnostics reflect the latest attempt.
func checkQueryServer(ws *workspace, conf *config.Config, releaseLog interfaces.IReleaseLog, appLogger *logger.Logger, r *report) {
	store := storage.NewRunStore(conf.DataDir, appLogger)
	serverLogger := logger.NewLogger(conf.LogLevel, conf.LogFile, "FastAPIServer")
	srv := server.NewFastAPIServer(conf.MConfig, store, releaseLog, utils.NewReleaseCalendar(), serverLogger)
	defer srv.Stop()

	go func() {
		if err := srv.Start(); err != nil {
			appLogger.Error("Query server failed: %v", err)
		}
	}()

	base := fmt.Sprintf("http://%s:%d", conf.Host, conf.Port)
	if !waitForServer(base + "/api/health") {
		r.check("server/up", false, "no 200 from %s/api/health within 5s", base)
		return
	}
	r.check("server/up", true, "")

	status, body, err := getJSON(base + "/v1/nowcast/latest")
	latestOK := err == nil && status == 200 &&
		body["as_of_date"] == ws.Days[1] &&
		near(number(body["headline_change_pct"]), 1.286, 0.01)
	r.check("server/nowcast-latest", latestOK,
		"status %d as_of %v headline %v err %v", status, body["as_of_date"], body["headline_change_pct"], err)

	status, body, err = getJSON(base + "/v1/nowcast/history")
	r.check("server/nowcast-history", err == nil && status == 200 && number(body["count"]) == 2,
		"status %d count %v err %v", status, body["count"], err)

	status, body, err = getJSON(fmt.Sprintf("%s/v1/nowcast/history?start=%s&end=%s", base, ws.Days[0], ws.Days[0]))
	r.check("server/history-range", err == nil && status == 200 && number(body["count"]) == 1,
		"status %d count %v err %v", status, body["count"], err)

	status, body, err = getJSON(base + "/v1/sources/health")
	sources, _ := body["sources"].([]interface{})
	r.check("server/sources-health",
		err == nil && status == 200 && body["as_of_date"] == ws.Days[2] && len(sources) == 6,
		"status %d as_of %v sources %d err %v", status, body["as_of_date"], len(sources), err)

	status, body, err = getJSON(base + "/v1/releases/latest")
	r.check("server/releases-latest",
		err == nil && status == 200 && body["published"] == false && body["as_of_date"] == ws.Days[2],
		"status %d published %v as_of %v err %v", status, body["published"], body["as_of_date"], err)

	status, body, err = getJSON(base + "/v1/releases/next")
	releaseAt, _ := body["release_at_utc"].(string)
	r.check("server/releases-next",
		err == nil && status == 200 && body["status"] == utils.ReleaseEstimated && releaseAt != "",
		"status %d body %v err %v", status, body, err)

	status, body, err = getJSON(base + "/v1/methodology")
	method, _ := body["method"].(map[string]interface{})
	r.check("server/methodology",
		err == nil && status == 200 && method["version"] == utils.MethodVersion,
		"status %d method %v err %v", status, method, err)
}

// -----------------------------------------------------------------------------

func waitForServer(url string) bool {
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := http.Get(url)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return true
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	return false
}

// -----------------------------------------------------------------------------

func getJSON(url string) (int, map[string]interface{}, error) {
	resp, err := http.Get(url)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body := map[string]interface{}{}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, body, nil
}

// number unwraps a decoded JSON number; anything else fails near() cleanly.
func number(v interface{}) float64 {
	f, ok := v.(float64)
	if !ok {
		return math.NaN()
	}
	return f
}
