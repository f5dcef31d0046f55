package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"scribble/results"
)

// Router 管理与监控接口，以及 WebSocket 接入点
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/ws", s.HandleWS)
	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet)
	r.HandleFunc("/metrics", s.HandleMetrics).Methods(http.MethodGet)
	// 管理路由直接挂在根路由上：方法不匹配时 mux 只在根路由返回 405
	r.HandleFunc("/admin/state", s.HandleState).Methods(http.MethodGet)
	r.HandleFunc("/admin/config", s.HandleAdminConfig).Methods(http.MethodGet, http.MethodPost)
	r.HandleFunc("/admin/results", s.HandleResults).Methods(http.MethodGet)
	return r
}

type rulesDTO struct {
	RoundSeconds         *int `json:"roundSeconds,omitempty"`
	RoundEndDelaySeconds *int `json:"roundEndDelaySeconds,omitempty"`
	RoundsPerPlayer      *int `json:"roundsPerPlayer,omitempty"`
	MinPlayers           *int `json:"minPlayers,omitempty"`
}

func toRulesDTO(r Rules) rulesDTO {
	round := int(r.RoundDuration.Seconds())
	delay := int(r.RoundEndDelay.Seconds())
	return rulesDTO{
		RoundSeconds:         &round,
		RoundEndDelaySeconds: &delay,
		RoundsPerPlayer:      &r.RoundsPerPlayer,
		MinPlayers:           &r.MinPlayers,
	}
}

// HandleAdminConfig 读取与热更新游戏规则
// GET /admin/config  返回当前规则
// POST /admin/config 以 JSON 载荷更新部分字段，从下一回合生效
func (s *Server) HandleAdminConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet {
		writeJSON(w, http.StatusOK, toRulesDTO(s.session.Rules()))
		return
	}

	var body rulesDTO
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	rules, err := s.session.UpdateRules(func(cur *Rules) {
		if body.RoundSeconds != nil {
			cur.RoundDuration = seconds(*body.RoundSeconds)
		}
		if body.RoundEndDelaySeconds != nil {
			cur.RoundEndDelay = seconds(*body.RoundEndDelaySeconds)
		}
		if body.RoundsPerPlayer != nil {
			cur.RoundsPerPlayer = *body.RoundsPerPlayer
		}
		if body.MinPlayers != nil {
			cur.MinPlayers = *body.MinPlayers
		}
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	Log.Infow("rules updated", "round", rules.RoundDuration, "round_end_delay", rules.RoundEndDelay,
		"rounds_per_player", rules.RoundsPerPlayer, "min_players", rules.MinPlayers)
	writeJSON(w, http.StatusOK, toRulesDTO(rules))
}

// HandleMetrics 输出运行指标
func (s *Server) HandleMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"players": s.registry.Count(),
		"metrics": s.metrics.Snapshot(),
	})
}

// HandleState 会话公开快照（不含词语）
func (s *Server) HandleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.session.Snapshot())
}

// HandleResults 最近结束的对局
// GET /admin/results?n=10
func (s *Server) HandleResults(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Results == nil {
		http.Error(w, "results store not configured", http.StatusNotFound)
		return
	}
	n := 10
	if v := r.URL.Query().Get("n"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			http.Error(w, "invalid n", http.StatusBadRequest)
			return
		}
		n = parsed
	}
	list, err := s.cfg.Results.Recent(r.Context(), n)
	if err != nil {
		Log.Errorw("load recent results failed", "error", err)
		http.Error(w, "results unavailable", http.StatusBadGateway)
		return
	}
	if list == nil {
		list = []results.GameResult{}
	}
	writeJSON(w, http.StatusOK, list)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}
