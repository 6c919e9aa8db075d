package stats

import (
	"encoding/json"
	"expvar"
	"log"
	"net/http"
	"time"
)

// Counter names used across the server.
const (
	ActiveSessions    = "ActiveSessions"
	MessagesDelivered = "MessagesDelivered"
	DeliveryDrops     = "DeliveryDrops"
	MessagesForwarded = "MessagesForwarded"
)

type StatsProvider interface {
	Incr(name string)
	Decr(name string)
	RegisterMetric(name string)
	Run()
}

// StatsUpdater serializes counter updates through a single goroutine and
// exposes them on /debug/vars.
type StatsUpdater struct {
	log        *log.Logger
	vars       *expvar.Map
	updateChan chan *metricsUpdateReq
}

type metricsUpdateReq struct {
	name  string
	value int
}

func NewStatsUpdater(logger *log.Logger, mux *http.ServeMux) *StatsUpdater {
	su := &StatsUpdater{
		log:        logger,
		updateChan: make(chan *metricsUpdateReq, 512),
	}
	mux.Handle("GET /debug/vars", http.HandlerFunc(su.expvarHandler))
	su.vars = expvar.NewMap("chitchat-stats")

	startTime := time.Now()
	su.vars.Set("Uptime", expvar.Func(func() any {
		return time.Since(startTime).Milliseconds()
	}))

	return su
}

func (su *StatsUpdater) expvarHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	expvarData := make(map[string]any)
	su.vars.Do(func(kv expvar.KeyValue) {
		var value any
		if err := json.Unmarshal([]byte(kv.Value.String()), &value); err != nil {
			return
		}
		expvarData[kv.Key] = value
	})

	if err := json.NewEncoder(w).Encode(expvarData); err != nil {
		su.log.Printf("encode stats: %v", err)
	}
}

func (su *StatsUpdater) updateMetrics() {
	for req := range su.updateChan {
		metric := su.vars.Get(req.name)
		if metric == nil {
			su.log.Printf("unknown metric %q", req.name)
			continue
		}

		metric.(*expvar.Int).Add(int64(req.value))
	}
}

func (su *StatsUpdater) Incr(name string) {
	su.updateChan <- &metricsUpdateReq{name: name, value: 1}
}

func (su *StatsUpdater) Decr(name string) {
	su.updateChan <- &metricsUpdateReq{name: name, value: -1}
}

func (su *StatsUpdater) RegisterMetric(name string) {
	su.vars.Set(name, expvar.NewInt(name))
}

func (su *StatsUpdater) Run() {
	go su.updateMetrics()
}

func (su *StatsUpdater) Stop() {
	close(su.updateChan)
}
