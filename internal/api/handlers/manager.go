// Package handlers provides HTTP request handlers for the Uplink API.
// This file wires the handler groups to their shared dependencies.
package handlers

import (
	"net/http"

	"github.com/anstrom/uplink/internal/alarm"
	"github.com/anstrom/uplink/internal/config"
	"github.com/anstrom/uplink/internal/followup"
	"github.com/anstrom/uplink/internal/graph"
	"github.com/anstrom/uplink/internal/history"
	"github.com/anstrom/uplink/internal/logging"
	"github.com/anstrom/uplink/internal/metrics"
	"github.com/anstrom/uplink/internal/options"
	"github.com/anstrom/uplink/internal/profiles"
	"github.com/anstrom/uplink/internal/scanning"
	"github.com/anstrom/uplink/internal/scheduler"
)

// Dependencies are the components the handlers operate on. History and
// Database are nil when scan history is disabled; Alarm may be nil.
type Dependencies struct {
	Config     *config.Config
	Session    *scanning.Session
	Catalog    *options.Catalog
	Profiles   *profiles.Manager
	Followups  *followup.Service
	Visualizer *graph.Visualizer
	Alarm      *alarm.Alarm
	Scheduler  *scheduler.Scheduler
	History    history.Store
	Database   DatabasePinger
	Hub        *Hub
	Logger     *logging.Logger
	Registry   metrics.MetricsRegistry
}

// StateEvent is the snapshot sent to clients when they connect.
type StateEvent struct {
	Scan        scanning.Status `json:"scan"`
	AlarmActive bool            `json:"alarm_active"`
	GraphOpen   bool            `json:"graph_open"`
}

// HandlerManager holds all handler groups.
type HandlerManager struct {
	health   *HealthHandler
	scan     *ScanHandler
	profile  *ProfileHandler
	followup *FollowupHandler
	graph    *GraphHandler
	history  *HistoryHandler
	schedule *ScheduleHandler
	hub      *Hub
}

// New creates the handler groups and registers their socket commands on the hub.
func New(deps Dependencies) *HandlerManager {
	cfg := deps.Config
	if cfg == nil {
		cfg = config.Default()
	}

	hm := &HandlerManager{
		health: NewHealthHandler(deps.Database, deps.Session, cfg.Nmap.Binary, deps.Logger, deps.Registry),
		scan: NewScanHandler(deps.Session, deps.Catalog, cfg.Nmap.ReportDir,
			deps.Logger, deps.Registry),
		profile:  NewProfileHandler(deps.Profiles, deps.Session, deps.Logger, deps.Registry),
		followup: NewFollowupHandler(deps.Followups, deps.Alarm, deps.Hub, deps.Logger, deps.Registry),
		graph: NewGraphHandler(deps.Visualizer, deps.Session, deps.Hub,
			cfg.Graph.Width, cfg.Graph.Height, cfg.Graph.FrameInterval, deps.Logger, deps.Registry),
		history:  NewHistoryHandler(deps.History, deps.Logger, deps.Registry),
		schedule: NewScheduleHandler(deps.Scheduler, deps.Logger, deps.Registry),
		hub:      deps.Hub,
	}

	if deps.Hub != nil {
		hm.graph.RegisterCommands(deps.Hub)
		hm.followup.RegisterCommands(deps.Hub)
		deps.Hub.SetState(func() interface{} {
			return StateEvent{
				Scan:        deps.Session.Status(),
				AlarmActive: deps.Alarm != nil && deps.Alarm.Active(),
				GraphOpen:   deps.Visualizer.IsOpen(),
			}
		})
	}
	return hm
}

// Close stops background work owned by the handlers.
func (hm *HandlerManager) Close() {
	hm.graph.Close()
}

// Health endpoints

func (hm *HandlerManager) Health(w http.ResponseWriter, r *http.Request) {
	hm.health.Health(w, r)
}

func (hm *HandlerManager) Liveness(w http.ResponseWriter, r *http.Request) {
	hm.health.Liveness(w, r)
}

func (hm *HandlerManager) Status(w http.ResponseWriter, r *http.Request) {
	hm.health.Status(w, r)
}

func (hm *HandlerManager) Version(w http.ResponseWriter, r *http.Request) {
	hm.health.Version(w, r)
}

// Scan endpoints

func (hm *HandlerManager) GetOptions(w http.ResponseWriter, r *http.Request) {
	hm.scan.GetOptions(w, r)
}

func (hm *HandlerManager) DescribeOption(w http.ResponseWriter, r *http.Request) {
	hm.scan.DescribeOption(w, r)
}

func (hm *HandlerManager) PreviewCommand(w http.ResponseWriter, r *http.Request) {
	hm.scan.PreviewCommand(w, r)
}

func (hm *HandlerManager) StartScan(w http.ResponseWriter, r *http.Request) {
	hm.scan.StartScan(w, r)
}

func (hm *HandlerManager) StopScan(w http.ResponseWriter, r *http.Request) {
	hm.scan.StopScan(w, r)
}

func (hm *HandlerManager) GetScanStatus(w http.ResponseWriter, r *http.Request) {
	hm.scan.GetStatus(w, r)
}

func (hm *HandlerManager) GetSummary(w http.ResponseWriter, r *http.Request) {
	hm.scan.GetSummary(w, r)
}

func (hm *HandlerManager) GetXML(w http.ResponseWriter, r *http.Request) {
	hm.scan.GetXML(w, r)
}

func (hm *HandlerManager) DownloadReport(w http.ResponseWriter, r *http.Request) {
	hm.scan.DownloadReport(w, r)
}

func (hm *HandlerManager) SaveReport(w http.ResponseWriter, r *http.Request) {
	hm.scan.SaveReport(w, r)
}

// Preset endpoints

func (hm *HandlerManager) ListPresets(w http.ResponseWriter, r *http.Request) {
	hm.profile.ListPresets(w, r)
}

func (hm *HandlerManager) GetPreset(w http.ResponseWriter, r *http.Request) {
	hm.profile.GetPreset(w, r)
}

func (hm *HandlerManager) CreatePreset(w http.ResponseWriter, r *http.Request) {
	hm.profile.CreatePreset(w, r)
}

func (hm *HandlerManager) DeletePreset(w http.ResponseWriter, r *http.Request) {
	hm.profile.DeletePreset(w, r)
}

func (hm *HandlerManager) StartPresetScan(w http.ResponseWriter, r *http.Request) {
	hm.profile.StartPresetScan(w, r)
}

// Follow-up and alarm endpoints

func (hm *HandlerManager) ListFollowups(w http.ResponseWriter, r *http.Request) {
	hm.followup.ListActions(w, r)
}

func (hm *HandlerManager) RunFollowup(w http.ResponseWriter, r *http.Request) {
	hm.followup.RunFollowup(w, r)
}

func (hm *HandlerManager) GetAlarm(w http.ResponseWriter, r *http.Request) {
	hm.followup.GetAlarm(w, r)
}

func (hm *HandlerManager) AcknowledgeAlarm(w http.ResponseWriter, r *http.Request) {
	hm.followup.AcknowledgeAlarm(w, r)
}

// Graph endpoints

func (hm *HandlerManager) OpenGraph(w http.ResponseWriter, r *http.Request) {
	hm.graph.OpenGraph(w, r)
}

func (hm *HandlerManager) CloseGraph(w http.ResponseWriter, r *http.Request) {
	hm.graph.CloseGraph(w, r)
}

func (hm *HandlerManager) GetGraphFrame(w http.ResponseWriter, r *http.Request) {
	hm.graph.GetFrame(w, r)
}

func (hm *HandlerManager) GraphInput(w http.ResponseWriter, r *http.Request) {
	hm.graph.Input(w, r)
}

func (hm *HandlerManager) GetGraphProfile(w http.ResponseWriter, r *http.Request) {
	hm.graph.GetProfile(w, r)
}

// History endpoints

func (hm *HandlerManager) ListHistory(w http.ResponseWriter, r *http.Request) {
	hm.history.ListHistory(w, r)
}

func (hm *HandlerManager) GetHistory(w http.ResponseWriter, r *http.Request) {
	hm.history.GetHistory(w, r)
}

func (hm *HandlerManager) GetHistoryXML(w http.ResponseWriter, r *http.Request) {
	hm.history.GetHistoryXML(w, r)
}

// Schedule endpoints

func (hm *HandlerManager) ListSchedules(w http.ResponseWriter, r *http.Request) {
	hm.schedule.ListSchedules(w, r)
}

func (hm *HandlerManager) CreateSchedule(w http.ResponseWriter, r *http.Request) {
	hm.schedule.CreateSchedule(w, r)
}

func (hm *HandlerManager) GetSchedule(w http.ResponseWriter, r *http.Request) {
	hm.schedule.GetSchedule(w, r)
}

func (hm *HandlerManager) DeleteSchedule(w http.ResponseWriter, r *http.Request) {
	hm.schedule.DeleteSchedule(w, r)
}

func (hm *HandlerManager) EnableSchedule(w http.ResponseWriter, r *http.Request) {
	hm.schedule.EnableSchedule(w, r)
}

func (hm *HandlerManager) DisableSchedule(w http.ResponseWriter, r *http.Request) {
	hm.schedule.DisableSchedule(w, r)
}

func (hm *HandlerManager) RunSchedule(w http.ResponseWriter, r *http.Request) {
	hm.schedule.RunSchedule(w, r)
}

// WebSocket endpoint

func (hm *HandlerManager) Events(w http.ResponseWriter, r *http.Request) {
	hm.hub.ServeWS(w, r)
}
