// Package scheduler repeats scans on cron schedules. Each job fills the scan
// form from a preset and hands it to the scan session; a tick that lands
// while another scan is running is skipped.
package scheduler

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/anstrom/uplink/internal/errors"
	"github.com/anstrom/uplink/internal/logging"
	"github.com/anstrom/uplink/internal/options"
	"github.com/anstrom/uplink/internal/profiles"
	"github.com/anstrom/uplink/internal/scanning"
)

// DefaultPreset is used when a job names no preset.
const DefaultPreset = "quick"

// Starter launches a scan. *scanning.Session satisfies it.
type Starter interface {
	Start(ctx context.Context, form options.Form) (*scanning.ScanInfo, error)
}

// Scheduler manages scheduled scan jobs.
type Scheduler struct {
	cron     *cron.Cron
	starter  Starter
	profiles *profiles.Manager
	logger   *logging.Logger
	jobs     map[uuid.UUID]*ScheduledJob
	mu       sync.RWMutex
	running  bool
	ctx      context.Context
	cancel   context.CancelFunc
}

// ScanJobConfig describes what a job scans.
type ScanJobConfig struct {
	Target string `json:"target" validate:"required"`
	Preset string `json:"preset"`
	Alarm  bool   `json:"alarm"`
}

// ScheduledJob is a job registered with the cron runner.
type ScheduledJob struct {
	ID             uuid.UUID     `json:"id"`
	Name           string        `json:"name"`
	CronExpression string        `json:"cron_expression"`
	Config         ScanJobConfig `json:"config"`
	Enabled        bool          `json:"enabled"`
	CreatedAt      time.Time     `json:"created_at"`
	LastRun        *time.Time    `json:"last_run,omitempty"`
	LastScanID     *uuid.UUID    `json:"last_scan_id,omitempty"`
	LastError      string        `json:"last_error,omitempty"`
	NextRun        time.Time     `json:"next_run"`
	Runs           int           `json:"runs"`
	Skipped        int           `json:"skipped"`

	cronID cron.EntryID
}

// NewScheduler creates a new job scheduler.
func NewScheduler(starter Starter, profileManager *profiles.Manager, logger *logging.Logger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	if logger == nil {
		logger = logging.Default()
	}

	return &Scheduler{
		cron:     cron.New(),
		starter:  starter,
		profiles: profileManager,
		logger:   logger.WithComponent("scheduler"),
		jobs:     make(map[uuid.UUID]*ScheduledJob),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start begins the scheduler.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return errors.New(errors.CodeConflict, "scheduler is already running")
	}

	s.cron.Start()
	s.running = true

	s.logger.Info("Scheduler started", "jobs", len(s.jobs))
	return nil
}

// Stop stops the scheduler and waits for running ticks to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	<-s.cron.Stop().Done()
	s.cancel()

	s.logger.Info("Scheduler stopped")
}

// AddScanJob validates and registers a scan job.
func (s *Scheduler) AddScanJob(name, cronExpr string, config ScanJobConfig) (*ScheduledJob, error) {
	schedule, err := cron.ParseStandard(cronExpr)
	if err != nil {
		return nil, errors.Wrap(errors.CodeValidation, "invalid cron expression", err)
	}

	config.Target = strings.TrimSpace(config.Target)
	if config.Target == "" {
		return nil, errors.ErrTargetRequired()
	}
	if config.Preset == "" {
		config.Preset = DefaultPreset
	}
	if _, err := s.profiles.Get(config.Preset); err != nil {
		return nil, err
	}

	job := &ScheduledJob{
		ID:             uuid.New(),
		Name:           name,
		CronExpression: cronExpr,
		Config:         config,
		Enabled:        true,
		CreatedAt:      time.Now(),
		NextRun:        schedule.Next(time.Now()),
	}
	if job.Name == "" {
		job.Name = fmt.Sprintf("%s %s", config.Preset, config.Target)
	}

	if err := s.addJobToCron(schedule, job); err != nil {
		return nil, err
	}
	return job.snapshot(), nil
}

// addJobToCron registers job with the cron runner.
func (s *Scheduler) addJobToCron(schedule cron.Schedule, job *ScheduledJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := job.ID
	job.cronID = s.cron.Schedule(schedule, cron.FuncJob(func() {
		s.executeScanJob(id)
	}))
	s.jobs[job.ID] = job

	s.logger.Info("Added scan job", "name", job.Name, "schedule", job.CronExpression,
		"target", job.Config.Target, "preset", job.Config.Preset)
	return nil
}

// RemoveJob removes a scheduled job.
func (s *Scheduler) RemoveJob(jobID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, exists := s.jobs[jobID]
	if !exists {
		return errors.New(errors.CodeNotFound, "job not found")
	}

	s.cron.Remove(job.cronID)
	delete(s.jobs, jobID)

	s.logger.Info("Removed scan job", "name", job.Name)
	return nil
}

// GetJob returns a copy of one job.
func (s *Scheduler) GetJob(jobID uuid.UUID) (*ScheduledJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, exists := s.jobs[jobID]
	if !exists {
		return nil, errors.New(errors.CodeNotFound, "job not found")
	}
	return s.withNextRun(job), nil
}

// GetJobs returns copies of all jobs, oldest first.
func (s *Scheduler) GetJobs() []*ScheduledJob {
	s.mu.RLock()
	defer s.mu.RUnlock()

	jobs := make([]*ScheduledJob, 0, len(s.jobs))
	for _, job := range s.jobs {
		jobs = append(jobs, s.withNextRun(job))
	}
	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].CreatedAt.Before(jobs[j].CreatedAt)
	})
	return jobs
}

func (s *Scheduler) withNextRun(job *ScheduledJob) *ScheduledJob {
	c := job.snapshot()
	if entry := s.cron.Entry(job.cronID); entry.Valid() && !entry.Next.IsZero() {
		c.NextRun = entry.Next
	}
	return c
}

// EnableJob enables a scheduled job.
func (s *Scheduler) EnableJob(jobID uuid.UUID) error {
	return s.setJobEnabled(jobID, true)
}

// DisableJob disables a scheduled job. Its schedule keeps ticking but runs are skipped.
func (s *Scheduler) DisableJob(jobID uuid.UUID) error {
	return s.setJobEnabled(jobID, false)
}

func (s *Scheduler) setJobEnabled(jobID uuid.UUID, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, exists := s.jobs[jobID]
	if !exists {
		return errors.New(errors.CodeNotFound, "job not found")
	}
	job.Enabled = enabled

	action := "disabled"
	if enabled {
		action = "enabled"
	}
	s.logger.Info("Scan job "+action, "name", job.Name)
	return nil
}

// RunNow executes a job immediately, outside its schedule.
func (s *Scheduler) RunNow(jobID uuid.UUID) error {
	s.mu.RLock()
	_, exists := s.jobs[jobID]
	s.mu.RUnlock()
	if !exists {
		return errors.New(errors.CodeNotFound, "job not found")
	}
	return s.executeScanJob(jobID)
}

// executeScanJob starts the job's scan on the session.
func (s *Scheduler) executeScanJob(jobID uuid.UUID) error {
	s.mu.Lock()
	job, exists := s.jobs[jobID]
	if !exists || !job.Enabled {
		s.mu.Unlock()
		return nil
	}
	now := time.Now()
	job.LastRun = &now
	config := job.Config
	name := job.Name
	s.mu.Unlock()

	preset, err := s.profiles.Get(config.Preset)
	if err != nil {
		s.finishJob(jobID, nil, err)
		return err
	}

	form := preset.Form(config.Target, config.Alarm)
	info, err := s.starter.Start(s.ctx, form)
	if errors.IsCode(err, errors.CodeScanInProgress) {
		s.logger.Info("Scan already in progress, skipping scheduled run", "name", name)
		s.mu.Lock()
		if job, ok := s.jobs[jobID]; ok {
			job.Skipped++
		}
		s.mu.Unlock()
		return err
	}

	s.finishJob(jobID, info, err)
	if err != nil {
		s.logger.ErrorScan("Scheduled scan failed to start", config.Target, err, "name", name)
		return err
	}

	s.logger.InfoScan("Scheduled scan started", config.Target, "name", name, "scan_id", info.ID)
	return nil
}

func (s *Scheduler) finishJob(jobID uuid.UUID, info *scanning.ScanInfo, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[jobID]
	if !ok {
		return
	}
	if err != nil {
		job.LastError = errors.UserMessage(err)
		return
	}
	job.LastError = ""
	job.Runs++
	id := info.ID
	job.LastScanID = &id
}

func (j *ScheduledJob) snapshot() *ScheduledJob {
	c := *j
	return &c
}
