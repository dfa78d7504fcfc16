package scanner

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/alejandrodnm/consensusbot/internal/domain"
)

// ParseScheduleTime valida un "HH:MM" y devuelve hora y minuto.
func ParseScheduleTime(v string) (hour, minute int, err error) {
	parts := strings.Split(strings.TrimSpace(v), ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("scanner.ParseScheduleTime: %q is not HH:MM", v)
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("scanner.ParseScheduleTime: invalid hour in %q", v)
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("scanner.ParseScheduleTime: invalid minute in %q", v)
	}
	return hour, minute, nil
}

// CronSpec convierte "HH:MM" en una expresión cron diaria de 5 campos.
func CronSpec(scheduleTime string) (string, error) {
	h, m, err := ParseScheduleTime(scheduleTime)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d %d * * *", m, h), nil
}

// Start arma el disparo diario. Carga la lista de silenciados antes de arrancar.
// Con Enabled=false no hace nada. Llamarlo dos veces es inocuo.
func (s *Scanner) Start(ctx context.Context) error {
	if !s.cfg.Enabled {
		slog.Info("consensus scanner disabled, schedule not armed")
		return nil
	}

	spec, err := CronSpec(s.cfg.ScheduleTime)
	if err != nil {
		return fmt.Errorf("scanner.Start: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron != nil {
		return nil
	}

	if err := s.mutes.Load(ctx); err != nil {
		// se reintenta en el primer uso
		slog.Warn("muted chats not loaded", "err", err)
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	c := cron.New(
		cron.WithLocation(s.cfg.Location),
		cron.WithLogger(cronLogger{}),
	)
	if _, err := c.AddFunc(spec, func() { s.onSchedule(runCtx) }); err != nil {
		cancel()
		return fmt.Errorf("scanner.Start: add schedule %q: %w", spec, err)
	}
	c.Start()

	s.cron = c
	s.cancel = cancel

	slog.Info("consensus scanner started",
		"schedule_time", s.cfg.ScheduleTime,
		"timezone", s.cfg.Location.String(),
		"next_run", nextRun(c),
	)
	return nil
}

// Stop desarma el disparo, cancela el scan en curso y espera a que termine
// o a que expire ctx.
func (s *Scanner) Stop(ctx context.Context) error {
	s.mu.Lock()
	c, cancel := s.cron, s.cancel
	s.cron, s.cancel = nil, nil
	s.mu.Unlock()

	if c == nil {
		return nil
	}
	cancel()

	done := c.Stop()
	select {
	case <-done.Done():
		slog.Info("consensus scanner stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("scanner.Stop: %w", ctx.Err())
	}
}

// onSchedule es el handler del disparo diario. La comprobación de día es un
// respaldo: si ya hubo un scan hoy (p.ej. manual), no se repite.
func (s *Scanner) onSchedule(ctx context.Context) {
	now := s.now()
	if !s.ShouldRunToday(now) {
		slog.Info("scheduled scan skipped, already ran today", "last_scan", s.LastScanTime())
		s.metrics.ScanSkipped("already_ran_today")
		return
	}
	s.Scan(ctx)
}

// ShouldRunToday devuelve true si el último scan no fue en el mismo día que now.
func (s *Scanner) ShouldRunToday(now time.Time) bool {
	last := s.LastScanTime()
	if last.IsZero() {
		return true
	}
	return domain.DayKey(last, s.cfg.Location) != domain.DayKey(now, s.cfg.Location)
}

// NextRun devuelve la próxima ejecución programada, o nil si el schedule no está armado.
func (s *Scanner) NextRun() *time.Time {
	s.mu.Lock()
	c := s.cron
	s.mu.Unlock()
	if c == nil {
		return nil
	}
	next := nextRun(c)
	if next.IsZero() {
		return nil
	}
	return &next
}

func nextRun(c *cron.Cron) time.Time {
	entries := c.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

// cronLogger adapta el logger de cron a slog.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...any) {
	slog.Debug("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...any) {
	slog.Error("cron: "+msg, append(keysAndValues, "err", err)...)
}
