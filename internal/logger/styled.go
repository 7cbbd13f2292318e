package logger

import (
	"fmt"
	"log/slog"

	"github.com/pterm/pterm"
	"github.com/thushan/blaze/internal/domain"
	"github.com/thushan/blaze/theme"
)

// StyledLogger decorates a slog.Logger with theme-aware helpers for the
// values Blaze logs constantly: endpoint URLs, record counts and health
// states. The colouring lands in the message string; the JSON sinks
// strip it again via sanitizeAttr.
type StyledLogger struct {
	logger *slog.Logger
	theme  *theme.Theme
}

func NewStyledLogger(logger *slog.Logger, theme *theme.Theme) *StyledLogger {
	return &StyledLogger{logger: logger, theme: theme}
}

func (sl *StyledLogger) Debug(msg string, args ...any) {
	sl.logger.Debug(msg, args...)
}

func (sl *StyledLogger) Info(msg string, args ...any) {
	sl.logger.Info(msg, args...)
}

func (sl *StyledLogger) Warn(msg string, args ...any) {
	sl.logger.Warn(msg, args...)
}

func (sl *StyledLogger) Error(msg string, args ...any) {
	sl.logger.Error(msg, args...)
}

func (sl *StyledLogger) InfoWithCount(msg string, count int, args ...any) {
	counted := fmt.Sprintf("%s %s", msg, pterm.Style{sl.theme.Counts}.Sprint("(", count, ")"))
	sl.logger.Info(counted, args...)
}

func (sl *StyledLogger) InfoWithEndpoint(msg string, endpoint string, args ...any) {
	sl.logger.Info(sl.withEndpoint(msg, endpoint), args...)
}

// WarnWithEndpoint flags a cooling transition: an endpoint just tripped
// past its consecutive-failure threshold and stopped receiving leases.
func (sl *StyledLogger) WarnWithEndpoint(msg string, endpoint string, args ...any) {
	sl.logger.Warn(sl.withEndpoint(msg, endpoint), args...)
}

// InfoWithNumbers styles every numeric placeholder in a printf-shaped
// message, for the periodic processed-of-total summary line.
func (sl *StyledLogger) InfoWithNumbers(msg string, numbers ...int64) {
	styled := make([]any, len(numbers))
	for i, num := range numbers {
		styled[i] = pterm.Style{sl.theme.Numbers}.Sprint(num)
	}
	sl.logger.Info(fmt.Sprintf(msg, styled...))
}

// InfoHealthStatus reports one endpoint's current health, coloured per
// state.
func (sl *StyledLogger) InfoHealthStatus(msg string, endpoint string, health domain.Health, args ...any) {
	styled := fmt.Sprintf("%s %s is %s",
		msg,
		pterm.Style{sl.theme.Endpoint}.Sprint(endpoint),
		pterm.Style{sl.healthColor(health)}.Sprint(health.String()))
	sl.logger.Info(styled, args...)
}

// InfoWithHealthStats summarises the pool's health mix, e.g.
// "3 healthy, 1 degraded, 1 cooling".
func (sl *StyledLogger) InfoWithHealthStats(msg string, healthy, degraded, cooling int, args ...any) {
	allArgs := make([]any, 0, len(args)+6)
	allArgs = append(allArgs, args...)
	allArgs = append(allArgs,
		"healthy", pterm.Style{sl.theme.HealthHealthy}.Sprint(healthy),
		"degraded", pterm.Style{sl.theme.HealthDegraded}.Sprint(degraded),
		"cooling", pterm.Style{sl.theme.HealthCooling}.Sprint(cooling),
	)
	sl.logger.Info(msg, allArgs...)
}

func (sl *StyledLogger) withEndpoint(msg, endpoint string) string {
	return fmt.Sprintf("%s %s", msg, pterm.Style{sl.theme.Endpoint}.Sprint(endpoint))
}

func (sl *StyledLogger) healthColor(health domain.Health) pterm.Color {
	switch health {
	case domain.HealthDegraded:
		return sl.theme.HealthDegraded
	case domain.HealthCooling:
		return sl.theme.HealthCooling
	default:
		return sl.theme.HealthHealthy
	}
}

// NewWithTheme builds the slog logger per cfg and wraps it in a
// StyledLogger sharing the same theme.
func NewWithTheme(cfg *Config) (*slog.Logger, *StyledLogger, func(), error) {
	logger, cleanup, err := New(cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	appTheme := theme.GetTheme(cfg.Theme)
	return logger, NewStyledLogger(logger, appTheme), cleanup, nil
}
