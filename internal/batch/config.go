package batch

import "time"

// Config controls the batch processor's date gates and the worker loop.
type Config struct {
	MonthlyGenerationDay int
	UnpaidReminderDay    int
	IssuedReminderDay    int
	PollInterval         time.Duration
}

func DefaultConfig() Config {
	return Config{
		MonthlyGenerationDay: 10,
		UnpaidReminderDay:    20,
		IssuedReminderDay:    5,
		PollInterval:         time.Hour,
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.MonthlyGenerationDay <= 0 || c.MonthlyGenerationDay > 28 {
		c.MonthlyGenerationDay = defaults.MonthlyGenerationDay
	}
	if c.UnpaidReminderDay <= 0 || c.UnpaidReminderDay > 28 {
		c.UnpaidReminderDay = defaults.UnpaidReminderDay
	}
	if c.IssuedReminderDay <= 0 || c.IssuedReminderDay > 28 {
		c.IssuedReminderDay = defaults.IssuedReminderDay
	}
	if c.PollInterval <= 0 {
		c.PollInterval = defaults.PollInterval
	}
	return c
}
