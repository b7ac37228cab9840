package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type HTTPConfig struct {
	Host string
	Port int
}

type DBConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime string
}

type AuthConfig struct {
	AccessSecret string
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
}

type SchedulerConfig struct {
	ReminderCron      string
	EscalationCron    string
	MilestoneEvery    string
	QueueDrainEvery   string
	QueueBatchSize    int
	BulkSendPerMinute int
}

type Config struct {
	Environment string
	HTTP        HTTPConfig
	DB          DBConfig
	Auth        AuthConfig
	SMTP        SMTPConfig
	Scheduler   SchedulerConfig
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("app")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("./deploy")
	v.AddConfigPath("./internal/config")
	v.AutomaticEnv()

	_ = v.ReadInConfig()

	cfg := &Config{
		Environment: v.GetString("APP_ENV"),
		HTTP: HTTPConfig{
			Host: v.GetString("HTTP_HOST"),
			Port: v.GetInt("HTTP_PORT"),
		},
		DB: DBConfig{
			DSN:             v.GetString("DB_DSN"),
			MaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: v.GetString("DB_CONN_MAX_LIFETIME"),
		},
		Auth: AuthConfig{
			AccessSecret: v.GetString("JWT_ACCESS_SECRET"),
		},
		SMTP: SMTPConfig{
			Host:     v.GetString("SMTP_HOST"),
			Port:     v.GetInt("SMTP_PORT"),
			Username: v.GetString("SMTP_USERNAME"),
			Password: v.GetString("SMTP_PASSWORD"),
			From:     v.GetString("SMTP_FROM"),
			FromName: v.GetString("SMTP_FROM_NAME"),
		},
		Scheduler: SchedulerConfig{
			ReminderCron:      v.GetString("SCHED_REMINDER_CRON"),
			EscalationCron:    v.GetString("SCHED_ESCALATION_CRON"),
			MilestoneEvery:    v.GetString("SCHED_MILESTONE_EVERY"),
			QueueDrainEvery:   v.GetString("SCHED_QUEUE_DRAIN_EVERY"),
			QueueBatchSize:    v.GetInt("SCHED_QUEUE_BATCH_SIZE"),
			BulkSendPerMinute: v.GetInt("SCHED_BULK_SEND_PER_MINUTE"),
		},
	}

	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	if cfg.HTTP.Host == "" {
		cfg.HTTP.Host = "0.0.0.0"
	}
	if cfg.HTTP.Port == 0 {
		cfg.HTTP.Port = 7090
	}
	if cfg.SMTP.Port == 0 {
		cfg.SMTP.Port = 587
	}
	if cfg.SMTP.FromName == "" {
		cfg.SMTP.FromName = "Gestão de Contratos"
	}
	if cfg.Scheduler.ReminderCron == "" {
		cfg.Scheduler.ReminderCron = "0 8 * * *"
	}
	if cfg.Scheduler.EscalationCron == "" {
		cfg.Scheduler.EscalationCron = "30 8 * * *"
	}
	if cfg.Scheduler.MilestoneEvery == "" {
		cfg.Scheduler.MilestoneEvery = "1h"
	}
	if cfg.Scheduler.QueueDrainEvery == "" {
		cfg.Scheduler.QueueDrainEvery = "5m"
	}
	if cfg.Scheduler.QueueBatchSize == 0 {
		cfg.Scheduler.QueueBatchSize = 25
	}
	if cfg.Scheduler.BulkSendPerMinute == 0 {
		cfg.Scheduler.BulkSendPerMinute = 30
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func validate(cfg *Config) error {
	if cfg.DB.DSN == "" {
		return fmt.Errorf("DB_DSN is required")
	}
	if cfg.Auth.AccessSecret == "" {
		return fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	if cfg.SMTP.Host == "" {
		return fmt.Errorf("SMTP_HOST is required")
	}
	if cfg.SMTP.From == "" {
		return fmt.Errorf("SMTP_FROM is required")
	}
	if !strings.Contains(cfg.SMTP.From, "@") {
		return fmt.Errorf("SMTP_FROM must be an email address")
	}
	if cfg.Scheduler.QueueBatchSize < 1 || cfg.Scheduler.QueueBatchSize > 500 {
		return fmt.Errorf("SCHED_QUEUE_BATCH_SIZE must be between 1 and 500")
	}
	if cfg.Scheduler.BulkSendPerMinute < 1 || cfg.Scheduler.BulkSendPerMinute > 600 {
		return fmt.Errorf("SCHED_BULK_SEND_PER_MINUTE must be between 1 and 600")
	}
	return nil
}
