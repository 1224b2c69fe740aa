package config_test

import (
	"testing"
	"time"

	"github.com/bookdepot/stock-service/config"
)

func TestLoadDefaults(t *testing.T) {
	cfg := config.LoadDefaults()

	if cfg.AppName != config.AppName {
		t.Errorf("appName got=%s want=%s", cfg.AppName, config.AppName)
	}
	if cfg.Port != "8080" {
		t.Errorf("port got=%s want=%s", cfg.Port, "8080")
	}
	if cfg.Profile != "local" {
		t.Errorf("profile got=%s want=%s", cfg.Profile, "local")
	}
	if cfg.Db.Host != "localhost" {
		t.Errorf("db host got=%s want=%s", cfg.Db.Host, "localhost")
	}
	if cfg.Db.Pool.MaxSize != 50 {
		t.Errorf("db pool max got=%d want=%d", cfg.Db.Pool.MaxSize, 50)
	}
	if cfg.RabbitMQ.Stock.Exchange != "stock.exchange" {
		t.Errorf("stock exchange got=%s want=%s", cfg.RabbitMQ.Stock.Exchange, "stock.exchange")
	}
	if cfg.RabbitMQ.Receipt.Dlt.Exchange != "receipt.dlt.exchange" {
		t.Errorf("receipt dlt exchange got=%s want=%s", cfg.RabbitMQ.Receipt.Dlt.Exchange, "receipt.dlt.exchange")
	}
	if cfg.Reconcile.Interval != 15*time.Minute {
		t.Errorf("reconcile interval got=%s want=%s", cfg.Reconcile.Interval, 15*time.Minute)
	}
}

func TestDescriptions(t *testing.T) {
	cfg := config.LoadDefaults()

	if cfg.DbDesc == "" {
		t.Error("db description should not be empty")
	}
	if cfg.RabbitMQ.MockDesc == "" {
		t.Error("rabbitmq mock description should not be empty")
	}
}
