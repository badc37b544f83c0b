package redis

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/MrSnakeDoc/tickrenew/internal/config"
	"github.com/MrSnakeDoc/tickrenew/internal/logger"
)

func validOptions() ConnectOptions {
	return ConnectOptions{
		Addr:           "127.0.0.1:1",
		DialTimeout:    5 * time.Millisecond,
		ConnectTimeout: 30 * time.Millisecond,
		RetryInterval:  2 * time.Millisecond,
		MaxWait:        5 * time.Millisecond,
		PingTimeout:    5 * time.Millisecond,
		WarnThreshold:  1,
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*ConnectOptions)
		wantErr string
	}{
		{name: "valid", mutate: func(*ConnectOptions) {}},
		{name: "no addr", mutate: func(o *ConnectOptions) { o.Addr = "" }, wantErr: "Addr"},
		{name: "zero connect timeout", mutate: func(o *ConnectOptions) { o.ConnectTimeout = 0 }, wantErr: "ConnectTimeout"},
		{name: "negative retry", mutate: func(o *ConnectOptions) { o.RetryInterval = -time.Second }, wantErr: "RetryInterval"},
		{name: "negative threshold", mutate: func(o *ConnectOptions) { o.WarnThreshold = -1 }, wantErr: "WarnThreshold"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := validOptions()
			tt.mutate(&opts)
			err := opts.validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("validate() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("validate() error = %v, want mention of %s", err, tt.wantErr)
			}
		})
	}
}

func TestConnectUnreachableGivesUp(t *testing.T) {
	start := time.Now()
	_, err := Connect(context.Background(), validOptions(), logger.Nop())
	if err == nil {
		t.Fatal("Connect() to a closed port succeeded")
	}
	if !strings.Contains(err.Error(), "127.0.0.1:1") {
		t.Errorf("error %q does not name the address", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("Connect() took %v, ConnectTimeout not honored", elapsed)
	}
}

func TestConnectReachable(t *testing.T) {
	mr := miniredis.RunT(t)

	opts := validOptions()
	opts.Addr = mr.Addr()
	opts.DialTimeout = time.Second
	opts.PingTimeout = time.Second
	opts.ConnectTimeout = 2 * time.Second

	client, err := Connect(context.Background(), opts, logger.Nop())
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	if err := client.Set(context.Background(), "k", "v", 0).Err(); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if got, _ := mr.Get("k"); got != "v" {
		t.Errorf("stored value = %q, want v", got)
	}
}

func TestConnectCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	opts := validOptions()
	opts.ConnectTimeout = time.Minute
	if _, err := Connect(ctx, opts, logger.Nop()); err == nil {
		t.Fatal("Connect() with a cancelled context succeeded")
	}
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := &config.Config{
		RedisAddr:           "redis:6379",
		RedisDB:             2,
		RedisConnectTimeout: 15 * time.Second,
		RedisWarnThreshold:  3,
	}
	opts := OptionsFromConfig(cfg)
	if opts.Addr != "redis:6379" || opts.DB != 2 || opts.ConnectTimeout != 15*time.Second || opts.WarnThreshold != 3 {
		t.Errorf("OptionsFromConfig() = %+v", opts)
	}
}
