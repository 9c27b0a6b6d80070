package main

import (
	"context"
	"flag"
	"log"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	glog "github.com/labstack/gommon/log"
	"golang.org/x/time/rate"

	"co2dash/internal/api"
	"co2dash/internal/config"
	"co2dash/internal/engine"
	"co2dash/internal/forecast"
)

func main() {
	cfg := config.DefaultConfig()
	cfg.RegisterFlags(flag.CommandLine)
	flag.Parse()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}

	// 1. Initialize Echo (Starts Instantly)
	e := echo.New()
	e.HideBanner = true
	e.JSONSerializer = api.JSONSerializer{}
	e.Logger.SetLevel(logLevel(cfg.LogLevel))
	e.Use(middleware.CORS())
	e.Use(middleware.Recover())
	e.Use(middleware.Logger())
	if cfg.RateLimit > 0 {
		e.Use(middleware.RateLimiter(middleware.NewRateLimiterMemoryStore(rate.Limit(cfg.RateLimit))))
	}

	// 2. Initialize Handler with NIL data
	// The API is live but answers 503 until the dataset is loaded
	opts := forecast.DefaultOptions()
	opts.IntervalWidth = cfg.IntervalWidth
	h := api.NewHandler(nil, api.Options{
		Horizon:          cfg.ForecastHorizon,
		DefaultYearStart: cfg.DefaultYearStart,
		DefaultYearEnd:   cfg.DefaultYearEnd,
		Forecast:         opts,
	})
	h.RegisterRoutes(e)

	// 3. Load the dataset in the background
	cache := engine.NewCache(cfg.Source())
	go func() {
		log.Println("BACKGROUND: Loading dataset...")
		t0 := time.Now()

		table, err := cache.Load(context.Background())
		if err != nil {
			log.Fatalf("BACKGROUND: %v", err)
		}
		h.SetData(table)

		log.Printf("BACKGROUND: Dataset ready in %v.", time.Since(t0))
	}()

	// 4. Start Server
	log.Printf("Server ready on %s (data loading in background...)", cfg.ListenAddr)
	e.Logger.Fatal(e.Start(cfg.ListenAddr))
}

func logLevel(s string) glog.Lvl {
	switch strings.ToLower(s) {
	case "debug":
		return glog.DEBUG
	case "warn", "warning":
		return glog.WARN
	case "error":
		return glog.ERROR
	case "off":
		return glog.OFF
	}
	return glog.INFO
}
