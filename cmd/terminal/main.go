package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"geoponto/internal/api"
	"geoponto/internal/config"
	"geoponto/internal/device"
	"geoponto/internal/i18n"
	"geoponto/internal/kiosk"
	"geoponto/internal/model"
	"geoponto/internal/outbox"
	"geoponto/internal/wizard"
)

func main() {
	cfg := config.LoadTerminal()
	i18n.Init(cfg.Locale)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := api.NewClient(cfg.APIURL, cfg.Locale)
	user, err := client.Login(ctx, cfg.Email, cfg.Password, model.UserRole(cfg.Role))
	if err != nil {
		log.Fatalf("Failed to sign in: %v", err)
	}
	company, err := client.Company(ctx)
	if err != nil {
		log.Fatalf("Failed to load company: %v", err)
	}
	log.Printf("Signed in as %s (%s) at %s", user.DisplayName, user.Role, company.Name)

	box, err := outbox.Open(cfg.OutboxPath)
	if err != nil {
		log.Fatalf("Failed to open outbox: %v", err)
	}
	defer box.Close()

	if cfg.StationLat == nil || cfg.StationLng == nil {
		log.Printf("STATION_LAT/STATION_LNG not set, location will be unavailable")
	}

	k := kiosk.New(*user,
		device.Geolocator(cfg.StationLat, cfg.StationLng),
		device.FileCamera{Dir: cfg.CameraDir},
		client, box,
		wizard.Config{
			QRDetectDelay: cfg.QRDetectDelay,
			FinalizeDelay: cfg.FinalizeDelay,
			SuccessTTL:    cfg.SuccessTTL,
			DeviceInfo:    cfg.DeviceInfo,
			Address:       cfg.Address,
			Company:       company,
			Margin:        cfg.Margin,
		},
		os.Stdout,
	)

	k.Sync(ctx)
	go k.SyncEvery(ctx, cfg.FlushInterval)

	if err := k.Run(ctx, os.Stdin); err != nil {
		log.Printf("ERROR reading commands: %v", err)
	}
	log.Println("Shutting down...")
}
