package main

import (
	"flag"
	"log"

	"github.com/joho/godotenv"

	"github.com/jweese001/threejs-ide/internal/config"
	"github.com/jweese001/threejs-ide/internal/server"
)

func main() {
	configFile := flag.String("config", "", "optional YAML or TOML config file")
	headless := flag.Bool("headless", false, "attach an in-process sandbox instead of waiting for an iframe")
	flag.Parse()

	// .env is optional; deployments use the environment directly
	_ = godotenv.Load()

	var cfg *config.Config
	if *configFile != "" {
		loaded, err := config.LoadFile(*configFile)
		if err != nil {
			log.Fatalf("config: %v", err)
		}
		cfg = loaded
	} else {
		cfg = config.LoadOrDefault()
	}
	if *headless {
		cfg.Sandbox.Headless = true
	}

	srv, err := server.NewServer(cfg)
	if err != nil {
		log.Fatalf("server: %v", err)
	}
	if err := srv.Start(); err != nil {
		log.Fatalf("server: %v", err)
	}
}
