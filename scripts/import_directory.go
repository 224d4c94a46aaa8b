package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"appointly/internal/database"
	"appointly/internal/models"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// DirectoryFile is the seed layout shared with directory_file in the config.
type DirectoryFile struct {
	Employees []struct {
		ID             string `yaml:"id"`
		Name           string `yaml:"name"`
		Email          string `yaml:"email"`
		TelegramChatID int64  `yaml:"telegram_chat_id"`
		Active         *bool  `yaml:"is_active"`
	} `yaml:"employees"`
	Clients []struct {
		ID             string `yaml:"id"`
		Name           string `yaml:"name"`
		Phone          string `yaml:"phone"`
		TelegramChatID int64  `yaml:"telegram_chat_id"`
		Active         *bool  `yaml:"is_active"`
	} `yaml:"clients"`
	Services []struct {
		ID              string `yaml:"id"`
		Name            string `yaml:"name"`
		DurationMinutes int    `yaml:"duration_minutes"`
		Active          *bool  `yaml:"is_active"`
	} `yaml:"services"`
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	var (
		filePath = flag.String("file", "configs/directory.yaml", "path to directory.yaml")
		dbPath   = flag.String("db", "./data/appointly.db", "path to sqlite db")
	)
	flag.Parse()

	data, err := os.ReadFile(*filePath)
	if err != nil {
		return fmt.Errorf("read directory: %w", err)
	}
	var file DirectoryFile
	if err = yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parse directory: %w", err)
	}

	snap := toSnapshot(file)
	if len(snap.Employees)+len(snap.Clients)+len(snap.Services) == 0 {
		return fmt.Errorf("no records in yaml")
	}

	db, err := database.NewDB(*dbPath, &logger)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := db.ImportDirectory(ctx, snap); err != nil {
		return fmt.Errorf("import: %w", err)
	}

	fmt.Printf("done: employees=%d clients=%d services=%d\n", len(snap.Employees), len(snap.Clients), len(snap.Services))
	return nil
}

func toSnapshot(file DirectoryFile) models.DirectorySnapshot {
	active := func(v *bool) bool { return v == nil || *v }

	var snap models.DirectorySnapshot
	for _, e := range file.Employees {
		if e.ID == "" {
			continue
		}
		snap.Employees = append(snap.Employees, models.Employee{
			ID: e.ID, Name: e.Name, Email: e.Email, TelegramChatID: e.TelegramChatID, IsActive: active(e.Active),
		})
	}
	for _, c := range file.Clients {
		if c.ID == "" {
			continue
		}
		snap.Clients = append(snap.Clients, models.Client{
			ID: c.ID, Name: c.Name, Phone: c.Phone, TelegramChatID: c.TelegramChatID, IsActive: active(c.Active),
		})
	}
	for _, s := range file.Services {
		if s.ID == "" {
			continue
		}
		snap.Services = append(snap.Services, models.Service{
			ID: s.ID, Name: s.Name, DurationMinutes: s.DurationMinutes, IsActive: active(s.Active),
		})
	}
	return snap
}
