package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"spacehub/internal/config"
	"spacehub/internal/database"
	"spacehub/internal/events"
	"spacehub/internal/logging"
	"spacehub/internal/models"
	"spacehub/internal/service"

	"gopkg.in/yaml.v2"
)

type seedFile struct {
	Hosts []seedHost `yaml:"hosts"`
}

type seedHost struct {
	Name        string      `yaml:"name"`
	Email       string      `yaml:"email"`
	Password    string      `yaml:"password"`
	CompanyName string      `yaml:"company_name"`
	Spaces      []seedSpace `yaml:"spaces"`
}

type seedSpace struct {
	Title            string      `yaml:"title"`
	Description      string      `yaml:"description"`
	ImageSrc         string      `yaml:"image_src"`
	SpaceType        string      `yaml:"space_type"`
	Category         string      `yaml:"category"`
	Capacity         int         `yaml:"capacity"`
	Country          string      `yaml:"country"`
	CountryCode      string      `yaml:"country_code"`
	City             string      `yaml:"city"`
	Address          string      `yaml:"address"`
	Amenities        []string    `yaml:"amenities"`
	InstantBooking   bool        `yaml:"instant_booking"`
	RequiresApproval bool        `yaml:"requires_approval"`
	MinBookingHours  int         `yaml:"min_booking_hours"`
	Policy           string      `yaml:"cancellation_policy"`
	Pricing          []seedPrice `yaml:"pricing"`
	Hours            []seedHours `yaml:"hours"`
}

type seedPrice struct {
	Type        string  `yaml:"type"`
	Price       float64 `yaml:"price"`
	CleaningFee float64 `yaml:"cleaning_fee"`
}

type seedHours struct {
	Day    string `yaml:"day"`
	Open   string `yaml:"open"`
	Close  string `yaml:"close"`
	Closed bool   `yaml:"closed"`
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath  = flag.String("config", config.DefaultPath, "path to config.yaml")
		fixturePath = flag.String("fixture", "configs/seed.yaml", "path to the hosts and spaces fixture")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return err
	}
	if closer != nil {
		defer closer.Close()
	}

	data, err := os.ReadFile(*fixturePath)
	if err != nil {
		return fmt.Errorf("read fixture: %w", err)
	}
	var fixture seedFile
	if err := yaml.Unmarshal(data, &fixture); err != nil {
		return fmt.Errorf("parse fixture: %w", err)
	}
	if len(fixture.Hosts) == 0 {
		return errors.New("no hosts in fixture")
	}

	db, err := database.NewDB(cfg.Database.Path, logger)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	users := service.NewUserService(db, nil, cfg.API.Auth.BcryptCost, logger)
	spaces := service.NewSpaceService(db, events.NewEventBus(), cfg.Booking.TaxRate, logger)

	created, skipped := 0, 0
	for _, h := range fixture.Hosts {
		host, err := ensureHost(ctx, db, users, h)
		if err != nil {
			return fmt.Errorf("host %s: %w", h.Email, err)
		}
		existing, err := spaces.ListByOwner(ctx, host.ID)
		if err != nil {
			return err
		}
		titles := make(map[string]bool, len(existing))
		for _, s := range existing {
			titles[s.Title] = true
		}

		for _, sp := range h.Spaces {
			if titles[sp.Title] {
				skipped++
				continue
			}
			space, err := spaces.Create(ctx, host.ID, sp.input())
			if err != nil {
				return fmt.Errorf("space %q: %w", sp.Title, err)
			}
			created++
			logger.Info().Str("space_id", space.ID).Str("title", space.Title).Msg("space seeded")
		}
	}

	logger.Info().Int("created", created).Int("skipped", skipped).Msg("seed complete")
	return nil
}

func ensureHost(ctx context.Context, db *database.DB, users *service.UserService, h seedHost) (*models.User, error) {
	u, err := db.GetUserByEmail(ctx, h.Email)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, database.ErrNotFound) {
		return nil, err
	}
	return users.Register(ctx, service.RegisterInput{
		Name:        h.Name,
		Email:       h.Email,
		Password:    h.Password,
		CompanyName: h.CompanyName,
		UserType:    models.UserTypeHost,
	})
}

func (s seedSpace) input() service.SpaceInput {
	in := service.SpaceInput{
		Title:            &s.Title,
		Description:      &s.Description,
		ImageSrc:         &s.ImageSrc,
		Category:         &s.Category,
		Capacity:         &s.Capacity,
		Location:         &service.LocationInput{Value: s.CountryCode, Label: s.Country},
		Address:          &s.Address,
		City:             &s.City,
		Country:          &s.Country,
		Amenities:        s.Amenities,
		InstantBooking:   &s.InstantBooking,
		RequiresApproval: &s.RequiresApproval,
	}
	if s.SpaceType != "" {
		in.SpaceType = &s.SpaceType
	}
	if s.MinBookingHours > 0 {
		in.MinBookingHours = &s.MinBookingHours
	}
	if s.Policy != "" {
		in.CancellationPolicy = &s.Policy
	}
	for _, p := range s.Pricing {
		in.Pricing = append(in.Pricing, models.PricingTier{PricingType: p.Type, Price: p.Price, Currency: "USD", CleaningFee: p.CleaningFee})
	}
	for _, hr := range s.Hours {
		in.BusinessHours = append(in.BusinessHours, models.BusinessHour{DayOfWeek: hr.Day, OpenTime: hr.Open, CloseTime: hr.Close, IsClosed: hr.Closed})
	}
	return in
}
