package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/bucarabus/fleethub/internal/models"
)

// RouteSeed is one route entry in the optional seed file. The file lets a
// deployment ship its line network as data instead of hand-entering it
// through the dashboard.
type RouteSeed struct {
	Name        string        `yaml:"name" validate:"required"`
	Description string        `yaml:"description"`
	Color       string        `yaml:"color" validate:"omitempty,hexcolor"`
	Fare        float64       `yaml:"fare" validate:"gte=0"`
	Stops       []models.Stop `yaml:"stops" validate:"dive"`
}

type routeSeedFile struct {
	Routes []RouteSeed `yaml:"routes" validate:"required,dive"`
}

// LoadRouteSeed parses and validates a YAML seed file.
func LoadRouteSeed(path string) ([]RouteSeed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read route seed: %w", err)
	}

	var file routeSeedFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse route seed: %w", err)
	}

	v := validator.New()
	if err := v.Struct(&file); err != nil {
		return nil, fmt.Errorf("validate route seed: %w", err)
	}

	return file.Routes, nil
}

// Route converts a seed entry to the domain model.
func (s RouteSeed) Route() *models.Route {
	return &models.Route{
		Name:        s.Name,
		Description: s.Description,
		Color:       s.Color,
		Fare:        s.Fare,
		Stops:       s.Stops,
	}
}
