package model

import "time"

// Policies are the per-company protocol toggles.
type Policies struct {
	SelfieRequired  bool `bson:"selfie_required" json:"selfie_required" yaml:"selfie_required"`
	HighAccuracyGPS bool `bson:"high_accuracy_gps" json:"high_accuracy_gps" yaml:"high_accuracy_gps"`
	BlockOffline    bool `bson:"block_offline" json:"block_offline" yaml:"block_offline"`
	QRAllowed       bool `bson:"qr_allowed" json:"qr_allowed" yaml:"qr_allowed"`
}

// DefaultPolicies mirrors the toggles a new unit starts with.
func DefaultPolicies() Policies {
	return Policies{
		SelfieRequired:  true,
		HighAccuracyGPS: true,
		BlockOffline:    false,
		QRAllowed:       true,
	}
}

// DefaultAllowedRadius is the geofence radius in meters for a new unit.
const DefaultAllowedRadius = 200

type Company struct {
	ID            string    `bson:"_id" json:"id" yaml:"id" validate:"required"`
	Name          string    `bson:"name" json:"name" yaml:"name" validate:"required"`
	TaxID         string    `bson:"tax_id" json:"tax_id" yaml:"tax_id"`
	Address       string    `bson:"address" json:"address" yaml:"address"`
	Latitude      float64   `bson:"latitude" json:"latitude" yaml:"latitude" validate:"gte=-90,lte=90"`
	Longitude     float64   `bson:"longitude" json:"longitude" yaml:"longitude" validate:"gte=-180,lte=180"`
	AllowedRadius float64   `bson:"allowed_radius" json:"allowed_radius" yaml:"allowed_radius" validate:"gte=0"`
	Policies      Policies  `bson:"policies" json:"policies" yaml:"policies"`
	UpdatedAt     time.Time `bson:"updated_at" json:"updated_at" yaml:"-"`
}

// Center returns the geofence center.
func (c *Company) Center() Location {
	return Location{Lat: c.Latitude, Lng: c.Longitude}
}

// DayStats is one bar of the weekly activity series.
type DayStats struct {
	Day   string `json:"day"`
	Total int    `json:"total"`
	Late  int    `json:"late"`
}

type SystemStats struct {
	TotalEmployees     int        `json:"total_employees"`
	PointsToday        int        `json:"points_today"`
	PendingAdjustments int        `json:"pending_adjustments"`
	LateArrivals       int        `json:"late_arrivals"`
	Week               []DayStats `json:"week"`
}
