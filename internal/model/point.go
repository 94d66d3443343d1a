package model

import "time"

type RecordType string

const (
	RecordTypeEntry      RecordType = "entry"
	RecordTypePauseStart RecordType = "pause_start"
	RecordTypePauseEnd   RecordType = "pause_end"
	RecordTypeExit       RecordType = "exit"
)

// RecordTypes lists the completion actions in the order they are offered.
var RecordTypes = []RecordType{
	RecordTypeEntry,
	RecordTypeExit,
	RecordTypePauseStart,
	RecordTypePauseEnd,
}

func (t RecordType) Valid() bool {
	switch t {
	case RecordTypeEntry, RecordTypePauseStart, RecordTypePauseEnd, RecordTypeExit:
		return true
	}
	return false
}

type RecordStatus string

const (
	RecordStatusValid    RecordStatus = "valid"
	RecordStatusWarning  RecordStatus = "warning"
	RecordStatusRejected RecordStatus = "rejected"
)

// PlaceholderIP is recorded when the caller cannot report a network address.
const PlaceholderIP = "189.120.x.x"

type Location struct {
	Lat float64 `bson:"lat" json:"lat" validate:"gte=-90,lte=90"`
	Lng float64 `bson:"lng" json:"lng" validate:"gte=-180,lte=180"`
}

// PointRecord is a single work-journey event. It is never mutated once
// created by the registration wizard.
type PointRecord struct {
	ID                 string       `bson:"_id" json:"id" validate:"required"`
	UserID             string       `bson:"user_id" json:"user_id" validate:"required"`
	UserName           string       `bson:"user_name" json:"user_name"`
	CompanyID          string       `bson:"company_id" json:"company_id" validate:"required"`
	Timestamp          time.Time    `bson:"timestamp" json:"timestamp" validate:"required"`
	Type               RecordType   `bson:"type" json:"type" validate:"required,oneof=entry pause_start pause_end exit"`
	Location           Location     `bson:"location" json:"location"`
	SelfieURL          string       `bson:"selfie_url" json:"selfie_url"`
	IP                 string       `bson:"ip" json:"ip"`
	DeviceInfo         string       `bson:"device_info" json:"device_info"`
	Status             RecordStatus `bson:"status" json:"status" validate:"omitempty,oneof=valid warning rejected"`
	DistanceFromOffice float64      `bson:"distance_from_office" json:"distance_from_office"`
	CreatedAt          time.Time    `bson:"created_at" json:"created_at"`
}

// Date returns the record's calendar day (YYYY-MM-DD) in loc.
func (r *PointRecord) Date(loc *time.Location) string {
	return r.Timestamp.In(loc).Format(time.DateOnly)
}
