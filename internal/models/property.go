package models

import "gorm.io/gorm"

type Property struct {
	gorm.Model
	Name      string `gorm:"uniqueIndex;not null"`
	Street    string
	City      string `gorm:"not null"`
	State     string
	Zip       string
	Country   string `gorm:"not null"`
	Type      string
	YearBuilt int
	Amenities string
	Active    bool `gorm:"default:true"`
	Latitude  *float64
	Longitude *float64
	CreatedBy uint
}

// Unit statuses.
const (
	UnitOccupied         = "occupied"
	UnitVacant           = "vacant"
	UnitUnderMaintenance = "under_maintenance"
	UnitUnavailable      = "unavailable"
	UnitLeased           = "leased"
)

type Unit struct {
	gorm.Model
	PropertyID            uint   `gorm:"not null;index:idx_unit_name,unique"`
	Name                  string `gorm:"not null;index:idx_unit_name,unique"`
	Floor                 int
	Bedrooms              int
	Bathrooms             int
	SquareFootage         float64
	RentAmount            float64
	Deposit               float64
	Status                string `gorm:"default:'vacant'"`
	UtilityResponsibility string
	Active                bool `gorm:"default:true"`
}

// ValidUnitStatus reports whether s is a known unit status.
func ValidUnitStatus(s string) bool {
	switch s {
	case UnitOccupied, UnitVacant, UnitUnderMaintenance, UnitUnavailable, UnitLeased:
		return true
	}
	return false
}
