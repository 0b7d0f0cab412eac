package models

import "gorm.io/gorm"

type Vendor struct {
	gorm.Model
	Name         string `gorm:"not null"`
	Services     string
	ContactEmail string
	ContactPhone string
	Active       bool `gorm:"default:true"`
}
