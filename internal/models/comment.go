package models

import "gorm.io/gorm"

// Comment is attached to a request or template by ID. Comments posted
// through a public token carry the caller's name and phone instead of an
// author ID.
type Comment struct {
	gorm.Model
	ResourceKind string `gorm:"not null;index:idx_comment_resource"`
	ResourceID   uint   `gorm:"not null;index:idx_comment_resource"`
	AuthorID     *uint
	AuthorName   string
	AuthorPhone  string
	Message      string `gorm:"not null"`
}
