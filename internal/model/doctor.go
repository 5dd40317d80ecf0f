package model

import "time"

// Doctor represents a practitioner that patients register against.
// The booking core treats doctors as immutable reference data; rows
// are managed by admin tooling outside this service.
//
// Fields:
//  ID           – primary key identifier.
//  AccountID    – linked login account, if the doctor can sign in.
//  DepartmentID – department the doctor belongs to.
//  Name         – display name.
//  Title        – professional title shown in the catalog.
//  CreatedAt    – creation timestamp.
//  UpdatedAt    – last update timestamp.
type Doctor struct {
	ID           uint64    `json:"id"`            // doctors.id
	AccountID    *uint64   `json:"account_id"`    // doctors.account_id (nullable)
	DepartmentID uint64    `json:"department_id"` // doctors.department_id
	Name         string    `json:"name"`          // doctors.name
	Title        *string   `json:"title"`         // doctors.title (nullable)
	CreatedAt    time.Time `json:"created_at"`    // doctors.created_at
	UpdatedAt    time.Time `json:"updated_at"`    // doctors.updated_at
}
