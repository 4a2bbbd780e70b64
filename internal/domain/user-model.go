package domain

import "time"

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Status is the verification state of an account: 0 unverified, 1 verified.
type Status int

const (
	StatusUnverified Status = 0
	StatusVerified   Status = 1
)

// MaxAttempts is the number of wrong codes an account may submit before lockout.
const MaxAttempts = 3

type Company struct {
	Name     string  `gorm:"column:name" bson:"name,omitempty" json:"name"`
	CIF      *string `gorm:"column:cif" bson:"cif,omitempty" json:"cif,omitempty"`
	Street   string  `gorm:"column:street" bson:"street,omitempty" json:"street"`
	Number   int     `gorm:"column:number" bson:"number,omitempty" json:"number"`
	Postal   int     `gorm:"column:postal" bson:"postal,omitempty" json:"postal"`
	City     string  `gorm:"column:city" bson:"city,omitempty" json:"city"`
	Province string  `gorm:"column:province" bson:"province,omitempty" json:"province"`
	URL      string  `gorm:"column:url" bson:"url,omitempty" json:"url"`
	Logo     string  `gorm:"column:logo" bson:"logo,omitempty" json:"logo"`
}

type User struct {
	ID           string  `gorm:"primaryKey;type:uuid" bson:"_id" json:"id"`
	Email        string  `gorm:"not null" bson:"email" json:"email"`
	PasswordHash string  `gorm:"column:password_hash;not null" bson:"password_hash" json:"-"`
	Name         string  `bson:"name" json:"name"`
	Surnames     string  `bson:"surnames" json:"surnames"`
	NIF          *string `gorm:"column:nif" bson:"nif,omitempty" json:"nif,omitempty"`
	Role         Role    `gorm:"type:varchar(10);not null" bson:"role" json:"role"`

	// Code and Attempts drive verification and are never serialized outward.
	Code     string `gorm:"type:char(6);not null" bson:"code" json:"-"`
	Attempts int    `gorm:"not null" bson:"attempts" json:"-"`
	Status   Status `gorm:"not null" bson:"status" json:"status"`

	Company Company `gorm:"embedded;embeddedPrefix:company_" bson:"company" json:"company"`
	Deleted bool    `gorm:"not null" bson:"deleted" json:"deleted"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

func (User) TableName() string { return "users" }

func (u *User) IsVerified() bool { return u.Status == StatusVerified }

func (u *User) IsAdmin() bool { return u.Role == RoleAdmin }
